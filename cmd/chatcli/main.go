package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/gochat-dev/chatclient/internal/chat"
	"github.com/gochat-dev/chatclient/internal/config"
	"github.com/gochat-dev/chatclient/internal/restapi"
	"github.com/gochat-dev/chatclient/internal/session"
	"github.com/gochat-dev/chatclient/internal/transport"
	"github.com/gochat-dev/chatclient/internal/tui"
)

var (
	apiBaseURL string
	wsURL      string
	stateDir   string
	pageSize   int
	heartbeat  time.Duration
)

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	// .env is optional, flags and the environment win
	_ = godotenv.Load()

	flag.StringVar(&apiBaseURL, "api-url", envDefault("CHATCLI_API_URL", "http://localhost:8080/v1"), "REST API base URL")
	flag.StringVar(&wsURL, "ws-url", envDefault("CHATCLI_WS_URL", "ws://localhost:8080/ws"), "STOMP WebSocket URL")
	flag.StringVar(&stateDir, "state-dir", os.Getenv("CHATCLI_STATE_DIR"), "directory for the persisted session")
	flag.IntVar(&pageSize, "page-size", restapi.DefaultPageSize, "history page size")
	flag.DurationVar(&heartbeat, "heartbeat", 0, "STOMP heartbeat interval (0 for default)")
	flag.Parse()

	logger := log.New(os.Stderr, "[chatcli] ", log.LstdFlags)

	cfg, err := config.NewConfig(apiBaseURL, wsURL, stateDir, pageSize, heartbeat)
	if err != nil {
		logger.Fatal("config: ", err)
	}

	// the API client needs the store's token and the store needs the API
	// client; the closure breaks the construction cycle
	var store *session.Store
	api := restapi.NewClient(cfg.APIBaseURL, restapi.TokenFunc(func() string {
		return store.AccessToken()
	}), logger)

	store, err = session.NewStore(api, session.NewFileStore(cfg.StateDir), logger)
	if err != nil {
		logger.Fatal("session state: ", err)
	}

	bootCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	if err := store.Boot(bootCtx); err != nil && !errors.Is(err, session.ErrLoginRequired) {
		cancel()
		logger.Fatal("session boot: ", err)
	}
	cancel()

	var (
		stomp *transport.STOMPSession
		stack *tui.ChatStack
	)
	buildStack := func() (*tui.ChatStack, error) {
		user, ok := store.CurrentUser()
		if !ok {
			return nil, session.ErrLoginRequired
		}

		stomp = transport.NewSTOMPSession(cfg.WSURL, store, cfg.Heartbeat, logger)

		directory := chat.NewDirectory(api, logger)
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := directory.Refresh(ctx); err != nil {
			logger.Println("initial group list: ", err)
		}

		dispatcher := chat.NewDispatcher(stomp, api, logger)
		client := chat.NewClient(logger, api, dispatcher, directory, stomp, user.Summary(), cfg.PageSize)

		stack = &tui.ChatStack{Client: client, Directory: directory}
		return stack, nil
	}

	model := tui.NewModel(store, buildStack, logger)

	p := tea.NewProgram(model, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		logger.Fatal("tui: ", err)
	}

	if stack != nil {
		if err := stack.Client.Close(); err != nil {
			logger.Println("close chat client: ", err)
		}
	}
	if stomp != nil {
		if err := stomp.Close(); err != nil {
			logger.Println("close transport: ", err)
		}
	}

	if m, ok := final.(tui.Model); ok {
		if err := m.Err(); err != nil {
			logger.Fatal(err)
		}
	}
}
