package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/golang-jwt/jwt"

	"github.com/gochat-dev/chatclient/internal/restapi"
	"github.com/gochat-dev/chatclient/internal/types"
)

// ErrLoginRequired means no usable credentials remain and the user must be
// routed to the login surface.
var ErrLoginRequired = errors.New("session: login required")

// expiryLeeway treats tokens about to expire as already expired so a call
// doesn't race the server's clock.
const expiryLeeway = 30 * time.Second

type AuthAPI interface {
	Register(ctx context.Context, req types.RegisterRequest) (*types.AuthResponse, error)
	Login(ctx context.Context, req types.LoginRequest) (*types.AuthResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	Refresh(ctx context.Context, refreshToken string) (*types.TokenResponse, error)
	Me(ctx context.Context) (*types.UserDetail, error)
}

// Store owns the current user identity and the access/refresh token pair.
type Store struct {
	api   AuthAPI
	state StateStore
	log   *log.Logger

	mu      sync.RWMutex
	user    *types.UserDetail
	access  string
	refresh string
}

func NewStore(api AuthAPI, state StateStore, logger *log.Logger) (*Store, error) {
	s := &Store{
		api:   api,
		state: state,
		log:   logger,
	}

	persisted, err := state.Load()
	if err != nil {
		return nil, err
	}
	s.user = persisted.User
	s.access = persisted.AccessToken
	s.refresh = persisted.RefreshToken

	return s, nil
}

// AccessToken implements restapi.TokenSource.
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.access
}

func (s *Store) CurrentUser() (types.UserDetail, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.user == nil {
		return types.UserDetail{}, false
	}

	return *s.user, true
}

// Boot resolves the session on startup: a cached user with a live access
// token is used as-is; otherwise identity is fetched from /auth/me; a 401
// there triggers one refresh-and-retry; if that also fails with a 401 the
// caller must redirect to login.
func (s *Store) Boot(ctx context.Context) error {
	s.mu.RLock()
	user, access := s.user, s.access
	s.mu.RUnlock()

	if access == "" {
		return ErrLoginRequired
	}

	if user != nil && !tokenExpired(access) {
		return nil
	}

	u, err := s.api.Me(ctx)
	if err == nil {
		s.setUser(u)
		return nil
	}
	if !restapi.IsAuth(err) {
		return err
	}

	if err := s.RefreshAccessToken(ctx); err != nil {
		return err
	}

	u, err = s.api.Me(ctx)
	if err != nil {
		if restapi.IsAuth(err) {
			return s.invalidate()
		}
		return err
	}

	s.setUser(u)
	return nil
}

func (s *Store) Login(ctx context.Context, email, password string) error {
	resp, err := s.api.Login(ctx, types.LoginRequest{Email: email, Password: password})
	if err != nil {
		return err
	}

	s.setSession(resp)
	return nil
}

func (s *Store) Register(ctx context.Context, name, email, password string) error {
	resp, err := s.api.Register(ctx, types.RegisterRequest{Name: name, Email: email, Password: password})
	if err != nil {
		return err
	}

	s.setSession(resp)
	return nil
}

// Logout revokes the refresh token and drops all local state. Revocation is
// best-effort: a dead server must not keep the user logged in locally.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.RLock()
	refresh := s.refresh
	s.mu.RUnlock()

	if refresh != "" {
		if err := s.api.Logout(ctx, refresh); err != nil {
			s.log.Println("logout:", err)
		}
	}

	return s.invalidate()
}

// RefreshAccessToken exchanges the refresh token for a new token pair. A 401
// means the refresh token itself is dead and the session is over.
func (s *Store) RefreshAccessToken(ctx context.Context) error {
	s.mu.RLock()
	refresh := s.refresh
	s.mu.RUnlock()

	if refresh == "" {
		return s.invalidate()
	}

	tok, err := s.api.Refresh(ctx, refresh)
	if err != nil {
		if restapi.IsAuth(err) {
			return s.invalidate()
		}
		return err
	}

	s.mu.Lock()
	s.access = tok.AccessToken
	if tok.RefreshToken != "" {
		s.refresh = tok.RefreshToken
	}
	s.mu.Unlock()

	s.persist()
	return nil
}

func (s *Store) setSession(resp *types.AuthResponse) {
	s.mu.Lock()
	user := resp.User
	s.user = &user
	s.access = resp.Tokens.AccessToken
	s.refresh = resp.Tokens.RefreshToken
	s.mu.Unlock()

	s.persist()
}

func (s *Store) setUser(u *types.UserDetail) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()

	s.persist()
}

func (s *Store) invalidate() error {
	s.mu.Lock()
	s.user = nil
	s.access = ""
	s.refresh = ""
	s.mu.Unlock()

	if err := s.state.Clear(); err != nil {
		s.log.Println("clear session state:", err)
	}

	return ErrLoginRequired
}

func (s *Store) persist() {
	s.mu.RLock()
	state := State{
		User:         s.user,
		AccessToken:  s.access,
		RefreshToken: s.refresh,
	}
	s.mu.RUnlock()

	if err := s.state.Save(state); err != nil {
		s.log.Println("save session state:", err)
	}
}

// tokenExpired reads the exp claim without verifying the signature; the
// client holds no signing key. Unparseable tokens report false so the
// request is attempted and the server's 401 decides.
func tokenExpired(tokenString string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(tokenString, claims); err != nil {
		return false
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return false
	}

	return time.Now().Add(expiryLeeway).Unix() >= int64(exp)
}
