package chat

import (
	"context"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/gochat-dev/chatclient/internal/types"
)

type GroupsAPI interface {
	ListGroups(ctx context.Context) ([]types.Group, error)
	CreateGroup(ctx context.Context, req types.CreateGroupRequest) (*types.Group, error)
}

// Directory caches the groups the user belongs to. Refresh re-pulls the full
// list; there is no incremental diffing, since membership and metadata
// changes arrive piggybacked on the notifications queue rather than as their
// own events.
type Directory struct {
	api GroupsAPI
	log *log.Logger

	mu     sync.RWMutex
	groups []types.Group
}

func NewDirectory(api GroupsAPI, logger *log.Logger) *Directory {
	return &Directory{api: api, log: logger}
}

func (d *Directory) Refresh(ctx context.Context) error {
	groups, err := d.api.ListGroups(ctx)
	if err != nil {
		return err
	}

	// most recent activity first for display
	slices.SortStableFunc(groups, func(a, b types.Group) int {
		return lastActivity(b).Compare(lastActivity(a))
	})

	d.mu.Lock()
	d.groups = groups
	d.mu.Unlock()

	return nil
}

func (d *Directory) Groups() []types.Group {
	d.mu.RLock()
	defer d.mu.RUnlock()

	groups := make([]types.Group, len(d.groups))
	copy(groups, d.groups)
	return groups
}

func (d *Directory) Create(ctx context.Context, req types.CreateGroupRequest) (*types.Group, error) {
	group, err := d.api.CreateGroup(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := d.Refresh(ctx); err != nil {
		d.log.Println("refresh groups after create:", err)
	}

	return group, nil
}

func lastActivity(g types.Group) time.Time {
	if g.LastMessage != nil {
		return g.LastMessage.CreatedAt
	}

	return g.UpdatedAt
}
