package roadmap

import (
	"careerai/app/config"
	"context"
	"errors"
	"fmt"
	"sort"
)

var ErrNotFound = errors.New("roadmap item not found")

// Store persists roadmap items. Items are scoped to their owner; an empty
// userID in Get matches any owner. List returns newest first.
type Store interface {
	Create(ctx context.Context, item Item) error
	List(ctx context.Context, userID string) ([]Item, error)
	Count(ctx context.Context, userID string) (int, error)
	Get(ctx context.Context, userID, id string) (Item, error)
	// Update applies mutate to the stored item atomically and returns the result.
	Update(ctx context.Context, userID, id string, mutate func(*Item)) (Item, error)
	Delete(ctx context.Context, userID, id string) error
	Close() error
}

// NewStore opens the store selected by cfg.Driver.
func NewStore(ctx context.Context, cfg *config.Storage) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "file":
		return NewFileStore(cfg.File.Path)
	case "redis":
		return NewRedisStore(ctx, cfg.Redis)
	case "postgres":
		return NewPostgresStore(ctx, cfg.Postgres.DSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func ownedBy(item *Item, userID string) bool {
	return userID == "" || item.UserID == userID
}

func sortNewestFirst(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID > items[j].ID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}
