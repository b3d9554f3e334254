package roadmap

import (
	"careerai/app/config"
	"careerai/app/metrics"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/do"
)

var (
	ErrUnauthenticated = errors.New("user id is required")
	ErrInvalid         = errors.New("invalid roadmap item")
)

var _ do.Shutdownable = (*Service)(nil)

type Service struct {
	store    Store
	validate *validator.Validate
	now      func() time.Time
}

func NewService(store Store) *Service {
	return &Service{
		store:    store,
		validate: validator.New(),
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	ctx, cancel := context.WithTimeout(do.MustInvoke[context.Context](di), 10*time.Second)
	defer cancel()

	store, err := NewStore(ctx, &cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open roadmap store: %w", err)
	}

	slog.Info("Roadmap store opened", "driver", cfg.Storage.Driver)

	return NewService(store), nil
}

func (s *Service) Shutdown() error {
	return s.store.Close()
}

func (s *Service) Create(ctx context.Context, userID string, input CreateInput) (Item, error) {
	if userID == "" {
		return Item{}, ErrUnauthenticated
	}

	input.Title = strings.TrimSpace(input.Title)
	if err := s.validate.Struct(input); err != nil {
		return Item{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	item := Item{
		ID:            uuid.NewString(),
		UserID:        userID,
		Title:         input.Title,
		Description:   input.Description,
		Status:        input.Status,
		Priority:      input.Priority,
		EstimatedTime: input.EstimatedTime,
		Skills:        input.Skills,
		Resources:     input.Resources,
		Source:        input.Source,
	}
	if item.Status == "" {
		item.Status = StatusPending
	}
	if item.Priority == "" {
		item.Priority = PriorityMedium
	}
	if item.Source == "" {
		item.Source = SourceUserAdded
	}
	if item.Skills == nil {
		item.Skills = []string{}
	}
	if item.Resources == nil {
		item.Resources = []Resource{}
	}

	if input.StepNumber != nil {
		item.StepNumber = *input.StepNumber
	} else {
		count, err := s.store.Count(ctx, userID)
		if err != nil {
			return Item{}, s.fail("create", fmt.Errorf("failed to count roadmap items: %w", err))
		}
		item.StepNumber = count + 1
	}

	item.CreatedAt = s.now()
	item.UpdatedAt = item.CreatedAt

	if err := s.store.Create(ctx, item); err != nil {
		return Item{}, s.fail("create", fmt.Errorf("failed to create roadmap item: %w", err))
	}

	s.ok("create")
	return item, nil
}

// List returns the user's items newest first. Anonymous callers get nothing.
func (s *Service) List(ctx context.Context, userID string) ([]Item, error) {
	if userID == "" {
		return []Item{}, nil
	}

	items, err := s.store.List(ctx, userID)
	if err != nil {
		return nil, s.fail("list", fmt.Errorf("failed to list roadmap items: %w", err))
	}

	s.ok("list")
	return items, nil
}

func (s *Service) Get(ctx context.Context, userID, id string) (Item, error) {
	item, err := s.store.Get(ctx, userID, id)
	if err != nil {
		return Item{}, s.fail("get", err)
	}

	s.ok("get")
	return item, nil
}

func (s *Service) Update(ctx context.Context, userID, id string, patch Patch) (Item, error) {
	if userID == "" {
		return Item{}, ErrUnauthenticated
	}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return Item{}, fmt.Errorf("%w: title must not be empty", ErrInvalid)
		}
		patch.Title = &title
	}
	if err := s.validate.Struct(patch); err != nil {
		return Item{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	now := s.now()
	item, err := s.store.Update(ctx, userID, id, func(item *Item) {
		patch.Apply(item, now)
	})
	if err != nil {
		return Item{}, s.fail("update", err)
	}

	s.ok("update")
	return item, nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if userID == "" {
		return ErrUnauthenticated
	}

	if err := s.store.Delete(ctx, userID, id); err != nil {
		return s.fail("delete", err)
	}

	s.ok("delete")
	return nil
}

func (s *Service) ok(operation string) {
	metrics.RoadmapOperationsTotal.WithLabelValues(operation, "ok").Inc()
}

func (s *Service) fail(operation string, err error) error {
	status := "error"
	if errors.Is(err, ErrNotFound) {
		status = "not_found"
	}
	metrics.RoadmapOperationsTotal.WithLabelValues(operation, status).Inc()

	return err
}
