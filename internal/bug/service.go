package bug

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abduss/bugtrack/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// bugStore abstracts the persistence layer. Implementations assign Seq on Create and
// return ErrBugNotFound for missing ids.
type bugStore interface {
	Create(ctx context.Context, b Bug) (Bug, error)
	Get(ctx context.Context, id uuid.UUID) (Bug, error)
	List(ctx context.Context, d Descriptor) (Page, error)
	Update(ctx context.Context, b Bug) (Bug, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context) (Summary, error)
}

// Service encapsulates bug use cases.
type Service struct {
	store    bugStore
	maxLimit int
	nowFunc  func() time.Time
}

// NewService creates a Service. maxLimit caps the page size; values below 1 fall back to MaxLimit.
func NewService(store bugStore, maxLimit int) *Service {
	if maxLimit < 1 || maxLimit > MaxLimit {
		maxLimit = MaxLimit
	}
	return &Service{
		store:    store,
		maxLimit: maxLimit,
		nowFunc:  time.Now,
	}
}

// Create validates and persists a new bug.
func (s *Service) Create(ctx context.Context, input CreateInput) (Bug, error) {
	b, err := input.toBug()
	if err != nil {
		return Bug{}, err
	}

	now := s.nowFunc().UTC()
	b.ID = uuid.New()
	b.CreatedAt = now
	b.UpdatedAt = now

	created, err := s.store.Create(ctx, b)
	if err != nil {
		return Bug{}, fmt.Errorf("create bug: %w", err)
	}

	metrics.RecordBugMutation("create")
	zap.L().Info("bug created", zap.String("id", created.ID.String()), zap.String("priority", string(created.Priority)))
	return created, nil
}

// Get fetches one bug. Ids that do not parse are reported as not found.
func (s *Service) Get(ctx context.Context, id string) (Bug, error) {
	bugID, err := uuid.Parse(id)
	if err != nil {
		return Bug{}, notFound(id)
	}

	b, err := s.store.Get(ctx, bugID)
	if err != nil {
		return Bug{}, s.lookupError(id, err, "get bug")
	}
	return b, nil
}

// List returns one page of bugs matching d.
func (s *Service) List(ctx context.Context, d Descriptor) (Page, error) {
	d = d.Clamp(s.maxLimit)
	page, err := s.store.List(ctx, d)
	if err != nil {
		return Page{}, fmt.Errorf("list bugs: %w", err)
	}
	if page.Bugs == nil {
		page.Bugs = []Bug{}
	}
	return page, nil
}

// Update applies a partial edit.
func (s *Service) Update(ctx context.Context, id string, input UpdateInput) (Bug, error) {
	return s.mutate(ctx, id, "update", input.applyTo)
}

// UpdateStatus moves a bug to a new status. An invalid status leaves the bug unchanged.
func (s *Service) UpdateStatus(ctx context.Context, id, status string) (Bug, error) {
	next, err := parseStatus(status)
	if err != nil {
		return Bug{}, err
	}
	return s.mutate(ctx, id, "status", func(b *Bug) error {
		b.Status = next
		return nil
	})
}

// UpdatePriority changes a bug's priority. An invalid priority leaves the bug unchanged.
func (s *Service) UpdatePriority(ctx context.Context, id, priority string) (Bug, error) {
	next, err := parsePriority(priority)
	if err != nil {
		return Bug{}, err
	}
	return s.mutate(ctx, id, "priority", func(b *Bug) error {
		b.Priority = next
		return nil
	})
}

// Delete removes a bug permanently.
func (s *Service) Delete(ctx context.Context, id string) error {
	bugID, err := uuid.Parse(id)
	if err != nil {
		return notFound(id)
	}

	if err := s.store.Delete(ctx, bugID); err != nil {
		return s.lookupError(id, err, "delete bug")
	}

	metrics.RecordBugMutation("delete")
	zap.L().Info("bug deleted", zap.String("id", id))
	return nil
}

// Stats aggregates the whole collection.
func (s *Service) Stats(ctx context.Context) (Summary, error) {
	summary, err := s.store.Stats(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("bug stats: %w", err)
	}
	return summary, nil
}

func (s *Service) mutate(ctx context.Context, id, operation string, apply func(*Bug) error) (Bug, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return Bug{}, err
	}
	if err := apply(&current); err != nil {
		return Bug{}, err
	}

	current.UpdatedAt = s.nowFunc().UTC()
	if current.UpdatedAt.Before(current.CreatedAt) {
		current.UpdatedAt = current.CreatedAt
	}

	updated, err := s.store.Update(ctx, current)
	if err != nil {
		return Bug{}, s.lookupError(id, err, "update bug")
	}

	metrics.RecordBugMutation(operation)
	zap.L().Info("bug updated", zap.String("id", id), zap.String("operation", operation))
	return updated, nil
}

func (s *Service) lookupError(id string, err error, action string) error {
	if errors.Is(err, ErrBugNotFound) {
		return notFound(id)
	}
	return fmt.Errorf("%s: %w", action, err)
}
