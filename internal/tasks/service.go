package tasks

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var errNoOwner = errors.New("tasks: caller identity missing")

// NewTask is the input for Create. Empty Status and Priority take defaults.
type NewTask struct {
	Title       string
	Description string
	Status      string
	Priority    string
	DueDate     *time.Time
}

// Patch changes only the fields that are set. ClearDueDate removes the due date.
type Patch struct {
	Title        *string
	Description  *string
	Status       *string
	Priority     *string
	DueDate      *time.Time
	ClearDueDate bool
}

// Service runs task operations on behalf of a verified owner.
type Service struct {
	repo  Repository
	now   func() time.Time
	newID func() string
}

func NewService(repo Repository) *Service {
	return &Service{
		repo:  repo,
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.NewString() },
	}
}

func (s *Service) Create(ctx context.Context, ownerID string, in NewTask) (Task, error) {
	if ownerID == "" {
		return Task{}, errNoOwner
	}
	if strings.TrimSpace(in.Title) == "" {
		return Task{}, ErrTitleRequired
	}
	status := StatusPending
	if in.Status != "" {
		st, ok := ParseStatus(in.Status)
		if !ok {
			return Task{}, ErrInvalidStatus
		}
		status = st
	}
	priority := PriorityMedium
	if in.Priority != "" {
		pr, ok := ParsePriority(in.Priority)
		if !ok {
			return Task{}, ErrInvalidPriority
		}
		priority = pr
	}

	now := s.now()
	return s.repo.Create(ctx, Task{
		ID:          s.newID(),
		OwnerID:     ownerID,
		Title:       in.Title,
		Description: in.Description,
		Status:      status,
		Priority:    priority,
		DueDate:     in.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (s *Service) Get(ctx context.Context, ownerID, id string) (Task, error) {
	if ownerID == "" {
		return Task{}, errNoOwner
	}
	return s.repo.Get(ctx, ownerID, id)
}

func (s *Service) Update(ctx context.Context, ownerID, id string, p Patch) (Task, error) {
	t, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return Task{}, err
	}
	if p.Title != nil {
		if strings.TrimSpace(*p.Title) == "" {
			return Task{}, ErrTitleRequired
		}
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		st, ok := ParseStatus(*p.Status)
		if !ok {
			return Task{}, ErrInvalidStatus
		}
		t.Status = st
	}
	if p.Priority != nil {
		pr, ok := ParsePriority(*p.Priority)
		if !ok {
			return Task{}, ErrInvalidPriority
		}
		t.Priority = pr
	}
	switch {
	case p.ClearDueDate:
		t.DueDate = nil
	case p.DueDate != nil:
		t.DueDate = p.DueDate
	}
	t.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, t); err != nil {
		return Task{}, err
	}
	return t, nil
}

func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	if ownerID == "" {
		return errNoOwner
	}
	return s.repo.Delete(ctx, ownerID, id)
}

// List returns the owner's tasks filtered and ordered per p.
func (s *Service) List(ctx context.Context, ownerID string, p ListParams) ([]Task, error) {
	if ownerID == "" {
		return nil, errNoOwner
	}
	return s.repo.List(ctx, NewQuery(ownerID, p))
}
