package tasks

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var errOwnerRequired = errors.New("task owner required")

// Repository persists tasks. Every method that touches an existing task is
// keyed by owner as well as id; a task owned by someone else is ErrNotFound.
type Repository interface {
	Create(ctx context.Context, t Task) (Task, error)
	Get(ctx context.Context, ownerID, id string) (Task, error)
	// Update overwrites the task matching t.ID and t.OwnerID.
	Update(ctx context.Context, t Task) error
	Delete(ctx context.Context, ownerID, id string) error
	List(ctx context.Context, q Query) ([]Task, error)
}

type InMemoryRepo struct {
	mu    sync.Mutex
	store map[string]Task
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		store: make(map[string]Task),
	}
}

func (r *InMemoryRepo) Create(_ context.Context, t Task) (Task, error) {
	if strings.TrimSpace(t.Title) == "" {
		return Task{}, ErrTitleRequired
	}
	if t.OwnerID == "" {
		return Task{}, errOwnerRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.store[t.ID] = t
	return t, nil
}

func (r *InMemoryRepo) Get(_ context.Context, ownerID, id string) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.store[id]
	if !ok || t.OwnerID != ownerID {
		return Task{}, ErrNotFound
	}
	return t, nil
}

func (r *InMemoryRepo) Update(_ context.Context, t Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.store[t.ID]
	if !ok || cur.OwnerID != t.OwnerID {
		return ErrNotFound
	}
	r.store[t.ID] = t
	return nil
}

func (r *InMemoryRepo) Delete(_ context.Context, ownerID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.store[id]
	if !ok || t.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(r.store, id)
	return nil
}

func (r *InMemoryRepo) List(_ context.Context, q Query) ([]Task, error) {
	r.mu.Lock()
	out := make([]Task, 0, len(r.store))
	for _, t := range r.store {
		if q.Matches(t) {
			out = append(out, t)
		}
	}
	r.mu.Unlock()

	q.Sort(out)
	return out, nil
}
