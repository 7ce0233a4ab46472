// Package task keeps analysis tasks and user feedback in memory.
package task

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/ppiankov/factlens/internal/model"
)

// Status is the lifecycle state of a task
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transition is possible
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

// InputType records what the user submitted
type InputType string

const (
	InputText  InputType = "text"
	InputImage InputType = "image"
)

var (
	ErrNotFound          = errors.New("task not found")
	ErrInvalidTransition = errors.New("invalid task transition")
)

// Task is one asynchronous analysis. Result is set once and never mutated afterwards.
type Task struct {
	ID        string                `json:"id"`
	Status    Status                `json:"status"`
	InputType InputType             `json:"input_type"`
	UserID    string                `json:"user_id"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
	Result    *model.AnalysisResult `json:"result"`
	Error     string                `json:"error,omitempty"`
}

// Feedback is a user report about a result
type Feedback struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ResultID  string    `json:"result_id"`
	Type      string    `json:"type"`
	Comment   string    `json:"comment"`
	UserID    string    `json:"user_id"`
}

// Store holds tasks with TTL eviction and an append-only feedback log.
// All methods are safe for concurrent use and return copies.
type Store struct {
	tasks *gocache.Cache
	mu    sync.Mutex // serialises read-modify-write on tasks

	fbMu     sync.RWMutex
	feedback []Feedback

	now func() time.Time
}

// NewStore creates a store whose tasks expire ttl after their last update
func NewStore(ttl, cleanupInterval time.Duration) *Store {
	return &Store{
		tasks: gocache.New(ttl, cleanupInterval),
		now:   time.Now,
	}
}

// Create registers a new pending task
func (s *Store) Create(inputType InputType, userID string) Task {
	now := s.now().UTC()
	t := Task{
		ID:        "task_" + uuid.NewString(),
		Status:    StatusPending,
		InputType: inputType,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.tasks.Set(t.ID, &t, gocache.DefaultExpiration)
	s.mu.Unlock()
	return t
}

// Get returns a copy of the task
func (s *Store) Get(id string) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.lookup(id)
	if !ok {
		return Task{}, false
	}
	return *t, true
}

// MarkProcessing moves a pending task to processing
func (s *Store) MarkProcessing(id string) error {
	return s.update(id, func(t *Task) error {
		if t.Status != StatusPending {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, StatusProcessing)
		}
		t.Status = StatusProcessing
		return nil
	})
}

// Finish stores the result and marks the task done
func (s *Store) Finish(id string, result *model.AnalysisResult) error {
	return s.update(id, func(t *Task) error {
		if t.Status.Terminal() {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, StatusDone)
		}
		t.Status = StatusDone
		t.Result = result
		return nil
	})
}

// Fail records the error and marks the task failed
func (s *Store) Fail(id string, message string) error {
	return s.update(id, func(t *Task) error {
		if t.Status.Terminal() {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, StatusFailed)
		}
		t.Status = StatusFailed
		t.Error = message
		return nil
	})
}

// Len returns the number of live tasks
func (s *Store) Len() int {
	return s.tasks.ItemCount()
}

// AddFeedback appends a feedback record and returns it
func (s *Store) AddFeedback(resultID, kind, comment, userID string) Feedback {
	fb := Feedback{
		ID:        "fb_" + uuid.NewString(),
		CreatedAt: s.now().UTC(),
		ResultID:  resultID,
		Type:      kind,
		Comment:   comment,
		UserID:    userID,
	}

	s.fbMu.Lock()
	s.feedback = append(s.feedback, fb)
	s.fbMu.Unlock()
	return fb
}

// Feedback returns all feedback in insertion order
func (s *Store) Feedback() []Feedback {
	s.fbMu.RLock()
	defer s.fbMu.RUnlock()

	out := make([]Feedback, len(s.feedback))
	copy(out, s.feedback)
	return out
}

func (s *Store) lookup(id string) (*Task, bool) {
	v, ok := s.tasks.Get(id)
	if !ok {
		return nil, false
	}
	t, ok := v.(*Task)
	return t, ok
}

func (s *Store) update(id string, apply func(*Task) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.lookup(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	next := *current
	if err := apply(&next); err != nil {
		return err
	}
	next.UpdatedAt = s.now().UTC()
	s.tasks.Set(id, &next, gocache.DefaultExpiration)
	return nil
}
