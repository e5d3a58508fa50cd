// Package noteservice implements the note query and mutation operations over
// a storage.Provider. Every call loads the full record set; mutations write
// the full set back only after the in-memory change succeeded.
package noteservice

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/notable/internal/apperr"
	"github.com/starford/notable/internal/models"
	"github.com/starford/notable/internal/storage"
)

// Change kinds passed to a Notifier.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// Notifier is told about every persisted mutation.
type Notifier interface {
	NoteChanged(kind, id string)
}

// Service coordinates store access for note operations.
type Service struct {
	store     storage.Provider
	now       func() time.Time
	newID     func() string
	notifiers []Notifier
	logger    *slog.Logger

	// serialize guards the read-modify-write sequence of mutations when set.
	serialize bool
	mu        sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides how new note ids are produced.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

// WithNotifier registers a receiver for change events. It may be given
// more than once.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifiers = append(s.notifiers, n) }
}

// WithLogger sets the logger used for mutation debug output.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithSerializedWrites makes mutations within this process run one at a
// time, which removes lost updates between overlapping requests.
func WithSerializedWrites(on bool) Option {
	return func(s *Service) { s.serialize = on }
}

// New creates a note service over store.
func New(store storage.Provider, opts ...Option) *Service {
	s := &Service{
		store:  store,
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping loads the store once to check it is reachable and well-formed.
func (s *Service) Ping(ctx context.Context) error {
	_, err := s.store.Load(ctx)
	return err
}

// GetByID returns the note with exactly this id.
func (s *Service) GetByID(ctx context.Context, id string) (*models.Note, error) {
	notes, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if i := indexOf(notes, id); i >= 0 {
		n := notes[i]
		return &n, nil
	}
	return nil, apperr.ErrNotFound
}

// Create appends a new note with a fresh id and equal timestamps.
func (s *Service) Create(ctx context.Context, title, content string) (*models.Note, error) {
	defer s.lock()()

	notes, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	n := models.Note{
		ID:        s.newID(),
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if indexOf(notes, n.ID) >= 0 {
		return nil, fmt.Errorf("noteservice: generated id %s already exists", n.ID)
	}

	if err := s.store.Save(ctx, append(notes, n)); err != nil {
		return nil, err
	}
	s.changed(EventCreated, n.ID)
	return &n, nil
}

// Update replaces title and/or content of the note with this id. A nil or
// empty value leaves the field as it is; updatedAt is always refreshed.
func (s *Service) Update(ctx context.Context, id string, p UpdateParams) (*models.Note, error) {
	defer s.lock()()

	notes, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOf(notes, id)
	if i < 0 {
		return nil, apperr.ErrNotFound
	}

	n := notes[i]
	n.UpdatedAt = s.nextUpdate(n.UpdatedAt)
	if p.Title != nil && *p.Title != "" {
		n.Title = *p.Title
	}
	if p.Content != nil && *p.Content != "" {
		n.Content = *p.Content
	}
	notes[i] = n

	if err := s.store.Save(ctx, notes); err != nil {
		return nil, err
	}
	s.changed(EventUpdated, n.ID)
	return &n, nil
}

// Delete removes the note with this id and reports whether one was removed.
// The store is only written when something was removed.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	defer s.lock()()

	notes, err := s.store.Load(ctx)
	if err != nil {
		return false, err
	}
	i := indexOf(notes, id)
	if i < 0 {
		return false, nil
	}

	kept := append(notes[:i:i], notes[i+1:]...)
	if err := s.store.Save(ctx, kept); err != nil {
		return false, err
	}
	s.changed(EventDeleted, id)
	return true, nil
}

// nextUpdate returns the current time, pushed past prev when the clock has
// not advanced so that updatedAt strictly increases on every mutation.
func (s *Service) nextUpdate(prev time.Time) time.Time {
	now := s.now().UTC()
	if !now.After(prev) {
		now = prev.Add(time.Nanosecond)
	}
	return now
}

func (s *Service) lock() func() {
	if !s.serialize {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Service) changed(kind, id string) {
	s.logger.Debug("note "+kind, slog.String("id", id))
	for _, n := range s.notifiers {
		n.NoteChanged(kind, id)
	}
}

func indexOf(notes []models.Note, id string) int {
	for i := range notes {
		if notes[i].ID == id {
			return i
		}
	}
	return -1
}
