// Package storage defines the backing-store abstraction for the note array.
package storage

import (
	"context"

	"github.com/starford/notable/internal/models"
)

// Provider reads and replaces the full note array. Every call acquires the
// underlying resource and releases it before returning.
type Provider interface {
	// Init seeds an empty array when the store does not exist yet.
	Init(ctx context.Context) error
	// Load returns every stored record in persisted order.
	Load(ctx context.Context) ([]models.Note, error)
	// Save replaces the stored array with notes.
	Save(ctx context.Context, notes []models.Note) error
}
