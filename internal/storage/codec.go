package storage

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/starford/notable/internal/apperr"
	"github.com/starford/notable/internal/models"
)

// decode reads one JSON array of notes from r. Read failures are reported
// as an unavailable store; anything that does not parse as a note array
// (including null) is reported as a corrupt store.
func decode(r io.Reader, source string) ([]models.Note, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w: %w", source, apperr.ErrStorageUnavailable, err)
	}

	var notes []models.Note
	if err := json.Unmarshal(data, &notes); err != nil {
		return nil, fmt.Errorf("storage: decode %s: %w: %w", source, apperr.ErrCorruptStore, err)
	}
	if notes == nil {
		return nil, fmt.Errorf("storage: decode %s: %w: document is not an array", source, apperr.ErrCorruptStore)
	}
	return notes, nil
}

// encode renders notes the way the store is persisted: an indented array,
// never null.
func encode(notes []models.Note) ([]byte, error) {
	if notes == nil {
		notes = []models.Note{}
	}
	data, err := json.MarshalIndent(notes, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("storage: encode: %w", err)
	}
	return data, nil
}
