package noteservice

import (
	"context"
	"sort"
	"strings"

	"github.com/starford/notable/internal/models"
)

// ListParams selects and pages the note list. Zero Page or Limit disables
// pagination.
type ListParams struct {
	Search string
	Page   int
	Limit  int
}

// ListResult is one page of notes plus the filtered count before paging.
type ListResult struct {
	Notes []models.Note `json:"notes"`
	Total int           `json:"total"`
}

// UpdateParams carries optional replacement values for Update.
type UpdateParams struct {
	Title   *string
	Content *string
}

// List returns notes newest first, filtered by a case-insensitive substring
// of title or content, then paged when both Page and Limit are positive.
func (s *Service) List(ctx context.Context, p ListParams) (*ListResult, error) {
	notes, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].CreatedAt.After(notes[j].CreatedAt)
	})

	if p.Search != "" {
		term := strings.ToLower(p.Search)
		filtered := notes[:0]
		for _, n := range notes {
			if n.Matches(term) {
				filtered = append(filtered, n)
			}
		}
		notes = filtered
	}

	total := len(notes)
	if p.Page > 0 && p.Limit > 0 {
		notes = page(notes, p.Page, p.Limit)
	}
	if notes == nil {
		notes = []models.Note{}
	}
	return &ListResult{Notes: notes, Total: total}, nil
}

// page slices notes to [(pageNum-1)*limit, pageNum*limit), clamped to the
// slice bounds; a page past the end is empty.
func page(notes []models.Note, pageNum, limit int) []models.Note {
	start := (pageNum - 1) * limit
	if start < 0 || start >= len(notes) || start/limit != pageNum-1 {
		return []models.Note{}
	}
	end := start + limit
	if end > len(notes) || end < start {
		end = len(notes)
	}
	return notes[start:end]
}
