package api

import (
	"github.com/starford/notable/internal/models"
	"github.com/starford/notable/internal/noteservice"
)

// CreateNoteRequest is the request body for creating a note. Fields are
// pointers so that a missing field can be told apart from an empty one.
type CreateNoteRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

// UpdateNoteRequest is the request body for a partial update.
type UpdateNoteRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

// Note is the note representation returned by the API.
type Note = models.Note

// NoteListResponse is the data payload of GET /api/notes.
type NoteListResponse = noteservice.ListResult
