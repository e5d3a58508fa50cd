package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notable/internal/apperr"
	"github.com/starford/notable/internal/noteservice"
	"github.com/starford/notable/internal/validate"
)

const maxBodyBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// ListNotes handles GET /api/notes.
//
//	@Summary	List notes newest first with optional search and pagination
//	@Tags		notes
//	@Produce	json
//	@Param		search	query		string	false	"Case-insensitive substring of title or content"
//	@Param		page	query		int		false	"1-based page number"
//	@Param		limit	query		int		false	"Page size"
//	@Success	200		{object}	DataEnvelope{data=NoteListResponse}
//	@Failure	500		{object}	ErrorEnvelope
//	@Router		/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) error {
	res, err := h.svc.List(r.Context(), listParams(r.URL.Query()))
	if err != nil {
		return err
	}
	writeData(w, http.StatusOK, res)
	return nil
}

// GetNote handles GET /api/notes/{id}.
//
//	@Summary	Get a single note
//	@Tags		notes
//	@Produce	json
//	@Param		id	path		string	true	"Note id"
//	@Success	200	{object}	DataEnvelope{data=Note}
//	@Failure	404	{object}	ErrorEnvelope
//	@Router		/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) error {
	note, err := h.svc.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	writeData(w, http.StatusOK, note)
	return nil
}

// CreateNote handles POST /api/notes.
//
//	@Summary	Create a note
//	@Tags		notes
//	@Accept		json
//	@Produce	json
//	@Param		body	body		CreateNoteRequest	true	"Note to create"
//	@Success	201		{object}	DataEnvelope{data=Note}
//	@Failure	400		{object}	ErrorEnvelope
//	@Router		/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) error {
	var req CreateNoteRequest
	if err := decodeBody(w, r, &req); err != nil {
		return err
	}
	if err := validate.CreateNote(req.Title, req.Content); err != nil {
		return err
	}
	note, err := h.svc.Create(r.Context(), *req.Title, *req.Content)
	if err != nil {
		return err
	}
	writeData(w, http.StatusCreated, note)
	return nil
}

// UpdateNote handles PUT /api/notes/{id}. Only the fields present in the
// body are changed.
//
//	@Summary	Partially update a note
//	@Tags		notes
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string				true	"Note id"
//	@Param		body	body		UpdateNoteRequest	true	"Fields to change"
//	@Success	200		{object}	DataEnvelope{data=Note}
//	@Failure	400		{object}	ErrorEnvelope
//	@Failure	404		{object}	ErrorEnvelope
//	@Router		/notes/{id} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) error {
	var req UpdateNoteRequest
	if err := decodeBody(w, r, &req); err != nil {
		return err
	}
	if err := validate.UpdateNote(req.Title, req.Content); err != nil {
		return err
	}
	note, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), noteservice.UpdateParams{
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		return err
	}
	writeData(w, http.StatusOK, note)
	return nil
}

// DeleteNote handles DELETE /api/notes/{id}.
//
//	@Summary	Delete a note
//	@Tags		notes
//	@Produce	json
//	@Param		id	path		string	true	"Note id"
//	@Success	200	{object}	DataEnvelope
//	@Failure	404	{object}	ErrorEnvelope
//	@Router		/notes/{id} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) error {
	removed, err := h.svc.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	if !removed {
		return apperr.ErrNotFound
	}
	writeData(w, http.StatusOK, nil)
	return nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &requestError{status: http.StatusRequestEntityTooLarge, message: "Request body too large"}
		}
		return badRequest("Invalid JSON body")
	}
	return nil
}

// listParams reads search, page and limit. An absent page means the first
// page; a page or limit that is not a positive integer disables pagination.
func listParams(q url.Values) noteservice.ListParams {
	p := noteservice.ListParams{Search: q.Get("search"), Page: 1}
	if q.Has("page") {
		p.Page = positiveInt(q.Get("page"))
	}
	p.Limit = positiveInt(q.Get("limit"))
	return p
}

func positiveInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0
	}
	return n
}
