package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quicknote/internal/models"
	"github.com/starford/quicknote/internal/noteservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service

	// allowExport enables POST /notes/{name}/export. Export writes to any
	// path the caller names, so it is only served behind token auth.
	allowExport bool
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// noteName extracts the note name from the URL. chi matches on the raw path
// when the request carries one (for example an encoded slash), and the
// parameter is then still escaped; otherwise it is already decoded. An
// encoded slash decodes to a name that fails validation later.
func noteName(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	if r.URL.RawPath == "" {
		return raw
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func etag(sum string) string {
	return fmt.Sprintf("%q", sum)
}

// ListNotes handles GET /notes.
//
//	@Summary		List every note with its content
//	@Tags			notes
//	@Produce		json
//	@Success		200		{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.svc.ListNotes(r.Context())
	if err != nil {
		writeError(w, "list notes", "", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes, Total: len(notes)})
}

// GetNote handles GET /notes/{name}.
//
//	@Summary		Get a single note by name
//	@Tags			notes
//	@Produce		json
//	@Param			name	path		string	true	"Note name"
//	@Success		200		{object}	NoteDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{name} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	name := noteName(r)
	note, err := h.svc.GetNote(r.Context(), name)
	if err != nil {
		writeError(w, "get note", name, err)
		return
	}
	w.Header().Set("ETag", etag(note.Checksum))
	writeJSON(w, http.StatusOK, note)
}

// CreateNote handles POST /notes.
//
//	@Summary		Create a new note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	note, err := h.svc.NewNote(r.Context(), req.Name, req.Content)
	if err != nil {
		writeError(w, "create note", req.Name, err)
		return
	}
	w.Header().Set("Location", "/notes/"+url.PathEscape(note.Name))
	w.Header().Set("ETag", etag(note.Checksum))
	writeJSON(w, http.StatusCreated, note)
}

// SaveNote handles PUT /notes/{name}.
//
//	@Summary		Create or overwrite a note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			name		path	string			true	"Note name"
//	@Param			If-Match	header	string			false	"Checksum of the content being replaced"
//	@Param			body		body	SaveNoteRequest	true	"New content"
//	@Success		200		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{name} [put]
func (h *Handler) SaveNote(w http.ResponseWriter, r *http.Request) {
	name := noteName(r)
	var req SaveNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Content == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}

	note, err := h.svc.SaveNote(r.Context(), name, *req.Content, r.Header.Get("If-Match"))
	if err != nil {
		writeError(w, "save note", name, err)
		return
	}
	w.Header().Set("ETag", etag(note.Checksum))
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /notes/{name}.
//
//	@Summary		Move a note to the recycle bin
//	@Tags			notes
//	@Param			name	path	string	true	"Note name"
//	@Success		204		"Note deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{name} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	name := noteName(r)
	ok, err := h.svc.DeleteNote(r.Context(), name)
	if err != nil {
		writeError(w, "delete note", name, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportNote handles POST /notes/{name}/export.
//
//	@Summary		Write a copy of a note outside the store
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			name	path		string			true	"Note name"
//	@Param			body	body		ExportRequest	true	"Destination path"
//	@Success		200		{object}	ExportResponse
//	@Failure		403		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{name}/export [post]
func (h *Handler) ExportNote(w http.ResponseWriter, r *http.Request) {
	if !h.allowExport {
		writeJSON(w, http.StatusForbidden, errorBody("export requires token authentication"))
		return
	}
	name := noteName(r)
	var req ExportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.ExportNote(r.Context(), name, req.Destination)
	if err != nil {
		writeError(w, "export note", name, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListRecycle handles GET /recycle.
//
//	@Summary		List recycle bin entries
//	@Tags			recycle
//	@Produce		json
//	@Success		200	{object}	RecycleListResponse
//	@Security		BearerAuth
//	@Router			/recycle [get]
func (h *Handler) ListRecycle(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.ListRecycle(r.Context())
	if err != nil {
		writeError(w, "list recycle", "", err)
		return
	}
	writeJSON(w, http.StatusOK, RecycleListResponse{
		Entries:       entries,
		RetentionDays: int(h.svc.Bin().Retention().Hours() / 24),
	})
}

// Sweep handles POST /recycle/sweep.
//
//	@Summary		Purge expired recycle bin entries now
//	@Tags			recycle
//	@Produce		json
//	@Success		200	{object}	SweepResponse
//	@Security		BearerAuth
//	@Router			/recycle/sweep [post]
func (h *Handler) Sweep(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.Sweep(r.Context())
	if err != nil {
		writeError(w, "sweep", "", err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// ReadLog handles GET /log.
//
//	@Summary		Read the operation log
//	@Tags			log
//	@Produce		json
//	@Param			limit	query		int	false	"Keep only the most recent entries"
//	@Success		200		{object}	LogResponse
//	@Security		BearerAuth
//	@Router			/log [get]
func (h *Handler) ReadLog(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.svc.ReadLog(r.Context(), limit)
	if err != nil {
		writeError(w, "read log", "", err)
		return
	}
	if entries == nil {
		entries = []models.LogEntry{}
	}
	writeJSON(w, http.StatusOK, LogResponse{Entries: entries})
}
