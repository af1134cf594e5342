package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/miding/internal/noteservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

func noteID(r *http.Request) string {
	return chi.URLParam(r, "id")
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List every note in collection order
//	@Tags			notes
//	@Produce		json
//	@Success		200		{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: h.svc.ListNotes(r.Context())})
}

// GetNote handles GET /api/notes/{id}.
//
//	@Summary		Get a note and its parsed annotations
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note ID"
//	@Success		200	{object}	NoteDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id := noteID(r)
	note, err := h.svc.GetNote(r.Context(), id)
	if err != nil {
		writeServiceError(w, "get note", err, slog.String("note_id", id))
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create and focus an empty note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	false	"Set journal to create today's journal entry"
//	@Success		201		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	note, err := h.svc.CreateNote(r.Context(), req.Journal)
	if err != nil {
		writeServiceError(w, "create note", err, slog.Bool("journal", req.Journal))
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// DeleteNote handles DELETE /api/notes/{id}.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Param			id	path	string	true	"Note ID"
//	@Success		204	"Note deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id := noteID(r)
	if err := h.svc.DeleteNote(r.Context(), id); err != nil {
		writeServiceError(w, "delete note", err, slog.String("note_id", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// FocusNote handles POST /api/notes/{id}/focus.
//
//	@Summary		Make a note the focused note
//	@Tags			notes
//	@Param			id	path	string	true	"Note ID"
//	@Success		204	"Note focused"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/focus [post]
func (h *Handler) FocusNote(w http.ResponseWriter, r *http.Request) {
	id := noteID(r)
	if err := h.svc.Focus(r.Context(), id); err != nil {
		writeServiceError(w, "focus note", err, slog.String("note_id", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateContent handles PUT /api/notes/{id}/content.
// The edit is debounced, so the response only acknowledges it.
//
//	@Summary		Replace a note's content
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Note ID"
//	@Param			body	body		UpdateContentRequest	true	"New content"
//	@Success		202		{object}	AcceptedResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/content [put]
func (h *Handler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	id := noteID(r)
	var req UpdateContentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.svc.UpdateContent(r.Context(), id, *req.Content); err != nil {
		writeServiceError(w, "update content", err, slog.String("note_id", id))
		return
	}
	writeJSON(w, http.StatusAccepted, AcceptedResponse{Status: "pending"})
}

// UpdateTitle handles PUT /api/notes/{id}/title.
//
//	@Summary		Rename a note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Note ID"
//	@Param			body	body		UpdateTitleRequest	true	"New title"
//	@Success		200		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/title [put]
func (h *Handler) UpdateTitle(w http.ResponseWriter, r *http.Request) {
	id := noteID(r)
	var req UpdateTitleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.svc.UpdateTitle(r.Context(), id, req.Title); err != nil {
		writeServiceError(w, "update title", err, slog.String("note_id", id))
		return
	}
	h.writeNote(w, r, id)
}

// AddTag handles POST /api/notes/{id}/tags.
//
//	@Summary		Attach a tag to a note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Note ID"
//	@Param			body	body		TagRequest	true	"Tag, with or without a leading #"
//	@Success		200		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/tags [post]
func (h *Handler) AddTag(w http.ResponseWriter, r *http.Request) {
	id := noteID(r)
	var req TagRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.svc.AddTag(r.Context(), id, req.Tag); err != nil {
		writeServiceError(w, "add tag", err, slog.String("note_id", id))
		return
	}
	h.writeNote(w, r, id)
}

// RemoveTag handles DELETE /api/notes/{id}/tags/{tag}.
//
//	@Summary		Detach a tag from a note
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note ID"
//	@Param			tag	path		string	true	"Tag"
//	@Success		200	{object}	NoteDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/tags/{tag} [delete]
func (h *Handler) RemoveTag(w http.ResponseWriter, r *http.Request) {
	id := noteID(r)
	if err := h.svc.RemoveTag(r.Context(), id, chi.URLParam(r, "tag")); err != nil {
		writeServiceError(w, "remove tag", err, slog.String("note_id", id))
		return
	}
	h.writeNote(w, r, id)
}

// SaveSnapshot handles POST /api/notes/{id}/snapshots.
//
//	@Summary		Append a history snapshot to a note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Note ID"
//	@Param			body	body		SnapshotRequest	false	"Snapshot summary"
//	@Success		201		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/snapshots [post]
func (h *Handler) SaveSnapshot(w http.ResponseWriter, r *http.Request) {
	id := noteID(r)
	var req SnapshotRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.svc.SaveSnapshot(r.Context(), id, req.Summary); err != nil {
		writeServiceError(w, "save snapshot", err, slog.String("note_id", id))
		return
	}
	note, err := h.svc.GetNote(r.Context(), id)
	if err != nil {
		writeServiceError(w, "get note", err, slog.String("note_id", id))
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// Commit handles POST /api/notes/{id}/commit.
//
//	@Summary		Snapshot a note and commit the notes directory
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note ID"
//	@Success		200	{object}	NoteDetail
//	@Failure		404	{object}	errResponse
//	@Failure		500	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/commit [post]
func (h *Handler) Commit(w http.ResponseWriter, r *http.Request) {
	id := noteID(r)
	if err := h.svc.CommitAndSave(r.Context(), id); err != nil {
		writeServiceError(w, "commit", err, slog.String("note_id", id))
		return
	}
	h.writeNote(w, r, id)
}

// InsertTemplate handles POST /api/notes/{id}/templates/{kind}.
//
//	@Summary		Append a task or ticket template to a note
//	@Tags			notes
//	@Produce		json
//	@Param			id		path		string	true	"Note ID"
//	@Param			kind	path		string	true	"Template kind"	Enums(task, ticket)
//	@Success		200		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/templates/{kind} [post]
func (h *Handler) InsertTemplate(w http.ResponseWriter, r *http.Request) {
	id := noteID(r)
	kind := chi.URLParam(r, "kind")
	if err := h.svc.InsertTemplate(r.Context(), id, kind); err != nil {
		writeServiceError(w, "insert template", err, slog.String("note_id", id), slog.String("kind", kind))
		return
	}
	h.writeNote(w, r, id)
}

func (h *Handler) writeNote(w http.ResponseWriter, r *http.Request, id string) {
	note, err := h.svc.GetNote(r.Context(), id)
	if err != nil {
		writeServiceError(w, "get note", err, slog.String("note_id", id))
		return
	}
	writeJSON(w, http.StatusOK, note)
}
