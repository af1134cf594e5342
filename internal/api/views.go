package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/starford/miding/internal/index"
)

// ListTasks handles GET /api/tasks.
//
//	@Summary		List the tasks of every note
//	@Tags			tasks
//	@Produce		json
//	@Success		200	{object}	TaskListResponse
//	@Security		BearerAuth
//	@Router			/tasks [get]
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, TaskListResponse{Tasks: h.svc.Tasks(r.Context())})
}

// ToggleTask handles POST /api/tasks/toggle.
//
//	@Summary		Flip a task checkbox
//	@Tags			tasks
//	@Accept			json
//	@Param			body	body	ToggleTaskRequest	true	"Task to toggle"
//	@Success		204		"Task toggled"
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tasks/toggle [post]
func (h *Handler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	var req ToggleTaskRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.svc.ToggleTask(r.Context(), req.NoteID, req.TaskID); err != nil {
		writeServiceError(w, "toggle task", err, slog.String("note_id", req.NoteID), slog.String("task_id", req.TaskID))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTickets handles GET /api/tickets.
//
//	@Summary		List the tickets of every note
//	@Tags			tickets
//	@Produce		json
//	@Success		200	{object}	TicketListResponse
//	@Security		BearerAuth
//	@Router			/tickets [get]
func (h *Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, TicketListResponse{Tickets: h.svc.Tickets(r.Context())})
}

// SetTicketStatus handles PUT /api/tickets/status.
//
//	@Summary		Change a ticket's status
//	@Tags			tickets
//	@Accept			json
//	@Param			body	body	TicketStatusRequest	true	"Ticket and new status"
//	@Success		204		"Status changed"
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tickets/status [put]
func (h *Handler) SetTicketStatus(w http.ResponseWriter, r *http.Request) {
	var req TicketStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.svc.SetTicketStatus(r.Context(), req.NoteID, *req.BlockStart, req.Status); err != nil {
		writeServiceError(w, "set ticket status", err, slog.String("note_id", req.NoteID), slog.Int("block_start", *req.BlockStart))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TicketsByKey handles GET /api/tickets/by-key/{key}.
//
//	@Summary		Find every note carrying a ticket identifier
//	@Tags			tickets
//	@Produce		json
//	@Param			key	path		string	true	"Ticket identifier"
//	@Success		200	{object}	TicketsByKeyResponse
//	@Security		BearerAuth
//	@Router			/tickets/by-key/{key} [get]
func (h *Handler) TicketsByKey(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	rows, err := h.svc.TicketsByKey(r.Context(), key)
	if err != nil {
		writeServiceError(w, "tickets by key", err, slog.String("key", key))
		return
	}
	if rows == nil {
		rows = []index.TicketRow{}
	}
	writeJSON(w, http.StatusOK, TicketsByKeyResponse{Key: key, Tickets: rows})
}

// History handles GET /api/history.
//
//	@Summary		List history entries of every note, newest first
//	@Tags			history
//	@Produce		json
//	@Success		200	{object}	HistoryResponse
//	@Security		BearerAuth
//	@Router			/history [get]
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HistoryResponse{History: h.svc.History(r.Context())})
}

// Journal handles GET /api/journal.
//
//	@Summary		List journal notes, newest date first
//	@Tags			notes
//	@Produce		json
//	@Success		200	{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/journal [get]
func (h *Handler) Journal(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: h.svc.Journal(r.Context())})
}

// Stats handles GET /api/stats.
//
//	@Summary		Productivity statistics
//	@Tags			stats
//	@Produce		json
//	@Success		200	{object}	Summary
//	@Security		BearerAuth
//	@Router			/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Stats(r.Context()))
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across notes
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeServiceError(w, "search", err, slog.String("query", q))
		return
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// GitLog handles GET /api/vcs/log.
//
//	@Summary		Recent commits of the notes directory
//	@Tags			vcs
//	@Produce		json
//	@Success		200	{object}	GitLogResponse
//	@Security		BearerAuth
//	@Router			/vcs/log [get]
func (h *Handler) GitLog(w http.ResponseWriter, r *http.Request) {
	commits, err := h.svc.GitLog(r.Context())
	if err != nil {
		writeServiceError(w, "git log", err)
		return
	}
	writeJSON(w, http.StatusOK, GitLogResponse{Commits: commits})
}

// LastError handles GET /api/error.
//
//	@Summary		The last user-visible failure
//	@Tags			errors
//	@Produce		json
//	@Success		200	{object}	LastErrorResponse
//	@Security		BearerAuth
//	@Router			/error [get]
func (h *Handler) LastError(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LastErrorResponse{Message: h.svc.LastError(r.Context())})
}

// ClearError handles DELETE /api/error.
//
//	@Summary		Dismiss the last failure
//	@Tags			errors
//	@Success		204	"Cleared"
//	@Security		BearerAuth
//	@Router			/error [delete]
func (h *Handler) ClearError(w http.ResponseWriter, r *http.Request) {
	h.svc.ClearError(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
