package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/carnet/internal/appstate"
	"github.com/starford/carnet/internal/editor"
	"github.com/starford/carnet/internal/noteservice"
)

const maxJSONBytes = 10 << 20

// Handler holds API route handlers. Reads go straight to the service;
// mutations go through the application state so its snapshot stays current.
type Handler struct {
	svc    *noteservice.Service
	state  *appstate.State
	logger *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service, state *appstate.State, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, state: state, logger: logger}
}

// State handles GET /api/state.
//
//	@Summary	Current application state snapshot
//	@Tags		state
//	@Produce	json
//	@Success	200	{object}	appstate.Snapshot
//	@Router		/state [get]
func (h *Handler) State(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.state.Snapshot())
}

// ListNotebooks handles GET /api/notebooks.
//
//	@Summary	List notebooks ordered by title
//	@Tags		notebooks
//	@Produce	json
//	@Success	200	{object}	NotebookListResponse
//	@Router		/notebooks [get]
func (h *Handler) ListNotebooks(w http.ResponseWriter, r *http.Request) {
	nbs, err := h.svc.ListNotebooks(r.Context())
	if err != nil {
		writeError(w, h.logger, "list notebooks", err)
		return
	}
	writeJSON(w, http.StatusOK, NotebookListResponse{Notebooks: nbs})
}

// CreateNotebook handles POST /api/notebooks.
//
//	@Summary	Create a notebook and select it
//	@Tags		notebooks
//	@Accept		json
//	@Produce	json
//	@Param		body	body		CreateNotebookRequest	true	"Notebook to create"
//	@Success	201		{object}	models.Notebook
//	@Failure	400		{object}	errResponse
//	@Router		/notebooks [post]
func (h *Handler) CreateNotebook(w http.ResponseWriter, r *http.Request) {
	var req CreateNotebookRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	nb, err := h.state.AddNotebook(r.Context(), req.Title)
	if err != nil {
		writeError(w, h.logger, "create notebook", err)
		return
	}
	writeJSON(w, http.StatusCreated, nb)
}

// DeleteNotebook handles DELETE /api/notebooks/{id}. Deleting an unknown
// notebook succeeds.
func (h *Handler) DeleteNotebook(w http.ResponseWriter, r *http.Request) {
	if err := h.state.DeleteNotebook(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, "delete notebook", err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteNotebookResponse{SelectedNotebook: h.state.Snapshot().SelectedNotebook})
}

// ListNotes handles GET /api/notebooks/{id}/notes.
//
//	@Summary	Active notes of a notebook, most recently updated first
//	@Tags		notes
//	@Produce	json
//	@Param		id	path		string	true	"Notebook id"
//	@Success	200	{object}	NoteListResponse
//	@Router		/notebooks/{id}/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.svc.ListActiveNotes(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes})
}

// CreateNote handles POST /api/notes.
//
//	@Summary	Create a note and open it
//	@Tags		notes
//	@Accept		json
//	@Produce	json
//	@Param		body	body		CreateNoteRequest	true	"Note to create"
//	@Success	201		{object}	models.Note
//	@Failure	400		{object}	errResponse
//	@Router		/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx := r.Context()
	if req.NotebookID != "" && req.NotebookID != h.state.Snapshot().SelectedNotebook {
		if err := h.state.SelectNotebook(ctx, req.NotebookID); err != nil {
			writeError(w, h.logger, "select notebook", err)
			return
		}
	}
	n, err := h.state.AddNote(ctx, req.Title)
	if err != nil {
		writeError(w, h.logger, "create note", err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

// UpdateContent handles PUT /api/notes/{id}/content. The write is immediate;
// debounced edits go through the session endpoints. When the note is open in
// the editor the write goes through its session, so a pending autosave
// cannot overwrite it later.
func (h *Handler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	var req ContentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	var err error
	if sess := h.openSession(id); sess != nil {
		err = sess.SaveContent(r.Context(), req.Content)
	} else {
		err = h.svc.UpdateNoteContent(r.Context(), id, req.Content)
	}
	if err != nil {
		writeError(w, h.logger, "update content", err)
		return
	}
	h.refresh(w, r)
}

// UpdateTitle handles PUT /api/notes/{id}/title, routed like UpdateContent.
func (h *Handler) UpdateTitle(w http.ResponseWriter, r *http.Request) {
	var req TitleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	var err error
	if sess := h.openSession(id); sess != nil {
		err = sess.SaveTitle(r.Context(), req.Title)
	} else {
		err = h.svc.UpdateNoteTitle(r.Context(), id, req.Title)
	}
	if err != nil {
		writeError(w, h.logger, "update title", err)
		return
	}
	h.refresh(w, r)
}

// openSession returns the editor session when it is editing noteID.
func (h *Handler) openSession(noteID string) *editor.Session {
	if sess := h.state.Session(); sess != nil && sess.NoteID() == noteID {
		return sess
	}
	return nil
}

// MoveNote handles PUT /api/notes/{id}/notebook (drag and drop onto a
// notebook).
func (h *Handler) MoveNote(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.state.MoveNote(r.Context(), chi.URLParam(r, "id"), req.NotebookID); err != nil {
		writeError(w, h.logger, "move note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteNote handles DELETE /api/notes/{id} (move to trash).
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := h.state.DeleteNote(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, "delete note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTrash handles GET /api/trash.
func (h *Handler) ListTrash(w http.ResponseWriter, r *http.Request) {
	notes, err := h.svc.ListDeletedNotes(r.Context())
	if err != nil {
		writeError(w, h.logger, "list trash", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes})
}

// RestoreNote handles POST /api/trash/{id}/restore.
func (h *Handler) RestoreNote(w http.ResponseWriter, r *http.Request) {
	if err := h.state.Restore(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, "restore note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PurgeNote handles DELETE /api/trash/{id} (permanent delete).
func (h *Handler) PurgeNote(w http.ResponseWriter, r *http.Request) {
	if err := h.state.Purge(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, "purge note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EmptyTrash handles DELETE /api/trash.
func (h *Handler) EmptyTrash(w http.ResponseWriter, r *http.Request) {
	n, err := h.state.EmptyTrash(r.Context())
	if err != nil {
		writeError(w, h.logger, "empty trash", err)
		return
	}
	writeJSON(w, http.StatusOK, EmptyTrashResponse{Purged: n})
}

// refresh reloads the state after a direct write and answers 204.
func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.state.Load(r.Context()); err != nil {
		writeError(w, h.logger, "reload state", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
