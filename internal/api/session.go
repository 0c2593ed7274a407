package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/starford/carnet/internal/apperr"
	"github.com/starford/carnet/internal/editor"
	"github.com/starford/carnet/internal/imageref"
)

// session returns the open editor session or writes a 404.
func (h *Handler) session(w http.ResponseWriter) *editor.Session {
	sess := h.state.Session()
	if sess == nil {
		writeJSON(w, http.StatusNotFound, errorBody("no note is open"))
	}
	return sess
}

func sessionBody(sess *editor.Session) SessionResponse {
	return SessionResponse{
		NoteID:  sess.NoteID(),
		Title:   sess.Title(),
		Content: sess.Content(),
		Pending: sess.Pending(),
	}
}

// OpenSession handles POST /api/session. It selects a note and opens its
// editor; the previous note's pending autosaves still fire.
//
//	@Summary	Open a note for editing
//	@Tags		session
//	@Accept		json
//	@Produce	json
//	@Param		body	body		OpenSessionRequest	true	"Note to open"
//	@Success	200		{object}	SessionResponse
//	@Failure	404		{object}	errResponse
//	@Router		/session [post]
func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req OpenSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.NoteID == "" {
		writeError(w, h.logger, "open session", apperr.Validation(fmt.Errorf("note_id is required")))
		return
	}
	if err := h.state.SelectNote(r.Context(), req.NoteID); err != nil {
		writeError(w, h.logger, "open session", err)
		return
	}
	if sess := h.session(w); sess != nil {
		writeJSON(w, http.StatusOK, sessionBody(sess))
	}
}

// GetSession handles GET /api/session.
func (h *Handler) GetSession(w http.ResponseWriter, _ *http.Request) {
	if sess := h.session(w); sess != nil {
		writeJSON(w, http.StatusOK, sessionBody(sess))
	}
}

// SessionContent handles PUT /api/session/content. The save is debounced.
func (h *Handler) SessionContent(w http.ResponseWriter, r *http.Request) {
	var req ContentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess := h.session(w)
	if sess == nil {
		return
	}
	sess.SetContent(req.Content)
	w.WriteHeader(http.StatusAccepted)
}

// SessionTitle handles PUT /api/session/title. The save is debounced
// independently of content.
func (h *Handler) SessionTitle(w http.ResponseWriter, r *http.Request) {
	var req TitleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess := h.session(w)
	if sess == nil {
		return
	}
	sess.SetTitle(req.Title)
	w.WriteHeader(http.StatusAccepted)
}

// SessionPreview handles GET /api/session/preview. Unresolved images render
// as placeholders; refreshed previews follow on the event stream.
func (h *Handler) SessionPreview(w http.ResponseWriter, _ *http.Request) {
	sess := h.session(w)
	if sess == nil {
		return
	}
	writeJSON(w, http.StatusOK, PreviewResponse{NoteID: sess.NoteID(), HTML: sess.Preview()})
}

// SessionImage handles POST /api/session/images (multipart/form-data, field
// "file", optional form field "at" with the cursor byte offset). The image
// reference is inserted and the content saved immediately.
func (h *Handler) SessionImage(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w)
	if sess == nil {
		return
	}
	up, err := h.readUpload(w, r)
	if err != nil {
		writeError(w, h.logger, "insert image", err)
		return
	}
	at := -1
	if v := r.FormValue("at"); v != "" {
		if at, err = strconv.Atoi(v); err != nil {
			writeError(w, h.logger, "insert image", apperr.Validation(fmt.Errorf("at must be an integer")))
			return
		}
	}
	id, err := sess.InsertImage(r.Context(), up.data, up.filename, up.mimeType, at)
	if err != nil {
		writeError(w, h.logger, "insert image", err)
		return
	}
	writeJSON(w, http.StatusCreated, ImageUploadResponse{
		ID:        id,
		Reference: imageref.Reference(up.filename, id),
		Content:   sess.Content(),
	})
}
