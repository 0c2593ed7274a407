package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/carnet/internal/apperr"
	"github.com/starford/carnet/internal/checksum"
	"github.com/starford/carnet/internal/imageref"
)

// multipartSlack covers the multipart envelope around the image bytes, so an
// oversized image still reaches validation and gets a precise message.
const multipartSlack = 64 << 10

type upload struct {
	data     []byte
	filename string
	mimeType string
}

// readUpload reads the "file" field of a multipart form. The MIME type is
// the part's declared type, or sniffed when the client sent none.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (*upload, error) {
	limit := h.svc.MaxImageBytes() + multipartSlack
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		return nil, apperr.Validation(fmt.Errorf("image too large or invalid multipart: %w", err))
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, apperr.Validation(fmt.Errorf("missing 'file' field in multipart form"))
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, apperr.Validation(fmt.Errorf("read upload: %w", err))
	}
	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	return &upload{data: data, filename: header.Filename, mimeType: mimeType}, nil
}

// UploadImage handles POST /api/notes/{id}/images (multipart/form-data,
// field "file"). The note content is not modified.
//
//	@Summary	Attach an image to a note
//	@Tags		images
//	@Accept		multipart/form-data
//	@Produce	json
//	@Param		id		path		string	true	"Note id"
//	@Param		file	formData	file	true	"Image file"
//	@Success	201		{object}	ImageUploadResponse
//	@Failure	400		{object}	errResponse
//	@Router		/notes/{id}/images [post]
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	up, err := h.readUpload(w, r)
	if err != nil {
		writeError(w, h.logger, "upload image", err)
		return
	}
	id, err := h.svc.SaveImage(r.Context(), chi.URLParam(r, "id"), up.data, up.filename, up.mimeType)
	if err != nil {
		writeError(w, h.logger, "upload image", err)
		return
	}
	writeJSON(w, http.StatusCreated, ImageUploadResponse{ID: id, Reference: imageref.Reference(up.filename, id)})
}

// GetImage handles GET /api/images/{id}. The ETag is the SHA-256 of the
// payload; images never change once stored.
func (h *Handler) GetImage(w http.ResponseWriter, r *http.Request) {
	img, err := h.svc.GetImage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, "get image", err)
		return
	}
	etag := checksum.ETag(img.Data)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "private, max-age=31536000, immutable")
	if checksum.Matches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", img.MimeType)
	w.Header().Set("Content-Length", strconv.FormatInt(img.Size, 10))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Data)
}
