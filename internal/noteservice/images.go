package noteservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/carnet/internal/apperr"
	"github.com/starford/carnet/internal/ident"
	"github.com/starford/carnet/internal/models"
)

var imageMimeRe = regexp.MustCompile(`^image/[A-Za-z0-9.+-]+$`)

// ImageUpload is an image payload waiting to be attached to a note.
type ImageUpload struct {
	NoteID   string
	Data     []byte
	Filename string
	MimeType string
}

// Validate checks the upload against the size limit and the image MIME
// category without touching storage.
func (u ImageUpload) Validate(maxBytes int64) error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.NoteID, validation.Required),
		validation.Field(&u.Data,
			validation.Required,
			validation.By(func(any) error {
				if int64(len(u.Data)) > maxBytes {
					return fmt.Errorf("image is too large (%d bytes, max %d)", len(u.Data), maxBytes)
				}
				return nil
			}),
		),
		validation.Field(&u.Filename, validation.Required),
		validation.Field(&u.MimeType,
			validation.Required,
			validation.Match(imageMimeRe).Error("must be an image type"),
		),
	)
}

// SaveImage validates the upload and stores it under a fresh id, which it
// returns. Oversized or non-image payloads never reach the store.
func (s *Service) SaveImage(ctx context.Context, noteID string, data []byte, filename, mimeType string) (string, error) {
	up := ImageUpload{NoteID: noteID, Data: data, Filename: filename, MimeType: mimeType}
	if err := up.Validate(s.maxImageBytes); err != nil {
		return "", apperr.Validation(err)
	}
	if _, err := s.store.GetNote(ctx, noteID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return "", apperr.Validation(validation.Errors{"note_id": errors.New("unknown note")})
		}
		return "", s.fail("save image", err)
	}
	img, err := s.store.SaveImage(ctx, models.Image{
		ID:       s.ids.New(ident.Image),
		NoteID:   noteID,
		Data:     data,
		Filename: filename,
		MimeType: mimeType,
	})
	if err != nil {
		return "", s.fail("save image", err)
	}
	s.logger.Info("service: image saved",
		slog.String("id", img.ID),
		slog.String("note_id", noteID),
		slog.Int64("size", img.Size))
	return img.ID, nil
}

// GetImage returns the stored image or apperr.ErrNotFound when the id is
// unknown.
func (s *Service) GetImage(ctx context.Context, id string) (*models.Image, error) {
	img, err := s.store.GetImage(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	return img, s.fail("get image", err)
}

// ListImages returns every image owned by the note.
func (s *Service) ListImages(ctx context.Context, noteID string) ([]models.Image, error) {
	imgs, err := s.store.ListImages(ctx, noteID)
	return imgs, s.fail("list images", err)
}
