// Package resolver turns image://<id> references in rendered note HTML into
// displayable, process-local resource handles. Fetches run in the background
// and every resolved id produces one update notification so the caller can
// re-render.
package resolver

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/starford/carnet/internal/models"
)

// Source loads a stored image. It returns apperr.ErrNotFound for unknown ids.
type Source interface {
	GetImage(ctx context.Context, id string) (*models.Image, error)
}

// Fetcher loads image payloads, sharing a single in-flight request per id
// across every session that asks for it concurrently.
type Fetcher struct {
	src   Source
	group singleflight.Group
}

// NewFetcher creates a fetcher reading from src.
func NewFetcher(src Source) *Fetcher {
	return &Fetcher{src: src}
}

// Fetch returns the image with the given id. Cancelling ctx abandons the wait
// but not the shared fetch, which other callers may still be waiting on.
func (f *Fetcher) Fetch(ctx context.Context, id string) (*models.Image, error) {
	ch := f.group.DoChan(id, func() (any, error) {
		return f.src.GetImage(context.WithoutCancel(ctx), id)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.Image), nil
	}
}
