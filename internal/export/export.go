// Package export writes the note store to a directory tree of Markdown files.
package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/carnet/internal/models"
)

// Source is the read side of the note service used by an export.
type Source interface {
	ListNotebooks(ctx context.Context) ([]models.Notebook, error)
	ListActiveNotes(ctx context.Context, notebookID string) ([]models.Note, error)
	ListDeletedNotes(ctx context.Context) ([]models.Note, error)
	ListImages(ctx context.Context, noteID string) ([]models.Image, error)
}

// Summary counts what an export wrote.
type Summary struct {
	Notebooks int
	Notes     int
	Images    int
}

type frontMatter struct {
	ID        string    `yaml:"id"`
	Notebook  string    `yaml:"notebook"`
	Title     string    `yaml:"title"`
	CreatedAt time.Time `yaml:"created_at"`
	UpdatedAt time.Time `yaml:"updated_at"`
	Deleted   bool      `yaml:"deleted,omitempty"`
}

type notebookFile struct {
	ID    string `yaml:"id"`
	Title string `yaml:"title"`
}

// Exporter writes notebooks below a root directory.
type Exporter struct {
	src    Source
	root   string
	logger *slog.Logger
}

// New creates an Exporter rooted at dir, creating it if needed.
func New(src Source, dir string, logger *slog.Logger) (*Exporter, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("export: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("export: mkdir root: %w", err)
	}
	return &Exporter{src: src, root: abs, logger: logger}, nil
}

// Run exports every notebook with its active and trashed notes.
// Layout: <root>/<notebook-id>/notebook.yaml, <note-id>.md and images/<image-id>.
func (e *Exporter) Run(ctx context.Context) (Summary, error) {
	var sum Summary

	nbs, err := e.src.ListNotebooks(ctx)
	if err != nil {
		return sum, fmt.Errorf("export: list notebooks: %w", err)
	}
	trash, err := e.src.ListDeletedNotes(ctx)
	if err != nil {
		return sum, fmt.Errorf("export: list trash: %w", err)
	}
	trashByNotebook := make(map[string][]models.Note)
	for _, n := range trash {
		trashByNotebook[n.NotebookID] = append(trashByNotebook[n.NotebookID], n)
	}

	for _, nb := range nbs {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		meta, err := yaml.Marshal(notebookFile{ID: nb.ID, Title: nb.Title})
		if err != nil {
			return sum, fmt.Errorf("export: encode notebook %s: %w", nb.ID, err)
		}
		if err := e.write(filepath.Join(nb.ID, "notebook.yaml"), meta); err != nil {
			return sum, err
		}
		sum.Notebooks++

		notes, err := e.src.ListActiveNotes(ctx, nb.ID)
		if err != nil {
			return sum, fmt.Errorf("export: list notes of %s: %w", nb.ID, err)
		}
		notes = append(notes, trashByNotebook[nb.ID]...)
		for _, n := range notes {
			imgs, err := e.exportNote(ctx, n)
			if err != nil {
				return sum, err
			}
			sum.Notes++
			sum.Images += imgs
		}
	}

	e.logger.Info("export finished",
		"dir", e.root,
		"notebooks", sum.Notebooks,
		"notes", sum.Notes,
		"images", sum.Images,
	)
	return sum, nil
}

func (e *Exporter) exportNote(ctx context.Context, n models.Note) (int, error) {
	doc, err := Document(n)
	if err != nil {
		return 0, err
	}
	if err := e.write(filepath.Join(n.NotebookID, n.ID+".md"), doc); err != nil {
		return 0, err
	}

	imgs, err := e.src.ListImages(ctx, n.ID)
	if err != nil {
		return 0, fmt.Errorf("export: list images of %s: %w", n.ID, err)
	}
	for _, img := range imgs {
		if err := e.write(filepath.Join(n.NotebookID, "images", img.ID), img.Data); err != nil {
			return 0, err
		}
	}
	return len(imgs), nil
}

// Document renders a note as YAML front matter followed by its content.
func Document(n models.Note) ([]byte, error) {
	fm, err := yaml.Marshal(frontMatter{
		ID:        n.ID,
		Notebook:  n.NotebookID,
		Title:     n.Title,
		CreatedAt: n.CreatedAt.UTC(),
		UpdatedAt: n.UpdatedAt.UTC(),
		Deleted:   n.Deleted,
	})
	if err != nil {
		return nil, fmt.Errorf("export: encode front matter %s: %w", n.ID, err)
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(fm)
	buf.WriteString("---\n")
	buf.WriteString(n.Content)
	return buf.Bytes(), nil
}

// write atomically writes content: tmp file → fsync → rename.
func (e *Exporter) write(rel string, content []byte) error {
	abs := filepath.Join(e.root, filepath.Clean(rel))
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("export: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".carnet-tmp-*")
	if err != nil {
		return fmt.Errorf("export: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("export: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("export: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("export: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("export: rename: %w", err)
	}
	success = true
	return nil
}
