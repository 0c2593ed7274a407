// Package models defines the domain types for Carnet.
package models

import "time"

// Notebook is a named container for notes.
type Notebook struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Note is a markdown document belonging to exactly one notebook.
// Deleted is the only soft-delete marker; there is no deleted-at timestamp.
type Note struct {
	ID         string    `json:"id"`
	NotebookID string    `json:"notebook_id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Deleted    bool      `json:"deleted"`
}

// Image is a binary payload owned by a note. It is referenced from the
// note content as image://<id>, never through a column on the note.
type Image struct {
	ID        string    `json:"id"`
	NoteID    string    `json:"note_id"`
	Data      []byte    `json:"-"`
	Filename  string    `json:"filename"`
	MimeType  string    `json:"mime_type"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// DateField selects which note timestamp a date sort uses.
type DateField string

const (
	CreatedAt DateField = "created_at"
	UpdatedAt DateField = "updated_at"
)

// Time returns the timestamp of n selected by f. Unknown fields fall back
// to UpdatedAt.
func (f DateField) Time(n Note) time.Time {
	if f == CreatedAt {
		return n.CreatedAt
	}
	return n.UpdatedAt
}
