package api

import "github.com/starford/carnet/internal/models"

// CreateNotebookRequest is the request body for creating a notebook.
type CreateNotebookRequest struct {
	Title string `json:"title" example:"Work"`
}

// CreateNoteRequest is the request body for creating a note. An empty
// NotebookID creates the note in the selected notebook.
type CreateNoteRequest struct {
	Title      string `json:"title" example:"Draft"`
	NotebookID string `json:"notebook_id,omitempty" example:"nb_1717171717171_k2j3h4g5f6d"`
}

// ContentRequest carries a new note content.
type ContentRequest struct {
	Content string `json:"content" example:"# Hello\nsee ![x](image://img_1_a)"`
}

// TitleRequest carries a new note title.
type TitleRequest struct {
	Title string `json:"title" example:"Renamed"`
}

// MoveRequest carries the destination notebook of a note.
type MoveRequest struct {
	NotebookID string `json:"notebook_id" example:"nb_1717171717171_k2j3h4g5f6d"`
}

// OpenSessionRequest selects the note to edit.
type OpenSessionRequest struct {
	NoteID string `json:"note_id"`
}

// NotebookListResponse wraps the notebook list.
type NotebookListResponse struct {
	Notebooks []models.Notebook `json:"notebooks"`
}

// NoteListResponse wraps a note list.
type NoteListResponse struct {
	Notes []models.Note `json:"notes"`
}

// DeleteNotebookResponse reports the notebook selected after a delete.
type DeleteNotebookResponse struct {
	SelectedNotebook string `json:"selected_notebook"`
}

// EmptyTrashResponse reports how many notes were purged.
type EmptyTrashResponse struct {
	Purged int64 `json:"purged"`
}

// ImageUploadResponse is returned after a successful image upload.
type ImageUploadResponse struct {
	ID        string `json:"id" example:"img_1717171717171_k2j3h4g5f6d"`
	Reference string `json:"reference" example:"![cat.png](image://img_1717171717171_k2j3h4g5f6d)"`
	Content   string `json:"content,omitempty"`
}

// SessionResponse describes the open editor session.
type SessionResponse struct {
	NoteID  string `json:"note_id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Pending bool   `json:"pending"`
}

// PreviewResponse carries the rendered preview of the open note.
type PreviewResponse struct {
	NoteID string `json:"note_id"`
	HTML   string `json:"html"`
}
