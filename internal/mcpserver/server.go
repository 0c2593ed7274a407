// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes carnet notes to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/carnet/internal/apperr"
	"github.com/starford/carnet/internal/noteservice"
)

const contractURI = "carnet://note-format"

// Server wraps the MCP server with carnet tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates a new MCP server with all carnet tools registered.
func New(svc *noteservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Carnet",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notebooks",
		mcp.WithDescription("List every notebook (id and title), ordered by title."),
	), s.listNotebooks)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List the active notes of a notebook, most recently updated first."),
		mcp.WithString("notebook_id", mcp.Required(), mcp.Description("Notebook id from list_notebooks")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note: title, Markdown content, timestamps and trash state."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a note in a notebook. Content follows the carnet note format; "+
			"read it first via get_note_contract or the "+contractURI+" resource."),
		mcp.WithString("notebook_id", mcp.Required(), mcp.Description("Notebook id from list_notebooks")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title")),
		mcp.WithString("content", mcp.Description("Optional Markdown body")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("update_note_content",
		mcp.WithDescription("Replace the Markdown content of a note."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
		mcp.WithString("content", mcp.Required(), mcp.Description("New Markdown body")),
	), s.updateNoteContent)

	s.mcp.AddTool(mcp.NewTool("trash_note",
		mcp.WithDescription("Move a note to the trash. It can be restored with restore_note."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.trashNote)

	s.mcp.AddTool(mcp.NewTool("list_trash",
		mcp.WithDescription("List the notes in the trash."),
	), s.listTrash)

	s.mcp.AddTool(mcp.NewTool("restore_note",
		mcp.WithDescription("Take a note out of the trash."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.restoreNote)

	s.mcp.AddTool(mcp.NewTool("attach_image",
		mcp.WithDescription("Store an image for a note from a base64 data URI or an http(s) URL. "+
			"Returns the image id and a Markdown reference."),
		mcp.WithString("note_id", mcp.Required(), mcp.Description("Note id")),
		mcp.WithString("url", mcp.Required(), mcp.Description("data:image/...;base64,... or http(s) URL")),
		mcp.WithString("filename", mcp.Description("Optional file name used as alt text")),
		mcp.WithBoolean("append", mcp.Description("Append the reference to the note content")),
	), s.attachImage)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the carnet note format. "+
			"Call this before creating or updating notes."),
	), s.getNoteContract)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Note Format",
			mcp.WithResourceDescription("How carnet note content and image references are written."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func errorResult(err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError("not found")
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) listNotebooks(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nbs, err := s.svc.ListNotebooks(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(nbs)
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nbID, err := req.RequireString("notebook_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	notes, err := s.svc.ListActiveNotes(ctx, nbID)
	if err != nil {
		return errorResult(err), nil
	}
	type item struct {
		ID        string `json:"id"`
		Title     string `json:"title"`
		UpdatedAt string `json:"updated_at"`
	}
	items := make([]item, 0, len(notes))
	for _, n := range notes {
		items = append(items, item{ID: n.ID, Title: n.Title, UpdatedAt: n.UpdatedAt.Format(time.RFC3339)})
	}
	return jsonResult(items)
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.svc.GetNote(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return jsonResult(n)
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nbID, err := req.RequireString("notebook_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.svc.CreateNote(ctx, title, nbID)
	if err != nil {
		return errorResult(err), nil
	}
	if content := req.GetString("content", ""); content != "" {
		if err := s.svc.UpdateNoteContent(ctx, n.ID, content); err != nil {
			return errorResult(err), nil
		}
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", n.ID)), nil
}

func (s *Server) updateNoteContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.svc.GetNote(ctx, id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	if err := s.svc.UpdateNoteContent(ctx, id, content); err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s", id)), nil
}

func (s *Server) trashNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.SoftDeleteNote(ctx, id); err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("trashed: %s", id)), nil
}

func (s *Server) listTrash(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notes, err := s.svc.ListDeletedNotes(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	if len(notes) == 0 {
		return mcp.NewToolResultText("trash is empty"), nil
	}
	return jsonResult(notes)
}

func (s *Server) restoreNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.RestoreNote(ctx, id); err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("restored: %s", id)), nil
}

func (s *Server) getNoteContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}
