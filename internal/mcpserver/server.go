// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes QuickNote tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/quicknote/internal/apperr"
	"github.com/starford/quicknote/internal/noteservice"
)

// NoteFormatURI is the resource URI of the note format contract.
const NoteFormatURI = "quicknote://note-format"

// Server wraps the MCP server with QuickNote tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates a new MCP server with all QuickNote tools registered.
func New(svc *noteservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"QuickNote",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List every note with its name, title and a short preview."),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full content of a note."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Note file name (e.g. groceries.md)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("save_note",
		mcp.WithDescription("Create or overwrite a note. Read the contract first via "+
			"the get_note_contract tool or the "+NoteFormatURI+" resource."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Note file name ending in .md or .txt")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Full note content; may be empty")),
	), s.saveNote)

	s.mcp.AddTool(mcp.NewTool("new_note",
		mcp.WithDescription("Create a note that must not exist yet. Without a name one is generated from the current time."),
		mcp.WithString("name", mcp.Description("Optional note file name")),
		mcp.WithString("content", mcp.Description("Optional initial content")),
	), s.newNote)

	s.mcp.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Move a note to the recycle bin. It is purged automatically after the retention window."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Note file name")),
	), s.deleteNote)

	s.mcp.AddTool(mcp.NewTool("export_note",
		mcp.WithDescription("Write a copy of a note to an absolute path outside the note store."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Note file name")),
		mcp.WithString("destination", mcp.Required(), mcp.Description("Destination file path")),
	), s.exportNote)

	s.mcp.AddTool(mcp.NewTool("list_recycle_bin",
		mcp.WithDescription("List deleted notes still held in the recycle bin."),
	), s.listRecycle)

	s.mcp.AddTool(mcp.NewTool("sweep_recycle_bin",
		mcp.WithDescription("Permanently remove recycle bin entries older than the retention window."),
	), s.sweepRecycle)

	s.mcp.AddTool(mcp.NewTool("read_operation_log",
		mcp.WithDescription("Read the most recent entries of the operation audit log."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of entries (default 50)")),
	), s.readLog)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the QuickNote note format contract. "+
			"Call this before creating or updating notes."),
	), s.getNoteContract)

	s.mcp.AddResource(
		mcp.NewResource(NoteFormatURI, "Note Format Contract",
			mcp.WithResourceDescription("Naming and content rules for QuickNote notes."),
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

type listItem struct {
	Name    string `json:"name"`
	Title   string `json:"title"`
	Preview string `json:"preview,omitempty"`
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func errorResult(name string, err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", name))
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) listNotes(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notes, err := s.svc.ListNotes(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	items := make([]listItem, len(notes))
	for i, n := range notes {
		items[i] = listItem{Name: n.Name, Title: n.Title, Preview: n.Preview}
	}
	return jsonResult(items)
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.GetNote(ctx, name)
	if err != nil {
		return errorResult(name, err), nil
	}
	return mcp.NewToolResultText(note.Content), nil
}

func (s *Server) saveNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.SaveNote(ctx, name, content, "")
	if err != nil {
		return errorResult(name, err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved: %s", note.Name)), nil
}

func (s *Server) newNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	content := req.GetString("content", "")

	note, err := s.svc.NewNote(ctx, name, content)
	if err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			return mcp.NewToolResultError(fmt.Sprintf("note already exists: %s", name)), nil
		}
		return errorResult(name, err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", note.Name)), nil
}

func (s *Server) deleteNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ok, err := s.svc.DeleteNote(ctx, name)
	if err != nil {
		return errorResult(name, err), nil
	}
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", name)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("moved to recycle bin: %s", name)), nil
}

func (s *Server) exportNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	dest, err := req.RequireString("destination")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.ExportNote(ctx, name, dest)
	if err != nil {
		return errorResult(name, err), nil
	}
	if res.Canceled {
		return mcp.NewToolResultText("export canceled"), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("exported: %s", res.Path)), nil
}

func (s *Server) listRecycle(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := s.svc.ListRecycle(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("recycle bin is empty"), nil
	}
	return jsonResult(entries)
}

func (s *Server) sweepRecycle(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rep, err := s.svc.Sweep(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(rep)
}

func (s *Server) readLog(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 50)
	entries, err := s.svc.ReadLog(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("operation log is empty"), nil
	}
	return jsonResult(entries)
}

func (s *Server) getNoteContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      NoteFormatURI,
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}
