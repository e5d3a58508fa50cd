// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the note operations as tools over stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/notable/internal/apperr"
	"github.com/starford/notable/internal/noteservice"
	"github.com/starford/notable/internal/validate"
)

const noteFormatURI = "notable://note-format"

// Server wraps the MCP server with note tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates a new MCP server with all note tools registered.
func New(svc *noteservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Notable",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes newest first. Optionally filter by a case-insensitive "+
			"substring of title or content, and paginate with page and limit."),
		mcp.WithString("search", mcp.Description("Substring to look for in title or content")),
		mcp.WithNumber("page", mcp.Description("1-based page number, used together with limit")),
		mcp.WithNumber("limit", mcp.Description("Page size")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("get_note",
		mcp.WithDescription("Fetch a single note by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.getNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a note. Read "+noteFormatURI+" for the field rules."),
		mcp.WithString("title", mcp.Required(), mcp.Description("At least 3 characters")),
		mcp.WithString("content", mcp.Required(), mcp.Description("At least 5 characters")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("update_note",
		mcp.WithDescription("Change the title and/or content of a note. Omitted fields keep their value."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
		mcp.WithString("title", mcp.Description("New title, at least 3 characters")),
		mcp.WithString("content", mcp.Description("New content, at least 5 characters")),
	), s.updateNote)

	s.mcp.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Delete a note by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.deleteNote)

	// Resource: note format.
	s.mcp.AddResource(
		mcp.NewResource(noteFormatURI, "Note Format",
			mcp.WithResourceDescription("Fields and validation rules of a note."),
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

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.svc.List(ctx, noteservice.ListParams{
		Search: req.GetString("search", ""),
		Page:   req.GetInt("page", 1),
		Limit:  req.GetInt("limit", 0),
	})
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(res)
}

func (s *Server) getNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.GetByID(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(note)
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, content := optionalString(req, "title"), optionalString(req, "content")
	if err := validate.CreateNote(title, content); err != nil {
		return toolError(err), nil
	}
	note, err := s.svc.Create(ctx, *title, *content)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(note)
}

func (s *Server) updateNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, content := optionalString(req, "title"), optionalString(req, "content")
	if err := validate.UpdateNote(title, content); err != nil {
		return toolError(err), nil
	}
	note, err := s.svc.Update(ctx, id, noteservice.UpdateParams{Title: title, Content: content})
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(note)
}

func (s *Server) deleteNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	removed, err := s.svc.Delete(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	if !removed {
		return toolError(apperr.ErrNotFound), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

func (s *Server) readNoteFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      noteFormatURI,
			MIMEType: "text/markdown",
			Text:     NoteFormat,
		},
	}, nil
}

// optionalString returns nil when key is absent or not a string.
func optionalString(req mcp.CallToolRequest, key string) *string {
	v, ok := req.GetArguments()[key].(string)
	if !ok {
		return nil
	}
	return &v
}

func toolError(err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError("note not found")
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(out)), nil
}
