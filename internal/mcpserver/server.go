// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes miding tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/miding/internal/apperr"
	"github.com/starford/miding/internal/noteservice"
	"github.com/starford/miding/internal/notestore"
)

// AnnotationFormatURI addresses the annotation syntax resource.
const AnnotationFormatURI = "miding://annotation-format"

const defaultSearchLimit = 20

// Server wraps the MCP server with miding tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates a new MCP server with all miding tools registered.
func New(svc *noteservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"miding",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("List checklist tasks parsed from every note."),
		mcp.WithString("note_id", mcp.Description("Only tasks of this note")),
		mcp.WithBoolean("open_only", mcp.Description("Skip completed tasks")),
	), s.listTasks)

	s.mcp.AddTool(mcp.NewTool("toggle_task",
		mcp.WithDescription("Check or uncheck a task. Task ids change whenever the task line changes, "+
			"so list tasks again after editing."),
		mcp.WithString("note_id", mcp.Required(), mcp.Description("Note containing the task")),
		mcp.WithString("task_id", mcp.Required(), mcp.Description("Task id from list_tasks")),
	), s.toggleTask)

	s.mcp.AddTool(mcp.NewTool("list_tickets",
		mcp.WithDescription("List :::ticket blocks parsed from every note."),
		mcp.WithString("status", mcp.Description("Only tickets with this status"),
			mcp.Enum("open", "in-progress", "blocked", "closed")),
	), s.listTickets)

	s.mcp.AddTool(mcp.NewTool("set_ticket_status",
		mcp.WithDescription("Change the Status field of a ticket block. Closing a ticket stamps a Closed date."),
		mcp.WithString("note_id", mcp.Required(), mcp.Description("Note containing the ticket")),
		mcp.WithNumber("block_start", mcp.Required(), mcp.Description("blockStartLine from list_tickets")),
		mcp.WithString("status", mcp.Required(), mcp.Description("New status"),
			mcp.Enum("open", "in-progress", "blocked", "closed")),
	), s.setTicketStatus)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note's content and everything parsed from it."),
		mcp.WithString("note_id", mcp.Required(), mcp.Description("Note id")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a note. Content may use the annotation syntax described by "+
			"the "+AnnotationFormatURI+" resource."),
		mcp.WithBoolean("journal", mcp.Description("Create today's journal entry")),
		mcp.WithString("title", mcp.Description("Title; defaults to \"New Note\" or the journal date")),
		mcp.WithString("content", mcp.Description("Initial content")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("get_stats",
		mcp.WithDescription("Productivity statistics: task and ticket flow, heatmap, distributions."),
	), s.getStats)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through note titles, tags and content."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Max results")),
	), s.searchNotes)

	s.mcp.AddResource(
		mcp.NewResource(AnnotationFormatURI, "Annotation Format",
			mcp.WithResourceDescription("Task, ticket, project and journal annotation syntax."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readAnnotationFormat,
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

// errorResult turns a service error into a tool error the model can act on.
func errorResult(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("not found")
	case errors.Is(err, apperr.ErrStaleLine), errors.Is(err, apperr.ErrInvalidSpan):
		return mcp.NewToolResultError(err.Error() + "; list again to get fresh positions")
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) listTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	noteID := req.GetString("note_id", "")
	openOnly := req.GetBool("open_only", false)

	out := []notestore.NoteTask{}
	for _, t := range s.svc.Tasks(ctx) {
		if noteID != "" && t.NoteID != noteID {
			continue
		}
		if openOnly && t.Task.IsCompleted {
			continue
		}
		out = append(out, t)
	}
	return jsonResult(out)
}

func (s *Server) toggleTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	noteID, err := req.RequireString("note_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	taskID, err := req.RequireString("task_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.ToggleTask(ctx, noteID, taskID); err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("toggled: %s", taskID)), nil
}

func (s *Server) listTickets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status := strings.ToLower(req.GetString("status", ""))

	out := []notestore.NoteTicket{}
	for _, t := range s.svc.Tickets(ctx) {
		if status != "" && string(t.Ticket.Status) != status {
			continue
		}
		out = append(out, t)
	}
	return jsonResult(out)
}

func (s *Server) setTicketStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	noteID, err := req.RequireString("note_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	blockStart, err := req.RequireInt("block_start")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	status, err := req.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.SetTicketStatus(ctx, noteID, blockStart, status); err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("status: %s", status)), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("note_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.GetNote(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return jsonResult(note)
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	note, err := s.svc.CreateNote(ctx, req.GetBool("journal", false))
	if err != nil {
		return errorResult(err), nil
	}
	if title := strings.TrimSpace(req.GetString("title", "")); title != "" {
		if err := s.svc.UpdateTitle(ctx, note.ID, title); err != nil {
			return errorResult(err), nil
		}
	}
	if content := req.GetString("content", ""); content != "" {
		if err := s.svc.UpdateContent(ctx, note.ID, content); err != nil {
			return errorResult(err), nil
		}
		s.svc.Flush(ctx)
	}

	note, err = s.svc.GetNote(ctx, note.ID)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(note)
}

func (s *Server) getStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Stats(ctx))
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, req.GetInt("limit", defaultSearchLimit))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no matches"), nil
	}
	return jsonResult(results)
}

func (s *Server) readAnnotationFormat(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      AnnotationFormatURI,
			MIMEType: "text/markdown",
			Text:     AnnotationFormat,
		},
	}, nil
}
