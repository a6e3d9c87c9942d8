// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the plan to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/bujo/internal/apperr"
	"github.com/starford/bujo/internal/models"
	"github.com/starford/bujo/internal/parser"
	"github.com/starford/bujo/internal/planservice"
)

const syntaxURI = "bujo://syntax"

// Server wraps the MCP server with plan tools.
type Server struct {
	mcp *server.MCPServer
	svc *planservice.Service
}

// New creates a new MCP server with all plan tools registered.
func New(svc *planservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Bujo",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_projects",
		mcp.WithDescription("List parsed projects with their tasks and items."),
		mcp.WithString("group", mcp.Description("Optional group id filter")),
	), s.listProjects)

	s.mcp.AddTool(mcp.NewTool("list_items",
		mcp.WithDescription("List flattened items. Buckets: all, future, expired, completed, abandoned."),
		mcp.WithString("group", mcp.Description("Optional group id filter")),
		mcp.WithString("bucket", mcp.Description("Optional bucket (default all)")),
	), s.listItems)

	s.mcp.AddTool(mcp.NewTool("calendar_events",
		mcp.WithDescription("List calendar events for tasks and items."),
		mcp.WithString("group", mcp.Description("Optional group id filter")),
	), s.calendarEvents)

	s.mcp.AddTool(mcp.NewTool("gantt_tasks",
		mcp.WithDescription("List Gantt rows, optionally within a YYYY-MM-DD window."),
		mcp.WithString("group", mcp.Description("Optional group id filter")),
		mcp.WithBoolean("show_items", mcp.Description("Include item rows")),
		mcp.WithString("start", mcp.Description("Window start, YYYY-MM-DD")),
		mcp.WithString("end", mcp.Description("Window end, YYYY-MM-DD")),
	), s.ganttTasks)

	s.mcp.AddTool(mcp.NewTool("set_item_status",
		mcp.WithDescription("Mark an item block completed or abandoned by rewriting its status tag."),
		mcp.WithString("block_id", mcp.Required(), mcp.Description("Block id of the item")),
		mcp.WithString("status", mcp.Required(), mcp.Enum(string(models.StatusCompleted), string(models.StatusAbandoned))),
	), s.setItemStatus)

	s.mcp.AddTool(mcp.NewTool("reschedule_item",
		mcp.WithDescription("Replace the date marker of an item block. "+
			"A start without an end lasts one hour."),
		mcp.WithString("block_id", mcp.Required(), mcp.Description("Block id of the item")),
		mcp.WithString("date", mcp.Required(), mcp.Description("New date, YYYY-MM-DD")),
		mcp.WithString("start", mcp.Description("Optional start time, HH:MM[:SS]")),
		mcp.WithString("end", mcp.Description("Optional end time, HH:MM[:SS]")),
	), s.rescheduleItem)

	s.mcp.AddTool(mcp.NewTool("refresh",
		mcp.WithDescription("Re-read all documents and rebuild the plan."),
	), s.refresh)

	s.mcp.AddTool(mcp.NewTool("get_syntax_contract",
		mcp.WithDescription("Returns the tagging syntax documents are parsed with. "+
			"Call this before editing plan documents."),
	), s.getSyntaxContract)

	s.mcp.AddResource(
		mcp.NewResource(syntaxURI, "Tagging Syntax",
			mcp.WithResourceDescription("Inline tagging syntax for projects, tasks and items."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSyntaxResource,
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
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("block not found")
	case errors.Is(err, apperr.ErrConflict):
		return mcp.NewToolResultError("block changed since last refresh; refresh and retry")
	default:
		return mcp.NewToolResultError(err.Error())
	}
}

func (s *Server) listProjects(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Projects(req.GetString("group", "")))
}

func (s *Server) listItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	bucket, err := planservice.ParseBucket(req.GetString("bucket", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.svc.Items(req.GetString("group", ""), bucket))
}

func (s *Server) calendarEvents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.CalendarEvents(req.GetString("group", "")))
}

func (s *Server) ganttTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := models.DateFilter{
		Start: req.GetString("start", ""),
		End:   req.GetString("end", ""),
	}
	return jsonResult(s.svc.GanttTasks(req.GetString("group", ""), req.GetBool("show_items", false), filter))
}

func (s *Server) setItemStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	blockID, err := req.RequireString("block_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	status, err := req.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.SetItemStatus(ctx, blockID, models.ItemStatus(status)); err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s", blockID)), nil
}

func (s *Server) rescheduleItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	blockID, err := req.RequireString("block_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	date, err := req.RequireString("date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sched := parser.Schedule{
		Date:  date,
		Start: req.GetString("start", ""),
		End:   req.GetString("end", ""),
	}
	if err := s.svc.RescheduleItem(ctx, blockID, sched); err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("rescheduled: %s", blockID)), nil
}

func (s *Server) refresh(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sum, err := s.svc.Refresh(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(sum)
}

func (s *Server) getSyntaxContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(SyntaxContract), nil
}

func (s *Server) readSyntaxResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      syntaxURI,
			MIMEType: "text/markdown",
			Text:     SyntaxContract,
		},
	}, nil
}
