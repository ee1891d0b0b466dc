// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Mastermind tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/mastermind/internal/apperr"
	"github.com/starford/mastermind/internal/compose"
	"github.com/starford/mastermind/internal/journal"
	"github.com/starford/mastermind/internal/selection"
)

const formatURI = "mastermind://journal-format"

// Server wraps the MCP server with Mastermind tools.
type Server struct {
	mcp *server.MCPServer
	svc *journal.Service
}

// New creates a new MCP server with all Mastermind tools registered.
func New(svc *journal.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Mastermind",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_projects",
		mcp.WithDescription("List every project document with its section count and checksum."),
	), s.listProjects)

	s.mcp.AddTool(mcp.NewTool("read_project",
		mcp.WithDescription("Read the full text of one project document."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Project name")),
	), s.readProject)

	s.mcp.AddTool(mcp.NewTool("write_project",
		mcp.WithDescription("Replace a project document, creating it when missing. "+
			"Content MUST use the journal delimiters; read get_format_contract first. "+
			"Pass if_match with the checksum from read_project to avoid overwriting concurrent edits."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Project name")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Full document text")),
		mcp.WithString("if_match", mcp.Description("Checksum the document must still have")),
	), s.writeProject)

	s.mcp.AddTool(mcp.NewTool("analyze_text",
		mcp.WithDescription("Parse journal text and report its sections, structural errors and warnings."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Journal text")),
	), s.analyzeText)

	s.mcp.AddTool(mcp.NewTool("get_inventory",
		mcp.WithDescription("List the dates and tags found in the given projects, for building a selection."),
		mcp.WithString("projects", mcp.Description("Comma separated projects (empty for all)")),
	), s.getInventory)

	s.mcp.AddTool(mcp.NewTool("compose_view",
		mcp.WithDescription("Build the composite view: every selected project's sections merged by date, "+
			"with unselected tag blocks hidden and focused dates shown."),
		mcp.WithString("projects", mcp.Description("Comma separated projects (empty for all)")),
		mcp.WithString("tags", mcp.Description("Comma separated tags to show (empty for all)")),
		mcp.WithString("dates", mcp.Description("Comma separated DD/MM/YYYY dates to focus on")),
	), s.composeView)

	s.mcp.AddTool(mcp.NewTool("save_composite",
		mcp.WithDescription("Fold an edited composite back into the project documents. "+
			"Use the same selection the composite was built with. Returns a per-project report."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Edited composite text")),
		mcp.WithString("projects", mcp.Description("Comma separated projects (empty for all)")),
		mcp.WithString("tags", mcp.Description("Comma separated tags (empty for all)")),
		mcp.WithString("dates", mcp.Description("Comma separated focus dates")),
		mcp.WithString("ignore", mcp.Description("Comma separated projects to leave untouched")),
	), s.saveComposite)

	s.mcp.AddTool(mcp.NewTool("export_text",
		mcp.WithDescription("Append the dated sections of a text to their projects under the matching date."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Journal text with dated sections")),
	), s.exportText)

	s.mcp.AddTool(mcp.NewTool("search_sections",
		mcp.WithDescription("Full-text search through indexed sections."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchSections)

	s.mcp.AddTool(mcp.NewTool("get_format_contract",
		mcp.WithDescription("Returns the journal format contract with the delimiters currently in effect. "+
			"Call this before writing or saving text."),
	), s.getFormatContract)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Journal Format Contract",
			mcp.WithResourceDescription("Delimiters and layout rules every project document follows."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
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

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) resolve(ctx context.Context, req mcp.CallToolRequest) (selection.Selection, error) {
	return s.svc.ResolveSelection(ctx,
		selection.SplitList(req.GetString("projects", "")),
		selection.SplitList(req.GetString("tags", "")),
		selection.SplitList(req.GetString("dates", "")),
	)
}

func (s *Server) listProjects(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rows, err := s.svc.ListProjects(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(rows) == 0 {
		return mcp.NewToolResultText("no projects"), nil
	}
	names := make([]string, len(rows))
	for i, r := range rows {
		names[i] = r.Name
	}
	return mcp.NewToolResultText(strings.Join(names, "\n")), nil
}

func (s *Server) readProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := s.svc.GetProject(ctx, name)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", name)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(p), nil
}

func (s *Server) writeProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, created, err := s.svc.PutProject(ctx, name, content, req.GetString("if_match", ""))
	switch {
	case errors.Is(err, apperr.ErrConflict):
		return mcp.NewToolResultError("checksum mismatch: the document changed, read it again"), nil
	case err != nil:
		return mcp.NewToolResultError(err.Error()), nil
	}
	verb := "updated"
	if created {
		verb = "created"
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s: %s (checksum %s)", verb, p.Name, p.Checksum)), nil
}

func (s *Server) analyzeText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Analyze(ctx, text)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res), nil
}

func (s *Server) getInventory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	inv, err := s.svc.Inventory(ctx, selection.SplitList(req.GetString("projects", "")))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(inv), nil
}

func (s *Server) composeView(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sel, err := s.resolve(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := s.svc.Compose(ctx, sel)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) saveComposite(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sel, err := s.resolve(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	confirm := compose.Decisions{Ignore: selection.NewSet(selection.SplitList(req.GetString("ignore", ""))...)}
	report, err := s.svc.Save(ctx, text, sel, confirm)
	if err != nil && report == nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(report), nil
}

func (s *Server) exportText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	changed, err := s.svc.Export(ctx, text)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(changed) == 0 {
		return mcp.NewToolResultText("nothing changed"), nil
	}
	return mcp.NewToolResultText("exported: " + strings.Join(changed, ", ")), nil
}

func (s *Server) searchSections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results), nil
}

func (s *Server) getFormatContract(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	contract, err := s.contract(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(contract), nil
}

func (s *Server) readFormatResource(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	contract, err := s.contract(ctx)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     contract,
		},
	}, nil
}

func (s *Server) contract(_ context.Context) (string, error) {
	p, err := s.svc.Patterns()
	if err != nil {
		return "", err
	}
	return FormatContract(p), nil
}
