// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes licaudit tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/licaudit/internal/models"
	"github.com/starford/licaudit/internal/workspace"
)

const (
	statisticsURI  = "licaudit://statistics"
	inputFormatURI = "licaudit://input-format"
	searchLimit    = 20
)

// Server wraps the MCP server with licaudit tools.
type Server struct {
	mcp *server.MCPServer
	ws  *workspace.Workspace
}

// New creates a new MCP server with all licaudit tools registered.
func New(ws *workspace.Workspace) *Server {
	s := &Server{ws: ws}

	s.mcp = server.NewMCPServer(
		"licaudit",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_statistics",
		mcp.WithDescription("License, source and criticality statistics of one attribution kind."),
		mcp.WithString("kind", mcp.Enum(string(models.KindManual), string(models.KindExternal)),
			mcp.Description("Attribution kind (default manual)")),
	), s.getStatistics)

	s.mcp.AddTool(mcp.NewTool("get_autocomplete_signals",
		mcp.WithDescription("Deduplicated package suggestions for a resource, built from the signals on it "+
			"and below it, ordered by source priority and frequency."),
		mcp.WithString("resource", mcp.Required(), mcp.Description("Resource path (e.g. /src/ or /src/app.js)")),
	), s.getAutocompleteSignals)

	s.mcp.AddTool(mcp.NewTool("get_resource_criticality",
		mcp.WithDescription("Most severe criticality among the signals attached to a resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Resource path")),
	), s.getResourceCriticality)

	s.mcp.AddTool(mcp.NewTool("expand_attribution",
		mcp.WithDescription("List every file an attribution covers, descending folders and stopping at "+
			"breakpoints and resources with their own attributions."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Attribution id")),
		mcp.WithString("kind", mcp.Enum(string(models.KindManual), string(models.KindExternal)),
			mcp.Description("Attribution kind (default manual)")),
	), s.expandAttribution)

	s.mcp.AddTool(mcp.NewTool("search_attributions",
		mcp.WithDescription("Full-text search through package names, licenses, copyrights and purls."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithString("kind", mcp.Enum(string(models.KindManual), string(models.KindExternal)),
			mcp.Description("Restrict to one kind (empty for both)")),
	), s.searchAttributions)

	s.mcp.AddTool(mcp.NewTool("resolve_signals",
		mcp.WithDescription("Mark external attributions as resolved, or revert that."),
		mcp.WithString("ids", mcp.Required(), mcp.Description("Comma-separated external attribution ids")),
		mcp.WithString("action", mcp.Enum("resolve", "unresolve"), mcp.Description("Default resolve")),
	), s.resolveSignals)

	s.mcp.AddTool(mcp.NewTool("export_attributions",
		mcp.WithDescription("Write the current review state as an SPDX document or a review file."),
		mcp.WithString("format", mcp.Enum(workspace.ExportFormats...), mcp.Description("Export format (default spdx-json)")),
	), s.exportAttributions)

	s.mcp.AddTool(mcp.NewTool("get_input_contract",
		mcp.WithDescription("Returns the input file format contract. "+
			"Call this before importing an input file."),
	), s.getInputContract)

	s.mcp.AddTool(mcp.NewTool("import_input",
		mcp.WithDescription("Replace the input file with a downloaded or inline one. "+
			"The content MUST follow the input format contract (get_input_contract tool or the "+
			inputFormatURI+" resource)."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data URI (base64 or percent-encoded) of a JSON or YAML input file")),
	), s.importInput)

	s.mcp.AddResource(
		mcp.NewResource(statisticsURI, "Statistics",
			mcp.WithResourceDescription("Statistics of the manual and external attributions."),
			mcp.WithMIMEType("application/json"),
		),
		s.readStatisticsResource,
	)

	s.mcp.AddResource(
		mcp.NewResource(inputFormatURI, "Input Format Contract",
			mcp.WithResourceDescription("Structure every input file must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readInputFormatResource,
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

// optionalString returns the argument or "" when it is absent.
func optionalString(req mcp.CallToolRequest, name string) string {
	if v, err := req.RequireString(name); err == nil {
		return v
	}
	return ""
}

func kindArg(req mcp.CallToolRequest) models.Kind {
	if k := optionalString(req, "kind"); k != "" {
		return models.Kind(k)
	}
	return models.KindManual
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) getStatistics(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summary, err := s.ws.Statistics(kindArg(req))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(summary), nil
}

func (s *Server) getAutocompleteSignals(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resource, err := req.RequireString("resource")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sigs, err := s.ws.Signals(ctx, resource)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(sigs), nil
}

func (s *Server) getResourceCriticality(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	crit, err := s.ws.Criticality(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if crit == models.CriticalityNone {
		return mcp.NewToolResultText("none"), nil
	}
	return mcp.NewToolResultText(string(crit)), nil
}

func (s *Server) expandAttribution(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	expanded, err := s.ws.Expanded(kindArg(req))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	attr, ok := expanded[id]
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	if len(attr.Resources) == 0 {
		return mcp.NewToolResultText("no resources"), nil
	}
	return mcp.NewToolResultText(strings.Join(attr.Resources, "\n")), nil
}

func (s *Server) searchAttributions(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.ws.Search(query, models.Kind(optionalString(req, "kind")), searchLimit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results), nil
}

func (s *Server) resolveSignals(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("ids")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return mcp.NewToolResultError("ids is empty"), nil
	}

	action := optionalString(req, "action")
	switch action {
	case "", "resolve":
		action = "resolved"
		err = s.ws.Resolve(ids)
	case "unresolve":
		action = "unresolved"
		err = s.ws.Unresolve(ids)
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown action: %s", action)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s: %s", action, strings.Join(ids, ", "))), nil
}

func (s *Server) exportAttributions(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format := optionalString(req, "format")
	if format == "" {
		format = workspace.ExportSPDXJSON
	}
	res, err := s.ws.Export(format)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("exported: %s", res.Path)), nil
}

func (s *Server) getInputContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(InputFormatContract), nil
}

func (s *Server) readStatisticsResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	manual, err := s.ws.Statistics(models.KindManual)
	if err != nil {
		return nil, err
	}
	external, err := s.ws.Statistics(models.KindExternal)
	if err != nil {
		return nil, err
	}
	out, err := json.MarshalIndent(map[string]any{"manual": manual, "external": external}, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      statisticsURI,
			MIMEType: "application/json",
			Text:     string(out),
		},
	}, nil
}

func (s *Server) readInputFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      inputFormatURI,
			MIMEType: "text/markdown",
			Text:     InputFormatContract,
		},
	}, nil
}
