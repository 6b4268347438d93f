// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes raido tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/applier"
	"github.com/starford/raido/internal/fileservice"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/suggest"
)

const contractURI = "raido://suggestion-contract"

// Server wraps the MCP server with raido tools.
type Server struct {
	mcp *server.MCPServer
	svc *fileservice.Service
}

// New creates a new MCP server with all raido tools registered.
func New(svc *fileservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Raido",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("scan_files",
		mcp.WithDescription("Scan the monitored folders and return metadata for every file found. Nothing is changed."),
	), s.scanFiles)

	s.mcp.AddTool(mcp.NewTool("suggest_actions",
		mcp.WithDescription("Ask the model for a suggested name, folder and delete flag for one file. Nothing is changed."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute path of a file directly inside a monitored folder")),
	), s.suggestActions)

	s.mcp.AddTool(mcp.NewTool("apply_suggestion",
		mcp.WithDescription("Apply a suggestion to one file (rename, move or delete). "+
			"Read the contract first via the get_suggestion_contract tool or the "+contractURI+" resource. "+
			"Omit suggested_folder or pass an empty string for the organizational root (the file's own folder when no root is set). "+
			"When organizer.dry_run is set nothing is changed and the outcome is skipped (dry-run)."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute path of a file directly inside a monitored folder")),
		mcp.WithString("suggested_name", mcp.Description("New file name including extension")),
		mcp.WithString("suggested_folder", mcp.Description("Folder relative to the organizational root; empty for the root itself")),
		mcp.WithBoolean("delete", mcp.Description("Delete the file; wins over rename and move")),
	), s.applySuggestion)

	s.mcp.AddTool(mcp.NewTool("search_files",
		mcp.WithDescription("Full-text search through catalogued file names and previews."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchFiles)

	s.mcp.AddTool(mcp.NewTool("recent_outcomes",
		mcp.WithDescription("List the latest outcomes of organizer passes and tool calls, newest first."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of outcomes (default 20)")),
	), s.recentOutcomes)

	s.mcp.AddTool(mcp.NewTool("get_suggestion_contract",
		mcp.WithDescription("Returns the suggestion contract. Call this before apply_suggestion."),
	), s.getSuggestionContract)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Suggestion Contract",
			mcp.WithResourceDescription("JSON shape and semantics of a file suggestion and its outcomes."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
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

func pathError(path string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path))
	case errors.Is(err, apperr.ErrPathEscape):
		return mcp.NewToolResultError(fmt.Sprintf("not in a monitored folder: %s", path))
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) scanFiles(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records, errs := s.svc.Files(ctx)
	if records == nil {
		records = []models.FileRecord{}
	}
	res := struct {
		Files  []models.FileRecord `json:"files"`
		Errors []string            `json:"errors,omitempty"`
	}{Files: records}
	for _, err := range errs {
		res.Errors = append(res.Errors, err.Error())
	}
	return jsonResult(res), nil
}

func (s *Server) suggestActions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	_, sug, err := s.svc.Suggest(ctx, path)
	if err != nil {
		return pathError(path, err), nil
	}
	return jsonResult(sug), nil
}

// applySuggestion runs the tool arguments through the same decoder as model
// replies, so an omitted folder means the organizational root.
func (s *Server) applySuggestion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	fields := make(map[string]any)
	for _, key := range []string{suggest.KeyName, suggest.KeyFolder, suggest.KeyDelete} {
		if v, ok := req.GetArguments()[key]; ok {
			fields[key] = v
		}
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sug, err := suggest.Decode(string(raw))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	out, err := s.svc.Apply(ctx, path, sug)
	if err != nil {
		return pathError(path, err), nil
	}
	res := jsonResult(out)
	res.IsError = out.Kind == applier.KindFailed
	return res, nil
}

func (s *Server) searchFiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no files found"), nil
	}
	return jsonResult(results), nil
}

func (s *Server) recentOutcomes(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 20)
	if limit <= 0 {
		limit = 20
	}
	outs := s.svc.Recent(limit)
	if len(outs) == 0 {
		return mcp.NewToolResultText("no outcomes yet"), nil
	}
	return jsonResult(outs), nil
}

func (s *Server) getSuggestionContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(SuggestionContract), nil
}

func (s *Server) readContractResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     SuggestionContract,
		},
	}, nil
}
