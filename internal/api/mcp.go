package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/academate/internal/session"
	"github.com/kalambet/academate/internal/tools"
)

const historyTemplate = "session://{id}/history"

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Tools    ToolCaller
	Sessions session.Store
}

// NewMCPServer creates an MCP server exposing every lookup tool and the
// session transcripts.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"academate",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("Academate answers college questions: exam schedules, timetables, previous papers, faculty, the academic calendar and student results."),
		server.WithRecovery(),
	)

	for _, def := range deps.Tools.Tools() {
		s.AddTool(def, mcpTool(deps, def.Name))
	}

	s.AddResourceTemplate(
		mcp.NewResourceTemplate(
			historyTemplate,
			"Session History",
			mcp.WithTemplateDescription("Chat transcript of a session as JSON"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		mcpResourceHistory(deps),
	)

	return s
}

// NewMCPHTTPHandler serves s over the streamable HTTP transport.
func NewMCPHTTPHandler(s *server.MCPServer) http.Handler {
	return server.NewStreamableHTTPServer(s)
}

func mcpTool(deps MCPDeps, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		out, err := deps.Tools.Call(ctx, name, tools.Args(req.GetArguments()))
		if err != nil {
			return mcpError(err.Error()), nil
		}
		return mcpText(out), nil
	}
}

func mcpResourceHistory(deps MCPDeps) server.ResourceTemplateHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		id, ok := sessionFromURI(req.Params.URI)
		if !ok {
			return nil, fmt.Errorf("unsupported resource uri %q", req.Params.URI)
		}

		h, err := deps.Sessions.History(ctx, id, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to read history: %w", err)
		}
		if h == nil {
			h = []session.Entry{}
		}

		b, err := json.Marshal(HistoryResponse{SessionID: id, History: h})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal history: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

// sessionFromURI extracts the id from session://{id}/history.
func sessionFromURI(uri string) (string, bool) {
	rest, ok := strings.CutPrefix(uri, "session://")
	if !ok {
		return "", false
	}
	id, ok := strings.CutSuffix(rest, "/history")
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
