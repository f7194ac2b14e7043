package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/kalambet/sentid/internal/prediction"
	"github.com/kalambet/sentid/internal/storage"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Service prediction.Service
	Log     logrus.FieldLogger
	Version string
}

// NewMCPServer creates an MCP server exposing the prediction operations as tools.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	deps = deps.withDefaults()
	s := server.NewMCPServer(
		"sentid",
		deps.Version,
		server.WithToolCapabilities(true),
		server.WithInstructions(fmt.Sprintf("sentid classifies text with a %s model and keeps every prediction.", deps.Service.Variant())),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("analyze_sentiment",
			mcp.WithDescription("Classify a piece of text and store the prediction. Returns the stored record as JSON."),
			mcp.WithString("text", mcp.Description("Text to classify"), mcp.Required()),
		),
		mcpAnalyze(deps),
	)

	s.AddTool(
		mcp.NewTool("get_sentiment",
			mcp.WithDescription("Fetch a stored prediction by id."),
			mcp.WithNumber("id", mcp.Description("Prediction id"), mcp.Required()),
		),
		mcpGet(deps),
	)

	return s
}

func (d MCPDeps) withDefaults() MCPDeps {
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	return d
}

func mcpAnalyze(deps MCPDeps) server.ToolHandlerFunc {
	deps = deps.withDefaults()
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcpError("text is required and must be a string"), nil
		}

		rec, err := deps.Service.Create(ctx, text)
		if err != nil {
			deps.Log.WithError(err).Error("mcp analyze_sentiment failed")
			return mcpError(internalDetail), nil
		}
		return mcpJSON(rec), nil
	}
}

func mcpGet(deps MCPDeps) server.ToolHandlerFunc {
	deps = deps.withDefaults()
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireInt("id")
		if err != nil {
			return mcpError("id is required and must be an integer"), nil
		}

		rec, err := deps.Service.Get(ctx, int64(id))
		if errors.Is(err, storage.ErrNotFound) {
			return mcpError(notFoundDetail), nil
		}
		if err != nil {
			deps.Log.WithError(err).Error("mcp get_sentiment failed")
			return mcpError(internalDetail), nil
		}
		return mcpJSON(rec), nil
	}
}

func mcpJSON(v any) *mcp.CallToolResult {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err))
	}
	return mcpText(string(b))
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
