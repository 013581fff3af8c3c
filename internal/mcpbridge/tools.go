package mcpbridge

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// toolTimeout bounds each bridged studio call.
const toolTimeout = 30 * time.Second

// FigureClassifyInput represents the MCP tool input for figure classification.
type FigureClassifyInput struct {
	ImageBase64 string `json:"image_base64,omitempty" jsonschema:"base64-encoded image bytes"`
	URL         string `json:"url,omitempty" jsonschema:"URL of an image to download and classify"`
}

// FigureHistoryInput represents the MCP tool input for classification history.
type FigureHistoryInput struct {
	Class string `json:"class,omitempty" jsonschema:"optional class filter (taxonomy identifier)"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of records to return"`
}

// FigureHistoryResult represents the MCP tool output for classification history.
type FigureHistoryResult struct {
	Figures []FigureRecord `json:"figures"`
}

// FigureTaxonomyInput represents the MCP tool input for the taxonomy listing.
type FigureTaxonomyInput struct{}

// FigureTaxonomyResult represents the MCP tool output for the taxonomy listing.
type FigureTaxonomyResult struct {
	Classes []TaxonomyEntry `json:"classes"`
}

// FigureClassifyTool defines the MCP tool schema for figure classification.
func FigureClassifyTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "figure_classify",
		Description: "Classifies a figure image into the studio taxonomy; accepts base64 image bytes or an image URL",
	}
}

// FigureHistoryTool defines the MCP tool schema for classification history.
func FigureHistoryTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "figure_history",
		Description: "Lists recent figure classifications, optionally filtered by class",
	}
}

// FigureTaxonomyTool defines the MCP tool schema for the taxonomy listing.
func FigureTaxonomyTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "figure_taxonomy",
		Description: "Lists the figure classes the studio can assign",
	}
}

// FigureClassifyHandler executes a figure classification request.
func FigureClassifyHandler(client *StudioClient) mcp.ToolHandlerFor[FigureClassifyInput, FigureRecord] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input FigureClassifyInput) (*mcp.CallToolResult, FigureRecord, error) {
		hasImage := strings.TrimSpace(input.ImageBase64) != ""
		hasURL := strings.TrimSpace(input.URL) != ""
		if hasImage == hasURL {
			return nil, FigureRecord{}, fmt.Errorf("exactly one of image_base64 or url is required")
		}

		runCtx, cancel := context.WithTimeout(ctx, toolTimeout)
		defer cancel()

		if hasURL {
			record, err := client.ClassifyURL(runCtx, strings.TrimSpace(input.URL))
			if err != nil {
				return nil, FigureRecord{}, fmt.Errorf("figure classify failed: %w", err)
			}
			return nil, *record, nil
		}

		data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(input.ImageBase64))
		if err != nil {
			return nil, FigureRecord{}, fmt.Errorf("image_base64 is not valid base64: %w", err)
		}
		record, err := client.Classify(runCtx, data)
		if err != nil {
			return nil, FigureRecord{}, fmt.Errorf("figure classify failed: %w", err)
		}
		return nil, *record, nil
	}
}

// FigureHistoryHandler executes a classification history request.
func FigureHistoryHandler(client *StudioClient) mcp.ToolHandlerFor[FigureHistoryInput, FigureHistoryResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input FigureHistoryInput) (*mcp.CallToolResult, FigureHistoryResult, error) {
		runCtx, cancel := context.WithTimeout(ctx, toolTimeout)
		defer cancel()

		figures, err := client.History(runCtx, input.Class, input.Limit)
		if err != nil {
			return nil, FigureHistoryResult{}, fmt.Errorf("figure history failed: %w", err)
		}
		return nil, FigureHistoryResult{Figures: figures}, nil
	}
}

// FigureTaxonomyHandler executes a taxonomy listing request.
func FigureTaxonomyHandler(client *StudioClient) mcp.ToolHandlerFor[FigureTaxonomyInput, FigureTaxonomyResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ FigureTaxonomyInput) (*mcp.CallToolResult, FigureTaxonomyResult, error) {
		runCtx, cancel := context.WithTimeout(ctx, toolTimeout)
		defer cancel()

		classes, err := client.Taxonomy(runCtx)
		if err != nil {
			return nil, FigureTaxonomyResult{}, fmt.Errorf("figure taxonomy failed: %w", err)
		}
		return nil, FigureTaxonomyResult{Classes: classes}, nil
	}
}
