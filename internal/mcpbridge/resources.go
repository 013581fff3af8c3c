package mcpbridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// TaxonomyResource defines the readable MCP resource for the class taxonomy.
func TaxonomyResource() *mcp.Resource {
	return &mcp.Resource{
		Name:        "figure_taxonomy",
		Title:       "Figure taxonomy",
		Description: "Readable listing of the figure classes the studio can assign",
		MIMEType:    "application/json",
		URI:         "taxonomy://classes",
	}
}

// TaxonomyResourceHandler returns the taxonomy as a JSON resource.
func TaxonomyResourceHandler(client *StudioClient) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if client == nil {
			return nil, fmt.Errorf("studio client is not configured")
		}

		uri := TaxonomyResource().URI
		if req != nil && req.Params != nil && req.Params.URI != "" {
			uri = req.Params.URI
		}

		runCtx, cancel := context.WithTimeout(ctx, toolTimeout)
		defer cancel()

		classes, err := client.Taxonomy(runCtx)
		if err != nil {
			return nil, fmt.Errorf("taxonomy resource failed: %w", err)
		}

		data, err := json.MarshalIndent(FigureTaxonomyResult{Classes: classes}, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal taxonomy: %w", err)
		}

		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{
					URI:      uri,
					MIMEType: "application/json",
					Text:     string(data),
				},
			},
		}, nil
	}
}
