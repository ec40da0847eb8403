package server

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/caravel-hq/caravel/llm"
)

// usageEntry is the per-profile slice of the usage resource.
type usageEntry struct {
	Profile         string    `json:"profile"`
	Model           string    `json:"model"`
	AccumulatedCost float64   `json:"accumulated_cost"`
	Costs           []float64 `json:"costs"`
}

func (s *Server) registerResources(srv *mcpserver.MCPServer) {
	srv.AddResource(
		mcp.NewResource("caravel://usage", "LLM Usage",
			mcp.WithResourceDescription("Accumulated LLM cost per client profile"),
			mcp.WithMIMEType("application/json"),
		),
		s.handleResourceUsage,
	)

	srv.AddResource(
		mcp.NewResource("caravel://models", "Model Catalog",
			mcp.WithResourceDescription("Known models with context windows and per-token pricing"),
			mcp.WithMIMEType("application/json"),
		),
		s.handleResourceModels,
	)
}

func (s *Server) handleResourceUsage(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("no LLM registry configured")
	}

	entries := make([]usageEntry, 0)
	for name, client := range s.registry.Clients() {
		ledger := client.Ledger()
		entries = append(entries, usageEntry{
			Profile:         name,
			Model:           client.Profile().Model,
			AccumulatedCost: ledger.Accumulated(),
			Costs:           ledger.Costs(),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Profile < entries[j].Profile })

	data, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("generating usage JSON: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     truncate(string(data)),
		},
	}, nil
}

func (s *Server) handleResourceModels(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(llm.DefaultCatalog().Models())
	if err != nil {
		return nil, fmt.Errorf("generating catalog JSON: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
