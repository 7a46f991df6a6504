// Package mcp exposes chainscope's assessment capabilities as MCP tools over
// stdio, so LLM clients can pull session analyses into their own context.
package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/red-council/chainscope/internal/client"
	"github.com/red-council/chainscope/internal/model"
	"github.com/red-council/chainscope/internal/stream"
)

// Config holds MCP server configuration.
type Config struct {
	BaseURL string
	Token   string
}

// Server wraps the MCP SDK server with a backend client.
type Server struct {
	mcpServer *mcpsdk.Server
	client    *client.Client
}

// New creates an MCP server connected to the assessment backend.
func New(cfg Config) (*Server, error) {
	c, err := client.New(client.Config{BaseURL: cfg.BaseURL, Token: cfg.Token})
	if err != nil {
		return nil, fmt.Errorf("create backend client: %w", err)
	}

	s := &Server{
		client: c,
		mcpServer: mcpsdk.NewServer(
			&mcpsdk.Implementation{
				Name:    "chainscope",
				Version: "0.1.0",
			},
			nil,
		),
	}

	s.registerTools()
	return s, nil
}

// Run starts the MCP server on stdio transport. Blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// registerTools adds all chainscope tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "chainscope_analyze",
		Description: "Analyze a session's tool-call chain: per-tool statistics, transition graph, loop and excessive-call violations.",
	}, s.handleAnalyze)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "chainscope_fetch_events",
		Description: "Fetch a page of raw events from a session's event log.",
	}, s.handleFetchEvents)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "chainscope_report",
		Description: "Render a session's tool-chain assessment as a markdown report.",
	}, s.handleReport)
}

// fetchAll pages through a session's event log, bounded by the stream
// buffer cap so a runaway session cannot exhaust memory.
func (s *Server) fetchAll(ctx context.Context, sessionID string) ([]model.AgentEvent, error) {
	var all []model.AgentEvent
	offset := 0
	for len(all) < stream.MaxEvents {
		page, _, err := s.client.FetchEvents(ctx, sessionID, offset, stream.PageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		offset += len(page)
		if len(page) < stream.PageSize {
			break
		}
	}
	return all, nil
}
