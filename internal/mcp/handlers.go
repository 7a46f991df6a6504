package mcp

import (
	"context"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/red-council/chainscope/internal/analyzer"
	"github.com/red-council/chainscope/internal/model"
	"github.com/red-council/chainscope/internal/report"
)

// --- Input/Output types ---

// AnalyzeInput defines parameters for the chainscope_analyze tool.
type AnalyzeInput struct {
	SessionID string `json:"session_id" jsonschema:"session to analyze"`
}

// AnalyzeOutput summarizes one chain analysis.
type AnalyzeOutput struct {
	TotalCalls      int                 `json:"total_calls"`
	UniqueTools     int                 `json:"unique_tools"`
	ErrorRate       float64             `json:"error_rate"`
	LoopsDetected   []string            `json:"loops_detected"`
	ExcessiveTools  []string            `json:"excessive_tools"`
	ASI01Violations []string            `json:"asi01_violations"`
	Edges           []analyzer.ToolEdge `json:"edges"`
}

// FetchEventsInput defines parameters for the chainscope_fetch_events tool.
type FetchEventsInput struct {
	SessionID string `json:"session_id" jsonschema:"session to read"`
	Offset    int    `json:"offset,omitempty" jsonschema:"pagination offset"`
	Limit     int    `json:"limit,omitempty" jsonschema:"page size, default 200"`
}

// FetchEventsOutput carries one page of raw events.
type FetchEventsOutput struct {
	Events     []model.AgentEvent `json:"events"`
	TotalCount int                `json:"total_count"`
}

// ReportInput defines parameters for the chainscope_report tool.
type ReportInput struct {
	SessionID string `json:"session_id" jsonschema:"session to report on"`
}

// ReportOutput carries the rendered markdown report.
type ReportOutput struct {
	Markdown string `json:"markdown"`
}

// --- Handlers ---

func (s *Server) handleAnalyze(ctx context.Context, req *mcpsdk.CallToolRequest, input AnalyzeInput) (*mcpsdk.CallToolResult, AnalyzeOutput, error) {
	events, err := s.fetchAll(ctx, input.SessionID)
	if err != nil {
		return &mcpsdk.CallToolResult{IsError: true}, AnalyzeOutput{}, err
	}

	a := analyzer.Analyze(model.ToolCalls(events))
	out := AnalyzeOutput{
		TotalCalls:      a.TotalCalls,
		UniqueTools:     a.UniqueTools,
		ErrorRate:       a.ErrorRate,
		LoopsDetected:   a.LoopsDetected,
		ExcessiveTools:  a.ExcessiveTools,
		ASI01Violations: a.ASI01Violations,
		Edges:           a.Edges,
	}
	return nil, out, nil
}

func (s *Server) handleFetchEvents(ctx context.Context, req *mcpsdk.CallToolRequest, input FetchEventsInput) (*mcpsdk.CallToolResult, FetchEventsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 200
	}

	events, total, err := s.client.FetchEvents(ctx, input.SessionID, input.Offset, limit)
	if err != nil {
		return &mcpsdk.CallToolResult{IsError: true}, FetchEventsOutput{}, err
	}
	if events == nil {
		events = []model.AgentEvent{}
	}
	return nil, FetchEventsOutput{Events: events, TotalCount: total}, nil
}

func (s *Server) handleReport(ctx context.Context, req *mcpsdk.CallToolRequest, input ReportInput) (*mcpsdk.CallToolResult, ReportOutput, error) {
	events, err := s.fetchAll(ctx, input.SessionID)
	if err != nil {
		return &mcpsdk.CallToolResult{IsError: true}, ReportOutput{}, err
	}

	a := analyzer.Analyze(model.ToolCalls(events))
	md := report.Markdown(a, input.SessionID, time.Now())
	return nil, ReportOutput{Markdown: md}, nil
}
