// Package mcpadapter exposes campaign retrieval and synthesis as MCP tools.
package mcpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/campaign-assistant/internal/core/domain"
	"github.com/kirillkom/campaign-assistant/internal/core/ports"
)

const (
	serverName    = "campaign-assistant"
	serverVersion = "1.0.0"

	defaultRelatedLimit = 3
	maxResultsLimit     = 50
)

type Tools struct {
	retriever   ports.Retriever
	synthesizer ports.Synthesizer
}

func NewTools(retriever ports.Retriever, synthesizer ports.Synthesizer) *Tools {
	return &Tools{retriever: retriever, synthesizer: synthesizer}
}

// NewServer registers every campaign tool on a fresh MCP server.
func NewServer(tools *Tools) *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s.AddTool(mcp.NewTool("campaign_search",
		mcp.WithDescription("Search campaign notes. Results are ranked by relevance to the query and the current session context."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Free-text question or keywords")),
		mcp.WithNumber("max_results", mcp.Description("Maximum results to return (default from server settings)")),
		mcp.WithString("content_type", mcp.Description("Restrict to character, location, encounter, lore, adventure or general")),
		mcp.WithBoolean("use_context", mcp.Description("Enrich the query with the current location and active NPCs")),
	), tools.Search)

	s.AddTool(mcp.NewTool("campaign_entity",
		mcp.WithDescription("Find notes about a named character, location or other entity."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Entity name")),
		mcp.WithString("type", mcp.Description("Entity content type, for example character or location")),
		mcp.WithNumber("max_results", mcp.Description("Maximum results to return")),
	), tools.SearchByEntity)

	s.AddTool(mcp.NewTool("campaign_related",
		mcp.WithDescription("List content related to an indexed document, excluding the document itself."),
		mcp.WithString("document_id", mcp.Required(), mcp.Description("Document id returned at upload")),
		mcp.WithNumber("max_results", mcp.Description("Maximum results to return (default 3)")),
	), tools.Related)

	s.AddTool(mcp.NewTool("campaign_set_context",
		mcp.WithDescription("Replace the session context used for boosting and query enrichment."),
		mcp.WithString("current_campaign", mcp.Description("Campaign name")),
		mcp.WithString("current_location", mcp.Description("Where the party currently is")),
		mcp.WithArray("active_npcs", mcp.Description("NPCs present in the scene"), mcp.WithStringItems()),
		mcp.WithArray("recent_events", mcp.Description("Short notes about recent events"), mcp.WithStringItems()),
		mcp.WithObject("content_preferences", mcp.Description("Boost weight per content type, for example {\"location\": 1.5}")),
	), tools.SetContext)

	s.AddTool(mcp.NewTool("campaign_synthesize",
		mcp.WithDescription("Generate grounded content from campaign notes using the task-appropriate model."),
		mcp.WithString("query", mcp.Required(), mcp.Description("What to generate or answer")),
		mcp.WithString("intent",
			mcp.Description("Generation task; selects the model and system prompt (default general)"),
			mcp.Enum(domain.SynthesisIntents...),
		),
		mcp.WithString("tone", mcp.Description("Optional tone hint")),
		mcp.WithNumber("max_context_docs", mcp.Description("Maximum retrieved documents used as context")),
	), tools.Synthesize)

	return s
}

func (t *Tools) Search(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil || strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("query is required"), nil
	}
	maxResults := req.GetInt("max_results", 0)
	if res := checkResultLimit("max_results", maxResults); res != nil {
		return res, nil
	}

	var results []domain.RetrievalResult
	if req.GetBool("use_context", false) {
		results, err = t.retriever.ContextRelevantContent(ctx, query, maxResults)
	} else {
		results, err = t.retriever.Search(ctx, query, maxResults, req.GetString("content_type", ""))
	}
	if err != nil {
		return toolError("campaign_search", err)
	}
	return jsonResult(map[string]any{"results": results, "count": len(results)})
}

func (t *Tools) SearchByEntity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil || strings.TrimSpace(name) == "" {
		return mcp.NewToolResultError("name is required"), nil
	}
	maxResults := req.GetInt("max_results", 0)
	if res := checkResultLimit("max_results", maxResults); res != nil {
		return res, nil
	}
	results, err := t.retriever.SearchByEntity(ctx, name, req.GetString("type", ""), maxResults)
	if err != nil {
		return toolError("campaign_entity", err)
	}
	return jsonResult(map[string]any{"results": results, "count": len(results)})
}

func (t *Tools) Related(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	documentID, err := req.RequireString("document_id")
	if err != nil || strings.TrimSpace(documentID) == "" {
		return mcp.NewToolResultError("document_id is required"), nil
	}
	maxResults := req.GetInt("max_results", defaultRelatedLimit)
	if res := checkResultLimit("max_results", maxResults); res != nil {
		return res, nil
	}
	results, err := t.retriever.RelatedContent(ctx, documentID, maxResults)
	if err != nil {
		return toolError("campaign_related", err)
	}
	return jsonResult(map[string]any{"results": results, "count": len(results)})
}

// SetContext replaces the whole session context with the arguments given.
// Omitted fields are cleared.
func (t *Tools) SetContext(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prefs, err := contentPreferences(req.GetArguments()["content_preferences"])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	t.retriever.SetContext(domain.RetrievalContext{
		CurrentCampaign:    req.GetString("current_campaign", ""),
		CurrentLocation:    req.GetString("current_location", ""),
		ActiveNPCs:         req.GetStringSlice("active_npcs", nil),
		RecentEvents:       req.GetStringSlice("recent_events", nil),
		ContentPreferences: prefs,
	})
	return jsonResult(t.retriever.Context())
}

func contentPreferences(raw any) (map[string]float64, error) {
	if raw == nil {
		return nil, nil
	}
	values, ok := raw.(map[string]any)
	if !ok {
		return nil, errors.New("content_preferences must be an object of weights")
	}
	prefs := make(map[string]float64, len(values))
	for contentType, v := range values {
		weight, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("content preference %q must be a number", contentType)
		}
		if weight < 0 {
			return nil, fmt.Errorf("content preference %q must not be negative", contentType)
		}
		prefs[contentType] = weight
	}
	return prefs, nil
}

func (t *Tools) Synthesize(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil || strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("query is required"), nil
	}
	intent := strings.TrimSpace(req.GetString("intent", ""))
	if intent != "" && !slices.Contains(domain.SynthesisIntents, intent) {
		return mcp.NewToolResultError(fmt.Sprintf("intent must be one of %s", strings.Join(domain.SynthesisIntents, ", "))), nil
	}
	maxDocs := req.GetInt("max_context_docs", 0)
	if res := checkResultLimit("max_context_docs", maxDocs); res != nil {
		return res, nil
	}

	result, err := t.synthesizer.Synthesize(ctx, domain.SynthesisRequest{
		Query:          query,
		Intent:         intent,
		Tone:           req.GetString("tone", ""),
		MaxContextDocs: maxDocs,
	})
	if err != nil {
		return toolError("campaign_synthesize", err)
	}
	return jsonResult(result)
}

func checkResultLimit(key string, n int) *mcp.CallToolResult {
	if n < 0 || n > maxResultsLimit {
		return mcp.NewToolResultError(fmt.Sprintf("%s must be between 0 and %d", key, maxResultsLimit))
	}
	return nil
}

// toolError reports domain failures to the client as tool errors. Only
// cancellation is returned as a protocol error.
func toolError(tool string, err error) (*mcp.CallToolResult, error) {
	if errors.Is(err, context.Canceled) {
		return nil, err
	}
	slog.Warn("mcp_tool_failed", "tool", tool, "error", err)
	msg := err.Error()
	if stage, ok := domain.StageOf(err); ok {
		msg = fmt.Sprintf("%s (stage: %s)", msg, stage)
	}
	return mcp.NewToolResultError(msg), nil
}

func jsonResult(payload any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal tool result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}
