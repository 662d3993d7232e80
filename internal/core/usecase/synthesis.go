package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/kirillkom/campaign-assistant/internal/core/domain"
	"github.com/kirillkom/campaign-assistant/internal/core/ports"
)

const (
	defaultSynthesisIntent   = "general"
	defaultContextDocs       = 5
	sessionSummaryContext    = 3
	sessionSummaryNotesRunes = 200
	sessionSummaryIntent     = "session_summary"

	noContextConfidence = 0.1
	perSourceBonus      = 0.05
	maxSourceBonus      = 0.2
)

type SynthesisUseCase struct {
	retriever ports.Retriever
	router    ports.ModelRouting
	settings  domain.GenerationSettings
}

func NewSynthesisUseCase(
	retriever ports.Retriever,
	router ports.ModelRouting,
	settings domain.GenerationSettings,
) *SynthesisUseCase {
	return &SynthesisUseCase{
		retriever: retriever,
		router:    router,
		settings:  settings,
	}
}

// Synthesize retrieves campaign context for the request and generates a
// grounded answer with the model routed for its intent.
func (uc *SynthesisUseCase) Synthesize(ctx context.Context, req domain.SynthesisRequest) (*domain.SynthesisResult, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "synthesize", errors.New("query is required"))
	}
	intent := strings.TrimSpace(req.Intent)
	if intent == "" {
		intent = defaultSynthesisIntent
	}
	maxDocs := req.MaxContextDocs
	if maxDocs <= 0 {
		maxDocs = defaultContextDocs
	}

	results, err := uc.retriever.Search(ctx, query, maxDocs, "")
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", domain.WithStage(domain.StageRetrieval, err))
	}
	contextDocs, sources := formatContextDocs(results)

	resp, err := uc.router.Generate(ctx, ragIntent(intent), domain.GenerateRequest{
		Prompt:       buildRAGPrompt(query, contextDocs),
		SystemPrompt: buildRAGSystemPrompt(buildIntentSystemPrompt(intent, req.Tone)),
		Temperature:  uc.settings.Temperature,
		MaxTokens:    uc.settings.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("generate synthesis: %w", err)
	}

	return &domain.SynthesisResult{
		Content:    resp.Text,
		Sources:    sources,
		Confidence: Confidence(results),
		Model:      resp.Model,
		Usage:      resp.Usage,
		Metadata: domain.SynthesisMetadata{
			Intent:          intent,
			Tone:            strings.TrimSpace(req.Tone),
			NumContextDocs:  len(contextDocs),
			RetrievalScores: relevanceScores(results),
		},
	}, nil
}

// SummarizeSession turns raw session notes into a structured summary using
// related campaign history as context.
func (uc *SynthesisUseCase) SummarizeSession(ctx context.Context, sessionNotes string) (*domain.SynthesisResult, error) {
	notes := strings.TrimSpace(sessionNotes)
	if notes == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "summarize session", errors.New("session notes are required"))
	}

	contextQuery := "campaign context session history " + truncateRunes(notes, sessionSummaryNotesRunes)
	results, err := uc.retriever.Search(ctx, contextQuery, sessionSummaryContext, "")
	if err != nil {
		return nil, fmt.Errorf("retrieve session context: %w", domain.WithStage(domain.StageRetrieval, err))
	}
	contextDocs, sources := formatContextDocs(results)

	request := "Please create a session summary and identify important story developments from these notes:\n\n" + notes
	resp, err := uc.router.Generate(ctx, sessionSummaryIntent, domain.GenerateRequest{
		Prompt:       buildRAGPrompt(request, contextDocs),
		SystemPrompt: buildRAGSystemPrompt(sessionSummaryPrompt),
		Temperature:  uc.settings.Temperature,
		MaxTokens:    uc.settings.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("generate session summary: %w", err)
	}

	return &domain.SynthesisResult{
		Content:    resp.Text,
		Sources:    sources,
		Confidence: Confidence(results),
		Model:      resp.Model,
		Usage:      resp.Usage,
		Metadata: domain.SynthesisMetadata{
			Intent:          sessionSummaryIntent,
			Type:            "campaign_update",
			NumContextDocs:  len(contextDocs),
			RetrievalScores: relevanceScores(results),
		},
	}, nil
}

// Confidence scores a synthesis by retrieval quality: the mean relevance
// plus 0.05 per source up to 0.2, capped at 1 and rounded to two decimals.
func Confidence(results []domain.RetrievalResult) float64 {
	if len(results) == 0 {
		return noContextConfidence
	}
	var sum float64
	for _, result := range results {
		sum += result.RelevanceScore
	}
	avg := sum / float64(len(results))
	bonus := math.Min(maxSourceBonus, float64(len(results))*perSourceBonus)
	return math.Round(math.Min(1, avg+bonus)*100) / 100
}

// ragIntent routes plain questions to the retrieval QA task.
func ragIntent(intent string) string {
	if intent == defaultSynthesisIntent {
		return TaskRAGQA
	}
	return intent
}

func formatContextDocs(results []domain.RetrievalResult) ([]string, []string) {
	docs := make([]string, 0, len(results))
	sources := make([]string, 0, len(results))
	for _, result := range results {
		title := result.SourceTitle
		if title == "" {
			title = unknownSourceTitle
		}
		docs = append(docs, fmt.Sprintf("Source: %s\n%s", title, result.Content))
		sources = append(sources, title)
	}
	return docs, sources
}

func relevanceScores(results []domain.RetrievalResult) []float64 {
	scores := make([]float64, 0, len(results))
	for _, result := range results {
		scores = append(scores, result.RelevanceScore)
	}
	return scores
}
