package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/kirillkom/campaign-assistant/internal/core/domain"
	"github.com/kirillkom/campaign-assistant/internal/core/ports"
)

const (
	defaultMaxResults     = 5
	defaultResultsCeiling = 50
	defaultRelatedResults = 3
	relatedQueryRunes     = 500
	relatedOverfetch      = 5
	searchOverfetchFactor = 2
	unknownSourceTitle    = "Unknown"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

type abbreviation struct {
	pattern   *regexp.Regexp
	expansion string
}

var abbreviations = []abbreviation{
	{pattern: regexp.MustCompile(`\bdm\b`), expansion: "dungeon master"},
	{pattern: regexp.MustCompile(`\bpc\b`), expansion: "player character"},
	{pattern: regexp.MustCompile(`\bnpc\b`), expansion: "non-player character"},
	{pattern: regexp.MustCompile(`\bhp\b`), expansion: "hit points"},
	{pattern: regexp.MustCompile(`\bac\b`), expansion: "armor class"},
}

// NormalizeQuery collapses whitespace, lower-cases and expands tabletop
// abbreviations as whole words.
func NormalizeQuery(query string) string {
	cleaned := whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(query)), " ")
	for _, abbr := range abbreviations {
		cleaned = abbr.pattern.ReplaceAllLiteralString(cleaned, abbr.expansion)
	}
	return cleaned
}

type RetrievalUseCase struct {
	searcher ports.VectorSearcher
	settings domain.RetrievalSettings

	mu      sync.RWMutex
	current domain.RetrievalContext
}

func NewRetrievalUseCase(searcher ports.VectorSearcher, settings domain.RetrievalSettings) *RetrievalUseCase {
	if settings.MaxResultsLimit <= 0 {
		settings.MaxResultsLimit = defaultResultsCeiling
	}
	if settings.DefaultMaxResults <= 0 {
		settings.DefaultMaxResults = defaultMaxResults
	}
	if settings.DefaultMaxResults > settings.MaxResultsLimit {
		settings.DefaultMaxResults = settings.MaxResultsLimit
	}
	return &RetrievalUseCase{
		searcher: searcher,
		settings: settings,
	}
}

// SetContext replaces the campaign context. Searches already running keep
// the snapshot they started with.
func (uc *RetrievalUseCase) SetContext(rc domain.RetrievalContext) {
	next := rc.Clone()
	uc.mu.Lock()
	uc.current = next
	uc.mu.Unlock()
}

func (uc *RetrievalUseCase) Context() domain.RetrievalContext {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	return uc.current.Clone()
}

// resultLimit maps a requested result count onto [1, MaxResultsLimit],
// using fallback when nothing was requested.
func (uc *RetrievalUseCase) resultLimit(requested, fallback int) int {
	if requested <= 0 {
		requested = fallback
	}
	if requested > uc.settings.MaxResultsLimit {
		return uc.settings.MaxResultsLimit
	}
	return requested
}

func (uc *RetrievalUseCase) Search(
	ctx context.Context,
	query string,
	maxResults int,
	contentTypeFilter string,
) ([]domain.RetrievalResult, error) {
	return uc.search(ctx, uc.Context(), query, maxResults, contentTypeFilter)
}

// search runs the pipeline against rc, the context snapshot taken by the
// caller on entry.
func (uc *RetrievalUseCase) search(
	ctx context.Context,
	rc domain.RetrievalContext,
	query string,
	maxResults int,
	contentTypeFilter string,
) ([]domain.RetrievalResult, error) {
	if strings.TrimSpace(query) == "" {
		return []domain.RetrievalResult{}, nil
	}
	maxResults = uc.resultLimit(maxResults, uc.settings.DefaultMaxResults)

	normalized := NormalizeQuery(query)
	intent := domain.IntentGeneralSearch
	if uc.settings.EnableIntentClassification {
		intent = ClassifyIntent(query)
	}
	filter := strings.TrimSpace(contentTypeFilter)
	derived := false
	if filter == "" {
		filter = ContentTypeFilter(intent)
		derived = filter != ""
	}

	limit := maxResults * searchOverfetchFactor
	candidates, err := uc.searcher.Search(ctx, normalized, limit, domain.SearchFilter{ContentType: filter})
	if err != nil {
		return nil, domain.WithStage(domain.StageRetrieval, collaboratorError("search vector store", err))
	}
	ranked := rankCandidates(candidates, rc, uc.settings.SimilarityThreshold, uc.settings.EnableContextBoosting)

	// An intent guess must not hide documents the caller never excluded.
	if len(ranked) == 0 && derived {
		slog.Debug("retrieval_filter_relaxed", "intent", string(intent), "content_type_filter", filter)
		filter = ""
		candidates, err = uc.searcher.Search(ctx, normalized, limit, domain.SearchFilter{})
		if err != nil {
			return nil, domain.WithStage(domain.StageRetrieval, collaboratorError("search vector store", err))
		}
		ranked = rankCandidates(candidates, rc, uc.settings.SimilarityThreshold, uc.settings.EnableContextBoosting)
	}

	if len(ranked) > maxResults {
		ranked = ranked[:maxResults]
	}

	slog.Debug("retrieval_search",
		"intent", string(intent),
		"content_type_filter", filter,
		"candidates", len(candidates),
		"results", len(ranked),
	)
	return toRetrievalResults(ranked), nil
}

// ContextRelevantContent searches with the current location, campaign and
// active NPCs appended to the query.
func (uc *RetrievalUseCase) ContextRelevantContent(ctx context.Context, query string, maxResults int) ([]domain.RetrievalResult, error) {
	if strings.TrimSpace(query) == "" {
		return []domain.RetrievalResult{}, nil
	}
	rc := uc.Context()
	return uc.search(ctx, rc, enrichQuery(query, rc), maxResults, "")
}

func enrichQuery(query string, rc domain.RetrievalContext) string {
	var b strings.Builder
	b.WriteString(query)
	if rc.CurrentLocation != "" {
		b.WriteString(" ")
		b.WriteString(rc.CurrentLocation)
	}
	if rc.CurrentCampaign != "" {
		b.WriteString(" ")
		b.WriteString(rc.CurrentCampaign)
	}
	if len(rc.ActiveNPCs) > 0 {
		b.WriteString(" ")
		b.WriteString(strings.Join(rc.ActiveNPCs, " "))
	}
	return b.String()
}

// RelatedContent finds other documents similar to the opening of documentID.
func (uc *RetrievalUseCase) RelatedContent(ctx context.Context, documentID string, maxResults int) ([]domain.RetrievalResult, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "related content", errors.New("document id is required"))
	}
	maxResults = uc.resultLimit(maxResults, defaultRelatedResults)

	chunks, err := uc.searcher.Chunks(ctx, documentID)
	if err != nil {
		return nil, domain.WithStage(domain.StageRetrieval, collaboratorError("load document chunks", err))
	}
	if len(chunks) == 0 {
		return []domain.RetrievalResult{}, nil
	}

	first := chunks[0]
	for _, chunk := range chunks[1:] {
		if chunk.Index < first.Index {
			first = chunk
		}
	}
	query := strings.TrimSpace(truncateRunes(first.Text, relatedQueryRunes))
	if query == "" {
		return []domain.RetrievalResult{}, nil
	}

	candidates, err := uc.searcher.Search(ctx, query, maxResults+relatedOverfetch, domain.SearchFilter{})
	if err != nil {
		return nil, domain.WithStage(domain.StageRetrieval, collaboratorError("search related content", err))
	}

	related := make([]domain.Candidate, 0, maxResults)
	for _, candidate := range candidates {
		if candidate.DocumentID() == documentID {
			continue
		}
		related = append(related, candidate)
		if len(related) == maxResults {
			break
		}
	}
	return toRetrievalResults(related), nil
}

// SearchByEntity looks up a named entity, filtering by entityType when set.
func (uc *RetrievalUseCase) SearchByEntity(ctx context.Context, entityName, entityType string, maxResults int) ([]domain.RetrievalResult, error) {
	entityName = strings.TrimSpace(entityName)
	entityType = strings.TrimSpace(entityType)
	query := entityName
	if entityName != "" && entityType != "" {
		query += " " + entityType
	}
	return uc.Search(ctx, query, maxResults, entityType)
}

func toRetrievalResults(candidates []domain.Candidate) []domain.RetrievalResult {
	out := make([]domain.RetrievalResult, 0, len(candidates))
	for _, candidate := range candidates {
		metadata := make(map[string]string, len(candidate.Metadata))
		for k, v := range candidate.Metadata {
			metadata[k] = v
		}
		out = append(out, domain.RetrievalResult{
			Content:        candidate.Content,
			SourceTitle:    candidate.Meta(domain.MetaDocumentTitle, unknownSourceTitle),
			SourcePath:     candidate.Metadata[domain.MetaFilePath],
			ContentType:    candidate.Meta(domain.MetaContentType, domain.ContentTypeGeneral),
			RelevanceScore: candidate.Similarity,
			Metadata:       metadata,
		})
	}
	return out
}

// collaboratorError marks a failed external call as unavailable unless it
// already carries a caller-facing kind.
func collaboratorError(op string, err error) error {
	switch {
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		domain.IsKind(err, domain.ErrInvalidInput),
		domain.IsKind(err, domain.ErrDocumentNotFound),
		domain.IsKind(err, domain.ErrUnavailable),
		domain.IsKind(err, domain.ErrNoModelsAvailable):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return domain.WrapError(domain.ErrUnavailable, op, err)
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
