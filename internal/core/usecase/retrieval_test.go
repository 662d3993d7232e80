package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/kirillkom/campaign-assistant/internal/core/domain"
)

func testRetrievalSettings() domain.RetrievalSettings {
	return domain.RetrievalSettings{
		DefaultMaxResults:          5,
		SimilarityThreshold:        0.3,
		EnableIntentClassification: true,
		EnableContextBoosting:      true,
	}
}

func TestNormalizeQuery(t *testing.T) {
	cases := map[string]string{
		"  What   AC does\tthe NPC have? ": "what armor class does the non-player character have?",
		"DM notes for the PC":              "dungeon master notes for the player character",
		"hp of the dragon":                 "hit points of the dragon",
		"acid trap in the pcb room":        "acid trap in the pcb room",
	}
	for in, want := range cases {
		if got := NormalizeQuery(in); got != want {
			t.Fatalf("NormalizeQuery(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSearchEmptyQueryReturnsEmpty(t *testing.T) {
	searcher := &searcherFake{}
	uc := NewRetrievalUseCase(searcher, testRetrievalSettings())

	results, err := uc.Search(context.Background(), "   ", 5, "")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Fatalf("expected empty non-nil results, got %#v", results)
	}
	if len(searcher.calls) != 0 {
		t.Fatalf("expected no vector search, got %d calls", len(searcher.calls))
	}
}

func TestSearchSilverbrookVillage(t *testing.T) {
	searcher := &searcherFake{candidates: []domain.Candidate{
		candidate("doc-silverbrook", "Silverbrook Village", "location", "Silverbrook Village sits on the river.", 0.82),
	}}
	uc := NewRetrievalUseCase(searcher, testRetrievalSettings())

	results, err := uc.Search(context.Background(), "Tell me about Silverbrook Village", 5, "")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one result, got %d", len(results))
	}
	if results[0].SourceTitle != "Silverbrook Village" || results[0].ContentType != "location" {
		t.Fatalf("unexpected top result: %+v", results[0])
	}
	if searcher.calls[0].filter.ContentType != "character" {
		t.Fatalf("expected intent-derived character filter first, got %+v", searcher.calls[0])
	}
	call := searcher.lastCall()
	if call.limit != 10 || call.filter.ContentType != "" {
		t.Fatalf("expected unfiltered over-fetch of 10, got %+v", call)
	}
	if call.query != "tell me about silverbrook village" {
		t.Fatalf("expected normalized query, got %q", call.query)
	}
}

func TestSearchDerivesFilterFromIntent(t *testing.T) {
	searcher := &searcherFake{}
	uc := NewRetrievalUseCase(searcher, testRetrievalSettings())

	if _, err := uc.Search(context.Background(), "who is this NPC villain", 3, ""); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got := searcher.calls[0].filter.ContentType; got != "character" {
		t.Fatalf("expected character filter, got %q", got)
	}
	if len(searcher.calls) != 2 || searcher.lastCall().filter.ContentType != "" {
		t.Fatalf("expected unfiltered retry after empty filtered search, got %+v", searcher.calls)
	}
	searcher.calls = nil

	if _, err := uc.Search(context.Background(), "who is this NPC villain", 3, "lore"); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(searcher.calls) != 1 || searcher.calls[0].filter.ContentType != "lore" {
		t.Fatalf("expected single search with caller filter, got %+v", searcher.calls)
	}
}

func TestSearchKeepsDerivedFilterWhenItMatches(t *testing.T) {
	searcher := &searcherFake{candidates: []domain.Candidate{
		candidate("loc", "Castle Ravenloft", "location", "castle", 0.9),
		candidate("npc", "Strahd", "character", "strahd", 0.6),
	}}
	uc := NewRetrievalUseCase(searcher, testRetrievalSettings())

	results, err := uc.Search(context.Background(), "who is the villain", 3, "")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(searcher.calls) != 1 {
		t.Fatalf("expected a single filtered search, got %d", len(searcher.calls))
	}
	if len(results) != 1 || results[0].SourceTitle != "Strahd" {
		t.Fatalf("expected only the character document, got %+v", results)
	}
}

func TestSearchWithoutIntentClassificationDoesNotFilter(t *testing.T) {
	searcher := &searcherFake{}
	settings := testRetrievalSettings()
	settings.EnableIntentClassification = false
	uc := NewRetrievalUseCase(searcher, settings)

	if _, err := uc.Search(context.Background(), "who is this NPC villain", 3, ""); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got := searcher.lastCall().filter.ContentType; got != "" {
		t.Fatalf("expected no filter, got %q", got)
	}
}

func TestSearchRanksTruncatesAndMapsDefaults(t *testing.T) {
	searcher := &searcherFake{candidates: []domain.Candidate{
		{Content: "orphan", Similarity: 0.9, Metadata: map[string]string{domain.MetaDocumentID: "x"}},
		candidate("a", "A", "lore", "a-0", 0.5),
		candidate("a", "A", "lore", "a-1", 0.95),
		candidate("b", "B", "lore", "b-0", 0.7),
		candidate("c", "C", "lore", "c-0", 0.2),
	}}
	uc := NewRetrievalUseCase(searcher, testRetrievalSettings())

	results, err := uc.Search(context.Background(), "roll initiative", 2, "")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Content != "orphan" || results[0].SourceTitle != "Unknown" || results[0].ContentType != "general" || results[0].SourcePath != "" {
		t.Fatalf("unexpected defaults: %+v", results[0])
	}
	if results[1].Content != "b-0" {
		t.Fatalf("expected b-0 second, got %q", results[1].Content)
	}
}

func TestSearchAppliesContextSnapshot(t *testing.T) {
	searcher := &searcherFake{candidates: []domain.Candidate{
		candidate("a", "Generic Tavern", "location", "a", 0.8),
		candidate("b", "Phandelver Tavern", "location", "b", 0.75),
	}}
	uc := NewRetrievalUseCase(searcher, testRetrievalSettings())
	uc.SetContext(domain.RetrievalContext{CurrentCampaign: "Phandelver"})

	results, err := uc.Search(context.Background(), "tavern", 5, "")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if results[0].SourceTitle != "Phandelver Tavern" {
		t.Fatalf("expected boosted campaign doc first, got %s", results[0].SourceTitle)
	}

	settings := testRetrievalSettings()
	settings.EnableContextBoosting = false
	plain := NewRetrievalUseCase(searcher, settings)
	plain.SetContext(domain.RetrievalContext{CurrentCampaign: "Phandelver"})
	results, err = plain.Search(context.Background(), "tavern", 5, "")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if results[0].SourceTitle != "Generic Tavern" {
		t.Fatalf("expected unboosted order, got %s", results[0].SourceTitle)
	}
}

func TestSearchVectorErrorCarriesStage(t *testing.T) {
	uc := NewRetrievalUseCase(&searcherFake{err: errors.New("connection refused")}, testRetrievalSettings())

	_, err := uc.Search(context.Background(), "dragon lair", 5, "")
	if err == nil {
		t.Fatalf("expected error")
	}
	if stage, ok := domain.StageOf(err); !ok || stage != domain.StageRetrieval {
		t.Fatalf("expected retrieval stage, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrUnavailable) {
		t.Fatalf("expected unavailable kind, got %v", err)
	}
}

func TestSearchCancellationIsNotUnavailable(t *testing.T) {
	uc := NewRetrievalUseCase(&searcherFake{err: context.Canceled}, testRetrievalSettings())

	_, err := uc.Search(context.Background(), "dragon lair", 5, "")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if domain.IsKind(err, domain.ErrUnavailable) {
		t.Fatalf("cancellation must not be reported as unavailable: %v", err)
	}
}

func TestSetContextReplacesWholesale(t *testing.T) {
	uc := NewRetrievalUseCase(&searcherFake{}, testRetrievalSettings())
	npcs := []string{"Strahd", "", "Ireena", "Strahd"}
	uc.SetContext(domain.RetrievalContext{
		CurrentCampaign: "Curse of Strahd",
		CurrentLocation: "Barovia",
		ActiveNPCs:      npcs,
	})
	npcs[0] = "mutated"

	got := uc.Context()
	if len(got.ActiveNPCs) != 2 || got.ActiveNPCs[0] != "Strahd" || got.ActiveNPCs[1] != "Ireena" {
		t.Fatalf("unexpected npcs: %v", got.ActiveNPCs)
	}

	uc.SetContext(domain.RetrievalContext{CurrentLocation: "Vallaki"})
	got = uc.Context()
	if got.CurrentCampaign != "" || got.CurrentLocation != "Vallaki" || len(got.ActiveNPCs) != 0 {
		t.Fatalf("expected wholesale replacement, got %+v", got)
	}
}

func TestContextRelevantContentAppendsContext(t *testing.T) {
	searcher := &searcherFake{}
	uc := NewRetrievalUseCase(searcher, testRetrievalSettings())
	uc.SetContext(domain.RetrievalContext{
		CurrentCampaign: "Strahd",
		CurrentLocation: "Barovia",
		ActiveNPCs:      []string{"Ireena", "Ismark"},
	})

	if _, err := uc.ContextRelevantContent(context.Background(), "Plot", 0); err != nil {
		t.Fatalf("ContextRelevantContent() error = %v", err)
	}
	call := searcher.lastCall()
	if call.query != "plot barovia strahd ireena ismark" {
		t.Fatalf("unexpected augmented query %q", call.query)
	}
	if call.limit != 10 {
		t.Fatalf("expected default max results over-fetched to 10, got %d", call.limit)
	}
}

func TestRelatedContentExcludesSourceDocument(t *testing.T) {
	long := strings.Repeat("x", 600)
	searcher := &searcherFake{
		chunks: map[string][]domain.Chunk{
			"doc-a": {
				{DocumentID: "doc-a", Index: 1, Text: "second chunk"},
				{DocumentID: "doc-a", Index: 0, Text: long},
			},
		},
		candidates: []domain.Candidate{
			candidate("doc-a", "A", "lore", "self", 0.99),
			candidate("doc-b", "B", "lore", "b", 0.8),
			candidate("doc-c", "C", "lore", "c", 0.1),
			candidate("doc-d", "D", "lore", "d", 0.7),
		},
	}
	uc := NewRetrievalUseCase(searcher, testRetrievalSettings())

	results, err := uc.RelatedContent(context.Background(), "doc-a", 2)
	if err != nil {
		t.Fatalf("RelatedContent() error = %v", err)
	}
	if len(results) != 2 || results[0].Content != "b" || results[1].Content != "c" {
		t.Fatalf("unexpected related results: %+v", results)
	}
	call := searcher.lastCall()
	if len(call.query) != 500 {
		t.Fatalf("expected 500-char query from first chunk, got %d", len(call.query))
	}
	if call.limit != 7 || call.filter.ContentType != "" {
		t.Fatalf("unexpected related search call: %+v", call)
	}
}

func TestContextRelevantContentUsesOneSnapshot(t *testing.T) {
	searcher := &searcherFake{candidates: []domain.Candidate{
		candidate("a", "Generic Tavern", "location", "a", 0.8),
		candidate("b", "Strahd Tavern", "location", "b", 0.78),
		candidate("c", "Phandelver Tavern", "location", "c", 0.75),
	}}
	uc := NewRetrievalUseCase(searcher, testRetrievalSettings())
	uc.SetContext(domain.RetrievalContext{CurrentCampaign: "Phandelver"})
	searcher.onSearch = func() {
		uc.SetContext(domain.RetrievalContext{CurrentCampaign: "Strahd"})
	}

	results, err := uc.ContextRelevantContent(context.Background(), "tavern", 3)
	if err != nil {
		t.Fatalf("ContextRelevantContent() error = %v", err)
	}
	if got := searcher.lastCall().query; got != "tavern phandelver" {
		t.Fatalf("unexpected augmented query %q", got)
	}
	if results[0].SourceTitle != "Phandelver Tavern" {
		t.Fatalf("expected boost from the entry snapshot, got %s first", results[0].SourceTitle)
	}
}

func TestRetrievalCapsRequestedLimits(t *testing.T) {
	searcher := &searcherFake{
		chunks: map[string][]domain.Chunk{
			"doc-1": {{DocumentID: "doc-1", Index: 0, Text: "Grak guards the bridge"}},
		},
		candidates: []domain.Candidate{candidate("doc-2", "Bridge", "location", "b", 0.8)},
	}
	uc := NewRetrievalUseCase(searcher, testRetrievalSettings())
	ctx := context.Background()

	if _, err := uc.RelatedContent(ctx, "doc-1", 1<<40); err != nil {
		t.Fatalf("RelatedContent() error = %v", err)
	}
	if got := searcher.lastCall().limit; got != 55 {
		t.Fatalf("expected related limit capped to 50 plus over-fetch, got %d", got)
	}

	if _, err := uc.SearchByEntity(ctx, "Grak", "character", 1<<62); err != nil {
		t.Fatalf("SearchByEntity() error = %v", err)
	}
	if got := searcher.lastCall().limit; got != 100 {
		t.Fatalf("expected entity limit capped to 50 and over-fetched to 100, got %d", got)
	}

	settings := testRetrievalSettings()
	settings.MaxResultsLimit = 4
	small := NewRetrievalUseCase(searcher, settings)
	if _, err := small.Search(ctx, "bridge", 0, ""); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got := searcher.lastCall().limit; got != 8 {
		t.Fatalf("expected default clamped to configured limit 4, got limit %d", got)
	}
}

func TestRelatedContentNoChunks(t *testing.T) {
	searcher := &searcherFake{}
	uc := NewRetrievalUseCase(searcher, testRetrievalSettings())

	results, err := uc.RelatedContent(context.Background(), "missing", 3)
	if err != nil {
		t.Fatalf("RelatedContent() error = %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
	if len(searcher.calls) != 0 {
		t.Fatalf("expected no search without chunks")
	}
}

func TestSearchByEntityUsesTypeAsFilter(t *testing.T) {
	searcher := &searcherFake{}
	uc := NewRetrievalUseCase(searcher, testRetrievalSettings())

	if _, err := uc.SearchByEntity(context.Background(), "Strahd", "character", 3); err != nil {
		t.Fatalf("SearchByEntity() error = %v", err)
	}
	call := searcher.lastCall()
	if call.query != "strahd character" || call.filter.ContentType != "character" {
		t.Fatalf("unexpected entity search call: %+v", call)
	}
}

func TestSearchConcurrentWithSetContext(t *testing.T) {
	searcher := &searcherFake{candidates: []domain.Candidate{candidate("a", "A", "lore", "a", 0.8)}}
	uc := NewRetrievalUseCase(searcher, testRetrievalSettings())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := uc.Search(context.Background(), "lore", 3, ""); err != nil {
				t.Errorf("Search() error = %v", err)
			}
		}()
		go func(i int) {
			defer wg.Done()
			uc.SetContext(domain.RetrievalContext{ContentPreferences: map[string]float64{"lore": float64(i)}})
		}(i)
	}
	wg.Wait()
}
