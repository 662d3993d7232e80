package chromem

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kirillkom/campaign-assistant/internal/core/domain"
)

type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f *fakeEmbedder) Embed(ctx context.Context, chunks []string) ([][]float32, error) {
	out := make([][]float32, 0, len(chunks))
	for _, c := range chunks {
		v, err := f.EmbedQuery(ctx, c)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	v, ok := f.vectors[text]
	if !ok {
		return nil, errors.New("unknown text")
	}
	return v, nil
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"tavern":    {1, 0, 0},
		"dragon":    {0, 1, 0},
		"unrelated": {0, 0, 1},
	}}
	store, err := New("", "campaign_documents", embedder)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func testDocument(id, title, contentType string) *domain.Document {
	return &domain.Document{
		ID:          id,
		Title:       title,
		ContentType: contentType,
		StoragePath: "/data/" + id,
		FileType:    "md",
		CreatedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestSearchReturnsRankedCandidatesWithMetadata(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.IndexChunks(ctx, testDocument("doc-1", "The Prancing Pony", "location"),
		[]string{"The tavern is warm.", "Innkeeper Barliman."},
		[][]float32{{1, 0, 0}, {0.8, 0.6, 0}}); err != nil {
		t.Fatalf("index doc-1: %v", err)
	}
	if err := store.IndexChunks(ctx, testDocument("doc-2", "Smaug", "character"),
		[]string{"A red dragon."}, [][]float32{{0, 1, 0}}); err != nil {
		t.Fatalf("index doc-2: %v", err)
	}

	got, err := store.Search(ctx, "tavern", 10, domain.SearchFilter{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(got))
	}
	if got[0].Content != "The tavern is warm." {
		t.Fatalf("unexpected top candidate: %q", got[0].Content)
	}
	if got[0].Similarity < 0.99 {
		t.Fatalf("expected near-perfect similarity, got %f", got[0].Similarity)
	}
	if got[2].Similarity != 0 {
		t.Fatalf("orthogonal chunk should score 0, got %f", got[2].Similarity)
	}
	meta := got[0].Metadata
	if meta[domain.MetaDocumentTitle] != "The Prancing Pony" || meta[domain.MetaChunkIndex] != "0" || meta[domain.MetaTotalChunks] != "2" {
		t.Fatalf("unexpected metadata: %#v", meta)
	}
}

func TestSearchAppliesContentTypeFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_ = store.IndexChunks(ctx, testDocument("doc-1", "Inn", "location"), []string{"inn"}, [][]float32{{1, 0, 0}})
	_ = store.IndexChunks(ctx, testDocument("doc-2", "Smaug", "character"), []string{"dragon"}, [][]float32{{0.9, 0.1, 0}})

	got, err := store.Search(ctx, "tavern", 5, domain.SearchFilter{ContentType: "character"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].DocumentID() != "doc-2" {
		t.Fatalf("expected only doc-2, got %#v", got)
	}
}

func TestSearchOnEmptyCollection(t *testing.T) {
	store := newTestStore(t)
	got, err := store.Search(context.Background(), "tavern", 5, domain.SearchFilter{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no candidates, got %d", len(got))
	}
}

func TestIndexChunksReplacesPreviousChunks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	doc := testDocument("doc-1", "Inn", "location")

	_ = store.IndexChunks(ctx, doc, []string{"a", "b", "c"}, [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}})
	if err := store.IndexChunks(ctx, doc, []string{"only"}, [][]float32{{1, 0, 0}}); err != nil {
		t.Fatalf("reindex: %v", err)
	}
	if store.Count() != 1 {
		t.Fatalf("expected 1 stored chunk, got %d", store.Count())
	}
}

func TestIndexChunksRejectsMismatchedVectors(t *testing.T) {
	store := newTestStore(t)
	err := store.IndexChunks(context.Background(), testDocument("doc-1", "Inn", "location"), []string{"a", "b"}, [][]float32{{1, 0, 0}})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestChunksReturnsOrderedChunks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_ = store.IndexChunks(ctx, testDocument("doc-1", "Inn", "location"),
		[]string{"first", "second", "third"}, [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}})

	chunks, err := store.Chunks(ctx, "doc-1")
	if err != nil {
		t.Fatalf("chunks: %v", err)
	}
	if len(chunks) != 3 || chunks[0].Text != "first" || chunks[2].Text != "third" {
		t.Fatalf("unexpected chunks: %#v", chunks)
	}

	missing, err := store.Chunks(ctx, "missing")
	if err != nil || len(missing) != 0 {
		t.Fatalf("expected no chunks for unknown document, got %#v, %v", missing, err)
	}
}

func TestChunksReportsCancellation(t *testing.T) {
	store := newTestStore(t)
	_ = store.IndexChunks(context.Background(), testDocument("doc-1", "Inn", "location"),
		[]string{"first"}, [][]float32{{1, 0, 0}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	chunks, err := store.Chunks(ctx, "doc-1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if chunks != nil {
		t.Fatalf("expected no chunks on cancellation, got %#v", chunks)
	}

	deadline, stop := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer stop()
	if _, err := store.Chunks(deadline, "missing"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded for unknown document, got %v", err)
	}
}
