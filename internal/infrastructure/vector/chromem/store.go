// Package chromem is the embedded vector backend built on chromem-go. It keeps
// the index in process and optionally persists it to a directory.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"strings"

	chromemgo "github.com/philippgille/chromem-go"

	"github.com/kirillkom/campaign-assistant/internal/core/domain"
	"github.com/kirillkom/campaign-assistant/internal/core/ports"
	"github.com/kirillkom/campaign-assistant/internal/infrastructure/vector"
)

type Store struct {
	collection *chromemgo.Collection
	embedder   ports.Embedder
}

// New opens the collection. An empty path keeps the index in memory only.
func New(path, collection string, embedder ports.Embedder) (*Store, error) {
	if embedder == nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "open chromem store", errors.New("embedder is required"))
	}

	var db *chromemgo.DB
	if strings.TrimSpace(path) == "" {
		db = chromemgo.NewDB()
	} else {
		var err error
		db, err = chromemgo.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("open chromem db at %s: %w", path, err)
		}
	}

	embed := func(ctx context.Context, text string) ([]float32, error) {
		return embedder.EmbedQuery(ctx, text)
	}
	c, err := db.GetOrCreateCollection(collection, map[string]string{"purpose": "campaign_documents"}, embed)
	if err != nil {
		return nil, fmt.Errorf("get or create chromem collection %s: %w", collection, err)
	}
	return &Store{collection: c, embedder: embedder}, nil
}

// IndexChunks replaces any chunks previously stored for doc.
func (s *Store) IndexChunks(ctx context.Context, doc *domain.Document, chunks []string, vectors [][]float32) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := vector.ValidateBatch(chunks, vectors); err != nil {
		return err
	}

	if s.collection.Count() > 0 {
		if err := s.collection.Delete(ctx, map[string]string{domain.MetaDocumentID: doc.ID}, nil); err != nil {
			return fmt.Errorf("delete previous chunks of %s: %w", doc.ID, err)
		}
	}

	docs := make([]chromemgo.Document, 0, len(chunks))
	for i, chunk := range chunks {
		docs = append(docs, chromemgo.Document{
			ID:        vector.ChunkID(doc.ID, i),
			Content:   chunk,
			Metadata:  vector.ChunkMetadata(doc, i, len(chunks)),
			Embedding: vectors[i],
		})
	}
	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("add chunks to chromem: %w", err)
	}
	return nil
}

func (s *Store) Search(ctx context.Context, query string, limit int, filter domain.SearchFilter) ([]domain.Candidate, error) {
	count := s.collection.Count()
	if limit <= 0 || count == 0 {
		return []domain.Candidate{}, nil
	}
	if limit > count {
		limit = count
	}

	queryVector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var where map[string]string
	if filter.ContentType != "" {
		where = map[string]string{domain.MetaContentType: filter.ContentType}
	}
	results, err := s.collection.QueryEmbedding(ctx, queryVector, limit, where, nil)
	if err != nil {
		return nil, fmt.Errorf("query chromem: %w", err)
	}

	out := make([]domain.Candidate, 0, len(results))
	for _, r := range results {
		out = append(out, domain.Candidate{
			Content:    r.Content,
			Similarity: vector.Similarity(float64(r.Similarity)),
			Metadata:   copyMetadata(r.Metadata),
		})
	}
	return out, nil
}

// Chunks returns the stored chunks of documentID ordered by index. An unknown
// document has no chunks; cancellation is still reported.
func (s *Store) Chunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	first, err := s.collection.GetByID(ctx, vector.ChunkID(documentID, 0))
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return []domain.Chunk{}, nil
	}
	total, err := strconv.Atoi(first.Metadata[domain.MetaTotalChunks])
	if err != nil || total < 1 {
		total = 1
	}

	out := make([]domain.Chunk, 0, total)
	out = append(out, domain.Chunk{DocumentID: documentID, Index: 0, Text: first.Content})
	for i := 1; i < total; i++ {
		doc, err := s.collection.GetByID(ctx, vector.ChunkID(documentID, i))
		if err != nil {
			return nil, fmt.Errorf("load chunk %d of %s: %w", i, documentID, err)
		}
		out = append(out, domain.Chunk{DocumentID: documentID, Index: i, Text: doc.Content})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

func (s *Store) Count() int {
	return s.collection.Count()
}

func copyMetadata(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
