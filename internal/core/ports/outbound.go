package ports

import (
	"context"
	"io"

	"github.com/kirillkom/campaign-assistant/internal/core/domain"
)

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context, limit, offset int) ([]domain.Document, error)
	Stats(ctx context.Context) (domain.DocumentStats, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SaveProcessing(ctx context.Context, id string, result domain.ProcessingResult) error
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts plain text from a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (domain.Extraction, error)
}

// ContentClassifier assigns a campaign content type to extracted text.
type ContentClassifier interface {
	Classify(ctx context.Context, filename, text string) (string, error)
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Chunker splits text into overlapping chunks.
type Chunker interface {
	Split(text string) []string
}

// DocumentIndexer writes chunk vectors for a document.
type DocumentIndexer interface {
	IndexChunks(ctx context.Context, doc *domain.Document, chunks []string, vectors [][]float32) error
}

// VectorSearcher is the semantic search backend used by retrieval.
type VectorSearcher interface {
	Search(ctx context.Context, query string, limit int, filter domain.SearchFilter) ([]domain.Candidate, error)
	Chunks(ctx context.Context, documentID string) ([]domain.Chunk, error)
}

// VectorStore combines indexing and search on one backend.
type VectorStore interface {
	DocumentIndexer
	VectorSearcher
}

// ModelRuntime is the local model host.
type ModelRuntime interface {
	IsAvailable(ctx context.Context) bool
	ListAvailableModels(ctx context.Context) ([]string, error)
	Generate(ctx context.Context, req domain.GenerateRequest) (*domain.GenerateResponse, error)
}

// GenerationObserver receives one call per routed generation.
type GenerationObserver interface {
	ObserveGeneration(task, model string, fallback bool, usage domain.Usage, err error)
}
