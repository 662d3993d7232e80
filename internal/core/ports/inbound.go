package ports

import (
	"context"
	"io"

	"github.com/kirillkom/campaign-assistant/internal/core/domain"
)

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType, contentType string, body io.Reader) (*domain.Document, error)
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context, limit, offset int) ([]domain.Document, error)
	Stats(ctx context.Context) (domain.DocumentStats, error)
}

// DocumentProcessor is the inbound contract for asynchronous document processing.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// Retriever is the inbound contract for context-aware campaign search.
type Retriever interface {
	Search(ctx context.Context, query string, maxResults int, contentTypeFilter string) ([]domain.RetrievalResult, error)
	ContextRelevantContent(ctx context.Context, query string, maxResults int) ([]domain.RetrievalResult, error)
	RelatedContent(ctx context.Context, documentID string, maxResults int) ([]domain.RetrievalResult, error)
	SearchByEntity(ctx context.Context, entityName, entityType string, maxResults int) ([]domain.RetrievalResult, error)
	SetContext(rc domain.RetrievalContext)
	Context() domain.RetrievalContext
}

// ModelRouting is the inbound contract for task-aware model selection.
type ModelRouting interface {
	Resolve(ctx context.Context, task string) (string, error)
	Generate(ctx context.Context, intent string, req domain.GenerateRequest) (*domain.GenerateResponse, error)
	Status(ctx context.Context) ([]domain.ModelStatus, error)
	SuggestMissing(ctx context.Context) ([]string, error)
	Refresh()
}

// Synthesizer is the inbound contract for grounded content generation.
type Synthesizer interface {
	Synthesize(ctx context.Context, req domain.SynthesisRequest) (*domain.SynthesisResult, error)
	SummarizeSession(ctx context.Context, sessionNotes string) (*domain.SynthesisResult, error)
}
