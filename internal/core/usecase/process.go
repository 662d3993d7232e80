package usecase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/campaign-assistant/internal/core/domain"
	"github.com/kirillkom/campaign-assistant/internal/core/ports"
)

type ProcessDocumentUseCase struct {
	repo       ports.DocumentRepository
	extractor  ports.TextExtractor
	classifier ports.ContentClassifier
	chunker    ports.Chunker
	embedder   ports.Embedder
	indexer    ports.DocumentIndexer
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	extractor ports.TextExtractor,
	classifier ports.ContentClassifier,
	chunker ports.Chunker,
	embedder ports.Embedder,
	indexer ports.DocumentIndexer,
) *ProcessDocumentUseCase {
	return &ProcessDocumentUseCase{
		repo:       repo,
		extractor:  extractor,
		classifier: classifier,
		chunker:    chunker,
		embedder:   embedder,
		indexer:    indexer,
	}
}

func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	if err := uc.markStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	result, err := uc.processPipeline(ctx, documentID)
	if err != nil {
		err = domain.WithStage(domain.StageIngestion, err)
		if failErr := uc.markFailed(ctx, documentID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.SaveProcessing(ctx, documentID, result); err != nil {
		err = fmt.Errorf("save processing result: %w", err)
		if failErr := uc.markFailed(ctx, documentID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.markStatus(ctx, documentID, domain.StatusReady, ""); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}

	return nil
}

func (uc *ProcessDocumentUseCase) processPipeline(ctx context.Context, documentID string) (domain.ProcessingResult, error) {
	doc, err := uc.loadDocument(ctx, documentID)
	if err != nil {
		return domain.ProcessingResult{}, err
	}

	extraction, err := uc.extractText(ctx, doc)
	if err != nil {
		return domain.ProcessingResult{}, err
	}

	doc.Title = documentTitle(extraction.Title, doc.Filename)
	if doc.ContentType == "" {
		contentType, err := uc.classifier.Classify(ctx, doc.Filename, extraction.Text)
		if err != nil {
			return domain.ProcessingResult{}, fmt.Errorf("classify content: %w", err)
		}
		doc.ContentType = contentType
	}

	chunks, err := uc.chunk(extraction.Text)
	if err != nil {
		return domain.ProcessingResult{}, err
	}

	vectors, err := uc.embed(ctx, chunks)
	if err != nil {
		return domain.ProcessingResult{}, err
	}

	if err := uc.indexer.IndexChunks(ctx, doc, chunks, vectors); err != nil {
		return domain.ProcessingResult{}, fmt.Errorf("index chunks in vector db: %w", err)
	}

	return domain.ProcessingResult{
		Title:       doc.Title,
		ContentType: doc.ContentType,
		WordCount:   len(strings.Fields(extraction.Text)),
		CharCount:   utf8.RuneCountInString(extraction.Text),
		ChunkCount:  len(chunks),
	}, nil
}

func (uc *ProcessDocumentUseCase) loadDocument(ctx context.Context, documentID string) (*domain.Document, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}
	return doc, nil
}

func (uc *ProcessDocumentUseCase) extractText(ctx context.Context, doc *domain.Document) (domain.Extraction, error) {
	extraction, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("extract text: %w", err)
	}
	if strings.TrimSpace(extraction.Text) == "" {
		return domain.Extraction{}, domain.WrapError(domain.ErrInvalidInput, "extract text", errors.New("empty extracted text"))
	}
	return extraction, nil
}

func (uc *ProcessDocumentUseCase) chunk(text string) ([]string, error) {
	chunks := uc.chunker.Split(text)
	if len(chunks) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "chunk document", errors.New("chunking produced zero chunks"))
	}
	return chunks, nil
}

func (uc *ProcessDocumentUseCase) embed(ctx context.Context, chunks []string) ([][]float32, error) {
	vectors, err := uc.embedder.Embed(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)),
		)
	}
	return vectors, nil
}

func (uc *ProcessDocumentUseCase) markStatus(ctx context.Context, documentID string, status domain.DocumentStatus, errMessage string) error {
	return uc.repo.UpdateStatus(ctx, documentID, status, errMessage)
}

func (uc *ProcessDocumentUseCase) markFailed(ctx context.Context, documentID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.markStatus(ctx, documentID, domain.StatusFailed, processErr.Error())
}

// documentTitle prefers the extracted title and falls back to the filename
// without its extension.
func documentTitle(extracted, filename string) string {
	if title := strings.TrimSpace(extracted); title != "" {
		return title
	}
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
