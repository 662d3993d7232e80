package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/campaign-assistant/internal/core/domain"
	"github.com/kirillkom/campaign-assistant/internal/core/ports"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// DocumentCatalogUseCase serves the document registry read model.
type DocumentCatalogUseCase struct {
	repo ports.DocumentRepository
}

func NewDocumentCatalogUseCase(repo ports.DocumentRepository) *DocumentCatalogUseCase {
	return &DocumentCatalogUseCase{repo: repo}
}

func (uc *DocumentCatalogUseCase) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get document", errors.New("document id is required"))
	}
	doc, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}
	return doc, nil
}

func (uc *DocumentCatalogUseCase) List(ctx context.Context, limit, offset int) ([]domain.Document, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	docs, err := uc.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

func (uc *DocumentCatalogUseCase) Stats(ctx context.Context) (domain.DocumentStats, error) {
	stats, err := uc.repo.Stats(ctx)
	if err != nil {
		return domain.DocumentStats{}, fmt.Errorf("document stats: %w", err)
	}
	return stats, nil
}
