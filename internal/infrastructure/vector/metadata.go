// Package vector holds what the vector backends share: chunk ids, chunk
// metadata and score normalization.
package vector

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/kirillkom/campaign-assistant/internal/core/domain"
)

func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", documentID, index)
}

// ChunkMetadata is the metadata stored with every indexed chunk.
func ChunkMetadata(doc *domain.Document, index, total int) map[string]string {
	contentType := doc.ContentType
	if contentType == "" {
		contentType = domain.ContentTypeGeneral
	}
	created := doc.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return map[string]string{
		domain.MetaDocumentID:    doc.ID,
		domain.MetaDocumentTitle: doc.Title,
		domain.MetaContentType:   contentType,
		domain.MetaFilePath:      doc.StoragePath,
		domain.MetaFileType:      doc.FileType,
		domain.MetaChunkIndex:    strconv.Itoa(index),
		domain.MetaTotalChunks:   strconv.Itoa(total),
		domain.MetaCreatedAt:     created.Format(time.RFC3339),
	}
}

// Similarity maps a cosine score into [0,1]. Negative cosine means unrelated.
func Similarity(cosine float64) float64 {
	if math.IsNaN(cosine) || cosine < 0 {
		return 0
	}
	if cosine > 1 {
		return 1
	}
	return cosine
}

// ValidateBatch checks that chunks and vectors line up.
func ValidateBatch(chunks []string, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return domain.WrapError(domain.ErrInvalidInput, "index chunks", fmt.Errorf("chunks/vectors mismatch: %d/%d", len(chunks), len(vectors)))
	}
	return nil
}
