package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/campaign-assistant/internal/core/domain"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101801)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS campaign_documents (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	filename TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	file_type TEXT NOT NULL DEFAULT '',
	content_type TEXT NOT NULL DEFAULT '',
	word_count INTEGER NOT NULL DEFAULT 0,
	char_count INTEGER NOT NULL DEFAULT 0,
	chunk_count INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_campaign_documents_status ON campaign_documents(status);
CREATE INDEX IF NOT EXISTS idx_campaign_documents_content_type ON campaign_documents(content_type);
CREATE INDEX IF NOT EXISTS idx_campaign_documents_created_at ON campaign_documents(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO campaign_documents (
	id, title, filename, mime_type, storage_path, file_type, content_type, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		doc.ID, doc.Title, doc.Filename, doc.MimeType, doc.StoragePath, doc.FileType, doc.ContentType,
		string(doc.Status), doc.Error, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

const selectDocument = `
SELECT id, title, filename, mime_type, storage_path, file_type, content_type,
	word_count, char_count, chunk_count, status, COALESCE(error_message, ''), created_at, updated_at
FROM campaign_documents`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (domain.Document, error) {
	var doc domain.Document
	var status string
	err := row.Scan(
		&doc.ID, &doc.Title, &doc.Filename, &doc.MimeType, &doc.StoragePath, &doc.FileType, &doc.ContentType,
		&doc.WordCount, &doc.CharCount, &doc.ChunkCount, &status, &doc.Error, &doc.CreatedAt, &doc.UpdatedAt,
	)
	doc.Status = domain.DocumentStatus(status)
	return doc, err
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	doc, err := scanDocument(r.db.QueryRowContext(ctx, selectDocument+`
WHERE id = $1
`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) List(ctx context.Context, limit, offset int) ([]domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, selectDocument+`
ORDER BY created_at DESC, id
LIMIT $1 OFFSET $2
`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Document, 0, limit)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

// Stats counts ready documents and their chunks, grouped by content and file
// type.
func (r *DocumentRepository) Stats(ctx context.Context) (domain.DocumentStats, error) {
	stats := domain.DocumentStats{
		ContentTypes: map[string]int{},
		FileTypes:    map[string]int{},
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT content_type, file_type, COUNT(*), COALESCE(SUM(chunk_count), 0)
FROM campaign_documents
WHERE status = $1
GROUP BY content_type, file_type
`, string(domain.StatusReady))
	if err != nil {
		return domain.DocumentStats{}, fmt.Errorf("query document stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var contentType, fileType string
		var documents, chunks int
		if err := rows.Scan(&contentType, &fileType, &documents, &chunks); err != nil {
			return domain.DocumentStats{}, fmt.Errorf("scan document stats: %w", err)
		}
		if contentType == "" {
			contentType = domain.ContentTypeGeneral
		}
		if fileType == "" {
			fileType = "unknown"
		}
		stats.TotalDocuments += documents
		stats.TotalChunks += chunks
		stats.ContentTypes[contentType] += documents
		stats.FileTypes[fileType] += documents
	}
	if err := rows.Err(); err != nil {
		return domain.DocumentStats{}, fmt.Errorf("iterate document stats: %w", err)
	}
	return stats, nil
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE campaign_documents
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return requireAffected(res, "update document status", id)
}

func (r *DocumentRepository) SaveProcessing(ctx context.Context, id string, result domain.ProcessingResult) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE campaign_documents
SET title = $2, content_type = $3, word_count = $4, char_count = $5, chunk_count = $6, updated_at = $7
WHERE id = $1
`, id, result.Title, result.ContentType, result.WordCount, result.CharCount, result.ChunkCount, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save processing result: %w", err)
	}
	return requireAffected(res, "save processing result", id)
}

func requireAffected(res sql.Result, op, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, op, fmt.Errorf("id=%s", id))
	}
	return nil
}
