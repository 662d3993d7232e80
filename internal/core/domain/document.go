package domain

import "time"

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

// Content types assigned to campaign documents at ingestion.
const (
	ContentTypeCharacter = "character"
	ContentTypeLocation  = "location"
	ContentTypeEncounter = "encounter"
	ContentTypeLore      = "lore"
	ContentTypeAdventure = "adventure"
	ContentTypeGeneral   = "general"
)

type Document struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Filename    string         `json:"filename"`
	MimeType    string         `json:"mime_type"`
	StoragePath string         `json:"storage_path"`
	FileType    string         `json:"file_type"`
	ContentType string         `json:"content_type,omitempty"`
	WordCount   int            `json:"word_count"`
	CharCount   int            `json:"character_count"`
	ChunkCount  int            `json:"chunk_count"`
	Status      DocumentStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Chunk is one indexed slice of a document. Index is the authoritative
// per-document order.
type Chunk struct {
	DocumentID string `json:"document_id"`
	Index      int    `json:"index"`
	Text       string `json:"text"`
}

// Extraction is the plain text pulled out of a stored source file.
type Extraction struct {
	Title string
	Text  string
}

// ProcessingResult is persisted once a document has been indexed.
type ProcessingResult struct {
	Title       string
	ContentType string
	WordCount   int
	CharCount   int
	ChunkCount  int
}

type DocumentStats struct {
	TotalDocuments int            `json:"total_documents"`
	TotalChunks    int            `json:"total_chunks"`
	ContentTypes   map[string]int `json:"content_types"`
	FileTypes      map[string]int `json:"file_types"`
}
