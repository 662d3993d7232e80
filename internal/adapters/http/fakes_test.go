package httpadapter

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/kirillkom/campaign-assistant/internal/config"
	"github.com/kirillkom/campaign-assistant/internal/core/domain"
)

type ingestFake struct {
	err         error
	contentType string
}

func (f *ingestFake) Upload(_ context.Context, filename, mimeType, contentType string, body io.Reader) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", io.EOF)
	}
	f.contentType = contentType

	now := time.Now().UTC()
	return &domain.Document{
		ID:          "doc-1",
		Filename:    filename,
		MimeType:    mimeType,
		ContentType: contentType,
		StoragePath: "doc-1_" + filename,
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

type docsFake struct {
	err        error
	listLimit  int
	listOffset int
}

func (f *docsFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Document{ID: id, Title: "Silverbrook", Filename: "a.md", Status: domain.StatusReady}, nil
}

func (f *docsFake) List(_ context.Context, limit, offset int) ([]domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.listLimit, f.listOffset = limit, offset
	return []domain.Document{{ID: "doc-1"}, {ID: "doc-2"}}, nil
}

func (f *docsFake) Stats(context.Context) (domain.DocumentStats, error) {
	if f.err != nil {
		return domain.DocumentStats{}, f.err
	}
	return domain.DocumentStats{TotalDocuments: 2, TotalChunks: 9, ContentTypes: map[string]int{"location": 2}, FileTypes: map[string]int{"md": 2}}, nil
}

type retrieverFake struct {
	mu       sync.Mutex
	err      error
	results  []domain.RetrievalResult
	calls    []string
	lastMax  int
	lastType string
	rc       domain.RetrievalContext
}

func (f *retrieverFake) record(call string, max int) ([]domain.RetrievalResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	f.lastMax = max
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func (f *retrieverFake) Search(_ context.Context, query string, maxResults int, contentTypeFilter string) ([]domain.RetrievalResult, error) {
	f.lastType = contentTypeFilter
	return f.record("search:"+query, maxResults)
}

func (f *retrieverFake) ContextRelevantContent(_ context.Context, query string, maxResults int) ([]domain.RetrievalResult, error) {
	return f.record("context:"+query, maxResults)
}

func (f *retrieverFake) RelatedContent(_ context.Context, documentID string, maxResults int) ([]domain.RetrievalResult, error) {
	return f.record("related:"+documentID, maxResults)
}

func (f *retrieverFake) SearchByEntity(_ context.Context, entityName, entityType string, maxResults int) ([]domain.RetrievalResult, error) {
	f.lastType = entityType
	return f.record("entity:"+entityName, maxResults)
}

func (f *retrieverFake) SetContext(rc domain.RetrievalContext) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rc = rc.Clone()
}

func (f *retrieverFake) Context() domain.RetrievalContext {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rc.Clone()
}

type synthesizerFake struct {
	err     error
	lastReq domain.SynthesisRequest
	notes   string
}

func (f *synthesizerFake) Synthesize(_ context.Context, req domain.SynthesisRequest) (*domain.SynthesisResult, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &domain.SynthesisResult{
		Content:    "Silverbrook is a quiet village.",
		Sources:    []string{"Silverbrook Village"},
		Confidence: 0.85,
		Model:      "llama3.1:8b",
		Metadata:   domain.SynthesisMetadata{Intent: req.Intent, NumContextDocs: 1},
	}, nil
}

func (f *synthesizerFake) SummarizeSession(_ context.Context, notes string) (*domain.SynthesisResult, error) {
	f.notes = notes
	if f.err != nil {
		return nil, f.err
	}
	return &domain.SynthesisResult{Content: "summary", Metadata: domain.SynthesisMetadata{Intent: "session_summary"}}, nil
}

type modelsFake struct {
	err       error
	refreshed int
}

func (f *modelsFake) Resolve(context.Context, string) (string, error) { return "llama3.1:8b", f.err }

func (f *modelsFake) Generate(context.Context, string, domain.GenerateRequest) (*domain.GenerateResponse, error) {
	return nil, f.err
}

func (f *modelsFake) Status(context.Context) ([]domain.ModelStatus, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []domain.ModelStatus{{Task: "default", PreferredModel: "llama3.1:8b", Available: true, ResolvedModel: "llama3.1:8b"}}, nil
}

func (f *modelsFake) SuggestMissing(context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []string{"mistral:7b"}, nil
}

func (f *modelsFake) Refresh() { f.refreshed++ }

type testServices struct {
	ingest      *ingestFake
	docs        *docsFake
	retriever   *retrieverFake
	synthesizer *synthesizerFake
	models      *modelsFake
}

func newTestServices() *testServices {
	return &testServices{
		ingest:      &ingestFake{},
		docs:        &docsFake{},
		retriever:   &retrieverFake{},
		synthesizer: &synthesizerFake{},
		models:      &modelsFake{},
	}
}

func (s *testServices) handler(cfg config.Config) http.Handler {
	return NewRouter(cfg, Services{
		Ingestor:    s.ingest,
		Documents:   s.docs,
		Retriever:   s.retriever,
		Synthesizer: s.synthesizer,
		Models:      s.models,
	}).Handler()
}

func newTestHandler(cfg config.Config) http.Handler {
	return newTestServices().handler(cfg)
}
