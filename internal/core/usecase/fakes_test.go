package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/kirillkom/campaign-assistant/internal/core/domain"
)

type searchCall struct {
	query  string
	limit  int
	filter domain.SearchFilter
}

type searcherFake struct {
	mu         sync.Mutex
	candidates []domain.Candidate
	chunks     map[string][]domain.Chunk
	err        error
	chunksErr  error
	calls      []searchCall
	onSearch   func()
}

func (f *searcherFake) Search(_ context.Context, query string, limit int, filter domain.SearchFilter) ([]domain.Candidate, error) {
	f.mu.Lock()
	f.calls = append(f.calls, searchCall{query: query, limit: limit, filter: filter})
	f.mu.Unlock()
	if f.onSearch != nil {
		f.onSearch()
	}
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.Candidate, 0, len(f.candidates))
	for _, c := range f.candidates {
		if filter.ContentType != "" && c.Metadata[domain.MetaContentType] != filter.ContentType {
			continue
		}
		out = append(out, c)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *searcherFake) Chunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	if f.chunksErr != nil {
		return nil, f.chunksErr
	}
	return f.chunks[documentID], nil
}

func (f *searcherFake) lastCall() searchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return searchCall{}
	}
	return f.calls[len(f.calls)-1]
}

type runtimeFake struct {
	mu        sync.Mutex
	models    []string
	listErr   error
	listCalls int
	genErr    error
	requests  []domain.GenerateRequest
}

func (f *runtimeFake) IsAvailable(context.Context) bool { return f.listErr == nil }

func (f *runtimeFake) ListAvailableModels(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]string(nil), f.models...), nil
}

func (f *runtimeFake) Generate(_ context.Context, req domain.GenerateRequest) (*domain.GenerateResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.genErr != nil {
		return nil, f.genErr
	}
	return &domain.GenerateResponse{Text: "answer from " + req.Model, Model: req.Model}, nil
}

func candidate(docID, title, contentType, content string, similarity float64) domain.Candidate {
	meta := map[string]string{
		domain.MetaDocumentID: docID,
		domain.MetaFilePath:   docID + ".md",
	}
	if title != "" {
		meta[domain.MetaDocumentTitle] = title
	}
	if contentType != "" {
		meta[domain.MetaContentType] = contentType
	}
	return domain.Candidate{Content: content, Similarity: similarity, Metadata: meta}
}

var errNotImplemented = errors.New("not implemented")
