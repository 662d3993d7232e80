// Package qdrant is the external vector backend. It talks to Qdrant over its
// REST API and embeds query text itself.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/campaign-assistant/internal/core/domain"
	"github.com/kirillkom/campaign-assistant/internal/core/ports"
	"github.com/kirillkom/campaign-assistant/internal/infrastructure/resilience"
	"github.com/kirillkom/campaign-assistant/internal/infrastructure/vector"
)

const scrollPageSize = 256

type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
	embedder   ports.Embedder
	executor   *resilience.Executor

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

type StatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("qdrant %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("qdrant %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

func New(baseURL, collection string, embedder ports.Embedder, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		embedder:   embedder,
		executor:   executor,
	}
}

// IndexChunks replaces the points stored for doc. Point ids are derived from
// the chunk id so re-indexing is idempotent.
func (c *Client) IndexChunks(ctx context.Context, doc *domain.Document, chunks []string, vectors [][]float32) error {
	if len(chunks) == 0 || len(vectors) == 0 {
		return nil
	}
	if err := vector.ValidateBatch(chunks, vectors); err != nil {
		return err
	}

	if err := c.ensureCollection(ctx, len(vectors[0])); err != nil {
		return err
	}
	if err := c.deleteDocument(ctx, doc.ID); err != nil {
		return err
	}

	type point struct {
		ID      string         `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	points := make([]point, 0, len(chunks))
	for i := range chunks {
		payload := map[string]any{"text": chunks[i]}
		for k, v := range vector.ChunkMetadata(doc, i, len(chunks)) {
			payload[k] = v
		}
		points = append(points, point{
			ID:      pointID(doc.ID, i),
			Vector:  vectors[i],
			Payload: payload,
		})
	}

	path := fmt.Sprintf("/collections/%s/points?wait=true", c.collection)
	return c.call(ctx, "upsert", http.MethodPut, path, map[string]any{"points": points}, nil)
}

func (c *Client) Search(ctx context.Context, query string, limit int, filter domain.SearchFilter) ([]domain.Candidate, error) {
	if limit <= 0 {
		return []domain.Candidate{}, nil
	}
	if c.embedder == nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "qdrant search", errors.New("embedder is not configured"))
	}
	queryVector, err := c.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        limit,
		"with_payload": true,
	}
	if filter.ContentType != "" {
		reqBody["filter"] = matchFilter(domain.MetaContentType, filter.ContentType)
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/search", c.collection)
	if err := c.call(ctx, "search", http.MethodPost, path, reqBody, &searchResp); err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			// Collection is created on first index.
			return []domain.Candidate{}, nil
		}
		return nil, err
	}

	out := make([]domain.Candidate, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		text, meta := splitPayload(r.Payload)
		out = append(out, domain.Candidate{
			Content:    text,
			Similarity: vector.Similarity(r.Score),
			Metadata:   meta,
		})
	}
	return out, nil
}

// Chunks scrolls every point of documentID and returns them ordered by index.
func (c *Client) Chunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	type scrollResponse struct {
		Result struct {
			Points []struct {
				Payload map[string]any `json:"payload"`
			} `json:"points"`
			NextPageOffset any `json:"next_page_offset"`
		} `json:"result"`
	}

	path := fmt.Sprintf("/collections/%s/points/scroll", c.collection)
	out := make([]domain.Chunk, 0)
	var offset any
	for {
		reqBody := map[string]any{
			"filter":       matchFilter(domain.MetaDocumentID, documentID),
			"limit":        scrollPageSize,
			"with_payload": true,
			"with_vector":  false,
		}
		if offset != nil {
			reqBody["offset"] = offset
		}

		var resp scrollResponse
		if err := c.call(ctx, "scroll", http.MethodPost, path, reqBody, &resp); err != nil {
			var statusErr *StatusError
			if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
				return []domain.Chunk{}, nil
			}
			return nil, err
		}
		for _, p := range resp.Result.Points {
			text, meta := splitPayload(p.Payload)
			index, _ := strconv.Atoi(meta[domain.MetaChunkIndex])
			out = append(out, domain.Chunk{DocumentID: documentID, Index: index, Text: text})
		}
		if resp.Result.NextPageOffset == nil || len(resp.Result.Points) == 0 {
			break
		}
		offset = resp.Result.NextPageOffset
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

func (c *Client) deleteDocument(ctx context.Context, documentID string) error {
	path := fmt.Sprintf("/collections/%s/points/delete?wait=true", c.collection)
	return c.call(ctx, "delete", http.MethodPost, path, map[string]any{
		"filter": matchFilter(domain.MetaDocumentID, documentID),
	}, nil)
}

func (c *Client) ensureCollection(ctx context.Context, vectorSize int) error {
	c.ensureMu.Lock()
	if c.ensuredCollection && c.ensuredVectorSize == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}
	err := c.call(ctx, "ensure collection", http.MethodPut, "/collections/"+c.collection, reqBody, nil)
	var statusErr *StatusError
	// 409 when the collection already exists.
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusConflict {
		err = nil
	}
	if err != nil {
		return err
	}

	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	c.ensuredCollection = true
	c.ensuredVectorSize = vectorSize
	return nil
}

func (c *Client) call(ctx context.Context, operation, method, path string, payload, out any) error {
	fn := func(ctx context.Context) error {
		return c.send(ctx, operation, method, path, payload, out)
	}
	op := "qdrant_" + strings.ReplaceAll(operation, " ", "_")
	if c.executor == nil {
		return fn(ctx)
	}
	return resilience.WrapTemporary(op, c.executor.Execute(ctx, op, fn, classifyError), classifyError)
}

func (c *Client) send(ctx context.Context, operation, method, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s body: %w", operation, err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &StatusError{Operation: operation, StatusCode: resp.StatusCode, Status: resp.Status, Body: string(msg)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func classifyError(err error) resilience.ErrorClassification {
	if class, ok := resilience.ClassifyCommon(err); ok {
		return class
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if resilience.RetryableHTTPStatus(statusErr.StatusCode) {
			return resilience.Transient
		}
		return resilience.ErrorClassification{}
	}
	return resilience.Permanent
}

func matchFilter(key, value string) map[string]any {
	return map[string]any{
		"must": []map[string]any{
			{"key": key, "match": map[string]any{"value": value}},
		},
	}
}

func pointID(documentID string, index int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(vector.ChunkID(documentID, index))).String()
}

func splitPayload(payload map[string]any) (string, map[string]string) {
	text := ""
	meta := make(map[string]string, len(payload))
	for k, v := range payload {
		s, ok := v.(string)
		if !ok {
			s = fmt.Sprintf("%v", v)
		}
		if k == "text" {
			text = s
			continue
		}
		meta[k] = s
	}
	return text, meta
}
