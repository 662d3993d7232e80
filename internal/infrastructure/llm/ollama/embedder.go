package ollama

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Embedder computes vectors with the Ollama embed API. Query vectors are
// cached by text.
type Embedder struct {
	client *Client
	cache  *lru.Cache[string, []float32]
}

func NewEmbedder(client *Client, cacheSize int) (*Embedder, error) {
	e := &Embedder{client: client}
	if cacheSize > 0 {
		cache, err := lru.New[string, []float32](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("init query embedding cache: %w", err)
		}
		e.cache = cache
	}
	return e, nil
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := e.client.do(ctx, "embed", func(ctx context.Context) error {
		return e.client.postJSON(ctx, "/api/embed", request, &response, "embed")
	}); err != nil {
		return nil, err
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(e.client.embedModel, text)
	if e.cache != nil {
		if vector, ok := e.cache.Get(key); ok {
			return vector, nil
		}
	}

	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, errors.New("empty embedding result")
	}
	if e.cache != nil {
		e.cache.Add(key, vectors[0])
	}
	return vectors[0], nil
}

func cacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return hex.EncodeToString(sum[:])
}
