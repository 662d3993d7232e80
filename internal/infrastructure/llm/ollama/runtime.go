package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/campaign-assistant/internal/core/domain"
)

// Runtime is the model runtime backed by the Ollama chat and tags APIs.
type Runtime struct {
	client *Client
}

func NewRuntime(client *Client) *Runtime {
	return &Runtime{client: client}
}

type tagsResponse struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	} `json:"models"`
}

func (r *Runtime) IsAvailable(ctx context.Context) bool {
	var response tagsResponse
	return r.client.getJSON(ctx, "/api/tags", &response, "tags") == nil
}

// ListAvailableModels returns installed models in the order Ollama reports them.
func (r *Runtime) ListAvailableModels(ctx context.Context) ([]string, error) {
	var response tagsResponse
	if err := r.client.do(ctx, "tags", func(ctx context.Context) error {
		return r.client.getJSON(ctx, "/api/tags", &response, "tags")
	}); err != nil {
		return nil, err
	}

	models := make([]string, 0, len(response.Models))
	for _, m := range response.Models {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			name = strings.TrimSpace(m.Model)
		}
		if name != "" {
			models = append(models, name)
		}
	}
	return models, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Model           string      `json:"model"`
	Message         chatMessage `json:"message"`
	DoneReason      string      `json:"done_reason"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
	TotalDuration   int64       `json:"total_duration"`
}

// Generate runs one non-streaming chat completion with the model named in req.
func (r *Runtime) Generate(ctx context.Context, req domain.GenerateRequest) (*domain.GenerateResponse, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ollama generate", errors.New("model is required"))
	}

	messages := make([]chatMessage, 0, 2)
	if strings.TrimSpace(req.SystemPrompt) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	options := map[string]any{"temperature": req.Temperature}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}
	payload := chatRequest{
		Model:    model,
		Messages: messages,
		Stream:   false,
		Options:  options,
	}

	var response chatResponse
	if err := r.client.do(ctx, "chat", func(ctx context.Context) error {
		return r.client.postJSON(ctx, "/api/chat", payload, &response, "chat")
	}); err != nil {
		if isNotFound(err) {
			return nil, domain.WrapError(domain.ErrUnavailable, "ollama chat", fmt.Errorf("model %s is not installed: %w", model, err))
		}
		return nil, err
	}

	metadata := map[string]string{}
	if response.DoneReason != "" {
		metadata["done_reason"] = response.DoneReason
	}
	return &domain.GenerateResponse{
		Text:  strings.TrimSpace(response.Message.Content),
		Model: model,
		Usage: domain.Usage{
			PromptTokens:     response.PromptEvalCount,
			CompletionTokens: response.EvalCount,
			TotalDuration:    time.Duration(response.TotalDuration),
		},
		Metadata: metadata,
	}, nil
}

func isNotFound(err error) bool {
	var statusErr *HTTPStatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}
