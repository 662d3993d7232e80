package ollama

import (
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/campaign-assistant/internal/infrastructure/resilience"
)

// Client talks to one Ollama host. Runtime and Embedder share it.
type Client struct {
	baseURL    string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, embedModel string, timeout time.Duration, executor *resilience.Executor) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
	}
}
