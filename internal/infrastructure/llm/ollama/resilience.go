package ollama

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/campaign-assistant/internal/infrastructure/resilience"
)

// HTTPStatusError is a non-2xx answer from Ollama. Body is truncated.
type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("ollama %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("ollama %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

func classifyOllamaError(err error) resilience.ErrorClassification {
	if class, ok := resilience.ClassifyCommon(err); ok {
		return class
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		if resilience.RetryableHTTPStatus(statusErr.StatusCode) {
			return resilience.Transient
		}
		// A missing model or a bad prompt says nothing about Ollama's health.
		return resilience.ErrorClassification{}
	}
	return resilience.Permanent
}
