package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// DefaultTask is the task whose model is used when a task has no entry.
const DefaultTask = "default"

// TaskModelConfig maps generation tasks to preferred models. The router treats
// it as read-only after construction.
type TaskModelConfig struct {
	Models         map[string]string `yaml:"models" json:"models"`
	FallbackModels []string          `yaml:"fallback_models" json:"fallback_models"`
}

func (c TaskModelConfig) Validate() error {
	if len(c.Models) == 0 {
		return WrapError(ErrConfiguration, "task model config", errors.New("no task models configured"))
	}
	if strings.TrimSpace(c.Models[DefaultTask]) == "" {
		return WrapError(ErrConfiguration, "task model config", fmt.Errorf("missing %q task model", DefaultTask))
	}
	for task, model := range c.Models {
		if strings.TrimSpace(task) == "" || strings.TrimSpace(model) == "" {
			return WrapError(ErrConfiguration, "task model config", fmt.Errorf("blank entry %q=%q", task, model))
		}
	}
	for i, model := range c.FallbackModels {
		if strings.TrimSpace(model) == "" {
			return WrapError(ErrConfiguration, "task model config", fmt.Errorf("blank fallback model at position %d", i))
		}
	}
	return nil
}

// Clone deep-copies the config so callers cannot mutate router state.
func (c TaskModelConfig) Clone() TaskModelConfig {
	out := TaskModelConfig{
		Models:         make(map[string]string, len(c.Models)),
		FallbackModels: append([]string(nil), c.FallbackModels...),
	}
	for k, v := range c.Models {
		out.Models[k] = v
	}
	return out
}

// Tasks returns configured task names in lexical order.
func (c TaskModelConfig) Tasks() []string {
	tasks := make([]string, 0, len(c.Models))
	for task := range c.Models {
		tasks = append(tasks, task)
	}
	sort.Strings(tasks)
	return tasks
}

// GenerateRequest carries the model explicitly so a model choice never
// outlives the call it was resolved for.
type GenerateRequest struct {
	Model        string
	Prompt       string
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
}

type Usage struct {
	PromptTokens     int           `json:"prompt_tokens"`
	CompletionTokens int           `json:"completion_tokens"`
	TotalDuration    time.Duration `json:"total_duration"`
}

type GenerateResponse struct {
	Text     string            `json:"text"`
	Model    string            `json:"model"`
	Usage    Usage             `json:"usage"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type ModelStatus struct {
	Task           string `json:"task"`
	PreferredModel string `json:"preferred_model"`
	Available      bool   `json:"available"`
	ResolvedModel  string `json:"resolved_model,omitempty"`
}
