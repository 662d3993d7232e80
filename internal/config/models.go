package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/campaign-assistant/internal/core/domain"
)

// DefaultTaskModels is used when no models file is configured.
func DefaultTaskModels() domain.TaskModelConfig {
	return domain.TaskModelConfig{
		Models: map[string]string{
			"default":   "llama3.1:8b",
			"rag_qa":    "llama3.1:8b",
			"creative":  "mistral:7b",
			"analysis":  "llama3.1:8b",
			"synthesis": "mistral-nemo:12b",
			"general":   "llama3.1:8b",
		},
		FallbackModels: []string{"llama3.1:8b", "mistral:7b", "gemma2:9b", "llama3.2:3b"},
	}
}

// modelsFile accepts the flat layout and the nested llm.local layout.
type modelsFile struct {
	domain.TaskModelConfig `yaml:",inline"`
	LLM                    struct {
		Local domain.TaskModelConfig `yaml:"local"`
	} `yaml:"llm"`
}

// LoadTaskModels reads the task to model mapping. An empty path returns the
// defaults; a path that cannot be read or parsed is a configuration error.
func LoadTaskModels(path string) (domain.TaskModelConfig, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultTaskModels(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.TaskModelConfig{}, domain.WrapError(domain.ErrConfiguration, "load task models", err)
	}
	return ParseTaskModels(raw)
}

func ParseTaskModels(raw []byte) (domain.TaskModelConfig, error) {
	var file modelsFile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(false)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.TaskModelConfig{}, domain.WrapError(domain.ErrConfiguration, "parse task models", errors.New("empty models file"))
		}
		return domain.TaskModelConfig{}, domain.WrapError(domain.ErrConfiguration, "parse task models", err)
	}

	cfg := file.TaskModelConfig
	if len(cfg.Models) == 0 {
		cfg = file.LLM.Local
	}
	if len(cfg.FallbackModels) == 0 && len(file.LLM.Local.FallbackModels) > 0 {
		cfg.FallbackModels = file.LLM.Local.FallbackModels
	}
	if err := cfg.Validate(); err != nil {
		return domain.TaskModelConfig{}, fmt.Errorf("models file: %w", err)
	}
	return cfg, nil
}
