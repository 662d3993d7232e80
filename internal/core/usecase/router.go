package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/kirillkom/campaign-assistant/internal/core/domain"
	"github.com/kirillkom/campaign-assistant/internal/core/ports"
)

const (
	TaskGeneral   = "general"
	TaskAnalysis  = "analysis"
	TaskCreative  = "creative"
	TaskSynthesis = "synthesis"
	TaskRAGQA     = "rag_qa"
)

var intentTasks = map[string]string{
	domain.SynthesisIntentGeneral:         TaskGeneral,
	domain.SynthesisIntentSessionPrep:     TaskAnalysis,
	domain.SynthesisIntentNPCInfo:         TaskCreative,
	domain.SynthesisIntentLoreExpansion:   TaskSynthesis,
	domain.SynthesisIntentEncounterDesign: TaskCreative,
	domain.SynthesisIntentSessionSummary:  TaskAnalysis,
}

// ModelRouter picks a model per task and passes it into each generation
// call. It holds no per-call model state.
type ModelRouter struct {
	runtime ports.ModelRuntime
	config  domain.TaskModelConfig

	observer ports.GenerationObserver

	mu        sync.RWMutex
	available []string
	loaded    bool
}

func NewModelRouter(runtime ports.ModelRuntime, config domain.TaskModelConfig) (*ModelRouter, error) {
	if runtime == nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "new model router", errors.New("model runtime is nil"))
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &ModelRouter{
		runtime: runtime,
		config:  config.Clone(),
	}, nil
}

func (r *ModelRouter) WithObserver(observer ports.GenerationObserver) *ModelRouter {
	r.observer = observer
	return r
}

// TaskFor maps an intent to its generation task. Configured task names map
// to themselves; anything else is a general task.
func (r *ModelRouter) TaskFor(intentOrTask string) string {
	key := strings.TrimSpace(intentOrTask)
	if task, ok := intentTasks[key]; ok {
		return task
	}
	if _, ok := r.config.Models[key]; ok {
		return key
	}
	return TaskGeneral
}

func (r *ModelRouter) preferredModel(task string) string {
	if model, ok := r.config.Models[task]; ok {
		return model
	}
	return r.config.Models[domain.DefaultTask]
}

// Resolve returns the preferred model for the task when it is available,
// then the first available fallback, then the first model the runtime lists.
func (r *ModelRouter) Resolve(ctx context.Context, intentOrTask string) (string, error) {
	available, err := r.availableModels(ctx)
	if err != nil {
		return "", domain.WithStage(domain.StageRouting, err)
	}
	task := r.TaskFor(intentOrTask)
	model, err := r.resolveFrom(task, available)
	if err != nil {
		return "", domain.WithStage(domain.StageRouting, err)
	}
	return model, nil
}

func (r *ModelRouter) resolveFrom(task string, available []string) (string, error) {
	set := make(map[string]struct{}, len(available))
	for _, model := range available {
		set[model] = struct{}{}
	}

	preferred := r.preferredModel(task)
	if _, ok := set[preferred]; ok {
		return preferred, nil
	}

	for _, fallback := range r.config.FallbackModels {
		if _, ok := set[fallback]; ok {
			slog.Warn("model_fallback",
				"task", task,
				"preferred_model", preferred,
				"resolved_model", fallback,
				"reason", "preferred_unavailable",
			)
			return fallback, nil
		}
	}

	if len(available) > 0 {
		slog.Warn("model_fallback",
			"task", task,
			"preferred_model", preferred,
			"resolved_model", available[0],
			"reason", "fallback_chain_unavailable",
		)
		return available[0], nil
	}

	return "", domain.WrapError(domain.ErrNoModelsAvailable, "resolve model", errors.New("model runtime reports no models"))
}

// Generate resolves the model for intent and runs one generation call with it.
func (r *ModelRouter) Generate(ctx context.Context, intent string, req domain.GenerateRequest) (*domain.GenerateResponse, error) {
	model, err := r.Resolve(ctx, intent)
	if err != nil {
		return nil, err
	}
	req.Model = model

	resp, err := r.runtime.Generate(ctx, req)
	if r.observer != nil {
		task := r.TaskFor(intent)
		var usage domain.Usage
		if resp != nil {
			usage = resp.Usage
		}
		r.observer.ObserveGeneration(task, model, model != r.preferredModel(task), usage, err)
	}
	if err != nil {
		return nil, domain.WithStage(domain.StageGeneration, collaboratorError("generate with "+model, err))
	}
	if resp == nil {
		return nil, domain.WithStage(domain.StageGeneration, domain.WrapError(domain.ErrUnavailable, "generate with "+model, errors.New("empty response")))
	}

	out := *resp
	out.Model = model
	out.Metadata = make(map[string]string, len(resp.Metadata)+2)
	for k, v := range resp.Metadata {
		out.Metadata[k] = v
	}
	out.Metadata["actual_model"] = model
	out.Metadata["intent"] = intent
	return &out, nil
}

// Status reports, for every configured task in lexical order, its preferred
// model and the model a call would use right now.
func (r *ModelRouter) Status(ctx context.Context) ([]domain.ModelStatus, error) {
	available, err := r.availableModels(ctx)
	if err != nil {
		return nil, domain.WithStage(domain.StageRouting, err)
	}
	set := make(map[string]struct{}, len(available))
	for _, model := range available {
		set[model] = struct{}{}
	}

	tasks := r.config.Tasks()
	out := make([]domain.ModelStatus, 0, len(tasks))
	for _, task := range tasks {
		preferred := r.config.Models[task]
		_, ok := set[preferred]
		status := domain.ModelStatus{
			Task:           task,
			PreferredModel: preferred,
			Available:      ok,
		}
		if resolved, err := r.resolveFrom(task, available); err == nil {
			status.ResolvedModel = resolved
		}
		out = append(out, status)
	}
	return out, nil
}

// SuggestMissing lists configured task models the runtime does not have.
func (r *ModelRouter) SuggestMissing(ctx context.Context) ([]string, error) {
	available, err := r.availableModels(ctx)
	if err != nil {
		return nil, domain.WithStage(domain.StageRouting, err)
	}
	set := make(map[string]struct{}, len(available))
	for _, model := range available {
		set[model] = struct{}{}
	}

	missing := make(map[string]struct{})
	for _, model := range r.config.Models {
		if _, ok := set[model]; !ok {
			missing[model] = struct{}{}
		}
	}
	out := make([]string, 0, len(missing))
	for model := range missing {
		out = append(out, model)
	}
	sort.Strings(out)
	return out, nil
}

// Refresh drops the cached model list so the next call asks the runtime.
func (r *ModelRouter) Refresh() {
	r.mu.Lock()
	r.available = nil
	r.loaded = false
	r.mu.Unlock()
}

func (r *ModelRouter) availableModels(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	if r.loaded {
		models := r.available
		r.mu.RUnlock()
		return models, nil
	}
	r.mu.RUnlock()

	models, err := r.runtime.ListAvailableModels(ctx)
	if err != nil {
		return nil, collaboratorError("list available models", err)
	}
	models = append([]string(nil), models...)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded {
		return r.available, nil
	}
	r.available = models
	r.loaded = true
	return models, nil
}
