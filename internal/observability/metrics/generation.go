package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/campaign-assistant/internal/core/domain"
)

// GenerationMetrics records routed model calls. It satisfies
// ports.GenerationObserver.
type GenerationMetrics struct {
	service string

	callsTotal     *prometheus.CounterVec
	fallbacksTotal *prometheus.CounterVec
	tokensTotal    *prometheus.CounterVec
	duration       *prometheus.HistogramVec
}

func NewGenerationMetrics(registry prometheus.Registerer, service string) *GenerationMetrics {
	callsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "generations_total",
			Help:      "Total routed generation calls by task, model and status.",
		},
		[]string{"service", "task", "model", "status"},
	)
	fallbacksTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "model_fallbacks_total",
			Help:      "Total generation calls served by a model other than the task's preferred one.",
		},
		[]string{"service", "task", "model"},
	)
	tokensTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Token usage reported by the model runtime by direction.",
		},
		[]string{"service", "direction", "model"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "generation_duration_seconds",
			Help:      "Generation duration reported by the model runtime.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 160},
		},
		[]string{"service", "model"},
	)
	registry.MustRegister(callsTotal, fallbacksTotal, tokensTotal, duration)

	return &GenerationMetrics{
		service:        service,
		callsTotal:     callsTotal,
		fallbacksTotal: fallbacksTotal,
		tokensTotal:    tokensTotal,
		duration:       duration,
	}
}

func (m *GenerationMetrics) ObserveGeneration(task, model string, fallback bool, usage domain.Usage, err error) {
	if model == "" {
		model = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.callsTotal.WithLabelValues(m.service, task, model, status).Inc()
	if fallback {
		m.fallbacksTotal.WithLabelValues(m.service, task, model).Inc()
	}
	if err != nil {
		return
	}
	if usage.PromptTokens > 0 {
		m.tokensTotal.WithLabelValues(m.service, "in", model).Add(float64(usage.PromptTokens))
	}
	if usage.CompletionTokens > 0 {
		m.tokensTotal.WithLabelValues(m.service, "out", model).Add(float64(usage.CompletionTokens))
	}
	if usage.TotalDuration > 0 {
		m.duration.WithLabelValues(m.service, model).Observe(usage.TotalDuration.Seconds())
	}
}
