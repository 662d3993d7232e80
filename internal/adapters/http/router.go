package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/campaign-assistant/internal/config"
	"github.com/kirillkom/campaign-assistant/internal/core/domain"
	"github.com/kirillkom/campaign-assistant/internal/core/ports"
	"github.com/kirillkom/campaign-assistant/internal/observability/metrics"
)

const (
	serviceName         = "api"
	defaultRelatedLimit = 3
	maxResultsLimit     = 50
	maxJSONBodyBytes    = 1 << 20
)

// Services are the inbound ports the API exposes. Metrics and QueueHealthy
// are optional.
type Services struct {
	Ingestor     ports.DocumentIngestor
	Documents    ports.DocumentReader
	Retriever    ports.Retriever
	Synthesizer  ports.Synthesizer
	Models       ports.ModelRouting
	Metrics      *metrics.HTTPServerMetrics
	QueueHealthy func() bool
}

type Router struct {
	cfg      config.Config
	services Services
}

func NewRouter(cfg config.Config, services Services) *Router {
	return &Router{cfg: cfg, services: services}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.services.Metrics != nil {
		mux.Handle("GET /metrics", rt.services.Metrics.Handler())
	}

	mux.HandleFunc("POST /v1/documents", rt.uploadDocument)
	mux.HandleFunc("GET /v1/documents", rt.listDocuments)
	mux.HandleFunc("GET /v1/documents/{id}", rt.getDocumentByID)
	mux.HandleFunc("GET /v1/documents/{id}/related", rt.relatedContent)
	mux.HandleFunc("GET /v1/stats", rt.stats)

	mux.HandleFunc("POST /v1/search", rt.search)
	mux.HandleFunc("POST /v1/search/entity", rt.searchByEntity)
	mux.HandleFunc("GET /v1/context", rt.getContext)
	mux.HandleFunc("PUT /v1/context", rt.setContext)

	mux.HandleFunc("POST /v1/synthesize", rt.synthesize)
	mux.HandleFunc("POST /v1/sessions/summary", rt.summarizeSession)

	mux.HandleFunc("GET /v1/models/status", rt.modelStatus)
	mux.HandleFunc("POST /v1/models/refresh", rt.refreshModels)

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.APIBackpressureMax, rt.cfg.APIBackpressureWait)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	handler = authMiddleware(handler, rt.cfg.APIKey)
	handler = recoverMiddleware(handler)
	if rt.services.Metrics != nil {
		handler = rt.services.Metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]string{"status": "ok"}
	if rt.services.QueueHealthy != nil {
		resp["queue"] = "connected"
		if !rt.services.QueueHealthy() {
			resp["status"] = "degraded"
			resp["queue"] = "disconnected"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if rt.cfg.APIMaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.APIMaxUploadBytes)
	}
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit)})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	doc, err := rt.services.Ingestor.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		r.FormValue("content_type"),
		file,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, err)
		return
	}

	docs, err := rt.services.Documents.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs, "count": len(docs)})
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	doc, err := rt.services.Documents.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := rt.services.Documents.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type searchResponse struct {
	Results []domain.RetrievalResult `json:"results"`
	Count   int                      `json:"count"`
}

func (rt *Router) relatedContent(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultRelatedLimit)
	if err != nil {
		writeError(w, err)
		return
	}
	if !checkResultLimit(w, "limit", limit) {
		return
	}

	start := time.Now()
	results, err := rt.services.Retriever.RelatedContent(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	rt.recordRetrieval("related", len(results), time.Since(start))
	writeJSON(w, http.StatusOK, searchResponse{Results: results, Count: len(results)})
}

// checkResultLimit rejects result counts outside [0, maxResultsLimit].
// Zero selects the default.
func checkResultLimit(w http.ResponseWriter, field string, n int) bool {
	if n < 0 || n > maxResultsLimit {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("%s must be between 0 and %d", field, maxResultsLimit)})
		return false
	}
	return true
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query       string `json:"query"`
		MaxResults  int    `json:"max_results"`
		ContentType string `json:"content_type"`
		UseContext  bool   `json:"use_context"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "query is required"})
		return
	}
	if !checkResultLimit(w, "max_results", req.MaxResults) {
		return
	}

	start := time.Now()
	var (
		results  []domain.RetrievalResult
		err      error
		endpoint = "search"
	)
	if req.UseContext {
		endpoint = "search_context"
		results, err = rt.services.Retriever.ContextRelevantContent(r.Context(), req.Query, req.MaxResults)
	} else {
		results, err = rt.services.Retriever.Search(r.Context(), req.Query, req.MaxResults, req.ContentType)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	rt.recordRetrieval(endpoint, len(results), time.Since(start))
	writeJSON(w, http.StatusOK, searchResponse{Results: results, Count: len(results)})
}

func (rt *Router) searchByEntity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name       string `json:"name"`
		Type       string `json:"type"`
		MaxResults int    `json:"max_results"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "name is required"})
		return
	}
	if !checkResultLimit(w, "max_results", req.MaxResults) {
		return
	}

	start := time.Now()
	results, err := rt.services.Retriever.SearchByEntity(r.Context(), req.Name, req.Type, req.MaxResults)
	if err != nil {
		writeError(w, err)
		return
	}
	rt.recordRetrieval("entity", len(results), time.Since(start))
	writeJSON(w, http.StatusOK, searchResponse{Results: results, Count: len(results)})
}

func (rt *Router) getContext(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, rt.services.Retriever.Context())
}

func (rt *Router) setContext(w http.ResponseWriter, r *http.Request) {
	var rc domain.RetrievalContext
	if !decodeJSON(w, r, &rc) {
		return
	}
	for contentType, weight := range rc.ContentPreferences {
		if weight < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("content preference %q must not be negative", contentType)})
			return
		}
	}
	rt.services.Retriever.SetContext(rc)
	writeJSON(w, http.StatusOK, rt.services.Retriever.Context())
}

func (rt *Router) synthesize(w http.ResponseWriter, r *http.Request) {
	var req domain.SynthesisRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "query is required"})
		return
	}
	if !checkResultLimit(w, "max_context_docs", req.MaxContextDocs) {
		return
	}

	result, err := rt.services.Synthesizer.Synthesize(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	rt.recordSynthesis(result)
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) summarizeSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Notes string `json:"notes"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Notes) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "notes are required"})
		return
	}

	result, err := rt.services.Synthesizer.SummarizeSession(r.Context(), req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	rt.recordSynthesis(result)
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) modelStatus(w http.ResponseWriter, r *http.Request) {
	status, err := rt.services.Models.Status(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	missing, err := rt.services.Models.SuggestMissing(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": status, "missing_models": missing})
}

func (rt *Router) refreshModels(w http.ResponseWriter, r *http.Request) {
	rt.services.Models.Refresh()
	rt.modelStatus(w, r)
}

func (rt *Router) recordRetrieval(endpoint string, results int, duration time.Duration) {
	if rt.services.Metrics != nil {
		rt.services.Metrics.RecordRetrieval(serviceName, endpoint, results, duration)
	}
}

func (rt *Router) recordSynthesis(result *domain.SynthesisResult) {
	if rt.services.Metrics != nil && result != nil {
		rt.services.Metrics.RecordSynthesis(serviceName, result.Metadata.Intent, result.Confidence)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json: " + err.Error()})
		return false
	}
	return true
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "parse query", fmt.Errorf("%s must be a non-negative integer", key))
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
