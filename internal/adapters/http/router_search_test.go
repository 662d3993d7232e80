package httpadapter

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/campaign-assistant/internal/config"
	"github.com/kirillkom/campaign-assistant/internal/core/domain"
)

func TestSearchDispatchesByUseContext(t *testing.T) {
	services := newTestServices()
	services.retriever.results = []domain.RetrievalResult{{Content: "Silverbrook", SourceTitle: "Silverbrook Village", ContentType: "location", RelevanceScore: 0.8}}
	handler := services.handler(config.Config{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/search",
		strings.NewReader(`{"query":"silverbrook","max_results":4,"content_type":"location"}`)))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var resp searchResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 1 || resp.Results[0].SourceTitle != "Silverbrook Village" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if services.retriever.lastMax != 4 || services.retriever.lastType != "location" {
		t.Fatalf("unexpected search args max=%d type=%q", services.retriever.lastMax, services.retriever.lastType)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/search",
		strings.NewReader(`{"query":"what happens next","use_context":true}`)))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	want := []string{"search:silverbrook", "context:what happens next"}
	if strings.Join(services.retriever.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected calls %v", services.retriever.calls)
	}
}

func TestSearchValidatesRequest(t *testing.T) {
	handler := newTestHandler(config.Config{})

	cases := map[string]string{
		"empty query":   `{"query":"  "}`,
		"max too large": `{"query":"x","max_results":51}`,
		"negative max":  `{"query":"x","max_results":-1}`,
		"unknown field": `{"query":"x","top_k":3}`,
		"malformed":     `{"query":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			res := httptest.NewRecorder()
			handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(body)))
			if res.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", res.Code)
			}
		})
	}
}

func TestResultLimitsAreBoundedOnEveryEndpoint(t *testing.T) {
	cases := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{name: "related", method: http.MethodGet, path: "/v1/documents/doc-1/related?limit=1099511627776"},
		{name: "related just over", method: http.MethodGet, path: "/v1/documents/doc-1/related?limit=51"},
		{name: "entity", method: http.MethodPost, path: "/v1/search/entity", body: `{"name":"Grak","max_results":4611686018427387904}`},
		{name: "entity negative", method: http.MethodPost, path: "/v1/search/entity", body: `{"name":"Grak","max_results":-2}`},
		{name: "synthesize", method: http.MethodPost, path: "/v1/synthesize", body: `{"query":"who is Grak","max_context_docs":51}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			services := newTestServices()
			handler := services.handler(config.Config{})

			res := httptest.NewRecorder()
			handler.ServeHTTP(res, httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body)))
			if res.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", res.Code, res.Body.String())
			}
			if len(services.retriever.calls) != 0 || services.synthesizer.lastReq.Query != "" {
				t.Fatalf("expected no service call, got %v", services.retriever.calls)
			}
		})
	}
}

func TestRelatedContentUsesDefaultLimit(t *testing.T) {
	services := newTestServices()
	handler := services.handler(config.Config{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/documents/doc-7/related", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if services.retriever.lastMax != defaultRelatedLimit {
		t.Fatalf("expected default limit %d, got %d", defaultRelatedLimit, services.retriever.lastMax)
	}
	if services.retriever.calls[0] != "related:doc-7" {
		t.Fatalf("unexpected call %v", services.retriever.calls)
	}
}

func TestSearchByEntity(t *testing.T) {
	services := newTestServices()
	handler := services.handler(config.Config{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/search/entity",
		strings.NewReader(`{"name":"Elena","type":"character","max_results":2}`)))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if services.retriever.calls[0] != "entity:Elena" || services.retriever.lastType != "character" {
		t.Fatalf("unexpected call %v type=%q", services.retriever.calls, services.retriever.lastType)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/search/entity", strings.NewReader(`{"name":""}`)))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty name, got %d", res.Code)
	}
}

func TestContextRoundTrip(t *testing.T) {
	handler := newTestHandler(config.Config{})

	body := `{"current_location":"Silverbrook","active_npcs":["Elena","Elena"," "],"content_preferences":{"location":1.5}}`
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPut, "/v1/context", strings.NewReader(body)))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/context", nil))
	var rc domain.RetrievalContext
	if err := json.NewDecoder(res.Body).Decode(&rc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rc.CurrentLocation != "Silverbrook" || len(rc.ActiveNPCs) != 1 || rc.ContentPreferences["location"] != 1.5 {
		t.Fatalf("unexpected context: %+v", rc)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPut, "/v1/context",
		strings.NewReader(`{"content_preferences":{"lore":-1}}`)))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative preference, got %d", res.Code)
	}
}

func TestSynthesizeForwardsRequest(t *testing.T) {
	services := newTestServices()
	handler := services.handler(config.Config{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/synthesize",
		strings.NewReader(`{"query":"describe Silverbrook","intent":"npc_info","tone":"ominous","max_context_docs":3}`)))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	got := services.synthesizer.lastReq
	if got.Intent != "npc_info" || got.Tone != "ominous" || got.MaxContextDocs != 3 {
		t.Fatalf("unexpected forwarded request: %+v", got)
	}

	var result domain.SynthesisResult
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Confidence != 0.85 || len(result.Sources) != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestSummarizeSessionRequiresNotes(t *testing.T) {
	services := newTestServices()
	handler := services.handler(config.Config{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/sessions/summary", strings.NewReader(`{"notes":""}`)))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/sessions/summary", strings.NewReader(`{"notes":"party met Elena"}`)))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if services.synthesizer.notes != "party met Elena" {
		t.Fatalf("notes not forwarded: %q", services.synthesizer.notes)
	}
}

func TestModelStatusAndRefresh(t *testing.T) {
	services := newTestServices()
	handler := services.handler(config.Config{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/models/refresh", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if services.models.refreshed != 1 {
		t.Fatalf("expected one refresh, got %d", services.models.refreshed)
	}

	var body struct {
		Tasks   []domain.ModelStatus `json:"tasks"`
		Missing []string             `json:"missing_models"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Tasks) != 1 || body.Tasks[0].Task != "default" || len(body.Missing) != 1 {
		t.Fatalf("unexpected status body: %+v", body)
	}
}
