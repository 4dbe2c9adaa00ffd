package chi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/kailas-cloud/semsearch/internal/domain"
)

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func decodeInto(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestGetHealth(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/health")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body HealthResponse
	decodeInto(t, resp, &body)
	if body.Status != "healthy" {
		t.Errorf("expected healthy, got %q", body.Status)
	}
	if body.Checks["database"] != "ok" {
		t.Errorf("expected database ok, got %q", body.Checks["database"])
	}
	// Empty index is reported without failing the endpoint.
	if body.Checks["index"] != "empty" {
		t.Errorf("expected index empty, got %q", body.Checks["index"])
	}
}

func TestPostQuery(t *testing.T) {
	env := newTestEnv(t)
	env.seedCorpus(t)

	resp := postJSON(t, env.server.URL+"/query", QueryRequest{
		QueryID:   "PLAIN-1",
		QueryText: "blood thinner",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body QueryResponse
	decodeInto(t, resp, &body)
	if len(body.TopDocs) != 3 {
		t.Fatalf("expected 3 docs, got %d", len(body.TopDocs))
	}
	if body.TopDocs[0] != "MED-1" {
		t.Errorf("expected MED-1 first, got %s", body.TopDocs[0])
	}
	// MED-1 and MED-3 judged relevant, k=5.
	if body.P5 != 0.4 {
		t.Errorf("expected p5=0.4, got %v", body.P5)
	}
}

func TestPostQuery_ValidationErrors(t *testing.T) {
	env := newTestEnv(t)
	env.seedCorpus(t)

	cases := []struct {
		name string
		req  QueryRequest
	}{
		{"missing query_id", QueryRequest{QueryText: "text"}},
		{"missing query_text", QueryRequest{QueryID: "PLAIN-1"}},
		{"blank query_text", QueryRequest{QueryID: "PLAIN-1", QueryText: "   "}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, env.server.URL+"/query", tc.req)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
			var body ErrorResponse
			decodeInto(t, resp, &body)
			if body.Code != CodeValidationFailed {
				t.Errorf("expected %q, got %q", CodeValidationFailed, body.Code)
			}
		})
	}
}

func TestPostQuery_MalformedBody(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Post(env.server.URL+"/query", "application/json",
		bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	var body ErrorResponse
	decodeInto(t, resp, &body)
	if body.Code != CodeBadRequest {
		t.Errorf("expected %q, got %q", CodeBadRequest, body.Code)
	}
}

func TestPostQuery_EmptyIndex(t *testing.T) {
	env := newTestEnv(t)

	resp := postJSON(t, env.server.URL+"/query", QueryRequest{
		QueryID:   "PLAIN-1",
		QueryText: "anything",
	})
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
	var body ErrorResponse
	decodeInto(t, resp, &body)
	if body.Code != CodeIndexEmpty {
		t.Errorf("expected %q, got %q", CodeIndexEmpty, body.Code)
	}
}

func TestPostQuery_ProviderError(t *testing.T) {
	env := newTestEnv(t)
	env.seedCorpus(t)
	env.embedder.err = domain.ErrEmbeddingProvider

	resp := postJSON(t, env.server.URL+"/query", QueryRequest{
		QueryID:   "PLAIN-1",
		QueryText: "anything",
	})
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
	var body ErrorResponse
	decodeInto(t, resp, &body)
	if body.Code != CodeProviderError {
		t.Errorf("expected %q, got %q", CodeProviderError, body.Code)
	}
}

func TestPostStatus(t *testing.T) {
	env := newTestEnv(t)
	env.seedCorpus(t)

	resp := postJSON(t, env.server.URL+"/status", struct{}{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body StatusResponse
	decodeInto(t, resp, &body)
	if body.NumIndexedItems != 3 {
		t.Errorf("expected 3 indexed items, got %d", body.NumIndexedItems)
	}
	if body.NumQueriesInQrels != 1 {
		t.Errorf("expected 1 judged query, got %d", body.NumQueriesInQrels)
	}
}

func TestPostIndexBuild(t *testing.T) {
	env := newTestEnv(t)
	env.source.records = []domain.CorpusRecord{
		{ID: "MED-1", Title: "aspirin", Body: "blood thinner"},
		{ID: "MED-2", Title: "statins", Body: "cholesterol"},
	}
	env.source.judgments = []domain.Judgment{
		{QueryID: "PLAIN-1", DocID: "MED-1", Grade: 1},
	}

	resp := postJSON(t, env.server.URL+"/index", IndexBuildRequest{Clear: true})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body IndexBuildResponse
	decodeInto(t, resp, &body)
	if body.Indexed != 2 {
		t.Errorf("expected 2 indexed, got %d", body.Indexed)
	}
	if body.Status != "ok" {
		t.Errorf("expected ok, got %q", body.Status)
	}
	if env.store.Len() != 2 {
		t.Errorf("expected serving corpus of 2, got %d", env.store.Len())
	}
}

func TestPostIndexBuild_EmptyBody(t *testing.T) {
	env := newTestEnv(t)
	env.source.records = []domain.CorpusRecord{
		{ID: "MED-1", Title: "aspirin", Body: "blood thinner"},
	}

	resp, err := http.Post(env.server.URL+"/index", "application/json", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for bodyless build, got %d", resp.StatusCode)
	}
}

func TestPostIndexBuild_EmptyDataset(t *testing.T) {
	env := newTestEnv(t)

	resp := postJSON(t, env.server.URL+"/index", IndexBuildRequest{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	var body ErrorResponse
	decodeInto(t, resp, &body)
	if body.Code != CodeValidationFailed {
		t.Errorf("expected %q, got %q", CodeValidationFailed, body.Code)
	}
}
