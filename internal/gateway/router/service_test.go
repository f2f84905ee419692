package router

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/extract"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/store"
	ingesthandler "github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion/pipeline"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	searchhandler "github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
)

type directTracker struct{ agg *analytics.Aggregator }

func (d directTracker) Track(e analytics.Event) { d.agg.Record(e) }

// newService wires the full HTTP surface over a file store in a temp dir,
// with analytics events fed straight into an aggregator.
func newService(t *testing.T) (*httptest.Server, *analytics.Aggregator) {
	t.Helper()
	cfg := config.Default()
	cfg.Store.Path = filepath.Join(t.TempDir(), "index.json")

	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	backend, err := cache.NewMemoryBackend(64)
	require.NoError(t, err)
	qc := cache.New(backend)

	st := store.NewFileStore(cfg.Store.Path)
	agg := analytics.NewAggregator(nil)
	events := directTracker{agg: agg}

	exec := executor.New(st, cfg.Search, qc, m)
	pipe := pipeline.New(st, extract.NewDispatcher(), cfg.Ingest, qc, m, events)

	checker := health.NewChecker()
	h := New(cfg.Server, Options{Metrics: m, Health: checker},
		searchhandler.New(exec, qc, events),
		ingesthandler.New(pipe, cfg.Ingest.MaxUploadBytes),
		analytics.NewHandler(agg),
	)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv, agg
}

func upload(t *testing.T, baseURL, name, content string) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(baseURL+"/api/upload", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	return resp
}

func chat(t *testing.T, baseURL, payload string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Post(baseURL+"/api/chat", "application/json", strings.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestService_UploadThenChat(t *testing.T) {
	srv, agg := newService(t)

	status, out := chat(t, srv.URL, `{"message":"refund policy"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "empty_index", out["code"])

	resp := upload(t, srv.URL, "policy.txt",
		"Annual plans are refundable within fourteen days.\n\nInvoices arrive on the first business day.")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ingested struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Chunks int    `json:"chunks"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ingested))
	resp.Body.Close()
	assert.NotEmpty(t, ingested.ID)
	assert.Equal(t, "policy.txt", ingested.Name)
	assert.GreaterOrEqual(t, ingested.Chunks, 1)

	status, out = chat(t, srv.URL, `{"message":"are annual plans refundable?"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "answered", out["outcome"])
	sources, ok := out["sources"].([]any)
	require.True(t, ok)
	require.NotEmpty(t, sources)
	first := sources[0].(map[string]any)
	assert.Equal(t, ingested.ID, first["docId"])
	assert.Contains(t, first["text"], "refundable")

	status, out = chat(t, srv.URL, `{"message":"the"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "insufficient_query", out["outcome"])
	assert.Equal(t, executor.MessageInsufficientQuery, out["answer"])

	status, out = chat(t, srv.URL, `{"message":"kubernetes autoscaling"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "no_relevant_content", out["outcome"])

	listResp, err := http.Get(srv.URL + "/api/v1/documents")
	require.NoError(t, err)
	var listed struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&listed))
	listResp.Body.Close()
	assert.Equal(t, 1, listed.Total)

	stats := agg.Stats()
	assert.Equal(t, int64(1), stats.DocumentsIndexed)
	assert.Equal(t, int64(4), stats.TotalQueries)
	assert.Equal(t, int64(1), stats.QueriesByOutcome["answered"])
}

func TestService_UploadErrors(t *testing.T) {
	srv, _ := newService(t)

	resp, err := http.Post(srv.URL+"/api/upload", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "missing_input", out["code"])

	resp = upload(t, srv.URL, "blank.txt", "   \n\n  ")
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "no_text_found", out["code"])
}

func TestService_ChatRejectsMalformedBody(t *testing.T) {
	srv, _ := newService(t)
	status, out := chat(t, srv.URL, `{"message":`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "malformed_request", out["code"])
}
