package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lysyi3m/rss-brief/app/cycle"
	"github.com/lysyi3m/rss-brief/app/reconcile"
	"github.com/lysyi3m/rss-brief/app/tasks"
)

const testAPIKey = "secret"

type mockPipeline struct {
	status cycle.Status
}

func (m *mockPipeline) RunCycle(ctx context.Context) (cycle.Report, error) {
	return cycle.Report{}, nil
}

func (m *mockPipeline) Sync(ctx context.Context) reconcile.Result {
	return reconcile.Result{State: reconcile.StateDone}
}

func (m *mockPipeline) Status() cycle.Status {
	return m.status
}

type mockScheduler struct {
	enqueued []tasks.TaskInterface
	err      error
}

func (m *mockScheduler) Start() {}
func (m *mockScheduler) Stop()  {}

func (m *mockScheduler) EnqueueTask(task tasks.TaskInterface) error {
	if m.err != nil {
		return m.err
	}
	m.enqueued = append(m.enqueued, task)
	return nil
}

func newTestServer(t *testing.T, apiKey string) (http.Handler, string, *mockPipeline, *mockScheduler) {
	t.Helper()

	feedPath := filepath.Join(t.TempDir(), "feed.xml")
	pipeline := &mockPipeline{}
	scheduler := &mockScheduler{}
	handler := NewHandler(feedPath, "test", pipeline, scheduler)

	return NewServer(handler, apiKey), feedPath, pipeline, scheduler
}

func serve(h http.Handler, method, path, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestGetFeed(t *testing.T) {
	server, feedPath, _, _ := newTestServer(t, "")

	w := serve(server, "GET", "/feed.xml", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 before the feed exists, got %d", w.Code)
	}

	content := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Brief</title><lastBuildDate>Fri, 01 Mar 2024 12:00:00 +0000</lastBuildDate></channel></rss>
`
	if err := os.WriteFile(feedPath, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write feed: %v", err)
	}

	w = serve(server, "GET", "/feed.xml", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if w.Body.String() != content {
		t.Errorf("Expected feed served verbatim, got %q", w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/xml") {
		t.Errorf("Expected application/xml content type, got %q", ct)
	}
	if updated := w.Header().Get("X-Last-Updated"); updated != "2024-03-01T12:00:00Z" {
		t.Errorf("Expected X-Last-Updated 2024-03-01T12:00:00Z, got %q", updated)
	}
}

func TestGetHealth(t *testing.T) {
	server, _, _, _ := newTestServer(t, "")

	w := serve(server, "GET", "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("Expected status ok, got %v", body["status"])
	}
	if _, err := time.Parse(time.RFC3339, body["timestamp"].(string)); err != nil {
		t.Errorf("Expected RFC3339 timestamp, got %v", body["timestamp"])
	}
}

func TestAPIDisabledWithoutKey(t *testing.T) {
	server, _, _, _ := newTestServer(t, "")

	w := serve(server, "POST", "/api/cycle", "anything")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 when the API is disabled, got %d", w.Code)
	}
}

func TestAPIAuthentication(t *testing.T) {
	server, _, _, _ := newTestServer(t, testAPIKey)

	tests := []struct {
		name     string
		header   string
		value    string
		expected int
	}{
		{"missing key", "", "", http.StatusUnauthorized},
		{"wrong key", "X-API-Key", "wrong", http.StatusUnauthorized},
		{"api key header", "X-API-Key", testAPIKey, http.StatusOK},
		{"bearer token", "Authorization", "Bearer " + testAPIKey, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/status", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			w := httptest.NewRecorder()
			server.ServeHTTP(w, req)

			if w.Code != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, w.Code)
			}
		})
	}
}

func TestAPIEnqueuesTasks(t *testing.T) {
	server, _, _, scheduler := newTestServer(t, testAPIKey)

	w := serve(server, "POST", "/api/cycle", testAPIKey)
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", w.Code)
	}

	w = serve(server, "POST", "/api/sync", testAPIKey)
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", w.Code)
	}

	if len(scheduler.enqueued) != 2 {
		t.Fatalf("Expected 2 enqueued tasks, got %d", len(scheduler.enqueued))
	}
	if scheduler.enqueued[0].GetType() != tasks.TaskTypeCycle {
		t.Errorf("Expected cycle task, got %s", scheduler.enqueued[0].GetType())
	}
	if scheduler.enqueued[1].GetType() != tasks.TaskTypeSync {
		t.Errorf("Expected sync task, got %s", scheduler.enqueued[1].GetType())
	}

	var body struct {
		Task struct {
			ID   string `json:"id"`
			Type string `json:"type"`
		} `json:"task"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body.Task.ID != scheduler.enqueued[1].GetID() || body.Task.Type != "sync" {
		t.Errorf("Expected sync task %s in response, got %+v", scheduler.enqueued[1].GetID(), body.Task)
	}

	scheduler.err = errors.New("task queue is full")
	w = serve(server, "POST", "/api/cycle", testAPIKey)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 when the queue is full, got %d", w.Code)
	}
}

func TestAPIGetStatus(t *testing.T) {
	server, _, pipeline, _ := newTestServer(t, testAPIKey)

	pipeline.status = cycle.Status{
		LastCycle: &cycle.Report{NewItems: 3, DateKey: "20240302", Rebuilt: true, Entries: 7, Err: nil},
		LastSync:  &reconcile.Result{State: reconcile.StateFailed, Decision: reconcile.LocalWins, Err: errors.New("conflict")},
	}

	w := serve(server, "GET", "/api/status", testAPIKey)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var body struct {
		Cycle map[string]any `json:"cycle"`
		Sync  map[string]any `json:"sync"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if body.Cycle["date_key"] != "20240302" || body.Cycle["succeeded"] != true {
		t.Errorf("Unexpected cycle status: %v", body.Cycle)
	}
	if body.Sync["state"] != "failed" || body.Sync["decision"] != "local_wins" || body.Sync["error"] != "conflict" {
		t.Errorf("Unexpected sync status: %v", body.Sync)
	}
}
