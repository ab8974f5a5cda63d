package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/labelsmith/labelsmith/internal/config"
	"github.com/labelsmith/labelsmith/internal/logger"
	"github.com/labelsmith/labelsmith/internal/zeroshot"
	"go.uber.org/zap"
)

// fakeModel satisfies zeroshot.Model with canned logits
type fakeModel struct {
	logits [][]float32
}

func (f *fakeModel) Infer(ctx context.Context, batch *zeroshot.EncodedBatch) ([][]float32, error) {
	return f.logits, nil
}

func (f *fakeModel) Path() string { return "testdata/fake-model" }
func (f *fakeModel) Close() error { return nil }

// fakePreprocessor satisfies zeroshot.Preprocessor without a tokenizer
type fakePreprocessor struct{}

func (f *fakePreprocessor) Prepare(text string, labels []string, template string) (*zeroshot.EncodedBatch, error) {
	rows := make([][]int64, len(labels))
	return &zeroshot.EncodedBatch{InputIDs: rows, AttentionMask: rows, TokenTypeIDs: rows}, nil
}

func newTestServer(t *testing.T, logits [][]float32) *Server {
	t.Helper()

	pool, err := zeroshot.NewPool(
		zeroshot.WithModel(&fakeModel{logits: logits}),
		1,
		zeroshot.WithPreprocessor(&fakePreprocessor{}),
		zeroshot.WithLogger(zap.NewNop()),
	)
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	cfg := config.GetDefaults()
	cfg.Server.RateLimit.Enabled = false

	s := &Server{
		config:     cfg,
		logger:     &logger.Logger{Logger: zap.NewNop()},
		pool:       pool,
		classifier: pool,
		router:     mux.NewRouter(),
		startTime:  time.Now(),
	}
	s.setupRoutes()
	return s
}

func TestHandleClassify(t *testing.T) {
	// Two candidate labels, entailment column favors the first
	s := newTestServer(t, [][]float32{
		{0.1, 0.2, 2.0},
		{0.3, 0.1, 0.1},
	})

	body, _ := json.Marshal(classifyRequest{
		Text:            "one day I will see the world",
		CandidateLabels: []string{"travel", "cooking"},
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/classify", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp classifyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Sequence != "one day I will see the world" {
		t.Errorf("unexpected sequence %q", resp.Sequence)
	}
	if len(resp.Labels) != 2 || resp.Labels[0] != "travel" {
		t.Errorf("expected travel ranked first, got %v", resp.Labels)
	}
	if len(resp.Scores) != 2 || resp.Scores[0] <= resp.Scores[1] {
		t.Errorf("expected descending scores, got %v", resp.Scores)
	}
	if resp.CacheHit {
		t.Error("expected cache_hit to be false without a cache")
	}
}

func TestHandleClassifyValidation(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{
			name:   "MalformedJSON",
			body:   `{"text": `,
			status: http.StatusBadRequest,
		},
		{
			name:   "MissingText",
			body:   `{"candidate_labels": ["a"]}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "MissingLabels",
			body:   `{"text": "hello"}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "BadTemplate",
			body:   `{"text": "hello", "candidate_labels": ["a"], "hypothesis_template": "no slot"}`,
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/classify", bytes.NewReader([]byte(tt.body)))
			rec := httptest.NewRecorder()
			s.router.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Errorf("expected status %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("expected healthy status, got %q", body["status"])
	}
}

func TestHandleInfo(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/info", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var info map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("failed to decode info response: %v", err)
	}
	if info["name"] != "labelsmith" {
		t.Errorf("unexpected name %v", info["name"])
	}
	if info["model_path"] != "testdata/fake-model" {
		t.Errorf("unexpected model_path %v", info["model_path"])
	}
	if info["pool_size"] != float64(1) {
		t.Errorf("unexpected pool_size %v", info["pool_size"])
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	s := newTestServer(t, [][]float32{{0.1, 0.2, 2.0}})
	s.limiter = newIPRateLimiter(1, 2)

	body := `{"text": "hello", "candidate_labels": ["a"]}`

	var rejected int
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/classify", bytes.NewReader([]byte(body)))
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			rejected++
		}
	}

	if rejected == 0 {
		t.Error("expected some requests to be rate limited")
	}

	// A different client gets its own bucket
	req := httptest.NewRequest(http.MethodPost, "/v1/classify", bytes.NewReader([]byte(body)))
	req.RemoteAddr = "10.0.0.2:1234"
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected fresh client to pass, got %d", rec.Code)
	}
}
