package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labelsmith/labelsmith/internal/events"
	"github.com/labelsmith/labelsmith/internal/history"
	"github.com/labelsmith/labelsmith/internal/zeroshot"
	"go.uber.org/zap"
)

// classifyRequest is the POST /v1/classify payload
type classifyRequest struct {
	Text               string   `json:"text"`
	CandidateLabels    []string `json:"candidate_labels"`
	HypothesisTemplate string   `json:"hypothesis_template,omitempty"`
	MultiLabel         bool     `json:"multi_label,omitempty"`
}

// classifyResponse is the POST /v1/classify result
type classifyResponse struct {
	Sequence   string    `json:"sequence"`
	Labels     []string  `json:"labels"`
	Scores     []float64 `json:"scores"`
	CacheHit   bool      `json:"cache_hit"`
	DurationMS float64   `json:"duration_ms"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code,omitempty"`
}

// handleClassify runs a zero-shot classification request
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := getRequestID(r.Context())
	log := s.logger.WithRequestID(requestID)

	var req classifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err), 0)
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required", 0)
		return
	}

	opts := zeroshot.Options{
		CandidateLabels:    req.CandidateLabels,
		HypothesisTemplate: req.HypothesisTemplate,
		MultiLabel:         req.MultiLabel,
	}

	var cacheKey string
	if s.cache != nil {
		cacheKey = s.cache.Key(s.pool.ModelPath(), req.Text, opts)
		if result, ok := s.cache.Get(r.Context(), cacheKey); ok {
			s.writeClassification(w, req, result, true, time.Since(start), requestID)
			return
		}
	}

	result, err := s.classifier.Classify(r.Context(), req.Text, opts)
	if err != nil {
		status := http.StatusInternalServerError
		var perr *zeroshot.PipelineError
		if errors.Is(err, zeroshot.ErrNoLabels) || errors.Is(err, zeroshot.ErrBadTemplate) {
			status = http.StatusBadRequest
		}
		code := 0
		if errors.As(err, &perr) {
			code = perr.Code
		}
		log.Error("Classification failed",
			zap.Error(err),
			zap.Int("labels", len(req.CandidateLabels)),
		)
		writeError(w, status, err.Error(), code)
		return
	}

	if s.cache != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := s.cache.Set(ctx, cacheKey, s.pool.ModelPath(), result); err != nil {
				log.Warn("Failed to cache classification result", zap.Error(err))
			}
		}()
	}

	s.writeClassification(w, req, result, false, time.Since(start), requestID)
}

// writeClassification sends the response and fans out history/event records
func (s *Server) writeClassification(w http.ResponseWriter, req classifyRequest, result *zeroshot.Result, cacheHit bool, duration time.Duration, requestID string) {
	durationMS := float64(duration.Nanoseconds()) / 1e6

	resp := classifyResponse{
		Sequence:   req.Text,
		Labels:     result.Labels,
		Scores:     result.Scores,
		CacheHit:   cacheHit,
		DurationMS: durationMS,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}

	textHash := hashText(req.Text)

	if s.history != nil {
		go func() {
			ranking, err := json.Marshal(map[string]interface{}{
				"labels": result.Labels,
				"scores": result.Scores,
			})
			if err != nil {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			record := &history.Record{
				RequestID:  requestID,
				TextHash:   textHash,
				TopLabel:   result.Top(),
				Ranking:    string(ranking),
				MultiLabel: req.MultiLabel,
				CacheHit:   cacheHit,
				DurationMS: durationMS,
			}
			if err := s.history.Insert(ctx, record); err != nil {
				s.logger.Warn("Failed to record classification",
					zap.Error(err),
					zap.String("request_id", requestID),
				)
			}
		}()
	}

	if s.hub != nil {
		s.hub.BroadcastEvent(events.Event{
			Type:      events.EventTypeClassification,
			Timestamp: time.Now(),
			RequestID: requestID,
			Data: events.ClassificationEvent{
				RequestID:  requestID,
				TextHash:   textHash,
				TopLabel:   result.Top(),
				Labels:     result.Labels,
				Scores:     result.Scores,
				MultiLabel: req.MultiLabel,
				CacheHit:   cacheHit,
				DurationMS: durationMS,
			},
		})
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
}

// handleInfo reports the running configuration
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":            "labelsmith",
		"version":         "0.1.0",
		"model_path":      s.pool.ModelPath(),
		"pool_size":       s.pool.Size(),
		"max_length":      s.config.Model.MaxLength,
		"cache_enabled":   s.cache != nil,
		"history_enabled": s.history != nil,
		"events_enabled":  s.hub != nil,
		"uptime":          time.Since(s.startTime).String(),
	}
	if s.cache != nil {
		stats := s.cache.Stats()
		info["cache_stats"] = stats
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(info); err != nil {
		s.logger.Error("Failed to encode info response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: message, Code: code})
}

// hashText returns a hex SHA-256 digest, used so raw input text is never stored
func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
