package zeroshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Model is the inference collaborator: a sequence-pair classification
// model that maps an encoded premise/hypothesis batch to one row of
// 3-way NLI logits per pair.
type Model interface {
	// Infer runs a single batched forward pass and returns logits with
	// shape (batch, 3), column order contradiction/neutral/entailment.
	Infer(ctx context.Context, batch *EncodedBatch) ([][]float32, error)
	// Path returns the model's resolved location on disk.
	Path() string
	// Close releases any native resources.
	Close() error
}

// ModelRef selects a model for pipeline construction: either an already
// loaded Model instance or a path to resolve via LoadModel. The zero
// value is invalid.
type ModelRef struct {
	model Model
	path  string
}

// WithModel references a preloaded model instance.
func WithModel(m Model) ModelRef {
	return ModelRef{model: m}
}

// WithModelPath references a model directory to be loaded on
// construction.
func WithModelPath(path string) ModelRef {
	return ModelRef{path: path}
}

func (r ModelRef) resolve(logger *zap.Logger) (Model, error) {
	switch {
	case r.model != nil:
		return r.model, nil
	case r.path != "":
		return LoadModel(r.path, logger)
	default:
		return nil, ErrInvalidModel
	}
}

// modelConfig is the subset of a model directory's config.json needed
// to verify the label schema.
type modelConfig struct {
	ModelType string            `json:"model_type"`
	ID2Label  map[string]string `json:"id2label"`
}

// verifyNLISchema checks that the model at dir declares entailment and
// contradiction output classes, which is what makes it usable for
// zero-shot classification.
func verifyNLISchema(dir string) error {
	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		return fmt.Errorf("reading model config: %w", err)
	}

	var cfg modelConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parsing model config: %w", err)
	}

	hasEntailment := false
	hasContradiction := false
	for _, label := range cfg.ID2Label {
		switch strings.ToLower(label) {
		case "entailment":
			hasEntailment = true
		case "contradiction":
			hasContradiction = true
		}
	}

	if !hasEntailment || !hasContradiction {
		return fmt.Errorf("%w: %s", ErrNotNLIModel, dir)
	}
	return nil
}
