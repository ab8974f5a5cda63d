package zeroshot

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Classifier is the call surface shared by Pipeline and Pool.
type Classifier interface {
	Classify(ctx context.Context, text string, opts Options) (*Result, error)
}

var _ Classifier = (*Pipeline)(nil)

// Pipeline scores candidate labels against an input text by framing
// classification as textual entailment: each label becomes a hypothesis
// tested against the text, and labels are ranked by entailment
// likelihood. The model and tokenizer are external collaborators; the
// pipeline validates parameters, runs the batched forward pass, and
// converts raw logits into ranked scores.
type Pipeline struct {
	model  Model
	pre    Preprocessor
	logger *zap.Logger
}

type pipelineOptions struct {
	preprocessor Preprocessor
	maxLength    int
	logger       *zap.Logger
}

// PipelineOption configures pipeline construction.
type PipelineOption func(*pipelineOptions)

// WithPreprocessor supplies a preprocessor instance. When absent, one
// is constructed from the resolved model's location.
func WithPreprocessor(p Preprocessor) PipelineOption {
	return func(o *pipelineOptions) { o.preprocessor = p }
}

// WithMaxLength caps tokenized pair length for the default preprocessor.
func WithMaxLength(n int) PipelineOption {
	return func(o *pipelineOptions) { o.maxLength = n }
}

// WithLogger sets the pipeline logger.
func WithLogger(l *zap.Logger) PipelineOption {
	return func(o *pipelineOptions) { o.logger = l }
}

// New builds a pipeline from a model reference. The reference must
// carry either a loaded Model or a model path; anything else fails with
// ErrInvalidModel.
func New(ref ModelRef, opts ...PipelineOption) (*Pipeline, error) {
	o := &pipelineOptions{
		maxLength: 512,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}

	model, err := ref.resolve(o.logger)
	if err != nil {
		return nil, err
	}

	pre := o.preprocessor
	if pre == nil {
		pre, err = NewNLIPreprocessor(model.Path(), o.maxLength, o.logger)
		if err != nil {
			return nil, fmt.Errorf("creating preprocessor: %w", err)
		}
	}

	return &Pipeline{
		model:  model,
		pre:    pre,
		logger: o.logger,
	}, nil
}

// Classify scores each candidate label for the given text and returns
// labels ranked by descending score.
func (p *Pipeline) Classify(ctx context.Context, text string, opts Options) (*Result, error) {
	if err := sanitize(&opts); err != nil {
		return nil, err
	}

	start := time.Now()

	batch, err := p.pre.Prepare(text, opts.CandidateLabels, opts.HypothesisTemplate)
	if err != nil {
		return nil, fmt.Errorf("preprocess failed: %w", err)
	}

	logits, err := p.model.Infer(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("forward pass failed: %w", err)
	}

	result, err := postprocess(logits, opts.CandidateLabels, opts.MultiLabel)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("Classification completed",
		zap.Int("num_labels", len(opts.CandidateLabels)),
		zap.Bool("multi_label", opts.MultiLabel),
		zap.String("top_label", result.Top()),
		zap.Duration("duration", time.Since(start)))

	return result, nil
}

// Close releases the underlying model.
func (p *Pipeline) Close() error {
	return p.model.Close()
}

// sanitize validates call parameters once at entry and fills defaults,
// before any compute happens.
func sanitize(opts *Options) error {
	if len(opts.CandidateLabels) == 0 {
		return ErrNoLabels
	}
	if opts.HypothesisTemplate == "" {
		opts.HypothesisTemplate = DefaultHypothesisTemplate
	}
	if strings.Count(opts.HypothesisTemplate, templateSlot) != 1 {
		return fmt.Errorf("%w: %q", ErrBadTemplate, opts.HypothesisTemplate)
	}
	return nil
}

// postprocess converts raw NLI logits into ranked label scores.
//
// In multi-label mode, or with a single candidate, labels are not
// mutually exclusive: each row becomes an independent binary
// entailment-vs-contradiction softmax, ignoring the neutral class.
// Otherwise the entailment column competes across labels in a single
// softmax. Ties keep the original candidate order.
func postprocess(logits [][]float32, labels []string, multiLabel bool) (*Result, error) {
	if len(logits) != len(labels) {
		return nil, fmt.Errorf("%w: %d logit rows for %d labels", ErrModelOutput, len(logits), len(labels))
	}
	for i, row := range logits {
		if len(row) != numNLIClasses {
			return nil, fmt.Errorf("%w: row %d has %d classes, want %d", ErrModelOutput, i, len(row), numNLIClasses)
		}
	}

	scores := make([]float64, len(labels))
	if multiLabel || len(labels) == 1 {
		for i, row := range logits {
			pair := softmax([]float64{float64(row[ContradictionID]), float64(row[EntailmentID])})
			scores[i] = pair[1]
		}
	} else {
		entailment := make([]float64, len(logits))
		for i, row := range logits {
			entailment[i] = float64(row[EntailmentID])
		}
		scores = softmax(entailment)
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	result := &Result{
		Labels: make([]string, len(labels)),
		Scores: make([]float64, len(labels)),
	}
	for rank, idx := range order {
		result.Labels[rank] = labels[idx]
		result.Scores[rank] = scores[idx]
	}
	return result, nil
}

// softmax computes a numerically stable softmax over xs.
func softmax(xs []float64) []float64 {
	max := math.Inf(-1)
	for _, x := range xs {
		if x > max {
			max = x
		}
	}

	out := make([]float64, len(xs))
	sum := 0.0
	for i, x := range xs {
		out[i] = math.Exp(x - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
