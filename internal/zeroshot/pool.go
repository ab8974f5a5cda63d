package zeroshot

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

var _ Classifier = (*Pool)(nil)

// Pool serves concurrent classification requests over a fixed set of
// pipelines sharing one model. Each pipeline owns its own tokenizer, so
// calls are safe to run in parallel up to the pool size.
type Pool struct {
	pipelines []*Pipeline
	model     Model
	sem       *semaphore.Weighted
	next      atomic.Uint64
	size      int
	logger    *zap.Logger
}

// NewPool resolves the model once and builds size pipelines around it.
// size <= 0 picks a CPU-derived default, capped at 4 (NLI models are
// memory intensive).
func NewPool(ref ModelRef, size int, opts ...PipelineOption) (*Pool, error) {
	o := &pipelineOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}

	if size <= 0 {
		size = runtime.NumCPU()
		if size > 4 {
			size = 4
		}
	}

	model, err := ref.resolve(o.logger)
	if err != nil {
		return nil, err
	}

	pipelines := make([]*Pipeline, size)
	for i := 0; i < size; i++ {
		p, err := New(WithModel(model), opts...)
		if err != nil {
			model.Close()
			return nil, fmt.Errorf("creating pipeline %d: %w", i, err)
		}
		pipelines[i] = p
	}

	o.logger.Info("Classification pool ready",
		zap.Int("pool_size", size),
		zap.String("model", model.Path()))

	return &Pool{
		pipelines: pipelines,
		model:     model,
		sem:       semaphore.NewWeighted(int64(size)),
		size:      size,
		logger:    o.logger,
	}, nil
}

// Classify picks a pipeline round-robin and runs the classification,
// blocking while all pipelines are busy.
func (pl *Pool) Classify(ctx context.Context, text string, opts Options) (*Result, error) {
	if err := pl.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquiring pipeline slot: %w", err)
	}
	defer pl.sem.Release(1)

	idx := int(pl.next.Add(1) % uint64(pl.size))
	return pl.pipelines[idx].Classify(ctx, text, opts)
}

// Size returns the number of pipelines in the pool.
func (pl *Pool) Size() int {
	return pl.size
}

// ModelPath returns the shared model's resolved location.
func (pl *Pool) ModelPath() string {
	return pl.model.Path()
}

// Close releases the shared model.
func (pl *Pool) Close() error {
	return pl.model.Close()
}
