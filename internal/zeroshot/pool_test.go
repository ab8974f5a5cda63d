package zeroshot

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestNewPool(t *testing.T) {
	t.Run("ZeroModelRef", func(t *testing.T) {
		_, err := NewPool(ModelRef{}, 2)
		if !errors.Is(err, ErrInvalidModel) {
			t.Fatalf("Expected ErrInvalidModel, got %v", err)
		}
	})

	t.Run("SharedModel", func(t *testing.T) {
		model := &fakeModel{logits: [][]float32{{0, 0, 1}}}
		pool, err := NewPool(WithModel(model), 3, WithPreprocessor(&fakePreprocessor{}))
		if err != nil {
			t.Fatalf("NewPool failed: %v", err)
		}
		if pool.Size() != 3 {
			t.Errorf("Expected pool size 3, got %d", pool.Size())
		}
		if pool.ModelPath() != model.Path() {
			t.Errorf("Unexpected model path: %s", pool.ModelPath())
		}
		if err := pool.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
		if !model.closed {
			t.Error("Shared model was not closed")
		}
	})
}

func TestPoolClassifyConcurrent(t *testing.T) {
	model := &fakeModel{logits: [][]float32{
		{0, 0, 2.0},
		{0, 0, 0.1},
	}}
	pool, err := NewPool(WithModel(model), 2, WithPreprocessor(&fakePreprocessor{}))
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	defer pool.Close()

	opts := Options{CandidateLabels: []string{"sports", "politics"}}
	var wg sync.WaitGroup
	errs := make(chan error, 16)

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := pool.Classify(context.Background(), "the game went to overtime", opts)
			if err != nil {
				errs <- err
				return
			}
			if result.Labels[0] != "sports" {
				errs <- errors.New("unexpected top label " + result.Labels[0])
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Concurrent classify error: %v", err)
	}
}

func TestPoolClassifyCancelled(t *testing.T) {
	pool, err := NewPool(WithModel(&fakeModel{}), 1, WithPreprocessor(&fakePreprocessor{}))
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	defer pool.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A cancelled context must fail slot acquisition, not run inference.
	_, err = pool.Classify(ctx, "text", Options{CandidateLabels: []string{"a"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
}
