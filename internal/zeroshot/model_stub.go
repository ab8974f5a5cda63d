//go:build !onnx
// +build !onnx

package zeroshot

import (
	"fmt"

	"go.uber.org/zap"
)

// Stub used when the 'onnx' build tag is not set. Model instances must
// then be supplied preloaded via WithModel.
func LoadModel(dir string, logger *zap.Logger) (Model, error) {
	return nil, fmt.Errorf("%w: binary built without onnx support (build tag 'onnx'), cannot load %s", ErrModelNotLoaded, dir)
}
