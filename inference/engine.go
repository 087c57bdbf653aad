// Package inference - Inference engine interface and implementations.
package inference

import (
	"context"

	"github.com/nvr-ai/go-detect/tensors"
)

// Engine runs a model on one preprocessed input tensor.
type Engine interface {
	// Run executes the model. The returned tensors are owned by the caller.
	Run(ctx context.Context, input []float32) ([]tensors.Tensor, error)
	// Close releases the engine.
	Close() error
}

// EngineFunc adapts a function to the Engine interface. Close is a no-op.
type EngineFunc func(ctx context.Context, input []float32) ([]tensors.Tensor, error)

// Run calls f.
func (f EngineFunc) Run(ctx context.Context, input []float32) ([]tensors.Tensor, error) {
	return f(ctx, input)
}

// Close does nothing.
func (f EngineFunc) Close() error {
	return nil
}
