package inference

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/multierr"

	"github.com/nvr-ai/go-detect/inference/providers"
	"github.com/nvr-ai/go-detect/models/postprocess"
	"github.com/nvr-ai/go-detect/tensors"
)

// SessionArgs represents the arguments for creating a new ONNX session.
type SessionArgs struct {
	// ModelPath is the path to the ONNX model file.
	ModelPath string
	// LibraryPath is the ONNX Runtime shared library. Empty uses DefaultLibraryPath.
	LibraryPath string
	// Inputs names the input tensor. Empty reads the name from the model.
	Inputs []string
	// Outputs names the output tensors, in the order Run returns them. Empty
	// reads every output from the model.
	Outputs []string
	// InputShape is the full input shape, e.g. [1, 3, 320, 320].
	InputShape []int64
	// Provider selects the execution provider.
	Provider providers.Config
}

func (a SessionArgs) validate() error {
	if a.ModelPath == "" {
		return errors.Wrap(postprocess.ErrInvalidConfig, "model path is required")
	}
	if len(a.Inputs) > 1 {
		return errors.Wrapf(postprocess.ErrInvalidConfig, "one input tensor is supported, got %d", len(a.Inputs))
	}
	if len(a.InputShape) == 0 {
		return errors.Wrap(postprocess.ErrInvalidConfig, "input shape is required")
	}
	if inputSize(a.InputShape) <= 0 {
		return errors.Wrapf(postprocess.ErrInvalidConfig, "input shape %v has no elements", a.InputShape)
	}
	return a.Provider.Validate()
}

// Session runs a model through an ONNX Runtime session. Outputs are allocated
// by the runtime on every call and copied out, so callers own their buffers.
// Run is safe for concurrent use; calls are serialized.
type Session struct {
	mu         sync.Mutex
	session    *ort.DynamicAdvancedSession
	inputShape ort.Shape
	inputSize  int
	outputs    []string
}

// NewSession creates a new ONNX session.
//
// Order of operations:
//  1. Environment setup: loads the native library once per process.
//  2. Name discovery: reads tensor names from the model when not configured.
//  3. Session options: threading, optimization level and execution provider.
//  4. Session creation: loads the model and binds the names.
//
// Arguments:
//   - args: The arguments for the session.
//
// Returns:
//   - *Session: The session.
//   - error: An error if the session creation fails.
func NewSession(args SessionArgs) (*Session, error) {
	if err := args.validate(); err != nil {
		return nil, err
	}
	if err := Initialize(args.LibraryPath); err != nil {
		return nil, err
	}

	inputs, outputs := args.Inputs, args.Outputs
	if len(inputs) == 0 || len(outputs) == 0 {
		in, out, err := ort.GetInputOutputInfo(args.ModelPath)
		if err != nil {
			return nil, errors.Wrapf(err, "error reading tensor names of %s", args.ModelPath)
		}
		if len(inputs) == 0 {
			if len(in) != 1 {
				return nil, errors.Wrapf(postprocess.ErrInvalidConfig, "model has %d inputs, expected 1", len(in))
			}
			inputs = []string{in[0].Name}
		}
		if len(outputs) == 0 {
			for _, o := range out {
				outputs = append(outputs, o.Name)
			}
		}
	}

	options, err := providers.NewSessionOptions(args.Provider)
	if err != nil {
		return nil, err
	}
	defer options.Destroy()

	session, err := ort.NewDynamicAdvancedSession(args.ModelPath, inputs, outputs, options)
	if err != nil {
		return nil, errors.Wrapf(err, "error creating ORT session for %s", args.ModelPath)
	}

	return &Session{
		session:    session,
		inputShape: ort.NewShape(args.InputShape...),
		inputSize:  inputSize(args.InputShape),
		outputs:    outputs,
	}, nil
}

// Outputs returns the output tensor names in Run order.
func (s *Session) Outputs() []string {
	return append([]string(nil), s.outputs...)
}

// Run executes the model on one input.
//
// Arguments:
//   - ctx: Checked before the native call, which cannot be interrupted.
//   - input: The preprocessed input, exactly InputShape elements.
//
// Returns:
//   - []tensors.Tensor: One tensor per output name.
//   - error: If the input size is wrong or the runtime fails.
func (s *Session) Run(ctx context.Context, input []float32) (result []tensors.Tensor, err error) {
	if len(input) != s.inputSize {
		return nil, errors.Wrapf(postprocess.ErrShapeMismatch,
			"input has %d elements, shape %v needs %d", len(input), s.inputShape, s.inputSize)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil, errors.New("session is closed")
	}

	in, err := ort.NewTensor(s.inputShape, input)
	if err != nil {
		return nil, errors.Wrap(err, "error creating input tensor")
	}
	defer func() { err = multierr.Append(err, in.Destroy()) }()

	values := make([]ort.Value, len(s.outputs))
	defer func() {
		for _, v := range values {
			if v != nil {
				err = multierr.Append(err, v.Destroy())
			}
		}
	}()

	if err := s.session.Run([]ort.Value{in}, values); err != nil {
		return nil, errors.Wrap(err, "error running ORT session")
	}

	result = make([]tensors.Tensor, 0, len(values))
	for i, v := range values {
		t, ok := v.(*ort.Tensor[float32])
		if !ok {
			return nil, errors.Wrapf(postprocess.ErrShapeMismatch, "output %q is %T, not float32", s.outputs[i], v)
		}
		result = append(result, tensors.Tensor{
			Name:  s.outputs[i],
			Shape: toInts(t.GetShape()),
			Data:  append([]float32(nil), t.GetData()...),
		})
	}
	return result, nil
}

// Close releases the native session. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil
	}
	err := s.session.Destroy()
	s.session = nil
	return errors.Wrap(err, "error destroying ORT session")
}

func inputSize(shape []int64) int {
	if len(shape) == 0 {
		return 0
	}
	n := int64(1)
	for _, d := range shape {
		n *= d
	}
	if n < 0 {
		return 0
	}
	return int(n)
}

func toInts(shape ort.Shape) []int {
	out := make([]int, len(shape))
	for i, d := range shape {
		out[i] = int(d)
	}
	return out
}
