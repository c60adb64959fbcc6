package vocana

import "fmt"

// Tensor is the wire type exchanged with an InferenceBackend: a shape
// and a flat row-major data buffer where product(Shape) == len(Data).
type Tensor struct {
	Shape []int64
	Data  []float32
}

// elementCount returns product(Shape).
func (t Tensor) elementCount() int64 {
	n := int64(1)
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// validate checks the Tensor's shape/data product invariant.
func (t Tensor) validate() error {
	if t.elementCount() != int64(len(t.Data)) {
		return newError(ErrorKindShapeMismatch, "tensor.validate",
			fmt.Sprintf("shape %v implies %d elements, got %d", t.Shape, t.elementCount(), len(t.Data)))
	}
	return nil
}

// EncoderStateKeys are the required keys the encoder must produce and
// both decoders must consume (spec §3's neural state bundle).
var EncoderStateKeys = []string{"e0", "e1", "e2", "e3", "emb", "c0", "lsnr"}

// InferenceBackend is the C7 capability: an opaque model-inference
// service with named tensor inputs/outputs. The pipeline treats
// Tensor as an opaque value; Mock, Native, and GpuStub backends are
// tagged variants of this one interface rather than a class
// hierarchy, per spec §9's "prefer an interface/trait-object over
// inheritance" guidance.
type InferenceBackend interface {
	InputNames() []string
	OutputNames() []string
	Run(inputs map[string]Tensor) (map[string]Tensor, error)
}

// ModelTriple bundles the three backends the pipeline drives in
// sequence: encoder, ERB decoder, deep-filter decoder.
type ModelTriple struct {
	Encoder   InferenceBackend
	ERBDec    InferenceBackend
	DFDec     InferenceBackend
}

// MockBackend is a deterministic InferenceBackend used for testing
// and for the demo CLI (spec §9: "a mock implementation is required
// for testing"). It fills every declared output with a constant value
// and shapes outputs from the erb_feat/spec_feat input shapes it
// receives, so it can stand in for any of the three models.
type MockBackend struct {
	inputNames  []string
	outputNames []string
	fill        float32
	// shapeFn derives an output tensor's shape from the inputs Run
	// received, keyed by output name. If shapeFn is nil, every output
	// is a 1-element tensor of shape [1] (tests normally pass an
	// explicit shapeFn for T/Bins-dependent outputs).
	shapeFn func(name string, inputs map[string]Tensor) []int64
}

// NewMockBackend constructs a MockBackend. fill is the constant value
// written to every element of every output. shapeFn computes each
// output tensor's shape from the Run inputs; pass nil to use 1-element
// scalar outputs.
func NewMockBackend(inputNames, outputNames []string, fill float32, shapeFn func(name string, inputs map[string]Tensor) []int64) *MockBackend {
	return &MockBackend{inputNames: inputNames, outputNames: outputNames, fill: fill, shapeFn: shapeFn}
}

func (m *MockBackend) InputNames() []string  { return m.inputNames }
func (m *MockBackend) OutputNames() []string { return m.outputNames }

func (m *MockBackend) Run(inputs map[string]Tensor) (map[string]Tensor, error) {
	for _, name := range m.inputNames {
		tn, ok := inputs[name]
		if !ok {
			return nil, newError(ErrorKindMissingOutput, "mock_backend.run", "missing required input "+name)
		}
		if err := tn.validate(); err != nil {
			return nil, err
		}
	}

	out := make(map[string]Tensor, len(m.outputNames))
	for _, name := range m.outputNames {
		var shape []int64
		if m.shapeFn != nil {
			shape = m.shapeFn(name, inputs)
		} else {
			shape = []int64{1}
		}
		n := int64(1)
		for _, d := range shape {
			n *= d
		}
		data := make([]float32, n)
		for i := range data {
			data[i] = m.fill
		}
		out[name] = Tensor{Shape: shape, Data: data}
	}
	return out, nil
}

// NativeBackend is a documented placeholder for a real ONNX-backed
// InferenceBackend. Binary-compatible ONNX operator execution and the
// native C-API shim are this spec's explicit non-goals, so this
// variant always fails; it exists so the {Mock, Native, GpuStub}
// tagging scheme from spec §9 is real, checkable Go code rather than
// a comment.
type NativeBackend struct {
	inputNames, outputNames []string
}

// NewNativeBackend constructs a NativeBackend for the given model I/O
// names. Run always fails with ErrorKindModelLoadFailed.
func NewNativeBackend(inputNames, outputNames []string) *NativeBackend {
	return &NativeBackend{inputNames: inputNames, outputNames: outputNames}
}

func (n *NativeBackend) InputNames() []string  { return n.inputNames }
func (n *NativeBackend) OutputNames() []string { return n.outputNames }
func (n *NativeBackend) Run(map[string]Tensor) (map[string]Tensor, error) {
	return nil, newError(ErrorKindModelLoadFailed, "native_backend.run",
		"native ONNX inference is out of scope for this module; supply a Mock or externally-hosted backend")
}

// GpuStub is a documented placeholder for a GPU-accelerated backend.
// GPU compute kernels are this spec's explicit non-goal; Run always
// fails.
type GpuStub struct {
	inputNames, outputNames []string
}

// NewGpuStub constructs a GpuStub for the given model I/O names.
func NewGpuStub(inputNames, outputNames []string) *GpuStub {
	return &GpuStub{inputNames: inputNames, outputNames: outputNames}
}

func (g *GpuStub) InputNames() []string  { return g.inputNames }
func (g *GpuStub) OutputNames() []string { return g.outputNames }
func (g *GpuStub) Run(map[string]Tensor) (map[string]Tensor, error) {
	return nil, newError(ErrorKindModelLoadFailed, "gpu_stub.run", "GPU inference is out of scope for this module")
}
