package vocana

import "testing"

func TestTensorValidate(t *testing.T) {
	ok := Tensor{Shape: []int64{2, 3}, Data: make([]float32, 6)}
	if err := ok.validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := Tensor{Shape: []int64{2, 3}, Data: make([]float32, 5)}
	if err := bad.validate(); !Is(err, ErrorKindShapeMismatch) {
		t.Fatalf("expected ErrorKindShapeMismatch, got %v", err)
	}
}

func TestMockBackendFillsDeclaredOutputs(t *testing.T) {
	backend := NewMockBackend([]string{"x"}, []string{"y"}, 2.5, func(name string, inputs map[string]Tensor) []int64 {
		return []int64{int64(len(inputs["x"].Data))}
	})

	out, err := backend.Run(map[string]Tensor{"x": {Shape: []int64{3}, Data: []float32{1, 2, 3}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	y, ok := out["y"]
	if !ok {
		t.Fatalf("missing output y")
	}
	if len(y.Data) != 3 {
		t.Fatalf("expected 3 elements, got %d", len(y.Data))
	}
	for _, v := range y.Data {
		if v != 2.5 {
			t.Fatalf("expected fill value 2.5, got %v", v)
		}
	}
}

func TestMockBackendMissingInput(t *testing.T) {
	backend := NewMockBackend([]string{"x"}, []string{"y"}, 0, nil)
	if _, err := backend.Run(map[string]Tensor{}); !Is(err, ErrorKindMissingOutput) {
		t.Fatalf("expected ErrorKindMissingOutput, got %v", err)
	}
}

func TestNativeBackendAlwaysFails(t *testing.T) {
	b := NewNativeBackend([]string{"x"}, []string{"y"})
	if _, err := b.Run(map[string]Tensor{}); !Is(err, ErrorKindModelLoadFailed) {
		t.Fatalf("expected ErrorKindModelLoadFailed, got %v", err)
	}
}

func TestGpuStubAlwaysFails(t *testing.T) {
	g := NewGpuStub([]string{"x"}, []string{"y"})
	if _, err := g.Run(map[string]Tensor{}); !Is(err, ErrorKindModelLoadFailed) {
		t.Fatalf("expected ErrorKindModelLoadFailed, got %v", err)
	}
}
