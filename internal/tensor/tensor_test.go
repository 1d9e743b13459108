package tensor

import (
	"math/rand"
	"testing"
)

// fakeBackend satisfies just enough of Backend for creation-path tests.
// Operations are not exercised here; the cpu package has its own tests.
type fakeBackend struct {
	Backend
}

func (fakeBackend) Device() Device { return CPU }

func TestShape_NumElements(t *testing.T) {
	tests := []struct {
		shape Shape
		want  int
	}{
		{Shape{2, 3}, 6},
		{Shape{1, 3, 224, 224}, 150528},
		{Shape{5}, 5},
	}
	for _, tt := range tests {
		if got := tt.shape.NumElements(); got != tt.want {
			t.Errorf("%v: expected %d elements, got %d", tt.shape, tt.want, got)
		}
	}
}

func TestBroadcastShapes(t *testing.T) {
	tests := []struct {
		a, b    Shape
		want    Shape
		needs   bool
		wantErr bool
	}{
		{Shape{2, 3}, Shape{2, 3}, Shape{2, 3}, false, false},
		{Shape{1, 64, 8, 8}, Shape{1, 64, 1, 1}, Shape{1, 64, 8, 8}, true, false},
		{Shape{4, 5}, Shape{5}, Shape{4, 5}, true, false},
		{Shape{2, 3}, Shape{2, 4}, nil, false, true},
	}
	for _, tt := range tests {
		got, needs, err := BroadcastShapes(tt.a, tt.b)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%v x %v: expected error", tt.a, tt.b)
			}
			continue
		}
		if err != nil {
			t.Errorf("%v x %v: unexpected error %v", tt.a, tt.b, err)
			continue
		}
		if !got.Equal(tt.want) || needs != tt.needs {
			t.Errorf("%v x %v: got %v (broadcast=%v), want %v (broadcast=%v)",
				tt.a, tt.b, got, needs, tt.want, tt.needs)
		}
	}
}

func TestFromSlice_Roundtrip(t *testing.T) {
	backend := fakeBackend{}

	data := []float32{1, 2, 3, 4, 5, 6}
	x, err := FromSlice(data, Shape{2, 3}, backend)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}

	if x.At(0, 0) != 1 || x.At(1, 2) != 6 {
		t.Errorf("unexpected elements: %v, %v", x.At(0, 0), x.At(1, 2))
	}

	x.Set(42, 1, 0)
	if x.At(1, 0) != 42 {
		t.Errorf("Set did not stick: got %v", x.At(1, 0))
	}
}

func TestFromSlice_LengthMismatch(t *testing.T) {
	backend := fakeBackend{}

	if _, err := FromSlice([]float32{1, 2, 3}, Shape{2, 3}, backend); err == nil {
		t.Error("expected error for mismatched slice length")
	}
}

func TestClone_Independent(t *testing.T) {
	backend := fakeBackend{}

	x, err := FromSlice([]float32{1, 2, 3, 4}, Shape{2, 2}, backend)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}

	y := x.Clone()
	y.Set(99, 0, 0)
	if x.At(0, 0) != 1 {
		t.Errorf("clone shares memory with original: got %v", x.At(0, 0))
	}
}

func TestRandnFrom_Reproducible(t *testing.T) {
	backend := fakeBackend{}

	a := RandnFrom[float32](Shape{3, 3}, rand.New(rand.NewSource(7)), backend)
	b := RandnFrom[float32](Shape{3, 3}, rand.New(rand.NewSource(7)), backend)

	aData, bData := a.Data(), b.Data()
	for i := range aData {
		if aData[i] != bData[i] {
			t.Fatalf("element %d differs: %v vs %v", i, aData[i], bData[i])
		}
	}
}

func TestRawTensor_CloneIndependent(t *testing.T) {
	raw, err := NewRaw(Shape{2, 2}, Float32, CPU)
	if err != nil {
		t.Fatalf("NewRaw: %v", err)
	}
	raw.AsFloat32()[0] = 1

	clone := raw.Clone()
	clone.AsFloat32()[0] = 2
	if raw.AsFloat32()[0] != 1 {
		t.Error("clone shares memory with original")
	}
}
