package cpu

import (
	"math"
	"testing"

	"github.com/mobilevision-ml/mobilevision/internal/tensor"
)

// TestAdd_SameShape tests element-wise addition without broadcasting.
func TestAdd_SameShape(t *testing.T) {
	backend := New()

	a := rawFromValues(t, tensor.Shape{2, 2}, []float32{1, 2, 3, 4})
	b := rawFromValues(t, tensor.Shape{2, 2}, []float32{10, 20, 30, 40})

	got := backend.Add(a, b).AsFloat32()
	expected := []float32{11, 22, 33, 44}
	for i, want := range expected {
		if got[i] != want {
			t.Errorf("add[%d]: expected %v, got %v", i, want, got[i])
		}
	}
}

// TestMul_Broadcast tests broadcasting a channel vector over a 4D tensor,
// the pattern BatchNorm and the SE gate rely on.
func TestMul_Broadcast(t *testing.T) {
	backend := New()

	// [1, 2, 2, 2] input, [1, 2, 1, 1] scale
	x := rawFromValues(t, tensor.Shape{1, 2, 2, 2},
		[]float32{1, 2, 3, 4, 5, 6, 7, 8})
	scale := rawFromValues(t, tensor.Shape{1, 2, 1, 1}, []float32{2, 10})

	got := backend.Mul(x, scale).AsFloat32()
	expected := []float32{2, 4, 6, 8, 50, 60, 70, 80}
	for i, want := range expected {
		if got[i] != want {
			t.Errorf("mul[%d]: expected %v, got %v", i, want, got[i])
		}
	}
}

// TestDiv_Broadcast tests division by a broadcast row vector.
func TestDiv_Broadcast(t *testing.T) {
	backend := New()

	x := rawFromValues(t, tensor.Shape{2, 2}, []float32{2, 9, 4, 27})
	d := rawFromValues(t, tensor.Shape{1, 2}, []float32{2, 3})

	got := backend.Div(x, d).AsFloat32()
	expected := []float32{1, 3, 2, 9}
	for i, want := range expected {
		if got[i] != want {
			t.Errorf("div[%d]: expected %v, got %v", i, want, got[i])
		}
	}
}

// TestMatMul_KnownValues tests a 2x3 @ 3x2 product.
func TestMatMul_KnownValues(t *testing.T) {
	backend := New()

	a := rawFromValues(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	b := rawFromValues(t, tensor.Shape{3, 2}, []float32{7, 8, 9, 10, 11, 12})

	out := backend.MatMul(a, b)
	if !out.Shape().Equal(tensor.Shape{2, 2}) {
		t.Fatalf("shape: got %v", out.Shape())
	}
	expected := []float32{58, 64, 139, 154}
	got := out.AsFloat32()
	for i, want := range expected {
		if got[i] != want {
			t.Errorf("matmul[%d]: expected %v, got %v", i, want, got[i])
		}
	}
}

// TestReLU6_Clamp tests both clamping points.
func TestReLU6_Clamp(t *testing.T) {
	backend := New()

	x := rawFromValues(t, tensor.Shape{5}, []float32{-3, 0, 2.5, 6, 100})
	got := backend.ReLU6(x).AsFloat32()
	expected := []float32{0, 0, 2.5, 6, 6}
	for i, want := range expected {
		if got[i] != want {
			t.Errorf("relu6[%d]: expected %v, got %v", i, want, got[i])
		}
	}
}

// TestSigmoid_Range tests outputs are in (0, 1) and sigmoid(0) = 0.5.
func TestSigmoid_Range(t *testing.T) {
	backend := New()

	x := rawFromValues(t, tensor.Shape{3}, []float32{-10, 0, 10})
	got := backend.Sigmoid(x).AsFloat32()

	if math.Abs(float64(got[1]-0.5)) > 1e-6 {
		t.Errorf("sigmoid(0): expected 0.5, got %v", got[1])
	}
	for i, v := range got {
		if v <= 0 || v >= 1 {
			t.Errorf("sigmoid[%d]: %v outside (0, 1)", i, v)
		}
	}
	if got[0] > 0.001 || got[2] < 0.999 {
		t.Errorf("sigmoid saturation: got %v, %v", got[0], got[2])
	}
}

// TestSoftmax_RowsSumToOne tests normalization along the last dim.
func TestSoftmax_RowsSumToOne(t *testing.T) {
	backend := New()

	x := rawFromValues(t, tensor.Shape{2, 3}, []float32{1, 2, 3, -1, 0, 1})
	out := backend.Softmax(x, -1).AsFloat32()

	for row := 0; row < 2; row++ {
		var sum float32
		for col := 0; col < 3; col++ {
			sum += out[row*3+col]
		}
		if math.Abs(float64(sum-1)) > 1e-5 {
			t.Errorf("row %d: sum %v, expected 1", row, sum)
		}
	}

	// Larger logits get larger probabilities.
	if !(out[0] < out[1] && out[1] < out[2]) {
		t.Errorf("row 0 not monotonic: %v", out[:3])
	}
}

// TestMeanDim tests spatial pooling reductions.
func TestMeanDim(t *testing.T) {
	backend := New()

	// [1, 2, 2, 2]: channel means are 2.5 and 25.
	x := rawFromValues(t, tensor.Shape{1, 2, 2, 2},
		[]float32{1, 2, 3, 4, 10, 20, 30, 40})

	pooled := backend.MeanDim(backend.MeanDim(x, 3, false), 2, false)
	if !pooled.Shape().Equal(tensor.Shape{1, 2}) {
		t.Fatalf("shape: got %v", pooled.Shape())
	}
	got := pooled.AsFloat32()
	if got[0] != 2.5 || got[1] != 25 {
		t.Errorf("expected [2.5, 25], got %v", got)
	}
}

// TestSumDim_KeepDim tests keepDim retains a size-1 dimension.
func TestSumDim_KeepDim(t *testing.T) {
	backend := New()

	x := rawFromValues(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	out := backend.SumDim(x, 1, true)
	if !out.Shape().Equal(tensor.Shape{2, 1}) {
		t.Fatalf("shape: got %v", out.Shape())
	}
	got := out.AsFloat32()
	if got[0] != 6 || got[1] != 15 {
		t.Errorf("expected [6, 15], got %v", got)
	}
}

// TestArgmax tests index selection along the last dim.
func TestArgmax(t *testing.T) {
	backend := New()

	x := rawFromValues(t, tensor.Shape{2, 4}, []float32{1, 9, 3, 4, 8, 2, 7, 6})
	out := backend.Argmax(x, -1)
	if out.DType() != tensor.Int32 {
		t.Fatalf("dtype: got %v", out.DType())
	}
	got := out.AsInt32()
	if got[0] != 1 || got[1] != 0 {
		t.Errorf("expected [1, 0], got %v", got)
	}
}

// TestTranspose2D tests the 2D transpose used by Linear.
func TestTranspose2D(t *testing.T) {
	backend := New()

	x := rawFromValues(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	out := backend.Transpose(x)
	if !out.Shape().Equal(tensor.Shape{3, 2}) {
		t.Fatalf("shape: got %v", out.Shape())
	}
	expected := []float32{1, 4, 2, 5, 3, 6}
	got := out.AsFloat32()
	for i, want := range expected {
		if got[i] != want {
			t.Errorf("transpose[%d]: expected %v, got %v", i, want, got[i])
		}
	}
}
