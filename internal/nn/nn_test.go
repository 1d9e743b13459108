package nn

import (
	"math"
	"testing"

	"github.com/mobilevision-ml/mobilevision/internal/backend/cpu"
	"github.com/mobilevision-ml/mobilevision/internal/tensor"
)

func tensorFromValues(t *testing.T, shape tensor.Shape, values []float32, backend *cpu.CPUBackend) *tensor.Tensor[float32, *cpu.CPUBackend] {
	t.Helper()
	x, err := tensor.FromSlice(values, shape, backend)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}
	return x
}

// TestLinear_KnownValues tests y = x @ W.T + b with hand-set weights.
func TestLinear_KnownValues(t *testing.T) {
	backend := cpu.New()
	layer := NewLinear(3, 2, true, nil, backend)

	// W = [[1, 0, 1], [0, 2, 0]], b = [1, -1]
	copy(layer.Weight().Tensor().Data(), []float32{1, 0, 1, 0, 2, 0})
	copy(layer.Bias().Tensor().Data(), []float32{1, -1})

	input := tensorFromValues(t, tensor.Shape{1, 3}, []float32{1, 2, 3}, backend)
	out := layer.Forward(input)

	if !out.Shape().Equal(tensor.Shape{1, 2}) {
		t.Fatalf("shape: got %v", out.Shape())
	}
	// [1+3+1, 4-1] = [5, 3]
	got := out.Data()
	if got[0] != 5 || got[1] != 3 {
		t.Errorf("expected [5, 3], got %v", got)
	}
}

// TestLinear_StateDictRoundtrip tests save/load through a state dict.
func TestLinear_StateDictRoundtrip(t *testing.T) {
	backend := cpu.New()
	src := NewLinear(4, 2, true, nil, backend)
	dst := NewLinear(4, 2, true, nil, backend)

	if err := dst.LoadStateDict(src.StateDict()); err != nil {
		t.Fatalf("LoadStateDict: %v", err)
	}

	srcW, dstW := src.Weight().Tensor().Data(), dst.Weight().Tensor().Data()
	for i := range srcW {
		if srcW[i] != dstW[i] {
			t.Fatalf("weight[%d] differs after load", i)
		}
	}
}

// TestLinear_LoadRejectsShapeMismatch tests shape validation on load.
func TestLinear_LoadRejectsShapeMismatch(t *testing.T) {
	backend := cpu.New()
	layer := NewLinear(4, 2, true, nil, backend)
	other := NewLinear(4, 3, true, nil, backend)

	if err := layer.LoadStateDict(other.StateDict()); err == nil {
		t.Error("expected error for mismatched weight shape")
	}
}

// TestBatchNorm2d_Identity tests fresh BN is the identity transform.
func TestBatchNorm2d_Identity(t *testing.T) {
	backend := cpu.New()
	bn := NewBatchNorm2d(2, backend)

	input := tensorFromValues(t, tensor.Shape{1, 2, 1, 2},
		[]float32{1, 2, 3, 4}, backend)
	out := bn.Forward(input)

	got := out.Data()
	for i, want := range []float32{1, 2, 3, 4} {
		// eps shifts the result by a hair
		if math.Abs(float64(got[i]-want)) > 1e-4 {
			t.Errorf("out[%d]: expected ~%v, got %v", i, want, got[i])
		}
	}
}

// TestBatchNorm2d_Normalizes tests normalization with loaded statistics.
func TestBatchNorm2d_Normalizes(t *testing.T) {
	backend := cpu.New()
	bn := NewBatchNorm2d(1, backend)

	// running_mean = 2, running_var = 4: y = (x - 2) / 2
	sd := bn.StateDict()
	sd["running_mean"].AsFloat32()[0] = 2
	sd["running_var"].AsFloat32()[0] = 4

	input := tensorFromValues(t, tensor.Shape{1, 1, 1, 3}, []float32{0, 2, 6}, backend)
	got := bn.Forward(input).Data()

	for i, want := range []float32{-1, 0, 2} {
		if math.Abs(float64(got[i]-want)) > 1e-3 {
			t.Errorf("out[%d]: expected ~%v, got %v", i, want, got[i])
		}
	}
}

// TestBatchNorm2d_StateDictKeys tests buffers appear in the state dict but
// not in Parameters.
func TestBatchNorm2d_StateDictKeys(t *testing.T) {
	backend := cpu.New()
	bn := NewBatchNorm2d(3, backend)

	sd := bn.StateDict()
	for _, key := range []string{"weight", "bias", "running_mean", "running_var"} {
		if _, ok := sd[key]; !ok {
			t.Errorf("missing state dict key %q", key)
		}
	}
	if len(bn.Parameters()) != 2 {
		t.Errorf("expected 2 parameters, got %d", len(bn.Parameters()))
	}
}

// TestConv2D_DepthwiseShape tests grouped convolution output shape.
func TestConv2D_DepthwiseShape(t *testing.T) {
	backend := cpu.New()
	conv := NewConv2D(8, 8, 3, 2, 1, 8, false, nil, backend)

	input := tensor.Zeros[float32](tensor.Shape{1, 8, 16, 16}, backend)
	out := conv.Forward(input)

	if !out.Shape().Equal(tensor.Shape{1, 8, 8, 8}) {
		t.Errorf("shape: expected [1 8 8 8], got %v", out.Shape())
	}
	if len(conv.Parameters()) != 1 {
		t.Errorf("bias-free conv should have 1 parameter, got %d", len(conv.Parameters()))
	}
}

// TestConv2D_InvalidStride tests constructor misuse panics.
func TestConv2D_InvalidStride(t *testing.T) {
	backend := cpu.New()
	defer func() {
		if recover() == nil {
			t.Error("expected panic for stride 0")
		}
	}()
	NewConv2D(3, 8, 3, 0, 1, 1, false, nil, backend)
}

// TestDropout_EvalIdentity tests dropout passes through outside training.
func TestDropout_EvalIdentity(t *testing.T) {
	backend := cpu.New()
	drop := NewDropout[*cpu.CPUBackend](0.5)

	input := tensorFromValues(t, tensor.Shape{2, 2}, []float32{1, 2, 3, 4}, backend)
	out := drop.Forward(input)

	got := out.Data()
	for i, want := range []float32{1, 2, 3, 4} {
		if got[i] != want {
			t.Errorf("out[%d]: expected %v, got %v", i, want, got[i])
		}
	}
}

// TestGlobalAvgPool2d tests spatial averaging to [N, C].
func TestGlobalAvgPool2d(t *testing.T) {
	backend := cpu.New()
	pool := NewGlobalAvgPool2d[*cpu.CPUBackend]()

	input := tensorFromValues(t, tensor.Shape{1, 2, 2, 2},
		[]float32{1, 2, 3, 4, 10, 20, 30, 40}, backend)
	out := pool.Forward(input)

	if !out.Shape().Equal(tensor.Shape{1, 2}) {
		t.Fatalf("shape: got %v", out.Shape())
	}
	got := out.Data()
	if got[0] != 2.5 || got[1] != 25 {
		t.Errorf("expected [2.5, 25], got %v", got)
	}
}

// TestSequential_StateDictPrefixes tests index-prefixed keys.
func TestSequential_StateDictPrefixes(t *testing.T) {
	backend := cpu.New()
	seq := Sequential[*cpu.CPUBackend](
		NewConv2D(3, 8, 3, 1, 1, 1, false, nil, backend),
		NewBatchNorm2d(8, backend),
		NewReLU6[*cpu.CPUBackend](),
	)

	sd := seq.StateDict()
	for _, key := range []string{"0.weight", "1.weight", "1.bias", "1.running_mean", "1.running_var"} {
		if _, ok := sd[key]; !ok {
			t.Errorf("missing state dict key %q", key)
		}
	}
	if len(sd) != 5 {
		t.Errorf("expected 5 keys, got %d", len(sd))
	}
}

// TestSequential_LoadRejectsUnknownKeys tests leftover keys fail the load.
func TestSequential_LoadRejectsUnknownKeys(t *testing.T) {
	backend := cpu.New()
	seq := Sequential[*cpu.CPUBackend](NewBatchNorm2d(2, backend))

	sd := seq.StateDict()
	extra, err := tensor.NewRaw(tensor.Shape{1}, tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatalf("NewRaw: %v", err)
	}
	sd["9.weight"] = extra

	if err := seq.LoadStateDict(sd); err == nil {
		t.Error("expected error for unknown key")
	}
}

// TestKaimingConv_Scale tests the init std follows sqrt(2/(k*k*outC)).
func TestKaimingConv_Scale(t *testing.T) {
	backend := cpu.New()

	shape := tensor.Shape{64, 16, 3, 3}
	w := KaimingConv(shape, nil, backend)

	var sumSq float64
	data := w.Data()
	for _, v := range data {
		sumSq += float64(v) * float64(v)
	}
	std := math.Sqrt(sumSq / float64(len(data)))

	want := math.Sqrt(2.0 / float64(3*3*64))
	if std < want*0.8 || std > want*1.2 {
		t.Errorf("sample std %v too far from %v", std, want)
	}
}
