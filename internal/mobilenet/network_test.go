package mobilenet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobilevision-ml/mobilevision/internal/backend/cpu"
	"github.com/mobilevision-ml/mobilevision/internal/tensor"
)

// testConfig keeps inference small: 32x32 input is the minimum the trunk's
// five stride-2 stages support.
func testConfig() Config {
	return Config{
		NumClasses: 10,
		InputSize:  32,
		WidthMult:  1.0,
		Dropout:    0.2,
	}
}

func TestNetwork_ForwardShape(t *testing.T) {
	backend := cpu.New()
	net, err := NewSeeded(testConfig(), 1, backend)
	require.NoError(t, err)

	input := tensor.Randn[float32](tensor.Shape{2, 3, 32, 32}, backend)
	logits := net.Forward(input)

	assert.True(t, logits.Shape().Equal(tensor.Shape{2, 10}),
		"logits shape: got %v", logits.Shape())
}

func TestNetwork_FeatureShape(t *testing.T) {
	backend := cpu.New()
	net, err := NewSeeded(testConfig(), 1, backend)
	require.NoError(t, err)

	input := tensor.Randn[float32](tensor.Shape{1, 3, 32, 32}, backend)
	features := net.ForwardFeatures(input)

	assert.True(t, features.Shape().Equal(tensor.Shape{1, 1280}),
		"features shape: got %v", features.Shape())
	assert.Equal(t, 1280, net.LastChannel())
}

func TestNetwork_WidthMultHeadRules(t *testing.T) {
	backend := cpu.New()

	// Multipliers at or below 1.0 keep the 1280-wide head.
	cfg := testConfig()
	cfg.WidthMult = 0.5
	narrow, err := NewSeeded(cfg, 1, backend)
	require.NoError(t, err)
	assert.Equal(t, 1280, narrow.LastChannel())

	// Multipliers above 1.0 widen it.
	cfg.WidthMult = 2.0
	wide, err := NewSeeded(cfg, 1, backend)
	require.NoError(t, err)
	assert.Equal(t, 2560, wide.LastChannel())
}

func TestNetwork_ConfigurableHeadWidth(t *testing.T) {
	backend := cpu.New()

	cfg := testConfig()
	cfg.LastChannel = 640
	net, err := NewSeeded(cfg, 1, backend)
	require.NoError(t, err)
	assert.Equal(t, 640, net.LastChannel())

	input := tensor.Randn[float32](tensor.Shape{1, 3, 32, 32}, backend)
	features := net.ForwardFeatures(input)
	assert.True(t, features.Shape().Equal(tensor.Shape{1, 640}),
		"features shape: got %v", features.Shape())
	logits := net.Forward(input)
	assert.True(t, logits.Shape().Equal(tensor.Shape{1, 10}),
		"logits shape: got %v", logits.Shape())

	// A custom head width is scaled like every other channel count.
	cfg.WidthMult = 2.0
	wide, err := NewSeeded(cfg, 1, backend)
	require.NoError(t, err)
	assert.Equal(t, 1280, wide.LastChannel())
}

func TestNetwork_ForwardWithFeatures(t *testing.T) {
	backend := cpu.New()
	net, err := NewSeeded(testConfig(), 1, backend)
	require.NoError(t, err)

	input := tensor.Randn[float32](tensor.Shape{1, 3, 32, 32}, backend)
	logits, features := net.ForwardWithFeatures(input)

	require.True(t, logits.Shape().Equal(tensor.Shape{1, 10}))
	require.True(t, features.Shape().Equal(tensor.Shape{1, 1280}))

	// One trunk pass produces both views, consistent with the separate
	// entry points.
	assert.Equal(t, net.Forward(input).Data(), logits.Data())
	assert.Equal(t, net.ForwardFeatures(input).Data(), features.Data())
}

func TestNetwork_RejectsBadInputSize(t *testing.T) {
	backend := cpu.New()

	cfg := testConfig()
	cfg.InputSize = 100 // not a multiple of 32
	_, err := New(cfg, backend)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple of 32")
}

func TestNetwork_RejectsTinyWidthMult(t *testing.T) {
	backend := cpu.New()

	// 0.1 would scale the 16-channel stage to a single channel, below the
	// squeeze-and-excitation bottleneck minimum.
	cfg := testConfig()
	cfg.WidthMult = 0.1
	_, err := New(cfg, backend)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "width_mult")
}

func TestNetwork_DifferentSeedsDiffer(t *testing.T) {
	backend := cpu.New()

	a, err := NewSeeded(testConfig(), 1, backend)
	require.NoError(t, err)
	b, err := NewSeeded(testConfig(), 2, backend)
	require.NoError(t, err)

	assert.NotEqual(t,
		a.StateDict()["classifier.weight"].AsFloat32(),
		b.StateDict()["classifier.weight"].AsFloat32())
}

func TestNetwork_SeededDeterminism(t *testing.T) {
	backend := cpu.New()

	a, err := NewSeeded(testConfig(), 99, backend)
	require.NoError(t, err)
	b, err := NewSeeded(testConfig(), 99, backend)
	require.NoError(t, err)

	sdA, sdB := a.StateDict(), b.StateDict()
	require.Equal(t, len(sdA), len(sdB))
	for key, rawA := range sdA {
		rawB, ok := sdB[key]
		require.True(t, ok, "key %s missing in second network", key)
		assert.Equal(t, rawA.AsFloat32(), rawB.AsFloat32(), "tensor %s differs", key)
	}
}

func TestNetwork_StateDictRoundtrip(t *testing.T) {
	backend := cpu.New()

	src, err := NewSeeded(testConfig(), 3, backend)
	require.NoError(t, err)
	dst, err := NewSeeded(testConfig(), 4, backend)
	require.NoError(t, err)

	require.NoError(t, dst.LoadStateDict(src.StateDict()))

	input := tensor.Randn[float32](tensor.Shape{1, 3, 32, 32}, backend)
	assert.Equal(t, src.Forward(input).Data(), dst.Forward(input).Data())
}

func TestNetwork_LoadRejectsMissingKeys(t *testing.T) {
	backend := cpu.New()
	net, err := NewSeeded(testConfig(), 1, backend)
	require.NoError(t, err)

	sd := net.StateDict()
	delete(sd, "classifier.weight")

	err = net.LoadStateDict(sd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
	assert.Contains(t, err.Error(), "classifier.weight")
}

func TestNetwork_LoadRejectsUnexpectedKeys(t *testing.T) {
	backend := cpu.New()
	net, err := NewSeeded(testConfig(), 1, backend)
	require.NoError(t, err)

	sd := net.StateDict()
	extra, rawErr := tensor.NewRaw(tensor.Shape{1}, tensor.Float32, tensor.CPU)
	require.NoError(t, rawErr)
	sd["not.a.real.key"] = extra

	err = net.LoadStateDict(sd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected")
	assert.Contains(t, err.Error(), "not.a.real.key")
}

func TestNetwork_LoadLeavesModelUntouchedOnError(t *testing.T) {
	backend := cpu.New()
	net, err := NewSeeded(testConfig(), 1, backend)
	require.NoError(t, err)

	before := net.StateDict()["classifier.bias"].Clone()

	sd := net.StateDict()
	for k, v := range sd {
		sd[k] = v.Clone()
	}
	sd["classifier.bias"].AsFloat32()[0] = 1234
	delete(sd, "classifier.weight") // force failure

	require.Error(t, net.LoadStateDict(sd))
	assert.Equal(t, before.AsFloat32(), net.StateDict()["classifier.bias"].AsFloat32())
}
