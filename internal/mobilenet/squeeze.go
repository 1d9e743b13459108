package mobilenet

import (
	"fmt"
	"math/rand"

	"github.com/mobilevision-ml/mobilevision/internal/nn"
	"github.com/mobilevision-ml/mobilevision/internal/tensor"
)

// SEGate is a squeeze-and-excitation channel gate.
//
// The gate pools each channel to a scalar, pushes the channel vector
// through a two-layer bottleneck (reduction 4) and rescales the input by
// the resulting per-channel sigmoid weights:
//
//	s = Sigmoid(W2 @ ReLU6(W1 @ avgpool(x)))   // s in (0, 1)^C
//	y = x * s                                   // broadcast over H, W
type SEGate[B tensor.Backend] struct {
	channels int

	pool    *nn.GlobalAvgPool2d[B]
	reduce  *nn.Linear[B] // [C/4, C]
	relu    *nn.ReLU6[B]
	expand  *nn.Linear[B] // [C, C/4]
	sigmoid *nn.Sigmoid[B]
}

// NewSEGate creates a squeeze-and-excitation gate over the given channel
// count. A nil rng draws initial weights from the process-wide source.
func NewSEGate[B tensor.Backend](channels int, rng *rand.Rand, backend B) *SEGate[B] {
	if channels < seReduction {
		panic(fmt.Sprintf("se gate: channels %d below reduction %d", channels, seReduction))
	}

	return &SEGate[B]{
		channels: channels,
		pool:     nn.NewGlobalAvgPool2d[B](),
		reduce:   nn.NewLinear(channels, channels/seReduction, true, rng, backend),
		relu:     nn.NewReLU6[B](),
		expand:   nn.NewLinear(channels/seReduction, channels, true, rng, backend),
		sigmoid:  nn.NewSigmoid[B](),
	}
}

// Forward rescales each channel of the input by its gate weight.
//
// Input: [batch, C, H, W]
// Output: same shape.
func (se *SEGate[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	if len(shape) != 4 {
		panic(fmt.Sprintf("se gate: expected 4D input [N,C,H,W], got shape %v", shape))
	}
	if shape[1] != se.channels {
		panic(fmt.Sprintf("se gate: expected %d channels, got %d", se.channels, shape[1]))
	}

	scale := se.pool.Forward(input) // [N, C]
	scale = se.reduce.Forward(scale)
	scale = se.relu.Forward(scale)
	scale = se.expand.Forward(scale)
	scale = se.sigmoid.Forward(scale)

	// Broadcast [N, C] gate weights over the spatial dimensions.
	return input.Mul(scale.Reshape(shape[0], se.channels, 1, 1))
}

// Parameters returns the bottleneck parameters.
func (se *SEGate[B]) Parameters() []*nn.Parameter[B] {
	return append(se.reduce.Parameters(), se.expand.Parameters()...)
}

// StateDict returns the gate's state under "reduce." and "expand." keys.
func (se *SEGate[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	mergeStateDict(stateDict, "reduce", se.reduce.StateDict())
	mergeStateDict(stateDict, "expand", se.expand.StateDict())
	return stateDict
}

// LoadStateDict loads the gate's state.
func (se *SEGate[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	remaining := copyStateDict(stateDict)
	if err := se.reduce.LoadStateDict(splitStateDict(remaining, "reduce")); err != nil {
		return fmt.Errorf("reduce: %w", err)
	}
	if err := se.expand.LoadStateDict(splitStateDict(remaining, "expand")); err != nil {
		return fmt.Errorf("expand: %w", err)
	}
	return checkEmpty(remaining)
}
