package nn

import (
	"fmt"

	"github.com/mobilevision-ml/mobilevision/internal/tensor"
)

// BatchNorm2d normalizes each channel of NCHW input using running
// statistics:
//
//	y = (x - running_mean) / sqrt(running_var + eps) * weight + bias
//
// This is inference-mode batch normalization: the running statistics are
// fixed buffers loaded from a checkpoint (or the identity defaults from
// construction), never updated from the batch.
type BatchNorm2d[B tensor.Backend] struct {
	numFeatures int
	eps         float32

	weight *Parameter[B] // [C], scale (gamma)
	bias   *Parameter[B] // [C], shift (beta)

	// Buffers, not parameters: persisted in state dicts but excluded
	// from Parameters().
	runningMean *tensor.Tensor[float32, B] // [C]
	runningVar  *tensor.Tensor[float32, B] // [C]

	backend B
}

// NewBatchNorm2d creates a BatchNorm2d layer.
//
// Initialization: weight 1, bias 0, running_mean 0, running_var 1 — the
// identity transform until a checkpoint is loaded.
func NewBatchNorm2d[B tensor.Backend](numFeatures int, backend B) *BatchNorm2d[B] {
	if numFeatures <= 0 {
		panic(fmt.Sprintf("batchnorm2d: invalid num_features %d", numFeatures))
	}

	shape := tensor.Shape{numFeatures}
	return &BatchNorm2d[B]{
		numFeatures: numFeatures,
		eps:         1e-5,
		weight:      NewParameter("weight", tensor.Ones[float32](shape, backend)),
		bias:        NewParameter("bias", Zeros(shape, backend)),
		runningMean: Zeros(shape, backend),
		runningVar:  tensor.Ones[float32](shape, backend),
		backend:     backend,
	}
}

// Forward normalizes the input with the running statistics.
//
// Input: [batch, C, H, W]
// Output: same shape.
func (bn *BatchNorm2d[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	inputShape := input.Shape()
	if len(inputShape) != 4 {
		panic(fmt.Sprintf("batchnorm2d: expected 4D input [N,C,H,W], got %dD", len(inputShape)))
	}
	if inputShape[1] != bn.numFeatures {
		panic(fmt.Sprintf("batchnorm2d: expected %d channels, got %d", bn.numFeatures, inputShape[1]))
	}

	// Reshape channel vectors to [1, C, 1, 1] so they broadcast over NCHW.
	mean := bn.runningMean.Reshape(1, bn.numFeatures, 1, 1)
	variance := bn.runningVar.Reshape(1, bn.numFeatures, 1, 1)
	gamma := bn.weight.Tensor().Reshape(1, bn.numFeatures, 1, 1)
	beta := bn.bias.Tensor().Reshape(1, bn.numFeatures, 1, 1)

	invStd := variance.AddScalar(bn.eps).Sqrt()
	return input.Sub(mean).Div(invStd).Mul(gamma).Add(beta)
}

// Parameters returns the affine parameters (weight, bias). Running
// statistics are buffers and not included.
func (bn *BatchNorm2d[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{bn.weight, bn.bias}
}

// StateDict returns parameters and running statistics.
func (bn *BatchNorm2d[B]) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{
		"weight":       bn.weight.Tensor().Raw(),
		"bias":         bn.bias.Tensor().Raw(),
		"running_mean": bn.runningMean.Raw(),
		"running_var":  bn.runningVar.Raw(),
	}
}

// LoadStateDict loads parameters and running statistics.
func (bn *BatchNorm2d[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	keys := []string{"weight", "bias", "running_mean", "running_var"}
	dsts := []*tensor.RawTensor{
		bn.weight.Tensor().Raw(),
		bn.bias.Tensor().Raw(),
		bn.runningMean.Raw(),
		bn.runningVar.Raw(),
	}
	for i, key := range keys {
		if err := loadTensor(key, dsts[i], stateDict[key]); err != nil {
			return err
		}
	}
	return checkNoExtraKeys(stateDict, keys...)
}
