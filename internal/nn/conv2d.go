package nn

import (
	"fmt"
	"math/rand"

	"github.com/mobilevision-ml/mobilevision/internal/tensor"
)

// Conv2D is a 2D convolutional layer with optional channel grouping.
//
// Input shape:  [batch, in_channels, height, width]
// Weight shape: [out_channels, in_channels/groups, kernel, kernel]
// Bias shape:   [out_channels]
// Output shape: [batch, out_channels, out_h, out_w]
//
// Where:
//
//	out_h = (height + 2*padding - kernel) / stride + 1
//	out_w = (width + 2*padding - kernel) / stride + 1
//
// groups == in_channels (with out_channels == in_channels) gives a
// depthwise convolution.
//
// Example:
//
//	// 3x3 depthwise conv over 32 channels, stride 2
//	conv := nn.NewConv2D(32, 32, 3, 2, 1, 32, false, rng, backend)
type Conv2D[B tensor.Backend] struct {
	inChannels  int
	outChannels int
	kernelSize  int
	stride      int
	padding     int
	groups      int
	useBias     bool

	weight *Parameter[B] // [out_channels, in_channels/groups, kernel, kernel]
	bias   *Parameter[B] // [out_channels] or nil

	backend B
}

// NewConv2D creates a new 2D convolutional layer.
//
// Initialization:
//   - Weights: N(0, sqrt(2 / (kernel*kernel*out_channels)))
//   - Bias: zeros
//
// A nil rng draws from the process-wide source.
func NewConv2D[B tensor.Backend](
	inChannels, outChannels int,
	kernelSize, stride, padding, groups int,
	useBias bool,
	rng *rand.Rand,
	backend B,
) *Conv2D[B] {
	if inChannels <= 0 || outChannels <= 0 {
		panic(fmt.Sprintf("conv2d: invalid channels in=%d, out=%d", inChannels, outChannels))
	}
	if kernelSize <= 0 {
		panic(fmt.Sprintf("conv2d: invalid kernel size %d", kernelSize))
	}
	if stride <= 0 {
		panic(fmt.Sprintf("conv2d: invalid stride %d", stride))
	}
	if padding < 0 {
		panic(fmt.Sprintf("conv2d: invalid padding %d", padding))
	}
	if groups <= 0 || inChannels%groups != 0 || outChannels%groups != 0 {
		panic(fmt.Sprintf("conv2d: groups=%d must divide channels in=%d, out=%d", groups, inChannels, outChannels))
	}

	weightShape := tensor.Shape{outChannels, inChannels / groups, kernelSize, kernelSize}
	weightParam := NewParameter("weight", KaimingConv(weightShape, rng, backend))

	var biasParam *Parameter[B]
	if useBias {
		biasParam = NewParameter("bias", Zeros(tensor.Shape{outChannels}, backend))
	}

	return &Conv2D[B]{
		inChannels:  inChannels,
		outChannels: outChannels,
		kernelSize:  kernelSize,
		stride:      stride,
		padding:     padding,
		groups:      groups,
		useBias:     useBias,
		weight:      weightParam,
		bias:        biasParam,
		backend:     backend,
	}
}

// Forward performs the forward pass.
//
// Input: [batch, in_channels, height, width]
// Output: [batch, out_channels, out_h, out_w].
func (c *Conv2D[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	inputShape := input.Shape()
	if len(inputShape) != 4 {
		panic(fmt.Sprintf("conv2d: expected 4D input [N,C,H,W], got %dD", len(inputShape)))
	}
	if inputShape[1] != c.inChannels {
		panic(fmt.Sprintf("conv2d: expected %d input channels, got %d", c.inChannels, inputShape[1]))
	}

	raw := c.backend.Conv2D(input.Raw(), c.weight.Tensor().Raw(), c.stride, c.padding, c.groups)
	output := tensor.New[float32, B](raw, c.backend)

	if c.bias != nil {
		// Broadcast [out_channels] over [N, out_channels, H, W]
		b := c.bias.Tensor().Reshape(1, c.outChannels, 1, 1)
		output = output.Add(b)
	}
	return output
}

// Parameters returns the layer's parameters.
func (c *Conv2D[B]) Parameters() []*Parameter[B] {
	if c.bias != nil {
		return []*Parameter[B]{c.weight, c.bias}
	}
	return []*Parameter[B]{c.weight}
}

// Weight returns the weight parameter.
func (c *Conv2D[B]) Weight() *Parameter[B] {
	return c.weight
}

// Bias returns the bias parameter, or nil for bias-free layers.
func (c *Conv2D[B]) Bias() *Parameter[B] {
	return c.bias
}

// OutChannels returns the number of output channels.
func (c *Conv2D[B]) OutChannels() int {
	return c.outChannels
}

// StateDict returns a map of parameter names to raw tensors.
func (c *Conv2D[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	stateDict["weight"] = c.weight.Tensor().Raw()
	if c.bias != nil {
		stateDict["bias"] = c.bias.Tensor().Raw()
	}
	return stateDict
}

// LoadStateDict loads parameters from a state dictionary.
func (c *Conv2D[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	if err := loadTensor("weight", c.weight.Tensor().Raw(), stateDict["weight"]); err != nil {
		return err
	}
	if c.bias != nil {
		if err := loadTensor("bias", c.bias.Tensor().Raw(), stateDict["bias"]); err != nil {
			return err
		}
		return checkNoExtraKeys(stateDict, "weight", "bias")
	}
	return checkNoExtraKeys(stateDict, "weight")
}
