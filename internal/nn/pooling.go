package nn

import (
	"fmt"

	"github.com/mobilevision-ml/mobilevision/internal/tensor"
)

// GlobalAvgPool2d averages each channel over its full spatial extent,
// collapsing [N, C, H, W] to [N, C].
type GlobalAvgPool2d[B tensor.Backend] struct{}

// NewGlobalAvgPool2d creates a global average pooling layer.
func NewGlobalAvgPool2d[B tensor.Backend]() *GlobalAvgPool2d[B] {
	return &GlobalAvgPool2d[B]{}
}

// Forward pools the spatial dimensions.
//
// Input: [batch, C, H, W]
// Output: [batch, C].
func (g *GlobalAvgPool2d[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if len(input.Shape()) != 4 {
		panic(fmt.Sprintf("global_avg_pool2d: expected 4D input [N,C,H,W], got shape %v", input.Shape()))
	}
	// mean over W, then H: [N,C,H,W] -> [N,C,H] -> [N,C]
	return input.MeanDim(3, false).MeanDim(2, false)
}

// Parameters returns an empty slice (no trainable parameters).
func (g *GlobalAvgPool2d[B]) Parameters() []*Parameter[B] {
	return nil
}

// StateDict returns an empty map (no persistent state).
func (g *GlobalAvgPool2d[B]) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{}
}

// LoadStateDict accepts only an empty state dictionary.
func (g *GlobalAvgPool2d[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return checkNoExtraKeys(stateDict)
}
