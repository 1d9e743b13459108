// Package nn implements the neural network modules used by the MobileVision
// classification networks.
//
// Building blocks:
//   - Module interface: base interface for all NN components
//   - Parameter: named weight tensors
//   - Conv2d, BatchNorm2d, Linear: parametric layers
//   - ReLU6, Sigmoid, Dropout, GlobalAvgPool2d: stateless layers
//   - Sequential: container for stacking layers
//
// Design inspired by PyTorch's nn.Module but adapted for Go generics.
// The package targets inference: modules carry no gradients, and BatchNorm
// always normalizes with its running statistics.
package nn

import (
	"github.com/mobilevision-ml/mobilevision/internal/tensor"
)

// Module is the base interface for all neural network components.
//
// Modules compose into trees; containers prefix their children's state-dict
// keys the way PyTorch does ("features.0.weight"), so checkpoints written
// by one tree layout load into an identical tree.
//
// Type parameter B must satisfy the tensor.Backend interface.
type Module[B tensor.Backend] interface {
	// Forward computes the output of the module given an input tensor.
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns all parameters of this module, including nested
	// module parameters. Stateless modules return an empty slice.
	Parameters() []*Parameter[B]

	// StateDict returns the module's persistent state as a flat map from
	// local key to raw tensor. Unlike Parameters, this includes
	// non-trainable buffers such as BatchNorm running statistics.
	StateDict() map[string]*tensor.RawTensor

	// LoadStateDict replaces the module's state from a flat map of local
	// keys. Tensors are validated (shape, dtype) and copied in; the map
	// must contain exactly the module's keys.
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error
}
