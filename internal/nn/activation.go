package nn

import (
	"fmt"

	"github.com/mobilevision-ml/mobilevision/internal/tensor"
)

// Activation layers. These are stateless; their Forward dispatches to the
// backend's activation kernel when it exposes one (the CPU backend does).

// ReLU6 applies min(max(x, 0), 6) element-wise.
type ReLU6[B tensor.Backend] struct{}

// NewReLU6 creates a ReLU6 activation layer.
func NewReLU6[B tensor.Backend]() *ReLU6[B] {
	return &ReLU6[B]{}
}

// Forward applies the activation.
func (r *ReLU6[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	backend := input.Backend()
	impl, ok := any(backend).(tensor.ReLU6Backend)
	if !ok {
		panic(fmt.Sprintf("relu6: backend %s does not implement ReLU6", backend.Name()))
	}
	return tensor.New[float32, B](impl.ReLU6(input.Raw()), backend)
}

// Parameters returns an empty slice (no trainable parameters).
func (r *ReLU6[B]) Parameters() []*Parameter[B] {
	return nil
}

// StateDict returns an empty map (no persistent state).
func (r *ReLU6[B]) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{}
}

// LoadStateDict accepts only an empty state dictionary.
func (r *ReLU6[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return checkNoExtraKeys(stateDict)
}

// Sigmoid applies 1/(1+e^-x) element-wise.
type Sigmoid[B tensor.Backend] struct{}

// NewSigmoid creates a sigmoid activation layer.
func NewSigmoid[B tensor.Backend]() *Sigmoid[B] {
	return &Sigmoid[B]{}
}

// Forward applies the activation.
func (s *Sigmoid[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	backend := input.Backend()
	impl, ok := any(backend).(tensor.SigmoidBackend)
	if !ok {
		panic(fmt.Sprintf("sigmoid: backend %s does not implement Sigmoid", backend.Name()))
	}
	return tensor.New[float32, B](impl.Sigmoid(input.Raw()), backend)
}

// Parameters returns an empty slice (no trainable parameters).
func (s *Sigmoid[B]) Parameters() []*Parameter[B] {
	return nil
}

// StateDict returns an empty map (no persistent state).
func (s *Sigmoid[B]) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{}
}

// LoadStateDict accepts only an empty state dictionary.
func (s *Sigmoid[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return checkNoExtraKeys(stateDict)
}
