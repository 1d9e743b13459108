package nn

import (
	"fmt"
	"strconv"

	"github.com/mobilevision-ml/mobilevision/internal/tensor"
)

// SequentialModule chains modules, feeding each output to the next input.
//
// State-dict keys are prefixed with the module index, PyTorch style:
// "0.weight", "1.running_mean", ...
//
// Example:
//
//	head := nn.Sequential[*cpu.CPUBackend](
//	    nn.NewDropout[*cpu.CPUBackend](0.2),
//	    nn.NewLinear(1280, 1000, true, rng, backend),
//	)
type SequentialModule[B tensor.Backend] struct {
	modules []Module[B]
}

// Sequential creates a sequential container from the given modules.
func Sequential[B tensor.Backend](modules ...Module[B]) *SequentialModule[B] {
	return &SequentialModule[B]{modules: modules}
}

// Forward runs the input through every module in order.
func (s *SequentialModule[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	output := input
	for _, m := range s.modules {
		output = m.Forward(output)
	}
	return output
}

// Parameters returns the parameters of all contained modules.
func (s *SequentialModule[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]
	for _, m := range s.modules {
		params = append(params, m.Parameters()...)
	}
	return params
}

// Modules returns the contained modules in order.
func (s *SequentialModule[B]) Modules() []Module[B] {
	return s.modules
}

// Len returns the number of contained modules.
func (s *SequentialModule[B]) Len() int {
	return len(s.modules)
}

// StateDict returns the merged state of all modules, keys prefixed by index.
func (s *SequentialModule[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	for i, m := range s.modules {
		mergeStateDict(stateDict, strconv.Itoa(i), m.StateDict())
	}
	return stateDict
}

// LoadStateDict distributes index-prefixed entries to the contained modules.
func (s *SequentialModule[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	// Work on a copy so splitting does not mutate the caller's map.
	remaining := make(map[string]*tensor.RawTensor, len(stateDict))
	for k, v := range stateDict {
		remaining[k] = v
	}

	for i, m := range s.modules {
		sub := splitStateDict(remaining, strconv.Itoa(i))
		if err := m.LoadStateDict(sub); err != nil {
			return fmt.Errorf("module %d: %w", i, err)
		}
	}

	for k := range remaining {
		return fmt.Errorf("unexpected key %q in state dict", k)
	}
	return nil
}
