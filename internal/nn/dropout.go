package nn

import (
	"fmt"
	"math/rand"

	"github.com/mobilevision-ml/mobilevision/internal/tensor"
)

// Dropout randomly zeroes elements with probability p during training,
// scaling the survivors by 1/(1-p). In eval mode (the default) it is the
// identity, which is the only mode inference exercises.
type Dropout[B tensor.Backend] struct {
	p        float32
	training bool
	rng      *rand.Rand
}

// NewDropout creates a Dropout layer with drop probability p in [0, 1).
func NewDropout[B tensor.Backend](p float32) *Dropout[B] {
	if p < 0 || p >= 1 {
		panic(fmt.Sprintf("dropout: probability must be in [0, 1), got %v", p))
	}
	return &Dropout[B]{p: p}
}

// SetTraining toggles training mode. An optional rng makes the mask
// reproducible; nil falls back to the process-wide source.
func (d *Dropout[B]) SetTraining(training bool, rng *rand.Rand) {
	d.training = training
	d.rng = rng
}

// Forward applies dropout (training) or passes through (eval).
func (d *Dropout[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if !d.training || d.p == 0 {
		return input
	}

	randFloat := rand.Float32
	if d.rng != nil {
		randFloat = d.rng.Float32
	}

	output := input.Clone()
	data := output.Data()
	scale := 1 / (1 - d.p)
	for i := range data {
		if randFloat() < d.p {
			data[i] = 0
		} else {
			data[i] *= scale
		}
	}
	return output
}

// Parameters returns an empty slice (no trainable parameters).
func (d *Dropout[B]) Parameters() []*Parameter[B] {
	return nil
}

// StateDict returns an empty map (no persistent state).
func (d *Dropout[B]) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{}
}

// LoadStateDict accepts only an empty state dictionary.
func (d *Dropout[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return checkNoExtraKeys(stateDict)
}
