package nn

import (
	"math"
	"math/rand"

	"github.com/mobilevision-ml/mobilevision/internal/tensor"
)

// Weight initialization routines. The convolution stack uses Kaiming-style
// fan-out initialization; classifier heads use a small fixed-sigma normal.

// Zeros creates a zero tensor (helper kept for layer constructors).
func Zeros[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return tensor.Zeros[float32](shape, backend)
}

// KaimingConv initializes a convolution kernel [outC, inC/groups, kh, kw]
// from N(0, sqrt(2 / (kh*kw*outC))), matching fan-out mode for ReLU-family
// activations.
func KaimingConv[B tensor.Backend](shape tensor.Shape, rng *rand.Rand, backend B) *tensor.Tensor[float32, B] {
	if len(shape) != 4 {
		panic("KaimingConv: expected 4D kernel shape")
	}
	outC, kh, kw := shape[0], shape[2], shape[3]
	std := math.Sqrt(2 / float64(kh*kw*outC))
	return scaledNormal(shape, std, rng, backend)
}

// NormalLinear initializes a dense weight from N(0, 0.01).
func NormalLinear[B tensor.Backend](shape tensor.Shape, rng *rand.Rand, backend B) *tensor.Tensor[float32, B] {
	return scaledNormal(shape, 0.01, rng, backend)
}

func scaledNormal[B tensor.Backend](shape tensor.Shape, std float64, rng *rand.Rand, backend B) *tensor.Tensor[float32, B] {
	t := tensor.RandnFrom[float32](shape, rng, backend)
	data := t.Data()
	for i := range data {
		data[i] *= float32(std)
	}
	return t
}
