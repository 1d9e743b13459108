package cpu

import (
	"fmt"
	"math"

	"github.com/mobilevision-ml/mobilevision/internal/tensor"
)

// Exp computes e^x element-wise.
func (cpu *CPUBackend) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unaryOp("exp", x, func(v float32) float32 {
		return float32(math.Exp(float64(v)))
	})
}

// Sqrt computes the square root element-wise.
func (cpu *CPUBackend) Sqrt(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unaryOp("sqrt", x, func(v float32) float32 {
		return float32(math.Sqrt(float64(v)))
	})
}

// ReLU6 computes min(max(x, 0), 6) element-wise. This is the activation
// used throughout the mobile-oriented convolution stacks; the clamp at 6
// keeps activations in a range that survives low-precision deployment.
func (cpu *CPUBackend) ReLU6(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unaryOp("relu6", x, func(v float32) float32 {
		if v < 0 {
			return 0
		}
		if v > 6 {
			return 6
		}
		return v
	})
}

// Sigmoid computes 1/(1+e^-x) element-wise.
func (cpu *CPUBackend) Sigmoid(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unaryOp("sigmoid", x, func(v float32) float32 {
		return float32(1 / (1 + math.Exp(-float64(v))))
	})
}

func (cpu *CPUBackend) unaryOp(name string, x *tensor.RawTensor, op func(v float32) float32) *tensor.RawTensor {
	if x.DType() != tensor.Float32 {
		panic(fmt.Sprintf("%s: unsupported dtype %s (only float32 supported)", name, x.DType()))
	}

	result := x.Clone()
	data := result.AsFloat32()
	for i := range data {
		data[i] = op(data[i])
	}
	return result
}

// Softmax applies softmax along the given dimension (negative dims index
// from the end). Rows are shifted by their max before exponentiation.
func (cpu *CPUBackend) Softmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	if x.DType() != tensor.Float32 {
		panic(fmt.Sprintf("softmax: unsupported dtype %s (only float32 supported)", x.DType()))
	}

	shape := x.Shape()
	dim = normalizeDim("softmax", dim, len(shape))

	result, err := tensor.NewRaw(shape, x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("softmax: failed to create result tensor: %v", err))
	}

	inData := x.AsFloat32()
	outData := result.AsFloat32()

	dimSize := shape[dim]
	// Treat the tensor as [outer, dimSize, inner].
	inner := 1
	for d := dim + 1; d < len(shape); d++ {
		inner *= shape[d]
	}
	outer := x.NumElements() / (dimSize * inner)

	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			base := o*dimSize*inner + in

			maxVal := inData[base]
			for i := 1; i < dimSize; i++ {
				if v := inData[base+i*inner]; v > maxVal {
					maxVal = v
				}
			}

			var sum float64
			for i := 0; i < dimSize; i++ {
				e := math.Exp(float64(inData[base+i*inner] - maxVal))
				outData[base+i*inner] = float32(e)
				sum += e
			}

			invSum := float32(1 / sum)
			for i := 0; i < dimSize; i++ {
				outData[base+i*inner] *= invSum
			}
		}
	}
	return result
}

// normalizeDim resolves negative dimension indices and bounds-checks.
func normalizeDim(name string, dim, ndim int) int {
	if dim < 0 {
		dim += ndim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("%s: dimension %d out of range for %d-dimensional tensor", name, dim, ndim))
	}
	return dim
}
