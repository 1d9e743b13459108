package cpu

import (
	"fmt"

	"github.com/mobilevision-ml/mobilevision/internal/tensor"
)

// SumDim sums elements along a dimension. Negative dims index from the end.
func (cpu *CPUBackend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return cpu.reduceDim("sum", x, dim, keepDim, false)
}

// MeanDim averages elements along a dimension. Negative dims index from
// the end.
func (cpu *CPUBackend) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return cpu.reduceDim("mean", x, dim, keepDim, true)
}

func (cpu *CPUBackend) reduceDim(name string, x *tensor.RawTensor, dim int, keepDim, mean bool) *tensor.RawTensor {
	if x.DType() != tensor.Float32 {
		panic(fmt.Sprintf("%s: unsupported dtype %s (only float32 supported)", name, x.DType()))
	}

	shape := x.Shape()
	dim = normalizeDim(name, dim, len(shape))

	outShape := reducedShape(shape, dim, keepDim)
	result, err := tensor.NewRaw(outShape, x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("%s: failed to create result tensor: %v", name, err))
	}

	inData := x.AsFloat32()
	outData := result.AsFloat32()

	dimSize := shape[dim]
	inner := 1
	for d := dim + 1; d < len(shape); d++ {
		inner *= shape[d]
	}
	outer := x.NumElements() / (dimSize * inner)

	scale := float64(1)
	if mean {
		scale = 1 / float64(dimSize)
	}

	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			base := o*dimSize*inner + in
			var sum float64
			for i := 0; i < dimSize; i++ {
				sum += float64(inData[base+i*inner])
			}
			outData[o*inner+in] = float32(sum * scale)
		}
	}
	return result
}

// Argmax returns int32 indices of the maximum value along a dimension.
// The reduced dimension is removed from the output shape.
func (cpu *CPUBackend) Argmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	if x.DType() != tensor.Float32 {
		panic(fmt.Sprintf("argmax: unsupported dtype %s (only float32 supported)", x.DType()))
	}

	shape := x.Shape()
	dim = normalizeDim("argmax", dim, len(shape))

	outShape := reducedShape(shape, dim, false)
	result, err := tensor.NewRaw(outShape, tensor.Int32, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("argmax: failed to create result tensor: %v", err))
	}

	inData := x.AsFloat32()
	outData := result.AsInt32()

	dimSize := shape[dim]
	inner := 1
	for d := dim + 1; d < len(shape); d++ {
		inner *= shape[d]
	}
	outer := x.NumElements() / (dimSize * inner)

	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			base := o*dimSize*inner + in
			best := inData[base]
			bestIdx := int32(0)
			for i := 1; i < dimSize; i++ {
				if v := inData[base+i*inner]; v > best {
					best = v
					bestIdx = int32(i)
				}
			}
			outData[o*inner+in] = bestIdx
		}
	}
	return result
}

// reducedShape removes (or collapses to 1) the reduced dimension. Reducing
// the only dimension without keepDim yields a scalar shape {1}.
func reducedShape(shape tensor.Shape, dim int, keepDim bool) tensor.Shape {
	out := make(tensor.Shape, 0, len(shape))
	for d, size := range shape {
		if d == dim {
			if keepDim {
				out = append(out, 1)
			}
			continue
		}
		out = append(out, size)
	}
	if len(out) == 0 {
		out = tensor.Shape{1}
	}
	return out
}
