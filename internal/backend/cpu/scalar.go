package cpu

import (
	"fmt"

	"github.com/mobilevision-ml/mobilevision/internal/tensor"
)

// MulScalar multiplies each element by a scalar.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	return cpu.scalarOp("mul_scalar", x, scalar, func(v, s float32) float32 { return v * s })
}

// AddScalar adds a scalar to each element.
func (cpu *CPUBackend) AddScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	return cpu.scalarOp("add_scalar", x, scalar, func(v, s float32) float32 { return v + s })
}

// SubScalar subtracts a scalar from each element.
func (cpu *CPUBackend) SubScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	return cpu.scalarOp("sub_scalar", x, scalar, func(v, s float32) float32 { return v - s })
}

// DivScalar divides each element by a scalar.
func (cpu *CPUBackend) DivScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	return cpu.scalarOp("div_scalar", x, scalar, func(v, s float32) float32 { return v / s })
}

func (cpu *CPUBackend) scalarOp(name string, x *tensor.RawTensor, scalar any, op func(v, s float32) float32) *tensor.RawTensor {
	if x.DType() != tensor.Float32 {
		panic(fmt.Sprintf("%s: unsupported dtype %s (only float32 supported)", name, x.DType()))
	}

	s := toFloat32(name, scalar)

	result := x.Clone()
	data := result.AsFloat32()
	for i := range data {
		data[i] = op(data[i], s)
	}
	return result
}

func toFloat32(name string, scalar any) float32 {
	switch v := scalar.(type) {
	case float32:
		return v
	case float64:
		return float32(v)
	case int:
		return float32(v)
	case int32:
		return float32(v)
	default:
		panic(fmt.Sprintf("%s: unsupported scalar type %T", name, scalar))
	}
}
