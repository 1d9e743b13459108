// Package cpu implements the CPU backend for tensor operations.
//
// Matrix products (including the im2col convolution path) are delegated to
// gonum's native Go BLAS; everything else is plain loops over the raw
// buffers.
package cpu

import (
	"fmt"

	"github.com/mobilevision-ml/mobilevision/internal/tensor"
)

// CPUBackend implements tensor operations on CPU.
type CPUBackend struct {
	device tensor.Device
}

// New creates a new CPU backend.
func New() *CPUBackend {
	return &CPUBackend{
		device: tensor.CPU,
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// Add performs element-wise addition with NumPy-style broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binaryOp("add", a, b, func(x, y float32) float32 { return x + y })
}

// Sub performs element-wise subtraction with broadcasting.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binaryOp("sub", a, b, func(x, y float32) float32 { return x - y })
}

// Mul performs element-wise multiplication with broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binaryOp("mul", a, b, func(x, y float32) float32 { return x * y })
}

// Div performs element-wise division with broadcasting.
func (cpu *CPUBackend) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binaryOp("div", a, b, func(x, y float32) float32 { return x / y })
}

// binaryOp applies op element-wise over a and b, broadcasting as needed.
func (cpu *CPUBackend) binaryOp(name string, a, b *tensor.RawTensor, op func(x, y float32) float32) *tensor.RawTensor {
	if a.DType() != tensor.Float32 || b.DType() != tensor.Float32 {
		panic(fmt.Sprintf("%s: unsupported dtypes %s, %s (only float32 supported)", name, a.DType(), b.DType()))
	}

	outShape, needsBroadcast, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	result, err := tensor.NewRaw(outShape, a.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("%s: failed to create result tensor: %v", name, err))
	}

	aData := a.AsFloat32()
	bData := b.AsFloat32()
	outData := result.AsFloat32()

	if !needsBroadcast && a.Shape().Equal(b.Shape()) {
		// Fast path: same shape, straight element loop
		for i := range outData {
			outData[i] = op(aData[i], bData[i])
		}
		return result
	}

	// Slow path: walk the output space and map each index back into the
	// (possibly smaller) input shapes.
	aShape, aStrides := a.Shape(), a.Strides()
	bShape, bStrides := b.Shape(), b.Strides()
	idx := make([]int, len(outShape))

	for i := range outData {
		outData[i] = op(aData[broadcastOffset(idx, aShape, aStrides)],
			bData[broadcastOffset(idx, bShape, bStrides)])
		advanceIndex(idx, outShape)
	}
	return result
}

// broadcastOffset maps a multi-index in the broadcasted output space to a
// flat offset in a tensor with the given (right-aligned) shape.
func broadcastOffset(idx []int, shape tensor.Shape, strides []int) int {
	offset := 0
	shift := len(idx) - len(shape)
	for d := 0; d < len(shape); d++ {
		i := idx[d+shift]
		if shape[d] == 1 {
			i = 0
		}
		offset += i * strides[d]
	}
	return offset
}

// advanceIndex increments a row-major multi-index within shape.
func advanceIndex(idx []int, shape tensor.Shape) {
	for d := len(idx) - 1; d >= 0; d-- {
		idx[d]++
		if idx[d] < shape[d] {
			return
		}
		idx[d] = 0
	}
}
