package cpu

import (
	"fmt"

	"github.com/mobilevision-ml/mobilevision/internal/tensor"
)

// Conv2D performs a 2D convolution over NCHW input.
//
// input:  [N, C_in, H, W]
// kernel: [C_out, C_in/groups, KH, KW]
// output: [N, C_out, H_out, W_out]
//
// groups splits the channels into independent convolutions; groups == C_in
// with C_out == C_in is a depthwise convolution. The convolution is lowered
// to a matrix product per group (im2col), then evaluated with Sgemm.
func (cpu *CPUBackend) Conv2D(input, kernel *tensor.RawTensor, stride, padding, groups int) *tensor.RawTensor {
	inShape := input.Shape()
	kShape := kernel.Shape()

	if len(inShape) != 4 || len(kShape) != 4 {
		panic(fmt.Sprintf("conv2d: expected 4D input and kernel, got %v, %v", inShape, kShape))
	}
	if input.DType() != tensor.Float32 || kernel.DType() != tensor.Float32 {
		panic(fmt.Sprintf("conv2d: unsupported dtypes %s, %s (only float32 supported)", input.DType(), kernel.DType()))
	}
	if stride < 1 {
		panic(fmt.Sprintf("conv2d: stride must be positive, got %d", stride))
	}

	batch, inC, inH, inW := inShape[0], inShape[1], inShape[2], inShape[3]
	outC, kernelC, kh, kw := kShape[0], kShape[1], kShape[2], kShape[3]

	if groups < 1 || inC%groups != 0 || outC%groups != 0 {
		panic(fmt.Sprintf("conv2d: groups=%d does not divide channels in=%d out=%d", groups, inC, outC))
	}
	if kernelC != inC/groups {
		panic(fmt.Sprintf("conv2d: kernel channels %d, expected %d (in=%d, groups=%d)", kernelC, inC/groups, inC, groups))
	}

	outH := (inH+2*padding-kh)/stride + 1
	outW := (inW+2*padding-kw)/stride + 1
	if outH <= 0 || outW <= 0 {
		panic(fmt.Sprintf("conv2d: non-positive output size %dx%d for input %dx%d kernel %dx%d", outH, outW, inH, inW, kh, kw))
	}

	result, err := tensor.NewRaw(tensor.Shape{batch, outC, outH, outW}, tensor.Float32, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("conv2d: failed to create result tensor: %v", err))
	}

	inData := input.AsFloat32()
	kData := kernel.AsFloat32()
	outData := result.AsFloat32()

	groupInC := inC / groups
	groupOutC := outC / groups
	patchSize := groupInC * kh * kw
	numPatches := outH * outW

	// One column buffer reused across images and groups.
	cols := make([]float32, patchSize*numPatches)
	gemmOut := make([]float32, groupOutC*numPatches)

	for n := 0; n < batch; n++ {
		imageOffset := n * inC * inH * inW
		for g := 0; g < groups; g++ {
			im2col(inData[imageOffset+g*groupInC*inH*inW:], cols,
				groupInC, inH, inW, kh, kw, stride, padding, outH, outW)

			// [groupOutC, patchSize] @ [patchSize, numPatches]
			kOffset := g * groupOutC * patchSize
			sgemm(groupOutC, numPatches, patchSize,
				kData[kOffset:kOffset+groupOutC*patchSize], cols, gemmOut)

			outOffset := n*outC*numPatches + g*groupOutC*numPatches
			copy(outData[outOffset:outOffset+groupOutC*numPatches], gemmOut)
		}
	}
	return result
}

// im2col unfolds one image's channel group into a [C*KH*KW, outH*outW]
// column matrix. Out-of-bounds taps (zero padding) stay zero.
func im2col(img, cols []float32, channels, inH, inW, kh, kw, stride, padding, outH, outW int) {
	numPatches := outH * outW
	row := 0
	for c := 0; c < channels; c++ {
		channelOffset := c * inH * inW
		for ky := 0; ky < kh; ky++ {
			for kx := 0; kx < kw; kx++ {
				colBase := row * numPatches
				for oy := 0; oy < outH; oy++ {
					iy := oy*stride - padding + ky
					if iy < 0 || iy >= inH {
						for ox := 0; ox < outW; ox++ {
							cols[colBase+oy*outW+ox] = 0
						}
						continue
					}
					rowOffset := channelOffset + iy*inW
					for ox := 0; ox < outW; ox++ {
						ix := ox*stride - padding + kx
						if ix < 0 || ix >= inW {
							cols[colBase+oy*outW+ox] = 0
							continue
						}
						cols[colBase+oy*outW+ox] = img[rowOffset+ix]
					}
				}
				row++
			}
		}
	}
}
