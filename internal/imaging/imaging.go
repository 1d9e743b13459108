// Package imaging converts photos into network input tensors: decode,
// bilinear resize to the network's input size, CHW layout, and per-channel
// normalization with the ImageNet statistics.
package imaging

import (
	"fmt"
	"image"
	"io"
	"os"

	// Register the decoders image.Decode dispatches to.
	_ "image/jpeg"
	_ "image/png"

	"github.com/mobilevision-ml/mobilevision/internal/tensor"
)

// ImageNet channel statistics, the convention the pretrained checkpoints
// were trained with.
var (
	MeanRGB = [3]float32{0.485, 0.456, 0.406}
	StdRGB  = [3]float32{0.229, 0.224, 0.225}
)

// Decode reads a JPEG or PNG image.
func Decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("cannot decode image: %w", err)
	}
	return img, nil
}

// DecodeFile reads a JPEG or PNG image from disk.
func DecodeFile(path string) (image.Image, error) {
	//nolint:gosec // G304: image path comes from the caller by design
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open image: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Decode(f)
}

// ResizeBilinear resizes an image to width x height with bilinear
// interpolation, returning normalized [0, 1] RGB planes in CHW order.
func ResizeBilinear(img image.Image, width, height int) []float32 {
	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()

	out := make([]float32, 3*width*height)
	plane := width * height

	// Scale maps output pixel centers onto source pixel centers.
	scaleX := float64(srcW) / float64(width)
	scaleY := float64(srcH) / float64(height)

	for y := 0; y < height; y++ {
		srcY := (float64(y)+0.5)*scaleY - 0.5
		y0, fy := splitCoord(srcY, srcH)
		y1 := min(y0+1, srcH-1)

		for x := 0; x < width; x++ {
			srcX := (float64(x)+0.5)*scaleX - 0.5
			x0, fx := splitCoord(srcX, srcW)
			x1 := min(x0+1, srcW-1)

			r00, g00, b00 := rgbAt(img, bounds.Min.X+x0, bounds.Min.Y+y0)
			r10, g10, b10 := rgbAt(img, bounds.Min.X+x1, bounds.Min.Y+y0)
			r01, g01, b01 := rgbAt(img, bounds.Min.X+x0, bounds.Min.Y+y1)
			r11, g11, b11 := rgbAt(img, bounds.Min.X+x1, bounds.Min.Y+y1)

			idx := y*width + x
			out[idx] = lerp2(r00, r10, r01, r11, fx, fy)
			out[plane+idx] = lerp2(g00, g10, g01, g11, fx, fy)
			out[2*plane+idx] = lerp2(b00, b10, b01, b11, fx, fy)
		}
	}
	return out
}

// splitCoord decomposes a source coordinate into an integer base clamped to
// [0, size) and a fractional weight.
func splitCoord(v float64, size int) (int, float32) {
	if v < 0 {
		return 0, 0
	}
	i := int(v)
	if i >= size-1 {
		return size - 1, 0
	}
	return i, float32(v - float64(i))
}

// rgbAt reads a pixel as [0, 1] floats.
func rgbAt(img image.Image, x, y int) (r, g, b float32) {
	r16, g16, b16, _ := img.At(x, y).RGBA()
	return float32(r16) / 0xffff, float32(g16) / 0xffff, float32(b16) / 0xffff
}

func lerp2(v00, v10, v01, v11, fx, fy float32) float32 {
	top := v00 + (v10-v00)*fx
	bottom := v01 + (v11-v01)*fx
	return top + (bottom-top)*fy
}

// Normalize applies (x - mean) / std per channel, in place, to CHW planes.
func Normalize(chw []float32, mean, std [3]float32) {
	plane := len(chw) / 3
	for c := 0; c < 3; c++ {
		m, s := mean[c], std[c]
		data := chw[c*plane : (c+1)*plane]
		for i := range data {
			data[i] = (data[i] - m) / s
		}
	}
}

// ToTensor prepares a decoded image for classification: resize to
// size x size, normalize with the ImageNet statistics, and pack as a
// [1, 3, size, size] batch.
func ToTensor[B tensor.Backend](img image.Image, size int, backend B) (*tensor.Tensor[float32, B], error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid input size %d", size)
	}

	chw := ResizeBilinear(img, size, size)
	Normalize(chw, MeanRGB, StdRGB)

	return tensor.FromSlice(chw, tensor.Shape{1, 3, size, size}, backend)
}
