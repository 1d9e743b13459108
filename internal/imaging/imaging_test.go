package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"

	"github.com/mobilevision-ml/mobilevision/internal/backend/cpu"
	"github.com/mobilevision-ml/mobilevision/internal/tensor"
)

func solidImage(w, h int, c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// TestDecode_PNG verifies the registered PNG decoder works through Decode.
func TestDecode_PNG(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, solidImage(4, 4, color.RGBA{255, 0, 0, 255})); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}

	img, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 4 {
		t.Errorf("bounds: got %v", img.Bounds())
	}
}

// TestDecode_Garbage verifies non-image input errors.
func TestDecode_Garbage(t *testing.T) {
	if _, err := Decode(bytes.NewReader([]byte("not an image"))); err == nil {
		t.Error("expected decode error")
	}
}

// TestResizeBilinear_SolidColor verifies a solid image stays solid at any
// output size.
func TestResizeBilinear_SolidColor(t *testing.T) {
	img := solidImage(10, 7, color.RGBA{255, 128, 0, 255})

	chw := ResizeBilinear(img, 4, 4)
	if len(chw) != 3*4*4 {
		t.Fatalf("expected 48 values, got %d", len(chw))
	}

	wantR := float32(1)
	wantG := float32(128) / 255
	for i := 0; i < 16; i++ {
		if math.Abs(float64(chw[i]-wantR)) > 0.01 {
			t.Errorf("R[%d]: expected ~%v, got %v", i, wantR, chw[i])
		}
		if math.Abs(float64(chw[16+i]-wantG)) > 0.01 {
			t.Errorf("G[%d]: expected ~%v, got %v", i, wantG, chw[16+i])
		}
		if chw[32+i] > 0.01 {
			t.Errorf("B[%d]: expected ~0, got %v", i, chw[32+i])
		}
	}
}

// TestResizeBilinear_Interpolates verifies midpoints blend neighbors.
func TestResizeBilinear_Interpolates(t *testing.T) {
	// 2x1 image: black and white pixels.
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.SetRGBA(0, 0, color.RGBA{0, 0, 0, 255})
	img.SetRGBA(1, 0, color.RGBA{255, 255, 255, 255})

	// Upscale to 4x1: interior samples mix the two pixels.
	chw := ResizeBilinear(img, 4, 1)
	r := chw[:4]
	if !(r[0] <= r[1] && r[1] <= r[2] && r[2] <= r[3]) {
		t.Errorf("expected monotonic gradient, got %v", r)
	}
	if r[0] > 0.01 || r[3] < 0.99 {
		t.Errorf("expected endpoints near 0 and 1, got %v and %v", r[0], r[3])
	}
}

// TestNormalize verifies per-channel mean/std normalization.
func TestNormalize(t *testing.T) {
	chw := []float32{
		0.485, 0.485, // R plane at the mean
		0.456, 0.456, // G plane at the mean
		0.406, 0.406, // B plane at the mean
	}
	Normalize(chw, MeanRGB, StdRGB)
	for i, v := range chw {
		if math.Abs(float64(v)) > 1e-5 {
			t.Errorf("chw[%d]: expected 0 after normalizing the mean, got %v", i, v)
		}
	}
}

// TestToTensor_Shape verifies the batch layout.
func TestToTensor_Shape(t *testing.T) {
	backend := cpu.New()
	img := solidImage(100, 80, color.RGBA{10, 20, 30, 255})

	x, err := ToTensor(img, 64, backend)
	if err != nil {
		t.Fatalf("ToTensor: %v", err)
	}
	if !x.Shape().Equal(tensor.Shape{1, 3, 64, 64}) {
		t.Errorf("shape: got %v", x.Shape())
	}
}
