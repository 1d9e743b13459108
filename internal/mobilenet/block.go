package mobilenet

import (
	"fmt"
	"math/rand"

	"github.com/mobilevision-ml/mobilevision/internal/nn"
	"github.com/mobilevision-ml/mobilevision/internal/tensor"
)

// InvertedResidual is a MobileNetV2 bottleneck block with a squeeze-and-
// excitation gate on its output.
//
// The block expands the channels by the expansion factor (pointwise conv),
// filters spatially (depthwise conv), and projects back down (pointwise
// linear conv). Blocks with expansion 1 skip the initial expansion. The
// output passes through the SE gate, and a residual shortcut is added when
// the block preserves both resolution (stride 1) and width (in == out).
type InvertedResidual[B tensor.Backend] struct {
	inChannels  int
	outChannels int
	stride      int
	useResidual bool

	conv *nn.SequentialModule[B]
	se   *SEGate[B]
}

// NewInvertedResidual creates a bottleneck block.
//
// stride must be 1 or 2; anything else is a construction error and panics.
// A nil rng draws initial weights from the process-wide source.
func NewInvertedResidual[B tensor.Backend](inChannels, outChannels, stride, expand int, rng *rand.Rand, backend B) *InvertedResidual[B] {
	if stride != 1 && stride != 2 {
		panic(fmt.Sprintf("inverted residual: stride must be 1 or 2, got %d", stride))
	}
	if inChannels <= 0 || outChannels <= 0 || expand <= 0 {
		panic(fmt.Sprintf("inverted residual: invalid dims in=%d out=%d expand=%d", inChannels, outChannels, expand))
	}

	hidden := hiddenDim(inChannels, expand)

	var layers []nn.Module[B]
	if expand != 1 {
		// Pointwise expansion
		layers = append(layers,
			nn.NewConv2D(inChannels, hidden, 1, 1, 0, 1, false, rng, backend),
			nn.NewBatchNorm2d(hidden, backend),
			nn.NewReLU6[B](),
		)
	}
	layers = append(layers,
		// Depthwise spatial filter
		nn.NewConv2D(hidden, hidden, 3, stride, 1, hidden, false, rng, backend),
		nn.NewBatchNorm2d(hidden, backend),
		nn.NewReLU6[B](),
		// Pointwise linear projection (no activation)
		nn.NewConv2D(hidden, outChannels, 1, 1, 0, 1, false, rng, backend),
		nn.NewBatchNorm2d(outChannels, backend),
	)

	return &InvertedResidual[B]{
		inChannels:  inChannels,
		outChannels: outChannels,
		stride:      stride,
		useResidual: stride == 1 && inChannels == outChannels,
		conv:        nn.Sequential(layers...),
		se:          NewSEGate(outChannels, rng, backend),
	}
}

// UsesResidual reports whether the block adds a shortcut connection.
func (b *InvertedResidual[B]) UsesResidual() bool {
	return b.useResidual
}

// OutChannels returns the block's output width.
func (b *InvertedResidual[B]) OutChannels() int {
	return b.outChannels
}

// Forward runs the bottleneck, gates the result, and applies the shortcut
// when the block preserves shape.
func (b *InvertedResidual[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	output := b.conv.Forward(input)
	output = b.se.Forward(output)
	if b.useResidual {
		output = input.Add(output)
	}
	return output
}

// Parameters returns the block's parameters, SE gate included.
func (b *InvertedResidual[B]) Parameters() []*nn.Parameter[B] {
	return append(b.conv.Parameters(), b.se.Parameters()...)
}

// StateDict returns the block's state under "conv." and "se." keys.
func (b *InvertedResidual[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	mergeStateDict(stateDict, "conv", b.conv.StateDict())
	mergeStateDict(stateDict, "se", b.se.StateDict())
	return stateDict
}

// LoadStateDict loads the block's state.
func (b *InvertedResidual[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	remaining := copyStateDict(stateDict)
	if err := b.conv.LoadStateDict(splitStateDict(remaining, "conv")); err != nil {
		return fmt.Errorf("conv: %w", err)
	}
	if err := b.se.LoadStateDict(splitStateDict(remaining, "se")); err != nil {
		return fmt.Errorf("se: %w", err)
	}
	return checkEmpty(remaining)
}
