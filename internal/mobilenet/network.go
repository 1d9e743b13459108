package mobilenet

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/mobilevision-ml/mobilevision/internal/nn"
	"github.com/mobilevision-ml/mobilevision/internal/tensor"
)

// Network is the SE-MobileNetV2 classifier.
//
// Layout:
//
//	features:   3x3/2 stem conv -> 17 inverted-residual blocks -> 1x1 head conv
//	pool:       global average over the spatial dimensions
//	classifier: dropout + linear head
//
// All convolutions are bias-free and followed by BatchNorm; the classifier
// Linear is the only biased parametric layer outside the SE gates.
type Network[B tensor.Backend] struct {
	config      Config
	lastChannel int

	features   *nn.SequentialModule[B]
	pool       *nn.GlobalAvgPool2d[B]
	dropout    *nn.Dropout[B]
	classifier *nn.Linear[B]

	backend B
}

// New builds a network with freshly initialized weights drawn from the
// process-wide random source.
func New[B tensor.Backend](config Config, backend B) (*Network[B], error) {
	return build(config, nil, backend)
}

// NewSeeded builds a network with weights drawn from a private source
// seeded with seed. Two networks built from the same config and seed are
// element-for-element identical.
func NewSeeded[B tensor.Backend](config Config, seed int64, backend B) (*Network[B], error) {
	return build(config, rand.New(rand.NewSource(seed)), backend)
}

func build[B tensor.Backend](config Config, rng *rand.Rand, backend B) (*Network[B], error) {
	config = config.withDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	inChannels := scaleChannels(stemChannels, config.WidthMult)
	last := lastChannel(config.LastChannel, config.WidthMult)

	var layers []nn.Module[B]

	// Stem: 3x3 stride-2 convolution
	layers = append(layers, convBN(3, inChannels, 3, 2, 1, rng, backend))

	// Inverted-residual trunk
	for _, stage := range blockSchedule {
		outChannels := scaleChannels(stage.channels, config.WidthMult)
		for i := 0; i < stage.repeat; i++ {
			stride := stage.stride
			if i > 0 {
				stride = 1
			}
			layers = append(layers, NewInvertedResidual(inChannels, outChannels, stride, stage.expand, rng, backend))
			inChannels = outChannels
		}
	}

	// Head: 1x1 convolution up to the feature width
	layers = append(layers, convBN(inChannels, last, 1, 1, 0, rng, backend))

	return &Network[B]{
		config:      config,
		lastChannel: last,
		features:    nn.Sequential(layers...),
		pool:        nn.NewGlobalAvgPool2d[B](),
		dropout:     nn.NewDropout[B](config.Dropout),
		classifier:  nn.NewLinear(last, config.NumClasses, true, rng, backend),
		backend:     backend,
	}, nil
}

// convBN builds the conv + batchnorm + ReLU6 unit used for the stem and
// head.
func convBN[B tensor.Backend](inChannels, outChannels, kernel, stride, padding int, rng *rand.Rand, backend B) *nn.SequentialModule[B] {
	return nn.Sequential[B](
		nn.NewConv2D(inChannels, outChannels, kernel, stride, padding, 1, false, rng, backend),
		nn.NewBatchNorm2d(outChannels, backend),
		nn.NewReLU6[B](),
	)
}

// Config returns the network configuration.
func (n *Network[B]) Config() Config {
	return n.config
}

// LastChannel returns the width of the pooled feature vector.
func (n *Network[B]) LastChannel() int {
	return n.lastChannel
}

// Features returns the convolutional trunk.
func (n *Network[B]) Features() *nn.SequentialModule[B] {
	return n.features
}

// Forward classifies a batch of images.
//
// Input: [batch, 3, S, S] where S == Config.InputSize
// Output: raw logits [batch, NumClasses].
func (n *Network[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return n.classifier.Forward(n.dropout.Forward(n.ForwardFeatures(input)))
}

// ForwardWithFeatures classifies a batch and also returns the pooled
// feature vector the logits were computed from, running the trunk once.
//
// Output: logits [batch, NumClasses], features [batch, LastChannel].
func (n *Network[B]) ForwardWithFeatures(input *tensor.Tensor[float32, B]) (logits, features *tensor.Tensor[float32, B]) {
	features = n.ForwardFeatures(input)
	logits = n.classifier.Forward(n.dropout.Forward(features))
	return logits, features
}

// ForwardFeatures runs the trunk and pooling only, returning the feature
// vector [batch, LastChannel] that feeds the classifier.
func (n *Network[B]) ForwardFeatures(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	if len(shape) != 4 || shape[1] != 3 {
		panic(fmt.Sprintf("network: expected input [N,3,S,S], got shape %v", shape))
	}
	if shape[2] != n.config.InputSize || shape[3] != n.config.InputSize {
		panic(fmt.Sprintf("network: expected %dx%d input, got %dx%d",
			n.config.InputSize, n.config.InputSize, shape[2], shape[3]))
	}

	return n.pool.Forward(n.features.Forward(input))
}

// Parameters returns all network parameters.
func (n *Network[B]) Parameters() []*nn.Parameter[B] {
	return append(n.features.Parameters(), n.classifier.Parameters()...)
}

// StateDict returns the full network state. Keys follow the module tree:
// "features.0.0.weight" (stem conv), "features.3.se.reduce.bias",
// "classifier.weight", ...
func (n *Network[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	mergeStateDict(stateDict, "features", n.features.StateDict())
	mergeStateDict(stateDict, "classifier", n.classifier.StateDict())
	return stateDict
}

// LoadStateDict replaces the full network state. Loading is all or
// nothing: the incoming keys must match the network's key set exactly, and
// every tensor must match its destination's shape and dtype. On any
// mismatch the network is left untouched and the error names the missing
// and unexpected keys.
func (n *Network[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	own := n.StateDict()

	var missing, unexpected []string
	for k := range own {
		if _, ok := stateDict[k]; !ok {
			missing = append(missing, k)
		}
	}
	for k := range stateDict {
		if _, ok := own[k]; !ok {
			unexpected = append(unexpected, k)
		}
	}
	if len(missing) > 0 || len(unexpected) > 0 {
		sort.Strings(missing)
		sort.Strings(unexpected)
		return fmt.Errorf("state dict mismatch: %d missing keys [%s], %d unexpected keys [%s]",
			len(missing), strings.Join(missing, ", "),
			len(unexpected), strings.Join(unexpected, ", "))
	}

	// Validate everything before touching any destination tensor.
	for k, dst := range own {
		src := stateDict[k]
		if !src.Shape().Equal(dst.Shape()) {
			return fmt.Errorf("%s shape mismatch: expected %v, got %v", k, dst.Shape(), src.Shape())
		}
		if src.DType() != dst.DType() {
			return fmt.Errorf("%s dtype mismatch: expected %s, got %s", k, dst.DType(), src.DType())
		}
	}
	for k, dst := range own {
		copy(dst.Data(), stateDict[k].Data())
	}
	return nil
}
