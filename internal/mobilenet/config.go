// Package mobilenet implements the SE-MobileNetV2 image classification
// network: a MobileNetV2 inverted-residual trunk with a squeeze-and-
// excitation gate on every block.
package mobilenet

import "fmt"

// blockSetting describes one stage of the inverted-residual schedule:
// expansion factor t, output channels c, block count n, first-block stride s.
type blockSetting struct {
	expand   int
	channels int
	repeat   int
	stride   int
}

// blockSchedule is the standard MobileNetV2 stage table. Only the first
// block of each stage uses the stage stride; repeats run at stride 1.
var blockSchedule = []blockSetting{
	{1, 16, 1, 1},
	{6, 24, 2, 2},
	{6, 32, 3, 2},
	{6, 64, 4, 2},
	{6, 96, 3, 1},
	{6, 160, 3, 2},
	{6, 320, 1, 1},
}

const (
	stemChannels = 32
	headChannels = 1280

	// seReduction divides the channel count inside the squeeze-and-
	// excitation bottleneck.
	seReduction = 4
)

// Config holds the network hyperparameters.
type Config struct {
	// NumClasses is the size of the classification head.
	NumClasses int

	// InputSize is the expected spatial size of square input images.
	// Must be a multiple of 32 (the trunk downsamples 5 times).
	InputSize int

	// WidthMult scales the channel counts of every layer. 1.0 is the
	// published architecture; smaller values trade accuracy for compute.
	WidthMult float64

	// LastChannel is the width of the pooled feature vector the head
	// produces. Zero selects the published 1280. Like the other channel
	// counts it is widened by WidthMult above 1.0, but never narrowed.
	LastChannel int

	// Dropout is the drop probability of the classifier head during
	// training. Inference ignores it.
	Dropout float32
}

// DefaultConfig returns the published SE-MobileNetV2 configuration:
// 1000 classes, 224x224 input, width 1.0, 1280-wide head, classifier
// dropout 0.2.
func DefaultConfig() Config {
	return Config{
		NumClasses:  1000,
		InputSize:   224,
		WidthMult:   1.0,
		LastChannel: headChannels,
		Dropout:     0.2,
	}
}

// withDefaults fills zero-valued optional fields.
func (c Config) withDefaults() Config {
	if c.LastChannel == 0 {
		c.LastChannel = headChannels
	}
	return c
}

// Validate checks the configuration for structural errors.
func (c Config) Validate() error {
	c = c.withDefaults()
	if c.NumClasses <= 0 {
		return fmt.Errorf("num_classes must be positive, got %d", c.NumClasses)
	}
	if c.InputSize <= 0 || c.InputSize%32 != 0 {
		return fmt.Errorf("input_size must be a positive multiple of 32, got %d", c.InputSize)
	}
	if c.WidthMult <= 0 {
		return fmt.Errorf("width_mult must be positive, got %v", c.WidthMult)
	}
	// Every block output feeds a squeeze-and-excitation bottleneck that
	// divides its channel count by seReduction.
	for _, stage := range blockSchedule {
		if scaleChannels(stage.channels, c.WidthMult) < seReduction {
			return fmt.Errorf("width_mult %v scales the %d-channel stage below %d channels",
				c.WidthMult, stage.channels, seReduction)
		}
	}
	if c.LastChannel < 0 {
		return fmt.Errorf("last_channel must be positive, got %d", c.LastChannel)
	}
	if c.Dropout < 0 || c.Dropout >= 1 {
		return fmt.Errorf("dropout must be in [0, 1), got %v", c.Dropout)
	}
	return nil
}

// scaleChannels applies the width multiplier to a channel count.
func scaleChannels(channels int, widthMult float64) int {
	return int(float64(channels) * widthMult)
}

// lastChannel returns the head width. The head is only widened, never
// narrowed: multipliers at or below 1.0 keep the configured width.
func lastChannel(base int, widthMult float64) int {
	if widthMult > 1.0 {
		return scaleChannels(base, widthMult)
	}
	return base
}

// hiddenDim returns the expanded channel count inside a block.
func hiddenDim(inChannels, expand int) int {
	return inChannels * expand
}
