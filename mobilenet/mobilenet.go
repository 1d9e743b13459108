// Copyright 2025 MobileVision Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package mobilenet exposes the SE-MobileNetV2 image classifier: a
// MobileNetV2 inverted-residual trunk with squeeze-and-excitation channel
// gates, a global-average-pooled feature head, and a linear classifier.
//
// Example:
//
//	backend := cpu.New()
//	model, err := mobilenet.New(mobilenet.DefaultConfig(), backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	logits := model.Forward(batch) // [N, 1000]
package mobilenet

import (
	"github.com/mobilevision-ml/mobilevision/internal/mobilenet"
	"github.com/mobilevision-ml/mobilevision/tensor"
)

// Config holds the network hyperparameters.
type Config = mobilenet.Config

// DefaultConfig returns the published SE-MobileNetV2 configuration:
// 1000 classes, 224x224 input, width 1.0, 1280-wide head, classifier
// dropout 0.2.
func DefaultConfig() Config {
	return mobilenet.DefaultConfig()
}

// Network is the SE-MobileNetV2 classifier.
type Network[B tensor.Backend] = mobilenet.Network[B]

// InvertedResidual is the MobileNetV2 bottleneck block with a
// squeeze-and-excitation gate.
type InvertedResidual[B tensor.Backend] = mobilenet.InvertedResidual[B]

// SEGate is the squeeze-and-excitation channel gate.
type SEGate[B tensor.Backend] = mobilenet.SEGate[B]

// New builds a network with freshly initialized weights.
func New[B tensor.Backend](config Config, backend B) (*Network[B], error) {
	return mobilenet.New(config, backend)
}

// NewSeeded builds a network with weights drawn from a source seeded with
// seed. Two networks built from the same config and seed are
// element-for-element identical.
func NewSeeded[B tensor.Backend](config Config, seed int64, backend B) (*Network[B], error) {
	return mobilenet.NewSeeded(config, seed, backend)
}
