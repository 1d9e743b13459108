// Copyright 2025 MobileVision Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu exposes the CPU compute backend.
package cpu

import (
	internalcpu "github.com/mobilevision-ml/mobilevision/internal/backend/cpu"
	"github.com/mobilevision-ml/mobilevision/tensor"
)

// Backend represents the CPU backend implementation.
//
// The CPU backend provides pure Go implementations of all tensor
// operations, with matrix products delegated to gonum's BLAS.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// Compile-time checks for the optional activation capabilities.
var (
	_ tensor.ReLU6Backend   = (*Backend)(nil)
	_ tensor.SigmoidBackend = (*Backend)(nil)
)

// New creates a new CPU backend.
//
// Example:
//
//	import (
//	    "github.com/mobilevision-ml/mobilevision/backend/cpu"
//	    "github.com/mobilevision-ml/mobilevision/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
//	}
func New() *Backend {
	return internalcpu.New()
}
