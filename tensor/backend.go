// Copyright 2025 MobileVision Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/mobilevision-ml/mobilevision/internal/tensor"

// Backend defines the interface that all compute backends must implement.
// Backends handle the actual computation for tensor operations.
//
// Implementations:
//   - backend/cpu: Pure Go loops with gonum BLAS matrix kernels
//
// Example:
//
//	import (
//	    "github.com/mobilevision-ml/mobilevision/tensor"
//	    "github.com/mobilevision-ml/mobilevision/backend/cpu"
//	)
//
//	backend := cpu.New()
//	x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
//	y := tensor.Ones[float32](tensor.Shape{2, 3}, backend)
//	z := x.Add(y)  // Uses backend.Add under the hood
type Backend = tensor.Backend

// ReLU6Backend is implemented by backends that support the ReLU6
// activation natively.
type ReLU6Backend = tensor.ReLU6Backend

// SigmoidBackend is implemented by backends that support the sigmoid
// activation natively.
type SigmoidBackend = tensor.SigmoidBackend
