// Copyright 2025 MobileVision Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/mobilevision-ml/mobilevision/internal/tensor"

// RawTensor is the low-level tensor representation: an untyped byte buffer
// with shape, strides, dtype, and device metadata. Backend implementations
// and the serialization layer work directly on RawTensor.
type RawTensor = tensor.RawTensor
