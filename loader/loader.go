// Copyright 2025 MobileVision Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package loader loads pretrained checkpoints into MobileVision models
// from local paths or HTTP URLs, with a download cache under the user
// cache directory.
package loader

import (
	"context"

	"github.com/mobilevision-ml/mobilevision/internal/loader"
	"github.com/mobilevision-ml/mobilevision/tensor"
)

// Model is the part of a network the loader needs: strict, all-or-nothing
// state replacement.
type Model = loader.Model

// Options configures pretrained loading.
type Options = loader.Options

// WeightMapper normalizes checkpoint-specific weight names.
type WeightMapper = loader.WeightMapper

// NewDataParallelMapper creates a mapper that strips the "module." prefix
// left on weight names by data-parallel training wrappers.
func NewDataParallelMapper() *loader.DataParallelMapper {
	return loader.NewDataParallelMapper()
}

// StripModulePrefix removes the "module." prefix from every state-dict key
// that carries it.
func StripModulePrefix(stateDict map[string]*tensor.RawTensor) map[string]*tensor.RawTensor {
	return loader.StripModulePrefix(stateDict)
}

// LoadPretrained loads a checkpoint from source (local path or URL) into
// model. Either every weight loads or the model is left untouched.
//
// Example:
//
//	model, _ := mobilenet.New(mobilenet.DefaultConfig(), backend)
//	err := loader.LoadPretrained(ctx, model, "weights/se_mobilenet_v2.mvis", backend, loader.Options{})
func LoadPretrained(ctx context.Context, model Model, source string, backend tensor.Backend, opts Options) error {
	return loader.LoadPretrained(ctx, model, source, backend, opts)
}
