package nn

import (
	"fmt"
	"strings"

	"github.com/mobilevision-ml/mobilevision/internal/tensor"
)

// State-dict plumbing shared by containers and layers.
//
// Keys are hierarchical, "."-joined, PyTorch style: a container merges each
// child's dict under "<childName>." and splits incoming dicts the same way.

// mergeStateDict copies src into dst with every key prefixed by prefix+".".
// An empty prefix merges keys unchanged.
func mergeStateDict(dst map[string]*tensor.RawTensor, prefix string, src map[string]*tensor.RawTensor) {
	for k, v := range src {
		if prefix != "" {
			k = prefix + "." + k
		}
		dst[k] = v
	}
}

// splitStateDict extracts the sub-dict under prefix+"." with the prefix
// stripped, removing the extracted keys from src.
func splitStateDict(src map[string]*tensor.RawTensor, prefix string) map[string]*tensor.RawTensor {
	sub := make(map[string]*tensor.RawTensor)
	full := prefix + "."
	for k, v := range src {
		if strings.HasPrefix(k, full) {
			sub[strings.TrimPrefix(k, full)] = v
			delete(src, k)
		}
	}
	return sub
}

// loadTensor validates an incoming tensor against the destination and copies
// the data in place.
func loadTensor(key string, dst, src *tensor.RawTensor) error {
	if src == nil {
		return fmt.Errorf("missing %s in state dict", key)
	}
	if !src.Shape().Equal(dst.Shape()) {
		return fmt.Errorf("%s shape mismatch: expected %v, got %v", key, dst.Shape(), src.Shape())
	}
	if src.DType() != dst.DType() {
		return fmt.Errorf("%s dtype mismatch: expected %s, got %s", key, dst.DType(), src.DType())
	}
	copy(dst.Data(), src.Data())
	return nil
}

// checkNoExtraKeys reports keys the module did not consume.
func checkNoExtraKeys(stateDict map[string]*tensor.RawTensor, consumed ...string) error {
	for k := range stateDict {
		known := false
		for _, c := range consumed {
			if k == c {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("unexpected key %q in state dict", k)
		}
	}
	return nil
}
