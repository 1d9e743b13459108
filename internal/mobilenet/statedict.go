package mobilenet

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mobilevision-ml/mobilevision/internal/tensor"
)

// Hierarchical state-dict helpers, mirroring the conventions of the nn
// package: keys are "."-joined paths such as "features.3.se.reduce.weight".

func mergeStateDict(dst map[string]*tensor.RawTensor, prefix string, src map[string]*tensor.RawTensor) {
	for k, v := range src {
		dst[prefix+"."+k] = v
	}
}

// splitStateDict extracts and removes the sub-dict under prefix+".".
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

func copyStateDict(src map[string]*tensor.RawTensor) map[string]*tensor.RawTensor {
	dst := make(map[string]*tensor.RawTensor, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// checkEmpty reports the remaining keys as unexpected.
func checkEmpty(stateDict map[string]*tensor.RawTensor) error {
	if len(stateDict) == 0 {
		return nil
	}
	keys := make([]string, 0, len(stateDict))
	for k := range stateDict {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Errorf("unexpected keys in state dict: %s", strings.Join(keys, ", "))
}
