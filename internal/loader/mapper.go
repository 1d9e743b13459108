package loader

import (
	"strings"

	"github.com/mobilevision-ml/mobilevision/internal/tensor"
)

// WeightMapper normalizes checkpoint-specific weight names to the names a
// model expects.
type WeightMapper interface {
	// MapName converts a checkpoint weight name to its canonical form.
	MapName(name string) (string, error)

	// Source describes the checkpoint convention handled by this mapper.
	Source() string
}

// DataParallelMapper strips the "module." prefix that data-parallel
// training wrappers prepend to every weight name. Names without the prefix
// pass through unchanged, so the mapper is safe on already-clean
// checkpoints.
type DataParallelMapper struct{}

// NewDataParallelMapper creates a mapper for data-parallel checkpoints.
func NewDataParallelMapper() *DataParallelMapper {
	return &DataParallelMapper{}
}

// MapName strips a leading "module." if present.
func (m *DataParallelMapper) MapName(name string) (string, error) {
	return strings.TrimPrefix(name, "module."), nil
}

// Source returns the checkpoint convention name.
func (m *DataParallelMapper) Source() string {
	return "data_parallel"
}

// ApplyMapper rewrites every key of a state dictionary through the mapper.
func ApplyMapper(mapper WeightMapper, stateDict map[string]*tensor.RawTensor) (map[string]*tensor.RawTensor, error) {
	mapped := make(map[string]*tensor.RawTensor, len(stateDict))
	for name, raw := range stateDict {
		canonical, err := mapper.MapName(name)
		if err != nil {
			return nil, err
		}
		mapped[canonical] = raw
	}
	return mapped, nil
}

// StripModulePrefix removes the "module." prefix from every key that
// carries it.
func StripModulePrefix(stateDict map[string]*tensor.RawTensor) map[string]*tensor.RawTensor {
	mapped, _ := ApplyMapper(NewDataParallelMapper(), stateDict)
	return mapped
}
