package serialization

import (
	"time"

	"github.com/mobilevision-ml/mobilevision/internal/tensor"
)

// Format constants.
const (
	MagicBytes      = "MVIS"
	FormatVersion   = 1
	HeaderAlignment = 64   // Align tensor data to 64 bytes
	FixedHeaderSize = 64   // Fixed header size (0x40 bytes)
	ChecksumSize    = 32   // SHA-256 checksum size
	ChecksumOffset  = 0x20 // Checksum offset in the fixed header
)

// ModelStateSection is the section prefix under which model weights are
// stored in a checkpoint.
const ModelStateSection = "model_state"

// Data type string constants for serialization. Float16 is wire-only:
// readers widen it to float32.
const (
	DTypeFloat16 = "float16"
	DTypeFloat32 = "float32"
	DTypeFloat64 = "float64"
	DTypeInt32   = "int32"
	DTypeUint8   = "uint8"
)

// Flags for the .mvis format.
const (
	FlagHasMetadata   uint32 = 1 << 0 // bit 0: custom metadata included
	FlagHalfPrecision uint32 = 1 << 1 // bit 1: float tensors stored as float16
)

// Header represents the JSON header in a .mvis file.
type Header struct {
	FormatVersion  int               `json:"format_version"`
	LibraryVersion string            `json:"library_version"`
	ModelType      string            `json:"model_type"`
	CreatedAt      time.Time         `json:"created_at"`
	Tensors        []TensorMeta      `json:"tensors"`
	Metadata       map[string]string `json:"metadata"`
}

// TensorMeta describes a tensor in the .mvis file.
type TensorMeta struct {
	Name   string `json:"name"`   // Tensor name (e.g., "model_state.classifier.weight")
	DType  string `json:"dtype"`  // Data type (e.g., "float32", "float16")
	Shape  []int  `json:"shape"`  // Tensor shape
	Offset int64  `json:"offset"` // Offset in bytes from the start of the data section
	Size   int64  `json:"size"`   // Size in bytes
}

// dtypeToString converts tensor.DataType to its wire representation.
func dtypeToString(dt tensor.DataType) string {
	switch dt {
	case tensor.Float32:
		return DTypeFloat32
	case tensor.Float64:
		return DTypeFloat64
	case tensor.Int32:
		return DTypeInt32
	case tensor.Uint8:
		return DTypeUint8
	default:
		return "unknown"
	}
}

// stringToDtype converts a wire representation to tensor.DataType.
// DTypeFloat16 is handled separately by the reader's widening path.
func stringToDtype(s string) (tensor.DataType, bool) {
	switch s {
	case DTypeFloat32:
		return tensor.Float32, true
	case DTypeFloat64:
		return tensor.Float64, true
	case DTypeInt32:
		return tensor.Int32, true
	case DTypeUint8:
		return tensor.Uint8, true
	default:
		return 0, false
	}
}
