package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/x448/float16"

	"github.com/mobilevision-ml/mobilevision/internal/tensor"
)

const libraryVersion = "0.3.1" // Current MobileVision version

// Writer writes checkpoints in .mvis format.
type Writer struct {
	file          *os.File
	halfPrecision bool
	closed        bool
}

// NewWriter creates a new .mvis file writer.
func NewWriter(path string) (*Writer, error) {
	//nolint:gosec // G304: checkpoint path comes from the caller by design
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	return &Writer{file: file}, nil
}

// SetHalfPrecision stores float32 tensors as float16 on disk, halving the
// file size. Readers widen them back to float32.
func (w *Writer) SetHalfPrecision(enabled bool) {
	w.halfPrecision = enabled
}

// WriteCheckpoint writes a model state dictionary under the
// ModelStateSection prefix.
func (w *Writer) WriteCheckpoint(stateDict map[string]*tensor.RawTensor, modelType string, metadata map[string]string) error {
	sections := map[string]map[string]*tensor.RawTensor{
		ModelStateSection: stateDict,
	}
	return w.WriteSections(sections, modelType, metadata)
}

// WriteSections writes named tensor sections to the .mvis file. Each
// tensor is stored as "<section>.<key>". Tensors are laid out in sorted
// name order, so identical state dicts produce identical files.
func (w *Writer) WriteSections(sections map[string]map[string]*tensor.RawTensor, modelType string, metadata map[string]string) error {
	if w.closed {
		return fmt.Errorf("writer is closed")
	}

	header := Header{
		FormatVersion:  FormatVersion,
		LibraryVersion: libraryVersion,
		ModelType:      modelType,
		CreatedAt:      time.Now().UTC(),
		Metadata:       metadata,
	}
	if header.Metadata == nil {
		header.Metadata = make(map[string]string)
	}

	// Flatten sections into fully qualified names.
	flat := make(map[string]*tensor.RawTensor)
	for section, stateDict := range sections {
		for key, raw := range stateDict {
			flat[section+"."+key] = raw
		}
	}

	names := make([]string, 0, len(flat))
	for name := range flat {
		names = append(names, name)
	}
	sort.Strings(names)

	// Encode tensors, building metadata and the data section together.
	var dataBuf []byte
	header.Tensors = make([]TensorMeta, 0, len(names))
	for _, name := range names {
		raw := flat[name]

		dtype := dtypeToString(raw.DType())
		data := raw.Data()
		if w.halfPrecision && raw.DType() == tensor.Float32 {
			dtype = DTypeFloat16
			data = narrowFloat32(raw.AsFloat32())
		}

		header.Tensors = append(header.Tensors, TensorMeta{
			Name:   name,
			DType:  dtype,
			Shape:  []int(raw.Shape()),
			Offset: int64(len(dataBuf)),
			Size:   int64(len(data)),
		})
		dataBuf = append(dataBuf, data...)
	}

	checksum := ComputeChecksum(dataBuf)

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	// Fixed header (64 bytes)
	fixedHeader := make([]byte, FixedHeaderSize)
	copy(fixedHeader[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixedHeader[4:8], uint32(FormatVersion))

	flags := uint32(0)
	if len(header.Metadata) > 0 {
		flags |= FlagHasMetadata
	}
	if w.halfPrecision {
		flags |= FlagHalfPrecision
	}
	binary.LittleEndian.PutUint32(fixedHeader[8:12], flags)
	// 0x0C-0x0F reserved, zero from make()
	binary.LittleEndian.PutUint64(fixedHeader[16:24], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixedHeader[24:32], uint64(len(dataBuf)))
	copy(fixedHeader[ChecksumOffset:ChecksumOffset+ChecksumSize], checksum[:])

	if _, err := w.file.Write(fixedHeader); err != nil {
		return fmt.Errorf("failed to write fixed header: %w", err)
	}
	if _, err := w.file.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header JSON: %w", err)
	}

	// Pad so the data section starts 64-byte aligned.
	currentPos := int64(FixedHeaderSize) + int64(len(headerJSON))
	padding := (HeaderAlignment - (currentPos % HeaderAlignment)) % HeaderAlignment
	if padding > 0 {
		if _, err := w.file.Write(make([]byte, padding)); err != nil {
			return fmt.Errorf("failed to write padding: %w", err)
		}
	}

	if _, err := w.file.Write(dataBuf); err != nil {
		return fmt.Errorf("failed to write tensor data: %w", err)
	}

	return nil
}

// Close closes the writer and the underlying file.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}

// narrowFloat32 encodes float32 values as IEEE 754 half-precision bytes.
func narrowFloat32(values []float32) []byte {
	out := make([]byte, 2*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint16(out[2*i:], float16.Fromfloat32(v).Bits())
	}
	return out
}
