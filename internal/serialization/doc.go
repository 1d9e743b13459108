// Package serialization provides the native .mvis checkpoint format for
// MobileVision models.
//
//	Format Structure:
//	  [64 bytes: fixed header]
//	    0x00-0x03  Magic "MVIS"
//	    0x04-0x07  Version (uint32 LE)
//	    0x08-0x0B  Flags (uint32 LE)
//	    0x0C-0x0F  Reserved
//	    0x10-0x17  Header size (uint64 LE)
//	    0x18-0x1F  Data size (uint64 LE)
//	    0x20-0x3F  SHA-256 checksum of the data section
//	  [Header: JSON metadata]
//	  [Tensor data: raw bytes, 64-byte aligned]
//
// Tensor names are hierarchical, "."-joined paths. Checkpoints group their
// tensors into sections ("model_state.features.0.0.weight"); readers
// extract a section with the prefix stripped.
//
// Tensors may be stored in float16 (half the size) and are widened back to
// float32 on read.
//
// Example usage:
//
//	writer, err := serialization.NewWriter("model.mvis")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = writer.WriteCheckpoint(model.StateDict(), "SEMobileNetV2", nil)
//	writer.Close()
//
//	reader, err := serialization.NewReader("model.mvis")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	stateDict, err := reader.ReadSection(serialization.ModelStateSection, backend)
//	model.LoadStateDict(stateDict)
//	reader.Close()
package serialization
