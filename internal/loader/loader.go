package loader

import (
	"context"
	"fmt"

	"github.com/mobilevision-ml/mobilevision/internal/serialization"
	"github.com/mobilevision-ml/mobilevision/internal/tensor"
)

// Model is the part of a network the loader needs: strict, all-or-nothing
// state replacement.
type Model interface {
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error
}

// Options configures pretrained loading.
type Options struct {
	// Mapper normalizes checkpoint weight names. Defaults to
	// DataParallelMapper, which strips the "module." prefix.
	Mapper WeightMapper

	// CacheDir overrides the download cache location.
	CacheDir string

	// SkipChecksum disables the data-section checksum validation.
	SkipChecksum bool
}

// LoadPretrained loads a checkpoint from source (local path or URL) into
// model. The checkpoint's model_state section is read, weight names are
// normalized, and the model's LoadStateDict applies the result strictly:
// either every weight loads or the model is left untouched.
func LoadPretrained(ctx context.Context, model Model, source string, backend tensor.Backend, opts Options) error {
	var fetcher *Fetcher
	var err error
	if opts.CacheDir != "" {
		fetcher, err = NewFetcherWithCache(opts.CacheDir)
	} else {
		fetcher, err = NewFetcher()
	}
	if err != nil {
		return err
	}

	path, err := fetcher.Fetch(ctx, source)
	if err != nil {
		return err
	}

	reader, err := serialization.NewReaderWithOptions(path, serialization.ReaderOptions{
		SkipChecksumValidation: opts.SkipChecksum,
		ValidationLevel:        serialization.ValidationStrict,
	})
	if err != nil {
		return fmt.Errorf("cannot open checkpoint %s: %w", path, err)
	}
	defer func() { _ = reader.Close() }()

	stateDict, err := reader.ReadSection(serialization.ModelStateSection, backend)
	if err != nil {
		return fmt.Errorf("cannot read checkpoint %s: %w", path, err)
	}

	mapper := opts.Mapper
	if mapper == nil {
		mapper = NewDataParallelMapper()
	}
	stateDict, err = ApplyMapper(mapper, stateDict)
	if err != nil {
		return fmt.Errorf("cannot map weight names (%s): %w", mapper.Source(), err)
	}

	if err := model.LoadStateDict(stateDict); err != nil {
		return fmt.Errorf("checkpoint does not match model: %w", err)
	}
	return nil
}
