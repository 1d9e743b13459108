package loader

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/mobilevision-ml/mobilevision/internal/backend/cpu"
	"github.com/mobilevision-ml/mobilevision/internal/serialization"
	"github.com/mobilevision-ml/mobilevision/internal/tensor"
)

// recordingModel captures the state dict handed to LoadStateDict.
type recordingModel struct {
	received map[string]*tensor.RawTensor
	fail     bool
}

func (m *recordingModel) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	m.received = stateDict
	if m.fail {
		return fmt.Errorf("state dict mismatch")
	}
	return nil
}

func writeTestCheckpoint(t *testing.T, dir string, keys ...string) string {
	t.Helper()

	stateDict := make(map[string]*tensor.RawTensor)
	for i, key := range keys {
		raw, err := tensor.NewRaw(tensor.Shape{2}, tensor.Float32, tensor.CPU)
		if err != nil {
			t.Fatalf("NewRaw: %v", err)
		}
		raw.AsFloat32()[0] = float32(i + 1)
		stateDict[key] = raw
	}

	path := filepath.Join(dir, "model.mvis")
	writer, err := serialization.NewWriter(path)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := writer.WriteCheckpoint(stateDict, "SEMobileNetV2", nil); err != nil {
		t.Fatalf("WriteCheckpoint: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return path
}

// TestStripModulePrefix verifies data-parallel prefixes are removed and
// clean names pass through.
func TestStripModulePrefix(t *testing.T) {
	raw, err := tensor.NewRaw(tensor.Shape{1}, tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatalf("NewRaw: %v", err)
	}

	stateDict := map[string]*tensor.RawTensor{
		"module.features.0.0.weight": raw,
		"module.classifier.bias":     raw,
		"classifier.weight":          raw,
	}

	stripped := StripModulePrefix(stateDict)
	for _, want := range []string{"features.0.0.weight", "classifier.bias", "classifier.weight"} {
		if _, ok := stripped[want]; !ok {
			t.Errorf("missing key %q after strip", want)
		}
	}
	if len(stripped) != 3 {
		t.Errorf("expected 3 keys, got %d", len(stripped))
	}
}

// TestLoadPretrained_LocalFile verifies loading from a local checkpoint,
// prefix stripping included.
func TestLoadPretrained_LocalFile(t *testing.T) {
	path := writeTestCheckpoint(t, t.TempDir(),
		"module.classifier.weight", "module.classifier.bias")

	model := &recordingModel{}
	err := LoadPretrained(context.Background(), model, path, cpu.New(), Options{})
	if err != nil {
		t.Fatalf("LoadPretrained: %v", err)
	}

	for _, want := range []string{"classifier.weight", "classifier.bias"} {
		if _, ok := model.received[want]; !ok {
			t.Errorf("model did not receive key %q", want)
		}
	}
}

// TestLoadPretrained_MissingFile verifies a clear error for absent paths.
func TestLoadPretrained_MissingFile(t *testing.T) {
	model := &recordingModel{}
	err := LoadPretrained(context.Background(), model, "/does/not/exist.mvis", cpu.New(), Options{})
	if err == nil {
		t.Fatal("expected error for missing checkpoint")
	}
}

// TestLoadPretrained_PropagatesModelError verifies strict-load failures
// surface to the caller.
func TestLoadPretrained_PropagatesModelError(t *testing.T) {
	path := writeTestCheckpoint(t, t.TempDir(), "classifier.weight")

	model := &recordingModel{fail: true}
	err := LoadPretrained(context.Background(), model, path, cpu.New(), Options{})
	if err == nil {
		t.Fatal("expected error from model LoadStateDict")
	}
}

// TestFetch_RemoteDownloadAndCache verifies HTTP download and cache reuse.
func TestFetch_RemoteDownloadAndCache(t *testing.T) {
	path := writeTestCheckpoint(t, t.TempDir(), "classifier.weight")
	payload, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	cacheDir := t.TempDir()
	fetcher, err := NewFetcherWithCache(cacheDir)
	if err != nil {
		t.Fatalf("NewFetcherWithCache: %v", err)
	}

	url := server.URL + "/model.mvis"
	first, err := fetcher.Fetch(context.Background(), url)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	second, err := fetcher.Fetch(context.Background(), url)
	if err != nil {
		t.Fatalf("Fetch (cached): %v", err)
	}

	if first != second {
		t.Errorf("cache paths differ: %q vs %q", first, second)
	}
	if hits != 1 {
		t.Errorf("expected 1 download, got %d", hits)
	}

	got, err := os.ReadFile(first)
	if err != nil {
		t.Fatalf("ReadFile cached: %v", err)
	}
	if string(got) != string(payload) {
		t.Error("cached file differs from served payload")
	}
}

// TestFetch_RemoteErrorStatus verifies non-200 responses fail without
// populating the cache.
func TestFetch_RemoteErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	cacheDir := t.TempDir()
	fetcher, err := NewFetcherWithCache(cacheDir)
	if err != nil {
		t.Fatalf("NewFetcherWithCache: %v", err)
	}

	if _, err := fetcher.Fetch(context.Background(), server.URL+"/missing.mvis"); err == nil {
		t.Fatal("expected error for 404 response")
	}

	entries, err := os.ReadDir(cacheDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("cache should be empty after failed download, has %d entries", len(entries))
	}
}
