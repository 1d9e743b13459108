// Package main provides the MobileVision CLI: image classification with
// SE-MobileNetV2 checkpoints, plus checkpoint inspection and conversion.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/mobilevision-ml/mobilevision/backend/cpu"
	"github.com/mobilevision-ml/mobilevision/internal/imaging"
	"github.com/mobilevision-ml/mobilevision/internal/serialization"
	"github.com/mobilevision-ml/mobilevision/loader"
	"github.com/mobilevision-ml/mobilevision/mobilenet"
)

const version = "v0.3.1"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "version":
		fmt.Printf("MobileVision %s\n", version)
	case "classify":
		err = runClassify(os.Args[2:])
	case "inspect":
		err = runInspect(os.Args[2:])
	case "convert":
		err = runConvert(os.Args[2:])
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("MobileVision - SE-MobileNetV2 image classification in Go")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  classify   Classify an image with a pretrained checkpoint")
	fmt.Println("  inspect    List the tensors in a checkpoint")
	fmt.Println("  convert    Re-encode a checkpoint (e.g. to float16)")
	fmt.Println("  version    Show version")
}

func runClassify(args []string) error {
	fs := flag.NewFlagSet("classify", flag.ExitOnError)
	model := fs.String("model", "", "checkpoint path or URL (required)")
	imagePath := fs.String("image", "", "image to classify, JPEG or PNG (required)")
	labelsPath := fs.String("labels", "", "optional labels file, one class name per line")
	topK := fs.Int("topk", 5, "number of predictions to print")
	numClasses := fs.Int("num-classes", 1000, "classifier size")
	inputSize := fs.Int("input-size", 224, "input resolution (multiple of 32)")
	widthMult := fs.Float64("width", 1.0, "width multiplier")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *model == "" || *imagePath == "" {
		fs.Usage()
		return fmt.Errorf("classify requires -model and -image")
	}

	backend := cpu.New()
	cfg := mobilenet.DefaultConfig()
	cfg.NumClasses = *numClasses
	cfg.InputSize = *inputSize
	cfg.WidthMult = *widthMult

	net, err := mobilenet.New(cfg, backend)
	if err != nil {
		return err
	}
	if err := loader.LoadPretrained(context.Background(), net, *model, backend, loader.Options{}); err != nil {
		return err
	}

	img, err := imaging.DecodeFile(*imagePath)
	if err != nil {
		return err
	}
	input, err := imaging.ToTensor(img, cfg.InputSize, backend)
	if err != nil {
		return err
	}

	probs := net.Forward(input).Softmax(-1)
	labels, err := readLabels(*labelsPath, cfg.NumClasses)
	if err != nil {
		return err
	}

	for _, p := range topPredictions(probs.Data(), *topK) {
		fmt.Printf("%6.2f%%  %s\n", 100*p.prob, labels[p.class])
	}
	return nil
}

func runInspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	model := fs.String("model", "", "checkpoint path (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *model == "" {
		fs.Usage()
		return fmt.Errorf("inspect requires -model")
	}

	reader, err := serialization.NewReader(*model)
	if err != nil {
		return err
	}
	defer func() { _ = reader.Close() }()

	header := reader.Header()
	fmt.Printf("model_type: %s\n", header.ModelType)
	fmt.Printf("created_at: %s\n", header.CreatedAt)
	fmt.Printf("tensors:    %d\n", len(header.Tensors))
	for _, meta := range header.Tensors {
		fmt.Printf("  %-60s %-8s %v\n", meta.Name, meta.DType, meta.Shape)
	}
	return nil
}

func runConvert(args []string) error {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	in := fs.String("in", "", "input checkpoint (required)")
	out := fs.String("out", "", "output checkpoint (required)")
	fp16 := fs.Bool("fp16", false, "store float tensors as float16")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" || *out == "" {
		fs.Usage()
		return fmt.Errorf("convert requires -in and -out")
	}

	backend := cpu.New()
	reader, err := serialization.NewReader(*in)
	if err != nil {
		return err
	}
	defer func() { _ = reader.Close() }()

	stateDict, err := reader.ReadSection(serialization.ModelStateSection, backend)
	if err != nil {
		return err
	}

	writer, err := serialization.NewWriter(*out)
	if err != nil {
		return err
	}
	writer.SetHalfPrecision(*fp16)
	if err := writer.WriteCheckpoint(stateDict, reader.Header().ModelType, reader.Metadata()); err != nil {
		_ = writer.Close()
		return err
	}
	return writer.Close()
}

type prediction struct {
	class int
	prob  float32
}

// topPredictions returns the k highest-probability classes in order.
func topPredictions(probs []float32, k int) []prediction {
	preds := make([]prediction, len(probs))
	for i, p := range probs {
		preds[i] = prediction{class: i, prob: p}
	}
	sort.Slice(preds, func(i, j int) bool { return preds[i].prob > preds[j].prob })
	if k > len(preds) {
		k = len(preds)
	}
	return preds[:k]
}

// readLabels loads class names, falling back to "class <i>" placeholders.
func readLabels(path string, numClasses int) ([]string, error) {
	labels := make([]string, numClasses)
	for i := range labels {
		labels[i] = fmt.Sprintf("class %d", i)
	}
	if path == "" {
		return labels, nil
	}

	//nolint:gosec // G304: labels path comes from the caller by design
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open labels file: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for i := 0; i < numClasses && scanner.Scan(); i++ {
		labels[i] = scanner.Text()
	}
	return labels, scanner.Err()
}
