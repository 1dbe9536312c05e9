package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dancherbu/physical-visual-tester/internal/embedding"
	"github.com/dancherbu/physical-visual-tester/internal/extract"
	"github.com/dancherbu/physical-visual-tester/internal/memory"
	"github.com/dancherbu/physical-visual-tester/internal/ocr"
	"github.com/dancherbu/physical-visual-tester/internal/ollama"
	"github.com/dancherbu/physical-visual-tester/internal/pipeline"
)

var (
	discoverHybrid     bool
	discoverLabelsOnly bool
	discoverNoTiles    bool

	discoverVisionModel  string
	discoverPurposeModel string
	discoverTextModel    string

	discoverMinQuestions int
	discoverMemThresh    float64
	discoverVisThresh    float64
	discoverMaxElements  int

	discoverNumPredict        int
	discoverPurposeNumPredict int

	discoverTileGrid    int
	discoverTileOverlap float64
	discoverTileScale   int
	discoverOCRWorkers  int
)

// discoverCmd runs the discovery pipeline on one screenshot
var discoverCmd = &cobra.Command{
	Use:   "discover [image]",
	Short: "Discover and learn UI elements from a screenshot",
	Long: `Runs the full discovery pipeline on one screenshot:

  1. Extract elements (direct vision JSON, or OCR tiles + purpose
     resolution in --hybrid mode)
  2. Check each element against the memory collection
  3. Store confidently understood new elements, queue questions for
     the rest

Prints stage timings, open questions, and learned items.`,
	Args: cobra.ExactArgs(1),
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().BoolVar(&discoverHybrid, "hybrid", false, "Use OCR-assisted extraction instead of direct vision JSON")
	discoverCmd.Flags().BoolVar(&discoverLabelsOnly, "labels-only", false, "Time the cheap label-list path only")
	discoverCmd.Flags().BoolVar(&discoverNoTiles, "no-tiles", false, "OCR the whole image instead of tiles (hybrid mode)")

	discoverCmd.Flags().StringVar(&discoverVisionModel, "vision-model", "", "Vision model name (default moondream)")
	discoverCmd.Flags().StringVar(&discoverPurposeModel, "purpose-model", "", "Purpose inference model (default: vision model)")
	discoverCmd.Flags().StringVar(&discoverTextModel, "text-purpose-model", "", "Text fallback model for role/purpose (default llama3.2:3b)")

	discoverCmd.Flags().IntVar(&discoverMinQuestions, "min-questions", 0, "Question list cap per run")
	discoverCmd.Flags().Float64Var(&discoverMemThresh, "memory-threshold", 0, "Similarity score at or above which an element is already known")
	discoverCmd.Flags().Float64Var(&discoverVisThresh, "vision-threshold", 0, "Confidence needed to store a new element")
	discoverCmd.Flags().IntVar(&discoverMaxElements, "max-elements", 0, "Cap on elements considered per run")

	discoverCmd.Flags().IntVar(&discoverNumPredict, "num-predict", 0, "Token budget for extraction calls")
	discoverCmd.Flags().IntVar(&discoverPurposeNumPredict, "purpose-num-predict", 0, "Token budget for purpose inference calls")

	discoverCmd.Flags().IntVar(&discoverTileGrid, "tile-grid", 0, "Tiles per region side")
	discoverCmd.Flags().Float64Var(&discoverTileOverlap, "tile-overlap", -1, "Fractional overlap between adjacent tiles")
	discoverCmd.Flags().IntVar(&discoverTileScale, "tile-scale", 0, "Upscale factor before OCR")
	discoverCmd.Flags().IntVar(&discoverOCRWorkers, "ocr-workers", 0, "Parallel OCR workers")

	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Flag overrides on top of config
	if discoverVisionModel != "" {
		cfg.VisionModel = discoverVisionModel
	}
	if discoverPurposeModel != "" {
		cfg.PurposeModel = discoverPurposeModel
	}
	if discoverTextModel != "" {
		cfg.TextPurposeModel = discoverTextModel
	}
	if discoverMinQuestions > 0 {
		cfg.MinQuestions = discoverMinQuestions
	}
	if discoverMemThresh > 0 {
		cfg.MemoryThreshold = discoverMemThresh
	}
	if discoverVisThresh > 0 {
		cfg.VisionThreshold = discoverVisThresh
	}
	if discoverMaxElements > 0 {
		cfg.MaxElements = discoverMaxElements
	}
	if discoverNumPredict > 0 {
		cfg.NumPredict = discoverNumPredict
	}
	if discoverPurposeNumPredict > 0 {
		cfg.PurposeNumPredict = discoverPurposeNumPredict
	}
	if discoverTileGrid > 0 {
		cfg.TileGrid = discoverTileGrid
	}
	if discoverTileOverlap >= 0 {
		cfg.TileOverlap = discoverTileOverlap
	}
	if discoverTileScale > 0 {
		cfg.TileScale = discoverTileScale
	}
	if discoverOCRWorkers > 0 {
		cfg.OCRWorkers = discoverOCRWorkers
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	imagePath := args[0]
	shot, err := pipeline.LoadCapture(imagePath)
	if err != nil {
		return fmt.Errorf("failed to load screenshot: %w", err)
	}
	logger.Info("Loaded screenshot",
		zap.String("path", imagePath),
		zap.Int("width", shot.Width),
		zap.Int("height", shot.Height))

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.GenerateTimeout.Std())
	defer cancel()

	client := ollama.NewClient(cfg.OllamaURL, cfg.GenerateTimeout.Std())
	engine, err := embedding.NewEngine(cfg.Embedding)
	if err != nil {
		return fmt.Errorf("failed to create embedding engine: %w", err)
	}
	store := memory.NewStore(cfg.QdrantURL, cfg.Collection, cfg.StoreTimeout.Std(), logger)

	extractor := extract.NewExtractor(client, cfg.VisionModel, cfg.NumPredict, cfg.MinQuestions, logger)
	resolver := extract.NewResolver(client, cfg.VisionModel, cfg.TextPurposeModel, cfg.NumPredict, logger)
	inferrer := extract.NewPurposeInferrer(client, cfg.PurposeModelOrDefault(), cfg.PurposeNumPredict, logger)

	gate := memory.NewGate(engine, store, memory.GateConfig{
		MemoryThreshold: cfg.MemoryThreshold,
		VisionThreshold: cfg.VisionThreshold,
		MinQuestions:    cfg.MinQuestions,
	}, func(ctx context.Context, label string) string {
		return inferrer.Infer(ctx, shot.Bytes, label)
	}, logger)

	recognizer := ocr.NewRecognizer(cfg.OCRLanguage, cfg.OCRTimeout.Std(), logger)

	p := pipeline.New(pipeline.Options{
		Hybrid:      discoverHybrid,
		LabelsOnly:  discoverLabelsOnly,
		UseTiles:    !discoverNoTiles,
		TileGrid:    cfg.TileGrid,
		TileOverlap: cfg.TileOverlap,
		TileScale:   cfg.TileScale,
		ImagePath:   imagePath,
		OCRWorkers:  cfg.OCRWorkers,
		MaxElements: cfg.MaxElements,
	}, extractor, resolver, recognizer, gate, logger)

	result, err := p.Run(ctx, shot)
	if err != nil {
		return fmt.Errorf("pipeline failed: %w", err)
	}

	printReport(result)
	return nil
}

func printReport(result *pipeline.Result) {
	m := result.Metrics
	fmt.Println("=== Discovery Report ===")
	if result.ScreenSummary != "" {
		fmt.Printf("Screen: %s\n", result.ScreenSummary)
	}
	if result.Aborted != "" {
		fmt.Printf("Run ended early: %s\n", result.Aborted)
	}
	fmt.Println()
	fmt.Println("Timings:")
	printTiming("vision", m.Vision)
	printTiming("ocr", m.OCR)
	printTiming("resolve", m.Resolve)
	printTiming("gate", m.Gate)
	printTiming("total", m.Total)
	fmt.Println()
	fmt.Printf("Parsed: %d  Known: %d  Learned: %d  Questioned: %d  Skipped: %d\n",
		m.Parsed, m.Known, m.Learned, m.Questioned, m.Skipped)

	fmt.Println()
	fmt.Println("--- Questions ---")
	if len(result.Questions) == 0 {
		fmt.Println("(none)")
	}
	for _, q := range result.Questions {
		fmt.Printf("  %s\n", q)
	}

	fmt.Println()
	fmt.Println("--- Learned Items ---")
	if len(result.Learned) == 0 {
		fmt.Println("(none)")
	}
	for _, el := range result.Learned {
		fmt.Printf("  %s [%s] -> %s\n", el.Label, el.Role, el.Purpose)
	}
}

func printTiming(stage string, d time.Duration) {
	if d == 0 {
		return
	}
	fmt.Printf("  %-8s %s\n", stage, d.Round(time.Millisecond))
}
