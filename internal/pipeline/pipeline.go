// Package pipeline sequences the discovery stages for one screenshot:
// extraction (direct JSON or OCR-assisted hybrid), purpose resolution,
// and the novelty gate. No stage failure aborts a run; the worst case is
// an empty learned list and a full question list, which is itself a
// meaningful answer (the screen is entirely unknown).
package pipeline

import (
	"context"
	"image"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dancherbu/physical-visual-tester/internal/extract"
	"github.com/dancherbu/physical-visual-tester/internal/memory"
	"github.com/dancherbu/physical-visual-tester/internal/sanitize"
	"github.com/dancherbu/physical-visual-tester/internal/tiler"
)

// TextRecognizer is the OCR capability the hybrid mode needs. Satisfied
// by *ocr.Recognizer.
type TextRecognizer interface {
	RecognizeText(ctx context.Context, tile image.Image) []string
	RecognizeFile(ctx context.Context, path string) []string
}

// Options control one pipeline run.
type Options struct {
	// Hybrid switches from direct JSON extraction to the OCR-assisted
	// path (tile OCR + purpose resolver).
	Hybrid bool
	// LabelsOnly skips the structured schema request and only exercises
	// the label-list path, for timing the cheap path in isolation.
	LabelsOnly bool

	// Tiling parameters for hybrid mode.
	UseTiles    bool
	TileGrid    int
	TileOverlap float64
	TileScale   int
	// ImagePath backs the non-tiled OCR path, which hands the file
	// straight to the recognizer.
	ImagePath string

	// OCRWorkers bounds the tile recognition worker pool.
	OCRWorkers int

	// MaxElements caps how many elements one run will consider.
	MaxElements int
}

// Result is the final report of one run.
type Result struct {
	ScreenSummary string
	Questions     []string
	Learned       []extract.Element
	Metrics       Metrics
	// Aborted names the reason for an early clean return (e.g. hybrid
	// mode with no OCR labels), empty on a full run.
	Aborted string
}

// Pipeline wires the stages together. Construct once per process; each
// Run is independent.
type Pipeline struct {
	opts       Options
	extractor  *extract.Extractor
	resolver   *extract.Resolver
	recognizer TextRecognizer
	gate       *memory.Gate
	logger     *zap.Logger
}

// New assembles a pipeline. resolver and recognizer are only used in
// hybrid mode and may be nil otherwise.
func New(opts Options, extractor *extract.Extractor, resolver *extract.Resolver, recognizer TextRecognizer, gate *memory.Gate, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.OCRWorkers < 1 {
		opts.OCRWorkers = 1
	}
	if opts.MaxElements < 1 {
		opts.MaxElements = 40
	}
	return &Pipeline{
		opts:       opts,
		extractor:  extractor,
		resolver:   resolver,
		recognizer: recognizer,
		gate:       gate,
		logger:     logger,
	}
}

// Run drives the stages for one screenshot.
func (p *Pipeline) Run(ctx context.Context, shot *Capture) (*Result, error) {
	total := startStopwatch()
	var res *Result
	if p.opts.Hybrid {
		res = p.runHybrid(ctx, shot)
	} else {
		res = p.runDirect(ctx, shot)
	}
	res.Questions = p.gate.Questions()
	res.Learned = p.gate.Learned()
	res.Metrics.Learned = len(res.Learned)
	res.Metrics.Questioned = len(res.Questions)
	res.Metrics.Total = total.elapsed()
	return res, nil
}

// runDirect is the vision-JSON path: structured extraction, then the
// novelty gate per element.
func (p *Pipeline) runDirect(ctx context.Context, shot *Capture) *Result {
	res := &Result{}

	sw := startStopwatch()
	var extracted extract.Result
	if p.opts.LabelsOnly {
		extracted.Elements = p.extractor.LabelList(ctx, shot.Bytes)
	} else {
		extracted = p.extractor.Extract(ctx, shot.Bytes)
	}
	res.Metrics.Vision = sw.elapsed()
	res.ScreenSummary = extracted.ScreenSummary
	res.Metrics.Parsed = len(extracted.Elements)
	p.logger.Info("extraction complete",
		zap.Int("elements", len(extracted.Elements)),
		zap.Duration("elapsed", res.Metrics.Vision))

	p.gateElements(ctx, extracted.Elements, extracted.ScreenSummary, res)
	return res
}

// runHybrid is the OCR-assisted path: tile OCR for labels, the purpose
// resolver for roles/purposes, then the novelty gate.
func (p *Pipeline) runHybrid(ctx context.Context, shot *Capture) *Result {
	res := &Result{}

	sw := startStopwatch()
	labels := p.ocrLabels(ctx, shot)
	res.Metrics.OCR = sw.elapsed()
	p.logger.Info("ocr complete", zap.Int("labels", len(labels)), zap.Duration("elapsed", res.Metrics.OCR))

	if len(labels) == 0 {
		res.Aborted = "OCR produced no labels"
		p.logger.Warn("aborting hybrid run: no OCR labels")
		return res
	}

	sw = startStopwatch()
	items := p.resolver.Resolve(ctx, shot.Bytes, labels)
	res.Metrics.Resolve = sw.elapsed()
	res.Metrics.Parsed = len(items)
	p.logger.Info("purpose resolution complete", zap.Int("items", len(items)), zap.Duration("elapsed", res.Metrics.Resolve))

	if len(items) == 0 {
		res.Aborted = "no valid role/purpose items parsed"
		p.logger.Warn("aborting hybrid run: nothing parsed")
		return res
	}

	p.gateElements(ctx, items, "", res)
	return res
}

// gateElements runs candidates through the novelty gate, deduplicating
// labels case-insensitively across the whole run (first occurrence wins)
// and honoring the element cap.
func (p *Pipeline) gateElements(ctx context.Context, elements []extract.Element, screenSummary string, res *Result) {
	sw := startStopwatch()
	defer func() { res.Metrics.Gate = sw.elapsed() }()

	seen := make(map[string]struct{}, len(elements))
	processed := 0
	for _, el := range elements {
		key := strings.ToLower(el.Label)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		processed++
		if processed > p.opts.MaxElements {
			break
		}

		_, outcome := p.gate.Consider(ctx, el, screenSummary)
		switch outcome {
		case memory.OutcomeKnown:
			res.Metrics.Known++
		case memory.OutcomeSkipped:
			res.Metrics.Skipped++
		}
	}
}

// ocrLabels collects cleaned labels from the screenshot. With tiling
// enabled, every region is subdivided and tiles are recognized by a
// bounded worker pool; results are merged in tile traversal order so the
// sanitizer's first-occurrence dedupe stays reproducible.
func (p *Pipeline) ocrLabels(ctx context.Context, shot *Capture) []string {
	if !p.opts.UseTiles {
		raw := p.recognizer.RecognizeFile(ctx, p.opts.ImagePath)
		return capLabels(sanitize.Clean(raw), p.opts.MaxElements)
	}

	var tiles []image.Rectangle
	for _, region := range tiler.Regions(shot.Width, shot.Height) {
		tiles = append(tiles, tiler.Tile(region.Rect, p.opts.TileGrid, p.opts.TileOverlap)...)
	}

	results := make([][]string, len(tiles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.OCRWorkers)
	for i, rect := range tiles {
		g.Go(func() error {
			cropped := tiler.Crop(shot.Image, rect)
			processed := tiler.Preprocess(cropped, p.opts.TileScale)
			results[i] = p.recognizer.RecognizeText(gctx, processed)
			return nil
		})
	}
	// Workers never return errors; Wait only synchronizes the pool.
	_ = g.Wait()

	var collected []string
	for _, r := range results {
		collected = append(collected, r...)
	}
	return capLabels(sanitize.Clean(collected), p.opts.MaxElements)
}

func capLabels(labels []string, max int) []string {
	if len(labels) > max {
		return labels[:max]
	}
	return labels
}
