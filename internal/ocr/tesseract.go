// Package ocr wraps the tesseract command-line tool. Recognition is
// best-effort: a missing binary, a non-zero exit or undecodable output all
// yield an empty result, never an error. The pipeline's fallback chain
// handles the rest.
package ocr

import (
	"bytes"
	"context"
	"image"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

// tsvTextColumn is the zero-based index of the text column in tesseract's
// TSV output (level, page, block, par, line, word, left, top, width,
// height, conf, text).
const tsvTextColumn = 11

// Recognizer runs tesseract against single tile images.
type Recognizer struct {
	binary   string
	language string
	timeout  time.Duration
	logger   *zap.Logger
}

// NewRecognizer creates a tesseract-backed recognizer. The language hint
// is passed through to tesseract's -l flag.
func NewRecognizer(language string, timeout time.Duration, logger *zap.Logger) *Recognizer {
	if language == "" {
		language = "eng"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recognizer{binary: "tesseract", language: language, timeout: timeout, logger: logger}
}

// RecognizeText returns the raw text fragments tesseract found in the
// tile. Position data in the TSV is discarded; only the text column is
// consumed. Failures of any kind return an empty slice.
func (r *Recognizer) RecognizeText(ctx context.Context, tile image.Image) []string {
	tmp, err := os.CreateTemp("", "pvt-tile-*.png")
	if err != nil {
		r.logger.Debug("ocr temp file failed", zap.Error(err))
		return nil
	}
	path := tmp.Name()
	tmp.Close()
	defer os.Remove(path)

	if err := imaging.Save(tile, path); err != nil {
		r.logger.Debug("ocr tile encode failed", zap.Error(err))
		return nil
	}
	return r.recognizeFile(ctx, path)
}

// RecognizeFile runs tesseract directly over an image on disk. Used by
// the non-tiled OCR path.
func (r *Recognizer) RecognizeFile(ctx context.Context, path string) []string {
	return r.recognizeFile(ctx, path)
}

func (r *Recognizer) recognizeFile(ctx context.Context, path string) []string {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.binary, path, "stdout", "-l", r.language, "tsv")
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		r.logger.Debug("tesseract run failed", zap.String("path", path), zap.Error(err))
		return nil
	}
	return ParseTSV(stdout.String())
}

// ParseTSV extracts the text column from tesseract TSV output, skipping
// the header row and empty cells.
func ParseTSV(tsv string) []string {
	var texts []string
	for _, line := range strings.Split(tsv, "\n") {
		if strings.HasPrefix(line, "level") {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) <= tsvTextColumn {
			continue
		}
		text := strings.TrimSpace(cols[tsvTextColumn])
		if text == "" {
			continue
		}
		texts = append(texts, text)
	}
	return texts
}
