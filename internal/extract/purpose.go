package extract

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dancherbu/physical-visual-tester/internal/ollama"
)

// degenerate answers the model gives when it has no idea; treated as no
// answer at all.
var degenerateAnswers = map[string]struct{}{
	"unknown":      {},
	"unsure":       {},
	"i'm not sure": {},
}

const purposePromptFmt = "You are analyzing a UI screenshot. " +
	"Explain the purpose of the UI element labeled '%s' in 1 short sentence. " +
	"If unsure, return an empty string. Output ONLY the text."

// PurposeInferrer asks the vision model for a one-sentence purpose of a
// single labeled element. Used by the novelty gate when an element made
// it past the similarity check with no purpose attached.
type PurposeInferrer struct {
	gen        Generator
	model      string
	numPredict int
	logger     *zap.Logger
}

// NewPurposeInferrer creates a single-label purpose inferrer.
func NewPurposeInferrer(gen Generator, model string, numPredict int, logger *zap.Logger) *PurposeInferrer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PurposeInferrer{gen: gen, model: model, numPredict: numPredict, logger: logger}
}

// Infer returns the inferred purpose, or "" when the model fails,
// declines, or gives a degenerate answer.
func (p *PurposeInferrer) Infer(ctx context.Context, image []byte, label string) string {
	prompt := fmt.Sprintf(purposePromptFmt, label)
	response, err := p.gen.GenerateWithImage(ctx, p.model, prompt, image,
		ollama.GenerateOptions{NumPredict: p.numPredict, Temperature: temperature})
	if err != nil {
		p.logger.Warn("purpose inference failed", zap.String("label", label), zap.Error(err))
		return ""
	}

	purpose := strings.Trim(strings.TrimSpace(response), `"`)
	if _, bad := degenerateAnswers[strings.ToLower(purpose)]; bad {
		return ""
	}
	return purpose
}
