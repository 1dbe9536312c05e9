package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/dancherbu/physical-visual-tester/internal/ollama"
)

// Confidence per fallback tier: triplets parsed straight off the vision
// model score higher than anything recovered from the text-only model or
// by regex salvage.
const (
	visionTripletConfidence = 0.8
	textTripletConfidence   = 0.7
)

var tripleArrayRe = regexp.MustCompile(`\["([^"]+)"\s*,\s*"([^"]+)"\s*,\s*"([^"]+)"\]`)

// Resolver assigns role and purpose to OCR-derived labels in hybrid
// mode. Primary path is the vision model; if that yields nothing
// parseable, a text-only model infers roles from the label text alone.
type Resolver struct {
	gen         Generator
	visionModel string
	textModel   string
	numPredict  int
	logger      *zap.Logger
}

// NewResolver creates a purpose resolver. textModel may be empty to
// disable the vision-independent fallback tier.
func NewResolver(gen Generator, visionModel, textModel string, numPredict int, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		gen:         gen,
		visionModel: visionModel,
		textModel:   textModel,
		numPredict:  numPredict,
		logger:      logger,
	}
}

const tripletPromptFmt = `You are analyzing a UI screenshot. For each label, assign role and purpose.
Return ONLY lines in this exact format:
Label | role | purpose

Allowed roles: button, tab, menu, link, input, folder, window, other

Labels:
[%s]`

const textTripletPromptFmt = `You are given UI labels from a screenshot. For each label, infer a role and purpose based on common UI patterns.
Return ONLY lines in this exact format:
Label | role | purpose

Allowed roles: button, tab, menu, link, input, folder, window, other

Labels:
[%s]`

// Resolve runs the triplet fallback chain for one deduplicated label
// set. Returned elements are validated: non-empty label, role coerced
// into the enumerated set, tier-appropriate confidence.
func (r *Resolver) Resolve(ctx context.Context, image []byte, labels []string) []Element {
	if len(labels) == 0 {
		return nil
	}
	quoted := make([]string, len(labels))
	for i, l := range labels {
		quoted[i] = fmt.Sprintf("%q", l)
	}
	labelList := strings.Join(quoted, ", ")

	response, err := r.gen.GenerateWithImage(ctx, r.visionModel,
		fmt.Sprintf(tripletPromptFmt, labelList), image, r.opts())
	if err != nil {
		r.logger.Warn("hybrid vision call failed", zap.Error(err))
		response = ""
	}
	r.logger.Debug("hybrid vision response", zap.String("response", response))

	items := parseStructuredItems(response)
	if len(items) == 0 {
		items = parsePipeTriplets(response, visionTripletConfidence)
	}
	items = validate(items)
	if len(items) > 0 || r.textModel == "" {
		return items
	}

	// Vision produced nothing usable; same labels, no image, text model.
	textResponse, err := r.gen.Generate(ctx, r.textModel,
		fmt.Sprintf(textTripletPromptFmt, labelList), r.opts())
	if err != nil {
		r.logger.Warn("hybrid text fallback failed", zap.Error(err))
		return nil
	}
	r.logger.Debug("hybrid text response", zap.String("response", textResponse))

	items = parsePipeTriplets(textResponse, textTripletConfidence)
	if v := validate(items); len(v) > 0 {
		return v
	}
	items = parseTripleArrays(textResponse)
	if len(items) == 0 {
		items = parseQuotedTriplets(textResponse)
	}
	return validate(items)
}

func (r *Resolver) opts() ollama.GenerateOptions {
	return ollama.GenerateOptions{NumPredict: r.numPredict, Temperature: temperature}
}

// parseStructuredItems handles the occasional model that answers the
// triplet prompt with JSON anyway: {"items": [...]} or a bare array.
func parseStructuredItems(response string) []Element {
	if response == "" {
		return nil
	}
	var decoded any
	if err := json.Unmarshal([]byte(JSONSpan(response)), &decoded); err != nil {
		return nil
	}

	var raw []any
	switch v := decoded.(type) {
	case map[string]any:
		raw, _ = v["items"].([]any)
	case []any:
		raw = v
	}

	var items []Element
	for _, entry := range raw {
		if el, ok := normalizeElement(entry); ok {
			items = append(items, el)
		}
	}
	return items
}

// parsePipeTriplets scans response lines for "Label | role | purpose".
// Extra pipes are folded back into the purpose text.
func parsePipeTriplets(response string, confidence float64) []Element {
	var items []Element
	for _, line := range strings.Split(response, "\n") {
		if !strings.Contains(line, "|") {
			continue
		}
		parts := strings.Split(line, "|")
		if len(parts) < 3 {
			continue
		}
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		items = append(items, Element{
			Label:      strings.Trim(parts[0], `"'`),
			Role:       Role(strings.ToLower(parts[1])),
			Purpose:    strings.Trim(strings.Join(parts[2:], " | "), `"'`),
			Confidence: confidence,
			Source:     SourceOCR,
		})
	}
	return items
}

// parseTripleArrays matches the structured array-of-triples pattern
// ["label", "role", "purpose"] some text models emit.
func parseTripleArrays(response string) []Element {
	var items []Element
	for _, m := range tripleArrayRe.FindAllStringSubmatch(response, -1) {
		items = append(items, Element{
			Label:      strings.TrimSpace(m[1]),
			Role:       Role(strings.ToLower(strings.TrimSpace(m[2]))),
			Purpose:    strings.TrimSpace(m[3]),
			Confidence: textTripletConfidence,
			Source:     SourceOCR,
		})
	}
	return items
}

// parseQuotedTriplets is the last-resort salvage: any line carrying at
// least three quoted strings is read as label, role, purpose.
func parseQuotedTriplets(response string) []Element {
	var items []Element
	for _, line := range strings.Split(response, "\n") {
		quoted := quotedRe.FindAllStringSubmatch(line, -1)
		if len(quoted) < 3 {
			continue
		}
		items = append(items, Element{
			Label:      strings.TrimSpace(quoted[0][1]),
			Role:       Role(strings.ToLower(strings.TrimSpace(quoted[1][1]))),
			Purpose:    strings.TrimSpace(quoted[2][1]),
			Confidence: textTripletConfidence,
			Source:     SourceOCR,
		})
	}
	return items
}

// validate drops items without a label and coerces roles into the
// enumerated set.
func validate(items []Element) []Element {
	var out []Element
	for _, item := range items {
		item.Label = strings.TrimSpace(item.Label)
		if item.Label == "" {
			continue
		}
		item.Role = NormalizeRole(string(item.Role))
		item.Purpose = strings.TrimSpace(item.Purpose)
		out = append(out, item)
	}
	return out
}
