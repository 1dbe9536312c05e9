package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/dancherbu/physical-visual-tester/internal/ollama"
	"github.com/dancherbu/physical-visual-tester/internal/sanitize"
)

// Generator is the inference capability the extractor needs. It is
// satisfied by *ollama.Client.
type Generator interface {
	Generate(ctx context.Context, model, prompt string, opts ollama.GenerateOptions) (string, error)
	GenerateWithImage(ctx context.Context, model, prompt string, image []byte, opts ollama.GenerateOptions) (string, error)
}

// salvageConfidence is assigned to elements recovered by the regex and
// label-list fallbacks, which carry no model-reported confidence.
const salvageConfidence = 0.4

var (
	labelKeyRe  = regexp.MustCompile(`"label"\s*:\s*"([^"]+)"`)
	numberedRe  = regexp.MustCompile(`\d+\.\s*`)
	quotedRe    = regexp.MustCompile(`"([^"]+)"`)
	listSplitRe = regexp.MustCompile(`[\n,]+`)
	temperature = 0.1
)

// Extractor obtains a structured element list from a vision model.
type Extractor struct {
	gen         Generator
	visionModel string
	numPredict  int
	minElements int
	logger      *zap.Logger
}

// NewExtractor creates a structured extractor bound to a vision model.
func NewExtractor(gen Generator, visionModel string, numPredict, minElements int, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		gen:         gen,
		visionModel: visionModel,
		numPredict:  numPredict,
		minElements: minElements,
		logger:      logger,
	}
}

// Result is the outcome of an extraction run.
type Result struct {
	ScreenSummary string
	Elements      []Element
}

const schemaPromptFmt = `You are analyzing a CURRENT software UI screenshot.
Return ONLY valid JSON. No markdown, no prose.

Schema:
{
  "screen_summary": "short summary",
  "elements": [
    {
      "label": "exact visible text",
      "role": "button|tab|menu|link|input|icon|other",
      "purpose": "what it likely does (leave empty if unsure)",
      "confidence": 0.0-1.0
    }
  ]
}

Rules:
- Only include elements with visible text labels.
- Use the exact visible text for each label.
- If you are unsure about an element's purpose, set purpose to "" and confidence < 0.5.
- Try to list at least %d elements if visible.`

const labelListPrompt = "List all visible text labels (buttons, tabs, menus, folders) in this UI screenshot. " +
	"Output ONLY the labels as comma-separated words/phrases. No numbers, no JSON."

// Extract requests the element schema from the vision model and runs the
// ordered fallback chain over the response, stopping at the first
// strategy that yields elements. A transport error on the primary call
// degrades to an empty response and the chain continues.
func (e *Extractor) Extract(ctx context.Context, image []byte) Result {
	prompt := fmt.Sprintf(schemaPromptFmt, e.minElements)
	response, err := e.gen.GenerateWithImage(ctx, e.visionModel, prompt, image, e.opts())
	if err != nil {
		e.logger.Warn("vision extraction call failed", zap.Error(err))
		response = ""
	}
	e.logger.Debug("raw vision response", zap.String("response", response))

	summary, elements := parseStructured(response)
	if len(elements) == 0 {
		elements = salvageLabelKeys(response)
		if len(elements) > 0 {
			e.logger.Debug("recovered elements via label-key salvage", zap.Int("count", len(elements)))
		}
	}
	if len(elements) == 0 {
		elements = e.fallbackLabelList(ctx, image)
	}
	return Result{ScreenSummary: summary, Elements: elements}
}

func (e *Extractor) opts() ollama.GenerateOptions {
	return ollama.GenerateOptions{NumPredict: e.numPredict, Temperature: temperature}
}

// parseStructured is strategy 1: decode the response as the expected
// schema. Accepts a top-level object (elements or legacy items key) or a
// bare array.
func parseStructured(response string) (string, []Element) {
	if response == "" {
		return "", nil
	}

	var decoded any
	if err := json.Unmarshal([]byte(JSONSpan(response)), &decoded); err != nil {
		return "", nil
	}

	var summary string
	var rawElements []any
	switch v := decoded.(type) {
	case map[string]any:
		summary, _ = v["screen_summary"].(string)
		if list, ok := v["elements"].([]any); ok {
			rawElements = list
		} else if list, ok := v["items"].([]any); ok {
			rawElements = list
		}
	case []any:
		rawElements = v
	}

	var elements []Element
	for _, raw := range rawElements {
		if el, ok := normalizeElement(raw); ok {
			elements = append(elements, el)
		}
	}
	return summary, elements
}

// salvageLabelKeys is strategy 2: scan the raw response for
// `"label": "..."` occurrences when the JSON as a whole would not parse.
func salvageLabelKeys(response string) []Element {
	var elements []Element
	for _, m := range labelKeyRe.FindAllStringSubmatch(response, -1) {
		label := strings.TrimSpace(m[1])
		if label == "" {
			continue
		}
		elements = append(elements, Element{
			Label:      label,
			Role:       RoleOther,
			Confidence: salvageConfidence,
			Source:     SourceVision,
		})
	}
	return elements
}

// fallbackLabelList is strategy 3: ask a much simpler question (just the
// visible labels) and sanitize whatever comes back.
func (e *Extractor) fallbackLabelList(ctx context.Context, image []byte) []Element {
	response, err := e.gen.GenerateWithImage(ctx, e.visionModel, labelListPrompt, image, e.opts())
	if err != nil {
		e.logger.Warn("fallback label-list call failed", zap.Error(err))
		return nil
	}
	e.logger.Debug("raw fallback response", zap.String("response", response))

	labels := ParseLabelList(response)
	elements := make([]Element, 0, len(labels))
	for _, label := range labels {
		elements = append(elements, Element{
			Label:      label,
			Role:       RoleOther,
			Confidence: salvageConfidence,
			Source:     SourceFallbackText,
		})
	}
	return elements
}

// LabelList runs only the simple label-list prompt, for timing the cheap
// extraction path in isolation.
func (e *Extractor) LabelList(ctx context.Context, image []byte) []Element {
	return e.fallbackLabelList(ctx, image)
}

// ParseLabelList pulls a plain label list out of free-form model output.
// Tried in order: comma/newline splitting, numbered-list resplit, JSON
// keys or array entries, then bare quoted strings.
func ParseLabelList(response string) []string {
	var labels []string
	for _, part := range listSplitRe.Split(response, -1) {
		if t := strings.TrimSpace(part); t != "" {
			labels = append(labels, t)
		}
	}
	labels = sanitize.Clean(labels)

	// A single surviving entry that still contains "1. foo 2. bar" means
	// the model numbered its list instead of separating it.
	if len(labels) == 1 && numberedRe.MatchString(labels[0]) {
		parts := numberedRe.Split(labels[0], -1)
		labels = sanitize.Clean(parts)
	}

	if len(labels) == 0 {
		var decoded any
		if err := json.Unmarshal([]byte(JSONSpan(response)), &decoded); err == nil {
			switch v := decoded.(type) {
			case map[string]any:
				for k := range v {
					labels = append(labels, k)
				}
				sort.Strings(labels) // map order is random; keep runs reproducible
			case []any:
				for _, item := range v {
					if s, ok := item.(string); ok {
						labels = append(labels, s)
					}
				}
			}
			labels = sanitize.Clean(labels)
		}
	}

	if len(labels) == 0 {
		for _, m := range quotedRe.FindAllStringSubmatch(response, -1) {
			labels = append(labels, m[1])
		}
		labels = sanitize.Clean(labels)
	}
	return labels
}
