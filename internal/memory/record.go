package memory

import (
	"strings"
	"time"
	"unicode"

	"github.com/dancherbu/physical-visual-tester/internal/extract"
)

// recordSource tags records written by the discovery pipeline, so seeded
// and discovered knowledge stay distinguishable in the store.
const recordSource = "vision_mvp"

// Action is the UI interaction a record describes.
type Action struct {
	Type       string `json:"type"`
	TargetText string `json:"target_text"`
}

// Record is the persisted unit of knowledge. The core constructs and
// submits it; its lifecycle past the upsert belongs to the store.
type Record struct {
	Goal        string  `json:"goal"`
	Action      Action  `json:"action"`
	Fact        string  `json:"fact"`
	Description string  `json:"description"`
	Role        string  `json:"role"`
	Purpose     string  `json:"purpose"`
	Confidence  float64 `json:"confidence"`
	Source      string  `json:"source"`
	Timestamp   string  `json:"timestamp"`
}

// NormalizeGoal derives a record goal from an element's purpose:
// capitalized purpose text, or "Use <label>" when no purpose is known.
func NormalizeGoal(purpose, label string) string {
	p := strings.TrimSpace(purpose)
	if p == "" {
		return "Use " + label
	}
	return upperFirst(p)
}

// NewRecord builds the record for one admitted element.
func NewRecord(el extract.Element, screenSummary string, now time.Time) Record {
	return Record{
		Goal:        NormalizeGoal(el.Purpose, el.Label),
		Action:      Action{Type: "click", TargetText: el.Label},
		Fact:        el.Purpose,
		Description: screenSummary,
		Role:        string(el.Role),
		Purpose:     el.Purpose,
		Confidence:  el.Confidence,
		Source:      recordSource,
		Timestamp:   now.Format("2006-01-02T15:04:05"),
	}
}

func upperFirst(s string) string {
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
