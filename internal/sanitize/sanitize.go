// Package sanitize filters raw text fragments (OCR output, model label
// lists) down to usable UI labels. Cleaning is idempotent and
// order-preserving except for case-insensitive deduplication.
package sanitize

import (
	"regexp"
	"strings"
)

const (
	minLabelLen      = 4
	maxDigitRatio    = 0.4
	maxNonAlnumRatio = 0.4
)

var (
	alphaRe    = regexp.MustCompile(`[A-Za-z]`)
	numericRe  = regexp.MustCompile(`^[0-9.]+$`)
	digitRe    = regexp.MustCompile(`\d`)
	nonAlnumRe = regexp.MustCompile(`[^A-Za-z0-9\s]`)
	straySymRe = regexp.MustCompile("[~`^]")
	spaceRe    = regexp.MustCompile(`\s+`)
)

// bracketCutset holds leading/trailing characters stripped before the
// reject tests: pipes, brackets and common list bullets.
const bracketCutset = "|[]{}()<>·•"

// curly-quote to straight-quote normalization
var quoteReplacer = strings.NewReplacer(
	"‘", "'",
	"’", "'",
	"“", `"`,
	"”", `"`,
)

// Normalize rewrites a single raw fragment into canonical form: curly
// quotes straightened, internal whitespace collapsed, leading/trailing
// bracket and pipe characters stripped. It does not reject anything.
func Normalize(s string) string {
	s = quoteReplacer.Replace(s)
	s = spaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	return strings.Trim(s, bracketCutset)
}

// trimWrapping strips layered quote, bracket and whitespace wrapping
// until the label stops changing, so inputs like `"[Open]"` reach their
// fully unwrapped form in one pass.
func trimWrapping(s string) string {
	for {
		t := strings.Trim(s, bracketCutset)
		t = strings.Trim(t, `"'`)
		t = strings.TrimSpace(t)
		if t == s {
			return t
		}
		s = t
	}
}

// Keep reports whether a normalized fragment survives the reject tests.
func Keep(label string) bool {
	l := strings.TrimSpace(label)
	l = strings.Trim(l, `"'`)
	if l == "" {
		return false
	}
	if len(l) < minLabelLen {
		return false
	}
	if !alphaRe.MatchString(l) {
		return false
	}
	if numericRe.MatchString(l) {
		return false
	}
	// mojibake markers from mis-decoded UTF-8
	if strings.Contains(l, "â") || strings.Contains(l, "�") {
		return false
	}
	n := float64(len(l))
	if float64(len(digitRe.FindAllString(l, -1)))/n > maxDigitRatio {
		return false
	}
	if float64(len(nonAlnumRe.FindAllString(l, -1)))/n > maxNonAlnumRatio {
		return false
	}
	return !straySymRe.MatchString(l)
}

// Clean normalizes, filters and deduplicates raw label candidates.
// Deduplication is case-insensitive and keeps the first occurrence, so
// callers that merge multiple sources must fix their merge order before
// calling Clean. Clean(Clean(x)) == Clean(x).
func Clean(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		l := trimWrapping(Normalize(r))
		if !Keep(l) {
			continue
		}
		key := strings.ToLower(l)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, l)
	}
	return out
}
