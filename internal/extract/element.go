// Package extract turns vision-model output into candidate UI elements.
// Model output is rarely clean JSON, so every entry point here is an
// ordered chain of parsing strategies tried until one yields elements.
package extract

import (
	"strconv"
	"strings"
)

// Role classifies what kind of UI element a label belongs to.
type Role string

const (
	RoleButton Role = "button"
	RoleTab    Role = "tab"
	RoleMenu   Role = "menu"
	RoleLink   Role = "link"
	RoleInput  Role = "input"
	RoleFolder Role = "folder"
	RoleWindow Role = "window"
	RoleOther  Role = "other"
)

var validRoles = map[Role]struct{}{
	RoleButton: {}, RoleTab: {}, RoleMenu: {}, RoleLink: {},
	RoleInput: {}, RoleFolder: {}, RoleWindow: {}, RoleOther: {},
}

// NormalizeRole coerces arbitrary model output into the enumerated role
// set. Anything unrecognized (including pipe-mangled parses) is "other".
func NormalizeRole(s string) Role {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if strings.Contains(string(r), "|") {
		return RoleOther
	}
	if _, ok := validRoles[r]; ok {
		return r
	}
	return RoleOther
}

// Source tags which extraction path produced an element.
type Source string

const (
	SourceVision       Source = "vision"
	SourceOCR          Source = "ocr"
	SourceFallbackText Source = "fallback-text"
)

// Element is one candidate UI element. Label is always non-empty;
// Purpose may be empty until the purpose resolver or the novelty gate
// fills it in.
type Element struct {
	Label      string
	Role       Role
	Purpose    string
	Confidence float64
	Source     Source
}

// normalizeElement maps one loosely-typed decoded object onto an
// Element, folding the legacy synonym keys (label/text/name, role/type,
// purpose/description) onto the canonical fields. Returns false when no
// usable label is present.
func normalizeElement(raw any) (Element, bool) {
	switch v := raw.(type) {
	case string:
		label := strings.TrimSpace(v)
		if label == "" {
			return Element{}, false
		}
		return Element{Label: label, Role: RoleOther, Source: SourceVision}, true
	case map[string]any:
		label := firstString(v, "label", "text", "name")
		if label == "" {
			return Element{}, false
		}
		return Element{
			Label:      label,
			Role:       NormalizeRole(firstString(v, "role", "type")),
			Purpose:    firstString(v, "purpose", "description"),
			Confidence: asFloat(v["confidence"]),
			Source:     SourceVision,
		}, true
	default:
		return Element{}, false
	}
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok {
			if t := strings.TrimSpace(s); t != "" {
				return t
			}
		}
	}
	return ""
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f
		}
	}
	return 0
}
