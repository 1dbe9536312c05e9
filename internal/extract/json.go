package extract

import "strings"

// JSONSpan locates the JSON object or array embedded in a model
// response, tolerating markdown code fences and surrounding prose. It
// takes the first `{` or `[` (whichever comes first) and cuts at the
// last matching `}` or `]`; everything outside that span is noise.
// Returns "{}" when no JSON-looking content exists at all.
func JSONSpan(text string) string {
	if strings.Contains(text, "```") {
		for _, part := range strings.Split(text, "```") {
			if strings.ContainsAny(part, "{[") {
				text = part
				break
			}
		}
	}

	objStart := strings.Index(text, "{")
	arrStart := strings.Index(text, "[")
	if objStart == -1 && arrStart == -1 {
		return "{}"
	}

	start := objStart
	if objStart == -1 || (arrStart != -1 && arrStart < objStart) {
		start = arrStart
	}
	sliced := text[start:]

	closer := "}"
	if strings.HasPrefix(sliced, "[") {
		closer = "]"
	}
	end := strings.LastIndex(sliced, closer)
	if end == -1 {
		return sliced
	}
	return sliced[:end+1]
}
