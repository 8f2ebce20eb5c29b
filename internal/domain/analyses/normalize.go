package analyses

import (
	"encoding/json"
	"errors"
	"strings"
)

const maxDominantColors = 5

// rawAnalysis defers per-field decoding so an ill-typed value degrades to a
// default instead of failing the whole parse.
type rawAnalysis struct {
	Description    json.RawMessage `json:"description"`
	Objects        json.RawMessage `json:"objects"`
	Text           json.RawMessage `json:"text"`
	DominantColors json.RawMessage `json:"dominant_colors"`
	Category       json.RawMessage `json:"category"`
}

// Normalize turns raw model text into Fields. The model is asked for bare
// JSON but not trusted to comply: code fences are stripped and the first
// balanced {...} substring is extracted before parsing. Missing keys and
// wrongly typed containers fall back to defaults rather than erroring, so
// the pipeline stays tolerant of model drift. Only a payload with no
// parseable object fails, with a *MalformedAnalysisError carrying the
// original text.
func Normalize(raw string) (Fields, error) {
	obj := extractObject(stripFences(raw))
	if obj == "" {
		return Fields{}, &MalformedAnalysisError{Raw: raw, Err: errors.New("no JSON object in model response")}
	}

	var ra rawAnalysis
	if err := json.Unmarshal([]byte(obj), &ra); err != nil {
		return Fields{}, &MalformedAnalysisError{Raw: raw, Err: err}
	}

	f := Fields{
		Description:    decodeString(ra.Description),
		Objects:        []DetectedObject{},
		Text:           []string{},
		DominantColors: []string{},
		Category:       decodeString(ra.Category),
	}
	if ra.Objects != nil {
		var objs []DetectedObject
		if json.Unmarshal(ra.Objects, &objs) == nil && objs != nil {
			f.Objects = objs
		}
	}
	if ra.Text != nil {
		var lines []string
		if json.Unmarshal(ra.Text, &lines) == nil && lines != nil {
			f.Text = lines
		}
	}
	if ra.DominantColors != nil {
		var colors []string
		if json.Unmarshal(ra.DominantColors, &colors) == nil && colors != nil {
			if len(colors) > maxDominantColors {
				colors = colors[:maxDominantColors]
			}
			f.DominantColors = colors
		}
	}
	return f, nil
}

// decodeString returns nil for missing, null, or non-string values.
func decodeString(m json.RawMessage) *string {
	if m == nil {
		return nil
	}
	var s string
	if json.Unmarshal(m, &s) != nil {
		return nil
	}
	return &s
}

// stripFences drops Markdown code-fence markers the model sometimes adds
// despite the prompt.
func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// extractObject returns the first balanced {...} substring. Quoted strings
// are tracked so braces inside values do not skew the depth count. Returns
// "" when no balanced object exists.
func extractObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
