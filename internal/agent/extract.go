package agent

import (
	"bytes"
	"encoding/json"
	"errors"
	"regexp"
)

var errNoJSONObject = errors.New("no JSON object in model output")

var trailingComma = regexp.MustCompile(`,(\s*[}\]])`)

// findJSONCandidates returns the balanced top-level {...} spans of s in
// order. Braces inside string literals are ignored.
func findJSONCandidates(s string) []string {
	var candidates []string
	var depth int
	start := -1
	var inString, escape bool

	for i := 0; i < len(s); i++ {
		b := s[i]

		if depth > 0 {
			if escape {
				escape = false
				continue
			}
			if inString {
				if b == '\\' {
					escape = true
				} else if b == '"' {
					inString = false
				}
				continue
			}
			if b == '"' {
				inString = true
				continue
			}
		}

		switch b {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start != -1 {
					candidates = append(candidates, s[start:i+1])
					start = -1
				}
			}
		}
	}
	return candidates
}

// extractObject is the best-effort structured extraction stage: take the
// first balanced object, strip trailing commas, decode with numbers kept
// as json.Number.
func extractObject(text string) (map[string]any, error) {
	candidates := findJSONCandidates(text)
	if len(candidates) == 0 {
		return nil, errNoJSONObject
	}
	cleaned := trailingComma.ReplaceAllString(candidates[0], "$1")

	dec := json.NewDecoder(bytes.NewReader([]byte(cleaned)))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	return obj, nil
}
