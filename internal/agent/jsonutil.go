package agent

import (
	"regexp"
	"strings"
)

var codeFenceRe = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")

// cleanLLMJSON strips Markdown code fences and any prose around the
// outermost JSON array or object.
func cleanLLMJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if m := codeFenceRe.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}
	if s == "" || s[0] == '[' || s[0] == '{' {
		return s
	}

	start := strings.IndexAny(s, "[{")
	if start < 0 {
		return s
	}
	closer := byte(']')
	if s[start] == '{' {
		closer = '}'
	}
	end := strings.LastIndexByte(s, closer)
	if end <= start {
		return s
	}
	return s[start : end+1]
}
