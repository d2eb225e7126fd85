// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package jsonrepair recovers JSON from model output. Each recovery strategy
// is a separate function so it can be tested on its own; Parse applies them
// in order: as-is, code fences stripped, largest balanced span, and
// bracket-balance repair of truncated input.
package jsonrepair

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoJSON is returned when no strategy yields decodable JSON.
var ErrNoJSON = errors.New("no decodable JSON in model output")

var fencePattern = regexp.MustCompile("(?s)```[a-zA-Z0-9_-]*\\s*\\n?(.*?)```")

// StripCodeFences returns the body of the first fenced code block, or the
// trimmed input when there is none. An unterminated opening fence is dropped.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if m := fencePattern.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			return strings.TrimSpace(s[nl+1:])
		}
	}
	return s
}

// ExtractBalanced returns the longest balanced {...} or [...] span in s.
// Brackets inside JSON strings are ignored.
func ExtractBalanced(s string) (string, bool) {
	best := ""
	for i := 0; i < len(s); i++ {
		if s[i] != '{' && s[i] != '[' {
			continue
		}
		end, ok := matchSpan(s, i)
		if !ok {
			continue
		}
		if end-i+1 > len(best) {
			best = s[i : end+1]
		}
		i = end
	}
	return best, best != ""
}

// matchSpan returns the index of the bracket closing the one at start.
func matchSpan(s string, start int) (int, bool) {
	var stack []byte
	inString, escaped := false, false
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
		case '{', '[':
			stack = append(stack, c)
		case '}', ']':
			if len(stack) == 0 || !pairs(stack[len(stack)-1], c) {
				return 0, false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func pairs(open, close byte) bool {
	return (open == '{' && close == '}') || (open == '[' && close == ']')
}

// RepairTruncated closes JSON that was cut off mid-stream. It truncates to
// the last point where a nested value was complete and appends the missing
// closing brackets. Returns false when s holds no opening bracket.
func RepairTruncated(s string) (string, bool) {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return "", false
	}

	var stack []byte
	inString, escaped := false, false
	cut := -1
	var cutStack []byte

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
		case '{', '[':
			stack = append(stack, c)
		case '}', ']':
			if len(stack) == 0 || !pairs(stack[len(stack)-1], c) {
				return "", false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return s[start : i+1], true
			}
			cut = i + 1
			cutStack = append(cutStack[:0], stack...)
		}
	}

	if cut < 0 {
		return "", false
	}

	var b strings.Builder
	b.WriteString(strings.TrimRight(s[start:cut], ", \n\t"))
	for i := len(cutStack) - 1; i >= 0; i-- {
		if cutStack[i] == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
	return b.String(), true
}

// Candidates returns the texts Parse tries, in order, without duplicates.
func Candidates(raw string) []string {
	var out []string
	seen := map[string]bool{}
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}

	add(raw)
	stripped := StripCodeFences(raw)
	add(stripped)

	span, spanOK := ExtractBalanced(stripped)
	repaired, repairedOK := RepairTruncated(stripped)

	// When the outermost value is itself truncated, the longest balanced span
	// is only a fragment of it; prefer the repaired whole.
	outerComplete := spanOK && strings.Index(stripped, span) == strings.IndexAny(stripped, "{[")
	if outerComplete {
		add(span)
	}
	if repairedOK {
		add(repaired)
	}
	if spanOK && !outerComplete {
		add(span)
	}
	return out
}

// Parse decodes the first candidate that unmarshals into v.
func Parse(raw string, v any) error {
	var lastErr error
	for _, c := range Candidates(raw) {
		if err := json.Unmarshal([]byte(c), v); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	if lastErr == nil {
		return ErrNoJSON
	}
	return fmt.Errorf("%w: %v", ErrNoJSON, lastErr)
}
