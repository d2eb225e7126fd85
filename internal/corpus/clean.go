// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package corpus

import (
	"html"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	hiddenBlocks = regexp.MustCompile(`(?is)<(script|style|noscript|template|svg)\b[^>]*>.*?</(script|style|noscript|template|svg)\s*>`)
	comments     = regexp.MustCompile(`(?s)<!--.*?-->`)
	lineBreaks   = regexp.MustCompile(`(?i)<br\s*/?>|</(p|div|li|tr|h[1-6]|table|section|article|header|footer|ul|ol|dd|dt|blockquote|pre)\s*>`)
	cellBreaks   = regexp.MustCompile(`(?i)</(td|th)\s*>`)
	tags         = regexp.MustCompile(`<[^>]*>`)
	markupHint   = regexp.MustCompile(`(?i)<(html|body|div|p|span|table|a|br|li|script|style)\b`)
)

const (
	minLineRunes = 3

	// A short line has at most this many words.
	shortLineWords = 4

	// A word is over-frequent when it appears in at least this share of
	// lines, and in at least minFrequentLines lines.
	frequentShare    = 0.3
	minFrequentLines = 3
)

// boilerplate words mark navigation and chrome when they make up a whole short line.
var boilerplate = map[string]bool{
	"home": true, "menu": true, "login": true, "log": true, "in": true, "out": true,
	"sign": true, "up": true, "register": true, "subscribe": true, "share": true,
	"tweet": true, "follow": true, "us": true, "contact": true, "about": true,
	"privacy": true, "policy": true, "terms": true, "cookie": true, "cookies": true,
	"accept": true, "search": true, "next": true, "previous": true, "prev": true,
	"back": true, "to": true, "top": true, "skip": true, "content": true, "more": true,
	"read": true, "advertisement": true, "ad": true, "close": true, "newsletter": true,
	"careers": true, "help": true, "faq": true, "sitemap": true, "copyright": true,
	"all": true, "rights": true, "reserved": true, "the": true, "and": true, "of": true,
}

// Clean turns fetched content into extraction-ready text: markup is
// stripped, entities decoded, whitespace collapsed, near-empty and
// duplicate lines dropped, and short lines made only of boilerplate or
// over-frequent words suppressed. Markdown table lines (starting with "|")
// are kept verbatim apart from whitespace collapsing.
func Clean(raw string) string {
	text := raw
	if markupHint.MatchString(text) {
		text = stripMarkup(text)
	}
	text = html.UnescapeString(text)

	var lines []string
	for _, l := range strings.Split(text, "\n") {
		l = strings.Join(strings.Fields(l), " ")
		if isTableLine(l) {
			lines = append(lines, l)
			continue
		}
		if nearEmpty(l) {
			continue
		}
		lines = append(lines, l)
	}

	lines = dropDuplicates(lines)
	lines = dropNoise(lines)
	return strings.Join(lines, "\n")
}

func stripMarkup(s string) string {
	s = hiddenBlocks.ReplaceAllString(s, "\n")
	s = comments.ReplaceAllString(s, "")
	s = cellBreaks.ReplaceAllString(s, " ")
	s = lineBreaks.ReplaceAllString(s, "\n")
	return tags.ReplaceAllString(s, " ")
}

func isTableLine(l string) bool {
	return strings.HasPrefix(l, "|")
}

// nearEmpty reports lines too short or lacking any letter or digit.
func nearEmpty(l string) bool {
	if utf8.RuneCountInString(l) < minLineRunes {
		return true
	}
	for _, r := range l {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func dropDuplicates(lines []string) []string {
	seen := make(map[string]bool, len(lines))
	out := lines[:0:0]
	for _, l := range lines {
		if isTableLine(l) {
			out = append(out, l)
			continue
		}
		if seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}

func dropNoise(lines []string) []string {
	freq := make(map[string]int)
	for _, l := range lines {
		seen := make(map[string]bool)
		for _, w := range words(l) {
			if !seen[w] {
				seen[w] = true
				freq[w]++
			}
		}
	}
	threshold := int(frequentShare * float64(len(lines)))
	if threshold < minFrequentLines {
		threshold = minFrequentLines
	}

	out := lines[:0:0]
	for _, l := range lines {
		if !isTableLine(l) && isNoise(words(l), freq, threshold) {
			continue
		}
		out = append(out, l)
	}
	return out
}

func isNoise(ws []string, freq map[string]int, threshold int) bool {
	if len(ws) == 0 || len(ws) > shortLineWords {
		return false
	}
	for _, w := range ws {
		if !boilerplate[w] && freq[w] < threshold {
			return false
		}
	}
	return true
}

func words(l string) []string {
	return strings.FieldsFunc(strings.ToLower(l), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
