// Package extractor derives the short body snippet shown on progress lines,
// either from a JSON path, a regex, or the first line of the body.
package extractor

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultMaxRunes caps the length of a snippet.
const DefaultMaxRunes = 120

// Logger receives extraction warnings. *zap.SugaredLogger satisfies it.
type Logger interface {
	Warnf(template string, args ...interface{})
}

// Extractor defines how a snippet is pulled from a response body.
type Extractor struct {
	// JSONPath is a gjson path expression (e.g., "$.user.id", "user.id").
	JSONPath string

	// Regex is a pattern with an optional capture group.
	Regex string

	// MaxRunes caps the snippet; zero means DefaultMaxRunes.
	MaxRunes int

	re     *regexp.Regexp
	logger Logger
}

// New validates the rules and compiles the regex once. JSONPath wins when
// both are set.
func New(jsonPath, pattern string, logger Logger) (*Extractor, error) {
	e := &Extractor{
		JSONPath: strings.TrimSpace(jsonPath),
		Regex:    pattern,
		logger:   logger,
	}
	if e.JSONPath == "" && pattern != "" {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("snippet regex: %w", err)
		}
		e.re = re
	}
	return e, nil
}

// Snippet returns the display snippet for body. A nil extractor falls back
// to the first line.
func (e *Extractor) Snippet(body []byte) string {
	limit := DefaultMaxRunes
	var logger Logger
	var value string

	switch {
	case e == nil:
		value = firstLine(body)
	case e.JSONPath != "":
		logger = e.logger
		value = findJSONPath(body, e.JSONPath, logger)
	case e.re != nil:
		logger = e.logger
		value = findRegex(body, e.re, logger)
	default:
		value = firstLine(body)
	}
	if e != nil && e.MaxRunes > 0 {
		limit = e.MaxRunes
	}
	return truncate(value, limit)
}

func firstLine(body []byte) string {
	text := strings.TrimSpace(string(body))
	if idx := strings.IndexAny(text, "\r\n"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
