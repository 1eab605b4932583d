package metrics

import (
	"strings"
	"unicode"

	"github.com/torosent/volley/internal/request"
)

var failureLabels = map[request.ErrorKind]string{
	request.ErrorTimeout:           "Timeout",
	request.ErrorConnectionRefused: "Connection refused",
	request.ErrorConnectionReset:   "Connection reset",
	request.ErrorOther:             "Other error",
}

// FailureLabel returns a human-friendly label for an error kind. Unknown
// kinds are humanized from their snake_case form.
func FailureLabel(kind string) string {
	cleaned := strings.TrimSpace(kind)
	if cleaned == "" {
		return "Unknown error"
	}
	if label, ok := failureLabels[request.ErrorKind(cleaned)]; ok {
		return label
	}

	words := strings.FieldsFunc(cleaned, func(r rune) bool {
		return r == '_' || r == '-' || unicode.IsSpace(r)
	})
	if len(words) == 0 {
		return "Unknown error"
	}
	words[0] = capitalize(words[0])
	for i := 1; i < len(words); i++ {
		words[i] = strings.ToLower(words[i])
	}
	return strings.Join(words, " ")
}

func capitalize(s string) string {
	if s == "" {
		return ""
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
