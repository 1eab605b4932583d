package extractor

import (
	"regexp"
)

// findRegex returns the first capture group when the pattern has one, the
// full match otherwise, and "" when nothing matches.
func findRegex(body []byte, re *regexp.Regexp, logger Logger) string {
	match := re.FindSubmatch(body)
	if match == nil {
		if logger != nil {
			logger.Warnf("snippet pattern not found: %s", re.String())
		}
		return ""
	}

	if len(match) > 1 {
		return string(match[1])
	}
	return string(match[0])
}
