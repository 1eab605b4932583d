package feeder

import (
	"regexp"
)

var placeholderPattern = regexp.MustCompile(`\{\{([^}|]+)(?:\|([^}]*))?\}\}`)

// SubstitutePlaceholders replaces {{field}} and {{field|default}} occurrences in
// template with values from the given records, earlier records taking priority.
// A placeholder with no value and no default is left unchanged.
func SubstitutePlaceholders(template string, sources ...Record) string {
	if template == "" {
		return template
	}
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		parts := placeholderPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		key := parts[1]
		for _, src := range sources {
			if val, ok := src[key]; ok {
				return val
			}
		}
		if len(parts) > 2 && len(match) > len(key)+4 {
			// {{key|...}} form carries an explicit (possibly empty) default.
			return parts[2]
		}
		return match
	})
}
