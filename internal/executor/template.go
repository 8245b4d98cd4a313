package executor

import (
	"errors"
	"fmt"
	"regexp"
)

// placeholderPattern matches {token} placeholders in index name templates.
var placeholderPattern = regexp.MustCompile(`\{(\w+)\}`)

// ErrMissingPlaceholder is returned when a template token has no matching key
// in the value map.
var ErrMissingPlaceholder = errors.New("unresolved index name placeholder")

// ResolveName substitutes every {token} in the template with the matching
// value. Every token must resolve or the whole resolution fails.
func ResolveName(template string, values map[string]any) (string, error) {
	var missing string
	resolved := placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		token := match[1 : len(match)-1]
		v, ok := values[token]
		if !ok {
			if missing == "" {
				missing = token
			}
			return match
		}
		return fmt.Sprintf("%v", v)
	})
	if missing != "" {
		return "", fmt.Errorf("%w: {%s} in %q", ErrMissingPlaceholder, missing, template)
	}
	return resolved, nil
}

// ResolvePattern substitutes every {token} with a wildcard, producing the
// pattern matching all physical indices the template can resolve to.
func ResolvePattern(template string) string {
	return placeholderPattern.ReplaceAllString(template, "*")
}
