package sanitize

import (
	"github.com/microcosm-cc/bluemonday"
)

// StrictPolicy removes all HTML tags and attributes.
// Use for fields that should only contain plain text (names, combinations).
var StrictPolicy = bluemonday.StrictPolicy()

// Text strips all HTML tags and returns plain text.
// Applied to every free-text field before it reaches storage or an email
// template.
func Text(input string) string {
	return StrictPolicy.Sanitize(input)
}
