// Package sanitize cleans user-supplied HTML before it reaches storage.
package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var descriptionPolicy = buildDescriptionPolicy()

func buildDescriptionPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "br", "strong", "em", "b", "i", "ul", "ol", "li", "h3", "h4")
	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https")
	p.RequireNoFollowOnLinks(true)
	return p
}

// Description strips unsafe HTML from a job description, keeping basic
// formatting tags.
func Description(s string) string {
	return strings.TrimSpace(descriptionPolicy.Sanitize(s))
}

// Plain strips all HTML, returning text only. Used for applicant-supplied
// fields such as names and messages.
func Plain(s string) string {
	return strings.TrimSpace(bluemonday.StrictPolicy().Sanitize(s))
}
