// Package richtext cleans editor-produced HTML before it is stored.
package richtext

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer strips markup that is unsafe to render back to other users.
type Sanitizer struct {
	policy *bluemonday.Policy
	text   *bluemonday.Policy
}

// NewSanitizer builds a sanitizer on the UGC policy.
func NewSanitizer() *Sanitizer {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("code", "span", "pre", "p")
	policy.RequireNoFollowOnLinks(true)
	policy.AddTargetBlankToFullyQualifiedLinks(true)

	return &Sanitizer{policy: policy, text: bluemonday.StrictPolicy()}
}

// HTML returns the sanitized rich text, trimmed.
func (s *Sanitizer) HTML(input string) string {
	return strings.TrimSpace(s.policy.Sanitize(input))
}

// IsBlank reports whether the input has no visible text once tags are removed.
// Editors emit "<p></p>" for an empty field.
func (s *Sanitizer) IsBlank(input string) bool {
	return strings.TrimSpace(s.text.Sanitize(input)) == ""
}

// Plain strips every tag; used for subjects and previews.
func (s *Sanitizer) Plain(input string) string {
	return strings.TrimSpace(s.text.Sanitize(input))
}
