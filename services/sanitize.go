package services

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer cleans user-supplied rich text before it is stored
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer uses the UGC policy: basic formatting is kept, scripts and handlers are stripped
func NewSanitizer() *Sanitizer {
	return &Sanitizer{policy: bluemonday.UGCPolicy()}
}

// Clean sanitizes s. A nil Sanitizer only trims whitespace.
func (z *Sanitizer) Clean(s string) string {
	s = strings.TrimSpace(s)
	if z == nil || s == "" {
		return s
	}
	return z.policy.Sanitize(s)
}
