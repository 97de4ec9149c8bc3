package utils

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	sanitizer = bluemonday.UGCPolicy()
	stripper  = bluemonday.StrictPolicy()
)

// Sanitize cleans HTML content to prevent XSS attacks.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}

// SanitizePlain removes all markup and surrounding whitespace; used for single-line fields.
func SanitizePlain(input string) string {
	return strings.TrimSpace(stripper.Sanitize(input))
}
