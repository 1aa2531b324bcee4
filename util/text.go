package util

import (
	"strings"

	"github.com/acarl005/stripansi"
)

// SanitizeMessage strips terminal escape sequences from remote supplied text.
func SanitizeMessage(msg string) string {
	return strings.TrimSpace(stripansi.Strip(msg))
}
