package shared

import (
	"strings"

	"golang.org/x/text/cases"
)

// FoldCase normalizes text for case-insensitive comparison. Unlike
// strings.ToLower it applies Unicode case folding, so names entered with
// locale-specific casing still match.
func FoldCase(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}
