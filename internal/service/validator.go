package service

import (
	"strings"

	"github.com/mkravets/slug-registry/internal/models"
)

const (
	// SlugMinLength and SlugMaxLength bound the accepted slug length.
	SlugMinLength = 3
	SlugMaxLength = 30
)

// reservedSlugs can never be claimed: they collide with routes, infra
// hostnames or public category prefixes.
var reservedSlugs = map[string]struct{}{
	"admin":         {},
	"api":           {},
	"www":           {},
	"app":           {},
	"auth":          {},
	"login":         {},
	"signup":        {},
	"settings":      {},
	"dashboard":     {},
	"help":          {},
	"support":       {},
	"about":         {},
	"blog":          {},
	"docs":          {},
	"static":        {},
	"assets":        {},
	"search":        {},
	"providers":     {},
	"vendors":       {},
	"organizations": {},
}

const (
	reasonTooShort          = "must be at least 3 characters long"
	reasonTooLong           = "must be at most 30 characters long"
	reasonInvalidChars      = "may only contain lowercase letters, digits and hyphens"
	reasonEdgeHyphen        = "must not start or end with a hyphen"
	reasonConsecutiveHyphen = "must not contain consecutive hyphens"
	reasonReserved          = "is a reserved word"
)

// ValidateSlug checks a candidate slug against the format rules. It is pure
// and deterministic, and reports every violated rule, not just the first,
// so callers can render all errors at once.
func ValidateSlug(candidate string) models.ValidationResult {
	var reasons []string

	if len(candidate) < SlugMinLength {
		reasons = append(reasons, reasonTooShort)
	}
	if len(candidate) > SlugMaxLength {
		reasons = append(reasons, reasonTooLong)
	}
	if !isSlugCharset(candidate) {
		reasons = append(reasons, reasonInvalidChars)
	}
	if strings.HasPrefix(candidate, "-") || strings.HasSuffix(candidate, "-") {
		reasons = append(reasons, reasonEdgeHyphen)
	}
	if strings.Contains(candidate, "--") {
		reasons = append(reasons, reasonConsecutiveHyphen)
	}
	if _, ok := reservedSlugs[candidate]; ok {
		reasons = append(reasons, reasonReserved)
	}

	return models.ValidationResult{
		Valid:   len(reasons) == 0,
		Reasons: reasons,
	}
}

func isSlugCharset(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' {
			return false
		}
	}
	return true
}
