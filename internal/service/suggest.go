package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// MaxSuggestions is the hard cap on returned suggestions regardless
	// of the caller-requested count.
	MaxSuggestions = 20

	numericVariants = 12
	randomVariants  = 12
	randomSuffixLen = 4

	suggestionAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
)

var suggestionQualifiers = []string{
	"hq", "co", "team", "labs", "studio", "official", "online", "pro",
}

// GenerateSuggestions produces up to n alternative slugs for an unavailable
// base, in deterministic generation order: numeric suffixes first, then
// qualifier words, then random suffixes as a last resort. Each wave is
// availability-filtered against the store in a single batch query. The
// number of generated candidates is fixed, so the call always terminates
// even when every variant is taken.
func (r *Registry) GenerateSuggestions(ctx context.Context, base string, n int) ([]string, error) {
	const op = "service.Registry.GenerateSuggestions"

	if n <= 0 {
		return nil, nil
	}
	if n > MaxSuggestions {
		n = MaxSuggestions
	}

	base = sanitizeBase(base)

	suggestions := make([]string, 0, n)

	for _, wave := range [][]string{
		numericWave(base),
		qualifierWave(base),
		randomWave(base),
	} {
		if len(suggestions) == n {
			break
		}

		taken, err := r.repo.FilterTaken(ctx, wave)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to filter candidates: %w", op, err)
		}

		for _, candidate := range wave {
			if len(suggestions) == n {
				break
			}
			if _, ok := taken[candidate]; ok {
				continue
			}

			suggestions = append(suggestions, candidate)
		}
	}

	return suggestions, nil
}

func numericWave(base string) []string {
	wave := make([]string, 0, numericVariants)
	for i := 1; i <= numericVariants; i++ {
		appendCandidate(&wave, base+"-"+strconv.Itoa(i))
	}
	return wave
}

func qualifierWave(base string) []string {
	wave := make([]string, 0, len(suggestionQualifiers))
	for _, q := range suggestionQualifiers {
		appendCandidate(&wave, base+"-"+q)
	}
	return wave
}

func randomWave(base string) []string {
	wave := make([]string, 0, randomVariants)
	for i := 0; i < randomVariants; i++ {
		suffix, err := gonanoid.Generate(suggestionAlphabet, randomSuffixLen)
		if err != nil {
			continue
		}

		appendCandidate(&wave, base+"-"+suffix)
	}
	return wave
}

// appendCandidate keeps only candidates that pass slug validation, so a
// suggestion is never unclaimable.
func appendCandidate(wave *[]string, candidate string) {
	if ValidateSlug(candidate).Valid {
		*wave = append(*wave, candidate)
	}
}

// sanitizeBase normalizes an arbitrary base string into slug form:
// lowercase, allowed charset, single hyphens, trimmed, and short enough to
// leave room for a suffix.
func sanitizeBase(base string) string {
	base = strings.ToLower(base)

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == ' ':
			b.WriteByte('-')
		}
	}

	s := b.String()
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	s = strings.Trim(s, "-")

	maxBaseLen := SlugMaxLength - randomSuffixLen - 1
	if len(s) > maxBaseLen {
		s = strings.Trim(s[:maxBaseLen], "-")
	}

	if len(s) < SlugMinLength {
		s = "profile"
	}

	return s
}
