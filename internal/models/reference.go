package models

import (
	"strings"
)

// Manual enumerates the reference-document families cited in rectification text.
type Manual string

const (
	ManualTSM Manual = "TSM"
	ManualFIM Manual = "FIM"
	ManualAMM Manual = "AMM"
)

// ReferenceKey is the canonical identity of a cited manual location.
// Equality is defined on the normalised numeric path, independent of how the
// source text punctuated or spaced the digits.
type ReferenceKey struct {
	Manual  Manual
	Chapter string
	Section string
	Subject string
	Item    string // FIM only, 3 digits
	Code    string // FIM only, 3 digits
}

// Task renders the normalised task number, e.g. "21-26-00" or "32-47-00-860-801".
func (k ReferenceKey) Task() string {
	parts := []string{k.Chapter, k.Section, k.Subject}
	if k.Item != "" {
		parts = append(parts, k.Item)
	}
	if k.Code != "" {
		parts = append(parts, k.Code)
	}
	return strings.Join(parts, "-")
}

// ATA04 returns the implied two-group system code, e.g. "21-26".
func (k ReferenceKey) ATA04() string {
	return k.Chapter + "-" + k.Section
}

// NormalizeATA collapses an ATA code in any punctuation to the canonical
// AA-BB form. Returns "" when the input does not contain at least four digits.
func NormalizeATA(raw string) string {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) < 4 {
		return ""
	}
	return d[:2] + "-" + d[2:4]
}
