package engine

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Policy carries the reconciliation constants. The exact numbers are fixed
// operational policy rather than invariants, so they load from YAML with
// compiled-in defaults for every field the file omits.
type Policy struct {
	// Branch confidences.
	AllAgree          float64 `yaml:"allAgree"`
	CitedDerivedAgree float64 `yaml:"citedDerivedAgree"`
	CitedOnly         float64 `yaml:"citedOnly"`
	ConflictCited     float64 `yaml:"conflictCited"`
	ConflictDerived   float64 `yaml:"conflictDerived"`
	ConflictReview    float64 `yaml:"conflictReview"`
	EnteredOnly       float64 `yaml:"enteredOnly"`
	Unresolved        float64 `yaml:"unresolved"`
	NonDefect         float64 `yaml:"nonDefect"`

	// Scaled band for a catalog match corroborating the entered code:
	// confidence = base + span * similarity score.
	DerivedConfirmsBase float64 `yaml:"derivedConfirmsBase"`
	DerivedConfirmsSpan float64 `yaml:"derivedConfirmsSpan"`

	// StrongDerived is the similarity score at which a lone catalog match is
	// trusted over weaker evidence.
	StrongDerived float64 `yaml:"strongDerived"`

	// SimilarityFloor gates catalog matches: scores at or below it are
	// reported as no-match.
	SimilarityFloor float64 `yaml:"similarityFloor"`
}

// DefaultPolicy returns the documented policy constants.
func DefaultPolicy() Policy {
	return Policy{
		AllAgree:            0.97,
		CitedDerivedAgree:   0.95,
		CitedOnly:           0.92,
		ConflictCited:       0.85,
		ConflictDerived:     0.80,
		ConflictReview:      0.75,
		EnteredOnly:         0.65,
		Unresolved:          0.50,
		NonDefect:           0.99,
		DerivedConfirmsBase: 0.83,
		DerivedConfirmsSpan: 0.05,
		StrongDerived:       0.5,
		SimilarityFloor:     0.2,
	}
}

// LoadPolicy reads policy overrides from a YAML file. A missing file (or an
// empty path) yields the defaults; a present but unparseable file is an error.
func LoadPolicy(path string) (Policy, error) {
	policy := DefaultPolicy()
	if path == "" {
		return policy, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return policy, nil
		}
		return policy, fmt.Errorf("read policy: %w", err)
	}
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return DefaultPolicy(), fmt.Errorf("parse policy: %w", err)
	}
	return policy, nil
}
