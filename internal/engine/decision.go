package engine

import (
	"fmt"

	"github.com/aeromaint/atarec/internal/models"
)

// Signals bundles the three independently-derived codes presented to the
// decision table. Entered is already normalised ("" when absent or
// malformed); EnteredRaw keeps the technician's original value for evidence.
type Signals struct {
	Entered    string
	EnteredRaw string
	Cited      models.CitationSignal
	Derived    models.SimilaritySignal
}

// Decision is the reconciliation outcome with its evidence trail.
type Decision struct {
	Disposition models.Disposition
	FinalATA    string
	Confidence  float64
	Reason      string
	Used        []string
}

// rule is one guarded branch of the decision table. Rules are evaluated in
// order; the first one whose guard holds produces the decision.
type rule struct {
	name  string
	apply func(Signals, Policy) (Decision, bool)
}

// DecisionEngine reconciles the entered, citation-derived, and
// catalog-derived codes into a final code and disposition.
type DecisionEngine struct {
	policy Policy
	rules  []rule
}

// NewDecisionEngine builds the ordered rule table for the given policy.
func NewDecisionEngine(policy Policy) *DecisionEngine {
	return &DecisionEngine{
		policy: policy,
		rules: []rule{
			{"all-agree", ruleAllAgree},
			{"cited-derived-agree", ruleCitedDerivedAgree},
			{"derived-confirms-entered", ruleDerivedConfirmsEntered},
			{"cited-only", ruleCitedOnly},
			{"cited-derived-conflict", ruleConflict},
			{"unconfirmed-agreement", ruleUnconfirmedAgreement},
			{"derived-only", ruleDerivedOnly},
			{"cited-hint-only", ruleCitedHint},
			{"entered-only", ruleEnteredOnly},
			{"unresolved", ruleUnresolved},
		},
	}
}

// Decide runs the table top to bottom, first match wins. The final rule is
// total, so every signal combination produces exactly one decision.
func (e *DecisionEngine) Decide(sig Signals) Decision {
	for _, r := range e.rules {
		if d, ok := r.apply(sig, e.policy); ok {
			return d
		}
	}
	// Unreachable: ruleUnresolved always fires.
	return Decision{Disposition: models.DispositionReview, Confidence: e.policy.Unresolved, Reason: "no rule matched"}
}

// Policy returns the constants the engine was built with.
func (e *DecisionEngine) Policy() Policy {
	return e.policy
}

// All three sources agree and the citation exists in the registry.
func ruleAllAgree(sig Signals, p Policy) (Decision, bool) {
	if sig.Entered == "" || !sig.Cited.Confirmed() || !sig.Derived.Present {
		return Decision{}, false
	}
	if sig.Entered != sig.Cited.ATA04 || sig.Entered != sig.Derived.ATA04 {
		return Decision{}, false
	}
	return Decision{
		Disposition: models.DispositionConfirm,
		FinalATA:    sig.Entered,
		Confidence:  p.AllAgree,
		Reason:      "all sources agree (E0=E1=E2)",
		Used:        []string{"E0", "E1", "E2"},
	}, true
}

// Confirmed citation and catalog agree with each other against the entered code.
func ruleCitedDerivedAgree(sig Signals, p Policy) (Decision, bool) {
	if !sig.Cited.Confirmed() || !sig.Derived.Present {
		return Decision{}, false
	}
	if sig.Cited.ATA04 != sig.Derived.ATA04 || sig.Entered == sig.Cited.ATA04 {
		return Decision{}, false
	}
	return Decision{
		Disposition: models.DispositionCorrect,
		FinalATA:    sig.Cited.ATA04,
		Confidence:  p.CitedDerivedAgree,
		Reason:      fmt.Sprintf("citation and catalog agree on %s, entered %q", sig.Cited.ATA04, sig.EnteredRaw),
		Used:        []string{"E1", "E2"},
	}, true
}

// No citation extracted; the catalog match corroborates the entered code.
// Confidence scales with the similarity score within the documented band.
func ruleDerivedConfirmsEntered(sig Signals, p Policy) (Decision, bool) {
	if sig.Cited.Present || !sig.Derived.Present || sig.Entered == "" {
		return Decision{}, false
	}
	if sig.Derived.ATA04 != sig.Entered {
		return Decision{}, false
	}
	return Decision{
		Disposition: models.DispositionConfirm,
		FinalATA:    sig.Entered,
		Confidence:  scaledConfidence(p, sig.Derived.Score),
		Reason:      fmt.Sprintf("catalog confirms entered code (score %.2f)", sig.Derived.Score),
		Used:        []string{"E0", "E2"},
	}, true
}

// Confirmed citation is the only available signal.
func ruleCitedOnly(sig Signals, p Policy) (Decision, bool) {
	if !sig.Cited.Confirmed() || sig.Derived.Present {
		return Decision{}, false
	}
	return Decision{
		Disposition: models.DispositionConfirm,
		FinalATA:    sig.Cited.ATA04,
		Confidence:  p.CitedOnly,
		Reason:      fmt.Sprintf("validated citation %s %s is the only signal", sig.Cited.Manual, sig.Cited.Task),
		Used:        []string{"E1"},
	}, true
}

// Citation and catalog disagree: prefer the stronger signal, otherwise flag
// for review keeping the citation as the provisional code.
func ruleConflict(sig Signals, p Policy) (Decision, bool) {
	if !sig.Cited.Present || !sig.Derived.Present || sig.Cited.ATA04 == sig.Derived.ATA04 {
		return Decision{}, false
	}

	if sig.Cited.Confirmed() {
		return Decision{
			Disposition: dispositionFor(sig.Cited.ATA04, sig.Entered),
			FinalATA:    sig.Cited.ATA04,
			Confidence:  p.ConflictCited,
			Reason:      fmt.Sprintf("conflict: validated citation %s preferred over catalog %s", sig.Cited.ATA04, sig.Derived.ATA04),
			Used:        []string{"E1", "E2"},
		}, true
	}
	if sig.Derived.Score >= p.StrongDerived {
		return Decision{
			Disposition: dispositionFor(sig.Derived.ATA04, sig.Entered),
			FinalATA:    sig.Derived.ATA04,
			Confidence:  p.ConflictDerived,
			Reason:      fmt.Sprintf("conflict: strong catalog match %s (score %.2f) preferred over unvalidated citation %s", sig.Derived.ATA04, sig.Derived.Score, sig.Cited.ATA04),
			Used:        []string{"E1", "E2"},
		}, true
	}
	return Decision{
		Disposition: models.DispositionReview,
		FinalATA:    sig.Cited.ATA04,
		Confidence:  p.ConflictReview,
		Reason:      fmt.Sprintf("conflict: citation %s vs catalog %s, neither decisive", sig.Cited.ATA04, sig.Derived.ATA04),
		Used:        []string{"E1", "E2"},
	}, true
}

// Citation and catalog agree but the citation could not be validated
// (registry absent, or the reference is unknown to it).
func ruleUnconfirmedAgreement(sig Signals, p Policy) (Decision, bool) {
	if !sig.Cited.Present || sig.Cited.Confirmed() || !sig.Derived.Present {
		return Decision{}, false
	}
	if sig.Cited.ATA04 != sig.Derived.ATA04 {
		return Decision{}, false
	}

	if sig.Entered == sig.Cited.ATA04 {
		return Decision{
			Disposition: models.DispositionConfirm,
			FinalATA:    sig.Entered,
			Confidence:  scaledConfidence(p, sig.Derived.Score),
			Reason:      fmt.Sprintf("unvalidated citation and catalog both corroborate entered code (score %.2f)", sig.Derived.Score),
			Used:        []string{"E0", "E1", "E2"},
		}, true
	}
	if sig.Derived.Score >= p.StrongDerived {
		return Decision{
			Disposition: models.DispositionCorrect,
			FinalATA:    sig.Derived.ATA04,
			Confidence:  p.ConflictDerived,
			Reason:      fmt.Sprintf("unvalidated citation and strong catalog match agree on %s", sig.Derived.ATA04),
			Used:        []string{"E1", "E2"},
		}, true
	}
	return Decision{
		Disposition: models.DispositionReview,
		FinalATA:    sig.Cited.ATA04,
		Confidence:  p.ConflictReview,
		Reason:      fmt.Sprintf("citation and catalog agree on %s but neither is decisive", sig.Cited.ATA04),
		Used:        []string{"E1", "E2"},
	}, true
}

// No citation; the catalog match disagrees with the entered code (or no code
// was entered).
func ruleDerivedOnly(sig Signals, p Policy) (Decision, bool) {
	if sig.Cited.Present || !sig.Derived.Present {
		return Decision{}, false
	}

	if sig.Derived.Score >= p.StrongDerived {
		return Decision{
			Disposition: models.DispositionCorrect,
			FinalATA:    sig.Derived.ATA04,
			Confidence:  p.ConflictDerived,
			Reason:      fmt.Sprintf("strong catalog match %s (score %.2f), entered %q", sig.Derived.ATA04, sig.Derived.Score, sig.EnteredRaw),
			Used:        []string{"E2"},
		}, true
	}

	final := sig.Entered
	if final == "" {
		final = sig.Derived.ATA04
	}
	return Decision{
		Disposition: models.DispositionReview,
		FinalATA:    final,
		Confidence:  p.ConflictReview,
		Reason:      fmt.Sprintf("weak catalog match %s (score %.2f) disputes entered %q", sig.Derived.ATA04, sig.Derived.Score, sig.EnteredRaw),
		Used:        []string{"E0", "E2"},
	}, true
}

// A citation was extracted but never validated, and the catalog is silent.
// An unvalidated citation is a hint, not a signal.
func ruleCitedHint(sig Signals, p Policy) (Decision, bool) {
	if !sig.Cited.Present || sig.Cited.Confirmed() || sig.Derived.Present {
		return Decision{}, false
	}

	final := sig.Entered
	if final == "" {
		final = sig.Cited.ATA04
	}
	return Decision{
		Disposition: models.DispositionReview,
		FinalATA:    final,
		Confidence:  p.EnteredOnly,
		Reason:      fmt.Sprintf("citation %s %s could not be validated and catalog found no match", sig.Cited.Manual, sig.Cited.Task),
		Used:        []string{"E0", "E1"},
	}, true
}

// Only the entered code survives.
func ruleEnteredOnly(sig Signals, p Policy) (Decision, bool) {
	if sig.Entered == "" || sig.Cited.Present || sig.Derived.Present {
		return Decision{}, false
	}
	return Decision{
		Disposition: models.DispositionReview,
		FinalATA:    sig.Entered,
		Confidence:  p.EnteredOnly,
		Reason:      "no citation or catalog match; entered code unverified",
		Used:        []string{"E0"},
	}, true
}

// No usable signal at all. The row still produces an output, flagged for
// manual entry.
func ruleUnresolved(sig Signals, p Policy) (Decision, bool) {
	return Decision{
		Disposition: models.DispositionReview,
		FinalATA:    "",
		Confidence:  p.Unresolved,
		Reason:      "insufficient data: no entered code, citation, or catalog match",
		Used:        nil,
	}, true
}

func dispositionFor(final, entered string) models.Disposition {
	if final == entered {
		return models.DispositionConfirm
	}
	return models.DispositionCorrect
}

func scaledConfidence(p Policy, score float64) float64 {
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return p.DerivedConfirmsBase + p.DerivedConfirmsSpan*score
}
