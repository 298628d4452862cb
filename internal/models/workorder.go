package models

// WorkOrder is a single maintenance record as read from the input batch.
type WorkOrder struct {
	ID           string
	RowIndex     int
	Description  string
	Action       string
	EnteredATA   string
	Type         string
	Registration string
	OpenedAt     string
	ClosedAt     string
}

// Result is the fully annotated output row for one work order.
type Result struct {
	WorkOrder

	IsDefect      bool
	ClassifierHit string

	Cited   CitationSignal
	Derived SimilaritySignal

	Disposition Disposition
	FinalATA    string
	Confidence  float64
	Reason      string
}

// Disposition enumerates the reconciliation outcomes.
type Disposition string

const (
	DispositionConfirm   Disposition = "CONFIRM"
	DispositionCorrect   Disposition = "CORRECT"
	DispositionReview    Disposition = "REVIEW"
	DispositionNonDefect Disposition = "NON_DEFECT"
)

// Validity is the tri-state registry verdict for a cited reference.
type Validity string

const (
	// ValidityConfirmed means the reference exists in the registry.
	ValidityConfirmed Validity = "confirmed"
	// ValidityAbsent means the registry was consulted and the reference is unknown to it.
	ValidityAbsent Validity = "absent"
	// ValidityUnknown means no registry was available; not the same as absent.
	ValidityUnknown Validity = "unknown"
)

// CitationSignal carries the E1 evidence: the best cited reference, if any.
// Title is the registry's document title, filled only for confirmed references.
type CitationSignal struct {
	Present  bool
	ATA04    string
	Manual   string
	Task     string
	Title    string
	Validity Validity
	Keys     []ReferenceKey
}

// Confirmed reports whether the citation exists in the registry.
func (c CitationSignal) Confirmed() bool {
	return c.Present && c.Validity == ValidityConfirmed
}

// SimilaritySignal carries the E2 evidence: the best catalog match, if any.
type SimilaritySignal struct {
	Present bool
	ATA04   string
	Score   float64
	Snippet string
}
