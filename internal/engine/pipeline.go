package engine

import (
	"log/slog"

	"github.com/aeromaint/atarec/internal/catalog"
	"github.com/aeromaint/atarec/internal/extractors"
	"github.com/aeromaint/atarec/internal/models"
)

// Pipeline runs the four-stage flow for one work order: classify, extract the
// citation signal, infer the catalog signal, decide. It holds only read-only
// state and is safe for concurrent use by row workers.
type Pipeline struct {
	logger     *slog.Logger
	classifier *extractors.NonDefectClassifier
	extractor  *extractors.CitationExtractor
	registry   extractors.Registry
	catalog    *catalog.Catalog
	engine     *DecisionEngine
}

// TextSignals are the analysis products that depend only on the record's
// free text. They are pure functions of the text and the shared snapshots,
// so callers may memoise them across records with identical text.
type TextSignals struct {
	Verdict extractors.Verdict
	Cited   models.CitationSignal
	Derived models.SimilaritySignal
}

// NewPipeline wires the pipeline. registry and cat may be nil; the dependent
// signals then degrade to unknown/no-match instead of failing.
func NewPipeline(logger *slog.Logger, registry extractors.Registry, cat *catalog.Catalog, policy Policy) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		logger:     logger,
		classifier: extractors.NewNonDefectClassifier(),
		extractor:  extractors.NewCitationExtractor(),
		registry:   registry,
		catalog:    cat,
		engine:     NewDecisionEngine(policy),
	}
}

// RegistryAvailable reports whether citation validation has a registry to
// consult.
func (p *Pipeline) RegistryAvailable() bool { return p.registry != nil }

// CatalogInfo looks the ATA04 up in the catalog, for report annotation.
func (p *Pipeline) CatalogInfo(ata04 string) (catalog.Entry, bool) {
	return p.catalog.Info(ata04)
}

// CatalogAvailable reports whether similarity inference has a fitted catalog.
func (p *Pipeline) CatalogAvailable() bool { return p.catalog != nil }

// Analyze computes the text-dependent signals. Non-defect records skip
// extraction and inference entirely.
func (p *Pipeline) Analyze(description, action string) TextSignals {
	sig := TextSignals{Verdict: p.classifier.Classify(description, action)}
	if !sig.Verdict.IsDefect {
		return sig
	}

	keys := p.extractor.Extract(action)
	sig.Cited = extractors.BestCandidate(p.extractor.Validate(keys, p.registry))

	if p.catalog != nil {
		sig.Derived = p.catalog.Predict(description, p.engine.policy.SimilarityFloor)
	}
	return sig
}

// Resolve combines the memoised text signals with the record-specific
// entered code and produces the terminal result. The record is never mutated
// after this stage.
func (p *Pipeline) Resolve(wo models.WorkOrder, sig TextSignals) models.Result {
	result := models.Result{
		WorkOrder:     wo,
		IsDefect:      sig.Verdict.IsDefect,
		ClassifierHit: sig.Verdict.Term,
		Cited:         sig.Cited,
		Derived:       sig.Derived,
	}

	entered := models.NormalizeATA(wo.EnteredATA)

	if !sig.Verdict.IsDefect {
		result.Disposition = models.DispositionNonDefect
		result.FinalATA = entered
		result.Confidence = p.engine.policy.NonDefect
		result.Reason = sig.Verdict.Reason
		return result
	}

	decision := p.engine.Decide(Signals{
		Entered:    entered,
		EnteredRaw: wo.EnteredATA,
		Cited:      sig.Cited,
		Derived:    sig.Derived,
	})

	result.Disposition = decision.Disposition
	result.FinalATA = decision.FinalATA
	result.Confidence = decision.Confidence
	result.Reason = decision.Reason
	return result
}

// Process runs the full per-record flow.
func (p *Pipeline) Process(wo models.WorkOrder) models.Result {
	return p.Resolve(wo, p.Analyze(wo.Description, wo.Action))
}
