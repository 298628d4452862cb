package services

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/aeromaint/atarec/internal/metrics"
	"github.com/aeromaint/atarec/internal/models"
)

// RunReport aggregates a finished batch for operators: disposition tallies,
// confidence summary, signal degradation, and the system codes most often
// corrected.
type RunReport struct {
	RunID             string
	Rows              int
	NonDefect         int
	Unresolved        int
	ByDisposition     map[models.Disposition]int
	DegradedSignals   map[string]int
	MeanConfidence    float64
	MeanRowLatency    time.Duration
	TopCorrections    []CorrectionStat
	RegistryAvailable bool
	CatalogAvailable  bool
	Workers           int
	Duration          time.Duration
}

// CorrectionStat counts how often a final code replaced a differing entered
// code, annotated with the catalog's system name when known.
type CorrectionStat struct {
	ATA04      string
	SystemName string
	Count      int
}

type reportContext struct {
	duration          time.Duration
	workers           int
	registryAvailable bool
	catalogAvailable  bool
	systemName        func(ata04 string) string
}

func buildReport(results []models.Result, ctx reportContext) RunReport {
	report := RunReport{
		RunID:             uuid.NewString(),
		Rows:              len(results),
		ByDisposition:     make(map[models.Disposition]int),
		DegradedSignals:   make(map[string]int),
		RegistryAvailable: ctx.registryAvailable,
		CatalogAvailable:  ctx.catalogAvailable,
		Workers:           ctx.workers,
		Duration:          ctx.duration,
	}

	corrections := make(map[string]int)
	var confidenceSum float64

	for _, res := range results {
		report.ByDisposition[res.Disposition]++
		confidenceSum += res.Confidence

		switch res.Disposition {
		case models.DispositionNonDefect:
			report.NonDefect++
		case models.DispositionCorrect:
			corrections[res.FinalATA]++
		}
		if res.FinalATA == "" {
			report.Unresolved++
		}

		if res.EnteredATA != "" && models.NormalizeATA(res.EnteredATA) == "" {
			report.DegradedSignals[metrics.SignalEntered]++
		}
		if res.IsDefect {
			if res.Cited.Present && res.Cited.Validity == models.ValidityUnknown {
				report.DegradedSignals[metrics.SignalCitation]++
			}
			if !res.Derived.Present {
				report.DegradedSignals[metrics.SignalSimilarity]++
			}
		}
	}

	if len(results) > 0 {
		report.MeanConfidence = confidenceSum / float64(len(results))
	}

	report.TopCorrections = topCorrections(corrections, 5, ctx.systemName)
	return report
}

func topCorrections(counts map[string]int, limit int, systemName func(string) string) []CorrectionStat {
	stats := make([]CorrectionStat, 0, len(counts))
	for ata, count := range counts {
		stat := CorrectionStat{ATA04: ata, Count: count}
		if systemName != nil {
			stat.SystemName = systemName(ata)
		}
		stats = append(stats, stat)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].ATA04 < stats[j].ATA04
	})
	if len(stats) > limit {
		stats = stats[:limit]
	}
	return stats
}
