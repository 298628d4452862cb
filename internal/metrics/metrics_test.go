package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()

	if err := Register(reg); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second Register: %v", err)
	}

	ObserveRow(2*time.Millisecond, "CONFIRM")
	ObserveDegradedSignal(SignalCitation)
	ObserveSimilarity(0.42)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"atarec_rows_total",
		"atarec_degraded_signals_total",
		"atarec_row_seconds",
		"atarec_similarity_score",
	} {
		if !names[want] {
			t.Errorf("metric %s not gathered", want)
		}
	}
}
