package extractors

import (
	"testing"

	"github.com/aeromaint/atarec/internal/models"
)

type fakeRegistry struct {
	known  map[string]struct{}
	titles map[string]string
}

func newFakeRegistry(tasks ...string) *fakeRegistry {
	reg := &fakeRegistry{known: make(map[string]struct{}), titles: make(map[string]string)}
	for _, task := range tasks {
		reg.known[task] = struct{}{}
	}
	return reg
}

func (f *fakeRegistry) Exists(key models.ReferenceKey) bool {
	_, ok := f.known[string(key.Manual)+" "+key.Task()]
	return ok
}

func (f *fakeRegistry) Title(key models.ReferenceKey) (string, bool) {
	title, ok := f.titles[string(key.Manual)+" "+key.Task()]
	return title, ok
}

func TestExtractSeparatorInsensitive(t *testing.T) {
	extractor := NewCitationExtractor()

	// All spellings of the same location normalise to one ReferenceKey.
	for _, text := range []string{
		"refer TSM 21-26-00 for isolation",
		"refer TSM21-26 for isolation",
		"refer TSM 21 26 00 for isolation",
		"refer TSM212600 for isolation",
	} {
		keys := extractor.Extract(text)
		if len(keys) != 1 {
			t.Fatalf("Extract(%q) returned %d keys, want 1", text, len(keys))
		}
		key := keys[0]
		if key.Manual != models.ManualTSM || key.Task() != "21-26-00" {
			t.Fatalf("Extract(%q) = %s %s, want TSM 21-26-00", text, key.Manual, key.Task())
		}
		if key.ATA04() != "21-26" {
			t.Fatalf("ATA04() = %q, want 21-26", key.ATA04())
		}
	}
}

func TestExtractFIMItemAndCode(t *testing.T) {
	extractor := NewCitationExtractor()

	keys := extractor.Extract("fault isolated per FIM 32-47-00-860-801")
	if len(keys) != 1 {
		t.Fatalf("expected 1 key, got %d", len(keys))
	}
	key := keys[0]
	if key.Manual != models.ManualFIM {
		t.Fatalf("manual = %s, want FIM", key.Manual)
	}
	if key.Task() != "32-47-00-860-801" {
		t.Fatalf("task = %q, want 32-47-00-860-801", key.Task())
	}
	if key.Item != "860" || key.Code != "801" {
		t.Fatalf("item/code = %q/%q, want 860/801", key.Item, key.Code)
	}
	if key.ATA04() != "32-47" {
		t.Fatalf("ATA04 = %q, want 32-47", key.ATA04())
	}
}

func TestExtractDefaultsAndAliases(t *testing.T) {
	extractor := NewCitationExtractor()

	cases := []struct {
		text   string
		manual models.Manual
		task   string
	}{
		{"accomplished per AMM 24-11-00", models.ManualAMM, "24-11-00"},
		{"see task 24-11-00 step 3", models.ManualAMM, "24-11-00"},
		{"ref 21-26-00 consulted", models.ManualTSM, "21-26-00"},
		{"isolation per 27-51-00 performed", models.ManualTSM, "27-51-00"},
	}
	for _, tc := range cases {
		keys := extractor.Extract(tc.text)
		if len(keys) != 1 {
			t.Fatalf("Extract(%q) returned %d keys, want 1", tc.text, len(keys))
		}
		if keys[0].Manual != tc.manual || keys[0].Task() != tc.task {
			t.Fatalf("Extract(%q) = %s %s, want %s %s", tc.text, keys[0].Manual, keys[0].Task(), tc.manual, tc.task)
		}
	}
}

func TestExtractDiscardsMalformed(t *testing.T) {
	extractor := NewCitationExtractor()

	for _, text := range []string{
		"",
		"replaced unit, ops check ok",
		"see TSM 2-26 for details",  // wrong group width
		"see TSM 21265 for details", // digit total fits no arity
	} {
		if keys := extractor.Extract(text); len(keys) != 0 {
			t.Fatalf("Extract(%q) = %v, want none", text, keys)
		}
	}
}

func TestExtractDeduplicates(t *testing.T) {
	extractor := NewCitationExtractor()

	keys := extractor.Extract("per TSM 21-26-00, rechecked TSM 21-26-00, then AMM 21-26-00")
	if len(keys) != 2 {
		t.Fatalf("expected 2 distinct keys, got %d: %v", len(keys), keys)
	}
}

func TestValidateTriState(t *testing.T) {
	extractor := NewCitationExtractor()
	keys := extractor.Extract("per TSM 21-26-00 and AMM 24-11-00")

	// No registry at all: unknown, never absent.
	for _, m := range extractor.Validate(keys, nil) {
		if m.Validity != models.ValidityUnknown {
			t.Fatalf("validity without registry = %s, want unknown", m.Validity)
		}
	}

	reg := newFakeRegistry("TSM 21-26-00")
	matches := extractor.Validate(keys, reg)
	if matches[0].Validity != models.ValidityConfirmed {
		t.Fatalf("known reference = %s, want confirmed", matches[0].Validity)
	}
	if matches[1].Validity != models.ValidityAbsent {
		t.Fatalf("unknown reference = %s, want absent", matches[1].Validity)
	}
}

func TestBestCandidatePrefersConfirmed(t *testing.T) {
	extractor := NewCitationExtractor()
	keys := extractor.Extract("tried TSM 21-26-00, then AMM 24-11-00")

	reg := newFakeRegistry("AMM 24-11-00")
	best := BestCandidate(extractor.Validate(keys, reg))

	if !best.Present || best.ATA04 != "24-11" {
		t.Fatalf("best = %+v, want confirmed 24-11", best)
	}
	if best.Validity != models.ValidityConfirmed {
		t.Fatalf("validity = %s, want confirmed", best.Validity)
	}
	if len(best.Keys) != 2 {
		t.Fatalf("evidence keys = %d, want both extractions retained", len(best.Keys))
	}
}

func TestBestCandidatePluralityAndOrder(t *testing.T) {
	extractor := NewCitationExtractor()

	// 24-11 recurs twice across families; plurality beats extraction order.
	keys := extractor.Extract("TSM 21-26-00 then TSM 24-11-00 and AMM 24-11-00")
	reg := newFakeRegistry("TSM 21-26-00", "TSM 24-11-00", "AMM 24-11-00")
	best := BestCandidate(extractor.Validate(keys, reg))
	if best.ATA04 != "24-11" {
		t.Fatalf("plurality winner = %s, want 24-11", best.ATA04)
	}

	// Pure tie: first extraction wins.
	keys = extractor.Extract("TSM 21-26-00 then AMM 24-11-00")
	best = BestCandidate(extractor.Validate(keys, reg))
	if best.ATA04 != "21-26" {
		t.Fatalf("tie winner = %s, want first extraction 21-26", best.ATA04)
	}

	if none := BestCandidate(nil); none.Present {
		t.Fatalf("expected absent signal for no matches, got %+v", none)
	}
}
