package extractors

import (
	"regexp"
	"strings"

	"github.com/aeromaint/atarec/internal/models"
)

// familyShape declares how one manual family (or token alias) cites a
// location: which token introduces it and the fixed digit-group arities of
// its numeric path. Adding a family is a table change, not a code change.
type familyShape struct {
	pattern   *regexp.Regexp
	manual    models.Manual
	arities   []int
	minGroups int
	// fallback shapes carry a default manual attribution and yield to any
	// token-attributed extraction of the same numeric path.
	fallback bool
}

// tokenShape builds a shape for citations introduced by a family token,
// tolerant of hyphen, space, or absent separators between digit groups.
func tokenShape(token string, manual models.Manual, arities []int, minGroups int) familyShape {
	digits := `\d{2}[\s-]*\d{2}`
	for _, width := range arities[2:] {
		if width == 3 {
			digits += `(?:[\s-]*\d{3})?`
		} else {
			digits += `(?:[\s-]*\d{2})?`
		}
	}
	return familyShape{
		pattern:   regexp.MustCompile(`(?i)\b(?:` + token + `)\s*:?\s*(` + digits + `)\b`),
		manual:    manual,
		arities:   arities,
		minGroups: minGroups,
	}
}

// bareShape matches a punctuated chapter-section-subject with no family
// token. The original data attributes these to the troubleshooting manual.
func bareShape() familyShape {
	return familyShape{
		pattern:   regexp.MustCompile(`\b(\d{2}-\d{2}-\d{2}(?:-\d{3})?(?:-\d{3})?)\b`),
		manual:    models.ManualTSM,
		arities:   []int{2, 2, 2, 3, 3},
		minGroups: 3,
		fallback:  true,
	}
}

// Registry is the read-only reference index consulted during validation.
// Title returns the registered document title for a known reference.
type Registry interface {
	Exists(key models.ReferenceKey) bool
	Title(key models.ReferenceKey) (string, bool)
}

// CitationMatch pairs an extracted reference with its registry verdict and,
// when confirmed, the registered document title.
type CitationMatch struct {
	Key      models.ReferenceKey
	Title    string
	Validity models.Validity
}

// CitationExtractor parses manual references out of rectification text and
// validates them against the reference registry.
type CitationExtractor struct {
	shapes []familyShape
}

// NewCitationExtractor builds the shape table. Order matters: family-tagged
// forms are extracted before bare numeric paths so deduplication keeps the
// attributed manual.
func NewCitationExtractor() *CitationExtractor {
	return &CitationExtractor{
		shapes: []familyShape{
			tokenShape("TSM", models.ManualTSM, []int{2, 2, 2}, 2),
			tokenShape("FIM", models.ManualFIM, []int{2, 2, 2, 3, 3}, 2),
			tokenShape("AMM", models.ManualAMM, []int{2, 2, 2}, 2),
			tokenShape("TASK", models.ManualAMM, []int{2, 2, 2}, 2),
			tokenShape("REF(?:ERENCE)?", models.ManualTSM, []int{2, 2, 2}, 2),
			bareShape(),
		},
	}
}

// Extract returns every distinct reference cited in text, in extraction
// order. Malformed digit runs (a total that fits no group arity) are
// discarded, never coerced. Extraction cannot fail: bad text yields nothing.
func (e *CitationExtractor) Extract(text string) []models.ReferenceKey {
	if text == "" {
		return nil
	}

	var keys []models.ReferenceKey
	seen := make(map[string]struct{})
	seenTasks := make(map[string]struct{})

	for _, shape := range e.shapes {
		for _, match := range shape.pattern.FindAllStringSubmatch(text, -1) {
			key, ok := regroup(stripSeparators(match[1]), shape)
			if !ok {
				continue
			}
			if shape.fallback {
				if _, claimed := seenTasks[key.Task()]; claimed {
					continue
				}
			}
			id := string(key.Manual) + " " + key.Task()
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			seenTasks[key.Task()] = struct{}{}
			keys = append(keys, key)
		}
	}
	return keys
}

// Validate checks each key against the registry. A nil registry means the
// index was never built: validity is unknown, not absent.
func (e *CitationExtractor) Validate(keys []models.ReferenceKey, registry Registry) []CitationMatch {
	matches := make([]CitationMatch, 0, len(keys))
	for _, key := range keys {
		match := CitationMatch{Key: key, Validity: models.ValidityUnknown}
		if registry != nil {
			if registry.Exists(key) {
				match.Validity = models.ValidityConfirmed
				match.Title, _ = registry.Title(key)
			} else {
				match.Validity = models.ValidityAbsent
			}
		}
		matches = append(matches, match)
	}
	return matches
}

// BestCandidate reduces the validated matches to the single E1 signal:
// confirmed references beat unconfirmed ones, then the ATA04 occurring most
// often across all extracted references wins, ties broken by extraction order.
func BestCandidate(matches []CitationMatch) models.CitationSignal {
	if len(matches) == 0 {
		return models.CitationSignal{}
	}

	freq := make(map[string]int)
	for _, m := range matches {
		freq[m.Key.ATA04()]++
	}

	pool := matches
	confirmed := make([]CitationMatch, 0, len(matches))
	for _, m := range matches {
		if m.Validity == models.ValidityConfirmed {
			confirmed = append(confirmed, m)
		}
	}
	if len(confirmed) > 0 {
		pool = confirmed
	}

	best := pool[0]
	for _, m := range pool[1:] {
		if freq[m.Key.ATA04()] > freq[best.Key.ATA04()] {
			best = m
		}
	}

	keys := make([]models.ReferenceKey, 0, len(matches))
	for _, m := range matches {
		keys = append(keys, m.Key)
	}

	return models.CitationSignal{
		Present:  true,
		ATA04:    best.Key.ATA04(),
		Manual:   string(best.Key.Manual),
		Task:     best.Key.Task(),
		Title:    best.Title,
		Validity: best.Validity,
		Keys:     keys,
	}
}

func stripSeparators(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// regroup splits a digit run into the shape's fixed arities. The total digit
// count must land exactly on a group boundary at or past minGroups.
func regroup(digits string, shape familyShape) (models.ReferenceKey, bool) {
	groups := make([]string, 0, len(shape.arities))
	rest := digits
	for _, width := range shape.arities {
		if len(rest) == 0 {
			break
		}
		if len(rest) < width {
			return models.ReferenceKey{}, false
		}
		groups = append(groups, rest[:width])
		rest = rest[width:]
	}
	if len(rest) != 0 || len(groups) < shape.minGroups {
		return models.ReferenceKey{}, false
	}

	key := models.ReferenceKey{
		Manual:  shape.manual,
		Chapter: groups[0],
		Section: groups[1],
		Subject: "00",
	}
	if len(groups) >= 3 {
		key.Subject = groups[2]
	}
	if len(groups) >= 4 {
		key.Item = groups[3]
	}
	if len(groups) >= 5 {
		key.Code = groups[4]
	}
	return key, true
}
