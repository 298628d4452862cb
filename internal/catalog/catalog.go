// Package catalog loads the offline-built ATA04 system catalog and answers
// similarity queries against it. The fitted index and the entries are
// immutable for the lifetime of a run and safe for concurrent readers.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/aeromaint/atarec/internal/models"
	"github.com/aeromaint/atarec/internal/utils"
)

// Entry is one catalog record: the textual identity of a single ATA04 family.
type Entry struct {
	ATA04              string
	SystemName         string   `json:"system_name"`
	Keywords           []string `json:"keywords"`
	Warnings           []string `json:"warnings"`
	SampleDescriptions []string `json:"sample_descriptions"`
}

// Catalog is the fitted similarity index over all catalog entries. Entry
// order follows the artifact: ties between equal similarity scores are
// broken by insertion order, first entry wins.
type Catalog struct {
	entries []Entry
	byATA   map[string]int
	vec     *vectorizer
	vectors [][]termWeight
}

// ErrNotBuilt reports that no catalog artifact exists at the given path.
var ErrNotBuilt = errors.New("ata catalog not built")

// Open loads the catalog artifact and fits the similarity index. The JSON
// object is decoded token-wise so the artifact's key order is preserved.
func Open(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotBuilt
		}
		return nil, utils.NewAppError("catalog.Open", "open catalog artifact", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	tok, err := dec.Token()
	if err != nil {
		return nil, utils.NewAppError("catalog.Open", "read catalog artifact", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, utils.NewAppError("catalog.Open", "catalog artifact is not a JSON object", nil)
	}

	c := &Catalog{byATA: make(map[string]int)}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, utils.NewAppError("catalog.Open", "read catalog key", err)
		}
		ata, ok := keyTok.(string)
		if !ok {
			return nil, utils.NewAppError("catalog.Open", "catalog key is not a string", nil)
		}
		var entry Entry
		if err := dec.Decode(&entry); err != nil {
			return nil, utils.NewAppError("catalog.Open", fmt.Sprintf("decode entry %s", ata), err)
		}
		entry.ATA04 = models.NormalizeATA(ata)
		if entry.ATA04 == "" {
			entry.ATA04 = ata
		}
		c.byATA[entry.ATA04] = len(c.entries)
		c.entries = append(c.entries, entry)
	}

	if len(c.entries) == 0 {
		return nil, utils.NewAppError("catalog.Open", "catalog artifact holds no entries", nil)
	}

	c.fit()
	return c, nil
}

// New builds a catalog directly from entries, in the given order. Used by
// tests and by callers that assemble entries programmatically.
func New(entries []Entry) *Catalog {
	c := &Catalog{byATA: make(map[string]int), entries: entries}
	for i, e := range entries {
		c.byATA[e.ATA04] = i
	}
	c.fit()
	return c
}

func (c *Catalog) fit() {
	docs := make([]string, len(c.entries))
	for i, e := range c.entries {
		parts := []string{e.SystemName, strings.Join(e.Keywords, " "), strings.Join(e.Warnings, " ")}
		samples := e.SampleDescriptions
		if len(samples) > 5 {
			samples = samples[:5]
		}
		parts = append(parts, strings.Join(samples, " "))
		docs[i] = strings.ToLower(strings.Join(parts, " "))
	}

	c.vec = fitVectorizer(docs)
	c.vectors = make([][]termWeight, len(docs))
	for i, doc := range docs {
		c.vectors[i] = c.vec.transform(doc)
	}
}

// Predict returns the best-matching ATA04 for the defect text, with its
// cosine similarity. Scores at or below minScore, and empty or unmappable
// text, yield an absent signal rather than a low-confidence guess.
func (c *Catalog) Predict(text string, minScore float64) models.SimilaritySignal {
	if c == nil || strings.TrimSpace(text) == "" {
		return models.SimilaritySignal{}
	}

	query := c.vec.transform(text)
	if query == nil {
		return models.SimilaritySignal{}
	}

	bestIdx := -1
	bestScore := 0.0
	for i, vec := range c.vectors {
		score := cosine(query, vec)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	if bestIdx < 0 || bestScore <= minScore {
		return models.SimilaritySignal{}
	}
	// Rounding in the norm can push a perfect match a few ulps past 1.
	if bestScore > 1 {
		bestScore = 1
	}

	return models.SimilaritySignal{
		Present: true,
		ATA04:   c.entries[bestIdx].ATA04,
		Score:   bestScore,
		Snippet: c.entries[bestIdx].SystemName,
	}
}

// Info returns the catalog entry for a specific ATA04.
func (c *Catalog) Info(ata04 string) (Entry, bool) {
	if c == nil {
		return Entry{}, false
	}
	idx, ok := c.byATA[models.NormalizeATA(ata04)]
	if !ok {
		return Entry{}, false
	}
	return c.entries[idx], true
}

// Search returns entries whose name, keywords, or warnings contain the
// keyword, in catalog order. The batch path never calls it; it backs
// interactive catalog lookups in the operator tooling, like Info does for
// report annotation.
func (c *Catalog) Search(keyword string) []Entry {
	if c == nil || keyword == "" {
		return nil
	}
	needle := strings.ToLower(keyword)

	var out []Entry
	for _, e := range c.entries {
		if strings.Contains(strings.ToLower(e.SystemName), needle) {
			out = append(out, e)
			continue
		}
		if containsFold(e.Keywords, needle) || containsFold(e.Warnings, needle) {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of catalog entries.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

func containsFold(values []string, needle string) bool {
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}
