package catalog

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// vectorizer is a term-frequency / inverse-document-frequency model fitted
// over the catalog corpus. Raw term counts, smoothed idf ln((1+n)/(1+df))+1,
// L2-normalised rows; queries transform in the same space so cosine
// similarity is a plain dot product.
type vectorizer struct {
	vocab    map[string]int
	idf      []float64
	maxNGram int
}

const (
	defaultMaxFeatures = 5000
	defaultMaxNGram    = 3
	// Terms appearing in more than this fraction of documents carry no
	// discriminating power and are pruned.
	defaultMaxDocFreq = 0.8
)

var tokenPattern = regexp.MustCompile(`\b\w\w+\b`)

// english stop words removed before n-gram assembly.
var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`a about above after again against all am an and any are as at be because
		been before being below between both but by can did do does doing down during each few for from further had
		has have having he her here hers herself him himself his how i if in into is it its itself just me more most
		my myself no nor not now of off on once only or other our ours ourselves out over own same she should so some
		such than that the their theirs them themselves then there these they this those through to too under until up
		very was we were what when where which while who whom why will with you your yours yourself yourselves`) {
		stopWords[w] = struct{}{}
	}
}

// tokenize lowercases, splits on word boundaries, drops stop words and
// single-character fragments.
func tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	tokens := raw[:0]
	for _, tok := range raw {
		if _, stop := stopWords[tok]; stop {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// ngrams expands a token stream into all 1..max contiguous n-grams.
func ngrams(tokens []string, max int) []string {
	if max <= 1 {
		return tokens
	}
	out := make([]string, 0, len(tokens)*max)
	for n := 1; n <= max; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			out = append(out, strings.Join(tokens[i:i+n], " "))
		}
	}
	return out
}

// fitVectorizer builds the vocabulary and idf weights from the corpus
// documents. Terms present in more than maxDocFreq of documents are pruned;
// the vocabulary is capped at maxFeatures by descending corpus frequency
// (ties alphabetical) so the fit is deterministic.
func fitVectorizer(docs []string) *vectorizer {
	v := &vectorizer{vocab: make(map[string]int), maxNGram: defaultMaxNGram}

	docFreq := make(map[string]int)
	termFreq := make(map[string]int)
	for _, doc := range docs {
		terms := ngrams(tokenize(doc), v.maxNGram)
		seen := make(map[string]struct{}, len(terms))
		for _, term := range terms {
			termFreq[term]++
			if _, ok := seen[term]; !ok {
				seen[term] = struct{}{}
				docFreq[term]++
			}
		}
	}

	n := len(docs)
	dfCeil := int(math.Floor(defaultMaxDocFreq * float64(n)))
	if dfCeil < 1 {
		dfCeil = 1
	}

	kept := make([]string, 0, len(docFreq))
	for term, df := range docFreq {
		if n > 1 && df > dfCeil {
			continue
		}
		kept = append(kept, term)
	}
	sort.Slice(kept, func(i, j int) bool {
		if termFreq[kept[i]] != termFreq[kept[j]] {
			return termFreq[kept[i]] > termFreq[kept[j]]
		}
		return kept[i] < kept[j]
	})
	if len(kept) > defaultMaxFeatures {
		kept = kept[:defaultMaxFeatures]
	}
	// Vocabulary ids are assigned alphabetically so repeated fits over the
	// same corpus produce identical vectors.
	sort.Strings(kept)

	v.idf = make([]float64, len(kept))
	for id, term := range kept {
		v.vocab[term] = id
		v.idf[id] = math.Log(float64(1+n)/float64(1+docFreq[term])) + 1
	}
	return v
}

// termWeight is one component of a sparse vector, id-sorted within the slice.
type termWeight struct {
	id int
	w  float64
}

// transform maps text into a L2-normalised sparse vector in the fitted space,
// ordered by term id. Unknown terms are ignored; the norm and every later dot
// product sum in id order, so equal inputs produce bit-identical scores.
// Returns nil when nothing maps into the vocabulary.
func (v *vectorizer) transform(text string) []termWeight {
	counts := make(map[int]float64)
	for _, term := range ngrams(tokenize(text), v.maxNGram) {
		if id, ok := v.vocab[term]; ok {
			counts[id] += v.idf[id]
		}
	}
	if len(counts) == 0 {
		return nil
	}

	vec := make([]termWeight, 0, len(counts))
	for id, w := range counts {
		vec = append(vec, termWeight{id: id, w: w})
	}
	sort.Slice(vec, func(i, j int) bool { return vec[i].id < vec[j].id })

	var norm float64
	for _, t := range vec {
		norm += t.w * t.w
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i].w /= norm
	}
	return vec
}

// cosine is the dot product of two id-sorted L2-normalised sparse vectors.
func cosine(a, b []termWeight) float64 {
	var dot float64
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].id < b[j].id:
			i++
		case a[i].id > b[j].id:
			j++
		default:
			dot += a[i].w * b[j].w
			i++
			j++
		}
	}
	return dot
}
