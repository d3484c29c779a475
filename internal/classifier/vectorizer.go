package classifier

import (
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var ErrEmptyVocabulary = errors.New("empty vocabulary: patterns contain no tokens")

// Tokens are maximal runs of two or more word characters, so single-letter
// words such as "a" or "I" never become features. Combining marks belong to
// the word they follow.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{M}\p{N}_]{2,}`)

// SparseVector is a feature vector stored as parallel index/value slices
// sorted by index. Absent indices are zero.
type SparseVector struct {
	Indices []int
	Values  []float64
}

// Len returns the number of non-zero entries.
func (v SparseVector) Len() int {
	return len(v.Indices)
}

// Vectorizer turns text into L2-normalised TF-IDF vectors over word n-grams.
// It must be fitted once; after that Transform only reads frozen state and
// is safe for concurrent use.
type Vectorizer struct {
	minN, maxN int
	vocabulary map[string]int
	terms      []string
	idf        []float64
}

// NewVectorizer creates a vectorizer for n-grams of length minN through maxN.
func NewVectorizer(minN, maxN int) *Vectorizer {
	if minN < 1 {
		minN = 1
	}
	if maxN < minN {
		maxN = minN
	}
	return &Vectorizer{minN: minN, maxN: maxN}
}

// Tokenize lowercases text with full Unicode case mapping and splits it
// into word tokens.
func Tokenize(text string) []string {
	// a Caser is stateful, so each call gets its own
	lower := cases.Lower(language.Und).String(text)
	return tokenPattern.FindAllString(lower, -1)
}

func (v *Vectorizer) ngrams(text string) []string {
	tokens := Tokenize(text)
	if v.maxN == 1 {
		return tokens
	}

	var grams []string
	for n := v.minN; n <= v.maxN; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			grams = append(grams, strings.Join(tokens[i:i+n], " "))
		}
	}
	return grams
}

// Fit learns the vocabulary and inverse document frequencies from docs.
// Terms are indexed in lexicographic order.
func (v *Vectorizer) Fit(docs []string) error {
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{})
		for _, g := range v.ngrams(doc) {
			if _, ok := seen[g]; ok {
				continue
			}
			seen[g] = struct{}{}
			df[g]++
		}
	}
	if len(df) == 0 {
		return ErrEmptyVocabulary
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	n := float64(len(docs))
	vocabulary := make(map[string]int, len(terms))
	idf := make([]float64, len(terms))
	for i, term := range terms {
		vocabulary[term] = i
		// smoothed: as if one extra document contained every term
		idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	v.terms = terms
	v.vocabulary = vocabulary
	v.idf = idf
	return nil
}

// Transform encodes text with the fitted vocabulary. Unknown n-grams are
// dropped; text with no known n-grams yields an empty vector.
func (v *Vectorizer) Transform(text string) SparseVector {
	counts := make(map[int]float64)
	for _, g := range v.ngrams(text) {
		if idx, ok := v.vocabulary[g]; ok {
			counts[idx]++
		}
	}
	if len(counts) == 0 {
		return SparseVector{}
	}

	indices := make([]int, 0, len(counts))
	for idx := range counts {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	values := make([]float64, len(indices))
	var norm float64
	for i, idx := range indices {
		w := counts[idx] * v.idf[idx]
		values[i] = w
		norm += w * w
	}
	norm = math.Sqrt(norm)
	for i := range values {
		values[i] /= norm
	}

	return SparseVector{Indices: indices, Values: values}
}

// FitTransform fits on docs and returns their encodings.
func (v *Vectorizer) FitTransform(docs []string) ([]SparseVector, error) {
	if err := v.Fit(docs); err != nil {
		return nil, err
	}
	out := make([]SparseVector, len(docs))
	for i, doc := range docs {
		out[i] = v.Transform(doc)
	}
	return out, nil
}

// Dim returns the vocabulary size.
func (v *Vectorizer) Dim() int {
	return len(v.terms)
}

// Vocabulary returns the fitted terms in index order.
func (v *Vectorizer) Vocabulary() []string {
	out := make([]string, len(v.terms))
	copy(out, v.terms)
	return out
}

// IDF returns the inverse document frequency of term, if known.
func (v *Vectorizer) IDF(term string) (float64, bool) {
	idx, ok := v.vocabulary[term]
	if !ok {
		return 0, false
	}
	return v.idf[idx], true
}
