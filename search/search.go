// Package search provides the semantic-search collaborator: a Searcher
// contract and an in-process index scored by token cosine similarity.
package search

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"gopkg.in/yaml.v3"
)

// NoResults is returned by Format when no hit passes the threshold.
const NoResults = "No highly relevant results found. Try rephrasing your query or being more specific."

// Searcher returns up to k documents ranked by similarity to query.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]Hit, error)
}

// Document is an indexed item.
type Document struct {
	ID    string `yaml:"id"`
	Title string `yaml:"title"`
	Text  string `yaml:"text"`
}

// Hit is a ranked search result. Similarity is in [0, 1].
type Hit struct {
	Document
	Similarity float64
}

// Index is an in-memory Searcher. It is safe for concurrent use.
type Index struct {
	mu   sync.RWMutex
	docs []indexed
}

type indexed struct {
	doc  Document
	vec  map[string]float64
	norm float64
}

// NewIndex creates an index holding docs.
func NewIndex(docs ...Document) *Index {
	idx := &Index{}
	idx.Add(docs...)
	return idx
}

// LoadIndex reads a YAML list of documents.
//
//	- id: p1
//	  title: Wireless Headphones
//	  text: Noise cancelling over-ear bluetooth headphones
func LoadIndex(r io.Reader) (*Index, error) {
	var docs []Document
	if err := yaml.NewDecoder(r).Decode(&docs); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return NewIndex(docs...), nil
}

// Add indexes docs. Title and text are both searchable.
func (idx *Index) Add(docs ...Document) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, d := range docs {
		vec := termVector(d.Title + " " + d.Text)
		idx.docs = append(idx.docs, indexed{doc: d, vec: vec, norm: norm(vec)})
	}
}

// Len returns the number of indexed documents.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.docs)
}

// Search implements Searcher. Documents sharing no terms with query are
// never returned; ties keep insertion order.
func (idx *Index) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q := termVector(query)
	qn := norm(q)
	if qn == 0 || k <= 0 {
		return nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var hits []Hit
	for _, d := range idx.docs {
		if d.norm == 0 {
			continue
		}
		var dot float64
		for term, w := range q {
			dot += w * d.vec[term]
		}
		if dot == 0 {
			continue
		}
		hits = append(hits, Hit{Document: d.doc, Similarity: dot / (qn * d.norm)})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Filter keeps hits with Similarity >= threshold.
func Filter(hits []Hit, threshold float64) []Hit {
	var out []Hit
	for _, h := range hits {
		if h.Similarity >= threshold {
			out = append(out, h)
		}
	}
	return out
}

// Format renders hits as a numbered list with their similarity, or
// NoResults when hits is empty.
func Format(hits []Hit) string {
	if len(hits) == 0 {
		return NoResults
	}
	lines := make([]string, len(hits))
	for i, h := range hits {
		text := h.Text
		if h.Title != "" {
			text = h.Title + ": " + h.Text
		}
		lines[i] = fmt.Sprintf("%d. [Similarity: %.2f] %s", i+1, h.Similarity, text)
	}
	return strings.Join(lines, "\n")
}

// Titles renders hit titles as a bulleted list.
func Titles(hits []Hit) string {
	lines := make([]string, len(hits))
	for i, h := range hits {
		lines[i] = "• " + h.Title
	}
	return strings.Join(lines, "\n")
}

func termVector(text string) map[string]float64 {
	vec := make(map[string]float64)
	for _, tok := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(tok) < 2 || stopwords[tok] {
			continue
		}
		vec[tok]++
	}
	return vec
}

func norm(vec map[string]float64) float64 {
	var sum float64
	for _, w := range vec {
		sum += w * w
	}
	return math.Sqrt(sum)
}

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true, "be": true,
	"for": true, "in": true, "is": true, "it": true, "of": true, "on": true, "or": true,
	"the": true, "to": true, "with": true, "what": true, "me": true, "show": true,
}
