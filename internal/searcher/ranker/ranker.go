// Package ranker scores indexed chunks against a query with TF-IDF weighted
// cosine similarity. IDF is derived from the index statistics at call time,
// so the same query can score differently after more documents are ingested.
package ranker

import (
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
)

// DefaultTopK is used when the caller asks for fewer than one result.
const DefaultTopK = 3

const epsilon = 1e-10

// Weight is one non-zero component of a sparse vector.
type Weight struct {
	Term  string
	Value float64
}

// Vector is a sparse TF-IDF vector ordered by term. Keeping a fixed order
// makes every sum over it reproducible to the last bit.
type Vector []Weight

// ScoredChunk is one ranked passage.
type ScoredChunk struct {
	ChunkID string  `json:"chunkId"`
	DocID   string  `json:"docId"`
	Text    string  `json:"text"`
	Score   float64 `json:"score"`
}

type idfFunc func(term string) float64

// memoIDF evaluates idx.IDF at most once per term for the lifetime of one
// ranking pass.
func memoIDF(idx *index.Index) idfFunc {
	seen := make(map[string]float64)
	return func(term string) float64 {
		if v, ok := seen[term]; ok {
			return v
		}
		v := idx.IDF(term)
		seen[term] = v
		return v
	}
}

// QueryVector weights the query's own normalised term counts by IDF.
func QueryVector(idx *index.Index, tokens []string) Vector {
	return queryVector(tokens, memoIDF(idx))
}

func queryVector(tokens []string, idf idfFunc) Vector {
	counts := tokenizer.Counts(tokens)
	maxCount := 0
	for _, c := range counts {
		if c > maxCount {
			maxCount = c
		}
	}
	vec := make(Vector, 0, len(counts))
	for term, c := range counts {
		vec = append(vec, Weight{Term: term, Value: float64(c) / float64(maxCount) * idf(term)})
	}
	sortVector(vec)
	return vec
}

// ChunkVector weights a chunk's stored term frequencies by IDF.
func ChunkVector(idx *index.Index, tf map[string]float64) Vector {
	return chunkVector(tf, memoIDF(idx))
}

func chunkVector(tf map[string]float64, idf idfFunc) Vector {
	vec := make(Vector, 0, len(tf))
	for term, f := range tf {
		vec = append(vec, Weight{Term: term, Value: f * idf(term)})
	}
	sortVector(vec)
	return vec
}

func sortVector(v Vector) {
	sort.Slice(v, func(i, j int) bool { return v[i].Term < v[j].Term })
}

// Norm is the Euclidean length of v.
func (v Vector) Norm() float64 {
	var sum float64
	for _, w := range v {
		sum += w.Value * w.Value
	}
	return math.Sqrt(sum)
}

// Dot multiplies the components both vectors share, walking them in term
// order.
func Dot(a, b Vector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].Term == b[j].Term:
			sum += a[i].Value * b[j].Value
			i++
			j++
		case a[i].Term < b[j].Term:
			i++
		default:
			j++
		}
	}
	return sum
}

// Cosine returns dot(a,b) / ((|a|+ε)(|b|+ε)). Non-finite results become 0.
func Cosine(a, b Vector) float64 {
	return cosineWithNorm(a, a.Norm(), b)
}

// cosineWithNorm is Cosine with the first vector's norm already computed.
func cosineWithNorm(a Vector, aNorm float64, b Vector) float64 {
	score := Dot(a, b) / ((aNorm + epsilon) * (b.Norm() + epsilon))
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0
	}
	return score
}

// Rank scores every chunk allowed by docFilter against tokens, orders them
// by descending score with ties kept in insertion order, keeps the first
// topK, and then drops anything that did not score above zero. An empty
// filter allows every chunk.
func Rank(idx *index.Index, tokens []string, topK int, docFilter map[string]struct{}) []ScoredChunk {
	if topK < 1 {
		topK = DefaultTopK
	}
	idf := memoIDF(idx)
	query := queryVector(tokens, idf)
	queryNorm := query.Norm()

	scored := make([]ScoredChunk, 0, len(idx.Chunks))
	for _, c := range idx.Chunks {
		if len(docFilter) > 0 {
			if _, ok := docFilter[c.DocID]; !ok {
				continue
			}
		}
		score := cosineWithNorm(query, queryNorm, chunkVector(c.TermFrequency, idf))
		scored = append(scored, ScoredChunk{
			ChunkID: c.ID,
			DocID:   c.DocID,
			Text:    c.Text,
			Score:   score,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}
	results := make([]ScoredChunk, 0, len(scored))
	for _, s := range scored {
		if s.Score > 0 {
			results = append(results, s)
		}
	}
	return results
}
