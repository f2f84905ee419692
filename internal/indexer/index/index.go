// Package index holds the term-statistics record that backs retrieval:
// documents, their chunks with chunk-local term frequencies, and the global
// per-term chunk counts. The record is append-only; nothing is ever edited
// or removed once written.
package index

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/chunker"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

// DocumentMeta describes one ingested document.
type DocumentMeta struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	ChunkCount int       `json:"chunkCount"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// ChunkRecord is one indexed passage. TermFrequency maps each term to its raw
// count divided by the count of the most frequent term in the same chunk.
type ChunkRecord struct {
	ID            string             `json:"id"`
	DocID         string             `json:"docId"`
	Text          string             `json:"text"`
	TermFrequency map[string]float64 `json:"tf"`
}

// Index is the whole persisted record. TotalChunks always equals
// len(Chunks); DocumentFrequency[t] is the number of chunks whose
// TermFrequency contains t.
type Index struct {
	Documents         map[string]DocumentMeta `json:"docs"`
	Chunks            []ChunkRecord           `json:"chunks"`
	DocumentFrequency map[string]int          `json:"df"`
	TotalChunks       int                     `json:"totalChunks"`
}

// Stats summarises the size of an Index.
type Stats struct {
	Documents int `json:"documents"`
	Chunks    int `json:"chunks"`
	Terms     int `json:"terms"`
}

// AddOptions carries the collaborators AddDocument needs.
type AddOptions struct {
	MaxChars int
	NewID    func() string
	Now      func() time.Time
}

var errMalformed = errors.New("malformed index")

// New returns an empty Index.
func New() *Index {
	return &Index{
		Documents:         make(map[string]DocumentMeta),
		Chunks:            make([]ChunkRecord, 0),
		DocumentFrequency: make(map[string]int),
	}
}

// Normalize replaces nil collections left over from decoding with empty ones.
func (idx *Index) Normalize() {
	if idx.Documents == nil {
		idx.Documents = make(map[string]DocumentMeta)
	}
	if idx.Chunks == nil {
		idx.Chunks = make([]ChunkRecord, 0)
	}
	if idx.DocumentFrequency == nil {
		idx.DocumentFrequency = make(map[string]int)
	}
	for i := range idx.Chunks {
		if idx.Chunks[i].TermFrequency == nil {
			idx.Chunks[i].TermFrequency = make(map[string]float64)
		}
	}
}

// Validate checks the structural invariants of a decoded record.
func (idx *Index) Validate() error {
	if idx.TotalChunks != len(idx.Chunks) {
		return fmt.Errorf("%w: totalChunks=%d but %d chunks stored", errMalformed, idx.TotalChunks, len(idx.Chunks))
	}
	for i, c := range idx.Chunks {
		if _, ok := idx.Documents[c.DocID]; !ok {
			return fmt.Errorf("%w: chunk %d references unknown document %q", errMalformed, i, c.DocID)
		}
	}
	for term, df := range idx.DocumentFrequency {
		if df < 0 {
			return fmt.Errorf("%w: negative document frequency for %q", errMalformed, term)
		}
	}
	return nil
}

// IsMalformed reports whether err came from Validate.
func IsMalformed(err error) bool {
	return errors.Is(err, errMalformed)
}

// AddDocument chunks and tokenizes text and appends the result to the index.
// It returns the number of chunks written. Blank text is rejected before the
// index is touched.
func (idx *Index) AddDocument(docID, name, text string, opts AddOptions) (int, error) {
	if strings.TrimSpace(text) == "" {
		return 0, apperrors.EmptyContent()
	}
	if _, exists := idx.Documents[docID]; exists {
		return 0, fmt.Errorf("document %q already indexed", docID)
	}
	chunks := chunker.Chunk(text, opts.MaxChars)
	for _, chunkText := range chunks {
		tf := termFrequencies(tokenizer.Tokenize(chunkText))
		for term := range tf {
			idx.DocumentFrequency[term]++
		}
		idx.Chunks = append(idx.Chunks, ChunkRecord{
			ID:            opts.NewID(),
			DocID:         docID,
			Text:          chunkText,
			TermFrequency: tf,
		})
		idx.TotalChunks++
	}
	idx.Documents[docID] = DocumentMeta{
		ID:         docID,
		Name:       name,
		ChunkCount: len(chunks),
		UploadedAt: opts.Now().UTC(),
	}
	return len(chunks), nil
}

// IDF returns ln(N / (1 + df)) with N = max(1, TotalChunks). It is computed
// from the current statistics on every call and may be negative.
func (idx *Index) IDF(term string) float64 {
	n := idx.TotalChunks
	if n < 1 {
		n = 1
	}
	return math.Log(float64(n) / float64(1+idx.DocumentFrequency[term]))
}

// Document returns the metadata for id.
func (idx *Index) Document(id string) (DocumentMeta, bool) {
	d, ok := idx.Documents[id]
	return d, ok
}

// ListDocuments returns all documents ordered by upload time, then id.
func (idx *Index) ListDocuments() []DocumentMeta {
	docs := make([]DocumentMeta, 0, len(idx.Documents))
	for _, d := range idx.Documents {
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].UploadedAt.Equal(docs[j].UploadedAt) {
			return docs[i].UploadedAt.Before(docs[j].UploadedAt)
		}
		return docs[i].ID < docs[j].ID
	})
	return docs
}

// Stats reports document, chunk and distinct-term counts.
func (idx *Index) Stats() Stats {
	return Stats{
		Documents: len(idx.Documents),
		Chunks:    idx.TotalChunks,
		Terms:     len(idx.DocumentFrequency),
	}
}

// Generation identifies the current contents of the record. Chunks are only
// appended and their ids are unique, so the last chunk id together with the
// chunk count changes whenever the record does, including after a reset and
// re-ingest that lands on an earlier chunk count.
func (idx *Index) Generation() string {
	if len(idx.Chunks) == 0 {
		return "0"
	}
	return fmt.Sprintf("%d:%s", len(idx.Chunks), idx.Chunks[len(idx.Chunks)-1].ID)
}

// termFrequencies normalises raw counts by the largest count. An empty token
// list yields an empty map.
func termFrequencies(tokens []string) map[string]float64 {
	counts := tokenizer.Counts(tokens)
	maxCount := 1
	for _, c := range counts {
		if c > maxCount {
			maxCount = c
		}
	}
	tf := make(map[string]float64, len(counts))
	for term, c := range counts {
		tf[term] = float64(c) / float64(maxCount)
	}
	return tf
}
