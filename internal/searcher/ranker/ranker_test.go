package ranker

import (
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
)

type testCorpus struct {
	idx *index.Index
	n   int
}

func newCorpus() *testCorpus {
	return &testCorpus{idx: index.New()}
}

func (c *testCorpus) add(t testing.TB, docID, text string, maxChars int) {
	t.Helper()
	_, err := c.idx.AddDocument(docID, docID+".txt", text, index.AddOptions{
		MaxChars: maxChars,
		NewID: func() string {
			c.n++
			return fmt.Sprintf("chunk-%02d", c.n)
		},
		Now: func() time.Time { return time.Unix(int64(c.n), 0) },
	})
	require.NoError(t, err)
}

func TestRank_UniqueTermRanksFirst(t *testing.T) {
	c := newCorpus()
	c.add(t, "d1", strings.Join([]string{
		"Granite forms from slowly cooling magma underground.",
		"Basalt forms from rapidly cooling lava flows.",
		"Zephyrquartz crystals glow faintly under moonlight.",
		"Sandstone forms from compacted sand grains.",
	}, "\n"), 60)
	require.Equal(t, 4, c.idx.TotalChunks)

	got := Rank(c.idx, tokenizer.Tokenize("zephyrquartz"), 3, nil)
	require.NotEmpty(t, got)
	assert.Contains(t, got[0].Text, "Zephyrquartz")
	assert.Greater(t, got[0].Score, 0.0)
	assert.Len(t, got, 1)
}

func TestRank_AbsentTermScoresNothing(t *testing.T) {
	c := newCorpus()
	c.add(t, "d1", "Alpha beta gamma delta", 1200)

	got := Rank(c.idx, tokenizer.Tokenize("zzz"), 3, nil)
	assert.Empty(t, got)
}

func TestRank_NegativeIDFStillMatches(t *testing.T) {
	c := newCorpus()
	c.add(t, "d1", "alpha beta", 1200)
	require.Less(t, c.idx.IDF("alpha"), 0.0)

	got := Rank(c.idx, []string{"alpha"}, 3, nil)
	require.Len(t, got, 1)
	assert.InDelta(t, 1/math.Sqrt2, got[0].Score, 1e-6)
}

func TestRank_DocFilter(t *testing.T) {
	c := newCorpus()
	c.add(t, "d1", "orbital mechanics\nrocket propulsion\nheat shields", 20)
	c.add(t, "d2", "rocket gardens\nflower beds", 20)
	c.add(t, "d3", "kitchen recipes\nbaking bread", 20)
	tokens := tokenizer.Tokenize("rocket")

	all := Rank(c.idx, tokens, 10, nil)
	require.Len(t, all, 2)

	onlyD1 := Rank(c.idx, tokens, 10, map[string]struct{}{"d1": {}})
	require.Len(t, onlyD1, 1)
	assert.Equal(t, "d1", onlyD1[0].DocID)

	empty := Rank(c.idx, tokens, 10, map[string]struct{}{})
	assert.Equal(t, all, empty)

	none := Rank(c.idx, tokens, 10, map[string]struct{}{"never-ingested": {}})
	assert.Empty(t, none)
}

func TestRank_TiesKeepInsertionOrder(t *testing.T) {
	c := newCorpus()
	c.add(t, "first", "apple banana", 1200)
	c.add(t, "second", "apple banana", 1200)
	c.add(t, "third", "cherry grape", 1200)
	c.add(t, "fourth", "kiwi mango", 1200)

	got := Rank(c.idx, []string{"apple"}, 3, nil)
	require.Len(t, got, 2)
	assert.Equal(t, got[0].Score, got[1].Score)
	assert.Equal(t, []string{"first", "second"}, []string{got[0].DocID, got[1].DocID})
}

func TestRank_TopKAppliedBeforeDroppingZeros(t *testing.T) {
	c := newCorpus()
	c.add(t, "d1", "solar panels\nwind turbines\nsolar farms\nhydro dams\ngeothermal wells", 15)

	got := Rank(c.idx, []string{"solar"}, 1, nil)
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Text, "solar")

	got = Rank(c.idx, []string{"solar"}, 0, nil)
	assert.Len(t, got, 2, "non-positive topK falls back to the default")
}

func TestRank_Deterministic(t *testing.T) {
	c := newCorpus()
	text := strings.Repeat("vector space models weigh rare terms heavily\nranking uses cosine similarity between vectors\n", 10)
	c.add(t, "d1", text, 80)
	c.add(t, "d2", text, 80)
	tokens := tokenizer.Tokenize("rare vector terms cosine similarity")

	first := Rank(c.idx, tokens, 10, nil)
	for i := 0; i < 20; i++ {
		again := Rank(c.idx, tokens, 10, nil)
		require.Equal(t, len(first), len(again))
		for j := range first {
			assert.Equal(t, math.Float64bits(first[j].Score), math.Float64bits(again[j].Score))
			assert.Equal(t, first[j].ChunkID, again[j].ChunkID)
		}
	}
}

func TestRank_ScoresShiftAsCorpusGrows(t *testing.T) {
	c := newCorpus()
	c.add(t, "d1", "telescope lenses\nmirror coatings\ntripod mounts", 20)
	before := Rank(c.idx, []string{"telescope", "mirror"}, 3, nil)
	c.add(t, "d2", "mirror polishing\nmirror grinding\nglass blanks", 20)
	after := Rank(c.idx, []string{"telescope", "mirror"}, 3, nil)

	require.NotEmpty(t, before)
	require.NotEmpty(t, after)
	assert.NotEqual(t, before[0].Score, after[0].Score)
}

func TestCosine(t *testing.T) {
	a := Vector{{"alpha", 1}, {"beta", 2}}
	b := Vector{{"beta", 2}, {"gamma", 5}}
	assert.InDelta(t, 4/(math.Sqrt(5)*math.Sqrt(29)), Cosine(a, b), 1e-9)
	assert.InDelta(t, 1.0, Cosine(a, a), 1e-9)
	assert.Equal(t, 0.0, Cosine(Vector{}, Vector{}))
	assert.Equal(t, 0.0, Cosine(Vector{{"x", math.Inf(1)}}, Vector{{"x", math.Inf(1)}}))
}

func TestRank_ScoresMatchCosine(t *testing.T) {
	c := newCorpus()
	c.add(t, "d1", "Refunds for annual plans are issued within fourteen days.\nMonthly plans renew automatically.", 60)
	c.add(t, "d2", "Annual invoices are emailed on the first business day.", 1200)
	tokens := tokenizer.Tokenize("annual plans refunds")

	byID := make(map[string]float64)
	for _, ch := range c.idx.Chunks {
		byID[ch.ID] = Cosine(QueryVector(c.idx, tokens), ChunkVector(c.idx, ch.TermFrequency))
	}
	got := Rank(c.idx, tokens, 10, nil)
	require.NotEmpty(t, got)
	for _, s := range got {
		assert.InDelta(t, byID[s.ChunkID], s.Score, 1e-12, s.ChunkID)
	}
}

func TestQueryVector_NormalisedAndSorted(t *testing.T) {
	idx := index.New()
	vec := QueryVector(idx, []string{"zeta", "alpha", "zeta"})
	require.Len(t, vec, 2)
	assert.Equal(t, "alpha", vec[0].Term)
	assert.Equal(t, "zeta", vec[1].Term)
	// empty index: N=1, df=0 so idf = ln(1) = 0
	assert.Equal(t, 0.0, vec[0].Value)

	idx.TotalChunks = 10
	vec = QueryVector(idx, []string{"zeta", "alpha", "zeta"})
	assert.InDelta(t, 0.5*math.Log(10), vec[0].Value, 1e-12)
	assert.InDelta(t, math.Log(10), vec[1].Value, 1e-12)
}

func TestChunkVector(t *testing.T) {
	idx := index.New()
	idx.TotalChunks = 4
	idx.DocumentFrequency["beta"] = 1
	vec := ChunkVector(idx, map[string]float64{"beta": 1, "alpha": 0.5})
	require.Len(t, vec, 2)
	assert.Equal(t, "alpha", vec[0].Term)
	assert.InDelta(t, 0.5*math.Log(4), vec[0].Value, 1e-12)
	assert.InDelta(t, math.Log(2), vec[1].Value, 1e-12)
}
