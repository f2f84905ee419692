package executor

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/store"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
)

var searchCfg = config.SearchConfig{DefaultTopK: 3, MaxTopK: 50}

type seed struct {
	docID    string
	text     string
	maxChars int
}

func newStore(t *testing.T, docs ...seed) *store.FileStore {
	t.Helper()
	st := store.NewFileStore(filepath.Join(t.TempDir(), "vectorstore.json"))
	if len(docs) == 0 {
		return st
	}
	idx := index.New()
	n := 0
	for _, d := range docs {
		_, err := idx.AddDocument(d.docID, d.docID+".txt", d.text, index.AddOptions{
			MaxChars: d.maxChars,
			NewID: func() string {
				n++
				return "chunk-" + strconv.Itoa(n)
			},
			Now: time.Now,
		})
		require.NoError(t, err)
	}
	require.NoError(t, st.Save(context.Background(), idx))
	return st
}

const biology = "Photosynthesis converts light energy.\nMitochondria produce cellular energy.\nRibosomes assemble proteins."

func TestExecute_EmptyIndex(t *testing.T) {
	e := New(newStore(t), searchCfg, nil, nil)
	_, err := e.Execute(context.Background(), &Request{Message: "hello"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrEmptyIndex)
	assert.Equal(t, apperrors.CodeEmptyIndex, apperrors.Code(err))
}

func TestExecute_EmptyIndexReportedBeforeMissingMessage(t *testing.T) {
	e := New(newStore(t), searchCfg, nil, nil)
	_, err := e.Execute(context.Background(), &Request{})
	assert.ErrorIs(t, err, apperrors.ErrEmptyIndex)
}

func TestExecute_MissingMessage(t *testing.T) {
	e := New(newStore(t, seed{"d1", "Alpha beta gamma delta", 1200}), searchCfg, nil, nil)
	_, err := e.Execute(context.Background(), &Request{Message: ""})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrMissingInput)
	assert.Equal(t, "No message provided", apperrors.Message(err))
}

func TestExecute_AbsentTermHasNoRelevantContent(t *testing.T) {
	e := New(newStore(t, seed{"d1", "Alpha beta gamma delta", 1200}), searchCfg, nil, nil)
	res, err := e.Execute(context.Background(), &Request{Message: "zzz"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoRelevantContent, res.Outcome)
	assert.Equal(t, MessageNoRelevantContent, res.Answer)
	assert.Empty(t, res.Sources)
}

func TestExecute_DocFilter(t *testing.T) {
	st := newStore(t, seed{"D1", biology, 40})
	idx, err := st.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, idx.TotalChunks)
	e := New(st, searchCfg, nil, nil)

	res, err := e.Execute(context.Background(), &Request{Message: "ribosomes", Docs: []string{"D1"}})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAnswered, res.Outcome)
	require.Len(t, res.Sources, 1)
	assert.Equal(t, "D1", res.Sources[0].DocID)

	res, err = e.Execute(context.Background(), &Request{Message: "ribosomes", Docs: []string{"D2"}})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoRelevantContent, res.Outcome)
}

func TestExecute_StopWordsOnly(t *testing.T) {
	e := New(newStore(t, seed{"d1", biology, 40}), searchCfg, nil, nil)
	res, err := e.Execute(context.Background(), &Request{Message: "the and of"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeInsufficientQuery, res.Outcome)
	assert.Equal(t, MessageInsufficientQuery, res.Answer)
	assert.NotNil(t, res.Sources)
}

func TestExecute_AnswerFormat(t *testing.T) {
	e := New(newStore(t, seed{"d1", biology, 40}, seed{"d2", biology, 40}), searchCfg, nil, nil)
	res, err := e.Execute(context.Background(), &Request{Message: "ribosomes"})
	require.NoError(t, err)
	require.Equal(t, OutcomeAnswered, res.Outcome)
	require.Len(t, res.Sources, 2)

	want := "[Source 1] (doc: d1)\n\nRibosomes assemble proteins." +
		"\n\n---\n\n" +
		"[Source 2] (doc: d2)\n\nRibosomes assemble proteins."
	assert.Equal(t, want, res.Answer)
}

func TestExecute_TopKDefaultsAndCaps(t *testing.T) {
	paras := make([]string, 0, 8)
	for i := 0; i < 8; i++ {
		paras = append(paras, "shared keyword paragraph number "+strconv.Itoa(i))
	}
	paras = append(paras, "unrelated filler text", "more unrelated filler", "yet another filler line")
	st := newStore(t, seed{"d1", strings.Join(paras, "\n"), 40})

	e := New(st, config.SearchConfig{DefaultTopK: 3, MaxTopK: 5}, nil, nil)

	res, err := e.Execute(context.Background(), &Request{Message: "keyword"})
	require.NoError(t, err)
	assert.Len(t, res.Sources, 3)

	res, err = e.Execute(context.Background(), &Request{Message: "keyword", TopK: 100})
	require.NoError(t, err)
	assert.Len(t, res.Sources, 5)

	res, err = e.Execute(context.Background(), &Request{Message: "keyword", TopK: 1})
	require.NoError(t, err)
	assert.Len(t, res.Sources, 1)
}

func TestExecute_DeterministicAcrossCalls(t *testing.T) {
	e := New(newStore(t, seed{"d1", biology, 40}, seed{"d2", biology, 40}), searchCfg, nil, nil)
	first, err := e.Execute(context.Background(), &Request{Message: "cellular energy proteins", TopK: 10})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := e.Execute(context.Background(), &Request{Message: "cellular energy proteins", TopK: 10})
		require.NoError(t, err)
		assert.Equal(t, first.Answer, again.Answer)
		assert.Equal(t, first.Sources, again.Sources)
	}
}

func TestExecute_UsesCacheAndRecordsMetrics(t *testing.T) {
	backend, err := cache.NewMemoryBackend(32)
	require.NoError(t, err)
	qc := cache.New(backend)
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	e := New(newStore(t, seed{"d1", biology, 40}), searchCfg, qc, m)

	first, err := e.Execute(context.Background(), &Request{Message: "ribosomes proteins"})
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := e.Execute(context.Background(), &Request{Message: "proteins ribosomes"})
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Sources, second.Sources)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues(string(OutcomeAnswered))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMissesTotal))
}

func TestExecute_CacheMissesAfterStoreReplaced(t *testing.T) {
	backend, err := cache.NewMemoryBackend(32)
	require.NoError(t, err)
	st := newStore(t, seed{"d1", biology, 40})
	e := New(st, searchCfg, cache.New(backend), nil)

	first, err := e.Execute(context.Background(), &Request{Message: "assemble ribosomes"})
	require.NoError(t, err)
	require.Equal(t, OutcomeAnswered, first.Outcome)

	// same chunk count, different record: another writer started over
	replaced := index.New()
	n := 0
	_, err = replaced.AddDocument("d9", "d9.txt",
		"Ribosomes assemble proteins quickly.\nProteins fold after synthesis.\nRibosomes read messenger RNA.",
		index.AddOptions{
			MaxChars: 40,
			NewID: func() string {
				n++
				return "reset-" + strconv.Itoa(n)
			},
			Now: time.Now,
		})
	require.NoError(t, err)
	require.Equal(t, 3, replaced.TotalChunks)
	require.NoError(t, st.Save(context.Background(), replaced))

	second, err := e.Execute(context.Background(), &Request{Message: "assemble ribosomes"})
	require.NoError(t, err)
	assert.False(t, second.CacheHit)
	require.NotEmpty(t, second.Sources)
	for _, s := range second.Sources {
		assert.Equal(t, "d9", s.DocID)
	}
}

func TestExecute_LargeTopKUncappedByDefault(t *testing.T) {
	paras := make([]string, 0, 60)
	for i := 0; i < 60; i++ {
		paras = append(paras, "shared keyword paragraph number "+strconv.Itoa(i))
	}
	paras = append(paras, "unrelated filler text", "more unrelated filler", "yet another filler line")
	st := newStore(t, seed{"d1", strings.Join(paras, "\n"), 40})
	e := New(st, config.Default().Search, nil, nil)

	res, err := e.Execute(context.Background(), &Request{Message: "keyword", TopK: 55})
	require.NoError(t, err)
	assert.Len(t, res.Sources, 55)
}

type brokenStore struct{}

func (brokenStore) Load(context.Context) (*index.Index, error) { return nil, errors.New("disk on fire") }
func (brokenStore) Save(context.Context, *index.Index) error    { return errors.New("disk on fire") }

func TestExecute_StoreFailureIsInternal(t *testing.T) {
	e := New(brokenStore{}, searchCfg, nil, nil)
	_, err := e.Execute(context.Background(), &Request{Message: "anything"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInternal)
	assert.Equal(t, 500, apperrors.HTTPStatusCode(err))
}

func TestFormatAnswer(t *testing.T) {
	assert.Equal(t, "", FormatAnswer(nil))
	assert.Equal(t, "[Source 1] (doc: x)\n\nhello", FormatAnswer([]Source{{DocID: "x", Text: "hello"}}))
}
