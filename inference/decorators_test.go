package inference

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoblog/config"
	"autoblog/models"
	"autoblog/trace"
)

type stubSummarizer struct {
	calls int
	out   *Summary
	err   error
}

func (s *stubSummarizer) Summarize(ctx context.Context, req SummarizeRequest) (*Summary, error) {
	s.calls++
	return s.out, s.err
}

type stubTagger struct {
	calls int
	out   *Ranking
	err   error
}

func (s *stubTagger) Rank(ctx context.Context, text string, labels []string) (*Ranking, error) {
	s.calls++
	return s.out, s.err
}

type memoryRecorder struct {
	mu      sync.Mutex
	entries []models.AILog
	err     error
}

func (r *memoryRecorder) Record(ctx context.Context, entry models.AILog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return r.err
}

type countingLimiter struct {
	calls int
	err   error
}

func (l *countingLimiter) Reserve(ctx context.Context) error {
	l.calls++
	return l.err
}

// mapCache round-trips through the same value types the redis cache decodes into.
type mapCache struct {
	summaries map[string]Summary
	rankings  map[string]Ranking
	getErr    error
}

func newMapCache() *mapCache {
	return &mapCache{summaries: map[string]Summary{}, rankings: map[string]Ranking{}}
}

func (c *mapCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	if c.getErr != nil {
		return false, c.getErr
	}
	switch d := dest.(type) {
	case *Summary:
		v, ok := c.summaries[key]
		*d = v
		return ok, nil
	case *Ranking:
		v, ok := c.rankings[key]
		*d = v
		return ok, nil
	}
	return false, nil
}

func (c *mapCache) Set(ctx context.Context, key string, value any) error {
	switch v := value.(type) {
	case *Summary:
		c.summaries[key] = *v
	case *Ranking:
		c.rankings[key] = *v
	}
	return nil
}

func TestObserveRecordsSuccessAndFailure(t *testing.T) {
	rec := &memoryRecorder{}
	ctx := trace.WithRequestAndSpan(context.Background(), "req-1", 0)

	ok := Observe(&stubSummarizer{out: &Summary{Text: "short", Model: "bart"}}, ProviderHuggingFace, rec)
	_, err := ok.Summarize(ctx, SummarizeRequest{Text: "input text"})
	require.NoError(t, err)

	boom := errors.New("boom")
	bad := ObserveTagger(&stubTagger{err: boom}, ProviderGoogle, rec)
	_, err = bad.Rank(ctx, "input", []string{"a"})
	assert.ErrorIs(t, err, boom)

	require.Len(t, rec.entries, 2)

	first := rec.entries[0]
	assert.Equal(t, models.AILogKindSummarize, first.Kind)
	assert.Equal(t, ProviderHuggingFace, first.Provider)
	assert.Equal(t, "bart", first.ModelName)
	assert.Equal(t, "req-1", first.RequestID)
	assert.True(t, first.Success)
	assert.Nil(t, first.ErrorMessage)
	assert.Equal(t, "input text", first.InputExcerpt)
	assert.Equal(t, "short", first.OutputResponse)

	second := rec.entries[1]
	assert.Equal(t, models.AILogKindTag, second.Kind)
	assert.False(t, second.Success)
	require.NotNil(t, second.ErrorMessage)
	assert.Equal(t, "boom", *second.ErrorMessage)
}

func TestObserveIgnoresRecorderFailure(t *testing.T) {
	rec := &memoryRecorder{err: errors.New("mongo down")}
	s := Observe(&stubSummarizer{out: &Summary{Text: "ok"}}, ProviderHuggingFace, rec)

	out, err := s.Summarize(context.Background(), SummarizeRequest{Text: "x"})
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Text)
}

func TestLimitBlocksCallWhenQuotaRefuses(t *testing.T) {
	quotaErr := errors.New("quota")
	inner := &stubSummarizer{out: &Summary{Text: "x"}}
	lim := &countingLimiter{err: quotaErr}

	_, err := Limit(inner, lim).Summarize(context.Background(), SummarizeRequest{Text: "x"})
	assert.ErrorIs(t, err, quotaErr)
	assert.Equal(t, 0, inner.calls)

	tagger := &stubTagger{out: &Ranking{}}
	_, err = LimitTagger(tagger, lim).Rank(context.Background(), "x", []string{"a"})
	assert.ErrorIs(t, err, quotaErr)
	assert.Equal(t, 0, tagger.calls)
}

func TestCachedServesRepeatedInput(t *testing.T) {
	c := newMapCache()
	inner := &stubSummarizer{out: &Summary{Text: "sum", Model: "m"}}
	s := Cached(inner, c, ProviderHuggingFace, "m")

	req := SummarizeRequest{Text: "same", MinWords: 25, MaxWords: 50}
	first, err := s.Summarize(context.Background(), req)
	require.NoError(t, err)
	second, err := s.Summarize(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, first.Text, second.Text)

	// different band is a different key
	_, err = s.Summarize(context.Background(), SummarizeRequest{Text: "same", MinWords: 10, MaxWords: 20})
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedTaggerKeysOnLabels(t *testing.T) {
	c := newMapCache()
	inner := &stubTagger{out: &Ranking{Labels: []string{"a", "b"}, Scores: []float64{1, 0}}}
	tg := CachedTagger(inner, c, ProviderHuggingFace, "m")

	_, err := tg.Rank(context.Background(), "t", []string{"a", "b"})
	require.NoError(t, err)
	_, err = tg.Rank(context.Background(), "t", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)

	_, err = tg.Rank(context.Background(), "t", []string{"a", "c"})
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedKeysOnProvider(t *testing.T) {
	c := newMapCache()
	hf := &stubSummarizer{out: &Summary{Text: "from hf", Model: "m"}}
	google := &stubSummarizer{out: &Summary{Text: "from google", Model: "m"}}
	req := SummarizeRequest{Text: "same", MinWords: 25, MaxWords: 50}

	_, err := Cached(hf, c, ProviderHuggingFace, "m").Summarize(context.Background(), req)
	require.NoError(t, err)
	out, err := Cached(google, c, ProviderGoogle, "m").Summarize(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "from google", out.Text)
	assert.Equal(t, 1, google.calls)

	tagHF := &stubTagger{out: &Ranking{Labels: []string{"a"}, Scores: []float64{1}}}
	tagGoogle := &stubTagger{out: &Ranking{Labels: []string{"a"}, Scores: []float64{1}}}
	_, err = CachedTagger(tagHF, c, ProviderHuggingFace, "m").Rank(context.Background(), "t", []string{"a"})
	require.NoError(t, err)
	_, err = CachedTagger(tagGoogle, c, ProviderGoogle, "m").Rank(context.Background(), "t", []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, 1, tagGoogle.calls)
}

func TestCachedFallsThroughOnCacheError(t *testing.T) {
	c := newMapCache()
	c.getErr = errors.New("redis down")
	inner := &stubSummarizer{out: &Summary{Text: "sum"}}

	out, err := Cached(inner, c, ProviderHuggingFace, "m").Summarize(context.Background(), SummarizeRequest{Text: "x"})
	require.NoError(t, err)
	assert.Equal(t, "sum", out.Text)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedDoesNotStoreErrors(t *testing.T) {
	c := newMapCache()
	inner := &stubSummarizer{err: errors.New("fail")}
	s := Cached(inner, c, ProviderHuggingFace, "m")

	_, err := s.Summarize(context.Background(), SummarizeRequest{Text: "x"})
	require.Error(t, err)
	_, err = s.Summarize(context.Background(), SummarizeRequest{Text: "x"})
	require.Error(t, err)
	assert.Equal(t, 2, inner.calls)
	assert.Empty(t, c.summaries)
}

func TestWrapCacheHitSkipsLimiter(t *testing.T) {
	lim := &countingLimiter{}
	p := Wrap(ProviderHuggingFace,
		&stubSummarizer{out: &Summary{Text: "s"}},
		&stubTagger{out: &Ranking{Labels: []string{"a"}, Scores: []float64{1}}},
		"sm", "tm",
		Options{Limiter: lim, Cache: newMapCache()},
	)

	for i := 0; i < 3; i++ {
		_, err := p.Summarizer.Summarize(context.Background(), SummarizeRequest{Text: "x"})
		require.NoError(t, err)
		_, err = p.Tagger.Rank(context.Background(), "x", []string{"a"})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, lim.calls)
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	_, err := New(context.Background(), configWithProvider("openai"), Options{})
	assert.Error(t, err)
}

func TestNewGoogleRequiresKey(t *testing.T) {
	_, err := New(context.Background(), configWithProvider(ProviderGoogle), Options{})
	assert.Error(t, err)
}

func TestNewHuggingFace(t *testing.T) {
	p, err := New(context.Background(), configWithProvider(ProviderHuggingFace), Options{})
	require.NoError(t, err)
	assert.Equal(t, ProviderHuggingFace, p.Provider)
	assert.NotNil(t, p.Summarizer)
	assert.NotNil(t, p.Tagger)
}

func configWithProvider(provider string) config.InferenceConfig {
	return config.InferenceConfig{
		Provider:     provider,
		SummaryModel: "facebook/bart-large-cnn",
		TaggingModel: "facebook/bart-large-mnli",
		GeminiModel:  "gemini-2.5-flash",
		BaseURL:      "http://127.0.0.1:1",
	}
}
