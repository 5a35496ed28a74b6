package inference

import (
	"context"
	"strconv"
	"strings"
	"time"

	"autoblog/cache"
	"autoblog/internal/logger"
	"autoblog/metrics"
	"autoblog/models"
	"autoblog/trace"
)

// Limiter gates outbound inference calls.
type Limiter interface {
	Reserve(ctx context.Context) error
}

// Recorder persists one audit entry per inference call.
type Recorder interface {
	Record(ctx context.Context, entry models.AILog) error
}

// Cache is a JSON cache-aside store keyed by a hash of the inputs.
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
}

const auditExcerptLen = 500

// ---- observed: logging, metrics and audit ----

type observedSummarizer struct {
	next     Summarizer
	provider string
	recorder Recorder
}

// Observe wraps a Summarizer with timing logs, prometheus counters and an
// optional audit recorder. recorder may be nil.
func Observe(s Summarizer, provider string, recorder Recorder) Summarizer {
	return &observedSummarizer{next: s, provider: provider, recorder: recorder}
}

func (o *observedSummarizer) Summarize(ctx context.Context, req SummarizeRequest) (*Summary, error) {
	started := time.Now()
	out, err := o.next.Summarize(ctx, req)

	var model, output string
	if out != nil {
		model, output = out.Model, out.Text
	}
	observe(ctx, o.recorder, models.AILogKindSummarize, o.provider, model, req.Text, output, started, err)
	return out, err
}

type observedTagger struct {
	next     Tagger
	provider string
	recorder Recorder
}

// ObserveTagger is Observe for a Tagger.
func ObserveTagger(t Tagger, provider string, recorder Recorder) Tagger {
	return &observedTagger{next: t, provider: provider, recorder: recorder}
}

func (o *observedTagger) Rank(ctx context.Context, text string, labels []string) (*Ranking, error) {
	started := time.Now()
	out, err := o.next.Rank(ctx, text, labels)

	var model, output string
	if out != nil {
		model = out.Model
		output = strings.Join(TopLabels(out, 5), ", ")
	}
	observe(ctx, o.recorder, models.AILogKindTag, o.provider, model, text, output, started, err)
	return out, err
}

func observe(ctx context.Context, recorder Recorder, kind models.AILogKind, provider, model, input, output string, started time.Time, callErr error) {
	completed := time.Now()
	elapsed := completed.Sub(started)

	outcome := "success"
	if callErr != nil {
		outcome = "error"
	}
	metrics.InferenceCalls.WithLabelValues(string(kind), provider, outcome).Inc()
	metrics.InferenceDuration.WithLabelValues(string(kind), provider).Observe(elapsed.Seconds())

	fields := logger.Fields{
		"kind":        string(kind),
		"provider":    provider,
		"model":       model,
		"duration_ms": elapsed.Milliseconds(),
		"request_id":  trace.RequestIDFromContext(ctx),
	}
	if callErr != nil {
		fields["error"] = callErr.Error()
		logger.WarnWithFields("inference call failed", fields)
	} else {
		logger.DebugWithFields("inference call completed", fields)
	}

	if recorder == nil {
		return
	}
	entry := models.AILog{
		Kind:           kind,
		Provider:       provider,
		ModelName:      model,
		RequestID:      trace.RequestIDFromContext(ctx),
		DurationMs:     elapsed.Milliseconds(),
		Success:        callErr == nil,
		InputExcerpt:   excerpt(input, auditExcerptLen),
		OutputResponse: output,
		RequestedAt:    started,
		CompletedAt:    completed,
	}
	if callErr != nil {
		msg := callErr.Error()
		entry.ErrorMessage = &msg
	}
	// audit failures never fail the call
	if err := recorder.Record(context.WithoutCancel(ctx), entry); err != nil {
		logger.ErrorWithFields("failed to record ai log", logger.Fields{
			"kind":  string(kind),
			"error": err.Error(),
		})
	}
}

// ---- limited: quota ----

type limitedSummarizer struct {
	next    Summarizer
	limiter Limiter
}

// Limit reserves a slot on limiter before every Summarize call.
func Limit(s Summarizer, limiter Limiter) Summarizer {
	return &limitedSummarizer{next: s, limiter: limiter}
}

func (l *limitedSummarizer) Summarize(ctx context.Context, req SummarizeRequest) (*Summary, error) {
	if err := l.limiter.Reserve(ctx); err != nil {
		return nil, err
	}
	return l.next.Summarize(ctx, req)
}

type limitedTagger struct {
	next    Tagger
	limiter Limiter
}

// LimitTagger is Limit for a Tagger.
func LimitTagger(t Tagger, limiter Limiter) Tagger {
	return &limitedTagger{next: t, limiter: limiter}
}

func (l *limitedTagger) Rank(ctx context.Context, text string, labels []string) (*Ranking, error) {
	if err := l.limiter.Reserve(ctx); err != nil {
		return nil, err
	}
	return l.next.Rank(ctx, text, labels)
}

// ---- cached ----

type cachedSummarizer struct {
	next     Summarizer
	cache    Cache
	provider string
	model    string
}

// Cached serves repeated inputs from c. Both models run deterministically,
// so identical input always maps to identical output. Cache failures fall
// through to the wrapped Summarizer.
func Cached(s Summarizer, c Cache, provider, model string) Summarizer {
	return &cachedSummarizer{next: s, cache: c, provider: provider, model: model}
}

func (c *cachedSummarizer) Summarize(ctx context.Context, req SummarizeRequest) (*Summary, error) {
	key := cache.Key("summary", c.provider, c.model, strconv.Itoa(req.MinWords), strconv.Itoa(req.MaxWords), req.Text)

	var hit Summary
	if lookup(ctx, c.cache, models.AILogKindSummarize, key, &hit) {
		return &hit, nil
	}

	out, err := c.next.Summarize(ctx, req)
	if err != nil {
		return nil, err
	}
	store(ctx, c.cache, models.AILogKindSummarize, key, out)
	return out, nil
}

type cachedTagger struct {
	next     Tagger
	cache    Cache
	provider string
	model    string
}

// CachedTagger is Cached for a Tagger. The key covers the label vocabulary.
func CachedTagger(t Tagger, c Cache, provider, model string) Tagger {
	return &cachedTagger{next: t, cache: c, provider: provider, model: model}
}

func (c *cachedTagger) Rank(ctx context.Context, text string, labels []string) (*Ranking, error) {
	key := cache.Key("rank", c.provider, c.model, strings.Join(labels, "\x1f"), text)

	var hit Ranking
	if lookup(ctx, c.cache, models.AILogKindTag, key, &hit) {
		return &hit, nil
	}

	out, err := c.next.Rank(ctx, text, labels)
	if err != nil {
		return nil, err
	}
	store(ctx, c.cache, models.AILogKindTag, key, out)
	return out, nil
}

func lookup(ctx context.Context, c Cache, kind models.AILogKind, key string, dest any) bool {
	ok, err := c.Get(ctx, key, dest)
	switch {
	case err != nil:
		metrics.InferenceCacheLookups.WithLabelValues(string(kind), "error").Inc()
		logger.WarnWithFields("inference cache lookup failed", logger.Fields{
			"kind":  string(kind),
			"error": err.Error(),
		})
		return false
	case ok:
		metrics.InferenceCacheLookups.WithLabelValues(string(kind), "hit").Inc()
		return true
	default:
		metrics.InferenceCacheLookups.WithLabelValues(string(kind), "miss").Inc()
		return false
	}
}

func store(ctx context.Context, c Cache, kind models.AILogKind, key string, value any) {
	if err := c.Set(ctx, key, value); err != nil {
		logger.WarnWithFields("inference cache store failed", logger.Fields{
			"kind":  string(kind),
			"error": err.Error(),
		})
	}
}
