package inference

import (
	"context"
	"fmt"

	"autoblog/config"
	"autoblog/httpclient"
)

// Options carries the optional collaborators wrapped around the provider.
// Nil fields are skipped.
type Options struct {
	Limiter  Limiter
	Recorder Recorder
	Cache    Cache
}

// Pipeline is the pair of models the post generator calls.
type Pipeline struct {
	Provider   string
	Summarizer Summarizer
	Tagger     Tagger
}

// New builds both models once for the configured provider and stacks the
// decorators as cache -> limiter -> observe -> provider, so cache hits
// never consume quota.
func New(ctx context.Context, cfg config.InferenceConfig, opts Options) (*Pipeline, error) {
	var (
		s                    Summarizer
		t                    Tagger
		summaryModel, tagger string
	)

	switch cfg.Provider {
	case ProviderHuggingFace:
		base := httpclient.NewBaseClientWithClient(httpclient.New(httpclient.Config{Timeout: cfg.Timeout}), cfg.BaseURL)
		hf := NewHFClient(base, cfg.HFAPIToken)
		s = NewHFSummarizer(hf, cfg.SummaryModel)
		t = NewHFTagger(hf, cfg.TaggingModel)
		summaryModel, tagger = cfg.SummaryModel, cfg.TaggingModel
	case ProviderGoogle:
		client, err := NewGeminiClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, err
		}
		s = NewGeminiSummarizer(client, cfg.GeminiModel)
		t = NewGeminiTagger(client, cfg.GeminiModel)
		summaryModel, tagger = cfg.GeminiModel, cfg.GeminiModel
	default:
		return nil, fmt.Errorf("unknown inference provider %q", cfg.Provider)
	}

	return Wrap(cfg.Provider, s, t, summaryModel, tagger, opts), nil
}

// Wrap applies the decorator stack to an already built pair of models.
func Wrap(provider string, s Summarizer, t Tagger, summaryModel, taggingModel string, opts Options) *Pipeline {
	s = Observe(s, provider, opts.Recorder)
	t = ObserveTagger(t, provider, opts.Recorder)

	if opts.Limiter != nil {
		s = Limit(s, opts.Limiter)
		t = LimitTagger(t, opts.Limiter)
	}
	if opts.Cache != nil {
		s = Cached(s, opts.Cache, provider, summaryModel)
		t = CachedTagger(t, opts.Cache, provider, taggingModel)
	}

	return &Pipeline{Provider: provider, Summarizer: s, Tagger: t}
}
