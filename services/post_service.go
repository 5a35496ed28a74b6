package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"autoblog/config"
	"autoblog/dto"
	"autoblog/feeder"
	"autoblog/inference"
	"autoblog/internal/logger"
	"autoblog/metrics"
	"autoblog/models"
	"autoblog/parser"
	"autoblog/repositories"
	"autoblog/trace"
)

var (
	// ErrEmptyContent is returned for blank submissions. Nothing is called.
	ErrEmptyContent = errors.New("content is required")
	// ErrEmptyURL is returned by Import and ImportFeed for a blank url.
	ErrEmptyURL = errors.New("url is required")
	// ErrEmptyFeed is returned when a feed has no items.
	ErrEmptyFeed = errors.New("feed has no items")
)

const (
	// feedTextMinWords is the inline item length below which the linked page
	// is imported instead.
	feedTextMinWords = 40
	// publishTimeout bounds one event publish running after its request.
	publishTimeout = 5 * time.Second
)

// Origins recorded on the post created event.
const (
	OriginForm   = "form"
	OriginAPI    = "api"
	OriginImport = "import"
	OriginFeed   = "feed"
)

// EventPublisher announces committed changes. Calls run in the background
// after the write and failures never undo it.
type EventPublisher interface {
	PublishPostCreated(ctx context.Context, post *models.Post, origin, link string) error
	PublishPostDeleted(ctx context.Context, postID uint) error
}

// ArticleFetcher downloads a page and extracts its text.
type ArticleFetcher interface {
	Fetch(ctx context.Context, url string) (*parser.Article, error)
}

// FeedReader lists the newest items of an RSS or Atom feed.
type FeedReader interface {
	Fetch(ctx context.Context, url string, limit int) ([]feeder.RssFeedItem, error)
}

// PostService runs the submit pipeline (summarize, tag, store) and the
// read/delete operations, mapping models to DTOs.
type PostService struct {
	repo       *repositories.PostRepository
	summarizer inference.Summarizer
	tagger     inference.Tagger
	events     EventPublisher
	fetcher    ArticleFetcher
	feeds      FeedReader
	feedLimit  int
	publishing sync.WaitGroup

	minWords int
	maxWords int
	tagCount int
	labels   []string
}

func NewPostService(repo *repositories.PostRepository, summarizer inference.Summarizer, tagger inference.Tagger, cfg config.InferenceConfig) *PostService {
	return &PostService{
		repo:       repo,
		summarizer: summarizer,
		tagger:     tagger,
		minWords:   cfg.SummaryMinWords,
		maxWords:   cfg.SummaryMaxWords,
		tagCount:   cfg.TagCount,
		labels:     append([]string(nil), cfg.CandidateLabels...),
	}
}

// WithEvents sets the publisher for post events.
func (s *PostService) WithEvents(p EventPublisher) *PostService {
	s.events = p
	return s
}

// WithFetcher enables Import.
func (s *PostService) WithFetcher(f ArticleFetcher) *PostService {
	s.fetcher = f
	return s
}

// WithFeeds enables ImportFeed, reading at most limit items per feed.
func (s *PostService) WithFeeds(r FeedReader, limit int) *PostService {
	s.feeds = r
	s.feedLimit = limit
	return s
}

// Generate summarizes and tags content and stores the result as a new post.
// On any error nothing is stored.
func (s *PostService) Generate(ctx context.Context, content, origin string) (*dto.PostDTO, error) {
	return s.generate(ctx, content, origin, "")
}

func (s *PostService) generate(ctx context.Context, content, origin, link string) (*dto.PostDTO, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	summary, err := s.summarizer.Summarize(ctx, inference.SummarizeRequest{
		Text:     content,
		MinWords: s.minWords,
		MaxWords: s.maxWords,
	})
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}

	ranking, err := s.tagger.Rank(ctx, content, s.labels)
	if err != nil {
		return nil, fmt.Errorf("tag: %w", err)
	}

	post := &models.Post{
		Content: content,
		Summary: truncateRunes(summary.Text, models.SummaryMaxLen),
		Tags:    JoinTags(inference.TopLabels(ranking, s.tagCount), models.TagsMaxLen),
	}
	if err := s.repo.Insert(ctx, post); err != nil {
		return nil, fmt.Errorf("save post: %w", err)
	}
	metrics.PostsCreated.Inc()

	logger.InfoWithFields("post created", logger.Fields{
		"post_id":       post.ID,
		"origin":        origin,
		"summary_model": summary.Model,
		"tagging_model": ranking.Model,
		"tags":          post.Tags,
		"request_id":    trace.RequestIDFromContext(ctx),
	})

	if s.events != nil {
		published := *post
		s.publish(ctx, "post created", post.ID, func(ctx context.Context) error {
			return s.events.PublishPostCreated(ctx, &published, origin, link)
		})
	}

	d := dto.NewPostDTO(*post)
	return &d, nil
}

// Import fetches an article and runs Generate on its text.
func (s *PostService) Import(ctx context.Context, rawURL string) (*dto.PostDTO, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, ErrEmptyURL
	}
	if s.fetcher == nil {
		return nil, errors.New("import: no article fetcher configured")
	}

	article, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}
	return s.generate(ctx, article.Text, OriginImport, rawURL)
}

// ImportFeed creates one post per feed item. Items carrying enough inline
// text are summarized directly, the rest are imported from their link.
// Failed items are skipped and reported together in the returned error.
func (s *PostService) ImportFeed(ctx context.Context, feedURL string) ([]dto.PostDTO, error) {
	feedURL = strings.TrimSpace(feedURL)
	if feedURL == "" {
		return nil, ErrEmptyURL
	}
	if s.feeds == nil {
		return nil, errors.New("import feed: no feed reader configured")
	}

	items, err := s.feeds.Fetch(ctx, feedURL, s.feedLimit)
	if err != nil {
		return nil, fmt.Errorf("import feed: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrEmptyFeed
	}

	var (
		created []dto.PostDTO
		errs    []error
	)
	for _, item := range items {
		post, err := s.importFeedItem(ctx, item)
		if err != nil {
			errs = append(errs, fmt.Errorf("item %q: %w", item.Link, err))
			continue
		}
		created = append(created, *post)
	}

	logger.InfoWithFields("feed imported", logger.Fields{
		"feed_url":   feedURL,
		"items":      len(items),
		"created":    len(created),
		"failed":     len(errs),
		"request_id": trace.RequestIDFromContext(ctx),
	})
	return created, errors.Join(errs...)
}

func (s *PostService) importFeedItem(ctx context.Context, item feeder.RssFeedItem) (*dto.PostDTO, error) {
	text, err := parser.ExtractPlainText(item.Content)
	if err != nil {
		text = ""
	}
	if inference.WordCount(text) < feedTextMinWords && item.Link != "" && s.fetcher != nil {
		article, err := s.fetcher.Fetch(ctx, item.Link)
		if err == nil {
			text = article.Text
		} else if text == "" {
			return nil, err
		}
	}
	return s.generate(ctx, text, OriginFeed, item.Link)
}

// List returns every post, newest first.
func (s *PostService) List(ctx context.Context) ([]dto.PostDTO, error) {
	items, err := s.repo.ListDesc(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.PostDTO, 0, len(items))
	for _, p := range items {
		out = append(out, dto.NewPostDTO(p))
	}
	return out, nil
}

// GetByID loads a post and returns a DTO, or repositories.ErrPostNotFound.
func (s *PostService) GetByID(ctx context.Context, id uint) (*dto.PostDTO, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d := dto.NewPostDTO(*p)
	return &d, nil
}

// Delete permanently removes a post, or returns repositories.ErrPostNotFound.
func (s *PostService) Delete(ctx context.Context, id uint) error {
	if _, err := s.repo.DeleteByID(ctx, id); err != nil {
		return err
	}
	metrics.PostsDeleted.Inc()

	logger.InfoWithFields("post deleted", logger.Fields{
		"post_id":    id,
		"request_id": trace.RequestIDFromContext(ctx),
	})

	if s.events != nil {
		s.publish(ctx, "post deleted", id, func(ctx context.Context) error {
			return s.events.PublishPostDeleted(ctx, id)
		})
	}
	return nil
}

// publish runs fn without holding up the caller. The request context only
// contributes its values, so a finished request does not cancel the event.
func (s *PostService) publish(ctx context.Context, event string, postID uint, fn func(context.Context) error) {
	detached := context.WithoutCancel(ctx)
	s.publishing.Add(1)
	go func() {
		defer s.publishing.Done()
		ctx, cancel := context.WithTimeout(detached, publishTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			logger.WarnWithFields("failed to publish "+event+" event", logger.Fields{
				"post_id":    postID,
				"error":      err.Error(),
				"request_id": trace.RequestIDFromContext(ctx),
			})
		}
	}()
}

// Wait blocks until every event publish started so far has returned.
func (s *PostService) Wait() {
	s.publishing.Wait()
}

// Ping checks the post store.
func (s *PostService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// JoinTags joins labels with models.TagSeparator, dropping whole labels
// from the end until the result fits in max characters.
func JoinTags(labels []string, max int) string {
	for n := len(labels); n > 0; n-- {
		joined := strings.Join(labels[:n], models.TagSeparator)
		if utf8.RuneCountInString(joined) <= max {
			return joined
		}
	}
	return ""
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
