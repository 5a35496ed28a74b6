package services_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"autoblog/config"
	"autoblog/db"
	"autoblog/dto"
	"autoblog/feeder"
	"autoblog/inference"
	"autoblog/models"
	"autoblog/parser"
	"autoblog/repositories"
	"autoblog/services"
)

// fakeSummarizer returns the first MaxWords words of the input.
type fakeSummarizer struct {
	calls int
	err   error
}

func (f *fakeSummarizer) Summarize(ctx context.Context, req inference.SummarizeRequest) (*inference.Summary, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &inference.Summary{Text: inference.ClampWords(req.Text, req.MaxWords), Model: "fake-sum"}, nil
}

// fakeTagger ranks labels by how often they appear in the text, then by
// vocabulary order.
type fakeTagger struct {
	calls int
	err   error
}

func (f *fakeTagger) Rank(ctx context.Context, text string, labels []string) (*inference.Ranking, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	lower := strings.ToLower(text)
	var hits, rest []string
	for _, l := range labels {
		if strings.Contains(lower, strings.ToLower(l)) {
			hits = append(hits, l)
		} else {
			rest = append(rest, l)
		}
	}
	ordered := append(hits, rest...)
	scores := make([]float64, len(ordered))
	for i := range scores {
		scores[i] = 1 / float64(i+1)
	}
	return &inference.Ranking{Labels: ordered, Scores: scores, Model: "fake-tag"}, nil
}

type recordingPublisher struct {
	mu      sync.Mutex
	created []uint
	deleted []uint
	err     error
}

func (p *recordingPublisher) PublishPostCreated(ctx context.Context, post *models.Post, origin, link string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, post.ID)
	return p.err
}

func (p *recordingPublisher) PublishPostDeleted(ctx context.Context, postID uint) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, postID)
	return p.err
}

// blockingPublisher holds every publish until release is closed.
type blockingPublisher struct {
	release chan struct{}
	mu      sync.Mutex
	created []uint
	deleted []uint
	ctxErrs []error
}

func (p *blockingPublisher) PublishPostCreated(ctx context.Context, post *models.Post, origin, link string) error {
	<-p.release
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, post.ID)
	p.ctxErrs = append(p.ctxErrs, ctx.Err())
	return nil
}

func (p *blockingPublisher) PublishPostDeleted(ctx context.Context, postID uint) error {
	<-p.release
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, postID)
	p.ctxErrs = append(p.ctxErrs, ctx.Err())
	return nil
}

type stubFetcher struct {
	article *parser.Article
	err     error
}

func (f stubFetcher) Fetch(ctx context.Context, url string) (*parser.Article, error) {
	return f.article, f.err
}

type stubFeeds struct {
	items    []feeder.RssFeedItem
	err      error
	gotLimit int
}

func (f *stubFeeds) Fetch(ctx context.Context, url string, limit int) ([]feeder.RssFeedItem, error) {
	f.gotLimit = limit
	return f.items, f.err
}

type fixture struct {
	db         *gorm.DB
	svc        *services.PostService
	repo       *repositories.PostRepository
	summarizer *fakeSummarizer
	tagger     *fakeTagger
	events     *recordingPublisher
}

func testInferenceConfig() config.InferenceConfig {
	return config.InferenceConfig{
		SummaryMinWords: 25,
		SummaryMaxWords: 50,
		TagCount:        3,
		CandidateLabels: config.DefaultCandidateLabels,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb, err := db.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })

	f := &fixture{
		db:         gdb,
		repo:       repositories.NewPostRepository(gdb),
		summarizer: &fakeSummarizer{},
		tagger:     &fakeTagger{},
		events:     &recordingPublisher{},
	}
	f.svc = services.NewPostService(f.repo, f.summarizer, f.tagger, testInferenceConfig()).WithEvents(f.events)
	return f
}

func (f *fixture) count(t *testing.T) int64 {
	t.Helper()
	n, err := f.repo.Count(context.Background())
	require.NoError(t, err)
	return n
}

const villageText = "The sun rose over the quiet village as birds began to sing."

func TestGenerateStoresContentVerbatim(t *testing.T) {
	f := newFixture(t)
	content := "  " + villageText + "\n"

	post, err := f.svc.Generate(context.Background(), content, services.OriginForm)
	require.NoError(t, err)

	assert.Equal(t, int64(1), f.count(t))
	stored, err := f.repo.FindByID(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, content, stored.Content)
	assert.NotEmpty(t, stored.Summary)
	f.svc.Wait()
	assert.Equal(t, []uint{post.ID}, f.events.created)
}

func TestGenerateTagsAreTopThreeFromVocabulary(t *testing.T) {
	f := newFixture(t)

	post, err := f.svc.Generate(context.Background(), "A travel diary about cooking and photography in winter.", services.OriginForm)
	require.NoError(t, err)

	parts := strings.Split(post.TagsRaw, ", ")
	assert.Len(t, parts, 3)
	for _, p := range parts {
		assert.Contains(t, config.DefaultCandidateLabels, p)
	}
	assert.Equal(t, post.Tags, parts)
	assert.LessOrEqual(t, len(post.TagsRaw), models.TagsMaxLen)
}

func TestGenerateSummaryWithinBand(t *testing.T) {
	f := newFixture(t)
	long := strings.Repeat("the quiet village woke slowly ", 40)

	post, err := f.svc.Generate(context.Background(), long, services.OriginForm)
	require.NoError(t, err)

	n := inference.WordCount(post.Summary)
	assert.LessOrEqual(t, n, 50)
	assert.GreaterOrEqual(t, n, 25)
	assert.LessOrEqual(t, len([]rune(post.Summary)), models.SummaryMaxLen)
}

func TestGenerateRejectsBlankContent(t *testing.T) {
	for _, content := range []string{"", "   ", "\n\t "} {
		f := newFixture(t)
		_, err := f.svc.Generate(context.Background(), content, services.OriginForm)

		assert.ErrorIs(t, err, services.ErrEmptyContent)
		assert.Zero(t, f.summarizer.calls)
		assert.Zero(t, f.tagger.calls)
		assert.Zero(t, f.count(t))
	}
}

func TestGenerateInferenceFailureCreatesNothing(t *testing.T) {
	t.Run("summarize", func(t *testing.T) {
		f := newFixture(t)
		f.summarizer.err = errors.New("model unavailable")

		_, err := f.svc.Generate(context.Background(), villageText, services.OriginForm)
		require.Error(t, err)
		assert.True(t, strings.HasPrefix(err.Error(), "summarize: "))
		assert.Zero(t, f.tagger.calls)
		assert.Zero(t, f.count(t))
		f.svc.Wait()
		assert.Empty(t, f.events.created)
	})

	t.Run("tag", func(t *testing.T) {
		f := newFixture(t)
		f.tagger.err = errors.New("model unavailable")

		_, err := f.svc.Generate(context.Background(), villageText, services.OriginForm)
		require.Error(t, err)
		assert.True(t, strings.HasPrefix(err.Error(), "tag: "))
		assert.Zero(t, f.count(t))
	})

	t.Run("save", func(t *testing.T) {
		f := newFixture(t)
		failInserts(t, f.db)

		_, err := f.svc.Generate(context.Background(), villageText, services.OriginForm)
		require.Error(t, err)
		assert.True(t, strings.HasPrefix(err.Error(), "save post: "), err.Error())
		assert.Equal(t, 1, f.summarizer.calls)
		assert.Equal(t, 1, f.tagger.calls)
		assert.Zero(t, f.count(t))
		f.svc.Wait()
		assert.Empty(t, f.events.created)
	})
}

// failInserts makes every gorm create on gdb fail before it reaches sqlite.
func failInserts(t *testing.T, gdb *gorm.DB) {
	t.Helper()
	err := gdb.Callback().Create().Before("gorm:create").Register("test:fail_insert", func(tx *gorm.DB) {
		_ = tx.AddError(errors.New("disk I/O error"))
	})
	require.NoError(t, err)
}

func TestGenerateIgnoresPublishFailure(t *testing.T) {
	f := newFixture(t)
	f.events.err = errors.New("broker down")

	_, err := f.svc.Generate(context.Background(), villageText, services.OriginForm)
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.count(t))
	f.svc.Wait()
}

func TestPublishDoesNotHoldUpRequest(t *testing.T) {
	f := newFixture(t)
	pub := &blockingPublisher{release: make(chan struct{})}
	f.svc.WithEvents(pub)

	reqCtx, endRequest := context.WithCancel(context.Background())
	var (
		post *dto.PostDTO
		err  error
	)
	returned := make(chan struct{})
	go func() {
		defer close(returned)
		post, err = f.svc.Generate(reqCtx, villageText, services.OriginForm)
		if err == nil {
			err = f.svc.Delete(reqCtx, post.ID)
		}
	}()

	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		close(pub.release)
		t.Fatal("request waited on the event publisher")
	}
	require.NoError(t, err)
	assert.Zero(t, f.count(t))

	// the request is over before the events go out
	endRequest()
	close(pub.release)
	f.svc.Wait()

	assert.Equal(t, []uint{post.ID}, pub.created)
	assert.Equal(t, []uint{post.ID}, pub.deleted)
	assert.Equal(t, []error{nil, nil}, pub.ctxErrs)
}

func TestListReturnsNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Generate(ctx, "first post about travel", services.OriginForm)
	require.NoError(t, err)
	second, err := f.svc.Generate(ctx, "second post about cooking", services.OriginForm)
	require.NoError(t, err)

	items, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, second.ID, items[0].ID)
	assert.Equal(t, first.ID, items[1].ID)
}

func TestDeleteThenGetIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	post, err := f.svc.Generate(ctx, villageText, services.OriginForm)
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, post.ID))
	f.svc.Wait()
	assert.Equal(t, []uint{post.ID}, f.events.deleted)

	_, err = f.svc.GetByID(ctx, post.ID)
	assert.ErrorIs(t, err, repositories.ErrPostNotFound)
}

func TestMissingIDIsNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GetByID(context.Background(), 404)
	assert.ErrorIs(t, err, repositories.ErrPostNotFound)
	assert.ErrorIs(t, f.svc.Delete(context.Background(), 404), repositories.ErrPostNotFound)
	f.svc.Wait()
	assert.Empty(t, f.events.deleted)
}

func TestImport(t *testing.T) {
	t.Run("blank url", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Import(context.Background(), "  ")
		assert.ErrorIs(t, err, services.ErrEmptyURL)
	})

	t.Run("fetch failure", func(t *testing.T) {
		f := newFixture(t)
		f.svc.WithFetcher(stubFetcher{err: parser.ErrEmptyArticle})
		_, err := f.svc.Import(context.Background(), "https://example.com/a")
		assert.ErrorIs(t, err, parser.ErrEmptyArticle)
		assert.Zero(t, f.count(t))
	})

	t.Run("creates post from article text", func(t *testing.T) {
		f := newFixture(t)
		f.svc.WithFetcher(stubFetcher{article: &parser.Article{Text: villageText}})
		post, err := f.svc.Import(context.Background(), "https://example.com/a")
		require.NoError(t, err)
		assert.Equal(t, villageText, post.Content)
	})
}

func TestImportFeed(t *testing.T) {
	longText := strings.Repeat("The travel diary continues along the coast. ", 10)

	t.Run("blank url", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.ImportFeed(context.Background(), "")
		assert.ErrorIs(t, err, services.ErrEmptyURL)
	})

	t.Run("empty feed", func(t *testing.T) {
		f := newFixture(t)
		f.svc.WithFeeds(&stubFeeds{}, 5)
		_, err := f.svc.ImportFeed(context.Background(), "https://example.com/feed")
		assert.ErrorIs(t, err, services.ErrEmptyFeed)
	})

	t.Run("inline text and linked pages", func(t *testing.T) {
		f := newFixture(t)
		feeds := &stubFeeds{items: []feeder.RssFeedItem{
			{Link: "https://example.com/a", Content: "<p>" + longText + "</p>"},
			{Link: "https://example.com/b", Content: "teaser"},
		}}
		f.svc.WithFeeds(feeds, 5).WithFetcher(stubFetcher{article: &parser.Article{Text: villageText}})

		posts, err := f.svc.ImportFeed(context.Background(), "https://example.com/feed")
		require.NoError(t, err)
		require.Len(t, posts, 2)

		assert.Equal(t, 5, feeds.gotLimit)
		assert.Equal(t, strings.TrimSpace(longText), posts[0].Content)
		assert.Equal(t, villageText, posts[1].Content)
		assert.EqualValues(t, 2, f.count(t))
	})

	t.Run("failed items are skipped and reported", func(t *testing.T) {
		f := newFixture(t)
		feeds := &stubFeeds{items: []feeder.RssFeedItem{
			{Link: "https://example.com/a", Content: longText},
			{Link: "https://example.com/b"},
		}}
		f.svc.WithFeeds(feeds, 5).WithFetcher(stubFetcher{err: parser.ErrEmptyArticle})

		posts, err := f.svc.ImportFeed(context.Background(), "https://example.com/feed")
		require.Error(t, err)
		assert.ErrorIs(t, err, parser.ErrEmptyArticle)
		assert.Len(t, posts, 1)
		assert.EqualValues(t, 1, f.count(t))
	})
}

func TestJoinTags(t *testing.T) {
	assert.Equal(t, "a, b, c", services.JoinTags([]string{"a", "b", "c"}, 100))
	assert.Equal(t, "", services.JoinTags(nil, 100))

	long := strings.Repeat("x", 60)
	assert.Equal(t, long, services.JoinTags([]string{long, long}, 100))
	assert.Equal(t, "", services.JoinTags([]string{strings.Repeat("y", 101)}, 100))
}
