// Package parser fetches a web page and extracts its readable article text.
package parser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/advancedlogic/GoOse/pkg/goose"
	"github.com/go-shiori/go-readability"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"

	"autoblog/httpclient"
	"autoblog/internal/logger"
)

const (
	// maxPageBytes caps how much of a page body is read.
	maxPageBytes = 5 << 20
	// thinArticleWords is the word count below which a rendered retry is tried.
	thinArticleWords = 40
)

var (
	ErrInvalidURL   = errors.New("parser: url must be absolute http(s)")
	ErrEmptyArticle = errors.New("parser: no article text found")
)

type Article struct {
	Title     string
	Text      string
	Image     string
	Extractor string
}

// HTMLRenderer returns the HTML of a page after its scripts have run.
type HTMLRenderer interface {
	RenderHTML(ctx context.Context, url string) (string, error)
}

// Importer fetches pages with the shared logging http client. Give it an
// httpclient.NewPublic client when the urls come from users.
type Importer struct {
	client   *http.Client
	renderer HTMLRenderer
}

func NewImporter(client *http.Client) *Importer {
	return &Importer{client: client}
}

// WithRenderer retries thin or empty pages through r.
func (i *Importer) WithRenderer(r HTMLRenderer) *Importer {
	i.renderer = r
	return i
}

// Fetch downloads rawURL and extracts its article.
func (i *Importer) Fetch(ctx context.Context, rawURL string) (*Article, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidURL
	}

	htmlStr, err := i.getHTML(ctx, u.String())
	if err != nil {
		return nil, err
	}
	article, err := ExtractArticle(htmlStr, u)
	if i.renderer == nil || (err == nil && len(strings.Fields(article.Text)) >= thinArticleWords) {
		return article, err
	}

	rendered, rerr := i.renderer.RenderHTML(ctx, u.String())
	if rerr != nil {
		logger.WarnWithFields("render fallback failed", logger.Fields{
			"url":   u.String(),
			"error": rerr.Error(),
		})
		return article, err
	}
	better, berr := ExtractArticle(rendered, u)
	if berr != nil || (err == nil && len(strings.Fields(better.Text)) <= len(strings.Fields(article.Text))) {
		return article, err
	}
	better.Extractor += "+chrome"
	return better, nil
}

func (i *Importer) getHTML(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := i.client.Do(req)
	if errors.Is(err, httpclient.ErrBlockedAddress) {
		return "", fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", pageURL, err)
	}
	return string(b), nil
}

// ExtractArticle tries readability first, then trafilatura, then goose, and
// finally a plain text walk of the document.
func ExtractArticle(htmlStr string, pageURL *url.URL) (*Article, error) {
	if a, err := ParseHtmlWithReadability(htmlStr, pageURL); err == nil && a.Text != "" {
		return a, nil
	}
	if a, err := ParseHtmlWithTrafilatura(htmlStr, pageURL); err == nil && a.Text != "" {
		return a, nil
	}
	if a, err := ParseHtmlWithGoose(htmlStr, pageURL); err == nil && a.Text != "" {
		return a, nil
	}

	text, err := ExtractPlainText(htmlStr)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, ErrEmptyArticle
	}
	return &Article{Text: text, Extractor: "html"}, nil
}

// main parser
func ParseHtmlWithReadability(htmlStr string, pageURL *url.URL) (*Article, error) {
	doc, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		return nil, err
	}

	article, err := readability.FromDocument(doc, pageURL)
	if err != nil {
		return nil, err
	}
	return &Article{
		Title:     article.Title,
		Text:      normalize(article.TextContent),
		Image:     article.Image,
		Extractor: "readability",
	}, nil
}

func ParseHtmlWithTrafilatura(htmlStr string, pageURL *url.URL) (*Article, error) {
	opts := trafilatura.Options{
		OriginalURL: pageURL,
	}

	article, err := trafilatura.Extract(strings.NewReader(htmlStr), opts)
	if err != nil {
		return nil, err
	}

	return &Article{
		Title:     article.Metadata.Title,
		Text:      normalize(article.ContentText),
		Image:     article.Metadata.Image,
		Extractor: "trafilatura",
	}, nil
}

func ParseHtmlWithGoose(htmlStr string, pageURL *url.URL) (*Article, error) {
	var link string
	if pageURL != nil {
		link = pageURL.String()
	}

	g := goose.New()
	article, err := g.ExtractFromRawHTML(htmlStr, link)
	if err != nil {
		return nil, err
	}
	return &Article{
		Title:     article.Title,
		Text:      normalize(article.CleanedText),
		Image:     article.TopImage,
		Extractor: "goose",
	}, nil
}

// ExtractPlainText collects every visible text node, skipping script and style.
func ExtractPlainText(htmlStr string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		return "", err
	}

	var b strings.Builder

	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style" || n.Data == "noscript") {
			return
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				b.WriteString(text)
				b.WriteString("\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}

	f(doc)
	return normalize(b.String()), nil
}

// normalize trims each line and drops blank runs.
func normalize(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
