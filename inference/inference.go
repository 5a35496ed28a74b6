// Package inference wraps the pretrained summarization and zero-shot tagging
// models the application calls as black boxes.
package inference

import (
	"context"
	"errors"
	"strings"
)

const (
	ProviderHuggingFace = "huggingface"
	ProviderGoogle      = "google"
)

var (
	// ErrEmptyOutput is returned when a model answers with nothing usable.
	ErrEmptyOutput = errors.New("inference: empty model output")
	// ErrNoLabels is returned when Rank is called without candidates.
	ErrNoLabels = errors.New("inference: no candidate labels")
)

type SummarizeRequest struct {
	Text     string
	MinWords int
	MaxWords int
}

type Summary struct {
	Text  string `json:"text"`
	Model string `json:"model"`
}

// Summarizer produces a deterministic abstractive summary of Text whose
// length stays inside [MinWords, MaxWords].
type Summarizer interface {
	Summarize(ctx context.Context, req SummarizeRequest) (*Summary, error)
}

// Ranking holds every candidate label exactly once, ordered by descending
// Scores.
type Ranking struct {
	Labels []string  `json:"labels"`
	Scores []float64 `json:"scores"`
	Model  string    `json:"model"`
}

// Tagger scores text against a candidate label vocabulary. Labels are not
// mutually exclusive.
type Tagger interface {
	Rank(ctx context.Context, text string, labels []string) (*Ranking, error)
}

// TopLabels returns at most n labels from the head of the ranking.
func TopLabels(r *Ranking, n int) []string {
	if r == nil || n <= 0 {
		return nil
	}
	if n > len(r.Labels) {
		n = len(r.Labels)
	}
	out := make([]string, n)
	copy(out, r.Labels[:n])
	return out
}

// ClampWords collapses whitespace and keeps at most max words.
func ClampWords(s string, max int) string {
	words := strings.Fields(s)
	if max > 0 && len(words) > max {
		words = words[:max]
	}
	return strings.Join(words, " ")
}

// WordCount counts whitespace-separated words.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

func excerpt(s string, max int) string {
	rs := []rune(s)
	if len(rs) <= max {
		return s
	}
	return string(rs[:max])
}
