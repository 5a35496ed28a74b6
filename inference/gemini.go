package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const SUMMARY_INSTRUCTION = `
You are a summarization assistant for short personal blog posts.
Summarize the provided text in English.
The response MUST be a valid JSON object with one key:
1. summary: an abstractive summary of the text between %d and %d words.
   Do not add facts that are not in the text.
You MUST NOT wrap the JSON output in a markdown code block (e.g., ` + "```json ... ```" + `).
The response should contain ONLY the raw JSON string.
`

const TAGGING_INSTRUCTION = `
You are a zero-shot topic classifier.
Score how well the provided text matches EACH of the candidate labels below.
Labels are not mutually exclusive: score each one independently from 0.0 (unrelated) to 1.0 (clearly about it).
Candidate labels: %s
The response MUST be a valid JSON object with one key:
1. scores: a list with one {"label": "<candidate label>", "score": <number>} object for every candidate label.
   Use the candidate labels verbatim. Do not invent labels.
You MUST NOT wrap the JSON output in a markdown code block.
The response should contain ONLY the raw JSON string.
`

// NewGeminiClient creates the shared genai client. It is built once at
// startup and reused by both the summarizer and the tagger.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is not set")
	}
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
}

// deterministic generation: no sampling randomness
func jsonConfig(instruction string) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: instruction}}},
		Temperature:       genai.Ptr[float32](0),
		TopK:              genai.Ptr[float32](1),
		ResponseMIMEType:  "application/json",
	}
}

// stripCodeFence tolerates models that ignore the no-markdown instruction.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

type GeminiSummarizer struct {
	client *genai.Client
	model  string
}

func NewGeminiSummarizer(client *genai.Client, model string) *GeminiSummarizer {
	return &GeminiSummarizer{client: client, model: model}
}

func (s *GeminiSummarizer) Summarize(ctx context.Context, req SummarizeRequest) (*Summary, error) {
	result, err := s.client.Models.GenerateContent(
		ctx,
		s.model,
		genai.Text(req.Text),
		jsonConfig(fmt.Sprintf(SUMMARY_INSTRUCTION, req.MinWords, req.MaxWords)),
	)
	if err != nil {
		return nil, err
	}

	var out struct {
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(result.Text())), &out); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	text := ClampWords(out.Summary, req.MaxWords)
	if text == "" {
		return nil, ErrEmptyOutput
	}
	return &Summary{Text: text, Model: s.model}, nil
}

type GeminiTagger struct {
	client *genai.Client
	model  string
}

func NewGeminiTagger(client *genai.Client, model string) *GeminiTagger {
	return &GeminiTagger{client: client, model: model}
}

func (t *GeminiTagger) Rank(ctx context.Context, text string, labels []string) (*Ranking, error) {
	if len(labels) == 0 {
		return nil, ErrNoLabels
	}
	quoted, err := json.Marshal(labels)
	if err != nil {
		return nil, err
	}

	result, err := t.client.Models.GenerateContent(
		ctx,
		t.model,
		genai.Text(text),
		jsonConfig(fmt.Sprintf(TAGGING_INSTRUCTION, string(quoted))),
	)
	if err != nil {
		return nil, err
	}

	scores, err := decodeGeminiScores(result.Text())
	if err != nil {
		return nil, err
	}
	return rankFromScores(labels, scores, t.model), nil
}

func decodeGeminiScores(text string) (map[string]float64, error) {
	var out struct {
		Scores []struct {
			Label string  `json:"label"`
			Score float64 `json:"score"`
		} `json:"scores"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &out); err != nil {
		return nil, fmt.Errorf("decode label scores: %w", err)
	}
	if len(out.Scores) == 0 {
		return nil, ErrEmptyOutput
	}
	scores := make(map[string]float64, len(out.Scores))
	for _, s := range out.Scores {
		scores[s.Label] = s.Score
	}
	return scores, nil
}
