package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"autoblog/httpclient"
)

// HFClient calls the Hugging Face Inference API:
//
//	POST {base}/models/{model}  {"inputs": ..., "parameters": {...}}
type HFClient struct {
	base  *httpclient.BaseClient
	token string
}

func NewHFClient(base *httpclient.BaseClient, token string) *HFClient {
	return &HFClient{base: base, token: token}
}

type hfRequest struct {
	Inputs     string         `json:"inputs"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Options    map[string]any `json:"options,omitempty"`
}

type hfError struct {
	Error string `json:"error"`
}

func (c *HFClient) post(ctx context.Context, model string, in hfRequest) ([]byte, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := c.base.NewRequest(ctx, http.MethodPost, "/models/"+model, nil, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.base.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var e hfError
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			return nil, fmt.Errorf("huggingface %s returned %d: %s", model, resp.StatusCode, e.Error)
		}
		return nil, fmt.Errorf("huggingface %s returned %d", model, resp.StatusCode)
	}
	return raw, nil
}

// HFSummarizer runs a summarization model such as facebook/bart-large-cnn.
type HFSummarizer struct {
	client *HFClient
	model  string
}

func NewHFSummarizer(client *HFClient, model string) *HFSummarizer {
	return &HFSummarizer{client: client, model: model}
}

func (s *HFSummarizer) Summarize(ctx context.Context, req SummarizeRequest) (*Summary, error) {
	raw, err := s.client.post(ctx, s.model, hfRequest{
		Inputs: req.Text,
		Parameters: map[string]any{
			"min_length": req.MinWords,
			"max_length": req.MaxWords,
			"do_sample":  false,
		},
		Options: map[string]any{"wait_for_model": true},
	})
	if err != nil {
		return nil, err
	}

	var out []struct {
		SummaryText string `json:"summary_text"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrEmptyOutput
	}
	text := ClampWords(out[0].SummaryText, req.MaxWords)
	if text == "" {
		return nil, ErrEmptyOutput
	}
	return &Summary{Text: text, Model: s.model}, nil
}

// HFTagger runs a zero-shot classification model such as
// facebook/bart-large-mnli with multi-label scoring.
type HFTagger struct {
	client *HFClient
	model  string
}

func NewHFTagger(client *HFClient, model string) *HFTagger {
	return &HFTagger{client: client, model: model}
}

func (t *HFTagger) Rank(ctx context.Context, text string, labels []string) (*Ranking, error) {
	if len(labels) == 0 {
		return nil, ErrNoLabels
	}
	raw, err := t.client.post(ctx, t.model, hfRequest{
		Inputs: text,
		Parameters: map[string]any{
			"candidate_labels": labels,
			"multi_label":      true,
		},
		Options: map[string]any{"wait_for_model": true},
	})
	if err != nil {
		return nil, err
	}

	scores, err := decodeZeroShot(raw)
	if err != nil {
		return nil, err
	}
	if len(scores) == 0 {
		return nil, ErrEmptyOutput
	}
	return rankFromScores(labels, scores, t.model), nil
}

// decodeZeroShot accepts both response shapes the API has served:
//
//	{"sequence": "...", "labels": [...], "scores": [...]}
//	[{"label": "...", "score": 0.9}, ...]
func decodeZeroShot(raw []byte) (map[string]float64, error) {
	trimmed := strings.TrimSpace(string(raw))
	scores := map[string]float64{}

	if strings.HasPrefix(trimmed, "[") {
		var items []struct {
			Label string  `json:"label"`
			Score float64 `json:"score"`
		}
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("decode zero-shot list: %w", err)
		}
		for _, it := range items {
			scores[it.Label] = it.Score
		}
		return scores, nil
	}

	var obj struct {
		Labels []string  `json:"labels"`
		Scores []float64 `json:"scores"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("decode zero-shot object: %w", err)
	}
	if len(obj.Labels) != len(obj.Scores) {
		return nil, fmt.Errorf("zero-shot response has %d labels but %d scores", len(obj.Labels), len(obj.Scores))
	}
	for i, l := range obj.Labels {
		scores[l] = obj.Scores[i]
	}
	return scores, nil
}
