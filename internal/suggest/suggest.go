// Package suggest calls the keyword-suggestion collaborator: an
// OpenAI-compatible chat-completions endpoint that proposes keyword
// adjustments for a job/reaction pair. Failures always degrade to an
// empty suggestion list.
package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"jobbot/internal/model"
)

const (
	maxSuggestions     = 10
	descriptionPreview = 500
)

const systemPrompt = `You analyze job postings and a user's reaction to them.
Given a job and whether the user liked or disliked it, propose up to 10 keywords
that should be reinforced or discouraged in the user's search profile.
- Extract skills, technologies, roles, industries, or job attributes.
- Respond with a JSON array only, no prose. Each element:
  {"keyword": "python", "sentiment": "positive", "rationale": "Job requires Python skills"}
- sentiment is "positive" or "negative" relative to what the user wants.`

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is the suggestion collaborator client.
type Client struct {
	httpClient HTTPClient
	endpoint   string
	apiKey     string
	model      string
	timeout    time.Duration
	log        *slog.Logger
}

// New creates a suggestion Client.
func New(httpClient HTTPClient, endpoint, apiKey, chatModel string, log *slog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		apiKey:     apiKey,
		model:      chatModel,
		timeout:    20 * time.Second,
		log:        log,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type rawSuggestion struct {
	Keyword   string `json:"keyword"`
	Sentiment string `json:"sentiment"`
	Rationale string `json:"rationale"`
}

// Suggest asks the collaborator for keyword proposals. It returns an
// empty slice on any failure.
func (c *Client) Suggest(ctx context.Context, job model.JobPosting, current []model.Keyword, action model.InteractionAction) []model.Suggestion {
	if c.apiKey == "" {
		return nil
	}

	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(job, current, action)},
		},
		Temperature: 0.3,
	})
	if err != nil {
		c.log.Error("marshal suggestion request", "error", err)
		return nil
	}

	var content string
	backoff := retry.WithMaxRetries(2, retry.NewFibonacci(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodPost,
			c.endpoint+"/chat/completions", bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("suggestion status %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("suggestion status %d", resp.StatusCode)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
		if err != nil {
			return retry.RetryableError(err)
		}

		var parsed chatResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return fmt.Errorf("decode suggestion response: %w", err)
		}
		if len(parsed.Choices) == 0 {
			return fmt.Errorf("suggestion response has no choices")
		}
		content = parsed.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		c.log.Warn("keyword suggestion failed", "job_id", job.ID, "error", err)
		return nil
	}

	return parseSuggestions(content, c.log)
}

func buildPrompt(job model.JobPosting, current []model.Keyword, action model.InteractionAction) string {
	desc := job.Description
	if len(desc) > descriptionPreview {
		desc = desc[:descriptionPreview]
	}

	var profile []string
	for _, kw := range current {
		sign := "+"
		if kw.IsNegative {
			sign = "-"
		}
		profile = append(profile, fmt.Sprintf("%s%s (%.2f)", sign, kw.Text, kw.Weight))
	}
	profileLine := "none yet"
	if len(profile) > 0 {
		profileLine = strings.Join(profile, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Job title: %s\n", job.Title)
	fmt.Fprintf(&b, "Company: %s\n", job.Company)
	if len(job.Skills) > 0 {
		fmt.Fprintf(&b, "Declared skills: %s\n", strings.Join(job.Skills, ", "))
	}
	fmt.Fprintf(&b, "Description: %s\n\n", desc)
	fmt.Fprintf(&b, "Current keywords: %s\n", profileLine)
	fmt.Fprintf(&b, "User reaction: %s\n", action)
	return b.String()
}

// parseSuggestions extracts the JSON array from the model's reply,
// tolerating markdown code fences around it.
func parseSuggestions(content string, log *slog.Logger) []model.Suggestion {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var raw []rawSuggestion
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		log.Warn("unparseable suggestion content", "error", err)
		return nil
	}

	var out []model.Suggestion
	for _, r := range raw {
		keyword := strings.ToLower(strings.TrimSpace(r.Keyword))
		sentiment := strings.ToLower(strings.TrimSpace(r.Sentiment))
		if keyword == "" || (sentiment != "positive" && sentiment != "negative") {
			continue
		}
		out = append(out, model.Suggestion{
			Keyword:   keyword,
			Sentiment: sentiment,
			Rationale: strings.TrimSpace(r.Rationale),
		})
		if len(out) == maxSuggestions {
			break
		}
	}
	return out
}
