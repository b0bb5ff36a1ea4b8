package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// CompletionRequest is the prompt payload forwarded to the completion
// provider. ImageData is an optional base64 data URL captured by the client.
type CompletionRequest struct {
	Model     string
	Question  string
	ImageData string
}

// CompletionResult carries the answer plus the token-usage metadata the
// accounting layer prices.
type CompletionResult struct {
	Answer          string
	InputTokens     int
	OutputTokens    int
	ReasoningTokens int
	CachedTokens    int
	Cached          bool
	ResponseTime    time.Duration
}

// Gateway is the external completion-provider boundary.
type Gateway interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error)
}

// UpstreamError wraps a non-success provider response. The message is passed
// through for diagnostics but surfaced to clients as a generic service error.
type UpstreamError struct {
	Status  int
	Message string
}

func (e UpstreamError) Error() string {
	return fmt.Sprintf("upstream %d: %s", e.Status, e.Message)
}

// HTTPGateway talks to an OpenAI-compatible chat-completions endpoint.
// Every request carries the configured deadline; an unbounded upstream call
// would tie up a request slot indefinitely.
type HTTPGateway struct {
	BaseURL string
	APIKey  string
	httpc   *http.Client
}

func NewHTTPGateway(baseURL, apiKey string, timeout time.Duration) *HTTPGateway {
	return &HTTPGateway{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		httpc:   &http.Client{Timeout: timeout},
	}
}

type chatMessagePart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role    string            `json:"role"`
	Content []chatMessagePart `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens        int `json:"prompt_tokens"`
		CompletionTokens    int `json:"completion_tokens"`
		PromptTokensDetails struct {
			CachedTokens int `json:"cached_tokens"`
		} `json:"prompt_tokens_details"`
		CompletionTokensDetails struct {
			ReasoningTokens int `json:"reasoning_tokens"`
		} `json:"completion_tokens_details"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (g *HTTPGateway) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	if req.Question == "" && req.ImageData == "" {
		return nil, errors.New("empty prompt payload")
	}

	parts := []chatMessagePart{}
	if req.Question != "" {
		parts = append(parts, chatMessagePart{Type: "text", Text: req.Question})
	}
	if req.ImageData != "" {
		parts = append(parts, chatMessagePart{
			Type:     "image_url",
			ImageURL: &chatImageURL{URL: req.ImageData},
		})
	}

	body, err := json.Marshal(chatRequest{
		Model:    req.Model,
		Messages: []chatMessage{{Role: "user", Content: parts}},
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.APIKey)

	start := time.Now()
	res, err := g.httpc.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		// Error bodies are not always JSON (a proxy 502 may be HTML), so a
		// decode failure here falls back to the status line.
		msg := res.Status
		var errBody chatResponse
		if err := json.NewDecoder(res.Body).Decode(&errBody); err == nil && errBody.Error != nil {
			msg = errBody.Error.Message
		}
		return nil, UpstreamError{Status: res.StatusCode, Message: msg}
	}

	var parsed chatResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode provider response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, UpstreamError{Status: res.StatusCode, Message: "provider returned no choices"}
	}

	return &CompletionResult{
		Answer:          parsed.Choices[0].Message.Content,
		InputTokens:     parsed.Usage.PromptTokens,
		OutputTokens:    parsed.Usage.CompletionTokens,
		ReasoningTokens: parsed.Usage.CompletionTokensDetails.ReasoningTokens,
		CachedTokens:    parsed.Usage.PromptTokensDetails.CachedTokens,
		Cached:          parsed.Usage.PromptTokensDetails.CachedTokens > 0,
		ResponseTime:    time.Since(start),
	}, nil
}
