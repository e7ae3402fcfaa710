// Package llm talks to an OpenAI-compatible chat completions and embeddings
// API using the legacy functions / function_call surface.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/hpungsan/rnupgrade/internal/session"
)

// DefaultBaseURL is used when neither config nor OPENAI_BASE_URL set one.
const DefaultBaseURL = "https://api.openai.com/v1"

// Client is an OpenAI-compatible API client.
type Client struct {
	apiKey         string
	baseURL        string
	embeddingModel string
	http           *http.Client
}

// NewClient creates a client. Empty apiKey / baseURL fall back to
// OPENAI_API_KEY / OPENAI_BASE_URL, then DefaultBaseURL.
func NewClient(apiKey, baseURL, embeddingModel string, hc *http.Client) *Client {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if baseURL == "" {
		baseURL = os.Getenv("OPENAI_BASE_URL")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{
		apiKey:         apiKey,
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		embeddingModel: embeddingModel,
		http:           hc,
	}
}

// Function describes one callable function offered to the model.
type Function struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

// ChatRequest is one chat completion call.
// FunctionCall is "auto", "none", or the name of a function to force.
type ChatRequest struct {
	Model        string
	Messages     []session.Message
	Functions    []Function
	FunctionCall string
}

// Usage reports token counts for one call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// ChatResponse is the model's reply: plain content, a function call, or both.
type ChatResponse struct {
	Content      string                `json:"content,omitempty"`
	FunctionCall *session.FunctionCall `json:"function_call,omitempty"`
	Usage        Usage                 `json:"usage"`
}

type chatRequestBody struct {
	Model        string            `json:"model"`
	Messages     []session.Message `json:"messages"`
	Functions    []Function        `json:"functions,omitempty"`
	FunctionCall any               `json:"function_call,omitempty"`
}

type chatResponseBody struct {
	Choices []struct {
		Message struct {
			Content      *string               `json:"content"`
			FunctionCall *session.FunctionCall `json:"function_call"`
		} `json:"message"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

// Chat sends one chat completion request.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	body := chatRequestBody{
		Model:     req.Model,
		Messages:  req.Messages,
		Functions: req.Functions,
	}
	switch req.FunctionCall {
	case "":
	case "auto", "none":
		body.FunctionCall = req.FunctionCall
	default:
		body.FunctionCall = map[string]string{"name": req.FunctionCall}
	}

	var out chatResponseBody
	if err := c.post(ctx, "/chat/completions", body, &out); err != nil {
		return nil, err
	}
	if len(out.Choices) == 0 {
		return nil, providerError(http.StatusOK, "no choices returned")
	}

	msg := out.Choices[0].Message
	resp := &ChatResponse{FunctionCall: msg.FunctionCall, Usage: out.Usage}
	if msg.Content != nil {
		resp.Content = *msg.Content
	}
	return resp, nil
}

type embeddingRequestBody struct {
	Input string `json:"input"`
	Model string `json:"model"`
}

type embeddingResponseBody struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the embedding vector for text.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	var out embeddingResponseBody
	body := embeddingRequestBody{
		Input: strings.ReplaceAll(text, "\n", " "),
		Model: c.embeddingModel,
	}
	if err := c.post(ctx, "/embeddings", body, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, providerError(http.StatusOK, "no embedding returned")
	}
	return out.Data[0].Embedding, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return providerError(0, err.Error())
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return providerError(resp.StatusCode, fmt.Sprintf("read response: %v", err))
	}
	if resp.StatusCode != http.StatusOK {
		return classify(resp, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return providerError(resp.StatusCode, fmt.Sprintf("decode response: %v", err))
	}
	return nil
}
