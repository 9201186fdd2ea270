// Package llm is the HTTP client for the OpenAI-compatible chat and image API.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BatmanBruc/arima-bot/types"
)

const maxErrorBody = 4 << 10

type Config struct {
	APIKey   string
	ChatURL  string
	ImageURL string
	Timeout  time.Duration
}

type Client struct {
	http     *http.Client
	apiKey   string
	chatURL  string
	imageURL string
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.ImageURL == "" {
		cfg.ImageURL = cfg.ChatURL
	}
	return &Client{
		http:     &http.Client{Timeout: cfg.Timeout},
		apiKey:   cfg.APIKey,
		chatURL:  strings.TrimRight(cfg.ChatURL, "/"),
		imageURL: strings.TrimRight(cfg.ImageURL, "/"),
	}
}

type ChatRequest struct {
	Model       string              `json:"model"`
	Messages    []types.ChatMessage `json:"messages"`
	Temperature float64             `json:"temperature"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type ImageRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	Size           string `json:"size,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
}

type imageResponse struct {
	Data []struct {
		URL     string `json:"url"`
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

func (c *Client) ChatCompletion(ctx context.Context, req ChatRequest) (string, error) {
	var resp chatResponse
	if err := c.post(ctx, c.chatURL+"/chat/completions", req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", &Error{Kind: KindEmpty}
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateImage returns the image URL, or the base64 payload when
// ResponseFormat is "b64_json".
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (string, error) {
	if req.ResponseFormat == "" {
		req.ResponseFormat = "url"
	}
	var resp imageResponse
	if err := c.post(ctx, c.imageURL+"/images/generations", req, &resp); err != nil {
		return "", err
	}
	if len(resp.Data) == 0 {
		return "", &Error{Kind: KindEmpty}
	}
	out := resp.Data[0].URL
	if req.ResponseFormat == "b64_json" {
		out = resp.Data[0].B64JSON
	}
	if out == "" {
		return "", &Error{Kind: KindEmpty}
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, url string, payload, dest any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &Error{Kind: KindOther, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &Error{Kind: KindOther, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &Error{Kind: KindStatus, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return &Error{Kind: KindInvalidJSON, Err: err}
		}
		return classifyTransport(err)
	}
	return nil
}
