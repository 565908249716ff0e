// Package genai talks to the Gemini generateContent endpoint and offers an
// offline provider with the same surface.
package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/pixshop/internal/logging"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.5-flash-image-preview"
	DefaultTimeout = 120 * time.Second
)

var (
	// ErrMissingAPIKey is returned when a request is attempted without a key.
	ErrMissingAPIKey = errors.New("gemini api key is not configured")
	// ErrBlocked is returned when the prompt was rejected by safety filters.
	ErrBlocked = errors.New("request was blocked")
	// ErrNoImage is returned when the model answered without an image.
	ErrNoImage = errors.New("model returned no image")
)

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *logging.Logger
	Timeout    time.Duration
}

// Client sends image editing requests to Gemini.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *logging.Logger
}

// Image is an encoded image with its MIME type.
type Image struct {
	Data []byte
	MIME string
}

// Request is a single generateContent call: the photo, an optional mask and
// the instruction text.
type Request struct {
	Prompt    string
	Image     Image
	Mask      *Image
	RequestID string
}

// Result is the first image the model produced plus any text it returned.
type Result struct {
	Image        Image
	Text         string
	FinishReason string
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiGenerateContentRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiCandidate struct {
	Content       geminiContent `json:"content"`
	FinishReason  string        `json:"finishReason,omitempty"`
	FinishMessage string        `json:"finishMessage,omitempty"`
}

type geminiPromptFeedback struct {
	BlockReason        string `json:"blockReason,omitempty"`
	BlockReasonMessage string `json:"blockReasonMessage,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates     []geminiCandidate     `json:"candidates"`
	PromptFeedback *geminiPromptFeedback `json:"promptFeedback,omitempty"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
		Status  string `json:"status,omitempty"`
	} `json:"error"`
}

// NewClient constructs a Gemini client. A nil HTTP client is replaced with
// one using opts.Timeout.
func NewClient(opts Options) (*Client, error) {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("gemini base url: %w", err)
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}

	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		httpClient: client,
		logger:     logging.OrDiscard(opts.Logger),
	}, nil
}

// Model returns the configured Gemini model identifier.
func (c *Client) Model() string {
	return c.model
}

// Generate sends req and returns the first inline image of the response.
func (c *Client) Generate(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if c.apiKey == "" {
		return Result{}, ErrMissingAPIKey
	}
	if len(req.Image.Data) == 0 {
		return Result{}, errors.New("generate: no input image")
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	parts := []geminiPart{inlinePart(req.Image)}
	if req.Mask != nil && len(req.Mask.Data) > 0 {
		parts = append(parts, inlinePart(*req.Mask))
	}
	parts = append(parts, geminiPart{Text: req.Prompt})
	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
	}

	started := time.Now()
	var response geminiGenerateContentResponse
	if err := c.invokeGemini(ctx, fmt.Sprintf("/models/%s:generateContent", url.PathEscape(c.model)), payload, &response); err != nil {
		c.logger.Warn().
			Err(err).
			Str("request_id", req.RequestID).
			Str("model", c.model).
			Msg("genai: request failed")
		return Result{}, err
	}

	res, err := interpret(response)
	c.logger.Debug().
		Str("request_id", req.RequestID).
		Str("model", c.model).
		Dur("elapsed", time.Since(started)).
		Bool("image", err == nil).
		Msg("genai: generateContent finished")
	return res, err
}

func inlinePart(img Image) geminiPart {
	mime := img.MIME
	if mime == "" {
		mime = "image/png"
	}
	return geminiPart{InlineData: &geminiInlineData{
		MimeType: mime,
		Data:     base64.StdEncoding.EncodeToString(img.Data),
	}}
}

// interpret decides what a response means: a block, an image, or a refusal
// explained by the finish reason or the model's text.
func interpret(resp geminiGenerateContentResponse) (Result, error) {
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		msg := fb.BlockReason
		if fb.BlockReasonMessage != "" {
			msg += ": " + fb.BlockReasonMessage
		}
		return Result{}, fmt.Errorf("%w: %s", ErrBlocked, msg)
	}

	var text []string
	var finish string
	for _, candidate := range resp.Candidates {
		if finish == "" {
			finish = candidate.FinishReason
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
				if err != nil {
					return Result{}, fmt.Errorf("decode inline data: %w", err)
				}
				return Result{
					Image:        Image{Data: data, MIME: part.InlineData.MimeType},
					Text:         strings.Join(text, "\n"),
					FinishReason: candidate.FinishReason,
				}, nil
			}
			if t := strings.TrimSpace(part.Text); t != "" {
				text = append(text, t)
			}
		}
	}

	if finish != "" && finish != "STOP" {
		return Result{FinishReason: finish}, fmt.Errorf("%w: generation stopped: %s", ErrNoImage, finish)
	}
	if len(text) > 0 {
		joined := strings.Join(text, "\n")
		return Result{Text: joined, FinishReason: finish}, fmt.Errorf("%w: model replied with text: %s", ErrNoImage, joined)
	}
	return Result{FinishReason: finish}, ErrNoImage
}

func (c *Client) invokeGemini(ctx context.Context, path string, payload any, out any) error {
	endpoint := c.baseURL + path
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoke gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		var apiErr geminiErrorResponse
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("gemini status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		if len(data) > 0 {
			return fmt.Errorf("gemini status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return fmt.Errorf("gemini status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}
	return nil
}
