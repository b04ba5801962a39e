package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const openAIProvider = "openai"

// OpenAIConfig configures the chat completion and image clients.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	TextModel  string
	ChatModel  string
	ImageModel string
	ImageSize  string
	HTTPClient *http.Client
}

type openAIClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func newOpenAIClient(cfg OpenAIConfig) (*openAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing OpenAI API key")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 120 * time.Second}
	}
	return &openAIClient{baseURL: baseURL, apiKey: cfg.APIKey, httpClient: hc}, nil
}

func (c *openAIClient) post(ctx context.Context, path string, body, out any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// OpenAIText generates text with the Chat Completions API.
type OpenAIText struct {
	client    *openAIClient
	model     string
	chatModel string
}

func NewOpenAIText(cfg OpenAIConfig) (*OpenAIText, error) {
	client, err := newOpenAIClient(cfg)
	if err != nil {
		return nil, err
	}
	model := cfg.TextModel
	if model == "" {
		model = "gpt-4"
	}
	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = "gpt-4o"
	}
	return &OpenAIText{client: client, model: model, chatModel: chatModel}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (o *OpenAIText) Provider() string { return openAIProvider }

func (o *OpenAIText) GenerateText(ctx context.Context, prompt string) (string, error) {
	var resp chatResponse
	err := o.client.post(ctx, "/v1/chat/completions", chatRequest{
		Model:    o.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	}, &resp)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrMalformedResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

// richMessage carries either a plain string or a list of content parts.
type richMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageRef `json:"image_url,omitempty"`
}

type imageRef struct {
	URL string `json:"url"`
}

// Chat sends a system instruction and a user turn. An attached image is
// inlined as a base64 data URL.
func (o *OpenAIText) Chat(ctx context.Context, system, message string, image *ChatImage) (string, error) {
	var content any = message
	if image != nil {
		parts := make([]contentPart, 0, 2)
		if message != "" {
			parts = append(parts, contentPart{Type: "text", Text: message})
		}
		parts = append(parts, contentPart{
			Type:     "image_url",
			ImageURL: &imageRef{URL: "data:" + image.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(image.Data)},
		})
		content = parts
	}

	var resp chatResponse
	err := o.client.post(ctx, "/v1/chat/completions", struct {
		Model    string        `json:"model"`
		Messages []richMessage `json:"messages"`
	}{
		Model: o.chatModel,
		Messages: []richMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: content},
		},
	}, &resp)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrMalformedResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

// OpenAIImage generates one image URL per prompt with the Images API.
type OpenAIImage struct {
	client *openAIClient
	model  string
	size   string
}

func NewOpenAIImage(cfg OpenAIConfig) (*OpenAIImage, error) {
	client, err := newOpenAIClient(cfg)
	if err != nil {
		return nil, err
	}
	model := cfg.ImageModel
	if model == "" {
		model = "dall-e-2"
	}
	size := cfg.ImageSize
	if size == "" {
		size = "512x512"
	}
	return &OpenAIImage{client: client, model: model, size: size}, nil
}

type imageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

type imageResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

func (o *OpenAIImage) Provider() string { return openAIProvider }

func (o *OpenAIImage) GenerateImage(ctx context.Context, prompt string) (string, error) {
	var resp imageResponse
	err := o.client.post(ctx, "/v1/images/generations", imageRequest{
		Model:  o.model,
		Prompt: prompt,
		N:      1,
		Size:   o.size,
	}, &resp)
	if err != nil {
		return "", err
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", fmt.Errorf("%w: no image url", ErrMalformedResponse)
	}
	return resp.Data[0].URL, nil
}
