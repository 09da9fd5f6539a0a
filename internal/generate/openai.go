package generate

import (
	"context"
	"log/slog"
	"strings"

	"github.com/go-resty/resty/v2"
	config "github.com/maheshrc27/postpilot/configs"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

// TextBackend turns a system hint and a user prompt into a caption.
type TextBackend interface {
	GenerateText(ctx context.Context, system, prompt string) TextResult
}

// ImageBackend turns a prompt into the URL of a generated image.
type ImageBackend interface {
	GenerateImage(ctx context.Context, prompt string, style Style, size Size) ImageResult
}

type OpenAIText struct {
	llm   llms.Model
	model string
}

// NewOpenAIText returns a backend that reports Unavailable for every call
// when no API key is configured.
func NewOpenAIText(cfg config.OpenAI) (*OpenAIText, error) {
	if cfg.APIKey == "" {
		return &OpenAIText{}, nil
	}

	llm, err := openai.New(
		openai.WithModel(cfg.TextModel),
		openai.WithToken(cfg.APIKey),
		openai.WithBaseURL(cfg.BaseURL),
	)
	if err != nil {
		slog.Error("failed to create openai client", "err", err)
		return nil, err
	}
	return &OpenAIText{llm: llm, model: cfg.TextModel}, nil
}

func (o *OpenAIText) GenerateText(ctx context.Context, system, prompt string) TextResult {
	if o.llm == nil {
		return textUnavailable("no API key configured")
	}

	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, system),
		llms.TextParts(schema.ChatMessageTypeHuman, prompt),
	}
	resp, err := o.llm.GenerateContent(ctx, messages,
		llms.WithModel(o.model),
		llms.WithTemperature(0.7),
	)
	if err != nil {
		return textUnavailable("text model: %v", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
		return textUnavailable("text model returned no content")
	}
	return textOK(strings.TrimSpace(resp.Choices[0].Content))
}

type OpenAIImage struct {
	http    *resty.Client
	apiKey  string
	baseURL string
	model   string
}

func NewOpenAIImage(cfg config.OpenAI, client *resty.Client) *OpenAIImage {
	return &OpenAIImage{
		http:    client,
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.ImageModel,
	}
}

type imageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Size   Size   `json:"size"`
	N      int    `json:"n"`
}

type imageResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (o *OpenAIImage) GenerateImage(ctx context.Context, prompt string, style Style, size Size) ImageResult {
	if o.apiKey == "" {
		return imageUnavailable("no API key configured")
	}

	var out imageResponse
	resp, err := o.http.R().SetContext(ctx).
		SetAuthToken(o.apiKey).
		SetBody(imageRequest{
			Model:  o.model,
			Prompt: prompt + ", in a " + string(style) + " style",
			Size:   size,
			N:      1,
		}).
		SetResult(&out).
		SetError(&out).
		Post(o.baseURL + "/images/generations")
	if err != nil {
		return imageUnavailable("image model: %v", err)
	}
	if resp.IsError() {
		return imageUnavailable("image model returned %d: %s", resp.StatusCode(), out.Error.Message)
	}
	if len(out.Data) == 0 || out.Data[0].URL == "" {
		return imageUnavailable("image model returned no image")
	}
	return imageOK(out.Data[0].URL)
}
