package generate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maheshrc27/postpilot/internal/models"
	"golang.org/x/sync/semaphore"
)

type Source string

const (
	SourceModel       Source = "model"
	SourcePlaceholder Source = "placeholder"
)

// Generated is what callers receive. Value is never empty.
type Generated struct {
	Value  string `json:"value"`
	Source Source `json:"source"`
	Reason string `json:"reason,omitempty"`
}

const (
	textWeight  = 5
	imageWeight = 2
)

type Service struct {
	text     TextBackend
	image    ImageBackend
	textSem  *semaphore.Weighted
	imageSem *semaphore.Weighted
}

func NewService(text TextBackend, image ImageBackend) *Service {
	return &Service{
		text:     text,
		image:    image,
		textSem:  semaphore.NewWeighted(textWeight),
		imageSem: semaphore.NewWeighted(imageWeight),
	}
}

// GenerateText only fails on an unknown platform. An empty prompt or any
// backend problem yields a placeholder caption.
func (s *Service) GenerateText(ctx context.Context, prompt string, p models.Platform) (Generated, error) {
	if !p.Valid() {
		return Generated{}, fmt.Errorf("%w: unknown platform %q", ErrInvalidRequest, p)
	}

	prompt = strings.TrimSpace(prompt)
	res := textUnavailable("prompt is empty")
	if prompt != "" {
		res = s.textResult(ctx, prompt, p)
	}
	if res.Unavailable != nil {
		slog.Warn("text generation unavailable, using placeholder", "platform", p, "reason", res.Unavailable.Reason)
		return Generated{
			Value:  PlaceholderText(prompt, p),
			Source: SourcePlaceholder,
			Reason: res.Unavailable.Reason,
		}, nil
	}
	return Generated{Value: truncate(res.Text, p.CaptionLimit()), Source: SourceModel}, nil
}

func (s *Service) textResult(ctx context.Context, prompt string, p models.Platform) TextResult {
	if s.text == nil {
		return textUnavailable("no text backend configured")
	}
	if err := s.textSem.Acquire(ctx, 1); err != nil {
		return textUnavailable("%v", err)
	}
	defer s.textSem.Release(1)

	system := fmt.Sprintf("%s Keep it under %d characters. Reply with the post text only.",
		p.GenerationContext(), p.CaptionLimit())
	return s.text.GenerateText(ctx, system, prompt)
}

// GenerateImage only fails on an unknown style or size.
func (s *Service) GenerateImage(ctx context.Context, prompt string, style Style, size Size) (Generated, error) {
	if _, err := ParseStyle(string(style)); err != nil || style == "" {
		return Generated{}, fmt.Errorf("%w: unknown style %q", ErrInvalidRequest, style)
	}
	if _, err := ParseSize(string(size)); err != nil || size == "" {
		return Generated{}, fmt.Errorf("%w: unknown size %q", ErrInvalidRequest, size)
	}

	prompt = strings.TrimSpace(prompt)
	res := imageUnavailable("prompt is empty")
	if prompt != "" {
		res = s.imageResult(ctx, prompt, style, size)
	}
	if res.Unavailable != nil {
		slog.Warn("image generation unavailable, using placeholder", "reason", res.Unavailable.Reason)
		return Generated{
			Value:  PlaceholderImage(prompt, size),
			Source: SourcePlaceholder,
			Reason: res.Unavailable.Reason,
		}, nil
	}
	return Generated{Value: res.URL, Source: SourceModel}, nil
}

func (s *Service) imageResult(ctx context.Context, prompt string, style Style, size Size) ImageResult {
	if s.image == nil {
		return imageUnavailable("no image backend configured")
	}
	if err := s.imageSem.Acquire(ctx, 1); err != nil {
		return imageUnavailable("%v", err)
	}
	defer s.imageSem.Release(1)

	return s.image.GenerateImage(ctx, prompt, style, size)
}
