package generate

import (
	"errors"
	"fmt"
)

var ErrInvalidRequest = errors.New("invalid generation request")

// Unavailable explains why a backend produced no value. It is a normal
// result, not an error: callers fall back to a placeholder.
type Unavailable struct {
	Reason string
}

type TextResult struct {
	Text        string
	Unavailable *Unavailable
}

type ImageResult struct {
	URL         string
	Unavailable *Unavailable
}

func textOK(text string) TextResult { return TextResult{Text: text} }

func textUnavailable(format string, args ...any) TextResult {
	return TextResult{Unavailable: &Unavailable{Reason: fmt.Sprintf(format, args...)}}
}

func imageOK(url string) ImageResult { return ImageResult{URL: url} }

func imageUnavailable(format string, args ...any) ImageResult {
	return ImageResult{Unavailable: &Unavailable{Reason: fmt.Sprintf(format, args...)}}
}

type Style string

const (
	StyleRealistic    Style = "realistic"
	StyleIllustration Style = "illustration"
	StyleMinimalist   Style = "minimalist"
	StyleCartoon      Style = "cartoon"
	StyleAbstract     Style = "abstract"
)

func ParseStyle(s string) (Style, error) {
	switch st := Style(s); st {
	case StyleRealistic, StyleIllustration, StyleMinimalist, StyleCartoon, StyleAbstract:
		return st, nil
	case "":
		return StyleRealistic, nil
	}
	return "", fmt.Errorf("%w: unknown style %q", ErrInvalidRequest, s)
}

type Size string

const (
	SizeSquare    Size = "1024x1024"
	SizeLandscape Size = "1792x1024"
	SizePortrait  Size = "1024x1792"
)

func ParseSize(s string) (Size, error) {
	switch sz := Size(s); sz {
	case SizeSquare, SizeLandscape, SizePortrait:
		return sz, nil
	case "":
		return SizeSquare, nil
	}
	return "", fmt.Errorf("%w: unknown size %q", ErrInvalidRequest, s)
}
