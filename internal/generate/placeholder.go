package generate

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/maheshrc27/postpilot/internal/models"
)

var textTemplates = map[models.Platform]string{
	models.PlatformFacebook:  "%s\n\nWhat do you think? Tell us in the comments.",
	models.PlatformInstagram: "%s\n\n%s",
	models.PlatformLinkedin:  "%s\n\nI'd love to hear how others approach this.",
	models.PlatformTiktok:    "%s %s",
	models.PlatformYoutube:   "%s\n\nWatch until the end and subscribe for more.",
}

// PlaceholderText builds a caption from the prompt alone. The output depends
// only on its inputs and always fits the platform's caption limit.
func PlaceholderText(prompt string, p models.Platform) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		prompt = "Something new is coming"
	}

	var text string
	switch p {
	case models.PlatformInstagram, models.PlatformTiktok:
		text = fmt.Sprintf(textTemplates[p], prompt, hashtags(prompt, 3))
	default:
		text = fmt.Sprintf(textTemplates[p], prompt)
	}
	return truncate(text, p.CaptionLimit())
}

// PlaceholderImage points at a static placeholder of the requested size.
func PlaceholderImage(prompt string, size Size) string {
	label := truncate(strings.TrimSpace(prompt), 60)
	if label == "" {
		label = "postpilot"
	}
	return "https://placehold.co/" + string(size) + "?text=" + url.QueryEscape(label)
}

func hashtags(prompt string, n int) string {
	words := strings.FieldsFunc(strings.ToLower(prompt), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tags := make([]string, 0, n)
	seen := make(map[string]bool, n)
	for _, w := range words {
		if len(w) < 3 || seen[w] {
			continue
		}
		seen[w] = true
		tags = append(tags, "#"+w)
		if len(tags) == n {
			break
		}
	}
	if len(tags) == 0 {
		return "#postpilot"
	}
	return strings.Join(tags, " ")
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if limit <= 0 || len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
