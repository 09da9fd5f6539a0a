package models

import (
	"fmt"
	"strings"
)

type Platform string

const (
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformLinkedin  Platform = "linkedin"
	PlatformTiktok    Platform = "tiktok"
	PlatformYoutube   Platform = "youtube"
)

// Platforms lists every supported platform in display order.
var Platforms = []Platform{
	PlatformFacebook,
	PlatformInstagram,
	PlatformLinkedin,
	PlatformTiktok,
	PlatformYoutube,
}

func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("unsupported platform %q", s)
	}
	return p, nil
}

func (p Platform) Valid() bool {
	switch p {
	case PlatformFacebook, PlatformInstagram, PlatformLinkedin, PlatformTiktok, PlatformYoutube:
		return true
	}
	return false
}

func (p Platform) String() string { return string(p) }

type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

type MediaLimit struct {
	MaxBytes   int64
	Extensions []string
}

func (l MediaLimit) Allows(ext string) bool {
	for _, e := range l.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

const mb = 1 << 20

var mediaLimits = map[Platform]map[MediaKind]MediaLimit{
	PlatformFacebook: {
		MediaImage: {MaxBytes: 10 * mb, Extensions: []string{"jpg", "png", "gif"}},
		MediaVideo: {MaxBytes: 1024 * mb, Extensions: []string{"mp4", "mov"}},
	},
	PlatformInstagram: {
		MediaImage: {MaxBytes: 8 * mb, Extensions: []string{"jpg", "png"}},
		MediaVideo: {MaxBytes: 300 * mb, Extensions: []string{"mp4", "mov"}},
	},
	PlatformLinkedin: {
		MediaImage: {MaxBytes: 8 * mb, Extensions: []string{"jpg", "png", "gif"}},
		MediaVideo: {MaxBytes: 200 * mb, Extensions: []string{"mp4"}},
	},
	PlatformTiktok: {
		MediaImage: {MaxBytes: 20 * mb, Extensions: []string{"jpg", "webp"}},
		MediaVideo: {MaxBytes: 287 * mb, Extensions: []string{"mp4", "mov", "webm"}},
	},
	PlatformYoutube: {
		MediaVideo: {MaxBytes: 2048 * mb, Extensions: []string{"mp4", "mov", "webm"}},
	},
}

// MediaLimit reports the upload limit of a platform for a media kind. The
// second return is false when the platform does not accept that kind at all.
func (p Platform) MediaLimit(kind MediaKind) (MediaLimit, bool) {
	l, ok := mediaLimits[p][kind]
	return l, ok
}

var captionLimits = map[Platform]int{
	PlatformFacebook:  63206,
	PlatformInstagram: 2200,
	PlatformLinkedin:  3000,
	PlatformTiktok:    2200,
	PlatformYoutube:   5000,
}

func (p Platform) CaptionLimit() int {
	return captionLimits[p]
}

// RequiresMedia is true for platforms that cannot publish text-only posts.
func (p Platform) RequiresMedia() bool {
	switch p {
	case PlatformInstagram, PlatformTiktok, PlatformYoutube:
		return true
	}
	return false
}

var generationContexts = map[Platform]string{
	PlatformFacebook:  "You write Facebook page posts: conversational, community oriented, one clear call to action.",
	PlatformInstagram: "You write Instagram captions: visual, upbeat, short lines, a few relevant hashtags at the end.",
	PlatformLinkedin:  "You write LinkedIn posts: professional, insight driven, short paragraphs, no slang.",
	PlatformTiktok:    "You write TikTok captions: punchy, trend aware, one hook sentence and hashtags.",
	PlatformYoutube:   "You write YouTube video descriptions: a hook line, a short summary, then relevant keywords.",
}

// GenerationContext is the system prompt hint used when generating captions
// for the platform.
func (p Platform) GenerationContext() string {
	return generationContexts[p]
}
