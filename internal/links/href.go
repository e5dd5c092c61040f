// Package links resolves card channels into final hrefs.
package links

import (
	"strings"

	"github.com/cardify/api/internal/domain"
)

// Inert is the href carried by elements whose channel has nothing to link to.
const Inert = "#"

// IsInert reports whether href is the non-navigable placeholder.
func IsInert(href string) bool {
	return strings.TrimSpace(href) == "" || href == Inert
}

// NormalizeURL prefixes https:// when the value does not start with "http".
// Blank input stays blank. Stored values are never rewritten; this runs only
// when an href is resolved.
func NormalizeURL(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(value), "http") {
		return value
	}
	return "https://" + value
}

// Href returns the final href for a channel, or Inert when the channel is
// disabled or empty. It never fails.
func Href(l domain.Links, ch domain.Channel) string {
	if !l.Enabled(ch) {
		return Inert
	}
	switch ch {
	case domain.ChannelCall:
		digits := Digits(l.Call.Number)
		if digits == "" {
			return Inert
		}
		return "tel:" + strings.TrimSpace(l.Call.CountryCode) + digits
	case domain.ChannelWhatsApp:
		digits := Digits(l.WhatsApp.Number)
		if digits == "" {
			return Inert
		}
		return "https://wa.me/" + Digits(l.WhatsApp.CountryCode) + digits
	case domain.ChannelEmail:
		value := strings.TrimSpace(l.Email.Value)
		if value == "" {
			return Inert
		}
		return "mailto:" + value
	case domain.ChannelBrochure:
		if l.Brochure.FileData != "" {
			return l.Brochure.FileData
		}
		return orInert(NormalizeURL(l.Brochure.Value))
	case domain.ChannelWorkGallery:
		if len(nonEmpty(l.WorkGallery.Images)) > 0 {
			return Inert
		}
		return orInert(NormalizeURL(l.WorkGallery.Value))
	}
	return orInert(NormalizeURL(l.Value(ch)))
}

// GallerySource describes where a card's gallery content comes from. At most
// one of Images and URL is set.
type GallerySource struct {
	Images []string
	URL    string
}

// IsZero reports whether the gallery has nothing to show.
func (g GallerySource) IsZero() bool {
	return len(g.Images) == 0 && g.URL == ""
}

// Gallery returns the gallery content source. Uploaded images take priority
// over the configured link value; a disabled channel yields the zero value.
func Gallery(l domain.Links) GallerySource {
	if !l.WorkGallery.Enabled {
		return GallerySource{}
	}
	if images := nonEmpty(l.WorkGallery.Images); len(images) > 0 {
		return GallerySource{Images: images}
	}
	return GallerySource{URL: NormalizeURL(l.WorkGallery.Value)}
}

// Digits strips everything except ASCII digits.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func orInert(href string) string {
	if href == "" {
		return Inert
	}
	return href
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
