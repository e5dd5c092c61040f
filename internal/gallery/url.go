// Package gallery builds shareable gallery links and drives the image viewer.
package gallery

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/cardify/api/internal/platform/textutil"
)

// Path is the viewer route carried by shareable links.
const Path = "/gallery"

const (
	paramImages = "images"
	paramLogo   = "logo"
)

var (
	// ErrNoImages is returned when a link would carry no images.
	ErrNoImages = errors.New("gallery: no images")
	// ErrEmptyImageRef is returned when an image reference is blank.
	ErrEmptyImageRef = errors.New("gallery: empty image reference")
)

// BuildURL returns origin + /gallery?images=<refs>&logo=<logo>. Every ref is
// component-encoded, so commas inside a ref become %2C and the literal comma
// separator stays unambiguous. The logo parameter is omitted when logo is blank.
func BuildURL(origin string, images []string, logo string) (string, error) {
	if len(images) == 0 {
		return "", ErrNoImages
	}
	encoded := make([]string, 0, len(images))
	for i, ref := range images {
		if strings.TrimSpace(ref) == "" {
			return "", fmt.Errorf("%w at index %d", ErrEmptyImageRef, i)
		}
		encoded = append(encoded, textutil.EncodeURIComponent(ref))
	}
	var b strings.Builder
	b.WriteString(strings.TrimRight(origin, "/"))
	b.WriteString(Path)
	b.WriteString("?" + paramImages + "=")
	b.WriteString(strings.Join(encoded, ","))
	if logo != "" {
		b.WriteString("&" + paramLogo + "=")
		b.WriteString(textutil.EncodeURIComponent(logo))
	}
	return b.String(), nil
}

// Link is a parsed shareable gallery link.
type Link struct {
	Images []string
	Logo   string
}

// ParseURL extracts the ordered image list and logo from a gallery link. The
// images value is split on literal commas before each piece is decoded.
func ParseURL(raw string) (Link, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Link{}, fmt.Errorf("gallery: parse url: %w", err)
	}
	return ParseQuery(u.RawQuery)
}

// ParseQuery is ParseURL for an already-isolated raw query string.
func ParseQuery(rawQuery string) (Link, error) {
	var link Link
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		switch key {
		case paramImages:
			for _, piece := range strings.Split(value, ",") {
				if piece == "" {
					continue
				}
				ref, err := textutil.DecodeURIComponent(piece)
				if err != nil {
					return Link{}, fmt.Errorf("gallery: decode image: %w", err)
				}
				link.Images = append(link.Images, ref)
			}
		case paramLogo:
			logo, err := textutil.DecodeURIComponent(value)
			if err != nil {
				return Link{}, fmt.Errorf("gallery: decode logo: %w", err)
			}
			link.Logo = logo
		}
	}
	return link, nil
}
