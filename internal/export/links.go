package export

import (
	"strings"

	"github.com/cardify/api/internal/domain"
	"github.com/cardify/api/internal/links"
	"github.com/cardify/api/internal/render"
)

// Page is the document page size in points. It matches the card aspect ratio.
const (
	PageWidth  = 1050.0
	PageHeight = 600.0
)

// LinkKind classifies a clickable document region.
type LinkKind string

const (
	LinkContact LinkKind = "contact"
	LinkGallery LinkKind = "gallery"
	LinkAnchor  LinkKind = "anchor"
)

// Link is a clickable rectangle in page coordinates.
type Link struct {
	Kind LinkKind    `json:"kind"`
	URL  string      `json:"url"`
	Rect render.Rect `json:"rect"`
}

// Transform maps a captured element's CSS box onto the page.
type Transform struct {
	ScaleX float64
	ScaleY float64
}

// TransformFor derives the page transform from the measured root box. The
// bitmap's pixel size never enters the computation.
func TransformFor(f *render.Frame) Transform {
	root := f.Root()
	return Transform{ScaleX: PageWidth / root.W, ScaleY: PageHeight / root.H}
}

// Apply converts a frame-relative CSS box to page coordinates.
func (t Transform) Apply(r render.Rect) render.Rect {
	return r.Scale(t.ScaleX, t.ScaleY)
}

type linkInputs struct {
	card          domain.CardData
	contactRecord string
	contactURI    string
	galleryURL    string
}

// collectLinks builds the annotation set for a mounted document-mode frame.
func collectLinks(f *render.Frame, in linkInputs) []Link {
	t := TransformFor(f)
	var out []Link

	if in.card.QRCodeContent == domain.QRContentVCF && in.contactRecord != "" {
		if el, ok := f.First(render.AttrQRWrapper, "true"); ok {
			out = append(out, Link{Kind: LinkContact, URL: in.contactURI, Rect: t.Apply(f.Relative(el.Box))})
		}
	}

	if in.galleryURL != "" {
		if el, ok := f.First(render.AttrGalleryTrigger, "true"); ok {
			out = append(out, Link{Kind: LinkGallery, URL: in.galleryURL, Rect: t.Apply(f.Relative(el.Box))})
		}
	}

	for _, el := range f.Anchors() {
		if el.Node.Attr(render.AttrGalleryTrigger) == "true" {
			continue
		}
		href := strings.TrimSpace(el.Node.Href)
		if links.IsInert(href) || !linkable(href) {
			continue
		}
		out = append(out, Link{Kind: LinkAnchor, URL: href, Rect: t.Apply(f.Relative(el.Box))})
	}
	return out
}

func linkable(href string) bool {
	lower := strings.ToLower(href)
	for _, scheme := range []string{"http://", "https://", "mailto:", "tel:"} {
		if strings.HasPrefix(lower, scheme) {
			return true
		}
	}
	return false
}
