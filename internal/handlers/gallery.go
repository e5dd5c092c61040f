package handlers

import (
	"bytes"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cardify/api/internal/gallery"
	"github.com/cardify/api/internal/platform/httpx"
)

const (
	paramIndex    = "i"
	paramAutoplay = "autoplay"
)

var galleryPage = template.Must(template.New("gallery").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
{{- if .Refresh}}
<meta http-equiv="refresh" content="{{.Refresh}}">
{{- end}}
<title>Gallery</title>
</head>
<body>
<main class="gallery">
{{- if .Empty}}
<p class="gallery-empty">No Images Found</p>
{{- else}}
<figure class="gallery-slide" data-index="{{.Index}}">
<img class="gallery-image" src="{{.Current}}" alt="Image {{.Position}} of {{.Total}}">
{{- if .Logo}}
<img class="gallery-logo" src="{{.Logo}}" alt="Logo">
{{- end}}
</figure>
{{- if gt .Total 1}}
<nav class="gallery-nav">
<a class="gallery-prev" href="{{.PrevHref}}" aria-label="Previous image">&lsaquo;</a>
<a class="gallery-next" href="{{.NextHref}}" aria-label="Next image">&rsaquo;</a>
</nav>
<ol class="gallery-dots">
{{- range .Dots}}
<li><a class="gallery-dot{{if .Active}} active{{end}}" href="{{.Href}}" aria-label="Go to image {{.Number}}">{{.Number}}</a></li>
{{- end}}
</ol>
<a class="gallery-autoplay" href="{{.ToggleHref}}">{{if .Autoplay}}Pause{{else}}Play{{end}}</a>
{{- end}}
{{- end}}
</main>
</body>
</html>
`))

// GalleryHandlers renders the shareable gallery viewer.
type GalleryHandlers struct{}

// NewGalleryHandlers constructs the gallery page handler.
func NewGalleryHandlers() *GalleryHandlers {
	return &GalleryHandlers{}
}

// Routes wires GET /gallery at the root.
func (h *GalleryHandlers) Routes(r chi.Router) {
	r.Get(gallery.Path, h.page)
}

type galleryDot struct {
	Number int
	Href   string
	Active bool
}

type galleryView struct {
	Empty      bool
	Index      int
	Position   int
	Total      int
	Current    any
	Logo       any
	PrevHref   string
	NextHref   string
	ToggleHref string
	Autoplay   bool
	Refresh    string
	Dots       []galleryDot
}

func (h *GalleryHandlers) page(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	link, err := gallery.ParseQuery(r.URL.RawQuery)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.BadRequest("invalid_gallery_link", "gallery link could not be decoded"))
		return
	}
	query := r.URL.Query()
	autoplay := !strings.EqualFold(query.Get(paramAutoplay), "off")

	viewer := gallery.NewViewer(link.Images, link.Logo, gallery.WithAutoAdvance(autoplay))
	if raw := query.Get(paramIndex); raw != "" {
		if i, err := strconv.Atoi(raw); err == nil {
			viewer.GoTo(i)
		}
	}

	view := galleryView{Total: viewer.Len(), Autoplay: viewer.AutoAdvance()}
	if view.Total == 0 {
		view.Empty = true
	} else {
		base, err := gallery.BuildURL("", viewer.Images(), viewer.Logo())
		if err != nil {
			httpx.WriteError(ctx, w, httpx.BadRequest("invalid_gallery_link", err.Error()))
			return
		}
		href := func(i int, auto bool) string {
			out := base + "&" + paramIndex + "=" + strconv.Itoa(i)
			if !auto {
				out += "&" + paramAutoplay + "=off"
			}
			return out
		}
		view.Index = viewer.Index()
		view.Position = view.Index + 1
		view.Current = imageSource(viewer.Current())
		if logo := viewer.Logo(); logo != "" {
			view.Logo = imageSource(logo)
		}
		view.PrevHref = href(viewer.PrevIndex(), view.Autoplay)
		view.NextHref = href(viewer.NextIndex(), view.Autoplay)
		view.ToggleHref = href(view.Index, !view.Autoplay)
		for i := 0; i < view.Total; i++ {
			view.Dots = append(view.Dots, galleryDot{Number: i + 1, Href: href(i, view.Autoplay), Active: i == view.Index})
		}
		if view.Autoplay && view.Total > 1 {
			seconds := int(gallery.DefaultInterval.Seconds())
			view.Refresh = strconv.Itoa(seconds) + "; url=" + view.NextHref
		}
	}

	var buf bytes.Buffer
	if err := galleryPage.Execute(&buf, view); err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// imageSource lets inline image payloads through html/template's URL
// filter. Every other reference is left to the filter.
func imageSource(ref string) any {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(ref)), "data:image/") {
		return template.URL(ref)
	}
	return ref
}
