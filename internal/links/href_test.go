package links

import (
	"testing"

	"github.com/cardify/api/internal/domain"
)

func allDisabled() domain.Links {
	return domain.Links{
		Call:        domain.PhoneLink{CountryCode: "+91", Number: "9876543210"},
		WhatsApp:    domain.PhoneLink{CountryCode: "+91", Number: "9876543210"},
		Location:    domain.ValueLink{Value: "maps.example.com/x"},
		Email:       domain.ValueLink{Value: "a@b.io"},
		Website:     domain.ValueLink{Value: "example.com"},
		Facebook:    domain.ValueLink{Value: "fb.com/acme"},
		Twitter:     domain.ValueLink{Value: "x.com/acme"},
		Instagram:   domain.ValueLink{Value: "instagram.com/acme"},
		LinkedIn:    domain.ValueLink{Value: "linkedin.com/acme"},
		YouTube:     domain.ValueLink{Value: "youtube.com/acme"},
		Brochure:    domain.BrochureLink{Value: "acme.io/b.pdf", FileData: "data:application/pdf;base64,AA=="},
		WorkGallery: domain.GalleryLink{Value: "acme.io/gallery", Images: []string{"https://img/1.png"}},
	}
}

func TestHrefDisabledChannelsAreInert(t *testing.T) {
	l := allDisabled()
	for _, ch := range domain.Channels() {
		if got := Href(l, ch); got != Inert {
			t.Errorf("channel %s: expected inert, got %q", ch, got)
		}
	}
	if !Gallery(l).IsZero() {
		t.Fatalf("disabled gallery should have no source")
	}
}

func TestHrefResolution(t *testing.T) {
	l := domain.Links{
		Call:      domain.PhoneLink{Enabled: true, CountryCode: "+91", Number: "98765-43210"},
		WhatsApp:  domain.PhoneLink{Enabled: true, CountryCode: "+91", Number: "(987) 654 3210"},
		Email:     domain.ValueLink{Enabled: true, Value: " jane@acme.io "},
		Website:   domain.ValueLink{Enabled: true, Value: "example.com"},
		Facebook:  domain.ValueLink{Enabled: true, Value: "https://fb.com/acme"},
		Instagram: domain.ValueLink{Enabled: true},
		Brochure:  domain.BrochureLink{Enabled: true, Value: "acme.io/brochure.pdf"},
	}
	cases := map[domain.Channel]string{
		domain.ChannelCall:      "tel:+919876543210",
		domain.ChannelWhatsApp:  "https://wa.me/919876543210",
		domain.ChannelEmail:     "mailto:jane@acme.io",
		domain.ChannelWebsite:   "https://example.com",
		domain.ChannelFacebook:  "https://fb.com/acme",
		domain.ChannelInstagram: Inert,
		domain.ChannelBrochure:  "https://acme.io/brochure.pdf",
		domain.ChannelTwitter:   Inert,
	}
	for ch, want := range cases {
		if got := Href(l, ch); got != want {
			t.Errorf("channel %s: got %q want %q", ch, got, want)
		}
	}
}

func TestHrefBrochurePrefersUploadedFile(t *testing.T) {
	l := domain.Links{Brochure: domain.BrochureLink{Enabled: true, Value: "acme.io/b.pdf", FileData: "data:application/pdf;base64,AA=="}}
	if got := Href(l, domain.ChannelBrochure); got != "data:application/pdf;base64,AA==" {
		t.Fatalf("got %q", got)
	}
}

func TestGalleryImagesTakePriority(t *testing.T) {
	l := domain.Links{WorkGallery: domain.GalleryLink{Enabled: true, Value: "acme.io/gallery", Images: []string{"a", "", "b"}}}
	src := Gallery(l)
	if src.URL != "" {
		t.Fatalf("expected no URL when images exist, got %q", src.URL)
	}
	if len(src.Images) != 2 || src.Images[0] != "a" || src.Images[1] != "b" {
		t.Fatalf("unexpected images %v", src.Images)
	}
	if got := Href(l, domain.ChannelWorkGallery); got != Inert {
		t.Fatalf("image gallery should not expose a link href, got %q", got)
	}

	l.WorkGallery.Images = nil
	src = Gallery(l)
	if src.URL != "https://acme.io/gallery" || len(src.Images) != 0 {
		t.Fatalf("unexpected link gallery source %+v", src)
	}
}

func TestNormalizeURL(t *testing.T) {
	cases := map[string]string{
		"":                   "",
		"  ":                 "",
		"example.com":        "https://example.com",
		"http://example.com": "http://example.com",
		"HTTPS://x.io":       "HTTPS://x.io",
	}
	for in, want := range cases {
		if got := NormalizeURL(in); got != want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", in, got, want)
		}
	}
}
