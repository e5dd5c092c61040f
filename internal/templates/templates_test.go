package templates

import (
	"strings"
	"testing"

	"github.com/cardify/api/internal/domain"
	"github.com/cardify/api/internal/render"
)

func mount(t *testing.T, root *render.Node) *render.Frame {
	t.Helper()
	surface, err := render.NewSurface(render.Viewport{Width: render.DesignWidth})
	if err != nil {
		t.Fatalf("surface: %v", err)
	}
	frame, err := surface.Mount(root)
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	return frame
}

func texts(root *render.Node) []string {
	var out []string
	root.Walk(func(n *render.Node) {
		if n.Kind == render.KindText {
			out = append(out, n.Text)
		}
	})
	return out
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if strings.Contains(s, want) {
			return true
		}
	}
	return false
}

func filledCard() domain.CardData {
	card := domain.DefaultCardData()
	card.CompanyName = "Acme"
	card.ContactPersonName = "Jane Doe"
	card.Designation = "Founder"
	card.Address = "1 Main St"
	card.ContactDetails[0].Phone = "9876543210"
	card.Links.Website.Value = "example.com"
	return card
}

func TestEveryVariantMarksOneQRWrapper(t *testing.T) {
	for _, v := range Variants() {
		for _, mode := range []ExportMode{ModeNone, ModeRaster, ModeDocument} {
			frame := mount(t, RenderVariant(v, Input{Card: filledCard(), QRValue: "x", Mode: mode}))
			if got := len(frame.Query(render.AttrQRWrapper, "true")); got != 1 {
				t.Fatalf("%s/%s: expected one qr wrapper, got %d", v.ID(), mode, got)
			}
		}
	}
}

func TestEveryVariantStaysInsideTheCard(t *testing.T) {
	card := filledCard()
	card.Links.WorkGallery = domain.GalleryLink{Enabled: true, Images: []string{"a"}}
	card.Links.Brochure = domain.BrochureLink{Enabled: true, Value: "acme.io/b.pdf"}
	for _, ch := range domain.IconChannels() {
		enable(&card.Links, ch)
	}
	for _, v := range Variants() {
		frame := mount(t, RenderVariant(v, Input{Card: card, QRValue: "x", Mode: ModeDocument}))
		root := frame.Root()
		for _, el := range frame.Elements() {
			if !root.Contains(el.Box, 1e-6) {
				t.Fatalf("%s: element %+v escapes the card %+v", v.ID(), el.Box, root)
			}
		}
	}
}

func enable(l *domain.Links, ch domain.Channel) {
	switch ch {
	case domain.ChannelCall:
		l.Call.Enabled = true
	case domain.ChannelWhatsApp:
		l.WhatsApp.Enabled = true
	case domain.ChannelLocation:
		l.Location.Enabled = true
	case domain.ChannelEmail:
		l.Email.Enabled = true
	case domain.ChannelWebsite:
		l.Website.Enabled = true
	case domain.ChannelFacebook:
		l.Facebook.Enabled = true
	case domain.ChannelTwitter:
		l.Twitter.Enabled = true
	case domain.ChannelInstagram:
		l.Instagram.Enabled = true
	case domain.ChannelLinkedIn:
		l.LinkedIn.Enabled = true
	case domain.ChannelYouTube:
		l.YouTube.Enabled = true
	}
}

func TestGalleryTriggerGating(t *testing.T) {
	card := filledCard()
	for _, v := range Variants() {
		card.Links.WorkGallery = domain.GalleryLink{Enabled: false, Value: "x.com"}
		if n := len(mount(t, RenderVariant(v, Input{Card: card, Mode: ModeDocument})).Query(render.AttrGalleryTrigger, "true")); n != 0 {
			t.Fatalf("%s: disabled gallery rendered %d triggers", v.ID(), n)
		}

		card.Links.WorkGallery.Enabled = true
		if n := len(mount(t, RenderVariant(v, Input{Card: card, Mode: ModeDocument})).Query(render.AttrGalleryTrigger, "true")); n != 1 {
			t.Fatalf("%s: expected one trigger in document mode, got %d", v.ID(), n)
		}
		if n := len(mount(t, RenderVariant(v, Input{Card: card, Mode: ModeNone})).Query(render.AttrGalleryTrigger, "true")); n != 1 {
			t.Fatalf("%s: expected one trigger in preview, got %d", v.ID(), n)
		}
		if n := len(mount(t, RenderVariant(v, Input{Card: card, Mode: ModeRaster})).Query(render.AttrGalleryTrigger, "true")); n != 0 {
			t.Fatalf("%s: raster capture should omit the trigger, got %d", v.ID(), n)
		}
	}
}

func TestGalleryTriggerHref(t *testing.T) {
	card := filledCard()
	card.Links.WorkGallery = domain.GalleryLink{Enabled: true, Value: "photos.example.com"}
	el, ok := mount(t, Render(card, "", "", ModeDocument)).First(render.AttrGalleryTrigger, "true")
	if !ok || el.Node.Href != "https://photos.example.com" {
		t.Fatalf("link-only gallery should carry the normalised url, got %+v", el.Node)
	}

	card.Links.WorkGallery.Images = []string{"data:image/png;base64,AAAA"}
	el, _ = mount(t, Render(card, "", "", ModeDocument)).First(render.AttrGalleryTrigger, "true")
	if el.Node.Href != "" {
		t.Fatalf("uploaded-image gallery is a button, got href %q", el.Node.Href)
	}
}

func TestIconRowHrefs(t *testing.T) {
	card := filledCard()
	card.Links.Email = domain.ValueLink{Enabled: true}
	card.Links.Facebook = domain.ValueLink{Enabled: false, Value: "fb.com/acme"}
	frame := mount(t, Render(card, "", "", ModeDocument))

	byChannel := map[string]*render.Node{}
	for _, el := range frame.Query(render.AttrRole, RoleIcon) {
		byChannel[el.Node.Attr(render.AttrChannel)] = el.Node
	}
	if n := byChannel["website"]; n == nil || n.Href != "https://example.com" {
		t.Fatalf("website icon: %+v", n)
	}
	if n := byChannel["email"]; n == nil || n.Href != "#" || n.Style.Opacity != inertOpacity {
		t.Fatalf("empty email should be an inert dimmed icon: %+v", n)
	}
	if _, ok := byChannel["facebook"]; ok {
		t.Fatalf("disabled channel should not render")
	}
}

func TestPlaceholdersForEmptyCard(t *testing.T) {
	for _, v := range Variants() {
		root := RenderVariant(v, Input{Card: domain.DefaultCardData()})
		got := texts(root)
		for _, want := range []string{PlaceholderCompany, PlaceholderSlogan, PlaceholderName, PlaceholderDesignation, PlaceholderAddress, "Work: " + PlaceholderPhone, PlaceholderQR} {
			if !contains(got, want) {
				t.Errorf("%s: missing placeholder %q in %q", v.ID(), want, got)
			}
		}
	}
}

func TestFilledCardHidesOptionalHints(t *testing.T) {
	card := filledCard()
	card.ContactDetails = append(card.ContactDetails, domain.ContactDetail{Name: "Home"})
	got := texts(Render(card, "", "x", ModeNone))
	if contains(got, PlaceholderSlogan) {
		t.Errorf("slogan hint should hide once the company is named")
	}
	if contains(got, "Home:") {
		t.Errorf("empty contact rows should hide once a name is entered")
	}
	if !contains(got, "Work: +91 9876543210") {
		t.Errorf("expected formatted contact row, got %q", got)
	}
}

func TestQROverlayOnlyInPreview(t *testing.T) {
	card := filledCard()
	if n := len(mount(t, Render(card, "", "x", ModeNone)).Query(render.AttrRole, RoleQROverlay)); n != 1 {
		t.Fatalf("expected overlay in preview, got %d", n)
	}
	for _, mode := range []ExportMode{ModeRaster, ModeDocument} {
		if n := len(mount(t, Render(card, "", "x", mode)).Query(render.AttrRole, RoleQROverlay)); n != 0 {
			t.Fatalf("%s: overlay must not be captured", mode)
		}
	}
}

func TestUnknownTemplateFallsBack(t *testing.T) {
	if ParseVariant("template-42") != VariantOne || ParseVariant("") != VariantOne {
		t.Fatalf("unknown ids should fall back to the first variant")
	}
	if ParseVariant(domain.TemplateSeven) != VariantSeven {
		t.Fatalf("expected variant seven")
	}
}

func TestCatalogCoversEveryVariant(t *testing.T) {
	entries, err := Catalog()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if len(entries) != len(Variants()) {
		t.Fatalf("expected %d entries, got %d", len(Variants()), len(entries))
	}
	if _, err := parseCatalog([]byte("templates:\n  - id: template-1\n")); err == nil {
		t.Fatalf("partial catalog should be rejected")
	}
}
