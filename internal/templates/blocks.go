package templates

import (
	"math"
	"strconv"
	"strings"

	"github.com/cardify/api/internal/domain"
	"github.com/cardify/api/internal/links"
	"github.com/cardify/api/internal/render"
)

// Placeholder copy shown for empty fields.
const (
	PlaceholderCompany     = "Your Company Name"
	PlaceholderSlogan      = "Your Company Slogan"
	PlaceholderName        = "Your Name"
	PlaceholderDesignation = "Your Designation"
	PlaceholderAddress     = "123 Example St, City"
	PlaceholderPhone       = "xxxxx-xxxxx"
	PlaceholderLogo        = "LOGO"
	PlaceholderQR          = "QR"
)

// Roles tag structural nodes so tests and the export pipeline can find them.
const (
	RoleLogo          = "logo"
	RoleCompany       = "company"
	RoleSlogan        = "slogan"
	RoleName          = "name"
	RoleDesignation   = "designation"
	RoleAddress       = "address"
	RoleContact       = "contact"
	RoleIcon          = "icon"
	RoleBrochure      = "brochure"
	RoleQRPlaceholder = "qr-placeholder"
	RoleQROverlay     = "qr-download-overlay"
)

const (
	colourText       = "#111827"
	colourMuted      = "#4b5563"
	colourLight      = "#ffffff"
	colourLightMuted = "#e5e7eb"
	colourSurface    = "#f3f4f6"
	colourDisabled   = "#d1d5db"
	colourOverlay    = "#000000"

	inertOpacity = 0.5
	iconGap      = 12.0
	maxIconSize  = 48.0
	qrPadding    = 10.0
)

var iconGlyphs = map[domain.Channel]string{
	domain.ChannelCall:        "Call",
	domain.ChannelWhatsApp:    "WA",
	domain.ChannelEmail:       "@",
	domain.ChannelWebsite:     "Web",
	domain.ChannelLocation:    "Map",
	domain.ChannelFacebook:    "f",
	domain.ChannelTwitter:     "X",
	domain.ChannelInstagram:   "IG",
	domain.ChannelLinkedIn:    "in",
	domain.ChannelYouTube:     "YT",
	domain.ChannelBrochure:    "PDF",
	domain.ChannelWorkGallery: "Pics",
}

var qrBadges = map[domain.QRContent]string{
	domain.QRContentVCF:      "VCF",
	domain.QRContentWebsite:  "WEB",
	domain.QRContentBrochure: "PDF",
	domain.QRContentLocation: "MAP",
	domain.QRContentCustom:   "URL",
}

type theme struct {
	primary    string
	accent     string
	background string
	font       string
}

func themeOf(card domain.CardData) theme {
	return theme{
		primary:    card.PrimaryOrDefault(),
		accent:     card.AccentOrDefault(),
		background: card.BackgroundOrDefault(),
		font:       card.FontFamily,
	}
}

// layout places every block of a card. Rects are absolute design units; a
// zero rect omits the block.
type layout struct {
	decor func(theme) []*render.Node

	logo       render.Rect
	company    render.Rect
	slogan     render.Rect
	brandAlign render.Align
	brandLight bool

	name        render.Rect
	designation render.Rect
	separator   render.Rect
	address     render.Rect
	contacts    render.Rect
	infoAlign   render.Align
	infoLight   bool

	icons     render.Rect
	iconAlign render.Align
	iconShape render.Shape
	iconLight bool

	qr render.Rect
}

func composer(build func() layout) renderer {
	return func(in Input) *render.Node {
		return compose(build(), in)
	}
}

func compose(l layout, in Input) *render.Node {
	card := in.Card
	t := themeOf(card)

	root := render.Box(render.Rect{W: render.DesignWidth, H: render.DesignHeight}, render.Style{Fill: t.background})
	if card.BackgroundImage != "" {
		root.Add(render.Image(render.Rect{W: render.DesignWidth, H: render.DesignHeight}, card.BackgroundImage, render.Style{Fit: render.FitCover}))
	}
	if l.decor != nil {
		root.Add(l.decor(t)...)
	}

	root.Add(logoBlock(card, l.logo, t))
	root.Add(brandBlock(card, l, t)...)
	root.Add(infoBlock(card, l, t)...)
	root.Add(qrBlock(in, l.qr))
	root.Add(iconRow(in, l, t))
	return root
}

func textStyle(t theme, size float64, bold bool, colour string, align render.Align) render.Style {
	return render.Style{Color: colour, FontSize: size, Bold: bold, Align: align, Font: t.font}
}

func palette(light bool) (primary, secondary string) {
	if light {
		return colourLight, colourLightMuted
	}
	return colourText, colourMuted
}

func role(n *render.Node, r string) *render.Node {
	return n.SetAttr(render.AttrRole, r)
}

func isZero(r render.Rect) bool { return r.W <= 0 || r.H <= 0 }

func logoShape(s domain.LogoShape) render.Shape {
	switch s {
	case domain.LogoShapeCircle:
		return render.ShapeCircle
	case domain.LogoShapeRounded:
		return render.ShapeRounded
	case domain.LogoShapeHexagon:
		return render.ShapeHexagon
	}
	return render.ShapeRect
}

func logoFit(f domain.LogoFit) render.Fit {
	switch f {
	case domain.LogoFitContain:
		return render.FitContain
	case domain.LogoFitFixed:
		return render.FitFixed
	}
	return render.FitCover
}

func logoBlock(card domain.CardData, r render.Rect, t theme) *render.Node {
	if isZero(r) {
		return nil
	}
	shape := logoShape(card.LogoShape)
	frame := render.Box(r, render.Style{Shape: shape})
	if !card.LogoRemoveBorder {
		frame.Style.Stroke = t.accent
		frame.Style.StrokeWidth = 3
	}
	inner := render.Rect{W: r.W, H: r.H}
	if card.CompanyLogo != "" {
		frame.Add(render.Image(inner, card.CompanyLogo, render.Style{Shape: shape, Fit: logoFit(card.LogoFit)}))
	} else {
		frame.Style.Fill = colourSurface
		frame.Add(render.Text(render.Rect{Y: r.H/2 - 10, W: r.W, H: 24}, PlaceholderLogo,
			textStyle(t, 16, true, colourMuted, render.AlignCenter)))
	}
	return role(frame, RoleLogo)
}

func brandBlock(card domain.CardData, l layout, t theme) []*render.Node {
	strong, soft := palette(l.brandLight)
	var out []*render.Node
	if !isZero(l.company) {
		out = append(out, role(render.Text(l.company, orPlaceholder(card.CompanyName, PlaceholderCompany),
			textStyle(t, 30, true, strong, l.brandAlign)), RoleCompany))
	}
	// The slogan stays visible as a hint until a company name is entered.
	if !isZero(l.slogan) && (card.CompanySlogan != "" || card.CompanyName == "") {
		out = append(out, role(render.Text(l.slogan, orPlaceholder(card.CompanySlogan, PlaceholderSlogan),
			textStyle(t, 18, false, soft, l.brandAlign)), RoleSlogan))
	}
	return out
}

func infoBlock(card domain.CardData, l layout, t theme) []*render.Node {
	strong, soft := palette(l.infoLight)
	var out []*render.Node
	if !isZero(l.name) {
		out = append(out, role(render.Text(l.name, orPlaceholder(card.ContactPersonName, PlaceholderName),
			textStyle(t, 34, true, strong, l.infoAlign)), RoleName))
	}
	if !isZero(l.designation) {
		out = append(out, role(render.Text(l.designation, orPlaceholder(card.Designation, PlaceholderDesignation),
			textStyle(t, 20, false, soft, l.infoAlign)), RoleDesignation))
	}
	if !isZero(l.separator) {
		out = append(out, render.Box(l.separator, render.Style{Fill: t.accent}))
	}
	if !isZero(l.address) && (card.Address != "" || card.ContactPersonName == "") {
		out = append(out, role(render.Text(l.address, orPlaceholder(card.Address, PlaceholderAddress),
			textStyle(t, 16, false, soft, l.infoAlign)), RoleAddress))
	}
	if !isZero(l.contacts) {
		if rows := contactRows(card, l, t, strong); rows != nil {
			out = append(out, rows)
		}
	}
	return out
}

func contactRows(card domain.CardData, l layout, t theme, colour string) *render.Node {
	type row struct{ label, value string }
	var rows []row
	for i, d := range card.ContactDetails {
		if strings.TrimSpace(d.Phone) == "" && card.ContactPersonName != "" {
			continue
		}
		label := d.Name
		if strings.TrimSpace(label) == "" {
			label = "Contact " + strconv.Itoa(i+1)
		}
		value := PlaceholderPhone
		if strings.TrimSpace(d.Phone) != "" {
			value = strings.TrimSpace(strings.TrimSpace(d.CountryCode) + " " + strings.TrimSpace(d.Phone))
		}
		rows = append(rows, row{label: label, value: value})
	}
	if len(rows) == 0 {
		return nil
	}
	box := render.Box(l.contacts, render.Style{})
	h := math.Min(l.contacts.H/float64(domain.MaxContactDetails), 36)
	size := math.Min(18, h*0.6)
	for i, r := range rows {
		box.Add(role(render.Text(render.Rect{Y: float64(i) * h, W: l.contacts.W, H: h}, r.label+": "+r.value,
			textStyle(t, size, false, colour, l.infoAlign)), RoleContact))
	}
	return box
}

func qrBlock(in Input, r render.Rect) *render.Node {
	if isZero(r) {
		return nil
	}
	wrapper := render.Box(r, render.Style{Fill: colourLight, Radius: 8})
	wrapper.SetAttr(render.AttrQRWrapper, "true")
	inner := render.Rect{X: qrPadding, Y: qrPadding, W: r.W - 2*qrPadding, H: r.H - 2*qrPadding}

	if in.QRValue == "" {
		placeholder := render.Box(inner, render.Style{Fill: colourSurface, Radius: 4},
			render.Text(render.Rect{Y: inner.H/2 - 12, W: inner.W, H: 28}, PlaceholderQR,
				render.Style{Color: colourMuted, FontSize: 20, Bold: true, Align: render.AlignCenter, Opacity: inertOpacity}))
		wrapper.Add(role(placeholder, RoleQRPlaceholder))
	} else {
		wrapper.Add(render.QRCode(inner, in.QRValue))
		if badge, ok := qrBadges[in.Card.QRCodeContent]; ok {
			bw, bh := 40.0, 22.0
			wrapper.Add(render.Box(render.Rect{X: r.W/2 - bw/2, Y: r.H/2 - bh/2, W: bw, H: bh}, render.Style{Fill: colourLight, Radius: 4},
				render.Text(render.Rect{Y: 3, W: bw, H: bh}, badge, render.Style{Color: colourText, FontSize: 12, Bold: true, Align: render.AlignCenter})))
		}
	}
	if in.Mode == ModeNone {
		// Hover affordance for downloading the code; never captured.
		wrapper.Add(role(render.Box(render.Rect{W: r.W, H: r.H}, render.Style{}), RoleQROverlay))
	}
	return wrapper
}

type iconItem struct {
	channel domain.Channel
	node    *render.Node
}

func iconRow(in Input, l layout, t theme) *render.Node {
	if isZero(l.icons) {
		return nil
	}
	card := in.Card
	var items []iconItem
	for _, ch := range domain.IconChannels() {
		if !card.Links.Enabled(ch) {
			continue
		}
		href := links.Href(card.Links, ch)
		n := iconNode(ch, l, t, links.IsInert(href))
		n.SetAttr(render.AttrChannel, string(ch))
		items = append(items, iconItem{channel: ch, node: role(render.Anchor(n, href), RoleIcon)})
	}
	if card.Links.Brochure.Enabled {
		href := links.Href(card.Links, domain.ChannelBrochure)
		n := iconNode(domain.ChannelBrochure, l, t, links.IsInert(href))
		n.SetAttr(render.AttrChannel, string(domain.ChannelBrochure))
		items = append(items, iconItem{channel: domain.ChannelBrochure, node: role(render.Anchor(n, href), RoleBrochure)})
	}
	if trigger := galleryTrigger(in, l, t); trigger != nil {
		items = append(items, iconItem{channel: domain.ChannelWorkGallery, node: trigger})
	}
	if len(items) == 0 {
		return nil
	}

	n := float64(len(items))
	size := math.Min(math.Min(l.icons.H, maxIconSize), (l.icons.W-iconGap*(n-1))/n)
	total := size*n + iconGap*(n-1)
	start := 0.0
	switch l.iconAlign {
	case render.AlignCenter:
		start = (l.icons.W - total) / 2
	case render.AlignRight:
		start = l.icons.W - total
	}
	row := render.Box(l.icons, render.Style{})
	for i, it := range items {
		it.node.Rect = render.Rect{X: start + float64(i)*(size+iconGap), Y: (l.icons.H - size) / 2, W: size, H: size}
		for _, c := range it.node.Children {
			c.Rect = render.Rect{Y: size/2 - size*0.2, W: size, H: size * 0.5}
			c.Style.FontSize = size * 0.3
		}
		row.Add(it.node)
	}
	return row
}

// iconNode draws a channel badge. Children are sized by iconRow.
func iconNode(ch domain.Channel, l layout, t theme, inert bool) *render.Node {
	fill, label := colourSurface, t.accent
	if l.iconLight {
		fill, label = "#ffffff33", colourLight
	}
	style := render.Style{Fill: fill, Shape: l.iconShape}
	if l.iconShape == render.ShapeRect {
		style = render.Style{Stroke: t.accent, StrokeWidth: 2, Radius: 8}
	}
	if inert {
		style.Opacity = inertOpacity
	}
	return render.Box(render.Rect{}, style,
		render.Text(render.Rect{}, iconGlyphs[ch], render.Style{Color: label, Bold: true, Align: render.AlignCenter, Font: t.font}))
}

// galleryTrigger emits the gallery marker. It is omitted from raster
// captures and when the channel is disabled.
func galleryTrigger(in Input, l layout, t theme) *render.Node {
	if !in.Card.Links.WorkGallery.Enabled || in.Mode == ModeRaster {
		return nil
	}
	src := links.Gallery(in.Card.Links)
	n := iconNode(domain.ChannelWorkGallery, l, t, src.IsZero())
	n.SetAttr(render.AttrGalleryTrigger, "true")
	n.SetAttr(render.AttrChannel, string(domain.ChannelWorkGallery))
	switch {
	case len(src.Images) > 0:
		// Opens the inline viewer; no href.
	case src.URL != "":
		render.Anchor(n, src.URL)
	default:
		n.Style.Stroke = colourDisabled
		n.Style.StrokeWidth = 2
		n.Style.Fill = ""
	}
	return n
}

func orPlaceholder(value, placeholder string) string {
	if strings.TrimSpace(value) == "" {
		return placeholder
	}
	return value
}
