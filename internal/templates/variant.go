// Package templates turns card data into layout trees, one arrangement per
// template variant.
package templates

import (
	"github.com/cardify/api/internal/domain"
	"github.com/cardify/api/internal/render"
)

// Variant is one of the nine card arrangements.
type Variant int

const (
	VariantOne Variant = iota + 1
	VariantTwo
	VariantThree
	VariantFour
	VariantFive
	VariantSix
	VariantSeven
	VariantEight
	VariantNine
)

var variantIDs = map[Variant]string{
	VariantOne:   domain.TemplateOne,
	VariantTwo:   domain.TemplateTwo,
	VariantThree: domain.TemplateThree,
	VariantFour:  domain.TemplateFour,
	VariantFive:  domain.TemplateFive,
	VariantSix:   domain.TemplateSix,
	VariantSeven: domain.TemplateSeven,
	VariantEight: domain.TemplateEight,
	VariantNine:  domain.TemplateNine,
}

// ID returns the template id stored on cards.
func (v Variant) ID() string {
	if id, ok := variantIDs[v]; ok {
		return id
	}
	return domain.DefaultTemplate
}

// ParseVariant maps a template id to its variant. Unknown ids fall back to VariantOne.
func ParseVariant(id string) Variant {
	resolved := domain.ResolveTemplate(id)
	for v, known := range variantIDs {
		if known == resolved {
			return v
		}
	}
	return VariantOne
}

// Variants lists every variant in catalog order.
func Variants() []Variant {
	return []Variant{
		VariantOne, VariantTwo, VariantThree, VariantFour, VariantFive,
		VariantSix, VariantSeven, VariantEight, VariantNine,
	}
}

// ExportMode gates live-only affordances and the gallery trigger.
type ExportMode int

const (
	// ModeNone is the interactive preview.
	ModeNone ExportMode = iota
	// ModeRaster is a flattened image capture.
	ModeRaster
	// ModeDocument is a capture destined for a document with link regions.
	ModeDocument
)

func (m ExportMode) String() string {
	switch m {
	case ModeRaster:
		return "raster"
	case ModeDocument:
		return "document"
	}
	return "none"
}

// Input is everything a renderer reads. Renderers never modify it.
type Input struct {
	Card          domain.CardData
	ContactRecord string
	QRValue       string
	Mode          ExportMode
}

type renderer func(Input) *render.Node

var dispatch = map[Variant]renderer{
	VariantOne:   composer(panelLeft),
	VariantTwo:   composer(topBanner),
	VariantThree: composer(headerRule),
	VariantFour:  composer(framed),
	VariantFive:  composer(centredOverlay),
	VariantSix:   composer(panelRight),
	VariantSeven: composer(stripes),
	VariantEight: composer(splitHalves),
	VariantNine:  composer(gradientSide),
}

// Render lays out the card with the variant named by card.Template.
func Render(card domain.CardData, contactRecord, qrValue string, mode ExportMode) *render.Node {
	return RenderVariant(ParseVariant(card.Template), Input{
		Card:          card,
		ContactRecord: contactRecord,
		QRValue:       qrValue,
		Mode:          mode,
	})
}

// RenderVariant lays out in with an explicit variant.
func RenderVariant(v Variant, in Input) *render.Node {
	fn, ok := dispatch[v]
	if !ok {
		fn = dispatch[VariantOne]
	}
	return fn(in)
}
