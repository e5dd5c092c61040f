package domain

import "strings"

// Template identifiers. The first one doubles as the fallback for unknown ids.
const (
	TemplateOne   = "template-1"
	TemplateTwo   = "template-2"
	TemplateThree = "template-3"
	TemplateFour  = "template-4"
	TemplateFive  = "template-5"
	TemplateSix   = "template-6"
	TemplateSeven = "template-7"
	TemplateEight = "template-8"
	TemplateNine  = "template-9"

	DefaultTemplate = TemplateOne
)

// Theme defaults applied when colour or font fields are unset.
const (
	DefaultPrimaryColor    = "#0ea5e9"
	DefaultAccentColor     = "#008080"
	DefaultBackgroundColor = "#ffffff"
	DefaultFontFamily      = "Inter"
	DefaultCountryCode     = "+91"
)

// TemplateIDs lists every known template id in display order.
func TemplateIDs() []string {
	return []string{
		TemplateOne, TemplateTwo, TemplateThree, TemplateFour, TemplateFive,
		TemplateSix, TemplateSeven, TemplateEight, TemplateNine,
	}
}

// ResolveTemplate maps unknown or missing template ids to the default template.
func ResolveTemplate(id string) string {
	id = strings.TrimSpace(id)
	for _, known := range TemplateIDs() {
		if id == known {
			return id
		}
	}
	return DefaultTemplate
}

// DefaultCardData returns a fresh card populated with the schema defaults.
func DefaultCardData() CardData {
	return CardData{
		Template:      DefaultTemplate,
		LogoShape:     LogoShapeRounded,
		LogoFit:       LogoFitCover,
		QRCodeContent: QRContentVCF,
		ContactDetails: []ContactDetail{
			{Name: "Work", CountryCode: DefaultCountryCode},
		},
		PrimaryColor:    DefaultPrimaryColor,
		AccentColor:     DefaultAccentColor,
		BackgroundColor: DefaultBackgroundColor,
		FontFamily:      DefaultFontFamily,
		Links: Links{
			Call:     PhoneLink{Enabled: true, CountryCode: DefaultCountryCode},
			WhatsApp: PhoneLink{Enabled: false, CountryCode: DefaultCountryCode},
			Email:    ValueLink{Enabled: true},
			Website:  ValueLink{Enabled: true},
		},
		VCardDetails: &VCardDetails{},
	}
}

// PrimaryOrDefault returns the primary colour, falling back to the theme default.
func (c CardData) PrimaryOrDefault() string {
	return orDefault(c.PrimaryColor, DefaultPrimaryColor)
}

// AccentOrDefault returns the accent colour, falling back to the theme default.
func (c CardData) AccentOrDefault() string {
	return orDefault(c.AccentColor, DefaultAccentColor)
}

// BackgroundOrDefault returns the background colour, falling back to the theme default.
func (c CardData) BackgroundOrDefault() string {
	return orDefault(c.BackgroundColor, DefaultBackgroundColor)
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
