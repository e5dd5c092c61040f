// Package qr decides what a card's scannable code encodes and renders it.
package qr

import (
	"github.com/cardify/api/internal/contact"
	"github.com/cardify/api/internal/domain"
)

// Resolve returns the string to encode for the card's selected QR mode. An
// empty result means "nothing to encode" and must render as a placeholder.
func Resolve(card domain.CardData) string {
	return ResolveWithRecord(card, contact.Generate(card))
}

// ResolveWithRecord is Resolve for callers that already generated the contact record.
func ResolveWithRecord(card domain.CardData, record string) string {
	l := card.Links
	switch card.QRCodeContent {
	case domain.QRContentWebsite:
		return enabledValue(l.Website.Enabled, l.Website.Value)
	case domain.QRContentBrochure:
		// Uploaded file payloads are too large to encode; only the URL counts.
		return enabledValue(l.Brochure.Enabled, l.Brochure.Value)
	case domain.QRContentLocation:
		return enabledValue(l.Location.Enabled, l.Location.Value)
	case domain.QRContentCustom:
		return card.QRCodeCustomURL
	}
	return record
}

func enabledValue(enabled bool, value string) string {
	if !enabled {
		return ""
	}
	return value
}
