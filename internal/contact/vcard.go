// Package contact builds the portable contact record embedded in cards.
package contact

import (
	"strings"

	"github.com/cardify/api/internal/domain"
	"github.com/cardify/api/internal/platform/textutil"
)

// DataURIPrefix is prepended to an encoded record to form an inline download link.
const DataURIPrefix = "data:text/vcard;charset=utf-8,"

// Generate returns the vCard 3.0 record for the card, or "" when the card has
// no contact-record fields. Callers treat "" as "no record available".
func Generate(card domain.CardData) string {
	d := card.VCardDetails
	if d.IsEmpty() {
		return ""
	}

	lines := []string{"BEGIN:VCARD", "VERSION:3.0"}
	add := func(prefix, value string) {
		if value != "" {
			lines = append(lines, prefix+value)
		}
	}

	if d.FirstName != "" || d.LastName != "" {
		lines = append(lines, "N:"+d.LastName+";"+d.FirstName+";;;")
		lines = append(lines, "FN:"+joinNonEmpty(" ", d.FirstName, d.LastName))
	}
	add("TITLE:", d.Title)
	add("ORG:", d.Company)
	add("TEL;TYPE=WORK,VOICE:", d.PhoneBusiness)
	add("TEL;TYPE=CELL:", d.PhoneMobile)
	add("TEL;TYPE=HOME,VOICE:", d.PhonePersonal)
	if d.Street != "" || d.City != "" || d.Zip != "" || d.Country != "" {
		lines = append(lines, "ADR;TYPE=WORK:;;"+d.Street+";"+d.City+";;"+d.Zip+";"+d.Country)
	}
	add("EMAIL;TYPE=WORK:", d.EmailBusiness)
	add("EMAIL;TYPE=HOME:", d.EmailPersonal)
	add("URL:", d.Website)
	lines = append(lines, "END:VCARD")

	return strings.Join(lines, "\n")
}

// DataURI wraps a record as an inline data payload. An empty record yields "".
func DataURI(record string) string {
	if record == "" {
		return ""
	}
	return DataURIPrefix + textutil.EncodeURIComponent(record)
}

// Apply copies non-empty contact-record fields into the card's displayed
// fields and stores the details on the card. The input card is not modified.
func Apply(card domain.CardData, details domain.VCardDetails) domain.CardData {
	out := card.Clone()
	copied := details
	out.VCardDetails = &copied

	set := func(dst *string, value string) {
		if value = strings.TrimSpace(value); value != "" {
			*dst = value
		}
	}
	set(&out.CompanyName, details.Company)
	set(&out.ContactPersonName, joinNonEmpty(" ", details.FirstName, details.LastName))
	set(&out.Designation, details.Title)
	set(&out.Address, joinNonEmpty(", ", details.Street, details.City, details.Zip, details.Country))

	phone := details.PhoneBusiness
	if phone == "" {
		phone = details.PhoneMobile
	}
	if phone = strings.TrimSpace(phone); phone != "" {
		if len(out.ContactDetails) == 0 {
			out.ContactDetails = []domain.ContactDetail{{Name: "Work", CountryCode: domain.DefaultCountryCode}}
		}
		out.ContactDetails[0].Phone = phone
	}
	if details.EmailBusiness != "" {
		out.Links.Email.Value = details.EmailBusiness
	}
	if details.Website != "" {
		out.Links.Website.Value = details.Website
	}
	return out
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
