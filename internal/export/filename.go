package export

import "github.com/cardify/api/internal/platform/textutil"

const (
	fileSuffix   = "_visiting_card"
	fallbackSlug = "visiting_card"
)

// FileName names an export after the company: diacritics folded, lowercased,
// runs of other characters collapsed to "_". An empty slug is replaced by a
// fallback before the suffix is added, so every name has the same shape.
func FileName(companyName string, format Format) string {
	slug := textutil.Slug(companyName, '_', "")
	if slug == "" {
		slug = fallbackSlug
	}
	return slug + fileSuffix + "." + format.Extension()
}
