package domain

import "time"

// MaxContactDetails bounds the number of contact entries a card may carry.
const MaxContactDetails = 3

// Card design space. Every template lays out inside this box.
const (
	CardWidth  = 1050.0
	CardHeight = 600.0
)

// LogoShape enumerates the masks applied to the company logo.
type LogoShape string

const (
	LogoShapeSquare  LogoShape = "square"
	LogoShapeCircle  LogoShape = "circle"
	LogoShapeRounded LogoShape = "rounded"
	LogoShapeHexagon LogoShape = "hexagon"
)

// IsValid reports whether the shape is one of the supported masks.
func (s LogoShape) IsValid() bool {
	switch s {
	case LogoShapeSquare, LogoShapeCircle, LogoShapeRounded, LogoShapeHexagon:
		return true
	}
	return false
}

// LogoFit enumerates how the logo is scaled into its frame.
type LogoFit string

const (
	LogoFitContain LogoFit = "contain"
	LogoFitCover   LogoFit = "cover"
	LogoFitFixed   LogoFit = "fixed"
)

// IsValid reports whether the fit mode is supported.
func (f LogoFit) IsValid() bool {
	switch f {
	case LogoFitContain, LogoFitCover, LogoFitFixed:
		return true
	}
	return false
}

// QRContent selects what the scannable code on a card encodes.
type QRContent string

const (
	QRContentVCF      QRContent = "vcf"
	QRContentWebsite  QRContent = "website"
	QRContentBrochure QRContent = "brochure"
	QRContentLocation QRContent = "location"
	QRContentCustom   QRContent = "custom"
)

// IsValid reports whether the QR mode is supported.
func (q QRContent) IsValid() bool {
	switch q {
	case QRContentVCF, QRContentWebsite, QRContentBrochure, QRContentLocation, QRContentCustom:
		return true
	}
	return false
}

// ContactDetail is one labelled phone number shown on the card.
type ContactDetail struct {
	Name        string `json:"name" firestore:"name"`
	CountryCode string `json:"countryCode" firestore:"countryCode"`
	Phone       string `json:"phone" firestore:"phone"`
}

// PhoneLink is a phone-shaped channel (call, whatsapp).
type PhoneLink struct {
	Enabled     bool   `json:"enabled" firestore:"enabled"`
	CountryCode string `json:"countryCode" firestore:"countryCode"`
	Number      string `json:"number" firestore:"number"`
}

// ValueLink is a URL- or address-shaped channel.
type ValueLink struct {
	Enabled bool   `json:"enabled" firestore:"enabled"`
	Value   string `json:"value" firestore:"value"`
}

// BrochureLink points either at a hosted brochure or at an uploaded file payload.
type BrochureLink struct {
	Enabled  bool   `json:"enabled" firestore:"enabled"`
	Value    string `json:"value" firestore:"value"`
	FileData string `json:"fileData,omitempty" firestore:"fileData,omitempty"`
	FileName string `json:"fileName,omitempty" firestore:"fileName,omitempty"`
}

// GalleryLink points either at an external gallery or at uploaded images.
type GalleryLink struct {
	Enabled bool     `json:"enabled" firestore:"enabled"`
	Value   string   `json:"value" firestore:"value"`
	Images  []string `json:"images,omitempty" firestore:"images,omitempty"`
}

// Links is the fixed set of outbound channels a card can expose.
type Links struct {
	Call        PhoneLink    `json:"call" firestore:"call"`
	WhatsApp    PhoneLink    `json:"whatsapp" firestore:"whatsapp"`
	Location    ValueLink    `json:"location" firestore:"location"`
	Email       ValueLink    `json:"email" firestore:"email"`
	Website     ValueLink    `json:"website" firestore:"website"`
	Facebook    ValueLink    `json:"facebook" firestore:"facebook"`
	Twitter     ValueLink    `json:"twitter" firestore:"twitter"`
	Instagram   ValueLink    `json:"instagram" firestore:"instagram"`
	LinkedIn    ValueLink    `json:"linkedin" firestore:"linkedin"`
	YouTube     ValueLink    `json:"youtube" firestore:"youtube"`
	Brochure    BrochureLink `json:"brochure" firestore:"brochure"`
	WorkGallery GalleryLink  `json:"workGallery" firestore:"workGallery"`
}

// VCardDetails holds the richer contact fields used to build the contact record.
type VCardDetails struct {
	FirstName     string `json:"firstName,omitempty" firestore:"firstName,omitempty"`
	LastName      string `json:"lastName,omitempty" firestore:"lastName,omitempty"`
	Title         string `json:"title,omitempty" firestore:"title,omitempty"`
	Company       string `json:"company,omitempty" firestore:"company,omitempty"`
	PhoneBusiness string `json:"phoneBusiness,omitempty" firestore:"phoneBusiness,omitempty"`
	PhoneMobile   string `json:"phoneMobile,omitempty" firestore:"phoneMobile,omitempty"`
	PhonePersonal string `json:"phonePersonal,omitempty" firestore:"phonePersonal,omitempty"`
	EmailBusiness string `json:"emailBusiness,omitempty" firestore:"emailBusiness,omitempty"`
	EmailPersonal string `json:"emailPersonal,omitempty" firestore:"emailPersonal,omitempty"`
	Website       string `json:"website,omitempty" firestore:"website,omitempty"`
	Street        string `json:"street,omitempty" firestore:"street,omitempty"`
	City          string `json:"city,omitempty" firestore:"city,omitempty"`
	Zip           string `json:"zip,omitempty" firestore:"zip,omitempty"`
	Country       string `json:"country,omitempty" firestore:"country,omitempty"`
}

// IsEmpty reports whether no contact-record field is populated.
func (v *VCardDetails) IsEmpty() bool {
	if v == nil {
		return true
	}
	for _, field := range []string{
		v.FirstName, v.LastName, v.Title, v.Company,
		v.PhoneBusiness, v.PhoneMobile, v.PhonePersonal,
		v.EmailBusiness, v.EmailPersonal, v.Website,
		v.Street, v.City, v.Zip, v.Country,
	} {
		if field != "" {
			return false
		}
	}
	return true
}

// CardData is the serialisable aggregate describing one visiting card.
// Ownership is extrinsic: cards are stored keyed by the owner's user id.
type CardData struct {
	Template          string          `json:"template" firestore:"template"`
	CompanyName       string          `json:"companyName" firestore:"companyName"`
	CompanySlogan     string          `json:"companySlogan" firestore:"companySlogan"`
	CompanyLogo       string          `json:"companyLogo,omitempty" firestore:"companyLogo,omitempty"`
	LogoShape         LogoShape       `json:"logoShape" firestore:"logoShape"`
	LogoFit           LogoFit         `json:"logoFit" firestore:"logoFit"`
	LogoRemoveBorder  bool            `json:"logoRemoveBorder" firestore:"logoRemoveBorder"`
	ContactPersonName string          `json:"contactPersonName" firestore:"contactPersonName"`
	Designation       string          `json:"designation" firestore:"designation"`
	Address           string          `json:"address" firestore:"address"`
	ContactDetails    []ContactDetail `json:"contactDetails" firestore:"contactDetails"`
	BackgroundImage   string          `json:"backgroundImage,omitempty" firestore:"backgroundImage,omitempty"`
	PrimaryColor      string          `json:"primaryColor,omitempty" firestore:"primaryColor,omitempty"`
	AccentColor       string          `json:"accentColor,omitempty" firestore:"accentColor,omitempty"`
	BackgroundColor   string          `json:"backgroundColor,omitempty" firestore:"backgroundColor,omitempty"`
	FontFamily        string          `json:"fontFamily,omitempty" firestore:"fontFamily,omitempty"`
	QRCodeContent     QRContent       `json:"qrCodeContent" firestore:"qrCodeContent"`
	QRCodeCustomURL   string          `json:"qrCodeCustomUrl,omitempty" firestore:"qrCodeCustomUrl,omitempty"`
	Links             Links           `json:"links" firestore:"links"`
	VCardDetails      *VCardDetails   `json:"vCardDetails,omitempty" firestore:"vCardDetails,omitempty"`
}

// Clone returns a deep copy so callers can mutate without aliasing slices.
func (c CardData) Clone() CardData {
	out := c
	if c.ContactDetails != nil {
		out.ContactDetails = append([]ContactDetail(nil), c.ContactDetails...)
	}
	if c.Links.WorkGallery.Images != nil {
		out.Links.WorkGallery.Images = append([]string(nil), c.Links.WorkGallery.Images...)
	}
	if c.VCardDetails != nil {
		details := *c.VCardDetails
		out.VCardDetails = &details
	}
	return out
}

// StoredCard is a card together with its persistence metadata.
type StoredCard struct {
	OwnerID     string
	Card        CardData
	DataVersion int64
	UpdatedAt   time.Time
}

// Rating is the reaction picked in the feedback prompt.
type Rating string

const (
	RatingAngry   Rating = "angry"
	RatingNeutral Rating = "neutral"
	RatingHappy   Rating = "happy"
	RatingAwesome Rating = "awesome"
)

var ratingLabels = map[Rating]string{
	RatingAngry:   "😡 Angry",
	RatingNeutral: "😐 Neutral",
	RatingHappy:   "😊 Happy",
	RatingAwesome: "🤩 Awesome!",
}

// IsValid reports whether r is a known rating.
func (r Rating) IsValid() bool {
	_, ok := ratingLabels[r]
	return ok
}

// Label returns the display text for r, or r itself when unknown.
func (r Rating) Label() string {
	if label, ok := ratingLabels[r]; ok {
		return label
	}
	return string(r)
}

// Feedback is a rating and comment left after a successful export.
type Feedback struct {
	ID        string
	OwnerID   string
	Name      string
	Email     string
	Phone     string
	Rating    Rating
	Comment   string
	CreatedAt time.Time
}

// UserProfile is the identity-provider view of a signed-in user.
type UserProfile struct {
	UID           string
	Email         string
	DisplayName   string
	PhotoURL      string
	EmailVerified bool
	Providers     []string
}
