package domain

// Channel names one outbound link slot on a card.
type Channel string

const (
	ChannelCall        Channel = "call"
	ChannelWhatsApp    Channel = "whatsapp"
	ChannelLocation    Channel = "location"
	ChannelEmail       Channel = "email"
	ChannelWebsite     Channel = "website"
	ChannelFacebook    Channel = "facebook"
	ChannelTwitter     Channel = "twitter"
	ChannelInstagram   Channel = "instagram"
	ChannelLinkedIn    Channel = "linkedin"
	ChannelYouTube     Channel = "youtube"
	ChannelBrochure    Channel = "brochure"
	ChannelWorkGallery Channel = "workGallery"
)

// Channels lists every channel in the order templates render their icons.
func Channels() []Channel {
	return []Channel{
		ChannelCall, ChannelWhatsApp, ChannelEmail, ChannelWebsite, ChannelLocation,
		ChannelFacebook, ChannelTwitter, ChannelInstagram, ChannelLinkedIn, ChannelYouTube,
		ChannelBrochure, ChannelWorkGallery,
	}
}

// IconChannels lists the channels shown in a template's icon row. Brochure and
// gallery get their own dedicated elements.
func IconChannels() []Channel {
	all := Channels()
	out := make([]Channel, 0, len(all))
	for _, ch := range all {
		if ch == ChannelBrochure || ch == ChannelWorkGallery {
			continue
		}
		out = append(out, ch)
	}
	return out
}

// Enabled reports whether the channel is switched on.
func (l Links) Enabled(ch Channel) bool {
	switch ch {
	case ChannelCall:
		return l.Call.Enabled
	case ChannelWhatsApp:
		return l.WhatsApp.Enabled
	case ChannelLocation:
		return l.Location.Enabled
	case ChannelEmail:
		return l.Email.Enabled
	case ChannelWebsite:
		return l.Website.Enabled
	case ChannelFacebook:
		return l.Facebook.Enabled
	case ChannelTwitter:
		return l.Twitter.Enabled
	case ChannelInstagram:
		return l.Instagram.Enabled
	case ChannelLinkedIn:
		return l.LinkedIn.Enabled
	case ChannelYouTube:
		return l.YouTube.Enabled
	case ChannelBrochure:
		return l.Brochure.Enabled
	case ChannelWorkGallery:
		return l.WorkGallery.Enabled
	}
	return false
}

// Value returns the raw stored value of a value-shaped channel, or the number
// of a phone-shaped one.
func (l Links) Value(ch Channel) string {
	switch ch {
	case ChannelCall:
		return l.Call.Number
	case ChannelWhatsApp:
		return l.WhatsApp.Number
	case ChannelLocation:
		return l.Location.Value
	case ChannelEmail:
		return l.Email.Value
	case ChannelWebsite:
		return l.Website.Value
	case ChannelFacebook:
		return l.Facebook.Value
	case ChannelTwitter:
		return l.Twitter.Value
	case ChannelInstagram:
		return l.Instagram.Value
	case ChannelLinkedIn:
		return l.LinkedIn.Value
	case ChannelYouTube:
		return l.YouTube.Value
	case ChannelBrochure:
		return l.Brochure.Value
	case ChannelWorkGallery:
		return l.WorkGallery.Value
	}
	return ""
}

// IsURLShaped reports whether the channel stores a URL that is normalised at
// resolution time.
func (ch Channel) IsURLShaped() bool {
	switch ch {
	case ChannelCall, ChannelWhatsApp, ChannelEmail:
		return false
	}
	return true
}
