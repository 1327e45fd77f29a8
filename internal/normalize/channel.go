package normalize

import "github.com/asolanog/conversia/internal/models"

// Channel maps an incoming channel label onto the closed two-channel set.
// The match is exact: no trimming, no case folding. Anything that is not
// literally "Whatsapp" is Web; the system recognizes exactly two channels.
func Channel(raw string) models.Channel {
	if raw == string(models.ChannelWhatsapp) {
		return models.ChannelWhatsapp
	}
	return models.ChannelWeb
}
