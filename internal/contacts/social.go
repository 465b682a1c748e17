package contacts

import (
	"strings"

	"github.com/alimgiray/gitreach/internal/models"
)

// FromSocialAccounts picks the Twitter and LinkedIn entries out of a
// social accounts list. The first usable entry of each provider wins.
func FromSocialAccounts(accounts []SocialAccount) models.Contacts {
	var c models.Contacts

	for _, account := range accounts {
		switch strings.ToLower(account.Provider) {
		case "twitter", "x":
			if c.Twitter == "" {
				c.Twitter = Extract(account.URL).Twitter
			}
		case "linkedin":
			if c.LinkedIn == "" {
				c.LinkedIn = Extract(account.URL).LinkedIn
			}
		}
	}

	return c
}
