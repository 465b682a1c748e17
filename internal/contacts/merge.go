package contacts

import (
	"strings"

	"github.com/alimgiray/gitreach/internal/models"
)

// Profile carries the GitHub profile fields that hold contact data
type Profile struct {
	Email           string
	TwitterUsername string
	Blog            string
	Bio             string
}

// SocialAccount is an entry from the user's social accounts list
type SocialAccount struct {
	Provider string
	URL      string
}

// Merge combines the three contact sources field by field. Social accounts
// win over structured profile fields, which win over text extraction.
func Merge(fromSocial, structured, fromBio models.Contacts) models.Contacts {
	return models.Contacts{
		Email:    firstNonEmpty(fromSocial.Email, structured.Email, fromBio.Email),
		Twitter:  firstNonEmpty(fromSocial.Twitter, structured.Twitter, fromBio.Twitter),
		LinkedIn: firstNonEmpty(fromSocial.LinkedIn, structured.LinkedIn, fromBio.LinkedIn),
		Website:  firstNonEmpty(fromSocial.Website, structured.Website, fromBio.Website),
	}
}

// FromProfile builds the final contact record for a user from their
// profile and social accounts.
func FromProfile(p Profile, accounts []SocialAccount) models.Contacts {
	return Merge(FromSocialAccounts(accounts), Structured(p), FromText(p))
}

// Structured reads the typed profile fields. The blog becomes the website
// unless it points at LinkedIn, in which case it only feeds LinkedIn.
func Structured(p Profile) models.Contacts {
	blog := strings.TrimSpace(p.Blog)

	c := models.Contacts{
		Email:    strings.TrimSpace(p.Email),
		Twitter:  strings.TrimPrefix(strings.TrimSpace(p.TwitterUsername), "@"),
		LinkedIn: Extract(blog).LinkedIn,
	}
	if blog != "" && !strings.Contains(strings.ToLower(blog), "linkedin.com") {
		c.Website = blog
	}
	return c
}

// FromText extracts contacts from the bio, falling back to the blog text
// for fields the bio does not mention.
func FromText(p Profile) models.Contacts {
	bio := Extract(p.Bio)
	blog := Extract(p.Blog)
	return Merge(bio, blog, models.Contacts{})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
