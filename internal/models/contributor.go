package models

import (
	"strings"
	"time"
)

// Contacts holds the contact channels found for a contributor. An empty
// string means the channel was not found.
type Contacts struct {
	Email    string `json:"email,omitempty"`
	Twitter  string `json:"twitter,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
	Website  string `json:"website,omitempty"`
}

// IsEmpty checks if no contact channel is set
func (c Contacts) IsEmpty() bool {
	return c.Email == "" && c.Twitter == "" && c.LinkedIn == "" && c.Website == ""
}

// Contributor is a GitHub account enriched with contacts and the
// contribution count of the scrape it was read through.
type Contributor struct {
	ID            string   `json:"id"`
	Username      string   `json:"username"`
	Name          string   `json:"name"`
	AvatarURL     string   `json:"avatar"`
	Bio           string   `json:"bio,omitempty"`
	Location      string   `json:"location,omitempty"`
	Company       string   `json:"company,omitempty"`
	Contributions int      `json:"contributions"`
	Contacts      Contacts `json:"contacts"`

	// Outreach state is owned by the operator and survives re-scrapes
	Contacted     bool      `json:"contacted"`
	ContactedDate *string   `json:"contactedDate,omitempty"`
	Notes         *string   `json:"notes,omitempty"`
	Status        *string   `json:"status,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DisplayName returns the profile name, falling back to the login
func (c *Contributor) DisplayName() string {
	if strings.TrimSpace(c.Name) != "" {
		return c.Name
	}
	return c.Username
}

// ProfileURL returns the contributor's GitHub profile link
func (c *Contributor) ProfileURL() string {
	return "https://github.com/" + c.Username
}

// OutreachUpdate is a partial update of the outreach fields. Nil fields are
// left untouched; a pointer to an empty string clears the stored value.
type OutreachUpdate struct {
	Contacted     *bool   `json:"contacted"`
	ContactedDate *string `json:"contactedDate"`
	Notes         *string `json:"notes"`
	Status        *string `json:"status"`
}

// IsEmpty checks if the update changes nothing
func (u OutreachUpdate) IsEmpty() bool {
	return u.Contacted == nil && u.ContactedDate == nil && u.Notes == nil && u.Status == nil
}

// ContributorPage is one page of a scrape's contributors
type ContributorPage struct {
	Contributors []Contributor `json:"contributors"`
	Total        int           `json:"contributorTotal"`
	Page         int           `json:"page"`
	HasMore      bool          `json:"hasMore"`
}
