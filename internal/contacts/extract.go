// Package contacts turns GitHub profile text and social account links into
// a single contact record.
package contacts

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/alimgiray/gitreach/internal/models"
)

const linkedInBase = "https://linkedin.com/in/"

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

	// @handle bounded by start, whitespace or "(" on the left and by
	// whitespace, closing punctuation or end of text on the right
	handlePattern = regexp.MustCompile(`(?:^|[\s(])@(\w{1,15})(?:[\s),;:!?]|\.(?:\s|$)|$)`)

	twitterURLPattern = regexp.MustCompile(`(?i)(?:^|[^\w.@/-])(?:https?://)?(?:www\.|mobile\.)?(?:twitter|x)\.com/@?(\w{1,15})\b`)

	linkedInURLPattern  = regexp.MustCompile(`(?i)(?:^|[^\w.-])(?:https?://)?(?:[a-z]{2,3}\.)?linkedin\.com/in/([\w%-]+)`)
	linkedInPathPattern = regexp.MustCompile(`(?:^|[\s(])/in/([\w%-]+)`)

	urlPattern = regexp.MustCompile(`(?i)https?://[^\s<>"']+`)
)

// twitter.com paths that are not user handles
var reservedTwitterPaths = map[string]bool{
	"intent":  true,
	"share":   true,
	"home":    true,
	"search":  true,
	"hashtag": true,
	"i":       true,
}

// Extract finds contact candidates in free text such as a bio or blog field.
// Each field is taken from its first match; missing fields stay empty.
func Extract(text string) models.Contacts {
	if strings.TrimSpace(text) == "" {
		return models.Contacts{}
	}

	return models.Contacts{
		Email:    emailPattern.FindString(text),
		Twitter:  extractTwitter(text),
		LinkedIn: extractLinkedIn(text),
		Website:  extractWebsite(text),
	}
}

func extractTwitter(text string) string {
	handle, handleAt := firstSubmatch(handlePattern, text, nil)
	fromURL, urlAt := firstSubmatch(twitterURLPattern, text, func(h string) bool {
		return !reservedTwitterPaths[strings.ToLower(h)]
	})

	switch {
	case handleAt < 0:
		return fromURL
	case urlAt < 0:
		return handle
	case urlAt < handleAt:
		return fromURL
	default:
		return handle
	}
}

func extractLinkedIn(text string) string {
	slug, slugAt := firstSubmatch(linkedInURLPattern, text, nil)
	pathSlug, pathAt := firstSubmatch(linkedInPathPattern, text, nil)

	if pathAt >= 0 && (slugAt < 0 || pathAt < slugAt) {
		slug = pathSlug
	}
	if slug == "" {
		return ""
	}
	return linkedInBase + slug
}

func extractWebsite(text string) string {
	for _, raw := range urlPattern.FindAllString(text, -1) {
		candidate := strings.TrimRight(raw, `)]>"'.,;:!?`)
		if candidate == "" || isSocialURL(candidate) {
			continue
		}
		return candidate
	}
	return ""
}

// firstSubmatch returns the first capture group of the earliest match that
// passes keep, along with the match offset, or -1 when nothing matches.
func firstSubmatch(re *regexp.Regexp, text string, keep func(string) bool) (string, int) {
	for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
		group := text[loc[2]:loc[3]]
		if keep != nil && !keep(group) {
			continue
		}
		return group, loc[0]
	}
	return "", -1
}

func isSocialURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "mobile.")

	switch {
	case host == "twitter.com", host == "x.com":
		return true
	case host == "linkedin.com", strings.HasSuffix(host, ".linkedin.com"):
		return true
	}
	return false
}
