package scraper

import (
	"net/url"
	"strconv"
	"strings"
)

// SearchURL builds the HiBid lot search URL for a category and 1-based page.
// An empty category searches all open lots.
func SearchURL(cfg Config, category string, page int) string {
	base := strings.TrimRight(cfg.BaseURL, "/")

	path := base + "/lots/"
	if category != "" {
		path = base + "/lots/" + url.PathEscape(category) + "/"
	}

	params := url.Values{}
	params.Set("status", "open")
	params.Set("zip", cfg.ZipCode)
	params.Set("miles", strconv.Itoa(cfg.RadiusMiles))
	params.Set("apage", strconv.Itoa(page))
	params.Set("ipp", strconv.Itoa(cfg.PageSize))

	return path + "?" + params.Encode()
}
