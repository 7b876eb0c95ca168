package pagination

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// PageSize is the fixed number of items Freshservice returns per page.
const PageSize = 30

var linkPattern = regexp.MustCompile(`<([^>]+)>\s*;\s*rel="?([^";]+)"?`)

// Links holds the page numbers announced by a Link header.
// A zero value means the relation was absent.
type Links struct {
	Next int
	Prev int
}

// ParseLink extracts next/prev page numbers from an RFC 5988 Link header.
// Relations without a parseable page parameter are ignored.
func ParseLink(header string) Links {
	var links Links
	if strings.TrimSpace(header) == "" {
		return links
	}

	for _, part := range strings.Split(header, ",") {
		match := linkPattern.FindStringSubmatch(part)
		if match == nil {
			continue
		}

		target, err := url.Parse(strings.TrimSpace(match[1]))
		if err != nil {
			continue
		}
		page, err := strconv.Atoi(target.Query().Get("page"))
		if err != nil || page < 1 {
			continue
		}

		switch strings.ToLower(strings.TrimSpace(match[2])) {
		case "next":
			links.Next = page
		case "prev":
			links.Prev = page
		}
	}

	return links
}

// HasMore reports whether another page should be requested after a page
// with count items and the given Link header.
//
// An empty page is terminal regardless of the header. Otherwise a full page
// or an explicit next relation keeps the run going; a full page wins over a
// header that omits next.
func HasMore(count int, linkHeader string) bool {
	if count == 0 {
		return false
	}
	if count >= PageSize {
		return true
	}
	return ParseLink(linkHeader).Next > 0
}
