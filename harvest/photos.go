package harvest

import (
	"regexp"
	"strings"
)

var photoSizePattern = regexp.MustCompile(`-w\d+_h\d+`)

// upgradePhotoURL rewrites provider thumbnail URLs to the full-size asset.
func upgradePhotoURL(href string) string {
	if href == "" {
		return href
	}
	return photoSizePattern.ReplaceAllString(href, "-w2048_h1536")
}

// validHTTPURL returns the URL if it is an absolute http(s) URL, else "".
func validHTTPURL(href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return ""
}

// filterPhotoURLs keeps only valid http(s) URLs, deduplicated in order,
// upgraded to full-size where the provider pattern applies.
func filterPhotoURLs(hrefs []string) []string {
	out := make([]string, 0, len(hrefs))
	seen := make(map[string]struct{}, len(hrefs))
	for _, h := range hrefs {
		u := validHTTPURL(h)
		if u == "" {
			continue
		}
		u = upgradePhotoURL(u)
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
