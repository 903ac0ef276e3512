package agent

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// descriptionSelectors target likely description/detail regions, most
// specific first. Scrape order follows this list, then document order.
var descriptionSelectors = []string{
	`[class*="product-detail"] img:not([class*="rating"]):not([class*="review"])`,
	`[class*="item-description"] img`,
	`[class*="pdp-desc"] img`,
	`[data-sqe="description"] img`,
}

// excludeURLPatterns filters out known noise: avatars, review and rating
// assets, user uploads and icon sprites.
var excludeURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/avatar/`),
	regexp.MustCompile(`/review/`),
	regexp.MustCompile(`/rating/`),
	regexp.MustCompile(`/comment/`),
	regexp.MustCompile(`user.*upload`),
	regexp.MustCompile(`/icon`),
}

// ScrapeDescriptionImages collects candidate description image URLs from a
// rendered page snapshot, deduplicated in discovery order. Inline data URIs
// and noise assets are skipped.
func ScrapeDescriptionImages(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var urls []string
	seen := make(map[string]struct{})
	for _, selector := range descriptionSelectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			src, ok := s.Attr("src")
			if !ok || src == "" || strings.Contains(src, "data:image") {
				return
			}
			if isExcluded(src) {
				return
			}
			if _, dup := seen[src]; dup {
				return
			}
			seen[src] = struct{}{}
			urls = append(urls, src)
		})
	}
	return urls
}

func isExcluded(src string) bool {
	for _, pattern := range excludeURLPatterns {
		if pattern.MatchString(src) {
			return true
		}
	}
	return false
}
