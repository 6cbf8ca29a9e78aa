// Package links builds outbound search URLs for purchase sites and rating
// platforms. Queries are scrubbed first: the model sometimes pads unknown
// fields with "資訊不足", which must never leak into a search term.
package links

import (
	"net/url"
	"strings"
)

// Link is one labeled outbound URL.
type Link struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// scrub drops placeholder text and collapses runs of whitespace.
func scrub(s string) string {
	s = strings.ReplaceAll(s, "資訊不足", "")
	return strings.Join(strings.Fields(s), " ")
}

func query(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if c := scrub(p); c != "" {
			kept = append(kept, c)
		}
	}
	return url.QueryEscape(strings.Join(kept, " "))
}

// Purchase returns the store links shown when a book was identified but
// no platform scores were found.
func Purchase(title, author string) []Link {
	q := query(title, author)
	return []Link{
		{Name: "博客來", URL: "https://search.books.com.tw/search/query/key/" + q},
		{Name: "誠品", URL: "https://www.eslite.com/Search?keyword=" + q},
		{Name: "讀墨", URL: "https://readmoo.com/search/keyword?q=" + q},
		{Name: "Kobo", URL: "https://www.kobo.com/tw/zh/search?query=" + q},
		{Name: "Amazon", URL: "https://www.amazon.com/s?k=" + q},
	}
}

// Book carries the name variants a platform URL may need.
type Book struct {
	Title      string
	TitleEn    string
	Author     string
	AuthorEn   string
	Simplified string
}

// englishPlatforms are queried with the English title and author when the
// model supplied them; a Chinese title on these sites finds nothing.
var englishPlatforms = map[string]bool{
	"Amazon":       true,
	"Amazon Books": true,
	"Goodreads":    true,
}

// RatingPlatform returns the search URL for one rating platform, or ""
// for a platform without a known search endpoint.
func RatingPlatform(platform string, b Book) string {
	title, author := b.Title, b.Author
	if englishPlatforms[platform] {
		if b.TitleEn != "" {
			title = b.TitleEn
		}
		if b.AuthorEn != "" {
			author = b.AuthorEn
		}
	}

	switch platform {
	case "豆瓣讀書", "豆瓣":
		// Douban indexes Simplified Chinese editions.
		if b.Simplified != "" {
			title = b.Simplified
		}
		return "https://search.douban.com/book/subject_search?search_text=" + query(title)
	case "Amazon", "Amazon Books":
		return "https://www.amazon.com/s?k=" + query(title, author)
	case "Goodreads":
		return "https://www.goodreads.com/search?q=" + query(title, author)
	case "博客來":
		return "https://search.books.com.tw/search/query/key/" + query(title)
	case "讀墨", "Readmoo":
		return "https://readmoo.com/search/keyword?q=" + query(title)
	case "Kobo":
		return "https://www.kobo.com/tw/zh/search?query=" + query(title)
	default:
		return ""
	}
}
