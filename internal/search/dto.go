package search

import "bookrater/internal/rating"

// Request is one search as the user phrased it. At least one of Title and
// Author must be set; Platforms restricts which rating sources are queried
// and may hold at most three entries.
type Request struct {
	Title     string   `json:"title"`
	Author    string   `json:"author"`
	Platforms []string `json:"platforms"`
}

// RatedBook is one work inside an author listing.
type RatedBook struct {
	Title             string         `json:"title"`
	MainSummary       string         `json:"mainSummary"`
	SimpleExplanation string         `json:"simpleExplanation"`
	Ratings           []rating.Entry `json:"ratings"`
}

// BookRecord is the finished search result handed to presentation. Slice
// fields are never nil so consumers can range and marshal without checks.
type BookRecord struct {
	Title             string         `json:"title"`
	TitleEn           string         `json:"titleEn"`
	Author            string         `json:"author"`
	AuthorEn          string         `json:"authorEn"`
	MainIdeal         string         `json:"mainIdeal"`
	Summaries         []string       `json:"summaries"`
	KeyQuestions      []string       `json:"keyQuestions"`
	SimpleExplanation string         `json:"simpleExplanation"`
	DataSource        string         `json:"dataSource"`
	Ratings           []rating.Entry `json:"ratings"`

	// AverageScore is preformatted to one decimal ("8.0"); empty when the
	// record carries no ratings.
	AverageScore   string `json:"averageScore,omitempty"`
	Recommendation string `json:"recommendation,omitempty"`

	// NoRatings marks a book that was identified but for which no platform
	// scores were found; presentation shows purchase links instead.
	NoRatings bool `json:"noRatings,omitempty"`

	IsAuthorSearch bool        `json:"isAuthorSearch,omitempty"`
	Books          []RatedBook `json:"books,omitempty"`

	// SearchedTitle is the title as the user typed it; SimplifiedTitle is
	// its Simplified Chinese form, kept for cross-strait platform queries.
	SearchedTitle   string `json:"searchedTitle"`
	SimplifiedTitle string `json:"simplifiedTitle,omitempty"`
}
