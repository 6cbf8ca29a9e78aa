// Package repair turns raw model text into a validated Reply. Model output
// is frequently wrapped in markdown fences, prefixed with chatter, or cut
// off mid-object; this package extracts the JSON span, patches the common
// truncation shapes and rejects anything still malformed rather than
// guessing at meaning.
package repair

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"bookrater/internal/rating"
)

// Reply is the parsed model answer. A single-book answer fills the flat
// fields; an author answer fills Books instead.
type Reply struct {
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
	Books             []Book         `json:"books"`
}

// Book is one entry of an author answer.
type Book struct {
	Title             string         `json:"title"`
	MainSummary       string         `json:"mainSummary"`
	SimpleExplanation string         `json:"simpleExplanation"`
	Ratings           []rating.Entry `json:"ratings"`
}

// ErrNoJSON means the text contains no opening brace at all.
var ErrNoJSON = errors.New("no JSON object found in response")

// MalformedError means a JSON span was found but could not be parsed into
// a usable Reply even after repair. Raw keeps the span for debug output.
type MalformedError struct {
	Hint string
	Raw  string
}

func (e *MalformedError) Error() string {
	return "malformed model reply: " + e.Hint
}

var fenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// Extract isolates the JSON object span: code fences are stripped first,
// then everything from the first '{' through the last '}' is taken. With
// no closing brace the span runs to the end of the text, so truncated
// output still reaches Balance.
func Extract(text string) (string, error) {
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		text = m[1]
	}

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", ErrNoJSON
	}
	end := strings.LastIndexByte(text, '}')
	if end > start {
		return text[start : end+1], nil
	}
	return text[start:], nil
}

// Balance patches the two truncation shapes worth fixing: a final line cut
// off inside a string value gets its closing quote, and missing closing
// braces are appended to match the open count. Unbalanced brackets are not
// touched; arrays cut mid-element stay broken and fail in Parse.
func Balance(s string) string {
	open := strings.Count(s, "{") - strings.Count(s, "}")
	if open <= 0 {
		return s
	}

	lines := strings.Split(s, "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if last != "" &&
		!strings.HasSuffix(last, ",") &&
		!strings.HasSuffix(last, "}") &&
		!strings.HasSuffix(last, "]") &&
		strings.Contains(last, ":") &&
		!strings.Contains(last, `"`) {
		s += `"`
	}
	return s + strings.Repeat("}", open)
}

// Parse extracts, repairs, validates and normalizes raw model text.
func Parse(raw string) (*Reply, error) {
	span, err := Extract(raw)
	if err != nil {
		return nil, err
	}
	span = Balance(span)

	var reply Reply
	if err := json.Unmarshal([]byte(span), &reply); err != nil {
		hint := fmt.Sprintf("invalid JSON: %v", err)
		if len(span) < 100 {
			hint = "回應過短，" + hint
		}
		return nil, &MalformedError{Hint: hint, Raw: span}
	}

	if err := validate(span); err != nil {
		return nil, &MalformedError{Hint: err.Error(), Raw: span}
	}

	if err := normalize(reply.Ratings); err != nil {
		return nil, &MalformedError{Hint: err.Error(), Raw: span}
	}
	for i := range reply.Books {
		if err := normalize(reply.Books[i].Ratings); err != nil {
			return nil, &MalformedError{Hint: err.Error(), Raw: span}
		}
	}
	return &reply, nil
}

// normalize rescales every entry to the common 0-10 range. A zero scale is
// data corruption, not a zero score, and fails the whole reply.
func normalize(entries []rating.Entry) error {
	for i := range entries {
		if entries[i].MaxRating == 0 {
			return fmt.Errorf("rating for %q has maxRating 0", entries[i].Platform)
		}
		entries[i].Normalized = rating.Normalize(entries[i].Rating, entries[i].MaxRating)
	}
	return nil
}
