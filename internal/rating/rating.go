package rating

import (
	"math"
	"strconv"
)

// Entry is one platform's score for a book, on that platform's own scale.
// Field names follow the JSON the model is asked to emit.
type Entry struct {
	Platform   string  `json:"platform"`
	Rating     float64 `json:"rating"`
	MaxRating  float64 `json:"maxRating"`
	Summary    string  `json:"summary"`
	Normalized float64 `json:"normalizedRating"`
}

// Normalize rescales a rating to the common 0-10 range. Callers must
// ensure max != 0; the repair layer rejects zero scales before this runs.
func Normalize(r, max float64) float64 {
	return r / max * 10
}

// Average returns the mean of the normalized ratings, rounded to one
// decimal. Zero entries yield 0.
func Average(entries []Entry) float64 {
	if len(entries) == 0 {
		return 0
	}
	var total float64
	for _, e := range entries {
		total += e.Normalized
	}
	return math.Round(total/float64(len(entries))*10) / 10
}

// FormatScore renders an average the way the UI shows it ("8.0").
func FormatScore(avg float64) string {
	return strconv.FormatFloat(avg, 'f', 1, 64)
}

// Recommend maps an average score to a recommendation tier. An exact 0.0
// average is indeterminate, not "not recommended".
func Recommend(avg float64) string {
	switch {
	case avg == 0:
		return "無法判斷"
	case avg >= 8.5:
		return "非常推薦"
	case avg >= 7.0:
		return "可考慮閱讀"
	case avg >= 6.0:
		return "勉強一讀"
	default:
		return "不推薦"
	}
}
