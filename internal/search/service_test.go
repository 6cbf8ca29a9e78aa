package search

import (
	"context"
	"errors"
	"strings"
	"testing"

	"bookrater/internal/gemini"
	"bookrater/internal/repair"
)

// stubGenerator scripts the model reply and records the prompt it got.
type stubGenerator struct {
	text   string
	err    error
	prompt string
}

func (s *stubGenerator) Generate(_ context.Context, _ gemini.Credentials, prompt string) (string, error) {
	s.prompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}

var testCreds = gemini.Credentials{APIKey: "k1234", Model: "gemini-1.5-flash"}

func run(t *testing.T, replyJSON string, req Request) (*BookRecord, error) {
	t.Helper()
	gen := &stubGenerator{text: replyJSON}
	return NewService(gen).Search(context.Background(), testCreds, req)
}

func TestSearchEmptyQuery(t *testing.T) {
	_, err := run(t, "{}", Request{Title: "   "})
	if !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}
}

func TestSearchTooManyPlatforms(t *testing.T) {
	req := Request{Title: "x", Platforms: []string{"豆瓣", "Kobo", "Goodreads", "博客來"}}
	_, err := run(t, "{}", req)
	if !errors.Is(err, ErrTooManyPlatforms) {
		t.Fatalf("expected ErrTooManyPlatforms, got %v", err)
	}
}

func TestSearchRatedBook(t *testing.T) {
	reply := `{
		"title": "快思慢想",
		"ratings": [
			{"platform": "Amazon Books", "rating": 4, "maxRating": 5, "summary": "好評"}
		]
	}`
	rec, err := run(t, reply, Request{Title: "快思慢想"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if rec.AverageScore != "8.0" {
		t.Errorf("averageScore = %q, expected %q", rec.AverageScore, "8.0")
	}
	if rec.Recommendation != "可考慮閱讀" {
		t.Errorf("recommendation = %q", rec.Recommendation)
	}
	if rec.Author != "未知" {
		t.Errorf("missing author should default to 未知, got %q", rec.Author)
	}
	if rec.NoRatings || rec.IsAuthorSearch {
		t.Errorf("wrong classification: %+v", rec)
	}
	if rec.DataSource == "" {
		t.Error("dataSource should get a default")
	}
	if rec.Summaries == nil || rec.KeyQuestions == nil {
		t.Error("slice fields must never be nil")
	}
}

func TestSearchAuthorListing(t *testing.T) {
	reply := `{
		"author": "康納曼",
		"books": [
			{"title": "快思慢想", "ratings": [
				{"platform": "豆瓣讀書", "rating": 8.1, "maxRating": 10, "summary": "s"}
			]}
		]
	}`
	rec, err := run(t, reply, Request{Author: "康納曼"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if !rec.IsAuthorSearch {
		t.Error("expected an author listing")
	}
	if len(rec.Books) != 1 {
		t.Fatalf("expected 1 book, got %d", len(rec.Books))
	}
	if rec.AverageScore != "" {
		t.Error("author listings carry no overall average")
	}
}

func TestSearchAuthorListingAuthorFallback(t *testing.T) {
	// The reply may omit the author field; the searched name fills in.
	reply := `{"books": [{"title": "快思慢想", "ratings": []}]}`
	rec, err := run(t, reply, Request{Author: "康納曼"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if rec.Author != "康納曼" {
		t.Errorf("author = %q, expected the searched author", rec.Author)
	}
}

func TestSearchAuthorListingWinsOverRatings(t *testing.T) {
	// A reply with both books and stray flat ratings is an author answer.
	reply := `{
		"author": "康納曼",
		"books": [{"title": "快思慢想", "ratings": []}],
		"ratings": [{"platform": "豆瓣讀書", "rating": 8, "maxRating": 10, "summary": "s"}]
	}`
	rec, err := run(t, reply, Request{Author: "康納曼"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if !rec.IsAuthorSearch {
		t.Error("books must win classification over flat ratings")
	}
}

func TestSearchIdentifiedWithoutRatings(t *testing.T) {
	reply := `{"title": "冷門之書", "author": "無名氏", "ratings": []}`
	rec, err := run(t, reply, Request{Title: "冷門之書"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if !rec.NoRatings {
		t.Error("expected a no-ratings record")
	}
	if rec.AverageScore != "" || rec.Recommendation != "" {
		t.Error("no-ratings records carry no score")
	}
}

func TestSearchEmptyReply(t *testing.T) {
	_, err := run(t, "{}", Request{Title: "不存在的書"})
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestSearchSimplifiedTitle(t *testing.T) {
	reply := `{"title": "這本書", "author": "某人", "ratings": []}`
	rec, err := run(t, reply, Request{Title: "這本書"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if rec.SearchedTitle != "這本書" {
		t.Errorf("searchedTitle = %q", rec.SearchedTitle)
	}
	if rec.SimplifiedTitle != "这本书" {
		t.Errorf("simplifiedTitle = %q", rec.SimplifiedTitle)
	}
}

func TestSearchPromptRestriction(t *testing.T) {
	gen := &stubGenerator{text: `{"title":"x","author":"y","ratings":[]}`}
	svc := NewService(gen)
	req := Request{Title: "x", Platforms: []string{"豆瓣", "豆瓣讀書"}}
	if _, err := svc.Search(context.Background(), testCreds, req); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	// Aliases collapse, so this is one platform and within the limit.
	if !strings.Contains(gen.prompt, "豆瓣讀書") {
		t.Errorf("prompt missing the canonical platform name")
	}
}

func TestSearchGeneratorErrorPassesThrough(t *testing.T) {
	gen := &stubGenerator{err: gemini.ErrNoAPIKey}
	_, err := NewService(gen).Search(context.Background(), testCreds, Request{Title: "x"})
	if !errors.Is(err, gemini.ErrNoAPIKey) {
		t.Fatalf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestSearchTruncatedReplyFails(t *testing.T) {
	// A length-limited reply must fail the search even when the partial
	// text happens to be valid JSON on its own.
	gen := &stubGenerator{err: &gemini.TruncatedError{
		Text: `{"title":"T","ratings":[{"platform":"P","rating":4,"maxRating":5,"summary":"s"}]}`,
	}}
	_, err := NewService(gen).Search(context.Background(), testCreds, Request{Title: "T"})
	var terr *gemini.TruncatedError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TruncatedError, got %v", err)
	}
	if got := UserMessage(err); got != "AI 回應被截斷，請稍後重試或使用更簡潔的查詢" {
		t.Errorf("UserMessage = %q", got)
	}
}

// supersedingGenerator starts a second search from inside the first one's
// model call, so the first search finishes stale.
type supersedingGenerator struct {
	svc   *Service
	fired bool
}

func (g *supersedingGenerator) Generate(ctx context.Context, creds gemini.Credentials, _ string) (string, error) {
	if !g.fired {
		g.fired = true
		if _, err := g.svc.Search(ctx, creds, Request{Title: "較新的查詢"}); err != nil {
			return "", err
		}
	}
	return `{"title":"x","author":"y","ratings":[]}`, nil
}

func TestSearchSupersededByNewer(t *testing.T) {
	gen := &supersedingGenerator{}
	svc := NewService(gen)
	gen.svc = svc

	_, err := svc.Search(context.Background(), testCreds, Request{Title: "較舊的查詢"})
	if !errors.Is(err, ErrSuperseded) {
		t.Fatalf("stale search must return ErrSuperseded, got %v", err)
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"no api key", gemini.ErrNoAPIKey, "請先設定 Gemini API 金鑰"},
		{"empty query", ErrEmptyQuery, "請輸入書名或作者名稱"},
		{"no data", ErrNoData, "找不到這本書的評分資料，請檢查書名是否正確或嘗試輸入作者名稱"},
		{"no json", repair.ErrNoJSON, "找不到這本書的評分資料，請檢查書名是否正確或嘗試輸入作者名稱"},
		{"truncated", &gemini.TruncatedError{Text: "x"}, "AI 回應被截斷，請稍後重試或使用更簡潔的查詢"},
		{"malformed", &repair.MalformedError{Hint: "x"}, "AI 回應格式異常，請稍後再試"},
		{"unknown", errors.New("boom"), "查詢過程中發生錯誤，請稍後再試"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.expected {
				t.Errorf("UserMessage = %q, expected %q", got, tt.expected)
			}
		})
	}
}
