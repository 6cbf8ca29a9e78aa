// Package search orchestrates one rating lookup end to end: build the
// prompt, call the generation endpoint, repair and classify the reply,
// and shape the finished BookRecord. It owns the "latest search wins"
// rule: a search that finishes after a newer one started is discarded.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"bookrater/internal/gemini"
	"bookrater/internal/logger"
	"bookrater/internal/metrics"
	"bookrater/internal/prompt"
	"bookrater/internal/rating"
	"bookrater/internal/repair"
	"bookrater/internal/zh"
)

// Generator abstracts the model gateway so tests can script replies.
type Generator interface {
	Generate(ctx context.Context, creds gemini.Credentials, prompt string) (string, error)
}

var (
	// ErrEmptyQuery means neither a title nor an author was given.
	ErrEmptyQuery = errors.New("empty query: need a title or an author")

	// ErrSuperseded means a newer search started while this one was in
	// flight; the stale result is discarded, never shown.
	ErrSuperseded = errors.New("search superseded by a newer one")

	// ErrNoData means the model answered cleanly but named no book.
	ErrNoData = errors.New("no book data in reply")

	// ErrTooManyPlatforms means more platforms were selected than one
	// search may restrict to.
	ErrTooManyPlatforms = fmt.Errorf("at most %d platforms per search", prompt.MaxPlatforms)
)

const defaultDataSource = "AI生成內容，僅供參考"

// Service runs searches. One Service instance serves one user session;
// the generation counter orders its searches.
type Service struct {
	gen        Generator
	generation atomic.Uint64
}

func NewService(g Generator) *Service {
	return &Service{gen: g}
}

// Search runs one lookup under creds. Input validation happens before any
// network traffic; the supersession check happens after the model call
// and again after parsing, so a stale search can never publish a record.
func (s *Service) Search(ctx context.Context, creds gemini.Credentials, req Request) (*BookRecord, error) {
	title := strings.TrimSpace(req.Title)
	author := strings.TrimSpace(req.Author)
	if title == "" && author == "" {
		return nil, ErrEmptyQuery
	}

	platforms := prompt.CanonicalAll(req.Platforms)
	if len(platforms) > prompt.MaxPlatforms {
		return nil, ErrTooManyPlatforms
	}

	mode := prompt.ModeFor(title, author)
	id := s.generation.Add(1)

	log := logger.For(ctx).WithField("mode", string(mode))
	log.WithFields(map[string]interface{}{
		"title":  title,
		"author": author,
	}).Info("search started")
	defer logger.Track(ctx, "search")()

	record, err := s.run(ctx, creds, title, author, platforms, mode)
	if s.generation.Load() != id {
		metrics.SearchesTotal.WithLabelValues(string(mode), "superseded").Inc()
		return nil, ErrSuperseded
	}
	if err != nil {
		metrics.SearchesTotal.WithLabelValues(string(mode), "error").Inc()
		log.WithError(err).Warn("search failed")
		return nil, err
	}
	metrics.SearchesTotal.WithLabelValues(string(mode), "ok").Inc()
	return record, nil
}

func (s *Service) run(ctx context.Context, creds gemini.Credentials, title, author string, platforms []string, mode prompt.Mode) (*BookRecord, error) {
	text, err := s.gen.Generate(ctx, creds, prompt.Build(title, author, platforms))
	if err != nil {
		return nil, err
	}

	reply, err := repair.Parse(text)
	if err != nil {
		return nil, err
	}
	return classify(reply, title, author)
}

// classify decides what kind of answer the model gave. Order matters: an
// author listing wins over stray flat fields, scored books win over
// identification-only ones, and only a reply naming nothing at all is a
// miss.
func classify(reply *repair.Reply, searchedTitle, searchedAuthor string) (*BookRecord, error) {
	switch {
	case len(reply.Books) > 0:
		return authorRecord(reply, searchedTitle, searchedAuthor)
	case len(reply.Ratings) > 0:
		return ratedRecord(reply, searchedTitle)
	case reply.Title != "" && reply.Author != "":
		return noRatingsRecord(reply, searchedTitle)
	default:
		return nil, ErrNoData
	}
}

func baseRecord(reply *repair.Reply, searchedTitle string) *BookRecord {
	rec := &BookRecord{
		Title:             reply.Title,
		TitleEn:           reply.TitleEn,
		Author:            reply.Author,
		AuthorEn:          reply.AuthorEn,
		MainIdeal:         reply.MainIdeal,
		Summaries:         reply.Summaries,
		KeyQuestions:      reply.KeyQuestions,
		SimpleExplanation: reply.SimpleExplanation,
		DataSource:        reply.DataSource,
		Ratings:           reply.Ratings,
		SearchedTitle:     searchedTitle,
	}
	if rec.Summaries == nil {
		rec.Summaries = []string{}
	}
	if rec.KeyQuestions == nil {
		rec.KeyQuestions = []string{}
	}
	if rec.Ratings == nil {
		rec.Ratings = []rating.Entry{}
	}
	if rec.DataSource == "" {
		rec.DataSource = defaultDataSource
	}
	if searchedTitle != "" {
		if simp := zh.Simplified(searchedTitle); simp != searchedTitle {
			rec.SimplifiedTitle = simp
		}
	}
	return rec
}

func authorRecord(reply *repair.Reply, searchedTitle, searchedAuthor string) (*BookRecord, error) {
	rec := baseRecord(reply, searchedTitle)
	rec.IsAuthorSearch = true
	if rec.Author == "" {
		rec.Author = searchedAuthor
	}
	rec.Books = make([]RatedBook, 0, len(reply.Books))
	for _, b := range reply.Books {
		ratings := b.Ratings
		if ratings == nil {
			ratings = []rating.Entry{}
		}
		rec.Books = append(rec.Books, RatedBook{
			Title:             b.Title,
			MainSummary:       b.MainSummary,
			SimpleExplanation: b.SimpleExplanation,
			Ratings:           ratings,
		})
	}
	return rec, nil
}

func ratedRecord(reply *repair.Reply, searchedTitle string) (*BookRecord, error) {
	rec := baseRecord(reply, searchedTitle)
	if rec.Author == "" {
		rec.Author = "未知"
	}
	avg := rating.Average(rec.Ratings)
	rec.AverageScore = rating.FormatScore(avg)
	rec.Recommendation = rating.Recommend(avg)
	return rec, nil
}

func noRatingsRecord(reply *repair.Reply, searchedTitle string) (*BookRecord, error) {
	rec := baseRecord(reply, searchedTitle)
	rec.NoRatings = true
	return rec, nil
}

// UserMessage maps a search error to the Traditional Chinese line shown
// to the user. Internal detail stays in the logs.
func UserMessage(err error) string {
	var truncated *gemini.TruncatedError
	var malformed *repair.MalformedError
	switch {
	case errors.Is(err, gemini.ErrNoAPIKey):
		return "請先設定 Gemini API 金鑰"
	case errors.Is(err, ErrEmptyQuery):
		return "請輸入書名或作者名稱"
	case errors.Is(err, ErrTooManyPlatforms):
		return "最多只能選擇 3 個查詢平台"
	case errors.As(err, &truncated):
		return "AI 回應被截斷，請稍後重試或使用更簡潔的查詢"
	case errors.Is(err, ErrNoData), errors.Is(err, repair.ErrNoJSON):
		return "找不到這本書的評分資料，請檢查書名是否正確或嘗試輸入作者名稱"
	case errors.As(err, &malformed):
		return "AI 回應格式異常，請稍後再試"
	default:
		return "查詢過程中發生錯誤，請稍後再試"
	}
}
