// Package export renders a BookRecord as a Markdown report. Three layouts
// exist: an author listing, a scored book, and an identified book without
// scores. Per-book averages in the author layout are computed here; the
// search layer only averages for single-book results.
package export

import (
	"fmt"
	"strings"
	"time"

	"bookrater/internal/links"
	"bookrater/internal/rating"
	"bookrater/internal/search"
)

// Markdown renders rec as a self-contained report.
func Markdown(rec *search.BookRecord) string {
	var b strings.Builder
	switch {
	case rec.IsAuthorSearch:
		writeAuthorListing(&b, rec)
	case rec.NoRatings:
		writeNoRatings(&b, rec)
	default:
		writeRated(&b, rec)
	}
	fmt.Fprintf(&b, "\n---\n*%s | 匯出時間：%s*\n",
		rec.DataSource, time.Now().Format("2006-01-02 15:04"))
	return b.String()
}

func writeAuthorListing(b *strings.Builder, rec *search.BookRecord) {
	fmt.Fprintf(b, "# ✍️ %s 的著作評分\n\n", rec.Author)
	for i, book := range rec.Books {
		fmt.Fprintf(b, "## %d. %s\n\n", i+1, book.Title)
		if book.MainSummary != "" {
			fmt.Fprintf(b, "%s\n\n", book.MainSummary)
		}
		if book.SimpleExplanation != "" {
			fmt.Fprintf(b, "> 💡 %s\n\n", book.SimpleExplanation)
		}
		if len(book.Ratings) > 0 {
			writeRatingsTable(b, book.Ratings)
			avg := rating.Average(book.Ratings)
			fmt.Fprintf(b, "**平均評分**：%s / 10（%s）\n\n",
				rating.FormatScore(avg), rating.Recommend(avg))
		} else {
			b.WriteString("暫無評分資料\n\n")
		}
	}
}

func writeRated(b *strings.Builder, rec *search.BookRecord) {
	writeHeader(b, rec)
	fmt.Fprintf(b, "**平均評分**：%s / 10\n\n", rec.AverageScore)
	fmt.Fprintf(b, "**推薦程度**：%s\n\n", rec.Recommendation)
	writeBody(b, rec)
	b.WriteString("## 📊 各平台評分\n\n")
	writeRatingsTable(b, rec.Ratings)
}

func writeNoRatings(b *strings.Builder, rec *search.BookRecord) {
	writeHeader(b, rec)
	b.WriteString("⚠️ 未找到各平台的評分資料。\n\n")
	writeBody(b, rec)
	b.WriteString("## 🛒 購書連結\n\n")
	for _, l := range links.Purchase(rec.Title, rec.Author) {
		fmt.Fprintf(b, "- [%s](%s)\n", l.Name, l.URL)
	}
	b.WriteString("\n")
}

func writeHeader(b *strings.Builder, rec *search.BookRecord) {
	fmt.Fprintf(b, "# 📚 %s\n\n", rec.Title)
	if rec.TitleEn != "" {
		fmt.Fprintf(b, "*%s*\n\n", rec.TitleEn)
	}
	author := rec.Author
	if rec.AuthorEn != "" {
		author = fmt.Sprintf("%s（%s）", author, rec.AuthorEn)
	}
	fmt.Fprintf(b, "**作者**：%s\n\n", author)
}

func writeBody(b *strings.Builder, rec *search.BookRecord) {
	if rec.MainIdeal != "" {
		fmt.Fprintf(b, "## 💡 核心理念\n\n%s\n\n", rec.MainIdeal)
	}
	if len(rec.Summaries) > 0 {
		b.WriteString("## 📝 內容摘要\n\n")
		for _, s := range rec.Summaries {
			fmt.Fprintf(b, "- %s\n", s)
		}
		b.WriteString("\n")
	}
	if len(rec.KeyQuestions) > 0 {
		b.WriteString("## ❓ 關鍵問題\n\n")
		for _, q := range rec.KeyQuestions {
			fmt.Fprintf(b, "- %s\n", q)
		}
		b.WriteString("\n")
	}
	if rec.SimpleExplanation != "" {
		fmt.Fprintf(b, "## 🧒 一句話總結\n\n%s\n\n", rec.SimpleExplanation)
	}
}

func writeRatingsTable(b *strings.Builder, entries []rating.Entry) {
	b.WriteString("| 平台 | 原始評分 | 換算(10分制) | 評價摘要 |\n")
	b.WriteString("| --- | --- | --- | --- |\n")
	for _, e := range entries {
		fmt.Fprintf(b, "| %s | %.1f / %.0f | %.1f | %s |\n",
			e.Platform, e.Rating, e.MaxRating, e.Normalized, e.Summary)
	}
	b.WriteString("\n")
}
