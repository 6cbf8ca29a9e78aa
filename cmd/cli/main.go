package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/peterh/liner"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"

	"bookrater/internal/config"
	"bookrater/internal/export"
	"bookrater/internal/gemini"
	"bookrater/internal/links"
	"bookrater/internal/logger"
	"bookrater/internal/query"
	"bookrater/internal/search"
	"bookrater/internal/settings"
)

const historyFile = ".bookrater_history"

type app struct {
	store *settings.Store
	svc   *search.Service

	// last successful record, kept so "export" works after a search.
	last *search.BookRecord
}

func main() {
	cfg := config.Get()
	if err := config.Err(); err != nil {
		logrus.WithError(err).Fatal("bad config file")
	}
	if !cfg.CLI.Debug {
		logrus.SetLevel(logrus.WarnLevel)
	}

	store, err := settings.Open(cfg.Storage.SettingsPath)
	if err != nil {
		logrus.WithError(err).Fatal("failed to open settings store")
	}
	defer store.Close()

	client := gemini.NewClient(cfg.Gemini.BaseURL,
		time.Duration(cfg.Gemini.TimeoutSeconds)*time.Second)
	a := &app{store: store, svc: search.NewService(client)}

	if len(os.Args) > 1 {
		a.runSearch(strings.Join(os.Args[1:], " "))
		return
	}
	a.shell()
}

func (a *app) shell() {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Println("📚 書籍評分查詢工具（輸入 help 查看指令）")
	for {
		input, err := line.Prompt("bookrater> ")
		if err != nil {
			return
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)
		if !a.dispatch(input) {
			return
		}
	}
}

// dispatch runs one shell line; false means exit.
func (a *app) dispatch(input string) bool {
	cmd, rest, _ := strings.Cut(input, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "exit", "quit":
		return false
	case "help":
		printHelp()
	case "key":
		a.cmdKey(rest)
	case "model":
		a.cmdModel(rest)
	case "settings":
		a.cmdSettings()
	case "clear":
		if err := a.store.ClearAPIKey(); err != nil {
			fmt.Printf("錯誤：%v\n", err)
		} else {
			fmt.Println("已清除 API 金鑰")
		}
	case "export":
		a.cmdExport(rest)
	default:
		a.runSearch(input)
	}
	return true
}

func printHelp() {
	fmt.Print(`指令：
  <書名> [author:作者] [platform:平台]   查詢書籍評分（platform: 最多 3 個）
  author:<作者>                          查詢作者著作
  key <金鑰>        設定 Gemini API 金鑰（不帶參數顯示目前設定）
  model <名稱>      設定模型名稱（不帶參數顯示目前設定）
  settings          顯示目前設定
  clear             清除 API 金鑰
  export [檔名]     將上次查詢結果匯出為 Markdown
  exit              離開
`)
}

func (a *app) cmdKey(value string) {
	if value == "" {
		key, err := a.store.APIKey()
		if err != nil {
			fmt.Printf("錯誤：%v\n", err)
			return
		}
		if key == "" {
			fmt.Println("尚未設定 API 金鑰")
		} else {
			fmt.Printf("API 金鑰：%s\n", logger.RedactKey(key))
		}
		return
	}
	if err := a.store.SetAPIKey(value); err != nil {
		fmt.Printf("錯誤：%v\n", err)
		return
	}
	fmt.Println("已儲存 API 金鑰")
}

func (a *app) cmdModel(value string) {
	if value == "" {
		model, err := a.store.Model()
		if err != nil {
			fmt.Printf("錯誤：%v\n", err)
			return
		}
		fmt.Printf("模型：%s\n", model)
		return
	}
	if err := a.store.SetModel(value); err != nil {
		fmt.Printf("錯誤：%v\n", err)
		return
	}
	fmt.Printf("已設定模型：%s\n", value)
}

func (a *app) cmdSettings() {
	key, err := a.store.APIKey()
	if err != nil {
		fmt.Printf("錯誤：%v\n", err)
		return
	}
	model, err := a.store.Model()
	if err != nil {
		fmt.Printf("錯誤：%v\n", err)
		return
	}
	if key == "" {
		fmt.Println("API 金鑰：未設定")
	} else {
		fmt.Printf("API 金鑰：%s\n", logger.RedactKey(key))
	}
	fmt.Printf("模型：%s\n", model)
}

func (a *app) cmdExport(filename string) {
	if a.last == nil {
		fmt.Println("尚未有查詢結果可匯出")
		return
	}
	if filename == "" {
		filename = fmt.Sprintf("book-rating-%s.md", time.Now().Format("20060102-150405"))
	}
	if err := os.WriteFile(filename, []byte(export.Markdown(a.last)), 0o644); err != nil {
		fmt.Printf("匯出失敗：%v\n", err)
		return
	}
	fmt.Printf("已匯出：%s\n", filename)
}

func (a *app) runSearch(line string) {
	parsed := query.Parse(line)
	creds, err := a.store.Credentials()
	if err != nil {
		fmt.Printf("錯誤：%v\n", err)
		return
	}

	ctx := logger.ContextWithID(context.Background(), uuid.NewString())
	req := search.Request{Title: parsed.Title, Author: parsed.Author, Platforms: parsed.Platforms}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("🔍 查詢中"),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWriter(os.Stderr),
	)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-time.After(100 * time.Millisecond):
				_ = bar.Add(1)
			}
		}
	}()

	start := time.Now()
	rec, err := a.svc.Search(ctx, creds, req)
	close(done)
	_ = bar.Clear()
	fmt.Fprint(os.Stderr, "\r")

	if err != nil {
		fmt.Println(search.UserMessage(err))
		return
	}
	a.last = rec
	renderRecord(rec)
	fmt.Printf("\n⏱ 查詢耗時：%v\n", time.Since(start).Round(10*time.Millisecond))
}

func renderRecord(rec *search.BookRecord) {
	if rec.IsAuthorSearch {
		renderAuthorListing(rec)
		return
	}

	fmt.Printf("\n📚 %s", rec.Title)
	if rec.TitleEn != "" {
		fmt.Printf("（%s）", rec.TitleEn)
	}
	fmt.Println()
	author := rec.Author
	if rec.AuthorEn != "" {
		author = fmt.Sprintf("%s（%s）", author, rec.AuthorEn)
	}
	fmt.Printf("作者：%s\n", author)

	if rec.NoRatings {
		fmt.Println("\n⚠️ 未找到各平台的評分資料，以下為購書連結：")
		for _, l := range links.Purchase(rec.Title, rec.Author) {
			fmt.Printf("  %s：%s\n", l.Name, l.URL)
		}
	} else {
		fmt.Printf("\n平均評分：%s / 10（%s）\n", rec.AverageScore, rec.Recommendation)
		renderRatings(rec)
	}

	if rec.MainIdeal != "" {
		fmt.Printf("\n💡 核心理念：%s\n", rec.MainIdeal)
	}
	for i, s := range rec.Summaries {
		if i == 0 {
			fmt.Println("\n📝 內容摘要：")
		}
		fmt.Printf("  - %s\n", s)
	}
	for i, q := range rec.KeyQuestions {
		if i == 0 {
			fmt.Println("\n❓ 關鍵問題：")
		}
		fmt.Printf("  - %s\n", q)
	}
	if rec.SimpleExplanation != "" {
		fmt.Printf("\n🧒 一句話總結：%s\n", rec.SimpleExplanation)
	}
	fmt.Printf("\n%s\n", rec.DataSource)
}

func renderRatings(rec *search.BookRecord) {
	book := links.Book{
		Title:      rec.Title,
		TitleEn:    rec.TitleEn,
		Author:     rec.Author,
		AuthorEn:   rec.AuthorEn,
		Simplified: rec.SimplifiedTitle,
	}
	fmt.Println("\n📊 各平台評分：")
	for _, e := range rec.Ratings {
		fmt.Printf("  %-14s %.1f / %.0f（換算 %.1f）  %s\n",
			e.Platform, e.Rating, e.MaxRating, e.Normalized, e.Summary)
		if u := links.RatingPlatform(e.Platform, book); u != "" {
			fmt.Printf("  %-14s %s\n", "", u)
		}
	}
}

func renderAuthorListing(rec *search.BookRecord) {
	fmt.Printf("\n✍️ %s 的著作：\n", rec.Author)
	for i, b := range rec.Books {
		fmt.Printf("\n%d. %s\n", i+1, b.Title)
		if b.MainSummary != "" {
			fmt.Printf("   %s\n", b.MainSummary)
		}
		for _, e := range b.Ratings {
			fmt.Printf("   %-14s %.1f / %.0f（換算 %.1f）\n",
				e.Platform, e.Rating, e.MaxRating, e.Normalized)
		}
	}
	fmt.Printf("\n%s\n", rec.DataSource)
}
