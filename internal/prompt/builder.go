// Package prompt assembles the instruction text sent to the generation
// endpoint. Building is a pure function of (title, author, platforms):
// no I/O, no hidden state, same inputs always produce the same string.
package prompt

import (
	"fmt"
	"strings"
)

// Mode selects which prompt template is used.
type Mode string

const (
	ModeBookOnly     Mode = "book_only"
	ModeSpecificBook Mode = "specific_book"
	ModeAuthorBooks  Mode = "author_books"
)

// MaxPlatforms caps how many rating platforms one search may restrict to.
const MaxPlatforms = 3

// Default platform priority when the caller selects none. The primary set
// is queried first, the secondary set only as fallback.
var (
	PrimaryPlatforms   = []string{"豆瓣讀書", "Amazon Books", "Goodreads"}
	SecondaryPlatforms = []string{"博客來", "讀墨", "Kobo"}
)

// canonicalNames maps every accepted alias to the single name the prompt
// and the link builder use for that physical platform.
var canonicalNames = map[string]string{
	"豆瓣":      "豆瓣讀書",
	"豆瓣讀書":    "豆瓣讀書",
	"Amazon":      "Amazon Books",
	"Amazon Books": "Amazon Books",
	"Goodreads":   "Goodreads",
	"博客來":     "博客來",
	"Readmoo":     "讀墨",
	"讀墨":      "讀墨",
	"Kobo":        "Kobo",
}

// Canonical resolves a platform alias to its canonical name. Unknown
// names pass through so the model still sees what the user asked for.
func Canonical(platform string) string {
	if c, ok := canonicalNames[strings.TrimSpace(platform)]; ok {
		return c
	}
	return strings.TrimSpace(platform)
}

// CanonicalAll canonicalizes a selection, dropping empties and duplicates
// while preserving order.
func CanonicalAll(platforms []string) []string {
	out := make([]string, 0, len(platforms))
	seen := make(map[string]bool, len(platforms))
	for _, p := range platforms {
		c := Canonical(p)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// ModeFor picks the search mode from which inputs are present: both →
// specific_book, title only → book_only, author only → author_books.
func ModeFor(title, author string) Mode {
	switch {
	case title != "" && author != "":
		return ModeSpecificBook
	case title != "":
		return ModeBookOnly
	default:
		return ModeAuthorBooks
	}
}

// Build produces the full prompt for the given inputs. platforms must
// already be canonicalized (see CanonicalAll); empty means "all".
func Build(title, author string, platforms []string) string {
	if ModeFor(title, author) == ModeAuthorBooks {
		return buildAuthorPrompt(author, platforms)
	}
	return buildBookPrompt(title, author, platforms)
}

func searchQuery(title, author string) string {
	if title != "" && author != "" {
		return fmt.Sprintf("書名：%s，作者：%s", title, author)
	}
	return fmt.Sprintf("書名：%s", title)
}

func buildAuthorPrompt(author string, platforms []string) string {
	platformsText := "📋 查詢所有平台"
	accuracy := "參考各平台真實評分資料"
	if len(platforms) > 0 {
		joined := strings.Join(platforms, "、")
		platformsText = fmt.Sprintf("🎯 **限制查詢平台**（只查詢以下選定平台）：%s", joined)
		accuracy = fmt.Sprintf("只查詢選定的平台：%s", joined)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "請模擬 Google 搜尋「%s 著作 書籍 評分」的行為，查詢該作者的真實著作及評分資料：\n\n", author)
	b.WriteString(platformsText)
	b.WriteString("\n\n🔍 **搜尋策略**：\n")
	fmt.Fprintf(&b, "1. 先確認作者「%s」確實存在\n", author)
	b.WriteString("2. 查詢其最著名的 3-5 本著作\n")
	b.WriteString("3. 參考 Google 搜尋結果中各平台的評分彙整\n\n")
	b.WriteString(`請以 JSON 格式回傳該作者的多本書籍：
{
    "author": "作者名稱",
    "books": [
        {
            "title": "書名1",
            "mainSummary": "書籍主旨摘要（繁體中文，100字內）",
            "simpleExplanation": "用一句話總結給十歲小朋友看（繁體中文，30字內）",
            "ratings": [
                {
                    "platform": "豆瓣讀書",
                    "rating": 7.8,
                    "maxRating": 10,
                    "summary": "平台評價摘要（繁體中文，50字內）"
                }
            ]
        }
    ]
}

📊 **資料準確性要求**：
- 請確認作者名稱正確，基於真實存在的著作
- `)
	b.WriteString(accuracy)
	b.WriteString(`
- 如果某本書在特定平台找不到評分，請在 summary 中註明「未找到確切評分」
- 如果找不到該作者，請回傳空的 books 陣列
- 寧可提供較少但準確的書籍，也不要編造不存在的著作`)
	return b.String()
}

func buildBookPrompt(title, author string, platforms []string) string {
	var instructions string
	if len(platforms) > 0 {
		lines := make([]string, len(platforms))
		for i, p := range platforms {
			lines[i] = fmt.Sprintf("%d. %s", i+1, p)
		}
		instructions = fmt.Sprintf(`🎯 **限制查詢平台**（只查詢以下選定平台）：
%s

💡 請只查詢上述選定的 %d 個平台`, strings.Join(lines, "\n"), len(platforms))
	} else {
		instructions = fmt.Sprintf(`⭐ 查詢平台優先順序：
【主要平台】（優先查詢）：
1. %s
2. %s
3. %s

【備用平台】（主要平台找不到時才查詢）：
4. %s
5. %s
6. %s

💡 平台名稱請統一使用：豆瓣讀書、Amazon Books、Goodreads、博客來、讀墨、Kobo`,
			PrimaryPlatforms[0], PrimaryPlatforms[1], PrimaryPlatforms[2],
			SecondaryPlatforms[0], SecondaryPlatforms[1], SecondaryPlatforms[2])
	}

	var b strings.Builder
	fmt.Fprintf(&b, "請模擬 Google 搜尋「%s 評分 評價」的行為，查詢真實的書籍評分資料。\n\n", searchQuery(title, author))
	b.WriteString(`🔍 **搜尋策略**：
1. 先確認書籍確實存在且資訊正確
2. 查詢 Google 搜尋結果中各平台的評分彙整
3. 參考搜尋結果片段中顯示的評分數據

`)
	b.WriteString(instructions)
	b.WriteString(`

💡 **評分資料來源**：
請參考 Google 搜尋結果中通常顯示的平台評分格式：
- 博客來：X.X/5星 (X個評價)
- 讀墨：X.X/5星 (X個評價)
- Amazon：X.X/5星 (X個評價)
- Goodreads：X.X/5星 (X個評價)
- 豆瓣讀書：X.X/10分 (X個評價)
- Kobo：X.X/5星 (X個評價)

📋 回覆要求：
- 所有內容必須使用繁體中文
- 如果原始資料是簡體中文，請轉換為繁體中文並調整兩岸用語差異
- 例如：软件→軟體、网络→網路、信息→資訊、计算机→電腦

請以 JSON 格式回傳：
{
    "title": "思維的本質",
    "titleEn": "The Essence of Thought",
    "author": "約翰·史密斯",
    "authorEn": "John Smith",
    "mainIdeal": "書籍核心理念（繁體中文，100字內，說明這本書的核心思想和主要價值）",
    "summaries": [
        "摘要1：重點概念（50字內）",
        "摘要2：實用方法（50字內）",
        "摘要3：案例分析（50字內）",
        "摘要4：深度見解（50字內）",
        "摘要5：實踐應用（50字內）"
    ],
    "keyQuestions": [
        "這本書想解決什麼問題？",
        "作者提出了哪些創新觀點？",
        "讀者可以從中獲得什麼實用知識？"
    ],
    "simpleExplanation": "一句話總結給十歲小朋友看（繁體中文，30字內）",
    "dataSource": "AI生成內容，僅供參考",
    "ratings": [
        {
            "platform": "豆瓣讀書",
            "rating": 7.8,
            "maxRating": 10,
            "summary": "平台評價摘要（繁體中文，50字內）"
        },
        {
            "platform": "Amazon Books",
            "rating": 4.2,
            "maxRating": 5,
            "summary": "平台評價摘要（繁體中文，50字內）"
        }
    ]
}

🔍 **資料準確性要求**：
- 🎯 **優先查詢真實評分**：模擬實際 Google 搜尋，參考真實存在的評分數據
- ✅ **確認書籍存在**：確保書籍資訊真實存在，不可編造虛假內容
- 📊 **評分來源說明**：評分必須基於可能的真實平台數據
- ⚠️ **找不到時誠實標註**：如果某平台確實找不到評分，請在該平台的 summary 中註明「未找到確切評分資料」
- 🚫 **禁止完全虛構**：寧可留空也不要編造評分數字
- 📝 **語言轉換**：所有簡體中文內容必須轉換為繁體中文
- 🌍 **國際版本處理**：如果是翻譯書籍，請務必提供正確的英文原書名和作者英文名
- 📋 **格式要求**：只回傳 JSON，不要其他說明文字

**特別注意**：請基於 Google 搜尋結果中可能出現的真實評分資料，而非憑空創造數字`)
	return b.String()
}
