// Package query parses the CLI search line. Bare words accumulate into
// the title; "author:" and "platform:" prefixes set filters, with double
// quotes grouping multi-word values: 思考 author:"丹尼爾 康納曼" platform:豆瓣
package query

import "strings"

// Parsed is the structured form of one search line.
type Parsed struct {
	Title     string
	Author    string
	Platforms []string
}

type lexer struct {
	input []rune
	pos   int
}

func (l *lexer) eof() bool {
	return l.pos >= len(l.input)
}

func (l *lexer) peek() rune {
	return l.input[l.pos]
}

func (l *lexer) skipSpace() {
	for !l.eof() && (l.peek() == ' ' || l.peek() == '\t') {
		l.pos++
	}
}

// word reads until whitespace, honoring double quotes anywhere in the
// token so author:"first last" comes back as one word.
func (l *lexer) word() string {
	var b strings.Builder
	quoted := false
	for !l.eof() {
		r := l.peek()
		if r == '"' {
			quoted = !quoted
			l.pos++
			continue
		}
		if !quoted && (r == ' ' || r == '\t') {
			break
		}
		b.WriteRune(r)
		l.pos++
	}
	return b.String()
}

// Parse splits a search line into title, author and platform filters.
// Repeated author: filters overwrite; repeated platform: filters append.
func Parse(line string) Parsed {
	l := &lexer{input: []rune(line)}
	var p Parsed
	var titleWords []string

	for {
		l.skipSpace()
		if l.eof() {
			break
		}
		w := l.word()
		switch {
		case hasFilterPrefix(w, "author:"):
			p.Author = w[len("author:"):]
		case hasFilterPrefix(w, "platform:"):
			if v := w[len("platform:"):]; v != "" {
				p.Platforms = append(p.Platforms, v)
			}
		default:
			if w != "" {
				titleWords = append(titleWords, w)
			}
		}
	}
	p.Title = strings.Join(titleWords, " ")
	return p
}

func hasFilterPrefix(w, prefix string) bool {
	return len(w) >= len(prefix) && strings.EqualFold(w[:len(prefix)], prefix)
}
