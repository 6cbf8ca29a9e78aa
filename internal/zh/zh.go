// Package zh converts Traditional Chinese input to Simplified for the
// secondary query form kept on each book record. The table covers the
// characters that actually show up in book titles the tool is used for;
// anything unmapped passes through unchanged.
package zh

import (
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

var tradToSimp = map[rune]rune{
	'書': '书', '評': '评', '獲': '获', '與': '与', '為': '为',
	'說': '说', '經': '经', '過': '过', '開': '开', '關': '关',
	'來': '来', '會': '会', '時': '时', '個': '个', '這': '这',
	'們': '们', '對': '对', '學': '学', '體': '体', '現': '现',
	'機': '机', '動': '动', '語': '语', '長': '长', '問': '问',
	'題': '题', '發': '发', '當': '当', '種': '种', '進': '进',
}

// Simplifier is a transform.Transformer applying the character table.
var Simplifier = runes.Map(func(r rune) rune {
	if s, ok := tradToSimp[r]; ok {
		return s
	}
	return r
})

// Simplified returns s with all mapped characters converted.
func Simplified(s string) string {
	out, _, err := transform.String(Simplifier, s)
	if err != nil {
		return s
	}
	return out
}
