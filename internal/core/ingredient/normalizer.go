// Package ingredient 提供食材名稱正規化與冰箱比對
package ingredient

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	roundAnnotation  = regexp.MustCompile(`\([^)]*\)`)
	squareAnnotation = regexp.MustCompile(`\[[^\]]*\]`)
)

// Normalize 將原始食材名稱轉為可比較的鍵
//
// 依序：去除前後空白並轉小寫、移除括號註記、移除數字、
// 只保留韓文音節與英文字母，最後套用同義詞表。
// 結果為空字串代表無法比對。
func Normalize(raw string) string {
	text := strings.ToLower(strings.TrimSpace(raw))
	if text == "" {
		return ""
	}

	text = roundAnnotation.ReplaceAllString(text, "")
	text = squareAnnotation.ReplaceAllString(text, "")

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsDigit(r) {
			continue
		}
		if isHangulSyllable(r) || isLatinLetter(r) {
			b.WriteRune(r)
		}
	}

	return Canonical(b.String())
}

func isHangulSyllable(r rune) bool {
	return r >= '가' && r <= '힣'
}

func isLatinLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
