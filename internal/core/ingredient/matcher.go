package ingredient

import (
	"sort"
	"strings"
	"time"
)

// NameSet 正規化後的冰箱食材名稱集合
type NameSet map[string]struct{}

// NewNameSet 由正規化名稱建立集合，忽略空字串
func NewNameSet(names ...string) NameSet {
	set := make(NameSet, len(names))
	for _, n := range names {
		if n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

// Has 檢查名稱是否存在
func (s NameSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Sorted 依比對優先順序排列：長度短者優先，相同長度依字典序
func (s NameSet) Sorted() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		li, lj := len([]rune(names[i])), len([]rune(names[j]))
		if li != lj {
			return li < lj
		}
		return names[i] < names[j]
	})
	return names
}

// Matcher 對單一使用者冰箱的比對器
type Matcher struct {
	names   NameSet
	ordered []string
}

// NewMatcher 建立比對器，候選順序在建立時固定
func NewMatcher(names NameSet) *Matcher {
	return &Matcher{names: names, ordered: names.Sorted()}
}

// Match 回傳對應的冰箱食材名稱
//
// 先完全比對，再做雙向子字串比對。多個候選同時符合時，
// 取最短的冰箱名稱，長度相同取字典序最小者。
func (m *Matcher) Match(recipeIngredientName string) (string, bool) {
	norm := Normalize(recipeIngredientName)
	if norm == "" {
		return "", false
	}
	if m.names.Has(norm) {
		return norm, true
	}
	for _, pantryName := range m.ordered {
		if strings.Contains(norm, pantryName) || strings.Contains(pantryName, norm) {
			return pantryName, true
		}
	}
	return "", false
}

// PantryEntry 建立到期日對照表所需的冰箱資料
type PantryEntry struct {
	Name      string
	ExpiresAt *time.Time
}

// ExpiryMap 正規化名稱對應最早到期日，nil 表示沒有到期日
type ExpiryMap map[string]*time.Time

// BuildPantryIndex 建立正規化名稱集合與到期日對照表
//
// 同名多筆時保留最早的到期日；沒有到期日的項目只在該名稱
// 尚無任何紀錄時寫入 nil。
func BuildPantryIndex(entries []PantryEntry) (NameSet, ExpiryMap) {
	names := make(NameSet, len(entries))
	expiry := make(ExpiryMap, len(entries))

	for _, e := range entries {
		norm := Normalize(e.Name)
		if norm == "" {
			continue
		}
		names[norm] = struct{}{}

		current, seen := expiry[norm]
		switch {
		case e.ExpiresAt == nil:
			if !seen {
				expiry[norm] = nil
			}
		case current == nil || e.ExpiresAt.Before(*current):
			d := *e.ExpiresAt
			expiry[norm] = &d
		}
	}
	return names, expiry
}
