package recommend

import (
	"sort"

	"github.com/Darkqurk/hankki1/internal/core/model"
)

// nearMissLimit 備援清單允許的最多缺少食材數
const nearMissLimit = 2

// MaxTop 單次推薦最多回傳的筆數
const MaxTop = 50

// ClampTop 將 top 限制在 1 到 MaxTop 之間
func ClampTop(top int) int {
	return min(max(1, top), MaxTop)
}

// RankOutcome 一次排序的結果
type RankOutcome struct {
	Recommendations []Recommendation
	// Candidates 實際參與評分的食譜數
	Candidates int
	// Fallback 使用的備援路徑：""、"near_miss" 或 "sentinel"
	Fallback string
}

// RealIDs 非佔位項目的食譜 ID，依排序順序
func (o RankOutcome) RealIDs() []uint {
	ids := make([]uint, 0, len(o.Recommendations))
	for _, r := range o.Recommendations {
		if !r.IsSentinel() {
			ids = append(ids, r.RecipeID)
		}
	}
	return ids
}

// Rank 對目錄中所有可評分食譜評分並取前 topN
//
// 已收藏與沒有必要食材的食譜不參與評分。排序為穩定排序，
// 同分時保留目錄順序。
func (s *Scorer) Rank(recipes []model.Recipe, uc *UserContext, topN int) RankOutcome {
	topN = ClampTop(topN)

	scored := make([]Recommendation, 0, len(recipes))
	for i := range recipes {
		r := &recipes[i]
		if uc.Saved.Has(r.ID) {
			continue
		}
		rec, ok := s.Score(r, uc)
		if !ok {
			continue
		}
		scored = append(scored, rec)
	}

	out := RankOutcome{Candidates: len(scored)}
	out.Recommendations, out.Fallback = selectTop(scored, topN)
	return out
}

// selectTop 排序並套用備援規則，結果至少一筆
//
// 主要清單只收至少有一項必要食材的食譜；主要清單為空時改取
// 缺少 1 到 2 項的食譜，仍為空時回傳佔位項目。
func selectTop(scored []Recommendation, topN int) ([]Recommendation, string) {
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	primary := make([]Recommendation, 0, min(topN, len(scored)))
	for _, r := range scored {
		if r.haveCount > 0 {
			primary = append(primary, r)
			if len(primary) == topN {
				break
			}
		}
	}
	if len(primary) > 0 {
		return primary, ""
	}

	nearMiss := make([]Recommendation, 0)
	for _, r := range scored {
		if r.MissingCount > 0 && r.MissingCount <= nearMissLimit {
			nearMiss = append(nearMiss, r)
		}
	}
	if len(nearMiss) > 0 {
		return nearMiss[:min(topN, len(nearMiss))], "near_miss"
	}

	return []Recommendation{Sentinel()}, "sentinel"
}

// Sentinel 沒有任何推薦時回傳的佔位項目
func Sentinel() Recommendation {
	return Recommendation{
		RecipeID:           0,
		Title:              SentinelTitle,
		MissingIngredients: []string{},
		ShoppingList:       []string{},
		Reasons:            []string{SentinelReason},
	}
}
