package recommend

import (
	"net/http"
	"time"

	"github.com/Darkqurk/hankki1/internal/core/ingredient"
)

// Status 推薦結果來源
type Status string

const (
	// StatusCatalog 由既有食譜目錄產生
	StatusCatalog Status = "catalog"
	// StatusSeeded 目錄為空，向外部來源補充後產生
	StatusSeeded Status = "seeded"
	// StatusNoData 目錄為空且補充失敗
	StatusNoData Status = "no_data"
)

// HTTPStatus 對應的 HTTP 狀態碼
func (s Status) HTTPStatus() int {
	switch s {
	case StatusSeeded:
		return http.StatusCreated
	case StatusNoData:
		return http.StatusServiceUnavailable
	default:
		return http.StatusOK
	}
}

// 說明文字
const (
	ReasonFullyCoverable  = "냉장고 재료로 바로 가능"
	ReasonHaveFormat      = "필수 재료 %d/%d개 보유"
	ReasonExpiryBonus     = "유통기한 임박 재료 활용"
	ReasonExpiredIncluded = "유통기한 지난 재료 포함"
	ReasonCookTimeFormat  = "%d분 내 조리"
	ReasonNoRequired      = "필수 재료 정보 없음"

	SentinelTitle  = "추천할 레시피가 아직 부족해요"
	SentinelReason = "레시피 데이터를 더 추가하면 추천이 가능해요"
)

// Recommendation 單一食譜的評分結果
type Recommendation struct {
	RecipeID           uint     `json:"recipe_id"`
	Title              string   `json:"title"`
	CookTimeMin        *int     `json:"cook_time_min"`
	Coverage           float64  `json:"coverage"`
	MissingCount       int      `json:"missing_count"`
	MissingIngredients []string `json:"missing_ingredients"`
	ShoppingList       []string `json:"shopping_list"`
	Reasons            []string `json:"reasons"`
	Saved              bool     `json:"saved"`
	Score              float64  `json:"score"`
	Debug              *Debug   `json:"debug,omitempty"`

	haveCount int
}

// IsSentinel 是否為「尚無推薦」的佔位項目
func (r Recommendation) IsSentinel() bool {
	return r.RecipeID == 0
}

// Debug 分數拆解
type Debug struct {
	Base                     float64 `json:"base"`
	PenaltyRecentCookedSaved float64 `json:"penalty_recent_cooked_saved"`
	PenaltyRecentSkipped     float64 `json:"penalty_recent_skipped"`
	PenaltyCooldown          float64 `json:"penalty_cooldown"`
	PenaltyExposureNoConvert float64 `json:"penalty_exposure_no_convert"`
	BonusConverted           float64 `json:"bonus_converted"`
	Exposure                 int     `json:"exposure"`
	Converted                bool    `json:"converted"`
	PopUsers                 int     `json:"pop_users"`
	PopBonus                 float64 `json:"pop_bonus"`
	BonusExpiry              float64 `json:"bonus_expiry"`
	PenaltyExpiredPantry     float64 `json:"penalty_expired_pantry"`
	ExpiryMatchedCount       int     `json:"expiry_matched_count"`
	ExpiryMinDaysLeft        *int    `json:"expiry_min_days_left"`
}

// Envelope 快取與回應使用的序列化格式
type Envelope struct {
	Status          Status           `json:"status"`
	Recommendations []Recommendation `json:"recommendations"`
}

// IDSet 食譜 ID 集合
type IDSet map[uint]struct{}

// NewIDSet 由 ID 列表建立集合
func NewIDSet(ids ...uint) IDSet {
	set := make(IDSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Has 檢查 ID 是否存在
func (s IDSet) Has(id uint) bool {
	_, ok := s[id]
	return ok
}

// UserContext 一次排序所需的使用者資料，排序期間唯讀
type UserContext struct {
	UserID uint
	// Today 計算剩餘天數的基準日
	Today time.Time

	PantryIDs   IDSet
	Matcher     *ingredient.Matcher
	Expiry      ingredient.ExpiryMap
	MaxCookTime *int

	Saved             IDSet
	RecentCookedSaved IDSet
	RecentSkipped     IDSet
	RecentRecommended IDSet
	Converted         IDSet
	Exposure          map[uint]int
	Popularity        map[uint]int

	// HistoryCount 曝光統計涵蓋的推薦紀錄筆數
	HistoryCount int
}
