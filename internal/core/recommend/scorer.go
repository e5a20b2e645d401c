package recommend

import (
	"fmt"
	"math"
	"time"

	"github.com/Darkqurk/hankki1/internal/core/model"
	"github.com/Darkqurk/hankki1/internal/pkg/common"
)

// Scorer 依權重表計算單一食譜分數
type Scorer struct {
	w Weights
}

// NewScorer 建立評分器
func NewScorer(w Weights) *Scorer {
	return &Scorer{w: w}
}

// Weights 目前使用的權重表
func (s *Scorer) Weights() Weights {
	return s.w
}

// Score 計算食譜分數，沒有必要食材時 ok 為 false
func (s *Scorer) Score(r *model.Recipe, uc *UserContext) (rec Recommendation, ok bool) {
	required := r.RequiredIngredients()
	requiredCount := len(required)
	if requiredCount == 0 {
		return Recommendation{}, false
	}

	haveCount := 0
	missingNames := make([]string, 0)
	daysLeft := make([]int, 0)

	for _, ri := range required {
		matchedName, matched := uc.Matcher.Match(ri.Ingredient.NameKo)
		if !uc.PantryIDs.Has(ri.IngredientID) && !matched {
			missingNames = append(missingNames, ri.Ingredient.NameKo)
			continue
		}
		haveCount++

		if !matched {
			continue
		}
		if exp := uc.Expiry[matchedName]; exp != nil {
			daysLeft = append(daysLeft, civilDaysBetween(uc.Today, *exp))
		}
	}

	missingCount := requiredCount - haveCount
	coverage := float64(haveCount) / float64(requiredCount)
	missingRatio := float64(missingCount) / float64(requiredCount)

	bonusExpiry, penaltyExpired, minDaysLeft := s.expiryAdjustment(daysLeft)
	timeFit := s.timeFit(r.CookTimeMin, uc.MaxCookTime)

	score := s.w.Coverage*coverage -
		s.w.MissingRatio*missingRatio +
		bonusExpiry -
		penaltyExpired +
		s.w.TimeFit*timeFit

	debug := &Debug{
		Base:                 common.Round(s.w.Coverage*coverage-s.w.MissingRatio*missingRatio+s.w.TimeFit*timeFit, 4),
		BonusExpiry:          common.Round(bonusExpiry, 4),
		PenaltyExpiredPantry: common.Round(penaltyExpired, 4),
		ExpiryMatchedCount:   len(daysLeft),
		ExpiryMinDaysLeft:    minDaysLeft,
	}

	// 行為調整，順序固定
	if uc.RecentCookedSaved.Has(r.ID) {
		score -= s.w.RecentCookedSaved
		debug.PenaltyRecentCookedSaved = -s.w.RecentCookedSaved
	}
	if uc.RecentSkipped.Has(r.ID) {
		score -= s.w.RecentSkipped
		debug.PenaltyRecentSkipped = -s.w.RecentSkipped
	}
	if uc.RecentRecommended.Has(r.ID) {
		score -= s.w.Cooldown
		debug.PenaltyCooldown = -s.w.Cooldown
	}

	exposure := uc.Exposure[r.ID]
	converted := uc.Converted.Has(r.ID)
	if exposure >= s.w.ExposureThreshold && !converted {
		score -= s.w.ExposureNoConvert
		debug.PenaltyExposureNoConvert = -s.w.ExposureNoConvert
	}
	if converted {
		score += s.w.Converted
		debug.BonusConverted = s.w.Converted
	}
	debug.Exposure = exposure
	debug.Converted = converted

	popUsers := uc.Popularity[r.ID]
	popNorm := float64(min(popUsers, s.w.PopularityCap)) / float64(s.w.PopularityCap)
	score += s.w.Popularity * popNorm
	debug.PopUsers = popUsers
	debug.PopBonus = common.Round(s.w.Popularity*popNorm, 4)

	return Recommendation{
		RecipeID:           r.ID,
		Title:              r.Title,
		CookTimeMin:        r.CookTimeMin,
		Coverage:           common.Round(coverage, 3),
		MissingCount:       missingCount,
		MissingIngredients: missingNames,
		ShoppingList:       append([]string(nil), missingNames...),
		Reasons:            s.reasons(haveCount, requiredCount, bonusExpiry, penaltyExpired, r.CookTimeMin),
		Saved:              uc.Saved.Has(r.ID),
		Score:              common.Round(score, 4),
		Debug:              debug,
		haveCount:          haveCount,
	}, true
}

// ScoreOrExplain 單一食譜評分，沒有必要食材時回傳零分與說明
func (s *Scorer) ScoreOrExplain(r *model.Recipe, uc *UserContext) Recommendation {
	if rec, ok := s.Score(r, uc); ok {
		return rec
	}
	return Recommendation{
		RecipeID:           r.ID,
		Title:              r.Title,
		CookTimeMin:        r.CookTimeMin,
		MissingIngredients: []string{},
		ShoppingList:       []string{},
		Reasons:            []string{ReasonNoRequired},
		Saved:              uc.Saved.Has(r.ID),
	}
}

// expiryAdjustment 依剩餘天數累計加分與扣分，各自設上限
func (s *Scorer) expiryAdjustment(daysLeft []int) (bonus, penalty float64, minDays *int) {
	for _, d := range daysLeft {
		if minDays == nil || d < *minDays {
			v := d
			minDays = &v
		}

		switch {
		case d <= s.w.ExpiredDays:
			penalty += s.w.ExpiredWeight
		case d <= s.w.UrgentDays:
			bonus += s.w.UrgentWeight
		case d <= s.w.SoonDays:
			bonus += s.w.SoonWeight
		}
	}
	return math.Min(bonus, s.w.ExpiryCap), math.Min(penalty, s.w.ExpiryCap), minDays
}

// timeFit 烹調時間與偏好時間的接近程度，無法計算時為中性值
func (s *Scorer) timeFit(cookTime, maxTime *int) float64 {
	if maxTime == nil || *maxTime <= 0 || cookTime == nil {
		return s.w.NeutralFit
	}
	diff := math.Abs(float64(*cookTime-*maxTime)) / float64(*maxTime)
	return math.Max(0, 1-math.Min(diff, 1))
}

func (s *Scorer) reasons(have, required int, bonus, penalty float64, cookTime *int) []string {
	reasons := make([]string, 0, 4)
	if have == required {
		reasons = append(reasons, ReasonFullyCoverable)
	} else {
		reasons = append(reasons, fmt.Sprintf(ReasonHaveFormat, have, required))
	}
	if bonus > 0 {
		reasons = append(reasons, ReasonExpiryBonus)
	}
	if penalty > 0 {
		reasons = append(reasons, ReasonExpiredIncluded)
	}
	if cookTime != nil {
		reasons = append(reasons, fmt.Sprintf(ReasonCookTimeFormat, *cookTime))
	}
	return reasons
}

// civilDaysBetween 以日曆日計算 to - from
func civilDaysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(math.Round(t.Sub(f).Hours() / 24))
}
