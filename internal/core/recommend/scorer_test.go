package recommend

import (
	"testing"
	"time"

	"github.com/Darkqurk/hankki1/internal/core/ingredient"
	"github.com/Darkqurk/hankki1/internal/core/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func intPtr(v int) *int { return &v }

func dayOffset(days int) *time.Time {
	d := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, days)
	return &d
}

func required(id uint, name string) model.RecipeIngredient {
	return model.RecipeIngredient{IngredientID: id, Ingredient: model.Ingredient{ID: id, NameKo: name}}
}

func optional(id uint, name string) model.RecipeIngredient {
	ri := required(id, name)
	ri.IsOptional = true
	return ri
}

func newRecipe(id uint, title string, cookTime *int, ings ...model.RecipeIngredient) model.Recipe {
	return model.Recipe{ID: id, Title: title, CookTimeMin: cookTime, Ingredients: ings}
}

// pantryContext 以名稱建立冰箱，ingredient id 不與食譜重疊，只走名稱比對
func pantryContext(entries ...ingredient.PantryEntry) *UserContext {
	names, expiry := ingredient.BuildPantryIndex(entries)
	return &UserContext{
		UserID:            1,
		Today:             today,
		PantryIDs:         NewIDSet(),
		Matcher:           ingredient.NewMatcher(names),
		Expiry:            expiry,
		Saved:             NewIDSet(),
		RecentCookedSaved: NewIDSet(),
		RecentSkipped:     NewIDSet(),
		RecentRecommended: NewIDSet(),
		Converted:         NewIDSet(),
		Exposure:          map[uint]int{},
		Popularity:        map[uint]int{},
	}
}

func eggAndSalt() model.Recipe {
	return newRecipe(10, "계란말이", nil, required(1, "계란"), required(2, "소금"))
}

func TestScoreExpiringIngredient(t *testing.T) {
	s := NewScorer(DefaultWeights)
	r := eggAndSalt()
	uc := pantryContext(ingredient.PantryEntry{Name: "계란", ExpiresAt: dayOffset(1)})

	rec, ok := s.Score(&r, uc)
	require.True(t, ok)

	assert.Equal(t, 0.5, rec.Coverage)
	assert.Equal(t, 1, rec.MissingCount)
	assert.Equal(t, []string{"소금"}, rec.MissingIngredients)
	assert.Equal(t, []string{"소금"}, rec.ShoppingList)
	assert.InDelta(t, 0.475, rec.Score, 1e-9)

	require.NotNil(t, rec.Debug)
	assert.InDelta(t, 0.25, rec.Debug.BonusExpiry, 1e-9)
	assert.Zero(t, rec.Debug.PenaltyExpiredPantry)
	assert.InDelta(t, 0.225, rec.Debug.Base, 1e-9)
	assert.Equal(t, 1, rec.Debug.ExpiryMatchedCount)
	require.NotNil(t, rec.Debug.ExpiryMinDaysLeft)
	assert.Equal(t, 1, *rec.Debug.ExpiryMinDaysLeft)

	assert.Equal(t, []string{"필수 재료 1/2개 보유", ReasonExpiryBonus}, rec.Reasons)
}

func TestScoreExpiredIngredient(t *testing.T) {
	s := NewScorer(DefaultWeights)
	r := eggAndSalt()

	fresh, ok := s.Score(&r, pantryContext(ingredient.PantryEntry{Name: "계란"}))
	require.True(t, ok)
	expired, ok := s.Score(&r, pantryContext(ingredient.PantryEntry{Name: "계란", ExpiresAt: dayOffset(-2)}))
	require.True(t, ok)

	assert.InDelta(t, 0.20, expired.Debug.PenaltyExpiredPantry, 1e-9)
	assert.InDelta(t, fresh.Score-0.20, expired.Score, 1e-9)
	assert.Contains(t, expired.Reasons, ReasonExpiredIncluded)
	assert.Equal(t, -2, *expired.Debug.ExpiryMinDaysLeft)

	assert.Nil(t, fresh.Debug.ExpiryMinDaysLeft)
	assert.Zero(t, fresh.Debug.ExpiryMatchedCount)
}

func TestScoreExpiryBuckets(t *testing.T) {
	s := NewScorer(DefaultWeights)

	tests := []struct {
		name    string
		days    int
		bonus   float64
		penalty float64
	}{
		{name: "expired yesterday", days: -1, penalty: 0.20},
		{name: "today", days: 0, bonus: 0.25},
		{name: "two days", days: 2, bonus: 0.25},
		{name: "three days", days: 3, bonus: 0.10},
		{name: "a week", days: 7, bonus: 0.10},
		{name: "later", days: 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bonus, penalty, minDays := s.expiryAdjustment([]int{tt.days})
			assert.InDelta(t, tt.bonus, bonus, 1e-9)
			assert.InDelta(t, tt.penalty, penalty, 1e-9)
			require.NotNil(t, minDays)
			assert.Equal(t, tt.days, *minDays)
		})
	}
}

func TestScoreExpiryCapped(t *testing.T) {
	s := NewScorer(DefaultWeights)

	bonus, _, _ := s.expiryAdjustment([]int{0, 1, 2})
	assert.InDelta(t, 0.5, bonus, 1e-9)

	_, penalty, minDays := s.expiryAdjustment([]int{-1, -2, -3})
	assert.InDelta(t, 0.5, penalty, 1e-9)
	assert.Equal(t, -3, *minDays)
}

func TestTimeFit(t *testing.T) {
	s := NewScorer(DefaultWeights)

	tests := []struct {
		name     string
		cookTime *int
		maxTime  *int
		want     float64
	}{
		{name: "exact", cookTime: intPtr(20), maxTime: intPtr(20), want: 1},
		{name: "half over", cookTime: intPtr(30), maxTime: intPtr(20), want: 0.5},
		{name: "half under", cookTime: intPtr(10), maxTime: intPtr(20), want: 0.5},
		{name: "far over", cookTime: intPtr(60), maxTime: intPtr(20), want: 0},
		{name: "unknown cook time", maxTime: intPtr(20), want: 0.5},
		{name: "no preference", cookTime: intPtr(15), want: 0.5},
		{name: "zero preference", cookTime: intPtr(15), maxTime: intPtr(0), want: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, s.timeFit(tt.cookTime, tt.maxTime), 1e-9)
		})
	}
}

func TestScoreNoRequiredIngredients(t *testing.T) {
	s := NewScorer(DefaultWeights)
	r := newRecipe(11, "소스", intPtr(5), optional(3, "참기름"))
	uc := pantryContext(ingredient.PantryEntry{Name: "참기름"})

	_, ok := s.Score(&r, uc)
	assert.False(t, ok)

	rec := s.ScoreOrExplain(&r, uc)
	assert.Equal(t, uint(11), rec.RecipeID)
	assert.Zero(t, rec.Score)
	assert.Zero(t, rec.Coverage)
	assert.Equal(t, []string{ReasonNoRequired}, rec.Reasons)
	assert.Nil(t, rec.Debug)
}

func TestScoreMatchesByPantryIDFirst(t *testing.T) {
	s := NewScorer(DefaultWeights)
	r := eggAndSalt()
	uc := pantryContext()
	uc.PantryIDs = NewIDSet(1, 2)

	rec, ok := s.Score(&r, uc)
	require.True(t, ok)
	assert.Equal(t, 1.0, rec.Coverage)
	assert.Zero(t, rec.MissingCount)
	assert.Empty(t, rec.MissingIngredients)
	assert.Equal(t, ReasonFullyCoverable, rec.Reasons[0])
	// id 命中時沒有名稱可查到期日
	assert.Zero(t, rec.Debug.ExpiryMatchedCount)
}

func TestScoreCookTimeReason(t *testing.T) {
	s := NewScorer(DefaultWeights)
	r := newRecipe(12, "계란찜", intPtr(15), required(1, "달걀"))
	uc := pantryContext(ingredient.PantryEntry{Name: "계란"})
	uc.MaxCookTime = intPtr(15)

	rec, ok := s.Score(&r, uc)
	require.True(t, ok)
	assert.Equal(t, []string{ReasonFullyCoverable, "15분 내 조리"}, rec.Reasons)
	// 0.55 + 0.10
	assert.InDelta(t, 0.65, rec.Score, 1e-9)
}

func TestScoreBehavioralAdjustments(t *testing.T) {
	s := NewScorer(DefaultWeights)
	r := eggAndSalt()

	base, ok := s.Score(&r, pantryContext(ingredient.PantryEntry{Name: "계란"}))
	require.True(t, ok)

	tests := []struct {
		name  string
		setup func(uc *UserContext)
		delta float64
		check func(t *testing.T, d *Debug)
	}{
		{
			name:  "recently cooked or saved",
			setup: func(uc *UserContext) { uc.RecentCookedSaved = NewIDSet(r.ID) },
			delta: -0.15,
			check: func(t *testing.T, d *Debug) { assert.InDelta(t, -0.15, d.PenaltyRecentCookedSaved, 1e-9) },
		},
		{
			name:  "recently skipped",
			setup: func(uc *UserContext) { uc.RecentSkipped = NewIDSet(r.ID) },
			delta: -0.40,
			check: func(t *testing.T, d *Debug) { assert.InDelta(t, -0.40, d.PenaltyRecentSkipped, 1e-9) },
		},
		{
			name:  "cooldown",
			setup: func(uc *UserContext) { uc.RecentRecommended = NewIDSet(r.ID) },
			delta: -0.10,
			check: func(t *testing.T, d *Debug) { assert.InDelta(t, -0.10, d.PenaltyCooldown, 1e-9) },
		},
		{
			name:  "single exposure",
			setup: func(uc *UserContext) { uc.Exposure = map[uint]int{r.ID: 1} },
			delta: 0,
			check: func(t *testing.T, d *Debug) { assert.Equal(t, 1, d.Exposure) },
		},
		{
			name:  "repeated exposure without conversion",
			setup: func(uc *UserContext) { uc.Exposure = map[uint]int{r.ID: 2} },
			delta: -0.20,
			check: func(t *testing.T, d *Debug) { assert.InDelta(t, -0.20, d.PenaltyExposureNoConvert, 1e-9) },
		},
		{
			name: "repeated exposure with conversion",
			setup: func(uc *UserContext) {
				uc.Exposure = map[uint]int{r.ID: 3}
				uc.Converted = NewIDSet(r.ID)
			},
			delta: 0.05,
			check: func(t *testing.T, d *Debug) {
				assert.Zero(t, d.PenaltyExposureNoConvert)
				assert.True(t, d.Converted)
				assert.InDelta(t, 0.05, d.BonusConverted, 1e-9)
			},
		},
		{
			name:  "popularity below cap",
			setup: func(uc *UserContext) { uc.Popularity = map[uint]int{r.ID: 10} },
			delta: 0.04,
			check: func(t *testing.T, d *Debug) {
				assert.Equal(t, 10, d.PopUsers)
				assert.InDelta(t, 0.04, d.PopBonus, 1e-9)
			},
		},
		{
			name:  "popularity capped",
			setup: func(uc *UserContext) { uc.Popularity = map[uint]int{r.ID: 45} },
			delta: 0.08,
			check: func(t *testing.T, d *Debug) { assert.InDelta(t, 0.08, d.PopBonus, 1e-9) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := pantryContext(ingredient.PantryEntry{Name: "계란"})
			tt.setup(uc)

			rec, ok := s.Score(&r, uc)
			require.True(t, ok)
			assert.InDelta(t, base.Score+tt.delta, rec.Score, 1e-9)
			assert.Equal(t, base.Debug.Base, rec.Debug.Base)
			tt.check(t, rec.Debug)
		})
	}
}

func TestScoreCoverageConsistency(t *testing.T) {
	s := NewScorer(DefaultWeights)
	r := newRecipe(20, "잡채", nil,
		required(1, "당면"),
		required(2, "시금치"),
		required(3, "당근"),
		required(4, "양파"),
		required(5, "간장"),
		required(6, "돼지"),
		optional(7, "참기름"),
	)
	pantries := [][]string{
		{},
		{"당면"},
		{"당면", "양파"},
		{"당면", "시금치", "당근"},
		{"당면", "시금치", "당근", "양파", "간장", "돼지고기"},
	}

	for _, names := range pantries {
		entries := make([]ingredient.PantryEntry, 0, len(names))
		for _, n := range names {
			entries = append(entries, ingredient.PantryEntry{Name: n})
		}
		rec, ok := s.Score(&r, pantryContext(entries...))
		require.True(t, ok)

		assert.GreaterOrEqual(t, rec.Coverage, 0.0)
		assert.LessOrEqual(t, rec.Coverage, 1.0)
		assert.Equal(t, len(names), 6-rec.MissingCount)
		assert.Len(t, rec.MissingIngredients, rec.MissingCount)
		assert.Equal(t, 6-rec.MissingCount, rec.haveCount)
	}
}
