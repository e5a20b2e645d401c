package recommend

import (
	"context"
	"errors"
	"math"
	"net/http"
	"testing"
	"time"

	"github.com/Darkqurk/hankki1/internal/core/cache"
	"github.com/Darkqurk/hankki1/internal/core/ingredient"
	"github.com/Darkqurk/hankki1/internal/core/model"
	"github.com/Darkqurk/hankki1/internal/infrastructure/config"
	"github.com/Darkqurk/hankki1/internal/infrastructure/store"
	"github.com/Darkqurk/hankki1/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc    *Service
	mem    *store.Memory
	cache  *cache.CacheManager
	userID uint
	// 계란 + 소금
	eggRecipe uint
	// 김치 + 돼지 + 두부
	stewRecipe uint
}

type fakeSeeder struct {
	mem   *store.Memory
	ok    bool
	calls int
}

func (f *fakeSeeder) SeedIfEmpty(ctx context.Context) bool {
	f.calls++
	if !f.ok {
		return false
	}
	_ = f.mem.CreateRecipe(ctx, &model.Recipe{
		Title:          "계란국",
		ExternalSource: "foodsafety",
		ExternalID:     "1",
		Ingredients:    []model.RecipeIngredient{{Ingredient: model.Ingredient{NameKo: "계란"}}, {Ingredient: model.Ingredient{NameKo: "파"}}},
	})
	return true
}

func clock() time.Time { return today }

func newFixture(t *testing.T, seeder Seeder, withRecipes bool) *fixture {
	t.Helper()
	ctx := context.Background()

	mem := store.NewMemory().WithClock(clock)
	cm := cache.NewManager(&config.CacheConfig{Enabled: true, TTL: 2 * time.Minute, MaxSize: 100})
	t.Cleanup(func() { _ = cm.Close() })

	if fs, ok := seeder.(*fakeSeeder); ok {
		fs.mem = mem
	}

	user, err := mem.EnsureUser(ctx, "test_user_1", "test")
	require.NoError(t, err)

	egg, err := mem.GetOrCreateIngredient(ctx, "계란")
	require.NoError(t, err)
	_, err = mem.UpsertPantryItem(ctx, &model.PantryItem{UserID: user.ID, IngredientID: egg.ID, QuantityText: "6개", ExpiresAt: dayOffset(1)})
	require.NoError(t, err)

	f := &fixture{
		svc:    NewService(mem, cm, seeder, Options{Now: clock}),
		mem:    mem,
		cache:  cm,
		userID: user.ID,
	}
	if !withRecipes {
		return f
	}

	eggRecipe := &model.Recipe{
		Title: "계란말이",
		Ingredients: []model.RecipeIngredient{
			{Ingredient: model.Ingredient{NameKo: "계란"}},
			{Ingredient: model.Ingredient{NameKo: "소금"}},
		},
	}
	require.NoError(t, mem.CreateRecipe(ctx, eggRecipe))
	stew := &model.Recipe{
		Title: "김치찌개",
		Ingredients: []model.RecipeIngredient{
			{Ingredient: model.Ingredient{NameKo: "김치"}},
			{Ingredient: model.Ingredient{NameKo: "돼지"}},
			{Ingredient: model.Ingredient{NameKo: "두부"}},
		},
	}
	require.NoError(t, mem.CreateRecipe(ctx, stew))
	optionalOnly := &model.Recipe{
		Title:       "양념장",
		Ingredients: []model.RecipeIngredient{{Ingredient: model.Ingredient{NameKo: "참기름"}, IsOptional: true}},
	}
	require.NoError(t, mem.CreateRecipe(ctx, optionalOnly))

	f.eggRecipe = eggRecipe.ID
	f.stewRecipe = stew.ID
	return f
}

func findRecipe(t *testing.T, recs []Recommendation, id uint) Recommendation {
	t.Helper()
	for _, r := range recs {
		if r.RecipeID == id {
			return r
		}
	}
	require.Failf(t, "recipe not in result", "recipe %d", id)
	return Recommendation{}
}

func TestGetRecommendationsEndToEnd(t *testing.T) {
	f := newFixture(t, nil, true)
	ctx := context.Background()

	res, err := f.svc.GetRecommendations(ctx, f.userID, 5)
	require.NoError(t, err)
	assert.Equal(t, StatusCatalog, res.Status)
	assert.Equal(t, http.StatusOK, res.Status.HTTPStatus())
	assert.False(t, res.CacheHit)

	// 김치찌개 沒有任何冰箱食材，不在主要清單
	require.Len(t, res.Recommendations, 1)
	rec := res.Recommendations[0]
	assert.Equal(t, f.eggRecipe, rec.RecipeID)
	assert.Equal(t, 0.5, rec.Coverage)
	assert.Equal(t, 1, rec.MissingCount)
	assert.InDelta(t, 0.475, rec.Score, 1e-9)
	assert.InDelta(t, 0.25, rec.Debug.BonusExpiry, 1e-9)

	histories, err := f.mem.ListHistories(ctx, f.userID, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, histories, 1)
	assert.Equal(t, []uint{f.eggRecipe}, histories[0].RecipeIDs)
	assert.Equal(t, "catalog", histories[0].Context["status"])
	assert.Equal(t, res.Fingerprint, histories[0].Context["fingerprint"])
	assert.Equal(t, ingredient.SynonymVersion, histories[0].Context["synonym_version"])
	assert.Equal(t, DefaultWeights.Version, histories[0].Context["weights_version"])
}

func TestGetRecommendationsClampsTop(t *testing.T) {
	f := newFixture(t, nil, true)
	ctx := context.Background()

	for _, top := range []int{math.MaxInt, 1_000_000_000, MaxTop + 1, 0, -3, math.MinInt} {
		res, err := f.svc.GetRecommendations(ctx, f.userID, top)
		require.NoError(t, err, "top=%d", top)
		assert.Len(t, res.Recommendations, 1, "top=%d", top)
	}

	histories, err := f.mem.ListHistories(ctx, f.userID, time.Time{}, 0)
	require.NoError(t, err)
	// 夾限後只有 MaxTop 與 1 兩個快取鍵
	require.Len(t, histories, 2)
	tops := []any{histories[0].Context["top"], histories[1].Context["top"]}
	assert.ElementsMatch(t, []any{MaxTop, 1}, tops)
}

func TestGetRecommendationsServesCachedPayload(t *testing.T) {
	f := newFixture(t, nil, true)
	ctx := context.Background()

	first, err := f.svc.GetRecommendations(ctx, f.userID, 5)
	require.NoError(t, err)
	second, err := f.svc.GetRecommendations(ctx, f.userID, 5)
	require.NoError(t, err)

	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Payload, second.Payload)
	assert.Equal(t, first.Status, second.Status)

	// 快取命中不寫推薦紀錄
	histories, err := f.mem.ListHistories(ctx, f.userID, time.Time{}, 0)
	require.NoError(t, err)
	assert.Len(t, histories, 1)

	// 不同 top 使用不同的鍵
	third, err := f.svc.GetRecommendations(ctx, f.userID, 3)
	require.NoError(t, err)
	assert.False(t, third.CacheHit)
}

func TestGetRecommendationsPantryChangeMissesCache(t *testing.T) {
	f := newFixture(t, nil, true)
	ctx := context.Background()

	first, err := f.svc.GetRecommendations(ctx, f.userID, 5)
	require.NoError(t, err)

	salt, err := f.mem.GetOrCreateIngredient(ctx, "소금")
	require.NoError(t, err)
	_, err = f.mem.UpsertPantryItem(ctx, &model.PantryItem{UserID: f.userID, IngredientID: salt.ID})
	require.NoError(t, err)

	second, err := f.svc.GetRecommendations(ctx, f.userID, 5)
	require.NoError(t, err)
	assert.False(t, second.CacheHit)
	assert.NotEqual(t, first.Fingerprint, second.Fingerprint)
	assert.Equal(t, 1.0, findRecipe(t, second.Recommendations, f.eggRecipe).Coverage)
}

func TestSkipInvalidatesAndPenalizes(t *testing.T) {
	f := newFixture(t, nil, true)
	ctx := context.Background()

	_, err := f.svc.GetRecommendations(ctx, f.userID, 10)
	require.NoError(t, err)

	before, err := f.svc.ScoreSingleRecipe(ctx, f.userID, f.eggRecipe, false)
	require.NoError(t, err)

	require.NoError(t, f.svc.RecordAction(ctx, f.userID, f.eggRecipe, model.ActionSkip))

	after, err := f.svc.GetRecommendations(ctx, f.userID, 10)
	require.NoError(t, err)
	assert.False(t, after.CacheHit)

	rec := findRecipe(t, after.Recommendations, f.eggRecipe)
	assert.InDelta(t, before.Score-0.40, rec.Score, 1e-9)
	assert.InDelta(t, -0.40, rec.Debug.PenaltyRecentSkipped, 1e-9)
}

func TestSaveExcludesAndUnsaveRestores(t *testing.T) {
	f := newFixture(t, nil, true)
	ctx := context.Background()

	_, err := f.svc.GetRecommendations(ctx, f.userID, 5)
	require.NoError(t, err)

	require.NoError(t, f.svc.SaveRecipe(ctx, f.userID, f.eggRecipe))
	require.NoError(t, f.svc.SaveRecipe(ctx, f.userID, f.eggRecipe))

	saved, err := f.svc.GetRecommendations(ctx, f.userID, 5)
	require.NoError(t, err)
	assert.False(t, saved.CacheHit)
	assert.Equal(t, StatusCatalog, saved.Status)
	require.Len(t, saved.Recommendations, 1)
	assert.True(t, saved.Recommendations[0].IsSentinel())

	list, err := f.svc.SavedRecipes(ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, f.eggRecipe, list[0].RecipeID)

	require.NoError(t, f.svc.UnsaveRecipe(ctx, f.userID, f.eggRecipe))
	restored, err := f.svc.GetRecommendations(ctx, f.userID, 5)
	require.NoError(t, err)
	assert.False(t, restored.CacheHit)
	findRecipe(t, restored.Recommendations, f.eggRecipe)
}

func TestSaveUnknownRecipe(t *testing.T) {
	f := newFixture(t, nil, true)

	err := f.svc.SaveRecipe(context.Background(), f.userID, 9999)
	assert.ErrorIs(t, err, common.ErrRecipeNotFound)
}

func TestRecordActionValidation(t *testing.T) {
	f := newFixture(t, nil, true)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.RecordAction(ctx, f.userID, f.eggRecipe, "like"), common.ErrInvalidAction)
	assert.ErrorIs(t, f.svc.RecordAction(ctx, f.userID, 9999, model.ActionCook), common.ErrRecipeNotFound)
}

func TestSeedingStatuses(t *testing.T) {
	ctx := context.Background()

	t.Run("seed succeeds", func(t *testing.T) {
		seeder := &fakeSeeder{ok: true}
		f := newFixture(t, seeder, false)

		res, err := f.svc.GetRecommendations(ctx, f.userID, 5)
		require.NoError(t, err)
		assert.Equal(t, 1, seeder.calls)
		assert.Equal(t, StatusSeeded, res.Status)
		assert.Equal(t, http.StatusCreated, res.Status.HTTPStatus())
		require.Len(t, res.Recommendations, 1)
		assert.Equal(t, "계란국", res.Recommendations[0].Title)

		cached, err := f.svc.GetRecommendations(ctx, f.userID, 5)
		require.NoError(t, err)
		assert.True(t, cached.CacheHit)
		assert.Equal(t, StatusCatalog, cached.Status)
		assert.Equal(t, http.StatusOK, cached.Status.HTTPStatus())
		assert.Equal(t, res.Payload, cached.Payload)
		assert.Equal(t, 1, seeder.calls)
	})

	t.Run("seed fails", func(t *testing.T) {
		seeder := &fakeSeeder{ok: false}
		f := newFixture(t, seeder, false)

		res, err := f.svc.GetRecommendations(ctx, f.userID, 5)
		require.NoError(t, err)
		assert.Equal(t, StatusNoData, res.Status)
		assert.Equal(t, http.StatusServiceUnavailable, res.Status.HTTPStatus())
		require.Len(t, res.Recommendations, 1)
		assert.True(t, res.Recommendations[0].IsSentinel())

		again, err := f.svc.GetRecommendations(ctx, f.userID, 5)
		require.NoError(t, err)
		assert.False(t, again.CacheHit)
		assert.Equal(t, 2, seeder.calls)

		histories, err := f.mem.ListHistories(ctx, f.userID, time.Time{}, 0)
		require.NoError(t, err)
		assert.Empty(t, histories)
	})

	t.Run("no seeder", func(t *testing.T) {
		f := newFixture(t, nil, false)

		res, err := f.svc.GetRecommendations(ctx, f.userID, 5)
		require.NoError(t, err)
		assert.Equal(t, StatusNoData, res.Status)
	})

	t.Run("catalog without qualifying recipes does not seed", func(t *testing.T) {
		seeder := &fakeSeeder{ok: true}
		f := newFixture(t, seeder, true)
		require.NoError(t, f.svc.SaveRecipe(ctx, f.userID, f.eggRecipe))

		res, err := f.svc.GetRecommendations(ctx, f.userID, 5)
		require.NoError(t, err)
		assert.Zero(t, seeder.calls)
		assert.Equal(t, StatusCatalog, res.Status)
		assert.True(t, res.Recommendations[0].IsSentinel())
	})
}

func TestScoreSingleRecipe(t *testing.T) {
	f := newFixture(t, nil, true)
	ctx := context.Background()

	_, err := f.svc.ScoreSingleRecipe(ctx, f.userID, 9999, false)
	assert.ErrorIs(t, err, common.ErrRecipeNotFound)

	rec, err := f.svc.ScoreSingleRecipe(ctx, f.userID, f.eggRecipe, false)
	require.NoError(t, err)
	assert.InDelta(t, 0.475, rec.Score, 1e-9)

	recipes, err := f.mem.ListRecipes(ctx)
	require.NoError(t, err)
	optionalOnly := recipes[len(recipes)-1]
	rec, err = f.svc.ScoreSingleRecipe(ctx, f.userID, optionalOnly.ID, false)
	require.NoError(t, err)
	assert.Zero(t, rec.Score)
	assert.Equal(t, []string{ReasonNoRequired}, rec.Reasons)

	require.NoError(t, f.svc.SaveRecipe(ctx, f.userID, f.eggRecipe))
	rec, err = f.svc.ScoreSingleRecipe(ctx, f.userID, f.eggRecipe, false)
	require.NoError(t, err)
	assert.True(t, rec.Saved)

	_, err = f.svc.ScoreSingleRecipe(ctx, f.userID, f.eggRecipe, true)
	assert.ErrorIs(t, err, common.ErrRecipeNotFound)
}

func TestUpdateProfileInvalidates(t *testing.T) {
	f := newFixture(t, nil, true)
	ctx := context.Background()

	_, err := f.svc.GetRecommendations(ctx, f.userID, 5)
	require.NoError(t, err)

	maxTime := 10
	p, err := f.svc.UpdateProfile(ctx, f.userID, &common.ProfileUpdateRequest{MaxCookTimeMin: &maxTime})
	require.NoError(t, err)
	assert.Equal(t, 10, *p.MaxCookTimeMin)
	assert.Equal(t, model.DefaultSkillLevel, p.SkillLevel)

	res, err := f.svc.GetRecommendations(ctx, f.userID, 5)
	require.NoError(t, err)
	assert.False(t, res.CacheHit)

	bad := "EXPERT"
	_, err = f.svc.UpdateProfile(ctx, f.userID, &common.ProfileUpdateRequest{SkillLevel: &bad})
	assert.True(t, common.IsValidationError(err))
}

func TestHistoryAndConversion(t *testing.T) {
	f := newFixture(t, nil, true)
	ctx := context.Background()

	stats, err := f.svc.Conversion(ctx, f.userID, 7)
	require.NoError(t, err)
	assert.Equal(t, &ConversionStats{WindowDays: 7}, stats)

	_, err = f.svc.GetRecommendations(ctx, f.userID, 5)
	require.NoError(t, err)
	require.NoError(t, f.mem.CreateHistory(ctx, &model.RecommendationHistory{
		UserID:    f.userID,
		RecipeIDs: []uint{f.stewRecipe, f.eggRecipe},
		CreatedAt: today.Add(-time.Hour),
	}))
	require.NoError(t, f.svc.RecordAction(ctx, f.userID, f.eggRecipe, model.ActionCook))

	stats, err = f.svc.Conversion(ctx, f.userID, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.RecommendedCount)
	assert.Equal(t, 1, stats.ConvertedCount)
	assert.Equal(t, 0.5, stats.ConversionRate)

	histories, err := f.svc.History(ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, histories, 2)
	assert.True(t, !histories[0].CreatedAt.Before(histories[1].CreatedAt))
}

// failingCache 模擬快取後端故障
type failingCache struct{}

var errBackend = errors.New("backend down")

func (failingCache) Get(context.Context, string) ([]byte, error)              { return nil, errBackend }
func (failingCache) Set(context.Context, string, []byte, time.Duration) error { return errBackend }
func (failingCache) Delete(context.Context, ...string) error                  { return errBackend }
func (failingCache) Backend() string                                          { return "failing" }
func (failingCache) Close() error                                             { return nil }

func TestCacheFailureBehavesAsMiss(t *testing.T) {
	f := newFixture(t, nil, true)
	svc := NewService(f.mem, failingCache{}, nil, Options{Now: clock})
	ctx := context.Background()

	res, err := svc.GetRecommendations(ctx, f.userID, 5)
	require.NoError(t, err)
	assert.False(t, res.CacheHit)
	assert.Equal(t, StatusCatalog, res.Status)

	require.NoError(t, svc.RecordAction(ctx, f.userID, f.eggRecipe, model.ActionSave))
}
