package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Darkqurk/hankki1/internal/core/cache"
	"github.com/Darkqurk/hankki1/internal/core/model"
	"github.com/Darkqurk/hankki1/internal/core/pantry"
	"github.com/Darkqurk/hankki1/internal/core/recipe"
	"github.com/Darkqurk/hankki1/internal/core/recommend"
	"github.com/Darkqurk/hankki1/internal/infrastructure/config"
	"github.com/Darkqurk/hankki1/internal/infrastructure/store"
	"github.com/Darkqurk/hankki1/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Debug: true, Version: "test", Env: "test"},
		Server: config.ServerConfig{
			RequestTimeout: 5 * time.Second,
			MaxBodyBytes:   1 << 20,
			AllowOrigins:   []string{"*"},
		},
		Database:    config.DatabaseConfig{Driver: "memory"},
		Cache:       config.CacheConfig{Enabled: true, Backend: "memory", MaxSize: 100, TTL: time.Minute},
		Recommend:   config.RecommendConfig{DefaultTop: 5},
		DedupWindow: time.Second,
	}
}

type testServer struct {
	router *gin.Engine
	mem    *store.Memory
}

func newTestServer(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mem := store.NewMemory()
	cm := cache.NewManager(&cfg.Cache)
	t.Cleanup(func() { _ = cm.Close() })

	reco := recommend.NewService(mem, cm, nil, recommend.Options{DefaultTop: cfg.Recommend.DefaultTop})
	router := SetupRouter(cfg, Dependencies{
		Store:        mem,
		Recommend:    reco,
		Pantry:       pantry.NewService(mem),
		Recipe:       recipe.NewService(mem, reco),
		CacheBackend: cm.Backend(),
	})
	return &testServer{router: router, mem: mem}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) addRecipe(t *testing.T, title string, names ...string) uint {
	t.Helper()
	r := &model.Recipe{Title: title}
	for _, n := range names {
		r.Ingredients = append(r.Ingredients, model.RecipeIngredient{Ingredient: model.Ingredient{NameKo: n}})
	}
	require.NoError(t, s.mem.CreateRecipe(context.Background(), r))
	return r.ID
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, common.UnmarshalJSON(w.Body.Bytes(), v))
}

func TestOpsRoutes(t *testing.T) {
	s := newTestServer(t, testConfig())

	for _, path := range []string{"/health", "/ready", "/live", "/metrics"} {
		assert.Equal(t, http.StatusOK, s.do(http.MethodGet, path, "").Code, path)
	}
}

func TestRecommendationFlow(t *testing.T) {
	s := newTestServer(t, testConfig())
	eggID := s.addRecipe(t, "계란말이", "계란", "소금")
	s.addRecipe(t, "김치찌개", "김치", "돼지고기", "두부")

	tomorrow := time.Now().AddDate(0, 0, 1).Format(common.DateLayout)
	w := s.do(http.MethodPost, "/api/v1/pantry", fmt.Sprintf(`{"ingredient_name":"계란","quantity_text":"6개","expires_at":%q}`, tomorrow))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	first := s.do(http.MethodGet, "/api/v1/recommendations?top=3", "")
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	var env recommend.Envelope
	decode(t, first, &env)
	assert.Equal(t, recommend.StatusCatalog, env.Status)
	require.Len(t, env.Recommendations, 1)
	assert.Equal(t, eggID, env.Recommendations[0].RecipeID)
	assert.Equal(t, []string{"소금"}, env.Recommendations[0].MissingIngredients)

	second := s.do(http.MethodGet, "/api/v1/recommendations?top=3", "")
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())

	w = s.do(http.MethodPost, "/api/v1/actions", fmt.Sprintf(`{"recipe_id":%d,"action":"skip"}`, eggID))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	third := s.do(http.MethodGet, "/api/v1/recommendations?top=3", "")
	assert.Equal(t, "MISS", third.Header().Get("X-Cache"))
	var after recommend.Envelope
	decode(t, third, &after)
	require.Len(t, after.Recommendations, 1)
	assert.Less(t, after.Recommendations[0].Score, env.Recommendations[0].Score)

	history := s.do(http.MethodGet, "/api/v1/recommendations/history", "")
	require.Equal(t, http.StatusOK, history.Code)
	var histories []model.RecommendationHistory
	decode(t, history, &histories)
	assert.Len(t, histories, 2)

	conv := s.do(http.MethodGet, "/api/v1/recommendations/conversion?days=7", "")
	require.Equal(t, http.StatusOK, conv.Code)
	var stats recommend.ConversionStats
	decode(t, conv, &stats)
	assert.Equal(t, 7, stats.WindowDays)
	assert.Equal(t, 1, stats.RecommendedCount)
	assert.Equal(t, 0, stats.ConvertedCount)
}

func TestNoDataReturns503(t *testing.T) {
	s := newTestServer(t, testConfig())

	w := s.do(http.MethodGet, "/api/v1/recommendations", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var env recommend.Envelope
	decode(t, w, &env)
	assert.Equal(t, recommend.StatusNoData, env.Status)
	require.Len(t, env.Recommendations, 1)
	assert.True(t, env.Recommendations[0].IsSentinel())
}

func TestRecommendationTopParam(t *testing.T) {
	s := newTestServer(t, testConfig())
	for i := 0; i < 7; i++ {
		s.addRecipe(t, fmt.Sprintf("계란 요리 %d", i), "계란")
	}
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/v1/pantry", `{"ingredient_name":"계란"}`).Code)

	tests := []struct {
		query string
		want  int
	}{
		{"", 5},
		{"?top=abc", 5},
		{"?top=0", 1},
		{"?top=-3", 1},
		{"?top=2", 2},
		{"?top=99999999999999", 7},
		{fmt.Sprintf("?top=%d", recommend.MaxTop+1), 7},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := s.do(http.MethodGet, "/api/v1/recommendations"+tt.query, "")
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			var env recommend.Envelope
			decode(t, w, &env)
			assert.Len(t, env.Recommendations, tt.want)
		})
	}
}

func TestRecipeRoutes(t *testing.T) {
	s := newTestServer(t, testConfig())
	catalogID := s.addRecipe(t, "김치찌개", "김치", "두부")

	body := `{"title":"간장 계란밥","cook_time_min":5,` +
		`"ingredients":[{"name":"밥"},{"name":"계란","amount_text":"1개"}],` +
		`"steps":["계란을 굽는다.","밥에 올린다."]}`
	w := s.do(http.MethodPost, "/api/v1/recipes/mine", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created model.Recipe
	decode(t, w, &created)
	assert.Equal(t, model.SourceUser, created.Source)
	require.Len(t, created.Steps, 2)

	w = s.do(http.MethodGet, fmt.Sprintf("/api/v1/recipes/%d", created.ID), "")
	require.Equal(t, http.StatusOK, w.Code)
	var detail model.Recipe
	decode(t, w, &detail)
	assert.Equal(t, "간장 계란밥", detail.Title)
	require.Len(t, detail.Ingredients, 2)
	require.Len(t, detail.Steps, 2)
	assert.Equal(t, 1, detail.Steps[0].StepNo)
	assert.Equal(t, "계란을 굽는다.", detail.Steps[0].Description)

	w = s.do(http.MethodGet, "/api/v1/recipes/search?q="+url.QueryEscape("계란"), "")
	require.Equal(t, http.StatusOK, w.Code)
	var found []recipe.Summary
	decode(t, w, &found)
	require.Len(t, found, 1)
	assert.Equal(t, created.ID, found[0].ID)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/recipes/search", "").Code)

	var mine []model.Recipe
	decode(t, s.do(http.MethodGet, "/api/v1/recipes/mine", ""), &mine)
	assert.Len(t, mine, 1)
	decode(t, s.do(http.MethodGet, "/api/v1/recipes/mine?demo_user=2", ""), &mine)
	assert.Empty(t, mine)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/v1/recipes/mine", `{"title":"x","ingredients":[{"name":"a"}],"image":"x.png"}`).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/v1/recipes/mine", `{"title":"재료 없음"}`).Code)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, fmt.Sprintf("/api/v1/recipes/mine/%d", catalogID), "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, fmt.Sprintf("/api/v1/recipes/mine/%d?demo_user=2", created.ID), "").Code)
	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, fmt.Sprintf("/api/v1/recipes/mine/%d", created.ID), "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, fmt.Sprintf("/api/v1/recipes/%d", created.ID), "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/recipes/abc", "").Code)
}

func TestScoreRoute(t *testing.T) {
	s := newTestServer(t, testConfig())
	id := s.addRecipe(t, "계란말이", "계란", "소금")

	w := s.do(http.MethodGet, fmt.Sprintf("/api/v1/recipes/%d/score", id), "")
	require.Equal(t, http.StatusOK, w.Code)
	var rec recommend.Recommendation
	decode(t, w, &rec)
	assert.Equal(t, id, rec.RecipeID)
	assert.Equal(t, 2, rec.MissingCount)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/v1/recipes/999/score", "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/recipes/abc/score", "").Code)

	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/v1/saved", fmt.Sprintf(`{"recipe_id":%d}`, id)).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, fmt.Sprintf("/api/v1/recipes/%d/score?exclude_saved=1", id), "").Code)
}

func TestActionValidation(t *testing.T) {
	s := newTestServer(t, testConfig())
	id := s.addRecipe(t, "계란말이", "계란")

	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", `{`, http.StatusBadRequest},
		{"unknown field", fmt.Sprintf(`{"recipe_id":%d,"action":"cook","note":"x"}`, id), http.StatusBadRequest},
		{"trailing data", fmt.Sprintf(`{"recipe_id":%d,"action":"cook"} {}`, id), http.StatusBadRequest},
		{"missing recipe", `{"action":"cook"}`, http.StatusBadRequest},
		{"unknown action", fmt.Sprintf(`{"recipe_id":%d,"action":"eat"}`, id), http.StatusBadRequest},
		{"unknown recipe", `{"recipe_id":999,"action":"cook"}`, http.StatusNotFound},
		{"ok", fmt.Sprintf(`{"recipe_id":%d,"action":"cook"}`, id), http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.do(http.MethodPost, "/api/v1/actions", tt.body).Code)
		})
	}
}

func TestDuplicateActionRejected(t *testing.T) {
	s := newTestServer(t, testConfig())
	id := s.addRecipe(t, "계란말이", "계란")
	body := fmt.Sprintf(`{"recipe_id":%d,"action":"cook"}`, id)

	assert.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/v1/actions", body).Code)
	assert.Equal(t, http.StatusTooManyRequests, s.do(http.MethodPost, "/api/v1/actions", body).Code)
}

func TestSavedRoutes(t *testing.T) {
	s := newTestServer(t, testConfig())
	id := s.addRecipe(t, "계란말이", "계란")

	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/v1/saved", fmt.Sprintf(`{"recipe_id":%d}`, id)).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/v1/saved", `{}`).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/api/v1/saved", `{"recipe_id":999}`).Code)

	w := s.do(http.MethodGet, "/api/v1/saved", "")
	require.Equal(t, http.StatusOK, w.Code)
	var saved []model.UserSavedRecipe
	decode(t, w, &saved)
	require.Len(t, saved, 1)
	assert.Equal(t, id, saved[0].RecipeID)

	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, fmt.Sprintf("/api/v1/saved/%d", id), "").Code)
	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, fmt.Sprintf("/api/v1/saved/%d", id), "").Code)

	w = s.do(http.MethodGet, "/api/v1/saved", "")
	decode(t, w, &saved)
	assert.Empty(t, saved)
}

func TestProfileRoutes(t *testing.T) {
	s := newTestServer(t, testConfig())

	w := s.do(http.MethodGet, "/api/v1/profile", "")
	require.Equal(t, http.StatusOK, w.Code)
	var p model.Profile
	decode(t, w, &p)
	require.NotNil(t, p.MaxCookTimeMin)
	assert.Equal(t, model.DefaultMaxCookTimeMin, *p.MaxCookTimeMin)

	w = s.do(http.MethodPut, "/api/v1/profile", `{"max_cook_time_min":30,"diet_type":"VEGAN"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &p)
	assert.Equal(t, 30, *p.MaxCookTimeMin)
	assert.Equal(t, "VEGAN", p.DietType)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPut, "/api/v1/profile", `{"spice_level":9}`).Code)
}

func TestPantryRoutes(t *testing.T) {
	s := newTestServer(t, testConfig())

	w := s.do(http.MethodPost, "/api/v1/pantry", `{"ingredient_name":"두부","quantity_text":"1모","expires_at":"2026-10-20"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var item model.PantryItem
	decode(t, w, &item)
	assert.Equal(t, "두부", item.Ingredient.NameKo)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/v1/pantry", `{"ingredient_name":" "}`).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/v1/pantry", `{"ingredient_name":"두부","expires_at":"20/10/2026"}`).Code)

	w = s.do(http.MethodPatch, fmt.Sprintf("/api/v1/pantry/%d", item.ID), `{"clear_expiry":true,"quantity_text":"반 모"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &item)
	assert.Nil(t, item.ExpiresAt)
	assert.Equal(t, "반 모", item.QuantityText)

	w = s.do(http.MethodGet, "/api/v1/pantry", "")
	var items []model.PantryItem
	decode(t, w, &items)
	assert.Len(t, items, 1)

	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, fmt.Sprintf("/api/v1/pantry/%d", item.ID), "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, fmt.Sprintf("/api/v1/pantry/%d", item.ID), "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPatch, "/api/v1/pantry/999", `{}`).Code)
}

func TestDemoUsersAreIsolated(t *testing.T) {
	s := newTestServer(t, testConfig())

	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/v1/pantry?demo_user=2", `{"ingredient_name":"두부"}`).Code)

	var items []model.PantryItem
	decode(t, s.do(http.MethodGet, "/api/v1/pantry", ""), &items)
	assert.Empty(t, items)
	decode(t, s.do(http.MethodGet, "/api/v1/pantry?demo_user=2", ""), &items)
	assert.Len(t, items, 1)
}

func TestRateLimitedAPI(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, Requests: 2, Window: time.Minute}
	s := newTestServer(t, cfg)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/profile", "").Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/profile", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, s.do(http.MethodGet, "/api/v1/profile", "").Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health", "").Code, "ops routes are not limited")
}
