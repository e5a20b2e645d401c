// Package recommend 實作個人化食譜排序：評分、排序備援與結果快取
package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Darkqurk/hankki1/internal/core/cache"
	"github.com/Darkqurk/hankki1/internal/core/ingredient"
	"github.com/Darkqurk/hankki1/internal/core/model"
	"github.com/Darkqurk/hankki1/internal/infrastructure/metrics"
	"github.com/Darkqurk/hankki1/internal/infrastructure/store"
	"github.com/Darkqurk/hankki1/internal/pkg/common"

	"go.uber.org/zap"
)

const (
	defaultTop      = 5
	defaultCacheTTL = 120 * time.Second
	historyListSize = 20
)

var defaultInvalidateTops = []int{3, 5, 10, 20}

// Options 服務設定，零值欄位使用預設
type Options struct {
	Weights        Weights
	Windows        Windows
	DefaultTop     int
	CacheTTL       time.Duration
	InvalidateTops []int
	Now            func() time.Time
}

// Service 推薦服務
type Service struct {
	store      Store
	cache      *ResultCache
	seeder     Seeder
	scorer     *Scorer
	windows    Windows
	defaultTop int
	now        func() time.Time
}

// NewService 建立推薦服務，seeder 可為 nil
func NewService(st Store, cacheStore cache.Store, seeder Seeder, opts Options) *Service {
	if opts.Weights.Version == "" {
		opts.Weights = DefaultWeights
	}
	if opts.Windows == (Windows{}) {
		opts.Windows = DefaultWindows
	}
	if opts.DefaultTop <= 0 {
		opts.DefaultTop = defaultTop
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	if len(opts.InvalidateTops) == 0 {
		opts.InvalidateTops = defaultInvalidateTops
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if cacheStore == nil {
		cacheStore = cache.NewNoop()
	}

	return &Service{
		store:      st,
		cache:      NewResultCache(cacheStore, opts.CacheTTL, opts.InvalidateTops),
		seeder:     seeder,
		scorer:     NewScorer(opts.Weights),
		windows:    opts.Windows,
		defaultTop: opts.DefaultTop,
		now:        opts.Now,
	}
}

// DefaultTop 未指定數量時使用的 top 值
func (s *Service) DefaultTop() int {
	return s.defaultTop
}

// Result 一次推薦請求的結果
type Result struct {
	Status Status
	// Payload 序列化後的 Envelope，快取命中時與前次完全相同
	Payload         []byte
	Recommendations []Recommendation
	CacheHit        bool
	Fingerprint     string
}

// GetRecommendations 取得使用者的推薦清單
//
// 先以冰箱摘要查快取；未命中時排序，目錄沒有可評分食譜時
// 嘗試補充一次。補充失敗的結果不寫入快取。
func (s *Service) GetRecommendations(ctx context.Context, userID uint, top int) (*Result, error) {
	start := time.Now()
	top = ClampTop(top)

	items, err := s.store.ListPantry(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load pantry: %w", err)
	}
	fp := Fingerprint(items)
	key := CacheKey(userID, top, fp)

	if data, ok := s.cache.Get(ctx, key); ok {
		var env Envelope
		if err := common.UnmarshalJSON(data, &env); err == nil {
			// 命中一律以 200 回應，payload 內的 status 保留產生時的來源
			return &Result{
				Status:          StatusCatalog,
				Payload:         data,
				Recommendations: env.Recommendations,
				CacheHit:        true,
				Fingerprint:     fp,
			}, nil
		}
		common.LogWarn("推薦快取內容無法解析", zap.String("key", key))
	}

	uc, err := s.buildContext(ctx, userID, items)
	if err != nil {
		return nil, err
	}
	recipes, err := s.store.ListRecipes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load recipes: %w", err)
	}

	out := s.scorer.Rank(recipes, uc, top)
	status := StatusCatalog
	if out.Candidates == 0 {
		if s.seed(ctx) {
			status = StatusSeeded
			if recipes, err = s.store.ListRecipes(ctx); err != nil {
				return nil, fmt.Errorf("reload recipes: %w", err)
			}
			out = s.scorer.Rank(recipes, uc, top)
		} else {
			status = StatusNoData
		}
	}

	payload, err := common.MarshalJSON(Envelope{Status: status, Recommendations: out.Recommendations})
	if err != nil {
		return nil, fmt.Errorf("encode recommendations: %w", err)
	}
	if status != StatusNoData {
		s.cache.Set(ctx, key, payload)
	}

	if ids := out.RealIDs(); len(ids) > 0 {
		s.recordHistory(ctx, userID, ids, map[string]any{
			"top":             top,
			"status":          string(status),
			"fingerprint":     fp,
			"candidates":      out.Candidates,
			"fallback":        out.Fallback,
			"weights_version": s.scorer.Weights().Version,
			"synonym_version": ingredient.SynonymVersion,
		})
	}

	elapsed := time.Since(start)
	metrics.RankingDuration.WithLabelValues(string(status)).Observe(elapsed.Seconds())
	metrics.RankedCandidates.Observe(float64(out.Candidates))
	if out.Fallback != "" {
		metrics.FallbackTotal.WithLabelValues(out.Fallback).Inc()
	}
	common.LogRanking(userID, string(status), len(out.Recommendations), elapsed)

	return &Result{
		Status:          status,
		Payload:         payload,
		Recommendations: out.Recommendations,
		Fingerprint:     fp,
	}, nil
}

func (s *Service) seed(ctx context.Context) bool {
	if s.seeder == nil {
		return false
	}
	return s.seeder.SeedIfEmpty(ctx)
}

// recordHistory 失敗只記錄日誌，不影響已產生的推薦
func (s *Service) recordHistory(ctx context.Context, userID uint, ids []uint, blob map[string]any) {
	h := &model.RecommendationHistory{
		UserID:    userID,
		Context:   blob,
		RecipeIDs: ids,
		CreatedAt: s.now(),
	}
	if err := s.store.CreateHistory(ctx, h); err != nil {
		common.LogError("寫入推薦紀錄失敗", zap.Uint("user_id", userID), zap.Error(err))
	}
}

// ScoreSingleRecipe 計算單一食譜分數
//
// excludeSaved 為 true 且食譜已收藏時視為查無資料。
func (s *Service) ScoreSingleRecipe(ctx context.Context, userID, recipeID uint, excludeSaved bool) (*Recommendation, error) {
	recipe, err := s.getRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}

	items, err := s.store.ListPantry(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load pantry: %w", err)
	}
	uc, err := s.buildContext(ctx, userID, items)
	if err != nil {
		return nil, err
	}
	if excludeSaved && uc.Saved.Has(recipe.ID) {
		return nil, common.ErrRecipeNotFound
	}

	rec := s.scorer.ScoreOrExplain(recipe, uc)
	return &rec, nil
}

func (s *Service) getRecipe(ctx context.Context, recipeID uint) (*model.Recipe, error) {
	recipe, err := s.store.GetRecipe(ctx, recipeID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, common.ErrRecipeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load recipe: %w", err)
	}
	return recipe, nil
}

// InvalidateUser 清除使用者目前冰箱摘要下的推薦快取
//
// 行為、收藏與自建食譜變動不會改變冰箱摘要，需主動清除。
func (s *Service) InvalidateUser(ctx context.Context, userID uint) {
	items, err := s.store.ListPantry(ctx, userID)
	if err != nil {
		common.LogWarn("清除快取時讀取冰箱失敗", zap.Uint("user_id", userID), zap.Error(err))
		return
	}
	s.cache.Invalidate(ctx, userID, Fingerprint(items))
}

// RecordAction 記錄 save、cook 或 skip
func (s *Service) RecordAction(ctx context.Context, userID, recipeID uint, action model.ActionType) error {
	if !action.Valid() {
		return common.ErrInvalidAction
	}
	if _, err := s.getRecipe(ctx, recipeID); err != nil {
		return err
	}

	err := s.store.CreateAction(ctx, &model.RecipeAction{
		UserID:    userID,
		RecipeID:  recipeID,
		Action:    action,
		CreatedAt: s.now(),
	})
	if err != nil {
		return fmt.Errorf("create action: %w", err)
	}

	s.InvalidateUser(ctx, userID)
	common.LogInfo("已記錄使用者行為",
		zap.Uint("user_id", userID),
		zap.Uint("recipe_id", recipeID),
		zap.String("action", string(action)),
	)
	return nil
}

// SaveRecipe 收藏食譜，重複收藏不視為錯誤
func (s *Service) SaveRecipe(ctx context.Context, userID, recipeID uint) error {
	if _, err := s.getRecipe(ctx, recipeID); err != nil {
		return err
	}
	err := s.store.SaveRecipe(ctx, &model.UserSavedRecipe{
		UserID:    userID,
		RecipeID:  recipeID,
		CreatedAt: s.now(),
	})
	if err != nil {
		return fmt.Errorf("save recipe: %w", err)
	}
	s.InvalidateUser(ctx, userID)
	return nil
}

// UnsaveRecipe 取消收藏，未收藏時不視為錯誤
func (s *Service) UnsaveRecipe(ctx context.Context, userID, recipeID uint) error {
	if err := s.store.UnsaveRecipe(ctx, userID, recipeID); err != nil {
		return fmt.Errorf("unsave recipe: %w", err)
	}
	s.InvalidateUser(ctx, userID)
	return nil
}

// SavedRecipes 收藏清單，新到舊
func (s *Service) SavedRecipes(ctx context.Context, userID uint) ([]model.UserSavedRecipe, error) {
	return s.store.ListSavedRecipes(ctx, userID)
}

// GetProfile 取得個人設定，不存在時以預設值建立
func (s *Service) GetProfile(ctx context.Context, userID uint) (*model.Profile, error) {
	return s.store.GetOrCreateProfile(ctx, userID)
}

// UpdateProfile 部分更新個人設定
func (s *Service) UpdateProfile(ctx context.Context, userID uint, req *common.ProfileUpdateRequest) (*model.Profile, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	p, err := s.store.GetOrCreateProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.DietType != nil {
		p.DietType = *req.DietType
	}
	if req.Allergies != nil {
		p.Allergies = req.Allergies
	}
	if req.SpiceLevel != nil {
		p.SpiceLevel = *req.SpiceLevel
	}
	if req.MaxCookTimeMin != nil {
		v := *req.MaxCookTimeMin
		p.MaxCookTimeMin = &v
	}
	if req.SkillLevel != nil {
		p.SkillLevel = *req.SkillLevel
	}
	if req.ServingsDefault != nil {
		p.ServingsDefault = *req.ServingsDefault
	}

	if err := s.store.SaveProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	// 偏好時間影響分數但不在冰箱摘要中
	s.InvalidateUser(ctx, userID)
	return p, nil
}

// History 最近的推薦紀錄
func (s *Service) History(ctx context.Context, userID uint) ([]model.RecommendationHistory, error) {
	return s.store.ListHistories(ctx, userID, time.Time{}, historyListSize)
}

// ConversionStats 推薦轉換統計
type ConversionStats struct {
	WindowDays       int     `json:"window_days"`
	RecommendedCount int     `json:"recommended_count"`
	ConvertedCount   int     `json:"converted_count"`
	ConversionRate   float64 `json:"conversion_rate"`
}

// Conversion 計算最近 days 天內被推薦過的食譜中有多少被 cook 或 save
//
// 時間窗以日為單位，從 days 天前的零點起算。
func (s *Service) Conversion(ctx context.Context, userID uint, days int) (*ConversionStats, error) {
	now := s.now()
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -days)

	histories, err := s.store.ListHistories(ctx, userID, cutoff, 0)
	if err != nil {
		return nil, fmt.Errorf("load histories: %w", err)
	}
	recommended := make(IDSet)
	for _, h := range histories {
		for _, id := range h.RecipeIDs {
			recommended[id] = struct{}{}
		}
	}

	stats := &ConversionStats{WindowDays: days, RecommendedCount: len(recommended)}
	if len(recommended) == 0 {
		return stats, nil
	}

	acted, err := s.store.ActionRecipeIDs(ctx, userID, convertedActions, cutoff)
	if err != nil {
		return nil, fmt.Errorf("load conversions: %w", err)
	}
	for _, id := range acted {
		if recommended.Has(id) {
			stats.ConvertedCount++
		}
	}
	stats.ConversionRate = common.Round(float64(stats.ConvertedCount)/float64(stats.RecommendedCount), 3)
	return stats, nil
}
