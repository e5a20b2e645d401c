package recommend

import (
	"context"
	"fmt"
	"time"

	"github.com/Darkqurk/hankki1/internal/core/ingredient"
	"github.com/Darkqurk/hankki1/internal/core/model"
	"github.com/Darkqurk/hankki1/internal/pkg/common"

	"go.uber.org/zap"
)

// buildContext 組裝一次排序所需的使用者資料
func (s *Service) buildContext(ctx context.Context, userID uint, items []model.PantryItem) (*UserContext, error) {
	now := s.now()

	pantryIDs := make([]uint, 0, len(items))
	entries := make([]ingredient.PantryEntry, 0, len(items))
	for _, it := range items {
		pantryIDs = append(pantryIDs, it.IngredientID)
		entries = append(entries, ingredient.PantryEntry{Name: it.Ingredient.NameKo, ExpiresAt: it.ExpiresAt})
	}
	names, expiry := ingredient.BuildPantryIndex(entries)

	profile, err := s.store.GetOrCreateProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	savedIDs, err := s.store.SavedRecipeIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load saved recipes: %w", err)
	}

	behaviorCutoff := now.Add(-s.windows.Behavior)
	cookedSaved, err := s.store.ActionRecipeIDs(ctx, userID, convertedActions, behaviorCutoff)
	if err != nil {
		return nil, fmt.Errorf("load recent actions: %w", err)
	}
	skipped, err := s.store.ActionRecipeIDs(ctx, userID, []model.ActionType{model.ActionSkip}, behaviorCutoff)
	if err != nil {
		return nil, fmt.Errorf("load recent skips: %w", err)
	}

	// 冷卻：最近 N 次推薦，不限時間
	recent, err := s.store.ListHistories(ctx, userID, time.Time{}, s.windows.CooldownHistories)
	if err != nil {
		return nil, fmt.Errorf("load recent histories: %w", err)
	}
	recentRecommended := make(IDSet)
	for _, h := range recent {
		for _, id := range h.RecipeIDs {
			recentRecommended[id] = struct{}{}
		}
	}

	conversionCutoff := now.Add(-s.windows.Conversion)
	exposed, err := s.store.ListHistories(ctx, userID, conversionCutoff, s.windows.ExposureHistories)
	if err != nil {
		return nil, fmt.Errorf("load exposure histories: %w", err)
	}
	exposure := make(map[uint]int)
	for _, h := range exposed {
		for _, id := range h.RecipeIDs {
			exposure[id]++
		}
	}
	converted, err := s.store.ActionRecipeIDs(ctx, userID, convertedActions, conversionCutoff)
	if err != nil {
		return nil, fmt.Errorf("load conversions: %w", err)
	}

	popularity, err := s.store.PopularRecipes(ctx, convertedActions, now.Add(-s.windows.Popularity))
	if err != nil {
		return nil, fmt.Errorf("load popularity: %w", err)
	}

	uc := &UserContext{
		UserID:            userID,
		Today:             now,
		PantryIDs:         NewIDSet(pantryIDs...),
		Matcher:           ingredient.NewMatcher(names),
		Expiry:            expiry,
		MaxCookTime:       profile.MaxCookTimeMin,
		Saved:             NewIDSet(savedIDs...),
		RecentCookedSaved: NewIDSet(cookedSaved...),
		RecentSkipped:     NewIDSet(skipped...),
		RecentRecommended: recentRecommended,
		Converted:         NewIDSet(converted...),
		Exposure:          exposure,
		Popularity:        popularity,
		HistoryCount:      len(exposed),
	}

	common.LogDebug("使用者上下文",
		zap.Uint("user_id", userID),
		zap.Int("pantry", len(items)),
		zap.Int("saved", len(uc.Saved)),
		zap.Int("cooked_saved", len(uc.RecentCookedSaved)),
		zap.Int("skipped", len(uc.RecentSkipped)),
		zap.Int("converted", len(uc.Converted)),
		zap.Int("cooldown", len(uc.RecentRecommended)),
		zap.Int("histories", uc.HistoryCount),
	)
	return uc, nil
}
