// Package recipe 提供食譜詳細頁、標題搜尋與使用者自建食譜
package recipe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Darkqurk/hankki1/internal/core/model"
	"github.com/Darkqurk/hankki1/internal/infrastructure/store"
	"github.com/Darkqurk/hankki1/internal/pkg/common"

	"go.uber.org/zap"
)

const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 50
)

// Store 食譜操作使用的資料存取
type Store interface {
	GetRecipe(ctx context.Context, id uint) (*model.Recipe, error)
	SearchRecipes(ctx context.Context, query string, limit int) ([]model.Recipe, error)
	ListUserRecipes(ctx context.Context, userID uint) ([]model.Recipe, error)
	CreateRecipe(ctx context.Context, recipe *model.Recipe) error
	DeleteUserRecipe(ctx context.Context, userID, recipeID uint) error
}

// Invalidator 目錄變動後清除使用者的推薦快取
type Invalidator interface {
	InvalidateUser(ctx context.Context, userID uint)
}

// Summary 搜尋結果列表項目
type Summary struct {
	ID          uint   `json:"id"`
	Title       string `json:"title"`
	Source      string `json:"source"`
	ImageURL    string `json:"image_url"`
	CookTimeMin *int   `json:"cook_time_min"`
}

// Service 食譜服務
type Service struct {
	store       Store
	invalidator Invalidator
	now         func() time.Time
}

// NewService 創建食譜服務，invalidator 可為 nil
func NewService(st Store, invalidator Invalidator) *Service {
	return &Service{store: st, invalidator: invalidator, now: time.Now}
}

// Detail 食譜詳細內容，步驟依 step_no 排序
func (s *Service) Detail(ctx context.Context, id uint) (*model.Recipe, error) {
	recipe, err := s.store.GetRecipe(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, common.ErrRecipeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load recipe: %w", err)
	}
	return recipe, nil
}

// Search 標題包含 query 的食譜
func (s *Service) Search(ctx context.Context, query string, limit int) ([]Summary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, common.NewValidationError("q 不能為空")
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	limit = min(limit, MaxSearchLimit)

	recipes, err := s.store.SearchRecipes(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search recipes: %w", err)
	}

	out := make([]Summary, 0, len(recipes))
	for _, r := range recipes {
		out = append(out, Summary{
			ID:          r.ID,
			Title:       r.Title,
			Source:      r.Source,
			ImageURL:    r.ImageURL,
			CookTimeMin: r.CookTimeMin,
		})
	}
	return out, nil
}

// Mine 使用者建立的食譜，新到舊
func (s *Service) Mine(ctx context.Context, userID uint) ([]model.Recipe, error) {
	return s.store.ListUserRecipes(ctx, userID)
}

// Create 建立使用者食譜，立即成為推薦目錄的一部分
func (s *Service) Create(ctx context.Context, userID uint, req *common.UserRecipeRequest) (*model.Recipe, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	author := userID
	r := &model.Recipe{
		Source:            model.SourceUser,
		Title:             req.Title,
		Summary:           req.Summary,
		CookTimeMin:       req.CookTimeMin,
		InstructionImages: []string{},
		AuthorID:          &author,
		CreatedAt:         s.now(),
	}
	for _, ing := range req.Ingredients {
		r.Ingredients = append(r.Ingredients, model.RecipeIngredient{
			Ingredient: model.Ingredient{NameKo: ing.Name},
			AmountText: ing.AmountText,
			IsOptional: ing.IsOptional,
		})
	}
	for i, step := range req.Steps {
		r.Steps = append(r.Steps, model.RecipeStep{StepNo: i + 1, Description: step})
	}

	if err := s.store.CreateRecipe(ctx, r); err != nil {
		return nil, fmt.Errorf("create recipe: %w", err)
	}
	s.invalidate(ctx, userID)

	common.LogInfo("已建立自建食譜",
		zap.Uint("user_id", userID),
		zap.Uint("recipe_id", r.ID),
		zap.Int("ingredients", len(r.Ingredients)),
	)
	return s.Detail(ctx, r.ID)
}

// Delete 刪除使用者自己的食譜，他人或目錄食譜視為不存在
func (s *Service) Delete(ctx context.Context, userID, recipeID uint) error {
	err := s.store.DeleteUserRecipe(ctx, userID, recipeID)
	if errors.Is(err, store.ErrNotFound) {
		return common.ErrRecipeNotFound
	}
	if err != nil {
		return fmt.Errorf("delete recipe: %w", err)
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *Service) invalidate(ctx context.Context, userID uint) {
	if s.invalidator != nil {
		s.invalidator.InvalidateUser(ctx, userID)
	}
}
