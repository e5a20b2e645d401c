package recommend

import (
	"context"
	"time"

	"github.com/Darkqurk/hankki1/internal/core/model"
)

// Store 推薦流程使用的資料查詢
type Store interface {
	ListRecipes(ctx context.Context) ([]model.Recipe, error)
	GetRecipe(ctx context.Context, id uint) (*model.Recipe, error)
	ListPantry(ctx context.Context, userID uint) ([]model.PantryItem, error)
	GetOrCreateProfile(ctx context.Context, userID uint) (*model.Profile, error)
	SaveProfile(ctx context.Context, profile *model.Profile) error

	CreateAction(ctx context.Context, action *model.RecipeAction) error
	ActionRecipeIDs(ctx context.Context, userID uint, actions []model.ActionType, since time.Time) ([]uint, error)
	PopularRecipes(ctx context.Context, actions []model.ActionType, since time.Time) (map[uint]int, error)
	CreateHistory(ctx context.Context, history *model.RecommendationHistory) error
	ListHistories(ctx context.Context, userID uint, since time.Time, limit int) ([]model.RecommendationHistory, error)

	SaveRecipe(ctx context.Context, saved *model.UserSavedRecipe) error
	UnsaveRecipe(ctx context.Context, userID, recipeID uint) error
	SavedRecipeIDs(ctx context.Context, userID uint) ([]uint, error)
	ListSavedRecipes(ctx context.Context, userID uint) ([]model.UserSavedRecipe, error)
}

// Seeder 目錄為空時向外部來源補充食譜，失敗只回傳 false
type Seeder interface {
	SeedIfEmpty(ctx context.Context) bool
}

var convertedActions = []model.ActionType{model.ActionCook, model.ActionSave}
