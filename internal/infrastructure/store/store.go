// Package store 提供推薦引擎使用的資料存取層
package store

import (
	"context"
	"errors"
	"time"

	"github.com/Darkqurk/hankki1/internal/core/model"
)

// ErrNotFound 查無資料
var ErrNotFound = errors.New("record not found")

// Repository 完整的資料存取介面，Gorm 與 Memory 皆實作
type Repository interface {
	Ping(ctx context.Context) error

	// 使用者
	EnsureUser(ctx context.Context, externalKey, nickname string) (*model.User, error)
	GetUser(ctx context.Context, id uint) (*model.User, error)
	GetOrCreateProfile(ctx context.Context, userID uint) (*model.Profile, error)
	SaveProfile(ctx context.Context, profile *model.Profile) error

	// 食材與冰箱
	GetOrCreateIngredient(ctx context.Context, nameKo string) (*model.Ingredient, error)
	ListPantry(ctx context.Context, userID uint) ([]model.PantryItem, error)
	GetPantryItem(ctx context.Context, userID, itemID uint) (*model.PantryItem, error)
	UpsertPantryItem(ctx context.Context, item *model.PantryItem) (*model.PantryItem, error)
	SavePantryItem(ctx context.Context, item *model.PantryItem) error
	DeletePantryItem(ctx context.Context, userID, itemID uint) error

	// 食譜
	ListRecipes(ctx context.Context) ([]model.Recipe, error)
	GetRecipe(ctx context.Context, id uint) (*model.Recipe, error)
	SearchRecipes(ctx context.Context, query string, limit int) ([]model.Recipe, error)
	ListUserRecipes(ctx context.Context, userID uint) ([]model.Recipe, error)
	DeleteUserRecipe(ctx context.Context, userID, recipeID uint) error
	FindRecipeByExternal(ctx context.Context, source, externalID string) (*model.Recipe, error)
	CreateRecipe(ctx context.Context, recipe *model.Recipe) error
	UpdateRecipe(ctx context.Context, recipe *model.Recipe, fields ...string) error

	// 行為與推薦紀錄
	CreateAction(ctx context.Context, action *model.RecipeAction) error
	ActionRecipeIDs(ctx context.Context, userID uint, actions []model.ActionType, since time.Time) ([]uint, error)
	PopularRecipes(ctx context.Context, actions []model.ActionType, since time.Time) (map[uint]int, error)
	CreateHistory(ctx context.Context, history *model.RecommendationHistory) error
	ListHistories(ctx context.Context, userID uint, since time.Time, limit int) ([]model.RecommendationHistory, error)

	// 收藏
	SaveRecipe(ctx context.Context, saved *model.UserSavedRecipe) error
	UnsaveRecipe(ctx context.Context, userID, recipeID uint) error
	SavedRecipeIDs(ctx context.Context, userID uint) ([]uint, error)
	ListSavedRecipes(ctx context.Context, userID uint) ([]model.UserSavedRecipe, error)
}

// 可更新的食譜欄位
const (
	FieldImageURL          = "image_url"
	FieldImageURLSmall     = "image_url_small"
	FieldInstructionImages = "instruction_images"
	FieldRawIngredients    = "raw_ingredients"
)
