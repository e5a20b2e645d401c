package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Darkqurk/hankki1/internal/core/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Gorm 以 gorm 實作的資料存取
type Gorm struct {
	db *gorm.DB
}

// NewGorm 建立 gorm 資料存取
func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// Ping 確認資料庫連線
func (g *Gorm) Ping(ctx context.Context) error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// EnsureUser 依外部鍵取得或建立使用者與個人設定
func (g *Gorm) EnsureUser(ctx context.Context, externalKey, nickname string) (*model.User, error) {
	var user model.User
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(model.User{ExternalKey: externalKey}).
			Attrs(model.User{Nickname: nickname}).
			FirstOrCreate(&user).Error; err != nil {
			return err
		}
		profile := model.NewProfile(user.ID)
		return tx.Where(model.Profile{UserID: user.ID}).FirstOrCreate(profile).Error
	})
	if err != nil {
		return nil, fmt.Errorf("ensure user: %w", err)
	}
	return &user, nil
}

// GetUser 依 ID 取得使用者
func (g *Gorm) GetUser(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := g.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// GetOrCreateProfile 取得個人設定，不存在時以預設值建立
func (g *Gorm) GetOrCreateProfile(ctx context.Context, userID uint) (*model.Profile, error) {
	profile := model.NewProfile(userID)
	if err := g.db.WithContext(ctx).Where(model.Profile{UserID: userID}).FirstOrCreate(profile).Error; err != nil {
		return nil, err
	}
	return profile, nil
}

// SaveProfile 儲存個人設定
func (g *Gorm) SaveProfile(ctx context.Context, profile *model.Profile) error {
	return g.db.WithContext(ctx).Save(profile).Error
}

// GetOrCreateIngredient 依韓文名稱取得或建立食材
func (g *Gorm) GetOrCreateIngredient(ctx context.Context, nameKo string) (*model.Ingredient, error) {
	ing := model.Ingredient{NameKo: nameKo, Synonyms: []string{}, Category: model.CategoryEtc}
	if err := g.db.WithContext(ctx).Where(model.Ingredient{NameKo: nameKo}).FirstOrCreate(&ing).Error; err != nil {
		return nil, err
	}
	return &ing, nil
}

// ListPantry 依 ingredient_id 排序的冰箱食材
func (g *Gorm) ListPantry(ctx context.Context, userID uint) ([]model.PantryItem, error) {
	var items []model.PantryItem
	err := g.db.WithContext(ctx).
		Preload("Ingredient").
		Where("user_id = ?", userID).
		Order("ingredient_id ASC, id ASC").
		Find(&items).Error
	return items, err
}

// GetPantryItem 取得使用者的單一冰箱食材
func (g *Gorm) GetPantryItem(ctx context.Context, userID, itemID uint) (*model.PantryItem, error) {
	var item model.PantryItem
	err := g.db.WithContext(ctx).
		Preload("Ingredient").
		Where("user_id = ? AND id = ?", userID, itemID).
		First(&item).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

// UpsertPantryItem 依 (user, ingredient) 新增或更新
func (g *Gorm) UpsertPantryItem(ctx context.Context, item *model.PantryItem) (*model.PantryItem, error) {
	err := g.db.WithContext(ctx).
		Omit("Ingredient").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "ingredient_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity_text", "expires_at", "updated_at"}),
		}).
		Create(item).Error
	if err != nil {
		return nil, err
	}

	var stored model.PantryItem
	err = g.db.WithContext(ctx).
		Preload("Ingredient").
		Where("user_id = ? AND ingredient_id = ?", item.UserID, item.IngredientID).
		First(&stored).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &stored, nil
}

// SavePantryItem 更新既有冰箱食材
func (g *Gorm) SavePantryItem(ctx context.Context, item *model.PantryItem) error {
	res := g.db.WithContext(ctx).
		Model(&model.PantryItem{}).
		Where("id = ? AND user_id = ?", item.ID, item.UserID).
		Updates(map[string]interface{}{
			"quantity_text": item.QuantityText,
			"expires_at":    item.ExpiresAt,
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePantryItem 刪除冰箱食材，不存在時不視為錯誤
func (g *Gorm) DeletePantryItem(ctx context.Context, userID, itemID uint) error {
	return g.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, itemID).
		Delete(&model.PantryItem{}).Error
}

// recipeQuery 排序只需要食材；withSteps 用於詳細頁
func (g *Gorm) recipeQuery(ctx context.Context, withSteps bool) *gorm.DB {
	q := g.db.WithContext(ctx).
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Ingredients.Ingredient")
	if withSteps {
		q = q.Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("step_no ASC") })
	}
	return q
}

// ListRecipes 依 ID 排序的所有食譜，含食材，不含步驟
func (g *Gorm) ListRecipes(ctx context.Context) ([]model.Recipe, error) {
	var recipes []model.Recipe
	err := g.recipeQuery(ctx, false).Order("id ASC").Find(&recipes).Error
	return recipes, err
}

// GetRecipe 依 ID 取得食譜，含依 step_no 排序的步驟
func (g *Gorm) GetRecipe(ctx context.Context, id uint) (*model.Recipe, error) {
	var recipe model.Recipe
	if err := g.recipeQuery(ctx, true).First(&recipe, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &recipe, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// SearchRecipes 標題包含 query 的食譜，依 ID 排序
func (g *Gorm) SearchRecipes(ctx context.Context, query string, limit int) ([]model.Recipe, error) {
	q := g.db.WithContext(ctx).
		Where("title ILIKE ?", "%"+likeEscaper.Replace(query)+"%").
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var recipes []model.Recipe
	err := q.Find(&recipes).Error
	return recipes, err
}

// ListUserRecipes 使用者建立的食譜，新到舊
func (g *Gorm) ListUserRecipes(ctx context.Context, userID uint) ([]model.Recipe, error) {
	var recipes []model.Recipe
	err := g.recipeQuery(ctx, false).
		Where("author_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&recipes).Error
	return recipes, err
}

// DeleteUserRecipe 刪除使用者自己的食譜與其食材連結、步驟、收藏
func (g *Gorm) DeleteUserRecipe(ctx context.Context, userID, recipeID uint) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND author_id = ?", recipeID, userID).Delete(&model.Recipe{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		for _, child := range []interface{}{&model.RecipeIngredient{}, &model.RecipeStep{}, &model.UserSavedRecipe{}} {
			if err := tx.Where("recipe_id = ?", recipeID).Delete(child).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// FindRecipeByExternal 依外部來源與外部 ID 查詢
func (g *Gorm) FindRecipeByExternal(ctx context.Context, source, externalID string) (*model.Recipe, error) {
	var recipe model.Recipe
	err := g.db.WithContext(ctx).
		Where("external_source = ? AND external_id = ?", source, externalID).
		First(&recipe).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &recipe, nil
}

// CreateRecipe 在同一交易中建立食譜、食材連結與步驟
func (g *Gorm) CreateRecipe(ctx context.Context, recipe *model.Recipe) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		links := recipe.Ingredients
		steps := recipe.Steps

		if err := tx.Omit(clause.Associations).Create(recipe).Error; err != nil {
			return fmt.Errorf("create recipe: %w", err)
		}

		for i := range links {
			links[i].RecipeID = recipe.ID
			if links[i].IngredientID == 0 && links[i].Ingredient.NameKo != "" {
				ing := model.Ingredient{NameKo: links[i].Ingredient.NameKo, Synonyms: []string{}, Category: model.CategoryEtc}
				if err := tx.Where(model.Ingredient{NameKo: ing.NameKo}).FirstOrCreate(&ing).Error; err != nil {
					return fmt.Errorf("create ingredient: %w", err)
				}
				links[i].IngredientID = ing.ID
			}
		}
		if len(links) > 0 {
			if err := tx.Omit("Ingredient").Create(&links).Error; err != nil {
				return fmt.Errorf("create recipe ingredients: %w", err)
			}
		}

		for i := range steps {
			steps[i].RecipeID = recipe.ID
		}
		if len(steps) > 0 {
			if err := tx.Create(&steps).Error; err != nil {
				return fmt.Errorf("create recipe steps: %w", err)
			}
		}

		recipe.Ingredients = links
		recipe.Steps = steps
		return nil
	})
}

// UpdateRecipe 只更新指定欄位
func (g *Gorm) UpdateRecipe(ctx context.Context, recipe *model.Recipe, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	return g.db.WithContext(ctx).
		Model(&model.Recipe{ID: recipe.ID}).
		Select(fields).
		Updates(recipe).Error
}

// CreateAction 新增行為紀錄
func (g *Gorm) CreateAction(ctx context.Context, action *model.RecipeAction) error {
	return g.db.WithContext(ctx).Create(action).Error
}

// ActionRecipeIDs since 之後指定行為涉及的食譜 ID，不重複
func (g *Gorm) ActionRecipeIDs(ctx context.Context, userID uint, actions []model.ActionType, since time.Time) ([]uint, error) {
	var ids []uint
	err := g.db.WithContext(ctx).
		Model(&model.RecipeAction{}).
		Where("user_id = ? AND action IN ? AND created_at >= ?", userID, actions, since).
		Distinct("recipe_id").
		Pluck("recipe_id", &ids).Error
	return ids, err
}

// PopularRecipes since 之後各食譜有指定行為的不重複使用者數
func (g *Gorm) PopularRecipes(ctx context.Context, actions []model.ActionType, since time.Time) (map[uint]int, error) {
	var rows []struct {
		RecipeID uint
		Users    int
	}
	err := g.db.WithContext(ctx).
		Model(&model.RecipeAction{}).
		Select("recipe_id, COUNT(DISTINCT user_id) AS users").
		Where("action IN ? AND created_at >= ?", actions, since).
		Group("recipe_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[uint]int, len(rows))
	for _, r := range rows {
		out[r.RecipeID] = r.Users
	}
	return out, nil
}

// CreateHistory 新增推薦紀錄
func (g *Gorm) CreateHistory(ctx context.Context, history *model.RecommendationHistory) error {
	return g.db.WithContext(ctx).Create(history).Error
}

// ListHistories 新到舊；since 為零值時不限時間，limit <= 0 時不限筆數
func (g *Gorm) ListHistories(ctx context.Context, userID uint, since time.Time, limit int) ([]model.RecommendationHistory, error) {
	q := g.db.WithContext(ctx).Where("user_id = ?", userID)
	if !since.IsZero() {
		q = q.Where("created_at >= ?", since)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []model.RecommendationHistory
	err := q.Order("created_at DESC, id DESC").Find(&out).Error
	return out, err
}

// SaveRecipe 收藏食譜，已收藏時不變
func (g *Gorm) SaveRecipe(ctx context.Context, saved *model.UserSavedRecipe) error {
	return g.db.WithContext(ctx).
		Omit("Recipe").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "recipe_id"}},
			DoNothing: true,
		}).
		Create(saved).Error
}

// UnsaveRecipe 取消收藏，不存在時不視為錯誤
func (g *Gorm) UnsaveRecipe(ctx context.Context, userID, recipeID uint) error {
	return g.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Delete(&model.UserSavedRecipe{}).Error
}

// SavedRecipeIDs 使用者收藏的食譜 ID
func (g *Gorm) SavedRecipeIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := g.db.WithContext(ctx).
		Model(&model.UserSavedRecipe{}).
		Where("user_id = ?", userID).
		Pluck("recipe_id", &ids).Error
	return ids, err
}

// ListSavedRecipes 新到舊的收藏清單，含食譜
func (g *Gorm) ListSavedRecipes(ctx context.Context, userID uint) ([]model.UserSavedRecipe, error) {
	var out []model.UserSavedRecipe
	err := g.db.WithContext(ctx).
		Preload("Recipe").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

var _ Repository = (*Gorm)(nil)
