// Package model 定義推薦引擎使用的持久化實體
package model

import (
	"time"
)

// ActionType 使用者對食譜的行為
type ActionType string

const (
	ActionSave ActionType = "save"
	ActionCook ActionType = "cook"
	ActionSkip ActionType = "skip"
)

// Valid 檢查行為類型
func (a ActionType) Valid() bool {
	switch a {
	case ActionSave, ActionCook, ActionSkip:
		return true
	}
	return false
}

// Converted cook 與 save 視為轉換
func (a ActionType) Converted() bool {
	return a == ActionSave || a == ActionCook
}

// 個人設定預設值
const (
	DefaultDietType       = "NONE"
	DefaultSpiceLevel     = 0
	DefaultMaxCookTimeMin = 20
	DefaultSkillLevel     = "BEGINNER"
	DefaultServings       = 1
)

// 食材分類
const (
	CategoryMeat  = "MEAT"
	CategoryVeg   = "VEG"
	CategoryDairy = "DAIRY"
	CategorySauce = "SAUCE"
	CategoryEtc   = "ETC"
)

// User 使用者
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ExternalKey string    `gorm:"size:128;uniqueIndex" json:"external_key"`
	Nickname    string    `gorm:"size:50" json:"nickname"`
	CreatedAt   time.Time `json:"created_at"`
	Profile     *Profile  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// Profile 使用者飲食設定，與 User 一對一
type Profile struct {
	ID              uint     `gorm:"primaryKey" json:"id"`
	UserID          uint     `gorm:"uniqueIndex" json:"user_id"`
	DietType        string   `gorm:"size:20;default:NONE" json:"diet_type"`
	Allergies       []string `gorm:"serializer:json" json:"allergies"`
	SpiceLevel      int      `json:"spice_level"`
	MaxCookTimeMin  *int     `json:"max_cook_time_min"`
	SkillLevel      string   `gorm:"size:20;default:BEGINNER" json:"skill_level"`
	ServingsDefault int      `json:"servings_default"`
}

// NewProfile 以預設值建立個人設定
func NewProfile(userID uint) *Profile {
	maxTime := DefaultMaxCookTimeMin
	return &Profile{
		UserID:          userID,
		DietType:        DefaultDietType,
		Allergies:       []string{},
		SpiceLevel:      DefaultSpiceLevel,
		MaxCookTimeMin:  &maxTime,
		SkillLevel:      DefaultSkillLevel,
		ServingsDefault: DefaultServings,
	}
}

// Ingredient 食材目錄
type Ingredient struct {
	ID       uint     `gorm:"primaryKey" json:"id"`
	NameKo   string   `gorm:"size:100;uniqueIndex" json:"name_ko"`
	NameEn   *string  `gorm:"size:100" json:"name_en"`
	Synonyms []string `gorm:"serializer:json" json:"synonyms"`
	Category string   `gorm:"size:20;default:ETC" json:"category"`
}

// PantryItem 使用者冰箱中的食材，(user, ingredient) 唯一
type PantryItem struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UserID       uint       `gorm:"uniqueIndex:idx_pantry_user_ingredient" json:"user_id"`
	IngredientID uint       `gorm:"uniqueIndex:idx_pantry_user_ingredient" json:"ingredient_id"`
	Ingredient   Ingredient `gorm:"foreignKey:IngredientID;constraint:OnDelete:CASCADE" json:"ingredient"`
	QuantityText string     `gorm:"size:50" json:"quantity_text"`
	ExpiresAt    *time.Time `gorm:"type:date" json:"expires_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// SourceUser 使用者自行建立的食譜來源
const SourceUser = "USER"

// Recipe 食譜
type Recipe struct {
	ID                uint               `gorm:"primaryKey" json:"id"`
	Source            string             `gorm:"size:50;default:PUBLIC" json:"source"`
	SourceRecipeID    string             `gorm:"size:100" json:"source_recipe_id"`
	ExternalSource    string             `gorm:"size:30;index:idx_recipe_external" json:"external_source"`
	ExternalID        string             `gorm:"size:100;index:idx_recipe_external" json:"external_id"`
	Title             string             `gorm:"size:200" json:"title"`
	Summary           string             `json:"summary"`
	ImageURL          string             `json:"image_url"`
	ImageURLSmall     string             `json:"image_url_small"`
	RawIngredients    string             `json:"raw_ingredients"`
	InstructionImages []string           `gorm:"serializer:json" json:"instruction_images"`
	CookTimeMin       *int               `json:"cook_time_min"`
	AuthorID          *uint              `gorm:"index" json:"author_id,omitempty"`
	Ingredients       []RecipeIngredient `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"ingredients,omitempty"`
	Steps             []RecipeStep       `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"steps,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
}

// RequiredIngredients 非選用食材
func (r *Recipe) RequiredIngredients() []RecipeIngredient {
	required := make([]RecipeIngredient, 0, len(r.Ingredients))
	for _, ri := range r.Ingredients {
		if !ri.IsOptional {
			required = append(required, ri)
		}
	}
	return required
}

// RecipeIngredient 食譜與食材的關聯，(recipe, ingredient) 唯一
type RecipeIngredient struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	RecipeID     uint       `gorm:"uniqueIndex:idx_recipe_ingredient" json:"recipe_id"`
	IngredientID uint       `gorm:"uniqueIndex:idx_recipe_ingredient" json:"ingredient_id"`
	Ingredient   Ingredient `gorm:"foreignKey:IngredientID;constraint:OnDelete:CASCADE" json:"ingredient"`
	AmountText   string     `gorm:"size:50" json:"amount_text"`
	IsOptional   bool       `json:"is_optional"`
}

// RecipeStep 食譜步驟
type RecipeStep struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	RecipeID    uint   `gorm:"uniqueIndex:idx_recipe_step" json:"recipe_id"`
	StepNo      int    `gorm:"uniqueIndex:idx_recipe_step" json:"step_no"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
}

// RecipeAction 行為日誌，只新增不修改
type RecipeAction struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index:idx_action_user_type_time" json:"user_id"`
	RecipeID  uint       `gorm:"index" json:"recipe_id"`
	Action    ActionType `gorm:"size:10;index:idx_action_user_type_time" json:"action"`
	CreatedAt time.Time  `gorm:"index:idx_action_user_type_time" json:"created_at"`
}

// UserSavedRecipe 收藏，(user, recipe) 唯一
type UserSavedRecipe struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_saved_user_recipe" json:"user_id"`
	RecipeID  uint      `gorm:"uniqueIndex:idx_saved_user_recipe" json:"recipe_id"`
	Recipe    Recipe    `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"recipe"`
	CreatedAt time.Time `json:"created_at"`
}

// RecommendationHistory 每次排序的紀錄，只新增不修改
type RecommendationHistory struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"index" json:"user_id"`
	Context   map[string]any `gorm:"serializer:json" json:"context"`
	RecipeIDs []uint         `gorm:"serializer:json" json:"result_recipe_ids"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
}

// All 回傳需要遷移的模型
func All() []interface{} {
	return []interface{}{
		&User{},
		&Profile{},
		&Ingredient{},
		&PantryItem{},
		&Recipe{},
		&RecipeIngredient{},
		&RecipeStep{},
		&RecipeAction{},
		&UserSavedRecipe{},
		&RecommendationHistory{},
	}
}
