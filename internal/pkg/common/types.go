package common

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout 日期欄位格式
const DateLayout = "2006-01-02"

// PantryItemRequest 新增冰箱食材請求
type PantryItemRequest struct {
	IngredientName string  `json:"ingredient_name"`
	QuantityText   string  `json:"quantity_text"`
	ExpiresAt      *string `json:"expires_at"`
}

// Validate 驗證新增冰箱食材請求
func (r *PantryItemRequest) Validate() error {
	r.IngredientName = strings.TrimSpace(r.IngredientName)
	if r.IngredientName == "" {
		return NewValidationError("ingredient_name 不能為空")
	}
	if len(r.QuantityText) > 50 {
		return NewValidationError("quantity_text 長度不能超過 50")
	}
	if _, err := ParseDate(r.ExpiresAt); err != nil {
		return err
	}
	return nil
}

// PantryPatchRequest 部分更新冰箱食材請求
type PantryPatchRequest struct {
	QuantityText *string `json:"quantity_text"`
	ExpiresAt    *string `json:"expires_at"`
	// ClearExpiry 為 true 時清除到期日
	ClearExpiry bool `json:"clear_expiry"`
}

// Validate 驗證部分更新請求
func (r *PantryPatchRequest) Validate() error {
	if r.QuantityText != nil && len(*r.QuantityText) > 50 {
		return NewValidationError("quantity_text 長度不能超過 50")
	}
	if _, err := ParseDate(r.ExpiresAt); err != nil {
		return err
	}
	return nil
}

// ProfileUpdateRequest 部分更新個人設定請求
type ProfileUpdateRequest struct {
	DietType        *string  `json:"diet_type"`
	Allergies       []string `json:"allergies"`
	SpiceLevel      *int     `json:"spice_level"`
	MaxCookTimeMin  *int     `json:"max_cook_time_min"`
	SkillLevel      *string  `json:"skill_level"`
	ServingsDefault *int     `json:"servings_default"`
}

var (
	validDietTypes   = []string{"NONE", "LOW_CARB", "LOW_SODIUM", "HIGH_PROTEIN", "VEGAN"}
	validSkillLevels = []string{"BEGINNER", "MID", "PRO"}
)

// Validate 驗證個人設定請求
func (r *ProfileUpdateRequest) Validate() error {
	if r.DietType != nil && !contains(validDietTypes, *r.DietType) {
		return NewValidationError(fmt.Sprintf("diet_type 必須為 %s", StringSliceToString(validDietTypes)))
	}
	if r.SkillLevel != nil && !contains(validSkillLevels, *r.SkillLevel) {
		return NewValidationError(fmt.Sprintf("skill_level 必須為 %s", StringSliceToString(validSkillLevels)))
	}
	if r.SpiceLevel != nil && (*r.SpiceLevel < 0 || *r.SpiceLevel > 3) {
		return NewValidationError("spice_level 必須介於 0 到 3")
	}
	if r.MaxCookTimeMin != nil && *r.MaxCookTimeMin < 0 {
		return NewValidationError("max_cook_time_min 不能為負數")
	}
	if r.ServingsDefault != nil && *r.ServingsDefault < 1 {
		return NewValidationError("servings_default 至少為 1")
	}
	return nil
}

// ActionRequest 記錄使用者行為請求
type ActionRequest struct {
	RecipeID uint   `json:"recipe_id"`
	Action   string `json:"action"`
}

// Validate 驗證行為請求
func (r *ActionRequest) Validate() error {
	if r.RecipeID == 0 {
		return NewValidationError("recipe_id 不能為空")
	}
	switch r.Action {
	case "save", "cook", "skip":
		return nil
	default:
		return ErrInvalidAction
	}
}

// SaveRequest 收藏食譜請求
type SaveRequest struct {
	RecipeID uint `json:"recipe_id"`
}

// Validate 驗證收藏請求
func (r *SaveRequest) Validate() error {
	if r.RecipeID == 0 {
		return NewValidationError("recipe_id required")
	}
	return nil
}

// UserRecipeIngredient 自建食譜的食材
type UserRecipeIngredient struct {
	Name       string `json:"name"`
	AmountText string `json:"amount_text"`
	IsOptional bool   `json:"is_optional"`
}

// UserRecipeRequest 建立自建食譜請求
type UserRecipeRequest struct {
	Title       string                 `json:"title"`
	Summary     string                 `json:"summary"`
	CookTimeMin *int                   `json:"cook_time_min"`
	Ingredients []UserRecipeIngredient `json:"ingredients"`
	Steps       []string               `json:"steps"`
}

// 自建食譜限制
const (
	MaxRecipeTitleLen   = 200
	MaxRecipeSteps      = 20
	MaxRecipeIngredient = 50
)

// Validate 驗證自建食譜請求，並去除名稱與步驟的前後空白
func (r *UserRecipeRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return NewValidationError("title 不能為空")
	}
	if len([]rune(r.Title)) > MaxRecipeTitleLen {
		return NewValidationError(fmt.Sprintf("title 長度不能超過 %d", MaxRecipeTitleLen))
	}
	if r.CookTimeMin != nil && *r.CookTimeMin < 0 {
		return NewValidationError("cook_time_min 不能為負數")
	}

	if len(r.Ingredients) == 0 {
		return NewValidationError("ingredients 至少需要一項")
	}
	if len(r.Ingredients) > MaxRecipeIngredient {
		return NewValidationError(fmt.Sprintf("ingredients 不能超過 %d 項", MaxRecipeIngredient))
	}
	seen := make(map[string]bool, len(r.Ingredients))
	for i := range r.Ingredients {
		ing := &r.Ingredients[i]
		ing.Name = strings.TrimSpace(ing.Name)
		if ing.Name == "" {
			return NewValidationError("食材名稱不能為空")
		}
		if seen[ing.Name] {
			return NewValidationError(fmt.Sprintf("食材重複: %s", ing.Name))
		}
		seen[ing.Name] = true
		if len(ing.AmountText) > 50 {
			return NewValidationError("amount_text 長度不能超過 50")
		}
	}

	if len(r.Steps) > MaxRecipeSteps {
		return NewValidationError(fmt.Sprintf("steps 不能超過 %d 步", MaxRecipeSteps))
	}
	for i, step := range r.Steps {
		r.Steps[i] = strings.TrimSpace(step)
		if r.Steps[i] == "" {
			return NewValidationError("步驟內容不能為空")
		}
	}
	return nil
}

// ParseDate 解析 YYYY-MM-DD，nil 或空字串回傳 nil
func ParseDate(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, strings.TrimSpace(*raw))
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("日期格式錯誤: %s", *raw))
	}
	return &t, nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
