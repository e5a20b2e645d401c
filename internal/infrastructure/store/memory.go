package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Darkqurk/hankki1/internal/core/model"
)

// Memory 行程內資料存取，用於開發模式與測試
type Memory struct {
	mu  sync.RWMutex
	now func() time.Time
	seq uint

	users       map[uint]*model.User
	profiles    map[uint]*model.Profile
	ingredients map[uint]*model.Ingredient
	pantry      map[uint]*model.PantryItem
	recipes     map[uint]*model.Recipe
	links       map[uint][]model.RecipeIngredient
	steps       map[uint][]model.RecipeStep
	actions     []model.RecipeAction
	histories   []model.RecommendationHistory
	saved       []model.UserSavedRecipe
}

// NewMemory 建立空的行程內資料存取
func NewMemory() *Memory {
	return &Memory{
		now:         time.Now,
		users:       make(map[uint]*model.User),
		profiles:    make(map[uint]*model.Profile),
		ingredients: make(map[uint]*model.Ingredient),
		pantry:      make(map[uint]*model.PantryItem),
		recipes:     make(map[uint]*model.Recipe),
		links:       make(map[uint][]model.RecipeIngredient),
		steps:       make(map[uint][]model.RecipeStep),
	}
}

// WithClock 設定時間來源，只影響未指定時間的新資料
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) nextID() uint {
	m.seq++
	return m.seq
}

// Ping 實作 Repository
func (m *Memory) Ping(context.Context) error {
	return nil
}

// EnsureUser 依外部鍵取得或建立使用者與個人設定
func (m *Memory) EnsureUser(_ context.Context, externalKey, nickname string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.ExternalKey == externalKey {
			out := *u
			return &out, nil
		}
	}

	u := &model.User{ID: m.nextID(), ExternalKey: externalKey, Nickname: nickname, CreatedAt: m.now()}
	m.users[u.ID] = u
	p := model.NewProfile(u.ID)
	p.ID = m.nextID()
	m.profiles[u.ID] = p

	out := *u
	return &out, nil
}

// GetUser 依 ID 取得使用者
func (m *Memory) GetUser(_ context.Context, id uint) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *u
	return &out, nil
}

// GetOrCreateProfile 取得個人設定，不存在時以預設值建立
func (m *Memory) GetOrCreateProfile(_ context.Context, userID uint) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[userID]
	if !ok {
		p = model.NewProfile(userID)
		p.ID = m.nextID()
		m.profiles[userID] = p
	}
	return copyProfile(p), nil
}

// SaveProfile 儲存個人設定
func (m *Memory) SaveProfile(_ context.Context, profile *model.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if profile.ID == 0 {
		profile.ID = m.nextID()
	}
	m.profiles[profile.UserID] = copyProfile(profile)
	return nil
}

func copyProfile(p *model.Profile) *model.Profile {
	out := *p
	out.Allergies = append([]string{}, p.Allergies...)
	if p.MaxCookTimeMin != nil {
		v := *p.MaxCookTimeMin
		out.MaxCookTimeMin = &v
	}
	return &out
}

// GetOrCreateIngredient 依韓文名稱取得或建立食材
func (m *Memory) GetOrCreateIngredient(_ context.Context, nameKo string) (*model.Ingredient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.getOrCreateIngredientLocked(nameKo), nil
}

func (m *Memory) getOrCreateIngredientLocked(nameKo string) *model.Ingredient {
	for _, ing := range m.ingredients {
		if ing.NameKo == nameKo {
			out := *ing
			return &out
		}
	}
	ing := &model.Ingredient{ID: m.nextID(), NameKo: nameKo, Synonyms: []string{}, Category: model.CategoryEtc}
	m.ingredients[ing.ID] = ing
	out := *ing
	return &out
}

// ListPantry 依 ingredient_id 排序的冰箱食材
func (m *Memory) ListPantry(_ context.Context, userID uint) ([]model.PantryItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := make([]model.PantryItem, 0)
	for _, it := range m.pantry {
		if it.UserID == userID {
			items = append(items, m.pantryView(it))
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].IngredientID != items[j].IngredientID {
			return items[i].IngredientID < items[j].IngredientID
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func (m *Memory) pantryView(it *model.PantryItem) model.PantryItem {
	out := *it
	if ing, ok := m.ingredients[it.IngredientID]; ok {
		out.Ingredient = *ing
	}
	if it.ExpiresAt != nil {
		d := *it.ExpiresAt
		out.ExpiresAt = &d
	}
	return out
}

// GetPantryItem 取得使用者的單一冰箱食材
func (m *Memory) GetPantryItem(_ context.Context, userID, itemID uint) (*model.PantryItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	it, ok := m.pantry[itemID]
	if !ok || it.UserID != userID {
		return nil, ErrNotFound
	}
	out := m.pantryView(it)
	return &out, nil
}

// UpsertPantryItem 依 (user, ingredient) 新增或更新
func (m *Memory) UpsertPantryItem(_ context.Context, item *model.PantryItem) (*model.PantryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.ingredients[item.IngredientID]; !ok {
		return nil, fmt.Errorf("ingredient %d: %w", item.IngredientID, ErrNotFound)
	}

	var target *model.PantryItem
	for _, it := range m.pantry {
		if it.UserID == item.UserID && it.IngredientID == item.IngredientID {
			target = it
			break
		}
	}
	if target == nil {
		target = &model.PantryItem{ID: m.nextID(), UserID: item.UserID, IngredientID: item.IngredientID}
		m.pantry[target.ID] = target
	}
	target.QuantityText = item.QuantityText
	target.ExpiresAt = item.ExpiresAt
	target.UpdatedAt = m.now()

	out := m.pantryView(target)
	return &out, nil
}

// SavePantryItem 更新既有冰箱食材
func (m *Memory) SavePantryItem(_ context.Context, item *model.PantryItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	target, ok := m.pantry[item.ID]
	if !ok || target.UserID != item.UserID {
		return ErrNotFound
	}
	target.QuantityText = item.QuantityText
	target.ExpiresAt = item.ExpiresAt
	target.UpdatedAt = m.now()
	item.UpdatedAt = target.UpdatedAt
	return nil
}

// DeletePantryItem 刪除冰箱食材，不存在時不視為錯誤
func (m *Memory) DeletePantryItem(_ context.Context, userID, itemID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if it, ok := m.pantry[itemID]; ok && it.UserID == userID {
		delete(m.pantry, itemID)
	}
	return nil
}

// ListRecipes 依 ID 排序的所有食譜，含食材，不含步驟
func (m *Memory) ListRecipes(_ context.Context) ([]model.Recipe, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.recipesWhere(func(*model.Recipe) bool { return true }), nil
}

// recipesWhere 依 ID 排序
func (m *Memory) recipesWhere(keep func(*model.Recipe) bool) []model.Recipe {
	ids := make([]uint, 0, len(m.recipes))
	for id, r := range m.recipes {
		if keep(r) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]model.Recipe, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.recipeView(m.recipes[id], false))
	}
	return out
}

func (m *Memory) recipeView(r *model.Recipe, withSteps bool) model.Recipe {
	out := *r
	out.InstructionImages = append([]string{}, r.InstructionImages...)
	if r.AuthorID != nil {
		id := *r.AuthorID
		out.AuthorID = &id
	}
	out.Ingredients = make([]model.RecipeIngredient, 0, len(m.links[r.ID]))
	for _, ri := range m.links[r.ID] {
		if ing, ok := m.ingredients[ri.IngredientID]; ok {
			ri.Ingredient = *ing
		}
		out.Ingredients = append(out.Ingredients, ri)
	}
	if withSteps {
		out.Steps = append([]model.RecipeStep{}, m.steps[r.ID]...)
	}
	return out
}

// GetRecipe 依 ID 取得食譜，含依 step_no 排序的步驟
func (m *Memory) GetRecipe(_ context.Context, id uint) (*model.Recipe, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.recipes[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := m.recipeView(r, true)
	return &out, nil
}

// SearchRecipes 標題包含 query 的食譜，不分大小寫，依 ID 排序
func (m *Memory) SearchRecipes(_ context.Context, query string, limit int) ([]model.Recipe, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	q := strings.ToLower(query)
	out := m.recipesWhere(func(r *model.Recipe) bool {
		return strings.Contains(strings.ToLower(r.Title), q)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListUserRecipes 使用者建立的食譜，新到舊
func (m *Memory) ListUserRecipes(_ context.Context, userID uint) ([]model.Recipe, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := m.recipesWhere(func(r *model.Recipe) bool {
		return r.AuthorID != nil && *r.AuthorID == userID
	})
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// DeleteUserRecipe 刪除使用者自己的食譜與其食材連結、步驟、收藏
func (m *Memory) DeleteUserRecipe(_ context.Context, userID, recipeID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.recipes[recipeID]
	if !ok || r.AuthorID == nil || *r.AuthorID != userID {
		return ErrNotFound
	}
	delete(m.recipes, recipeID)
	delete(m.links, recipeID)
	delete(m.steps, recipeID)

	kept := m.saved[:0]
	for _, s := range m.saved {
		if s.RecipeID != recipeID {
			kept = append(kept, s)
		}
	}
	m.saved = kept
	return nil
}

// FindRecipeByExternal 依外部來源與外部 ID 查詢
func (m *Memory) FindRecipeByExternal(_ context.Context, source, externalID string) (*model.Recipe, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.recipes {
		if r.ExternalSource == source && r.ExternalID == externalID {
			out := m.recipeView(r, true)
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

// CreateRecipe 建立食譜與其食材、步驟
func (m *Memory) CreateRecipe(_ context.Context, recipe *model.Recipe) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if recipe.ExternalSource != "" && recipe.ExternalID != "" {
		for _, r := range m.recipes {
			if r.ExternalSource == recipe.ExternalSource && r.ExternalID == recipe.ExternalID {
				return fmt.Errorf("duplicate external recipe %s/%s", recipe.ExternalSource, recipe.ExternalID)
			}
		}
	}

	recipe.ID = m.nextID()
	if recipe.CreatedAt.IsZero() {
		recipe.CreatedAt = m.now()
	}

	links := make([]model.RecipeIngredient, 0, len(recipe.Ingredients))
	seen := make(map[uint]bool, len(recipe.Ingredients))
	for i := range recipe.Ingredients {
		ri := &recipe.Ingredients[i]
		if ri.IngredientID == 0 && ri.Ingredient.NameKo != "" {
			ri.IngredientID = m.getOrCreateIngredientLocked(ri.Ingredient.NameKo).ID
		}
		if seen[ri.IngredientID] {
			return fmt.Errorf("duplicate ingredient %d in recipe", ri.IngredientID)
		}
		seen[ri.IngredientID] = true
		ri.ID = m.nextID()
		ri.RecipeID = recipe.ID
		links = append(links, *ri)
	}

	steps := make([]model.RecipeStep, 0, len(recipe.Steps))
	for i := range recipe.Steps {
		st := &recipe.Steps[i]
		st.ID = m.nextID()
		st.RecipeID = recipe.ID
		steps = append(steps, *st)
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].StepNo < steps[j].StepNo })

	stored := *recipe
	stored.Ingredients = nil
	stored.Steps = nil
	stored.InstructionImages = append([]string{}, recipe.InstructionImages...)
	if recipe.AuthorID != nil {
		id := *recipe.AuthorID
		stored.AuthorID = &id
	}
	m.recipes[recipe.ID] = &stored
	m.links[recipe.ID] = links
	m.steps[recipe.ID] = steps
	return nil
}

// UpdateRecipe 只更新指定欄位
func (m *Memory) UpdateRecipe(_ context.Context, recipe *model.Recipe, fields ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	target, ok := m.recipes[recipe.ID]
	if !ok {
		return ErrNotFound
	}
	for _, f := range fields {
		switch f {
		case FieldImageURL:
			target.ImageURL = recipe.ImageURL
		case FieldImageURLSmall:
			target.ImageURLSmall = recipe.ImageURLSmall
		case FieldInstructionImages:
			target.InstructionImages = append([]string{}, recipe.InstructionImages...)
		case FieldRawIngredients:
			target.RawIngredients = recipe.RawIngredients
		default:
			return fmt.Errorf("unsupported recipe field %q", f)
		}
	}
	return nil
}

// CreateAction 新增行為紀錄
func (m *Memory) CreateAction(_ context.Context, action *model.RecipeAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	action.ID = m.nextID()
	if action.CreatedAt.IsZero() {
		action.CreatedAt = m.now()
	}
	m.actions = append(m.actions, *action)
	return nil
}

// ActionRecipeIDs since 之後指定行為涉及的食譜 ID，不重複
func (m *Memory) ActionRecipeIDs(_ context.Context, userID uint, actions []model.ActionType, since time.Time) ([]uint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[uint]bool)
	ids := make([]uint, 0)
	for _, a := range m.actions {
		if a.UserID != userID || a.CreatedAt.Before(since) || !hasAction(actions, a.Action) {
			continue
		}
		if !seen[a.RecipeID] {
			seen[a.RecipeID] = true
			ids = append(ids, a.RecipeID)
		}
	}
	return ids, nil
}

// PopularRecipes since 之後各食譜有指定行為的不重複使用者數
func (m *Memory) PopularRecipes(_ context.Context, actions []model.ActionType, since time.Time) (map[uint]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make(map[uint]map[uint]bool)
	for _, a := range m.actions {
		if a.CreatedAt.Before(since) || !hasAction(actions, a.Action) {
			continue
		}
		if users[a.RecipeID] == nil {
			users[a.RecipeID] = make(map[uint]bool)
		}
		users[a.RecipeID][a.UserID] = true
	}

	out := make(map[uint]int, len(users))
	for rid, set := range users {
		out[rid] = len(set)
	}
	return out, nil
}

func hasAction(actions []model.ActionType, a model.ActionType) bool {
	for _, x := range actions {
		if x == a {
			return true
		}
	}
	return false
}

// CreateHistory 新增推薦紀錄
func (m *Memory) CreateHistory(_ context.Context, history *model.RecommendationHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	history.ID = m.nextID()
	if history.CreatedAt.IsZero() {
		history.CreatedAt = m.now()
	}
	stored := *history
	stored.RecipeIDs = append([]uint{}, history.RecipeIDs...)
	m.histories = append(m.histories, stored)
	return nil
}

// ListHistories 新到舊；since 為零值時不限時間，limit <= 0 時不限筆數
func (m *Memory) ListHistories(_ context.Context, userID uint, since time.Time, limit int) ([]model.RecommendationHistory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.RecommendationHistory, 0)
	for _, h := range m.histories {
		if h.UserID != userID {
			continue
		}
		if !since.IsZero() && h.CreatedAt.Before(since) {
			continue
		}
		h.RecipeIDs = append([]uint{}, h.RecipeIDs...)
		out = append(out, h)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SaveRecipe 收藏食譜，已收藏時不變
func (m *Memory) SaveRecipe(_ context.Context, saved *model.UserSavedRecipe) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.recipes[saved.RecipeID]; !ok {
		return ErrNotFound
	}
	for _, s := range m.saved {
		if s.UserID == saved.UserID && s.RecipeID == saved.RecipeID {
			*saved = s
			return nil
		}
	}
	saved.ID = m.nextID()
	if saved.CreatedAt.IsZero() {
		saved.CreatedAt = m.now()
	}
	stored := *saved
	stored.Recipe = model.Recipe{}
	m.saved = append(m.saved, stored)
	return nil
}

// UnsaveRecipe 取消收藏，不存在時不視為錯誤
func (m *Memory) UnsaveRecipe(_ context.Context, userID, recipeID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.saved[:0]
	for _, s := range m.saved {
		if s.UserID == userID && s.RecipeID == recipeID {
			continue
		}
		kept = append(kept, s)
	}
	m.saved = kept
	return nil
}

// SavedRecipeIDs 使用者收藏的食譜 ID
func (m *Memory) SavedRecipeIDs(_ context.Context, userID uint) ([]uint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]uint, 0)
	for _, s := range m.saved {
		if s.UserID == userID {
			ids = append(ids, s.RecipeID)
		}
	}
	return ids, nil
}

// ListSavedRecipes 新到舊的收藏清單，含食譜
func (m *Memory) ListSavedRecipes(_ context.Context, userID uint) ([]model.UserSavedRecipe, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.UserSavedRecipe, 0)
	for _, s := range m.saved {
		if s.UserID != userID {
			continue
		}
		if r, ok := m.recipes[s.RecipeID]; ok {
			s.Recipe = m.recipeView(r, false)
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

var _ Repository = (*Memory)(nil)
