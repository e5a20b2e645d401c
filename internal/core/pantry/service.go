// Package pantry 管理使用者冰箱食材
package pantry

import (
	"context"
	"errors"
	"fmt"

	"github.com/Darkqurk/hankki1/internal/core/model"
	"github.com/Darkqurk/hankki1/internal/infrastructure/store"
	"github.com/Darkqurk/hankki1/internal/pkg/common"

	"go.uber.org/zap"
)

// Store 冰箱操作使用的資料存取
type Store interface {
	GetOrCreateIngredient(ctx context.Context, nameKo string) (*model.Ingredient, error)
	ListPantry(ctx context.Context, userID uint) ([]model.PantryItem, error)
	GetPantryItem(ctx context.Context, userID, itemID uint) (*model.PantryItem, error)
	UpsertPantryItem(ctx context.Context, item *model.PantryItem) (*model.PantryItem, error)
	SavePantryItem(ctx context.Context, item *model.PantryItem) error
	DeletePantryItem(ctx context.Context, userID, itemID uint) error
}

// Service 冰箱服務
//
// 冰箱變動會改變推薦快取的冰箱摘要，不需要另外清除快取。
type Service struct {
	store Store
}

// NewService 創建冰箱服務
func NewService(st Store) *Service {
	return &Service{store: st}
}

// List 依食材 ID 排序的冰箱內容
func (s *Service) List(ctx context.Context, userID uint) ([]model.PantryItem, error) {
	return s.store.ListPantry(ctx, userID)
}

// Add 依食材名稱新增或覆寫冰箱項目，食材不存在時建立
func (s *Service) Add(ctx context.Context, userID uint, req *common.PantryItemRequest) (*model.PantryItem, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	expiresAt, err := common.ParseDate(req.ExpiresAt)
	if err != nil {
		return nil, err
	}

	ing, err := s.store.GetOrCreateIngredient(ctx, req.IngredientName)
	if err != nil {
		return nil, fmt.Errorf("get ingredient: %w", err)
	}

	item, err := s.store.UpsertPantryItem(ctx, &model.PantryItem{
		UserID:       userID,
		IngredientID: ing.ID,
		QuantityText: req.QuantityText,
		ExpiresAt:    expiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert pantry item: %w", err)
	}

	common.LogInfo("冰箱食材已更新",
		zap.Uint("user_id", userID),
		zap.String("ingredient", ing.NameKo),
	)
	return item, nil
}

// Update 部分更新數量或到期日
func (s *Service) Update(ctx context.Context, userID, itemID uint, req *common.PantryPatchRequest) (*model.PantryItem, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	item, err := s.get(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	if req.QuantityText != nil {
		item.QuantityText = *req.QuantityText
	}
	switch {
	case req.ClearExpiry:
		item.ExpiresAt = nil
	case req.ExpiresAt != nil:
		expiresAt, err := common.ParseDate(req.ExpiresAt)
		if err != nil {
			return nil, err
		}
		item.ExpiresAt = expiresAt
	}

	if err := s.store.SavePantryItem(ctx, item); err != nil {
		return nil, fmt.Errorf("save pantry item: %w", err)
	}
	return s.get(ctx, userID, itemID)
}

// Delete 刪除冰箱項目
func (s *Service) Delete(ctx context.Context, userID, itemID uint) error {
	if _, err := s.get(ctx, userID, itemID); err != nil {
		return err
	}
	if err := s.store.DeletePantryItem(ctx, userID, itemID); err != nil {
		return fmt.Errorf("delete pantry item: %w", err)
	}
	return nil
}

func (s *Service) get(ctx context.Context, userID, itemID uint) (*model.PantryItem, error) {
	item, err := s.store.GetPantryItem(ctx, userID, itemID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, common.ErrPantryItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get pantry item: %w", err)
	}
	return item, nil
}
