// Package pantry 冰箱食材的 HTTP 處理程序
package pantry

import (
	"net/http"
	"strconv"

	"github.com/Darkqurk/hankki1/internal/api/middleware"
	pantryService "github.com/Darkqurk/hankki1/internal/core/pantry"
	"github.com/Darkqurk/hankki1/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 冰箱處理程序
type Handler struct {
	service *pantryService.Service
}

// NewHandler 創建新的冰箱處理程序
func NewHandler(service *pantryService.Service) *Handler {
	return &Handler{service: service}
}

// HandleList 列出冰箱內容
func (h *Handler) HandleList(c *gin.Context) {
	items, err := h.service.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		common.LogError("讀取冰箱失敗",
			zap.Error(err),
			zap.String("request_id", common.RequestID(c)),
		)
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// HandleAdd 新增或覆寫冰箱食材
func (h *Handler) HandleAdd(c *gin.Context) {
	requestID := common.RequestID(c)

	var req common.PantryItemRequest
	if err := common.DecodeJSONStrict(c.Request.Body, &req); err != nil {
		common.LogError("請求格式無效",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		common.WriteError(c, common.ErrInvalidRequest.Wrap(err))
		return
	}

	item, err := h.service.Add(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		common.LogWarn("新增冰箱食材失敗",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// HandleUpdate 部分更新冰箱食材
func (h *Handler) HandleUpdate(c *gin.Context) {
	requestID := common.RequestID(c)
	itemID, ok := parseItemID(c)
	if !ok {
		return
	}

	var req common.PantryPatchRequest
	if err := common.DecodeJSONStrict(c.Request.Body, &req); err != nil {
		common.WriteError(c, common.ErrInvalidRequest.Wrap(err))
		return
	}

	item, err := h.service.Update(c.Request.Context(), middleware.UserID(c), itemID, &req)
	if err != nil {
		common.LogWarn("更新冰箱食材失敗",
			zap.Error(err),
			zap.Uint("item_id", itemID),
			zap.String("request_id", requestID),
		)
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// HandleDelete 刪除冰箱食材
func (h *Handler) HandleDelete(c *gin.Context) {
	itemID, ok := parseItemID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), middleware.UserID(c), itemID); err != nil {
		common.LogWarn("刪除冰箱食材失敗",
			zap.Error(err),
			zap.Uint("item_id", itemID),
			zap.String("request_id", common.RequestID(c)),
		)
		common.WriteError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func parseItemID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		common.WriteErrorResponse(c, http.StatusBadRequest, "id 格式錯誤")
		return 0, false
	}
	return uint(id), true
}
