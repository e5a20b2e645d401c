// Package recommend 推薦、行為、收藏與個人設定的 HTTP 處理程序
package recommend

import (
	"net/http"
	"strconv"

	"github.com/Darkqurk/hankki1/internal/api/middleware"
	"github.com/Darkqurk/hankki1/internal/core/model"
	recommendService "github.com/Darkqurk/hankki1/internal/core/recommend"
	"github.com/Darkqurk/hankki1/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultConversionDays = 7

// Handler 推薦處理程序
type Handler struct {
	service *recommendService.Service
}

// NewHandler 創建新的推薦處理程序
func NewHandler(service *recommendService.Service) *Handler {
	return &Handler{service: service}
}

// fail 記錄並寫入錯誤響應
func fail(c *gin.Context, requestID, msg string, err error) {
	status, _ := common.ToErrorResponse(err)
	fields := []zap.Field{
		zap.Error(err),
		zap.String("request_id", requestID),
		zap.Uint("user_id", middleware.UserID(c)),
	}
	if status >= http.StatusInternalServerError {
		common.LogError(msg, fields...)
	} else {
		common.LogWarn(msg, fields...)
	}
	common.WriteError(c, err)
}

// HandleRecommendations 取得推薦清單
//
// 回應內容即快取中的序列化結果，狀態碼依來源為 200、201 或 503。
func (h *Handler) HandleRecommendations(c *gin.Context) {
	requestID := common.RequestID(c)
	userID := middleware.UserID(c)
	// 無法解析時用預設值，超出範圍時夾在 1 到 MaxTop
	top := recommendService.ClampTop(common.ParseIntDefault(c.Query("top"), h.service.DefaultTop()))

	result, err := h.service.GetRecommendations(c.Request.Context(), userID, top)
	if err != nil {
		fail(c, requestID, "推薦失敗", err)
		return
	}

	cacheStatus := "MISS"
	if result.CacheHit {
		cacheStatus = "HIT"
	}
	c.Header("X-Cache", cacheStatus)
	c.Header("X-Pantry-Fingerprint", result.Fingerprint)
	c.Data(result.Status.HTTPStatus(), "application/json; charset=utf-8", result.Payload)
}

// HandleScore 計算單一食譜分數
func (h *Handler) HandleScore(c *gin.Context) {
	requestID := common.RequestID(c)
	recipeID, ok := parseID(c, "id")
	if !ok {
		return
	}
	excludeSaved := common.ParseBoolDefault(c.Query("exclude_saved"), false)

	rec, err := h.service.ScoreSingleRecipe(c.Request.Context(), middleware.UserID(c), recipeID, excludeSaved)
	if err != nil {
		fail(c, requestID, "食譜評分失敗", err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// HandleAction 記錄 save、cook 或 skip
func (h *Handler) HandleAction(c *gin.Context) {
	requestID := common.RequestID(c)

	var req common.ActionRequest
	if err := common.DecodeJSONStrict(c.Request.Body, &req); err != nil {
		fail(c, requestID, "請求格式無效", common.ErrInvalidRequest.Wrap(err))
		return
	}
	if err := req.Validate(); err != nil {
		fail(c, requestID, "行為請求無效", err)
		return
	}

	userID := middleware.UserID(c)
	if err := h.service.RecordAction(c.Request.Context(), userID, req.RecipeID, model.ActionType(req.Action)); err != nil {
		fail(c, requestID, "記錄行為失敗", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true})
}

// HandleSave 收藏食譜
func (h *Handler) HandleSave(c *gin.Context) {
	requestID := common.RequestID(c)

	var req common.SaveRequest
	if err := common.DecodeJSONStrict(c.Request.Body, &req); err != nil {
		fail(c, requestID, "請求格式無效", common.ErrInvalidRequest.Wrap(err))
		return
	}
	if err := req.Validate(); err != nil {
		fail(c, requestID, "收藏請求無效", err)
		return
	}

	if err := h.service.SaveRecipe(c.Request.Context(), middleware.UserID(c), req.RecipeID); err != nil {
		fail(c, requestID, "收藏失敗", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"saved": true, "recipe_id": req.RecipeID})
}

// HandleUnsave 取消收藏
func (h *Handler) HandleUnsave(c *gin.Context) {
	requestID := common.RequestID(c)
	recipeID, ok := parseID(c, "recipe_id")
	if !ok {
		return
	}
	if err := h.service.UnsaveRecipe(c.Request.Context(), middleware.UserID(c), recipeID); err != nil {
		fail(c, requestID, "取消收藏失敗", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleSavedList 收藏清單
func (h *Handler) HandleSavedList(c *gin.Context) {
	requestID := common.RequestID(c)
	saved, err := h.service.SavedRecipes(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, requestID, "讀取收藏失敗", err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// HandleGetProfile 取得個人設定
func (h *Handler) HandleGetProfile(c *gin.Context) {
	requestID := common.RequestID(c)
	profile, err := h.service.GetProfile(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, requestID, "讀取個人設定失敗", err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// HandleUpdateProfile 部分更新個人設定
func (h *Handler) HandleUpdateProfile(c *gin.Context) {
	requestID := common.RequestID(c)

	var req common.ProfileUpdateRequest
	if err := common.DecodeJSONStrict(c.Request.Body, &req); err != nil {
		fail(c, requestID, "請求格式無效", common.ErrInvalidRequest.Wrap(err))
		return
	}

	profile, err := h.service.UpdateProfile(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		fail(c, requestID, "更新個人設定失敗", err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// HandleHistory 最近的推薦紀錄
func (h *Handler) HandleHistory(c *gin.Context) {
	requestID := common.RequestID(c)
	histories, err := h.service.History(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, requestID, "讀取推薦紀錄失敗", err)
		return
	}
	c.JSON(http.StatusOK, histories)
}

// HandleConversion 推薦轉換統計
func (h *Handler) HandleConversion(c *gin.Context) {
	requestID := common.RequestID(c)
	days := common.ParseIntDefault(c.Query("days"), defaultConversionDays)
	if days < 0 {
		days = defaultConversionDays
	}

	stats, err := h.service.Conversion(c.Request.Context(), middleware.UserID(c), days)
	if err != nil {
		fail(c, requestID, "計算轉換率失敗", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// parseID 解析路徑上的正整數 ID，失敗時已寫入 400
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		common.WriteErrorResponse(c, http.StatusBadRequest, name+" 格式錯誤")
		return 0, false
	}
	return uint(id), true
}
