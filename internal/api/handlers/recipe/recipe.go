// Package recipe 食譜詳細、搜尋與自建食譜的 HTTP 處理程序
package recipe

import (
	"net/http"
	"strconv"

	"github.com/Darkqurk/hankki1/internal/api/middleware"
	recipeService "github.com/Darkqurk/hankki1/internal/core/recipe"
	"github.com/Darkqurk/hankki1/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 食譜處理程序
type Handler struct {
	service *recipeService.Service
}

// NewHandler 創建新的食譜處理程序
func NewHandler(service *recipeService.Service) *Handler {
	return &Handler{service: service}
}

// HandleDetail 食譜詳細內容，含食材與依序排列的步驟
func (h *Handler) HandleDetail(c *gin.Context) {
	id, ok := parseRecipeID(c)
	if !ok {
		return
	}
	recipe, err := h.service.Detail(c.Request.Context(), id)
	if err != nil {
		logFailure(c, "讀取食譜失敗", err)
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

// HandleSearch 依標題搜尋
func (h *Handler) HandleSearch(c *gin.Context) {
	limit := common.ParseIntDefault(c.Query("limit"), recipeService.DefaultSearchLimit)
	results, err := h.service.Search(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		logFailure(c, "搜尋食譜失敗", err)
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func (h *Handler) HandleListMine(c *gin.Context) {
	recipes, err := h.service.Mine(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		logFailure(c, "讀取自建食譜失敗", err)
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipes)
}

// HandleCreate 建立自建食譜
func (h *Handler) HandleCreate(c *gin.Context) {
	var req common.UserRecipeRequest
	if err := common.DecodeJSONStrict(c.Request.Body, &req); err != nil {
		logFailure(c, "請求格式無效", err)
		common.WriteError(c, common.ErrInvalidRequest.Wrap(err))
		return
	}

	recipe, err := h.service.Create(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		logFailure(c, "建立自建食譜失敗", err)
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, recipe)
}

func (h *Handler) HandleDelete(c *gin.Context) {
	id, ok := parseRecipeID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), middleware.UserID(c), id); err != nil {
		logFailure(c, "刪除自建食譜失敗", err)
		common.WriteError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func logFailure(c *gin.Context, msg string, err error) {
	common.LogWarn(msg,
		zap.Error(err),
		zap.Uint("user_id", middleware.UserID(c)),
		zap.String("request_id", common.RequestID(c)),
	)
}

func parseRecipeID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		common.WriteErrorResponse(c, http.StatusBadRequest, "id 格式錯誤")
		return 0, false
	}
	return uint(id), true
}
