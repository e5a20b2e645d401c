package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/Darkqurk/hankki1/internal/core/model"
	"github.com/Darkqurk/hankki1/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserIDKey gin context 中目前使用者 ID 的鍵
const UserIDKey = "user_id"

// UserStore 解析使用者需要的資料存取
type UserStore interface {
	EnsureUser(ctx context.Context, externalKey, nickname string) (*model.User, error)
	GetUser(ctx context.Context, id uint) (*model.User, error)
}

// CurrentUser 解析目前使用者
//
// 依序採用 X-User-ID、demo_user 查詢參數或 X-DEMO-USER 標頭，
// 都沒有時使用 test_user_1。
func CurrentUser(st UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if raw := strings.TrimSpace(c.GetHeader("X-User-ID")); raw != "" {
			id, err := strconv.ParseUint(raw, 10, 64)
			if err != nil || id == 0 {
				common.WriteErrorResponse(c, http.StatusBadRequest, "X-User-ID 格式錯誤")
				return
			}
			u, err := st.GetUser(ctx, uint(id))
			if err != nil {
				common.LogWarn("找不到使用者", zap.Uint64("user_id", id), zap.Error(err))
				c.AbortWithStatusJSON(http.StatusUnauthorized, common.ErrorResponse{
					Code:    common.ErrCodeUnauthorized,
					Message: common.ErrUnauthorized.Message,
				})
				return
			}
			c.Set(UserIDKey, u.ID)
			c.Next()
			return
		}

		demo := c.Query("demo_user")
		if demo == "" {
			demo = c.GetHeader("X-DEMO-USER")
		}
		num := DemoUserNumber(demo)
		u, err := st.EnsureUser(ctx, fmt.Sprintf("test_user_%d", num), fmt.Sprintf("test%d", num))
		if err != nil {
			common.LogError("建立測試使用者失敗", zap.Error(err))
			common.WriteError(c, err)
			return
		}
		c.Set(UserIDKey, u.ID)
		c.Next()
	}
}

// DemoUserNumber 只接受 1 或 2，其餘回傳 1
func DemoUserNumber(raw string) int {
	if n := common.ParseIntDefault(raw, 1); n == 2 {
		return 2
	}
	return 1
}

// UserID 取得 CurrentUser 設定的使用者 ID
func UserID(c *gin.Context) uint {
	return c.GetUint(UserIDKey)
}
