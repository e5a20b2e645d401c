package common

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GenerateUUID 生成 UUID
func GenerateUUID() string {
	return uuid.New().String()
}

// RequestID 取得或產生請求 ID
func RequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = GenerateUUID()
		c.Header("X-Request-ID", requestID)
	}
	return requestID
}

// WriteError 依錯誤類型寫入錯誤響應
func WriteError(c *gin.Context, err error) {
	status, resp := ToErrorResponse(err)
	c.AbortWithStatusJSON(status, resp)
}

// WriteErrorResponse 寫入錯誤響應
func WriteErrorResponse(c *gin.Context, status int, message string) {
	code := ErrCodeInvalidRequest
	if status >= http.StatusInternalServerError {
		code = ErrCodeInternalError
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Code: code, Message: message})
}

// ParseIntDefault 解析整數，失敗時回傳預設值
func ParseIntDefault(raw string, def int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// ParseBoolDefault 解析布林值，失敗時回傳預設值
func ParseBoolDefault(raw string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "y":
		return true
	case "0", "false", "no", "n":
		return false
	default:
		return def
	}
}

// Round 四捨五入到指定小數位
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
