// Package feed 從公開食譜資料來源補充食譜目錄
package feed

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Darkqurk/hankki1/internal/infrastructure/config"
	"github.com/Darkqurk/hankki1/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Row 來源回傳的一筆食譜，欄位皆為字串
type Row map[string]string

// Get 取得欄位並去除空白
func (r Row) Get(key string) string {
	return strings.TrimSpace(r[key])
}

// Fetcher 取得來源資料
type Fetcher interface {
	Fetch(ctx context.Context, start, end int, nameQuery string) ([]Row, error)
}

// Client 食品安全處食譜 API 客戶端
type Client struct {
	client  *resty.Client
	apiKey  string
	service string
}

// NewClient 創建食譜來源客戶端
func NewClient(cfg *config.FeedConfig) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	return &Client{
		client:  client,
		apiKey:  cfg.APIKey,
		service: cfg.Service,
	}
}

// response 來源回應，外層鍵為服務名稱
type response map[string]struct {
	TotalCount string                   `json:"total_count"`
	Rows       []map[string]interface{} `json:"row"`
	Result     struct {
		Code    string `json:"CODE"`
		Message string `json:"MSG"`
	} `json:"RESULT"`
}

// Fetch 取得第 start 到 end 筆資料，nameQuery 不為空時依標題過濾
func (c *Client) Fetch(ctx context.Context, start, end int, nameQuery string) ([]Row, error) {
	if c.apiKey == "" {
		return nil, common.ErrFeedUnavailable.Wrap(fmt.Errorf("feed api key is empty"))
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParams(map[string]string{
			"key":     c.apiKey,
			"service": c.service,
			"start":   fmt.Sprint(start),
			"end":     fmt.Sprint(end),
		}).
		Get("/{key}/{service}/json/{start}/{end}")
	if err != nil {
		return nil, fmt.Errorf("failed to send request to recipe feed: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("recipe feed returned status %d", resp.StatusCode())
	}

	var body response
	if err := common.UnmarshalJSON(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("failed to parse recipe feed response: %w", err)
	}

	payload, ok := body[c.service]
	if !ok {
		return nil, fmt.Errorf("recipe feed response missing %s", c.service)
	}
	if strings.HasPrefix(payload.Result.Code, "ERROR") {
		return nil, fmt.Errorf("recipe feed error %s: %s", payload.Result.Code, payload.Result.Message)
	}

	rows := make([]Row, 0, len(payload.Rows))
	for _, raw := range payload.Rows {
		row := make(Row, len(raw))
		for k, v := range raw {
			if v != nil {
				row[k] = fmt.Sprint(v)
			}
		}
		if nameQuery != "" && !strings.Contains(row["RCP_NM"], strings.TrimSpace(nameQuery)) {
			continue
		}
		rows = append(rows, row)
	}

	common.LogDebug("取得外部食譜",
		zap.Int("start", start),
		zap.Int("end", end),
		zap.String("total", payload.TotalCount),
		zap.Int("rows", len(rows)),
	)
	return rows, nil
}
