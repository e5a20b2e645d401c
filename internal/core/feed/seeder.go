package feed

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Darkqurk/hankki1/internal/core/model"
	"github.com/Darkqurk/hankki1/internal/infrastructure/config"
	"github.com/Darkqurk/hankki1/internal/infrastructure/metrics"
	"github.com/Darkqurk/hankki1/internal/infrastructure/store"
	"github.com/Darkqurk/hankki1/internal/pkg/common"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const (
	// ExternalSource 來源在 Recipe.ExternalSource 的標記
	ExternalSource = "foodsafety"
	recipeSource   = "MFDS"
	maxSteps       = 20
	breakerName    = "recipe-feed"
)

// Store 補充食譜使用的資料存取
type Store interface {
	FindRecipeByExternal(ctx context.Context, source, externalID string) (*model.Recipe, error)
	CreateRecipe(ctx context.Context, recipe *model.Recipe) error
	UpdateRecipe(ctx context.Context, recipe *model.Recipe, fields ...string) error
}

// SeedResult 一次補充的統計
type SeedResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// Seeder 將來源資料寫入食譜目錄
type Seeder struct {
	fetcher Fetcher
	store   Store
	cb      *gobreaker.CircuitBreaker[[]Row]
	limit   int
	timeout time.Duration
	mu      sync.Mutex
}

// NewSeeder 創建補充器，外部呼叫經過斷路器
func NewSeeder(fetcher Fetcher, st Store, cfg *config.FeedConfig) *Seeder {
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]Row](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			common.LogWarn("斷路器狀態變更",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	limit := cfg.SeedLimit
	if limit <= 0 {
		limit = 30
	}
	return &Seeder{
		fetcher: fetcher,
		store:   st,
		cb:      cb,
		limit:   limit,
		timeout: cfg.Timeout,
	}
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// fetch 經過斷路器取得資料
func (s *Seeder) fetch(ctx context.Context, start, end int, nameQuery string) ([]Row, error) {
	rows, err := s.cb.Execute(func() ([]Row, error) {
		return s.fetcher.Fetch(ctx, start, end, nameQuery)
	})
	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "rejected").Inc()
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "failure").Inc()
	}
	return rows, err
}

// Seed 取得最多 limit 筆資料並寫入目錄
func (s *Seeder) Seed(ctx context.Context, limit int, nameQuery string) (SeedResult, error) {
	if limit <= 0 {
		limit = s.limit
	}
	rows, err := s.fetch(ctx, 1, max(20, limit), nameQuery)
	if err != nil {
		return SeedResult{}, fmt.Errorf("fetch recipe feed: %w", err)
	}
	return s.SeedRows(ctx, rows, limit)
}

// SeedIfEmpty 推薦流程找不到可用食譜時呼叫，任何失敗只回傳 false
func (s *Seeder) SeedIfEmpty(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	res, err := s.Seed(ctx, s.limit, "")
	ok := res.Created > 0 || res.Updated > 0
	if err != nil {
		// 中途失敗時已寫入的資料仍然有效
		metrics.FeedSeedTotal.WithLabelValues("error").Inc()
		common.LogWarn("補充食譜失敗",
			zap.Error(err),
			zap.Int("created", res.Created),
			zap.Int("updated", res.Updated),
		)
		return ok
	}

	if ok {
		metrics.FeedSeedTotal.WithLabelValues("success").Inc()
	} else {
		metrics.FeedSeedTotal.WithLabelValues("empty").Inc()
	}
	common.LogFeed("info", "補充食譜完成",
		zap.Int("created", res.Created),
		zap.Int("updated", res.Updated),
		zap.Int("skipped", res.Skipped),
	)
	return ok
}

// SeedRows 依 (來源, RCP_SEQ) upsert 最多 limit 筆資料
//
// 既有食譜只補空白欄位並合併步驟圖片，不覆寫食材與步驟。
func (s *Seeder) SeedRows(ctx context.Context, rows []Row, limit int) (SeedResult, error) {
	var res SeedResult
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	for _, row := range rows {
		title := row.Get("RCP_NM")
		seq := row.Get("RCP_SEQ")
		if title == "" || seq == "" {
			res.Skipped++
			metrics.FeedRowsTotal.WithLabelValues("skipped").Inc()
			continue
		}

		existing, err := s.store.FindRecipeByExternal(ctx, ExternalSource, seq)
		switch {
		case errors.Is(err, store.ErrNotFound):
			if err := s.store.CreateRecipe(ctx, newRecipe(row)); err != nil {
				return res, fmt.Errorf("create recipe %s: %w", seq, err)
			}
			res.Created++
			metrics.FeedRowsTotal.WithLabelValues("created").Inc()
		case err != nil:
			return res, fmt.Errorf("find recipe %s: %w", seq, err)
		default:
			fields := fillEmpty(existing, row)
			if len(fields) == 0 {
				res.Skipped++
				metrics.FeedRowsTotal.WithLabelValues("skipped").Inc()
				continue
			}
			if err := s.store.UpdateRecipe(ctx, existing, fields...); err != nil {
				return res, fmt.Errorf("update recipe %s: %w", seq, err)
			}
			res.Updated++
			metrics.FeedRowsTotal.WithLabelValues("updated").Inc()
		}
	}
	return res, nil
}

var ingredientSeparator = regexp.MustCompile(`[\n,]`)

// splitIngredients 依換行與逗號切分食材原文，去除空白與重複
func splitIngredients(text string) []string {
	names := make([]string, 0)
	seen := make(map[string]bool)
	for _, part := range ingredientSeparator.Split(text, -1) {
		name := strings.TrimSpace(part)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

func stepKey(prefix string, i int) string {
	return fmt.Sprintf("%s%02d", prefix, i)
}

func stepImages(row Row) []string {
	images := make([]string, 0)
	for i := 1; i <= maxSteps; i++ {
		if img := row.Get(stepKey("MANUAL_IMG", i)); img != "" {
			images = append(images, img)
		}
	}
	return images
}

func newRecipe(row Row) *model.Recipe {
	seq := row.Get("RCP_SEQ")
	large, small := row.Get("ATT_FILE_NO_MAIN"), row.Get("ATT_FILE_NO_MK")
	parts := row["RCP_PARTS_DTLS"]

	r := &model.Recipe{
		Source:            recipeSource,
		SourceRecipeID:    seq,
		ExternalSource:    ExternalSource,
		ExternalID:        seq,
		Title:             row.Get("RCP_NM"),
		ImageURL:          firstNonEmpty(large, small),
		ImageURLSmall:     small,
		RawIngredients:    parts,
		InstructionImages: stepImages(row),
		CookTimeMin:       parseCookTime(row.Get("RCP_COOK_TIME")),
	}

	for _, name := range splitIngredients(parts) {
		r.Ingredients = append(r.Ingredients, model.RecipeIngredient{
			Ingredient: model.Ingredient{NameKo: name},
		})
	}

	stepNo := 1
	for i := 1; i <= maxSteps; i++ {
		text := row.Get(stepKey("MANUAL", i))
		if text == "" {
			continue
		}
		r.Steps = append(r.Steps, model.RecipeStep{
			StepNo:      stepNo,
			Description: text,
			ImageURL:    row.Get(stepKey("MANUAL_IMG", i)),
		})
		stepNo++
	}
	return r
}

// fillEmpty 補上既有食譜的空白欄位，回傳有變動的欄位
func fillEmpty(r *model.Recipe, row Row) []string {
	fields := make([]string, 0, 4)
	large, small := row.Get("ATT_FILE_NO_MAIN"), row.Get("ATT_FILE_NO_MK")

	if r.ImageURL == "" && firstNonEmpty(large, small) != "" {
		r.ImageURL = firstNonEmpty(large, small)
		fields = append(fields, store.FieldImageURL)
	}
	if r.ImageURLSmall == "" && small != "" {
		r.ImageURLSmall = small
		fields = append(fields, store.FieldImageURLSmall)
	}
	if images := stepImages(row); len(images) > 0 {
		merged := mergeUnique(r.InstructionImages, images)
		if !slices.Equal(merged, r.InstructionImages) {
			r.InstructionImages = merged
			fields = append(fields, store.FieldInstructionImages)
		}
	}
	if parts := row["RCP_PARTS_DTLS"]; r.RawIngredients == "" && parts != "" {
		r.RawIngredients = parts
		fields = append(fields, store.FieldRawIngredients)
	}
	return fields
}

// mergeUnique 保留 existing 順序，再附加尚未出現的項目
func mergeUnique(existing, items []string) []string {
	out := make([]string, 0, len(existing)+len(items))
	seen := make(map[string]bool)
	for _, list := range [][]string{existing, items} {
		for _, v := range list {
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func parseCookTime(raw string) *int {
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &n
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
