package recommend

import (
	"fmt"
	"sort"

	"github.com/Darkqurk/hankki1/internal/core/model"
	"github.com/Darkqurk/hankki1/internal/pkg/common"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint 冰箱內容的摘要，作為快取鍵的一部分
//
// 每筆項目序列化為 [ingredient_id, quantity_text, expires_at]，
// 依 ingredient_id 排序，日期固定為 YYYY-MM-DD 或 null。
func Fingerprint(items []model.PantryItem) string {
	tuples := make([][3]interface{}, 0, len(items))
	for _, it := range items {
		var expires interface{}
		if it.ExpiresAt != nil {
			expires = it.ExpiresAt.Format(common.DateLayout)
		}
		tuples = append(tuples, [3]interface{}{it.IngredientID, it.QuantityText, expires})
	}
	sort.SliceStable(tuples, func(i, j int) bool {
		return tuples[i][0].(uint) < tuples[j][0].(uint)
	})

	data, err := common.MarshalJSON(tuples)
	if err != nil {
		// 只含基本型別，不會失敗
		data = []byte(fmt.Sprint(tuples))
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}
