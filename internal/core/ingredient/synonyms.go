package ingredient

// SynonymVersion 同義詞表版本，變更對照表時遞增
const SynonymVersion = "v1"

// synonymTable 多對一同義詞表，只做完整字串替換
var synonymTable = map[string]string{
	// 계란
	"달걀":    "계란",
	"전란":    "계란",
	"계란흰자":  "계란",
	"계란노른자": "계란",
	"달걀흰자":  "계란",
	"달걀노른자": "계란",
	"흰자":    "계란",
	"노른자":   "계란",
	// 파
	"대파": "파",
	"쪽파": "파",
	"실파": "파",
	// 설탕
	"슈가":  "설탕",
	"백설탕": "설탕",
	"황설탕": "설탕",
	// 간장
	"진간장":  "간장",
	"국간장":  "간장",
	"양조간장": "간장",
	// 고추
	"청양고추": "고추",
	"홍고추":  "고추",
	"풋고추":  "고추",
	// 마늘
	"다진마늘": "마늘",
	"마늘쫑":  "마늘",
	// 양파
	"적양파": "양파",
	// 고기
	"돼지고기":  "돼지",
	"돼지앞다리": "돼지",
	"돼지목살":  "돼지",
	"돼지삼겹":  "돼지",
	"삼겹살":   "돼지",
	"소고기":   "소",
	"쇠고기":   "소",
	"닭고기":   "닭",
	"닭가슴살":  "닭",
	"닭다리":   "닭",
}

// Canonical 回傳同義詞的標準名稱，不在表中時原樣回傳
func Canonical(token string) string {
	if canonical, ok := synonymTable[token]; ok {
		return canonical
	}
	return token
}

// Synonyms 回傳同義詞表的副本
func Synonyms() map[string]string {
	out := make(map[string]string, len(synonymTable))
	for k, v := range synonymTable {
		out[k] = v
	}
	return out
}
