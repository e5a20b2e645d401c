package recommend

import "time"

// Weights 評分權重表
//
// 權重是固定的對外契約，調整權重只改這張表，不改評分流程。
type Weights struct {
	Version string

	Coverage      float64
	MissingRatio  float64
	TimeFit       float64
	NeutralFit    float64
	ExpiredDays   int
	UrgentDays    int
	SoonDays      int
	ExpiredWeight float64
	UrgentWeight  float64
	SoonWeight    float64
	ExpiryCap     float64

	RecentCookedSaved float64
	RecentSkipped     float64
	Cooldown          float64
	ExposureNoConvert float64
	ExposureThreshold int
	Converted         float64

	Popularity    float64
	PopularityCap int
}

// Windows 使用者上下文的時間窗與筆數上限
type Windows struct {
	Behavior          time.Duration
	Conversion        time.Duration
	Popularity        time.Duration
	CooldownHistories int
	ExposureHistories int
}

// DefaultWeights v1 權重
var DefaultWeights = Weights{
	Version: "v1",

	Coverage:      0.55,
	MissingRatio:  0.20,
	TimeFit:       0.10,
	NeutralFit:    0.5,
	ExpiredDays:   -1,
	UrgentDays:    2,
	SoonDays:      7,
	ExpiredWeight: 0.20,
	UrgentWeight:  0.25,
	SoonWeight:    0.10,
	ExpiryCap:     0.5,

	RecentCookedSaved: 0.15,
	RecentSkipped:     0.40,
	Cooldown:          0.10,
	ExposureNoConvert: 0.20,
	ExposureThreshold: 2,
	Converted:         0.05,

	Popularity:    0.08,
	PopularityCap: 20,
}

// DefaultWindows 所有時間窗皆為 7 天
var DefaultWindows = Windows{
	Behavior:          7 * 24 * time.Hour,
	Conversion:        7 * 24 * time.Hour,
	Popularity:        7 * 24 * time.Hour,
	CooldownHistories: 10,
	ExposureHistories: 50,
}
