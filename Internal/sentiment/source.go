package sentiment

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Report is the raw sentiment payload for one symbol, as delivered by a
// sentiment provider or read back from cache.
type Report struct {
	Symbol      string     `json:"symbol"`
	GeneratedAt time.Time  `json:"generated_at"`
	Daily       []DayEntry `json:"daily_data"`
	Aggregate   Aggregate  `json:"aggregate"`
}

// DayEntry is one day of sentiment observations.
type DayEntry struct {
	Date        string  `json:"date"`
	Score       float64 `json:"sentiment_score"`
	NewsCount   int     `json:"news_count"`
	SocialCount int     `json:"social_count"`
}

// Aggregate summarizes a report across its daily entries.
type Aggregate struct {
	AverageScore float64 `json:"average_sentiment"`
	LatestScore  float64 `json:"latest_sentiment"`
	Trend        string  `json:"sentiment_trend"`
	TotalNews    int     `json:"total_news"`
	TotalSocial  int     `json:"total_social"`
}

// Source fetches sentiment data for a symbol from some provider.
type Source interface {
	Fetch(ctx context.Context, symbol string) (*Report, error)
}

// MockSource generates deterministic simulated sentiment. Each symbol
// seeds its own random stream from the sum of its character codes, so a
// given symbol always reads the same while different symbols diverge.
type MockSource struct {
	Days int
}

func NewMockSource() *MockSource { return &MockSource{Days: 7} }

func (m *MockSource) Fetch(_ context.Context, symbol string) (*Report, error) {
	days := m.Days
	if days <= 0 {
		days = 7
	}

	var seed int64
	for _, c := range symbol {
		seed += int64(c)
	}
	rng := rand.New(rand.NewSource(seed))

	base := 0.4 + 0.2*rng.Float64()
	trend := -0.01 + 0.02*rng.Float64()
	volatility := 0.05 + 0.1*rng.Float64()

	now := time.Now()
	rep := &Report{
		Symbol:      symbol,
		GeneratedAt: now,
		Daily:       make([]DayEntry, 0, days),
	}

	var sum float64
	var latest float64
	for i := 0; i < days; i++ {
		score := base + trend*float64(i) + rng.NormFloat64()*volatility
		score = math.Max(0, math.Min(1, score))

		news := int(float64(rng.Intn(10)) * (1 + score))
		social := int(float64(rng.Intn(40)) * (1 + score))

		rep.Daily = append(rep.Daily, DayEntry{
			Date:        now.AddDate(0, 0, i-days+1).Format("2006-01-02"),
			Score:       score,
			NewsCount:   news,
			SocialCount: social,
		})
		rep.Aggregate.TotalNews += news
		rep.Aggregate.TotalSocial += social
		sum += score
		latest = score
	}

	rep.Aggregate.AverageScore = sum / float64(days)
	rep.Aggregate.LatestScore = latest
	switch {
	case trend > 0:
		rep.Aggregate.Trend = "bullish"
	case trend < 0:
		rep.Aggregate.Trend = "bearish"
	default:
		rep.Aggregate.Trend = "neutral"
	}

	return rep, nil
}
