package sentiment

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/fazecat/signalmaker/Internal/types"
)

// Signal is the analyzed read on a symbol's sentiment.
type Signal struct {
	Label      string  // BULLISH, STRONGLY_BULLISH, BEARISH, STRONGLY_BEARISH or NEUTRAL
	Score      float64 // weighted score in [0,1]
	Confidence float64 // in [0,1], driven by mention volume
	Trend      float64 // latest minus average score
}

// Neutral is the signal used when no sentiment data is available.
func Neutral() Signal {
	return Signal{Label: types.SentimentNeutral, Score: 0.5}
}

// Analyze condenses a report into a signal. The latest day is weighted
// 0.7 against 0.3 for the period average, and confidence saturates at
// 100 combined mentions.
func Analyze(rep *Report) Signal {
	if rep == nil || len(rep.Daily) == 0 {
		return Neutral()
	}

	latest := rep.Aggregate.LatestScore
	avg := rep.Aggregate.AverageScore
	trend := latest - avg
	weighted := 0.7*latest + 0.3*avg

	mentions := rep.Aggregate.TotalNews + rep.Aggregate.TotalSocial
	confidence := float64(mentions) / 100
	if confidence > 1 {
		confidence = 1
	}

	label := types.SentimentNeutral
	switch {
	case weighted > 0.6:
		label = types.SentimentBullish
		if trend > 0.05 {
			label = types.SentimentStronglyBullish
		}
	case weighted < 0.4:
		label = types.SentimentBearish
		if trend < -0.05 {
			label = types.SentimentStronglyBearish
		}
	}

	return Signal{Label: label, Score: weighted, Confidence: confidence, Trend: trend}
}

// Analyzer fetches, caches and analyzes sentiment per symbol.
type Analyzer struct {
	source Source
	cache  Cache
	log    zerolog.Logger
}

func NewAnalyzer(source Source, cache Cache, log zerolog.Logger) *Analyzer {
	return &Analyzer{source: source, cache: cache, log: log}
}

// SignalFor returns the analyzed sentiment for a symbol, preferring a
// fresh cached report over a new fetch. A fetch failure is returned to
// the caller, which treats the sub-signal as neutral.
func (a *Analyzer) SignalFor(ctx context.Context, symbol string) (Signal, error) {
	if a.cache != nil {
		if rep, ok := a.cache.Get(ctx, symbol); ok {
			a.log.Debug().Str("symbol", symbol).Msg("using cached sentiment")
			return Analyze(rep), nil
		}
	}

	rep, err := a.source.Fetch(ctx, symbol)
	if err != nil {
		return Neutral(), fmt.Errorf("fetching sentiment for %s: %w", symbol, err)
	}

	if a.cache != nil {
		if err := a.cache.Set(ctx, symbol, rep); err != nil {
			a.log.Warn().Err(err).Str("symbol", symbol).Msg("failed to cache sentiment")
		}
	}

	return Analyze(rep), nil
}
