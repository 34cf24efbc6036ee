package signals

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/fazecat/signalmaker/Internal/features"
	"github.com/fazecat/signalmaker/Internal/indicators"
	"github.com/fazecat/signalmaker/Internal/model"
	"github.com/fazecat/signalmaker/Internal/sentiment"
	"github.com/fazecat/signalmaker/Internal/types"
)

// Default weights for signal components
var DefaultSignalWeights = map[string]float64{
	"Traditional": 0.50,
	"Model":       0.30,
	"Sentiment":   0.20,
}

// DefaultRSIThreshold is the level an RSI cross must clear to count as a
// bullish crossover (and fall below for bearish).
const DefaultRSIThreshold = 50.0

// Final label thresholds - single source of truth
const (
	StrongBuyThreshold  = 1.2
	BuyThreshold        = 0.6
	StrongSellThreshold = -1.2
	SellThreshold       = -0.6
)

// TraditionalSignal is the rule-based crossover read on the latest bar.
type TraditionalSignal struct {
	Label      string
	Score      float64
	Close      float64
	SMA        float64
	RSI        float64
	MACross    int // +1 bullish cross on the latest bar, -1 bearish, 0 none
	RSICross   int
	RecentMA   bool // crossed within the last two bars
	RecentRSI  bool
	PriceAbove bool
}

// crossAt reports the direction of the price/MA and RSI/threshold
// crossings at bar i. A crossing needs both i and i-1 defined; anything
// inside the warm-up window reads 0.
func crossAt(s *indicators.Series, i int, rsiThreshold float64) (maCross, rsiCross int) {
	if i < 1 {
		return 0, 0
	}
	bars := s.Bars()

	smaNow, okNow := s.SMA(i)
	smaPrev, okPrev := s.SMA(i - 1)
	if okNow && okPrev {
		above := boolToInt(bars[i].Close > smaNow)
		wasAbove := boolToInt(bars[i-1].Close > smaPrev)
		maCross = above - wasAbove
	}

	rsiNow, okNow := s.RSI(i)
	rsiPrev, okPrev := s.RSI(i - 1)
	if okNow && okPrev {
		above := boolToInt(rsiNow > rsiThreshold)
		wasAbove := boolToInt(rsiPrev > rsiThreshold)
		rsiCross = above - wasAbove
	}

	return maCross, rsiCross
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Traditional classifies the latest bar of a series. STRONG_BUY fires
// when price crosses above the MA and RSI crosses above the threshold on
// the same bar; it is upgraded to FRESH when both crossings happened
// within the last two bars. Sells are the mirror image.
func Traditional(s *indicators.Series, rsiThreshold float64) TraditionalSignal {
	n := s.Len() - 1
	bars := s.Bars()

	sig := TraditionalSignal{Label: types.SignalNeutral, Close: bars[n].Close}
	if sma, ok := s.SMA(n); ok {
		sig.SMA = sma
		sig.PriceAbove = bars[n].Close > sma
	}
	if rsi, ok := s.RSI(n); ok {
		sig.RSI = rsi
	}

	sig.MACross, sig.RSICross = crossAt(s, n, rsiThreshold)
	prevMA, prevRSI := crossAt(s, n-1, rsiThreshold)

	sig.RecentMA = sig.MACross != 0 || prevMA != 0
	sig.RecentRSI = sig.RSICross != 0 || prevRSI != 0

	switch {
	case sig.MACross > 0 && sig.RSICross > 0:
		sig.Label = types.SignalStrongBuy
		if sig.RecentMA && sig.RecentRSI {
			sig.Label = types.SignalFreshStrongBuy
		}
	case sig.MACross < 0 && sig.RSICross < 0:
		sig.Label = types.SignalStrongSell
		if sig.RecentMA && sig.RecentRSI {
			sig.Label = types.SignalFreshStrongSell
		}
	}

	sig.Score = TraditionalScore(sig.Label)
	return sig
}

// TraditionalScore maps a rule-based label onto [-2,2].
func TraditionalScore(label string) float64 {
	switch label {
	case types.SignalFreshStrongBuy:
		return 2
	case types.SignalStrongBuy:
		return 1
	case types.SignalStrongSell:
		return -1
	case types.SignalFreshStrongSell:
		return -2
	}
	return 0
}

// ModelScore maps a model prediction onto [-2,2]. The raw formula runs
// past the range for extreme probabilities, so the result is clamped.
func ModelScore(label string, probability float64) float64 {
	var score float64
	switch label {
	case types.ModelBuy:
		score = 1 + (probability-0.7)*3
	case types.ModelSell:
		score = -1 - (0.3-probability)*3
	default:
		return 0
	}
	if score > 2 {
		score = 2
	}
	if score < -2 {
		score = -2
	}
	return score
}

// SentimentScore maps a sentiment label and confidence onto [-2,2].
func SentimentScore(label string, confidence float64) float64 {
	switch label {
	case types.SentimentBullish:
		return 1 * confidence
	case types.SentimentStronglyBullish:
		return 2 * confidence
	case types.SentimentBearish:
		return -1 * confidence
	case types.SentimentStronglyBearish:
		return -2 * confidence
	}
	return 0
}

// Compose folds the three sub-scores into the composite score.
func Compose(traditional, modelScore, sentimentScore float64) float64 {
	return traditional*DefaultSignalWeights["Traditional"] +
		modelScore*DefaultSignalWeights["Model"] +
		sentimentScore*DefaultSignalWeights["Sentiment"]
}

// MapScoreToLabel converts a composite score to the final label.
func MapScoreToLabel(score float64) string {
	switch {
	case score >= StrongBuyThreshold:
		return types.CompositeStrongBuy
	case score >= BuyThreshold:
		return types.CompositeBuy
	case score <= StrongSellThreshold:
		return types.CompositeStrongSell
	case score <= SellThreshold:
		return types.CompositeSell
	}
	return types.CompositeNeutral
}

// FusionEngine fuses the rule-based, model and sentiment sub-signals
// into one composite decision per (symbol, date).
type FusionEngine struct {
	model        model.SignalModel
	sentiment    *sentiment.Analyzer
	rsiThreshold float64
	log          zerolog.Logger
}

func NewFusionEngine(m model.SignalModel, sa *sentiment.Analyzer, log zerolog.Logger) *FusionEngine {
	return &FusionEngine{
		model:        m,
		sentiment:    sa,
		rsiThreshold: DefaultRSIThreshold,
		log:          log,
	}
}

// Fuse evaluates the latest bar of a series. The traditional signal is
// mandatory; a failing model or sentiment source degrades its sub-score
// to 0 and never aborts fusion.
func (e *FusionEngine) Fuse(ctx context.Context, symbol string, s *indicators.Series, v features.Vector) *types.CompositeSignal {
	bars := s.Bars()
	latest := bars[len(bars)-1]

	trad := Traditional(s, e.rsiThreshold)

	sig := &types.CompositeSignal{
		Symbol:           symbol,
		Date:             latest.Date,
		Close:            latest.Close,
		TraditionalLabel: trad.Label,
		TraditionalScore: trad.Score,
		ModelLabel:       types.ModelHold,
		SentimentLabel:   types.SentimentNeutral,
	}

	if e.model != nil {
		pred, err := e.model.Predict(v)
		if err != nil {
			e.log.Warn().Err(err).Str("symbol", symbol).Msg("model prediction failed, using neutral")
		} else {
			sig.ModelLabel = pred.Label
			sig.ModelProbability = pred.Probability
			sig.ModelScore = ModelScore(pred.Label, pred.Probability)
		}
	}

	if e.sentiment != nil {
		sent, err := e.sentiment.SignalFor(ctx, symbol)
		if err != nil {
			e.log.Warn().Err(err).Str("symbol", symbol).Msg("sentiment lookup failed, using neutral")
		} else {
			sig.SentimentLabel = sent.Label
			sig.SentimentConfidence = sent.Confidence
			sig.SentimentScore = SentimentScore(sent.Label, sent.Confidence)
		}
	}

	sig.CompositeScore = Compose(sig.TraditionalScore, sig.ModelScore, sig.SentimentScore)
	sig.FinalLabel = MapScoreToLabel(sig.CompositeScore)

	return sig
}
