package model

import (
	"github.com/fazecat/signalmaker/Internal/features"
	"github.com/fazecat/signalmaker/Internal/types"
)

// Prediction is the class and probability returned by a signal model.
type Prediction struct {
	Label       string  // BUY, SELL or HOLD
	Probability float64 // in [0,1]
}

// SignalModel turns a feature vector into a trading class with a
// probability. Implementations are treated as black boxes by the fusion
// stage; a failing model degrades to a neutral sub-score there.
type SignalModel interface {
	Predict(v features.Vector) (Prediction, error)
}

// Heuristic is the built-in model: four independent votes averaged into a
// score in [-1,1], then thresholded. It stands in wherever no trained
// model is configured.
type Heuristic struct{}

func NewHeuristic() *Heuristic { return &Heuristic{} }

// Predict averages the sub-votes and maps the score onto a class and
// probability. Probability is centered at 0.5 so a flat market reads as
// an uninformative HOLD.
func (h *Heuristic) Predict(v features.Vector) (Prediction, error) {
	score := (trendVote(v) + momentumVote(v) + overboughtVote(v) + oversoldVote(v)) / 4

	prob := 0.5 + score/2
	if prob < 0 {
		prob = 0
	}
	if prob > 1 {
		prob = 1
	}

	switch {
	case score >= 0.5:
		return Prediction{Label: types.ModelBuy, Probability: prob}, nil
	case score <= -0.5:
		return Prediction{Label: types.ModelSell, Probability: prob}, nil
	default:
		return Prediction{Label: types.ModelHold, Probability: prob}, nil
	}
}

// trendVote is bullish while price holds above its moving average.
func trendVote(v features.Vector) float64 {
	if v.PriceMARatio > 1 {
		return 1
	}
	return -1
}

// momentumVote follows the 5-bar RSI slope.
func momentumVote(v features.Vector) float64 {
	if v.RSISlope > 0 {
		return 1
	}
	return -1
}

// overboughtVote penalizes an RSI at or above 70.
func overboughtVote(v features.Vector) float64 {
	if v.RSI < 70 {
		return 1
	}
	return -1
}

// oversoldVote penalizes an RSI at or below 30. An earlier revision of
// this rule always returned the bullish vote regardless of RSI; keep it a
// real two-sided vote.
func oversoldVote(v features.Vector) float64 {
	if v.RSI > 30 {
		return 1
	}
	return -1
}
