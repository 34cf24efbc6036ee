package features

import (
	"errors"
	"fmt"
	"math"

	"github.com/fazecat/signalmaker/Internal/indicators"
)

// MinBars is the minimum history required before feature vectors are
// meaningful for the probability model.
const MinBars = 50

const (
	volatilityWindow = 20
	volumeWindow     = 20
	corrWindow       = 10
	rsiSlopeLag      = 5
)

// ErrFeatureExtraction is returned when a feature vector cannot be built.
var ErrFeatureExtraction = errors.New("feature extraction failed")

// Vector is the fixed-width numeric input for the probability model.
// Indicator values still inside their warm-up are filled with 0 here; that
// is acceptable only because the vector feeds a trained model, never a
// hard decision rule.
type Vector struct {
	PriceMARatio    float64
	PriceVolatility float64
	VolumeMARatio   float64
	VolumePriceCorr float64
	RSI             float64
	RSISlope        float64
	BollingerWidth  float64
	BollingerPos    float64
	MACDLine        float64
	MACDSignal      float64
	MACDHistogram   float64
	MACDDivergence  float64
	Momentum1D      float64
	Momentum5D      float64
	Momentum10D     float64
}

// Values flattens the vector in column order.
func (v Vector) Values() []float64 {
	return []float64{
		v.PriceMARatio, v.PriceVolatility, v.VolumeMARatio, v.VolumePriceCorr,
		v.RSI, v.RSISlope, v.BollingerWidth, v.BollingerPos,
		v.MACDLine, v.MACDSignal, v.MACDHistogram, v.MACDDivergence,
		v.Momentum1D, v.Momentum5D, v.Momentum10D,
	}
}

// Extract builds one feature vector per bar from a computed indicator
// series.
func Extract(s *indicators.Series) ([]Vector, error) {
	if s == nil || s.Len() < MinBars {
		n := 0
		if s != nil {
			n = s.Len()
		}
		return nil, fmt.Errorf("%w: have %d bars, need %d", ErrFeatureExtraction, n, MinBars)
	}

	bars := s.Bars()
	closes := make([]float64, len(bars))
	volumes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		volumes[i] = float64(b.Volume)
	}

	out := make([]Vector, len(bars))
	for i := range bars {
		var v Vector

		if sma, ok := s.SMA(i); ok && sma != 0 {
			v.PriceMARatio = closes[i] / sma
		}
		v.PriceVolatility = rollingVolatility(closes, i, volatilityWindow)
		v.VolumeMARatio = volumeRatio(volumes, i, volumeWindow)
		v.VolumePriceCorr = rollingCorr(volumes, closes, i, corrWindow)

		if rsi, ok := s.RSI(i); ok {
			v.RSI = rsi
			if prev, ok := s.RSI(i - rsiSlopeLag); ok {
				v.RSISlope = rsi - prev
			}
		}
		if width, pos, ok := s.Bollinger(i); ok {
			v.BollingerWidth = width
			v.BollingerPos = pos
		}
		if line, signal, hist, ok := s.MACD(i); ok {
			v.MACDLine = line
			v.MACDSignal = signal
			v.MACDHistogram = hist
		}
		v.MACDDivergence = float64(s.Divergence(i))

		v.Momentum1D = pctChange(closes, i, 1)
		v.Momentum5D = pctChange(closes, i, 5)
		v.Momentum10D = pctChange(closes, i, 10)

		out[i] = v
	}
	return out, nil
}

// Latest returns the feature vector for the most recent bar.
func Latest(s *indicators.Series) (Vector, error) {
	vectors, err := Extract(s)
	if err != nil {
		return Vector{}, err
	}
	return vectors[len(vectors)-1], nil
}

func pctChange(vals []float64, i, lag int) float64 {
	if i < lag || vals[i-lag] == 0 {
		return 0
	}
	return (vals[i] - vals[i-lag]) / vals[i-lag]
}

func rollingVolatility(vals []float64, i, window int) float64 {
	if i < window-1 {
		return 0
	}
	mean := 0.0
	for j := i - window + 1; j <= i; j++ {
		mean += vals[j]
	}
	mean /= float64(window)
	if mean == 0 {
		return 0
	}
	var ss float64
	for j := i - window + 1; j <= i; j++ {
		d := vals[j] - mean
		ss += d * d
	}
	return math.Sqrt(ss/float64(window-1)) / mean
}

func volumeRatio(volumes []float64, i, window int) float64 {
	if i < window-1 {
		return 0
	}
	mean := 0.0
	for j := i - window + 1; j <= i; j++ {
		mean += volumes[j]
	}
	mean /= float64(window)
	if mean == 0 {
		return 0
	}
	return volumes[i] / mean
}

func rollingCorr(a, b []float64, i, window int) float64 {
	if i < window-1 {
		return 0
	}
	var sumA, sumB float64
	for j := i - window + 1; j <= i; j++ {
		sumA += a[j]
		sumB += b[j]
	}
	meanA := sumA / float64(window)
	meanB := sumB / float64(window)

	var cov, varA, varB float64
	for j := i - window + 1; j <= i; j++ {
		da := a[j] - meanA
		db := b[j] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0
	}
	return cov / math.Sqrt(varA*varB)
}
