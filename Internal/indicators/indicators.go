package indicators

import (
	"errors"
	"fmt"
	"math"

	"github.com/fazecat/signalmaker/Internal/types"
)

// Default periods matching the signal generator's daily setup.
const (
	DefaultSMAPeriod = 50
	DefaultRSIPeriod = 14
	MACDFastPeriod   = 12
	MACDSlowPeriod   = 26
	MACDSignalPeriod = 9
	BollingerWindow  = 20
	DivergenceWindow = 10
)

// ErrInsufficientData is returned when a bar sequence is shorter than the
// warm-up window.
var ErrInsufficientData = errors.New("insufficient data")

// Set is the derived, read-only indicator view for one bar. It is only
// produced for bars past the warm-up window.
type Set struct {
	SMA               float64
	RSI               float64
	MACDLine          float64
	MACDSignal        float64
	MACDHistogram     float64
	MACDDivergence    int // -1 bearish, +1 bullish, 0 none
	BollingerWidth    float64
	BollingerPosition float64 // 0..1 within the bands
}

// WarmUp returns the minimum bar count before every indicator in a Set is
// defined.
func WarmUp(smaPeriod, rsiPeriod int) int {
	w := smaPeriod
	if rsiPeriod+1 > w {
		w = rsiPeriod + 1
	}
	if macdWarmUp := MACDSlowPeriod + MACDSignalPeriod; macdWarmUp > w {
		w = macdWarmUp
	}
	if BollingerWindow > w {
		w = BollingerWindow
	}
	return w
}

// Series holds per-bar indicator values for one symbol. Entries inside each
// indicator's own warm-up are NaN and reported as undefined by the
// accessors; callers must never substitute zero for an undefined value when
// making decisions.
type Series struct {
	bars      []types.Bar
	smaPeriod int
	rsiPeriod int

	sma        []float64
	rsi        []float64
	macdLine   []float64
	macdSignal []float64
	macdHist   []float64
	divergence []int
	bollWidth  []float64
	bollPos    []float64
}

// Compute derives the full indicator series for an ascending daily bar
// sequence. The sequence must cover at least the warm-up window.
func Compute(bars []types.Bar, smaPeriod, rsiPeriod int) (*Series, error) {
	if smaPeriod <= 0 {
		smaPeriod = DefaultSMAPeriod
	}
	if rsiPeriod <= 0 {
		rsiPeriod = DefaultRSIPeriod
	}

	warm := WarmUp(smaPeriod, rsiPeriod)
	if len(bars) < warm {
		return nil, fmt.Errorf("%w: have %d bars, need %d", ErrInsufficientData, len(bars), warm)
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	s := &Series{
		bars:      bars,
		smaPeriod: smaPeriod,
		rsiPeriod: rsiPeriod,
		sma:       rollingMean(closes, smaPeriod),
		rsi:       rsiSeries(closes, rsiPeriod),
	}
	s.macdLine, s.macdSignal, s.macdHist = macdSeries(closes)
	s.bollWidth, s.bollPos = bollingerSeries(closes, BollingerWindow)
	s.divergence = divergenceSeries(closes, s.macdLine, DivergenceWindow)

	return s, nil
}

func (s *Series) Len() int { return len(s.bars) }

// Bars returns the underlying bar sequence.
func (s *Series) Bars() []types.Bar { return s.bars }

// At returns the complete indicator set for bar i, or ok=false while any
// component is still inside its warm-up window.
func (s *Series) At(i int) (Set, bool) {
	if i < 0 || i >= len(s.bars) || i < WarmUp(s.smaPeriod, s.rsiPeriod)-1 {
		return Set{}, false
	}
	return Set{
		SMA:               s.sma[i],
		RSI:               s.rsi[i],
		MACDLine:          s.macdLine[i],
		MACDSignal:        s.macdSignal[i],
		MACDHistogram:     s.macdHist[i],
		MACDDivergence:    s.divergence[i],
		BollingerWidth:    s.bollWidth[i],
		BollingerPosition: s.bollPos[i],
	}, true
}

// SMA returns the moving average at bar i if defined.
func (s *Series) SMA(i int) (float64, bool) {
	return defined(s.sma, i)
}

// RSI returns the RSI at bar i if defined.
func (s *Series) RSI(i int) (float64, bool) {
	return defined(s.rsi, i)
}

// MACD returns line, signal and histogram at bar i if defined.
func (s *Series) MACD(i int) (line, signal, hist float64, ok bool) {
	if line, ok = defined(s.macdLine, i); !ok {
		return 0, 0, 0, false
	}
	signal = s.macdSignal[i]
	hist = s.macdHist[i]
	return line, signal, hist, true
}

// Bollinger returns band width and position at bar i if defined.
func (s *Series) Bollinger(i int) (width, pos float64, ok bool) {
	if width, ok = defined(s.bollWidth, i); !ok {
		return 0, 0, false
	}
	return width, s.bollPos[i], true
}

// Divergence returns the MACD divergence flag at bar i (0 while undefined;
// zero is the genuine neutral value for this feature).
func (s *Series) Divergence(i int) int {
	if i < 0 || i >= len(s.divergence) {
		return 0
	}
	return s.divergence[i]
}

func defined(vals []float64, i int) (float64, bool) {
	if i < 0 || i >= len(vals) || math.IsNaN(vals[i]) {
		return 0, false
	}
	return vals[i], true
}

func rollingMean(vals []float64, window int) []float64 {
	out := nanSlice(len(vals))
	var sum float64
	for i, v := range vals {
		sum += v
		if i >= window {
			sum -= vals[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		}
	}
	return out
}

func rollingStd(vals []float64, window int) []float64 {
	out := nanSlice(len(vals))
	for i := window - 1; i < len(vals); i++ {
		mean := 0.0
		for j := i - window + 1; j <= i; j++ {
			mean += vals[j]
		}
		mean /= float64(window)
		var ss float64
		for j := i - window + 1; j <= i; j++ {
			d := vals[j] - mean
			ss += d * d
		}
		// Sample standard deviation, matching rolling().std().
		out[i] = math.Sqrt(ss / float64(window-1))
	}
	return out
}

// rsiSeries computes RSI from simple rolling averages of gains and losses.
// When the average loss over the window is zero the RSI is defined as 100
// rather than dividing by zero.
func rsiSeries(closes []float64, period int) []float64 {
	out := nanSlice(len(closes))
	gains := make([]float64, len(closes))
	losses := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}

	var gainSum, lossSum float64
	for i := 1; i < len(closes); i++ {
		gainSum += gains[i]
		lossSum += losses[i]
		if i > period {
			gainSum -= gains[i-period]
			lossSum -= losses[i-period]
		}
		if i < period {
			continue
		}
		avgGain := gainSum / float64(period)
		avgLoss := lossSum / float64(period)
		if avgLoss == 0 {
			out[i] = 100
			continue
		}
		rs := avgGain / avgLoss
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

// ema computes an exponential moving average seeded at the first value
// (alpha = 2/(span+1), no adjustment).
func ema(vals []float64, span int) []float64 {
	out := make([]float64, len(vals))
	if len(vals) == 0 {
		return out
	}
	alpha := 2.0 / float64(span+1)
	out[0] = vals[0]
	for i := 1; i < len(vals); i++ {
		out[i] = alpha*vals[i] + (1-alpha)*out[i-1]
	}
	return out
}

func macdSeries(closes []float64) (line, signal, hist []float64) {
	fast := ema(closes, MACDFastPeriod)
	slow := ema(closes, MACDSlowPeriod)

	raw := make([]float64, len(closes))
	for i := range closes {
		raw[i] = fast[i] - slow[i]
	}
	rawSignal := ema(raw, MACDSignalPeriod)

	warm := MACDSlowPeriod + MACDSignalPeriod - 1
	line = nanSlice(len(closes))
	signal = nanSlice(len(closes))
	hist = nanSlice(len(closes))
	for i := warm; i < len(closes); i++ {
		line[i] = raw[i]
		signal[i] = rawSignal[i]
		hist[i] = raw[i] - rawSignal[i]
	}
	return line, signal, hist
}

func bollingerSeries(closes []float64, window int) (width, pos []float64) {
	mean := rollingMean(closes, window)
	std := rollingStd(closes, window)

	width = nanSlice(len(closes))
	pos = nanSlice(len(closes))
	for i := window - 1; i < len(closes); i++ {
		upper := mean[i] + 2*std[i]
		lower := mean[i] - 2*std[i]
		if mean[i] != 0 {
			width[i] = (upper - lower) / mean[i]
		} else {
			width[i] = 0
		}
		if upper == lower {
			pos[i] = 0.5
			continue
		}
		p := (closes[i] - lower) / (upper - lower)
		pos[i] = math.Min(1, math.Max(0, p))
	}
	return width, pos
}

// divergenceSeries flags bars where price and the MACD line disagree over
// the rolling window: a new price high without a new MACD high is bearish
// (-1), a new price low without a new MACD low is bullish (+1).
func divergenceSeries(closes, macdLine []float64, window int) []int {
	out := make([]int, len(closes))

	priceMax := rollingMaxRaw(closes, window)
	priceMin := rollingMinRaw(closes, window)
	macdMax := rollingMaxRaw(macdLine, window)
	macdMin := rollingMinRaw(macdLine, window)

	for i := window * 2; i < len(closes); i++ {
		prev := i - window
		if math.IsNaN(macdMax[i]) || math.IsNaN(macdMax[prev]) {
			continue
		}
		switch {
		case priceMax[i] > priceMax[prev] && macdMax[i] < macdMax[prev]:
			out[i] = -1
		case priceMin[i] < priceMin[prev] && macdMin[i] > macdMin[prev]:
			out[i] = 1
		}
	}
	return out
}

func rollingMaxRaw(vals []float64, window int) []float64 {
	out := nanSlice(len(vals))
	for i := window - 1; i < len(vals); i++ {
		m := math.Inf(-1)
		sawNaN := false
		for j := i - window + 1; j <= i; j++ {
			if math.IsNaN(vals[j]) {
				sawNaN = true
				break
			}
			if vals[j] > m {
				m = vals[j]
			}
		}
		if !sawNaN {
			out[i] = m
		}
	}
	return out
}

func rollingMinRaw(vals []float64, window int) []float64 {
	out := nanSlice(len(vals))
	for i := window - 1; i < len(vals); i++ {
		m := math.Inf(1)
		sawNaN := false
		for j := i - window + 1; j <= i; j++ {
			if math.IsNaN(vals[j]) {
				sawNaN = true
				break
			}
			if vals[j] < m {
				m = vals[j]
			}
		}
		if !sawNaN {
			out[i] = m
		}
	}
	return out
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
