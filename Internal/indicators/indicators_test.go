package indicators

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/fazecat/signalmaker/Internal/types"
)

func makeBars(closes []float64) []types.Bar {
	bars := make([]types.Bar, len(closes))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = types.Bar{
			Symbol: "TEST",
			Date:   start.AddDate(0, 0, i),
			Open:   c,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

func constantCloses(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestWarmUpWindow(t *testing.T) {
	if got := WarmUp(50, 14); got != 50 {
		t.Errorf("WarmUp(50,14) = %d, want 50", got)
	}
	// MACD slow+signal dominates when SMA is short.
	if got := WarmUp(10, 14); got != 35 {
		t.Errorf("WarmUp(10,14) = %d, want 35", got)
	}
}

func TestComputeInsufficientData(t *testing.T) {
	bars := makeBars(constantCloses(49, 100))
	_, err := Compute(bars, 50, 14)
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData for 49 bars, got %v", err)
	}
}

func TestWarmUpValuesUndefined(t *testing.T) {
	bars := makeBars(constantCloses(60, 100))
	s, err := Compute(bars, 50, 14)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	if _, ok := s.At(48); ok {
		t.Errorf("At(48) should be undefined inside the warm-up window")
	}
	if _, ok := s.At(49); !ok {
		t.Errorf("At(49) should be defined at the warm-up boundary")
	}
	if _, ok := s.SMA(40); ok {
		t.Errorf("SMA(40) should be undefined for a 50-period average")
	}
}

func TestSMAConstantSeries(t *testing.T) {
	bars := makeBars(constantCloses(60, 250))
	s, err := Compute(bars, 50, 14)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	sma, ok := s.SMA(59)
	if !ok {
		t.Fatal("SMA should be defined at the last bar")
	}
	if math.Abs(sma-250) > 1e-9 {
		t.Errorf("SMA of constant 250 series = %f, want 250", sma)
	}
}

func TestRSIBounds(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		// Alternating gains and losses.
		closes[i] = 100 + float64(i%2)*3
	}
	s, err := Compute(makeBars(closes), 50, 14)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	for i := 49; i < 60; i++ {
		rsi, ok := s.RSI(i)
		if !ok {
			t.Fatalf("RSI undefined at %d", i)
		}
		if rsi < 0 || rsi > 100 {
			t.Errorf("RSI at %d = %f, outside [0,100]", i, rsi)
		}
	}
}

func TestRSIZeroLossIsHundred(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i) // strictly rising, no losses
	}
	s, err := Compute(makeBars(closes), 50, 14)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	rsi, ok := s.RSI(59)
	if !ok {
		t.Fatal("RSI should be defined at the last bar")
	}
	if rsi != 100 {
		t.Errorf("RSI of loss-free series = %f, want 100", rsi)
	}
}

func TestRSIZeroGainIsZero(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 200 - float64(i)
	}
	s, err := Compute(makeBars(closes), 50, 14)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	rsi, _ := s.RSI(59)
	if rsi != 0 {
		t.Errorf("RSI of gain-free series = %f, want 0", rsi)
	}
}

func TestBollingerConstantSeries(t *testing.T) {
	bars := makeBars(constantCloses(60, 100))
	s, err := Compute(bars, 50, 14)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	width, pos, ok := s.Bollinger(59)
	if !ok {
		t.Fatal("Bollinger should be defined at the last bar")
	}
	if width != 0 {
		t.Errorf("Bollinger width of constant series = %f, want 0", width)
	}
	if pos != 0.5 {
		t.Errorf("Bollinger position of constant series = %f, want 0.5", pos)
	}
}

func TestBollingerPositionClamped(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + 0.2*float64(i)
	}
	closes[59] = 200 // spike far above the upper band
	s, err := Compute(makeBars(closes), 50, 14)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	_, pos, ok := s.Bollinger(59)
	if !ok {
		t.Fatal("Bollinger should be defined at the last bar")
	}
	if pos != 1 {
		t.Errorf("spiked close should clamp position to 1, got %f", pos)
	}
}

func TestMACDDefinedAfterWarmUp(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i)*0.5
	}
	s, err := Compute(makeBars(closes), 50, 14)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if _, _, _, ok := s.MACD(33); ok {
		t.Errorf("MACD should be undefined before 35 bars")
	}
	line, signal, hist, ok := s.MACD(59)
	if !ok {
		t.Fatal("MACD should be defined at the last bar")
	}
	if math.Abs(hist-(line-signal)) > 1e-9 {
		t.Errorf("histogram %f != line-signal %f", hist, line-signal)
	}
	// A steady uptrend keeps the fast EMA above the slow one.
	if line <= 0 {
		t.Errorf("MACD line in an uptrend should be positive, got %f", line)
	}
}

func TestDivergenceBearish(t *testing.T) {
	// Price keeps making higher highs while MACD highs decay.
	closes := make([]float64, 15)
	macd := make([]float64, 15)
	for i := range closes {
		closes[i] = float64(i + 1)
		macd[i] = float64(15 - i)
	}
	out := divergenceSeries(closes, macd, 5)
	if out[14] != -1 {
		t.Errorf("expected bearish divergence at the last bar, got %d", out[14])
	}
}

func TestDivergenceBullish(t *testing.T) {
	closes := make([]float64, 15)
	macd := make([]float64, 15)
	for i := range closes {
		closes[i] = float64(15 - i)
		macd[i] = float64(i + 1)
	}
	out := divergenceSeries(closes, macd, 5)
	if out[14] != 1 {
		t.Errorf("expected bullish divergence at the last bar, got %d", out[14])
	}
}

func TestDivergenceNeutralTrend(t *testing.T) {
	// Price and MACD rising together: no divergence.
	closes := make([]float64, 15)
	macd := make([]float64, 15)
	for i := range closes {
		closes[i] = float64(i + 1)
		macd[i] = float64(i + 1)
	}
	out := divergenceSeries(closes, macd, 5)
	for i, v := range out {
		if v != 0 {
			t.Errorf("unexpected divergence %d at bar %d", v, i)
		}
	}
}
