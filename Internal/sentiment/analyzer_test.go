package sentiment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/fazecat/signalmaker/Internal/types"
)

func reportWith(latest, avg float64, mentions int) *Report {
	return &Report{
		Symbol: "TEST",
		Daily:  []DayEntry{{Date: "2026-08-27", Score: latest}},
		Aggregate: Aggregate{
			LatestScore:  latest,
			AverageScore: avg,
			TotalNews:    mentions / 2,
			TotalSocial:  mentions - mentions/2,
		},
	}
}

func TestAnalyzeNilReportIsNeutral(t *testing.T) {
	sig := Analyze(nil)
	if sig.Label != types.SentimentNeutral {
		t.Errorf("label = %s, want NEUTRAL", sig.Label)
	}
	if sig.Score != 0.5 || sig.Confidence != 0 {
		t.Errorf("score = %f confidence = %f, want 0.5 and 0", sig.Score, sig.Confidence)
	}
}

func TestAnalyzeBullish(t *testing.T) {
	sig := Analyze(reportWith(0.7, 0.68, 50))
	if sig.Label != types.SentimentBullish {
		t.Errorf("label = %s, want BULLISH", sig.Label)
	}
	if sig.Confidence != 0.5 {
		t.Errorf("confidence = %f, want 0.5", sig.Confidence)
	}
}

func TestAnalyzeStronglyBullishNeedsRisingTrend(t *testing.T) {
	sig := Analyze(reportWith(0.8, 0.6, 200))
	if sig.Label != types.SentimentStronglyBullish {
		t.Errorf("label = %s, want STRONGLY_BULLISH", sig.Label)
	}
	if sig.Confidence != 1 {
		t.Errorf("confidence = %f, want capped at 1", sig.Confidence)
	}
}

func TestAnalyzeStronglyBearish(t *testing.T) {
	sig := Analyze(reportWith(0.2, 0.4, 80))
	if sig.Label != types.SentimentStronglyBearish {
		t.Errorf("label = %s, want STRONGLY_BEARISH", sig.Label)
	}
}

func TestAnalyzeMidRangeIsNeutral(t *testing.T) {
	sig := Analyze(reportWith(0.5, 0.5, 30))
	if sig.Label != types.SentimentNeutral {
		t.Errorf("label = %s, want NEUTRAL", sig.Label)
	}
}

func TestMockSourceIsDeterministicPerSymbol(t *testing.T) {
	src := NewMockSource()
	a, err := src.Fetch(context.Background(), "RELIANCE")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	b, _ := src.Fetch(context.Background(), "RELIANCE")
	if a.Aggregate.LatestScore != b.Aggregate.LatestScore ||
		a.Aggregate.AverageScore != b.Aggregate.AverageScore {
		t.Error("same symbol should produce identical mock sentiment")
	}

	c, _ := src.Fetch(context.Background(), "TCS")
	if a.Aggregate.LatestScore == c.Aggregate.LatestScore {
		t.Error("different symbols should not share the same mock stream")
	}
	if len(a.Daily) != 7 {
		t.Errorf("daily entries = %d, want 7", len(a.Daily))
	}
	for _, d := range a.Daily {
		if d.Score < 0 || d.Score > 1 {
			t.Errorf("daily score %f out of [0,1]", d.Score)
		}
	}
}

type stubSource struct {
	rep   *Report
	err   error
	calls int
}

func (s *stubSource) Fetch(context.Context, string) (*Report, error) {
	s.calls++
	return s.rep, s.err
}

func TestSignalForUsesCache(t *testing.T) {
	src := &stubSource{rep: reportWith(0.7, 0.65, 60)}
	cache := NewMemoryCache()
	an := NewAnalyzer(src, cache, zerolog.Nop())

	if _, err := an.SignalFor(context.Background(), "INFY"); err != nil {
		t.Fatalf("SignalFor failed: %v", err)
	}
	if _, err := an.SignalFor(context.Background(), "INFY"); err != nil {
		t.Fatalf("SignalFor failed: %v", err)
	}
	if src.calls != 1 {
		t.Errorf("source called %d times, want 1 (second hit served from cache)", src.calls)
	}
}

func TestSignalForFetchErrorIsNeutral(t *testing.T) {
	src := &stubSource{err: errors.New("provider down")}
	an := NewAnalyzer(src, nil, zerolog.Nop())

	sig, err := an.SignalFor(context.Background(), "INFY")
	if err == nil {
		t.Fatal("expected error from failing source")
	}
	if sig.Label != types.SentimentNeutral {
		t.Errorf("label = %s, want NEUTRAL fallback", sig.Label)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	cache := NewMemoryCache()
	clock := time.Now()
	cache.now = func() time.Time { return clock }

	_ = cache.Set(context.Background(), "INFY", reportWith(0.7, 0.6, 10))
	if _, ok := cache.Get(context.Background(), "INFY"); !ok {
		t.Fatal("fresh entry should be served")
	}

	clock = clock.Add(25 * time.Hour)
	if _, ok := cache.Get(context.Background(), "INFY"); ok {
		t.Error("entry older than the TTL should not be served")
	}
}
