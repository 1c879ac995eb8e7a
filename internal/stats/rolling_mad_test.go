package stats

import (
	"testing"
	"time"
)

func TestIdenticalValuesZeroZScore(t *testing.T) {
	r := New(300)
	now := time.Now()
	var s Summary
	for i := 0; i < 10; i++ {
		s = r.Update("spread_bps", 5.0, now.Add(time.Duration(i)*time.Second))
	}
	if s.Z != 0 {
		t.Fatalf("expected z=0 for identical values regardless of count, got %f", s.Z)
	}
}

func TestSingleSampleZeroZScore(t *testing.T) {
	r := New(300)
	s := r.Update("x", 42.0, time.Now())
	if s.Z != 0 {
		t.Fatalf("expected z=0 for count<2, got %f", s.Z)
	}
	if s.Count != 1 {
		t.Fatalf("expected count=1, got %d", s.Count)
	}
}

func TestEvictionDropsOldEntries(t *testing.T) {
	r := New(10)
	base := time.Now()
	r.Update("x", 1.0, base)
	s := r.Update("x", 100.0, base.Add(20*time.Second))
	if s.Count != 1 {
		t.Fatalf("expected eviction to leave count=1, got %d", s.Count)
	}
}

func TestIndependentSeries(t *testing.T) {
	r := New(300)
	now := time.Now()
	r.Update("a", 1.0, now)
	r.Update("b", 1000.0, now)
	sa := r.Summary("a")
	sb := r.Summary("b")
	if sa.Median == sb.Median {
		t.Fatalf("expected independent series to have distinct medians")
	}
}

func TestZScoreDetectsOutlier(t *testing.T) {
	r := New(300)
	base := time.Now()
	// Alternate 4 and 6 so the baseline has a non-zero MAD; an all-equal
	// baseline has MAD=0, for which z is defined as 0.
	for i := 0; i < 20; i++ {
		r.Update("x", 4.0+2.0*float64(i%2), base.Add(time.Duration(i)*time.Second))
	}
	s := r.Update("x", 50.0, base.Add(21*time.Second))
	if s.Z <= 1 {
		t.Fatalf("expected a clear outlier to produce z>1, got %f", s.Z)
	}
}
