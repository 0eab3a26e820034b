package lookup

import (
	"testing"

	"fx-impact-lab/internal/domain"
)

const minute = domain.MillisPerMinute

func samplesAt(offsets []int64, base int64) []*domain.PriceSample {
	out := make([]*domain.PriceSample, len(offsets))
	for i, off := range offsets {
		out[i] = &domain.PriceSample{Symbol: "EURUSD", TimestampMs: base + off*minute, Close: 1.1 + float64(i)*0.0001}
	}
	return out
}

func TestAnchorAt_EmptySlice(t *testing.T) {
	_, err := AnchorAt(1000, nil)
	if err != ErrNoPriceData {
		t.Errorf("expected ErrNoPriceData, got %v", err)
	}

	_, err = AnchorAt(1000, []*domain.PriceSample{})
	if err != ErrNoPriceData {
		t.Errorf("expected ErrNoPriceData, got %v", err)
	}
}

func TestAnchorAt_ExactMatch(t *testing.T) {
	prices := []*domain.PriceSample{
		{TimestampMs: 1000, Close: 1.0},
		{TimestampMs: 2000, Close: 2.0},
		{TimestampMs: 3000, Close: 3.0},
	}

	anchor, err := AnchorAt(2000, prices)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if anchor.Close != 2.0 {
		t.Errorf("expected 2.0, got %f", anchor.Close)
	}
}

func TestAnchorAt_BeforeTarget(t *testing.T) {
	prices := []*domain.PriceSample{
		{TimestampMs: 1000, Close: 1.0},
		{TimestampMs: 2000, Close: 2.0},
		{TimestampMs: 3000, Close: 3.0},
	}

	// Target 2500 should return price at 2000
	anchor, err := AnchorAt(2500, prices)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if anchor.Close != 2.0 {
		t.Errorf("expected 2.0, got %f", anchor.Close)
	}
}

func TestAnchorAt_BeforeFirst(t *testing.T) {
	prices := []*domain.PriceSample{
		{TimestampMs: 1000, Close: 1.0},
		{TimestampMs: 2000, Close: 2.0},
	}

	// Event predates coverage: no fallback to the first price
	_, err := AnchorAt(500, prices)
	if err != ErrMissingAnchor {
		t.Errorf("expected ErrMissingAnchor, got %v", err)
	}
}

func TestAnchorAt_AfterLast(t *testing.T) {
	prices := []*domain.PriceSample{
		{TimestampMs: 1000, Close: 1.0},
		{TimestampMs: 2000, Close: 2.0},
		{TimestampMs: 3000, Close: 3.0},
	}

	anchor, err := AnchorAt(5000, prices)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if anchor.Close != 3.0 {
		t.Errorf("expected 3.0, got %f", anchor.Close)
	}
}

func TestWindow_HalfOpenInterval(t *testing.T) {
	base := int64(1_700_000_000_000)
	// samples at -1, 0, 1, 2, 3, 5, 6 minutes
	prices := samplesAt([]int64{-1, 0, 1, 2, 3, 5, 6}, base)

	win, err := Window(base, 5, prices, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// (base, base+5m] -> 1, 2, 3, 5
	if len(win) != 4 {
		t.Fatalf("expected 4 samples, got %d", len(win))
	}
	if win[0].TimestampMs != base+1*minute {
		t.Errorf("first sample should be at +1m, got %d", win[0].TimestampMs-base)
	}
	if win[3].TimestampMs != base+5*minute {
		t.Errorf("last sample should be at +5m (inclusive), got %d", win[3].TimestampMs-base)
	}
}

func TestWindow_Insufficient(t *testing.T) {
	base := int64(1_700_000_000_000)
	prices := samplesAt([]int64{0, 1, 2, 30}, base)

	_, err := Window(base, 5, prices, 3)
	if err != ErrInsufficientWindow {
		t.Errorf("expected ErrInsufficientWindow, got %v", err)
	}
}

func TestWindow_ZeroLength(t *testing.T) {
	base := int64(1_700_000_000_000)
	prices := samplesAt([]int64{0, 1, 2}, base)

	// Zero minimum still rejects an empty slice
	_, err := Window(base, 0, prices, 0)
	if err != ErrInsufficientWindow {
		t.Errorf("expected ErrInsufficientWindow, got %v", err)
	}

	_, err = Window(base, 10, nil, DefaultMinWindowSamples)
	if err != ErrInsufficientWindow {
		t.Errorf("expected ErrInsufficientWindow for empty feed, got %v", err)
	}
}

func TestValidateOrdered(t *testing.T) {
	ok := samplesAt([]int64{0, 1, 2}, 0)
	if err := ValidateOrdered(ok); err != nil {
		t.Errorf("expected ordered, got %v", err)
	}

	dup := samplesAt([]int64{0, 1, 1}, 0)
	if err := ValidateOrdered(dup); err != ErrUnorderedSamples {
		t.Errorf("expected ErrUnorderedSamples for duplicate, got %v", err)
	}

	back := samplesAt([]int64{0, 2, 1}, 0)
	if err := ValidateOrdered(back); err != ErrUnorderedSamples {
		t.Errorf("expected ErrUnorderedSamples for backwards, got %v", err)
	}

	if err := ValidateOrdered(nil); err != nil {
		t.Errorf("expected nil for empty, got %v", err)
	}
}
