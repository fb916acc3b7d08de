package util

import (
	"testing"
	"time"
)

func TestTradingDayUTCDefault(t *testing.T) {
	at := time.Date(2025, 6, 2, 23, 59, 0, 0, time.UTC)
	if got := TradingDay(at, nil); got != "2025-06-02" {
		t.Fatalf("got %q, want 2025-06-02", got)
	}
}

func TestTradingDayUsesLocation(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	// 02:00 UTC is still the previous evening in New York.
	at := time.Date(2025, 6, 3, 2, 0, 0, 0, time.UTC)
	if got := TradingDay(at, ny); got != "2025-06-02" {
		t.Fatalf("got %q, want 2025-06-02", got)
	}
	if got := TradingDay(at, time.UTC); got != "2025-06-03" {
		t.Fatalf("got %q, want 2025-06-03", got)
	}
}
