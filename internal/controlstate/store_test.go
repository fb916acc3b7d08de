package controlstate

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"TradeCore/internal/domain/models"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestNewDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	day := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

	s, err := New(path, time.UTC, WithClock(fixedClock(day)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	snap, err := s.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.KillSwitchActive {
		t.Fatalf("fresh state must not have kill switch active")
	}
	if snap.CircuitBreakerStatus != models.CircuitClosed {
		t.Fatalf("expected closed circuit breaker, got %s", snap.CircuitBreakerStatus)
	}
	if snap.DailyDate != "2025-06-02" {
		t.Fatalf("unexpected daily date %s", snap.DailyDate)
	}
}

func TestPersistAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

	s, err := New(path, time.UTC, WithClock(fixedClock(now)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.ActivateKillSwitch("manual halt"); err != nil {
		t.Fatalf("ActivateKillSwitch: %v", err)
	}
	if err := s.RecordTradePnL(-1234.5); err != nil {
		t.Fatalf("RecordTradePnL: %v", err)
	}

	// A fresh store on the same path must observe the persisted state.
	s2, err := New(path, time.UTC, WithClock(fixedClock(now)))
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	snap, err := s2.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if !snap.KillSwitchActive || snap.KillSwitchReason != "manual halt" {
		t.Fatalf("kill switch not restored: %+v", snap)
	}
	if snap.DailyPnL != -1234.5 {
		t.Fatalf("daily pnl not restored: %v", snap.DailyPnL)
	}
	if snap.TotalRealizedPnL != -1234.5 {
		t.Fatalf("total pnl not restored: %v", snap.TotalRealizedPnL)
	}
}

func TestCorruptFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := New(path, time.UTC); err == nil {
		t.Fatalf("expected error for unreadable state file")
	}
}

func TestDayRolloverResetsDailyCounters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	day1 := time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC)
	now := day1

	s, err := New(path, time.UTC, WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.RecordTradePnL(-500); err != nil {
		t.Fatalf("RecordTradePnL: %v", err)
	}
	if err := s.RecordTrade(); err != nil {
		t.Fatalf("RecordTrade: %v", err)
	}

	now = day1.Add(24 * time.Hour)
	snap, err := s.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.DailyPnL != 0 || snap.DailyTradeCount != 0 {
		t.Fatalf("daily counters not reset: pnl=%v count=%d", snap.DailyPnL, snap.DailyTradeCount)
	}
	if snap.TotalRealizedPnL != -500 {
		t.Fatalf("total pnl must survive rollover, got %v", snap.TotalRealizedPnL)
	}
	if snap.DailyDate != "2025-06-03" {
		t.Fatalf("unexpected daily date %s", snap.DailyDate)
	}
}

func TestRolloverDoesNotClearKillSwitch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	now := time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC)

	s, err := New(path, time.UTC, WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.ActivateKillSwitch("loss limit"); err != nil {
		t.Fatalf("ActivateKillSwitch: %v", err)
	}

	now = now.Add(48 * time.Hour)
	snap, err := s.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if !snap.KillSwitchActive {
		t.Fatalf("kill switch must survive day rollover")
	}
}

func TestPersistedFileIsValidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s, err := New(path, time.UTC)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.SetCircuitBreaker(models.CircuitOpen, "broker down"); err != nil {
		t.Fatalf("SetCircuitBreaker: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read persisted file: %v", err)
	}
	var st models.ControlState
	if err := json.Unmarshal(b, &st); err != nil {
		t.Fatalf("persisted file not valid JSON: %v", err)
	}
	if st.CircuitBreakerStatus != models.CircuitOpen {
		t.Fatalf("circuit status not persisted: %s", st.CircuitBreakerStatus)
	}
	if _, err := os.Stat(path + ".tmp"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("temp file must not remain after rename")
	}
}

func TestDeactivateKillSwitch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s, err := New(path, time.UTC)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.ActivateKillSwitch("x"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if err := s.DeactivateKillSwitch(); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	snap, err := s.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.KillSwitchActive || snap.KillSwitchReason != "" {
		t.Fatalf("kill switch not cleared: %+v", snap)
	}
}
