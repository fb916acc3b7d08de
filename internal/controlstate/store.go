package controlstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"TradeCore/internal/domain/models"
	applogger "TradeCore/pkg/logger"
	"TradeCore/pkg/util"
)

// ErrPersistence marks a failed durable write of safety state. The orchestrator
// treats any error wrapping it as fatal for the current pipeline cycle.
var ErrPersistence = errors.New("control state persistence")

// Store owns the durable safety state: kill switch, daily P&L counters, and
// circuit breaker status. Every mutation is persisted with a
// write-to-temporary-then-rename so a crash mid-write cannot corrupt the
// previous consistent state. No other component mutates this state directly.
type Store struct {
	mu    sync.Mutex
	path  string
	loc   *time.Location
	clock func() time.Time
	state models.ControlState
	l     *applogger.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source (tests).
func WithClock(clock func() time.Time) Option {
	return func(s *Store) { s.clock = clock }
}

// WithLogger injects a structured logger.
func WithLogger(l *applogger.Logger) Option {
	return func(s *Store) { s.l = l }
}

// New loads the store from path, initializing safe defaults when no state
// exists. A present-but-unreadable file is an error: silently discarding a
// possibly-active kill switch is not safe.
func New(path string, loc *time.Location, opts ...Option) (*Store, error) {
	if loc == nil {
		loc = time.UTC
	}
	s := &Store{
		path:  path,
		loc:   loc,
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.state = defaults(util.TradingDay(s.clock(), loc))
	case err != nil:
		return nil, fmt.Errorf("read control state: %w", err)
	default:
		if err := json.Unmarshal(b, &s.state); err != nil {
			return nil, fmt.Errorf("parse control state %s: %w", path, err)
		}
		if s.state.CircuitBreakerStatus == "" {
			s.state.CircuitBreakerStatus = models.CircuitClosed
		}
	}
	return s, nil
}

func defaults(day string) models.ControlState {
	return models.ControlState{
		CircuitBreakerStatus: models.CircuitClosed,
		DailyDate:            day,
	}
}

// Snapshot returns a copy of the current state after lazy day rollover.
// The rollover itself is persisted; a persistence failure surfaces here
// because serving stale daily counters as fresh ones is unsafe.
func (s *Store) Snapshot() (models.ControlState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.rolloverLocked(); err != nil {
		return models.ControlState{}, err
	}
	return s.state, nil
}

// ActivateKillSwitch durably sets the kill switch.
func (s *Store) ActivateKillSwitch(reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.rolloverLocked(); err != nil {
		return err
	}
	s.state.KillSwitchActive = true
	s.state.KillSwitchReason = reason
	if err := s.persistLocked(); err != nil {
		return err
	}
	if s.l != nil {
		s.l.Warn("kill switch activated", applogger.String("reason", reason))
	}
	return nil
}

// DeactivateKillSwitch durably clears the kill switch.
func (s *Store) DeactivateKillSwitch() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.rolloverLocked(); err != nil {
		return err
	}
	s.state.KillSwitchActive = false
	s.state.KillSwitchReason = ""
	if err := s.persistLocked(); err != nil {
		return err
	}
	if s.l != nil {
		s.l.Info("kill switch deactivated")
	}
	return nil
}

// RecordTradePnL applies a realized P&L delta to the daily and total counters.
func (s *Store) RecordTradePnL(delta float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.rolloverLocked(); err != nil {
		return err
	}
	now := s.clock()
	s.state.DailyPnL += delta
	s.state.TotalRealizedPnL += delta
	s.state.LastTradeTime = &now
	return s.persistLocked()
}

// RecordTrade bumps the daily trade counter and last trade time.
func (s *Store) RecordTrade() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.rolloverLocked(); err != nil {
		return err
	}
	now := s.clock()
	s.state.DailyTradeCount++
	s.state.LastTradeTime = &now
	return s.persistLocked()
}

// RecordSignal records the time of the last accepted signal.
func (s *Store) RecordSignal() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.rolloverLocked(); err != nil {
		return err
	}
	now := s.clock()
	s.state.LastSignalTime = &now
	return s.persistLocked()
}

// SetCircuitBreaker durably updates the broker-health circuit breaker.
func (s *Store) SetCircuitBreaker(status models.CircuitBreakerStatus, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.rolloverLocked(); err != nil {
		return err
	}
	s.state.CircuitBreakerStatus = status
	s.state.CircuitBreakerReason = reason
	if err := s.persistLocked(); err != nil {
		return err
	}
	if s.l != nil {
		s.l.Info("circuit breaker updated",
			applogger.String("status", string(status)),
			applogger.String("reason", reason),
		)
	}
	return nil
}

// rolloverLocked resets daily counters when the stored trading day no longer
// matches the calendar. Evaluated lazily on every access; a long-idle process
// rolls over on its next access, not on a timer.
func (s *Store) rolloverLocked() error {
	day := util.TradingDay(s.clock(), s.loc)
	if s.state.DailyDate == day {
		return nil
	}
	s.state.DailyPnL = 0
	s.state.DailyTradeCount = 0
	s.state.DailyDate = day
	return s.persistLocked()
}

// persistLocked writes the state to a sibling temp file and atomically renames
// it over the target. The previous valid file stays readable until the rename.
func (s *Store) persistLocked() error {
	b, err := json.MarshalIndent(&s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", ErrPersistence, err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: mkdir %s: %v", ErrPersistence, dir, err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrPersistence, tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("%w: rename %s: %v", ErrPersistence, tmp, err)
	}
	return nil
}
