package usecase

import (
	"fmt"
	"time"

	"TradeCore/internal/domain/models"
	icache "TradeCore/internal/service/cache"
)

// SignalGuard rejects stale or duplicate signals before any resource is
// committed. Its only state is a bounded in-memory dedup cache; losing it on
// restart at worst lets an occasional duplicate through.
type SignalGuard struct {
	maxAge time.Duration
	window time.Duration
	seen   *icache.TTLCache
	clock  func() time.Time
}

// NewSignalGuard creates a guard with the given freshness and dedup windows.
func NewSignalGuard(maxAge, window time.Duration, maxEntries int) *SignalGuard {
	return &SignalGuard{
		maxAge: maxAge,
		window: window,
		seen:   icache.NewTTLCache(maxEntries, time.Minute),
		clock:  time.Now,
	}
}

// SetClock overrides the time source (tests).
func (g *SignalGuard) SetClock(clock func() time.Time) { g.clock = clock }

// Check validates freshness and uniqueness. An accepted signal's dedup key is
// recorded for the configured window.
func (g *SignalGuard) Check(sig *models.TradeSignal) models.GuardDecision {
	now := g.clock()

	if age := now.Sub(sig.GeneratedAt); age > g.maxAge {
		return models.GuardDecision{
			OK:      false,
			Reason:  models.ReasonStaleSignal,
			Message: fmt.Sprintf("signal for %s is %s old, max age %s", sig.Ticker, age.Round(time.Second), g.maxAge),
		}
	}

	key := sig.Key()
	if _, dup := g.seen.Get(key); dup {
		return models.GuardDecision{
			OK:      false,
			Reason:  models.ReasonDuplicateSignal,
			Message: fmt.Sprintf("duplicate signal %s within dedup window %s", key, g.window),
		}
	}
	g.seen.Set(key, now, g.window)

	return models.GuardDecision{OK: true}
}

// Close releases the dedup cache janitor.
func (g *SignalGuard) Close() { g.seen.Close() }
