package usecase

import (
	"testing"
	"time"

	"TradeCore/internal/domain/models"
)

func TestGuardAcceptsFreshSignal(t *testing.T) {
	g := NewSignalGuard(5*time.Minute, 30*time.Minute, 100)
	defer g.Close()

	d := g.Check(testSignal("AAPL"))
	if !d.OK {
		t.Fatalf("fresh signal rejected: %+v", d)
	}
}

func TestGuardRejectsStaleSignal(t *testing.T) {
	g := NewSignalGuard(5*time.Minute, 30*time.Minute, 100)
	defer g.Close()
	now := time.Now()
	g.SetClock(func() time.Time { return now })

	sig := testSignal("AAPL")
	sig.GeneratedAt = now.Add(-6 * time.Minute)

	d := g.Check(sig)
	if d.OK {
		t.Fatalf("stale signal accepted")
	}
	if d.Reason != models.ReasonStaleSignal {
		t.Fatalf("expected stale_signal, got %s", d.Reason)
	}
}

func TestGuardRejectsDuplicateWithinWindow(t *testing.T) {
	g := NewSignalGuard(5*time.Minute, 30*time.Minute, 100)
	defer g.Close()

	sig := testSignal("AAPL")
	if d := g.Check(sig); !d.OK {
		t.Fatalf("first signal rejected: %+v", d)
	}
	d := g.Check(testSignal("AAPL"))
	if d.OK {
		t.Fatalf("duplicate accepted")
	}
	if d.Reason != models.ReasonDuplicateSignal {
		t.Fatalf("expected duplicate_signal, got %s", d.Reason)
	}
}

func TestGuardDistinguishesDedupKeys(t *testing.T) {
	g := NewSignalGuard(5*time.Minute, 30*time.Minute, 100)
	defer g.Close()

	if d := g.Check(testSignal("AAPL")); !d.OK {
		t.Fatalf("first rejected: %+v", d)
	}
	short := testSignal("AAPL")
	short.Direction = models.DirectionShort
	if d := g.Check(short); !d.OK {
		t.Fatalf("different direction must not be a duplicate: %+v", d)
	}
	if d := g.Check(testSignal("MSFT")); !d.OK {
		t.Fatalf("different ticker must not be a duplicate: %+v", d)
	}
}

func TestGuardExplicitDedupKeyWins(t *testing.T) {
	g := NewSignalGuard(5*time.Minute, 30*time.Minute, 100)
	defer g.Close()

	a := testSignal("AAPL")
	a.DedupKey = "producer-key-1"
	b := testSignal("MSFT")
	b.DedupKey = "producer-key-1"

	if d := g.Check(a); !d.OK {
		t.Fatalf("first rejected: %+v", d)
	}
	if d := g.Check(b); d.OK {
		t.Fatalf("same producer key must dedup across tickers")
	}
}
