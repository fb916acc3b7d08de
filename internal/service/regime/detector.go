package regime

import (
	"context"
	"fmt"
	"time"

	"TradeCore/internal/domain/models"
	domrepo "TradeCore/internal/domain/repository"
	pkgcache "TradeCore/pkg/cache"
	xhttp "TradeCore/pkg/http"
)

// HTTPDetector classifies market conditions by posting recent returns to an
// external regime service. Responses are cached for a short TTL since the
// regime moves far slower than the signal rate. The capability is optional:
// construct it only when a service URL is configured.
type HTTPDetector struct {
	baseURL  string
	client   *xhttp.Client
	cache    pkgcache.Service
	cacheTTL time.Duration
}

// Option configures the detector.
type Option func(*HTTPDetector)

// WithCache layers a cache in front of the service (memory or layered Redis).
func WithCache(c pkgcache.Service, ttl time.Duration) Option {
	return func(d *HTTPDetector) {
		d.cache = c
		d.cacheTTL = ttl
	}
}

// New creates an HTTP regime detector.
func New(baseURL string, timeout time.Duration, opts ...Option) *HTTPDetector {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	d := &HTTPDetector{
		baseURL:  baseURL,
		client:   xhttp.NewClient(xhttp.WithTimeout(timeout)),
		cacheTTL: time.Minute,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type detectRequest struct {
	Ticker  string    `json:"ticker"`
	Returns []float64 `json:"returns"`
}

type detectResponse struct {
	Regime     string  `json:"regime"`
	Confidence float64 `json:"confidence"`
}

// Detect classifies the current regime for ticker.
func (d *HTTPDetector) Detect(ctx context.Context, ticker string, returns []float64) (models.Regime, error) {
	cacheKey := "regime:" + ticker
	if d.cache != nil {
		var cached string
		if err := d.cache.Get(ctx, cacheKey, &cached); err == nil && cached != "" {
			return models.Regime(cached), nil
		}
	}

	var rr detectResponse
	err := d.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    d.baseURL + "/regime/detect",
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: detectRequest{Ticker: ticker, Returns: returns},
	}, &rr)
	if err != nil {
		return "", fmt.Errorf("post regime: %w", err)
	}

	regime, err := parseRegime(rr.Regime)
	if err != nil {
		return "", err
	}
	if d.cache != nil {
		_ = d.cache.Set(ctx, cacheKey, string(regime), d.cacheTTL)
	}
	return regime, nil
}

func parseRegime(s string) (models.Regime, error) {
	switch models.Regime(s) {
	case models.RegimeBull, models.RegimeSideways, models.RegimeBear, models.RegimeCrisis:
		return models.Regime(s), nil
	}
	return "", fmt.Errorf("unknown regime %q", s)
}

var _ domrepo.RegimeDetector = (*HTTPDetector)(nil)
