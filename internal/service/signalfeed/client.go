package signalfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"TradeCore/internal/domain/models"
	drepo "TradeCore/internal/domain/repository"
	applogger "TradeCore/pkg/logger"
)

// Client implements a SignalStream backed by a WebSocket signal feed. The
// producer pushes JSON frames with a type tag; only "signal" frames carry
// trade intents.
type Client struct {
	token          string
	websocketURL   string
	tickers        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	l              *applogger.Logger

	conn      *websocket.Conn
	connected bool
}

// New creates a WebSocket signal stream.
func New(token, websocketURL string, tickers []string, reconnectDelay, pingInterval time.Duration, l *applogger.Logger) drepo.SignalStream {
	return &Client{
		token:          token,
		websocketURL:   websocketURL,
		tickers:        tickers,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		l:              l,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := c.websocketURL
	if c.token != "" {
		u = fmt.Sprintf("%s?token=%s", c.websocketURL, c.token)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("signalfeed connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	if c.l != nil {
		c.l.Info("signal feed connected", applogger.String("url", c.websocketURL))
	}
	return nil
}

// Subscribe subscribes to configured tickers.
func (c *Client) Subscribe(ctx context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("signalfeed not connected")
	}
	for _, t := range c.tickers {
		msg := map[string]string{"type": "subscribe", "ticker": t}
		if err := c.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", t, err)
		}
	}
	if c.l != nil {
		c.l.Info("signal feed subscribed", applogger.Strings("tickers", c.tickers))
	}
	return nil
}

type feedMessage struct {
	Type string              `json:"type"`
	Data *models.TradeSignal `json:"data"`
}

// Read streams signals and errors.
func (c *Client) Read(ctx context.Context) (<-chan *models.TradeSignal, <-chan error) {
	signals := make(chan *models.TradeSignal, 256)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if c.conn != nil {
					_ = c.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(signals)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if c.conn == nil {
					errs <- fmt.Errorf("signalfeed conn nil")
					return
				}
				_, b, err := c.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("signalfeed read: %w", err)
					return
				}
				var m feedMessage
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore non-signal frames
					continue
				}
				if m.Type != "signal" || m.Data == nil {
					continue
				}
				select {
				case signals <- m.Data:
				default:
					// drop on backpressure; the guard dedups replays anyway
				}
			}
		}
	}()

	return signals, errs
}

// Reconnect closes and reconnects.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	time.Sleep(c.reconnectDelay)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool { return c.connected }
