package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"StructPulse/internal/domain/models"
	drepo "StructPulse/internal/domain/repository"
	"StructPulse/internal/market"

	"github.com/gorilla/websocket"
)

// Client implements a CandleStream over a trade-tick WebSocket feed. Ticks
// are aggregated per symbol into base-resolution candles; only closed candles
// reach the consumer.
type Client struct {
	apiKey         string
	websocketURL   string
	symbols        []string
	tf             drepo.Timeframe
	reconnectDelay time.Duration
	pingInterval   time.Duration

	conn      *websocket.Conn
	connected bool
	builders  map[string]*market.CandleBuilder
}

// New creates a CandleStream aggregating the feed at tf resolution.
func New(apiKey, websocketURL string, symbols []string, tf drepo.Timeframe, reconnectDelay, pingInterval time.Duration) drepo.CandleStream {
	return &Client{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		symbols:        symbols,
		tf:             tf,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		builders:       make(map[string]*market.CandleBuilder),
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", c.websocketURL, c.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("feed connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	log.Printf("feed: connected")
	return nil
}

// Subscribe subscribes to configured symbols.
func (c *Client) Subscribe(ctx context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("feed not connected")
	}
	for _, s := range c.symbols {
		msg := map[string]string{"type": "subscribe", "symbol": s}
		if err := c.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", s, err)
		}
		log.Printf("feed: subscribed %s", s)
	}
	return nil
}

type wsTick struct {
	S string  `json:"s"`
	P float64 `json:"p"`
	V int64   `json:"v"`
	T int64   `json:"t"` // ms
}

type wsMessage struct {
	Type string   `json:"type"`
	Data []wsTick `json:"data"`
}

// Read streams closed candles and errors.
func (c *Client) Read(ctx context.Context) (<-chan *models.Candle, <-chan error) {
	candles := make(chan *models.Candle, 256)
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
		defer close(candles)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if c.conn == nil {
					errs <- fmt.Errorf("feed conn nil")
					return
				}
				_, b, err := c.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("feed read: %w", err)
					return
				}
				var m wsMessage
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore non-trade frames
					continue
				}
				if m.Type != "trade" {
					continue
				}
				for _, d := range m.Data {
					closed := c.fold(d)
					if closed == nil {
						continue
					}
					select {
					case candles <- closed:
					default:
						// drop on backpressure
					}
				}
			}
		}
	}()

	return candles, errs
}

// fold routes one tick into its symbol's builder.
func (c *Client) fold(d wsTick) *models.Candle {
	b, ok := c.builders[d.S]
	if !ok {
		b = market.NewCandleBuilder(d.S, c.tf)
		c.builders[d.S] = b
	}
	return b.AddTick(models.Tick{
		Symbol:    d.S,
		Timestamp: d.T / 1000,
		Price:     d.P,
		Volume:    d.V,
	})
}

// Reconnect closes and reconnects. In-progress buckets survive; aggregation
// resumes where the tick stream left off.
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
