// Package stream consumes Polymarket's market websocket channel for
// live trade prices between REST refresh cycles.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	handshakeTimeout    = 30 * time.Second
	defaultCloseTimeout = 5 * time.Second
	defaultWriteTimeout = 10 * time.Second
	pingInterval        = 50 * time.Second
)

type Client struct {
	conn     *websocket.Conn
	stopPing chan struct{}
	logger   *slog.Logger
}

type marketSubscription struct {
	AssetsIDs   []string `json:"assets_ids"`
	Type        string   `json:"type"`
	InitialDump *bool    `json:"initial_dump"`
}

// Dial connects to the market channel at url and starts a keepalive
// ping loop.
func Dial(ctx context.Context, url string, logger *slog.Logger) (*Client, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
	}

	conn, resp, err := dialer.DialContext(ctx, url, http.Header{})
	if err != nil {
		return nil, fmt.Errorf("couldn't dial %s: %w", url, err)
	}

	c := &Client{
		conn:     conn,
		stopPing: make(chan struct{}),
		logger:   logger.With("component", "stream"),
	}
	c.logger.Info("connected to market channel", "url", url, "status", resp.Status)
	go c.pingLoop()

	return c, nil
}

func (c *Client) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopPing:
			return
		case <-ticker.C:
			deadline := time.Now().Add(defaultWriteTimeout)
			if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.logger.Warn("couldn't send ping", "error", err)
				return
			}
		}
	}
}

func (c *Client) Close(ctx context.Context) error {
	close(c.stopPing)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultCloseTimeout)
	}

	err := c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		deadline,
	)
	if err != nil {
		c.logger.Warn("couldn't send close message", "error", err)
	}

	return c.conn.Close()
}

// SubscribeMarket subscribes to trade and book events for tokenIDs on
// the unauthenticated market channel.
func (c *Client) SubscribeMarket(ctx context.Context, tokenIDs []string, initialDump bool) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultWriteTimeout)
	}
	c.conn.SetWriteDeadline(deadline)

	sub := marketSubscription{
		AssetsIDs:   tokenIDs,
		Type:        "market",
		InitialDump: &initialDump,
	}
	return c.conn.WriteJSON(sub)
}

type result struct {
	RawMessage []byte
	Error      error
}

// ReadMessage blocks for the next parsed message or context
// cancellation.
func (c *Client) ReadMessage(ctx context.Context) (*Message, error) {
	resultCh := make(chan result, 1)

	go func() {
		_, msg, err := c.conn.ReadMessage()
		resultCh <- result{
			RawMessage: msg,
			Error:      err,
		}
	}()

	select {
	case <-ctx.Done():
		if err := c.conn.SetReadDeadline(time.Now()); err != nil {
			c.logger.Warn("couldn't set read deadline", "error", err)
		}
		return nil, fmt.Errorf("reading message: %w", ctx.Err())
	case result := <-resultCh:
		if result.Error != nil {
			return nil, fmt.Errorf("couldn't read message: %w", result.Error)
		}
		msg, err := ParseMessage(result.RawMessage)
		if err != nil {
			return nil, fmt.Errorf("couldn't parse message: %w", err)
		}
		return msg, nil
	}
}

const (
	LastTradePriceEvent = "last_trade_price"
	PriceChangeEvent    = "price_change"
	BestBidAskEvent     = "best_bid_ask"
)

type Message struct {
	EventType      string `json:"event_type"`
	LastTradePrice *LastTradePrice
	PriceChange    *PriceChange
	BestBidAsk     *BestBidAsk
}

type LastTradePrice struct {
	AssetID   string `json:"asset_id"`
	Market    string `json:"market"`
	Price     string `json:"price"`
	Side      string `json:"side"`
	Size      string `json:"size"`
	Timestamp string `json:"timestamp"`
}

type PriceChange struct {
	AssetID string `json:"asset_id"`
	Price   string `json:"price"`
	Size    string `json:"size"`
	Side    string `json:"side"`
	BestBid string `json:"best_bid"`
	BestAsk string `json:"best_ask"`
}

type BestBidAsk struct {
	Market    string `json:"market"`
	AssetID   string `json:"asset_id"`
	BestBid   string `json:"best_bid"`
	BestAsk   string `json:"best_ask"`
	Spread    string `json:"spread"`
	Timestamp string `json:"timestamp"`
}

// ParseMessage decodes one frame. Event types this package doesn't
// consume come back with only EventType set; the caller skips them.
func ParseMessage(msg []byte) (*Message, error) {
	base := &Message{}
	if err := json.Unmarshal(msg, base); err != nil {
		return nil, fmt.Errorf("couldn't parse base message: %w", err)
	}

	switch base.EventType {
	case LastTradePriceEvent:
		ltp := &LastTradePrice{}
		if err := json.Unmarshal(msg, ltp); err != nil {
			return nil, fmt.Errorf("couldn't parse last trade price event: %w", err)
		}
		return &Message{EventType: LastTradePriceEvent, LastTradePrice: ltp}, nil
	case PriceChangeEvent:
		pc := &PriceChange{}
		if err := json.Unmarshal(msg, pc); err != nil {
			return nil, fmt.Errorf("couldn't parse price change event: %w", err)
		}
		return &Message{EventType: PriceChangeEvent, PriceChange: pc}, nil
	case BestBidAskEvent:
		bba := &BestBidAsk{}
		if err := json.Unmarshal(msg, bba); err != nil {
			return nil, fmt.Errorf("couldn't parse best bid ask event: %w", err)
		}
		return &Message{EventType: BestBidAskEvent, BestBidAsk: bba}, nil
	default:
		return base, nil
	}
}
