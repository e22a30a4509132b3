package orderbook

import (
	"context"
	"fmt"

	"github.com/mercuryhq/marketbridge/internal/kalshi/api"
	"github.com/mercuryhq/marketbridge/internal/polymarket/clob"
)

// DefaultDepth is how many levels per side the dashboard shows.
const DefaultDepth = 10

// Depth is a point-in-time ladder for one market, best prices first on
// both sides.
type Depth struct {
	Source string  `json:"source"`
	Bids   []Level `json:"bids"`
	Asks   []Level `json:"asks"`
}

// Service builds depth views on demand from the exchanges' REST book
// endpoints. Books are not kept between requests; each call reflects
// whatever the cache layer under the clients currently holds.
type Service struct {
	clob   *clob.Client
	kalshi *api.Client
}

func NewService(clobClient *clob.Client, kalshiClient *api.Client) *Service {
	return &Service{clob: clobClient, kalshi: kalshiClient}
}

// Snapshot fetches the book for a market, preferring the Polymarket
// CLOB when a token id is known and falling back to the Kalshi ticker.
func (s *Service) Snapshot(ctx context.Context, tokenID, kalshiTicker string, depth int) (*Depth, error) {
	if depth <= 0 {
		depth = DefaultDepth
	}

	switch {
	case tokenID != "" && s.clob != nil:
		return s.polymarketDepth(ctx, tokenID, depth)
	case kalshiTicker != "" && s.kalshi != nil:
		return s.kalshiDepth(ctx, kalshiTicker, depth)
	default:
		return nil, fmt.Errorf("no book source for market")
	}
}

func (s *Service) polymarketDepth(ctx context.Context, tokenID string, depth int) (*Depth, error) {
	book, err := s.clob.GetBook(ctx, tokenID)
	if err != nil {
		return nil, fmt.Errorf("couldn't fetch clob book: %w", err)
	}

	b := New()
	for _, lvl := range book.Bids {
		size, _ := lvl.Size.Float64()
		if err := b.Set("bids", lvl.Price.Cents(), size); err != nil {
			return nil, err
		}
	}
	for _, lvl := range book.Asks {
		size, _ := lvl.Size.Float64()
		if err := b.Set("asks", lvl.Price.Cents(), size); err != nil {
			return nil, err
		}
	}

	return collect(b, "polymarket", depth)
}

// kalshiDepth converts Kalshi's yes/no ladders into a yes-side book:
// yes bids map directly, and a no bid at price p is a yes ask at 100-p.
func (s *Service) kalshiDepth(ctx context.Context, ticker string, depth int) (*Depth, error) {
	book, err := s.kalshi.GetOrderbook(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("couldn't fetch kalshi book: %w", err)
	}

	b := New()
	for _, lvl := range book.Yes {
		if len(lvl) < 2 {
			continue
		}
		if err := b.Set("bids", lvl[0], float64(lvl[1])); err != nil {
			return nil, err
		}
	}
	for _, lvl := range book.No {
		if len(lvl) < 2 {
			continue
		}
		if err := b.Set("asks", 100-lvl[0], float64(lvl[1])); err != nil {
			return nil, err
		}
	}

	return collect(b, "kalshi", depth)
}

func collect(b *Book, source string, depth int) (*Depth, error) {
	bids, err := b.TopN("bids", depth)
	if err != nil {
		return nil, err
	}
	asks, err := b.TopN("asks", depth)
	if err != nil {
		return nil, err
	}
	return &Depth{Source: source, Bids: bids, Asks: asks}, nil
}
