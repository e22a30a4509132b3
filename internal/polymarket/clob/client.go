// Package clob consumes Polymarket CLOB order book endpoints.
package clob

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mercuryhq/marketbridge/internal/cache"
	"github.com/mercuryhq/marketbridge/internal/price"
	"github.com/mercuryhq/marketbridge/pkg/httpclient"
)

const bookTTL = 5 * time.Second

type Client struct {
	http  *httpclient.Fallback
	cache cache.Cache
}

func New(http *httpclient.Fallback, c cache.Cache) *Client {
	return &Client{http: http, cache: c}
}

// BookLevel is one price level; price is a 0–1 decimal string, size a
// decimal share count.
type BookLevel struct {
	Price price.Price `json:"price"`
	Size  json.Number `json:"size"`
}

type Book struct {
	Market  string      `json:"market"`
	AssetID string      `json:"asset_id"`
	Bids    []BookLevel `json:"bids"`
	Asks    []BookLevel `json:"asks"`
}

// GetBook fetches the order book for a token.
func (c *Client) GetBook(ctx context.Context, tokenID string) (*Book, error) {
	endpoint := "/book?token_id=" + tokenID

	body, err := cache.Fetch(ctx, c.cache, "polymarket-clob:"+endpoint, bookTTL, func(ctx context.Context) ([]byte, error) {
		return c.http.Get(ctx, endpoint)
	})
	if err != nil {
		return nil, fmt.Errorf("couldn't get book for token %s: %w", tokenID, err)
	}

	book := &Book{}
	if err := json.Unmarshal(body, book); err != nil {
		return nil, fmt.Errorf("couldn't decode book for token %s: %w", tokenID, err)
	}
	return book, nil
}
