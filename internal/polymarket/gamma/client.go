// Package gamma consumes Polymarket gamma listing endpoints.
package gamma

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mercuryhq/marketbridge/internal/cache"
	"github.com/mercuryhq/marketbridge/internal/price"
	"github.com/mercuryhq/marketbridge/pkg/httpclient"
)

const (
	marketsTTL = 30 * time.Second
	eventsTTL  = 30 * time.Second

	listLimit = 100
)

type Client struct {
	http  *httpclient.Fallback
	cache cache.Cache
}

func New(http *httpclient.Fallback, c cache.Cache) *Client {
	return &Client{http: http, cache: c}
}

// StringArray handles the double-encoded JSON arrays the API returns
// for outcomes, outcomePrices and clobTokenIds.
type StringArray []string

func (a *StringArray) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*a = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*a = nil
		return nil
	}
	return json.Unmarshal([]byte(s), (*[]string)(a))
}

type Market struct {
	ID              string       `json:"id"`
	ConditionID     string       `json:"conditionId"`
	Question        string       `json:"question"`
	Slug            string       `json:"slug"`
	Active          bool         `json:"active"`
	Closed          bool         `json:"closed"`
	AcceptingOrders bool         `json:"acceptingOrders"`
	Outcomes        StringArray  `json:"outcomes"`
	OutcomePrices   StringArray  `json:"outcomePrices"`
	BestBid         *price.Price `json:"bestBid"`
	BestAsk         *price.Price `json:"bestAsk"`
	Volume24hr      float64      `json:"volume24hr"`
	VolumeNum       float64      `json:"volumeNum"`
	LiquidityNum    float64      `json:"liquidityNum"`
	EndDate         string       `json:"endDate"`
	ClobTokenIDs    StringArray  `json:"clobTokenIds"`
}

type Event struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Slug       string    `json:"slug"`
	Closed     bool      `json:"closed"`
	EndDate    string    `json:"endDate"`
	Volume24hr float64   `json:"volume24hr"`
	Markets    []*Market `json:"markets"`
}

// GetEvents returns the top open events (grouped listings) by 24h volume.
func (c *Client) GetEvents(ctx context.Context) ([]*Event, error) {
	endpoint := fmt.Sprintf("/events?closed=false&order=volume24hr&ascending=false&limit=%d", listLimit)

	body, err := cache.Fetch(ctx, c.cache, "polymarket:"+endpoint, eventsTTL, func(ctx context.Context) ([]byte, error) {
		return c.http.Get(ctx, endpoint)
	})
	if err != nil {
		return nil, fmt.Errorf("couldn't get events: %w", err)
	}

	var events []*Event
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("couldn't decode events: %w", err)
	}
	return events, nil
}

// GetMarkets returns the top open ungrouped markets by 24h volume.
func (c *Client) GetMarkets(ctx context.Context) ([]*Market, error) {
	endpoint := fmt.Sprintf("/markets?closed=false&order=volume24hr&ascending=false&limit=%d", listLimit)

	body, err := cache.Fetch(ctx, c.cache, "polymarket:"+endpoint, marketsTTL, func(ctx context.Context) ([]byte, error) {
		return c.http.Get(ctx, endpoint)
	})
	if err != nil {
		return nil, fmt.Errorf("couldn't get markets: %w", err)
	}

	var markets []*Market
	if err := json.Unmarshal(body, &markets); err != nil {
		return nil, fmt.Errorf("couldn't decode markets: %w", err)
	}
	return markets, nil
}
