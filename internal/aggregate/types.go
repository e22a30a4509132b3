// Package aggregate merges Polymarket and Kalshi listings into one
// deduplicated market view with cross-source spreads.
package aggregate

import (
	"fmt"
	"time"
)

// Source identifies an upstream exchange.
type Source string

const (
	SourcePolymarket Source = "polymarket"
	SourceKalshi     Source = "kalshi"
)

// MarketQuote is one normalized market from a single source, pre-merge.
// Prices are integer cents; a quote that survives normalization always
// has 0 < PriceCents < 100.
type MarketQuote struct {
	Name        string
	ShortCode   string
	PriceCents  int
	BidCents    *int
	AskCents    *int
	Volume24h   float64
	VolumeTotal float64
	Liquidity   float64
	SourceID    string
	// TokenID is the primary contract identifier used for order book
	// and history lookups; for grouped records it comes from the top
	// sub-market.
	TokenID    string
	EndTime    time.Time // zero = unknown
	SubMarkets []MarketQuote
}

// TimeBucket classifies time-to-expiry for display.
type TimeBucket string

const (
	Bucket15M TimeBucket = "15M"
	Bucket1H  TimeBucket = "1H"
	Bucket1W  TimeBucket = "1W"
	Bucket1M  TimeBucket = "1M"
	Bucket1Y  TimeBucket = "1Y"
)

func bucketFor(end, now time.Time) TimeBucket {
	if end.IsZero() {
		// No close time published; treat as a standing monthly market.
		return Bucket1M
	}
	switch d := end.Sub(now); {
	case d <= 15*time.Minute:
		return Bucket15M
	case d <= time.Hour:
		return Bucket1H
	case d <= 7*24*time.Hour:
		return Bucket1W
	case d <= 31*24*time.Hour:
		return Bucket1M
	default:
		return Bucket1Y
	}
}

// UnifiedMarket is the merged, read-only view the dashboard consumes.
// Per-source fields are nil when that exchange doesn't list the market.
// Values are recomputed from scratch every cycle.
type UnifiedMarket struct {
	Name       string     `json:"name"`
	Short      string     `json:"short"`
	PriceCents int        `json:"price"`
	Spread     *int       `json:"spread"`
	Volume24h  float64    `json:"volume24h"`
	VolDisplay string     `json:"vol"`
	Liquidity  float64    `json:"liquidity"`
	TimeBucket TimeBucket `json:"tf"`

	PolyPrice   *int `json:"polyPrice"`
	PolyBid     *int `json:"polyBid"`
	PolyAsk     *int `json:"polyAsk"`
	KalshiPrice *int `json:"kalshiPrice"`
	KalshiBid   *int `json:"kalshiBid"`
	KalshiAsk   *int `json:"kalshiAsk"`

	PolyID       string `json:"polyId,omitempty"`
	TokenID      string `json:"tokenId,omitempty"`
	KalshiTicker string `json:"kalshiTicker,omitempty"`

	IsEvent    bool            `json:"isEvent"`
	SubCount   int             `json:"subCount"`
	SubMarkets []UnifiedMarket `json:"subMarkets,omitempty"`

	// endTime feeds the bucket derivation; the UI only sees the bucket.
	endTime time.Time
}

// FormatVolume renders a USD amount the way the dashboard shows it:
// $8.4M, $640K, $212.
func FormatVolume(v float64) string {
	switch {
	case v >= 1e9:
		return fmt.Sprintf("$%.1fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("$%.1fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("$%.0fK", v/1e3)
	default:
		return fmt.Sprintf("$%.0f", v)
	}
}
