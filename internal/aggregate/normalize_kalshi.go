package aggregate

import (
	"sort"

	"github.com/mercuryhq/marketbridge/internal/kalshi/api"
)

// NormalizeKalshiMarket converts one Kalshi market into a quote.
// Kalshi prices arrive as integer cents directly; the last trade price
// is representative, falling back to the bid/ask midpoint when the
// market hasn't traded yet.
func NormalizeKalshiMarket(m *api.Market) (MarketQuote, bool) {
	if m == nil || m.Title == "" {
		return MarketQuote{}, false
	}
	if m.Status != "open" && m.Status != "active" {
		return MarketQuote{}, false
	}
	if m.Result != "" {
		return MarketQuote{}, false
	}

	cents := m.LastPrice
	if cents == 0 && m.YesBid > 0 && m.YesAsk > 0 {
		cents = (m.YesBid + m.YesAsk + 1) / 2
	}
	if cents <= 0 || cents >= 100 {
		return MarketQuote{}, false
	}

	name := m.Title
	if m.Subtitle != "" {
		name += " " + m.Subtitle
	}

	q := MarketQuote{
		Name:        name,
		ShortCode:   ShortCode(name),
		PriceCents:  cents,
		Volume24h:   float64(m.Volume24h),
		VolumeTotal: float64(m.Volume),
		Liquidity:   float64(m.Liquidity) / 100,
		SourceID:    m.Ticker,
		TokenID:     m.Ticker,
		EndTime:     parseEndTime(m.CloseTime),
	}
	if m.YesBid > 0 {
		bid := m.YesBid
		q.BidCents = &bid
	}
	if m.YesAsk > 0 {
		ask := m.YesAsk
		q.AskCents = &ask
	}
	return q, true
}

// NormalizeKalshiEvent flattens an event's nested markets the same way
// the Polymarket normalizer does: price-sorted sub-markets, top price
// as the parent's representative, volume summed.
func NormalizeKalshiEvent(e *api.Event) (MarketQuote, bool) {
	if e == nil || e.Title == "" {
		return MarketQuote{}, false
	}

	subs := make([]MarketQuote, 0, len(e.Markets))
	var volume24h float64
	for _, m := range e.Markets {
		q, ok := NormalizeKalshiMarket(m)
		if !ok {
			continue
		}
		subs = append(subs, q)
		volume24h += q.Volume24h
	}
	if len(subs) == 0 {
		return MarketQuote{}, false
	}

	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].PriceCents > subs[j].PriceCents
	})
	top := subs[0]

	parent := MarketQuote{
		Name:        e.Title,
		ShortCode:   ShortCode(e.Title),
		PriceCents:  top.PriceCents,
		BidCents:    top.BidCents,
		AskCents:    top.AskCents,
		Volume24h:   volume24h,
		VolumeTotal: top.VolumeTotal,
		Liquidity:   top.Liquidity,
		SourceID:    e.EventTicker,
		TokenID:     top.TokenID,
		EndTime:     top.EndTime,
	}
	if len(subs) > 1 {
		parent.SubMarkets = subs
	}
	return parent, true
}
