package aggregate

import (
	"sort"
	"time"

	"github.com/mercuryhq/marketbridge/internal/polymarket/gamma"
	"github.com/mercuryhq/marketbridge/internal/price"
)

// NormalizePolymarketMarket converts one Gamma market row into a quote.
// Returns false for markets that are closed, not accepting orders,
// malformed, or priced at a resolved extreme (<=0 or >=100 cents).
func NormalizePolymarketMarket(m *gamma.Market) (MarketQuote, bool) {
	if m == nil || m.Question == "" {
		return MarketQuote{}, false
	}
	if m.Closed || !m.Active || !m.AcceptingOrders {
		return MarketQuote{}, false
	}
	if len(m.OutcomePrices) == 0 {
		return MarketQuote{}, false
	}

	// The first outcome price is the Yes probability.
	p, err := price.Parse(m.OutcomePrices[0])
	if err != nil {
		return MarketQuote{}, false
	}
	cents := p.Cents()
	if cents <= 0 || cents >= 100 {
		return MarketQuote{}, false
	}

	q := MarketQuote{
		Name:        m.Question,
		ShortCode:   ShortCode(m.Question),
		PriceCents:  cents,
		Volume24h:   m.Volume24hr,
		VolumeTotal: m.VolumeNum,
		Liquidity:   m.LiquidityNum,
		SourceID:    m.ID,
		EndTime:     parseEndTime(m.EndDate),
	}
	if len(m.ClobTokenIDs) > 0 {
		q.TokenID = m.ClobTokenIDs[0]
	}
	if m.BestBid != nil {
		bid := m.BestBid.Cents()
		q.BidCents = &bid
	}
	if m.BestAsk != nil {
		ask := m.BestAsk.Cents()
		q.AskCents = &ask
	}
	return q, true
}

// NormalizePolymarketEvent flattens a Gamma event into a parent quote
// whose sub-markets are sorted by price descending; the parent carries
// the top sub-market's price and the summed 24h volume. Events with no
// surviving sub-market are dropped; single-outcome events collapse to
// a plain quote.
func NormalizePolymarketEvent(e *gamma.Event) (MarketQuote, bool) {
	if e == nil || e.Title == "" || e.Closed {
		return MarketQuote{}, false
	}

	subs := make([]MarketQuote, 0, len(e.Markets))
	var volume24h float64
	for _, m := range e.Markets {
		q, ok := NormalizePolymarketMarket(m)
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
		SourceID:    e.ID,
		TokenID:     top.TokenID,
		EndTime:     parseEndTime(e.EndDate),
	}
	if parent.EndTime.IsZero() {
		parent.EndTime = top.EndTime
	}
	if len(subs) > 1 {
		parent.SubMarkets = subs
	}
	return parent, true
}

func parseEndTime(iso string) time.Time {
	if iso == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return time.Time{}
	}
	return t
}
