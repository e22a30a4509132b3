package aggregate

import (
	"sort"
	"time"

	"github.com/mercuryhq/marketbridge/pkg/hashset"
)

// SourceQuotes carries one source's normalized listings for a cycle,
// split into grouped (event) and ungrouped records.
type SourceQuotes struct {
	Source    Source
	Grouped   []MarketQuote
	Ungrouped []MarketQuote
}

// Merge combines both sources' listings into the unified view. The
// primary source seeds the list and holds representative-price
// attribution; which source is primary is a coverage policy, so it is
// a parameter rather than baked into call order. Merge never fails: a
// source that produced nothing this cycle simply leaves its side of
// every row unset, and two empty sources yield an empty list.
func Merge(primary, secondary SourceQuotes, now time.Time) []UnifiedMarket {
	m := &merger{
		byKey: make(map[string]*UnifiedMarket),
		seen:  hashset.New[string](),
	}

	// Grouped primary records seed the list. Their sub-market keys are
	// consumed up front so the same outcomes don't reappear as
	// top-level rows out of the flat listing.
	for i := range primary.Grouped {
		m.insert(&primary.Grouped[i], primary.Source)
	}
	for i := range primary.Ungrouped {
		q := &primary.Ungrouped[i]
		if m.seen.Has(Key(q.Name)) {
			continue
		}
		m.insert(q, primary.Source)
	}

	for i := range secondary.Grouped {
		q := &secondary.Grouped[i]
		if existing, ok := m.byKey[Key(q.Name)]; ok {
			m.mergeGrouped(existing, q, secondary.Source)
			continue
		}
		m.insert(q, secondary.Source)
	}
	for i := range secondary.Ungrouped {
		q := &secondary.Ungrouped[i]
		key := Key(q.Name)
		if existing, ok := m.byKey[key]; ok {
			// Only fill a still-unset side; a grouped record already
			// claimed this side otherwise.
			if sidePrice(existing, secondary.Source) == nil {
				m.mergeFlat(existing, q, secondary.Source)
			}
			continue
		}
		if m.seen.Has(key) {
			continue
		}
		m.insert(q, secondary.Source)
	}

	return m.finalize(now)
}

type merger struct {
	list  []*UnifiedMarket
	byKey map[string]*UnifiedMarket
	seen  hashset.Set[string]
}

func (m *merger) insert(q *MarketQuote, src Source) {
	u := toUnified(q, src)
	key := Key(q.Name)

	m.list = append(m.list, u)
	m.byKey[key] = u
	m.seen.Add(key)
	for i := range q.SubMarkets {
		m.seen.Add(Key(q.SubMarkets[i].Name))
	}
}

// mergeGrouped folds a grouped secondary record into an existing entry:
// the parent's side prices are claimed, sub-markets are matched to the
// entry's children by dedup key one level deep, and unmatched children
// are appended. A plain entry gains event shape when the secondary
// side brings multiple outcomes.
func (m *merger) mergeGrouped(u *UnifiedMarket, q *MarketQuote, src Source) {
	setSide(u, q, src)
	u.Volume24h += q.Volume24h
	u.Liquidity += q.Liquidity

	if len(q.SubMarkets) == 0 {
		return
	}

	childByKey := make(map[string]*UnifiedMarket, len(u.SubMarkets))
	for i := range u.SubMarkets {
		childByKey[Key(u.SubMarkets[i].Name)] = &u.SubMarkets[i]
	}

	for i := range q.SubMarkets {
		sub := &q.SubMarkets[i]
		if child, ok := childByKey[Key(sub.Name)]; ok {
			setSide(child, sub, src)
			child.Volume24h += sub.Volume24h
			continue
		}
		u.SubMarkets = append(u.SubMarkets, *toUnified(sub, src))
	}
}

func (m *merger) mergeFlat(u *UnifiedMarket, q *MarketQuote, src Source) {
	setSide(u, q, src)
	u.Volume24h += q.Volume24h
	u.Liquidity += q.Liquidity
}

func (m *merger) finalize(now time.Time) []UnifiedMarket {
	sort.SliceStable(m.list, func(i, j int) bool {
		return m.list[i].Volume24h > m.list[j].Volume24h
	})

	out := make([]UnifiedMarket, 0, len(m.list))
	for _, u := range m.list {
		derive(u, now)
		for i := range u.SubMarkets {
			derive(&u.SubMarkets[i], now)
		}
		u.SubCount = len(u.SubMarkets)
		u.IsEvent = u.SubCount > 1
		out = append(out, *u)
	}
	return out
}

// derive fills the fields computed from both sides: spread, display
// volume and the expiry bucket.
func derive(u *UnifiedMarket, now time.Time) {
	if u.PolyPrice != nil && u.KalshiPrice != nil {
		spread := *u.PolyPrice - *u.KalshiPrice
		if spread < 0 {
			spread = -spread
		}
		u.Spread = &spread
	}
	u.VolDisplay = FormatVolume(u.Volume24h)
	u.TimeBucket = bucketFor(u.endTime, now)
}

func toUnified(q *MarketQuote, src Source) *UnifiedMarket {
	u := &UnifiedMarket{
		Name:       q.Name,
		Short:      q.ShortCode,
		PriceCents: q.PriceCents,
		Volume24h:  q.Volume24h,
		Liquidity:  q.Liquidity,
		endTime:    q.EndTime,
	}
	setSide(u, q, src)
	for i := range q.SubMarkets {
		u.SubMarkets = append(u.SubMarkets, *toUnified(&q.SubMarkets[i], src))
	}
	return u
}

func setSide(u *UnifiedMarket, q *MarketQuote, src Source) {
	price := q.PriceCents
	switch src {
	case SourcePolymarket:
		u.PolyPrice = &price
		u.PolyBid = copyInt(q.BidCents)
		u.PolyAsk = copyInt(q.AskCents)
		u.PolyID = q.SourceID
		if u.TokenID == "" {
			u.TokenID = q.TokenID
		}
	case SourceKalshi:
		u.KalshiPrice = &price
		u.KalshiBid = copyInt(q.BidCents)
		u.KalshiAsk = copyInt(q.AskCents)
		u.KalshiTicker = q.SourceID
	}
	if u.endTime.IsZero() {
		u.endTime = q.EndTime
	}
}

func sidePrice(u *UnifiedMarket, src Source) *int {
	if src == SourcePolymarket {
		return u.PolyPrice
	}
	return u.KalshiPrice
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
