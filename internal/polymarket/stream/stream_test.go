package stream

import (
	"log/slog"
	"testing"
	"time"

	"github.com/mercuryhq/marketbridge/internal/history"
)

func TestParseMessage(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, msg *Message)
	}{
		{
			name:  "last trade price",
			input: `{"event_type": "last_trade_price", "asset_id": "tok-yes", "price": "0.615", "side": "BUY"}`,
			check: func(t *testing.T, msg *Message) {
				if msg.LastTradePrice == nil || msg.LastTradePrice.Price != "0.615" {
					t.Errorf("last trade price not decoded: %+v", msg)
				}
			},
		},
		{
			name:  "price change",
			input: `{"event_type": "price_change", "asset_id": "tok-yes", "price": "0.48", "best_bid": "0.47", "best_ask": "0.49"}`,
			check: func(t *testing.T, msg *Message) {
				if msg.PriceChange == nil || msg.PriceChange.BestAsk != "0.49" {
					t.Errorf("price change not decoded: %+v", msg)
				}
			},
		},
		{
			name:  "unconsumed event type passes through",
			input: `{"event_type": "tick_size_change", "asset_id": "tok-yes"}`,
			check: func(t *testing.T, msg *Message) {
				if msg.EventType != "tick_size_change" || msg.LastTradePrice != nil {
					t.Errorf("expected bare message, got %+v", msg)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ParseMessage([]byte(tt.input))
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			tt.check(t, msg)
		})
	}
}

type staticIndex map[string]string

func (s staticIndex) TokenIndex() map[string]string { return s }

func TestConsumeRecordsKnownTokens(t *testing.T) {
	rec := history.NewRecorder()
	r := NewRunner("", staticIndex{"tok-yes": "BTC100K"}, rec, slog.New(slog.DiscardHandler))

	r.consume(&Message{
		EventType:      LastTradePriceEvent,
		LastTradePrice: &LastTradePrice{AssetID: "tok-yes", Price: "0.615"},
	})
	r.consume(&Message{
		EventType:      LastTradePriceEvent,
		LastTradePrice: &LastTradePrice{AssetID: "tok-unknown", Price: "0.50"},
	})

	samples := rec.Read("BTC100K")
	if len(samples) != 1 {
		t.Fatalf("samples = %d, want 1", len(samples))
	}
	if samples[0].Price != 62 {
		t.Errorf("price = %d, want 62", samples[0].Price)
	}
	if time.Since(samples[0].Time) > time.Minute {
		t.Errorf("sample time %v not recent", samples[0].Time)
	}
}

func TestConsumeRejectsOutOfRangePrices(t *testing.T) {
	rec := history.NewRecorder()
	r := NewRunner("", staticIndex{"tok-yes": "BTC100K"}, rec, slog.New(slog.DiscardHandler))

	for _, p := range []string{"0", "1.0", "bogus"} {
		r.consume(&Message{
			EventType:      LastTradePriceEvent,
			LastTradePrice: &LastTradePrice{AssetID: "tok-yes", Price: p},
		})
	}

	if samples := rec.Read("BTC100K"); len(samples) != 0 {
		t.Errorf("samples = %d, want 0", len(samples))
	}
}
