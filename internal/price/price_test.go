package price

import (
	"encoding/json"
	"testing"
)

func TestPriceUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Price
		wantErr bool
	}{
		{"zero", `"0"`, 0, false},
		{"one", `"1"`, 1_000_000, false},
		{"half", `"0.5"`, 500_000, false},
		{"quarter", `"0.25"`, 250_000, false},
		{"typical price", `"0.123456"`, 123_456, false},
		{"needs padding 1 digit", `"0.1"`, 100_000, false},
		{"needs padding 2 digits", `"0.12"`, 120_000, false},
		{"needs truncation", `"0.1234567"`, 123_456, false},
		{"raw number no quotes", `0.25`, 250_000, false},
		{"small frac", `"0.000001"`, 1, false},
		{"max precision", `"0.999999"`, 999_999, false},
		{"null leaves zero", `null`, 0, false},
		{"garbage", `"abc"`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Price
			err := got.UnmarshalJSON([]byte(tt.input))

			if (err != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr = %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPriceCents(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"typical", "0.62", 62},
		{"rounds half up", "0.615", 62},
		{"rounds down", "0.614", 61},
		{"full probability", "1", 100},
		{"zero", "0", 0},
		{"one cent", "0.01", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if got := p.Cents(); got != tt.want {
				t.Errorf("Cents() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPriceInStruct(t *testing.T) {
	type Quote struct {
		BestBid *Price `json:"bestBid"`
	}

	var q Quote
	if err := json.Unmarshal([]byte(`{"bestBid": "0.75"}`), &q); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if q.BestBid == nil || *q.BestBid != 750_000 {
		t.Errorf("got %v, want 750000", q.BestBid)
	}
}
