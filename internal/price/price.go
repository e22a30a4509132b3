// Package price handles price values from prediction market APIs
// without losing precision.
package price

import (
	"encoding/json"
	"fmt"
)

// Price is a fixed-point decimal: 1.0 == Scale. Polymarket quotes
// probabilities as 0–1 decimal strings; parsing through Price avoids
// float drift before the value is reduced to cents.
type Price int64

var _ json.Unmarshaler = (*Price)(nil)

const Scale int64 = 1_000_000

func (p *Price) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) > 2 && data[0] == '"' && data[len(data)-1] == '"' {
		data = data[1 : len(data)-1]
	}
	// Else we assume that it is a raw number.

	var res int64
	i := 0

	for i < len(data) && data[i] != '.' {
		if data[i] < '0' || data[i] > '9' {
			return fmt.Errorf("couldn't parse price %q", data)
		}
		res = res*10 + int64(data[i]-'0')*Scale
		i++
	}

	if i < len(data) && data[i] == '.' {
		i++
		mult := Scale
		for i < len(data) && mult > 1 {
			if data[i] < '0' || data[i] > '9' {
				return fmt.Errorf("couldn't parse price %q", data)
			}
			mult /= 10
			res += int64(data[i]-'0') * mult
			i++
		}
	}

	*p = Price(res)
	return nil
}

// Parse reads a decimal probability string such as "0.62".
func Parse(s string) (Price, error) {
	var p Price
	if err := p.UnmarshalJSON([]byte(s)); err != nil {
		return 0, err
	}
	return p, nil
}

// Cents scales a 0–1 probability price to integer cents, rounding
// half up: 0.615 -> 62.
func (p Price) Cents() int {
	return int((int64(p)*100 + Scale/2) / Scale)
}
