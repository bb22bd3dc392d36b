package mocks

import "time"

// Greeks mirrors the greeks block attached to a chain contract. MidIV is
// quoted as a fraction (1.2 = 120%), matching the provider's wire format.
type Greeks struct {
	Delta float64 `json:"delta"`
	MidIV float64 `json:"mid_iv"`
}

// ChainContract mirrors one contract in the provider's chain payload.
type ChainContract struct {
	Symbol         string  `json:"symbol"`
	Underlying     string  `json:"underlying"`
	Strike         float64 `json:"strike"`
	OptionType     string  `json:"option_type"`
	ExpirationDate string  `json:"expiration_date"`
	Bid            float64 `json:"bid"`
	Ask            float64 `json:"ask"`
	Last           float64 `json:"last"`
	Volume         int64   `json:"volume"`
	OpenInterest   int64   `json:"open_interest"`
	Greeks         *Greeks `json:"greeks,omitempty"`
}

// DefaultExpirations returns two expirations relative to now: one inside the
// default screening horizon and one well past it.
func DefaultExpirations() []string {
	return []string{
		time.Now().AddDate(0, 0, 21).Format("2006-01-02"),
		time.Now().AddDate(0, 0, 90).Format("2006-01-02"),
	}
}

// DefaultChain returns a small AAPL chain for the given expiration: calls
// and puts spanning strong and weak contracts, plus one contract without
// greeks to exercise degraded scoring.
func DefaultChain(expiration string) []ChainContract {
	return []ChainContract{
		{
			Symbol:         "AAPL" + occDate(expiration) + "C00220000",
			Underlying:     "AAPL",
			Strike:         220,
			OptionType:     "call",
			ExpirationDate: expiration,
			Bid:            12.10,
			Ask:            12.40,
			Last:           12.25,
			Volume:         1500,
			OpenInterest:   5400,
			Greeks:         &Greeks{Delta: 0.68, MidIV: 0.34},
		},
		{
			Symbol:         "AAPL" + occDate(expiration) + "C00250000",
			Underlying:     "AAPL",
			Strike:         250,
			OptionType:     "call",
			ExpirationDate: expiration,
			Bid:            0.55,
			Ask:            0.70,
			Last:           0.62,
			Volume:         80,
			OpenInterest:   300,
			Greeks:         &Greeks{Delta: 0.14, MidIV: 0.52},
		},
		{
			Symbol:         "AAPL" + occDate(expiration) + "P00225000",
			Underlying:     "AAPL",
			Strike:         225,
			OptionType:     "put",
			ExpirationDate: expiration,
			Bid:            5.80,
			Ask:            6.10,
			Last:           5.95,
			Volume:         900,
			OpenInterest:   2100,
			Greeks:         &Greeks{Delta: -0.45, MidIV: 0.38},
		},
		{
			Symbol:         "AAPL" + occDate(expiration) + "P00200000",
			Underlying:     "AAPL",
			Strike:         200,
			OptionType:     "put",
			ExpirationDate: expiration,
			Bid:            1.20,
			Ask:            1.45,
			Last:           1.30,
			Volume:         250,
			OpenInterest:   800,
		},
	}
}

// occDate renders an expiration as the YYMMDD segment of an OCC symbol.
func occDate(expiration string) string {
	date, err := time.Parse("2006-01-02", expiration)
	if err != nil {
		return "000000"
	}
	return date.Format("060102")
}
