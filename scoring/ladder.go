package scoring

import "option-scout/models"

// DefaultLadder is the premium grid used for sensitivity analysis when the
// caller does not supply one.
var DefaultLadder = []float64{0.5, 1, 2, 5, 10, 20, 50}

// LadderRung pairs one candidate premium with its verdict.
type LadderRung struct {
	Premium float64        `json:"premium"`
	Verdict models.Verdict `json:"verdict"`
}

// PremiumLadder evaluates one observation across a list of candidate
// premiums, answering "what premium would make this contract attractive".
// The purchase date is shared across rungs; only the premium varies. An
// invalid rung (negative premium) fails the whole ladder, since the grid is
// caller-supplied, not market data.
func PremiumLadder(obs models.OptionObservation, trade models.TradeParameters, premiums []float64) ([]LadderRung, error) {
	if len(premiums) == 0 {
		premiums = DefaultLadder
	}

	rungs := make([]LadderRung, 0, len(premiums))
	for _, premium := range premiums {
		rungTrade := trade
		rungTrade.Premium = premium

		verdict, err := Evaluate(obs, rungTrade)
		if err != nil {
			return nil, err
		}
		rungs = append(rungs, LadderRung{Premium: premium, Verdict: verdict})
	}

	return rungs, nil
}
