// Package scoring is the deterministic heart of the screener: it maps one
// normalized option observation plus proposed trade parameters to a score,
// a rating, and an ordered list of human-readable reasons. The engine does
// no I/O and holds no shared state, so batch callers are free to fan
// evaluations out across goroutines.
package scoring

import (
	"fmt"

	"option-scout/models"
	"option-scout/normalize"
)

// deltaFloor is the hard pre-filter threshold. Contracts whose delta
// magnitude is known and below it are rejected before any category runs.
const deltaFloor = 0.35

// Evaluate scores a single observation against the proposed trade.
// The reasons list preserves category evaluation order; categories whose
// optional inputs are absent contribute neither a reason nor a score delta.
func Evaluate(obs models.OptionObservation, trade models.TradeParameters) (models.Verdict, error) {
	if err := obs.Validate(); err != nil {
		return models.Verdict{}, err
	}
	if err := trade.ValidateFor(obs.Expiration); err != nil {
		return models.Verdict{}, err
	}

	// Hard pre-filter. This is the only branch that bypasses the additive
	// model, and it must run before any category does.
	if obs.Delta != nil && *obs.Delta < deltaFloor {
		return models.Verdict{
			Symbol: obs.Symbol,
			Score:  0,
			Rating: models.RatingAvoid,
			Reasons: []string{
				fmt.Sprintf("delta %.2f below %.2f: low probability of profit", *obs.Delta, deltaFloor),
			},
		}, nil
	}

	days := normalize.DaysToExpiration(obs.Expiration, trade.PurchaseDate)

	score := 0
	reasons := make([]string, 0, len(ruleTable))
	for _, rule := range ruleTable {
		delta, ruleReasons := rule(&obs, trade, days)
		if len(ruleReasons) == 0 {
			continue
		}
		score += delta
		reasons = append(reasons, ruleReasons...)
	}

	return models.Verdict{
		Symbol:  obs.Symbol,
		Score:   score,
		Rating:  models.RatingFromScore(score),
		Reasons: reasons,
	}, nil
}

// EvaluateBatch scores a list of observations against one set of trade
// parameters. Row failures are isolated: a bad observation is reported in
// the returned RowError slice and never aborts the batch. The i-th
// observation's failure is recorded with its identifying key.
func EvaluateBatch(observations []models.OptionObservation, trade models.TradeParameters) ([]models.Verdict, []models.RowError) {
	verdicts := make([]models.Verdict, 0, len(observations))
	var rowErrs []models.RowError

	for i, obs := range observations {
		verdict, err := Evaluate(obs, trade)
		if err != nil {
			rowErrs = append(rowErrs, models.RowError{
				Index:  i + 1,
				Symbol: obs.Key(),
				Field:  "evaluation",
				Reason: err.Error(),
			})
			continue
		}
		verdicts = append(verdicts, verdict)
	}

	return verdicts, rowErrs
}
