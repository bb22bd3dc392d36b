package scoring

import (
	"fmt"

	"option-scout/models"
)

// ruleFunc is one category evaluator. It returns the category's score
// contribution and its reason strings. A nil/empty reasons slice means the
// category was skipped because its input is missing; a skipped category
// contributes nothing to either the score or the reasons list.
type ruleFunc func(obs *models.OptionObservation, trade models.TradeParameters, days int) (int, []string)

// ruleTable is the fixed evaluation pipeline. Order matters for the reasons
// sequence only; the score is a plain sum.
var ruleTable = []ruleFunc{
	trendRule,
	momentumRule,
	deltaRule,
	volatilityRule,
	liquidityRule,
	timeDecayRule,
	moneynessRule,
	premiumCompositionRule,
	premiumVsDeltaRule,
}

// trendRule compares the underlying price to the 20- and 50-day moving
// averages. Direction inverts for puts: price below both MAs is the bullish
// setup for a put.
func trendRule(obs *models.OptionObservation, _ models.TradeParameters, _ int) (int, []string) {
	if obs.MA20 == nil || obs.MA50 == nil {
		return 0, nil
	}

	aboveBoth := obs.UnderlyingPrice > *obs.MA20 && obs.UnderlyingPrice > *obs.MA50
	belowBoth := obs.UnderlyingPrice < *obs.MA20 && obs.UnderlyingPrice < *obs.MA50

	if obs.OptionType == models.OptionTypePut {
		aboveBoth, belowBoth = belowBoth, aboveBoth
	}

	switch {
	case aboveBoth:
		if obs.OptionType == models.OptionTypePut {
			return 2, []string{"strong downtrend: price below 20- and 50-day moving averages"}
		}
		return 2, []string{"strong uptrend: price above 20- and 50-day moving averages"}
	case belowBoth:
		return -1, []string{"trend against the position: price on the wrong side of both moving averages"}
	default:
		return 0, []string{"mixed trend: price between the moving averages"}
	}
}

// momentumRule scores RSI. Calls favor the 50-70 band; puts favor 30-50.
// A sub-30 RSI is a caution for puts (bounce risk) but neutral for calls.
func momentumRule(obs *models.OptionObservation, _ models.TradeParameters, _ int) (int, []string) {
	if obs.RSI == nil {
		return 0, nil
	}
	rsi := *obs.RSI

	if obs.OptionType == models.OptionTypePut {
		switch {
		case rsi >= 30 && rsi <= 50:
			return 1, []string{"RSI in bearish range"}
		case rsi < 30:
			return 0, []string{"RSI oversold: bounce risk"}
		default:
			return 0, []string{"RSI neutral"}
		}
	}

	switch {
	case rsi >= 50 && rsi <= 70:
		return 1, []string{"RSI in bullish range"}
	case rsi > 70:
		return 0, []string{"RSI overbought: entry may be late"}
	default:
		return 0, []string{"RSI neutral"}
	}
}

// deltaRule tiers the delta magnitude. The sub-0.35 branch is normally
// unreachable behind the pre-filter but is kept so the rule stands alone.
func deltaRule(obs *models.OptionObservation, _ models.TradeParameters, _ int) (int, []string) {
	if obs.Delta == nil {
		return 0, nil
	}
	switch {
	case *obs.Delta >= 0.7:
		return 2, []string{"high delta: tracks the underlying closely"}
	case *obs.Delta >= deltaFloor:
		return 1, []string{"moderate delta"}
	default:
		return 0, []string{"low delta"}
	}
}

// volatilityRule is a plateau, not a monotonic curve: both the sub-80 and
// 80-150 bands score +1, and only the >150 tail drops to 0. Keep it that way.
func volatilityRule(obs *models.OptionObservation, _ models.TradeParameters, _ int) (int, []string) {
	if obs.IV == nil {
		return 0, nil
	}
	switch {
	case *obs.IV > 150:
		return 0, []string{"implied volatility above 150%: elevated risk"}
	case *obs.IV >= 80:
		return 1, []string{"normal implied volatility"}
	default:
		return 1, []string{"low implied volatility: possibly undervalued"}
	}
}

func liquidityRule(obs *models.OptionObservation, _ models.TradeParameters, _ int) (int, []string) {
	switch {
	case obs.Volume >= 500 && obs.OpenInterest >= 500:
		return 2, []string{"high liquidity: tight fills likely"}
	case obs.Volume >= 500:
		return 1, []string{"solid volume but thin open interest"}
	case obs.Volume >= 100 && obs.OpenInterest >= 100:
		return 1, []string{"moderate liquidity"}
	default:
		return 0, []string{"low liquidity: risk of poor fills"}
	}
}

// timeDecayRule scores days-to-expiration. The under-a-week bucket is only
// rewarded when delta is high enough to outrun theta.
func timeDecayRule(obs *models.OptionObservation, _ models.TradeParameters, days int) (int, []string) {
	switch {
	case days <= 5:
		if obs.Delta != nil && *obs.Delta >= 0.7 {
			return 2, []string{fmt.Sprintf("%d days to expiration: acceptable with high delta", days)}
		}
		return 0, []string{fmt.Sprintf("%d days to expiration: high theta risk", days)}
	case days <= 14:
		return 2, []string{fmt.Sprintf("%d days to expiration: favorable window", days)}
	case days <= 30:
		return 1, []string{fmt.Sprintf("%d days to expiration", days)}
	default:
		return 0, []string{fmt.Sprintf("%d days out: more uncertain for short-term", days)}
	}
}

// moneynessRule tiers the strike/underlying ratio. Call thresholds sit above
// 1.0, put thresholds mirror them below 1.0.
func moneynessRule(obs *models.OptionObservation, _ models.TradeParameters, _ int) (int, []string) {
	ratio := obs.MoneynessRatio()

	if obs.OptionType == models.OptionTypePut {
		switch {
		case ratio <= 0.95:
			return 2, []string{"deep in the money"}
		case ratio <= 1.0:
			return 1, []string{"in the money"}
		case ratio <= 1.05:
			return 1, []string{"near the money"}
		default:
			return 0, []string{"out of the money"}
		}
	}

	switch {
	case ratio >= 1.05:
		return 2, []string{"deep in the money"}
	case ratio >= 1.0:
		return 1, []string{"in the money"}
	case ratio >= 0.95:
		return 1, []string{"near the money"}
	default:
		return 0, []string{"out of the money"}
	}
}

// premiumCompositionRule splits the premium into intrinsic and extrinsic
// value. A premium that is mostly extrinsic is penalized, and the penalty
// stacks with an extra -1 when the contract is also long-dated, since paying
// for time value over 30+ days compounds the risk. A zero premium routes to
// the neutral branch rather than dividing.
func premiumCompositionRule(obs *models.OptionObservation, trade models.TradeParameters, days int) (int, []string) {
	if trade.Premium <= 0 {
		return 0, []string{"premium mix ok"}
	}

	intrinsic := obs.IntrinsicValue()
	extrinsic := trade.Premium - intrinsic
	if extrinsic < 0 {
		extrinsic = 0
	}
	valueRatio := extrinsic / trade.Premium

	switch {
	case intrinsic > 0 && valueRatio <= 0.3:
		return 2, []string{"premium mostly intrinsic: good deal"}
	case valueRatio <= 0.6:
		return 1, []string{"healthy intrinsic/extrinsic mix"}
	case valueRatio > 0.9:
		score := -2
		reasons := []string{"premium mostly extrinsic: expensive for the risk"}
		if days > 30 {
			score--
			reasons = append(reasons, "long-dated extrinsic premium compounds time risk")
		}
		return score, reasons
	default:
		return 0, []string{"premium mix ok"}
	}
}

// premiumVsDeltaRule is a cheap/expensive sanity check of the premium
// against the delta.
func premiumVsDeltaRule(obs *models.OptionObservation, trade models.TradeParameters, _ int) (int, []string) {
	if obs.Delta == nil {
		return 0, nil
	}
	switch {
	case trade.Premium < 0.25 && *obs.Delta >= deltaFloor:
		return 1, []string{"cheap premium for the delta"}
	case trade.Premium > 1.00 && *obs.Delta < 0.3:
		return -1, []string{"expensive premium for a low delta"}
	default:
		return 0, []string{"premium in line with delta"}
	}
}
