package models

// Rating is the categorical verdict for an evaluated contract
type Rating string

const (
	RatingStrongBuy Rating = "Strong Buy"
	RatingBuy       Rating = "Buy"
	RatingMildBuy   Rating = "Mild Buy"
	RatingHold      Rating = "Hold"
	RatingAvoid     Rating = "Avoid"
)

// RatingFromScore maps a summed score onto the verdict scale.
// This is the canonical 5-tier table; there is deliberately no support for
// the alternative 4-tier scheme some exports rank against.
func RatingFromScore(score int) Rating {
	switch {
	case score >= 9:
		return RatingStrongBuy
	case score >= 7:
		return RatingBuy
	case score >= 5:
		return RatingMildBuy
	case score >= 3:
		return RatingHold
	default:
		return RatingAvoid
	}
}

// Verdict is the result of evaluating one observation against one set of
// trade parameters. Reasons are ordered by category evaluation order and
// there is exactly one verdict per (observation, trade) pair. Verdicts are
// immutable once returned and are never persisted.
type Verdict struct {
	Symbol  string   `json:"symbol"`
	Score   int      `json:"score"`
	Rating  Rating   `json:"rating"`
	Reasons []string `json:"reasons"`
}
