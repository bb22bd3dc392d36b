package models

import (
	"errors"
	"fmt"
)

// ErrUnknownOptionType indicates an option type outside {call, put}.
// This is a programmer-error-class violation: it fails the row rather than
// being coerced to a default that could change a rating.
var ErrUnknownOptionType = errors.New("unknown option type")

// ErrInvalidTradeParameters indicates a premium or purchase date that makes
// the evaluation itself invalid.
var ErrInvalidTradeParameters = errors.New("invalid trade parameters")

// ErrDataUnavailable indicates a market-data collaborator could not supply
// the price history or option-chain data needed to build an observation.
var ErrDataUnavailable = errors.New("market data unavailable")

// RowError reports a single malformed input row. Rows that fail to
// normalize are excluded from the verdict list and reported individually;
// a bad row never aborts the batch it arrived in.
type RowError struct {
	Index  int    `json:"index"`
	Symbol string `json:"symbol,omitempty"`
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason"`
}

func (e *RowError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("row %d (%s): %s: %s", e.Index, e.Symbol, e.Field, e.Reason)
	}
	return fmt.Sprintf("row %d: %s: %s", e.Index, e.Field, e.Reason)
}
