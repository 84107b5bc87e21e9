package launch

import (
	"fmt"
	"math/big"
)

const (
	day = int64(24 * 60 * 60)

	DefaultPhaseOneDuration  = 2 * day
	DefaultPhaseTwoDuration  = 1 * day
	DefaultMaxUserTimelock   = 7 * day
	DefaultMaxIssuerTimelock = 365 * day
)

// Params captures the protocol-wide maxima applied to every sale at creation.
// The durations are frozen into each SaleConfig so later parameter changes do
// not affect running sales.
type Params struct {
	PhaseOneDuration int64
	PhaseTwoDuration int64
	MaxUserTimelock  int64
	// MaxIssuerTimelock bounds the issuer lockup so unlock times stay
	// representable.
	MaxIssuerTimelock int64
	// MaxIncentivesPercent is an exclusive upper bound (1e18 scale).
	MaxIncentivesPercent *big.Int
	// MaxWithdrawPenalty is an inclusive upper bound (1e18 scale).
	MaxWithdrawPenalty *big.Int
}

// DefaultParams returns the stock protocol limits.
func DefaultParams() Params {
	return Params{
		PhaseOneDuration:     DefaultPhaseOneDuration,
		PhaseTwoDuration:     DefaultPhaseTwoDuration,
		MaxUserTimelock:      DefaultMaxUserTimelock,
		MaxIssuerTimelock:    DefaultMaxIssuerTimelock,
		MaxIncentivesPercent: new(big.Int).Set(Wad),
		MaxWithdrawPenalty:   new(big.Int).Quo(Wad, two),
	}
}

// Clone returns a deep copy of the params.
func (p Params) Clone() Params {
	clone := p
	clone.MaxIncentivesPercent = cloneBig(p.MaxIncentivesPercent)
	clone.MaxWithdrawPenalty = cloneBig(p.MaxWithdrawPenalty)
	return clone
}

// Validate ensures the params are internally consistent.
func (p Params) Validate() error {
	if p.PhaseOneDuration < 2 {
		return fmt.Errorf("launch params: phase one must span at least two seconds")
	}
	if p.PhaseTwoDuration <= 0 {
		return fmt.Errorf("launch params: phase two duration must be positive")
	}
	if p.MaxUserTimelock < 0 {
		return fmt.Errorf("launch params: max user timelock must not be negative")
	}
	if p.MaxIssuerTimelock <= p.MaxUserTimelock {
		return fmt.Errorf("launch params: max issuer timelock must exceed max user timelock")
	}
	if p.MaxIncentivesPercent == nil || p.MaxIncentivesPercent.Sign() <= 0 || p.MaxIncentivesPercent.Cmp(Wad) > 0 {
		return fmt.Errorf("launch params: max incentives percent must be within (0, 1e18]")
	}
	if p.MaxWithdrawPenalty == nil || p.MaxWithdrawPenalty.Sign() < 0 || p.MaxWithdrawPenalty.Cmp(Wad) > 0 {
		return fmt.Errorf("launch params: max withdraw penalty must be within [0, 1e18]")
	}
	return nil
}
