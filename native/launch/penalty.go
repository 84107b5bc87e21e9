package launch

import (
	"fmt"
	"math/big"
)

// PenaltyFraction returns the 1e18-scaled share of a withdrawal forfeited at
// time now in phase. Grace withdrawals are free, the gradient ramps linearly
// from zero towards MaxWithdrawPenalty, and phase two applies the fixed
// penalty.
func PenaltyFraction(cfg *SaleConfig, phase Phase, now int64) (*big.Int, error) {
	switch phase {
	case PhaseGrace:
		return big.NewInt(0), nil
	case PhaseGradient:
		gradientStart := cfg.PhaseOneStart + cfg.GraceLength()
		length := cfg.PhaseOneDuration - cfg.GraceLength()
		elapsed := now - gradientStart
		if elapsed < 0 {
			elapsed = 0
		}
		if elapsed > length {
			elapsed = length
		}
		return mulDiv(cfg.MaxWithdrawPenalty, big.NewInt(elapsed), big.NewInt(length)), nil
	case PhaseTwo:
		return cloneBig(cfg.FixedWithdrawPenalty), nil
	default:
		return nil, fmt.Errorf("%w: no withdraw penalty in %s", ErrWrongPhase, phase)
	}
}

// PenaltyAmount applies fraction to amount, truncating toward zero.
func PenaltyAmount(amount, fraction *big.Int) *big.Int {
	return mulDiv(amount, fraction, Wad)
}
