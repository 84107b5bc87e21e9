package launch

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

func issuerShares(agg *Aggregate) *big.Int {
	return new(big.Int).Quo(agg.PoolShares, two)
}

// participantShares is PoolShares × Frozen / (2 × ReservePool) as a single
// floor division.
func participantShares(agg *Aggregate, p *Participant) *big.Int {
	return mulDiv(agg.PoolShares, p.Frozen, new(big.Int).Mul(agg.ReservePool, two))
}

func participantIncentives(agg *Aggregate, p *Participant) *big.Int {
	return mulDiv(agg.UserIncentives, p.Frozen, agg.ReservePool)
}

// ClaimLiquidity transfers the caller's pool shares once the relevant
// timelock has elapsed. Timelocks do not apply after an emergency stop.
func (e *Engine) ClaimLiquidity(caller common.Address) (*big.Int, error) {
	cfg, agg, err := e.load()
	if err != nil {
		return nil, err
	}
	shares, err := e.claimLiquidity(cfg, agg, caller, agg.Stopped)
	if err != nil {
		return nil, err
	}
	e.emit(LiquidityWithdrawnEvent(caller == cfg.Issuer, e.asset, caller, agg.Pair, shares))
	return shares, nil
}

// claimLiquidity moves the caller's pool shares without emitting, so each
// entry point reports the payout exactly once.
func (e *Engine) claimLiquidity(cfg *SaleConfig, agg *Aggregate, caller common.Address, bypassTimelocks bool) (*big.Int, error) {
	if !agg.Settled {
		return nil, ErrPoolNotCreated
	}
	locks := Timelocks(cfg, agg, e.now())
	var shares *big.Int
	if caller == cfg.Issuer {
		if !bypassTimelocks && !locks.IssuerUnlocked {
			return nil, fmt.Errorf("%w: unlocks at %d", ErrIssuerTimelockActive, locks.IssuerUnlockAt)
		}
		if agg.IssuerSharesClaimed {
			return nil, ErrAlreadyClaimed
		}
		shares = issuerShares(agg)
		if shares.Sign() == 0 {
			return nil, ErrNothingToClaim
		}
		agg.IssuerSharesClaimed = true
		if err := e.save(cfg, agg); err != nil {
			return nil, err
		}
	} else {
		if !bypassTimelocks && !locks.UserUnlocked {
			return nil, fmt.Errorf("%w: unlocks at %d", ErrUserTimelockActive, locks.UserUnlockAt)
		}
		p, _, err := loadParticipant(e.state, e.asset, caller)
		if err != nil {
			return nil, err
		}
		if p.SharesClaimed {
			return nil, ErrAlreadyClaimed
		}
		shares = participantShares(agg, p)
		if shares.Sign() == 0 {
			return nil, ErrNothingToClaim
		}
		p.SharesClaimed = true
		if err := saveParticipant(e.state, e.asset, p); err != nil {
			return nil, err
		}
	}
	if err := e.payout(agg.Pair, caller, shares, cfg); err != nil {
		return nil, err
	}
	return shares, nil
}

// ClaimIncentives pays the caller's share of the sale-asset incentives. For
// the issuer this is the refund of unsold tokens and forfeited incentives.
// No timelock applies and claims remain open after an emergency stop.
func (e *Engine) ClaimIncentives(caller common.Address) (*big.Int, error) {
	cfg, agg, err := e.load()
	if err != nil {
		return nil, err
	}
	if !agg.Settled {
		return nil, ErrPoolNotCreated
	}
	var amount *big.Int
	if caller == cfg.Issuer {
		if agg.IssuerRefundClaimed || agg.IssuerRefund.Sign() == 0 {
			return nil, fmt.Errorf("%w: no incentive to claim", ErrNothingToClaim)
		}
		amount = cloneBig(agg.IssuerRefund)
		agg.IssuerRefundClaimed = true
		if err := e.save(cfg, agg); err != nil {
			return nil, err
		}
	} else {
		p, _, err := loadParticipant(e.state, e.asset, caller)
		if err != nil {
			return nil, err
		}
		amount = participantIncentives(agg, p)
		if p.IncentivesClaimed || amount.Sign() == 0 {
			return nil, fmt.Errorf("%w: no incentive to claim", ErrNothingToClaim)
		}
		p.IncentivesClaimed = true
		if err := saveParticipant(e.state, e.asset, p); err != nil {
			return nil, err
		}
	}
	if err := e.payout(cfg.SaleAsset, caller, amount, cfg); err != nil {
		return nil, err
	}
	e.emit(IncentivesWithdrawnEvent(e.asset, caller, amount))
	return amount, nil
}
