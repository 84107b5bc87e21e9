package launch

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Stop halts the sale. Only the registry owner may stop, and only once.
func (e *Engine) Stop(caller common.Address) error {
	cfg, agg, err := e.load()
	if err != nil {
		return err
	}
	if caller != cfg.Owner || cfg.Owner == (common.Address{}) {
		return ErrUnauthorized
	}
	if agg.Stopped {
		return ErrStopped
	}
	agg.Stopped = true
	agg.StoppedAt = e.now()
	if err := e.save(cfg, agg); err != nil {
		return err
	}
	e.emit(StoppedEvent(e.asset, caller, agg.StoppedAt))
	return nil
}

// EmergencyWithdraw recovers funds from a stopped sale. Before settlement the
// issuer recovers every sale token held in custody and participants recover
// their live deposit without penalty. After settlement it behaves like
// ClaimLiquidity with timelocks bypassed.
func (e *Engine) EmergencyWithdraw(caller common.Address) (*big.Int, error) {
	cfg, agg, err := e.load()
	if err != nil {
		return nil, err
	}
	if !agg.Stopped {
		return nil, ErrNotStopped
	}
	if agg.Settled {
		shares, err := e.claimLiquidity(cfg, agg, caller, true)
		if err != nil {
			return nil, err
		}
		e.emit(EmergencyWithdrawnEvent(e.asset, caller, agg.Pair, shares))
		return shares, nil
	}

	var (
		asset  common.Address
		amount *big.Int
	)
	if caller == cfg.Issuer {
		if agg.IssuerRecovered {
			return nil, ErrAlreadyClaimed
		}
		held, err := e.assets.BalanceOf(cfg.SaleAsset, cfg.Custody)
		if err != nil {
			return nil, err
		}
		if held.Sign() == 0 {
			return nil, ErrNothingToClaim
		}
		agg.IssuerRecovered = true
		if err := e.save(cfg, agg); err != nil {
			return nil, err
		}
		asset, amount = cfg.SaleAsset, held
	} else {
		p, _, err := loadParticipant(e.state, e.asset, caller)
		if err != nil {
			return nil, err
		}
		if p.Amount.Sign() == 0 {
			return nil, fmt.Errorf("%w: no deposit to recover", ErrNothingToClaim)
		}
		amount = cloneBig(p.Amount)
		agg.TotalReserve.Sub(agg.TotalReserve, amount)
		p.Amount.SetInt64(0)
		p.EmergencyWithdrawn = true
		if err := saveParticipant(e.state, e.asset, p); err != nil {
			return nil, err
		}
		if err := e.save(cfg, agg); err != nil {
			return nil, err
		}
		asset = cfg.ReserveAsset
	}
	if err := e.payout(asset, caller, amount, cfg); err != nil {
		return nil, err
	}
	e.emit(EmergencyWithdrawnEvent(e.asset, caller, asset, amount))
	return amount, nil
}
