package launch

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// SettlementAmounts is the outcome of settling a sale at its floor price.
type SettlementAmounts struct {
	ReservePool    *big.Int
	SalePool       *big.Int
	UserIncentives *big.Int
	IssuerRefund   *big.Int
}

// ComputeSettlement sizes the pool for a sale that raised deposited reserve
// units. When the raise does not cover the sale amount at the floor price,
// only the tokens the raise buys at the floor enter the pool and incentives
// shrink proportionally; unsold tokens and forfeited incentives go back to
// the issuer.
func ComputeSettlement(cfg *SaleConfig, deposited *big.Int) SettlementAmounts {
	scale := pow10(cfg.SaleDecimals)
	reserveValue := new(big.Int).Mul(deposited, scale)
	floorValue := new(big.Int).Mul(cfg.FloorPrice, cfg.SaleAmount)

	out := SettlementAmounts{ReservePool: cloneBig(deposited)}
	if reserveValue.Cmp(floorValue) >= 0 {
		out.SalePool = cloneBig(cfg.SaleAmount)
		out.UserIncentives = cloneBig(cfg.IncentiveAmount)
	} else {
		out.SalePool = new(big.Int).Quo(reserveValue, cfg.FloorPrice)
		out.UserIncentives = mulDiv(cfg.IncentiveAmount, out.SalePool, cfg.SaleAmount)
	}
	unsold := new(big.Int).Sub(cfg.SaleAmount, out.SalePool)
	forfeited := new(big.Int).Sub(cfg.IncentiveAmount, out.UserIncentives)
	out.IssuerRefund = unsold.Add(unsold, forfeited)
	return out
}

// CreatePool settles the sale: it freezes every participant's allocation,
// fixes the pool amounts and funds the AMM pair. It can succeed only once
// and may be called by anyone in phase three.
func (e *Engine) CreatePool(caller common.Address) (*SettlementAmounts, error) {
	cfg, agg, err := e.load()
	if err != nil {
		return nil, err
	}
	if e.amm == nil {
		return nil, errNilState
	}
	if agg.Stopped {
		return nil, ErrStopped
	}
	if agg.Settled {
		return nil, ErrAlreadySettled
	}
	now := e.now()
	if phase := CurrentPhase(cfg, agg, now); phase != PhaseThreeOpen {
		return nil, fmt.Errorf("%w: pool can only be created in phase three, now %s", ErrWrongPhase, phase)
	}
	if agg.TotalReserve.Sign() == 0 {
		return nil, ErrNoReserveDeposited
	}
	pair, exists, err := e.amm.GetPair(cfg.ReserveAsset, cfg.SaleAsset)
	if err != nil {
		return nil, err
	}
	if exists {
		supply, err := e.amm.TotalSupply(pair)
		if err != nil {
			return nil, err
		}
		if supply.Sign() > 0 {
			return nil, ErrPoolAlreadyLiquid
		}
	}
	amounts := ComputeSettlement(cfg, agg.TotalReserve)
	if amounts.SalePool.Sign() == 0 {
		return nil, fmt.Errorf("%w: raise buys no tokens at the floor price", ErrNoReserveDeposited)
	}

	agg.Settled = true
	agg.SettledAt = now
	agg.ReservePool = amounts.ReservePool
	agg.SalePool = amounts.SalePool
	agg.UserIncentives = amounts.UserIncentives
	agg.IssuerRefund = amounts.IssuerRefund
	if err := e.freezeAllocations(); err != nil {
		return nil, err
	}
	if err := e.save(cfg, agg); err != nil {
		return nil, err
	}

	if !exists {
		if pair, err = e.amm.CreatePair(cfg.ReserveAsset, cfg.SaleAsset); err != nil {
			return nil, err
		}
	}
	shares, err := e.amm.AddLiquidity(cfg.Custody, cfg.ReserveAsset, cfg.SaleAsset, amounts.ReservePool, amounts.SalePool)
	if err != nil {
		return nil, fmt.Errorf("launch: fund pool: %w", err)
	}

	// Collaborators may have re-entered; reload before recording the shares.
	cfg, agg, err = e.load()
	if err != nil {
		return nil, err
	}
	agg.Pair = pair
	agg.PoolShares = cloneBig(shares)
	if err := e.save(cfg, agg); err != nil {
		return nil, err
	}
	e.emit(PoolCreatedEvent(e.asset, pair, caller, amounts.ReservePool, amounts.SalePool, shares))
	return &amounts, nil
}

func (e *Engine) freezeAllocations() error {
	addrs, err := participantIndex(e.state, e.asset)
	if err != nil {
		return err
	}
	for _, addr := range addrs {
		p, _, err := loadParticipant(e.state, e.asset, addr)
		if err != nil {
			return err
		}
		p.Frozen = cloneBig(p.Amount)
		if err := saveParticipant(e.state, e.asset, p); err != nil {
			return err
		}
	}
	return nil
}
