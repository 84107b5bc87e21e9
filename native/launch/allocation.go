package launch

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

func (e *Engine) allocationFor(cfg *SaleConfig, addr common.Address) (bool, *big.Int, error) {
	staked := false
	if e.stakes != nil {
		var err error
		staked, err = e.stakes.IsStaked(addr)
		if err != nil {
			return false, nil, fmt.Errorf("launch: stake lookup: %w", err)
		}
	}
	if staked {
		return true, cloneBig(cfg.MaxStakedAllocation), nil
	}
	return false, cloneBig(cfg.MaxUnstakedAllocation), nil
}

// MaxAllocation returns the deposit cap that currently applies to addr. The
// tier is resolved on every call so stake changes take effect immediately.
func (e *Engine) MaxAllocation(addr common.Address) (*big.Int, error) {
	cfg, _, err := e.load()
	if err != nil {
		return nil, err
	}
	_, allocation, err := e.allocationFor(cfg, addr)
	return allocation, err
}

// checkDeposit enforces the phase, issuer exclusion and tier cap for a
// deposit of amount by p.
func (e *Engine) checkDeposit(cfg *SaleConfig, p *Participant, amount *big.Int, now int64) error {
	phase := CurrentPhase(cfg, nil, now)
	if !phase.AcceptsDeposits() {
		return fmt.Errorf("%w: %s", ErrNotParticipantPhase, phase)
	}
	if p.Address == cfg.Issuer {
		return ErrIssuerExcluded
	}
	_, allocation, err := e.allocationFor(cfg, p.Address)
	if err != nil {
		return err
	}
	next := new(big.Int).Add(p.Amount, amount)
	if next.Cmp(allocation) > 0 {
		return fmt.Errorf("%w: %s > %s", ErrCapExceeded, next, allocation)
	}
	return nil
}
