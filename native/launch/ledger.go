package launch

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/voltfinance/voltage-launchpad/core/state"
)

// Deposit adds amount of the reserve asset to the participant's live
// allocation, pulling the funds from participant into custody.
func (e *Engine) Deposit(participant common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	cfg, agg, err := e.load()
	if err != nil {
		return err
	}
	if agg.Stopped {
		return ErrStopped
	}
	now := e.now()
	p, known, err := loadParticipant(e.state, e.asset, participant)
	if err != nil {
		return err
	}
	if err := e.checkDeposit(cfg, p, amount, now); err != nil {
		return err
	}

	p.Amount.Add(p.Amount, amount)
	if !known {
		p.FirstDepositAt = now
		agg.Participants++
		if err := e.state.KVAppend(state.LaunchParticipantIndexKey(e.asset), participant.Bytes()); err != nil {
			return err
		}
	}
	agg.TotalReserve.Add(agg.TotalReserve, amount)
	if err := saveParticipant(e.state, e.asset, p); err != nil {
		return err
	}
	if err := e.save(cfg, agg); err != nil {
		return err
	}
	if err := e.assets.Transfer(cfg.ReserveAsset, participant, cfg.Custody, amount); err != nil {
		return fmt.Errorf("launch: collect deposit: %w", err)
	}
	e.emit(UserParticipatedEvent(e.asset, participant, amount))
	return nil
}

// Withdraw removes amount from the participant's live allocation. The
// phase-dependent penalty is routed to the penalty collector and the rest is
// returned to the participant. It returns the penalty retained.
func (e *Engine) Withdraw(participant common.Address, amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	cfg, agg, err := e.load()
	if err != nil {
		return nil, err
	}
	if agg.Stopped {
		return nil, ErrStopped
	}
	now := e.now()
	phase := CurrentPhase(cfg, agg, now)
	if !phase.AcceptsWithdrawals() {
		return nil, fmt.Errorf("%w: withdrawals closed in %s", ErrWrongPhase, phase)
	}
	p, _, err := loadParticipant(e.state, e.asset, participant)
	if err != nil {
		return nil, err
	}
	if amount.Cmp(p.Amount) > 0 {
		return nil, fmt.Errorf("%w: have %s, requested %s", ErrInsufficientBalance, p.Amount, amount)
	}
	fraction, err := PenaltyFraction(cfg, phase, now)
	if err != nil {
		return nil, err
	}
	penalty := PenaltyAmount(amount, fraction)
	net := new(big.Int).Sub(amount, penalty)

	p.Amount.Sub(p.Amount, amount)
	agg.TotalReserve.Sub(agg.TotalReserve, amount)
	if err := saveParticipant(e.state, e.asset, p); err != nil {
		return nil, err
	}
	if err := e.save(cfg, agg); err != nil {
		return nil, err
	}
	if err := e.payout(cfg.ReserveAsset, participant, net, cfg); err != nil {
		return nil, err
	}
	if err := e.payout(cfg.ReserveAsset, cfg.PenaltyCollector, penalty, cfg); err != nil {
		return nil, err
	}
	e.emit(UserWithdrawnEvent(e.asset, participant, amount, penalty))
	return penalty, nil
}
