package launch

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/voltfinance/voltage-launchpad/core/state"
)

// Storage abstracts the subset of state manager functionality required by the
// launch engine.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVAppend(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
}

type storedConfig struct {
	Issuer                common.Address
	Owner                 common.Address
	Custody               common.Address
	PenaltyCollector      common.Address
	StakeRegistry         common.Address
	SaleAsset             common.Address
	SaleDecimals          uint8
	ReserveAsset          common.Address
	ReserveDecimals       uint8
	PhaseOneStart         uint64
	PhaseOneDuration      uint64
	PhaseTwoDuration      uint64
	SaleAmount            *big.Int
	IncentiveAmount       *big.Int
	IncentivesPercent     *big.Int
	FloorPrice            *big.Int
	MaxWithdrawPenalty    *big.Int
	FixedWithdrawPenalty  *big.Int
	MaxUnstakedAllocation *big.Int
	MaxStakedAllocation   *big.Int
	UserTimelock          uint64
	IssuerTimelock        uint64
	CreatedAt             uint64
}

type storedAggregate struct {
	Initialized         bool
	TotalReserve        *big.Int
	Settled             bool
	SettledAt           uint64
	Pair                common.Address
	ReservePool         *big.Int
	SalePool            *big.Int
	PoolShares          *big.Int
	UserIncentives      *big.Int
	IssuerRefund        *big.Int
	Stopped             bool
	StoppedAt           uint64
	IssuerSharesClaimed bool
	IssuerRefundClaimed bool
	IssuerRecovered     bool
	Participants        uint64
}

type storedSale struct {
	Config    storedConfig
	Aggregate storedAggregate
}

type storedParticipant struct {
	Amount             *big.Int
	Frozen             *big.Int
	SharesClaimed      bool
	IncentivesClaimed  bool
	EmergencyWithdrawn bool
	FirstDepositAt     uint64
}

func toUnix(v uint64) int64 { return int64(v) }

func fromUnix(v int64) uint64 {
	if v < 0 {
		return 0
	}
	return uint64(v)
}

func storeConfig(c *SaleConfig) storedConfig {
	return storedConfig{
		Issuer:                c.Issuer,
		Owner:                 c.Owner,
		Custody:               c.Custody,
		PenaltyCollector:      c.PenaltyCollector,
		StakeRegistry:         c.StakeRegistry,
		SaleAsset:             c.SaleAsset,
		SaleDecimals:          c.SaleDecimals,
		ReserveAsset:          c.ReserveAsset,
		ReserveDecimals:       c.ReserveDecimals,
		PhaseOneStart:         fromUnix(c.PhaseOneStart),
		PhaseOneDuration:      fromUnix(c.PhaseOneDuration),
		PhaseTwoDuration:      fromUnix(c.PhaseTwoDuration),
		SaleAmount:            cloneBig(c.SaleAmount),
		IncentiveAmount:       cloneBig(c.IncentiveAmount),
		IncentivesPercent:     cloneBig(c.IncentivesPercent),
		FloorPrice:            cloneBig(c.FloorPrice),
		MaxWithdrawPenalty:    cloneBig(c.MaxWithdrawPenalty),
		FixedWithdrawPenalty:  cloneBig(c.FixedWithdrawPenalty),
		MaxUnstakedAllocation: cloneBig(c.MaxUnstakedAllocation),
		MaxStakedAllocation:   cloneBig(c.MaxStakedAllocation),
		UserTimelock:          fromUnix(c.UserTimelock),
		IssuerTimelock:        fromUnix(c.IssuerTimelock),
		CreatedAt:             fromUnix(c.CreatedAt),
	}
}

func (s *storedConfig) config() *SaleConfig {
	return &SaleConfig{
		Issuer:                s.Issuer,
		Owner:                 s.Owner,
		Custody:               s.Custody,
		PenaltyCollector:      s.PenaltyCollector,
		StakeRegistry:         s.StakeRegistry,
		SaleAsset:             s.SaleAsset,
		SaleDecimals:          s.SaleDecimals,
		ReserveAsset:          s.ReserveAsset,
		ReserveDecimals:       s.ReserveDecimals,
		PhaseOneStart:         toUnix(s.PhaseOneStart),
		PhaseOneDuration:      toUnix(s.PhaseOneDuration),
		PhaseTwoDuration:      toUnix(s.PhaseTwoDuration),
		SaleAmount:            cloneBig(s.SaleAmount),
		IncentiveAmount:       cloneBig(s.IncentiveAmount),
		IncentivesPercent:     cloneBig(s.IncentivesPercent),
		FloorPrice:            cloneBig(s.FloorPrice),
		MaxWithdrawPenalty:    cloneBig(s.MaxWithdrawPenalty),
		FixedWithdrawPenalty:  cloneBig(s.FixedWithdrawPenalty),
		MaxUnstakedAllocation: cloneBig(s.MaxUnstakedAllocation),
		MaxStakedAllocation:   cloneBig(s.MaxStakedAllocation),
		UserTimelock:          toUnix(s.UserTimelock),
		IssuerTimelock:        toUnix(s.IssuerTimelock),
		CreatedAt:             toUnix(s.CreatedAt),
	}
}

func storeAggregate(a *Aggregate) storedAggregate {
	return storedAggregate{
		Initialized:         a.Initialized,
		TotalReserve:        cloneBig(a.TotalReserve),
		Settled:             a.Settled,
		SettledAt:           fromUnix(a.SettledAt),
		Pair:                a.Pair,
		ReservePool:         cloneBig(a.ReservePool),
		SalePool:            cloneBig(a.SalePool),
		PoolShares:          cloneBig(a.PoolShares),
		UserIncentives:      cloneBig(a.UserIncentives),
		IssuerRefund:        cloneBig(a.IssuerRefund),
		Stopped:             a.Stopped,
		StoppedAt:           fromUnix(a.StoppedAt),
		IssuerSharesClaimed: a.IssuerSharesClaimed,
		IssuerRefundClaimed: a.IssuerRefundClaimed,
		IssuerRecovered:     a.IssuerRecovered,
		Participants:        a.Participants,
	}
}

func (s *storedAggregate) aggregate() *Aggregate {
	return &Aggregate{
		Initialized:         s.Initialized,
		TotalReserve:        cloneBig(s.TotalReserve),
		Settled:             s.Settled,
		SettledAt:           toUnix(s.SettledAt),
		Pair:                s.Pair,
		ReservePool:         cloneBig(s.ReservePool),
		SalePool:            cloneBig(s.SalePool),
		PoolShares:          cloneBig(s.PoolShares),
		UserIncentives:      cloneBig(s.UserIncentives),
		IssuerRefund:        cloneBig(s.IssuerRefund),
		Stopped:             s.Stopped,
		StoppedAt:           toUnix(s.StoppedAt),
		IssuerSharesClaimed: s.IssuerSharesClaimed,
		IssuerRefundClaimed: s.IssuerRefundClaimed,
		IssuerRecovered:     s.IssuerRecovered,
		Participants:        s.Participants,
	}
}

// loadSale returns the stored sale for asset. A missing sale yields nil
// values and false.
func loadSale(store Storage, asset common.Address) (*SaleConfig, *Aggregate, bool, error) {
	var stored storedSale
	ok, err := store.KVGet(state.LaunchSaleKey(asset), &stored)
	if err != nil || !ok {
		return nil, nil, false, err
	}
	return stored.Config.config(), stored.Aggregate.aggregate(), true, nil
}

func saveSale(store Storage, cfg *SaleConfig, agg *Aggregate) error {
	stored := storedSale{Config: storeConfig(cfg), Aggregate: storeAggregate(agg)}
	return store.KVPut(state.LaunchSaleKey(cfg.SaleAsset), &stored)
}

func loadParticipant(store Storage, asset, addr common.Address) (*Participant, bool, error) {
	var stored storedParticipant
	ok, err := store.KVGet(state.LaunchParticipantKey(asset, addr), &stored)
	if err != nil {
		return nil, false, err
	}
	p := newParticipant(addr)
	if !ok {
		return p, false, nil
	}
	p.Amount = cloneBig(stored.Amount)
	p.Frozen = cloneBig(stored.Frozen)
	p.SharesClaimed = stored.SharesClaimed
	p.IncentivesClaimed = stored.IncentivesClaimed
	p.EmergencyWithdrawn = stored.EmergencyWithdrawn
	p.FirstDepositAt = toUnix(stored.FirstDepositAt)
	return p, true, nil
}

func saveParticipant(store Storage, asset common.Address, p *Participant) error {
	stored := storedParticipant{
		Amount:             cloneBig(p.Amount),
		Frozen:             cloneBig(p.Frozen),
		SharesClaimed:      p.SharesClaimed,
		IncentivesClaimed:  p.IncentivesClaimed,
		EmergencyWithdrawn: p.EmergencyWithdrawn,
		FirstDepositAt:     fromUnix(p.FirstDepositAt),
	}
	return store.KVPut(state.LaunchParticipantKey(asset, p.Address), &stored)
}

func participantIndex(store Storage, asset common.Address) ([]common.Address, error) {
	var raw [][]byte
	if err := store.KVGetList(state.LaunchParticipantIndexKey(asset), &raw); err != nil {
		return nil, err
	}
	out := make([]common.Address, len(raw))
	for i, b := range raw {
		out[i] = common.BytesToAddress(b)
	}
	return out, nil
}

func saleIndex(store Storage) ([]common.Address, error) {
	var raw [][]byte
	if err := store.KVGetList(state.LaunchSaleIndexKey(), &raw); err != nil {
		return nil, err
	}
	out := make([]common.Address, len(raw))
	for i, b := range raw {
		out[i] = common.BytesToAddress(b)
	}
	return out, nil
}
