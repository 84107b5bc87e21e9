package launch

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/voltfinance/voltage-launchpad/core/events"
	"github.com/voltfinance/voltage-launchpad/core/state"
	"github.com/voltfinance/voltage-launchpad/core/types"
)

// Assets moves fungible balances. Transfers out of the sale are always made
// from the sale's custody address.
type Assets interface {
	BalanceOf(asset, holder common.Address) (*big.Int, error)
	Transfer(asset, from, to common.Address, amount *big.Int) error
	Decimals(asset common.Address) (uint8, error)
}

// AMM is the constant-product pool registry the sale settles into. Pool
// shares are transferable through Assets using the pair address as the asset.
type AMM interface {
	GetPair(a, b common.Address) (common.Address, bool, error)
	CreatePair(a, b common.Address) (common.Address, error)
	TotalSupply(pair common.Address) (*big.Int, error)
	AddLiquidity(provider, tokenA, tokenB common.Address, amountA, amountB *big.Int) (*big.Int, error)
}

// StakeView reports whether an address qualifies for the staked allocation
// tier. It is queried on every deposit.
type StakeView interface {
	IsStaked(addr common.Address) (bool, error)
}

// Engine runs a single sale. It keeps no state of its own between calls:
// every operation loads the sale from storage, mutates it and writes it back
// before touching collaborators.
type Engine struct {
	asset   common.Address
	state   Storage
	assets  Assets
	amm     AMM
	stakes  StakeView
	params  Params
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine constructs the engine for the sale of asset with default
// dependencies.
func NewEngine(asset common.Address) *Engine {
	return &Engine{
		asset:   asset,
		params:  DefaultParams(),
		emitter: events.NoopEmitter{},
		nowFn: func() int64 {
			return time.Now().Unix()
		},
	}
}

// SaleAsset returns the asset identifying the sale.
func (e *Engine) SaleAsset() common.Address { return e.asset }

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(store Storage) { e.state = store }

// SetAssets configures the asset ledger.
func (e *Engine) SetAssets(assets Assets) { e.assets = assets }

// SetAMM configures the pool registry.
func (e *Engine) SetAMM(amm AMM) { e.amm = amm }

// SetStakeView configures the staked-tier lookup.
func (e *Engine) SetStakeView(view StakeView) { e.stakes = view }

// SetParams configures the protocol limits checked by Initialize.
func (e *Engine) SetParams(params Params) { e.params = params.Clone() }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(WrapEvent(evt))
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil || e.assets == nil {
		return errNilState
	}
	return nil
}

// load returns the sale, failing with ErrNotInitialized when absent.
func (e *Engine) load() (*SaleConfig, *Aggregate, error) {
	if err := e.ready(); err != nil {
		return nil, nil, err
	}
	cfg, agg, ok, err := loadSale(e.state, e.asset)
	if err != nil {
		return nil, nil, err
	}
	if !ok || !agg.Initialized {
		return nil, nil, ErrNotInitialized
	}
	return cfg, agg, nil
}

func (e *Engine) save(cfg *SaleConfig, agg *Aggregate) error {
	return saveSale(e.state, cfg, agg)
}

// Initialize fixes the sale configuration. It may succeed only once.
func (e *Engine) Initialize(cfg *SaleConfig) error {
	if err := e.ready(); err != nil {
		return err
	}
	if cfg == nil {
		return invalid("config required")
	}
	if cfg.SaleAsset != e.asset {
		return invalid("config sale asset %s does not match engine asset %s", cfg.SaleAsset.Hex(), e.asset.Hex())
	}
	if _, existing, ok, err := loadSale(e.state, e.asset); err != nil {
		return err
	} else if ok && existing.Initialized {
		return ErrAlreadyInitialized
	}
	if err := cfg.Validate(e.params, e.now()); err != nil {
		return err
	}
	stored := cfg.Clone()
	if stored.CreatedAt == 0 {
		stored.CreatedAt = e.now()
	}
	agg := newAggregate()
	agg.Initialized = true
	if err := e.save(stored, agg); err != nil {
		return err
	}
	if err := e.state.KVAppend(state.LaunchSaleIndexKey(), e.asset.Bytes()); err != nil {
		return err
	}
	e.emit(InitializedEvent(stored))
	return nil
}

// Phase reports the current phase of the sale.
func (e *Engine) Phase() (Phase, error) {
	cfg, agg, err := e.load()
	if err != nil {
		return PhaseNotStarted, err
	}
	return CurrentPhase(cfg, agg, e.now()), nil
}

// Sale returns a snapshot of the sale.
func (e *Engine) Sale() (*Sale, error) {
	cfg, agg, err := e.load()
	if err != nil {
		return nil, err
	}
	now := e.now()
	return &Sale{
		Config:    cfg,
		Aggregate: agg,
		Phase:     CurrentPhase(cfg, agg, now),
		Timelocks: Timelocks(cfg, agg, now),
	}, nil
}

// Participants lists every address that has deposited into the sale.
func (e *Engine) Participants() ([]*Participant, error) {
	if _, _, err := e.load(); err != nil {
		return nil, err
	}
	addrs, err := participantIndex(e.state, e.asset)
	if err != nil {
		return nil, err
	}
	out := make([]*Participant, 0, len(addrs))
	for _, addr := range addrs {
		p, _, err := loadParticipant(e.state, e.asset, addr)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Info summarises the position of addr and the amounts it could currently
// claim. Entitlements are zero before settlement.
func (e *Engine) Info(addr common.Address) (*ParticipantInfo, error) {
	cfg, agg, err := e.load()
	if err != nil {
		return nil, err
	}
	p, _, err := loadParticipant(e.state, e.asset, addr)
	if err != nil {
		return nil, err
	}
	info := &ParticipantInfo{
		Participant:       p,
		IsIssuer:          addr == cfg.Issuer,
		PendingLiquidity:  big.NewInt(0),
		PendingIncentives: big.NewInt(0),
	}
	if !info.IsIssuer {
		staked, allocation, err := e.allocationFor(cfg, addr)
		if err != nil {
			return nil, err
		}
		info.Staked = staked
		info.MaxAllocation = allocation
	} else {
		info.MaxAllocation = big.NewInt(0)
	}
	if agg.Settled {
		if info.IsIssuer {
			if !agg.IssuerSharesClaimed {
				info.PendingLiquidity = issuerShares(agg)
			}
			if !agg.IssuerRefundClaimed {
				info.PendingIncentives = cloneBig(agg.IssuerRefund)
			}
		} else {
			if !p.SharesClaimed {
				info.PendingLiquidity = participantShares(agg, p)
			}
			if !p.IncentivesClaimed {
				info.PendingIncentives = participantIncentives(agg, p)
			}
		}
	}
	return info, nil
}

func (e *Engine) payout(asset, to common.Address, amount *big.Int, cfg *SaleConfig) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if err := e.assets.Transfer(asset, cfg.Custody, to, amount); err != nil {
		return fmt.Errorf("launch: payout %s of %s: %w", amount, asset.Hex(), err)
	}
	return nil
}
