package launch

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/voltfinance/voltage-launchpad/core/events"
	"github.com/voltfinance/voltage-launchpad/core/types"
)

// FactoryConfig holds the registry-wide settings shared by every sale.
type FactoryConfig struct {
	Owner            common.Address
	ReserveAsset     common.Address
	PenaltyCollector common.Address
	StakeRegistry    common.Address
	Params           Params
}

// CreateSaleRequest carries the issuer-chosen parameters of a new sale.
type CreateSaleRequest struct {
	Issuer                         common.Address
	SaleAsset                      common.Address
	PhaseOneStart                  int64
	TokenAmountIncludingIncentives *big.Int
	IncentivesPercent              *big.Int
	FloorPrice                     *big.Int
	MaxWithdrawPenalty             *big.Int
	FixedWithdrawPenalty           *big.Int
	MaxUnstakedAllocation          *big.Int
	MaxStakedAllocation            *big.Int
	UserTimelock                   int64
	IssuerTimelock                 int64
}

// Factory creates sales and guarantees at most one sale per sale asset.
type Factory struct {
	cfg     FactoryConfig
	state   Storage
	assets  Assets
	amm     AMM
	stakes  StakeView
	emitter events.Emitter
	nowFn   func() int64
}

// NewFactory constructs a factory with default dependencies.
func NewFactory(cfg FactoryConfig) *Factory {
	cfg.Params = cfg.Params.Clone()
	return &Factory{
		cfg:     cfg,
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend shared with created engines.
func (f *Factory) SetState(store Storage) { f.state = store }

// SetAssets configures the asset ledger.
func (f *Factory) SetAssets(assets Assets) { f.assets = assets }

// SetAMM configures the pool registry.
func (f *Factory) SetAMM(amm AMM) { f.amm = amm }

// SetStakeView configures the staked-tier lookup.
func (f *Factory) SetStakeView(view StakeView) { f.stakes = view }

// SetEmitter configures the event emitter used by the factory and its engines.
func (f *Factory) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		f.emitter = events.NoopEmitter{}
		return
	}
	f.emitter = emitter
}

// SetNowFunc overrides the time source used for deterministic testing.
func (f *Factory) SetNowFunc(now func() int64) {
	if now == nil {
		f.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	f.nowFn = now
}

// Config returns the registry settings.
func (f *Factory) Config() FactoryConfig {
	cfg := f.cfg
	cfg.Params = f.cfg.Params.Clone()
	return cfg
}

// CustodyAddress derives the account holding a sale's assets.
func CustodyAddress(saleAsset common.Address) common.Address {
	return common.BytesToAddress(ethcrypto.Keccak256([]byte("launch/custody"), saleAsset.Bytes())[12:])
}

func (f *Factory) engine(asset common.Address) *Engine {
	engine := NewEngine(asset)
	engine.SetState(f.state)
	engine.SetAssets(f.assets)
	engine.SetAMM(f.amm)
	engine.SetStakeView(f.stakes)
	engine.SetParams(f.cfg.Params)
	engine.SetEmitter(f.emitter)
	engine.SetNowFunc(f.nowFn)
	return engine
}

// Engine returns the engine of an existing sale.
func (f *Factory) Engine(asset common.Address) (*Engine, error) {
	if f == nil || f.state == nil {
		return nil, errNilState
	}
	_, agg, ok, err := loadSale(f.state, asset)
	if err != nil {
		return nil, err
	}
	if !ok || !agg.Initialized {
		return nil, fmt.Errorf("%w: %s", ErrSaleNotFound, asset.Hex())
	}
	return f.engine(asset), nil
}

// Sales lists the sale assets in creation order.
func (f *Factory) Sales() ([]common.Address, error) {
	if f == nil || f.state == nil {
		return nil, errNilState
	}
	return saleIndex(f.state)
}

// CreateSale validates req, initializes the sale and moves the issuer's
// tokens from funder into the sale's custody.
func (f *Factory) CreateSale(funder common.Address, req CreateSaleRequest) (*Engine, error) {
	if f == nil || f.state == nil || f.assets == nil || f.amm == nil {
		return nil, errNilState
	}
	zero := common.Address{}
	switch {
	case req.Issuer == zero:
		return nil, invalid("issuer can't be 0 address")
	case req.SaleAsset == zero:
		return nil, invalid("token can't be 0 address")
	case req.SaleAsset == f.cfg.ReserveAsset:
		return nil, invalid("token can't be the reserve asset")
	}
	if req.TokenAmountIncludingIncentives == nil || req.TokenAmountIncludingIncentives.Sign() <= 0 {
		return nil, invalid("token amount must be positive")
	}
	if _, _, ok, err := loadSale(f.state, req.SaleAsset); err != nil {
		return nil, err
	} else if ok {
		return nil, fmt.Errorf("%w: %s", ErrSaleExists, req.SaleAsset.Hex())
	}
	if pair, exists, err := f.amm.GetPair(f.cfg.ReserveAsset, req.SaleAsset); err != nil {
		return nil, err
	} else if exists {
		supply, err := f.amm.TotalSupply(pair)
		if err != nil {
			return nil, err
		}
		if supply.Sign() > 0 {
			return nil, ErrPoolAlreadyLiquid
		}
	}
	saleDecimals, err := f.assets.Decimals(req.SaleAsset)
	if err != nil {
		return nil, err
	}
	reserveDecimals, err := f.assets.Decimals(f.cfg.ReserveAsset)
	if err != nil {
		return nil, err
	}

	pct := cloneBig(req.IncentivesPercent)
	saleAmount, incentiveAmount := SplitIncentives(req.TokenAmountIncludingIncentives, pct)
	cfg := &SaleConfig{
		Issuer:                req.Issuer,
		Owner:                 f.cfg.Owner,
		Custody:               CustodyAddress(req.SaleAsset),
		PenaltyCollector:      f.cfg.PenaltyCollector,
		StakeRegistry:         f.cfg.StakeRegistry,
		SaleAsset:             req.SaleAsset,
		SaleDecimals:          saleDecimals,
		ReserveAsset:          f.cfg.ReserveAsset,
		ReserveDecimals:       reserveDecimals,
		PhaseOneStart:         req.PhaseOneStart,
		PhaseOneDuration:      f.cfg.Params.PhaseOneDuration,
		PhaseTwoDuration:      f.cfg.Params.PhaseTwoDuration,
		SaleAmount:            saleAmount,
		IncentiveAmount:       incentiveAmount,
		IncentivesPercent:     pct,
		FloorPrice:            cloneBig(req.FloorPrice),
		MaxWithdrawPenalty:    cloneBig(req.MaxWithdrawPenalty),
		FixedWithdrawPenalty:  cloneBig(req.FixedWithdrawPenalty),
		MaxUnstakedAllocation: cloneBig(req.MaxUnstakedAllocation),
		MaxStakedAllocation:   cloneBig(req.MaxStakedAllocation),
		UserTimelock:          req.UserTimelock,
		IssuerTimelock:        req.IssuerTimelock,
		CreatedAt:             f.nowFn(),
	}

	engine := f.engine(req.SaleAsset)
	if err := engine.Initialize(cfg); err != nil {
		return nil, err
	}
	if err := f.assets.Transfer(req.SaleAsset, funder, cfg.Custody, req.TokenAmountIncludingIncentives); err != nil {
		return nil, fmt.Errorf("launch: deposit issuing tokens: %w", err)
	}
	f.emit(TokensDepositedEvent(req.SaleAsset, req.TokenAmountIncludingIncentives))
	f.emit(SaleCreatedEvent(cfg))
	return engine, nil
}

func (f *Factory) emit(evt *types.Event) {
	if f == nil || evt == nil || f.emitter == nil {
		return
	}
	f.emitter.Emit(WrapEvent(evt))
}
