package launchpad

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/voltfinance/voltage-launchpad/core/events"
	"github.com/voltfinance/voltage-launchpad/core/state"
	"github.com/voltfinance/voltage-launchpad/native/amm"
	"github.com/voltfinance/voltage-launchpad/native/bank"
	"github.com/voltfinance/voltage-launchpad/native/launch"
	"github.com/voltfinance/voltage-launchpad/native/votelock"
	"github.com/voltfinance/voltage-launchpad/observability"
	telemetry "github.com/voltfinance/voltage-launchpad/observability/otel"
	"github.com/voltfinance/voltage-launchpad/storage"
)

// AssetSpec describes an asset registered at bootstrap when missing.
type AssetSpec struct {
	Address  common.Address
	Symbol   string
	Decimals uint8
}

// Config wires the registry-wide settings into the service.
type Config struct {
	Factory launch.FactoryConfig
	Reserve AssetSpec
	// Stake is the vote-locked asset backing the staked allocation tier.
	Stake AssetSpec
}

// Service hosts the launchpad state machine. Every mutating call runs against
// a fresh state overlay that is committed only when the whole call succeeds,
// so a failed call leaves no trace in storage or in the event sinks.
type Service struct {
	mu      sync.Mutex
	db      storage.Database
	cfg     Config
	logger  *slog.Logger
	sinks   events.Emitter
	metrics *observability.LaunchMetrics
	tracer  trace.Tracer
	nowFn   func() int64
}

// New constructs the service and registers the reserve and stake assets
// when they are not known yet.
func New(db storage.Database, cfg Config, logger *slog.Logger, sinks ...events.Emitter) (*Service, error) {
	if db == nil {
		return nil, errors.New("launchpad: database required")
	}
	if cfg.Reserve.Address == (common.Address{}) {
		return nil, errors.New("launchpad: reserve asset required")
	}
	if cfg.Factory.Params.MaxIncentivesPercent == nil {
		cfg.Factory.Params = launch.DefaultParams()
	}
	cfg.Factory.ReserveAsset = cfg.Reserve.Address
	cfg.Factory.StakeRegistry = cfg.Stake.Address
	if logger == nil {
		logger = slog.Default()
	}
	metrics := observability.Launch()
	fanout := events.Fanout{metrics}
	for _, sink := range sinks {
		if sink != nil {
			fanout = append(fanout, sink)
		}
	}
	s := &Service{
		db:      db,
		cfg:     cfg,
		logger:  logger.With("component", "launchpad"),
		sinks:   fanout,
		metrics: metrics,
		tracer:  telemetry.Tracer("launchpad/service"),
		nowFn:   func() int64 { return time.Now().Unix() },
	}
	if err := s.bootstrap(); err != nil {
		return nil, err
	}
	return s, nil
}

// SetNowFunc overrides the clock used by every engine.
func (s *Service) SetNowFunc(now func() int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}
	s.nowFn = now
}

// Now returns the service clock.
func (s *Service) Now() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nowFn()
}

// Config returns the registry settings.
func (s *Service) Config() Config { return s.cfg }

func (s *Service) bootstrap() error {
	return s.run(context.Background(), "bootstrap", nil, func(m *modules) error {
		for _, spec := range []AssetSpec{s.cfg.Reserve, s.cfg.Stake} {
			if spec.Address == (common.Address{}) || m.bank.Exists(spec.Address) {
				continue
			}
			if _, err := m.bank.RegisterAsset(spec.Address, spec.Symbol, spec.Decimals); err != nil {
				return err
			}
		}
		return nil
	})
}

// modules is the set of native modules bound to one call's overlay.
type modules struct {
	state   *state.Manager
	bank    *bank.Ledger
	amm     *amm.Factory
	locks   *votelock.Registry
	factory *launch.Factory
}

func (s *Service) bind(mgr *state.Manager, emitter events.Emitter) *modules {
	m := &modules{state: mgr}
	m.bank = bank.NewLedger(mgr)
	m.bank.SetEmitter(emitter)
	m.amm = amm.NewFactory(mgr, m.bank)
	m.amm.SetEmitter(emitter)
	var stakes launch.StakeView
	if s.cfg.Stake.Address != (common.Address{}) {
		m.locks = votelock.NewRegistry(mgr, m.bank, s.cfg.Stake.Address)
		m.locks.SetEmitter(emitter)
		m.locks.SetNowFunc(s.nowFn)
		stakes = m.locks
	}
	m.factory = launch.NewFactory(s.cfg.Factory)
	m.factory.SetState(mgr)
	m.factory.SetAssets(m.bank)
	m.factory.SetAMM(m.amm)
	m.factory.SetStakeView(stakes)
	m.factory.SetEmitter(emitter)
	m.factory.SetNowFunc(s.nowFn)
	return m
}

var rejections = []error{
	ErrBadRequest,
	launch.ErrConfigInvalid, launch.ErrAlreadyInitialized, launch.ErrNotInitialized, launch.ErrWrongPhase,
	launch.ErrNotParticipantPhase, launch.ErrIssuerExcluded, launch.ErrCapExceeded, launch.ErrInsufficientBalance,
	launch.ErrInvalidAmount, launch.ErrAlreadyClaimed, launch.ErrNothingToClaim, launch.ErrAlreadySettled,
	launch.ErrPoolAlreadyLiquid, launch.ErrNoReserveDeposited, launch.ErrPoolNotCreated, launch.ErrUserTimelockActive,
	launch.ErrIssuerTimelockActive, launch.ErrStopped, launch.ErrNotStopped, launch.ErrUnauthorized,
	launch.ErrSaleExists, launch.ErrSaleNotFound,
	bank.ErrAssetExists, bank.ErrAssetNotFound, bank.ErrInsufficientBalance, bank.ErrInvalidAmount,
	votelock.ErrInvalidAmount, votelock.ErrInvalidDuration, votelock.ErrLockActive, votelock.ErrNoLock,
}

// run executes fn against a fresh overlay. Mutating calls commit on success
// and flush the call's events to the sinks; reads and failures discard.
func (s *Service) run(ctx context.Context, op string, attrs []attribute.KeyValue, fn func(*modules) error) (err error) {
	_, span := s.tracer.Start(ctx, "launchpad."+op, trace.WithAttributes(attrs...))
	defer span.End()

	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	mgr := state.NewManager(s.db)
	buffer := &events.Buffer{}
	err = fn(s.bind(mgr, buffer))
	if err == nil && mgr.Dirty() > 0 {
		if commitErr := mgr.Commit(); commitErr != nil {
			err = fmt.Errorf("launchpad: commit: %w", commitErr)
		}
	}
	if err != nil {
		mgr.Discard()
		buffer.Reset()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		buffer.Flush(s.sinks)
	}

	outcome := observability.Outcome(err, rejections...)
	s.metrics.ObserveOperation(op, outcome, time.Since(start))
	args := []any{"op", op, "outcome", outcome}
	for _, kv := range attrs {
		args = append(args, string(kv.Key), kv.Value.Emit())
	}
	switch outcome {
	case "ok":
		s.logger.Debug("launchpad operation", args...)
	case "rejected":
		s.logger.Info("launchpad operation rejected", append(args, "error", err)...)
	default:
		s.logger.Error("launchpad operation failed", append(args, "error", err)...)
	}
	return err
}

func addrAttr(key string, addr common.Address) attribute.KeyValue {
	return attribute.String(key, addr.Hex())
}

func (s *Service) engine(m *modules, sale common.Address) (*launch.Engine, error) {
	return m.factory.Engine(sale)
}

// RegisterAsset adds a fungible asset to the ledger.
func (s *Service) RegisterAsset(ctx context.Context, addr common.Address, symbol string, decimals uint8) (*bank.Asset, error) {
	var out *bank.Asset
	err := s.run(ctx, "register_asset", []attribute.KeyValue{addrAttr("asset", addr)}, func(m *modules) error {
		var err error
		out, err = m.bank.RegisterAsset(addr, symbol, decimals)
		return err
	})
	return out, err
}

// Mint credits amount of asset to holder.
func (s *Service) Mint(ctx context.Context, asset, to common.Address, amount *big.Int) error {
	return s.run(ctx, "mint", []attribute.KeyValue{addrAttr("asset", asset), addrAttr("actor", to)}, func(m *modules) error {
		return m.bank.Mint(asset, to, amount)
	})
}

// Lock vote-locks amount of the stake asset for owner until unlockAt.
func (s *Service) Lock(ctx context.Context, owner common.Address, amount *big.Int, unlockAt int64) (*votelock.Lock, error) {
	var out *votelock.Lock
	err := s.run(ctx, "lock", []attribute.KeyValue{addrAttr("actor", owner)}, func(m *modules) error {
		if m.locks == nil {
			return fmt.Errorf("%w: no stake asset configured", ErrBadRequest)
		}
		var err error
		out, err = m.locks.Lock(owner, amount, unlockAt)
		return err
	})
	return out, err
}

// Release returns an expired vote-lock to owner.
func (s *Service) Release(ctx context.Context, owner common.Address) (*big.Int, error) {
	var out *big.Int
	err := s.run(ctx, "release", []attribute.KeyValue{addrAttr("actor", owner)}, func(m *modules) error {
		if m.locks == nil {
			return fmt.Errorf("%w: no stake asset configured", ErrBadRequest)
		}
		var err error
		out, err = m.locks.Release(owner)
		return err
	})
	return out, err
}

// CreateSale opens a sale funded by funder.
func (s *Service) CreateSale(ctx context.Context, funder common.Address, req launch.CreateSaleRequest) (*launch.Sale, error) {
	var out *launch.Sale
	err := s.run(ctx, "create_sale", []attribute.KeyValue{addrAttr("sale", req.SaleAsset), addrAttr("actor", funder)}, func(m *modules) error {
		engine, err := m.factory.CreateSale(funder, req)
		if err != nil {
			return err
		}
		out, err = engine.Sale()
		return err
	})
	return out, err
}

// Deposit adds amount of reserve to participant's allocation in sale.
func (s *Service) Deposit(ctx context.Context, sale, participant common.Address, amount *big.Int) error {
	return s.run(ctx, "deposit", []attribute.KeyValue{addrAttr("sale", sale), addrAttr("actor", participant)}, func(m *modules) error {
		engine, err := s.engine(m, sale)
		if err != nil {
			return err
		}
		return engine.Deposit(participant, amount)
	})
}

// Withdraw removes amount from participant's live allocation and returns the
// penalty retained.
func (s *Service) Withdraw(ctx context.Context, sale, participant common.Address, amount *big.Int) (*big.Int, error) {
	var penalty *big.Int
	err := s.run(ctx, "withdraw", []attribute.KeyValue{addrAttr("sale", sale), addrAttr("actor", participant)}, func(m *modules) error {
		engine, err := s.engine(m, sale)
		if err != nil {
			return err
		}
		penalty, err = engine.Withdraw(participant, amount)
		return err
	})
	return penalty, err
}

// CreatePool settles sale into its AMM pair.
func (s *Service) CreatePool(ctx context.Context, sale, caller common.Address) (*launch.SettlementAmounts, error) {
	var out *launch.SettlementAmounts
	err := s.run(ctx, "create_pool", []attribute.KeyValue{addrAttr("sale", sale), addrAttr("actor", caller)}, func(m *modules) error {
		engine, err := s.engine(m, sale)
		if err != nil {
			return err
		}
		out, err = engine.CreatePool(caller)
		return err
	})
	return out, err
}

func (s *Service) claim(ctx context.Context, op string, sale, caller common.Address, fn func(*launch.Engine) (*big.Int, error)) (*big.Int, error) {
	var out *big.Int
	err := s.run(ctx, op, []attribute.KeyValue{addrAttr("sale", sale), addrAttr("actor", caller)}, func(m *modules) error {
		engine, err := s.engine(m, sale)
		if err != nil {
			return err
		}
		out, err = fn(engine)
		return err
	})
	return out, err
}

// ClaimLiquidity pays caller's pool shares.
func (s *Service) ClaimLiquidity(ctx context.Context, sale, caller common.Address) (*big.Int, error) {
	return s.claim(ctx, "claim_liquidity", sale, caller, func(e *launch.Engine) (*big.Int, error) {
		return e.ClaimLiquidity(caller)
	})
}

// ClaimIncentives pays caller's incentives or the issuer refund.
func (s *Service) ClaimIncentives(ctx context.Context, sale, caller common.Address) (*big.Int, error) {
	return s.claim(ctx, "claim_incentives", sale, caller, func(e *launch.Engine) (*big.Int, error) {
		return e.ClaimIncentives(caller)
	})
}

// EmergencyWithdraw recovers caller's funds from a stopped sale.
func (s *Service) EmergencyWithdraw(ctx context.Context, sale, caller common.Address) (*big.Int, error) {
	return s.claim(ctx, "emergency_withdraw", sale, caller, func(e *launch.Engine) (*big.Int, error) {
		return e.EmergencyWithdraw(caller)
	})
}

// Stop halts sale on behalf of caller.
func (s *Service) Stop(ctx context.Context, sale, caller common.Address) error {
	return s.run(ctx, "stop", []attribute.KeyValue{addrAttr("sale", sale), addrAttr("actor", caller)}, func(m *modules) error {
		engine, err := s.engine(m, sale)
		if err != nil {
			return err
		}
		return engine.Stop(caller)
	})
}

// Sale returns a snapshot of sale.
func (s *Service) Sale(ctx context.Context, sale common.Address) (*launch.Sale, error) {
	var out *launch.Sale
	err := s.run(ctx, "sale", []attribute.KeyValue{addrAttr("sale", sale)}, func(m *modules) error {
		engine, err := s.engine(m, sale)
		if err != nil {
			return err
		}
		out, err = engine.Sale()
		return err
	})
	return out, err
}

// Sales returns every sale in creation order.
func (s *Service) Sales(ctx context.Context) ([]*launch.Sale, error) {
	var out []*launch.Sale
	err := s.run(ctx, "sales", nil, func(m *modules) error {
		assets, err := m.factory.Sales()
		if err != nil {
			return err
		}
		out = make([]*launch.Sale, 0, len(assets))
		for _, asset := range assets {
			engine, err := s.engine(m, asset)
			if err != nil {
				return err
			}
			sale, err := engine.Sale()
			if err != nil {
				return err
			}
			out = append(out, sale)
		}
		return nil
	})
	return out, err
}

// Participant returns addr's position in sale.
func (s *Service) Participant(ctx context.Context, sale, addr common.Address) (*launch.ParticipantInfo, error) {
	var out *launch.ParticipantInfo
	err := s.run(ctx, "participant", []attribute.KeyValue{addrAttr("sale", sale), addrAttr("actor", addr)}, func(m *modules) error {
		engine, err := s.engine(m, sale)
		if err != nil {
			return err
		}
		out, err = engine.Info(addr)
		return err
	})
	return out, err
}

// Balance returns holder's balance of asset.
func (s *Service) Balance(ctx context.Context, asset, holder common.Address) (*big.Int, error) {
	var out *big.Int
	err := s.run(ctx, "balance", []attribute.KeyValue{addrAttr("asset", asset)}, func(m *modules) error {
		if !m.bank.Exists(asset) {
			return fmt.Errorf("%w: %s", bank.ErrAssetNotFound, asset.Hex())
		}
		var err error
		out, err = m.bank.BalanceOf(asset, holder)
		return err
	})
	return out, err
}
