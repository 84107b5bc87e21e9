package amm

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/voltfinance/voltage-launchpad/core/events"
	"github.com/voltfinance/voltage-launchpad/core/state"
	"github.com/voltfinance/voltage-launchpad/core/types"
	"github.com/voltfinance/voltage-launchpad/native/bank"
)

var (
	ErrIdenticalAssets       = errors.New("amm: identical assets")
	ErrPairExists            = errors.New("amm: pair already exists")
	ErrPairNotFound          = errors.New("amm: pair not found")
	ErrInsufficientLiquidity = errors.New("amm: insufficient liquidity minted")
)

const (
	// EventTypePairCreated is emitted when a new pair is registered.
	EventTypePairCreated = "amm.pair.created"
	// EventTypeLiquidityAdded is emitted when shares are minted against a deposit.
	EventTypeLiquidityAdded = "amm.liquidity.added"

	shareSymbol   = "VLP"
	shareDecimals = 18
)

// Storage abstracts the subset of state manager functionality required by the
// pair registry.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVAppend(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
}

// Bank is the asset ledger pairs settle against. Pool shares are themselves a
// bank asset whose address equals the pair address.
type Bank interface {
	RegisterAsset(addr common.Address, symbol string, decimals uint8) (*bank.Asset, error)
	Exists(addr common.Address) bool
	Transfer(asset, from, to common.Address, amount *big.Int) error
	Mint(asset, to common.Address, amount *big.Int) error
	TotalSupply(asset common.Address) (*big.Int, error)
}

// Pair captures the reserves held by a constant-product pool.
type Pair struct {
	Address  common.Address
	Token0   common.Address
	Token1   common.Address
	Reserve0 *big.Int
	Reserve1 *big.Int
}

// Clone returns a deep copy of the pair.
func (p *Pair) Clone() *Pair {
	if p == nil {
		return nil
	}
	clone := *p
	clone.Reserve0 = new(big.Int).Set(p.Reserve0)
	clone.Reserve1 = new(big.Int).Set(p.Reserve1)
	return &clone
}

type storedPair struct {
	Token0   common.Address
	Token1   common.Address
	Reserve0 *big.Int
	Reserve1 *big.Int
}

// Factory creates pairs and mints pool shares.
type Factory struct {
	store   Storage
	bank    Bank
	emitter events.Emitter
}

// NewFactory constructs a pair factory bound to storage and the asset bank.
func NewFactory(store Storage, bank Bank) *Factory {
	return &Factory{store: store, bank: bank, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter used by the factory.
func (f *Factory) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		f.emitter = events.NoopEmitter{}
		return
	}
	f.emitter = emitter
}

func sortAssets(a, b common.Address) (common.Address, common.Address) {
	if bytes.Compare(a.Bytes(), b.Bytes()) < 0 {
		return a, b
	}
	return b, a
}

// PairAddress deterministically derives the address of the pair for two
// assets, independent of argument order.
func PairAddress(a, b common.Address) common.Address {
	token0, token1 := sortAssets(a, b)
	return common.BytesToAddress(ethcrypto.Keccak256([]byte("amm/pair"), token0.Bytes(), token1.Bytes())[12:])
}

// GetPair returns the pair address for two assets and whether it exists.
func (f *Factory) GetPair(a, b common.Address) (common.Address, bool, error) {
	addr := PairAddress(a, b)
	ok, err := f.store.KVGet(state.AMMPairKey(addr), nil)
	if err != nil {
		return common.Address{}, false, err
	}
	return addr, ok, nil
}

// Pair loads the reserves of an existing pair.
func (f *Factory) Pair(addr common.Address) (*Pair, error) {
	var stored storedPair
	ok, err := f.store.KVGet(state.AMMPairKey(addr), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPairNotFound, addr.Hex())
	}
	return &Pair{
		Address:  addr,
		Token0:   stored.Token0,
		Token1:   stored.Token1,
		Reserve0: nonNil(stored.Reserve0),
		Reserve1: nonNil(stored.Reserve1),
	}, nil
}

// Pairs lists every created pair.
func (f *Factory) Pairs() ([]*Pair, error) {
	var index [][]byte
	if err := f.store.KVGetList(state.AMMPairIndexKey(), &index); err != nil {
		return nil, err
	}
	out := make([]*Pair, 0, len(index))
	for _, raw := range index {
		pair, err := f.Pair(common.BytesToAddress(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, pair)
	}
	return out, nil
}

// CreatePair registers an empty pair for two distinct assets.
func (f *Factory) CreatePair(a, b common.Address) (common.Address, error) {
	if a == b {
		return common.Address{}, ErrIdenticalAssets
	}
	addr, exists, err := f.GetPair(a, b)
	if err != nil {
		return common.Address{}, err
	}
	if exists {
		return common.Address{}, fmt.Errorf("%w: %s", ErrPairExists, addr.Hex())
	}
	token0, token1 := sortAssets(a, b)
	stored := storedPair{Token0: token0, Token1: token1, Reserve0: big.NewInt(0), Reserve1: big.NewInt(0)}
	if err := f.store.KVPut(state.AMMPairKey(addr), &stored); err != nil {
		return common.Address{}, err
	}
	if err := f.store.KVAppend(state.AMMPairIndexKey(), addr.Bytes()); err != nil {
		return common.Address{}, err
	}
	if !f.bank.Exists(addr) {
		if _, err := f.bank.RegisterAsset(addr, shareSymbol, shareDecimals); err != nil {
			return common.Address{}, err
		}
	}
	f.emit(&types.Event{Type: EventTypePairCreated, Attributes: map[string]string{
		"pair":   addr.Hex(),
		"token0": token0.Hex(),
		"token1": token1.Hex(),
	}})
	return addr, nil
}

// TotalSupply returns the outstanding shares of pair. A pair is considered
// liquid once its supply is non-zero.
func (f *Factory) TotalSupply(pair common.Address) (*big.Int, error) {
	if !f.bank.Exists(pair) {
		return big.NewInt(0), nil
	}
	return f.bank.TotalSupply(pair)
}

// AddLiquidity pulls amountA of tokenA and amountB of tokenB from provider
// into the pair and mints the resulting shares to provider.
func (f *Factory) AddLiquidity(provider, tokenA, tokenB common.Address, amountA, amountB *big.Int) (*big.Int, error) {
	if amountA == nil || amountB == nil || amountA.Sign() <= 0 || amountB.Sign() <= 0 {
		return nil, ErrInsufficientLiquidity
	}
	addr, exists, err := f.GetPair(tokenA, tokenB)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrPairNotFound, addr.Hex())
	}
	pair, err := f.Pair(addr)
	if err != nil {
		return nil, err
	}
	amount0, amount1 := amountA, amountB
	if pair.Token0 != tokenA {
		amount0, amount1 = amountB, amountA
	}
	supply, err := f.TotalSupply(addr)
	if err != nil {
		return nil, err
	}
	shares, locked, err := sharesToMint(amount0, amount1, pair.Reserve0, pair.Reserve1, supply)
	if err != nil {
		return nil, err
	}
	if shares.Sign() <= 0 {
		return nil, ErrInsufficientLiquidity
	}

	if err := f.bank.Transfer(pair.Token0, provider, addr, amount0); err != nil {
		return nil, err
	}
	if err := f.bank.Transfer(pair.Token1, provider, addr, amount1); err != nil {
		return nil, err
	}
	stored := storedPair{
		Token0:   pair.Token0,
		Token1:   pair.Token1,
		Reserve0: new(big.Int).Add(pair.Reserve0, amount0),
		Reserve1: new(big.Int).Add(pair.Reserve1, amount1),
	}
	if err := f.store.KVPut(state.AMMPairKey(addr), &stored); err != nil {
		return nil, err
	}
	if locked.Sign() > 0 {
		if err := f.bank.Mint(addr, common.Address{}, locked); err != nil {
			return nil, err
		}
	}
	if err := f.bank.Mint(addr, provider, shares); err != nil {
		return nil, err
	}
	f.emit(&types.Event{Type: EventTypeLiquidityAdded, Attributes: map[string]string{
		"pair":     addr.Hex(),
		"provider": provider.Hex(),
		"amount0":  amount0.String(),
		"amount1":  amount1.String(),
		"shares":   shares.String(),
	}})
	return new(big.Int).Set(shares), nil
}

func (f *Factory) emit(evt *types.Event) {
	if f == nil || evt == nil || f.emitter == nil {
		return
	}
	f.emitter.Emit(eventEnvelope{evt: evt})
}

type eventEnvelope struct {
	evt *types.Event
}

func (e eventEnvelope) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e eventEnvelope) Event() *types.Event { return e.evt }

func nonNil(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
