package bank

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/voltfinance/voltage-launchpad/core/events"
	"github.com/voltfinance/voltage-launchpad/core/state"
)

var (
	ErrAssetExists         = errors.New("bank: asset already registered")
	ErrAssetNotFound       = errors.New("bank: asset not registered")
	ErrInsufficientBalance = errors.New("bank: insufficient balance")
	ErrInvalidAmount       = errors.New("bank: amount must be positive")
)

// MaxDecimals bounds the precision an asset may declare.
const MaxDecimals = 36

// Storage abstracts the subset of state manager functionality required by the
// ledger.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVAppend(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
}

// Asset describes a registered fungible asset.
type Asset struct {
	Address  common.Address
	Symbol   string
	Decimals uint8
	Supply   *big.Int
}

type storedAsset struct {
	Symbol   string
	Decimals uint8
	Supply   *big.Int
}

// Ledger tracks balances of every registered asset.
type Ledger struct {
	store   Storage
	emitter events.Emitter
}

// NewLedger binds a ledger to the provided storage.
func NewLedger(store Storage) *Ledger {
	return &Ledger{store: store, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter used by the ledger.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

// RegisterAsset records a new asset with zero supply.
func (l *Ledger) RegisterAsset(addr common.Address, symbol string, decimals uint8) (*Asset, error) {
	if l == nil || l.store == nil {
		return nil, fmt.Errorf("bank: storage not configured")
	}
	if addr == (common.Address{}) {
		return nil, fmt.Errorf("bank: asset address required")
	}
	normalized := strings.ToUpper(strings.TrimSpace(symbol))
	if normalized == "" {
		return nil, fmt.Errorf("bank: asset symbol required")
	}
	if decimals > MaxDecimals {
		return nil, fmt.Errorf("bank: decimals %d exceed %d", decimals, MaxDecimals)
	}
	if ok, err := l.store.KVGet(state.BankAssetKey(addr), nil); err != nil {
		return nil, err
	} else if ok {
		return nil, fmt.Errorf("%w: %s", ErrAssetExists, addr.Hex())
	}
	stored := storedAsset{Symbol: normalized, Decimals: decimals, Supply: big.NewInt(0)}
	if err := l.store.KVPut(state.BankAssetKey(addr), &stored); err != nil {
		return nil, err
	}
	if err := l.store.KVAppend(state.BankAssetIndexKey(), addr.Bytes()); err != nil {
		return nil, err
	}
	l.emitter.Emit(events.AssetRegistered{Asset: addr, Symbol: normalized, Decimals: decimals})
	return assetFromStored(addr, &stored), nil
}

// Asset returns the metadata for addr.
func (l *Ledger) Asset(addr common.Address) (*Asset, error) {
	stored, err := l.loadAsset(addr)
	if err != nil {
		return nil, err
	}
	return assetFromStored(addr, stored), nil
}

// Assets lists every registered asset in registration order.
func (l *Ledger) Assets() ([]*Asset, error) {
	var index [][]byte
	if err := l.store.KVGetList(state.BankAssetIndexKey(), &index); err != nil {
		return nil, err
	}
	out := make([]*Asset, 0, len(index))
	for _, raw := range index {
		asset, err := l.Asset(common.BytesToAddress(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, asset)
	}
	return out, nil
}

// Exists reports whether addr is a registered asset.
func (l *Ledger) Exists(addr common.Address) bool {
	ok, err := l.store.KVGet(state.BankAssetKey(addr), nil)
	return err == nil && ok
}

// Decimals returns the precision of asset.
func (l *Ledger) Decimals(asset common.Address) (uint8, error) {
	stored, err := l.loadAsset(asset)
	if err != nil {
		return 0, err
	}
	return stored.Decimals, nil
}

// BalanceOf returns the balance of holder in asset. Unknown holders have a
// zero balance.
func (l *Ledger) BalanceOf(asset, holder common.Address) (*big.Int, error) {
	if _, err := l.loadAsset(asset); err != nil {
		return nil, err
	}
	return l.balance(asset, holder)
}

// TotalSupply returns the minted supply of asset.
func (l *Ledger) TotalSupply(asset common.Address) (*big.Int, error) {
	stored, err := l.loadAsset(asset)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(stored.Supply), nil
}

// Transfer moves amount of asset from one holder to another.
func (l *Ledger) Transfer(asset, from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if _, err := l.loadAsset(asset); err != nil {
		return err
	}
	fromBal, err := l.balance(asset, from)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, fromBal, amount)
	}
	if from == to {
		return nil
	}
	toBal, err := l.balance(asset, to)
	if err != nil {
		return err
	}
	if err := l.putBalance(asset, from, fromBal.Sub(fromBal, amount)); err != nil {
		return err
	}
	if err := l.putBalance(asset, to, toBal.Add(toBal, amount)); err != nil {
		return err
	}
	l.emitter.Emit(events.Transfer{Asset: asset, From: from, To: to, Amount: new(big.Int).Set(amount)})
	return nil
}

// Mint credits amount of asset to holder and grows the supply.
func (l *Ledger) Mint(asset, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	stored, err := l.loadAsset(asset)
	if err != nil {
		return err
	}
	bal, err := l.balance(asset, to)
	if err != nil {
		return err
	}
	stored.Supply = new(big.Int).Add(stored.Supply, amount)
	if err := l.store.KVPut(state.BankAssetKey(asset), stored); err != nil {
		return err
	}
	if err := l.putBalance(asset, to, bal.Add(bal, amount)); err != nil {
		return err
	}
	l.emitter.Emit(events.Mint{Asset: asset, To: to, Amount: new(big.Int).Set(amount)})
	return nil
}

func (l *Ledger) loadAsset(addr common.Address) (*storedAsset, error) {
	if l == nil || l.store == nil {
		return nil, fmt.Errorf("bank: storage not configured")
	}
	var stored storedAsset
	ok, err := l.store.KVGet(state.BankAssetKey(addr), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, addr.Hex())
	}
	if stored.Supply == nil {
		stored.Supply = big.NewInt(0)
	}
	return &stored, nil
}

func (l *Ledger) balance(asset, holder common.Address) (*big.Int, error) {
	amount := new(big.Int)
	ok, err := l.store.KVGet(state.BankBalanceKey(asset, holder), amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return amount, nil
}

func (l *Ledger) putBalance(asset, holder common.Address, amount *big.Int) error {
	return l.store.KVPut(state.BankBalanceKey(asset, holder), amount)
}

func assetFromStored(addr common.Address, stored *storedAsset) *Asset {
	supply := big.NewInt(0)
	if stored.Supply != nil {
		supply.Set(stored.Supply)
	}
	return &Asset{Address: addr, Symbol: stored.Symbol, Decimals: stored.Decimals, Supply: supply}
}
