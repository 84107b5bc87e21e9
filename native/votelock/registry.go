package votelock

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/voltfinance/voltage-launchpad/core/events"
	"github.com/voltfinance/voltage-launchpad/core/state"
	"github.com/voltfinance/voltage-launchpad/core/types"
)

var (
	ErrInvalidAmount   = errors.New("votelock: amount must be positive")
	ErrInvalidDuration = errors.New("votelock: unlock time must extend the current lock")
	ErrLockActive      = errors.New("votelock: lock has not expired")
	ErrNoLock          = errors.New("votelock: no lock held")
	errNilState        = errors.New("votelock: state not configured")
)

const (
	// EventTypeLocked is emitted when an owner creates or extends a lock.
	EventTypeLocked = "votelock.locked"
	// EventTypeReleased is emitted when an expired lock is withdrawn.
	EventTypeReleased = "votelock.released"
)

// Storage abstracts the subset of state manager functionality required by the
// registry.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
}

// Bank moves the locked asset between owners and the escrow account.
type Bank interface {
	Transfer(asset, from, to common.Address, amount *big.Int) error
}

// Lock describes the vote-escrow position of an owner.
type Lock struct {
	Owner    common.Address
	Amount   *big.Int
	UnlockAt int64
}

type storedLock struct {
	Amount   *big.Int
	UnlockAt uint64
}

// Registry tracks vote-escrow locks of a single asset.
type Registry struct {
	store   Storage
	bank    Bank
	asset   common.Address
	emitter events.Emitter
	nowFn   func() int64
}

// NewRegistry binds a registry to the asset being locked.
func NewRegistry(store Storage, bank Bank, asset common.Address) *Registry {
	return &Registry{
		store:   store,
		bank:    bank,
		asset:   asset,
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetEmitter configures the event emitter used by the registry.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

// SetNowFunc overrides the time source used for deterministic testing.
func (r *Registry) SetNowFunc(now func() int64) {
	if now == nil {
		r.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	r.nowFn = now
}

// Asset returns the asset accepted by the registry.
func (r *Registry) Asset() common.Address { return r.asset }

// EscrowAddress is the account holding every locked balance.
func (r *Registry) EscrowAddress() common.Address {
	return common.BytesToAddress(ethcrypto.Keccak256([]byte("votelock/escrow"), r.asset.Bytes())[12:])
}

// Lock adds amount to the owner's position and moves the unlock time to
// unlockAt. The unlock time may only move forward.
func (r *Registry) Lock(owner common.Address, amount *big.Int, unlockAt int64) (*Lock, error) {
	if r == nil || r.store == nil || r.bank == nil {
		return nil, errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	current, _, err := r.load(owner)
	if err != nil {
		return nil, err
	}
	if unlockAt <= r.nowFn() || unlockAt < current.UnlockAt {
		return nil, ErrInvalidDuration
	}
	next := &Lock{Owner: owner, Amount: new(big.Int).Add(current.Amount, amount), UnlockAt: unlockAt}
	if err := r.store.KVPut(state.VoteLockKey(owner), &storedLock{Amount: next.Amount, UnlockAt: uint64(unlockAt)}); err != nil {
		return nil, err
	}
	if err := r.bank.Transfer(r.asset, owner, r.EscrowAddress(), amount); err != nil {
		return nil, err
	}
	r.emit(EventTypeLocked, owner, next.Amount, unlockAt)
	return next, nil
}

// Release returns an expired lock to its owner.
func (r *Registry) Release(owner common.Address) (*big.Int, error) {
	if r == nil || r.store == nil || r.bank == nil {
		return nil, errNilState
	}
	current, ok, err := r.load(owner)
	if err != nil {
		return nil, err
	}
	if !ok || current.Amount.Sign() == 0 {
		return nil, ErrNoLock
	}
	if r.nowFn() < current.UnlockAt {
		return nil, fmt.Errorf("%w: unlocks at %d", ErrLockActive, current.UnlockAt)
	}
	if err := r.store.KVDelete(state.VoteLockKey(owner)); err != nil {
		return nil, err
	}
	if err := r.bank.Transfer(r.asset, r.EscrowAddress(), owner, current.Amount); err != nil {
		return nil, err
	}
	r.emit(EventTypeReleased, owner, current.Amount, current.UnlockAt)
	return current.Amount, nil
}

// LockOf returns the owner's position; owners without a lock get a zero value.
func (r *Registry) LockOf(owner common.Address) (*Lock, error) {
	if r == nil || r.store == nil {
		return nil, errNilState
	}
	current, _, err := r.load(owner)
	return current, err
}

// IsStaked reports whether owner holds an unexpired, non-empty lock.
func (r *Registry) IsStaked(owner common.Address) (bool, error) {
	current, err := r.LockOf(owner)
	if err != nil {
		return false, err
	}
	return current.Amount.Sign() > 0 && r.nowFn() < current.UnlockAt, nil
}

func (r *Registry) load(owner common.Address) (*Lock, bool, error) {
	var stored storedLock
	ok, err := r.store.KVGet(state.VoteLockKey(owner), &stored)
	if err != nil {
		return nil, false, err
	}
	lock := &Lock{Owner: owner, Amount: big.NewInt(0)}
	if !ok {
		return lock, false, nil
	}
	if stored.Amount != nil {
		lock.Amount.Set(stored.Amount)
	}
	lock.UnlockAt = int64(stored.UnlockAt)
	return lock, true, nil
}

func (r *Registry) emit(kind string, owner common.Address, amount *big.Int, unlockAt int64) {
	r.emitter.Emit(lockEvent{evt: &types.Event{Type: kind, Attributes: map[string]string{
		"owner":    owner.Hex(),
		"asset":    r.asset.Hex(),
		"amount":   amount.String(),
		"unlockAt": fmt.Sprintf("%d", unlockAt),
	}}})
}

type lockEvent struct{ evt *types.Event }

func (e lockEvent) EventType() string    { return e.evt.Type }
func (e lockEvent) Event() *types.Event { return e.evt }
