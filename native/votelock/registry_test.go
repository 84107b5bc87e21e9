package votelock

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/voltfinance/voltage-launchpad/core/state"
	"github.com/voltfinance/voltage-launchpad/native/bank"
	"github.com/voltfinance/voltage-launchpad/storage"
)

func TestLockLifecycle(t *testing.T) {
	mgr := state.NewManager(storage.NewMemDB())
	ledger := bank.NewLedger(mgr)
	volt := common.HexToAddress("0x0F")
	owner := common.HexToAddress("0x01")
	if _, err := ledger.RegisterAsset(volt, "VOLT", 18); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := ledger.Mint(volt, owner, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	now := int64(1_000)
	registry := NewRegistry(mgr, ledger, volt)
	registry.SetNowFunc(func() int64 { return now })

	staked, err := registry.IsStaked(owner)
	if err != nil || staked {
		t.Fatalf("fresh account must not be staked: staked=%v err=%v", staked, err)
	}

	if _, err := registry.Lock(owner, big.NewInt(40), now); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
	if _, err := registry.Lock(owner, big.NewInt(0), now+10); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	lock, err := registry.Lock(owner, big.NewInt(40), now+100)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if lock.Amount.Int64() != 40 {
		t.Fatalf("expected 40 locked, got %s", lock.Amount)
	}
	if _, err := registry.Lock(owner, big.NewInt(10), now+50); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("unlock time cannot move backwards: %v", err)
	}

	if staked, err = registry.IsStaked(owner); err != nil || !staked {
		t.Fatalf("active lock must count as staked: staked=%v err=%v", staked, err)
	}
	escrowed, err := ledger.BalanceOf(volt, registry.EscrowAddress())
	if err != nil {
		t.Fatalf("escrow balance: %v", err)
	}
	if escrowed.Int64() != 40 {
		t.Fatalf("expected 40 in escrow, got %s", escrowed)
	}
	if _, err := registry.Release(owner); !errors.Is(err, ErrLockActive) {
		t.Fatalf("expected ErrLockActive, got %v", err)
	}

	now += 100
	if staked, err = registry.IsStaked(owner); err != nil || staked {
		t.Fatalf("expired lock no longer counts as staked: staked=%v err=%v", staked, err)
	}

	released, err := registry.Release(owner)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if released.Int64() != 40 {
		t.Fatalf("expected 40 released, got %s", released)
	}
	balance, err := ledger.BalanceOf(volt, owner)
	if err != nil {
		t.Fatalf("owner balance: %v", err)
	}
	if balance.Int64() != 100 {
		t.Fatalf("expected full balance back, got %s", balance)
	}

	if _, err := registry.Release(owner); !errors.Is(err, ErrNoLock) {
		t.Fatalf("expected ErrNoLock, got %v", err)
	}
}
