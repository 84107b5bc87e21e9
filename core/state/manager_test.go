package state

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/voltfinance/voltage-launchpad/storage"
)

type record struct {
	Amount *big.Int
	At     uint64
	Done   bool
}

func TestKeyFormats(t *testing.T) {
	asset := common.HexToAddress("0xAB")
	user := common.HexToAddress("0x01")

	if got := string(LaunchSaleKey(asset)); got != "launch/sale/00000000000000000000000000000000000000ab" {
		t.Fatalf("unexpected sale key: %s", got)
	}
	want := "launch/sale/00000000000000000000000000000000000000ab/participant/0000000000000000000000000000000000000001"
	if got := string(LaunchParticipantKey(asset, user)); got != want {
		t.Fatalf("unexpected participant key: %s", got)
	}
	if string(LaunchSaleIndexKey()) != "launch/sales" {
		t.Fatalf("unexpected index key")
	}
}

func TestOverlayCommit(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()
	mgr := NewManager(db)

	if err := mgr.KVPut([]byte("k"), &record{Amount: big.NewInt(42), At: 7, Done: true}); err != nil {
		t.Fatalf("put: %v", err)
	}
	var got record
	ok, err := mgr.KVGet([]byte("k"), &got)
	if err != nil || !ok {
		t.Fatalf("overlay read: ok=%v err=%v", ok, err)
	}
	if got.Amount.Cmp(big.NewInt(42)) != 0 || got.At != 7 || !got.Done {
		t.Fatalf("unexpected record: %+v", got)
	}

	fresh := NewManager(db)
	if ok, _ := fresh.KVGet([]byte("k"), nil); ok {
		t.Fatalf("uncommitted write visible to another manager")
	}

	if err := mgr.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if mgr.Dirty() != 0 {
		t.Fatalf("overlay not cleared after commit")
	}
	if ok, _ := fresh.KVGet([]byte("k"), nil); !ok {
		t.Fatalf("committed write not visible")
	}
}

func TestOverlayDiscard(t *testing.T) {
	db := storage.NewMemDB()
	mgr := NewManager(db)
	if err := mgr.KVPut([]byte("keep"), uint64(1)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := mgr.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if err := mgr.KVPut([]byte("keep"), uint64(2)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := mgr.KVDelete([]byte("keep")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok, _ := mgr.KVGet([]byte("keep"), nil); ok {
		t.Fatalf("deleted key still visible in overlay")
	}
	mgr.Discard()

	var value uint64
	ok, err := mgr.KVGet([]byte("keep"), &value)
	if err != nil || !ok || value != 1 {
		t.Fatalf("expected committed value 1, got %d ok=%v err=%v", value, ok, err)
	}
}

func TestKVAppendDeduplicates(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	var empty [][]byte
	if err := mgr.KVGetList([]byte("idx"), &empty); err != nil {
		t.Fatalf("get empty list: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected initialised empty list")
	}
	for _, v := range [][]byte{{1}, {2}, {1}} {
		if err := mgr.KVAppend([]byte("idx"), v); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	var list [][]byte
	if err := mgr.KVGetList([]byte("idx"), &list); err != nil {
		t.Fatalf("get list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(list))
	}
}
