package state

import (
	"math/big"
	"testing"

	"marketd/native/market"
	"marketd/storage"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(storage.NewMemDB())
}

func TestCoinDepositRoundTrip(t *testing.T) {
	manager := newTestManager(t)

	if _, ok, err := manager.CoinDepositGet("owner", "token"); err != nil || ok {
		t.Fatalf("expected absent record: ok=%v err=%v", ok, err)
	}

	deposit := &market.CoinDeposit{Owner: "Owner", Token: "Token", Amount: big.NewInt(750), Count: 2}
	if err := manager.CoinDepositPut(deposit); err != nil {
		t.Fatalf("CoinDepositPut: %v", err)
	}

	// Keys are addressed by the normalised form.
	loaded, ok, err := manager.CoinDepositGet("owner", "token")
	if err != nil || !ok {
		t.Fatalf("CoinDepositGet: ok=%v err=%v", ok, err)
	}
	if loaded.Owner != "owner" || loaded.Token != "token" {
		t.Fatalf("record not normalised on write: %+v", loaded)
	}
	if loaded.Amount.Cmp(big.NewInt(750)) != 0 || loaded.Count != 2 {
		t.Fatalf("round-trip mismatch: %+v", loaded)
	}
}

func TestCoinDepositPutRejectsInvalid(t *testing.T) {
	manager := newTestManager(t)

	if err := manager.CoinDepositPut(nil); err == nil {
		t.Fatalf("expected error for nil record")
	}
	if err := manager.CoinDepositPut(&market.CoinDeposit{Owner: "", Token: "t", Amount: big.NewInt(1)}); err == nil {
		t.Fatalf("expected error for empty owner")
	}
	if err := manager.CoinDepositPut(&market.CoinDeposit{Owner: "o", Token: "t", Amount: nil}); err == nil {
		t.Fatalf("expected error for nil amount")
	}
}

func TestCoinDepositsByOwnerOrdered(t *testing.T) {
	manager := newTestManager(t)

	for _, token := range []string{"token-c", "token-a", "token-b"} {
		err := manager.CoinDepositPut(&market.CoinDeposit{Owner: "owner", Token: token, Amount: big.NewInt(1), Count: 1})
		if err != nil {
			t.Fatalf("put %s: %v", token, err)
		}
	}
	// A different owner must not leak into the scan.
	err := manager.CoinDepositPut(&market.CoinDeposit{Owner: "owner2", Token: "token-z", Amount: big.NewInt(1), Count: 1})
	if err != nil {
		t.Fatalf("put owner2: %v", err)
	}

	deposits, err := manager.CoinDepositsByOwner("owner")
	if err != nil {
		t.Fatalf("CoinDepositsByOwner: %v", err)
	}
	if len(deposits) != 3 {
		t.Fatalf("expected 3 deposits, got %d", len(deposits))
	}
	for i, token := range []string{"token-a", "token-b", "token-c"} {
		if deposits[i].Token != token {
			t.Fatalf("scan out of order at %d: %+v", i, deposits)
		}
	}
}

func TestScanDoesNotMatchOwnerPrefix(t *testing.T) {
	manager := newTestManager(t)

	err := manager.CoinDepositPut(&market.CoinDeposit{Owner: "owner", Token: "t", Amount: big.NewInt(1), Count: 1})
	if err != nil {
		t.Fatalf("put owner: %v", err)
	}
	err = manager.CoinDepositPut(&market.CoinDeposit{Owner: "owner2", Token: "t", Amount: big.NewInt(1), Count: 1})
	if err != nil {
		t.Fatalf("put owner2: %v", err)
	}

	// "owner" must not match "owner2" even though it is a string prefix;
	// the scan key is terminated by the separator.
	deposits, err := manager.CoinDepositsByOwner("owner")
	if err != nil {
		t.Fatalf("CoinDepositsByOwner: %v", err)
	}
	if len(deposits) != 1 || deposits[0].Owner != "owner" {
		t.Fatalf("prefix scan leaked records: %+v", deposits)
	}
}

func TestItemDepositLifecycle(t *testing.T) {
	manager := newTestManager(t)

	deposit := &market.ItemDeposit{Collection: "coll", Owner: "owner", ItemID: "Item-1"}
	if err := manager.ItemDepositPut(deposit); err != nil {
		t.Fatalf("ItemDepositPut: %v", err)
	}

	loaded, ok, err := manager.ItemDepositGet("coll", "owner", "Item-1")
	if err != nil || !ok {
		t.Fatalf("ItemDepositGet: ok=%v err=%v", ok, err)
	}
	if loaded.ItemID != "Item-1" {
		t.Fatalf("item id not preserved case-sensitively: %+v", loaded)
	}

	if err := manager.ItemDepositDelete("coll", "owner", "Item-1"); err != nil {
		t.Fatalf("ItemDepositDelete: %v", err)
	}
	if _, ok, _ := manager.ItemDepositGet("coll", "owner", "Item-1"); ok {
		t.Fatalf("record survived delete")
	}
	// Idempotent delete.
	if err := manager.ItemDepositDelete("coll", "owner", "Item-1"); err != nil {
		t.Fatalf("repeat delete: %v", err)
	}
}

func TestItemDepositsByOwnerOrdered(t *testing.T) {
	manager := newTestManager(t)

	for _, id := range []string{"3", "1", "2"} {
		if err := manager.ItemDepositPut(&market.ItemDeposit{Collection: "coll", Owner: "owner", ItemID: id}); err != nil {
			t.Fatalf("put %s: %v", id, err)
		}
	}
	if err := manager.ItemDepositPut(&market.ItemDeposit{Collection: "coll", Owner: "other", ItemID: "9"}); err != nil {
		t.Fatalf("put other: %v", err)
	}
	if err := manager.ItemDepositPut(&market.ItemDeposit{Collection: "coll2", Owner: "owner", ItemID: "9"}); err != nil {
		t.Fatalf("put coll2: %v", err)
	}

	deposits, err := manager.ItemDepositsByOwner("coll", "owner")
	if err != nil {
		t.Fatalf("ItemDepositsByOwner: %v", err)
	}
	if len(deposits) != 3 {
		t.Fatalf("expected 3 deposits, got %d", len(deposits))
	}
	for i, id := range []string{"1", "2", "3"} {
		if deposits[i].ItemID != id {
			t.Fatalf("scan out of order at %d: %+v", i, deposits)
		}
	}
}

func TestAskRoundTrip(t *testing.T) {
	manager := newTestManager(t)

	ask := &market.Ask{Owner: "owner", Collection: "coll", ItemID: "1", Token: "token", Amount: big.NewInt(500)}
	if err := manager.AskPut(ask); err != nil {
		t.Fatalf("AskPut: %v", err)
	}

	loaded, ok, err := manager.AskGet("coll", "1")
	if err != nil || !ok {
		t.Fatalf("AskGet: ok=%v err=%v", ok, err)
	}
	if loaded.Owner != "owner" || loaded.Amount.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("round-trip mismatch: %+v", loaded)
	}

	if err := manager.AskDelete("coll", "1"); err != nil {
		t.Fatalf("AskDelete: %v", err)
	}
	if _, ok, _ := manager.AskGet("coll", "1"); ok {
		t.Fatalf("ask survived delete")
	}
}

func TestBidRoundTripAndReplace(t *testing.T) {
	manager := newTestManager(t)

	bid := &market.Bid{Bidder: "bidder", Collection: "coll", ItemID: "1", Token: "token", Amount: big.NewInt(200)}
	if err := manager.BidPut(bid); err != nil {
		t.Fatalf("BidPut: %v", err)
	}

	replacement := &market.Bid{Bidder: "bidder2", Collection: "coll", ItemID: "1", Token: "token", Amount: big.NewInt(300)}
	if err := manager.BidPut(replacement); err != nil {
		t.Fatalf("replace: %v", err)
	}

	loaded, ok, err := manager.BidGet("coll", "1")
	if err != nil || !ok {
		t.Fatalf("BidGet: ok=%v err=%v", ok, err)
	}
	if loaded.Bidder != "bidder2" || loaded.Amount.Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("replacement not visible: %+v", loaded)
	}

	if err := manager.BidDelete("coll", "1"); err != nil {
		t.Fatalf("BidDelete: %v", err)
	}
	if _, ok, _ := manager.BidGet("coll", "1"); ok {
		t.Fatalf("bid survived delete")
	}
}

func TestLargeAmountRoundTrip(t *testing.T) {
	manager := newTestManager(t)

	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	deposit := &market.CoinDeposit{Owner: "owner", Token: "token", Amount: max, Count: 1}
	if err := manager.CoinDepositPut(deposit); err != nil {
		t.Fatalf("CoinDepositPut: %v", err)
	}
	loaded, ok, err := manager.CoinDepositGet("owner", "token")
	if err != nil || !ok {
		t.Fatalf("CoinDepositGet: ok=%v err=%v", ok, err)
	}
	if loaded.Amount.Cmp(max) != 0 {
		t.Fatalf("128-bit amount mangled: %v", loaded.Amount)
	}
}
