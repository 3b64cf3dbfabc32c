package market

import (
	"errors"
	"math"
	"math/big"
	"testing"
)

func TestNormalizeAddress(t *testing.T) {
	got, err := NormalizeAddress("  Addr-A ")
	if err != nil {
		t.Fatalf("NormalizeAddress: %v", err)
	}
	if got != "addr-a" {
		t.Fatalf("expected lowercase trimmed address, got %q", got)
	}

	if _, err := NormalizeAddress("   "); err == nil {
		t.Fatalf("expected error for blank address")
	}
	if _, err := NormalizeAddress("addr/a"); err == nil {
		t.Fatalf("expected error for separator in address")
	}
}

func TestNormalizeItemID(t *testing.T) {
	got, err := NormalizeItemID(" Token-1 ")
	if err != nil {
		t.Fatalf("NormalizeItemID: %v", err)
	}
	if got != "Token-1" {
		t.Fatalf("item ids are case-sensitive, got %q", got)
	}

	if _, err := NormalizeItemID(""); err == nil {
		t.Fatalf("expected error for empty item id")
	}
	if _, err := NormalizeItemID("a/b"); err == nil {
		t.Fatalf("expected error for separator in item id")
	}
}

func TestNormalizeAmountBounds(t *testing.T) {
	if _, err := normalizeAmount(nil); err == nil {
		t.Fatalf("expected error for nil amount")
	}
	if _, err := normalizeAmount(big.NewInt(-1)); err == nil {
		t.Fatalf("expected error for negative amount")
	}
	if _, err := normalizeAmount(new(big.Int).Set(maxAmount)); err != nil {
		t.Fatalf("max amount should be accepted: %v", err)
	}
	over := new(big.Int).Add(maxAmount, big.NewInt(1))
	if _, err := normalizeAmount(over); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected ErrArithmeticOverflow, got %v", err)
	}
}

func TestCheckedArithmetic(t *testing.T) {
	if _, err := checkedAdd(maxAmount, big.NewInt(1)); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected add overflow, got %v", err)
	}
	if _, err := checkedSub(big.NewInt(1), big.NewInt(2)); !errors.Is(err, ErrArithmeticUnderflow) {
		t.Fatalf("expected sub underflow, got %v", err)
	}
	if _, err := checkedIncCount(math.MaxInt32); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected count overflow, got %v", err)
	}
	if _, err := checkedDecCount(0); !errors.Is(err, ErrArithmeticUnderflow) {
		t.Fatalf("expected count underflow, got %v", err)
	}
	n, err := checkedDecCount(2)
	if err != nil || n != 1 {
		t.Fatalf("checkedDecCount(2) = %d, %v", n, err)
	}
}

func TestSanitizeCoinDeposit(t *testing.T) {
	sanitized, err := SanitizeCoinDeposit(&CoinDeposit{Owner: " A ", Token: "T", Amount: big.NewInt(5), Count: 1})
	if err != nil {
		t.Fatalf("SanitizeCoinDeposit: %v", err)
	}
	if sanitized.Owner != "a" || sanitized.Token != "t" {
		t.Fatalf("addresses not normalised: %+v", sanitized)
	}

	if _, err := SanitizeCoinDeposit(nil); err == nil {
		t.Fatalf("expected error for nil deposit")
	}
	if _, err := SanitizeCoinDeposit(&CoinDeposit{Owner: "a", Token: "t", Amount: big.NewInt(5), Count: -1}); err == nil {
		t.Fatalf("expected error for negative count")
	}
}

func TestSanitizeBid(t *testing.T) {
	sanitized, err := SanitizeBid(&Bid{Bidder: "B", Collection: "C", ItemID: "Id-1", Token: "T", Amount: big.NewInt(10)})
	if err != nil {
		t.Fatalf("SanitizeBid: %v", err)
	}
	if sanitized.Bidder != "b" || sanitized.ItemID != "Id-1" {
		t.Fatalf("unexpected sanitized bid: %+v", sanitized)
	}
	if _, err := SanitizeBid(&Bid{Bidder: "b", Collection: "c", ItemID: "1", Token: "t", Amount: nil}); err == nil {
		t.Fatalf("expected error for nil amount")
	}
}

func TestCloneIsolation(t *testing.T) {
	original := &CoinDeposit{Owner: "a", Token: "t", Amount: big.NewInt(100), Count: 1}
	clone := original.Clone()
	clone.Amount.SetInt64(999)
	clone.Count = 7
	if original.Amount.Cmp(big.NewInt(100)) != 0 || original.Count != 1 {
		t.Fatalf("clone shares storage with original: %+v", original)
	}
}
