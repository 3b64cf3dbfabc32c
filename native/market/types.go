package market

import (
	"fmt"
	"math"
	"math/big"
	"strings"
)

// Amounts are unsigned 128-bit quantities. Arithmetic is checked against this
// bound so a bad input surfaces ErrArithmeticOverflow instead of aborting the
// process.
var maxAmount = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// CoinDeposit tracks the cumulative fungible custody balance held by the
// engine for one (owner, token contract) pair. A zero balance is a valid
// terminal state; the record is never deleted.
type CoinDeposit struct {
	Owner  string   `json:"owner"`
	Token  string   `json:"token"`
	Amount *big.Int `json:"amount"`
	Count  int32    `json:"count"`
}

// ItemDeposit records custody of a single unique item. At most one record may
// exist per (collection, owner, item id) and it lives exactly as long as the
// matching Ask.
type ItemDeposit struct {
	Collection string `json:"collection"`
	Owner      string `json:"owner"`
	ItemID     string `json:"item_id"`
}

// Ask is a standing offer to sell a deposited item at a fixed price in a
// specific fungible token. Created atomically with the ItemDeposit and removed
// atomically with it on purchase or withdrawal.
type Ask struct {
	Owner      string   `json:"owner"`
	Collection string   `json:"collection"`
	ItemID     string   `json:"item_id"`
	Token      string   `json:"token"`
	Amount     *big.Int `json:"amount"`
}

// Bid is a standing offer to buy a listed item below its asking price. At most
// one bid exists per (collection, item id); a replacement must be strictly
// higher.
type Bid struct {
	Bidder     string   `json:"bidder"`
	Collection string   `json:"collection"`
	ItemID     string   `json:"item_id"`
	Token      string   `json:"token"`
	Amount     *big.Int `json:"amount"`
}

// Clone returns a deep copy so callers can mutate the copy without affecting
// the stored instance.
func (d *CoinDeposit) Clone() *CoinDeposit {
	if d == nil {
		return nil
	}
	clone := *d
	clone.Amount = cloneBigInt(d.Amount)
	return &clone
}

func (d *ItemDeposit) Clone() *ItemDeposit {
	if d == nil {
		return nil
	}
	clone := *d
	return &clone
}

func (a *Ask) Clone() *Ask {
	if a == nil {
		return nil
	}
	clone := *a
	clone.Amount = cloneBigInt(a.Amount)
	return &clone
}

func (b *Bid) Clone() *Bid {
	if b == nil {
		return nil
	}
	clone := *b
	clone.Amount = cloneBigInt(b.Amount)
	return &clone
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// NormalizeAddress canonicalises an account or contract address. Addresses are
// case-insensitive identifiers; the separator byte is reserved by the storage
// schema.
func NormalizeAddress(addr string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(addr))
	if trimmed == "" {
		return "", fmt.Errorf("market: address must not be empty")
	}
	if strings.ContainsRune(trimmed, '/') {
		return "", fmt.Errorf("market: address %q contains reserved separator", addr)
	}
	return trimmed, nil
}

// NormalizeItemID validates an item identifier. Item ids are opaque and
// case-sensitive, but may not contain the storage key separator.
func NormalizeItemID(id string) (string, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return "", fmt.Errorf("market: item id must not be empty")
	}
	if strings.ContainsRune(trimmed, '/') {
		return "", fmt.Errorf("market: item id %q contains reserved separator", id)
	}
	return trimmed, nil
}

func normalizeAmount(amount *big.Int) (*big.Int, error) {
	if amount == nil {
		return nil, fmt.Errorf("market: amount must not be nil")
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("market: amount must not be negative")
	}
	if amount.Cmp(maxAmount) > 0 {
		return nil, ErrArithmeticOverflow
	}
	return new(big.Int).Set(amount), nil
}

func checkedAdd(a, b *big.Int) (*big.Int, error) {
	sum := new(big.Int).Add(a, b)
	if sum.Cmp(maxAmount) > 0 {
		return nil, ErrArithmeticOverflow
	}
	return sum, nil
}

func checkedSub(a, b *big.Int) (*big.Int, error) {
	if a.Cmp(b) < 0 {
		return nil, ErrArithmeticUnderflow
	}
	return new(big.Int).Sub(a, b), nil
}

func checkedIncCount(count int32) (int32, error) {
	if count == math.MaxInt32 {
		return 0, ErrArithmeticOverflow
	}
	return count + 1, nil
}

func checkedDecCount(count int32) (int32, error) {
	if count <= 0 {
		return 0, ErrArithmeticUnderflow
	}
	return count - 1, nil
}

// SanitizeCoinDeposit validates and normalises a coin deposit record,
// returning a cloned instance. The original value is not mutated.
func SanitizeCoinDeposit(d *CoinDeposit) (*CoinDeposit, error) {
	if d == nil {
		return nil, fmt.Errorf("market: nil coin deposit")
	}
	owner, err := NormalizeAddress(d.Owner)
	if err != nil {
		return nil, err
	}
	token, err := NormalizeAddress(d.Token)
	if err != nil {
		return nil, err
	}
	if d.Count < 0 {
		return nil, fmt.Errorf("market: deposit count must not be negative")
	}
	amount, err := normalizeAmount(d.Amount)
	if err != nil {
		return nil, err
	}
	return &CoinDeposit{Owner: owner, Token: token, Amount: amount, Count: d.Count}, nil
}

// SanitizeItemDeposit validates and normalises an item deposit record.
func SanitizeItemDeposit(d *ItemDeposit) (*ItemDeposit, error) {
	if d == nil {
		return nil, fmt.Errorf("market: nil item deposit")
	}
	collection, err := NormalizeAddress(d.Collection)
	if err != nil {
		return nil, err
	}
	owner, err := NormalizeAddress(d.Owner)
	if err != nil {
		return nil, err
	}
	itemID, err := NormalizeItemID(d.ItemID)
	if err != nil {
		return nil, err
	}
	return &ItemDeposit{Collection: collection, Owner: owner, ItemID: itemID}, nil
}

// SanitizeAsk validates and normalises an ask record.
func SanitizeAsk(a *Ask) (*Ask, error) {
	if a == nil {
		return nil, fmt.Errorf("market: nil ask")
	}
	owner, err := NormalizeAddress(a.Owner)
	if err != nil {
		return nil, err
	}
	collection, err := NormalizeAddress(a.Collection)
	if err != nil {
		return nil, err
	}
	itemID, err := NormalizeItemID(a.ItemID)
	if err != nil {
		return nil, err
	}
	token, err := NormalizeAddress(a.Token)
	if err != nil {
		return nil, err
	}
	amount, err := normalizeAmount(a.Amount)
	if err != nil {
		return nil, err
	}
	return &Ask{Owner: owner, Collection: collection, ItemID: itemID, Token: token, Amount: amount}, nil
}

// SanitizeBid validates and normalises a bid record.
func SanitizeBid(b *Bid) (*Bid, error) {
	if b == nil {
		return nil, fmt.Errorf("market: nil bid")
	}
	bidder, err := NormalizeAddress(b.Bidder)
	if err != nil {
		return nil, err
	}
	collection, err := NormalizeAddress(b.Collection)
	if err != nil {
		return nil, err
	}
	itemID, err := NormalizeItemID(b.ItemID)
	if err != nil {
		return nil, err
	}
	token, err := NormalizeAddress(b.Token)
	if err != nil {
		return nil, err
	}
	amount, err := normalizeAmount(b.Amount)
	if err != nil {
		return nil, err
	}
	return &Bid{Bidder: bidder, Collection: collection, ItemID: itemID, Token: token, Amount: amount}, nil
}
