package state

import (
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"marketd/native/market"
	"marketd/storage"
)

// Manager owns the persisted schema of the settlement engine: four
// independent, distinctly namespaced key-value maps addressed by composite
// keys. Keys are stored raw (not hashed) so prefix scans return records in
// ascending key order, which is what the ordered query surface relies on.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

var (
	coinDepositPrefix = []byte("market/coin/")
	itemDepositPrefix = []byte("market/item/")
	askPrefix         = []byte("market/ask/")
	bidPrefix         = []byte("market/bid/")
)

// Key components are validated by the market package to never contain the
// separator, so composite keys cannot collide across tuples.
func compositeKey(prefix []byte, parts ...string) []byte {
	size := len(prefix)
	for _, p := range parts {
		size += len(p) + 1
	}
	buf := make([]byte, 0, size)
	buf = append(buf, prefix...)
	for i, p := range parts {
		if i > 0 {
			buf = append(buf, '/')
		}
		buf = append(buf, p...)
	}
	return buf
}

func scanPrefix(prefix []byte, parts ...string) []byte {
	key := compositeKey(prefix, parts...)
	return append(key, '/')
}

// Stored mirror structs keep the RLP wire layout independent of the public
// record types (RLP has no signed integer support, hence the uint32 count).
type storedCoinDeposit struct {
	Owner  string
	Token  string
	Amount *big.Int
	Count  uint32
}

type storedItemDeposit struct {
	Collection string
	Owner      string
	ItemID     string
}

type storedAsk struct {
	Owner      string
	Collection string
	ItemID     string
	Token      string
	Amount     *big.Int
}

type storedBid struct {
	Bidder     string
	Collection string
	ItemID     string
	Token      string
	Amount     *big.Int
}

func (m *Manager) put(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.db.Put(key, encoded)
}

func (m *Manager) get(key []byte, out interface{}) (bool, error) {
	data, err := m.db.Get(key)
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

func coinDepositFromStored(s *storedCoinDeposit) (*market.CoinDeposit, error) {
	if s.Count > math.MaxInt32 {
		return nil, fmt.Errorf("state: coin deposit count out of range: %d", s.Count)
	}
	return &market.CoinDeposit{
		Owner:  s.Owner,
		Token:  s.Token,
		Amount: s.Amount,
		Count:  int32(s.Count),
	}, nil
}

// CoinDepositPut stores the custody balance record for (owner, token).
func (m *Manager) CoinDepositPut(d *market.CoinDeposit) error {
	sanitized, err := market.SanitizeCoinDeposit(d)
	if err != nil {
		return err
	}
	stored := &storedCoinDeposit{
		Owner:  sanitized.Owner,
		Token:  sanitized.Token,
		Amount: sanitized.Amount,
		Count:  uint32(sanitized.Count),
	}
	return m.put(compositeKey(coinDepositPrefix, sanitized.Owner, sanitized.Token), stored)
}

// CoinDepositGet loads the custody balance record for (owner, token).
func (m *Manager) CoinDepositGet(owner, token string) (*market.CoinDeposit, bool, error) {
	var stored storedCoinDeposit
	ok, err := m.get(compositeKey(coinDepositPrefix, owner, token), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	deposit, err := coinDepositFromStored(&stored)
	if err != nil {
		return nil, false, err
	}
	return deposit, true, nil
}

// CoinDepositsByOwner returns every custody balance held for the owner,
// ordered by token contract ascending.
func (m *Manager) CoinDepositsByOwner(owner string) ([]*market.CoinDeposit, error) {
	it := m.db.NewIterator(scanPrefix(coinDepositPrefix, owner))
	defer it.Release()
	deposits := make([]*market.CoinDeposit, 0)
	for it.Next() {
		var stored storedCoinDeposit
		if err := rlp.DecodeBytes(it.Value(), &stored); err != nil {
			return nil, fmt.Errorf("state: decode coin deposit %q: %w", it.Key(), err)
		}
		deposit, err := coinDepositFromStored(&stored)
		if err != nil {
			return nil, err
		}
		deposits = append(deposits, deposit)
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	return deposits, nil
}

// ItemDepositPut stores a custody record for a unique item.
func (m *Manager) ItemDepositPut(d *market.ItemDeposit) error {
	sanitized, err := market.SanitizeItemDeposit(d)
	if err != nil {
		return err
	}
	stored := &storedItemDeposit{
		Collection: sanitized.Collection,
		Owner:      sanitized.Owner,
		ItemID:     sanitized.ItemID,
	}
	return m.put(compositeKey(itemDepositPrefix, sanitized.Collection, sanitized.Owner, sanitized.ItemID), stored)
}

// ItemDepositGet loads the custody record for (collection, owner, itemID).
func (m *Manager) ItemDepositGet(collection, owner, itemID string) (*market.ItemDeposit, bool, error) {
	var stored storedItemDeposit
	ok, err := m.get(compositeKey(itemDepositPrefix, collection, owner, itemID), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &market.ItemDeposit{
		Collection: stored.Collection,
		Owner:      stored.Owner,
		ItemID:     stored.ItemID,
	}, true, nil
}

// ItemDepositDelete removes the custody record for (collection, owner,
// itemID). Deleting an absent record is not an error.
func (m *Manager) ItemDepositDelete(collection, owner, itemID string) error {
	return m.db.Delete(compositeKey(itemDepositPrefix, collection, owner, itemID))
}

// ItemDepositsByOwner returns the owner's custody records within a collection,
// ordered by item id ascending.
func (m *Manager) ItemDepositsByOwner(collection, owner string) ([]*market.ItemDeposit, error) {
	it := m.db.NewIterator(scanPrefix(itemDepositPrefix, collection, owner))
	defer it.Release()
	deposits := make([]*market.ItemDeposit, 0)
	for it.Next() {
		var stored storedItemDeposit
		if err := rlp.DecodeBytes(it.Value(), &stored); err != nil {
			return nil, fmt.Errorf("state: decode item deposit %q: %w", it.Key(), err)
		}
		deposits = append(deposits, &market.ItemDeposit{
			Collection: stored.Collection,
			Owner:      stored.Owner,
			ItemID:     stored.ItemID,
		})
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	return deposits, nil
}

// AskPut stores the sale listing for (collection, itemID).
func (m *Manager) AskPut(a *market.Ask) error {
	sanitized, err := market.SanitizeAsk(a)
	if err != nil {
		return err
	}
	stored := &storedAsk{
		Owner:      sanitized.Owner,
		Collection: sanitized.Collection,
		ItemID:     sanitized.ItemID,
		Token:      sanitized.Token,
		Amount:     sanitized.Amount,
	}
	return m.put(compositeKey(askPrefix, sanitized.Collection, sanitized.ItemID), stored)
}

// AskGet loads the sale listing for (collection, itemID).
func (m *Manager) AskGet(collection, itemID string) (*market.Ask, bool, error) {
	var stored storedAsk
	ok, err := m.get(compositeKey(askPrefix, collection, itemID), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &market.Ask{
		Owner:      stored.Owner,
		Collection: stored.Collection,
		ItemID:     stored.ItemID,
		Token:      stored.Token,
		Amount:     stored.Amount,
	}, true, nil
}

// AskDelete removes the sale listing for (collection, itemID).
func (m *Manager) AskDelete(collection, itemID string) error {
	return m.db.Delete(compositeKey(askPrefix, collection, itemID))
}

// BidPut stores the standing bid for (collection, itemID), replacing any prior
// record.
func (m *Manager) BidPut(b *market.Bid) error {
	sanitized, err := market.SanitizeBid(b)
	if err != nil {
		return err
	}
	stored := &storedBid{
		Bidder:     sanitized.Bidder,
		Collection: sanitized.Collection,
		ItemID:     sanitized.ItemID,
		Token:      sanitized.Token,
		Amount:     sanitized.Amount,
	}
	return m.put(compositeKey(bidPrefix, sanitized.Collection, sanitized.ItemID), stored)
}

// BidGet loads the standing bid for (collection, itemID).
func (m *Manager) BidGet(collection, itemID string) (*market.Bid, bool, error) {
	var stored storedBid
	ok, err := m.get(compositeKey(bidPrefix, collection, itemID), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &market.Bid{
		Bidder:     stored.Bidder,
		Collection: stored.Collection,
		ItemID:     stored.ItemID,
		Token:      stored.Token,
		Amount:     stored.Amount,
	}, true, nil
}

// BidDelete removes the standing bid for (collection, itemID).
func (m *Manager) BidDelete(collection, itemID string) error {
	return m.db.Delete(compositeKey(bidPrefix, collection, itemID))
}
