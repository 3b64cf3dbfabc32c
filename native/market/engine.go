package market

import (
	"errors"
	"math/big"

	"marketd/core/events"
	"marketd/core/types"
	nativecommon "marketd/native/common"
)

var errNilState = errors.New("market engine: state not configured")

const moduleName = "market"

// engineState is the injected ledger store abstraction. The engine exclusively
// owns every mutation path into the four record maps; implementations only
// have to provide keyed access and ordered scans.
type engineState interface {
	CoinDepositGet(owner, token string) (*CoinDeposit, bool, error)
	CoinDepositPut(*CoinDeposit) error
	ItemDepositGet(collection, owner, itemID string) (*ItemDeposit, bool, error)
	ItemDepositPut(*ItemDeposit) error
	ItemDepositDelete(collection, owner, itemID string) error
	AskGet(collection, itemID string) (*Ask, bool, error)
	AskPut(*Ask) error
	AskDelete(collection, itemID string) error
	BidGet(collection, itemID string) (*Bid, bool, error)
	BidPut(*Bid) error
	BidDelete(collection, itemID string) error
	CoinDepositsByOwner(owner string) ([]*CoinDeposit, error)
	ItemDepositsByOwner(collection, owner string) ([]*ItemDeposit, error)
}

type marketEvent struct {
	evt *types.Event
}

func (e marketEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e marketEvent) Event() *types.Event { return e.evt }

// Engine is the settlement state machine. Each exported transition runs
// validation first and only then mutates the store, so a failed call leaves no
// partial state behind; the host serialises calls and executes the returned
// instructions atomically with the transition.
type Engine struct {
	state   engineState
	emitter events.Emitter
	pauses  nativecommon.PauseView
}

// NewEngine creates a settlement engine with a no-op emitter. Callers can
// override the emitter via SetEmitter.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetPauses configures the pause view consulted before every mutating
// transition.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(marketEvent{evt: event})
}

func (e *Engine) guard() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	return nativecommon.Guard(e.pauses, moduleName)
}

// DepositCoin credits an inbound fungible transfer to the owner's custody
// balance. The transfer itself already happened on the external ledger, so no
// outbound instruction is produced.
func (e *Engine) DepositCoin(owner, token string, amount *big.Int) (*CoinDeposit, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	owner, err := NormalizeAddress(owner)
	if err != nil {
		return nil, err
	}
	token, err = NormalizeAddress(token)
	if err != nil {
		return nil, err
	}
	amt, err := normalizeAmount(amount)
	if err != nil {
		return nil, err
	}
	if amt.Sign() == 0 {
		return nil, ErrInvalidAmount
	}
	deposit, ok, err := e.state.CoinDepositGet(owner, token)
	if err != nil {
		return nil, err
	}
	if !ok {
		deposit = &CoinDeposit{Owner: owner, Token: token, Amount: amt, Count: 1}
	} else {
		sum, err := checkedAdd(deposit.Amount, amt)
		if err != nil {
			return nil, err
		}
		count, err := checkedIncCount(deposit.Count)
		if err != nil {
			return nil, err
		}
		deposit.Amount = sum
		deposit.Count = count
	}
	if err := e.state.CoinDepositPut(deposit); err != nil {
		return nil, err
	}
	e.emit(NewCoinDepositedEvent(deposit))
	return deposit.Clone(), nil
}

// WithdrawCoin debits the owner's custody balance and instructs the fungible
// ledger to pay the owner out.
func (e *Engine) WithdrawCoin(owner, token string, amount *big.Int) (*CoinDeposit, []Instruction, error) {
	if err := e.guard(); err != nil {
		return nil, nil, err
	}
	owner, err := NormalizeAddress(owner)
	if err != nil {
		return nil, nil, err
	}
	token, err = NormalizeAddress(token)
	if err != nil {
		return nil, nil, err
	}
	amt, err := normalizeAmount(amount)
	if err != nil {
		return nil, nil, err
	}
	if amt.Sign() == 0 {
		return nil, nil, ErrInvalidAmount
	}
	deposit, ok, err := e.state.CoinDepositGet(owner, token)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, ErrInsufficientDeposit
	}
	if deposit.Amount.Cmp(amt) < 0 {
		return nil, nil, ErrInsufficientDeposit
	}
	remaining, err := checkedSub(deposit.Amount, amt)
	if err != nil {
		return nil, nil, err
	}
	count, err := checkedDecCount(deposit.Count)
	if err != nil {
		return nil, nil, err
	}
	deposit.Amount = remaining
	deposit.Count = count
	if err := e.state.CoinDepositPut(deposit); err != nil {
		return nil, nil, err
	}
	e.emit(NewCoinWithdrawnEvent(deposit, amt))
	return deposit.Clone(), []Instruction{transferCoin(token, owner, amt)}, nil
}

// DepositItem records custody of an inbound unique item and atomically lists
// it for sale at the supplied asking price.
func (e *Engine) DepositItem(collection, owner, itemID, payToken string, askAmount *big.Int) (*Ask, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	deposit, err := SanitizeItemDeposit(&ItemDeposit{Collection: collection, Owner: owner, ItemID: itemID})
	if err != nil {
		return nil, err
	}
	ask, err := SanitizeAsk(&Ask{
		Owner:      deposit.Owner,
		Collection: deposit.Collection,
		ItemID:     deposit.ItemID,
		Token:      payToken,
		Amount:     askAmount,
	})
	if err != nil {
		return nil, err
	}
	_, ok, err := e.state.ItemDepositGet(deposit.Collection, deposit.Owner, deposit.ItemID)
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, ErrAlreadyDeposited
	}
	if err := e.state.ItemDepositPut(deposit); err != nil {
		return nil, err
	}
	if err := e.state.AskPut(ask); err != nil {
		return nil, err
	}
	e.emit(NewItemDepositedEvent(deposit, ask))
	return ask.Clone(), nil
}

// WithdrawItem removes the caller's item from custody together with its ask
// and instructs the collection to return the item. Any standing bid on the
// item is left in place.
func (e *Engine) WithdrawItem(owner, collection, itemID string) ([]Instruction, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	owner, err := NormalizeAddress(owner)
	if err != nil {
		return nil, err
	}
	collection, err = NormalizeAddress(collection)
	if err != nil {
		return nil, err
	}
	itemID, err = NormalizeItemID(itemID)
	if err != nil {
		return nil, err
	}
	deposit, ok, err := e.state.ItemDepositGet(collection, owner, itemID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoSuchDeposit
	}
	if err := e.state.ItemDepositDelete(collection, owner, itemID); err != nil {
		return nil, err
	}
	if err := e.state.AskDelete(collection, itemID); err != nil {
		return nil, err
	}
	e.emit(NewItemWithdrawnEvent(deposit))
	return []Instruction{transferItem(collection, owner, itemID)}, nil
}

// Purchase settles a listing against an inbound payment that exactly matches
// the asking price. The item deposit and ask are removed and the item is
// transferred to the buyer. A standing bid on the item is not refunded here;
// its funds remain reachable only through the generic coin-withdrawal path.
func (e *Engine) Purchase(buyer, collection, itemID, payToken string, paidAmount *big.Int) ([]Instruction, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	buyer, err := NormalizeAddress(buyer)
	if err != nil {
		return nil, err
	}
	collection, err = NormalizeAddress(collection)
	if err != nil {
		return nil, err
	}
	itemID, err = NormalizeItemID(itemID)
	if err != nil {
		return nil, err
	}
	payToken, err = NormalizeAddress(payToken)
	if err != nil {
		return nil, err
	}
	paid, err := normalizeAmount(paidAmount)
	if err != nil {
		return nil, err
	}
	ask, ok, err := e.state.AskGet(collection, itemID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoSuchAsk
	}
	if payToken != ask.Token {
		return nil, ErrPaymentTokenMismatch
	}
	if paid.Cmp(ask.Amount) != 0 {
		return nil, ErrInvalidAmount
	}
	if err := e.state.ItemDepositDelete(collection, ask.Owner, itemID); err != nil {
		return nil, err
	}
	if err := e.state.AskDelete(collection, itemID); err != nil {
		return nil, err
	}
	e.emit(NewPurchasedEvent(ask, buyer))
	return []Instruction{transferItem(collection, buyer, itemID)}, nil
}

// PlaceBid records a standing bid below the asking price, replacing any prior
// bid that it strictly exceeds. The prior bidder's funds are left in the
// generic custody accounting; no refund instruction is produced.
func (e *Engine) PlaceBid(bidder, collection, itemID, payToken string, offered *big.Int) (*Bid, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	bid, err := SanitizeBid(&Bid{
		Bidder:     bidder,
		Collection: collection,
		ItemID:     itemID,
		Token:      payToken,
		Amount:     offered,
	})
	if err != nil {
		return nil, err
	}
	ask, ok, err := e.state.AskGet(bid.Collection, bid.ItemID)
	if err != nil {
		return nil, err
	}
	if ok && bid.Amount.Cmp(ask.Amount) >= 0 {
		return nil, ErrBidTooHigh
	}
	existing, ok, err := e.state.BidGet(bid.Collection, bid.ItemID)
	if err != nil {
		return nil, err
	}
	if ok && bid.Amount.Cmp(existing.Amount) <= 0 {
		return nil, ErrBidTooLow
	}
	if err := e.state.BidPut(bid); err != nil {
		return nil, err
	}
	e.emit(NewBidPlacedEvent(bid))
	return bid.Clone(), nil
}

// WithdrawBid removes the caller's standing bid and instructs the fungible
// ledger to refund the escrowed bid amount.
func (e *Engine) WithdrawBid(requester, collection, itemID string) ([]Instruction, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	requester, err := NormalizeAddress(requester)
	if err != nil {
		return nil, err
	}
	collection, err = NormalizeAddress(collection)
	if err != nil {
		return nil, err
	}
	itemID, err = NormalizeItemID(itemID)
	if err != nil {
		return nil, err
	}
	bid, ok, err := e.state.BidGet(collection, itemID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoBidToWithdraw
	}
	if requester != bid.Bidder {
		return nil, ErrUnauthorized
	}
	if err := e.state.BidDelete(collection, itemID); err != nil {
		return nil, err
	}
	e.emit(NewBidWithdrawnEvent(bid))
	return []Instruction{transferCoin(bid.Token, bid.Bidder, bid.Amount)}, nil
}

// CoinDeposits returns the owner's custody balances ordered by token contract.
func (e *Engine) CoinDeposits(owner string) ([]*CoinDeposit, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	owner, err := NormalizeAddress(owner)
	if err != nil {
		return nil, err
	}
	return e.state.CoinDepositsByOwner(owner)
}

// ItemDeposits returns the owner's custody records within a collection ordered
// by item id.
func (e *Engine) ItemDeposits(owner, collection string) ([]*ItemDeposit, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	owner, err := NormalizeAddress(owner)
	if err != nil {
		return nil, err
	}
	collection, err = NormalizeAddress(collection)
	if err != nil {
		return nil, err
	}
	return e.state.ItemDepositsByOwner(collection, owner)
}

// Bid returns the standing bid for an item, if any.
func (e *Engine) Bid(collection, itemID string) (*Bid, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, errNilState
	}
	collection, err := NormalizeAddress(collection)
	if err != nil {
		return nil, false, err
	}
	itemID, err = NormalizeItemID(itemID)
	if err != nil {
		return nil, false, err
	}
	return e.state.BidGet(collection, itemID)
}
