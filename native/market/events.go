package market

import (
	"math/big"
	"strconv"

	"marketd/core/types"
)

const (
	EventTypeCoinDeposited = "market.coin.deposited"
	EventTypeCoinWithdrawn = "market.coin.withdrawn"
	EventTypeItemDeposited = "market.item.deposited"
	EventTypeItemWithdrawn = "market.item.withdrawn"
	EventTypePurchased     = "market.purchased"
	EventTypeBidPlaced     = "market.bid.placed"
	EventTypeBidWithdrawn  = "market.bid.withdrawn"
)

// NewCoinDepositedEvent returns the canonical payload emitted after a coin
// deposit has been credited.
func NewCoinDepositedEvent(d *CoinDeposit) *types.Event {
	attrs := make(map[string]string)
	if d != nil {
		attrs["owner"] = d.Owner
		attrs["token"] = d.Token
		attrs["amount"] = d.Amount.String()
		attrs["count"] = strconv.FormatInt(int64(d.Count), 10)
	}
	return &types.Event{Type: EventTypeCoinDeposited, Attributes: attrs}
}

// NewCoinWithdrawnEvent returns the canonical payload emitted after a coin
// withdrawal. The attributes carry both the withdrawn amount and the remaining
// balance.
func NewCoinWithdrawnEvent(d *CoinDeposit, withdrawn *big.Int) *types.Event {
	attrs := make(map[string]string)
	if d != nil {
		attrs["owner"] = d.Owner
		attrs["token"] = d.Token
		attrs["withdrawn"] = withdrawn.String()
		attrs["remaining"] = d.Amount.String()
	}
	return &types.Event{Type: EventTypeCoinWithdrawn, Attributes: attrs}
}

// NewItemDepositedEvent returns the canonical payload for an item deposit and
// the ask created with it.
func NewItemDepositedEvent(d *ItemDeposit, ask *Ask) *types.Event {
	attrs := make(map[string]string)
	if d != nil {
		attrs["collection"] = d.Collection
		attrs["owner"] = d.Owner
		attrs["itemId"] = d.ItemID
	}
	if ask != nil {
		attrs["askToken"] = ask.Token
		attrs["askAmount"] = ask.Amount.String()
	}
	return &types.Event{Type: EventTypeItemDeposited, Attributes: attrs}
}

// NewItemWithdrawnEvent returns the canonical payload for an item withdrawal.
func NewItemWithdrawnEvent(d *ItemDeposit) *types.Event {
	attrs := make(map[string]string)
	if d != nil {
		attrs["collection"] = d.Collection
		attrs["owner"] = d.Owner
		attrs["itemId"] = d.ItemID
	}
	return &types.Event{Type: EventTypeItemWithdrawn, Attributes: attrs}
}

// NewPurchasedEvent returns the canonical payload for a settled purchase.
func NewPurchasedEvent(ask *Ask, buyer string) *types.Event {
	attrs := make(map[string]string)
	if ask != nil {
		attrs["collection"] = ask.Collection
		attrs["itemId"] = ask.ItemID
		attrs["seller"] = ask.Owner
		attrs["token"] = ask.Token
		attrs["amount"] = ask.Amount.String()
	}
	attrs["buyer"] = buyer
	return &types.Event{Type: EventTypePurchased, Attributes: attrs}
}

// NewBidPlacedEvent returns the canonical payload for a placed or replaced
// bid.
func NewBidPlacedEvent(b *Bid) *types.Event {
	return &types.Event{Type: EventTypeBidPlaced, Attributes: bidAttributes(b)}
}

// NewBidWithdrawnEvent returns the canonical payload for a withdrawn bid.
func NewBidWithdrawnEvent(b *Bid) *types.Event {
	return &types.Event{Type: EventTypeBidWithdrawn, Attributes: bidAttributes(b)}
}

func bidAttributes(b *Bid) map[string]string {
	attrs := make(map[string]string)
	if b == nil {
		return attrs
	}
	attrs["bidder"] = b.Bidder
	attrs["collection"] = b.Collection
	attrs["itemId"] = b.ItemID
	attrs["token"] = b.Token
	attrs["amount"] = b.Amount.String()
	return attrs
}
