package market

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
)

// ErrInvalidPayload indicates an inbound transfer payload that does not decode
// to exactly one supported command.
var ErrInvalidPayload = errors.New("market: invalid transfer payload")

// CoinTransferNotice is the callback a fungible-token ledger delivers after
// transferring tokens to the engine. Token is the notifying contract, Sender
// the account whose tokens moved, and Payload the opaque instruction attached
// to the transfer.
type CoinTransferNotice struct {
	Token   string          `json:"token"`
	Sender  string          `json:"sender"`
	Amount  *big.Int        `json:"amount"`
	Payload json.RawMessage `json:"payload"`
}

// ItemTransferNotice is the callback a unique-token ledger delivers after
// transferring an item to the engine.
type ItemTransferNotice struct {
	Collection string          `json:"collection"`
	Sender     string          `json:"sender"`
	ItemID     string          `json:"item_id"`
	Payload    json.RawMessage `json:"payload"`
}

// CoinDepositCommand credits the transferred amount to Owner's custody
// balance.
type CoinDepositCommand struct {
	Owner  string   `json:"owner"`
	Amount *big.Int `json:"amount,omitempty"`
}

// PurchaseCommand settles the listing for (Collection, ItemID) against the
// transferred amount.
type PurchaseCommand struct {
	Collection string `json:"collection"`
	ItemID     string `json:"item_id"`
}

// PlaceBidCommand records the transferred amount as a standing bid on
// (Collection, ItemID).
type PlaceBidCommand struct {
	Collection string `json:"collection"`
	ItemID     string `json:"item_id"`
}

// ItemDepositCommand places the transferred item in custody and lists it for
// Amount of the PaymentToken contract's token.
type ItemDepositCommand struct {
	Owner        string   `json:"owner"`
	ItemID       string   `json:"item_id"`
	PaymentToken string   `json:"payment_token"`
	Amount       *big.Int `json:"amount"`
}

// CoinCommand is the tagged union decoded from a coin transfer payload.
// Exactly one variant is set.
type CoinCommand struct {
	Deposit  *CoinDepositCommand `json:"deposit,omitempty"`
	Purchase *PurchaseCommand    `json:"purchase,omitempty"`
	PlaceBid *PlaceBidCommand    `json:"place_bid,omitempty"`
}

// ItemCommand is the tagged union decoded from an item transfer payload.
type ItemCommand struct {
	Deposit *ItemDepositCommand `json:"deposit,omitempty"`
}

// DecodeCoinPayload parses an inbound coin transfer payload into a
// strongly-typed command before it reaches the settlement engine.
func DecodeCoinPayload(raw []byte) (*CoinCommand, error) {
	if len(raw) == 0 {
		return nil, ErrInvalidPayload
	}
	var cmd CoinCommand
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	variants := 0
	if cmd.Deposit != nil {
		variants++
	}
	if cmd.Purchase != nil {
		variants++
	}
	if cmd.PlaceBid != nil {
		variants++
	}
	if variants != 1 {
		return nil, ErrInvalidPayload
	}
	return &cmd, nil
}

// DecodeItemPayload parses an inbound item transfer payload.
func DecodeItemPayload(raw []byte) (*ItemCommand, error) {
	if len(raw) == 0 {
		return nil, ErrInvalidPayload
	}
	var cmd ItemCommand
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if cmd.Deposit == nil {
		return nil, ErrInvalidPayload
	}
	return &cmd, nil
}

// Receipt summarises a settled transition: the action performed and the
// outbound instructions the host must execute atomically with it.
type Receipt struct {
	Action       string        `json:"action"`
	Instructions []Instruction `json:"instructions,omitempty"`
}

// HandleCoinTransfer decodes and dispatches an inbound fungible transfer
// notification. The amount credited, paid, or bid is always the amount the
// ledger reports as transferred; a deposit payload may restate it but must
// agree.
func (e *Engine) HandleCoinTransfer(n CoinTransferNotice) (*Receipt, error) {
	cmd, err := DecodeCoinPayload(n.Payload)
	if err != nil {
		return nil, err
	}
	switch {
	case cmd.Deposit != nil:
		if cmd.Deposit.Amount != nil && n.Amount != nil && cmd.Deposit.Amount.Cmp(n.Amount) != 0 {
			return nil, ErrInvalidPayload
		}
		if _, err := e.DepositCoin(cmd.Deposit.Owner, n.Token, n.Amount); err != nil {
			return nil, err
		}
		return &Receipt{Action: "deposit_coin"}, nil
	case cmd.Purchase != nil:
		instrs, err := e.Purchase(n.Sender, cmd.Purchase.Collection, cmd.Purchase.ItemID, n.Token, n.Amount)
		if err != nil {
			return nil, err
		}
		return &Receipt{Action: "purchase", Instructions: instrs}, nil
	case cmd.PlaceBid != nil:
		if _, err := e.PlaceBid(n.Sender, cmd.PlaceBid.Collection, cmd.PlaceBid.ItemID, n.Token, n.Amount); err != nil {
			return nil, err
		}
		return &Receipt{Action: "place_bid"}, nil
	}
	return nil, ErrInvalidPayload
}

// HandleItemTransfer decodes and dispatches an inbound unique-item transfer
// notification.
func (e *Engine) HandleItemTransfer(n ItemTransferNotice) (*Receipt, error) {
	cmd, err := DecodeItemPayload(n.Payload)
	if err != nil {
		return nil, err
	}
	itemID := cmd.Deposit.ItemID
	if itemID == "" {
		itemID = n.ItemID
	} else if n.ItemID != "" && itemID != n.ItemID {
		return nil, ErrInvalidPayload
	}
	if _, err := e.DepositItem(n.Collection, cmd.Deposit.Owner, itemID, cmd.Deposit.PaymentToken, cmd.Deposit.Amount); err != nil {
		return nil, err
	}
	return &Receipt{Action: "deposit_item"}, nil
}
