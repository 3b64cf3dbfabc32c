package market

import (
	"encoding/json"
	"errors"
	"math/big"
	"testing"
)

func TestDecodeCoinPayload(t *testing.T) {
	cmd, err := DecodeCoinPayload([]byte(`{"deposit":{"owner":"addr-a"}}`))
	if err != nil {
		t.Fatalf("decode deposit: %v", err)
	}
	if cmd.Deposit == nil || cmd.Deposit.Owner != "addr-a" {
		t.Fatalf("unexpected command: %+v", cmd)
	}

	cmd, err = DecodeCoinPayload([]byte(`{"purchase":{"collection":"c","item_id":"1"}}`))
	if err != nil {
		t.Fatalf("decode purchase: %v", err)
	}
	if cmd.Purchase == nil || cmd.Purchase.ItemID != "1" {
		t.Fatalf("unexpected command: %+v", cmd)
	}

	invalid := [][]byte{
		nil,
		[]byte(``),
		[]byte(`{}`),
		[]byte(`not json`),
		[]byte(`{"deposit":{"owner":"a"},"purchase":{"collection":"c","item_id":"1"}}`),
	}
	for _, raw := range invalid {
		if _, err := DecodeCoinPayload(raw); !errors.Is(err, ErrInvalidPayload) {
			t.Fatalf("payload %q: expected ErrInvalidPayload, got %v", raw, err)
		}
	}
}

func TestDecodeItemPayload(t *testing.T) {
	cmd, err := DecodeItemPayload([]byte(`{"deposit":{"owner":"addr-a","payment_token":"t","amount":500}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cmd.Deposit == nil || cmd.Deposit.Amount.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("unexpected command: %+v", cmd)
	}

	for _, raw := range [][]byte{nil, []byte(`{}`), []byte(`{"other":{}}`)} {
		if _, err := DecodeItemPayload(raw); !errors.Is(err, ErrInvalidPayload) {
			t.Fatalf("payload %q: expected ErrInvalidPayload, got %v", raw, err)
		}
	}
}

func TestHandleCoinTransferDeposit(t *testing.T) {
	engine, state, _ := newTestEngine()

	receipt, err := engine.HandleCoinTransfer(CoinTransferNotice{
		Token:   tokenT,
		Sender:  ownerA,
		Amount:  big.NewInt(500),
		Payload: json.RawMessage(`{"deposit":{"owner":"addr-a"}}`),
	})
	if err != nil {
		t.Fatalf("HandleCoinTransfer: %v", err)
	}
	if receipt.Action != "deposit_coin" || len(receipt.Instructions) != 0 {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}
	stored, ok, _ := state.CoinDepositGet(ownerA, tokenT)
	if !ok || stored.Amount.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("deposit not credited: %+v", stored)
	}

	// A restated amount in the payload has to agree with what the ledger
	// reports as transferred.
	_, err = engine.HandleCoinTransfer(CoinTransferNotice{
		Token:   tokenT,
		Sender:  ownerA,
		Amount:  big.NewInt(500),
		Payload: json.RawMessage(`{"deposit":{"owner":"addr-a","amount":400}}`),
	})
	if !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload on amount mismatch, got %v", err)
	}
}

func TestHandleCoinTransferPurchase(t *testing.T) {
	engine, state, _ := newTestEngine()
	listItem(t, engine, 500)

	receipt, err := engine.HandleCoinTransfer(CoinTransferNotice{
		Token:   tokenT,
		Sender:  buyerB,
		Amount:  big.NewInt(500),
		Payload: json.RawMessage(`{"purchase":{"collection":"` + collection + `","item_id":"` + itemZero + `"}}`),
	})
	if err != nil {
		t.Fatalf("HandleCoinTransfer: %v", err)
	}
	if receipt.Action != "purchase" || len(receipt.Instructions) != 1 {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}
	if receipt.Instructions[0].Recipient != buyerB {
		t.Fatalf("item not routed to sender of the payment: %+v", receipt.Instructions[0])
	}
	if _, ok, _ := state.AskGet(collection, itemZero); ok {
		t.Fatalf("ask survived settled purchase")
	}
}

func TestHandleCoinTransferPlaceBid(t *testing.T) {
	engine, state, _ := newTestEngine()
	listItem(t, engine, 500)

	receipt, err := engine.HandleCoinTransfer(CoinTransferNotice{
		Token:   tokenT,
		Sender:  bidderC,
		Amount:  big.NewInt(200),
		Payload: json.RawMessage(`{"place_bid":{"collection":"` + collection + `","item_id":"` + itemZero + `"}}`),
	})
	if err != nil {
		t.Fatalf("HandleCoinTransfer: %v", err)
	}
	if receipt.Action != "place_bid" {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}
	bid, ok, _ := state.BidGet(collection, itemZero)
	if !ok || bid.Bidder != bidderC || bid.Amount.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("bid not recorded: %+v", bid)
	}
}

func TestHandleItemTransfer(t *testing.T) {
	engine, state, _ := newTestEngine()

	receipt, err := engine.HandleItemTransfer(ItemTransferNotice{
		Collection: collection,
		Sender:     ownerA,
		ItemID:     itemZero,
		Payload:    json.RawMessage(`{"deposit":{"owner":"addr-a","payment_token":"` + tokenT + `","amount":500}}`),
	})
	if err != nil {
		t.Fatalf("HandleItemTransfer: %v", err)
	}
	if receipt.Action != "deposit_item" {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}
	if _, ok, _ := state.ItemDepositGet(collection, ownerA, itemZero); !ok {
		t.Fatalf("item deposit missing")
	}
	ask, ok, _ := state.AskGet(collection, itemZero)
	if !ok || ask.Amount.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("ask missing or wrong: %+v", ask)
	}

	// An item id restated in the payload must match the transferred item.
	_, err = engine.HandleItemTransfer(ItemTransferNotice{
		Collection: collection,
		Sender:     ownerA,
		ItemID:     "7",
		Payload:    json.RawMessage(`{"deposit":{"owner":"addr-a","item_id":"8","payment_token":"` + tokenT + `","amount":500}}`),
	})
	if !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload on item id mismatch, got %v", err)
	}
}
