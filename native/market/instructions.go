package market

import "math/big"

// InstructionType identifies the external ledger an outbound instruction is
// addressed to.
type InstructionType string

const (
	// InstructionTransferCoin directs the fungible-token ledger to move
	// Amount of Contract's token to Recipient.
	InstructionTransferCoin InstructionType = "transfer_coin"
	// InstructionTransferItem directs the unique-token ledger to move
	// ItemID of Contract's collection to Recipient.
	InstructionTransferItem InstructionType = "transfer_item"
)

// Instruction is a directive for an external ledger collaborator. The host
// executes every instruction returned by a transition atomically with that
// transition, or not at all.
type Instruction struct {
	Type      InstructionType `json:"type"`
	Contract  string          `json:"contract"`
	Recipient string          `json:"recipient"`
	Amount    *big.Int        `json:"amount,omitempty"`
	ItemID    string          `json:"item_id,omitempty"`
}

func transferCoin(token, recipient string, amount *big.Int) Instruction {
	return Instruction{
		Type:      InstructionTransferCoin,
		Contract:  token,
		Recipient: recipient,
		Amount:    new(big.Int).Set(amount),
	}
}

func transferItem(collection, recipient, itemID string) Instruction {
	return Instruction{
		Type:      InstructionTransferItem,
		Contract:  collection,
		Recipient: recipient,
		ItemID:    itemID,
	}
}
