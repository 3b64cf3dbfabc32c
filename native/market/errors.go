package market

import "errors"

// Validation failures abort the whole transition before any mutation is
// issued; the host discards the call and surfaces the error verbatim.
var (
	ErrAlreadyDeposited     = errors.New("market: item already deposited")
	ErrNoSuchDeposit        = errors.New("market: no such item deposit")
	ErrNoSuchAsk            = errors.New("market: no such ask")
	ErrNoBidToWithdraw      = errors.New("market: no bid to withdraw")
	ErrInvalidAmount        = errors.New("market: invalid amount")
	ErrBidTooHigh           = errors.New("market: bid at or above asking price, purchase instead")
	ErrBidTooLow            = errors.New("market: bid at or below current standing bid")
	ErrUnauthorized         = errors.New("market: caller is not the record owner")
	ErrInsufficientDeposit  = errors.New("market: withdrawal exceeds custody balance")
	ErrPaymentTokenMismatch = errors.New("market: payment token does not match ask")
	ErrArithmeticOverflow   = errors.New("market: arithmetic overflow")
	ErrArithmeticUnderflow  = errors.New("market: arithmetic underflow")
)
