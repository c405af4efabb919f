package auction

import "errors"

// Shared error vocabulary for the engine. Every rejected call leaves
// persisted state untouched; callers must change inputs before retrying.
var (
	ErrMarketInactive      = errors.New("auction: market inactive")
	ErrBatchClosed         = errors.New("auction: batch window elapsed")
	ErrBatchStillOpen      = errors.New("auction: batch window not elapsed")
	ErrInvalidTick         = errors.New("auction: tick outside market range")
	ErrZeroQuantity        = errors.New("auction: zero quantity")
	ErrExpired             = errors.New("auction: order expired")
	ErrDuplicateOrder      = errors.New("auction: order already submitted")
	ErrOrderNotFound       = errors.New("auction: order not found")
	ErrNotOwner            = errors.New("auction: caller does not own order")
	ErrTakerNotCancellable = errors.New("auction: taker orders cannot be cancelled")
	ErrAlreadyCancelled    = errors.New("auction: order already cancelled")
	ErrAlreadyClaimed      = errors.New("auction: order fill already claimed")
	ErrAlreadyFinalized    = errors.New("auction: batch already finalized")
)
