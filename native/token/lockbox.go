package token

import "github.com/ethereum/go-ethereum/common"

// Lockbox is BNJI locked by an account for a fixed number of blocks. The
// discount score contribution is fixed at creation and subtracted verbatim on
// destruction, never recomputed.
type Lockbox struct {
	ID             uint64
	Owner          common.Address
	Amount         uint64
	DurationBlocks uint64
	Score          uint64
	CreatedAt      uint64
	Label          string
}

// UnlockHeight is the first block at which the box may be opened.
func (b *Lockbox) UnlockHeight() uint64 {
	return b.CreatedAt + b.DurationBlocks
}

// BlocksUntilUnlock reports how many blocks remain before the box opens, zero
// once the duration has elapsed.
func (b *Lockbox) BlocksUntilUnlock(height uint64) uint64 {
	unlock := b.UnlockHeight()
	if height >= unlock {
		return 0
	}
	return unlock - height
}

// Copy returns a detached copy so callers cannot mutate ledger state through
// query results.
func (b *Lockbox) Copy() *Lockbox {
	if b == nil {
		return nil
	}
	clone := *b
	return &clone
}
