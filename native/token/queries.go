package token

import (
	"github.com/ethereum/go-ethereum/common"

	"benjamins/core/types"
)

// Read-only queries. These never mutate state and are not pause gated.

// BalanceOf returns the BNJI balance for an address.
func (e *Engine) BalanceOf(addr common.Address) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	acct, err := e.loadAccount(addr)
	if err != nil {
		return 0, err
	}
	return acct.BalanceBNJI, nil
}

// LockedBalanceOf returns the BNJI an address holds out of circulation: the
// levels-edition committed balance plus the amounts in its live lockboxes.
func (e *Engine) LockedBalanceOf(addr common.Address) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	acct, err := e.loadAccount(addr)
	if err != nil {
		return 0, err
	}
	locked := acct.LockedBNJI
	for i := uint8(0); i < acct.LockboxCount; i++ {
		box, err := e.state.GetLockbox(acct.LockboxIDs[i])
		if err != nil {
			return 0, err
		}
		if box != nil && box.Owner == addr {
			locked += box.Amount
		}
	}
	return locked, nil
}

// TotalSupply returns the outstanding token count.
func (e *Engine) TotalSupply() (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	return e.state.TokenSupply()
}

// DiscountInfo summarises an account's discount standing for queries.
type DiscountInfo struct {
	Score        uint64 `json:"score"`
	Level        uint32 `json:"level"`
	Percent      uint32 `json:"percent"`
	LockedBNJI   uint64 `json:"lockedBNJI"`
	UnlockHeight uint64 `json:"unlockHeight"`
}

// DiscountInfoOf reports the account's score, level, and current discount
// percentage under the engine's policy.
func (e *Engine) DiscountInfoOf(addr common.Address) (DiscountInfo, error) {
	if e == nil || e.state == nil {
		return DiscountInfo{}, errNilState
	}
	acct, err := e.loadAccount(addr)
	if err != nil {
		return DiscountInfo{}, err
	}
	return DiscountInfo{
		Score:        acct.DiscountScore,
		Level:        acct.DiscountLevel,
		Percent:      e.discount.DiscountPercent(acct),
		LockedBNJI:   acct.LockedBNJI,
		UnlockHeight: acct.UnlockHeight,
	}, nil
}

// LockboxByID returns the full record for a box the owner holds, or
// ErrNotFound for unknown IDs and boxes held by someone else.
func (e *Engine) LockboxByID(owner common.Address, id uint64) (*Lockbox, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	box, err := e.state.GetLockbox(id)
	if err != nil {
		return nil, err
	}
	if box == nil || box.Owner != owner {
		return nil, ErrNotFound
	}
	return box.Copy(), nil
}

// LockboxIDs returns the owner's fixed-capacity slot array; unused slots read
// as the zero ID.
func (e *Engine) LockboxIDs(owner common.Address) ([types.MaxLockboxes]uint64, error) {
	if e == nil || e.state == nil {
		return [types.MaxLockboxes]uint64{}, errNilState
	}
	acct, err := e.loadAccount(owner)
	if err != nil {
		return [types.MaxLockboxes]uint64{}, err
	}
	return acct.LockboxIDs, nil
}

// LockboxCount returns how many live boxes the owner holds.
func (e *Engine) LockboxCount(owner common.Address) (uint8, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	acct, err := e.loadAccount(owner)
	if err != nil {
		return 0, err
	}
	return acct.LockboxCount, nil
}

// LockboxCounter returns the last assigned global lockbox ID.
func (e *Engine) LockboxCounter() (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	return e.state.LockboxCounter()
}

// BlocksUntilUnlock reports the remaining lock time for one of the owner's
// boxes, zero once it can be opened.
func (e *Engine) BlocksUntilUnlock(owner common.Address, id uint64) (uint64, error) {
	box, err := e.LockboxByID(owner, id)
	if err != nil {
		return 0, err
	}
	return box.BlocksUntilUnlock(e.blockHeight), nil
}
