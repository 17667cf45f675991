package types

// MaxLockboxes bounds the number of simultaneously open lockboxes per account.
// Slots beyond LockboxCount read as the zero ID sentinel.
const MaxLockboxes = 12

// Account holds the token-side state for a single address. Payment-asset
// balances live with the external payment ledger, not here.
type Account struct {
	BalanceBNJI   uint64 `json:"balanceBNJI"`
	DiscountScore uint64 `json:"discountScore"`

	// Levels edition. DiscountLevel only ever increases; LockedBNJI is the
	// cumulative level commitment, released as one lump once UnlockHeight
	// has passed.
	DiscountLevel uint32 `json:"discountLevel,omitempty"`
	LockedBNJI    uint64 `json:"lockedBNJI,omitempty"`
	UnlockHeight  uint64 `json:"unlockHeight,omitempty"`

	// Lockbox edition. Fixed-capacity ID slots with an explicit live count.
	LockboxIDs   [MaxLockboxes]uint64 `json:"lockboxIds"`
	LockboxCount uint8                `json:"lockboxCount"`
}

// AddLockboxID appends the ID to the first free slot. It reports false when
// the account already holds MaxLockboxes live boxes.
func (a *Account) AddLockboxID(id uint64) bool {
	if a.LockboxCount >= MaxLockboxes {
		return false
	}
	a.LockboxIDs[a.LockboxCount] = id
	a.LockboxCount++
	return true
}

// RemoveLockboxID deletes the ID from the slot array, compacting the live
// prefix so that unused slots keep reading as zero. It reports whether the ID
// was present.
func (a *Account) RemoveLockboxID(id uint64) bool {
	for i := 0; i < int(a.LockboxCount); i++ {
		if a.LockboxIDs[i] != id {
			continue
		}
		copy(a.LockboxIDs[i:], a.LockboxIDs[i+1:a.LockboxCount])
		a.LockboxCount--
		a.LockboxIDs[a.LockboxCount] = 0
		return true
	}
	return false
}

// HasLockboxID reports whether the ID sits in one of the live slots.
func (a *Account) HasLockboxID(id uint64) bool {
	if id == 0 {
		return false
	}
	for i := 0; i < int(a.LockboxCount); i++ {
		if a.LockboxIDs[i] == id {
			return true
		}
	}
	return false
}
