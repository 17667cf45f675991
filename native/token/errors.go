package token

import "errors"

var (
	errNilState            = errors.New("token engine: state not configured")
	errNilPayment          = errors.New("token engine: payment ledger not configured")
	errNilReserve          = errors.New("token engine: reserve pool not configured")
	errInvalidAmount       = errors.New("token engine: amount must be positive")
	errSupplyUnderflow     = errors.New("token engine: burn exceeds total supply")
	errSupplyOverflow      = errors.New("token engine: mint overflows total supply")
	errDurationTooShort    = errors.New("token engine: lock duration below minimum")
	errDurationTooLong     = errors.New("token engine: lock duration too long")
	errLevelAboveMax       = errors.New("token engine: level increase beyond maximum")
	errLevelsUnsupported   = errors.New("token engine: discount levels not available in this edition")
	errCommitmentStillHeld = errors.New("token engine: level commitment still locked")

	// ErrInsufficientBalance mirrors the deployed contract's
	// "Insufficient Benjamins." rejection.
	ErrInsufficientBalance = errors.New("token engine: insufficient benjamins")
	// ErrInsufficientFunds is surfaced by the payment ledger when the payer's
	// balance cannot cover principal plus fee.
	ErrInsufficientFunds = errors.New("token engine: insufficient payment funds")
	// ErrInsufficientAllowance is surfaced when the payer's approval to the
	// engine is short of the required amount.
	ErrInsufficientAllowance = errors.New("token engine: insufficient payment allowance")
	// ErrPaused rejects non-owner calls while the pause flag is set.
	ErrPaused = errors.New("token engine: paused")
	// ErrUnauthorized rejects owner-only calls made by anyone else.
	ErrUnauthorized = errors.New("token engine: caller is not the owner")
	// ErrCapacityExceeded rejects the 13th simultaneous lockbox.
	ErrCapacityExceeded = errors.New("token engine: only up to 12 lockboxes per user at the same time")
	// ErrTooEarly rejects opening a lockbox before its duration elapsed.
	ErrTooEarly = errors.New("token engine: lockbox cannot be opened yet")
	// ErrNotFound covers unknown lockbox IDs and lookups by non-owners.
	ErrNotFound = errors.New("token engine: lockbox not found for caller")
	// ErrDisallowedAsset rejects sweeping protocol-critical balances through
	// the tip-cleaning utility.
	ErrDisallowedAsset = errors.New("token engine: asset cannot be swept")
)
