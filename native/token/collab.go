package token

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// PaymentLedger is the stable-value payment asset the engine moves principal
// and fees through. Amounts are minor units (cents). Implementations must
// reject transfers that exceed balance or allowance with
// ErrInsufficientFunds / ErrInsufficientAllowance.
type PaymentLedger interface {
	BalanceOf(addr common.Address) (*big.Int, error)
	Allowance(owner, spender common.Address) (*big.Int, error)
	Transfer(from, to common.Address, cents *big.Int) error
	TransferFrom(spender, owner, to common.Address, cents *big.Int) error
}

// ReservePool is the yield-bearing asset the protocol parks principal in.
// Deposits move cents from the engine's payment balance into the pool;
// withdrawals move them back. Balance includes externally accruing interest
// and is therefore excluded from strict reconciliation.
type ReservePool interface {
	Deposit(cents *big.Int) error
	Withdraw(cents *big.Int) error
	Balance() (*big.Int, error)
}

// AssetSweeper recovers stray balances mistakenly sent to the engine
// identity. Only the tip-cleaning operation uses it; protocol-critical assets
// are rejected before the sweep is attempted.
type AssetSweeper interface {
	Sweep(asset, to common.Address) (*big.Int, error)
}
