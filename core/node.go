package core

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"benjamins/core/types"
	"benjamins/native/token"
	"benjamins/observability/metrics"
	"benjamins/state"
)

// Node owns the engine and its state and serializes access to them: every
// state-changing operation is one atomic transition under the write lock,
// queries share the read lock. There is no queueing or retry; failures are
// immediate rejections.
type Node struct {
	mu     sync.RWMutex
	st     *state.Manager
	engine *token.Engine
}

// NewNode wires the engine to the state manager's persistence, payment
// ledger, reserve pool, pause view, and tip sweeper.
func NewNode(st *state.Manager, engine *token.Engine) *Node {
	engine.SetState(st)
	engine.SetPaymentLedger(st)
	engine.SetReservePool(st)
	engine.SetSweeper(st)
	engine.SetPauses(st)
	return &Node{st: st, engine: engine}
}

// State exposes the underlying manager for seeding and inspection.
func (n *Node) State() *state.Manager { return n.st }

// SetBlockHeight records the externally observed block height.
func (n *Node) SetBlockHeight(height uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.engine.SetBlockHeight(height)
}

// BlockHeight returns the engine's current height view.
func (n *Node) BlockHeight() uint64 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.engine.BlockHeight()
}

// Pause halts state-changing calls for everyone but the owner.
func (n *Node) Pause(caller common.Address) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if caller != n.engine.Owner() {
		return token.ErrUnauthorized
	}
	return n.st.SetPaused(true)
}

// Unpause reopens state-changing calls.
func (n *Node) Unpause(caller common.Address) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if caller != n.engine.Owner() {
		return token.ErrUnauthorized
	}
	return n.st.SetPaused(false)
}

// Paused reports the global pause flag.
func (n *Node) Paused() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.st.IsPaused("token")
}

// Mint mints amount tokens to the caller.
func (n *Node) Mint(caller common.Address, amount uint64) (*token.Quote, error) {
	return n.MintTo(caller, amount, caller)
}

// MintTo mints amount tokens to recipient, charged to the caller.
func (n *Node) MintTo(caller common.Address, amount uint64, recipient common.Address) (*token.Quote, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	quote, err := n.engine.MintTo(caller, amount, recipient)
	if err == nil {
		metrics.Token().RecordMint(amount, quote.FeeCents)
	}
	return quote, err
}

// Burn burns amount of the caller's tokens back to the caller.
func (n *Node) Burn(caller common.Address, amount uint64) (*token.Quote, error) {
	return n.BurnTo(caller, amount, caller)
}

// BurnTo burns amount of the caller's tokens, paying out to recipient.
func (n *Node) BurnTo(caller common.Address, amount uint64, recipient common.Address) (*token.Quote, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	quote, err := n.engine.BurnTo(caller, amount, recipient)
	if err == nil {
		metrics.Token().RecordBurn(amount, quote.FeeCents)
	}
	return quote, err
}

// Transfer moves tokens from the caller to recipient.
func (n *Node) Transfer(caller, recipient common.Address, amount uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.Transfer(caller, recipient, amount)
}

// TransferFrom moves tokens from owner to recipient on the caller's behalf.
func (n *Node) TransferFrom(caller, owner, recipient common.Address, amount uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.TransferFrom(caller, owner, recipient, amount)
}

// QuoteUSDC prices a prospective mint or burn for the caller.
func (n *Node) QuoteUSDC(caller common.Address, amount uint64, isMint bool) (*token.Quote, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.QuoteUSDC(caller, amount, isMint)
}

// CreateLockbox locks amount BNJI for durationBlocks.
func (n *Node) CreateLockbox(caller common.Address, amount, durationBlocks uint64, label string) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	id, err := n.engine.CreateLockbox(caller, amount, durationBlocks, label)
	if err == nil {
		metrics.Token().LockboxOpened(amount)
	}
	return id, err
}

// OpenAndDestroyLockbox unlocks a matured lockbox.
func (n *Node) OpenAndDestroyLockbox(caller common.Address, id uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	box, err := n.engine.LockboxByID(caller, id)
	if err != nil {
		return err
	}
	if err := n.engine.OpenAndDestroyLockbox(caller, id); err != nil {
		return err
	}
	metrics.Token().LockboxClosed(box.Amount)
	return nil
}

// IncreaseDiscountLevels purchases k discount levels (levels edition).
func (n *Node) IncreaseDiscountLevels(caller common.Address, k uint32) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.IncreaseDiscountLevels(caller, k)
}

// ReleaseLevelCommitment returns a matured level commitment.
func (n *Node) ReleaseLevelCommitment(caller common.Address) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.ReleaseLevelCommitment(caller)
}

// CleanTips sweeps a stray asset balance to the owner.
func (n *Node) CleanTips(caller, asset common.Address) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.CleanTips(caller, asset)
}

// BalanceOf returns an address's BNJI balance.
func (n *Node) BalanceOf(addr common.Address) (uint64, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.engine.BalanceOf(addr)
}

// LockedBalanceOf returns the benjamins an address holds inside lockboxes
// and level commitments.
func (n *Node) LockedBalanceOf(addr common.Address) (uint64, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.engine.LockedBalanceOf(addr)
}

// TotalSupply returns the outstanding token count.
func (n *Node) TotalSupply() (uint64, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.engine.TotalSupply()
}

// PaymentBalanceOf returns an address's payment-asset balance in cents.
func (n *Node) PaymentBalanceOf(addr common.Address) (*big.Int, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.st.BalanceOf(addr)
}

// DiscountInfoOf returns an account's discount standing.
func (n *Node) DiscountInfoOf(addr common.Address) (token.DiscountInfo, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.engine.DiscountInfoOf(addr)
}

// LockboxByID returns one of the owner's lockboxes.
func (n *Node) LockboxByID(owner common.Address, id uint64) (*token.Lockbox, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.engine.LockboxByID(owner, id)
}

// LockboxIDs returns the owner's fixed-capacity ID slots.
func (n *Node) LockboxIDs(owner common.Address) ([types.MaxLockboxes]uint64, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.engine.LockboxIDs(owner)
}

// LockboxCount returns the owner's live box count.
func (n *Node) LockboxCount(owner common.Address) (uint8, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.engine.LockboxCount(owner)
}

// BlocksUntilUnlock reports the remaining lock time for a box.
func (n *Node) BlocksUntilUnlock(owner common.Address, id uint64) (uint64, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.engine.BlocksUntilUnlock(owner, id)
}
