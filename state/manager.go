package state

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"benjamins/core/types"
	"benjamins/native/token"
	"benjamins/storage"
)

var (
	acctPrefix     = []byte("token/acct/")
	supplyKey      = []byte("token/supply")
	lockboxPrefix  = []byte("token/lockbox/")
	lockboxCounter = []byte("token/lockbox/counter")
	pausedKey      = []byte("token/paused")
	payBalPrefix   = []byte("pay/bal/")
	payAllowPrefix = []byte("pay/allow/")
	reserveKey     = []byte("reserve/nominal")
	tipPrefix      = []byte("tips/")
)

// Manager persists the engine's state in a key-value store and doubles as the
// state-backed payment ledger, reserve pool, pause view, and tip sweeper. All
// records are RLP encoded.
type Manager struct {
	mu    sync.Mutex
	db    storage.Database
	vault common.Address

	events  []*types.Event
	emitter func(*types.Event)
}

// NewManager wraps the database. vault is the engine identity whose payment
// balance the reserve pool draws from.
func NewManager(db storage.Database, vault common.Address) *Manager {
	return &Manager{db: db, vault: vault}
}

// SetEmitter forwards appended events to a subscriber in addition to the
// in-memory log.
func (m *Manager) SetEmitter(fn func(*types.Event)) {
	if m == nil {
		return
	}
	m.emitter = fn
}

type storedAccount struct {
	BalanceBNJI   uint64
	DiscountScore uint64
	DiscountLevel uint32
	LockedBNJI    uint64
	UnlockHeight  uint64
	LockboxIDs    [types.MaxLockboxes]uint64
	LockboxCount  uint8
}

type storedLockbox struct {
	ID             uint64
	Owner          common.Address
	Amount         uint64
	DurationBlocks uint64
	Score          uint64
	CreatedAt      uint64
	Label          string
}

func acctKey(addr common.Address) []byte {
	return append(append([]byte(nil), acctPrefix...), addr.Bytes()...)
}

func lockboxKey(id uint64) []byte {
	var raw [8]byte
	binary.BigEndian.PutUint64(raw[:], id)
	return append(append([]byte(nil), lockboxPrefix...), raw[:]...)
}

func payBalKey(addr common.Address) []byte {
	return append(append([]byte(nil), payBalPrefix...), addr.Bytes()...)
}

func payAllowKey(owner, spender common.Address) []byte {
	key := append(append([]byte(nil), payAllowPrefix...), owner.Bytes()...)
	return append(key, spender.Bytes()...)
}

func tipKey(asset common.Address) []byte {
	return append(append([]byte(nil), tipPrefix...), asset.Bytes()...)
}

func (m *Manager) getRLP(key []byte, out interface{}) (bool, error) {
	raw, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return false, fmt.Errorf("state: decode %q: %w", key, err)
	}
	return true, nil
}

func (m *Manager) putRLP(key []byte, value interface{}) error {
	raw, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("state: encode %q: %w", key, err)
	}
	return m.db.Put(key, raw)
}

// GetAccount loads the token account for an address. Unknown addresses load
// as nil so callers can treat them as empty.
func (m *Manager) GetAccount(addr common.Address) (*types.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stored storedAccount
	ok, err := m.getRLP(acctKey(addr), &stored)
	if err != nil || !ok {
		return nil, err
	}
	return &types.Account{
		BalanceBNJI:   stored.BalanceBNJI,
		DiscountScore: stored.DiscountScore,
		DiscountLevel: stored.DiscountLevel,
		LockedBNJI:    stored.LockedBNJI,
		UnlockHeight:  stored.UnlockHeight,
		LockboxIDs:    stored.LockboxIDs,
		LockboxCount:  stored.LockboxCount,
	}, nil
}

// PutAccount persists the token account for an address.
func (m *Manager) PutAccount(addr common.Address, acct *types.Account) error {
	if acct == nil {
		return fmt.Errorf("state: account must not be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putRLP(acctKey(addr), &storedAccount{
		BalanceBNJI:   acct.BalanceBNJI,
		DiscountScore: acct.DiscountScore,
		DiscountLevel: acct.DiscountLevel,
		LockedBNJI:    acct.LockedBNJI,
		UnlockHeight:  acct.UnlockHeight,
		LockboxIDs:    acct.LockboxIDs,
		LockboxCount:  acct.LockboxCount,
	})
}

// TokenSupply returns the outstanding token counter.
func (m *Manager) TokenSupply() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var supply uint64
	if _, err := m.getRLP(supplyKey, &supply); err != nil {
		return 0, err
	}
	return supply, nil
}

// SetTokenSupply stores the outstanding token counter.
func (m *Manager) SetTokenSupply(supply uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putRLP(supplyKey, supply)
}

// GetLockbox loads a lockbox by its global ID, nil when absent.
func (m *Manager) GetLockbox(id uint64) (*token.Lockbox, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stored storedLockbox
	ok, err := m.getRLP(lockboxKey(id), &stored)
	if err != nil || !ok {
		return nil, err
	}
	return &token.Lockbox{
		ID:             stored.ID,
		Owner:          stored.Owner,
		Amount:         stored.Amount,
		DurationBlocks: stored.DurationBlocks,
		Score:          stored.Score,
		CreatedAt:      stored.CreatedAt,
		Label:          stored.Label,
	}, nil
}

// PutLockbox persists a lockbox record keyed by its global ID.
func (m *Manager) PutLockbox(box *token.Lockbox) error {
	if box == nil {
		return fmt.Errorf("state: lockbox must not be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putRLP(lockboxKey(box.ID), &storedLockbox{
		ID:             box.ID,
		Owner:          box.Owner,
		Amount:         box.Amount,
		DurationBlocks: box.DurationBlocks,
		Score:          box.Score,
		CreatedAt:      box.CreatedAt,
		Label:          box.Label,
	})
}

// DeleteLockbox removes a destroyed lockbox. IDs are never reassigned, so the
// key stays dead forever.
func (m *Manager) DeleteLockbox(id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.db.Delete(lockboxKey(id))
}

// LockboxCounter returns the last assigned global lockbox ID.
func (m *Manager) LockboxCounter() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var counter uint64
	if _, err := m.getRLP(lockboxCounter, &counter); err != nil {
		return 0, err
	}
	return counter, nil
}

// SetLockboxCounter stores the last assigned global lockbox ID.
func (m *Manager) SetLockboxCounter(counter uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putRLP(lockboxCounter, counter)
}

// AppendEvent records an engine event and forwards it to the emitter when one
// is wired.
func (m *Manager) AppendEvent(evt *types.Event) {
	if m == nil || evt == nil {
		return
	}
	m.mu.Lock()
	m.events = append(m.events, evt)
	emitter := m.emitter
	m.mu.Unlock()
	if emitter != nil {
		emitter(evt)
	}
}

// Events returns the accumulated event log.
func (m *Manager) Events() []*types.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*types.Event, len(m.events))
	copy(out, m.events)
	return out
}

// --- Pause flag ---

// IsPaused implements the pause view consulted by the engine guard.
func (m *Manager) IsPaused(module string) bool {
	if module != "token" {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var paused bool
	if _, err := m.getRLP(pausedKey, &paused); err != nil {
		return false
	}
	return paused
}

// SetPaused stores the global pause flag.
func (m *Manager) SetPaused(paused bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putRLP(pausedKey, paused)
}

// --- Payment ledger (state-backed stable asset, cent amounts) ---

func (m *Manager) paymentBalance(addr common.Address) (*big.Int, error) {
	bal := new(big.Int)
	if _, err := m.getRLP(payBalKey(addr), bal); err != nil {
		return nil, err
	}
	return bal, nil
}

// BalanceOf returns the payment-asset balance in cents.
func (m *Manager) BalanceOf(addr common.Address) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paymentBalance(addr)
}

// Allowance returns the cents the spender may move on the owner's behalf.
func (m *Manager) Allowance(owner, spender common.Address) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	allowance := new(big.Int)
	if _, err := m.getRLP(payAllowKey(owner, spender), allowance); err != nil {
		return nil, err
	}
	return allowance, nil
}

// Approve sets the spender's allowance over the owner's payment balance.
func (m *Manager) Approve(owner, spender common.Address, cents *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putRLP(payAllowKey(owner, spender), cents)
}

// CreditPayment adds cents to an address's payment balance. Used to seed
// balances from genesis-style configuration and by the reserve pool.
func (m *Manager) CreditPayment(addr common.Address, cents *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creditPayment(addr, cents)
}

func (m *Manager) creditPayment(addr common.Address, cents *big.Int) error {
	bal, err := m.paymentBalance(addr)
	if err != nil {
		return err
	}
	return m.putRLP(payBalKey(addr), bal.Add(bal, cents))
}

func (m *Manager) debitPayment(addr common.Address, cents *big.Int) error {
	bal, err := m.paymentBalance(addr)
	if err != nil {
		return err
	}
	if bal.Cmp(cents) < 0 {
		return token.ErrInsufficientFunds
	}
	return m.putRLP(payBalKey(addr), bal.Sub(bal, cents))
}

// Transfer moves cents between payment balances.
func (m *Manager) Transfer(from, to common.Address, cents *big.Int) error {
	if cents == nil || cents.Sign() < 0 {
		return fmt.Errorf("state: transfer amount must be non-negative")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.debitPayment(from, cents); err != nil {
		return err
	}
	return m.creditPayment(to, cents)
}

// TransferFrom moves cents from owner to recipient on the spender's
// allowance, decrementing it.
func (m *Manager) TransferFrom(spender, owner, to common.Address, cents *big.Int) error {
	if cents == nil || cents.Sign() < 0 {
		return fmt.Errorf("state: transfer amount must be non-negative")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	allowance := new(big.Int)
	if _, err := m.getRLP(payAllowKey(owner, spender), allowance); err != nil {
		return err
	}
	if allowance.Cmp(cents) < 0 {
		return token.ErrInsufficientAllowance
	}
	if err := m.debitPayment(owner, cents); err != nil {
		return err
	}
	if err := m.creditPayment(to, cents); err != nil {
		return err
	}
	return m.putRLP(payAllowKey(owner, spender), allowance.Sub(allowance, cents))
}

// --- Reserve pool (nominal deposits; interest accrues externally) ---

func (m *Manager) reserveNominal() (*big.Int, error) {
	nominal := new(big.Int)
	if _, err := m.getRLP(reserveKey, nominal); err != nil {
		return nil, err
	}
	return nominal, nil
}

// Deposit moves cents from the vault's payment balance into the reserve.
func (m *Manager) Deposit(cents *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.debitPayment(m.vault, cents); err != nil {
		return err
	}
	nominal, err := m.reserveNominal()
	if err != nil {
		return err
	}
	return m.putRLP(reserveKey, nominal.Add(nominal, cents))
}

// Withdraw moves cents from the reserve back to the vault's payment balance.
func (m *Manager) Withdraw(cents *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	nominal, err := m.reserveNominal()
	if err != nil {
		return err
	}
	if nominal.Cmp(cents) < 0 {
		return token.ErrInsufficientFunds
	}
	if err := m.putRLP(reserveKey, nominal.Sub(nominal, cents)); err != nil {
		return err
	}
	return m.creditPayment(m.vault, cents)
}

// Balance returns the nominal reserve holding. The live yield-bearing balance
// diverges upward as interest accrues externally.
func (m *Manager) Balance() (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reserveNominal()
}

// --- Tip jar (stray assets sent to the engine identity) ---

// CreditTip records a stray asset balance held by the engine identity.
func (m *Manager) CreditTip(asset common.Address, amount *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	held := new(big.Int)
	if _, err := m.getRLP(tipKey(asset), held); err != nil {
		return err
	}
	return m.putRLP(tipKey(asset), held.Add(held, amount))
}

// Sweep zeroes the recorded stray balance for an asset and reports how much
// was released to the recipient.
func (m *Manager) Sweep(asset, to common.Address) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	held := new(big.Int)
	if _, err := m.getRLP(tipKey(asset), held); err != nil {
		return nil, err
	}
	if err := m.db.Delete(tipKey(asset)); err != nil {
		return nil, err
	}
	return held, nil
}
