package token

import (
	"errors"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"benjamins/core/events"
	"benjamins/core/types"
	nativecommon "benjamins/native/common"
)

const moduleName = "token"

// engineState is the subset of state-manager functionality the engine needs.
type engineState interface {
	GetAccount(addr common.Address) (*types.Account, error)
	PutAccount(addr common.Address, acct *types.Account) error
	TokenSupply() (uint64, error)
	SetTokenSupply(supply uint64) error
	GetLockbox(id uint64) (*Lockbox, error)
	PutLockbox(box *Lockbox) error
	DeleteLockbox(id uint64) error
	LockboxCounter() (uint64, error)
	SetLockboxCounter(counter uint64) error
	AppendEvent(evt *types.Event)
}

// Engine orchestrates every state transition of the bonding-curve token:
// curve-priced mints and burns, fee collection, fee-bearing transfers,
// lockbox bookkeeping, and discount-level purchases. It is strictly
// sequential; the owning node serializes all calls.
type Engine struct {
	state    engineState
	payment  PaymentLedger
	reserve  ReservePool
	sweeper  AssetSweeper
	pauses   nativecommon.PauseView
	curve    *Curve
	fees     FeeSchedule
	discount DiscountPolicy
	params   Params

	vaultAddr    common.Address
	owner        common.Address
	feeReceiver  common.Address
	paymentAsset common.Address
	reserveAsset common.Address

	blockHeight uint64
}

// NewEngine constructs an engine for the given edition with the deployed
// defaults. vaultAddr is the engine's own identity: locked BNJI and in-flight
// principal are held there.
func NewEngine(edition Edition, vaultAddr, owner, feeReceiver common.Address) *Engine {
	return &Engine{
		curve:       NewCurve(DefaultCurveConstant),
		fees:        ScheduleForEdition(edition),
		discount:    PolicyForEdition(edition),
		params:      DefaultParams(),
		vaultAddr:   vaultAddr,
		owner:       owner,
		feeReceiver: feeReceiver,
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetPaymentLedger wires the stable-value payment asset collaborator.
func (e *Engine) SetPaymentLedger(ledger PaymentLedger) {
	if e == nil {
		return
	}
	e.payment = ledger
}

// SetReservePool wires the yield-bearing reserve collaborator.
func (e *Engine) SetReservePool(pool ReservePool) {
	if e == nil {
		return
	}
	e.reserve = pool
}

// SetSweeper wires the tip-cleaning collaborator.
func (e *Engine) SetSweeper(s AssetSweeper) {
	if e == nil {
		return
	}
	e.sweeper = s
}

// SetPauses wires the pause flag view consulted on every mutation.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetParams overrides the deployed defaults, normalizing zero fields.
func (e *Engine) SetParams(p Params) {
	if e == nil {
		return
	}
	e.params = p.Normalize()
	e.curve = NewCurve(e.params.CurveConstant)
}

// SetFeeSchedule overrides the edition's default base-fee schedule.
func (e *Engine) SetFeeSchedule(fees FeeSchedule) {
	if e == nil || fees == nil {
		return
	}
	e.fees = fees
}

// SetProtectedAssets records the addresses the tip-cleaning utility must
// refuse to sweep: the payment asset, the reserve asset, and the token itself
// (the vault address stands in for the token contract identity).
func (e *Engine) SetProtectedAssets(payment, reserve common.Address) {
	if e == nil {
		return
	}
	e.paymentAsset = payment
	e.reserveAsset = reserve
}

// SetBlockHeight records the externally supplied block height used for
// lock-duration checks. Heights only ever move forward.
func (e *Engine) SetBlockHeight(height uint64) {
	if e == nil {
		return
	}
	if height > e.blockHeight {
		e.blockHeight = height
	}
}

// BlockHeight returns the engine's view of the current block height.
func (e *Engine) BlockHeight() uint64 {
	if e == nil {
		return 0
	}
	return e.blockHeight
}

// Owner returns the privileged identity that bypasses the pause gate.
func (e *Engine) Owner() common.Address {
	if e == nil {
		return common.Address{}
	}
	return e.owner
}

// Edition reports which discount mechanic the engine runs.
func (e *Engine) Edition() Edition {
	if e == nil || e.discount == nil {
		return EditionLockbox
	}
	return e.discount.Edition()
}

func (e *Engine) guard(caller common.Address) error {
	if err := nativecommon.Guard(e.pauses, moduleName, caller == e.owner); err != nil {
		if errors.Is(err, nativecommon.ErrModulePaused) {
			return ErrPaused
		}
		return err
	}
	return nil
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.payment == nil {
		return errNilPayment
	}
	if e.reserve == nil {
		return errNilReserve
	}
	return nil
}

func (e *Engine) loadAccount(addr common.Address) (*types.Account, error) {
	acct, err := e.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		acct = &types.Account{}
	}
	return acct, nil
}

// Quote captures a priced operation: the curve principal, the discounted fee,
// and the resulting total, all in cents. TotalMinorUnits is the same total in
// the payment asset's 6-decimal raw units, which callers use for approvals.
type Quote struct {
	PrincipalCents  *big.Int
	FeeCents        *big.Int
	TotalCents      *big.Int
	TotalMinorUnits *big.Int
}

func newQuote(principal, fee *big.Int, isMint bool) *Quote {
	total := new(big.Int)
	if isMint {
		total.Add(principal, fee)
	} else {
		total.Sub(principal, fee)
	}
	return &Quote{
		PrincipalCents:  principal,
		FeeCents:        fee,
		TotalCents:      total,
		TotalMinorUnits: new(big.Int).Mul(total, big.NewInt(MinorUnitScale)),
	}
}

func (e *Engine) priceFor(acct *types.Account, supply, amount uint64, isMint bool) (*Quote, error) {
	var principal *big.Int
	if isMint {
		if amount > math.MaxUint64-supply {
			return nil, errSupplyOverflow
		}
		principal = e.curve.MintPrincipal(supply, amount)
	} else {
		if amount > supply {
			return nil, errSupplyUnderflow
		}
		principal = e.curve.BurnPrincipal(supply, amount)
	}
	fee := DiscountedFee(e.fees.BaseFee(principal), e.discount.DiscountPercent(acct))
	return newQuote(principal, fee, isMint), nil
}

// QuoteUSDC prices a prospective mint or burn for the caller at the current
// supply and discount. Like every other operation it is pause gated for
// non-owners.
func (e *Engine) QuoteUSDC(caller common.Address, amount uint64, isMint bool) (*Quote, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := e.guard(caller); err != nil {
		return nil, err
	}
	supply, err := e.state.TokenSupply()
	if err != nil {
		return nil, err
	}
	acct, err := e.loadAccount(caller)
	if err != nil {
		return nil, err
	}
	return e.priceFor(acct, supply, amount, isMint)
}

// requirePayment verifies balance and allowance cover the full amount before
// any transfer happens, so a rejection leaves no partial state behind.
func (e *Engine) requirePayment(payer common.Address, cents *big.Int) error {
	if cents.Sign() == 0 {
		return nil
	}
	allowance, err := e.payment.Allowance(payer, e.vaultAddr)
	if err != nil {
		return err
	}
	if allowance.Cmp(cents) < 0 {
		return ErrInsufficientAllowance
	}
	balance, err := e.payment.BalanceOf(payer)
	if err != nil {
		return err
	}
	if balance.Cmp(cents) < 0 {
		return ErrInsufficientFunds
	}
	return nil
}

// Mint prices amount tokens at the current supply and credits them to the
// caller. See MintTo.
func (e *Engine) Mint(caller common.Address, amount uint64) (*Quote, error) {
	return e.MintTo(caller, amount, caller)
}

// MintTo charges the caller principal plus fee in payment cents and credits
// the minted tokens to recipient. The principal is parked in the reserve
// pool; the fee goes to the fee receiver. Minting never changes discount
// state, which is looked up live at call time.
func (e *Engine) MintTo(caller common.Address, amount uint64, recipient common.Address) (*Quote, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := e.guard(caller); err != nil {
		return nil, err
	}
	if amount == 0 {
		return nil, errInvalidAmount
	}
	supply, err := e.state.TokenSupply()
	if err != nil {
		return nil, err
	}
	callerAcct, err := e.loadAccount(caller)
	if err != nil {
		return nil, err
	}
	quote, err := e.priceFor(callerAcct, supply, amount, true)
	if err != nil {
		return nil, err
	}
	if err := e.requirePayment(caller, quote.TotalCents); err != nil {
		return nil, err
	}
	if quote.FeeCents.Sign() > 0 {
		if err := e.payment.TransferFrom(e.vaultAddr, caller, e.feeReceiver, quote.FeeCents); err != nil {
			return nil, err
		}
	}
	if quote.PrincipalCents.Sign() > 0 {
		if err := e.payment.TransferFrom(e.vaultAddr, caller, e.vaultAddr, quote.PrincipalCents); err != nil {
			return nil, err
		}
		if err := e.reserve.Deposit(quote.PrincipalCents); err != nil {
			return nil, err
		}
	}
	recipientAcct := callerAcct
	if recipient != caller {
		if recipientAcct, err = e.loadAccount(recipient); err != nil {
			return nil, err
		}
	}
	recipientAcct.BalanceBNJI += amount
	if err := e.state.PutAccount(recipient, recipientAcct); err != nil {
		return nil, err
	}
	supply += amount
	if err := e.state.SetTokenSupply(supply); err != nil {
		return nil, err
	}
	e.state.AppendEvent(events.MintSettled{
		Caller:         caller,
		Recipient:      recipient,
		Amount:         amount,
		PrincipalCents: quote.PrincipalCents,
		FeeCents:       quote.FeeCents,
		SupplyAfter:    supply,
	}.Event())
	return quote, nil
}

// Burn destroys amount of the caller's tokens and pays the curve return to
// the caller. See BurnTo.
func (e *Engine) Burn(caller common.Address, amount uint64) (*Quote, error) {
	return e.BurnTo(caller, amount, caller)
}

// BurnTo destroys amount of the caller's tokens, withdraws the principal from
// the reserve pool, and pays principal minus fee to recipient with the fee
// routed to the fee receiver. The caller's discount applies even when paying
// out to someone else.
func (e *Engine) BurnTo(caller common.Address, amount uint64, recipient common.Address) (*Quote, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := e.guard(caller); err != nil {
		return nil, err
	}
	if amount == 0 {
		return nil, errInvalidAmount
	}
	supply, err := e.state.TokenSupply()
	if err != nil {
		return nil, err
	}
	callerAcct, err := e.loadAccount(caller)
	if err != nil {
		return nil, err
	}
	if callerAcct.BalanceBNJI < amount {
		return nil, ErrInsufficientBalance
	}
	quote, err := e.priceFor(callerAcct, supply, amount, false)
	if err != nil {
		return nil, err
	}
	if quote.PrincipalCents.Sign() > 0 {
		if err := e.reserve.Withdraw(quote.PrincipalCents); err != nil {
			return nil, err
		}
	}
	if quote.TotalCents.Sign() > 0 {
		if err := e.payment.Transfer(e.vaultAddr, recipient, quote.TotalCents); err != nil {
			return nil, err
		}
	}
	if quote.FeeCents.Sign() > 0 {
		if err := e.payment.Transfer(e.vaultAddr, e.feeReceiver, quote.FeeCents); err != nil {
			return nil, err
		}
	}
	callerAcct.BalanceBNJI -= amount
	if err := e.state.PutAccount(caller, callerAcct); err != nil {
		return nil, err
	}
	supply -= amount
	if err := e.state.SetTokenSupply(supply); err != nil {
		return nil, err
	}
	e.state.AppendEvent(events.BurnSettled{
		Caller:         caller,
		Recipient:      recipient,
		Amount:         amount,
		PrincipalCents: quote.PrincipalCents,
		FeeCents:       quote.FeeCents,
		SupplyAfter:    supply,
	}.Event())
	return quote, nil
}

// transferFee is the payment-asset fee a token move costs its sender: the fee
// leg of a hypothetical burn of the same size at the current supply, at the
// sender's discount.
func (e *Engine) transferFee(sender *types.Account, supply, amount uint64) (*big.Int, error) {
	quote, err := e.priceFor(sender, supply, amount, false)
	if err != nil {
		return nil, err
	}
	return quote.FeeCents, nil
}

// Transfer moves amount tokens from the caller to recipient. The caller pays
// the transfer fee in payment cents to the fee receiver; total supply is
// unchanged.
func (e *Engine) Transfer(caller, recipient common.Address, amount uint64) error {
	return e.moveTokens(caller, caller, recipient, amount)
}

// TransferFrom moves amount tokens from owner to recipient on the caller's
// initiative. The fee is still paid by the token owner, not the caller;
// token-side approvals are delegated to the access-control collaborator.
func (e *Engine) TransferFrom(caller, owner, recipient common.Address, amount uint64) error {
	return e.moveTokens(caller, owner, recipient, amount)
}

func (e *Engine) moveTokens(caller, from, to common.Address, amount uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.guard(caller); err != nil {
		return err
	}
	if amount == 0 {
		return errInvalidAmount
	}
	supply, err := e.state.TokenSupply()
	if err != nil {
		return err
	}
	fromAcct, err := e.loadAccount(from)
	if err != nil {
		return err
	}
	if fromAcct.BalanceBNJI < amount {
		return ErrInsufficientBalance
	}
	fee, err := e.transferFee(fromAcct, supply, amount)
	if err != nil {
		return err
	}
	if fee.Sign() > 0 {
		if err := e.requirePayment(from, fee); err != nil {
			return err
		}
		if err := e.payment.TransferFrom(e.vaultAddr, from, e.feeReceiver, fee); err != nil {
			return err
		}
	}
	toAcct := fromAcct
	if to != from {
		if toAcct, err = e.loadAccount(to); err != nil {
			return err
		}
	}
	fromAcct.BalanceBNJI -= amount
	toAcct.BalanceBNJI += amount
	if err := e.state.PutAccount(from, fromAcct); err != nil {
		return err
	}
	if to != from {
		if err := e.state.PutAccount(to, toAcct); err != nil {
			return err
		}
	}
	e.state.AppendEvent(events.TransferFeeCharged{
		Sender:    from,
		Recipient: to,
		Amount:    amount,
		FeeCents:  fee,
	}.Event())
	return nil
}

// CreateLockbox debits amount BNJI from the caller into the vault for
// durationBlocks and returns the new box's globally unique ID. The box's
// discount score contribution (amount × duration) is fixed here and credited
// to the caller immediately.
func (e *Engine) CreateLockbox(caller common.Address, amount, durationBlocks uint64, label string) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	if err := e.guard(caller); err != nil {
		return 0, err
	}
	if amount == 0 {
		return 0, errInvalidAmount
	}
	if durationBlocks < e.params.MinLockBlocks {
		return 0, errDurationTooShort
	}
	// The unlock height and the amount×duration score must both stay
	// representable, or the box could be opened before its lock elapsed.
	if durationBlocks > math.MaxUint64-e.blockHeight || durationBlocks > math.MaxUint64/amount {
		return 0, errDurationTooLong
	}
	acct, err := e.loadAccount(caller)
	if err != nil {
		return 0, err
	}
	if acct.BalanceBNJI < amount {
		return 0, ErrInsufficientBalance
	}
	if acct.LockboxCount >= types.MaxLockboxes {
		return 0, ErrCapacityExceeded
	}
	counter, err := e.state.LockboxCounter()
	if err != nil {
		return 0, err
	}
	id := counter + 1
	box := &Lockbox{
		ID:             id,
		Owner:          caller,
		Amount:         amount,
		DurationBlocks: durationBlocks,
		Score:          amount * durationBlocks,
		CreatedAt:      e.blockHeight,
		Label:          label,
	}
	vaultAcct, err := e.loadAccount(e.vaultAddr)
	if err != nil {
		return 0, err
	}
	acct.BalanceBNJI -= amount
	vaultAcct.BalanceBNJI += amount
	acct.AddLockboxID(id)
	e.discount.OnLockCreated(acct, box.Score)
	if err := e.state.PutLockbox(box); err != nil {
		return 0, err
	}
	if err := e.state.SetLockboxCounter(id); err != nil {
		return 0, err
	}
	if err := e.state.PutAccount(caller, acct); err != nil {
		return 0, err
	}
	if err := e.state.PutAccount(e.vaultAddr, vaultAcct); err != nil {
		return 0, err
	}
	e.state.AppendEvent(events.LockboxCreated{
		ID:             id,
		Owner:          caller,
		Amount:         amount,
		DurationBlocks: durationBlocks,
		Score:          box.Score,
	}.Event())
	return id, nil
}

// OpenAndDestroyLockbox returns the box's BNJI to its owner once the lock
// duration has elapsed, subtracts the score recorded at creation, and deletes
// the box. The ID is never reassigned.
func (e *Engine) OpenAndDestroyLockbox(caller common.Address, id uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.guard(caller); err != nil {
		return err
	}
	box, err := e.state.GetLockbox(id)
	if err != nil {
		return err
	}
	if box == nil || box.Owner != caller {
		return ErrNotFound
	}
	if e.blockHeight < box.UnlockHeight() {
		return ErrTooEarly
	}
	acct, err := e.loadAccount(caller)
	if err != nil {
		return err
	}
	vaultAcct, err := e.loadAccount(e.vaultAddr)
	if err != nil {
		return err
	}
	if vaultAcct.BalanceBNJI < box.Amount {
		return ErrInsufficientBalance
	}
	acct.BalanceBNJI += box.Amount
	vaultAcct.BalanceBNJI -= box.Amount
	acct.RemoveLockboxID(id)
	e.discount.OnLockDestroyed(acct, box.Score)
	if err := e.state.DeleteLockbox(id); err != nil {
		return err
	}
	if err := e.state.PutAccount(caller, acct); err != nil {
		return err
	}
	if err := e.state.PutAccount(e.vaultAddr, vaultAcct); err != nil {
		return err
	}
	e.state.AppendEvent(events.LockboxDestroyed{
		ID:     id,
		Owner:  caller,
		Amount: box.Amount,
		Score:  box.Score,
	}.Event())
	return nil
}

// IncreaseDiscountLevels moves the caller up k discount levels, locking
// k × 1000 BNJI into the vault as a cumulative commitment. The discount takes
// effect immediately; only the committed balance waits out the new level's
// holding time. Levels never decrease.
func (e *Engine) IncreaseDiscountLevels(caller common.Address, k uint32) error {
	if err := e.ready(); err != nil {
		return err
	}
	if e.Edition() != EditionLevels {
		return errLevelsUnsupported
	}
	if err := e.guard(caller); err != nil {
		return err
	}
	if k == 0 {
		return errInvalidAmount
	}
	acct, err := e.loadAccount(caller)
	if err != nil {
		return err
	}
	newLevel := acct.DiscountLevel + k
	if newLevel > MaxDiscountLevel {
		return errLevelAboveMax
	}
	cost := uint64(k) * e.params.LevelUnitsBNJI
	if acct.BalanceBNJI < cost {
		return ErrInsufficientBalance
	}
	vaultAcct, err := e.loadAccount(e.vaultAddr)
	if err != nil {
		return err
	}
	acct.BalanceBNJI -= cost
	vaultAcct.BalanceBNJI += cost
	acct.LockedBNJI += cost
	acct.DiscountLevel = newLevel
	acct.UnlockHeight = e.blockHeight + HoldingDays(newLevel)*e.params.BlocksPerDay
	if err := e.state.PutAccount(caller, acct); err != nil {
		return err
	}
	if err := e.state.PutAccount(e.vaultAddr, vaultAcct); err != nil {
		return err
	}
	e.state.AppendEvent(events.LevelIncreased{
		Account:      caller,
		NewLevel:     newLevel,
		LockedBNJI:   acct.LockedBNJI,
		UnlockHeight: acct.UnlockHeight,
	}.Event())
	return nil
}

// ReleaseLevelCommitment returns the caller's committed balance once the
// holding time has elapsed. The purchased level, and with it the discount,
// is retained; levels never decrease.
func (e *Engine) ReleaseLevelCommitment(caller common.Address) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	if e.Edition() != EditionLevels {
		return 0, errLevelsUnsupported
	}
	if err := e.guard(caller); err != nil {
		return 0, err
	}
	acct, err := e.loadAccount(caller)
	if err != nil {
		return 0, err
	}
	if acct.LockedBNJI == 0 {
		return 0, errInvalidAmount
	}
	if e.blockHeight < acct.UnlockHeight {
		return 0, errCommitmentStillHeld
	}
	vaultAcct, err := e.loadAccount(e.vaultAddr)
	if err != nil {
		return 0, err
	}
	released := acct.LockedBNJI
	if vaultAcct.BalanceBNJI < released {
		return 0, ErrInsufficientBalance
	}
	acct.BalanceBNJI += released
	vaultAcct.BalanceBNJI -= released
	acct.LockedBNJI = 0
	if err := e.state.PutAccount(caller, acct); err != nil {
		return 0, err
	}
	if err := e.state.PutAccount(e.vaultAddr, vaultAcct); err != nil {
		return 0, err
	}
	return released, nil
}

// CleanTips sweeps a stray asset balance from the engine identity to the
// owner. Sweeping the payment asset, the reserve asset, or the token itself
// is refused so protocol funds can never leave through this path.
func (e *Engine) CleanTips(caller, asset common.Address) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if caller != e.owner {
		return nil, ErrUnauthorized
	}
	if asset == e.paymentAsset || asset == e.reserveAsset || asset == e.vaultAddr {
		return nil, ErrDisallowedAsset
	}
	if e.sweeper == nil {
		return nil, errNilPayment
	}
	amount, err := e.sweeper.Sweep(asset, e.owner)
	if err != nil {
		return nil, err
	}
	e.state.AppendEvent(events.TipsCleaned{Asset: asset, To: e.owner, Amount: amount}.Event())
	return amount, nil
}
