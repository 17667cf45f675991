package token

import (
	"errors"
	"math"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"benjamins/core/types"
)

var (
	testVault = common.Address{0xEE}
	testOwner = common.Address{0x01}
	testFees  = common.Address{0x02}
	alice     = common.Address{0xA1}
	bob       = common.Address{0xB2}
)

type pauseMap map[string]bool

func (p pauseMap) IsPaused(module string) bool { return p[module] }

type mockState struct {
	accounts  map[common.Address]*types.Account
	supply    uint64
	lockboxes map[uint64]*Lockbox
	counter   uint64
	events    []*types.Event
}

func newMockState() *mockState {
	return &mockState{
		accounts:  make(map[common.Address]*types.Account),
		lockboxes: make(map[uint64]*Lockbox),
	}
}

func (s *mockState) GetAccount(addr common.Address) (*types.Account, error) {
	acct, ok := s.accounts[addr]
	if !ok {
		return nil, nil
	}
	cp := *acct
	return &cp, nil
}

func (s *mockState) PutAccount(addr common.Address, acct *types.Account) error {
	cp := *acct
	s.accounts[addr] = &cp
	return nil
}

func (s *mockState) TokenSupply() (uint64, error)       { return s.supply, nil }
func (s *mockState) SetTokenSupply(supply uint64) error { s.supply = supply; return nil }

func (s *mockState) GetLockbox(id uint64) (*Lockbox, error) {
	box, ok := s.lockboxes[id]
	if !ok {
		return nil, nil
	}
	return box.Copy(), nil
}

func (s *mockState) PutLockbox(box *Lockbox) error {
	s.lockboxes[box.ID] = box.Copy()
	return nil
}

func (s *mockState) DeleteLockbox(id uint64) error {
	delete(s.lockboxes, id)
	return nil
}

func (s *mockState) LockboxCounter() (uint64, error)        { return s.counter, nil }
func (s *mockState) SetLockboxCounter(counter uint64) error { s.counter = counter; return nil }
func (s *mockState) AppendEvent(evt *types.Event)           { s.events = append(s.events, evt) }

func (s *mockState) balance(addr common.Address) uint64 {
	if acct, ok := s.accounts[addr]; ok {
		return acct.BalanceBNJI
	}
	return 0
}

type fakeLedger struct {
	balances   map[common.Address]*big.Int
	allowances map[[2]common.Address]*big.Int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[[2]common.Address]*big.Int),
	}
}

func (l *fakeLedger) BalanceOf(addr common.Address) (*big.Int, error) {
	if bal, ok := l.balances[addr]; ok {
		return new(big.Int).Set(bal), nil
	}
	return big.NewInt(0), nil
}

func (l *fakeLedger) Allowance(owner, spender common.Address) (*big.Int, error) {
	if allowance, ok := l.allowances[[2]common.Address{owner, spender}]; ok {
		return new(big.Int).Set(allowance), nil
	}
	return big.NewInt(0), nil
}

func (l *fakeLedger) credit(addr common.Address, cents *big.Int) {
	bal, ok := l.balances[addr]
	if !ok {
		bal = big.NewInt(0)
		l.balances[addr] = bal
	}
	bal.Add(bal, cents)
}

func (l *fakeLedger) Transfer(from, to common.Address, cents *big.Int) error {
	bal, err := l.BalanceOf(from)
	if err != nil {
		return err
	}
	if bal.Cmp(cents) < 0 {
		return ErrInsufficientFunds
	}
	l.credit(from, new(big.Int).Neg(cents))
	l.credit(to, cents)
	return nil
}

func (l *fakeLedger) TransferFrom(spender, owner, to common.Address, cents *big.Int) error {
	key := [2]common.Address{owner, spender}
	allowance, ok := l.allowances[key]
	if !ok || allowance.Cmp(cents) < 0 {
		return ErrInsufficientAllowance
	}
	if err := l.Transfer(owner, to, cents); err != nil {
		return err
	}
	allowance.Sub(allowance, cents)
	return nil
}

// fakeReserve parks vault cents as a nominal deposit, moving them out of and
// back into the vault's payment balance like the production pool does.
type fakeReserve struct {
	ledger  *fakeLedger
	nominal *big.Int
}

func (r *fakeReserve) Deposit(cents *big.Int) error {
	bal, err := r.ledger.BalanceOf(testVault)
	if err != nil {
		return err
	}
	if bal.Cmp(cents) < 0 {
		return ErrInsufficientFunds
	}
	r.ledger.credit(testVault, new(big.Int).Neg(cents))
	r.nominal.Add(r.nominal, cents)
	return nil
}

func (r *fakeReserve) Withdraw(cents *big.Int) error {
	if r.nominal.Cmp(cents) < 0 {
		return ErrInsufficientFunds
	}
	r.nominal.Sub(r.nominal, cents)
	r.ledger.credit(testVault, cents)
	return nil
}

func (r *fakeReserve) Balance() (*big.Int, error) {
	return new(big.Int).Set(r.nominal), nil
}

type fakeSweeper struct {
	tips  map[common.Address]*big.Int
	swept map[common.Address]common.Address
}

func (s *fakeSweeper) Sweep(asset, to common.Address) (*big.Int, error) {
	held, ok := s.tips[asset]
	if !ok {
		held = big.NewInt(0)
	}
	delete(s.tips, asset)
	if s.swept == nil {
		s.swept = make(map[common.Address]common.Address)
	}
	s.swept[asset] = to
	return held, nil
}

type testEnv struct {
	engine  *Engine
	state   *mockState
	ledger  *fakeLedger
	reserve *fakeReserve
	sweeper *fakeSweeper
	pauses  pauseMap
}

func newTestEnv(edition Edition) *testEnv {
	env := &testEnv{
		state:   newMockState(),
		ledger:  newFakeLedger(),
		sweeper: &fakeSweeper{tips: make(map[common.Address]*big.Int)},
		pauses:  pauseMap{},
	}
	env.reserve = &fakeReserve{ledger: env.ledger, nominal: big.NewInt(0)}
	env.engine = NewEngine(edition, testVault, testOwner, testFees)
	env.engine.SetState(env.state)
	env.engine.SetPaymentLedger(env.ledger)
	env.engine.SetReservePool(env.reserve)
	env.engine.SetSweeper(env.sweeper)
	env.engine.SetPauses(env.pauses)
	return env
}

// fund seeds a payment balance and an engine allowance covering it.
func (env *testEnv) fund(addr common.Address, cents int64) {
	env.ledger.credit(addr, big.NewInt(cents))
	env.ledger.allowances[[2]common.Address{addr, testVault}] = big.NewInt(cents)
}

// totalCents sums every payment balance plus the reserve nominal; mints and
// burns move money around but never create or destroy it.
func (env *testEnv) totalCents() *big.Int {
	total := new(big.Int).Set(env.reserve.nominal)
	for _, bal := range env.ledger.balances {
		total.Add(total, bal)
	}
	return total
}

func TestMintChargesCurvePriceAndFee(t *testing.T) {
	env := newTestEnv(EditionLockbox)
	env.fund(alice, 20_000_000)

	quote, err := env.engine.Mint(alice, 889_000)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if quote.PrincipalCents.Cmp(big.NewInt(9_879_012)) != 0 {
		t.Fatalf("principal = %s, want 9879012", quote.PrincipalCents)
	}
	if quote.FeeCents.Cmp(big.NewInt(98_790)) != 0 {
		t.Fatalf("fee = %s, want 98790", quote.FeeCents)
	}
	if quote.TotalCents.Cmp(big.NewInt(9_977_802)) != 0 {
		t.Fatalf("total = %s, want 9977802", quote.TotalCents)
	}
	if quote.TotalMinorUnits.Cmp(big.NewInt(99_778_020_000)) != 0 {
		t.Fatalf("minor units = %s, want 99778020000", quote.TotalMinorUnits)
	}

	if got := env.state.balance(alice); got != 889_000 {
		t.Fatalf("alice BNJI = %d, want 889000", got)
	}
	if env.state.supply != 889_000 {
		t.Fatalf("supply = %d, want 889000", env.state.supply)
	}
	if env.reserve.nominal.Cmp(big.NewInt(9_879_012)) != 0 {
		t.Fatalf("reserve nominal = %s, want 9879012", env.reserve.nominal)
	}
	feeBal, _ := env.ledger.BalanceOf(testFees)
	if feeBal.Cmp(big.NewInt(98_790)) != 0 {
		t.Fatalf("fee receiver balance = %s, want 98790", feeBal)
	}
	aliceBal, _ := env.ledger.BalanceOf(alice)
	if aliceBal.Cmp(big.NewInt(10_022_198)) != 0 {
		t.Fatalf("alice payment balance = %s, want 10022198", aliceBal)
	}
}

func TestMintRejectsShortAllowance(t *testing.T) {
	env := newTestEnv(EditionLockbox)
	env.ledger.credit(alice, big.NewInt(20_000_000))
	env.ledger.allowances[[2]common.Address{alice, testVault}] = big.NewInt(100)

	if _, err := env.engine.Mint(alice, 889_000); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("expected ErrInsufficientAllowance, got %v", err)
	}
	if env.state.supply != 0 {
		t.Fatalf("rejected mint changed supply to %d", env.state.supply)
	}
	if bal, _ := env.ledger.BalanceOf(alice); bal.Cmp(big.NewInt(20_000_000)) != 0 {
		t.Fatalf("rejected mint moved funds: %s", bal)
	}
}

func TestMintRejectsShortFunds(t *testing.T) {
	env := newTestEnv(EditionLockbox)
	env.ledger.credit(alice, big.NewInt(100))
	env.ledger.allowances[[2]common.Address{alice, testVault}] = big.NewInt(20_000_000)

	if _, err := env.engine.Mint(alice, 889_000); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if env.state.balance(alice) != 0 {
		t.Fatalf("rejected mint credited tokens")
	}
}

func TestSmallMintRoundsToZeroCents(t *testing.T) {
	env := newTestEnv(EditionLockbox)

	quote, err := env.engine.Mint(alice, 40)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if quote.TotalCents.Sign() != 0 {
		t.Fatalf("tiny mint should cost 0 cents, got %s", quote.TotalCents)
	}
	if got := env.state.balance(alice); got != 40 {
		t.Fatalf("alice BNJI = %d, want 40", got)
	}
}

func TestMintToCreditsRecipient(t *testing.T) {
	env := newTestEnv(EditionLockbox)
	env.state.supply = 889_000
	env.fund(alice, 1_000)

	if _, err := env.engine.MintTo(alice, 40, bob); err != nil {
		t.Fatalf("mintTo: %v", err)
	}
	if got := env.state.balance(bob); got != 40 {
		t.Fatalf("bob BNJI = %d, want 40", got)
	}
	if got := env.state.balance(alice); got != 0 {
		t.Fatalf("alice should hold no tokens, got %d", got)
	}
}

func TestBurnPaysPrincipalMinusFee(t *testing.T) {
	env := newTestEnv(EditionLockbox)
	env.state.supply = 889_040
	env.state.accounts[alice] = &types.Account{BalanceBNJI: 40}
	env.reserve.nominal = big.NewInt(10_000)

	quote, err := env.engine.Burn(alice, 40)
	if err != nil {
		t.Fatalf("burn: %v", err)
	}
	if quote.PrincipalCents.Cmp(big.NewInt(889)) != 0 {
		t.Fatalf("principal = %s, want 889", quote.PrincipalCents)
	}
	if quote.FeeCents.Cmp(big.NewInt(8)) != 0 {
		t.Fatalf("fee = %s, want 8", quote.FeeCents)
	}
	if quote.TotalCents.Cmp(big.NewInt(881)) != 0 {
		t.Fatalf("payout = %s, want 881", quote.TotalCents)
	}

	if env.state.supply != 889_000 {
		t.Fatalf("supply = %d, want 889000", env.state.supply)
	}
	if env.state.balance(alice) != 0 {
		t.Fatalf("alice still holds %d BNJI", env.state.balance(alice))
	}
	aliceBal, _ := env.ledger.BalanceOf(alice)
	if aliceBal.Cmp(big.NewInt(881)) != 0 {
		t.Fatalf("alice payout = %s, want 881", aliceBal)
	}
	feeBal, _ := env.ledger.BalanceOf(testFees)
	if feeBal.Cmp(big.NewInt(8)) != 0 {
		t.Fatalf("fee receiver = %s, want 8", feeBal)
	}
	if env.reserve.nominal.Cmp(big.NewInt(9_111)) != 0 {
		t.Fatalf("reserve nominal = %s, want 9111", env.reserve.nominal)
	}
}

func TestBurnRejectsShortTokenBalance(t *testing.T) {
	env := newTestEnv(EditionLockbox)
	env.state.supply = 1_000
	env.state.accounts[alice] = &types.Account{BalanceBNJI: 10}

	if _, err := env.engine.Burn(alice, 11); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if env.state.supply != 1_000 {
		t.Fatalf("rejected burn changed supply")
	}
}

func TestPaymentConservationAcrossMintAndBurn(t *testing.T) {
	env := newTestEnv(EditionLockbox)
	env.fund(alice, 20_000_000)
	before := env.totalCents()

	if _, err := env.engine.Mint(alice, 889_000); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if after := env.totalCents(); after.Cmp(before) != 0 {
		t.Fatalf("mint changed total cents: %s -> %s", before, after)
	}

	if _, err := env.engine.Burn(alice, 889_000); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if after := env.totalCents(); after.Cmp(before) != 0 {
		t.Fatalf("burn changed total cents: %s -> %s", before, after)
	}
}

func TestTransferChargesSenderBurnLegFee(t *testing.T) {
	env := newTestEnv(EditionLockbox)
	env.state.supply = 889_040
	env.state.accounts[alice] = &types.Account{BalanceBNJI: 40}
	env.fund(alice, 1_000)

	if err := env.engine.Transfer(alice, bob, 40); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got := env.state.balance(bob); got != 40 {
		t.Fatalf("bob BNJI = %d, want 40", got)
	}
	if got := env.state.balance(alice); got != 0 {
		t.Fatalf("alice BNJI = %d, want 0", got)
	}
	if env.state.supply != 889_040 {
		t.Fatalf("transfer changed supply to %d", env.state.supply)
	}
	feeBal, _ := env.ledger.BalanceOf(testFees)
	if feeBal.Cmp(big.NewInt(8)) != 0 {
		t.Fatalf("transfer fee = %s, want 8", feeBal)
	}
	aliceBal, _ := env.ledger.BalanceOf(alice)
	if aliceBal.Cmp(big.NewInt(992)) != 0 {
		t.Fatalf("alice payment balance = %s, want 992", aliceBal)
	}
}

func TestTransferFromChargesTokenOwnerNotCaller(t *testing.T) {
	env := newTestEnv(EditionLockbox)
	env.state.supply = 889_040
	env.state.accounts[alice] = &types.Account{BalanceBNJI: 40}
	env.fund(alice, 1_000)

	if err := env.engine.TransferFrom(bob, alice, bob, 40); err != nil {
		t.Fatalf("transferFrom: %v", err)
	}
	aliceBal, _ := env.ledger.BalanceOf(alice)
	if aliceBal.Cmp(big.NewInt(992)) != 0 {
		t.Fatalf("token owner should pay the fee, balance = %s", aliceBal)
	}
	bobBal, _ := env.ledger.BalanceOf(bob)
	if bobBal.Sign() != 0 {
		t.Fatalf("caller must not be charged, balance = %s", bobBal)
	}
}

func TestTransferRejectsUnfundedFee(t *testing.T) {
	env := newTestEnv(EditionLockbox)
	env.state.supply = 889_040
	env.state.accounts[alice] = &types.Account{BalanceBNJI: 40}

	if err := env.engine.Transfer(alice, bob, 40); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("expected ErrInsufficientAllowance, got %v", err)
	}
	if env.state.balance(alice) != 40 {
		t.Fatalf("rejected transfer moved tokens")
	}
}

func TestPauseBlocksEveryoneButOwner(t *testing.T) {
	env := newTestEnv(EditionLockbox)
	env.pauses["token"] = true
	env.fund(alice, 20_000_000)
	env.fund(testOwner, 20_000_000)

	if _, err := env.engine.Mint(alice, 40); !errors.Is(err, ErrPaused) {
		t.Fatalf("expected ErrPaused, got %v", err)
	}
	if _, err := env.engine.QuoteUSDC(alice, 40, true); !errors.Is(err, ErrPaused) {
		t.Fatalf("quote should be pause gated, got %v", err)
	}
	if env.state.balance(alice) != 0 {
		t.Fatalf("paused mint credited tokens")
	}

	if _, err := env.engine.Mint(testOwner, 40); err != nil {
		t.Fatalf("owner should bypass the pause: %v", err)
	}
	if env.state.balance(testOwner) != 40 {
		t.Fatalf("owner mint did not settle")
	}
}

func TestPausedAndUnpausedMintsSettleIdentically(t *testing.T) {
	paused := newTestEnv(EditionLockbox)
	paused.pauses["token"] = true
	paused.fund(testOwner, 20_000_000)
	open := newTestEnv(EditionLockbox)
	open.fund(testOwner, 20_000_000)

	pq, err := paused.engine.Mint(testOwner, 889_000)
	if err != nil {
		t.Fatalf("paused owner mint: %v", err)
	}
	oq, err := open.engine.Mint(testOwner, 889_000)
	if err != nil {
		t.Fatalf("open mint: %v", err)
	}
	if pq.TotalCents.Cmp(oq.TotalCents) != 0 {
		t.Fatalf("pause changed pricing: %s vs %s", pq.TotalCents, oq.TotalCents)
	}
	if paused.state.supply != open.state.supply {
		t.Fatalf("pause changed supply accounting: %d vs %d", paused.state.supply, open.state.supply)
	}
}

func TestQuoteMatchesSettledMint(t *testing.T) {
	env := newTestEnv(EditionLockbox)
	env.fund(alice, 20_000_000)

	quote, err := env.engine.QuoteUSDC(alice, 889_000, true)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	settled, err := env.engine.Mint(alice, 889_000)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if quote.TotalCents.Cmp(settled.TotalCents) != 0 {
		t.Fatalf("quote %s diverged from settlement %s", quote.TotalCents, settled.TotalCents)
	}
}

func TestBurnExceedingSupplyRejected(t *testing.T) {
	env := newTestEnv(EditionLockbox)
	env.state.supply = 10
	env.state.accounts[alice] = &types.Account{BalanceBNJI: 20}

	if _, err := env.engine.Burn(alice, 20); !errors.Is(err, errSupplyUnderflow) {
		t.Fatalf("expected supply underflow, got %v", err)
	}
}

func TestMintWrappingSupplyRejected(t *testing.T) {
	env := newTestEnv(EditionLockbox)
	env.state.supply = 889_000
	env.fund(alice, 1_000_000)

	amount := uint64(math.MaxUint64) - 889_000 + 1
	if _, err := env.engine.Mint(alice, amount); !errors.Is(err, errSupplyOverflow) {
		t.Fatalf("expected supply overflow, got %v", err)
	}
	if _, err := env.engine.QuoteUSDC(alice, amount, true); !errors.Is(err, errSupplyOverflow) {
		t.Fatalf("quote should reject the same amount, got %v", err)
	}
	if env.state.supply != 889_000 {
		t.Fatalf("supply changed to %d", env.state.supply)
	}
	if got := env.state.balance(alice); got != 0 {
		t.Fatalf("alice holds %d BNJI after rejected mint", got)
	}
	if bal, _ := env.ledger.BalanceOf(alice); bal.Cmp(big.NewInt(1_000_000)) != 0 {
		t.Fatalf("payment moved on rejected mint: %s", bal)
	}

	// The largest non-wrapping amount still prices normally.
	if _, err := env.engine.QuoteUSDC(alice, uint64(math.MaxUint64)-889_000, true); err != nil {
		t.Fatalf("boundary quote: %v", err)
	}
}

func TestZeroAmountRejected(t *testing.T) {
	env := newTestEnv(EditionLockbox)
	if _, err := env.engine.Mint(alice, 0); !errors.Is(err, errInvalidAmount) {
		t.Fatalf("mint(0): %v", err)
	}
	if _, err := env.engine.Burn(alice, 0); !errors.Is(err, errInvalidAmount) {
		t.Fatalf("burn(0): %v", err)
	}
	if err := env.engine.Transfer(alice, bob, 0); !errors.Is(err, errInvalidAmount) {
		t.Fatalf("transfer(0): %v", err)
	}
}

func TestCleanTips(t *testing.T) {
	env := newTestEnv(EditionLockbox)
	usdc := common.Address{0xAA}
	amUSDC := common.Address{0xAB}
	stray := common.Address{0xCC}
	env.engine.SetProtectedAssets(usdc, amUSDC)
	env.sweeper.tips[stray] = big.NewInt(777)

	if _, err := env.engine.CleanTips(alice, stray); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("non-owner sweep: %v", err)
	}
	for _, asset := range []common.Address{usdc, amUSDC, testVault} {
		if _, err := env.engine.CleanTips(testOwner, asset); !errors.Is(err, ErrDisallowedAsset) {
			t.Fatalf("asset %s should be protected, got %v", asset.Hex(), err)
		}
	}

	swept, err := env.engine.CleanTips(testOwner, stray)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if swept.Cmp(big.NewInt(777)) != 0 {
		t.Fatalf("swept = %s, want 777", swept)
	}
	if env.sweeper.swept[stray] != testOwner {
		t.Fatalf("tips must go to the owner, went to %s", env.sweeper.swept[stray].Hex())
	}
}

func TestMintEmitsSettlementEvent(t *testing.T) {
	env := newTestEnv(EditionLockbox)
	env.fund(alice, 20_000_000)

	if _, err := env.engine.Mint(alice, 889_000); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if len(env.state.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(env.state.events))
	}
	evt := env.state.events[0]
	if evt.Type != "token.mint.settled" {
		t.Fatalf("event type = %q", evt.Type)
	}
	if evt.Attributes["feeCents"] != "98790" {
		t.Fatalf("event feeCents = %q, want 98790", evt.Attributes["feeCents"])
	}
}
