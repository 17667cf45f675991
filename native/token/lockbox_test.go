package token

import (
	"errors"
	"math"
	"testing"

	"benjamins/core/types"
)

func TestCreateLockboxAccruesScore(t *testing.T) {
	env := newTestEnv(EditionLockbox)
	env.state.accounts[alice] = &types.Account{BalanceBNJI: 250}

	for i := 0; i < 5; i++ {
		id, err := env.engine.CreateLockbox(alice, 50, 40, "")
		if err != nil {
			t.Fatalf("create box %d: %v", i+1, err)
		}
		if id != uint64(i+1) {
			t.Fatalf("box %d got ID %d", i+1, id)
		}
	}

	acct := env.state.accounts[alice]
	if acct.BalanceBNJI != 0 {
		t.Fatalf("alice liquid BNJI = %d, want 0", acct.BalanceBNJI)
	}
	if acct.DiscountScore != 10_000 {
		t.Fatalf("score = %d, want 10000", acct.DiscountScore)
	}
	if acct.LockboxCount != 5 {
		t.Fatalf("box count = %d, want 5", acct.LockboxCount)
	}
	if env.state.balance(testVault) != 250 {
		t.Fatalf("vault BNJI = %d, want 250", env.state.balance(testVault))
	}

	// 10,000 score sits exactly on the 10% tier boundary.
	info, err := env.engine.DiscountInfoOf(alice)
	if err != nil {
		t.Fatalf("discount info: %v", err)
	}
	if info.Percent != 10 {
		t.Fatalf("discount = %d%%, want 10%%", info.Percent)
	}
}

func TestLockboxRoundTrip(t *testing.T) {
	env := newTestEnv(EditionLockbox)
	env.state.accounts[alice] = &types.Account{BalanceBNJI: 100}
	env.engine.SetBlockHeight(500)

	id, err := env.engine.CreateLockbox(alice, 100, 40, "rainy day")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	box, err := env.engine.LockboxByID(alice, id)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if box.CreatedAt != 500 || box.UnlockHeight() != 540 {
		t.Fatalf("unlock height = %d, want 540", box.UnlockHeight())
	}
	if box.Label != "rainy day" {
		t.Fatalf("label = %q", box.Label)
	}

	env.engine.SetBlockHeight(540)
	if err := env.engine.OpenAndDestroyLockbox(alice, id); err != nil {
		t.Fatalf("open: %v", err)
	}

	acct := env.state.accounts[alice]
	if acct.BalanceBNJI != 100 {
		t.Fatalf("balance not restored: %d", acct.BalanceBNJI)
	}
	if acct.DiscountScore != 0 {
		t.Fatalf("score not removed: %d", acct.DiscountScore)
	}
	if acct.LockboxCount != 0 {
		t.Fatalf("box count = %d, want 0", acct.LockboxCount)
	}
	if err := env.engine.OpenAndDestroyLockbox(alice, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("destroyed box should be gone, got %v", err)
	}
}

func TestOpenLockboxTooEarlyIsNoOp(t *testing.T) {
	env := newTestEnv(EditionLockbox)
	env.state.accounts[alice] = &types.Account{BalanceBNJI: 100}
	env.engine.SetBlockHeight(500)

	id, err := env.engine.CreateLockbox(alice, 100, 40, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	env.engine.SetBlockHeight(539)
	if err := env.engine.OpenAndDestroyLockbox(alice, id); !errors.Is(err, ErrTooEarly) {
		t.Fatalf("expected ErrTooEarly, got %v", err)
	}
	acct := env.state.accounts[alice]
	if acct.BalanceBNJI != 0 || acct.DiscountScore != 4_000 || acct.LockboxCount != 1 {
		t.Fatalf("early open mutated state: %+v", acct)
	}
	if _, ok := env.state.lockboxes[id]; !ok {
		t.Fatalf("early open deleted the box")
	}
}

func TestLockboxDeniedToNonOwner(t *testing.T) {
	env := newTestEnv(EditionLockbox)
	env.state.accounts[alice] = &types.Account{BalanceBNJI: 100}

	id, err := env.engine.CreateLockbox(alice, 100, 40, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	env.engine.SetBlockHeight(100)
	if err := env.engine.OpenAndDestroyLockbox(bob, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign open should look like a missing box, got %v", err)
	}
	if _, err := env.engine.LockboxByID(bob, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign lookup should look like a missing box, got %v", err)
	}
}

func TestLockboxCapacityAndRecovery(t *testing.T) {
	env := newTestEnv(EditionLockbox)
	env.state.accounts[alice] = &types.Account{BalanceBNJI: 10_000}

	for i := 0; i < types.MaxLockboxes; i++ {
		if _, err := env.engine.CreateLockbox(alice, 10, 10, ""); err != nil {
			t.Fatalf("create box %d: %v", i+1, err)
		}
	}
	if _, err := env.engine.CreateLockbox(alice, 10, 10, ""); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("13th box should be rejected, got %v", err)
	}

	env.engine.SetBlockHeight(10)
	if err := env.engine.OpenAndDestroyLockbox(alice, 1); err != nil {
		t.Fatalf("open: %v", err)
	}
	id, err := env.engine.CreateLockbox(alice, 10, 10, "")
	if err != nil {
		t.Fatalf("create after recovery: %v", err)
	}
	// The freed ID is never reassigned.
	if id != uint64(types.MaxLockboxes)+1 {
		t.Fatalf("new box ID = %d, want %d", id, types.MaxLockboxes+1)
	}
}

func TestLockboxIDsMonotonicAcrossUsers(t *testing.T) {
	env := newTestEnv(EditionLockbox)
	env.state.accounts[alice] = &types.Account{BalanceBNJI: 100}
	env.state.accounts[bob] = &types.Account{BalanceBNJI: 100}

	id1, _ := env.engine.CreateLockbox(alice, 10, 10, "")
	id2, _ := env.engine.CreateLockbox(alice, 10, 10, "")
	id3, _ := env.engine.CreateLockbox(bob, 10, 10, "")
	if id1 != 1 || id2 != 2 || id3 != 3 {
		t.Fatalf("IDs = %d,%d,%d, want 1,2,3", id1, id2, id3)
	}

	// The counter survives out-of-band bumps; IDs continue past it.
	if err := env.state.SetLockboxCounter(15); err != nil {
		t.Fatalf("set counter: %v", err)
	}
	id4, err := env.engine.CreateLockbox(bob, 10, 10, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id4 != 16 {
		t.Fatalf("ID after counter bump = %d, want 16", id4)
	}
}

func TestLockboxMinimumDuration(t *testing.T) {
	env := newTestEnv(EditionLockbox)
	env.state.accounts[alice] = &types.Account{BalanceBNJI: 100}

	if _, err := env.engine.CreateLockbox(alice, 10, 9, ""); !errors.Is(err, errDurationTooShort) {
		t.Fatalf("expected duration rejection, got %v", err)
	}
	if _, err := env.engine.CreateLockbox(alice, 10, 10, ""); err != nil {
		t.Fatalf("minimum duration should be accepted: %v", err)
	}
}

func TestLockboxWrappingDurationRejected(t *testing.T) {
	env := newTestEnv(EditionLockbox)
	env.engine.SetBlockHeight(500)
	env.state.accounts[alice] = &types.Account{BalanceBNJI: 1 << 40}

	// A duration that wraps the unlock height below the current block would
	// make the box openable immediately.
	if _, err := env.engine.CreateLockbox(alice, 100, math.MaxUint64-100, ""); !errors.Is(err, errDurationTooLong) {
		t.Fatalf("expected duration rejection, got %v", err)
	}
	// Same for a duration that wraps the amount×duration score.
	if _, err := env.engine.CreateLockbox(alice, 1<<33, 1<<33, ""); !errors.Is(err, errDurationTooLong) {
		t.Fatalf("expected score overflow rejection, got %v", err)
	}
	if env.state.counter != 0 || len(env.state.lockboxes) != 0 {
		t.Fatalf("rejected lock left state behind: counter %d, %d boxes", env.state.counter, len(env.state.lockboxes))
	}
	if got := env.state.balance(alice); got != 1<<40 {
		t.Fatalf("balance changed to %d", got)
	}

	// The largest representable lock for this amount is still accepted.
	id, err := env.engine.CreateLockbox(alice, 1, math.MaxUint64-500, "")
	if err != nil {
		t.Fatalf("boundary lock: %v", err)
	}
	box, err := env.engine.LockboxByID(alice, id)
	if err != nil {
		t.Fatalf("LockboxByID: %v", err)
	}
	if box.UnlockHeight() != math.MaxUint64 {
		t.Fatalf("unlock height = %d", box.UnlockHeight())
	}
	if err := env.engine.OpenAndDestroyLockbox(alice, id); !errors.Is(err, ErrTooEarly) {
		t.Fatalf("boundary lock must not open at height 500: %v", err)
	}
}

func TestLockboxRequiresBalance(t *testing.T) {
	env := newTestEnv(EditionLockbox)
	env.state.accounts[alice] = &types.Account{BalanceBNJI: 5}

	if _, err := env.engine.CreateLockbox(alice, 10, 10, ""); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestLockedTokensDoNotMoveOrBurn(t *testing.T) {
	env := newTestEnv(EditionLockbox)
	env.state.supply = 1_000
	env.state.accounts[alice] = &types.Account{BalanceBNJI: 100}

	if _, err := env.engine.CreateLockbox(alice, 100, 10, ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := env.engine.Burn(alice, 1); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("locked tokens should not burn, got %v", err)
	}
	if err := env.engine.Transfer(alice, bob, 1); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("locked tokens should not transfer, got %v", err)
	}
}

func TestLockboxQueries(t *testing.T) {
	env := newTestEnv(EditionLockbox)
	env.state.accounts[alice] = &types.Account{BalanceBNJI: 100}
	env.engine.SetBlockHeight(500)

	id, err := env.engine.CreateLockbox(alice, 40, 20, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	locked, err := env.engine.LockedBalanceOf(alice)
	if err != nil || locked != 40 {
		t.Fatalf("locked = %d (%v), want 40", locked, err)
	}
	ids, err := env.engine.LockboxIDs(alice)
	if err != nil {
		t.Fatalf("ids: %v", err)
	}
	if ids[0] != id || ids[1] != 0 {
		t.Fatalf("ID slots = %v", ids)
	}
	env.engine.SetBlockHeight(510)
	remaining, err := env.engine.BlocksUntilUnlock(alice, id)
	if err != nil || remaining != 10 {
		t.Fatalf("blocks until unlock = %d (%v), want 10", remaining, err)
	}
	env.engine.SetBlockHeight(600)
	remaining, err = env.engine.BlocksUntilUnlock(alice, id)
	if err != nil || remaining != 0 {
		t.Fatalf("past unlock should report 0, got %d (%v)", remaining, err)
	}
}
