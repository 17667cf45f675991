package token

import (
	"testing"

	"benjamins/core/types"
)

func TestLockboxTierBoundaries(t *testing.T) {
	policy := LockboxPolicy{}
	cases := []struct {
		score   uint64
		percent uint32
	}{
		{score: 0, percent: 0},
		{score: 999, percent: 0},
		{score: 1_000, percent: 5},
		{score: 9_999, percent: 5},
		{score: 10_000, percent: 10},
		{score: 100_000, percent: 20},
		{score: 1_000_000, percent: 40},
		{score: 9_999_999, percent: 40},
		{score: 10_000_000, percent: 75},
	}
	for _, tc := range cases {
		acct := &types.Account{DiscountScore: tc.score}
		if got := policy.DiscountPercent(acct); got != tc.percent {
			t.Fatalf("score %d: discount = %d%%, want %d%%", tc.score, got, tc.percent)
		}
	}
}

func TestLockboxScoreAccounting(t *testing.T) {
	policy := LockboxPolicy{}
	acct := &types.Account{}
	policy.OnLockCreated(acct, 10_000)
	policy.OnLockCreated(acct, 2_500)
	if acct.DiscountScore != 12_500 {
		t.Fatalf("score after two locks = %d, want 12500", acct.DiscountScore)
	}
	policy.OnLockDestroyed(acct, 10_000)
	if acct.DiscountScore != 2_500 {
		t.Fatalf("score after destroy = %d, want 2500", acct.DiscountScore)
	}
	policy.OnLockDestroyed(acct, 5_000)
	if acct.DiscountScore != 0 {
		t.Fatalf("score should clamp at zero, got %d", acct.DiscountScore)
	}
}

func TestLevelDiscountsAndHoldingDays(t *testing.T) {
	policy := LevelPolicy{}
	wantPercent := [4]uint32{0, 10, 25, 50}
	wantDays := [4]uint64{0, 30, 90, 300}
	for level := uint32(0); level <= MaxDiscountLevel; level++ {
		acct := &types.Account{DiscountLevel: level}
		if got := policy.DiscountPercent(acct); got != wantPercent[level] {
			t.Fatalf("level %d: discount = %d%%, want %d%%", level, got, wantPercent[level])
		}
		if got := HoldingDays(level); got != wantDays[level] {
			t.Fatalf("level %d: holding days = %d, want %d", level, got, wantDays[level])
		}
	}
}

func TestLevelPolicyIgnoresLockboxScore(t *testing.T) {
	policy := LevelPolicy{}
	acct := &types.Account{DiscountLevel: 1}
	policy.OnLockCreated(acct, 50_000)
	if acct.DiscountScore != 0 {
		t.Fatalf("level policy must not accrue score, got %d", acct.DiscountScore)
	}
	if got := policy.DiscountPercent(acct); got != 10 {
		t.Fatalf("level 1 discount = %d%%, want 10%%", got)
	}
}

func TestPolicyForEdition(t *testing.T) {
	if got := PolicyForEdition(EditionLockbox).Edition(); got != EditionLockbox {
		t.Fatalf("lockbox edition policy reports %q", got)
	}
	if got := PolicyForEdition(EditionLevels).Edition(); got != EditionLevels {
		t.Fatalf("levels edition policy reports %q", got)
	}
}
