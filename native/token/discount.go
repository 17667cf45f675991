package token

import "benjamins/core/types"

// DiscountPolicy maps an account's accumulated lock state to its current fee
// discount. The two deployed editions differ only in this mapping, so the
// engine holds one policy selected at construction instead of branching.
type DiscountPolicy interface {
	Edition() Edition
	// DiscountPercent returns the whole-percent fee discount for the account,
	// looked up live at call time.
	DiscountPercent(acct *types.Account) uint32
	// OnLockCreated and OnLockDestroyed feed lockbox score changes into the
	// policy. The levels edition ignores them; its commitment is a single
	// cumulative lock, not discrete boxes.
	OnLockCreated(acct *types.Account, score uint64)
	OnLockDestroyed(acct *types.Account, score uint64)
}

// scoreTier is one row of the lockbox edition's threshold table.
type scoreTier struct {
	MinScore uint64
	Percent  uint32
}

// lockboxTiers maps accumulated discount score to fee discount. The discount
// is non-strictly increasing in score.
var lockboxTiers = []scoreTier{
	{MinScore: 0, Percent: 0},
	{MinScore: 1_000, Percent: 5},
	{MinScore: 10_000, Percent: 10},
	{MinScore: 100_000, Percent: 20},
	{MinScore: 1_000_000, Percent: 40},
	{MinScore: 10_000_000, Percent: 75},
}

// LockboxPolicy derives discounts from the continuous score accrued by live
// lockboxes (amount × duration each).
type LockboxPolicy struct{}

func (LockboxPolicy) Edition() Edition { return EditionLockbox }

func (LockboxPolicy) DiscountPercent(acct *types.Account) uint32 {
	if acct == nil {
		return 0
	}
	percent := uint32(0)
	for _, tier := range lockboxTiers {
		if acct.DiscountScore >= tier.MinScore {
			percent = tier.Percent
		}
	}
	return percent
}

func (LockboxPolicy) OnLockCreated(acct *types.Account, score uint64) {
	acct.DiscountScore += score
}

func (LockboxPolicy) OnLockDestroyed(acct *types.Account, score uint64) {
	if score > acct.DiscountScore {
		acct.DiscountScore = 0
		return
	}
	acct.DiscountScore -= score
}

// Levels edition tables, indexed by discount level.
var (
	levelDiscounts   = [4]uint32{0, 10, 25, 50}
	levelHoldingDays = [4]uint64{0, 30, 90, 300}
)

// LevelPolicy derives discounts from discrete purchased levels. Discounts
// apply immediately on purchase; only the committed balance waits out the
// holding time.
type LevelPolicy struct{}

func (LevelPolicy) Edition() Edition { return EditionLevels }

func (LevelPolicy) DiscountPercent(acct *types.Account) uint32 {
	if acct == nil {
		return 0
	}
	level := acct.DiscountLevel
	if level > MaxDiscountLevel {
		level = MaxDiscountLevel
	}
	return levelDiscounts[level]
}

func (LevelPolicy) OnLockCreated(*types.Account, uint64)   {}
func (LevelPolicy) OnLockDestroyed(*types.Account, uint64) {}

// HoldingDays returns the committed-balance holding time for a level.
func HoldingDays(level uint32) uint64 {
	if level > MaxDiscountLevel {
		level = MaxDiscountLevel
	}
	return levelHoldingDays[level]
}

// PolicyForEdition selects the discount policy variant at construction time.
func PolicyForEdition(edition Edition) DiscountPolicy {
	if edition == EditionLevels {
		return LevelPolicy{}
	}
	return LockboxPolicy{}
}

// ScheduleForEdition selects the matching fee regime.
func ScheduleForEdition(edition Edition) FeeSchedule {
	if edition == EditionLevels {
		return LinearFeeSchedule{RatePPM: DefaultBaseFeePPM}
	}
	return PercentFeeSchedule{Percent: DefaultBaseFeePercent}
}
