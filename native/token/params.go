package token

// Edition selects which discount mechanic the engine runs.
type Edition string

const (
	// EditionLockbox grants fee discounts from a continuous score accrued by
	// time-locked lockboxes.
	EditionLockbox Edition = "lockbox"
	// EditionLevels grants fee discounts from discrete purchasable levels.
	EditionLevels Edition = "levels"
)

const (
	// DefaultCurveConstant is the bonding-curve steepness in token² units per
	// whole currency unit.
	DefaultCurveConstant uint64 = 8_000_000

	// DefaultBaseFeePercent is the lockbox edition fee rate on principal.
	DefaultBaseFeePercent uint32 = 1

	// DefaultBaseFeePPM is the levels edition fee rate in parts per million.
	// Both defaults work out to 1% but round through different denominators.
	DefaultBaseFeePPM uint64 = 10_000

	// MinLockDurationBlocks is the shortest accepted lockbox duration.
	MinLockDurationBlocks uint64 = 10

	// LevelCommitment is the BNJI locked per purchased discount level.
	LevelCommitment uint64 = 1000

	// MaxDiscountLevel caps the levels edition ladder.
	MaxDiscountLevel uint32 = 3

	// DefaultBlocksPerDay converts holding-time days to block heights.
	DefaultBlocksPerDay uint64 = 43_200
)

// CentsPerUnit converts whole currency units to minor units.
const CentsPerUnit = 100

// MinorUnitScale converts cents to the payment asset's 6-decimal raw units.
const MinorUnitScale = 10_000

// Params bundles the tunables the engine reads at call time.
type Params struct {
	CurveConstant  uint64
	BlocksPerDay   uint64
	MinLockBlocks  uint64
	LevelUnitsBNJI uint64
}

// DefaultParams returns the parameter set observed on the deployed contract.
func DefaultParams() Params {
	return Params{
		CurveConstant:  DefaultCurveConstant,
		BlocksPerDay:   DefaultBlocksPerDay,
		MinLockBlocks:  MinLockDurationBlocks,
		LevelUnitsBNJI: LevelCommitment,
	}
}

// Normalize fills zero fields with the deployed defaults.
func (p Params) Normalize() Params {
	out := p
	if out.CurveConstant == 0 {
		out.CurveConstant = DefaultCurveConstant
	}
	if out.BlocksPerDay == 0 {
		out.BlocksPerDay = DefaultBlocksPerDay
	}
	if out.MinLockBlocks == 0 {
		out.MinLockBlocks = MinLockDurationBlocks
	}
	if out.LevelUnitsBNJI == 0 {
		out.LevelUnitsBNJI = LevelCommitment
	}
	return out
}
