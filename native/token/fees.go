package token

import "math/big"

// FeeSchedule derives the undiscounted protocol fee from a principal amount
// in cents. Both implementations floor at their own denominator; the two
// deployed editions round through different ones, and the reconciliation
// bookkeeping is sensitive to which.
type FeeSchedule interface {
	BaseFee(principalCents *big.Int) *big.Int
}

// PercentFeeSchedule applies a whole-percent rate (lockbox edition).
type PercentFeeSchedule struct {
	Percent uint32
}

func (s PercentFeeSchedule) BaseFee(principalCents *big.Int) *big.Int {
	fee := new(big.Int).Mul(principalCents, new(big.Int).SetUint64(uint64(s.Percent)))
	return fee.Quo(fee, big.NewInt(100))
}

// LinearFeeSchedule applies a parts-per-million rate (levels edition).
type LinearFeeSchedule struct {
	RatePPM uint64
}

func (s LinearFeeSchedule) BaseFee(principalCents *big.Int) *big.Int {
	fee := new(big.Int).Mul(principalCents, new(big.Int).SetUint64(s.RatePPM))
	return fee.Quo(fee, big.NewInt(1_000_000))
}

// DiscountedFee reduces a base fee by the account's discount percentage with
// an independent floor. The two-stage flooring (principal→base→discounted) is
// load bearing: collapsing it into one expression shifts cent totals.
func DiscountedFee(baseFee *big.Int, discountPercent uint32) *big.Int {
	if discountPercent == 0 {
		return new(big.Int).Set(baseFee)
	}
	if discountPercent >= 100 {
		return big.NewInt(0)
	}
	fee := new(big.Int).Mul(baseFee, new(big.Int).SetUint64(uint64(100-discountPercent)))
	return fee.Quo(fee, big.NewInt(100))
}
