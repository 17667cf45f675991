package token

import "math/big"

// Curve prices mints and burns with the quadratic area-under-curve formula
// principal = (after² − before²) / constant, quoted in whole currency units
// and floored to minor units (cents). Mint and burn use the identical formula
// in opposite directions, so the curve is symmetric and path independent.
type Curve struct {
	constant *big.Int
}

// NewCurve builds a pricer for the given steepness constant (token² units per
// whole currency unit). A zero constant falls back to the deployed default.
func NewCurve(constant uint64) *Curve {
	if constant == 0 {
		constant = DefaultCurveConstant
	}
	return &Curve{constant: new(big.Int).SetUint64(constant)}
}

func squaredDiff(hi, lo uint64) *big.Int {
	a := new(big.Int).SetUint64(hi)
	a.Mul(a, a)
	b := new(big.Int).SetUint64(lo)
	b.Mul(b, b)
	return a.Sub(a, b)
}

func (c *Curve) principalCents(hi, lo uint64) *big.Int {
	diff := squaredDiff(hi, lo)
	diff.Mul(diff, big.NewInt(CentsPerUnit))
	return diff.Quo(diff, c.constant)
}

// MintPrincipal returns the floored cent cost of minting amount tokens on top
// of supplyBefore.
func (c *Curve) MintPrincipal(supplyBefore, amount uint64) *big.Int {
	if amount == 0 {
		return big.NewInt(0)
	}
	return c.principalCents(supplyBefore+amount, supplyBefore)
}

// BurnPrincipal returns the floored cent return of burning amount tokens from
// supplyBefore. Callers must reject amount > supplyBefore beforehand; the
// pricer never clamps.
func (c *Curve) BurnPrincipal(supplyBefore, amount uint64) *big.Int {
	if amount == 0 {
		return big.NewInt(0)
	}
	return c.principalCents(supplyBefore, supplyBefore-amount)
}
