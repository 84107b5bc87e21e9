package launch

import "math/big"

var (
	// Wad is the fixed-point scale of every fraction (1e18 == 100%).
	Wad = mustBigInt("1000000000000000000")
	two = big.NewInt(2)
)

func mustBigInt(value string) *big.Int {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		panic("invalid big integer constant")
	}
	return v
}

// mulDiv returns floor(a*b/c); a zero divisor yields zero.
func mulDiv(a, b, c *big.Int) *big.Int {
	if a == nil || b == nil || c == nil || c.Sign() == 0 {
		return big.NewInt(0)
	}
	product := new(big.Int).Mul(a, b)
	return product.Quo(product, c)
}

// pow10 returns 10^n.
func pow10(n uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// SplitIncentives divides the issuer's deposit into the sale amount and the
// incentive amount so that incentives equal sale × pct / 1e18 up to
// truncation.
func SplitIncentives(total, pct *big.Int) (sale *big.Int, incentives *big.Int) {
	if total == nil || total.Sign() <= 0 {
		return big.NewInt(0), big.NewInt(0)
	}
	if pct == nil || pct.Sign() <= 0 {
		return new(big.Int).Set(total), big.NewInt(0)
	}
	incentives = mulDiv(total, pct, new(big.Int).Add(Wad, pct))
	sale = new(big.Int).Sub(total, incentives)
	return sale, incentives
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
