package amm

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
)

// MinimumLiquidity is the share amount locked forever on the first mint so
// the share price can never be driven to zero.
var MinimumLiquidity = big.NewInt(1_000)

var errOverflow = errors.New("amm: reserve product overflows 256 bits")

// sqrtProduct returns floor(sqrt(a*b)).
func sqrtProduct(a, b *big.Int) (*big.Int, error) {
	ua, overflow := uint256.FromBig(a)
	if overflow {
		return nil, errOverflow
	}
	ub, overflow := uint256.FromBig(b)
	if overflow {
		return nil, errOverflow
	}
	product, overflow := new(uint256.Int).MulOverflow(ua, ub)
	if overflow {
		return nil, errOverflow
	}
	return new(uint256.Int).Sqrt(product).ToBig(), nil
}

// sharesToMint computes the pool shares owed for depositing amount0/amount1
// into a pair holding reserve0/reserve1 with supply shares outstanding. The
// second return value is the amount locked at the zero address on the first
// deposit.
func sharesToMint(amount0, amount1, reserve0, reserve1, supply *big.Int) (*big.Int, *big.Int, error) {
	if supply.Sign() == 0 {
		root, err := sqrtProduct(amount0, amount1)
		if err != nil {
			return nil, nil, err
		}
		if root.Cmp(MinimumLiquidity) <= 0 {
			return big.NewInt(0), big.NewInt(0), nil
		}
		return root.Sub(root, MinimumLiquidity), new(big.Int).Set(MinimumLiquidity), nil
	}
	if reserve0.Sign() == 0 || reserve1.Sign() == 0 {
		return big.NewInt(0), big.NewInt(0), nil
	}
	liquidity0 := new(big.Int).Mul(amount0, supply)
	liquidity0.Quo(liquidity0, reserve0)
	liquidity1 := new(big.Int).Mul(amount1, supply)
	liquidity1.Quo(liquidity1, reserve1)
	if liquidity0.Cmp(liquidity1) < 0 {
		return liquidity0, big.NewInt(0), nil
	}
	return liquidity1, big.NewInt(0), nil
}
