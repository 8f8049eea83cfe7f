package engine

import (
	"math/big"

	"liquidator/core/types"
)

// Exchange-rate conversion reproduces the escrow contract's fixed-point
// arithmetic: multiply before divide, in this exact operand order, with
// truncating division. Reordering the operations changes the truncation
// and breaks parity with on-chain results.

// ConvertToETH converts a currency amount into ETH-denominated terms,
// optionally applying the currency's exchange-rate risk buffer.
func ConvertToETH(amount *big.Int, c *types.Currency, applyBuffer bool) *big.Int {
	buffer := types.Wei
	if applyBuffer {
		buffer = c.Buffer
	}
	out := new(big.Int).Mul(c.ETHExchangeRate, amount)
	out.Mul(out, buffer)
	out.Quo(out, c.RateDecimals)
	out.Quo(out, c.Decimals)
	return out
}

// ConvertETHTo converts an ETH-denominated amount into a currency using the
// reciprocal rate.
func ConvertETHTo(amount *big.Int, c *types.Currency, applyBuffer bool) *big.Int {
	buffer := types.Wei
	if applyBuffer {
		buffer = c.Buffer
	}
	rate := new(big.Int).Mul(c.RateDecimals, c.RateDecimals)
	rate.Quo(rate, c.ETHExchangeRate)

	out := new(big.Int).Mul(rate, amount)
	out.Mul(out, c.Decimals)
	out.Quo(out, c.RateDecimals)
	out.Quo(out, buffer)
	return out
}

// Convert moves an amount between two currencies through ETH without any
// buffer.
func Convert(amount *big.Int, base, quote *types.Currency) *big.Int {
	return ConvertETHTo(ConvertToETH(amount, base, false), quote, false)
}
