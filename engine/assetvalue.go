package engine

import (
	"fmt"
	"math/big"

	"liquidator/core/types"
)

var secondsInYear = big.NewInt(types.SecondsInYear)

// AssetValue is the derived worth of a single position at a reference time.
// It is recomputed on every call and never cached: caching it against a
// clock is exactly the stale-time bug this engine exists to avoid.
type AssetValue struct {
	Cash   *big.Int
	FCash  *big.Int
	Tokens *big.Int
}

// HaircutReceiverValue applies the linear time-decay haircut to a positive
// fCash amount. The decay grows with time to maturity and is capped by the
// max-haircut fraction; a matured amount is worth its face value.
func HaircutReceiverValue(notional *big.Int, maturity, blockTime int64, cfg *types.SystemConfiguration) *big.Int {
	if maturity <= blockTime {
		return new(big.Int).Set(notional)
	}

	decay := new(big.Int).Mul(notional, cfg.FCashHaircut)
	decay.Mul(decay, big.NewInt(maturity-blockTime))
	decay.Quo(decay, secondsInYear)
	decay.Quo(decay, types.Wei)
	postHaircut := new(big.Int).Sub(notional, decay)

	maxPostHaircut := new(big.Int).Mul(notional, cfg.FCashMaxHaircut)
	maxPostHaircut.Quo(maxPostHaircut, types.Wei)

	if postHaircut.Cmp(maxPostHaircut) < 0 {
		return postHaircut
	}
	return maxPostHaircut
}

// liquidityTokenClaims computes the pro-rata cash and fCash claims a token
// balance holds against its market.
func liquidityTokenClaims(a *types.Asset, cfg *types.SystemConfiguration, hasMatured, shouldHaircut bool) (cash, fCash *big.Int, err error) {
	if a.Market == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrMissingMarketData, a.MarketKey)
	}
	if a.Market.TotalLiquidity == nil || a.Market.TotalLiquidity.Sign() == 0 {
		return nil, nil, fmt.Errorf("%w: %s has zero liquidity", ErrMissingMarketData, a.MarketKey)
	}

	cash = new(big.Int).Mul(a.Market.TotalCurrentCash, a.Notional)
	cash.Quo(cash, a.Market.TotalLiquidity)

	fCash = new(big.Int).Mul(a.Market.TotalfCash, a.Notional)
	fCash.Quo(fCash, a.Market.TotalLiquidity)

	if hasMatured {
		cash.Add(cash, fCash)
		return cash, big.NewInt(0), nil
	}
	if !shouldHaircut {
		return cash, fCash, nil
	}

	cash.Mul(cash, cfg.LiquidityHaircut)
	cash.Quo(cash, types.Wei)
	fCash.Mul(fCash, cfg.LiquidityHaircut)
	fCash.Quo(fCash, types.Wei)
	return cash, fCash, nil
}

// Value computes the cash/fCash/token worth of one asset at blockTime.
// With haircut set, risk discounts are applied (receiver time decay,
// liquidity-token haircut).
func Value(a *types.Asset, cfg *types.SystemConfiguration, haircut bool, blockTime int64) (AssetValue, error) {
	hasMatured := a.HasMatured(blockTime)

	switch a.Type {
	case types.CashPayer:
		value := new(big.Int).Neg(a.Notional)
		if hasMatured {
			return AssetValue{Cash: value, FCash: big.NewInt(0), Tokens: big.NewInt(0)}, nil
		}
		return AssetValue{Cash: big.NewInt(0), FCash: value, Tokens: big.NewInt(0)}, nil

	case types.CashReceiver:
		value := new(big.Int).Set(a.Notional)
		if haircut {
			value = HaircutReceiverValue(a.Notional, a.Maturity, blockTime, cfg)
		}
		if hasMatured {
			return AssetValue{Cash: value, FCash: big.NewInt(0), Tokens: big.NewInt(0)}, nil
		}
		return AssetValue{Cash: big.NewInt(0), FCash: value, Tokens: big.NewInt(0)}, nil

	case types.LiquidityToken:
		cash, fCash, err := liquidityTokenClaims(a, cfg, hasMatured, haircut)
		if err != nil {
			return AssetValue{}, err
		}
		return AssetValue{Cash: cash, FCash: fCash, Tokens: new(big.Int).Set(a.Notional)}, nil
	}

	return AssetValue{}, fmt.Errorf("%w: %d", ErrUnknownAssetType, a.Type)
}
