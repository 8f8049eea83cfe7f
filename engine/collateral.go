package engine

import (
	"math/big"

	"liquidator/core/types"
)

// FCashPurchase records one fCash receivable consumed while raising
// collateral. DiscountValue is the discounted price the notional was
// purchased at.
type FCashPurchase struct {
	Maturity      int64
	MarketKey     string
	Notional      *big.Int
	DiscountValue *big.Int
}

// CollateralPurchase is the outcome of trading local currency debt for a
// collateral currency.
type CollateralPurchase struct {
	LocalPurchased      *big.Int
	CollateralPurchased *big.Int
}

// TotalCashClaim sums the unhaircut cash claims of a currency's unmatured
// liquidity tokens.
func TotalCashClaim(symbol string, portfolio []*types.Asset, cfg *types.SystemConfiguration, blockTime int64) (*big.Int, error) {
	total := big.NewInt(0)
	for _, a := range portfolio {
		if a.Type != types.LiquidityToken || a.Symbol != symbol || a.HasMatured(blockTime) {
			continue
		}
		value, err := Value(a, cfg, false, blockTime)
		if err != nil {
			return nil, err
		}
		total.Add(total, value.Cash)
	}
	return total, nil
}

// TotalHaircutCashClaim sums, over the same tokens, the part of each cash
// claim that the liquidity haircut removes.
func TotalHaircutCashClaim(symbol string, portfolio []*types.Asset, cfg *types.SystemConfiguration, blockTime int64) (*big.Int, error) {
	total := big.NewInt(0)
	for _, a := range portfolio {
		if a.Type != types.LiquidityToken || a.Symbol != symbol || a.HasMatured(blockTime) {
			continue
		}
		raw, err := Value(a, cfg, false, blockTime)
		if err != nil {
			return nil, err
		}
		haircut, err := Value(a, cfg, true, blockTime)
		if err != nil {
			return nil, err
		}
		total.Add(total, raw.Cash)
		total.Sub(total, haircut.Cash)
	}
	return total, nil
}

// EffectiveExchangeRate is the realized local-per-collateral rate of a
// purchase, scaled by the collateral currency's decimals. Zero when nothing
// was purchased.
func EffectiveExchangeRate(localPurchased, collateralPurchased *big.Int, collateral *types.Currency) *big.Int {
	if collateral == nil || collateralPurchased.Sign() == 0 {
		return big.NewInt(0)
	}
	rate := new(big.Int).Mul(localPurchased, collateral.Decimals)
	return rate.Quo(rate, collateralPurchased)
}

// AdjustFCashValue removes the portion of netAvailable attributable to
// fCash, except where that fCash is already consumed covering a negative
// cash balance. fCash receivables cannot be seized through a collateral
// purchase, only through the fCash walk.
func AdjustFCashValue(netAvailable, cashBalance, haircutCashClaim *big.Int) *big.Int {
	fCashValue := new(big.Int).Sub(netAvailable, cashBalance)
	fCashValue.Sub(fCashValue, haircutCashClaim)

	if fCashValue.Sign() < 0 {
		return new(big.Int).Set(netAvailable)
	}
	if cashBalance.Sign() >= 0 {
		return new(big.Int).Sub(netAvailable, fCashValue)
	}

	netBalance := new(big.Int).Add(cashBalance, fCashValue)
	if netBalance.Sign() > 0 {
		return new(big.Int).Sub(netAvailable, netBalance)
	}
	return new(big.Int).Set(netAvailable)
}

// AdjustNetAvailable reduces a collateral currency's net-available to what a
// purchase can actually seize: fCash value is stripped, then the haircut
// share of liquidity-token cash claims is added back since withdrawing the
// tokens releases it.
func AdjustNetAvailable(symbol string, fc *FreeCollateral, portfolio []*types.Asset, cfg *types.SystemConfiguration, blockTime int64) (*big.Int, error) {
	factors, ok := fc.Factors[symbol]
	if !ok {
		return nil, ErrUnknownCurrency
	}

	cashBalance := big.NewInt(0)
	if b, exists := fc.Balances[symbol]; exists {
		cashBalance = b.CashBalance
	}

	adjusted := AdjustFCashValue(factors.NetAvailable, cashBalance, factors.CashClaim)

	haircutClaim, err := TotalHaircutCashClaim(symbol, portfolio, cfg, blockTime)
	if err != nil {
		return nil, err
	}
	return adjusted.Add(adjusted, haircutClaim), nil
}

// CalculateCollateralPurchase converts a local currency amount into the
// collateral to sell at the given discount, capped by the collateral
// currency's adjusted net-available. The operand order replicates the
// settlement contract so truncation matches on-chain results exactly.
func CalculateCollateralPurchase(
	local, collateral *types.Currency,
	fc *FreeCollateral,
	portfolio []*types.Asset,
	localRequired, discount *big.Int,
	cfg *types.SystemConfiguration,
	blockTime int64,
) (CollateralPurchase, error) {
	adjusted, err := AdjustNetAvailable(collateral.Symbol, fc, portfolio, cfg, blockTime)
	if err != nil {
		return CollateralPurchase{}, err
	}
	if adjusted.Sign() < 0 {
		return CollateralPurchase{LocalPurchased: big.NewInt(0), CollateralPurchased: big.NewInt(0)}, nil
	}

	exchangeRate := new(big.Int).Mul(local.ETHExchangeRate, collateral.RateDecimals)
	exchangeRate.Quo(exchangeRate, collateral.ETHExchangeRate)

	collateralToSell := new(big.Int).Mul(exchangeRate, localRequired)
	collateralToSell.Mul(collateralToSell, discount)
	collateralToSell.Quo(collateralToSell, local.RateDecimals)
	collateralToSell.Quo(collateralToSell, local.Decimals)
	collateralToSell.Mul(collateralToSell, collateral.Decimals)
	collateralToSell.Quo(collateralToSell, types.Wei)

	if adjusted.Cmp(collateralToSell) >= 0 {
		return CollateralPurchase{
			LocalPurchased:      new(big.Int).Set(localRequired),
			CollateralPurchased: collateralToSell,
		}, nil
	}

	localPurchased := new(big.Int).Mul(adjusted, local.RateDecimals)
	localPurchased.Mul(localPurchased, types.Wei)
	localPurchased.Mul(localPurchased, local.Decimals)
	localPurchased.Quo(localPurchased, exchangeRate)
	localPurchased.Quo(localPurchased, discount)
	localPurchased.Quo(localPurchased, collateral.Decimals)

	return CollateralPurchase{
		LocalPurchased:      localPurchased,
		CollateralPurchased: adjusted,
	}, nil
}

// FCashEligible reports whether an account can be liquidated purely by
// purchasing fCash receivables: no positive cash balance anywhere, a
// portfolio of nothing but cash receivers, and positive net-available in
// the collateral currency.
func FCashEligible(fc *FreeCollateral, portfolio []*types.Asset, collateral *types.Currency) bool {
	for _, b := range fc.Balances {
		if b.CashBalance.Sign() > 0 {
			return false
		}
	}
	for _, a := range portfolio {
		if a.Type != types.CashReceiver {
			return false
		}
	}
	factors, ok := fc.Factors[collateral.Symbol]
	return ok && factors.NetAvailable.Sign() > 0
}

// FCashWalk consumes the account's unmatured cash receivers in the
// collateral currency, in stored portfolio order, until the required local
// amount is raised. Each receiver is priced at its haircut value; the last
// one consumed may be partial, with the notional scaled pro rata. Same
// currency debt settles against face value with no discount.
func FCashWalk(
	portfolio []*types.Asset,
	localRequired *big.Int,
	local, collateral *types.Currency,
	discount *big.Int,
	cfg *types.SystemConfiguration,
	blockTime int64,
) (*big.Int, []*FCashPurchase) {
	required := new(big.Int).Set(localRequired)
	if local.ID != collateral.ID {
		required = Convert(localRequired, local, collateral)
		required.Mul(required, discount)
		required.Quo(required, types.Wei)
	}

	remaining := new(big.Int).Set(required)
	var purchases []*FCashPurchase

	for _, a := range portfolio {
		if remaining.Sign() == 0 {
			break
		}
		if a.Type != types.CashReceiver || a.CurrencyID != collateral.ID || a.HasMatured(blockTime) {
			continue
		}

		value := HaircutReceiverValue(a.Notional, a.Maturity, blockTime, cfg)
		if value.Sign() <= 0 {
			continue
		}

		if value.Cmp(remaining) <= 0 {
			purchases = append(purchases, &FCashPurchase{
				Maturity:      a.Maturity,
				MarketKey:     a.MarketKey,
				Notional:      new(big.Int).Set(a.Notional),
				DiscountValue: value,
			})
			remaining.Sub(remaining, value)
			continue
		}

		notional := new(big.Int).Mul(a.Notional, remaining)
		notional.Quo(notional, value)
		purchases = append(purchases, &FCashPurchase{
			Maturity:      a.Maturity,
			MarketKey:     a.MarketKey,
			Notional:      notional,
			DiscountValue: new(big.Int).Set(remaining),
		})
		remaining.SetInt64(0)
	}

	if remaining.Sign() == 0 {
		return new(big.Int).Set(localRequired), purchases
	}

	satisfied := new(big.Int).Sub(required, remaining)
	localPurchased := new(big.Int).Mul(localRequired, satisfied)
	localPurchased.Quo(localPurchased, required)
	return localPurchased, purchases
}
