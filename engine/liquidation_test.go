package engine

import (
	"math/big"
	"testing"

	"liquidator/core/types"
)

func TestCalculateTokenLiquidation(t *testing.T) {
	snap := testSnapshot(t)

	t.Run("sufficient tokens", func(t *testing.T) {
		tokens := CalculateTokenLiquidation(
			ether(t, "1000"), ether(t, "10000"), ether(t, "2000"), snap.Config,
		)
		assertEq(t, "withdrawn", tokens.CashClaimWithdrawn, ether(t, "5500"))
		assertEq(t, "fee", tokens.TokenLiquidateFee, ether(t, "100"))
		assertEq(t, "netAvailable", tokens.LocalNetAvailable, ether(t, "3000"))
		assertEq(t, "required", tokens.LocalRequired, ether(t, "0"))
	})

	t.Run("insufficient tokens", func(t *testing.T) {
		tokens := CalculateTokenLiquidation(
			ether(t, "1000"), ether(t, "3300"), ether(t, "2000"), snap.Config,
		)
		assertEq(t, "withdrawn", tokens.CashClaimWithdrawn, ether(t, "3300"))
		assertEq(t, "fee", tokens.TokenLiquidateFee, ether(t, "60"))
		assertEq(t, "netAvailable", tokens.LocalNetAvailable, ether(t, "2600"))
		assertEq(t, "required", tokens.LocalRequired, ether(t, "400"))
	})
}

func TestGetLiquidatePairTokensOnly(t *testing.T) {
	snap := testSnapshot(t)
	dai := snap.CurrencyBySymbol("DAI")

	t.Run("sufficient tokens", func(t *testing.T) {
		acct := mockAccount(t, snap, nil, []*types.Asset{
			mockAsset(t, snap, types.LiquidityToken, defaultMaturity, "DAI", ether(t, "200")),
		})
		fc := freeCollateral(t, snap, acct)

		pair, err := GetLiquidatePair(snap, acct, fc, dai, nil, ether(t, "0.20"))
		if err != nil {
			t.Fatalf("GetLiquidatePair: %v", err)
		}
		if pair.CollateralCurrency != nil {
			t.Fatal("expected no collateral currency")
		}
		assertEq(t, "localRequired", pair.LocalRequired, ether(t, "0"))
		assertEq(t, "collateralPurchased", pair.CollateralPurchased, ether(t, "0"))
		assertEq(t, "withdrawn", pair.LocalTokenCashWithdrawn, ether(t, "111.1"))
		assertEq(t, "fee", pair.TokenLiquidateFee, ether(t, "2.02"))
		assertEq(t, "recovered", pair.ETHShortfallRecovered, ether(t, "0.2"))
		assertEq(t, "rate", pair.EffectiveExchangeRate, ether(t, "0"))
	})

	t.Run("insufficient tokens", func(t *testing.T) {
		acct := mockAccount(t, snap, nil, []*types.Asset{
			mockAsset(t, snap, types.LiquidityToken, defaultMaturity, "DAI", ether(t, "110")),
		})
		fc := freeCollateral(t, snap, acct)

		pair, err := GetLiquidatePair(snap, acct, fc, dai, nil, ether(t, "0.50"))
		if err != nil {
			t.Fatalf("GetLiquidatePair: %v", err)
		}
		assertEq(t, "withdrawn", pair.LocalTokenCashWithdrawn, ether(t, "110"))
		assertEq(t, "fee", pair.TokenLiquidateFee, ether(t, "2"))
		assertEq(t, "recovered", pair.ETHShortfallRecovered, bigFromString(t, "198019801980198019"))
		assertEq(t, "rate", pair.EffectiveExchangeRate, ether(t, "0"))
	})
}

func TestGetLiquidatePairWithCollateral(t *testing.T) {
	snap := testSnapshot(t)
	dai := snap.CurrencyBySymbol("DAI")
	weth := snap.CurrencyBySymbol("WETH")

	t.Run("sufficient tokens leave nothing to purchase", func(t *testing.T) {
		acct := mockAccount(t, snap,
			[]*types.Balance{
				mockBalance(t, snap, "DAI", ether(t, "-0.20")),
				mockBalance(t, snap, "WETH", bigFromString(t, "1")),
			},
			[]*types.Asset{
				mockAsset(t, snap, types.LiquidityToken, defaultMaturity, "DAI", ether(t, "200")),
			},
		)
		fc := freeCollateral(t, snap, acct)

		pair, err := GetLiquidatePair(snap, acct, fc, dai, weth, ether(t, "0.20"))
		if err != nil {
			t.Fatalf("GetLiquidatePair: %v", err)
		}
		assertEq(t, "localRequired", pair.LocalRequired, ether(t, "0"))
		assertEq(t, "collateralPurchased", pair.CollateralPurchased, ether(t, "0"))
		assertEq(t, "withdrawn", pair.LocalTokenCashWithdrawn, ether(t, "111.1"))
		assertEq(t, "fee", pair.TokenLiquidateFee, ether(t, "2.02"))
		assertEq(t, "recovered", pair.ETHShortfallRecovered, ether(t, "0.2"))
	})

	t.Run("insufficient tokens and sufficient collateral", func(t *testing.T) {
		acct := mockAccount(t, snap,
			[]*types.Balance{
				mockBalance(t, snap, "DAI", ether(t, "-200")),
				mockBalance(t, snap, "WETH", ether(t, "0.5")),
			},
			[]*types.Asset{
				mockAsset(t, snap, types.LiquidityToken, defaultMaturity, "DAI", ether(t, "110")),
				mockAsset(t, snap, types.CashPayer, defaultMaturity, "DAI", ether(t, "110")),
			},
		)
		fc := freeCollateral(t, snap, acct)
		shortfall := fc.Shortfall()

		pair, err := GetLiquidatePair(snap, acct, fc, dai, weth, shortfall)
		if err != nil {
			t.Fatalf("GetLiquidatePair: %v", err)
		}
		assertEq(t, "localRequired", pair.LocalRequired, bigFromString(t, "47169811320754716981"))
		assertEq(t, "collateralPurchased", pair.CollateralPurchased, ether(t, "0.5"))
		assertEq(t, "withdrawn", pair.LocalTokenCashWithdrawn, ether(t, "110"))
		assertEq(t, "fee", pair.TokenLiquidateFee, ether(t, "2"))
		assertEq(t, "rate", pair.EffectiveExchangeRate, bigFromString(t, "94339622641509433962"))
		if pair.ETHShortfallRecovered.Cmp(shortfall) > 0 {
			t.Fatalf("recovered %s exceeds shortfall %s", pair.ETHShortfallRecovered, shortfall)
		}
	})

	t.Run("insufficient tokens and insufficient collateral", func(t *testing.T) {
		acct := mockAccount(t, snap,
			[]*types.Balance{
				mockBalance(t, snap, "DAI", ether(t, "-500")),
				mockBalance(t, snap, "WETH", ether(t, "1.06")),
			},
			[]*types.Asset{
				mockAsset(t, snap, types.LiquidityToken, defaultMaturity, "DAI", ether(t, "110")),
			},
		)
		fc := freeCollateral(t, snap, acct)

		pair, err := GetLiquidatePair(snap, acct, fc, dai, weth, ether(t, "5"))
		if err != nil {
			t.Fatalf("GetLiquidatePair: %v", err)
		}
		assertEq(t, "localRequired", pair.LocalRequired, ether(t, "100"))
		assertEq(t, "collateralPurchased", pair.CollateralPurchased, ether(t, "1.06"))
		assertEq(t, "withdrawn", pair.LocalTokenCashWithdrawn, ether(t, "110"))
		assertEq(t, "fee", pair.TokenLiquidateFee, ether(t, "2"))
		assertEq(t, "rate", pair.EffectiveExchangeRate, bigFromString(t, "94339622641509433962"))
		assertEq(t, "recovered", pair.ETHShortfallRecovered, bigFromString(t, "1188118811881188118"))
	})

	t.Run("no tokens and sufficient collateral", func(t *testing.T) {
		acct := mockAccount(t, snap,
			[]*types.Balance{
				mockBalance(t, snap, "DAI", ether(t, "-100")),
				mockBalance(t, snap, "WETH", ether(t, "1.06")),
			},
			nil,
		)
		fc := freeCollateral(t, snap, acct)
		shortfall := fc.Shortfall()

		pair, err := GetLiquidatePair(snap, acct, fc, dai, weth, shortfall)
		if err != nil {
			t.Fatalf("GetLiquidatePair: %v", err)
		}
		assertEq(t, "localRequired", pair.LocalRequired, ether(t, "100"))
		assertEq(t, "collateralPurchased", pair.CollateralPurchased, ether(t, "1.06"))
		assertEq(t, "withdrawn", pair.LocalTokenCashWithdrawn, ether(t, "0"))
		assertEq(t, "fee", pair.TokenLiquidateFee, ether(t, "0"))
		assertEq(t, "rate", pair.EffectiveExchangeRate, bigFromString(t, "94339622641509433962"))
		if pair.ETHShortfallRecovered.Cmp(shortfall) < 0 {
			t.Fatalf("recovered %s below shortfall %s", pair.ETHShortfallRecovered, shortfall)
		}
	})

	t.Run("no tokens and insufficient collateral", func(t *testing.T) {
		acct := mockAccount(t, snap,
			[]*types.Balance{
				mockBalance(t, snap, "WETH", ether(t, "1.06")),
				mockBalance(t, snap, "DAI", ether(t, "-200")),
			},
			nil,
		)
		fc := freeCollateral(t, snap, acct)

		pair, err := GetLiquidatePair(snap, acct, fc, dai, weth, ether(t, "2"))
		if err != nil {
			t.Fatalf("GetLiquidatePair: %v", err)
		}
		assertEq(t, "localRequired", pair.LocalRequired, ether(t, "100"))
		assertEq(t, "collateralPurchased", pair.CollateralPurchased, ether(t, "1.06"))
		assertEq(t, "rate", pair.EffectiveExchangeRate, bigFromString(t, "94339622641509433962"))
		assertEq(t, "recovered", pair.ETHShortfallRecovered, bigFromString(t, "990099009900990099"))
	})

	t.Run("no tokens and sufficient collateral in tokens", func(t *testing.T) {
		acct := mockAccount(t, snap,
			[]*types.Balance{
				mockBalance(t, snap, "DAI", ether(t, "-100")),
			},
			[]*types.Asset{
				mockAsset(t, snap, types.LiquidityToken, defaultMaturity, "WETH", ether(t, "1")),
			},
		)
		fc := freeCollateral(t, snap, acct)
		shortfall := fc.Shortfall()
		assertEq(t, "shortfall", shortfall, ether(t, "0.2"))

		pair, err := GetLiquidatePair(snap, acct, fc, dai, weth, shortfall)
		if err != nil {
			t.Fatalf("GetLiquidatePair: %v", err)
		}
		assertEq(t, "localRequired", pair.LocalRequired, bigFromString(t, "59411764705882352941"))
		assertEq(t, "collateralPurchased", pair.CollateralPurchased, bigFromString(t, "629764705882352941"))
		assertEq(t, "withdrawn", pair.LocalTokenCashWithdrawn, ether(t, "0"))
		assertEq(t, "fee", pair.TokenLiquidateFee, ether(t, "0"))
		assertEq(t, "rate", pair.EffectiveExchangeRate, bigFromString(t, "94339622641509433988"))
		if pair.ETHShortfallRecovered.Cmp(shortfall) < 0 {
			t.Fatalf("recovered %s below shortfall %s", pair.ETHShortfallRecovered, shortfall)
		}
	})

	t.Run("no tokens and insufficient collateral in tokens", func(t *testing.T) {
		acct := mockAccount(t, snap,
			[]*types.Balance{
				mockBalance(t, snap, "DAI", ether(t, "-200")),
			},
			[]*types.Asset{
				mockAsset(t, snap, types.LiquidityToken, defaultMaturity, "WETH", ether(t, "1.1")),
			},
		)
		fc := freeCollateral(t, snap, acct)

		pair, err := GetLiquidatePair(snap, acct, fc, dai, weth, ether(t, "2"))
		if err != nil {
			t.Fatalf("GetLiquidatePair: %v", err)
		}
		assertEq(t, "localRequired", pair.LocalRequired, bigFromString(t, "103773584905660377358"))
		assertEq(t, "collateralPurchased", pair.CollateralPurchased, ether(t, "1.1"))
	})
}

func TestGetLiquidatePairFCash(t *testing.T) {
	snap := testSnapshot(t)
	dai := snap.CurrencyBySymbol("DAI")
	usdc := snap.CurrencyBySymbol("USDC")

	acct := mockAccount(t, snap,
		[]*types.Balance{
			mockBalance(t, snap, "DAI", ether(t, "-200")),
		},
		[]*types.Asset{
			mockAsset(t, snap, types.CashReceiver, defaultMaturity, "USDC", amount(t, "50", 6)),
			mockAsset(t, snap, types.CashReceiver, defaultMaturity+100000, "USDC", amount(t, "400", 6)),
		},
	)
	fc := freeCollateral(t, snap, acct)

	pair, err := GetLiquidatePair(snap, acct, fc, dai, usdc, ether(t, "1"))
	if err != nil {
		t.Fatalf("GetLiquidatePair: %v", err)
	}
	assertEq(t, "localRequired", pair.LocalRequired, ether(t, "101"))
	assertEq(t, "collateralPurchased", pair.CollateralPurchased, ether(t, "0"))
	assertEq(t, "withdrawn", pair.LocalTokenCashWithdrawn, ether(t, "0"))
	assertEq(t, "fee", pair.TokenLiquidateFee, ether(t, "0"))
	assertEq(t, "recovered", pair.ETHShortfallRecovered, ether(t, "1"))

	if len(pair.FCashPurchased) != 2 {
		t.Fatalf("fCash purchases = %d, want 2", len(pair.FCashPurchased))
	}
	first, second := pair.FCashPurchased[0], pair.FCashPurchased[1]
	if first.MarketKey != acct.Portfolio[0].MarketKey || second.MarketKey != acct.Portfolio[1].MarketKey {
		t.Fatal("purchases must follow portfolio order")
	}
	if first.Maturity != acct.Portfolio[0].Maturity || second.Maturity != acct.Portfolio[1].Maturity {
		t.Fatal("purchase maturities must match the portfolio")
	}
	assertEq(t, "first notional", first.Notional, acct.Portfolio[0].Notional)

	total := new(big.Int).Add(first.DiscountValue, second.DiscountValue)
	assertEq(t, "total discount value", total, amount(t, "107.06", 6))
}

func TestGetLiquidatePairs(t *testing.T) {
	snap := testSnapshot(t)

	acct := mockAccount(t, snap,
		[]*types.Balance{
			mockBalance(t, snap, "DAI", ether(t, "-500")),
			mockBalance(t, snap, "WETH", ether(t, "1.06")),
		},
		[]*types.Asset{
			mockAsset(t, snap, types.LiquidityToken, defaultMaturity, "DAI", ether(t, "110")),
		},
	)
	fc := freeCollateral(t, snap, acct)

	pairs, err := GetLiquidatePairs(snap, acct, fc, fc.Shortfall())
	if err != nil {
		t.Fatalf("GetLiquidatePairs: %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("pairs = %d, want 2", len(pairs))
	}

	// Withdrawable DAI tokens produce a local-only pair first.
	if pairs[0].CollateralCurrency != nil {
		t.Fatal("first pair must have no collateral currency")
	}
	if pairs[0].LocalCurrency.Symbol != "DAI" {
		t.Fatalf("first pair local = %s, want DAI", pairs[0].LocalCurrency.Symbol)
	}
	assertEq(t, "withdrawn", pairs[0].LocalTokenCashWithdrawn, ether(t, "110"))
	assertEq(t, "fee", pairs[0].TokenLiquidateFee, ether(t, "2"))

	if pairs[1].CollateralCurrency == nil || pairs[1].CollateralCurrency.Symbol != "WETH" {
		t.Fatal("second pair must purchase WETH collateral")
	}
	assertEq(t, "localRequired", pairs[1].LocalRequired, ether(t, "100"))
	assertEq(t, "collateralPurchased", pairs[1].CollateralPurchased, ether(t, "1.06"))
}
