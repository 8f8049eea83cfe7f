package engine

import (
	"math/big"

	"liquidator/core/types"
)

// liquidationBuffer pads the local amount raised over the ETH shortfall by
// one percent so rate drift between computation and submission does not
// leave the account under water.
var liquidationBuffer = big.NewInt(1_010_000_000_000_000_000)

// LiquidatePair describes one candidate liquidation action against an
// account: which currency pair, how much local is required, and what the
// liquidator receives in exchange.
type LiquidatePair struct {
	LocalCurrency           *types.Currency
	CollateralCurrency      *types.Currency
	LocalRequired           *big.Int
	CollateralPurchased     *big.Int
	LocalTokenCashWithdrawn *big.Int
	TokenLiquidateFee       *big.Int
	ETHShortfallRecovered   *big.Int
	EffectiveExchangeRate   *big.Int
	FCashPurchased          []*FCashPurchase
}

// TokenLiquidation is the outcome of raising local currency by withdrawing
// the account's own liquidity tokens before any collateral changes hands.
type TokenLiquidation struct {
	CashClaimWithdrawn *big.Int
	TokenLiquidateFee  *big.Int
	LocalNetAvailable  *big.Int
	LocalRequired      *big.Int
}

// CalculateTokenLiquidation withdraws liquidity-token cash claims to cover
// localRequired. The repo incentive is paid out of the haircut share the
// withdrawal releases, so the account's net-available improves by the
// released haircut minus the fee.
func CalculateTokenLiquidation(localRequired, totalCashClaim, localNetAvailable *big.Int, cfg *types.SystemConfiguration) TokenLiquidation {
	haircutComplement := new(big.Int).Sub(types.Wei, cfg.LiquidityHaircut)

	claimToTrade := new(big.Int).Mul(localRequired, cfg.LiquidityRepoIncentive)
	claimToTrade.Quo(claimToTrade, haircutComplement)

	var withdrawn, raised *big.Int
	if claimToTrade.Cmp(totalCashClaim) < 0 {
		withdrawn = claimToTrade
		raised = new(big.Int).Set(localRequired)
	} else {
		withdrawn = new(big.Int).Set(totalCashClaim)
		raised = new(big.Int).Mul(totalCashClaim, haircutComplement)
		raised.Quo(raised, cfg.LiquidityRepoIncentive)
	}

	haircutClaim := new(big.Int).Mul(withdrawn, haircutComplement)
	haircutClaim.Quo(haircutClaim, types.Wei)
	fee := new(big.Int).Sub(haircutClaim, raised)

	newNetAvailable := new(big.Int).Add(localNetAvailable, haircutClaim)
	newNetAvailable.Sub(newNetAvailable, fee)

	newLocalRequired := new(big.Int).Add(localRequired, fee)
	newLocalRequired.Sub(newLocalRequired, haircutClaim)

	return TokenLiquidation{
		CashClaimWithdrawn: withdrawn,
		TokenLiquidateFee:  fee,
		LocalNetAvailable:  newNetAvailable,
		LocalRequired:      newLocalRequired,
	}
}

// localCurrencyToTrade caps the local amount raised through collateral at
// the account's remaining local debt.
func localCurrencyToTrade(localRequired, discount, buffer, maxLocalDebt *big.Int) *big.Int {
	localToTrade := new(big.Int).Mul(localRequired, types.Wei)
	localToTrade.Quo(localToTrade, new(big.Int).Sub(buffer, discount))
	if maxLocalDebt.Cmp(localToTrade) < 0 {
		return new(big.Int).Set(maxLocalDebt)
	}
	return localToTrade
}

// shortfallToLocal converts the ETH shortfall into the local currency and
// applies the liquidation buffer.
func shortfallToLocal(ethShortfall *big.Int, local *types.Currency) *big.Int {
	localRequired := ConvertETHTo(ethShortfall, local, false)
	localRequired.Mul(localRequired, liquidationBuffer)
	return localRequired.Quo(localRequired, types.Wei)
}

func sumDiscountValue(purchases []*FCashPurchase) *big.Int {
	total := big.NewInt(0)
	for _, p := range purchases {
		total.Add(total, p.DiscountValue)
	}
	return total
}

// recoveredShortfall scales the ETH shortfall by the fraction of the local
// requirement actually satisfied.
func recoveredShortfall(satisfied, localRequired, ethShortfall *big.Int) *big.Int {
	if satisfied.Cmp(localRequired) == 0 {
		return new(big.Int).Set(ethShortfall)
	}
	recovered := new(big.Int).Mul(satisfied, ethShortfall)
	return recovered.Quo(recovered, localRequired)
}

// GetLiquidatePair computes the outcome of liquidating one local/collateral
// pair for an undercollateralized account. A nil collateral currency
// evaluates the token-withdrawal leg alone.
func GetLiquidatePair(
	snap *types.Snapshot,
	acct *types.Account,
	fc *FreeCollateral,
	local, collateral *types.Currency,
	ethShortfall *big.Int,
) (*LiquidatePair, error) {
	localRequired := shortfallToLocal(ethShortfall, local)
	localFactors, ok := fc.Factors[local.Symbol]
	if !ok {
		return nil, ErrUnknownCurrency
	}

	if collateral != nil && FCashEligible(fc, acct.Portfolio, collateral) {
		localPurchased, purchases := FCashWalk(
			acct.Portfolio, localRequired, local, collateral,
			snap.Config.LiquidationDiscount, snap.Config, snap.BlockTime,
		)
		fCashValue := sumDiscountValue(purchases)
		return &LiquidatePair{
			LocalCurrency:           local,
			CollateralCurrency:      collateral,
			LocalRequired:           localPurchased,
			CollateralPurchased:     big.NewInt(0),
			LocalTokenCashWithdrawn: big.NewInt(0),
			TokenLiquidateFee:       big.NewInt(0),
			ETHShortfallRecovered:   recoveredShortfall(localPurchased, localRequired, ethShortfall),
			EffectiveExchangeRate:   EffectiveExchangeRate(localPurchased, fCashValue, collateral),
			FCashPurchased:          purchases,
		}, nil
	}

	totalClaim, err := TotalCashClaim(local.Symbol, acct.Portfolio, snap.Config, snap.BlockTime)
	if err != nil {
		return nil, err
	}

	cashClaimWithdrawn := big.NewInt(0)
	tokenFee := big.NewInt(0)
	newNetAvailable := localFactors.NetAvailable
	localPurchased := localRequired
	if totalClaim.Sign() > 0 {
		tokens := CalculateTokenLiquidation(localRequired, totalClaim, localFactors.NetAvailable, snap.Config)
		cashClaimWithdrawn = tokens.CashClaimWithdrawn
		tokenFee = tokens.TokenLiquidateFee
		newNetAvailable = tokens.LocalNetAvailable
		localPurchased = tokens.LocalRequired
	}

	collateralPurchased := big.NewInt(0)
	var fCashPurchased []*FCashPurchase
	fCashValue := big.NewInt(0)
	if collateral != nil && newNetAvailable.Sign() < 0 {
		if _, known := fc.Factors[collateral.Symbol]; known {
			localToTrade := localCurrencyToTrade(
				localPurchased, snap.Config.LiquidationDiscount,
				local.Buffer, new(big.Int).Neg(newNetAvailable),
			)
			purchase, err := CalculateCollateralPurchase(
				local, collateral, fc, acct.Portfolio,
				localToTrade, snap.Config.LiquidationDiscount,
				snap.Config, snap.BlockTime,
			)
			if err != nil {
				return nil, err
			}
			localPurchased = purchase.LocalPurchased
			collateralPurchased = purchase.CollateralPurchased

			remainder := new(big.Int).Sub(localToTrade, purchase.LocalPurchased)
			if remainder.Sign() > 0 {
				walkLocal, purchases := FCashWalk(
					acct.Portfolio, remainder, local, collateral,
					snap.Config.LiquidationDiscount, snap.Config, snap.BlockTime,
				)
				if len(purchases) > 0 {
					fCashPurchased = purchases
					fCashValue = sumDiscountValue(purchases)
					localPurchased = new(big.Int).Add(localPurchased, walkLocal)
				}
			}
		} else {
			localPurchased = big.NewInt(0)
		}
	} else {
		localPurchased = big.NewInt(0)
	}

	tokenOffset := new(big.Int).Sub(newNetAvailable, localFactors.NetAvailable)
	satisfied := new(big.Int).Add(localPurchased, tokenOffset)

	return &LiquidatePair{
		LocalCurrency:           local,
		CollateralCurrency:      collateral,
		LocalRequired:           localPurchased,
		CollateralPurchased:     collateralPurchased,
		LocalTokenCashWithdrawn: cashClaimWithdrawn,
		TokenLiquidateFee:       tokenFee,
		ETHShortfallRecovered:   recoveredShortfall(satisfied, localRequired, ethShortfall),
		EffectiveExchangeRate:   EffectiveExchangeRate(localPurchased, new(big.Int).Add(collateralPurchased, fCashValue), collateral),
		FCashPurchased:          fCashPurchased,
	}, nil
}

// GetLiquidatePairs enumerates every viable currency pair for an account:
// each currency holding withdrawable tokens gets a local-only leg, each
// currency with a negative net-available becomes a local candidate, each
// with a positive net-available a collateral candidate, and all distinct
// local/collateral combinations are evaluated. Currencies are walked in
// snapshot order so output ordering is deterministic.
func GetLiquidatePairs(
	snap *types.Snapshot,
	acct *types.Account,
	fc *FreeCollateral,
	ethShortfall *big.Int,
) ([]*LiquidatePair, error) {
	var potentialLocal, potentialCollateral []*types.Currency
	var pairs []*LiquidatePair

	for _, currency := range snap.Currencies {
		factors, ok := fc.Factors[currency.Symbol]
		if !ok {
			continue
		}

		hasTokens := false
		for _, a := range acct.Portfolio {
			if a.Type == types.LiquidityToken && a.Symbol == currency.Symbol {
				hasTokens = true
				break
			}
		}

		if factors.CashClaim.Sign() > 0 && hasTokens {
			pair, err := GetLiquidatePair(snap, acct, fc, currency, nil, ethShortfall)
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, pair)
			potentialLocal = append(potentialLocal, currency)
		} else if factors.NetAvailable.Sign() < 0 {
			potentialLocal = append(potentialLocal, currency)
		}

		// A currency can back a purchase even while its own tokens are
		// being withdrawn.
		if factors.NetAvailable.Sign() > 0 {
			potentialCollateral = append(potentialCollateral, currency)
		}
	}

	for _, local := range potentialLocal {
		for _, collateral := range potentialCollateral {
			if local.ID == collateral.ID {
				continue
			}
			pair, err := GetLiquidatePair(snap, acct, fc, local, collateral, ethShortfall)
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, pair)
		}
	}

	return pairs, nil
}
