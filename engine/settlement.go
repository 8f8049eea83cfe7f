package engine

import (
	"math/big"

	"liquidator/core/types"
)

// SettlePair describes one candidate settlement action: a currency with a
// negative cash balance and, unless liquidity-token claims already cover
// the debt, a collateral currency to purchase against it.
type SettlePair struct {
	LocalCurrency         *types.Currency
	CollateralCurrency    *types.Currency
	CashBalance           *big.Int
	LocalRequired         *big.Int
	CollateralPurchased   *big.Int
	EffectiveExchangeRate *big.Int
	FCashPurchased        []*FCashPurchase
}

// SettlePairsFor computes settlement pairs for explicit local and
// collateral candidate lists. A currency whose debt survives its own
// haircut token claims while aggregate free collateral is negative must be
// liquidated instead and produces no pair. Local and collateral may be the
// same currency when a negative cash balance sits next to fCash receivables
// in the same unit.
func SettlePairsFor(
	snap *types.Snapshot,
	acct *types.Account,
	fc *FreeCollateral,
	negativeBalances, potentialCollateral []*types.Currency,
	aggregateFC *big.Int,
) ([]*SettlePair, error) {
	var pairs []*SettlePair

	for _, local := range negativeBalances {
		balance := fc.Balances.ForCurrency(local)
		debtMagnitude := new(big.Int).Neg(balance.CashBalance)

		claim, err := TotalCashClaim(local.Symbol, acct.Portfolio, snap.Config, snap.BlockTime)
		if err != nil {
			return nil, err
		}
		netDebt := new(big.Int).Add(balance.CashBalance, claim)

		if netDebt.Sign() < 0 && aggregateFC.Sign() < 0 {
			haircutClaim, err := TotalHaircutCashClaim(local.Symbol, acct.Portfolio, snap.Config, snap.BlockTime)
			if err != nil {
				return nil, err
			}
			factors, ok := fc.Factors[local.Symbol]
			if !ok {
				return nil, ErrUnknownCurrency
			}
			postHaircutFC := new(big.Int).Add(
				aggregateFC,
				ConvertToETH(haircutClaim, local, factors.NetAvailable.Sign() < 0),
			)
			// Still insolvent after releasing the haircut claim means
			// settling this currency cannot restore the account.
			if postHaircutFC.Sign() < 0 {
				continue
			}
		}

		if netDebt.Sign() >= 0 {
			// Token claims cover the debt. There is nothing to purchase
			// but the pair is listed for completeness.
			pairs = append(pairs, &SettlePair{
				LocalCurrency:         local,
				CashBalance:           debtMagnitude,
				LocalRequired:         big.NewInt(0),
				CollateralPurchased:   big.NewInt(0),
				EffectiveExchangeRate: big.NewInt(0),
			})
			continue
		}

		localRequired := new(big.Int).Neg(netDebt)
		for _, collateral := range potentialCollateral {
			purchase, err := CalculateCollateralPurchase(
				local, collateral, fc, acct.Portfolio,
				localRequired, snap.Config.SettlementDiscount,
				snap.Config, snap.BlockTime,
			)
			if err != nil {
				return nil, err
			}

			localPurchased := purchase.LocalPurchased
			fCashValue := big.NewInt(0)
			var fCashPurchased []*FCashPurchase
			remainder := new(big.Int).Sub(localRequired, purchase.LocalPurchased)
			if remainder.Sign() > 0 {
				walkLocal, purchases := FCashWalk(
					acct.Portfolio, remainder, local, collateral,
					snap.Config.SettlementDiscount, snap.Config, snap.BlockTime,
				)
				if len(purchases) > 0 {
					fCashPurchased = purchases
					fCashValue = sumDiscountValue(purchases)
					localPurchased = new(big.Int).Add(localPurchased, walkLocal)
				}
			}

			if localPurchased.Sign() <= 0 {
				continue
			}
			if purchase.CollateralPurchased.Sign() <= 0 && len(fCashPurchased) == 0 {
				continue
			}

			pairs = append(pairs, &SettlePair{
				LocalCurrency:         local,
				CollateralCurrency:    collateral,
				CashBalance:           debtMagnitude,
				LocalRequired:         localPurchased,
				CollateralPurchased:   purchase.CollateralPurchased,
				EffectiveExchangeRate: EffectiveExchangeRate(localPurchased, new(big.Int).Add(purchase.CollateralPurchased, fCashValue), collateral),
				FCashPurchased:        fCashPurchased,
			})
		}
	}

	return pairs, nil
}

// GetSettlePairs enumerates settlement candidates for one account: every
// currency with a negative cash balance is a local leg, every currency with
// positive adjusted net-available a collateral leg. Currencies are walked
// in snapshot order so output ordering is deterministic.
func GetSettlePairs(snap *types.Snapshot, acct *types.Account, fc *FreeCollateral) ([]*SettlePair, error) {
	var negativeBalances, potentialCollateral []*types.Currency
	for _, currency := range snap.Currencies {
		if fc.Balances.ForCurrency(currency).CashBalance.Sign() < 0 {
			negativeBalances = append(negativeBalances, currency)
		}
		adjusted, err := AdjustNetAvailable(currency.Symbol, fc, acct.Portfolio, snap.Config, snap.BlockTime)
		if err != nil {
			return nil, err
		}
		if adjusted.Sign() > 0 {
			potentialCollateral = append(potentialCollateral, currency)
		}
	}
	return SettlePairsFor(snap, acct, fc, negativeBalances, potentialCollateral, fc.Aggregate())
}
