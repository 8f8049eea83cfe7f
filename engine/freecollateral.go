package engine

import (
	"math/big"

	"liquidator/core/types"
)

// Factors are the per-currency aggregates backing every liquidation and
// settlement decision for one account.
type Factors struct {
	NetAvailable *big.Int
	CashClaim    *big.Int
	NetFCash     *big.Int
}

// FreeCollateral is the ETH-denominated solvency view of one account,
// together with the effective balances the view was computed from.
type FreeCollateral struct {
	NetETHCollateral     *big.Int
	NetETHDebt           *big.Int
	NetETHDebtWithBuffer *big.Int
	Factors              map[string]*Factors
	Balances             types.Balances
}

// Shortfall returns the buffered-debt shortfall, zero when the account is
// solvent.
func (fc *FreeCollateral) Shortfall() *big.Int {
	diff := new(big.Int).Sub(fc.NetETHDebtWithBuffer, fc.NetETHCollateral)
	if diff.Sign() < 0 {
		return big.NewInt(0)
	}
	return diff
}

// Aggregate returns collateral minus buffered debt (negative when the
// account is undercollateralized).
func (fc *FreeCollateral) Aggregate() *big.Int {
	return new(big.Int).Sub(fc.NetETHCollateral, fc.NetETHDebtWithBuffer)
}

// EffectiveBalances folds every matured asset's cash value into a copy of
// the escrow balances. The escrow snapshot itself is never touched.
func EffectiveBalances(acct *types.Account, cfg *types.SystemConfiguration, blockTime int64) (types.Balances, error) {
	balances := acct.EscrowBalances.Copy()
	for _, a := range acct.Portfolio {
		if !a.HasMatured(blockTime) {
			continue
		}
		value, err := Value(a, cfg, false, blockTime)
		if err != nil {
			return nil, err
		}
		b := balances.Get(a.Symbol, a.CurrencyID).Copy()
		b.CashBalance.Add(b.CashBalance, value.Cash)
		balances[b.Symbol] = b
	}
	return balances, nil
}

// matchesBalance pairs an asset with a balance, treating an ETH balance as
// equivalent to WETH positions.
func matchesBalance(a *types.Asset, balance *types.Balance) bool {
	return a.CurrencyID == balance.CurrencyID ||
		(balance.CurrencyID == types.ETHCurrencyID && a.CurrencyID == types.WETHCurrencyID)
}

// NetCurrencyAvailable builds the cash ladder for one currency and reduces
// it to Factors. Bucket zero accumulates haircut cash; every other bucket is
// keyed by maturity and accumulates unmatured fCash (haircut fCash for
// liquidity-token legs, raw fCash otherwise). The receiver time decay is
// reapplied to the summed positive buckets, not per asset; negative buckets
// pass through unhaircut. Matured assets are skipped entirely: their value
// already sits in the effective cash balance.
func NetCurrencyAvailable(balance *types.Balance, portfolio []*types.Asset, cfg *types.SystemConfiguration, blockTime int64) (*Factors, error) {
	cashClaim := big.NewInt(0)
	ladder := make(map[int64]*big.Int)

	for _, a := range portfolio {
		if a.HasMatured(blockTime) || !matchesBalance(a, balance) {
			continue
		}

		haircutValue, err := Value(a, cfg, true, blockTime)
		if err != nil {
			return nil, err
		}
		cashClaim.Add(cashClaim, haircutValue.Cash)

		bucket, ok := ladder[a.Maturity]
		if !ok {
			bucket = big.NewInt(0)
			ladder[a.Maturity] = bucket
		}
		if a.Type == types.LiquidityToken {
			bucket.Add(bucket, haircutValue.FCash)
		} else {
			rawValue, err := Value(a, cfg, false, blockTime)
			if err != nil {
				return nil, err
			}
			bucket.Add(bucket, rawValue.FCash)
		}
	}

	netFCash := big.NewInt(0)
	for maturity, value := range ladder {
		if value.Sign() > 0 {
			value = HaircutReceiverValue(value, maturity, blockTime, cfg)
		}
		netFCash.Add(netFCash, value)
	}

	netAvailable := new(big.Int).Add(balance.CashBalance, cashClaim)
	netAvailable.Add(netAvailable, netFCash)

	return &Factors{NetAvailable: netAvailable, CashClaim: cashClaim, NetFCash: netFCash}, nil
}

// CalculateFreeCollateral aggregates every snapshot currency into the
// account's ETH-denominated solvency view. Debt magnitudes are reported
// non-negative; the buffered variant applies each currency's FX buffer.
func CalculateFreeCollateral(snap *types.Snapshot, acct *types.Account) (*FreeCollateral, error) {
	balances, err := EffectiveBalances(acct, snap.Config, snap.BlockTime)
	if err != nil {
		return nil, err
	}
	return freeCollateralWithBalances(snap, acct, balances)
}

func freeCollateralWithBalances(snap *types.Snapshot, acct *types.Account, balances types.Balances) (*FreeCollateral, error) {
	fc := &FreeCollateral{
		NetETHCollateral:     big.NewInt(0),
		NetETHDebt:           big.NewInt(0),
		NetETHDebtWithBuffer: big.NewInt(0),
		Factors:              make(map[string]*Factors, len(snap.Currencies)),
		Balances:             balances,
	}

	for _, currency := range snap.Currencies {
		factors, err := NetCurrencyAvailable(balances.ForCurrency(currency), acct.Portfolio, snap.Config, snap.BlockTime)
		if err != nil {
			return nil, err
		}
		fc.Factors[currency.Symbol] = factors

		if factors.NetAvailable.Sign() < 0 {
			debt := new(big.Int).Abs(factors.NetAvailable)
			fc.NetETHDebt.Add(fc.NetETHDebt, ConvertToETH(debt, currency, false))
			fc.NetETHDebtWithBuffer.Add(fc.NetETHDebtWithBuffer, ConvertToETH(debt, currency, true))
		} else {
			fc.NetETHCollateral.Add(fc.NetETHCollateral, ConvertToETH(factors.NetAvailable, currency, false))
		}
	}

	return fc, nil
}
