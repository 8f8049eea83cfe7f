package engine

import (
	"math/big"
	"runtime"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"liquidator/core/types"
)

// Liquidatable is an undercollateralized account together with every
// candidate pair for liquidating it.
type Liquidatable struct {
	Address                 common.Address
	ETHDenominatedShortfall *big.Int
	Pairs                   []*LiquidatePair
}

// Settleable is an account holding at least one negative cash balance,
// together with its candidate settlement pairs.
type Settleable struct {
	Address common.Address
	Pairs   []*SettlePair
}

// AccountError reports a single account whose evaluation failed. One bad
// account never aborts a batch.
type AccountError struct {
	Address common.Address
	Err     error
}

// forEachAccount fans accounts out over a bounded worker pool. Results are
// written into caller-indexed slots so batch output order follows input
// order regardless of scheduling.
func forEachAccount(accounts []*types.Account, workers int, fn func(i int, acct *types.Account)) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(accounts) {
		workers = len(accounts)
	}
	if workers <= 1 {
		for i, acct := range accounts {
			fn(i, acct)
		}
		return
	}

	indexes := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range indexes {
				fn(i, accounts[i])
			}
		}()
	}
	for i := range accounts {
		indexes <- i
	}
	close(indexes)
	wg.Wait()
}

// ScanLiquidatable evaluates every account against one snapshot and returns
// the undercollateralized ones with their liquidation pairs. workers bounds
// the fan-out; zero or negative means one worker per CPU.
func ScanLiquidatable(snap *types.Snapshot, accounts []*types.Account, workers int) ([]*Liquidatable, []*AccountError) {
	results := make([]*Liquidatable, len(accounts))
	failures := make([]*AccountError, len(accounts))

	forEachAccount(accounts, workers, func(i int, acct *types.Account) {
		fc, err := CalculateFreeCollateral(snap, acct)
		if err != nil {
			failures[i] = &AccountError{Address: acct.Address, Err: err}
			return
		}
		if fc.NetETHCollateral.Cmp(fc.NetETHDebtWithBuffer) >= 0 {
			return
		}

		shortfall := fc.Shortfall()
		pairs, err := GetLiquidatePairs(snap, acct, fc, shortfall)
		if err != nil {
			failures[i] = &AccountError{Address: acct.Address, Err: err}
			return
		}
		results[i] = &Liquidatable{
			Address:                 acct.Address,
			ETHDenominatedShortfall: shortfall,
			Pairs:                   pairs,
		}
	})

	return compact(results), compact(failures)
}

// ScanSettleable evaluates every account and returns those holding negative
// cash balances with their settlement pairs.
func ScanSettleable(snap *types.Snapshot, accounts []*types.Account, workers int) ([]*Settleable, []*AccountError) {
	results := make([]*Settleable, len(accounts))
	failures := make([]*AccountError, len(accounts))

	forEachAccount(accounts, workers, func(i int, acct *types.Account) {
		fc, err := CalculateFreeCollateral(snap, acct)
		if err != nil {
			failures[i] = &AccountError{Address: acct.Address, Err: err}
			return
		}

		hasDebt := false
		for _, b := range fc.Balances {
			if b.CashBalance.Sign() < 0 {
				hasDebt = true
				break
			}
		}
		if !hasDebt {
			return
		}

		pairs, err := GetSettlePairs(snap, acct, fc)
		if err != nil {
			failures[i] = &AccountError{Address: acct.Address, Err: err}
			return
		}
		results[i] = &Settleable{Address: acct.Address, Pairs: pairs}
	})

	return compact(results), compact(failures)
}

func compact[T any](in []*T) []*T {
	out := in[:0]
	for _, v := range in {
		if v != nil {
			out = append(out, v)
		}
	}
	return out
}

// FilterLiquidatable narrows batch results to pairs matching the given
// local and, optionally, collateral symbols. Accounts left with no matching
// pair are dropped. An empty local symbol returns the input unchanged.
func FilterLiquidatable(records []*Liquidatable, localSymbol, collateralSymbol string) []*Liquidatable {
	if localSymbol == "" {
		return records
	}
	var out []*Liquidatable
	for _, r := range records {
		var pairs []*LiquidatePair
		for _, p := range r.Pairs {
			if !matchesPair(p.LocalCurrency, p.CollateralCurrency, localSymbol, collateralSymbol) {
				continue
			}
			pairs = append(pairs, p)
		}
		if len(pairs) > 0 {
			out = append(out, &Liquidatable{
				Address:                 r.Address,
				ETHDenominatedShortfall: r.ETHDenominatedShortfall,
				Pairs:                   pairs,
			})
		}
	}
	return out
}

// FilterSettleable narrows settlement results the same way.
func FilterSettleable(records []*Settleable, localSymbol, collateralSymbol string) []*Settleable {
	if localSymbol == "" {
		return records
	}
	var out []*Settleable
	for _, r := range records {
		var pairs []*SettlePair
		for _, p := range r.Pairs {
			if !matchesPair(p.LocalCurrency, p.CollateralCurrency, localSymbol, collateralSymbol) {
				continue
			}
			pairs = append(pairs, p)
		}
		if len(pairs) > 0 {
			out = append(out, &Settleable{Address: r.Address, Pairs: pairs})
		}
	}
	return out
}

func matchesPair(local, collateral *types.Currency, localSymbol, collateralSymbol string) bool {
	if local.Symbol != localSymbol {
		return false
	}
	if collateralSymbol == "" {
		return true
	}
	return collateral != nil && collateral.Symbol == collateralSymbol
}
