package engine

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"liquidator/core/types"
)

const (
	testBlockTime   = int64(1_700_000_000)
	defaultMaturity = testBlockTime + types.SecondsInYear
)

// amount parses a decimal value into a fixed-point integer with the given
// number of decimal places.
func amount(t *testing.T, value string, decimalPlaces int) *big.Int {
	t.Helper()
	neg := strings.HasPrefix(value, "-")
	value = strings.TrimPrefix(value, "-")

	whole, frac, _ := strings.Cut(value, ".")
	if len(frac) > decimalPlaces {
		t.Fatalf("amount %s has more than %d decimal places", value, decimalPlaces)
	}
	frac += strings.Repeat("0", decimalPlaces-len(frac))

	out, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		t.Fatalf("invalid amount %s", value)
	}
	if neg {
		out.Neg(out)
	}
	return out
}

func ether(t *testing.T, value string) *big.Int {
	t.Helper()
	return amount(t, value, 18)
}

func bigFromString(t *testing.T, value string) *big.Int {
	t.Helper()
	out, ok := new(big.Int).SetString(value, 10)
	if !ok {
		t.Fatalf("invalid integer %s", value)
	}
	return out
}

func testConfig(t *testing.T) *types.SystemConfiguration {
	t.Helper()
	return &types.SystemConfiguration{
		MaxAssets:              7,
		SettlementDiscount:     ether(t, "1.02"),
		LiquidationDiscount:    ether(t, "1.06"),
		LiquidityHaircut:       ether(t, "0.8"),
		LiquidityRepoIncentive: ether(t, "1.1"),
		FCashHaircut:           ether(t, "0.5"),
		FCashMaxHaircut:        ether(t, "0.95"),
	}
}

func testCurrency(t *testing.T, id int, symbol string, decimalPlaces int, rate, buffer string) *types.Currency {
	t.Helper()
	decimals := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimalPlaces)), nil)
	return &types.Currency{
		ID:              id,
		Name:            symbol,
		Symbol:          symbol,
		Address:         common.Address{},
		DecimalPlaces:   decimalPlaces,
		Decimals:        decimals,
		RateDecimals:    ether(t, "1"),
		Buffer:          ether(t, buffer),
		ETHExchangeRate: ether(t, rate),
	}
}

// testSnapshot mirrors the environment the engine runs against: WETH plus
// two stablecoins with distinct decimals and buffers.
func testSnapshot(t *testing.T) *types.Snapshot {
	t.Helper()
	currencies := []*types.Currency{
		testCurrency(t, 0, "WETH", 18, "1", "1"),
		testCurrency(t, 1, "DAI", 18, "0.01", "1.4"),
		testCurrency(t, 2, "USDC", 6, "0.01", "1.2"),
	}
	snap, err := types.NewSnapshot(currencies, testConfig(t), testBlockTime)
	if err != nil {
		t.Fatalf("NewSnapshot: %v", err)
	}
	return snap
}

func testMarket(t *testing.T, maturity int64) *types.CashMarket {
	t.Helper()
	return &types.CashMarket{
		Maturity:         maturity,
		TotalfCash:       ether(t, "1000000"),
		TotalCurrentCash: ether(t, "1000000"),
		TotalLiquidity:   ether(t, "1000000"),
	}
}

func mockAsset(t *testing.T, snap *types.Snapshot, assetType types.AssetType, maturity int64, symbol string, notional *big.Int) *types.Asset {
	t.Helper()
	currency := snap.CurrencyBySymbol(symbol)
	if currency == nil {
		t.Fatalf("unknown currency %s", symbol)
	}
	return &types.Asset{
		CurrencyID: currency.ID,
		Symbol:     symbol,
		MarketKey:  "1:" + symbol,
		Maturity:   maturity,
		Type:       assetType,
		Notional:   notional,
		Market:     testMarket(t, maturity),
	}
}

func mockBalance(t *testing.T, snap *types.Snapshot, symbol string, cash *big.Int) *types.Balance {
	t.Helper()
	currency := snap.CurrencyBySymbol(symbol)
	if currency == nil {
		t.Fatalf("unknown currency %s", symbol)
	}
	return &types.Balance{CurrencyID: currency.ID, Symbol: symbol, CashBalance: cash}
}

func mockAccount(t *testing.T, snap *types.Snapshot, balances []*types.Balance, portfolio []*types.Asset) *types.Account {
	t.Helper()
	acct := &types.Account{
		Address:        common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		EscrowBalances: make(types.Balances, len(balances)),
		Portfolio:      portfolio,
	}
	for _, b := range balances {
		acct.EscrowBalances[b.Symbol] = b
	}
	return acct
}

func freeCollateral(t *testing.T, snap *types.Snapshot, acct *types.Account) *FreeCollateral {
	t.Helper()
	fc, err := CalculateFreeCollateral(snap, acct)
	if err != nil {
		t.Fatalf("CalculateFreeCollateral: %v", err)
	}
	return fc
}

func assertEq(t *testing.T, name string, got, want *big.Int) {
	t.Helper()
	if got.Cmp(want) != 0 {
		t.Fatalf("%s = %s, want %s", name, got, want)
	}
}
