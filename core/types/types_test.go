package types

import (
	"encoding/json"
	"errors"
	"math/big"
	"testing"
)

func wei(value int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(value), Wei)
}

func weth(t *testing.T) *Currency {
	t.Helper()
	return &Currency{
		ID:              WETHCurrencyID,
		Symbol:          "WETH",
		DecimalPlaces:   18,
		Decimals:        new(big.Int).Set(Wei),
		RateDecimals:    new(big.Int).Set(Wei),
		Buffer:          new(big.Int).Set(Wei),
		ETHExchangeRate: new(big.Int).Set(Wei),
	}
}

func TestNewSnapshotIndexesCurrencies(t *testing.T) {
	dai := &Currency{
		ID:              1,
		Symbol:          "DAI",
		DecimalPlaces:   18,
		Decimals:        new(big.Int).Set(Wei),
		RateDecimals:    new(big.Int).Set(Wei),
		Buffer:          wei(2),
		ETHExchangeRate: big.NewInt(10_000_000_000_000_000),
	}

	snap, err := NewSnapshot([]*Currency{weth(t), dai}, &SystemConfiguration{}, 1_700_000_000)
	if err != nil {
		t.Fatalf("NewSnapshot: %v", err)
	}
	if snap.CurrencyBySymbol("DAI") != dai {
		t.Fatal("symbol lookup returned the wrong currency")
	}
	if snap.CurrencyByID(1) != dai {
		t.Fatal("id lookup returned the wrong currency")
	}
	if snap.CurrencyBySymbol("USDC") != nil {
		t.Fatal("unknown symbol must return nil")
	}
}

func TestNewSnapshotRejectsMissingRate(t *testing.T) {
	bad := &Currency{ID: 1, Symbol: "DAI", Decimals: new(big.Int).Set(Wei), RateDecimals: new(big.Int).Set(Wei), Buffer: Wei}
	_, err := NewSnapshot([]*Currency{bad}, &SystemConfiguration{}, 0)
	if !errors.Is(err, ErrNoExchangeRate) {
		t.Fatalf("err = %v, want %v", err, ErrNoExchangeRate)
	}
}

func TestCurrencyByIDTreatsETHAsWETH(t *testing.T) {
	snap, err := NewSnapshot([]*Currency{weth(t)}, &SystemConfiguration{}, 0)
	if err != nil {
		t.Fatalf("NewSnapshot: %v", err)
	}
	if got := snap.CurrencyByID(ETHCurrencyID); got == nil || got.Symbol != "WETH" {
		t.Fatalf("CurrencyByID(%d) = %v, want WETH", ETHCurrencyID, got)
	}
	if snap.CurrencyByID(99) != nil {
		t.Fatal("unknown id must return nil")
	}
}

func TestHasMatured(t *testing.T) {
	a := &Asset{Maturity: 100}
	if a.HasMatured(99) {
		t.Fatal("asset before maturity reported matured")
	}
	if !a.HasMatured(100) {
		t.Fatal("asset at maturity must report matured")
	}
}

func TestBalancesCopyIsIndependent(t *testing.T) {
	balances := Balances{
		"DAI": {CurrencyID: 1, Symbol: "DAI", CashBalance: wei(100)},
	}
	clone := balances.Copy()
	clone["DAI"].CashBalance.Add(clone["DAI"].CashBalance, wei(50))

	if balances["DAI"].CashBalance.Cmp(wei(100)) != 0 {
		t.Fatalf("original mutated: %s", balances["DAI"].CashBalance)
	}
}

func TestBalancesForCurrencyDefaultsToZero(t *testing.T) {
	balances := Balances{}
	b := balances.ForCurrency(&Currency{ID: 2, Symbol: "USDC"})
	if b.Symbol != "USDC" || b.CurrencyID != 2 || b.CashBalance.Sign() != 0 {
		t.Fatalf("unexpected default balance %+v", b)
	}
}

func TestBalanceMarshalJSON(t *testing.T) {
	b := &Balance{CurrencyID: 1, Symbol: "DAI", CashBalance: wei(-100)}
	raw, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["cashBalance"] != "-100000000000000000000" {
		t.Fatalf("cashBalance = %v, want decimal string", decoded["cashBalance"])
	}
}

func TestAssetTypeString(t *testing.T) {
	cases := map[AssetType]string{
		CashPayer:      "CashPayer",
		CashReceiver:   "CashReceiver",
		LiquidityToken: "LiquidityToken",
	}
	for typ, want := range cases {
		if got := typ.String(); got != want {
			t.Fatalf("String(%d) = %q, want %q", typ, got, want)
		}
	}
}
