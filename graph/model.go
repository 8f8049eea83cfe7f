package graph

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"liquidator/core/types"
)

// Wire types mirror the subgraph responses field for field. All numeric
// fields arrive as decimal strings and are converted exactly; a value that
// fails to parse fails the whole refresh rather than defaulting.

type currencyResult struct {
	ID              string               `json:"id"`
	Name            string               `json:"name"`
	TokenAddress    string               `json:"tokenAddress"`
	Symbol          string               `json:"symbol"`
	Decimals        string               `json:"decimals"`
	ETHExchangeRate []exchangeRateResult `json:"ethExchangeRate"`
}

type exchangeRateResult struct {
	RateOracle   string `json:"rateOracle"`
	Buffer       string `json:"buffer"`
	RateDecimals string `json:"rateDecimals"`
	MustInvert   bool   `json:"mustInvert"`
	LatestRate   struct {
		Rate string `json:"rate"`
	} `json:"latestRate"`
}

type systemConfigurationResult struct {
	SettlementDiscount     string `json:"settlementDiscount"`
	LiquidationDiscount    string `json:"liquidationDiscount"`
	LiquidityHaircut       string `json:"liquidityHaircut"`
	LiquidityRepoIncentive string `json:"liquidityRepoIncentive"`
	FCashHaircut           string `json:"fCashHaircut"`
	FCashMaxHaircut        string `json:"fCashMaxHaircut"`
	MaxAssets              string `json:"maxAssets"`
}

type accountResult struct {
	ID        string          `json:"id"`
	Balances  []balanceResult `json:"balances"`
	Portfolio []assetResult   `json:"portfolio"`
}

type balanceResult struct {
	CashBalance string `json:"cashBalance"`
	Currency    struct {
		ID     string `json:"id"`
		Symbol string `json:"symbol"`
	} `json:"currency"`
}

type assetResult struct {
	AssetID   string `json:"assetId"`
	AssetType string `json:"assetType"`
	Notional  string `json:"notional"`
	Maturity  int64  `json:"maturity"`
	CashGroup struct {
		ID       string `json:"id"`
		Currency struct {
			ID     string `json:"id"`
			Symbol string `json:"symbol"`
		} `json:"currency"`
	} `json:"cashGroup"`
	CashMarket *struct {
		TotalfCash       string `json:"totalfCash"`
		TotalLiquidity   string `json:"totalLiquidity"`
		TotalCurrentCash string `json:"totalCurrentCash"`
	} `json:"cashMarket"`
}

func parseBig(field, value string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("graph: %s is not a decimal integer: %q", field, value)
	}
	return v, nil
}

func parseInt(field, value string) (int, error) {
	var v int
	if _, err := fmt.Sscanf(value, "%d", &v); err != nil {
		return 0, fmt.Errorf("graph: %s is not an integer: %q", field, value)
	}
	return v, nil
}

func decimalPlaces(decimals *big.Int) int {
	places := 0
	ten := big.NewInt(10)
	v := new(big.Int).Set(decimals)
	for v.Cmp(ten) >= 0 {
		v.Quo(v, ten)
		places++
	}
	return places
}

// toCurrency builds the engine currency, inverting the oracle rate when the
// subgraph flags it and special-casing WETH, which carries no exchange rate
// against itself.
func (r *currencyResult) toCurrency() (*types.Currency, error) {
	id, err := parseInt("currency id", r.ID)
	if err != nil {
		return nil, err
	}
	decimals, err := parseBig("currency decimals", r.Decimals)
	if err != nil {
		return nil, err
	}

	c := &types.Currency{
		ID:            id,
		Name:          r.Name,
		Symbol:        r.Symbol,
		Address:       common.HexToAddress(r.TokenAddress),
		Decimals:      decimals,
		DecimalPlaces: decimalPlaces(decimals),
	}

	switch {
	case len(r.ETHExchangeRate) > 0:
		er := r.ETHExchangeRate[0]
		if c.RateDecimals, err = parseBig("rateDecimals", er.RateDecimals); err != nil {
			return nil, err
		}
		if c.Buffer, err = parseBig("buffer", er.Buffer); err != nil {
			return nil, err
		}
		rate, err := parseBig("rate", er.LatestRate.Rate)
		if err != nil {
			return nil, err
		}
		if er.MustInvert {
			if rate.Sign() == 0 {
				return nil, fmt.Errorf("graph: currency %s has zero exchange rate", r.Symbol)
			}
			inverted := new(big.Int).Mul(c.RateDecimals, c.RateDecimals)
			rate = inverted.Quo(inverted, rate)
		}
		c.ETHExchangeRate = rate

	case id == types.WETHCurrencyID:
		// WETH trades one to one against the base unit.
		c.RateDecimals = new(big.Int).Set(types.Wei)
		c.Buffer = new(big.Int).Set(types.Wei)
		c.ETHExchangeRate = new(big.Int).Set(types.Wei)

	default:
		return nil, fmt.Errorf("%w: %s", types.ErrNoExchangeRate, r.Symbol)
	}

	return c, nil
}

func (r *systemConfigurationResult) toConfig() (*types.SystemConfiguration, error) {
	cfg := &types.SystemConfiguration{}
	fields := []struct {
		name  string
		value string
		dst   **big.Int
	}{
		{"settlementDiscount", r.SettlementDiscount, &cfg.SettlementDiscount},
		{"liquidationDiscount", r.LiquidationDiscount, &cfg.LiquidationDiscount},
		{"liquidityHaircut", r.LiquidityHaircut, &cfg.LiquidityHaircut},
		{"liquidityRepoIncentive", r.LiquidityRepoIncentive, &cfg.LiquidityRepoIncentive},
		{"fCashHaircut", r.FCashHaircut, &cfg.FCashHaircut},
		{"fCashMaxHaircut", r.FCashMaxHaircut, &cfg.FCashMaxHaircut},
	}
	for _, f := range fields {
		v, err := parseBig(f.name, f.value)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}
	if r.MaxAssets != "" {
		maxAssets, err := parseInt("maxAssets", r.MaxAssets)
		if err != nil {
			return nil, err
		}
		cfg.MaxAssets = maxAssets
	}
	return cfg, nil
}

func parseAssetType(value string) (types.AssetType, error) {
	switch value {
	case "CashPayer":
		return types.CashPayer, nil
	case "CashReceiver":
		return types.CashReceiver, nil
	case "LiquidityToken":
		return types.LiquidityToken, nil
	}
	return 0, fmt.Errorf("graph: unknown asset type %q", value)
}

func (r *accountResult) toAccount() (*types.Account, error) {
	acct := &types.Account{
		Address:        common.HexToAddress(r.ID),
		EscrowBalances: make(types.Balances, len(r.Balances)),
	}

	for _, b := range r.Balances {
		id, err := parseInt("balance currency id", b.Currency.ID)
		if err != nil {
			return nil, err
		}
		cash, err := parseBig("cashBalance", b.CashBalance)
		if err != nil {
			return nil, err
		}
		acct.EscrowBalances[b.Currency.Symbol] = &types.Balance{
			CurrencyID:  id,
			Symbol:      b.Currency.Symbol,
			CashBalance: cash,
		}
	}

	for _, a := range r.Portfolio {
		assetType, err := parseAssetType(a.AssetType)
		if err != nil {
			return nil, err
		}
		currencyID, err := parseInt("asset currency id", a.CashGroup.Currency.ID)
		if err != nil {
			return nil, err
		}
		notional, err := parseBig("notional", a.Notional)
		if err != nil {
			return nil, err
		}

		asset := &types.Asset{
			CurrencyID: currencyID,
			Symbol:     a.CashGroup.Currency.Symbol,
			MarketKey:  fmt.Sprintf("%s:%d", a.CashGroup.ID, a.Maturity),
			Maturity:   a.Maturity,
			Type:       assetType,
			Notional:   notional,
		}
		if a.CashMarket != nil {
			market := &types.CashMarket{MarketKey: asset.MarketKey, Maturity: a.Maturity}
			if market.TotalfCash, err = parseBig("totalfCash", a.CashMarket.TotalfCash); err != nil {
				return nil, err
			}
			if market.TotalCurrentCash, err = parseBig("totalCurrentCash", a.CashMarket.TotalCurrentCash); err != nil {
				return nil, err
			}
			if market.TotalLiquidity, err = parseBig("totalLiquidity", a.CashMarket.TotalLiquidity); err != nil {
				return nil, err
			}
			asset.Market = market
		}
		acct.Portfolio = append(acct.Portfolio, asset)
	}

	return acct, nil
}
