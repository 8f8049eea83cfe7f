package types

import (
	"encoding/json"
	"math/big"
)

// bigString renders a big.Int as a decimal string, "0" when nil. All
// monetary JSON fields use decimal strings so downstream consumers never
// lose precision to float parsing.
func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func (t AssetType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (c *Currency) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID              int    `json:"id"`
		Name            string `json:"name"`
		Symbol          string `json:"symbol"`
		Address         string `json:"address"`
		DecimalPlaces   int    `json:"decimalPlaces"`
		Decimals        string `json:"decimals"`
		RateDecimals    string `json:"rateDecimals"`
		Buffer          string `json:"buffer"`
		ETHExchangeRate string `json:"currentETHExchangeRate"`
	}{
		ID:              c.ID,
		Name:            c.Name,
		Symbol:          c.Symbol,
		Address:         c.Address.Hex(),
		DecimalPlaces:   c.DecimalPlaces,
		Decimals:        bigString(c.Decimals),
		RateDecimals:    bigString(c.RateDecimals),
		Buffer:          bigString(c.Buffer),
		ETHExchangeRate: bigString(c.ETHExchangeRate),
	})
}

func (b *Balance) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		CurrencyID  int    `json:"currencyId"`
		Symbol      string `json:"symbol"`
		CashBalance string `json:"cashBalance"`
	}{b.CurrencyID, b.Symbol, bigString(b.CashBalance)})
}

func (a *Asset) MarshalJSON() ([]byte, error) {
	out := struct {
		CurrencyID int         `json:"currencyId"`
		Symbol     string      `json:"symbol"`
		MarketKey  string      `json:"marketKey"`
		Maturity   int64       `json:"maturity"`
		Type       AssetType   `json:"assetType"`
		Notional   string      `json:"notional"`
		Market     *CashMarket `json:"cashMarket,omitempty"`
	}{a.CurrencyID, a.Symbol, a.MarketKey, a.Maturity, a.Type, bigString(a.Notional), a.Market}
	return json.Marshal(out)
}

func (m *CashMarket) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		MarketKey        string `json:"marketKey"`
		Maturity         int64  `json:"maturity"`
		TotalfCash       string `json:"totalfCash"`
		TotalCurrentCash string `json:"totalCurrentCash"`
		TotalLiquidity   string `json:"totalLiquidity"`
	}{m.MarketKey, m.Maturity, bigString(m.TotalfCash), bigString(m.TotalCurrentCash), bigString(m.TotalLiquidity)})
}
