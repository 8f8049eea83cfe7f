package engine

import (
	"encoding/json"
	"math/big"

	"liquidator/core/types"
)

// Output records serialize big integers as decimal strings so downstream
// consumers never lose precision to float parsing.

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func (p *FCashPurchase) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Maturity      int64  `json:"maturity"`
		MarketKey     string `json:"marketKey"`
		Notional      string `json:"notional"`
		DiscountValue string `json:"discountValue"`
	}{
		Maturity:      p.Maturity,
		MarketKey:     p.MarketKey,
		Notional:      bigString(p.Notional),
		DiscountValue: bigString(p.DiscountValue),
	})
}

func (p *LiquidatePair) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		LocalCurrency           string           `json:"localCurrency"`
		CollateralCurrency      string           `json:"collateralCurrency,omitempty"`
		LocalRequired           string           `json:"localRequired"`
		CollateralPurchased     string           `json:"collateralPurchased"`
		LocalTokenCashWithdrawn string           `json:"localTokenCashWithdrawn"`
		TokenLiquidateFee       string           `json:"tokenLiquidateFee"`
		ETHShortfallRecovered   string           `json:"ethShortfallRecovered"`
		EffectiveExchangeRate   string           `json:"effectiveExchangeRate"`
		FCashPurchased          []*FCashPurchase `json:"fCashPurchased,omitempty"`
	}{
		LocalCurrency:           p.LocalCurrency.Symbol,
		CollateralCurrency:      currencySymbol(p.CollateralCurrency),
		LocalRequired:           bigString(p.LocalRequired),
		CollateralPurchased:     bigString(p.CollateralPurchased),
		LocalTokenCashWithdrawn: bigString(p.LocalTokenCashWithdrawn),
		TokenLiquidateFee:       bigString(p.TokenLiquidateFee),
		ETHShortfallRecovered:   bigString(p.ETHShortfallRecovered),
		EffectiveExchangeRate:   bigString(p.EffectiveExchangeRate),
		FCashPurchased:          p.FCashPurchased,
	})
}

func (p *SettlePair) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		LocalCurrency         string           `json:"localCurrency"`
		CollateralCurrency    string           `json:"collateralCurrency,omitempty"`
		CashBalance           string           `json:"cashBalance"`
		LocalRequired         string           `json:"localRequired"`
		CollateralPurchased   string           `json:"collateralPurchased"`
		EffectiveExchangeRate string           `json:"effectiveExchangeRate"`
		FCashPurchased        []*FCashPurchase `json:"fCashPurchased,omitempty"`
	}{
		LocalCurrency:         p.LocalCurrency.Symbol,
		CollateralCurrency:    currencySymbol(p.CollateralCurrency),
		CashBalance:           bigString(p.CashBalance),
		LocalRequired:         bigString(p.LocalRequired),
		CollateralPurchased:   bigString(p.CollateralPurchased),
		EffectiveExchangeRate: bigString(p.EffectiveExchangeRate),
		FCashPurchased:        p.FCashPurchased,
	})
}

func (l *Liquidatable) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Address                 string           `json:"address"`
		ETHDenominatedShortfall string           `json:"ethDenominatedShortfall"`
		Pairs                   []*LiquidatePair `json:"pairs"`
	}{
		Address:                 l.Address.Hex(),
		ETHDenominatedShortfall: bigString(l.ETHDenominatedShortfall),
		Pairs:                   l.Pairs,
	})
}

func (s *Settleable) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Address string        `json:"address"`
		Pairs   []*SettlePair `json:"pairs"`
	}{
		Address: s.Address.Hex(),
		Pairs:   s.Pairs,
	})
}

func currencySymbol(c *types.Currency) string {
	if c == nil {
		return ""
	}
	return c.Symbol
}
