package types

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Wei is the shared fixed-point scale: fractional system parameters and
// exchange-rate buffers express 1.0 as 1e18.
var Wei = mustBigInt("1000000000000000000")

// SecondsInYear is the denominator used by the fCash time-decay haircut.
const SecondsInYear = 31_536_000

// ETHCurrencyID and WETHCurrencyID are treated as equivalent when matching
// portfolio assets against cash balances.
const (
	ETHCurrencyID  = -1
	WETHCurrencyID = 0
)

var ErrNoExchangeRate = errors.New("types: currency has no ETH exchange rate")

func mustBigInt(value string) *big.Int {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		panic("invalid big integer constant")
	}
	return v
}

// AssetType tags the closed set of portfolio position variants.
type AssetType uint8

const (
	CashPayer AssetType = iota + 1
	CashReceiver
	LiquidityToken
)

func (t AssetType) String() string {
	switch t {
	case CashPayer:
		return "CashPayer"
	case CashReceiver:
		return "CashReceiver"
	case LiquidityToken:
		return "LiquidityToken"
	}
	return "Unknown"
}

// Currency describes a token listed in the system together with its ETH
// exchange-rate data. The rate is pre-normalized: inversion is applied when
// the snapshot is loaded, never during valuation.
type Currency struct {
	ID              int
	Name            string
	Symbol          string
	Address         common.Address
	DecimalPlaces   int
	Decimals        *big.Int
	RateDecimals    *big.Int
	Buffer          *big.Int
	ETHExchangeRate *big.Int
}

// Validate reports whether the currency carries usable exchange-rate data.
func (c *Currency) Validate() error {
	if c == nil || c.ETHExchangeRate == nil || c.ETHExchangeRate.Sign() == 0 ||
		c.RateDecimals == nil || c.RateDecimals.Sign() == 0 ||
		c.Decimals == nil || c.Decimals.Sign() == 0 || c.Buffer == nil {
		return ErrNoExchangeRate
	}
	return nil
}

// CashMarket is the market snapshot a liquidity token draws its pro-rata
// claims from.
type CashMarket struct {
	MarketKey        string
	Maturity         int64
	TotalfCash       *big.Int
	TotalCurrentCash *big.Int
	TotalLiquidity   *big.Int
}

// Asset is a single portfolio position. Only liquidity tokens carry a
// market snapshot.
type Asset struct {
	CurrencyID int
	Symbol     string
	MarketKey  string
	Maturity   int64
	Type       AssetType
	Notional   *big.Int
	Market     *CashMarket
}

// HasMatured reports whether the asset is past maturity at the given
// reference time.
func (a *Asset) HasMatured(blockTime int64) bool {
	return a.Maturity <= blockTime
}

// Balance is a per-currency cash balance as recorded on the escrow ledger.
type Balance struct {
	CurrencyID  int
	Symbol      string
	CashBalance *big.Int
}

// Copy returns an independent balance so effective-balance folding never
// mutates the snapshot.
func (b *Balance) Copy() *Balance {
	out := &Balance{CurrencyID: b.CurrencyID, Symbol: b.Symbol, CashBalance: big.NewInt(0)}
	if b.CashBalance != nil {
		out.CashBalance = new(big.Int).Set(b.CashBalance)
	}
	return out
}

// Balances maps currency symbol to cash balance for one account.
type Balances map[string]*Balance

// ForCurrency returns the stored balance for the currency, or a zero-value
// balance carrying the currency's identity when none exists.
func (b Balances) ForCurrency(c *Currency) *Balance {
	if bal, ok := b[c.Symbol]; ok {
		return bal
	}
	return &Balance{CurrencyID: c.ID, Symbol: c.Symbol, CashBalance: big.NewInt(0)}
}

// Get returns the balance for a symbol, defaulting identity from the asset
// when the escrow ledger has no entry yet.
func (b Balances) Get(symbol string, currencyID int) *Balance {
	if bal, ok := b[symbol]; ok {
		return bal
	}
	return &Balance{CurrencyID: currencyID, Symbol: symbol, CashBalance: big.NewInt(0)}
}

// Copy deep-copies the balance map.
func (b Balances) Copy() Balances {
	out := make(Balances, len(b))
	for k, v := range b {
		out[k] = v.Copy()
	}
	return out
}

// Account is an address with escrow balances and an ordered portfolio. The
// portfolio order is the subgraph's stable storage order and is part of the
// fCash purchase contract.
type Account struct {
	Address        common.Address
	EscrowBalances Balances
	Portfolio      []*Asset
}

// SystemConfiguration carries the global fixed-point risk parameters, all
// fractions over the Wei scale.
type SystemConfiguration struct {
	MaxAssets              int
	SettlementDiscount     *big.Int
	LiquidationDiscount    *big.Int
	LiquidityHaircut       *big.Int
	LiquidityRepoIncentive *big.Int
	FCashHaircut           *big.Int
	FCashMaxHaircut        *big.Int
}

// Snapshot is one immutable view of the system: the currency table, the
// governance parameters and the reference time they were read at. Engine
// functions take a snapshot by reference and never mutate it; callers swap
// whole snapshots atomically when upstream data refreshes.
type Snapshot struct {
	Currencies []*Currency
	Config     *SystemConfiguration
	BlockTime  int64

	bySymbol map[string]*Currency
	byID     map[int]*Currency
}

// NewSnapshot indexes the currency table and validates that every currency
// carries exchange-rate data.
func NewSnapshot(currencies []*Currency, cfg *SystemConfiguration, blockTime int64) (*Snapshot, error) {
	s := &Snapshot{
		Currencies: currencies,
		Config:     cfg,
		BlockTime:  blockTime,
		bySymbol:   make(map[string]*Currency, len(currencies)),
		byID:       make(map[int]*Currency, len(currencies)),
	}
	for _, c := range currencies {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		s.bySymbol[c.Symbol] = c
		s.byID[c.ID] = c
	}
	return s, nil
}

// CurrencyBySymbol returns the currency for a symbol, or nil.
func (s *Snapshot) CurrencyBySymbol(symbol string) *Currency {
	return s.bySymbol[symbol]
}

// CurrencyByID returns the currency for a numeric id, treating ETH and WETH
// as the same unit.
func (s *Snapshot) CurrencyByID(id int) *Currency {
	if c, ok := s.byID[id]; ok {
		return c
	}
	if id == ETHCurrencyID {
		return s.byID[WETHCurrencyID]
	}
	return nil
}
