package engine

import "errors"

var (
	// ErrMissingMarketData marks a liquidity token without a market
	// snapshot, or a market with zero total liquidity.
	ErrMissingMarketData = errors.New("engine: liquidity token missing market data")
	// ErrUnknownAssetType marks an asset outside the closed variant set.
	ErrUnknownAssetType = errors.New("engine: unknown asset type")
	// ErrUnknownCurrency marks a symbol absent from the snapshot table.
	ErrUnknownCurrency = errors.New("engine: currency not in snapshot")
)
