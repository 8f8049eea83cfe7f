package graph

// Query bodies mirror the subgraph schema. The exchange-rate selection pins
// the quote currency to ETH (id 0); rates flagged mustInvert are normalized
// by the decoder, never at valuation time.

const currenciesQuery = `{
  results: currencies {
    id
    name
    tokenAddress
    symbol
    decimals
    ethExchangeRate: baseExchangeRates(where: { quoteCurrency: "0" }) {
      rateOracle
      buffer
      rateDecimals
      mustInvert
      latestRate {
        lastUpdateTimestamp
        rate
      }
    }
  }
}`

const systemConfigurationQuery = `{
  systemConfiguration(id: "0") {
    settlementDiscount
    liquidationDiscount
    liquidityHaircut
    liquidityRepoIncentive
    fCashHaircut
    fCashMaxHaircut
    maxAssets
  }
}`

const accountQueryBody = `{
    id
    balances {
      cashBalance
      currency {
        id
        name
        symbol
      }
    }
    portfolio {
      assetId
      assetType
      notional
      maturity
      cashGroup {
        id
        currency {
          id
          symbol
        }
      }
      cashMarket {
        totalfCash
        totalLiquidity
        totalCurrentCash
      }
    }
  }`

const allAccountsQuery = `{
  results: accounts ` + accountQueryBody + `
}`
