package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// portfoliosABI is the fragment of the portfolios contract the service
// reads. freeCollateralView returns the aggregate free collateral and the
// per-currency net available figures.
const portfoliosABI = `[{
	"name": "freeCollateralView",
	"type": "function",
	"stateMutability": "view",
	"inputs": [{"name": "account", "type": "address"}],
	"outputs": [
		{"name": "", "type": "int256"},
		{"name": "", "type": "int256[]"}
	]
}]`

// NodeClient wraps the ledger node RPC endpoint with the contract calls the
// service needs.
type NodeClient struct {
	eth        *ethclient.Client
	portfolios common.Address
	abi        abi.ABI
}

// Dial connects to the node and binds the portfolios contract address.
func Dial(ctx context.Context, rpcURL string, portfolios common.Address) (*NodeClient, error) {
	parsed, err := abi.JSON(strings.NewReader(portfoliosABI))
	if err != nil {
		return nil, fmt.Errorf("chain: parse portfolios abi: %w", err)
	}
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", rpcURL, err)
	}
	return &NodeClient{eth: eth, portfolios: portfolios, abi: parsed}, nil
}

// Close releases the underlying RPC connection.
func (c *NodeClient) Close() {
	c.eth.Close()
}

// FreeCollateralView returns the node's own aggregate free collateral
// figure for the account, the source of truth local computation reconciles
// against.
func (c *NodeClient) FreeCollateralView(ctx context.Context, account common.Address) (*big.Int, []*big.Int, error) {
	data, err := c.abi.Pack("freeCollateralView", account)
	if err != nil {
		return nil, nil, fmt.Errorf("chain: pack freeCollateralView: %w", err)
	}

	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &c.portfolios, Data: data}, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("chain: freeCollateralView %s: %w", account.Hex(), err)
	}

	values, err := c.abi.Unpack("freeCollateralView", out)
	if err != nil {
		return nil, nil, fmt.Errorf("chain: unpack freeCollateralView: %w", err)
	}
	if len(values) != 2 {
		return nil, nil, fmt.Errorf("chain: freeCollateralView returned %d values", len(values))
	}

	aggregate, ok := values[0].(*big.Int)
	if !ok {
		return nil, nil, fmt.Errorf("chain: freeCollateralView aggregate has type %T", values[0])
	}
	perCurrency, ok := values[1].([]*big.Int)
	if !ok {
		return nil, nil, fmt.Errorf("chain: freeCollateralView currencies have type %T", values[1])
	}
	return aggregate, perCurrency, nil
}
