package wow

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// Quoter prices orders against a WOW token.
type Quoter interface {
	// BuyQuote returns the tokens received for ethWei.
	BuyQuote(ctx context.Context, networkID, token string, ethWei *big.Int) (*big.Int, error)
	// SellQuote returns the wei received for selling tokens.
	SellQuote(ctx context.Context, networkID, token string, tokens *big.Int) (*big.Int, error)
	// MarketType reports MarketBondingCurve or MarketUniswap.
	MarketType(ctx context.Context, networkID, token string) (uint8, error)
}

// ContractQuoter reads quotes straight from the token contract with eth_call.
type ContractQuoter struct {
	networkID string
	caller    bind.ContractCaller
}

func NewContractQuoter(networkID string, caller bind.ContractCaller) *ContractQuoter {
	return &ContractQuoter{networkID: networkID, caller: caller}
}

func (q *ContractQuoter) BuyQuote(ctx context.Context, networkID, token string, ethWei *big.Int) (*big.Int, error) {
	return q.quote(ctx, networkID, token, "getEthBuyQuote", ethWei)
}

func (q *ContractQuoter) SellQuote(ctx context.Context, networkID, token string, tokens *big.Int) (*big.Int, error) {
	return q.quote(ctx, networkID, token, "getTokenSellQuote", tokens)
}

// MarketType reports whether the token still trades on its bonding curve.
func (q *ContractQuoter) MarketType(ctx context.Context, networkID, token string) (uint8, error) {
	if networkID != q.networkID {
		return 0, fmt.Errorf("quoter is bound to %s, not %s", q.networkID, networkID)
	}
	bound, err := q.bind(token)
	if err != nil {
		return 0, err
	}
	var out []any
	if err := bound.Call(&bind.CallOpts{Context: ctx}, &out, "marketType"); err != nil {
		return 0, fmt.Errorf("marketType: %w", err)
	}
	mt, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("marketType: unexpected result %T", out[0])
	}
	return mt, nil
}

func (q *ContractQuoter) quote(ctx context.Context, networkID, token, method string, amount *big.Int) (*big.Int, error) {
	if networkID != q.networkID {
		return nil, fmt.Errorf("quoter is bound to %s, not %s", q.networkID, networkID)
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("%s: amount must be positive", method)
	}
	bound, err := q.bind(token)
	if err != nil {
		return nil, err
	}
	var out []any
	if err := bound.Call(&bind.CallOpts{Context: ctx}, &out, method, amount); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected result %T", method, out[0])
	}
	return v, nil
}

func (q *ContractQuoter) bind(token string) (*bind.BoundContract, error) {
	if !common.IsHexAddress(token) {
		return nil, fmt.Errorf("invalid token address %q", token)
	}
	return bind.NewBoundContract(common.HexToAddress(token), tokenABI, q.caller, nil, nil), nil
}
