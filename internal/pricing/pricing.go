// Package pricing values token amounts in USDC base units (6 decimals).
package pricing

import (
	"context"
	"fmt"
	"math/big"

	"giftrails/internal/units"
)

// Pricer returns the USDC value, in micro-USDC, of tokenAmount of token.
type Pricer interface {
	USDCValue(ctx context.Context, networkID, token string, tokenAmount *big.Int) (*big.Int, error)
}

// SellQuoter is the part of the WOW quoter the static pricer needs.
type SellQuoter interface {
	SellQuote(ctx context.Context, networkID, token string, tokens *big.Int) (*big.Int, error)
}

// DefaultEthUSDC is the fixed ETH/USDC rate used until a price feed is wired.
const DefaultEthUSDC = "2000"

var weiPerEther = new(big.Int).Exp(big.NewInt(10), big.NewInt(units.EtherDecimals), nil)

// StaticPricer converts tokens to ETH with the token's sell quote, then ETH to
// USDC at a fixed rate.
type StaticPricer struct {
	quotes SellQuoter
	// ethPrice is micro-USDC per whole ETH.
	ethPrice *big.Int
}

// NewStaticPricer parses ethUSDC as a decimal dollar price such as "2000" or
// "1999.25".
func NewStaticPricer(quotes SellQuoter, ethUSDC string) (*StaticPricer, error) {
	if ethUSDC == "" {
		ethUSDC = DefaultEthUSDC
	}
	price, err := units.ParseUnits(ethUSDC, units.USDCDecimals)
	if err != nil {
		return nil, fmt.Errorf("eth/usdc price: %w", err)
	}
	if price.Sign() <= 0 {
		return nil, fmt.Errorf("eth/usdc price must be positive")
	}
	return &StaticPricer{quotes: quotes, ethPrice: price}, nil
}

func (p *StaticPricer) USDCValue(ctx context.Context, networkID, token string, tokenAmount *big.Int) (*big.Int, error) {
	sellWei, err := p.quotes.SellQuote(ctx, networkID, token, tokenAmount)
	if err != nil {
		return nil, fmt.Errorf("sell quote: %w", err)
	}
	return ToUSDC(sellWei, p.ethPrice), nil
}

// ToUSDC returns floor(wei * priceMicroUSDC / 1e18).
func ToUSDC(wei, priceMicroUSDC *big.Int) *big.Int {
	out := new(big.Int).Mul(wei, priceMicroUSDC)
	return out.Quo(out, weiPerEther)
}
