// Package wow wraps the WOW bonding-curve token contract: its ABI and the
// read-only quote functions used to size purchases.
package wow

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Market types reported by the token and expected by buy/sell.
const (
	MarketBondingCurve uint8 = 0
	MarketUniswap      uint8 = 1
)

// TokenABI is the subset of the WOW token interface the gift flow touches.
const TokenABI = `[
  {
    "type": "function",
    "name": "buy",
    "stateMutability": "payable",
    "inputs": [
      {"name": "recipient", "type": "address"},
      {"name": "refundRecipient", "type": "address"},
      {"name": "orderReferrer", "type": "address"},
      {"name": "comment", "type": "string"},
      {"name": "expectedMarketType", "type": "uint8"},
      {"name": "minOrderSize", "type": "uint256"},
      {"name": "sqrtPriceLimitX96", "type": "uint160"}
    ],
    "outputs": [{"name": "", "type": "uint256"}]
  },
  {
    "type": "function",
    "name": "sell",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "tokensToSell", "type": "uint256"},
      {"name": "recipient", "type": "address"},
      {"name": "orderReferrer", "type": "address"},
      {"name": "comment", "type": "string"},
      {"name": "expectedMarketType", "type": "uint8"},
      {"name": "minPayoutSize", "type": "uint256"},
      {"name": "sqrtPriceLimitX96", "type": "uint160"}
    ],
    "outputs": [{"name": "", "type": "uint256"}]
  },
  {
    "type": "function",
    "name": "getEthBuyQuote",
    "stateMutability": "view",
    "inputs": [{"name": "ethOrderSize", "type": "uint256"}],
    "outputs": [{"name": "", "type": "uint256"}]
  },
  {
    "type": "function",
    "name": "getTokenSellQuote",
    "stateMutability": "view",
    "inputs": [{"name": "tokenOrderSize", "type": "uint256"}],
    "outputs": [{"name": "", "type": "uint256"}]
  },
  {
    "type": "function",
    "name": "marketType",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [{"name": "", "type": "uint8"}]
  }
]`

var tokenABI = mustParse(TokenABI)

func mustParse(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("wow: invalid token abi: " + err.Error())
	}
	return parsed
}
