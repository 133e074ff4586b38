package escrow

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// GiftEscrowABI describes the escrow contract that holds purchased tokens
// until the recipient redeems them.
const GiftEscrowABI = `[
  {
    "type": "function",
    "name": "createGift",
    "stateMutability": "payable",
    "inputs": [
      {"name": "token", "type": "address"},
      {"name": "recipient", "type": "address"},
      {"name": "giver", "type": "address"},
      {"name": "redeemableUsdcAmount", "type": "uint256"},
      {"name": "initialBuyPrice", "type": "uint256"}
    ],
    "outputs": [{"name": "giftId", "type": "uint256"}]
  },
  {
    "type": "function",
    "name": "redeemGift",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "giftId", "type": "uint256"},
      {"name": "choice", "type": "uint8"}
    ],
    "outputs": []
  }
]`

var giftEscrowABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(GiftEscrowABI))
	if err != nil {
		panic("escrow: invalid gift escrow abi: " + err.Error())
	}
	return parsed
}()
