package gift

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"giftrails/internal/escrow"
	"giftrails/internal/units"

	"github.com/ethereum/go-ethereum/common"
)

var ErrInvalidInput = errors.New("invalid input")

// Input is the argument set of the gift_transfer action.
type Input struct {
	AmountEthInWei  string `json:"amount_eth_in_wei" mapstructure:"amount_eth_in_wei" jsonschema:"Amount of ETH to spend on memecoin (in wei)"`
	MemecoinAddress string `json:"memecoin_address" mapstructure:"memecoin_address" jsonschema:"The memecoin token address to purchase and gift"`
	Recipient       string `json:"recipient" mapstructure:"recipient" jsonschema:"The address to receive the gift"`
	Giver           string `json:"giver" mapstructure:"giver" jsonschema:"The address sending the gift"`
}

func (in Input) Validate() error {
	if _, err := units.ParseInteger(in.AmountEthInWei); err != nil {
		return fmt.Errorf("%w: amount_eth_in_wei: %v", ErrInvalidInput, err)
	}
	for _, f := range [...]struct{ name, addr string }{
		{"memecoin_address", in.MemecoinAddress},
		{"recipient", in.Recipient},
		{"giver", in.Giver},
	} {
		if !common.IsHexAddress(strings.TrimSpace(f.addr)) {
			return fmt.Errorf("%w: %s is not an address: %q", ErrInvalidInput, f.name, f.addr)
		}
	}
	return nil
}

func (in Input) amount() *big.Int {
	v, _ := units.ParseInteger(in.AmountEthInWei)
	return v
}

// RedeemInput is the argument set of the gift_redeem action.
type RedeemInput struct {
	GiftID string `json:"gift_id" mapstructure:"gift_id" jsonschema:"The escrow gift id to redeem"`
	Choice string `json:"choice" mapstructure:"choice" jsonschema:"Receive the memecoin or the fixed USDC amount: memecoin or usdc"`
}

func (in RedeemInput) Validate() error {
	if _, err := in.parse(); err != nil {
		return err
	}
	return nil
}

func (in RedeemInput) parse() (escrow.RedeemGiftRequest, error) {
	id, ok := new(big.Int).SetString(strings.TrimSpace(in.GiftID), 10)
	if !ok || id.Sign() < 0 {
		return escrow.RedeemGiftRequest{}, fmt.Errorf("%w: gift_id must be a non-negative integer: %q", ErrInvalidInput, in.GiftID)
	}
	choice, err := escrow.ParseChoice(in.Choice)
	if err != nil {
		return escrow.RedeemGiftRequest{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return escrow.RedeemGiftRequest{GiftID: id, Choice: choice}, nil
}
