// Package escrow talks to the gift escrow contract.
package escrow

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// Choice is the recipient's redemption decision.
type Choice uint8

const (
	ChoiceMemecoin Choice = 0
	ChoiceUSDC     Choice = 1
)

var ErrUnknownChoice = errors.New("unknown redemption choice")

func (c Choice) String() string {
	switch c {
	case ChoiceMemecoin:
		return "memecoin"
	case ChoiceUSDC:
		return "USDC"
	}
	return fmt.Sprintf("choice(%d)", uint8(c))
}

// ParseChoice accepts "memecoin"/"usdc" or the on-chain values "0"/"1".
func ParseChoice(s string) (Choice, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "memecoin", "token", "0":
		return ChoiceMemecoin, nil
	case "usdc", "1":
		return ChoiceUSDC, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownChoice, s)
}

// Client abstracts the on-chain escrow interaction.
type Client interface {
	CreateGift(ctx context.Context, req CreateGiftRequest) (Receipt, error)
	RedeemGift(ctx context.Context, req RedeemGiftRequest) (Receipt, error)
}

type CreateGiftRequest struct {
	Token     string
	Recipient string
	Giver     string
	// RedeemableUSDC is in micro-USDC.
	RedeemableUSDC *big.Int
	// InitialBuyPrice is the wei spent on the purchase, excluding fees.
	InitialBuyPrice *big.Int
}

type RedeemGiftRequest struct {
	GiftID *big.Int
	Choice Choice
}

// Receipt identifies a mined escrow transaction.
type Receipt struct {
	TxHash string
	TxLink string
}
