package gift

import (
	"fmt"
	"math/big"
	"strings"

	"giftrails/internal/escrow"
	"giftrails/internal/units"
)

// Result describes a completed gift transfer.
type Result struct {
	Input          Input
	Quote          Quote
	Escrow         string
	RedeemableUSDC *big.Int
	BuyTxHash      string
	GiftTx         escrow.Receipt
}

func (r Result) Message() string {
	var b strings.Builder
	b.WriteString("Created gift transfer with fixed USDC redemption:\n")
	fmt.Fprintf(&b, "- Purchased %s tokens of %s\n", r.Quote.TokensOut, r.Input.MemecoinAddress)
	fmt.Fprintf(&b, "- From: %s\n", r.Input.Giver)
	fmt.Fprintf(&b, "- To: %s\n", r.Input.Recipient)
	fmt.Fprintf(&b, "- Initial ETH spent: %s ETH\n", units.FormatEther(r.Quote.AmountWei))
	fmt.Fprintf(&b, "- Platform fee: %s ETH\n", units.FormatEther(r.Quote.PlatformFee))
	fmt.Fprintf(&b, "- Fixed USDC redemption value: %s USDC\n", units.FormatUSDC(r.RedeemableUSDC))
	b.WriteString("- Recipient can choose to receive either:\n")
	b.WriteString("  1. The memecoin tokens\n")
	b.WriteString("  2. The fixed USDC amount\n")
	fmt.Fprintf(&b, "Gift creation tx: %s\n", r.GiftTx.TxHash)
	fmt.Fprintf(&b, "Transaction link: %s", r.GiftTx.TxLink)
	return b.String()
}

type RedeemResult struct {
	GiftID *big.Int
	Choice escrow.Choice
	Tx     escrow.Receipt
}

func (r RedeemResult) Message() string {
	return fmt.Sprintf("Redeemed gift %s as %s\nRedemption tx: %s\nTransaction link: %s",
		r.GiftID, r.Choice, r.Tx.TxHash, r.Tx.TxLink)
}
