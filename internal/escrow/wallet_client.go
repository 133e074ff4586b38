package escrow

import (
	"context"
	"fmt"

	"giftrails/internal/wallet"

	"github.com/ethereum/go-ethereum/common"
)

// WalletClient submits escrow calls through a wallet and waits for each to be
// mined.
type WalletClient struct {
	wallet  wallet.Wallet
	address string
}

func NewWalletClient(w wallet.Wallet, address string) (*WalletClient, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid escrow address %q", address)
	}
	return &WalletClient{wallet: w, address: address}, nil
}

func (c *WalletClient) Address() string { return c.address }

func (c *WalletClient) CreateGift(ctx context.Context, req CreateGiftRequest) (Receipt, error) {
	if err := validateCreateRequest(req); err != nil {
		return Receipt{}, err
	}
	return c.invoke(ctx, "createGift", map[string]any{
		"token":                req.Token,
		"recipient":            req.Recipient,
		"giver":                req.Giver,
		"redeemableUsdcAmount": req.RedeemableUSDC.String(),
		"initialBuyPrice":      req.InitialBuyPrice.String(),
	})
}

func (c *WalletClient) RedeemGift(ctx context.Context, req RedeemGiftRequest) (Receipt, error) {
	if req.GiftID == nil || req.GiftID.Sign() < 0 {
		return Receipt{}, fmt.Errorf("invalid gift id")
	}
	if req.Choice != ChoiceMemecoin && req.Choice != ChoiceUSDC {
		return Receipt{}, fmt.Errorf("%w: %d", ErrUnknownChoice, uint8(req.Choice))
	}
	return c.invoke(ctx, "redeemGift", map[string]any{
		"giftId": req.GiftID.String(),
		"choice": uint8(req.Choice),
	})
}

func (c *WalletClient) invoke(ctx context.Context, method string, args map[string]any) (Receipt, error) {
	tx, err := c.wallet.InvokeContract(ctx, wallet.Invocation{
		ContractAddress: c.address,
		Method:          method,
		ABI:             GiftEscrowABI,
		Args:            args,
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("%s: %w", method, err)
	}
	mined, err := tx.Wait(ctx)
	if err != nil {
		return Receipt{}, fmt.Errorf("%s: %w", method, err)
	}
	return Receipt{TxHash: mined.Hash, TxLink: mined.Link}, nil
}

func validateCreateRequest(req CreateGiftRequest) error {
	if !common.IsHexAddress(req.Token) {
		return fmt.Errorf("invalid token address")
	}
	if !common.IsHexAddress(req.Recipient) {
		return fmt.Errorf("invalid recipient address")
	}
	if !common.IsHexAddress(req.Giver) {
		return fmt.Errorf("invalid giver address")
	}
	if req.RedeemableUSDC == nil || req.RedeemableUSDC.Sign() < 0 {
		return fmt.Errorf("redeemable usdc amount required")
	}
	if req.InitialBuyPrice == nil || req.InitialBuyPrice.Sign() <= 0 {
		return fmt.Errorf("initial buy price required")
	}
	return nil
}
