package action

import (
	"context"
	"fmt"

	"giftrails/internal/gift"
	"giftrails/internal/wallet"
)

// GiftActions returns the gift_transfer and gift_redeem actions backed by svc.
func GiftActions(svc *gift.Service) ([]*Action, error) {
	transfer, err := Define(gift.TransferActionName, gift.TransferPrompt,
		func(ctx context.Context, w wallet.Wallet, in gift.Input) (Outcome, error) {
			res, err := svc.Transfer(ctx, w, in)
			if err != nil {
				return Outcome{}, err
			}
			return Outcome{Message: res.Message(), TxHash: res.GiftTx.TxHash, TxLink: res.GiftTx.TxLink}, nil
		},
		gift.TransferErrorMessage,
	)
	if err != nil {
		return nil, err
	}

	redeem, err := Define(gift.RedeemActionName, gift.RedeemPrompt,
		func(ctx context.Context, w wallet.Wallet, in gift.RedeemInput) (Outcome, error) {
			res, err := svc.Redeem(ctx, w, in)
			if err != nil {
				return Outcome{}, err
			}
			return Outcome{Message: res.Message(), TxHash: res.Tx.TxHash, TxLink: res.Tx.TxLink}, nil
		},
		gift.RedeemErrorMessage,
	)
	if err != nil {
		return nil, fmt.Errorf("define redeem: %w", err)
	}
	return []*Action{transfer, redeem}, nil
}

// NewGiftRegistry registers the gift actions.
func NewGiftRegistry(svc *gift.Service) (*Registry, error) {
	actions, err := GiftActions(svc)
	if err != nil {
		return nil, err
	}
	return NewRegistry(actions...)
}
