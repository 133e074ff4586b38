// Package gift implements the gift transfer action: buy a memecoin into escrow
// and record a fixed USDC redemption value for the recipient.
package gift

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"giftrails/internal/escrow"
	"giftrails/internal/pricing"
	"giftrails/internal/units"
	"giftrails/internal/wallet"
	"giftrails/internal/wow"

	"go.uber.org/zap"
)

const (
	DefaultPlatformFeeBps int64 = 300
	DefaultSlippageBps    int64 = 100
)

var (
	ErrNoEscrow       = errors.New("no escrow contract configured")
	ErrTokenGraduated = errors.New("token no longer trades on its bonding curve")
)

// PartialTransferError reports a failure after the buy transaction was
// broadcast. The purchased tokens may already be held by the escrow, so the
// transfer must not be replayed blindly.
type PartialTransferError struct {
	BuyTxHash string
	BuyTxLink string
	Err       error
}

func (e *PartialTransferError) Error() string {
	return fmt.Sprintf("%v (buy tx %s already sent)", e.Err, e.BuyTxHash)
}

func (e *PartialTransferError) Unwrap() error { return e.Err }

// Step names reported to a StepObserver.
const (
	StepQuote  = "quote"
	StepBuy    = "buy"
	StepPrice  = "price"
	StepEscrow = "escrow"
	StepRedeem = "redeem"
)

// StepObserver receives the latency and outcome of each external call.
type StepObserver interface {
	ObserveStep(step string, took time.Duration, err error)
}

type Options struct {
	// Escrows maps network id to escrow contract address.
	Escrows map[string]string
	// PlatformFeeBps and SlippageBps fall back to the defaults when nil.
	PlatformFeeBps *int64
	SlippageBps    *int64
	Logger         *zap.Logger
	Observer       StepObserver
}

type Service struct {
	quoter   wow.Quoter
	pricer   pricing.Pricer
	escrows  map[string]string
	feeBps   int64
	slipBps  int64
	logger   *zap.Logger
	observer StepObserver
}

func NewService(quoter wow.Quoter, pricer pricing.Pricer, opts Options) (*Service, error) {
	if quoter == nil || pricer == nil {
		return nil, fmt.Errorf("quoter and pricer are required")
	}
	fee := DefaultPlatformFeeBps
	if opts.PlatformFeeBps != nil {
		fee = *opts.PlatformFeeBps
	}
	slip := DefaultSlippageBps
	if opts.SlippageBps != nil {
		slip = *opts.SlippageBps
	}
	if fee < 0 || fee > 10_000 {
		return nil, fmt.Errorf("platform fee bps out of range: %d", fee)
	}
	if slip < 0 || slip >= 10_000 {
		return nil, fmt.Errorf("slippage bps out of range: %d", slip)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	escrows := make(map[string]string, len(opts.Escrows))
	for k, v := range opts.Escrows {
		escrows[k] = v
	}
	return &Service{
		quoter:   quoter,
		pricer:   pricer,
		escrows:  escrows,
		feeBps:   fee,
		slipBps:  slip,
		logger:   logger,
		observer: opts.Observer,
	}, nil
}

// Bps is a helper for setting the optional basis-point fields of Options.
func Bps(v int64) *int64 { return &v }

// EscrowAddress returns the escrow contract configured for networkID.
func (s *Service) EscrowAddress(networkID string) (string, error) {
	addr := strings.TrimSpace(s.escrows[networkID])
	if addr == "" {
		return "", fmt.Errorf("%w for network %q", ErrNoEscrow, networkID)
	}
	return addr, nil
}

// Quote holds the arithmetic derived from a purchase amount before any
// transaction is sent.
type Quote struct {
	AmountWei    *big.Int
	PlatformFee  *big.Int
	TotalWei     *big.Int
	TokensOut    *big.Int
	MinOrderSize *big.Int
}

// Fees computes the platform fee and total value for amountWei.
func (s *Service) Fees(amountWei *big.Int) (fee, total *big.Int) {
	fee = units.ApplyBps(amountWei, s.feeBps)
	return fee, new(big.Int).Add(amountWei, fee)
}

// MinOrderSize is the buy quote less the allowed slippage.
func (s *Service) MinOrderSize(tokensOut *big.Int) *big.Int {
	return units.ApplyBps(tokensOut, 10_000-s.slipBps)
}

// Transfer buys the memecoin into escrow and creates the gift.
func (s *Service) Transfer(ctx context.Context, w wallet.Wallet, in Input) (Result, error) {
	if err := in.Validate(); err != nil {
		return Result{}, err
	}
	network := w.NetworkID()
	log := s.logger.With(
		zap.String("network", network),
		zap.String("token", in.MemecoinAddress),
		zap.String("recipient", in.Recipient),
	)

	escrowAddr, err := s.EscrowAddress(network)
	if err != nil {
		return Result{}, err
	}
	escrowClient, err := escrow.NewWalletClient(w, escrowAddr)
	if err != nil {
		return Result{}, err
	}

	q := Quote{AmountWei: in.amount()}
	q.PlatformFee, q.TotalWei = s.Fees(q.AmountWei)

	err = s.step(StepQuote, func() error {
		market, err := s.quoter.MarketType(ctx, network, in.MemecoinAddress)
		if err != nil {
			return fmt.Errorf("market type: %w", err)
		}
		if market != wow.MarketBondingCurve {
			return fmt.Errorf("%w: %s", ErrTokenGraduated, in.MemecoinAddress)
		}
		out, err := s.quoter.BuyQuote(ctx, network, in.MemecoinAddress, q.AmountWei)
		if err != nil {
			return fmt.Errorf("buy quote: %w", err)
		}
		q.TokensOut = out
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	q.MinOrderSize = s.MinOrderSize(q.TokensOut)
	log.Debug("quoted gift purchase",
		zap.String("tokens_out", q.TokensOut.String()),
		zap.String("total_wei", q.TotalWei.String()))

	var sent, buyTx *wallet.Transaction
	err = s.step(StepBuy, func() error {
		tx, err := w.InvokeContract(ctx, wallet.Invocation{
			ContractAddress: in.MemecoinAddress,
			Method:          "buy",
			ABI:             wow.TokenABI,
			Args: map[string]any{
				"recipient":          escrowAddr,
				"refundRecipient":    w.DefaultAddress(),
				"orderReferrer":      wallet.ZeroAddress,
				"expectedMarketType": "0",
				"minOrderSize":       q.MinOrderSize.String(),
				"sqrtPriceLimitX96":  "0",
				"comment":            "Gift purchase for " + in.Recipient,
			},
			Amount: q.TotalWei,
		})
		if err != nil {
			return fmt.Errorf("buy: %w", err)
		}
		sent = tx
		if buyTx, err = tx.Wait(ctx); err != nil {
			return fmt.Errorf("buy: %w", err)
		}
		return nil
	})
	if err != nil {
		// A revert spent nothing but gas; any other wait failure leaves the buy
		// outcome unknown.
		if sent != nil && !errors.Is(err, wallet.ErrReverted) {
			return Result{}, &PartialTransferError{BuyTxHash: sent.Hash, BuyTxLink: sent.Link, Err: err}
		}
		return Result{}, err
	}
	log.Info("memecoin purchased into escrow", zap.String("tx", buyTx.Hash))

	var usdc *big.Int
	err = s.step(StepPrice, func() error {
		v, err := s.pricer.USDCValue(ctx, network, in.MemecoinAddress, q.TokensOut)
		if err != nil {
			return fmt.Errorf("usdc price: %w", err)
		}
		usdc = v
		return nil
	})
	if err != nil {
		return Result{}, &PartialTransferError{BuyTxHash: buyTx.Hash, BuyTxLink: buyTx.Link, Err: err}
	}

	var receipt escrow.Receipt
	err = s.step(StepEscrow, func() error {
		r, err := escrowClient.CreateGift(ctx, escrow.CreateGiftRequest{
			Token:           in.MemecoinAddress,
			Recipient:       in.Recipient,
			Giver:           in.Giver,
			RedeemableUSDC:  usdc,
			InitialBuyPrice: q.AmountWei,
		})
		receipt = r
		return err
	})
	if err != nil {
		return Result{}, &PartialTransferError{BuyTxHash: buyTx.Hash, BuyTxLink: buyTx.Link, Err: err}
	}
	log.Info("gift created", zap.String("tx", receipt.TxHash), zap.String("usdc", units.FormatUSDC(usdc)))

	return Result{
		Input:          in,
		Quote:          q,
		Escrow:         escrowAddr,
		RedeemableUSDC: usdc,
		BuyTxHash:      buyTx.Hash,
		GiftTx:         receipt,
	}, nil
}

// Run is the host-framework entry point: every failure collapses into a
// single error message.
func (s *Service) Run(ctx context.Context, w wallet.Wallet, in Input) string {
	res, err := s.Transfer(ctx, w, in)
	if err != nil {
		return TransferErrorMessage(err)
	}
	return res.Message()
}

func TransferErrorMessage(err error) string {
	return "Error in gift transfer: " + err.Error()
}

// Redeem settles a gift as either the memecoin or the fixed USDC amount.
func (s *Service) Redeem(ctx context.Context, w wallet.Wallet, in RedeemInput) (RedeemResult, error) {
	req, err := in.parse()
	if err != nil {
		return RedeemResult{}, err
	}
	escrowAddr, err := s.EscrowAddress(w.NetworkID())
	if err != nil {
		return RedeemResult{}, err
	}
	client, err := escrow.NewWalletClient(w, escrowAddr)
	if err != nil {
		return RedeemResult{}, err
	}

	var receipt escrow.Receipt
	err = s.step(StepRedeem, func() error {
		receipt, err = client.RedeemGift(ctx, req)
		return err
	})
	if err != nil {
		return RedeemResult{}, err
	}
	s.logger.Info("gift redeemed",
		zap.String("gift_id", req.GiftID.String()),
		zap.Stringer("choice", req.Choice),
		zap.String("tx", receipt.TxHash))
	return RedeemResult{GiftID: req.GiftID, Choice: req.Choice, Tx: receipt}, nil
}

func (s *Service) RunRedeem(ctx context.Context, w wallet.Wallet, in RedeemInput) string {
	res, err := s.Redeem(ctx, w, in)
	if err != nil {
		return RedeemErrorMessage(err)
	}
	return res.Message()
}

func RedeemErrorMessage(err error) string {
	return "Error in gift redemption: " + err.Error()
}

func (s *Service) step(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	if s.observer != nil {
		s.observer.ObserveStep(name, time.Since(start), err)
	}
	if err != nil {
		s.logger.Warn("gift step failed", zap.String("step", name), zap.Error(err))
	}
	return err
}
