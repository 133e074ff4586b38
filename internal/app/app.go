// Package app wires configuration into a ready-to-use wallet, quoter and
// action registry for the server and CLI.
package app

import (
	"context"
	"fmt"

	"giftrails/internal/action"
	"giftrails/internal/config"
	"giftrails/internal/gift"
	"giftrails/internal/pricing"
	"giftrails/internal/wallet"
	"giftrails/internal/wow"

	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// Runtime is the set of live collaborators built from config.
type Runtime struct {
	Wallet   wallet.Wallet
	Service  *gift.Service
	Registry *action.Registry
	DryRun   bool

	rpc    *ethclient.Client
	closer func()
}

// Build dials the configured RPC endpoint and assembles the gift service.
// Without a private key the wallet runs in dry-run mode: quotes are real,
// writes are simulated.
func Build(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger, observer gift.StepObserver) (*Runtime, error) {
	network := cfg.Network()
	rt := &Runtime{}

	if cfg.Chain.PrivateKey != "" {
		ethWallet, err := wallet.NewEthWallet(ctx, wallet.EthWalletConfig{
			NetworkID:     cfg.NetworkID,
			RPCURL:        cfg.Chain.RPCURL,
			PrivateKeyHex: cfg.Chain.PrivateKey,
			ExplorerURL:   network.ExplorerURL,
			ChainID:       network.ChainID,
		})
		if err != nil {
			return nil, fmt.Errorf("wallet: %w", err)
		}
		rt.Wallet = ethWallet
		rt.rpc = ethWallet.Client()
		rt.closer = ethWallet.Close
	} else {
		cli, err := ethclient.DialContext(ctx, cfg.Chain.RPCURL)
		if err != nil {
			return nil, fmt.Errorf("dial rpc: %w", err)
		}
		rt.rpc = cli
		rt.closer = cli.Close
		rt.Wallet = wallet.NewDryRunWallet(cfg.NetworkID, cfg.Chain.WalletAddress, network.ExplorerURL)
		rt.DryRun = true
		logger.Warn("no CHAIN_PRIVATE_KEY set, transactions will be simulated", zap.String("network", cfg.NetworkID))
	}

	quoter := wow.NewContractQuoter(cfg.NetworkID, rt.rpc)
	pricer, err := pricing.NewStaticPricer(quoter, cfg.Gift.EthUSDCPrice)
	if err != nil {
		rt.Close()
		return nil, err
	}

	svc, err := gift.NewService(quoter, pricer, gift.Options{
		Escrows:        cfg.EscrowAddresses(),
		PlatformFeeBps: gift.Bps(cfg.Gift.PlatformFeeBps),
		SlippageBps:    gift.Bps(cfg.Gift.SlippageBps),
		Logger:         logger.Named("gift"),
		Observer:       observer,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	if _, err := svc.EscrowAddress(cfg.NetworkID); err != nil {
		logger.Warn("gift actions will fail until an escrow is configured", zap.Error(err))
	}

	reg, err := action.NewGiftRegistry(svc)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Service = svc
	rt.Registry = reg
	return rt, nil
}

// Ping checks the RPC endpoint.
func (r *Runtime) Ping(ctx context.Context) error {
	if r.rpc == nil {
		return fmt.Errorf("rpc client not configured")
	}
	_, err := r.rpc.BlockNumber(ctx)
	return err
}

func (r *Runtime) Close() {
	if r.closer != nil {
		r.closer()
	}
}
