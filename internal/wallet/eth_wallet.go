package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// EthWallet signs invocations with a local private key and submits them over
// JSON-RPC.
type EthWallet struct {
	client    *ethclient.Client
	networkID string
	explorer  string
	address   common.Address
	chainID   *big.Int
	transacts *bind.TransactOpts
}

type EthWalletConfig struct {
	NetworkID     string
	RPCURL        string
	PrivateKeyHex string
	ExplorerURL   string
	// ChainID, when set, must match the chain id reported by the node.
	ChainID int64
}

func NewEthWallet(ctx context.Context, cfg EthWalletConfig) (*EthWallet, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	if cfg.PrivateKeyHex == "" {
		return nil, fmt.Errorf("private key is required for signing invocations")
	}

	pk, err := ParsePrivateKey(cfg.PrivateKeyHex)
	if err != nil {
		return nil, err
	}

	cli, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}

	chainID, err := cli.ChainID(ctx)
	if err != nil {
		cli.Close()
		return nil, fmt.Errorf("fetch chain id: %w", err)
	}
	if cfg.ChainID != 0 && chainID.Int64() != cfg.ChainID {
		cli.Close()
		return nil, fmt.Errorf("rpc chain id %s does not match %s (%d)", chainID, cfg.NetworkID, cfg.ChainID)
	}

	txOpts, err := bind.NewKeyedTransactorWithChainID(pk, chainID)
	if err != nil {
		cli.Close()
		return nil, fmt.Errorf("transactor: %w", err)
	}
	txOpts.GasLimit = 0 // let node estimate

	return &EthWallet{
		client:    cli,
		networkID: cfg.NetworkID,
		explorer:  cfg.ExplorerURL,
		address:   txOpts.From,
		chainID:   chainID,
		transacts: txOpts,
	}, nil
}

// ParsePrivateKey accepts a hex key with or without the 0x prefix.
func ParsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return key, nil
}

func (w *EthWallet) NetworkID() string { return w.networkID }

func (w *EthWallet) DefaultAddress() string { return w.address.Hex() }

// Client exposes the underlying RPC client for read-only callers such as
// quoters.
func (w *EthWallet) Client() *ethclient.Client { return w.client }

func (w *EthWallet) InvokeContract(ctx context.Context, inv Invocation) (*Transaction, error) {
	if !common.IsHexAddress(inv.ContractAddress) {
		return nil, fmt.Errorf("invalid contract address %q", inv.ContractAddress)
	}
	parsed, err := abi.JSON(strings.NewReader(inv.ABI))
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}
	method, ok := parsed.Methods[inv.Method]
	if !ok {
		return nil, fmt.Errorf("method %q not in abi", inv.Method)
	}
	params, err := PackArgs(method, inv.Args)
	if err != nil {
		return nil, err
	}

	address := common.HexToAddress(inv.ContractAddress)
	bound := bind.NewBoundContract(address, parsed, w.client, w.client, w.client)

	opts := *w.transacts
	opts.Context = ctx
	if inv.Amount != nil {
		if inv.Amount.Sign() > 0 && !method.IsPayable() {
			return nil, fmt.Errorf("method %q is not payable", inv.Method)
		}
		opts.Value = new(big.Int).Set(inv.Amount)
	}

	tx, err := bound.Transact(&opts, inv.Method, params...)
	if err != nil {
		return nil, fmt.Errorf("%s tx: %w", inv.Method, err)
	}

	hash := tx.Hash().Hex()
	return NewTransaction(hash, TransactionLink(w.networkID, w.explorer, hash), func(ctx context.Context) error {
		receipt, err := bind.WaitMined(ctx, w.client, tx)
		if err != nil {
			return fmt.Errorf("wait for %s: %w", hash, err)
		}
		if receipt.Status == types.ReceiptStatusFailed {
			return fmt.Errorf("%s %w in tx %s", inv.Method, ErrReverted, hash)
		}
		return nil
	}), nil
}

func (w *EthWallet) Ping(ctx context.Context) error {
	if w.client == nil {
		return fmt.Errorf("rpc client not configured")
	}
	_, err := w.client.BlockNumber(ctx)
	return err
}

func (w *EthWallet) Close() {
	if w.client != nil {
		w.client.Close()
	}
}
