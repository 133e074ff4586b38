// Package wallet is the account abstraction the gift actions sign and submit
// contract calls through.
package wallet

import (
	"context"
	"errors"
	"math/big"
	"sync"
)

// ErrReverted marks a mined transaction whose receipt reports failure.
var ErrReverted = errors.New("reverted")

// ZeroAddress is used wherever a contract expects "no address".
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// Wallet signs and submits contract invocations on a single network.
type Wallet interface {
	NetworkID() string
	DefaultAddress() string
	InvokeContract(ctx context.Context, inv Invocation) (*Transaction, error)
}

// HealthChecker is implemented by wallets backed by a live RPC endpoint.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Invocation describes a contract method call. Args are keyed by ABI input
// name; values may be strings (decimal integers, hex addresses) or native Go
// values matching the ABI type.
type Invocation struct {
	ContractAddress string
	Method          string
	ABI             string
	Args            map[string]any
	// Amount is the wei value sent with the call; nil for non-payable methods.
	Amount *big.Int
}

// Transaction is a submitted invocation. Hash and Link are known once the
// transaction has been broadcast.
type Transaction struct {
	Hash string
	Link string

	mu    sync.Mutex
	done  bool
	wait  func(ctx context.Context) error
	mined error
}

// NewTransaction builds a transaction whose Wait calls waitFn until it
// observes a receipt outcome. A nil waitFn means the transaction is already
// final.
func NewTransaction(hash, link string, waitFn func(ctx context.Context) error) *Transaction {
	return &Transaction{Hash: hash, Link: link, wait: waitFn}
}

// Wait blocks until the transaction is mined. It returns an error when the
// receipt reports a revert or ctx ends first. Only the receipt outcome is
// remembered; a wait cut short by ctx can be retried with a fresh context.
func (t *Transaction) Wait(ctx context.Context) (*Transaction, error) {
	if t.wait == nil {
		return t, nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.done {
		err := t.wait(ctx)
		if err != nil && ctx.Err() != nil {
			return nil, err
		}
		t.done, t.mined = true, err
	}
	if t.mined != nil {
		return nil, t.mined
	}
	return t, nil
}
