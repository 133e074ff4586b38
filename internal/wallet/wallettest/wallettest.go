// Package wallettest provides a recording Wallet for tests.
package wallettest

import (
	"context"
	"fmt"
	"sync"

	"giftrails/internal/wallet"
)

const DefaultAddress = "0x00000000000000000000000000000000000000aa"

// Wallet records every invocation. Methods listed in SubmitErr fail at submit
// time; methods listed in WaitErr fail when the transaction is awaited.
type Wallet struct {
	Network   string
	Address   string
	SubmitErr map[string]error
	WaitErr   map[string]error

	mu          sync.Mutex
	invocations []wallet.Invocation
}

func New(network string) *Wallet {
	return &Wallet{
		Network:   network,
		Address:   DefaultAddress,
		SubmitErr: map[string]error{},
		WaitErr:   map[string]error{},
	}
}

func (w *Wallet) NetworkID() string { return w.Network }

func (w *Wallet) DefaultAddress() string { return w.Address }

func (w *Wallet) InvokeContract(ctx context.Context, inv wallet.Invocation) (*wallet.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w.mu.Lock()
	w.invocations = append(w.invocations, inv)
	n := len(w.invocations)
	w.mu.Unlock()

	if err := w.SubmitErr[inv.Method]; err != nil {
		return nil, err
	}
	hash := fmt.Sprintf("0x%064x", n)
	waitErr := w.WaitErr[inv.Method]
	return wallet.NewTransaction(hash, "https://explorer.test/tx/"+hash, func(context.Context) error {
		return waitErr
	}), nil
}

// Invocations returns a copy of the recorded calls in submission order.
func (w *Wallet) Invocations() []wallet.Invocation {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]wallet.Invocation, len(w.invocations))
	copy(out, w.invocations)
	return out
}

// Methods returns the invoked method names in order.
func (w *Wallet) Methods() []string {
	var out []string
	for _, inv := range w.Invocations() {
		out = append(out, inv.Method)
	}
	return out
}
