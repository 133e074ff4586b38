package wallet

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// DryRunWallet never broadcasts. It derives a deterministic hash from each
// invocation so callers can exercise the full flow without a signing key.
type DryRunWallet struct {
	networkID string
	address   string
	explorer  string

	mu    sync.Mutex
	nonce uint64
}

func NewDryRunWallet(networkID, address, explorer string) *DryRunWallet {
	if address == "" {
		address = ZeroAddress
	}
	return &DryRunWallet{networkID: networkID, address: address, explorer: explorer}
}

func (d *DryRunWallet) NetworkID() string { return d.networkID }

func (d *DryRunWallet) DefaultAddress() string { return d.address }

func (d *DryRunWallet) InvokeContract(_ context.Context, inv Invocation) (*Transaction, error) {
	if inv.ContractAddress == "" {
		return nil, fmt.Errorf("missing contract address")
	}
	if inv.Method == "" {
		return nil, fmt.Errorf("missing method")
	}

	d.mu.Lock()
	d.nonce++
	nonce := d.nonce
	d.mu.Unlock()

	hash := fakeHash(fmt.Sprintf("%s|%s|%d|%s|%s", d.networkID, strings.ToLower(inv.ContractAddress), nonce, inv.Method, canonicalArgs(inv)))
	return NewTransaction(hash, TransactionLink(d.networkID, d.explorer, hash), nil), nil
}

func canonicalArgs(inv Invocation) string {
	keys := make([]string, 0, len(inv.Args))
	for k := range inv.Args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%v;", k, inv.Args[k])
	}
	if inv.Amount != nil {
		fmt.Fprintf(&b, "value=%s", inv.Amount)
	}
	return b.String()
}

func fakeHash(input string) string {
	sum := sha256.Sum256([]byte(input))
	return "0x" + hex.EncodeToString(sum[:])
}
