package wallet

import "strings"

var defaultExplorers = map[string]string{
	"base-mainnet": "https://basescan.org",
	"base-sepolia": "https://sepolia.basescan.org",
}

// TransactionLink returns the block explorer URL for hash. explorer overrides
// the built-in explorer for networkID; an unknown network yields "".
func TransactionLink(networkID, explorer, hash string) string {
	base := explorer
	if base == "" {
		base = defaultExplorers[networkID]
	}
	if base == "" || hash == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/tx/" + hash
}
