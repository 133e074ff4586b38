package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Network models one entry of networks.json.
type Network struct {
	ChainID       int64  `json:"chainId"`
	RPCURL        string `json:"rpcUrl"`
	EscrowAddress string `json:"escrowAddress"`
	ExplorerURL   string `json:"explorerUrl"`
}

// NetworksFile represents networks.json.
type NetworksFile struct {
	DefaultNetwork string             `json:"defaultNetwork"`
	Networks       map[string]Network `json:"networks"`
}

// AppConfig ties together network info, environment and derived values.
type AppConfig struct {
	NetworkID string
	Networks  map[string]Network
	Service   ServiceConfig
	Chain     ChainConfig
	Gift      GiftConfig
	Log       LogConfig
}

type ServiceConfig struct {
	HTTPPort             int
	HMACSecret           string
	HMACClockSkew        time.Duration
	IdempotencyWindow    time.Duration
	IdempotencyStorePath string
	DatabaseURL          string
	DLQPath              string
	RPCTimeout           time.Duration
}

type ChainConfig struct {
	RPCURL     string
	PrivateKey string
	// WalletAddress is the sender reported in dry-run mode, when no key is set.
	WalletAddress string
}

type GiftConfig struct {
	PlatformFeeBps int64
	SlippageBps    int64
	EthUSDCPrice   string
}

type LogConfig struct {
	Level string
}

const defaultNetworksPath = "networks.json"

// Built-in networks used when networks.json is absent. Escrow addresses must
// still be supplied per deployment.
var defaultNetworks = NetworksFile{
	DefaultNetwork: "base-sepolia",
	Networks: map[string]Network{
		"base-mainnet": {ChainID: 8453, RPCURL: "https://mainnet.base.org", ExplorerURL: "https://basescan.org"},
		"base-sepolia": {ChainID: 84532, RPCURL: "https://sepolia.base.org", ExplorerURL: "https://sepolia.basescan.org"},
	},
}

// Load aggregates configuration from disk and environment.
func Load() (*AppConfig, error) {
	networksPath := envOr("NETWORKS_PATH", defaultNetworksPath)
	nets, err := loadNetworks(networksPath)
	if err != nil {
		return nil, fmt.Errorf("load networks: %w", err)
	}

	networkID := envOr("NETWORK_ID", nets.DefaultNetwork)
	network, ok := nets.Networks[networkID]
	if !ok {
		return nil, fmt.Errorf("network %q not configured", networkID)
	}
	if escrow := envOr("ESCROW_ADDRESS", ""); escrow != "" {
		network.EscrowAddress = escrow
		nets.Networks[networkID] = network
	}

	serviceCfg := ServiceConfig{
		HTTPPort:             envOrInt("API_HTTP_PORT", 3000),
		HMACSecret:           envOr("HMAC_SECRET", ""),
		HMACClockSkew:        time.Duration(envOrInt("HMAC_CLOCK_SKEW_SECONDS", 60)) * time.Second,
		IdempotencyWindow:    time.Duration(envOrInt("IDEMPOTENCY_WINDOW_SECONDS", 86400)) * time.Second,
		IdempotencyStorePath: envOr("IDEMPOTENCY_STORE_PATH", filepath.Join(os.TempDir(), "giftrails-idem.json")),
		DatabaseURL:          envOr("DATABASE_URL", ""),
		DLQPath:              envOr("DLQ_PATH", filepath.Join(os.TempDir(), "giftrails-dlq")),
		RPCTimeout:           time.Duration(envOrInt("RPC_TIMEOUT_SECONDS", 120)) * time.Second,
	}

	chainCfg := ChainConfig{
		RPCURL:        envOr("CHAIN_RPC_URL", network.RPCURL),
		PrivateKey:    envOr("CHAIN_PRIVATE_KEY", ""),
		WalletAddress: envOr("CHAIN_WALLET_ADDRESS", ""),
	}

	giftCfg := GiftConfig{
		PlatformFeeBps: int64(envOrInt("PLATFORM_FEE_BPS", 300)),
		SlippageBps:    int64(envOrInt("SLIPPAGE_BPS", 100)),
		EthUSDCPrice:   envOr("ETH_USDC_PRICE", "2000"),
	}

	return &AppConfig{
		NetworkID: networkID,
		Networks:  nets.Networks,
		Service:   serviceCfg,
		Chain:     chainCfg,
		Gift:      giftCfg,
		Log:       LogConfig{Level: envOr("LOG_LEVEL", "info")},
	}, nil
}

// Network returns the selected network.
func (c *AppConfig) Network() Network {
	return c.Networks[c.NetworkID]
}

// EscrowAddresses maps every configured network to its escrow contract.
func (c *AppConfig) EscrowAddresses() map[string]string {
	out := make(map[string]string, len(c.Networks))
	for id, n := range c.Networks {
		if n.EscrowAddress != "" {
			out[id] = n.EscrowAddress
		}
	}
	return out
}

func loadNetworks(path string) (*NetworksFile, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cloneDefaults(), nil
	}
	if err != nil {
		return nil, err
	}
	var cfg NetworksFile
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Networks) == 0 {
		return nil, fmt.Errorf("%s: no networks defined", path)
	}
	if cfg.DefaultNetwork == "" {
		cfg.DefaultNetwork = defaultNetworks.DefaultNetwork
	}
	return &cfg, nil
}

func cloneDefaults() *NetworksFile {
	out := &NetworksFile{
		DefaultNetwork: defaultNetworks.DefaultNetwork,
		Networks:       make(map[string]Network, len(defaultNetworks.Networks)),
	}
	for k, v := range defaultNetworks.Networks {
		out.Networks[k] = v
	}
	return out
}

func envOr(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
	}
	return fallback
}
