package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"giftrails/internal/app"
	"giftrails/internal/config"
	"giftrails/internal/gift"
	"giftrails/internal/hmacauth"
	"giftrails/internal/logging"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	verbose   bool
	networkID string
	timeout   time.Duration

	logger *zap.Logger

	// transfer / submit flags
	amountWei string
	token     string
	recipient string
	giver     string

	// redeem flags
	giftID string
	choice string

	// submit flags
	serverURL      string
	secret         string
	idempotencyKey string
	redeemMode     bool
)

var rootCmd = &cobra.Command{
	Use:   "giftctl",
	Short: "Gift memecoins through an escrow with a fixed USDC redemption value",
	Long: `giftctl runs the gift actions directly against the chain or through a
giftrails API server.

Without CHAIN_PRIVATE_KEY the wallet runs in dry-run mode: quotes come from
the chain, transactions are simulated.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := "warn"
		if verbose {
			level = "debug"
		}
		var err error
		logger, err = logging.New(level)
		if err != nil {
			return err
		}
		if networkID != "" {
			return os.Setenv("NETWORK_ID", networkID)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var actionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "Print the registered actions and their input schemas",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
			return printJSON(cmd.OutOrStdout(), rt.Registry.Specs())
		})
	},
}

var transferCmd = &cobra.Command{
	Use:   "transfer",
	Short: "Buy a memecoin into escrow as a gift",
	Example: `  giftctl transfer --amount-wei 1000000000000000 \
    --token 0x... --recipient 0x... --giver 0x...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
			return invoke(ctx, cmd, rt, gift.TransferActionName, transferArgs())
		})
	},
}

var redeemCmd = &cobra.Command{
	Use:   "redeem",
	Short: "Redeem a gift as the memecoin or the fixed USDC amount",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
			return invoke(ctx, cmd, rt, gift.RedeemActionName, redeemArgs())
		})
	},
}

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Send a signed gift request to a giftrails server",
	Long: `Signs the request with HMAC_SECRET (or --secret) and posts it to the
server. Re-running with the same --idempotency-key replays the first result.`,
	RunE: runSubmit,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&networkID, "network", "", "Network id (overrides NETWORK_ID)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 3*time.Minute, "Overall timeout")

	for _, c := range []*cobra.Command{transferCmd, submitCmd} {
		c.Flags().StringVar(&amountWei, "amount-wei", "", "Amount of ETH to spend on the memecoin, in wei")
		c.Flags().StringVar(&token, "token", "", "Memecoin token address")
		c.Flags().StringVar(&recipient, "recipient", "", "Address receiving the gift")
		c.Flags().StringVar(&giver, "giver", "", "Address sending the gift")
	}
	for _, c := range []*cobra.Command{redeemCmd, submitCmd} {
		c.Flags().StringVar(&giftID, "gift-id", "", "Escrow gift id")
		c.Flags().StringVar(&choice, "choice", "memecoin", "Redemption choice: memecoin or usdc")
	}
	submitCmd.Flags().StringVar(&serverURL, "server", "http://localhost:3000", "giftrails API base URL")
	submitCmd.Flags().StringVar(&secret, "secret", os.Getenv("HMAC_SECRET"), "HMAC secret shared with the server")
	submitCmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "Idempotency key (random when empty)")
	submitCmd.Flags().BoolVar(&redeemMode, "redeem", false, "Submit a redemption instead of a transfer")

	rootCmd.AddCommand(actionsCmd, transferCmd, redeemCmd, submitCmd)
}

func transferArgs() map[string]any {
	return map[string]any{
		"amount_eth_in_wei": amountWei,
		"memecoin_address":  token,
		"recipient":         recipient,
		"giver":             giver,
	}
}

func redeemArgs() map[string]any {
	return map[string]any{"gift_id": giftID, "choice": choice}
}

func withRuntime(cmd *cobra.Command, fn func(ctx context.Context, rt *app.Runtime) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	rt, err := app.Build(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer rt.Close()
	if rt.DryRun {
		fmt.Fprintln(cmd.ErrOrStderr(), "dry run: transactions are simulated")
	}
	return fn(ctx, rt)
}

func invoke(ctx context.Context, cmd *cobra.Command, rt *app.Runtime, name string, args map[string]any) error {
	act, err := rt.Registry.Lookup(name)
	if err != nil {
		return err
	}
	msg := act.Invoke(ctx, rt.Wallet, args)
	fmt.Fprintln(cmd.OutOrStdout(), msg)
	if strings.HasPrefix(msg, "Error in ") {
		return fmt.Errorf("%s failed", name)
	}
	return nil
}

func runSubmit(cmd *cobra.Command, _ []string) error {
	path, args := "/api/v1/gifts", transferArgs()
	if redeemMode {
		path, args = "/api/v1/gifts/redeem", redeemArgs()
	}
	body, err := json.Marshal(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(serverURL, "/")+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	key := idempotencyKey
	if key == "" {
		key = uuid.NewString()
	}
	req.Header.Set("X-Idempotency-Key", key)
	if secret != "" {
		if err := hmacauth.Sign(req, secret, time.Now()); err != nil {
			return fmt.Errorf("sign request: %w", err)
		}
	}

	logger.Debug("submitting", zap.String("url", req.URL.String()), zap.String("idempotency_key", key))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var decoded struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if json.Unmarshal(out, &decoded) == nil && decoded.Message != "" {
		fmt.Fprintln(cmd.OutOrStdout(), decoded.Message)
	} else {
		fmt.Fprint(cmd.OutOrStdout(), string(out))
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
