package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"giftrails/internal/hmacauth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSubmitSignsTransfer(t *testing.T) {
	var got map[string]string
	var gotKey string
	verifier := &hmacauth.Verifier{Secret: "s3cret", MaxSkew: time.Minute}
	srv := httptest.NewServer(verifier.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/gifts", r.URL.Path)
		gotKey = r.Header.Get("X-Idempotency-Key")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"status":"created","message":"Created gift transfer with fixed USDC redemption:"}`))
	})))
	defer srv.Close()

	out, err := execute(t, "submit",
		"--server", srv.URL,
		"--secret", "s3cret",
		"--idempotency-key", "cli-1",
		"--amount-wei", "1000",
		"--token", "0x00000000000000000000000000000000000000cc",
		"--recipient", "0x00000000000000000000000000000000000000b0",
		"--giver", "0x00000000000000000000000000000000000000a0",
	)
	require.NoError(t, err)
	assert.Equal(t, "Created gift transfer with fixed USDC redemption:\n", out)
	assert.Equal(t, "cli-1", gotKey)
	assert.Equal(t, "1000", got["amount_eth_in_wei"])
	assert.Equal(t, "0x00000000000000000000000000000000000000a0", got["giver"])
}

func TestSubmitReportsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"status":"failed","message":"Error in gift redemption: redeemGift: reverted"}`))
	}))
	defer srv.Close()

	out, err := execute(t, "submit", "--server", srv.URL, "--redeem", "--gift-id", "1", "--choice", "usdc", "--secret", "")
	assert.ErrorContains(t, err, "502")
	assert.Contains(t, out, "Error in gift redemption")
}

func TestActionsListsSchemas(t *testing.T) {
	t.Setenv("NETWORKS_PATH", filepath.Join(t.TempDir(), "none.json"))
	t.Setenv("CHAIN_PRIVATE_KEY", "")
	t.Setenv("CHAIN_RPC_URL", "http://127.0.0.1:1")

	out, err := execute(t, "actions")
	require.NoError(t, err)

	var specs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &specs))
	require.Len(t, specs, 2)
	assert.Equal(t, "gift_redeem", specs[0]["name"])
	assert.Equal(t, "gift_transfer", specs[1]["name"])
}
