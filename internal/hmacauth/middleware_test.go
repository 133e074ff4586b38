package hmacauth

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestMiddleware_AllowsValidSignature(t *testing.T) {
	body := `{"amount_eth_in_wei":"1000"}`
	now := time.Unix(1_700_000_000, 0)
	ts := strconv.FormatInt(now.Unix(), 10)
	sig := ComputeSignature("secret", ts, []byte(body))

	v := &Verifier{
		Secret:  "secret",
		MaxSkew: time.Minute,
		Now: func() time.Time {
			return now
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/gifts", strings.NewReader(body))
	req.Header.Set(HeaderSignature, sig)
	req.Header.Set(HeaderTimestamp, ts)
	rec := httptest.NewRecorder()

	var seen string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		seen = string(b)
		w.WriteHeader(http.StatusOK)
	})

	v.Middleware(handler).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if seen != body {
		t.Fatalf("handler saw body %q, want %q", seen, body)
	}
}

func TestMiddleware_RejectsInvalidSignature(t *testing.T) {
	body := `{"foo":"bar"}`
	now := time.Unix(1_700_000_000, 0)
	ts := strconv.FormatInt(now.Unix(), 10)

	v := &Verifier{
		Secret:  "secret",
		MaxSkew: time.Minute,
		Now: func() time.Time {
			return now
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/gifts", strings.NewReader(body))
	req.Header.Set(HeaderSignature, "deadbeef")
	req.Header.Set(HeaderTimestamp, ts)
	rec := httptest.NewRecorder()

	v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	})).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestMiddleware_RejectsStaleTimestamp(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := &Verifier{Secret: "secret", MaxSkew: time.Minute, Now: func() time.Time { return now }}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/gifts", strings.NewReader("{}"))
	if err := Sign(req, "secret", now.Add(-2*time.Minute)); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if err := v.verify(req); err != ErrStaleTimestamp {
		t.Fatalf("expected ErrStaleTimestamp, got %v", err)
	}
}

func TestSignRoundTrip(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := &Verifier{
		Secret:          "secret",
		MaxSkew:         time.Minute,
		Now:             func() time.Time { return now },
		SignatureHeader: HeaderSignature,
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/gifts/redeem", strings.NewReader(`{"gift_id":"1"}`))
	if err := Sign(req, "secret", now); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if err := v.verify(req); err != nil {
		t.Fatalf("verify: %v", err)
	}

	b, _ := io.ReadAll(req.Body)
	if string(b) != `{"gift_id":"1"}` {
		t.Fatalf("body not restored: %q", b)
	}
}

func TestEmptySecretDisablesVerification(t *testing.T) {
	v := &Verifier{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/gifts", nil)
	if err := v.verify(req); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}
