package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"giftrails/internal/action"
	"giftrails/internal/config"
	"giftrails/internal/gift"
	"giftrails/internal/hmacauth"
	"giftrails/internal/idempotency"
	"giftrails/internal/wallet"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxBodyBytes = 64 << 10

// Deps are the collaborators the HTTP layer drives.
type Deps struct {
	Registry  *action.Registry
	Wallet    wallet.Wallet
	Store     idempotency.Store
	Metrics   *Metrics
	Logger    *zap.Logger
	RPCHealth func(context.Context) error
}

type Server struct {
	cfg         *config.AppConfig
	registry    *action.Registry
	wallet      wallet.Wallet
	store       idempotency.Store
	hmac        *hmacauth.Verifier
	httpServer  *http.Server
	metrics     *Metrics
	logger      *zap.Logger
	dbHealthFn  func(context.Context) error
	rpcHealthFn func(context.Context) error

	inflight sync.Map
}

func NewServer(cfg *config.AppConfig, deps Deps) *Server {
	hmacVerifier := &hmacauth.Verifier{
		Secret:  cfg.Service.HMACSecret,
		MaxSkew: cfg.Service.HMACClockSkew,
	}

	metrics := deps.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		cfg:         cfg,
		registry:    deps.Registry,
		wallet:      deps.Wallet,
		store:       deps.Store,
		hmac:        hmacVerifier,
		metrics:     metrics,
		logger:      logger,
		rpcHealthFn: deps.RPCHealth,
	}

	if checker, ok := deps.Store.(interface{ Ping(context.Context) error }); ok {
		s.dbHealthFn = checker.Ping
	}
	if s.rpcHealthFn == nil {
		if checker, ok := deps.Wallet.(wallet.HealthChecker); ok {
			s.rpcHealthFn = checker.Ping
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/api/v1/gifts", s.hmac.Middleware(http.HandlerFunc(s.handleGifts)))
	mux.Handle("/api/v1/gifts/redeem", s.hmac.Middleware(http.HandlerFunc(s.handleRedeem)))
	mux.HandleFunc("/api/v1/actions", s.handleActions)
	mux.Handle("/api/v1/metrics", metrics.handler())
	mux.HandleFunc("/api/v1/health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Service.HTTPPort),
		Handler:           requestIDMiddleware(mux),
		ReadHeaderTimeout: 15 * time.Second,
	}
	s.updateDLQDepth()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("API listening", zap.String("addr", s.httpServer.Addr), zap.String("network", s.cfg.NetworkID))
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type actionResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	TxHash    string `json:"txHash,omitempty"`
	TxLink    string `json:"txLink,omitempty"`
	BuyTxHash string `json:"buyTxHash,omitempty"`
}

func (s *Server) handleGifts(w http.ResponseWriter, r *http.Request) {
	s.handleAction(w, r, gift.TransferActionName, s.metrics.incGift)
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	s.handleAction(w, r, gift.RedeemActionName, s.metrics.incRedeem)
}

// handleAction runs a signed, idempotent action request. Successful results
// and failures that already spent funds are cached; failures land in the DLQ
// for review.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request, name string, count func(string)) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	key := strings.TrimSpace(r.Header.Get("X-Idempotency-Key"))
	if key == "" {
		http.Error(w, "missing X-Idempotency-Key header", http.StatusBadRequest)
		return
	}
	key = name + ":" + key

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}

	// Chain calls outlive the client connection once a transaction is sent.
	ctx := context.WithoutCancel(r.Context())
	log := s.logger.With(zap.String("action", name), zap.String("request_id", r.Header.Get("X-Request-Id")))

	if _, busy := s.inflight.LoadOrStore(key, struct{}{}); busy {
		http.Error(w, "request with this idempotency key is in progress", http.StatusConflict)
		return
	}
	defer s.inflight.Delete(key)

	existing, err := idempotency.Lookup(ctx, s.store, key, body)
	if errors.Is(err, idempotency.ErrKeyReused) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		log.Warn("idempotency lookup failed", zap.Error(err))
	}
	if existing != nil {
		writeRaw(w, existing.StatusCode, existing.Response)
		count("cached")
		return
	}

	act, err := s.registry.Lookup(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	args, err := action.DecodeArgs(body)
	if err != nil {
		http.Error(w, "invalid json payload", http.StatusBadRequest)
		return
	}
	if err := act.Validate(args); err != nil {
		count("rejected")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	runCtx := ctx
	if timeout := s.cfg.Service.RPCTimeout; timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	out, err := act.Run(runCtx, s.wallet, args)
	if err != nil {
		var partial *gift.PartialTransferError
		switch {
		case errors.As(err, &partial):
			count("partial")
			log.Error("action failed after buy was sent", zap.String("buy_tx", partial.BuyTxHash), zap.Error(err))
			s.writeDLQ(name, args, err, partial.BuyTxHash)
			b, _ := json.Marshal(actionResponse{
				Status:    "partial",
				Message:   act.FailureMessage(err),
				BuyTxHash: partial.BuyTxHash,
			})
			s.saveRecord(ctx, log, key, body, http.StatusBadGateway, b)
			writeRaw(w, http.StatusBadGateway, b)
		case isClientError(err):
			count("rejected")
			writeJSON(w, http.StatusBadRequest, actionResponse{Status: "rejected", Message: act.FailureMessage(err)})
		case errors.Is(err, gift.ErrNoEscrow):
			count("unavailable")
			log.Error("action not configured", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, actionResponse{Status: "unavailable", Message: act.FailureMessage(err)})
		default:
			count("failed")
			log.Error("action failed", zap.Error(err))
			s.writeDLQ(name, args, err, "")
			writeJSON(w, http.StatusBadGateway, actionResponse{Status: "failed", Message: act.FailureMessage(err)})
		}
		return
	}

	b, _ := json.Marshal(actionResponse{
		Status:  "created",
		Message: out.Message,
		TxHash:  out.TxHash,
		TxLink:  out.TxLink,
	})
	s.saveRecord(ctx, log, key, body, http.StatusCreated, b)

	writeRaw(w, http.StatusCreated, b)
	count("created")
	log.Info("action completed", zap.String("tx", out.TxHash))
}

func (s *Server) saveRecord(ctx context.Context, log *zap.Logger, key string, body []byte, code int, resp []byte) {
	now := time.Now()
	record := idempotency.Record{
		StatusCode:  code,
		Response:    resp,
		RequestHash: idempotency.Fingerprint(body),
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.cfg.Service.IdempotencyWindow),
	}
	if err := s.store.Save(ctx, key, record); err != nil {
		log.Warn("idempotency save failed", zap.Error(err))
	}
}

func isClientError(err error) bool {
	return errors.Is(err, gift.ErrInvalidInput) ||
		errors.Is(err, action.ErrInvalidArgs) ||
		errors.Is(err, gift.ErrTokenGraduated)
}

func (s *Server) handleActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.registry.Specs())
}

func (s *Server) writeDLQ(name string, args map[string]any, execErr error, buyTx string) {
	if s.cfg.Service.DLQPath == "" {
		return
	}

	entry := struct {
		Timestamp time.Time      `json:"timestamp"`
		Action    string         `json:"action"`
		Network   string         `json:"network"`
		Args      map[string]any `json:"args"`
		Error     string         `json:"error"`
		BuyTxHash string         `json:"buy_tx_hash,omitempty"`
	}{
		Timestamp: time.Now().UTC(),
		Action:    name,
		Network:   s.wallet.NetworkID(),
		Args:      args,
		Error:     execErr.Error(),
		BuyTxHash: buyTx,
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		s.logger.Error("dlq marshal error", zap.Error(err))
		return
	}

	if err := os.MkdirAll(s.cfg.Service.DLQPath, 0o755); err != nil {
		s.logger.Error("dlq mkdir error", zap.Error(err))
		return
	}

	filename := fmt.Sprintf("%d-%s.json", time.Now().UnixNano(), name)
	path := filepath.Join(s.cfg.Service.DLQPath, filename)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		s.logger.Error("dlq write error", zap.Error(err))
	}

	s.updateDLQDepth()
}

func (s *Server) updateDLQDepth() int {
	depth := s.currentDLQDepth()
	if s.metrics != nil {
		s.metrics.setDLQDepth(depth)
	}
	return depth
}

func (s *Server) currentDLQDepth() int {
	if s.cfg.Service.DLQPath == "" {
		return 0
	}
	entries, err := os.ReadDir(s.cfg.Service.DLQPath)
	if errors.Is(err, os.ErrNotExist) {
		return 0
	}
	if err != nil {
		s.logger.Warn("dlq read error", zap.Error(err))
		return 0
	}
	return len(entries)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	overallHealthy := true

	rpcInfo := struct {
		Connected bool    `json:"connected"`
		LatencyMs float64 `json:"latency_ms"`
		Error     string  `json:"error,omitempty"`
	}{}

	if s.rpcHealthFn != nil {
		start := time.Now()
		rpcCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := s.rpcHealthFn(rpcCtx); err != nil {
			rpcInfo.Error = err.Error()
			overallHealthy = false
		} else {
			rpcInfo.Connected = true
			rpcInfo.LatencyMs = float64(time.Since(start).Microseconds()) / 1000.0
		}
	} else {
		rpcInfo.Connected = true
	}

	dbInfo := struct {
		Connected bool   `json:"connected"`
		Error     string `json:"error,omitempty"`
	}{Connected: true}

	if s.dbHealthFn != nil {
		dbCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := s.dbHealthFn(dbCtx); err != nil {
			dbInfo.Connected = false
			dbInfo.Error = err.Error()
			overallHealthy = false
		}
	}

	status := "healthy"
	if !overallHealthy {
		status = "degraded"
	}

	resp := struct {
		Status     string `json:"status"`
		Network    string `json:"network"`
		Wallet     string `json:"wallet"`
		RPC        any    `json:"rpc"`
		Database   any    `json:"database"`
		QueueDepth int    `json:"queue_depth"`
	}{
		Status:     status,
		Network:    s.wallet.NetworkID(),
		Wallet:     s.wallet.DefaultAddress(),
		RPC:        rpcInfo,
		Database:   dbInfo,
		QueueDepth: s.updateDLQDepth(),
	}

	code := http.StatusOK
	if !overallHealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, code int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
			r.Header.Set("X-Request-Id", id)
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}
