package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/web3devz/Blockjack-Game/internal/game"
	"github.com/web3devz/Blockjack-Game/internal/orchestrator"
	"github.com/web3devz/Blockjack-Game/internal/platform/ratelimiter"
)

const DefaultListenAddr = "127.0.0.1:8791"

const maxRPCBodyBytes int64 = 1 << 20 // 1 MiB

// GameService is the controller surface exposed over RPC.
type GameService interface {
	SetAccount(ctx context.Context, address string) (game.State, error)
	MintPlayToken(ctx context.Context) error
	CreateGame(ctx context.Context) error
	Hit(ctx context.Context) error
	Stand(ctx context.Context) error
	Resync(ctx context.Context) error
	RefetchGame(ctx context.Context) error
	State() game.State
	Session() game.Session
	LastError() *orchestrator.FlowError
}

type BalanceService interface {
	Balance() decimal.Decimal
	Loading() bool
	RequestRefresh(ctx context.Context, identity string)
}

type FaucetService interface {
	Request(ctx context.Context, recipient string) error
}

type Server struct {
	httpServer  *http.Server
	games       GameService
	balance     BalanceService
	faucet      FaucetService
	explorerURL string
	rpcToken    string
	limiter     *ratelimiter.KeyedLimiter
	log         *slog.Logger
}

func NewServer(listenAddr, rpcToken, explorerURL string, games GameService, balance BalanceService, faucet FaucetService, log *slog.Logger) *Server {
	if listenAddr == "" {
		listenAddr = DefaultListenAddr
	}
	if log == nil {
		log = slog.Default()
	}

	mux := http.NewServeMux()
	s := &Server{
		httpServer: &http.Server{
			Addr:              listenAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		games:       games,
		balance:     balance,
		faucet:      faucet,
		explorerURL: strings.TrimRight(explorerURL, "/"),
		rpcToken:    rpcToken,
		limiter:     ratelimiter.New(20, 40, 10*time.Minute),
		log:         log,
	}
	if s.rpcToken == "" {
		log.Warn("rpc token is not set; local RPC auth disabled")
	}
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/rpc", s.handleRPC)
	mux.Handle("/metrics", promhttp.Handler())
	return s
}

func (s *Server) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return nil
	default:
	}

	errCh := make(chan error, 1)
	go func() {
		err := s.httpServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
			return
		}
		errCh <- err
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.authorize(w, r) {
		return
	}
	if !s.limiter.Allow(clientKey(r), time.Now()) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRPCBodyBytes)
	var req rpcRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		writeRPC(w, rpcResponse{
			JSONRPC: "2.0",
			Error:   &rpcError{Code: -32700, Message: "parse error"},
		})
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeRPCInvalidRequest(w, req.ID)
		return
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		writeRPCInvalidRequest(w, req.ID)
		return
	}

	started := time.Now()
	result, rpcErr := s.dispatch(r.Context(), req.Method, req.Params)
	if rpcErr != nil {
		s.log.Error("rpc failed", "method", req.Method, "rpc_code", rpcErr.Code, "latency_ms", time.Since(started).Milliseconds())
	} else {
		s.log.Info("rpc handled", "method", req.Method, "latency_ms", time.Since(started).Milliseconds())
	}
	writeRPC(w, rpcResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  result,
		Error:   rpcErr,
	})
}

func (s *Server) authorize(w http.ResponseWriter, r *http.Request) bool {
	if s.rpcToken == "" {
		return true
	}
	if extractToken(r) != s.rpcToken {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return false
	}
	return true
}

func extractToken(r *http.Request) string {
	token := strings.TrimSpace(r.Header.Get("X-RPC-Token"))
	if token != "" {
		return token
	}
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[len("bearer "):])
	}
	return ""
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
