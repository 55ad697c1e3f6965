package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/web3devz/Blockjack-Game/internal/composition/daemonserver"
	"github.com/web3devz/Blockjack-Game/internal/config"
	"github.com/web3devz/Blockjack-Game/internal/platform/chainlog"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	rpcAddr := flag.String("rpc-addr", "", "JSON-RPC listen address (overrides config)")
	configPath := flag.String("config", "", "Path to config.yaml (optional)")
	rpcToken := flag.String("rpc-token", "", "RPC token for Authorization/X-RPC-Token (optional)")
	keystorePath := flag.String("keystore", "", "Path to the mnemonic keystore file (optional)")
	logLevel := flag.String("log-level", "info", "Log level: debug | info | warn | error")
	flag.Parse()
	if *showVersion {
		fmt.Printf("blackjackd version=%s commit=%s build_date=%s\n", version, commit, buildDate)
		return
	}

	logger := newLogger(*logLevel)
	slog.SetDefault(logger)

	cfg := config.LoadFromPath(*configPath)
	if *rpcAddr != "" {
		cfg.RPC.ListenAddr = *rpcAddr
	}
	if *rpcToken != "" {
		cfg.RPC.Token = *rpcToken
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	daemon, err := daemonserver.Build(cfg, *keystorePath, logger)
	if err != nil {
		log.Fatalf("blackjackd failed to initialize: %v", err)
	}

	logger.Info("blackjackd starting",
		"network", cfg.Network.Name,
		"listen_addr", cfg.RPC.ListenAddr,
		"address", daemon.Signer.Address(),
	)
	if err := daemon.Run(ctx); err != nil {
		log.Fatalf("blackjackd failed: %v", err)
	}
	logger.Info("blackjackd stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(chainlog.WrapHandler(handler))
}
