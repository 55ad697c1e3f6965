package daemonserver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/web3devz/Blockjack-Game/internal/api"
	"github.com/web3devz/Blockjack-Game/internal/backend"
	"github.com/web3devz/Blockjack-Game/internal/balance"
	"github.com/web3devz/Blockjack-Game/internal/config"
	"github.com/web3devz/Blockjack-Game/internal/doctor"
	"github.com/web3devz/Blockjack-Game/internal/faucet"
	"github.com/web3devz/Blockjack-Game/internal/game"
	"github.com/web3devz/Blockjack-Game/internal/ledger"
	"github.com/web3devz/Blockjack-Game/internal/orchestrator"
	"github.com/web3devz/Blockjack-Game/internal/signer"
)

// Daemon bundles the wired components so the entrypoint can run preflight
// checks, bind the account and serve.
type Daemon struct {
	Config config.Config
	Signer *signer.Signer
	Ledger *ledger.Client
	Games  *game.Controller
	Server *api.Server

	log *slog.Logger
}

// Build wires the full component graph from a merged configuration.
func Build(cfg config.Config, keystorePath string, log *slog.Logger) (*Daemon, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	key, err := ResolveSigner(keystorePath)
	if err != nil {
		return nil, fmt.Errorf("keystore: %w", err)
	}

	ledgerClient := ledger.New(cfg.Network.RPCURL, log)
	refresher := balance.New(ledgerClient, cfg.Balance.MinRefreshInterval, log)
	orch := orchestrator.New(ledgerClient, key, log)
	correlator := backend.New(cfg.Backend.BaseURL, cfg.Backend.RequestTimeout, log)
	controller := game.NewController(cfg, orch, correlator, ledgerClient, refresher, log)
	faucetClient := faucet.New(cfg.Network.FaucetURL, ledgerClient, refresher, cfg.Network.FinalityTimeout, log)

	server := api.NewServer(
		cfg.RPC.ListenAddr,
		cfg.RPC.Token,
		cfg.Network.ExplorerURL,
		controller,
		refresher,
		faucetClient,
		log,
	)

	return &Daemon{
		Config: cfg,
		Signer: key,
		Ledger: ledgerClient,
		Games:  controller,
		Server: server,
		log:    log,
	}, nil
}

// Run performs preflight checks, binds the signer's account to the session
// and serves RPC until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	report := doctor.New().Run(ctx, d.Config, d.Ledger, d.Signer != nil)
	for _, check := range report.Checks {
		if check.Pass {
			d.log.Info("preflight check", "check", check.Name, "pass", true)
		} else {
			d.log.Warn("preflight check", "check", check.Name, "pass", false, "reason", check.Reason)
		}
	}
	if !report.Ready {
		d.log.Warn("preflight found problems; continuing anyway")
	}

	state, err := d.Games.SetAccount(ctx, d.Signer.Address())
	if err != nil {
		return fmt.Errorf("bind account: %w", err)
	}
	d.log.Info("account bound", "address", d.Signer.Address(), "state", string(state))

	return d.Server.Run(ctx)
}
