package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromPathMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
network:
  rpcUrl: http://localhost:9000
  finalityTimeout: 20s
game:
  betAmount: 500000000
backend:
  baseUrl: http://localhost:3000/api
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := LoadFromPath(path)
	if cfg.Network.RPCURL != "http://localhost:9000" {
		t.Fatalf("unexpected rpc url: %q", cfg.Network.RPCURL)
	}
	if cfg.Network.FinalityTimeout != 20*time.Second {
		t.Fatalf("unexpected finality timeout: %v", cfg.Network.FinalityTimeout)
	}
	if cfg.Game.BetAmount != 500_000_000 {
		t.Fatalf("unexpected bet amount: %d", cfg.Game.BetAmount)
	}
	// Untouched fields keep defaults.
	if cfg.Network.FaucetURL != Default().Network.FaucetURL {
		t.Fatalf("faucet url should keep default, got %q", cfg.Network.FaucetURL)
	}
	if cfg.Balance.MinRefreshInterval != 5*time.Second {
		t.Fatalf("unexpected min refresh interval: %v", cfg.Balance.MinRefreshInterval)
	}
}

func TestLoadFromPathMissingFileFallsBackToDefaults(t *testing.T) {
	cfg := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if cfg.Network.RPCURL != Default().Network.RPCURL {
		t.Fatalf("expected default rpc url, got %q", cfg.Network.RPCURL)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("BLACKJACK_RPC_URL", "http://10.0.0.1:9000")
	t.Setenv("BLACKJACK_FINALITY_TIMEOUT_SECONDS", "30")
	t.Setenv("BLACKJACK_BALANCE_MIN_INTERVAL_SECONDS", "oops")

	cfg := Default()
	ApplyEnvOverrides(&cfg)
	if cfg.Network.RPCURL != "http://10.0.0.1:9000" {
		t.Fatalf("unexpected rpc url: %q", cfg.Network.RPCURL)
	}
	if cfg.Network.FinalityTimeout != 30*time.Second {
		t.Fatalf("unexpected finality timeout: %v", cfg.Network.FinalityTimeout)
	}
	if cfg.Balance.MinRefreshInterval != 5*time.Second {
		t.Fatalf("invalid env value should keep fallback, got %v", cfg.Balance.MinRefreshInterval)
	}
}

func TestEnvOverrideBounds(t *testing.T) {
	t.Setenv("BLACKJACK_FINALITY_TIMEOUT_SECONDS", "100000")
	cfg := Default()
	ApplyEnvOverrides(&cfg)
	if cfg.Network.FinalityTimeout != 2*time.Minute {
		t.Fatalf("expected clamped timeout, got %v", cfg.Network.FinalityTimeout)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	bad := Default()
	bad.Game.HouseDataID = "not-an-address"
	if err := bad.Validate(); err == nil {
		t.Fatal("expected invalid house data id to fail validation")
	}

	bad = Default()
	bad.Game.BetAmount = 0
	if err := bad.Validate(); err == nil {
		t.Fatal("expected zero bet amount to fail validation")
	}
}
