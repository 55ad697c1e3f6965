package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{1,64}$`)

// Config is the fully merged daemon configuration: defaults, then the yaml
// file, then BLACKJACK_* environment overrides.
type Config struct {
	Network NetworkConfig `yaml:"network"`
	Game    GameConfig    `yaml:"game"`
	Backend BackendConfig `yaml:"backend"`
	Balance BalanceConfig `yaml:"balance"`
	RPC     RPCConfig     `yaml:"rpc"`
}

type NetworkConfig struct {
	Name            string        `yaml:"name"`
	RPCURL          string        `yaml:"rpcUrl"`
	FaucetURL       string        `yaml:"faucetUrl"`
	ExplorerURL     string        `yaml:"explorerUrl"`
	FinalityTimeout time.Duration `yaml:"finalityTimeout"`
}

type GameConfig struct {
	PackageAddress string `yaml:"packageAddress"`
	AdminAddress   string `yaml:"adminAddress"`
	HouseDataID    string `yaml:"houseDataId"`
	// BetAmount is in base units (10^9 per coin).
	BetAmount uint64 `yaml:"betAmount"`
}

type BackendConfig struct {
	BaseURL        string        `yaml:"baseUrl"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
}

type BalanceConfig struct {
	MinRefreshInterval time.Duration `yaml:"minRefreshInterval"`
}

type RPCConfig struct {
	ListenAddr string `yaml:"listenAddr"`
	Token      string `yaml:"token"`
}

func Default() Config {
	return Config{
		Network: NetworkConfig{
			Name:            "testnet",
			RPCURL:          "https://rpc-testnet.onelabs.cc",
			FaucetURL:       "https://faucet-testnet.onelabs.cc/v1/gas",
			ExplorerURL:     "https://onescan.cc",
			FinalityTimeout: 10 * time.Second,
		},
		Game: GameConfig{
			PackageAddress: "0xeb43b3314dd7c6b5316595f59ae3fff12519adf2f0f839ac0d597a0cc93db5af",
			AdminAddress:   "0xad9396b530f9fcdaee7dc5bb62d423241caf3426d5e3d937da3e2503fb656f9e",
			HouseDataID:    "0x5c8e838f933373d5b478ea7c349a0211db425e0e569589281d1013b1e384ed38",
			BetAmount:      200_000_000,
		},
		Backend: BackendConfig{
			BaseURL:        "http://127.0.0.1:3000/api",
			RequestTimeout: 15 * time.Second,
		},
		Balance: BalanceConfig{
			MinRefreshInterval: 5 * time.Second,
		},
		RPC: RPCConfig{
			ListenAddr: "127.0.0.1:8791",
		},
	}
}

// LoadFromPath reads the first readable candidate config file, merges it over
// the defaults and applies environment overrides. A missing or unparseable
// file falls back to defaults plus environment.
func LoadFromPath(configPath string) Config {
	cfg := Default()

	candidates := make([]string, 0, 2)
	if configPath != "" {
		candidates = append(candidates, configPath)
	} else {
		candidates = append(candidates,
			"configs/config.yaml",
			"config.yaml",
		)
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		var parsed Config
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			continue
		}

		merged := cfg
		Merge(&merged, parsed)
		ApplyEnvOverrides(&merged)
		return merged
	}

	ApplyEnvOverrides(&cfg)
	return cfg
}

// Merge copies the non-zero fields of src over dst.
func Merge(dst *Config, src Config) {
	if src.Network.Name != "" {
		dst.Network.Name = src.Network.Name
	}
	if src.Network.RPCURL != "" {
		dst.Network.RPCURL = src.Network.RPCURL
	}
	if src.Network.FaucetURL != "" {
		dst.Network.FaucetURL = src.Network.FaucetURL
	}
	if src.Network.ExplorerURL != "" {
		dst.Network.ExplorerURL = src.Network.ExplorerURL
	}
	if src.Network.FinalityTimeout > 0 {
		dst.Network.FinalityTimeout = src.Network.FinalityTimeout
	}
	if src.Game.PackageAddress != "" {
		dst.Game.PackageAddress = src.Game.PackageAddress
	}
	if src.Game.AdminAddress != "" {
		dst.Game.AdminAddress = src.Game.AdminAddress
	}
	if src.Game.HouseDataID != "" {
		dst.Game.HouseDataID = src.Game.HouseDataID
	}
	if src.Game.BetAmount > 0 {
		dst.Game.BetAmount = src.Game.BetAmount
	}
	if src.Backend.BaseURL != "" {
		dst.Backend.BaseURL = src.Backend.BaseURL
	}
	if src.Backend.RequestTimeout > 0 {
		dst.Backend.RequestTimeout = src.Backend.RequestTimeout
	}
	if src.Balance.MinRefreshInterval > 0 {
		dst.Balance.MinRefreshInterval = src.Balance.MinRefreshInterval
	}
	if src.RPC.ListenAddr != "" {
		dst.RPC.ListenAddr = src.RPC.ListenAddr
	}
	if src.RPC.Token != "" {
		dst.RPC.Token = src.RPC.Token
	}
}

func ApplyEnvOverrides(cfg *Config) {
	if v := envString("BLACKJACK_RPC_URL"); v != "" {
		cfg.Network.RPCURL = v
	}
	if v := envString("BLACKJACK_FAUCET_URL"); v != "" {
		cfg.Network.FaucetURL = v
	}
	if v := envString("BLACKJACK_PACKAGE_ADDRESS"); v != "" {
		cfg.Game.PackageAddress = v
	}
	if v := envString("BLACKJACK_ADMIN_ADDRESS"); v != "" {
		cfg.Game.AdminAddress = v
	}
	if v := envString("BLACKJACK_HOUSE_DATA_ID"); v != "" {
		cfg.Game.HouseDataID = v
	}
	if v := envString("BLACKJACK_BACKEND_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := envString("BLACKJACK_LISTEN_ADDR"); v != "" {
		cfg.RPC.ListenAddr = v
	}
	if v := envString("BLACKJACK_RPC_TOKEN"); v != "" {
		cfg.RPC.Token = v
	}
	cfg.Network.FinalityTimeout = envBoundedDurationWithFallback(
		"BLACKJACK_FINALITY_TIMEOUT_SECONDS", cfg.Network.FinalityTimeout, time.Second, 2*time.Minute)
	cfg.Balance.MinRefreshInterval = envBoundedDurationWithFallback(
		"BLACKJACK_BALANCE_MIN_INTERVAL_SECONDS", cfg.Balance.MinRefreshInterval, time.Second, time.Hour)
}

// Validate rejects configurations the daemon cannot safely start with.
func (c Config) Validate() error {
	if c.Network.RPCURL == "" {
		return errors.New("network.rpcUrl is required")
	}
	for name, addr := range map[string]string{
		"game.packageAddress": c.Game.PackageAddress,
		"game.adminAddress":   c.Game.AdminAddress,
		"game.houseDataId":    c.Game.HouseDataID,
	} {
		if !addressPattern.MatchString(addr) {
			return fmt.Errorf("%s: invalid ledger address %q", name, addr)
		}
	}
	if c.Game.BetAmount == 0 {
		return errors.New("game.betAmount must be positive")
	}
	if c.Backend.BaseURL == "" {
		return errors.New("backend.baseUrl is required")
	}
	return nil
}

func envString(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envBoundedDurationWithFallback(key string, fallback, min, max time.Duration) time.Duration {
	raw := envString(key)
	if raw == "" {
		return fallback
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	value := time.Duration(seconds) * time.Second
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
