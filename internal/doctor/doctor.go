package doctor

import (
	"context"
	"net/http"
	"time"

	"github.com/web3devz/Blockjack-Game/internal/config"
)

// LedgerProbe is the minimal ledger call used as a liveness check.
type LedgerProbe interface {
	ChainIdentifier(ctx context.Context) (string, error)
}

type Check struct {
	Name   string `json:"name"`
	Pass   bool   `json:"pass"`
	Reason string `json:"reason,omitempty"`
}

type Report struct {
	Ready     bool      `json:"ready"`
	Checks    []Check   `json:"checks"`
	CheckedAt time.Time `json:"checked_at"`
}

// Doctor runs preflight checks before the daemon starts serving.
type Doctor struct {
	http *http.Client
	now  func() time.Time
}

func New() *Doctor {
	return &Doctor{
		http: &http.Client{Timeout: 5 * time.Second},
		now:  time.Now,
	}
}

func (d *Doctor) Run(ctx context.Context, cfg config.Config, ledger LedgerProbe, hasSigner bool) Report {
	report := Report{
		Ready:     true,
		Checks:    make([]Check, 0, 4),
		CheckedAt: d.now(),
	}
	appendCheck := func(name string, pass bool, reason string) {
		report.Checks = append(report.Checks, Check{Name: name, Pass: pass, Reason: reason})
		if !pass {
			report.Ready = false
		}
	}

	if err := cfg.Validate(); err != nil {
		appendCheck("config_valid", false, err.Error())
	} else {
		appendCheck("config_valid", true, "")
	}

	if ledger == nil {
		appendCheck("ledger_reachable", false, "no ledger client")
	} else if _, err := ledger.ChainIdentifier(ctx); err != nil {
		appendCheck("ledger_reachable", false, err.Error())
	} else {
		appendCheck("ledger_reachable", true, "")
	}

	backendOK, backendReason := d.probeBackend(ctx, cfg.Backend.BaseURL)
	appendCheck("backend_reachable", backendOK, backendReason)

	if hasSigner {
		appendCheck("signer_present", true, "")
	} else {
		appendCheck("signer_present", false, "no signing key loaded")
	}

	return report
}

// probeBackend only cares that something answers; any HTTP status counts as
// reachable since the move endpoints are POST-only.
func (d *Doctor) probeBackend(ctx context.Context, baseURL string) (bool, string) {
	if baseURL == "" {
		return false, "backend base url not configured"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
	if err != nil {
		return false, err.Error()
	}
	resp, err := d.http.Do(req)
	if err != nil {
		return false, err.Error()
	}
	_ = resp.Body.Close()
	return true, ""
}
