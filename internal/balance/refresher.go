package balance

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/web3devz/Blockjack-Game/internal/ledger"
)

// unitsPerCoin converts the ledger's base-unit integer balances to coins.
var unitsPerCoin = decimal.New(1, 9)

var (
	refreshesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "blackjack",
		Subsystem: "balance",
		Name:      "refreshes_total",
		Help:      "Balance fetches actually performed.",
	})
	refreshesDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blackjack",
		Subsystem: "balance",
		Name:      "refreshes_dropped_total",
		Help:      "Refresh triggers dropped by the throttle.",
	}, []string{"reason"})
	refreshErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "blackjack",
		Subsystem: "balance",
		Name:      "refresh_errors_total",
		Help:      "Balance fetches that failed and were reset to zero.",
	})
)

// BalancePort is the slice of the ledger client the refresher needs.
type BalancePort interface {
	GetBalance(ctx context.Context, owner string) (*ledger.CoinBalance, error)
}

// Refresher owns the balance of the active account identity and enforces
// at-most-one-in-flight and a minimum interval between fetches. Triggers
// that lose either race are dropped, not queued: balance is re-derivable and
// a later natural trigger will succeed.
type Refresher struct {
	port        BalancePort
	log         *slog.Logger
	now         func() time.Time
	minInterval time.Duration

	mu       sync.Mutex
	gate     *rate.Limiter
	inFlight bool
	subject  string
	balance  decimal.Decimal
	loading  bool
}

func New(port BalancePort, minInterval time.Duration, logger *slog.Logger) *Refresher {
	if minInterval <= 0 {
		minInterval = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		port:        port,
		log:         logger,
		now:         time.Now,
		minInterval: minInterval,
		gate:        rate.NewLimiter(rate.Every(minInterval), 1),
	}
}

// SetClock replaces the time source. Test hook.
func (r *Refresher) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// RequestRefresh fetches the balance for identity unless throttled. An
// identity change resets the throttle clock, so the first refresh for a new
// identity always executes. Fetch errors are swallowed into a zero balance;
// the caller of RequestRefresh never sees them.
func (r *Refresher) RequestRefresh(ctx context.Context, identity string) {
	r.mu.Lock()
	if identity != r.subject {
		r.subject = identity
		r.gate = rate.NewLimiter(rate.Every(r.minInterval), 1)
		if identity == "" {
			r.balance = decimal.Zero
			r.loading = false
			r.mu.Unlock()
			return
		}
	}
	if identity == "" {
		r.mu.Unlock()
		return
	}
	if r.inFlight {
		refreshesDroppedTotal.WithLabelValues("in_flight").Inc()
		r.mu.Unlock()
		return
	}
	if !r.gate.AllowN(r.now(), 1) {
		refreshesDroppedTotal.WithLabelValues("throttled").Inc()
		r.log.Debug("balance refresh throttled", "address", identity)
		r.mu.Unlock()
		return
	}
	r.inFlight = true
	r.loading = true
	r.mu.Unlock()

	refreshesTotal.Inc()
	value := decimal.Zero
	resp, err := r.port.GetBalance(ctx, identity)
	if err != nil {
		refreshErrorsTotal.Inc()
		r.log.Warn("balance fetch failed", "address", identity, "error", err.Error())
	} else if parsed, perr := decimal.NewFromString(resp.TotalBalance); perr != nil {
		refreshErrorsTotal.Inc()
		r.log.Warn("balance parse failed", "address", identity, "error", perr.Error())
	} else {
		value = parsed.Div(unitsPerCoin)
	}

	r.mu.Lock()
	// A concurrent identity change wins; don't clobber the new subject.
	if r.subject == identity {
		r.balance = value
	}
	r.inFlight = false
	r.loading = false
	r.mu.Unlock()
}

func (r *Refresher) Balance() decimal.Decimal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balance
}

func (r *Refresher) Loading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loading
}

func (r *Refresher) Subject() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.subject
}
