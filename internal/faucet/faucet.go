package faucet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/web3devz/Blockjack-Game/internal/platform/ratelimiter"
)

// ErrRateLimited is the faucet's 429: a distinct, user-visible outcome, not
// a generic failure. It never triggers a balance refresh.
var ErrRateLimited = errors.New("faucet rate limited: tokens can only be requested periodically")

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blackjack",
		Subsystem: "faucet",
		Name:      "requests_total",
		Help:      "Faucet requests by result.",
	}, []string{"result"})
)

// FinalityWaiter awaits a digest the faucet reports before the refresh is
// triggered.
type FinalityWaiter interface {
	WaitForTransaction(ctx context.Context, digest string, timeout time.Duration) error
}

// RefreshTrigger fires the throttled balance refresh after a successful
// top-up.
type RefreshTrigger interface {
	RequestRefresh(ctx context.Context, identity string)
}

// Client requests test-network funds for an account. A client-side per-
// recipient limiter avoids burning the remote faucet's stricter quota on
// requests that are known to fail.
type Client struct {
	url       string
	http      *http.Client
	waiter    FinalityWaiter
	refresher RefreshTrigger
	limiter   *ratelimiter.KeyedLimiter
	waitFor   time.Duration
	log       *slog.Logger
}

func New(url string, waiter FinalityWaiter, refresher RefreshTrigger, waitFor time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if waitFor <= 0 {
		waitFor = 10 * time.Second
	}
	return &Client{
		url:       url,
		http:      &http.Client{Timeout: 30 * time.Second},
		waiter:    waiter,
		refresher: refresher,
		limiter:   ratelimiter.PerInterval(time.Minute, time.Hour),
		waitFor:   waitFor,
		log:       logger,
	}
}

type fundRequest struct {
	FixedAmountRequest struct {
		Recipient string `json:"recipient"`
	} `json:"FixedAmountRequest"`
}

type fundResponse struct {
	TxDigest string `json:"txDigest"`
}

// Request asks the faucet to fund recipient. On success the reported digest
// (if any) is awaited before the balance refresh fires, so the refreshed
// read observes the top-up.
func (c *Client) Request(ctx context.Context, recipient string) error {
	if recipient == "" {
		return errors.New("faucet request requires a recipient address")
	}
	if !c.limiter.Allow(recipient, time.Now()) {
		requestsTotal.WithLabelValues("rate_limited").Inc()
		return ErrRateLimited
	}

	var body fundRequest
	body.FixedAmountRequest.Recipient = recipient
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		requestsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("faucet request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		requestsTotal.WithLabelValues("rate_limited").Inc()
		return ErrRateLimited
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		requestsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("faucet response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		requestsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("faucet returned status %d", resp.StatusCode)
	}

	var decoded fundResponse
	if err := json.Unmarshal(raw, &decoded); err == nil && decoded.TxDigest != "" {
		if err := c.waiter.WaitForTransaction(ctx, decoded.TxDigest, c.waitFor); err != nil {
			// The funds will still arrive; the refresh just reads a
			// slightly stale balance.
			c.log.Warn("faucet digest wait failed", "digest", decoded.TxDigest, "error", err.Error())
		}
	}

	requestsTotal.WithLabelValues("ok").Inc()
	c.log.Info("faucet request granted", "address", recipient)
	c.refresher.RequestRefresh(ctx, recipient)
	return nil
}
