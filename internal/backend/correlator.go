package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/web3devz/Blockjack-Game/internal/orchestrator"
)

// Action is the backend move endpoint name.
type Action string

const (
	ActionDeal  Action = "deal"
	ActionHit   Action = "hit"
	ActionStand Action = "stand"
)

// CorrelationRequest carries the causality token for one finalized
// transaction. The backend waits on TxDigest itself before reading ledger
// state, so it always observes the same finalized effects the client did.
type CorrelationRequest struct {
	TxDigest        string `json:"txDigest"`
	RequestObjectID string `json:"requestObjectId,omitempty"`
}

// MoveOutcome is the backend's projection after processing a move.
type MoveOutcome struct {
	Message  string `json:"message"`
	TxDigest string `json:"txDigest"`
	PlayerSum int   `json:"playerSum,omitempty"`
	Finished bool   `json:"finished,omitempty"`
}

// Client issues correlated move requests. It performs no deduplication; the
// backend is the idempotency boundary, keyed by digest, which is what makes
// caller-side retries of the same correlation safe.
type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     logger,
	}
}

// Do sends exactly one correlation request for one orchestration result.
// Any HTTP or application error is a partial failure: the ledger already
// advanced, only the off-chain projection is missing.
func (c *Client) Do(ctx context.Context, gameID string, action Action, req CorrelationRequest) (*MoveOutcome, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, orchestrator.NewFlowError(orchestrator.KindBackendCorrelationFailed, err)
	}

	url := fmt.Sprintf("%s/games/%s/%s", c.baseURL, gameID, action)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, orchestrator.NewFlowError(orchestrator.KindBackendCorrelationFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, c.correlationFailed(action, req.TxDigest, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, c.correlationFailed(action, req.TxDigest, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.correlationFailed(action, req.TxDigest,
			fmt.Errorf("backend returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))))
	}

	var outcome MoveOutcome
	if err := json.Unmarshal(raw, &outcome); err != nil {
		return nil, c.correlationFailed(action, req.TxDigest, err)
	}
	c.log.Info("move correlated",
		"game_id", gameID, "move", string(action), "tx_digest", req.TxDigest)
	return &outcome, nil
}

func (c *Client) correlationFailed(action Action, digest string, err error) error {
	c.log.Warn("move correlation failed",
		"move", string(action), "tx_digest", digest, "error", err.Error())
	return orchestrator.NewFlowError(orchestrator.KindBackendCorrelationFailed,
		fmt.Errorf("move %s (digest %s): %w", action, digest, err))
}
