package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/web3devz/Blockjack-Game/internal/backend"
	"github.com/web3devz/Blockjack-Game/internal/config"
	"github.com/web3devz/Blockjack-Game/internal/ledger"
	"github.com/web3devz/Blockjack-Game/internal/orchestrator"
	"github.com/web3devz/Blockjack-Game/internal/signer"
)

var movesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "blackjack",
	Subsystem: "game",
	Name:      "operations_total",
	Help:      "Controller operations by action and result.",
}, []string{"action", "result"})

// OrchestratorPort submits one transaction and extracts the created object.
type OrchestratorPort interface {
	SubmitAndExtract(ctx context.Context, tx *ledger.Transaction, expected orchestrator.TypeTag, finalityTimeout time.Duration) (orchestrator.Result, error)
}

// CorrelatorPort issues the backend request keyed by transaction digest.
type CorrelatorPort interface {
	Do(ctx context.Context, gameID string, action backend.Action, req backend.CorrelationRequest) (*backend.MoveOutcome, error)
}

// ObjectReader is the read-only slice of the ledger client the controller
// uses to discover tokens and refetch games.
type ObjectReader interface {
	GetOwnedObjects(ctx context.Context, owner, structType string) ([]ledger.ObjectRef, error)
	GetObject(ctx context.Context, id string) (*ledger.ObjectData, error)
}

// RefreshTrigger requests a throttled balance refresh; safe to fire after
// every move.
type RefreshTrigger interface {
	RequestRefresh(ctx context.Context, identity string)
}

// Controller is the single owner of one game session. Mutual exclusion is
// structural: every operation holds the mutex while deciding and marks the
// session busy for its network phase, so no two orchestrations can be in
// flight for the same session.
type Controller struct {
	orch      OrchestratorPort
	correlate CorrelatorPort
	objects   ObjectReader
	refresher RefreshTrigger
	log       *slog.Logger

	packageAddr     string
	adminAddr       string
	houseDataID     string
	betAmount       uint64
	finalityTimeout time.Duration

	mu      sync.Mutex
	state   State
	session Session
	busy    bool
	lastErr *orchestrator.FlowError
}

func NewController(
	cfg config.Config,
	orch OrchestratorPort,
	correlate CorrelatorPort,
	objects ObjectReader,
	refresher RefreshTrigger,
	logger *slog.Logger,
) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		orch:            orch,
		correlate:       correlate,
		objects:         objects,
		refresher:       refresher,
		log:             logger,
		packageAddr:     cfg.Game.PackageAddress,
		adminAddr:       cfg.Game.AdminAddress,
		houseDataID:     cfg.Game.HouseDataID,
		betAmount:       cfg.Game.BetAmount,
		finalityTimeout: cfg.Network.FinalityTimeout,
		state:           StateNoToken,
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// LastError returns the failure that put the controller into StateErrored,
// or nil.
func (c *Controller) LastError() *orchestrator.FlowError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

var errOperationInProgress = errors.New("another operation is in progress")

// begin acquires the busy slot if the current state is one of allowed.
// A busy session or a wrong state is rejected immediately, never queued.
func (c *Controller) begin(transient State, allowed ...State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return orchestrator.NewFlowError(orchestrator.KindOperationInProgress, errOperationInProgress)
	}
	ok := len(allowed) == 0
	for _, s := range allowed {
		if c.state == s {
			ok = true
			break
		}
	}
	if !ok {
		return orchestrator.NewFlowError(orchestrator.KindOperationInProgress,
			fmt.Errorf("operation not allowed in state %s", c.state))
	}
	c.busy = true
	if transient != "" {
		c.state = transient
	}
	return nil
}

func (c *Controller) finish(action string, next State, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false
	if err != nil {
		var fe *orchestrator.FlowError
		if !errors.As(err, &fe) {
			fe = orchestrator.NewFlowError(orchestrator.KindSubmission, err)
		}
		c.state = StateErrored
		c.lastErr = fe
		movesTotal.WithLabelValues(action, string(fe.Kind)).Inc()
		c.log.Warn("operation failed", "action", action, "kind", string(fe.Kind), "error", fe.Error())
		return fe
	}
	c.state = next
	c.lastErr = nil
	movesTotal.WithLabelValues(action, "ok").Inc()
	return nil
}

// SetAccount switches the active identity: the session resets, an existing
// play token is looked up, and a balance refresh is triggered. An empty
// address disconnects.
func (c *Controller) SetAccount(ctx context.Context, address string) (State, error) {
	if err := c.begin(""); err != nil {
		return c.State(), err
	}

	c.mu.Lock()
	c.session = Session{Account: address}
	c.state = StateNoToken
	c.lastErr = nil
	c.mu.Unlock()

	if address == "" {
		c.refresher.RequestRefresh(ctx, "")
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
		return StateNoToken, nil
	}

	// Token lookup failures degrade to "no token": the user can mint, and
	// a later reconnect retries the lookup.
	refs, err := c.objects.GetOwnedObjects(ctx, address, c.tokenTag().String())
	if err != nil {
		c.log.Warn("play token lookup failed", "address", address, "error", err.Error())
	}

	c.mu.Lock()
	if len(refs) > 0 {
		c.session.TokenID = refs[0].ObjectID
		c.state = StateTokenReady
	}
	state := c.state
	c.busy = false
	c.mu.Unlock()

	c.refresher.RequestRefresh(ctx, address)
	return state, nil
}

// MintPlayToken mints the capability object required to start a game.
func (c *Controller) MintPlayToken(ctx context.Context) error {
	if err := c.begin("", StateNoToken, StateErrored); err != nil {
		return err
	}
	c.mu.Lock()
	account := c.session.Account
	alreadyToken := c.session.TokenID
	c.mu.Unlock()
	if account == "" || alreadyToken != "" {
		return c.finish("mint", StateNoToken,
			orchestrator.NewFlowError(orchestrator.KindSubmission,
				errors.New("mint requires a connected account without a token")))
	}

	result, err := c.orch.SubmitAndExtract(ctx, c.buildMintTx(account), c.tokenTag(), c.finalityTimeout)
	if err != nil {
		return c.finish("mint", StateErrored, err)
	}

	c.mu.Lock()
	c.session.TokenID = result.ObjectID
	c.session.TxDigest = result.Digest
	c.mu.Unlock()
	c.log.Info("play token minted", "token_id", result.ObjectID, "digest", result.Digest)

	c.refresher.RequestRefresh(ctx, account)
	return c.finish("mint", StateTokenReady, nil)
}

// CreateGame places the bet, creates the game on-ledger, then asks the
// backend for the initial deal keyed by the creation digest.
func (c *Controller) CreateGame(ctx context.Context) error {
	if err := c.begin(StateGameCreating, StateTokenReady, StateResolved, StateErrored); err != nil {
		return err
	}
	c.mu.Lock()
	account := c.session.Account
	tokenID := c.session.TokenID
	c.mu.Unlock()
	if account == "" || tokenID == "" {
		return c.finish("create_game", StateErrored,
			orchestrator.NewFlowError(orchestrator.KindSubmission,
				errors.New("create requires a connected account owning a play token")))
	}

	randomness, err := signer.RandomnessHex(32)
	if err != nil {
		return c.finish("create_game", StateErrored, err)
	}

	tx := c.buildCreateGameTx(account, tokenID, randomness)
	result, err := c.orch.SubmitAndExtract(ctx, tx, c.gameTag(), c.finalityTimeout)
	if err != nil {
		return c.finish("create_game", StateErrored, err)
	}

	c.mu.Lock()
	c.session.GameID = result.ObjectID
	c.session.TxDigest = result.Digest
	c.session.PlayerSum = 0
	c.session.LastMove = backend.ActionDeal
	c.session.LastRequestObjectID = ""
	c.state = StateDealPending
	c.mu.Unlock()
	c.log.Info("game created", "game_id", result.ObjectID, "digest", result.Digest)

	outcome, err := c.correlate.Do(ctx, result.ObjectID, backend.ActionDeal,
		backend.CorrelationRequest{TxDigest: result.Digest})
	if err != nil {
		// Partial failure: the game exists on-ledger. Keep the session so
		// Resync can redo the projection without redoing the chain action.
		return c.finish("create_game", StateErrored, err)
	}

	c.mu.Lock()
	if outcome.PlayerSum > 0 {
		c.session.PlayerSum = outcome.PlayerSum
	}
	c.mu.Unlock()

	c.refresher.RequestRefresh(ctx, account)
	return c.finish("create_game", StatePlayerTurn, nil)
}

// Hit draws another card.
func (c *Controller) Hit(ctx context.Context) error {
	return c.move(ctx, backend.ActionHit)
}

// Stand ends the player's turn.
func (c *Controller) Stand(ctx context.Context) error {
	return c.move(ctx, backend.ActionStand)
}

func (c *Controller) move(ctx context.Context, action backend.Action) error {
	if err := c.begin(StateMoveInFlight, StatePlayerTurn); err != nil {
		return err
	}
	c.mu.Lock()
	account := c.session.Account
	gameID := c.session.GameID
	playerSum := c.session.PlayerSum
	c.mu.Unlock()

	tx := c.buildMoveTx(account, action, gameID, playerSum)
	result, err := c.orch.SubmitAndExtract(ctx, tx, c.moveRequestTag(action), c.finalityTimeout)
	if err != nil {
		return c.finish(string(action), StateErrored, err)
	}

	c.mu.Lock()
	c.session.TxDigest = result.Digest
	c.session.LastMove = action
	c.session.LastRequestObjectID = result.ObjectID
	c.mu.Unlock()

	outcome, err := c.correlate.Do(ctx, gameID, action, backend.CorrelationRequest{
		TxDigest:        result.Digest,
		RequestObjectID: result.ObjectID,
	})
	if err != nil {
		// The move already happened on-ledger; only the projection failed.
		return c.finish(string(action), StateErrored, err)
	}

	next := StatePlayerTurn
	if outcome.Finished || action == backend.ActionStand {
		next = StateResolved
	}
	c.mu.Lock()
	if outcome.PlayerSum > 0 {
		c.session.PlayerSum = outcome.PlayerSum
	}
	c.mu.Unlock()

	c.refresher.RequestRefresh(ctx, account)
	return c.finish(string(action), next, nil)
}

// Resync re-issues the stored correlation after a backend failure. It never
// touches the ledger side: that action already succeeded.
func (c *Controller) Resync(ctx context.Context) error {
	if err := c.begin("", StateErrored); err != nil {
		return err
	}
	c.mu.Lock()
	lastErr := c.lastErr
	sess := c.session
	c.mu.Unlock()

	if lastErr == nil || lastErr.Kind != orchestrator.KindBackendCorrelationFailed {
		return c.finish("resync", StateErrored,
			orchestrator.NewFlowError(orchestrator.KindSubmission,
				errors.New("nothing to resync: last failure was not a correlation failure")))
	}
	if sess.GameID == "" || sess.TxDigest == "" || sess.LastMove == "" {
		return c.finish("resync", StateErrored,
			orchestrator.NewFlowError(orchestrator.KindSubmission,
				errors.New("nothing to resync: no stored correlation tuple")))
	}

	outcome, err := c.correlate.Do(ctx, sess.GameID, sess.LastMove, backend.CorrelationRequest{
		TxDigest:        sess.TxDigest,
		RequestObjectID: sess.LastRequestObjectID,
	})
	if err != nil {
		return c.finish("resync", StateErrored, err)
	}

	next := StatePlayerTurn
	if outcome.Finished || sess.LastMove == backend.ActionStand {
		next = StateResolved
	}
	c.mu.Lock()
	if outcome.PlayerSum > 0 {
		c.session.PlayerSum = outcome.PlayerSum
	}
	c.mu.Unlock()
	return c.finish("resync", next, nil)
}

// gameContent is the on-ledger game object's visible fields.
type gameContent struct {
	PlayerSum int `json:"player_sum"`
	Status    int `json:"status"`
}

// statusInProgress is the only non-terminal game status on the ledger.
const statusInProgress = 0

// RefetchGame reads the game object and refreshes the local view of
// player_sum and resolution. Usable from any non-busy state with a game.
func (c *Controller) RefetchGame(ctx context.Context) error {
	if err := c.begin(""); err != nil {
		return err
	}
	c.mu.Lock()
	gameID := c.session.GameID
	state := c.state
	c.mu.Unlock()

	release := func() {
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
	}

	if gameID == "" {
		release()
		return errors.New("no game to refetch")
	}
	obj, err := c.objects.GetObject(ctx, gameID)
	if err != nil {
		release()
		return err
	}
	var content gameContent
	if len(obj.Content) > 0 {
		if err := json.Unmarshal(obj.Content, &content); err != nil {
			release()
			return fmt.Errorf("game object content: %w", err)
		}
	}

	c.mu.Lock()
	c.session.PlayerSum = content.PlayerSum
	if content.Status != statusInProgress && (state == StatePlayerTurn || state == StateDealPending) {
		c.state = StateResolved
	}
	c.busy = false
	c.mu.Unlock()
	return nil
}
