package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/web3devz/Blockjack-Game/internal/ledger"
)

// TypeTag is the fully qualified identifier of an on-ledger object type.
// Matching is full equality; a suffix match could false-positive across
// unrelated packages sharing a module name.
type TypeTag struct {
	Package string
	Module  string
	Name    string
}

func (t TypeTag) String() string {
	return t.Package + "::" + t.Module + "::" + t.Name
}

func (t TypeTag) Matches(objectType string) bool {
	return objectType == t.String()
}

// Result is the pair every game action needs from a finalized transaction:
// the digest (the correlation key for the backend) and the id of the domain
// object the transaction created.
type Result struct {
	Digest   string
	ObjectID string
}

// LedgerPort is the slice of the ledger client the orchestrator needs.
type LedgerPort interface {
	ExecuteTransaction(ctx context.Context, tx *ledger.Transaction, s ledger.TransactionSigner) (string, error)
	WaitForTransaction(ctx context.Context, digest string, timeout time.Duration) error
	GetTransactionBlock(ctx context.Context, digest string, opts ledger.FetchOptions) (*ledger.TransactionBlock, error)
}

// Orchestrator submits one transaction, waits for finality, and extracts the
// created object every caller needs. It is stateless; one instance serves
// all game actions.
type Orchestrator struct {
	ledger LedgerPort
	signer ledger.TransactionSigner
	log    *slog.Logger
}

func New(ledgerPort LedgerPort, s ledger.TransactionSigner, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{ledger: ledgerPort, signer: s, log: logger}
}

// SubmitAndExtract runs the full submit → finality → effects → extract
// pipeline. Every exit path is a FlowError with exactly one kind; see the
// kind docs for retry semantics. The single invariant this method owns is
// that a transaction whose outcome is unknown is never resubmitted.
func (o *Orchestrator) SubmitAndExtract(
	ctx context.Context,
	tx *ledger.Transaction,
	expected TypeTag,
	finalityTimeout time.Duration,
) (Result, error) {
	digest, err := o.ledger.ExecuteTransaction(ctx, tx, o.signer)
	if err != nil {
		return Result{}, NewFlowError(KindSubmission, err)
	}
	o.log.Debug("transaction submitted", "digest", digest, "expected_type", expected.String())

	if err := o.ledger.WaitForTransaction(ctx, digest, finalityTimeout); err != nil {
		if errors.Is(err, ledger.ErrWaitTimeout) {
			return Result{}, NewFlowError(KindFinalityTimeout,
				fmt.Errorf("digest %s: %w", digest, err))
		}
		return Result{}, NewFlowError(KindFinalityTimeout,
			fmt.Errorf("digest %s: finality wait aborted: %w", digest, err))
	}

	block, err := o.ledger.GetTransactionBlock(ctx, digest, ledger.FetchOptions{
		ShowEffects:       true,
		ShowObjectChanges: true,
	})
	if err != nil {
		return Result{}, NewFlowError(KindFinalityTimeout,
			fmt.Errorf("digest %s: effects fetch failed after finality: %w", digest, err))
	}
	if block.Effects == nil || !block.Effects.Status.IsSuccess() {
		reason := "no effects returned"
		if block.Effects != nil {
			reason = block.Effects.Status.Error
		}
		return Result{}, NewFlowError(KindTransactionReverted,
			fmt.Errorf("digest %s: %s", digest, reason))
	}

	objectID, err := extractCreated(block.ObjectChanges, expected)
	if err != nil {
		return Result{}, NewFlowError(KindExpectedObjectMissing,
			fmt.Errorf("digest %s: %w", digest, err))
	}

	o.log.Info("transaction finalized",
		"digest", digest, "object_id", objectID)
	return Result{Digest: digest, ObjectID: objectID}, nil
}

// extractCreated selects the unique created object matching the expected
// type tag. Zero matches and multiple matches are both failures: the tag
// must be specific enough to disambiguate.
func extractCreated(changes []ledger.ObjectChange, expected TypeTag) (string, error) {
	var found []string
	for _, change := range changes {
		if change.Type != ledger.ChangeCreated {
			continue
		}
		if expected.Matches(change.ObjectType) {
			found = append(found, change.ObjectID)
		}
	}
	switch len(found) {
	case 0:
		return "", fmt.Errorf("no created object of type %s", expected.String())
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("ambiguous: %d created objects of type %s", len(found), expected.String())
	}
}
