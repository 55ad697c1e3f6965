package ledger

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/web3devz/Blockjack-Game/internal/signer"
)

const (
	methodExecuteTransaction = "one_executeTransactionBlock"
	methodGetTransaction     = "one_getTransactionBlock"
	methodGetBalance         = "one_getBalance"
	methodGetOwnedObjects    = "one_getOwnedObjects"
	methodGetObject          = "one_getObject"
	methodChainIdentifier    = "one_getChainIdentifier"

	waitPollInterval = 500 * time.Millisecond
)

// ErrWaitTimeout reports that a transaction was not observed as finalized
// within the caller's deadline. The transaction may still finalize later;
// callers must treat this as inconclusive, never as failure.
var ErrWaitTimeout = errors.New("timed out waiting for transaction finality")

// RPCError is a structured error returned by the ledger endpoint.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("ledger rpc error %d: %s", e.Code, e.Message)
}

// TransactionSigner signs encoded transaction bytes for one account.
type TransactionSigner interface {
	Address() string
	SignTransaction(txBytes []byte) signer.Signature
}

// Client is a thin JSON-RPC 2.0 facade over the ledger's read and submit
// endpoints. It holds no state beyond the endpoint and transport.
type Client struct {
	endpoint string
	http     *http.Client
	log      *slog.Logger
}

func New(endpoint string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 30 * time.Second},
		log:      logger,
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ledger request %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("ledger response %s: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ledger endpoint %s: unexpected status %d", method, resp.StatusCode)
	}

	var decoded rpcResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return fmt.Errorf("ledger response %s: %w", method, err)
	}
	if decoded.Error != nil {
		return decoded.Error
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(decoded.Result, out)
}

// ExecuteTransaction encodes, signs and submits a transaction, returning the
// digest the ledger assigned. It does not wait for finality.
func (c *Client) ExecuteTransaction(ctx context.Context, tx *Transaction, s TransactionSigner) (string, error) {
	txBytes, err := tx.Encode()
	if err != nil {
		return "", err
	}
	sig := s.SignTransaction(txBytes)

	var result struct {
		Digest string `json:"digest"`
	}
	err = c.call(ctx, methodExecuteTransaction, []any{
		base64.StdEncoding.EncodeToString(txBytes),
		[]signer.Signature{sig},
	}, &result)
	if err != nil {
		return "", err
	}
	c.log.Debug("transaction submitted", "digest", result.Digest)
	return result.Digest, nil
}

// WaitForTransaction polls until the digest is readable or the timeout
// elapses. An RPC "not found" is expected while the transaction settles;
// transport errors abort the wait.
func (c *Client) WaitForTransaction(ctx context.Context, digest string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(waitPollInterval)
	defer ticker.Stop()

	for {
		var probe TransactionBlock
		err := c.call(waitCtx, methodGetTransaction, []any{digest, FetchOptions{}}, &probe)
		if err == nil {
			return nil
		}
		var rpcErr *RPCError
		if !errors.As(err, &rpcErr) {
			if waitCtx.Err() != nil {
				return ErrWaitTimeout
			}
			return err
		}

		select {
		case <-waitCtx.Done():
			return ErrWaitTimeout
		case <-ticker.C:
		}
	}
}

// GetTransactionBlock fetches the finalized view of a transaction with the
// requested sections.
func (c *Client) GetTransactionBlock(ctx context.Context, digest string, opts FetchOptions) (*TransactionBlock, error) {
	var block TransactionBlock
	if err := c.call(ctx, methodGetTransaction, []any{digest, opts}, &block); err != nil {
		return nil, err
	}
	return &block, nil
}

// GetBalance returns the aggregated gas-coin balance for the owner address.
func (c *Client) GetBalance(ctx context.Context, owner string) (*CoinBalance, error) {
	var balance CoinBalance
	if err := c.call(ctx, methodGetBalance, []any{owner}, &balance); err != nil {
		return nil, err
	}
	return &balance, nil
}

// GetOwnedObjects lists the owner's objects of one fully qualified type.
func (c *Client) GetOwnedObjects(ctx context.Context, owner, structType string) ([]ObjectRef, error) {
	var result struct {
		Data []ObjectRef `json:"data"`
	}
	filter := map[string]any{"StructType": structType}
	if err := c.call(ctx, methodGetOwnedObjects, []any{owner, filter}, &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

// GetObject reads one object with its content.
func (c *Client) GetObject(ctx context.Context, id string) (*ObjectData, error) {
	var obj ObjectData
	opts := map[string]any{"showContent": true, "showType": true}
	if err := c.call(ctx, methodGetObject, []any{id, opts}, &obj); err != nil {
		return nil, err
	}
	return &obj, nil
}

// ChainIdentifier is a cheap liveness probe used by preflight checks.
func (c *Client) ChainIdentifier(ctx context.Context) (string, error) {
	var id string
	if err := c.call(ctx, methodChainIdentifier, []any{}, &id); err != nil {
		return "", err
	}
	return id, nil
}
