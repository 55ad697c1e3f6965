package api

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/web3devz/Blockjack-Game/internal/faucet"
	"github.com/web3devz/Blockjack-Game/internal/game"
	"github.com/web3devz/Blockjack-Game/internal/orchestrator"
)

// RPC error codes for flow failures. Parse and transport errors use the
// standard JSON-RPC range.
const (
	codeSubmission          = -32020
	codeFinalityTimeout     = -32021
	codeReverted            = -32022
	codeObjectMissing       = -32023
	codeCorrelationFailed   = -32024
	codeOperationInProgress = -32025
	codeFaucetRateLimited   = -32026
	codeInternal            = -32000
)

type statusResult struct {
	State       string `json:"state"`
	Account     string `json:"account,omitempty"`
	TokenID     string `json:"tokenId,omitempty"`
	GameID      string `json:"gameId,omitempty"`
	TxDigest    string `json:"txDigest,omitempty"`
	ExplorerURL string `json:"explorerUrl,omitempty"`
	PlayerSum   int    `json:"playerSum"`
	LastError   string `json:"lastError,omitempty"`
}

type balanceResult struct {
	Balance string `json:"balance"`
	Loading bool   `json:"loading"`
}

type addressParams struct {
	Address string `json:"address"`
}

func (s *Server) dispatch(ctx context.Context, method string, rawParams json.RawMessage) (any, *rpcError) {
	switch method {
	case "status":
		return s.statusResult(), nil
	case "set_account":
		var params addressParams
		if err := decodeParams(rawParams, &params); err != nil || params.Address == "" {
			return nil, rpcInvalidParams()
		}
		state, err := s.games.SetAccount(ctx, params.Address)
		if err != nil {
			return nil, mapFlowError(err)
		}
		return map[string]string{"state": string(state)}, nil
	case "mint_token":
		return s.flow(s.games.MintPlayToken(ctx))
	case "create_game":
		return s.flow(s.games.CreateGame(ctx))
	case "hit":
		return s.flow(s.games.Hit(ctx))
	case "stand":
		return s.flow(s.games.Stand(ctx))
	case "resync":
		return s.flow(s.games.Resync(ctx))
	case "refetch_game":
		return s.flow(s.games.RefetchGame(ctx))
	case "balance":
		return balanceResult{
			Balance: s.balance.Balance().String(),
			Loading: s.balance.Loading(),
		}, nil
	case "refresh_balance":
		s.balance.RequestRefresh(ctx, s.games.Session().Account)
		return map[string]bool{"requested": true}, nil
	case "faucet_request":
		var params addressParams
		_ = decodeParams(rawParams, &params)
		recipient := params.Address
		if recipient == "" {
			recipient = s.games.Session().Account
		}
		if recipient == "" {
			return nil, rpcInvalidParams()
		}
		if err := s.faucet.Request(ctx, recipient); err != nil {
			if errors.Is(err, faucet.ErrRateLimited) {
				return nil, &rpcError{Code: codeFaucetRateLimited, Message: err.Error()}
			}
			return nil, &rpcError{Code: codeInternal, Message: err.Error()}
		}
		return map[string]bool{"funded": true}, nil
	default:
		return nil, &rpcError{Code: -32601, Message: "method not found"}
	}
}

func (s *Server) flow(err error) (any, *rpcError) {
	if err != nil {
		return nil, mapFlowError(err)
	}
	return s.statusResult(), nil
}

func (s *Server) statusResult() statusResult {
	session := s.games.Session()
	result := statusResult{
		State:     string(s.games.State()),
		Account:   session.Account,
		TokenID:   session.TokenID,
		GameID:    session.GameID,
		TxDigest:  session.TxDigest,
		PlayerSum: session.PlayerSum,
	}
	if session.TxDigest != "" && s.explorerURL != "" {
		result.ExplorerURL = s.explorerURL + "/tx/" + session.TxDigest
	}
	if s.games.State() == game.StateErrored {
		if fe := s.games.LastError(); fe != nil {
			result.LastError = fe.Error()
		}
	}
	return result
}

func mapFlowError(err error) *rpcError {
	code := codeInternal
	switch orchestrator.KindOf(err) {
	case orchestrator.KindSubmission:
		code = codeSubmission
	case orchestrator.KindFinalityTimeout:
		code = codeFinalityTimeout
	case orchestrator.KindTransactionReverted:
		code = codeReverted
	case orchestrator.KindExpectedObjectMissing:
		code = codeObjectMissing
	case orchestrator.KindBackendCorrelationFailed:
		code = codeCorrelationFailed
	case orchestrator.KindOperationInProgress:
		code = codeOperationInProgress
	}
	return &rpcError{Code: code, Message: err.Error()}
}

func decodeParams(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		return errors.New("missing params")
	}
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}
