package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/web3devz/Blockjack-Game/internal/faucet"
	"github.com/web3devz/Blockjack-Game/internal/game"
	"github.com/web3devz/Blockjack-Game/internal/orchestrator"
)

type fakeGames struct {
	state    game.State
	session  game.Session
	lastErr  *orchestrator.FlowError
	flowErr  error
	accounts []string
}

func (f *fakeGames) SetAccount(_ context.Context, address string) (game.State, error) {
	f.accounts = append(f.accounts, address)
	if f.flowErr != nil {
		return "", f.flowErr
	}
	return f.state, nil
}

func (f *fakeGames) MintPlayToken(context.Context) error { return f.flowErr }
func (f *fakeGames) CreateGame(context.Context) error    { return f.flowErr }
func (f *fakeGames) Hit(context.Context) error           { return f.flowErr }
func (f *fakeGames) Stand(context.Context) error         { return f.flowErr }
func (f *fakeGames) Resync(context.Context) error        { return f.flowErr }
func (f *fakeGames) RefetchGame(context.Context) error   { return f.flowErr }
func (f *fakeGames) State() game.State                   { return f.state }
func (f *fakeGames) Session() game.Session               { return f.session }
func (f *fakeGames) LastError() *orchestrator.FlowError  { return f.lastErr }

type fakeBalance struct {
	value     decimal.Decimal
	loading   bool
	refreshes []string
}

func (f *fakeBalance) Balance() decimal.Decimal { return f.value }
func (f *fakeBalance) Loading() bool            { return f.loading }
func (f *fakeBalance) RequestRefresh(_ context.Context, identity string) {
	f.refreshes = append(f.refreshes, identity)
}

type fakeFaucet struct {
	err        error
	recipients []string
}

func (f *fakeFaucet) Request(_ context.Context, recipient string) error {
	f.recipients = append(f.recipients, recipient)
	return f.err
}

func testServer(t *testing.T, games *fakeGames, balance *fakeBalance, fc *fakeFaucet, token string) *httptest.Server {
	t.Helper()
	if games == nil {
		games = &fakeGames{state: game.StateNoToken}
	}
	if balance == nil {
		balance = &fakeBalance{value: decimal.Zero}
	}
	if fc == nil {
		fc = &fakeFaucet{}
	}
	s := NewServer("127.0.0.1:0", token, "https://onescan.cc", games, balance, fc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ts := httptest.NewServer(s.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func callRPC(t *testing.T, ts *httptest.Server, token, method string, params any) rpcResponse {
	t.Helper()
	body := map[string]any{"jsonrpc": "2.0", "id": 1, "method": method}
	if params != nil {
		body["params"] = params
	}
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/rpc", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post rpc: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	var decoded rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return decoded
}

func TestStatusIncludesExplorerLink(t *testing.T) {
	games := &fakeGames{
		state: game.StatePlayerTurn,
		session: game.Session{
			Account:   "0xabc",
			GameID:    "0xgame",
			TxDigest:  "9uvd",
			PlayerSum: 15,
		},
	}
	ts := testServer(t, games, nil, nil, "")

	resp := callRPC(t, ts, "", "status", nil)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	raw, _ := json.Marshal(resp.Result)
	var result statusResult
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.State != string(game.StatePlayerTurn) || result.PlayerSum != 15 {
		t.Fatalf("unexpected status %+v", result)
	}
	if result.ExplorerURL != "https://onescan.cc/tx/9uvd" {
		t.Fatalf("unexpected explorer url %q", result.ExplorerURL)
	}
}

func TestFlowErrorCodes(t *testing.T) {
	cases := []struct {
		kind orchestrator.Kind
		code int
	}{
		{orchestrator.KindSubmission, -32020},
		{orchestrator.KindFinalityTimeout, -32021},
		{orchestrator.KindTransactionReverted, -32022},
		{orchestrator.KindExpectedObjectMissing, -32023},
		{orchestrator.KindBackendCorrelationFailed, -32024},
		{orchestrator.KindOperationInProgress, -32025},
	}
	for _, tc := range cases {
		games := &fakeGames{
			state:   game.StateErrored,
			flowErr: orchestrator.NewFlowError(tc.kind, nil),
		}
		ts := testServer(t, games, nil, nil, "")
		resp := callRPC(t, ts, "", "hit", nil)
		if resp.Error == nil || resp.Error.Code != tc.code {
			t.Fatalf("kind %s: expected code %d, got %+v", tc.kind, tc.code, resp.Error)
		}
	}
}

func TestAuthRequiredWhenTokenSet(t *testing.T) {
	ts := testServer(t, nil, nil, nil, "secret")

	raw := []byte(`{"jsonrpc":"2.0","id":1,"method":"status"}`)
	resp, err := http.Post(ts.URL+"/rpc", "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	decoded := callRPC(t, ts, "secret", "status", nil)
	if decoded.Error != nil {
		t.Fatalf("bearer token should authorize: %+v", decoded.Error)
	}
}

func TestFaucetRateLimitCode(t *testing.T) {
	fc := &fakeFaucet{err: faucet.ErrRateLimited}
	games := &fakeGames{session: game.Session{Account: "0xabc"}}
	ts := testServer(t, games, nil, fc, "")

	resp := callRPC(t, ts, "", "faucet_request", nil)
	if resp.Error == nil || resp.Error.Code != -32026 {
		t.Fatalf("expected faucet rate limit code, got %+v", resp.Error)
	}
	if len(fc.recipients) != 1 || fc.recipients[0] != "0xabc" {
		t.Fatalf("faucet should default to the session account, got %v", fc.recipients)
	}
}

func TestInvalidRequests(t *testing.T) {
	ts := testServer(t, nil, nil, nil, "")

	raw := []byte(`{"jsonrpc":"1.0","id":1,"method":"status"}`)
	resp, err := http.Post(ts.URL+"/rpc", "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	var decoded rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if decoded.Error == nil || decoded.Error.Code != -32600 {
		t.Fatalf("expected invalid request, got %+v", decoded.Error)
	}

	unknown := callRPC(t, ts, "", "shuffle", nil)
	if unknown.Error == nil || unknown.Error.Code != -32601 {
		t.Fatalf("expected method not found, got %+v", unknown.Error)
	}

	missing := callRPC(t, ts, "", "set_account", nil)
	if missing.Error == nil || missing.Error.Code != -32602 {
		t.Fatalf("expected invalid params, got %+v", missing.Error)
	}
}

func TestRefreshBalanceUsesSessionAccount(t *testing.T) {
	games := &fakeGames{session: game.Session{Account: "0xdef"}}
	balance := &fakeBalance{value: decimal.RequireFromString("1.5")}
	ts := testServer(t, games, balance, nil, "")

	resp := callRPC(t, ts, "", "refresh_balance", nil)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	if len(balance.refreshes) != 1 || balance.refreshes[0] != "0xdef" {
		t.Fatalf("expected refresh for session account, got %v", balance.refreshes)
	}

	got := callRPC(t, ts, "", "balance", nil)
	raw, _ := json.Marshal(got.Result)
	var result balanceResult
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("decode balance: %v", err)
	}
	if result.Balance != "1.5" {
		t.Fatalf("unexpected balance %q", result.Balance)
	}
}
