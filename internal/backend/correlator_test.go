package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/web3devz/Blockjack-Game/internal/orchestrator"
)

func TestDoPostsCorrelationRequest(t *testing.T) {
	var sawPath string
	var sawBody CorrelationRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&sawBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(MoveOutcome{Message: "dealt", TxDigest: sawBody.TxDigest, PlayerSum: 14})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, nil)
	outcome, err := c.Do(context.Background(), "g1", ActionDeal, CorrelationRequest{TxDigest: "d1"})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if sawPath != "/games/g1/deal" {
		t.Fatalf("unexpected path: %q", sawPath)
	}
	if sawBody.TxDigest != "d1" || sawBody.RequestObjectID != "" {
		t.Fatalf("unexpected body: %+v", sawBody)
	}
	if outcome.Message != "dealt" || outcome.PlayerSum != 14 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
}

func TestDoIncludesRequestObjectIDForMoves(t *testing.T) {
	var sawBody CorrelationRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&sawBody)
		_ = json.NewEncoder(w).Encode(MoveOutcome{Message: "hit processed", TxDigest: sawBody.TxDigest})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, nil)
	_, err := c.Do(context.Background(), "g1", ActionHit, CorrelationRequest{TxDigest: "d2", RequestObjectID: "r1"})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if sawBody.RequestObjectID != "r1" {
		t.Fatalf("requestObjectId missing from body: %+v", sawBody)
	}
}

func TestDoServerErrorIsPartialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, nil)
	_, err := c.Do(context.Background(), "g1", ActionHit, CorrelationRequest{TxDigest: "d1", RequestObjectID: "r1"})
	if orchestrator.KindOf(err) != orchestrator.KindBackendCorrelationFailed {
		t.Fatalf("expected KindBackendCorrelationFailed, got %v", err)
	}
}

func TestDoTransportErrorIsPartialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused

	c := New(srv.URL, time.Second, nil)
	_, err := c.Do(context.Background(), "g1", ActionStand, CorrelationRequest{TxDigest: "d1"})
	if orchestrator.KindOf(err) != orchestrator.KindBackendCorrelationFailed {
		t.Fatalf("expected KindBackendCorrelationFailed, got %v", err)
	}
}
