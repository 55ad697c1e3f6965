package game

import "github.com/web3devz/Blockjack-Game/internal/backend"

// State is the controller's position in the play lifecycle.
type State string

const (
	// StateNoToken: the account owns no play token; one must be minted
	// before a game can start.
	StateNoToken State = "no_token"
	// StateTokenReady: a play token exists, a game can be created.
	StateTokenReady State = "token_ready"
	// StateGameCreating: the create transaction is in flight.
	StateGameCreating State = "game_creating"
	// StateDealPending: the game object exists on-ledger, waiting for the
	// backend's initial deal.
	StateDealPending State = "deal_pending"
	// StatePlayerTurn: the player may hit or stand.
	StatePlayerTurn State = "player_turn"
	// StateMoveInFlight: a hit or stand is being orchestrated.
	StateMoveInFlight State = "move_in_flight"
	// StateResolved: the hand reached a terminal outcome.
	StateResolved State = "resolved"
	// StateErrored: a flow failed; LastError carries the kind. A fresh
	// user-initiated action is required to leave.
	StateErrored State = "errored"
)

// Session is the in-memory view of one game, rebuilt from the ledger on
// restart; GameID is the durable source of truth for its identity.
type Session struct {
	Account string
	TokenID string
	GameID  string
	// TxDigest is the digest of the last finalized ledger operation that
	// advanced this session.
	TxDigest  string
	PlayerSum int
	// LastMove and LastRequestObjectID are the stored half of the
	// correlation tuple, kept so a failed backend projection can be
	// resynced without redoing the on-ledger action.
	LastMove            backend.Action
	LastRequestObjectID string
}
