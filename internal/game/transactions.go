package game

import (
	"github.com/web3devz/Blockjack-Game/internal/backend"
	"github.com/web3devz/Blockjack-Game/internal/ledger"
	"github.com/web3devz/Blockjack-Game/internal/orchestrator"
)

const (
	tokenModule = "counter_nft"
	gameModule  = "single_player_blackjack"
)

func (c *Controller) tokenTag() orchestrator.TypeTag {
	return orchestrator.TypeTag{Package: c.packageAddr, Module: tokenModule, Name: "Counter"}
}

func (c *Controller) gameTag() orchestrator.TypeTag {
	return orchestrator.TypeTag{Package: c.packageAddr, Module: gameModule, Name: "Game"}
}

func (c *Controller) moveRequestTag(action backend.Action) orchestrator.TypeTag {
	name := "HitRequest"
	if action == backend.ActionStand {
		name = "StandRequest"
	}
	return orchestrator.TypeTag{Package: c.packageAddr, Module: gameModule, Name: name}
}

func (c *Controller) buildMintTx(sender string) *ledger.Transaction {
	return &ledger.Transaction{
		Sender: sender,
		Commands: []ledger.Command{
			{MoveCall: &ledger.MoveCall{
				Target: c.packageAddr + "::" + tokenModule + "::mint_and_transfer",
			}},
		},
	}
}

// buildCreateGameTx splits the bet off the gas coin, then places it together
// with the play token, the client randomness and the shared house object.
func (c *Controller) buildCreateGameTx(sender, tokenID, randomnessHex string) *ledger.Transaction {
	return &ledger.Transaction{
		Sender: sender,
		Commands: []ledger.Command{
			{SplitGasCoin: []uint64{c.betAmount}},
			{MoveCall: &ledger.MoveCall{
				Target: c.packageAddr + "::" + gameModule + "::place_bet_and_create_game",
				Arguments: []ledger.Argument{
					ledger.PureArg(randomnessHex),
					ledger.ObjectArg(tokenID),
					ledger.ResultArg(0),
					ledger.ObjectArg(c.houseDataID),
				},
			}},
		},
	}
}

// buildMoveTx creates the ephemeral move-request object and transfers it to
// the admin address, where the backend picks it up.
func (c *Controller) buildMoveTx(sender string, action backend.Action, gameID string, playerSum int) *ledger.Transaction {
	target := c.packageAddr + "::" + gameModule + "::do_hit"
	if action == backend.ActionStand {
		target = c.packageAddr + "::" + gameModule + "::do_stand"
	}
	return &ledger.Transaction{
		Sender: sender,
		Commands: []ledger.Command{
			{MoveCall: &ledger.MoveCall{
				Target: target,
				Arguments: []ledger.Argument{
					ledger.ObjectArg(gameID),
					ledger.PureArg(playerSum),
				},
			}},
			{TransferObjects: &ledger.TransferObjects{
				Results:   []int{0},
				Recipient: c.adminAddr,
			}},
		},
	}
}
