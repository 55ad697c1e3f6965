package ledger

import "encoding/json"

// Transaction is the unsigned intent a caller builds before submission. The
// ledger's own binary wire format is its concern; the client encodes this
// structure deterministically and signs the encoded bytes.
type Transaction struct {
	Sender    string    `json:"sender"`
	GasBudget uint64    `json:"gasBudget,omitempty"`
	Commands  []Command `json:"commands"`
}

// Command is one step of a programmable transaction. Exactly one field is
// set.
type Command struct {
	MoveCall        *MoveCall        `json:"moveCall,omitempty"`
	SplitGasCoin    []uint64         `json:"splitGasCoin,omitempty"`
	TransferObjects *TransferObjects `json:"transferObjects,omitempty"`
}

// MoveCall invokes `package::module::function` with ordered arguments.
type MoveCall struct {
	Target    string     `json:"target"`
	Arguments []Argument `json:"arguments,omitempty"`
}

// Argument is one-of: an owned/shared object reference, a pure value, or the
// result of a previous command (by index).
type Argument struct {
	Object string `json:"object,omitempty"`
	Pure   any    `json:"pure,omitempty"`
	Result *int   `json:"result,omitempty"`
}

// TransferObjects sends the results of previous commands to a recipient.
type TransferObjects struct {
	Results   []int  `json:"results"`
	Recipient string `json:"recipient"`
}

func ObjectArg(id string) Argument { return Argument{Object: id} }
func PureArg(v any) Argument       { return Argument{Pure: v} }
func ResultArg(index int) Argument { i := index; return Argument{Result: &i} }

// Encode produces the canonical byte form that gets signed and submitted.
func (t *Transaction) Encode() ([]byte, error) {
	return json.Marshal(t)
}

// FetchOptions controls which sections of a transaction block the ledger
// returns.
type FetchOptions struct {
	ShowEffects       bool `json:"showEffects,omitempty"`
	ShowObjectChanges bool `json:"showObjectChanges,omitempty"`
	ShowEvents        bool `json:"showEvents,omitempty"`
}

// TransactionBlock is the finalized view of a submitted transaction.
type TransactionBlock struct {
	Digest        string         `json:"digest"`
	Effects       *Effects       `json:"effects,omitempty"`
	ObjectChanges []ObjectChange `json:"objectChanges,omitempty"`
	Events        []Event        `json:"events,omitempty"`
}

type Effects struct {
	Status            ExecutionStatus `json:"status"`
	TransactionDigest string          `json:"transactionDigest"`
}

// ExecutionStatus reports whether the ledger executed the transaction
// successfully. Status is "success" or "failure".
type ExecutionStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

const StatusSuccess = "success"

func (s ExecutionStatus) IsSuccess() bool { return s.Status == StatusSuccess }

// ObjectChange describes one object touched by a transaction. Type is the
// change kind ("created", "mutated", ...); ObjectType is the fully qualified
// on-ledger type tag.
type ObjectChange struct {
	Type       string `json:"type"`
	ObjectType string `json:"objectType"`
	ObjectID   string `json:"objectId"`
}

const ChangeCreated = "created"

type Event struct {
	Type       string          `json:"type"`
	ParsedJSON json.RawMessage `json:"parsedJson,omitempty"`
}

// CoinBalance is the ledger's aggregated coin holding for one owner.
// TotalBalance is a base-unit integer rendered as a string.
type CoinBalance struct {
	CoinType        string `json:"coinType"`
	TotalBalance    string `json:"totalBalance"`
	CoinObjectCount int    `json:"coinObjectCount"`
}

// ObjectRef identifies one owned object and its type tag.
type ObjectRef struct {
	ObjectID string `json:"objectId"`
	Type     string `json:"type"`
}

// ObjectData is a full object read, content included.
type ObjectData struct {
	ObjectID string          `json:"objectId"`
	Type     string          `json:"type"`
	Content  json.RawMessage `json:"content,omitempty"`
}
