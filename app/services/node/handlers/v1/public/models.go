package public

import (
	"encoding/hex"
	"encoding/json"

	"github.com/open-protocol/ledger/business/web/errs"
	"github.com/open-protocol/ledger/foundation/blockchain/codec"
	"github.com/open-protocol/ledger/foundation/blockchain/database"
)

const rpcVersion = "2.0"

// rpcRequest is a JSON-RPC 2.0 request. A request without an id is a
// notification and gets no response body.
type rpcRequest struct {
	JSONRPC string            `json:"jsonrpc" validate:"required,eq=2.0"`
	ID      json.RawMessage   `json:"id,omitempty"`
	Method  string            `json:"method" validate:"required"`
	Params  []json.RawMessage `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *errs.RPCError  `json:"error,omitempty"`
}

// null is used so a nil result is still written as a JSON null.
var null = json.RawMessage("null")

// =============================================================================

type account struct {
	PublicKey string `json:"pubkey"`
	Name      string `json:"name,omitempty"`
	Balance   string `json:"balance"`
	Nonce     uint64 `json:"nonce"`
	Code      string `json:"code"`
	Memory    string `json:"memory"`
}

func toAccount(acct database.Account, name string) (account, error) {
	mem, err := codec.Encode(acct.Memory)
	if err != nil {
		return account{}, err
	}

	act := account{
		PublicKey: acct.PublicKey,
		Name:      name,
		Balance:   database.AmountHex(acct.Balance),
		Nonce:     acct.Nonce,
		Code:      acct.Code,
		Memory:    hex.EncodeToString(mem),
	}

	return act, nil
}

type tx struct {
	Hash     string `json:"hash"`
	From     string `json:"from"`
	FromName string `json:"from_name,omitempty"`
	To       string `json:"to"`
	ToName   string `json:"to_name,omitempty"`
	Value    string `json:"value"`
	Nonce    uint64 `json:"nonce"`
	Input    string `json:"input"`
	Sig      string `json:"sig"`
}

type contract struct {
	Address   string `json:"address"`
	StateRoot string `json:"stateroot"`
}

type health struct {
	Status      string `json:"status"`
	LatestBlock uint64 `json:"latest_block"`
	Pending     int    `json:"pending"`
}
