// Package vm defines the contract call boundary used during block
// proposal and provides a registry of native programs behind it.
package vm

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/open-protocol/ledger/foundation/blockchain/codec"
)

// ErrExecution is returned for every failed contract call.
var ErrExecution = errors.New("contract execution failed")

// Memory is the mutable contract storage exposed to a call. A *codec.Map
// satisfies it.
type Memory interface {
	Get(key codec.Value) (codec.Value, bool)
	Set(key codec.Value, value codec.Value)
	Delete(key codec.Value)
}

// Executor runs a contract call against the contract's memory. A call
// either succeeds or returns an error; the caller discards the memory on
// error.
type Executor interface {
	Call(mem Memory, caller string, call Call) error
}

// =============================================================================

// Call describes a single contract invocation.
type Call struct {
	Address string // Public key of the contract account.
	Code    string // Code held by the contract account.
	Method  string
	Params  []byte // Codec encoded parameters.
}

// EncodeInput builds the transaction input for calling method with the
// given parameters.
func EncodeInput(method string, params ...codec.Value) (string, error) {
	encoded, err := codec.Encode(params...)
	if err != nil {
		return "", err
	}

	input, err := codec.Encode(
		codec.Hex(hex.EncodeToString([]byte(method))),
		codec.Hex(hex.EncodeToString(encoded)),
	)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(input), nil
}

// DecodeCall parses transaction input into a call against the contract.
func DecodeCall(address string, code string, input string) (Call, error) {
	data, err := codec.HexBytes(input)
	if err != nil {
		return Call{}, fmt.Errorf("input: %w", err)
	}

	values, err := codec.Decode(data)
	if err != nil {
		return Call{}, fmt.Errorf("input: %w", err)
	}

	if len(values) != 2 {
		return Call{}, fmt.Errorf("input: expected method and params, got %d values", len(values))
	}

	methodHex, ok := codec.AsHex(values[0])
	if !ok {
		return Call{}, fmt.Errorf("input: method is %T", values[0])
	}

	paramsHex, ok := codec.AsHex(values[1])
	if !ok {
		return Call{}, fmt.Errorf("input: params is %T", values[1])
	}

	method, err := hex.DecodeString(methodHex)
	if err != nil {
		return Call{}, fmt.Errorf("input: method: %w", err)
	}

	params, err := hex.DecodeString(paramsHex)
	if err != nil {
		return Call{}, fmt.Errorf("input: params: %w", err)
	}

	call := Call{
		Address: address,
		Code:    code,
		Method:  string(method),
		Params:  params,
	}

	return call, nil
}
