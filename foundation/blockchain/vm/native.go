package vm

import (
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/open-protocol/ledger/foundation/blockchain/codec"
)

// Program is a contract implemented in Go. Params are the decoded call
// parameters.
type Program func(mem Memory, caller string, method string, params []codec.Value) error

// Native executes contracts whose code is the hex encoded name of a
// registered program.
type Native struct {
	mu       sync.RWMutex
	programs map[string]Program
}

// NewNative constructs an executor with the built in programs registered.
func NewNative() *Native {
	n := Native{
		programs: make(map[string]Program),
	}

	n.Register(KVStore, kvstore)

	return &n
}

// Register adds or replaces the program under the name.
func (n *Native) Register(name string, program Program) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.programs[name] = program
}

// Code returns the account code that runs the named program.
func Code(name string) string {
	return hex.EncodeToString([]byte(name))
}

// Call implements the Executor interface. A panic inside a program is
// reported as a failed call.
func (n *Native) Call(mem Memory, caller string, call Call) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: panic: %v", ErrExecution, call.Method, r)
		}
	}()

	name, err := hex.DecodeString(call.Code)
	if err != nil {
		return fmt.Errorf("%w: code: %w", ErrExecution, err)
	}

	n.mu.RLock()
	program, exists := n.programs[string(name)]
	n.mu.RUnlock()

	if !exists {
		return fmt.Errorf("%w: program %q is not registered", ErrExecution, name)
	}

	var params []codec.Value
	if len(call.Params) > 0 {
		if params, err = codec.Decode(call.Params); err != nil {
			return fmt.Errorf("%w: params: %w", ErrExecution, err)
		}
	}

	if err := program(mem, caller, call.Method, params); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrExecution, call.Method, err)
	}

	return nil
}

// =============================================================================

// KVStore is the name of the built in key/value program.
const KVStore = "kvstore"

// kvstore keeps arbitrary values in contract memory. The last writer of
// each key is kept under the key's entry in the "owners" map.
func kvstore(mem Memory, caller string, method string, params []codec.Value) error {
	switch method {
	case "set":
		if len(params) != 2 {
			return fmt.Errorf("set takes a key and a value, got %d params", len(params))
		}
		mem.Set(params[0], params[1])

		owners := codec.Map{}
		if v, exists := mem.Get(codec.Hex(ownersKey)); exists {
			if m, ok := v.(codec.Map); ok {
				owners = m.Clone()
			}
		}
		owners.Set(params[0], codec.Hex(caller))
		mem.Set(codec.Hex(ownersKey), owners)

		return nil

	case "remove":
		if len(params) != 1 {
			return fmt.Errorf("remove takes a key, got %d params", len(params))
		}
		mem.Delete(params[0])
		return nil

	case "fail":
		return fmt.Errorf("requested failure")
	}

	return fmt.Errorf("unknown method %q", method)
}

// ownersKey is the hex of "owners".
const ownersKey = "6f776e657273"
