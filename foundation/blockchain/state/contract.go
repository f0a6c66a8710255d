package state

import (
	"errors"
	"fmt"
	"strings"

	"github.com/open-protocol/ledger/foundation/blockchain/codec"
	"github.com/open-protocol/ledger/foundation/blockchain/database"
	"github.com/open-protocol/ledger/foundation/blockchain/statedb"
)

// ErrContractExists is returned when deploying over an existing contract.
var ErrContractExists = errors.New("contract already deployed")

// DeployContract stores code on the account at address, creating the
// account if needed, and returns the new state root. Deployments wait for
// any running proposal and are committed directly to the store.
func (s *State) DeployContract(address string, code string) (string, error) {
	if !database.IsPublicKey(address) {
		return "", fmt.Errorf("contract address %q is not a public key", address)
	}
	address = strings.ToLower(address)

	if _, err := codec.HexBytes(code); err != nil {
		return "", fmt.Errorf("contract code: %w", err)
	}
	code = strings.ToLower(code)

	if code == "" || code == database.NoCode {
		return "", errors.New("contract code is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acct, exists, err := s.account(address)
	if err != nil {
		return "", err
	}

	switch {
	case !exists:
		acct = database.NewAccount(address)
	case acct.HasCode():
		return "", fmt.Errorf("%w: %s", ErrContractExists, address)
	}

	acct.Code = code

	entry, err := accountEntry(acct)
	if err != nil {
		return "", err
	}

	root, err := s.store.Apply([]statedb.Entry{entry})
	if err != nil {
		return "", err
	}

	s.evHandler("viewer: deployed contract[%s]: stateroot[%s]", address, root)

	return root, nil
}
