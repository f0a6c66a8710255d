package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/open-protocol/ledger/foundation/blockchain/database"
	"github.com/open-protocol/ledger/foundation/blockchain/statedb"
)

// Account prints the stored state of the accounts named on the command line.
func Account(args []string, store *statedb.Store) error {
	if len(args) < 2 {
		return errors.New("account: public key required")
	}

	fmt.Printf("StateRoot: %s\n\n", store.Root())

	for _, pub := range args[1:] {
		pub = strings.ToLower(pub)

		key, err := database.StateKey(pub)
		if err != nil {
			return err
		}

		data, exists, err := store.Get(key)
		if err != nil {
			return err
		}

		if !exists {
			fmt.Printf("Account: %s  not found\n", pub)
			continue
		}

		acct, err := database.DecodeAccount(pub, data)
		if err != nil {
			return err
		}

		fmt.Printf("Account: %s  Balance: %s  Nonce: %d  Code: %s  Memory: %d keys\n",
			acct.PublicKey, database.AmountHex(acct.Balance), acct.Nonce, acct.Code, acct.Memory.Len())
	}

	return nil
}
