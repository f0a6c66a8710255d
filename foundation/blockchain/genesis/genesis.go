// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/open-protocol/ledger/foundation/blockchain/database"
)

// DefaultMaxTxPerBlock is used when the genesis file doesn't set a limit.
const DefaultMaxTxPerBlock = 100

// Genesis represents the genesis file.
type Genesis struct {
	Date          time.Time         `json:"date"`
	ChainID       uint16            `json:"chain_id"`         // The chain id represents an unique id for this running instance.
	MaxTxPerBlock uint16            `json:"max_tx_per_block"` // The maximum number of transactions that can be in a block.
	Balances      map[string]string `json:"balances"`         // Public key to starting balance in hex.
	Contracts     map[string]string `json:"contracts"`        // Public key to contract code in hex.
}

// =============================================================================

// Load opens and consumes the genesis file.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	err = json.Unmarshal(content, &genesis)
	if err != nil {
		return Genesis{}, err
	}

	if genesis.MaxTxPerBlock == 0 {
		genesis.MaxTxPerBlock = DefaultMaxTxPerBlock
	}

	return genesis, nil
}

// TimeStamp returns the genesis date in milliseconds.
func (g Genesis) TimeStamp() uint64 {
	return uint64(g.Date.UTC().UnixMilli())
}

// Accounts returns the starting accounts sorted by public key.
func (g Genesis) Accounts() ([]database.Account, error) {
	accounts := make(map[string]database.Account)

	for pub, balance := range g.Balances {
		if !database.IsPublicKey(pub) {
			return nil, fmt.Errorf("balance for %q: not a public key", pub)
		}

		amount, err := database.ParseAmount(balance)
		if err != nil {
			return nil, fmt.Errorf("balance for %s: %w", pub, err)
		}

		pub = strings.ToLower(pub)
		acct := database.NewAccount(pub)
		acct.Balance = amount
		accounts[pub] = acct
	}

	for pub, code := range g.Contracts {
		if !database.IsPublicKey(pub) {
			return nil, fmt.Errorf("contract at %q: not a public key", pub)
		}

		pub = strings.ToLower(pub)
		acct, exists := accounts[pub]
		if !exists {
			acct = database.NewAccount(pub)
		}
		acct.Code = strings.ToLower(code)
		accounts[pub] = acct
	}

	list := make([]database.Account, 0, len(accounts))
	for _, acct := range accounts {
		list = append(list, acct)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].PublicKey < list[j].PublicKey })

	return list, nil
}
