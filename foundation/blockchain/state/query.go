package state

import (
	"errors"
	"strings"

	"github.com/open-protocol/ledger/foundation/blockchain/database"
)

// QueryLatest represents to query the latest block in the chain.
const QueryLatest = ^uint64(0) >> 1

// ErrAccountNotFound is returned when the account is not in the store.
var ErrAccountNotFound = errors.New("account not found")

// =============================================================================

// QueryAccount returns the committed account for the public key. Accounts
// being changed by a running proposal are not visible until it commits.
func (s *State) QueryAccount(publicKey string) (database.Account, error) {
	if !database.IsPublicKey(publicKey) {
		return database.Account{}, errors.New("account is not properly formatted")
	}

	acct, exists, err := s.account(strings.ToLower(publicKey))
	if err != nil {
		return database.Account{}, err
	}

	if !exists {
		return database.Account{}, ErrAccountNotFound
	}

	return acct, nil
}

// QueryMempoolLength returns the current length of the mempool.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Count()
}

// QueryMempool returns the pending transactions in proposal order. Entries
// that can't be decoded are left out.
func (s *State) QueryMempool() []database.SignedTx {
	pending := s.mempool.Pending()

	txs := make([]database.SignedTx, 0, len(pending))
	for _, ptx := range pending {
		signedTx, err := database.DecodeSignedTx(ptx.Raw)
		if err != nil {
			continue
		}
		txs = append(txs, signedTx)
	}

	return txs
}

// QueryBlocksByNumber returns the set of blocks based on block numbers. This
// function reads the blockchain from disk first.
func (s *State) QueryBlocksByNumber(from uint64, to uint64) []database.Block {
	latest := s.RetrieveLatestBlock().Header.Number

	if from == QueryLatest {
		from = latest
		to = from
	}
	if to == QueryLatest || to > latest {
		to = latest
	}

	var out []database.Block
	for i := from; i <= to; i++ {
		block, err := s.archive.GetBlock(i)
		if err != nil {
			s.evHandler("state: getblock: ERROR: %s", err)
			return nil
		}
		out = append(out, block)
	}

	return out
}
