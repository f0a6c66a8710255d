package commands

import (
	"fmt"
	"strconv"

	"github.com/open-protocol/ledger/foundation/blockchain/database"
	"github.com/open-protocol/ledger/foundation/blockchain/statedb"
)

// Blocks prints the archived blocks starting at the optional block number
// and checks the latest one against the store.
func Blocks(args []string, archive *database.Database, store *statedb.Store) error {
	var from uint64
	if len(args) > 1 {
		n, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("from: %w", err)
		}
		from = n
	}

	latest, err := archive.LatestBlock()
	if err != nil {
		return err
	}

	for i := from; i <= latest.Header.Number; i++ {
		block, err := archive.GetBlock(i)
		if err != nil {
			return err
		}

		fmt.Printf("Block: %d  Hash: %s  Txs: %d  TimeStamp: %d\n  TxRoot: %s\n  StateRoot: %s\n",
			block.Header.Number, block.Hash(), len(block.Txs), block.Header.TimeStamp, block.Header.TxRoot, block.Header.StateRoot)
	}

	if latest.Header.StateRoot != store.Root() {
		fmt.Printf("\nWARNING: store root %s is ahead of block %d\n", store.Root(), latest.Header.Number)
	}

	return nil
}
