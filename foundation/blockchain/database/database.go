// Package database handles the canonical ledger structures: accounts,
// transactions and blocks, along with the archive of blocks produced by
// the node.
package database

import (
	"errors"
	"fmt"
	"sync"

	"github.com/open-protocol/ledger/foundation/blockchain/signature"
)

// ErrNoBlocks is returned when the archive holds no blocks yet.
var ErrNoBlocks = errors.New("no blocks in archive")

// Serializer interface represents the behavior required to be implemented by any
// package providing support for storing and reading the blockchain.
type Serializer interface {
	Write(blockData BlockData) error
	GetBlock(num uint64) (BlockData, error)
	ForEach() Iterator
	Close() error
	Reset() error
}

// Iterator interface represents the behavior required to be implemented by any
// package providing support to iterate over the blocks.
type Iterator interface {
	Next() (BlockData, error)
	Done() bool
}

// =============================================================================

// DatabaseIterator walks the archive converting each entry into a Block.
type DatabaseIterator struct {
	iterator Iterator
}

// Next retrieves the next block from the archive.
func (di *DatabaseIterator) Next() (Block, error) {
	blockData, err := di.iterator.Next()
	if err != nil {
		return Block{}, err
	}

	return ToBlock(blockData)
}

// Done returns the end of chain value.
func (di *DatabaseIterator) Done() bool {
	return di.iterator.Done()
}

// =============================================================================

// Database manages the archive of blocks and tracks the latest one.
type Database struct {
	mu          sync.RWMutex
	latestBlock Block
	hasBlocks   bool
	serializer  Serializer
}

// New constructs a database over the serializer, reading and validating
// every archived block to find the latest one.
func New(serializer Serializer, evHandler func(v string, args ...any)) (*Database, error) {
	if evHandler == nil {
		evHandler = func(string, ...any) {}
	}

	db := Database{
		serializer: serializer,
	}

	iter := db.serializer.ForEach()
	for blockData, err := iter.Next(); !iter.Done(); blockData, err = iter.Next() {
		if err != nil {
			return nil, err
		}

		block, err := ToBlock(blockData)
		if err != nil {
			return nil, err
		}

		switch {
		case !db.hasBlocks:
			if block.Header.Number != 0 || block.Header.Previous != signature.ZeroHash {
				return nil, fmt.Errorf("archive does not start with a genesis block, got number %d", block.Header.Number)
			}

		default:
			if err := block.ValidateBlock(db.latestBlock, evHandler); err != nil {
				return nil, err
			}
		}

		db.latestBlock = block
		db.hasBlocks = true
	}

	return &db, nil
}

// Close closes the open blocks database.
func (db *Database) Close() {
	db.serializer.Close()
}

// Reset clears the archive.
func (db *Database) Reset() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.latestBlock = Block{}
	db.hasBlocks = false

	return db.serializer.Reset()
}

// LatestBlock returns the latest block.
func (db *Database) LatestBlock() (Block, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if !db.hasBlocks {
		return Block{}, ErrNoBlocks
	}

	return db.latestBlock, nil
}

// Write adds a new block to the chain. Apart from the genesis block every
// block must follow the latest one.
func (db *Database) Write(block Block) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.hasBlocks {
		if err := block.ValidateBlock(db.latestBlock, func(string, ...any) {}); err != nil {
			return err
		}
	}

	if err := db.serializer.Write(NewBlockData(block)); err != nil {
		return err
	}

	db.latestBlock = block
	db.hasBlocks = true

	return nil
}

// ForEach returns an iterator to walk through all the blocks
// starting with the genesis block.
func (db *Database) ForEach() DatabaseIterator {
	return DatabaseIterator{iterator: db.serializer.ForEach()}
}

// GetBlock searches the archive to locate and return the specified block.
func (db *Database) GetBlock(num uint64) (Block, error) {
	blockData, err := db.serializer.GetBlock(num)
	if err != nil {
		return Block{}, err
	}

	return ToBlock(blockData)
}
