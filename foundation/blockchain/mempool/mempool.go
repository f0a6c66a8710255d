// Package mempool maintains the mempool for the blockchain.
package mempool

import (
	"sync"

	"github.com/open-protocol/ledger/foundation/blockchain/database"
	"github.com/open-protocol/ledger/foundation/blockchain/mempool/selector"
)

// Mempool represents a cache of pending transactions keyed by their hash.
type Mempool struct {
	pool     map[string]selector.Tx
	seq      uint64
	mu       sync.RWMutex
	selectFn selector.Func
}

// New constructs a new mempool using the default select strategy.
func New() *Mempool {
	mp, _ := NewWithStrategy(selector.StrategyFIFO)
	return mp
}

// NewWithStrategy constructs a new mempool with specified select strategy.
func NewWithStrategy(strategy string) (*Mempool, error) {
	selectFn, err := selector.Retrieve(strategy)
	if err != nil {
		return nil, err
	}

	mp := Mempool{
		pool:     make(map[string]selector.Tx),
		selectFn: selectFn,
	}

	return &mp, nil
}

// Count returns the current number of transaction in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Push adds the signed transaction keyed by its hash. Pushing a transaction
// that is already pending keeps its original place in line.
func (mp *Mempool) Push(tx database.SignedTx) (string, error) {
	hash, err := tx.HashHex()
	if err != nil {
		return "", err
	}

	raw, err := tx.Encode()
	if err != nil {
		return "", err
	}

	mp.PushRaw(hash, raw)

	return hash, nil
}

// PushRaw adds the wire bytes of a transaction under the given hash. The
// bytes are kept as is even when they don't decode; the proposer decides
// what to do with them.
func (mp *Mempool) PushRaw(hash string, raw []byte) {
	tx := selector.Tx{
		Hash: hash,
		Raw:  append([]byte(nil), raw...),
	}

	if signedTx, err := database.DecodeSignedTx(raw); err == nil {
		tx.From = signedTx.From
		tx.Nonce = signedTx.Nonce
	}

	mp.push(tx)
}

func (mp *Mempool) push(tx selector.Tx) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if existing, exists := mp.pool[tx.Hash]; exists {
		tx.Seq = existing.Seq
	} else {
		tx.Seq = mp.seq
		mp.seq++
	}

	mp.pool[tx.Hash] = tx
}

// Has reports whether the hash is pending.
func (mp *Mempool) Has(hash string) bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	_, exists := mp.pool[hash]
	return exists
}

// Get returns the wire bytes stored under the hash.
func (mp *Mempool) Get(hash string) ([]byte, bool) {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	tx, exists := mp.pool[hash]
	if !exists {
		return nil, false
	}

	return tx.Raw, true
}

// Prune removes the hashes from the pool. Hashes that aren't pending are
// ignored.
func (mp *Mempool) Prune(hashes []string) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	for _, hash := range hashes {
		delete(mp.pool, hash)
	}
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = make(map[string]selector.Tx)
}

// Pending returns a snapshot of every pending transaction in the order of
// the configured select strategy. Later pushes never affect the snapshot.
func (mp *Mempool) Pending() []selector.Tx {
	return mp.PickBest(-1)
}

// PickBest uses the configured select strategy to return the next set
// of transactions for the next block.
func (mp *Mempool) PickBest(howMany int) []selector.Tx {
	mp.mu.RLock()
	txs := make([]selector.Tx, 0, len(mp.pool))
	for _, tx := range mp.pool {
		txs = append(txs, tx)
	}
	mp.mu.RUnlock()

	return mp.selectFn(txs, howMany)
}
