// Package selector provides different transaction selecting algorithms.
package selector

import (
	"fmt"
	"sort"
)

// List of different select strategies.
const (
	StrategyFIFO  = "fifo"
	StrategyNonce = "nonce"
)

// Map of different select strategies with functions.
var strategies = map[string]Func{
	StrategyFIFO:  fifoSelect,
	StrategyNonce: nonceSelect,
}

// Tx is what the mempool holds for a pending transaction.
type Tx struct {
	Hash  string // Hex identity of the transaction.
	Raw   []byte // Wire encoding as received.
	From  string // Sender, empty when the bytes couldn't be decoded.
	Nonce uint64 // Sender nonce, zero when the bytes couldn't be decoded.
	Seq   uint64 // Arrival order in the pool.
}

// Func defines a function that takes the pending transactions in any order
// and selects howMany of them in an order based on the functions strategy.
// Receiving -1 for howMany must return all the transactions in the
// strategies ordering.
type Func func(transactions []Tx, howMany int) []Tx

// Retrieve returns the specified select strategy function.
func Retrieve(strategy string) (Func, error) {
	fn, exists := strategies[strategy]
	if !exists {
		return nil, fmt.Errorf("strategy %q does not exist", strategy)
	}
	return fn, nil
}

// =============================================================================

// fifoSelect returns transactions in the order they arrived.
var fifoSelect = func(txs []Tx, howMany int) []Tx {
	sort.Sort(bySeq(txs))

	if howMany >= 0 && howMany < len(txs) {
		txs = txs[:howMany]
	}

	return txs
}

// =============================================================================

// bySeq provides sorting support by arrival order.
type bySeq []Tx

// Len returns the number of transactions in the list.
func (bs bySeq) Len() int {
	return len(bs)
}

// Less helps to sort the list by arrival in ascending order.
func (bs bySeq) Less(i, j int) bool {
	return bs[i].Seq < bs[j].Seq
}

// Swap moves transactions in the order of arrival.
func (bs bySeq) Swap(i, j int) {
	bs[i], bs[j] = bs[j], bs[i]
}

// =============================================================================

// byNonce provides sorting support by the transaction nonce value.
type byNonce []Tx

// Len returns the number of transactions in the list.
func (bn byNonce) Len() int {
	return len(bn)
}

// Less helps to sort the list by nonce in ascending order to keep the
// transactions in the right order of processing. Arrival breaks ties.
func (bn byNonce) Less(i, j int) bool {
	if bn[i].Nonce == bn[j].Nonce {
		return bn[i].Seq < bn[j].Seq
	}
	return bn[i].Nonce < bn[j].Nonce
}

// Swap moves transactions in the order of the nonce value.
func (bn byNonce) Swap(i, j int) {
	bn[i], bn[j] = bn[j], bn[i]
}
