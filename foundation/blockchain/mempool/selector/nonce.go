package selector

import (
	"sort"
)

// nonceSelect returns transactions in nonce order per sender, taking one
// transaction from each sender per round. Senders are visited in the order
// their first transaction arrived so the result is deterministic.
var nonceSelect = func(txs []Tx, howMany int) []Tx {

	/*
		Pavl: {Nonce: 1, Seq: 4}, {Nonce: 0, Seq: 0}
		Bill: {Nonce: 0, Seq: 1}, {Nonce: 1, Seq: 2}
		Edua: {Nonce: 0, Seq: 3}
	*/

	// Group the transactions by sender keeping the order of first arrival.
	sort.Sort(bySeq(txs))

	var senders []string
	m := make(map[string][]Tx)
	for _, tx := range txs {
		if _, exists := m[tx.From]; !exists {
			senders = append(senders, tx.From)
		}
		m[tx.From] = append(m[tx.From], tx)
	}

	// Sort the transactions per sender by nonce.
	for _, from := range senders {
		if len(m[from]) > 1 {
			sort.Sort(byNonce(m[from]))
		}
	}

	/*
		Pavl: {Nonce: 0, Seq: 0}, {Nonce: 1, Seq: 4}
		Bill: {Nonce: 0, Seq: 1}, {Nonce: 1, Seq: 2}
		Edua: {Nonce: 0, Seq: 3}
	*/

	// Pick the first transaction in the slice for each sender. Each iteration
	// represents a new row of selections. Keep doing that until all the
	// transactions have been selected or enough were found.
	final := []Tx{}
	for {
		var row []Tx
		for _, from := range senders {
			if len(m[from]) > 0 {
				row = append(row, m[from][0])
				m[from] = m[from][1:]
			}
		}
		if row == nil {
			break
		}

		final = append(final, row...)
		if howMany >= 0 && len(final) >= howMany {
			final = final[:howMany]
			break
		}
	}

	/*
		0: Pavl: {Nonce: 0, Seq: 0}
		1: Bill: {Nonce: 0, Seq: 1}
		2: Edua: {Nonce: 0, Seq: 3}
		3: Pavl: {Nonce: 1, Seq: 4}
		4: Bill: {Nonce: 1, Seq: 2}
	*/

	return final
}
