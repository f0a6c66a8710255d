package worker

import (
	"time"
)

// CORE NOTE: The proposal operation is managed by this function which runs on
// it's own goroutine. The node starts a loop on the configured interval. At
// the beginning of each cycle the consensus is asked if this node proposes
// the next block. A signal can start a cycle early when the mempool holds
// enough transactions to fill a block.

// proposeOperations handles block proposals.
func (w *Worker) proposeOperations() {
	w.evHandler("worker: proposeOperations: G started")
	defer w.evHandler("worker: proposeOperations: G completed")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !w.isShutdown() {
				w.runProposeOperation()
			}
		case <-w.startPropose:
			if !w.isShutdown() {
				w.runProposeOperation()
			}
		case <-w.shut:
			w.evHandler("worker: proposeOperations: received shut signal")
			return
		}
	}
}

// runProposeOperation proposes a block from the mempool, archives it and
// moves the ledger head forward.
func (w *Worker) runProposeOperation() {
	w.evHandler("worker: runProposeOperation: started")
	defer w.evHandler("worker: runProposeOperation: completed")

	head := w.Head()

	if !w.consensus.IsMyTurn(head) {
		w.evHandler("worker: runProposeOperation: not our turn: blk[%d]", head.Current.Header.Number)
		return
	}

	// Make sure there are transactions in the mempool.
	length := w.state.QueryMempoolLength()
	if length == 0 {
		w.evHandler("worker: runProposeOperation: no transactions to propose: Txs[%d]", length)
		return
	}

	t := time.Now()
	next, receipts, err := w.state.Propose(head)
	proposalDuration.Observe(time.Since(t).Seconds())

	if err != nil {
		proposalFailures.Inc()
		w.evHandler("worker: runProposeOperation: ERROR: %s", err)
		return
	}

	for _, r := range receipts {
		txOutcomes.WithLabelValues(string(r.Status)).Inc()
	}

	// The store already holds the new state so the head moves forward even
	// if the block can't be archived.
	w.mu.Lock()
	w.head = next
	w.mu.Unlock()

	blockHeight.Set(float64(next.Current.Header.Number))

	if err := w.state.ArchiveBlock(next.Current); err != nil {
		w.evHandler("worker: runProposeOperation: ERROR: archive block[%d]: %s", next.Current.Header.Number, err)
	}

	w.evHandler("worker: runProposeOperation: blk[%d]: txs[%d]: pending[%d]", next.Current.Header.Number, len(next.Current.Txs), w.state.QueryMempoolLength())
}
