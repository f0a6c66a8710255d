// Package worker implements block proposals, peer status checks, and
// transaction sharing for the blockchain.
package worker

import (
	"sync"
	"time"

	"github.com/open-protocol/ledger/foundation/blockchain/database"
	"github.com/open-protocol/ledger/foundation/blockchain/state"
)

// peerUpdateInterval represents the interval of checking the status of the
// known peer nodes.
const peerUpdateInterval = time.Minute

// DefaultInterval is the time between proposal cycles.
const DefaultInterval = 12 * time.Second

// =============================================================================

// Consensus decides whether this node proposes the next block.
type Consensus interface {
	IsMyTurn(head state.LedgerHead) bool
}

// Always is the consensus of a single proposer: every cycle is its turn.
type Always struct{}

// IsMyTurn implements the Consensus interface.
func (Always) IsMyTurn(state.LedgerHead) bool {
	return true
}

// =============================================================================

// Worker manages the proposal workflows for the blockchain. It owns the
// ledger head and is the only caller of state.Propose.
type Worker struct {
	state        *state.State
	consensus    Consensus
	interval     time.Duration
	wg           sync.WaitGroup
	ticker       *time.Ticker
	shut         chan struct{}
	startPropose chan bool
	txSharing    chan database.SignedTx
	evHandler    state.EventHandler

	mu   sync.RWMutex
	head state.LedgerHead
}

// Run creates a worker, registers the worker with the state package, and
// starts up all the background processes.
func Run(st *state.State, consensus Consensus, interval time.Duration, evHandler state.EventHandler) (*Worker, error) {
	head, err := st.Head()
	if err != nil {
		return nil, err
	}

	if consensus == nil {
		consensus = Always{}
	}

	if interval <= 0 {
		interval = DefaultInterval
	}

	w := Worker{
		state:        st,
		consensus:    consensus,
		interval:     interval,
		ticker:       time.NewTicker(peerUpdateInterval),
		shut:         make(chan struct{}),
		startPropose: make(chan bool, 1),
		txSharing:    make(chan database.SignedTx, maxTxShareRequests),
		evHandler:    evHandler,
		head:         head,
	}

	// Register this worker with the state package.
	st.Worker = &w

	// Load the set of operations we need to run.
	operations := []func(){
		w.peerOperations,
		w.proposeOperations,
		w.shareTxOperations,
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for range g {
		<-hasStarted
	}

	return &w, nil
}

// Head returns the ledger head the next proposal builds on.
func (w *Worker) Head() state.LedgerHead {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.head
}

// =============================================================================
// These methods implement the state.Worker interface.

var _ state.Worker = (*Worker)(nil)

// Shutdown terminates the goroutine performing work.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.evHandler("worker: shutdown: stop ticker")
	w.ticker.Stop()

	w.evHandler("worker: shutdown: terminate goroutines")
	close(w.shut)
	w.wg.Wait()
}

// SignalProposeBlock starts a proposal without waiting for the next cycle.
// If there is already a signal pending in the channel, just return since a
// proposal will start.
func (w *Worker) SignalProposeBlock() {
	select {
	case w.startPropose <- true:
	default:
	}
	w.evHandler("worker: SignalProposeBlock: proposal signaled")
}

// SignalShareTx signals a share transaction operation. If
// maxTxShareRequests signals exist in the channel, we won't send these.
func (w *Worker) SignalShareTx(tx database.SignedTx) {
	select {
	case w.txSharing <- tx:
		w.evHandler("worker: SignalShareTx: share Tx signaled")
	default:
		sharesDropped.Inc()
		w.evHandler("worker: SignalShareTx: queue full, transactions won't be shared.")
	}
}

// =============================================================================

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
