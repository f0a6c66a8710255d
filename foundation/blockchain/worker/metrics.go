package worker

import (
	prom "github.com/prometheus/client_golang/prometheus"
)

var (
	blockHeight = prom.NewGauge(
		prom.GaugeOpts{Name: "ledger_block_height", Help: "Number of the latest proposed block"},
	)
	proposalDuration = prom.NewHistogram(
		prom.HistogramOpts{Name: "ledger_proposal_duration_seconds", Help: "Time spent proposing a block", Buckets: prom.DefBuckets},
	)
	proposalFailures = prom.NewCounter(
		prom.CounterOpts{Name: "ledger_proposal_failures_total", Help: "Proposals aborted by a storage failure"},
	)
	txOutcomes = prom.NewCounterVec(
		prom.CounterOpts{Name: "ledger_tx_outcomes_total", Help: "Pending transactions processed by outcome"},
		[]string{"status"},
	)
	sharesSent = prom.NewCounter(
		prom.CounterOpts{Name: "ledger_tx_shares_total", Help: "Transactions shared with known peers"},
	)
	sharesDropped = prom.NewCounter(
		prom.CounterOpts{Name: "ledger_tx_shares_dropped_total", Help: "Transactions not shared because the queue was full"},
	)
	peersReachable = prom.NewGauge(
		prom.GaugeOpts{Name: "ledger_peers_reachable", Help: "Known peers that answered the last status check"},
	)
)

func init() {
	prom.MustRegister(blockHeight, proposalDuration, proposalFailures, txOutcomes, sharesSent, sharesDropped, peersReachable)
}
