// Package poa selects the node that proposes the next block among a fixed
// set of authorities.
package poa

import (
	"hash/fnv"
	"sort"

	"github.com/open-protocol/ledger/foundation/blockchain/peer"
	"github.com/open-protocol/ledger/foundation/blockchain/state"
)

// RoundRobin picks the proposer from the sorted hosts of this node and its
// known peers, indexed by a hash of the current block. Every node with the
// same head and peer set picks the same proposer.
type RoundRobin struct {
	host  string
	peers *peer.PeerSet
}

// New constructs a selection for the node listening on host.
func New(host string, peers *peer.PeerSet) *RoundRobin {
	return &RoundRobin{
		host:  host,
		peers: peers,
	}
}

// Selection returns the host that proposes the block after the head.
func (rr *RoundRobin) Selection(head state.LedgerHead) string {

	// Sort the current list of registered hosts.
	hosts := []string{rr.host}
	for _, pr := range rr.peers.Copy(rr.host) {
		hosts = append(hosts, pr.Host)
	}
	sort.Strings(hosts)

	// Based on the latest block, pick an index number from the hosts.
	h := fnv.New32a()
	h.Write([]byte(head.Current.Hash()))
	i := h.Sum32() % uint32(len(hosts))

	return hosts[i]
}

// IsMyTurn implements the worker's Consensus interface.
func (rr *RoundRobin) IsMyTurn(head state.LedgerHead) bool {
	return rr.Selection(head) == rr.host
}
