package worker

// peerOperations handles checking on the known peers.
func (w *Worker) peerOperations() {
	w.evHandler("worker: peerOperations: G started")
	defer w.evHandler("worker: peerOperations: G completed")

	for {
		select {
		case <-w.ticker.C:
			if !w.isShutdown() {
				w.runPeersOperation()
			}
		case <-w.shut:
			w.evHandler("worker: peerOperations: received shut signal")
			return
		}
	}
}

// runPeersOperation asks every known peer for its status. Peers are never
// added or removed here; the known peer list comes from configuration.
func (w *Worker) runPeersOperation() {
	w.evHandler("worker: runPeersOperation: started")
	defer w.evHandler("worker: runPeersOperation: completed")

	var reachable int
	for _, peer := range w.state.RetrieveKnownPeers() {
		peerStatus, err := w.state.NetRequestPeerStatus(peer)
		if err != nil {
			w.evHandler("worker: runPeersOperation: queryPeerStatus: %s: ERROR: %s", peer.Host, err)
			continue
		}
		reachable++

		latest := w.Head().Current.Header.Number
		if peerStatus.LatestBlockNumber > latest {
			w.evHandler("worker: runPeersOperation: %s: WARNING: peer is ahead: blk[%d] ours[%d]", peer.Host, peerStatus.LatestBlockNumber, latest)
		}
	}

	peersReachable.Set(float64(reachable))
}
