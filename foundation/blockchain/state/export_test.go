package state

// PushRaw places wire bytes in the mempool without validation.
func (s *State) PushRaw(hash string, raw []byte) {
	s.mempool.PushRaw(hash, raw)
}
