package state

import (
	"fmt"

	"github.com/open-protocol/ledger/foundation/blockchain/database"
)

// SubmitTransaction accepts a transaction from a wallet for inclusion. New
// transactions are shared with the known peers. The transaction hash is
// returned even when the transaction was already pending.
func (s *State) SubmitTransaction(signedTx database.SignedTx) (string, error) {
	hash, err := s.validateTransaction(signedTx)
	if err != nil {
		return "", err
	}

	if s.mempool.Has(hash) {
		s.evHandler("state: SubmitTransaction: tx[%s]: already pending", hash)
		return hash, nil
	}

	if _, err := s.mempool.Push(signedTx); err != nil {
		return "", err
	}

	s.evHandler("viewer: submitted tx[%s]: %s", hash, signedTx)

	if s.Worker != nil {
		s.Worker.SignalShareTx(signedTx)
		if s.mempool.Count() >= s.maxTxPerBlock {
			s.Worker.SignalProposeBlock()
		}
	}

	return hash, nil
}

// SubmitRawTransaction accepts the hex of a transaction's wire encoding.
func (s *State) SubmitRawTransaction(txHex string) (string, error) {
	signedTx, err := database.DecodeSignedTxHex(txHex)
	if err != nil {
		return "", err
	}

	return s.SubmitTransaction(signedTx)
}

// AcceptPeerTransaction accepts a transaction shared by another node. These
// are not shared again.
func (s *State) AcceptPeerTransaction(signedTx database.SignedTx) (string, error) {
	hash, err := s.validateTransaction(signedTx)
	if err != nil {
		return "", err
	}

	if _, err := s.mempool.Push(signedTx); err != nil {
		return "", err
	}

	s.evHandler("state: AcceptPeerTransaction: tx[%s]: %s", hash, signedTx)

	return hash, nil
}

// =============================================================================

// validateTransaction takes the signed transaction and validates it has
// a proper signature and other aspects of the data.
func (s *State) validateTransaction(signedTx database.SignedTx) (string, error) {
	if err := signedTx.Validate(); err != nil {
		return "", err
	}

	if err := signedTx.Verify(); err != nil {
		return "", err
	}

	hash, err := signedTx.HashHex()
	if err != nil {
		return "", err
	}

	// A nonce below the account's nonce can never be applied. Anything at or
	// above it may become valid once earlier transactions land.
	acct, exists, err := s.account(signedTx.From)
	if err != nil {
		return "", err
	}

	if exists && signedTx.Nonce < acct.Nonce {
		return "", fmt.Errorf("%w: nonce %d already used, account is at %d", ErrNonceMismatch, signedTx.Nonce, acct.Nonce)
	}

	return hash, nil
}
