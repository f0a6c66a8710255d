package state

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sort"

	"github.com/open-protocol/ledger/foundation/blockchain/database"
	"github.com/open-protocol/ledger/foundation/blockchain/mempool/selector"
	"github.com/open-protocol/ledger/foundation/blockchain/statedb"
	"github.com/open-protocol/ledger/foundation/blockchain/vm"
)

// Set of reasons a pending transaction is not applied.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNonceMismatch     = errors.New("nonce mismatch")
	ErrUnknownSender     = errors.New("sender account does not exist")
	ErrBalanceOverflow   = errors.New("receiver balance overflow")
	ErrHashMismatch      = errors.New("transaction hash does not match pool key")
)

// Status is the outcome of a pending transaction in a proposal.
type Status string

// Set of transaction outcomes. Success and failed transactions are part of
// the block, invalid ones are dropped and skipped ones stay pending.
const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusInvalid Status = "invalid"
	StatusSkipped Status = "skipped"
)

// Receipt records what a proposal did with a pending transaction.
type Receipt struct {
	Hash   string `json:"hash"`
	Status Status `json:"status"`
	Err    error  `json:"-"`
}

// overlay holds accounts changed by a proposal that are not in the store yet.
type overlay map[string]database.Account

// =============================================================================

// Propose builds the next block on top of the head from the pending
// transactions. The accounts changed by the block are committed to the store
// in a single step and only then are the processed transactions removed from
// the mempool. A storage failure aborts the proposal leaving both the store
// and the mempool untouched.
func (s *State) Propose(head LedgerHead) (LedgerHead, []Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	parent := head.Current

	s.evHandler("state: Propose: started: parent[%d]: max[%d]", parent.Header.Number, s.maxTxPerBlock)
	defer s.evHandler("state: Propose: completed")

	blockOverlay := make(overlay)

	var receipts []Receipt
	var txEntries []statedb.Entry
	var txHashes []string
	var prune []string

	for _, ptx := range s.mempool.Pending() {
		if len(txHashes) >= s.maxTxPerBlock {
			s.evHandler("state: Propose: block is full: txs[%d]", len(txHashes))
			break
		}

		receipt, err := s.process(blockOverlay, ptx)
		if err != nil {
			return LedgerHead{}, nil, err
		}
		receipts = append(receipts, receipt)

		switch receipt.Status {
		case StatusSuccess, StatusFailed:
			key, err := hex.DecodeString(receipt.Hash)
			if err != nil {
				return LedgerHead{}, nil, err
			}
			txEntries = append(txEntries, statedb.Entry{Key: key, Value: ptx.Raw})
			txHashes = append(txHashes, receipt.Hash)
			prune = append(prune, ptx.Hash)

			s.evHandler("state: Propose: tx[%s]: %s", receipt.Hash, receipt.Status)
			if receipt.Err != nil {
				s.evHandler("state: Propose: tx[%s]: WARNING: %s", receipt.Hash, receipt.Err)
			}

		case StatusInvalid:
			prune = append(prune, ptx.Hash)
			s.evHandler("state: Propose: tx[%s]: invalid: %s", receipt.Hash, receipt.Err)

		case StatusSkipped:
			s.evHandler("state: Propose: tx[%s]: skipped: %s", receipt.Hash, receipt.Err)
		}
	}

	txRoot, err := statedb.ComputeRoot(txEntries)
	if err != nil {
		return LedgerHead{}, nil, err
	}

	stateRoot, err := s.commit(blockOverlay)
	if err != nil {
		return LedgerHead{}, nil, err
	}

	s.mempool.Prune(prune)

	timestamp := uint64(s.now().UTC().UnixMilli())
	if timestamp < parent.Header.TimeStamp {
		timestamp = parent.Header.TimeStamp
	}

	block := database.NewBlock(parent, txRoot, stateRoot, timestamp, txHashes)

	s.evHandler("viewer: proposed block: blk[%d]: hash[%s]: txs[%d]: stateroot[%s]", block.Header.Number, block.Hash(), len(txHashes), stateRoot)

	next := LedgerHead{
		Previous: parent,
		Current:  block,
	}

	return next, receipts, nil
}

// =============================================================================

// process classifies a single pending transaction and, when it is applied,
// merges its effects into the block overlay. Only storage failures are
// returned as errors.
func (s *State) process(blockOverlay overlay, ptx selector.Tx) (Receipt, error) {
	receipt := Receipt{
		Hash: ptx.Hash,
	}

	signedTx, err := database.DecodeSignedTx(ptx.Raw)
	if err != nil {
		receipt.Status, receipt.Err = StatusInvalid, err
		return receipt, nil
	}

	if err := signedTx.Validate(); err != nil {
		receipt.Status, receipt.Err = StatusInvalid, err
		return receipt, nil
	}

	if err := signedTx.Verify(); err != nil {
		receipt.Status, receipt.Err = StatusInvalid, err
		return receipt, nil
	}

	hash, err := signedTx.HashHex()
	if err != nil {
		receipt.Status, receipt.Err = StatusInvalid, err
		return receipt, nil
	}

	if hash != ptx.Hash {
		receipt.Status, receipt.Err = StatusInvalid, fmt.Errorf("%w: %s", ErrHashMismatch, hash)
		return receipt, nil
	}

	tx := signedTx.Tx

	from, exists, err := s.lookup(blockOverlay, tx.From)
	if err != nil {
		return Receipt{}, err
	}

	if !exists {
		receipt.Status, receipt.Err = StatusSkipped, fmt.Errorf("%w: %s", ErrUnknownSender, tx.From)
		return receipt, nil
	}

	if from.Nonce != tx.Nonce {
		receipt.Status, receipt.Err = StatusSkipped, fmt.Errorf("%w: account %d, tx %d", ErrNonceMismatch, from.Nonce, tx.Nonce)
		return receipt, nil
	}

	value, err := tx.Amount()
	if err != nil {
		receipt.Status, receipt.Err = StatusInvalid, err
		return receipt, nil
	}

	if from.Balance.Lt(value) {
		receipt.Status, receipt.Err = StatusInvalid, fmt.Errorf("%w: balance %s, value %s", ErrInsufficientFunds, database.AmountHex(from.Balance), tx.Value)
		return receipt, nil
	}

	// Every change for this transaction is made in a local overlay so it
	// can be dropped if the contract call fails.
	local := make(overlay)

	from = from.Clone()
	from.Balance.Sub(from.Balance, value)
	from.Nonce++
	local[tx.From] = from

	to, err := s.lookupLocal(local, blockOverlay, tx.To)
	if err != nil {
		return Receipt{}, err
	}

	to = to.Clone()
	if _, overflow := to.Balance.AddOverflow(to.Balance, value); overflow {
		receipt.Status, receipt.Err = StatusInvalid, fmt.Errorf("%w: %s", ErrBalanceOverflow, tx.To)
		return receipt, nil
	}
	local[tx.To] = to

	if to.HasCode() && tx.HasInput() {
		if err := s.execute(local, tx); err != nil {
			receipt.Status, receipt.Err = StatusFailed, err
			return receipt, nil
		}
	}

	for pub, acct := range local {
		blockOverlay[pub] = acct
	}

	receipt.Status = StatusSuccess
	return receipt, nil
}

// execute runs the contract call of the transaction against the receiver's
// memory in the local overlay.
func (s *State) execute(local overlay, tx database.Tx) error {
	if s.executor == nil {
		return fmt.Errorf("%w: no executor configured", vm.ErrExecution)
	}

	contract := local[tx.To]

	call, err := vm.DecodeCall(tx.To, contract.Code, tx.Input)
	if err != nil {
		return fmt.Errorf("%w: %w", vm.ErrExecution, err)
	}

	mem := contract.Memory
	if err := s.executor.Call(&mem, tx.From, call); err != nil {
		return err
	}

	contract.Memory = mem
	local[tx.To] = contract

	return nil
}

// lookupLocal resolves an account through the local overlay first, then the
// block overlay and store, defaulting to a new account.
func (s *State) lookupLocal(local overlay, blockOverlay overlay, pub string) (database.Account, error) {
	if acct, exists := local[pub]; exists {
		return acct, nil
	}

	acct, exists, err := s.lookup(blockOverlay, pub)
	if err != nil {
		return database.Account{}, err
	}

	if !exists {
		return database.NewAccount(pub), nil
	}

	return acct, nil
}

// lookup resolves an account through the block overlay and then the store.
func (s *State) lookup(blockOverlay overlay, pub string) (database.Account, bool, error) {
	if acct, exists := blockOverlay[pub]; exists {
		return acct, true, nil
	}

	return s.account(pub)
}

// account reads an account from the store.
func (s *State) account(pub string) (database.Account, bool, error) {
	key, err := database.StateKey(pub)
	if err != nil {
		return database.Account{}, false, err
	}

	data, exists, err := s.store.Get(key)
	if err != nil {
		return database.Account{}, false, err
	}

	if !exists {
		return database.Account{}, false, nil
	}

	acct, err := database.DecodeAccount(pub, data)
	if err != nil {
		return database.Account{}, false, err
	}

	return acct, true, nil
}

// commit writes the block overlay to the store in a single step and
// returns the new root.
func (s *State) commit(blockOverlay overlay) (string, error) {
	if len(blockOverlay) == 0 {
		return s.store.Root(), nil
	}

	pubs := make([]string, 0, len(blockOverlay))
	for pub := range blockOverlay {
		pubs = append(pubs, pub)
	}
	sort.Strings(pubs)

	entries := make([]statedb.Entry, 0, len(pubs))
	for _, pub := range pubs {
		entry, err := accountEntry(blockOverlay[pub])
		if err != nil {
			return "", err
		}
		entries = append(entries, entry)
	}

	return s.store.Apply(entries)
}
