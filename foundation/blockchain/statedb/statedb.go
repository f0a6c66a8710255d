// Package statedb provides the authenticated account store: a Merkle Patricia
// trie over a key/value database with nested checkpoints. Every key is
// hashed with SHA-256 before it reaches the trie, so the root depends only
// on the set of entries and never on the order they were written.
package statedb

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/ethdb/leveldb"
	"github.com/ethereum/go-ethereum/trie"
	"github.com/ethereum/go-ethereum/trie/trienode"
	"github.com/ethereum/go-ethereum/triedb"
	"github.com/open-protocol/ledger/foundation/blockchain/signature"
)

// rootKey is where the latest committed root is recorded in the backing
// database so the store reopens at the same state.
var rootKey = []byte("ledger-state-root")

// Settings for the on disk database.
const (
	cacheMB     = 16
	fileHandles = 16
	namespace   = "ledger/state/"
)

// ErrNoCheckpoint is returned by Commit and Revert with no open checkpoint.
var ErrNoCheckpoint = errors.New("no open checkpoint")

// EmptyRoot is the root of a store holding no entries.
var EmptyRoot = hex.EncodeToString(types.EmptyRootHash[:])

// EventHandler defines a function that is called when events
// occur in the processing of the store.
type EventHandler func(v string, args ...any)

// Entry is a single key/value pair to write. A nil Value deletes the key.
type Entry struct {
	Key   []byte
	Value []byte
}

// =============================================================================

// Store manages the account trie.
type Store struct {
	mu        sync.Mutex
	db        ethdb.Database
	tdb       *triedb.Database
	trie      *trie.Trie
	root      common.Hash
	frames    []*trie.Trie
	evHandler EventHandler
}

// Open constructs a store backed by a LevelDB database at the path.
func Open(path string, evHandler EventHandler) (*Store, error) {
	kv, err := leveldb.New(path, cacheMB, fileHandles, namespace, false)
	if err != nil {
		return nil, &StorageError{Op: "open", Err: err}
	}

	return New(rawdb.NewDatabase(kv), evHandler)
}

// NewMemory constructs a store backed by an in memory database.
func NewMemory() (*Store, error) {
	return New(rawdb.NewMemoryDatabase(), nil)
}

// New constructs a store over the database, resuming at the last committed
// root recorded in it.
func New(db ethdb.Database, evHandler EventHandler) (*Store, error) {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	s := Store{
		db:        db,
		tdb:       triedb.NewDatabase(db, nil),
		root:      types.EmptyRootHash,
		evHandler: ev,
	}

	data, err := db.Get(rootKey)
	switch {
	case err == nil && len(data) == common.HashLength:
		s.root = common.BytesToHash(data)
	default:
		has, herr := db.Has(rootKey)
		if herr != nil {
			return nil, &StorageError{Op: "read root", Err: herr}
		}
		if has {
			return nil, &StorageError{Op: "read root", Err: fmt.Errorf("corrupt root record: %v", err)}
		}
	}

	if err := s.reopen(s.root); err != nil {
		return nil, err
	}

	ev("statedb: New: opened at root[%x]", s.root)

	return &s, nil
}

// Close releases the backing database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.tdb.Close(); err != nil {
		return &StorageError{Op: "close", Err: err}
	}

	if err := s.db.Close(); err != nil {
		return &StorageError{Op: "close", Err: err}
	}

	return nil
}

// =============================================================================

// Get returns the value stored under key.
func (s *Store) Get(key []byte) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.trie.Get(signature.Hash(key))
	if err != nil {
		return nil, false, &StorageError{Op: "get", Err: err}
	}

	if len(v) == 0 {
		return nil, false, nil
	}

	return v, true, nil
}

// Put stores the value under key. Outside of a checkpoint the write is
// committed immediately.
func (s *Store) Put(key []byte, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.put(key, value); err != nil {
		return err
	}

	if len(s.frames) == 0 {
		return s.flush()
	}

	return nil
}

// Del removes the value under key. Outside of a checkpoint the delete is
// committed immediately.
func (s *Store) Del(key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.del(key); err != nil {
		return err
	}

	if len(s.frames) == 0 {
		return s.flush()
	}

	return nil
}

// Checkpoint opens a new nested frame that can later be committed or
// reverted.
func (s *Store) Checkpoint() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.checkpoint()
}

// Commit closes the innermost frame keeping its writes. Closing the
// outermost frame persists the state to the backing database.
func (s *Store) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.commit()
}

// Revert closes the innermost frame discarding its writes.
func (s *Store) Revert() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.revert()
}

// Root returns the hex root of the current state, including writes in open
// frames.
func (s *Store) Root() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.trie.Hash()
	return hex.EncodeToString(h[:])
}

// Apply writes every entry as one unit inside its own checkpoint. Either
// all of them are persisted or none are, and no other caller observes a
// partial result.
func (s *Store) Apply(entries []Entry) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.frames) != 0 {
		return "", fmt.Errorf("apply with %d open checkpoints", len(s.frames))
	}

	s.checkpoint()

	for _, e := range entries {
		var err error
		if e.Value == nil {
			err = s.del(e.Key)
		} else {
			err = s.put(e.Key, e.Value)
		}

		if err != nil {
			s.revert()
			return "", err
		}
	}

	if err := s.commit(); err != nil {
		return "", err
	}

	return hex.EncodeToString(s.root[:]), nil
}

// =============================================================================

func (s *Store) put(key []byte, value []byte) error {
	if err := s.trie.Update(signature.Hash(key), value); err != nil {
		return &StorageError{Op: "put", Err: err}
	}
	return nil
}

func (s *Store) del(key []byte) error {
	if err := s.trie.Delete(signature.Hash(key)); err != nil {
		return &StorageError{Op: "del", Err: err}
	}
	return nil
}

func (s *Store) checkpoint() {
	s.frames = append(s.frames, s.trie.Copy())
}

func (s *Store) commit() error {
	if len(s.frames) == 0 {
		return ErrNoCheckpoint
	}

	s.frames = s.frames[:len(s.frames)-1]
	if len(s.frames) == 0 {
		return s.flush()
	}

	return nil
}

func (s *Store) revert() error {
	if len(s.frames) == 0 {
		return ErrNoCheckpoint
	}

	last := len(s.frames) - 1
	s.trie = s.frames[last]
	s.frames = s.frames[:last]

	return nil
}

// =============================================================================

// flush commits the trie nodes to the backing database, records the new
// root and reopens the trie at it. On failure the store falls back to the
// last persisted root.
func (s *Store) flush() error {
	root, nodes := s.trie.Commit(false)

	if err := s.persist(root, nodes); err != nil {
		if rerr := s.reopen(s.root); rerr != nil {
			s.evHandler("statedb: flush: ERROR: reopen at root[%x]: %s", s.root, rerr)
		}
		return err
	}

	s.evHandler("statedb: flush: root[%x] -> root[%x]", s.root, root)
	s.root = root

	return s.reopen(root)
}

func (s *Store) persist(root common.Hash, nodes *trienode.NodeSet) error {
	if nodes != nil {
		if err := s.tdb.Update(root, s.root, 0, trienode.NewWithNodeSet(nodes), nil); err != nil {
			return &StorageError{Op: "update", Err: err}
		}
	}

	if root != types.EmptyRootHash {
		if err := s.tdb.Commit(root, false); err != nil {
			return &StorageError{Op: "commit", Err: err}
		}
	}

	if err := s.db.Put(rootKey, root.Bytes()); err != nil {
		return &StorageError{Op: "write root", Err: err}
	}

	return nil
}

func (s *Store) reopen(root common.Hash) error {
	t, err := trie.New(trie.TrieID(root), s.tdb)
	if err != nil {
		return &StorageError{Op: "open trie", Err: err}
	}

	s.trie = t
	return nil
}

// =============================================================================

// ComputeRoot returns the hex root of a throwaway trie holding the entries.
// Keys are hashed with SHA-256 just like in the Store.
func ComputeRoot(entries []Entry) (string, error) {
	t := trie.NewEmpty(triedb.NewDatabase(rawdb.NewMemoryDatabase(), nil))

	for _, e := range entries {
		if err := t.Update(signature.Hash(e.Key), e.Value); err != nil {
			return "", err
		}
	}

	h := t.Hash()
	return hex.EncodeToString(h[:]), nil
}
