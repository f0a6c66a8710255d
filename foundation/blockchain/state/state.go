// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/open-protocol/ledger/foundation/blockchain/database"
	"github.com/open-protocol/ledger/foundation/blockchain/genesis"
	"github.com/open-protocol/ledger/foundation/blockchain/mempool"
	"github.com/open-protocol/ledger/foundation/blockchain/peer"
	"github.com/open-protocol/ledger/foundation/blockchain/signature"
	"github.com/open-protocol/ledger/foundation/blockchain/statedb"
	"github.com/open-protocol/ledger/foundation/blockchain/vm"
)

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for block proposals and transaction sharing.
type Worker interface {
	Shutdown()
	SignalProposeBlock()
	SignalShareTx(tx database.SignedTx)
}

// Store represents the authenticated account store the state reads from and
// commits proposals into.
type Store interface {
	Get(key []byte) ([]byte, bool, error)
	Apply(entries []statedb.Entry) (string, error)
	Root() string
}

// LedgerHead is the pair of blocks a proposal builds on. Callers own it and
// thread the value returned by Propose into the next call.
type LedgerHead struct {
	Previous database.Block
	Current  database.Block
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	Host           string
	Store          Store
	Archive        *database.Database
	Genesis        genesis.Genesis
	Executor       vm.Executor
	SelectStrategy string
	MaxTxPerBlock  int
	KnownPeers     *peer.PeerSet
	Now            func() time.Time
	EvHandler      EventHandler
}

// State manages the blockchain database.
type State struct {
	mu sync.Mutex

	host          string
	maxTxPerBlock int
	now           func() time.Time
	evHandler     EventHandler

	knownPeers *peer.PeerSet
	genesis    genesis.Genesis
	mempool    *mempool.Mempool
	store      Store
	archive    *database.Database
	executor   vm.Executor

	Worker Worker
}

// New constructs a new blockchain for data management. An empty archive is
// seeded with the genesis accounts and block.
func New(cfg Config) (*State, error) {
	if cfg.Store == nil {
		return nil, errors.New("state store is required")
	}

	if cfg.Archive == nil {
		return nil, errors.New("block archive is required")
	}

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	strategy := cfg.SelectStrategy
	if strategy == "" {
		strategy = "fifo"
	}

	// Construct a mempool with the specified sort strategy.
	mp, err := mempool.NewWithStrategy(strategy)
	if err != nil {
		return nil, err
	}

	maxTx := cfg.MaxTxPerBlock
	if maxTx <= 0 {
		maxTx = int(cfg.Genesis.MaxTxPerBlock)
	}
	if maxTx <= 0 {
		maxTx = genesis.DefaultMaxTxPerBlock
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	knownPeers := cfg.KnownPeers
	if knownPeers == nil {
		knownPeers = peer.NewPeerSet()
	}

	state := State{
		host:          cfg.Host,
		maxTxPerBlock: maxTx,
		now:           now,
		evHandler:     ev,

		knownPeers: knownPeers,
		genesis:    cfg.Genesis,
		mempool:    mp,
		store:      cfg.Store,
		archive:    cfg.Archive,
		executor:   cfg.Executor,
	}

	// The archive is either empty, in which case the genesis state is
	// written, or holds a chain that must end on the store's root.
	latest, err := cfg.Archive.LatestBlock()
	switch {
	case errors.Is(err, database.ErrNoBlocks):
		if err := state.applyGenesis(); err != nil {
			return nil, fmt.Errorf("genesis: %w", err)
		}

	case err != nil:
		return nil, err

	default:
		if latest.Header.StateRoot != cfg.Store.Root() {
			ev("state: New: WARNING: latest block[%d] stateroot[%s] does not match store root[%s]", latest.Header.Number, latest.Header.StateRoot, cfg.Store.Root())
		}
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Make sure the archive is properly closed.
	defer s.archive.Close()

	// Stop all blockchain writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	return nil
}

// Head rebuilds the ledger head from the archive.
func (s *State) Head() (LedgerHead, error) {
	current, err := s.archive.LatestBlock()
	if err != nil {
		return LedgerHead{}, err
	}

	head := LedgerHead{
		Current: current,
	}

	if current.Header.Number > 0 {
		previous, err := s.archive.GetBlock(current.Header.Number - 1)
		if err != nil {
			return LedgerHead{}, err
		}
		head.Previous = previous
	}

	return head, nil
}

// ArchiveBlock writes a proposed block to the archive.
func (s *State) ArchiveBlock(block database.Block) error {
	s.evHandler("state: ArchiveBlock: blk[%d]: hash[%s]", block.Header.Number, block.Hash())

	return s.archive.Write(block)
}

// =============================================================================

// applyGenesis writes the genesis accounts to the store and the genesis
// block to the archive.
func (s *State) applyGenesis() error {
	s.evHandler("state: applyGenesis: started: chain[%d]", s.genesis.ChainID)
	defer s.evHandler("state: applyGenesis: completed")

	accounts, err := s.genesis.Accounts()
	if err != nil {
		return err
	}

	entries := make([]statedb.Entry, 0, len(accounts))
	for _, acct := range accounts {
		entry, err := accountEntry(acct)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
	}

	root := s.store.Root()
	if len(entries) > 0 {
		if root, err = s.store.Apply(entries); err != nil {
			return err
		}
	}

	block := database.Block{
		Header: database.BlockHeader{
			Number:    0,
			Previous:  signature.ZeroHash,
			TxRoot:    statedb.EmptyRoot,
			StateRoot: root,
			TimeStamp: s.genesis.TimeStamp(),
		},
	}

	s.evHandler("state: applyGenesis: accounts[%d]: stateroot[%s]", len(accounts), root)

	return s.archive.Write(block)
}

// accountEntry builds the store entry for an account.
func accountEntry(acct database.Account) (statedb.Entry, error) {
	key, err := database.StateKey(acct.PublicKey)
	if err != nil {
		return statedb.Entry{}, err
	}

	value, err := acct.Encode()
	if err != nil {
		return statedb.Entry{}, err
	}

	return statedb.Entry{Key: key, Value: value}, nil
}
