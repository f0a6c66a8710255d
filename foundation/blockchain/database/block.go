package database

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/open-protocol/ledger/foundation/blockchain/codec"
	"github.com/open-protocol/ledger/foundation/blockchain/signature"
)

// ErrMalformedBlock is returned when block bytes can't be decoded.
var ErrMalformedBlock = errors.New("malformed block")

// =============================================================================

// BlockHeader represents common information required for each block.
type BlockHeader struct {
	Number    uint64 `json:"number"`    // Height of the block, genesis is 0.
	Previous  string `json:"previous"`  // Hash of the parent block header.
	TxRoot    string `json:"txroot"`    // Root of the trie holding the block's transactions.
	StateRoot string `json:"stateroot"` // Root of the account state after the block.
	TimeStamp uint64 `json:"timestamp"` // Unix milliseconds when the block was built.
}

// Encode returns the canonical encoding of the header.
func (bh BlockHeader) Encode() ([]byte, error) {
	return codec.Encode(
		codec.Int(bh.Number),
		codec.Hex(bh.Previous),
		codec.Hex(bh.TxRoot),
		codec.Hex(bh.StateRoot),
		codec.Int(bh.TimeStamp),
	)
}

// Hash returns the unique hash for the header. A header that can't be
// encoded has no hash and returns the empty string, which never matches a
// parent link. Headers from the archive or peers are checked by ToBlock
// before they are used.
func (bh BlockHeader) Hash() string {
	data, err := bh.Encode()
	if err != nil {
		return ""
	}

	return signature.HashHex(data)
}

// =============================================================================

// Block represents a header and the ordered hashes of the transactions it
// includes, successful and failed alike.
type Block struct {
	Header BlockHeader
	Txs    []string
}

// NewBlock constructs the block that follows parent.
func NewBlock(parent Block, txRoot string, stateRoot string, timestamp uint64, txs []string) Block {
	return Block{
		Header: BlockHeader{
			Number:    parent.Header.Number + 1,
			Previous:  parent.Hash(),
			TxRoot:    txRoot,
			StateRoot: stateRoot,
			TimeStamp: timestamp,
		},
		Txs: txs,
	}
}

// Hash returns the unique hash for the Block.
func (b Block) Hash() string {
	return b.Header.Hash()
}

// Encode returns the wire form of the block: the header encoding followed by
// the encoding of the list of transaction hashes.
func (b Block) Encode() ([]byte, error) {
	header, err := b.Header.Encode()
	if err != nil {
		return nil, err
	}

	list := make(codec.List, len(b.Txs))
	for i, h := range b.Txs {
		list[i] = codec.Hex(h)
	}

	txs, err := codec.Encode(list)
	if err != nil {
		return nil, err
	}

	return append(header, txs...), nil
}

// DecodeBlock rebuilds a block from its wire form.
func DecodeBlock(data []byte) (Block, error) {
	values, err := codec.Decode(data)
	if err != nil {
		return Block{}, fmt.Errorf("%w: %w", ErrMalformedBlock, err)
	}

	if len(values) != 6 {
		return Block{}, fmt.Errorf("%w: expected 6 fields, got %d", ErrMalformedBlock, len(values))
	}

	number, ok1 := codec.AsUint64(values[0])
	previous, ok2 := codec.AsHex(values[1])
	txRoot, ok3 := codec.AsHex(values[2])
	stateRoot, ok4 := codec.AsHex(values[3])
	timestamp, ok5 := codec.AsUint64(values[4])
	list, ok6 := values[5].(codec.List)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 || !ok6 {
		return Block{}, fmt.Errorf("%w: unexpected field types", ErrMalformedBlock)
	}

	txs := make([]string, len(list))
	for i, v := range list {
		h, ok := codec.AsHex(v)
		if !ok {
			return Block{}, fmt.Errorf("%w: tx %d is %T", ErrMalformedBlock, i, v)
		}
		txs[i] = h
	}

	block := Block{
		Header: BlockHeader{
			Number:    number,
			Previous:  previous,
			TxRoot:    txRoot,
			StateRoot: stateRoot,
			TimeStamp: timestamp,
		},
		Txs: txs,
	}

	return block, nil
}

// ValidateBlock takes a block and validates it follows the previous block.
func (b Block) ValidateBlock(previousBlock Block, evHandler func(v string, args ...any)) error {
	evHandler("database: ValidateBlock: validate: blk[%d]: check: block number is the next number", b.Header.Number)

	nextNumber := previousBlock.Header.Number + 1
	if b.Header.Number != nextNumber {
		return fmt.Errorf("this block is not the next number, got %d, exp %d", b.Header.Number, nextNumber)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: parent hash does match parent block", b.Header.Number)

	parentHash := previousBlock.Hash()
	if parentHash == "" {
		return fmt.Errorf("%w: parent block header can't be encoded", ErrMalformedBlock)
	}

	if b.Header.Previous != parentHash {
		return fmt.Errorf("parent block hash doesn't match our known parent, got %s, exp %s", b.Header.Previous, previousBlock.Hash())
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block's timestamp is not before parent block's timestamp", b.Header.Number)

	if b.Header.TimeStamp < previousBlock.Header.TimeStamp {
		return fmt.Errorf("block timestamp is before parent block, parent %d, block %d", previousBlock.Header.TimeStamp, b.Header.TimeStamp)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: roots are well formed", b.Header.Number)

	for _, root := range []string{b.Header.TxRoot, b.Header.StateRoot} {
		if r, err := hex.DecodeString(root); err != nil || len(r) != 32 {
			return fmt.Errorf("block root %q is not a 32 byte hash", root)
		}
	}

	return nil
}

// =============================================================================

// BlockData represents what can be serialized to disk and over the network.
type BlockData struct {
	Hash   string      `json:"hash"`
	Header BlockHeader `json:"block"`
	Txs    []string    `json:"txs"`
}

// NewBlockData constructs block data from a block.
func NewBlockData(block Block) BlockData {
	blockData := BlockData{
		Hash:   block.Hash(),
		Header: block.Header,
		Txs:    block.Txs,
	}

	return blockData
}

// ToBlock converts a storage block into a database block, checking the
// recorded hash matches the header.
func ToBlock(blockData BlockData) (Block, error) {
	block := Block{
		Header: blockData.Header,
		Txs:    blockData.Txs,
	}

	if _, err := block.Header.Encode(); err != nil {
		return Block{}, fmt.Errorf("%w: header: %w", ErrMalformedBlock, err)
	}

	if blockData.Hash != "" && blockData.Hash != block.Hash() {
		return Block{}, fmt.Errorf("%w: recorded hash %s, computed %s", ErrMalformedBlock, blockData.Hash, block.Hash())
	}

	return block, nil
}
