package database

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/oasisprotocol/curve25519-voi/primitives/ed25519"
	"github.com/open-protocol/ledger/foundation/blockchain/codec"
	"github.com/open-protocol/ledger/foundation/blockchain/signature"
)

// NoInput is the input value of a transaction that calls no contract.
const NoInput = "00"

// Set of transaction errors.
var (
	ErrVerification = errors.New("signature verification failed")
	ErrMalformedTx  = errors.New("malformed transaction")
)

// =============================================================================

// Tx is the transactional information between two parties.
type Tx struct {
	From  string `json:"from"`  // Public key of the sender.
	To    string `json:"to"`    // Public key of the receiver.
	Value string `json:"value"` // Amount moved as minimal hex, zero is "00".
	Nonce uint64 `json:"nonce"` // Must equal the sender's account nonce.
	Input string `json:"input"` // Encoded contract call, "00" for none.
}

// NewTx constructs a new transaction.
func NewTx(from string, to string, value string, nonce uint64, input string) (Tx, error) {
	if !IsPublicKey(from) {
		return Tx{}, fmt.Errorf("from account is not properly formatted")
	}

	if !IsPublicKey(to) {
		return Tx{}, fmt.Errorf("to account is not properly formatted")
	}

	amount, err := ParseAmount(value)
	if err != nil {
		return Tx{}, fmt.Errorf("value: %w", err)
	}

	if input == "" {
		input = NoInput
	}

	tx := Tx{
		From:  strings.ToLower(from),
		To:    strings.ToLower(to),
		Value: AmountHex(amount),
		Nonce: nonce,
		Input: strings.ToLower(input),
	}

	return tx, nil
}

// Validate checks the transaction is in the form NewTx produces: lowercase
// keys, a minimal value and "00" for no input. Any other form would give
// the same transfer a second identity.
func (tx Tx) Validate() error {
	canonical, err := NewTx(tx.From, tx.To, tx.Value, tx.Nonce, tx.Input)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedTx, err)
	}

	if canonical != tx {
		return fmt.Errorf("%w: not canonical: value %q input %q, want value %q input %q", ErrMalformedTx, tx.Value, tx.Input, canonical.Value, canonical.Input)
	}

	return nil
}

// Encode returns the canonical unsigned encoding of the transaction.
func (tx Tx) Encode() ([]byte, error) {
	return codec.Encode(
		codec.Hex(tx.From),
		codec.Hex(tx.To),
		codec.Hex(tx.Value),
		codec.Int(tx.Nonce),
		codec.Hex(tx.Input),
	)
}

// Hash returns the identity of the transaction: the SHA-256 of its
// unsigned encoding.
func (tx Tx) Hash() ([]byte, error) {
	data, err := tx.Encode()
	if err != nil {
		return nil, err
	}

	return signature.Hash(data), nil
}

// HashHex returns the transaction identity as hex.
func (tx Tx) HashHex() (string, error) {
	h, err := tx.Hash()
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(h), nil
}

// Amount returns the value being moved.
func (tx Tx) Amount() (*uint256.Int, error) {
	return ParseAmount(tx.Value)
}

// HasInput reports whether the transaction carries a contract call.
func (tx Tx) HasInput() bool {
	return tx.Input != "" && tx.Input != NoInput
}

// Sign uses the specified private key to sign the transaction.
func (tx Tx) Sign(privateKey ed25519.PrivateKey) (SignedTx, error) {
	if signature.PublicKeyHex(privateKey) != strings.ToLower(tx.From) {
		return SignedTx{}, fmt.Errorf("private key does not belong to from account %s", tx.From)
	}

	data, err := tx.Encode()
	if err != nil {
		return SignedTx{}, err
	}

	sig, err := signature.Sign(privateKey, data)
	if err != nil {
		return SignedTx{}, err
	}

	signedTx := SignedTx{
		Tx:        tx,
		Signature: hex.EncodeToString(sig),
	}

	return signedTx, nil
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	from := tx.From
	if len(from) > 8 {
		from = from[:8]
	}
	return fmt.Sprintf("%s:%d", from, tx.Nonce)
}

// =============================================================================

// SignedTx is a signed version of the transaction. This is how clients like
// a wallet provide transactions for inclusion into the blockchain.
type SignedTx struct {
	Tx
	Signature string `json:"signature"`
}

// Encode returns the wire encoding of the signed transaction.
func (tx SignedTx) Encode() ([]byte, error) {
	return codec.Encode(
		codec.Hex(tx.From),
		codec.Hex(tx.To),
		codec.Hex(tx.Value),
		codec.Int(tx.Nonce),
		codec.Hex(tx.Input),
		codec.Hex(tx.Signature),
	)
}

// Verify checks the signature was produced by the from account over the
// unsigned encoding.
func (tx SignedTx) Verify() error {
	if !IsPublicKey(tx.From) {
		return fmt.Errorf("%w: from is not a public key", ErrVerification)
	}

	data, err := tx.Tx.Encode()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrVerification, err)
	}

	if !signature.VerifyHex(tx.Signature, data, tx.From) {
		return ErrVerification
	}

	return nil
}

// DecodeSignedTx rebuilds a signed transaction from its wire encoding.
func DecodeSignedTx(data []byte) (SignedTx, error) {
	values, err := codec.Decode(data)
	if err != nil {
		return SignedTx{}, fmt.Errorf("%w: %w", ErrMalformedTx, err)
	}

	if len(values) != 6 {
		return SignedTx{}, fmt.Errorf("%w: expected 6 fields, got %d", ErrMalformedTx, len(values))
	}

	var fields [6]string
	for _, i := range []int{0, 1, 2, 4, 5} {
		s, ok := codec.AsHex(values[i])
		if !ok {
			return SignedTx{}, fmt.Errorf("%w: field %d is %T", ErrMalformedTx, i, values[i])
		}
		fields[i] = s
	}

	nonce, ok := codec.AsUint64(values[3])
	if !ok {
		return SignedTx{}, fmt.Errorf("%w: nonce is %T", ErrMalformedTx, values[3])
	}

	tx := SignedTx{
		Tx: Tx{
			From:  fields[0],
			To:    fields[1],
			Value: fields[2],
			Nonce: nonce,
			Input: fields[4],
		},
		Signature: fields[5],
	}

	return tx, nil
}

// DecodeSignedTxHex is DecodeSignedTx over hex text.
func DecodeSignedTxHex(s string) (SignedTx, error) {
	data, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return SignedTx{}, fmt.Errorf("%w: %w", ErrMalformedTx, err)
	}

	return DecodeSignedTx(data)
}
