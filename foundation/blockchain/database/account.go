package database

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/open-protocol/ledger/foundation/blockchain/codec"
)

// NoCode is the code value of an account that holds no contract.
const NoCode = "00"

// publicKeyLength is the size in bytes of an account public key.
const publicKeyLength = 32

// ErrMalformedAccount is returned when stored account bytes can't be decoded.
var ErrMalformedAccount = errors.New("malformed account")

// =============================================================================

// Account represents the state held for a single public key.
type Account struct {
	PublicKey string
	Balance   *uint256.Int
	Nonce     uint64
	Code      string
	Memory    codec.Map
}

// NewAccount constructs the empty account for the public key. Accounts come
// into existence this way the first time they are credited.
func NewAccount(publicKey string) Account {
	return Account{
		PublicKey: publicKey,
		Balance:   new(uint256.Int),
		Code:      NoCode,
		Memory:    codec.Map{},
	}
}

// HasCode reports whether the account holds a contract.
func (a Account) HasCode() bool {
	return a.Code != "" && a.Code != NoCode
}

// Clone returns a deep copy of the account.
func (a Account) Clone() Account {
	cpy := a
	cpy.Balance = new(uint256.Int)
	if a.Balance != nil {
		cpy.Balance.Set(a.Balance)
	}
	cpy.Memory = a.Memory.Clone()

	return cpy
}

// Encode returns the canonical encoding of the account.
func (a Account) Encode() ([]byte, error) {
	code := a.Code
	if code == "" {
		code = NoCode
	}

	memory := a.Memory
	if memory == nil {
		memory = codec.Map{}
	}

	return codec.Encode(
		codec.Hex(AmountHex(a.Balance)),
		codec.Int(a.Nonce),
		codec.Hex(code),
		memory,
	)
}

// DecodeAccount rebuilds an account from its canonical encoding.
func DecodeAccount(publicKey string, data []byte) (Account, error) {
	values, err := codec.Decode(data)
	if err != nil {
		return Account{}, fmt.Errorf("%w: %w", ErrMalformedAccount, err)
	}

	if len(values) != 4 {
		return Account{}, fmt.Errorf("%w: expected 4 fields, got %d", ErrMalformedAccount, len(values))
	}

	balanceHex, ok := codec.AsHex(values[0])
	if !ok {
		return Account{}, fmt.Errorf("%w: balance is %T", ErrMalformedAccount, values[0])
	}

	balance, err := ParseAmount(balanceHex)
	if err != nil {
		return Account{}, fmt.Errorf("%w: %w", ErrMalformedAccount, err)
	}

	nonce, ok := codec.AsUint64(values[1])
	if !ok {
		return Account{}, fmt.Errorf("%w: nonce is %T", ErrMalformedAccount, values[1])
	}

	var code string
	switch v := values[2].(type) {
	case codec.Hex:
		code = strings.ToLower(string(v))
	case codec.Null:
		code = NoCode
	default:
		return Account{}, fmt.Errorf("%w: code is %T", ErrMalformedAccount, values[2])
	}

	memory, ok := values[3].(codec.Map)
	if !ok {
		return Account{}, fmt.Errorf("%w: memory is %T", ErrMalformedAccount, values[3])
	}

	acct := Account{
		PublicKey: publicKey,
		Balance:   balance,
		Nonce:     nonce,
		Code:      code,
		Memory:    memory,
	}

	return acct, nil
}

// =============================================================================

// AmountHex returns the minimal hex form of an amount. Zero is "00".
func AmountHex(v *uint256.Int) string {
	if v == nil || v.IsZero() {
		return "00"
	}

	return hex.EncodeToString(v.Bytes())
}

// ParseAmount converts hex text into a 256 bit unsigned amount.
func ParseAmount(s string) (*uint256.Int, error) {
	b, err := codec.HexBytes(s)
	if err != nil {
		return nil, err
	}

	for len(b) > 0 && b[0] == 0 {
		b = b[1:]
	}

	if len(b) > 32 {
		return nil, fmt.Errorf("amount %q exceeds 256 bits", s)
	}

	return new(uint256.Int).SetBytes(b), nil
}

// IsPublicKey reports whether s is the hex form of a 32 byte public key.
func IsPublicKey(s string) bool {
	b, err := hex.DecodeString(s)
	if err != nil {
		return false
	}

	return len(b) == publicKeyLength
}

// StateKey returns the key an account is stored under before the store
// applies its own hashing: the raw public key bytes.
func StateKey(publicKey string) ([]byte, error) {
	b, err := hex.DecodeString(publicKey)
	if err != nil {
		return nil, fmt.Errorf("public key %q: %w", publicKey, err)
	}

	return b, nil
}
