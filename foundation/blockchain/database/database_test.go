package database_test

import (
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/holiman/uint256"
	"github.com/oasisprotocol/curve25519-voi/primitives/ed25519"
	"github.com/open-protocol/ledger/foundation/blockchain/codec"
	"github.com/open-protocol/ledger/foundation/blockchain/database"
	"github.com/open-protocol/ledger/foundation/blockchain/database/storage/disk"
	"github.com/open-protocol/ledger/foundation/blockchain/database/storage/memory"
	"github.com/open-protocol/ledger/foundation/blockchain/signature"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func newKey(t *testing.T) (string, ed25519.PrivateKey) {
	_, pk, err := signature.GenerateKey()
	if err != nil {
		t.Fatalf("Should be able to generate a key: %s", err)
	}
	return signature.PublicKeyHex(pk), pk
}

// =============================================================================

func Test_Transactions(t *testing.T) {
	from, pk := newKey(t)
	to, _ := newKey(t)

	t.Log("Given the need to sign and verify transactions.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen handling a value transfer.", testID)
		{
			tx, err := database.NewTx(from, to, "64", 0, "")
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to construct a transaction: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to construct a transaction.", success, testID)

			if tx.HasInput() {
				t.Fatalf("\t%s\tTest %d:\tShould default to no input.", failed, testID)
			}

			signedTx, err := tx.Sign(pk)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to sign: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to sign.", success, testID)

			if err := signedTx.Verify(); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to verify: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to verify.", success, testID)

			data, err := signedTx.Encode()
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to encode: %v", failed, testID, err)
			}

			decoded, err := database.DecodeSignedTx(data)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to decode: %v", failed, testID, err)
			}

			if decoded != signedTx {
				t.Logf("\t%s\tTest %d:\tgot: %+v", failed, testID, decoded)
				t.Logf("\t%s\tTest %d:\texp: %+v", failed, testID, signedTx)
				t.Fatalf("\t%s\tTest %d:\tShould get back the same transaction.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould get back the same transaction.", success, testID)

			h1, _ := tx.HashHex()
			h2, _ := decoded.HashHex()
			if h1 != h2 {
				t.Fatalf("\t%s\tTest %d:\tShould keep the same identity after decoding.", failed, testID)
			}

			unsigned, _ := tx.Encode()
			if h1 != signature.HashHex(unsigned) {
				t.Fatalf("\t%s\tTest %d:\tShould identify by the hash of the unsigned encoding.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould identify by the hash of the unsigned encoding.", success, testID)

			tampered := decoded
			tampered.Value = "65"
			if err := tampered.Verify(); !errors.Is(err, database.ErrVerification) {
				t.Fatalf("\t%s\tTest %d:\tShould reject a tampered transaction, got %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a tampered transaction.", success, testID)
		}
	}
}

func Test_TransactionErrors(t *testing.T) {
	from, pk := newKey(t)
	to, other := newKey(t)

	t.Log("Given the need to refuse bad transactions.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen signing with a key that doesn't own the account.", testID)
		{
			tx, err := database.NewTx(from, to, "01", 0, "")
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to construct a transaction: %v", failed, testID, err)
			}

			if _, err := tx.Sign(other); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould not sign with a key that doesn't own the from account.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not sign with a key that doesn't own the from account.", success, testID)
		}

		testID = 1
		t.Logf("\tTest %d:\tWhen decoding malformed bytes.", testID)
		{
			short, _ := codec.Encode(codec.Hex("01"), codec.Hex("02"))
			badNonce, _ := codec.Encode(codec.Hex("01"), codec.Hex("02"), codec.Hex("01"), codec.Hex("02"), codec.Hex("00"), codec.Hex("01"))

			for _, data := range [][]byte{short, badNonce, {0x09}} {
				if _, err := database.DecodeSignedTx(data); !errors.Is(err, database.ErrMalformedTx) {
					t.Fatalf("\t%s\tTest %d:\tShould reject %x, got %v", failed, testID, data, err)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould reject short, mistyped and garbage bytes.", success, testID)
		}

		testID = 2
		t.Logf("\tTest %d:\tWhen a transaction is not in canonical form.", testID)
		{
			canonical, err := database.NewTx(from, to, "01", 0, "")
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to construct a transaction: %v", failed, testID, err)
			}

			if err := canonical.Validate(); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept what NewTx builds: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould accept what NewTx builds.", success, testID)

			padded := canonical
			padded.Value = "0001"
			empty := canonical
			empty.Value = ""
			noInput := canonical
			noInput.Input = ""
			upper := canonical
			upper.To = strings.ToUpper(to)

			for _, tx := range []database.Tx{padded, empty, noInput, upper} {
				if err := tx.Validate(); !errors.Is(err, database.ErrMalformedTx) {
					t.Fatalf("\t%s\tTest %d:\tShould reject %+v, got %v", failed, testID, tx, err)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould reject padded values, empty fields and uppercase keys.", success, testID)

			signedPadded, err := padded.Sign(pk)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to sign: %v", failed, testID, err)
			}

			h1, _ := canonical.HashHex()
			h2, _ := signedPadded.HashHex()
			if h1 == h2 || signedPadded.Validate() == nil {
				t.Fatalf("\t%s\tTest %d:\tShould not accept a second identity for the same transfer.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not accept a second identity for the same transfer.", success, testID)
		}
	}
}

func Test_Account(t *testing.T) {
	pub, _ := newKey(t)

	t.Log("Given the need to store accounts.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen encoding an account with memory.", testID)
		{
			acct := database.NewAccount(pub)
			acct.Balance = uint256.NewInt(1000)
			acct.Nonce = 3
			acct.Memory.Set(codec.Hex("01"), codec.Hex("ff"))

			data, err := acct.Encode()
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to encode an account: %v", failed, testID, err)
			}

			got, err := database.DecodeAccount(pub, data)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to decode an account: %v", failed, testID, err)
			}

			if got.Balance.Uint64() != 1000 || got.Nonce != 3 || got.HasCode() {
				t.Fatalf("\t%s\tTest %d:\tShould get back the same account, got %+v", failed, testID, got)
			}

			v, ok := got.Memory.Get(codec.Hex("01"))
			if !ok || !codec.Equal(v, codec.Hex("ff")) {
				t.Fatalf("\t%s\tTest %d:\tShould get back the account memory.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould get back the same account.", success, testID)

			clone := got.Clone()
			clone.Balance.SetUint64(1)
			clone.Memory.Set(codec.Hex("01"), codec.Hex("00"))
			if got.Balance.Uint64() != 1000 {
				t.Fatalf("\t%s\tTest %d:\tShould not share balance with a clone.", failed, testID)
			}
			if v, _ := got.Memory.Get(codec.Hex("01")); !codec.Equal(v, codec.Hex("ff")) {
				t.Fatalf("\t%s\tTest %d:\tShould not share memory with a clone.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not share state with a clone.", success, testID)
		}

		testID = 1
		t.Logf("\tTest %d:\tWhen encoding an empty account.", testID)
		{
			empty, err := database.NewAccount(pub).Encode()
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to encode an empty account: %v", failed, testID, err)
			}

			const exp = "02010000010100000201000004" + "00000000"
			if hex.EncodeToString(empty) != exp {
				t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, hex.EncodeToString(empty))
				t.Logf("\t%s\tTest %d:\texp: %s", failed, testID, exp)
				t.Fatalf("\t%s\tTest %d:\tShould encode an empty account canonically.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould encode an empty account canonically.", success, testID)
		}
	}
}

func Test_Amount(t *testing.T) {
	tt := []struct {
		in  string
		exp string
	}{
		{"00", "00"},
		{"0", "00"},
		{"0001", "01"},
		{"fff", "0fff"},
	}

	t.Log("Given the need to parse and format amounts.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen parsing %q.", testID, tst.in)
				{
					v, err := database.ParseAmount(tst.in)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to parse: %v", failed, testID, err)
					}

					if got := database.AmountHex(v); got != tst.exp {
						t.Fatalf("\t%s\tTest %d:\tShould format as %q, got %q", failed, testID, tst.exp, got)
					}
					t.Logf("\t%s\tTest %d:\tShould format as %q.", success, testID, tst.exp)
				}
			}

			t.Run(tst.in, f)
		}

		testID := len(tt)
		t.Logf("\tTest %d:\tWhen the amount exceeds 256 bits.", testID)
		{
			if _, err := database.ParseAmount("01" + hex.EncodeToString(make([]byte, 32))); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould reject amounts over 256 bits.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould reject amounts over 256 bits.", success, testID)
		}
	}
}

func Test_Block(t *testing.T) {
	genesis := database.Block{
		Header: database.BlockHeader{
			Number:    0,
			Previous:  signature.ZeroHash,
			TxRoot:    signature.ZeroHash,
			StateRoot: signature.ZeroHash,
			TimeStamp: 1000,
		},
	}

	txHash := signature.HashHex([]byte("tx"))
	block := database.NewBlock(genesis, signature.ZeroHash, signature.HashHex([]byte("state")), 2000, []string{txHash})
	noop := func(string, ...any) {}

	t.Log("Given the need to link blocks into a chain.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen building the next block.", testID)
		{
			if err := block.ValidateBlock(genesis, noop); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould validate the next block: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould validate the next block.", success, testID)

			header, _ := block.Header.Encode()
			if block.Hash() != signature.HashHex(header) {
				t.Fatalf("\t%s\tTest %d:\tShould hash the header encoding.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould hash the header encoding.", success, testID)

			data, err := block.Encode()
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to encode the block: %v", failed, testID, err)
			}

			got, err := database.DecodeBlock(data)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to decode the block: %v", failed, testID, err)
			}

			if got.Hash() != block.Hash() || len(got.Txs) != 1 || got.Txs[0] != txHash {
				t.Fatalf("\t%s\tTest %d:\tShould get back the same block.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould get back the same block.", success, testID)
		}

		testID = 1
		t.Logf("\tTest %d:\tWhen the block doesn't follow its parent.", testID)
		{
			wrongParent := block
			wrongParent.Header.Previous = signature.HashHex([]byte("other"))
			if err := wrongParent.ValidateBlock(genesis, noop); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould reject a block with the wrong parent.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a block with the wrong parent.", success, testID)

			wrongNumber := block
			wrongNumber.Header.Number = 2
			if err := wrongNumber.ValidateBlock(genesis, noop); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould reject a block with the wrong number.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a block with the wrong number.", success, testID)
		}

		testID = 2
		t.Logf("\tTest %d:\tWhen a header can't be encoded.", testID)
		{
			corrupt := genesis
			corrupt.Header.StateRoot = "not hex"

			if corrupt.Hash() == signature.ZeroHash || corrupt.Hash() != "" {
				t.Fatalf("\t%s\tTest %d:\tShould not hash to the genesis parent, got %q.", failed, testID, corrupt.Hash())
			}
			t.Logf("\t%s\tTest %d:\tShould not hash to the genesis parent.", success, testID)

			if _, err := database.ToBlock(database.BlockData{Header: corrupt.Header}); !errors.Is(err, database.ErrMalformedBlock) {
				t.Fatalf("\t%s\tTest %d:\tShould refuse to load the header, got %v.", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould refuse to load the header.", success, testID)

			child := database.NewBlock(corrupt, signature.ZeroHash, signature.ZeroHash, 2000, nil)
			if err := child.ValidateBlock(corrupt, noop); !errors.Is(err, database.ErrMalformedBlock) {
				t.Fatalf("\t%s\tTest %d:\tShould not link a child to it, got %v.", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould not link a child to it.", success, testID)
		}
	}
}

func Test_Archive(t *testing.T) {
	type table struct {
		name string
		open func(t *testing.T) (database.Serializer, func() database.Serializer)
	}

	tt := []table{
		{
			name: "memory",
			open: func(t *testing.T) (database.Serializer, func() database.Serializer) {
				m := memory.New()
				return m, func() database.Serializer { return m }
			},
		},
		{
			name: "disk",
			open: func(t *testing.T) (database.Serializer, func() database.Serializer) {
				dir := t.TempDir()
				d, err := disk.New(dir)
				if err != nil {
					t.Fatalf("Should be able to open disk storage: %v", err)
				}
				return d, func() database.Serializer {
					d, err := disk.New(dir)
					if err != nil {
						t.Fatalf("Should be able to reopen disk storage: %v", err)
					}
					return d
				}
			},
		},
	}

	t.Log("Given the need to archive blocks.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen using %s storage.", testID, tst.name)
				{
					serializer, reopen := tst.open(t)

					db, err := database.New(serializer, nil)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to open the archive: %v", failed, testID, err)
					}

					if _, err := db.LatestBlock(); !errors.Is(err, database.ErrNoBlocks) {
						t.Fatalf("\t%s\tTest %d:\tShould start with no blocks, got %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould start with no blocks.", success, testID)

					genesis := database.Block{
						Header: database.BlockHeader{
							Previous:  signature.ZeroHash,
							TxRoot:    signature.ZeroHash,
							StateRoot: signature.ZeroHash,
							TimeStamp: 1,
						},
					}
					if err := db.Write(genesis); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to write genesis: %v", failed, testID, err)
					}

					next := database.NewBlock(genesis, signature.ZeroHash, signature.ZeroHash, 2, nil)
					if err := db.Write(next); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to write the next block: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to write blocks.", success, testID)

					if err := db.Write(next); err == nil {
						t.Fatalf("\t%s\tTest %d:\tShould reject a block that doesn't follow the latest.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould reject a block that doesn't follow the latest.", success, testID)

					reloaded, err := database.New(reopen(), nil)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to reload the archive: %v", failed, testID, err)
					}

					latest, err := reloaded.LatestBlock()
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould have a latest block: %v", failed, testID, err)
					}

					if latest.Hash() != next.Hash() {
						t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, latest.Hash())
						t.Logf("\t%s\tTest %d:\texp: %s", failed, testID, next.Hash())
						t.Fatalf("\t%s\tTest %d:\tShould rebuild the latest block.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould rebuild the latest block.", success, testID)

					block, err := reloaded.GetBlock(0)
					if err != nil || block.Hash() != genesis.Hash() {
						t.Fatalf("\t%s\tTest %d:\tShould be able to read genesis back: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to read genesis back.", success, testID)
				}
			}

			t.Run(tst.name, f)
		}
	}
}
