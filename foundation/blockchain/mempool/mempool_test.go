package mempool_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/oasisprotocol/curve25519-voi/primitives/ed25519"
	"github.com/open-protocol/ledger/foundation/blockchain/database"
	"github.com/open-protocol/ledger/foundation/blockchain/mempool"
	"github.com/open-protocol/ledger/foundation/blockchain/signature"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func sign(t *testing.T, pk ed25519.PrivateKey, to string, nonce uint64) database.SignedTx {
	tx, err := database.NewTx(signature.PublicKeyHex(pk), to, "01", nonce, "")
	if err != nil {
		t.Fatalf("Should be able to construct a transaction: %s", err)
	}

	signedTx, err := tx.Sign(pk)
	if err != nil {
		t.Fatalf("Should be able to sign a transaction: %s", err)
	}

	return signedTx
}

func TestCRUD(t *testing.T) {
	_, pk, err := signature.GenerateKey()
	if err != nil {
		t.Fatalf("Should be able to generate a key: %s", err)
	}
	to, _, _ := signature.GenerateKey()
	toHex := fmt.Sprintf("%x", []byte(to))

	t.Log("Given the need to validate mempool api.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen handling a set of transaction.", testID)
		{
			mp := mempool.New()

			var hashes []string
			for nonce := range uint64(3) {
				hash, err := mp.Push(sign(t, pk, toHex, nonce))
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to push: %s", failed, testID, err)
				}
				hashes = append(hashes, hash)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to push transactions.", success, testID)

			if _, err := mp.Push(sign(t, pk, toHex, 0)); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to push again: %s", failed, testID, err)
			}

			if mp.Count() != 3 {
				t.Fatalf("\t%s\tTest %d:\tShould not duplicate a pushed transaction, got %d.", failed, testID, mp.Count())
			}
			t.Logf("\t%s\tTest %d:\tShould not duplicate a pushed transaction.", success, testID)

			for i, tx := range mp.Pending() {
				if tx.Hash != hashes[i] {
					t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, tx.Hash)
					t.Logf("\t%s\tTest %d:\texp: %s", failed, testID, hashes[i])
					t.Fatalf("\t%s\tTest %d:\tShould get back arrival order.", failed, testID)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould get back arrival order.", success, testID)

			for i, tx := range mp.Pending() {
				if tx.From != signature.PublicKeyHex(pk) || tx.Nonce != uint64(i) {
					t.Fatalf("\t%s\tTest %d:\tShould index sender and nonce, got %s/%d.", failed, testID, tx.From, tx.Nonce)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould index sender and nonce.", success, testID)

			raw, ok := mp.Get(hashes[1])
			if !ok {
				t.Fatalf("\t%s\tTest %d:\tShould find a pending transaction.", failed, testID)
			}
			decoded, err := database.DecodeSignedTx(raw)
			if err != nil || decoded.Nonce != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould store the wire encoding: %v", failed, testID, err)
			}

			mp.Prune([]string{hashes[1], "not-there"})
			if mp.Count() != 2 || mp.Has(hashes[1]) {
				t.Fatalf("\t%s\tTest %d:\tShould be able to prune a transaction.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to prune a transaction.", success, testID)

			mp.PushRaw("bogus", []byte{0xff})
			if !mp.Has("bogus") {
				t.Fatalf("\t%s\tTest %d:\tShould keep undecodable bytes.", failed, testID)
			}

			mp.Truncate()
			if mp.Count() != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould be able to truncate mempool.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to truncate mempool.", success, testID)
		}
	}
}

func TestSnapshot(t *testing.T) {
	t.Log("Given the need to propose from a stable view of the pool.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the pool changes after a snapshot.", testID)
		{
			mp := mempool.New()
			mp.PushRaw("a", []byte{1})
			mp.PushRaw("b", []byte{2})

			snap := mp.Pending()
			mp.PushRaw("c", []byte{3})
			mp.Prune([]string{"a"})

			if len(snap) != 2 || snap[0].Hash != "a" || snap[1].Hash != "b" {
				t.Fatalf("\t%s\tTest %d:\tShould not change a snapshot after later pushes and prunes.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not change a snapshot after later pushes and prunes.", success, testID)
		}
	}
}

func TestConcurrent(t *testing.T) {
	t.Log("Given the need to share the pool between goroutines.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen pushing, reading and pruning at once.", testID)
		{
			mp := mempool.New()

			var wg sync.WaitGroup
			for g := range 8 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := range 50 {
						hash := fmt.Sprintf("%d-%d", g, i)
						mp.PushRaw(hash, []byte{byte(i)})
						mp.Pending()
						if i%2 == 0 {
							mp.Prune([]string{hash})
						}
					}
				}()
			}
			wg.Wait()

			if mp.Count() != 8*25 {
				t.Fatalf("\t%s\tTest %d:\tShould end with every odd transaction, got %d", failed, testID, mp.Count())
			}
			t.Logf("\t%s\tTest %d:\tShould end with every odd transaction.", success, testID)
		}
	}
}

func TestStrategy(t *testing.T) {
	t.Log("Given the need to pick an ordering strategy by name.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen constructing a mempool with a strategy.", testID)
		{
			if _, err := mempool.NewWithStrategy("nonce"); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to build a nonce ordered mempool: %s", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to build a nonce ordered mempool.", success, testID)

			if _, err := mempool.NewWithStrategy("tip"); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould reject an unknown strategy.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould reject an unknown strategy.", success, testID)
		}
	}
}
