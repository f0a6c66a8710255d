package genesis_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/open-protocol/ledger/foundation/blockchain/database"
	"github.com/open-protocol/ledger/foundation/blockchain/genesis"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	alice = "3C4B1E6A9F2D8B7E5A1C0D3F6E9B2A4C7D8E1F0A3B6C9D2E5F8A1B4C7D0E3F6A"
	store = "1111111111111111111111111111111111111111111111111111111111111111"
)

func TestLoad(t *testing.T) {
	t.Log("Given the need to start a chain from a genesis file.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the file funds an account and deploys a contract.", testID)
		{
			path := filepath.Join(t.TempDir(), "genesis.json")

			content := `{
	"date": "2024-01-01T00:00:00Z",
	"chain_id": 1,
	"balances": {"` + alice + `": "0f4240"},
	"contracts": {"` + store + `": "6b7673746f7265"}
}`
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to write the genesis file: %s", failed, testID, err)
			}

			gen, err := genesis.Load(path)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to load the genesis file: %s", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to load the genesis file.", success, testID)

			if gen.MaxTxPerBlock != genesis.DefaultMaxTxPerBlock {
				t.Fatalf("\t%s\tTest %d:\tShould default the block size, got %d", failed, testID, gen.MaxTxPerBlock)
			}

			if gen.TimeStamp() != 1704067200000 {
				t.Fatalf("\t%s\tTest %d:\tShould convert the date to milliseconds, got %d", failed, testID, gen.TimeStamp())
			}
			t.Logf("\t%s\tTest %d:\tShould fill in the block size and timestamp.", success, testID)

			accounts, err := gen.Accounts()
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to build the accounts: %s", failed, testID, err)
			}

			if len(accounts) != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould get back 2 accounts, got %d", failed, testID, len(accounts))
			}

			if accounts[0].PublicKey != store || accounts[0].Code != "6b7673746f7265" {
				t.Fatalf("\t%s\tTest %d:\tShould get the contract first: %+v", failed, testID, accounts[0])
			}

			if accounts[1].Nonce != 0 || database.AmountHex(accounts[1].Balance) != "0f4240" || accounts[1].HasCode() {
				t.Fatalf("\t%s\tTest %d:\tShould get the funded account: %+v", failed, testID, accounts[1])
			}
			t.Logf("\t%s\tTest %d:\tShould get back the genesis accounts.", success, testID)
		}

		testID = 1
		t.Logf("\tTest %d:\tWhen a balance names a bad key.", testID)
		{
			gen := genesis.Genesis{Balances: map[string]string{"abcd": "01"}}

			if _, err := gen.Accounts(); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould reject a balance for a bad key.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a balance for a bad key.", success, testID)
		}
	}
}
