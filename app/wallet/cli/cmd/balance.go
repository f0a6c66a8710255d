package cmd

import (
	"fmt"

	"github.com/open-protocol/ledger/foundation/blockchain/signature"
	"github.com/spf13/cobra"
)

type account struct {
	PublicKey string `json:"pubkey"`
	Balance   string `json:"balance"`
	Nonce     uint64 `json:"nonce"`
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print your balance.",
	RunE:  balanceRun,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}

func balanceRun(cmd *cobra.Command, args []string) error {
	privateKey, err := signature.LoadKey(getPrivateKeyPath())
	if err != nil {
		return err
	}

	pub := signature.PublicKeyHex(privateKey)
	fmt.Fprintln(cmd.OutOrStdout(), "For Account:", pub)

	acct, exists, err := queryAccount(pub)
	if err != nil {
		return err
	}

	if !exists {
		fmt.Fprintln(cmd.OutOrStdout(), "account not found")
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "balance: %s nonce: %d\n", acct.Balance, acct.Nonce)
	return nil
}

// queryAccount asks the node for an account. A missing account is a null
// result.
func queryAccount(pub string) (account, bool, error) {
	var acct *account
	if err := call("state_get_account", &acct, pub); err != nil {
		return account{}, false, err
	}

	if acct == nil {
		return account{}, false, nil
	}

	return *acct, true, nil
}
