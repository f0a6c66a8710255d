package cmd

import (
	"fmt"

	"github.com/open-protocol/ledger/foundation/blockchain/signature"
	"github.com/spf13/cobra"
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send transaction",
	RunE:  sendRun,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	txFlags(sendCmd)
}

func sendRun(cmd *cobra.Command, args []string) error {

	// Without a nonce flag the next nonce is read from the node.
	n := nonce
	if n < 0 {
		privateKey, err := signature.LoadKey(getPrivateKeyPath())
		if err != nil {
			return err
		}

		acct, exists, err := queryAccount(signature.PublicKeyHex(privateKey))
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("sending account has no state")
		}
		n = int64(acct.Nonce)
	}

	enc, err := encodeTx(uint64(n))
	if err != nil {
		return err
	}

	var hash string
	if err := call("txpool_transact_raw", &hash, enc.Data); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}
