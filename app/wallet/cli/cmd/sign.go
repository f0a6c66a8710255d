package cmd

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/open-protocol/ledger/foundation/blockchain/signature"
	"github.com/spf13/cobra"
)

var message string

var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "Sign a hex encoded message",
	RunE:  signRun,
}

func init() {
	rootCmd.AddCommand(signCmd)
	signCmd.Flags().StringVarP(&message, "message", "m", "", "Hex encoded message.")
	signCmd.MarkFlagRequired("message")
}

func signRun(cmd *cobra.Command, args []string) error {
	privateKey, err := signature.LoadKey(getPrivateKeyPath())
	if err != nil {
		return err
	}

	msg, err := hex.DecodeString(strings.TrimPrefix(message, "0x"))
	if err != nil {
		return fmt.Errorf("message: %w", err)
	}

	sig, err := signature.Sign(privateKey, msg)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(sig))
	return nil
}
