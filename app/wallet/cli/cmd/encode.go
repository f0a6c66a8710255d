package cmd

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/open-protocol/ledger/foundation/blockchain/database"
	"github.com/open-protocol/ledger/foundation/blockchain/signature"
	"github.com/open-protocol/ledger/foundation/nameservice"
	"github.com/spf13/cobra"
)

var (
	to    string
	value string
	nonce int64
	input string
)

type encoded struct {
	Hash string `json:"hash"`
	Data string `json:"data"`
}

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Sign a transaction and print its wire encoding",
	RunE: func(cmd *cobra.Command, args []string) error {
		if nonce < 0 {
			return fmt.Errorf("nonce is required")
		}

		enc, err := encodeTx(uint64(nonce))
		if err != nil {
			return err
		}

		data, err := json.MarshalIndent(enc, "", "  ")
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(encodeCmd)
	txFlags(encodeCmd)
}

func txFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&to, "to", "t", "", "Public key or wallet name of the receiver.")
	cmd.MarkFlagRequired("to")
	cmd.Flags().StringVarP(&value, "value", "v", "00", "Value to send in hex.")
	cmd.Flags().Int64VarP(&nonce, "nonce", "n", -1, "Nonce of the sending account.")
	cmd.Flags().StringVarP(&input, "input", "i", database.NoInput, "Encoded contract call in hex.")
}

// encodeTx builds and signs the transaction described by the flags.
func encodeTx(nonce uint64) (encoded, error) {
	privateKey, err := signature.LoadKey(getPrivateKeyPath())
	if err != nil {
		return encoded{}, err
	}

	receiver, err := resolve(to)
	if err != nil {
		return encoded{}, err
	}

	tx, err := database.NewTx(signature.PublicKeyHex(privateKey), receiver, value, nonce, input)
	if err != nil {
		return encoded{}, err
	}

	signedTx, err := tx.Sign(privateKey)
	if err != nil {
		return encoded{}, err
	}

	raw, err := signedTx.Encode()
	if err != nil {
		return encoded{}, err
	}

	hash, err := signedTx.HashHex()
	if err != nil {
		return encoded{}, err
	}

	return encoded{Hash: hash, Data: hex.EncodeToString(raw)}, nil
}

// resolve turns a wallet name from the account folder into a public key.
func resolve(account string) (string, error) {
	if database.IsPublicKey(account) {
		return account, nil
	}

	ns, err := nameservice.New(accountPath)
	if err != nil {
		return "", err
	}

	pub := ns.Resolve(account)
	if !database.IsPublicKey(pub) {
		return "", fmt.Errorf("unknown account %q", account)
	}

	return pub, nil
}
