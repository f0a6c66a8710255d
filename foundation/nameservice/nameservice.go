// Package nameservice reads a folder of key files and creates a name
// service lookup for the accounts they hold.
package nameservice

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/open-protocol/ledger/foundation/blockchain/signature"
)

// KeyExt is the extension of the key files the name service reads.
const KeyExt = ".key"

// NameService maintains a map of accounts for name lookup.
type NameService struct {
	accounts map[string]string
	names    map[string]string
}

// New constructs a name service with the accounts found under root. The
// name of an account is its key file name without the extension.
func New(root string) (*NameService, error) {
	ns := NameService{
		accounts: make(map[string]string),
		names:    make(map[string]string),
	}

	fn := func(fileName string, info fs.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if path.Ext(fileName) != KeyExt {
			return nil
		}

		privateKey, err := signature.LoadKey(fileName)
		if err != nil {
			return fmt.Errorf("%s: %w", fileName, err)
		}

		account := signature.PublicKeyHex(privateKey)
		name := strings.TrimSuffix(path.Base(fileName), KeyExt)

		ns.accounts[account] = name
		ns.names[name] = account

		return nil
	}

	if err := filepath.Walk(root, fn); err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return &ns, nil
}

// Lookup returns the name for the specified account.
func (ns *NameService) Lookup(account string) string {
	name, exists := ns.accounts[strings.ToLower(account)]
	if !exists {
		return account
	}
	return name
}

// Resolve returns the account for a name. Anything that isn't a known name
// is returned as is.
func (ns *NameService) Resolve(name string) string {
	account, exists := ns.names[name]
	if !exists {
		return name
	}
	return account
}

// Copy returns a copy of the map of names and accounts.
func (ns *NameService) Copy() map[string]string {
	cpy := make(map[string]string, len(ns.accounts))
	for account, name := range ns.accounts {
		cpy[account] = name
	}
	return cpy
}
