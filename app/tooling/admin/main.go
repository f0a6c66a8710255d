// This program performs administrative tasks against a stopped node's data.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ardanlabs/conf/v3"
	"github.com/open-protocol/ledger/app/tooling/admin/commands"
	"github.com/open-protocol/ledger/foundation/blockchain/database"
	"github.com/open-protocol/ledger/foundation/blockchain/database/storage/disk"
	"github.com/open-protocol/ledger/foundation/blockchain/statedb"
	"github.com/open-protocol/ledger/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	cfg := struct {
		conf.Version
		Args        conf.Args
		DBPath      string `conf:"default:zblock/state"`
		ArchivePath string `conf:"default:zblock/blocks/"`
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "ledger admin",
		},
	}

	const prefix = "ADMIN"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	store, err := statedb.Open(cfg.DBPath, nil)
	if err != nil {
		return err
	}
	defer store.Close()

	serializer, err := disk.New(cfg.ArchivePath)
	if err != nil {
		return err
	}

	archive, err := database.New(serializer, func(v string, args ...any) {
		log.Infow(fmt.Sprintf(v, args...))
	})
	if err != nil {
		return err
	}
	defer archive.Close()

	return processCommands(cfg.Args, archive, store)
}

// processCommands handles the execution of the commands specified on
// the command line.
func processCommands(args conf.Args, archive *database.Database, store *statedb.Store) error {
	switch args.Num(0) {
	case "blocks":
		if err := commands.Blocks(args, archive, store); err != nil {
			return fmt.Errorf("listing blocks: %w", err)
		}
	case "account":
		if err := commands.Account(args, store); err != nil {
			return fmt.Errorf("reading account: %w", err)
		}
	default:
		fmt.Println("blocks [from]:        list the archived blocks")
		fmt.Println("account <pubkey>...:  print stored accounts")
	}

	return nil
}
