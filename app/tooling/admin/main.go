// This program performs offline administrative tasks against the blocks
// held in storage by a ledger node. The node should be stopped first when
// bolt storage is used since the file is locked while it's open.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ardanlabs/blockcraft/app/tooling/admin/commands"
	"github.com/ardanlabs/blockcraft/foundation/blockchain/genesis"
	"github.com/ardanlabs/blockcraft/foundation/blockchain/storage"
	"github.com/ardanlabs/blockcraft/foundation/logger"
	"github.com/ardanlabs/conf/v3"
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
		Args  conf.Args
		State struct {
			Storage     string `conf:"default:disk,help:disk or bolt"`
			DBPath      string `conf:"default:zblock/blocks/"`
			GenesisPath string `conf:"default:zblock/genesis.json"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "blockcraft ledger admin: validate | bals [account] | trans [account]",
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

	gen, err := genesis.Load(cfg.State.GenesisPath)
	if err != nil {
		return fmt.Errorf("loading genesis: %w", err)
	}

	strg, err := storage.Open(cfg.State.Storage, cfg.State.DBPath)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer strg.Close()

	blocks, err := storage.ReadBlocks(strg)
	if err != nil {
		return fmt.Errorf("reading blocks: %w", err)
	}

	log.Infow("admin", "status", "blocks loaded", "blocks", len(blocks), "storage", cfg.State.Storage)

	return processCommands(cfg.Args, commands.Chain{Genesis: gen, Blocks: blocks})
}

// processCommands handles the execution of the commands specified on
// the command line.
func processCommands(args conf.Args, chain commands.Chain) error {
	switch args.Num(0) {
	case "validate":
		if err := commands.Validate(os.Stdout, chain); err != nil {
			return fmt.Errorf("validating chain: %w", err)
		}
	case "bals":
		if err := commands.Balances(os.Stdout, chain, args.Num(1)); err != nil {
			return fmt.Errorf("getting balances: %w", err)
		}
	case "trans":
		if err := commands.Transactions(os.Stdout, chain, args.Num(1)); err != nil {
			return fmt.Errorf("getting transactions: %w", err)
		}
	default:
		return fmt.Errorf("unknown command %q", args.Num(0))
	}

	return nil
}
