package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"sealvault-node/build"
	"sealvault-node/node"
	"sealvault-node/node/repo"

	logging "github.com/ipfs/go-log/v2"
	"github.com/urfave/cli/v2"
)

var log = logging.Logger("main")

const (
	FlagRepo        = "repo"
	FlagDefaultRepo = "~/.sealvault-node"
)

var FlagRepoPath = &cli.StringFlag{
	Name:    FlagRepo,
	Usage:   "repo directory for the sealvault node",
	EnvVars: []string{"SEALVAULT_NODE_PATH"},
	Value:   FlagDefaultRepo,
}

var FlagVeryVerbose = &cli.BoolFlag{
	Name:    "vv",
	Usage:   "enable debug logging",
	EnvVars: []string{"SEALVAULT_DEBUG"},
}

func before(cctx *cli.Context) error {
	for _, module := range []string{"main", "node", "record", "crypto", "auth", "oracle", "chain", "ledger", "secrets", "proofs", "audit", "store", "repo"} {
		_ = logging.SetLogLevel(module, "INFO")
	}
	if cctx.Bool("vv") {
		for _, module := range []string{"main", "node", "record", "crypto", "auth", "oracle", "chain", "ledger", "secrets", "proofs", "audit", "store", "repo"} {
			_ = logging.SetLogLevel(module, "DEBUG")
		}
	}
	return nil
}

func main() {
	app := &cli.App{
		Name:                 "sealvault-node",
		Usage:                "Command line for the sealvault record node",
		EnableBashCompletion: true,
		Version:              build.UserVersion(),
		Before:               before,
		Flags: []cli.Flag{
			FlagRepoPath,
			FlagVeryVerbose,
		},
		Commands: []*cli.Command{
			initCmd,
			runCmd,
		},
	}
	app.Setup()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

var initCmd = &cli.Command{
	Name:  "init",
	Usage: "initialize the node repo: config, keystore, datastores",
	Action: func(cctx *cli.Context) error {
		rp, err := repo.NewRepo(cctx.String(FlagRepo))
		if err != nil {
			return err
		}

		if err := rp.Init(); err != nil {
			if err == repo.ErrRepoExists {
				log.Warnf("repo at %s already initialized", rp.Path())
				return nil
			}
			return err
		}

		log.Infof("repo initialized at %s", rp.Path())
		return nil
	},
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "start the sealvault node",
	Action: func(cctx *cli.Context) error {
		rp, err := repo.NewRepo(cctx.String(FlagRepo))
		if err != nil {
			return err
		}

		exists, err := rp.Exists()
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("repo at %s is not initialized, run init first", rp.Path())
		}

		n, err := node.NewNode(cctx.Context, rp)
		if err != nil {
			return err
		}
		log.Info("sealvault node started")

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		<-sigs

		log.Info("shutting down")
		return n.Stop()
	},
}
