// Command datriecli is a thin front-end over package datrie: build a trie
// from a word list, look up or predict against a saved trie, run a
// synthetic insertion benchmark, or serve one over HTTP for interactive
// inspection. It has no exported package surface of its own, matching
// swig/trie.h's reduced insert/find/value binding shape (SPEC_FULL.md
// §C.6): everything it needs is already public on package datrie.
package main

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	cli "gopkg.in/urfave/cli.v1"
)

var (
	version   string
	gitCommit string
)

var (
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "path to a YAML config file",
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Value: int(log.LvlInfo),
		Usage: "log verbosity (0-5)",
	}
)

func initLogger(ctx *cli.Context) {
	handler := log.NewGlogHandler(log.StreamHandler(os.Stderr, log.TerminalFormat(true)))
	handler.Verbosity(log.Lvl(ctx.GlobalInt(verbosityFlag.Name)))
	log.Root().SetHandler(handler)
}

func main() {
	app := cli.App{
		Name:      "datriecli",
		Usage:     "build, query, and serve double-array tries",
		Version:   fmt.Sprintf("%s-%s", version, gitCommit),
		Copyright: "2026",
		Flags:     []cli.Flag{configFlag, verbosityFlag},
		Commands: []cli.Command{
			buildCommand,
			lookupCommand,
			predictCommand,
			benchCommand,
			serveCommand,
			compactCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
