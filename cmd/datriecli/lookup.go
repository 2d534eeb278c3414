package main

import (
	"fmt"

	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/cedartrie/datrie/datrie"
)

var lookupCommand = cli.Command{
	Name:      "lookup",
	Usage:     "exact-match a key against a saved trie",
	ArgsUsage: "<trie-file> <size> <key>",
	Action:    runLookup,
}

func runLookup(ctx *cli.Context) error {
	initLogger(ctx)
	if ctx.NArg() != 3 {
		return errors.New("usage: datriecli lookup <trie-file> <size> <key>")
	}
	path, sizeArg, key := ctx.Args().Get(0), ctx.Args().Get(1), ctx.Args().Get(2)

	size, err := parseSize(sizeArg)
	if err != nil {
		return err
	}

	t := datrie.New()
	if err := t.LoadFile(path, size); err != nil {
		return errors.Wrap(err, "load trie")
	}

	value, err := t.ExactMatch([]byte(key))
	switch {
	case err == datrie.ErrNoPath:
		fmt.Println("NO_PATH")
	case err == datrie.ErrNoValue:
		fmt.Println("NO_VALUE")
	case err != nil:
		return err
	default:
		fmt.Println(value)
	}
	return nil
}
