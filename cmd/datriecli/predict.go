package main

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/cedartrie/datrie/datrie"
)

var predictCommand = cli.Command{
	Name:      "predict",
	Usage:     "list completions of a prefix against a saved trie",
	ArgsUsage: "<trie-file> <size> <prefix>",
	Action:    runPredict,
}

func runPredict(ctx *cli.Context) error {
	initLogger(ctx)
	if ctx.NArg() != 3 {
		return errors.New("usage: datriecli predict <trie-file> <size> <prefix>")
	}
	path, sizeArg, prefix := ctx.Args().Get(0), ctx.Args().Get(1), ctx.Args().Get(2)

	size, err := parseSize(sizeArg)
	if err != nil {
		return err
	}

	t := datrie.New()
	if err := t.LoadFile(path, size); err != nil {
		return errors.Wrap(err, "load trie")
	}

	completions, err := t.CommonPrefixPredict([]byte(prefix))
	if err != nil {
		if err == datrie.ErrNoPath {
			fmt.Println("NO_PATH")
			return nil
		}
		return err
	}
	for _, c := range completions {
		suffix, err := t.Suffix(c.LeafSlot, c.SuffixLen)
		if err != nil {
			return errors.Wrap(err, "reconstruct suffix")
		}
		fmt.Printf("%s%s\t%d\n", prefix, suffix, c.Value)
	}
	return nil
}

func parseSize(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, errors.Errorf("invalid size %q", s)
	}
	return n, nil
}
