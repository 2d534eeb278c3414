package main

import (
	"bufio"
	"bytes"
	"os"
	"runtime"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/cedartrie/datrie/datrie"
)

// buildCommand ingests a newline-delimited word list and writes a trie
// mapping each non-blank line to its 0-based position among the non-blank
// lines, mirroring
// original_source/benchmark/enron.cc's corpus-ingestion loop (SPEC_FULL.md
// §C.5).
var buildCommand = cli.Command{
	Name:      "build",
	Usage:     "build a trie from a newline-delimited word list",
	ArgsUsage: "<wordlist> <out>",
	Flags: []cli.Flag{
		cli.IntFlag{Name: "fixed-growth", Usage: "cap growth at this many cells instead of doubling"},
	},
	Action: runBuild,
}

func runBuild(ctx *cli.Context) error {
	initLogger(ctx)
	if ctx.NArg() != 2 {
		return errors.New("usage: datriecli build <wordlist> <out>")
	}
	wordlist, out := ctx.Args().Get(0), ctx.Args().Get(1)

	f, err := os.Open(wordlist)
	if err != nil {
		return errors.Wrap(err, "open word list")
	}
	defer f.Close()

	raw, err := readLines(f)
	if err != nil {
		return errors.Wrap(err, "scan word list")
	}

	keys, err := parseLinesParallel(raw)
	if err != nil {
		return errors.Wrap(err, "parse word list")
	}

	var opts []datrie.Option
	if n := ctx.Int("fixed-growth"); n > 0 {
		opts = append(opts, datrie.WithFixedGrowth(n))
	}
	t := datrie.New(opts...)

	n := 0
	for _, key := range keys {
		if key == nil {
			continue // blank or rejected line
		}
		t.Update(key, int32(n))
		n++
		if n%10000 == 0 {
			log.Info("ingested", "lines", n)
		}
	}

	if err := t.SaveFile(out); err != nil {
		return errors.Wrap(err, "save trie")
	}
	log.Info("build complete", "keys", t.NumKeys(), "size", t.Size(), "out", out)
	return nil
}

// readLines reads every line of f into memory. The underlying file must be
// drained sequentially; parallelism is applied afterward, in
// parseLinesParallel, to the CPU-bound parsing step instead.
func readLines(f *os.File) ([][]byte, error) {
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	var lines [][]byte
	for scanner.Scan() {
		line := make([]byte, len(scanner.Bytes()))
		copy(line, scanner.Bytes())
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}

// parseLinesParallel trims and validates every raw line, sharding the work
// across GOMAXPROCS workers via golang.org/x/sync/errgroup ahead of the
// necessarily single-threaded insertion loop (datrie.Trie is single-writer,
// §5). Each worker owns a disjoint index range of keys, so no
// synchronization is needed beyond the final g.Wait.
func parseLinesParallel(raw [][]byte) ([][]byte, error) {
	keys := make([][]byte, len(raw))
	if len(raw) == 0 {
		return keys, nil
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > len(raw) {
		workers = len(raw)
	}
	shard := (len(raw) + workers - 1) / workers

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		lo := w * shard
		hi := lo + shard
		if hi > len(raw) {
			hi = len(raw)
		}
		if lo >= hi {
			continue
		}
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				key, err := parseLine(raw[i])
				if err != nil {
					return errors.Wrapf(err, "line %d", i+1)
				}
				keys[i] = key
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return keys, nil
}

// parseLine trims surrounding ASCII whitespace and rejects lines that
// would violate the key contract (empty, or containing the reserved NUL
// byte). A nil, nil return means "skip this line" (blank after trimming).
func parseLine(line []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if bytes.IndexByte(trimmed, 0) >= 0 {
		return nil, errors.New("line contains reserved NUL byte")
	}
	out := make([]byte, len(trimmed))
	copy(out, trimmed)
	return out, nil
}
