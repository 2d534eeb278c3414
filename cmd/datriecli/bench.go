package main

import (
	"fmt"
	"runtime"
	"time"

	fuzz "github.com/google/gofuzz"
	"golang.org/x/sync/errgroup"
	pb "gopkg.in/cheggaaa/pb.v1"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/cedartrie/datrie/datrie"
)

// benchCommand inserts a synthetic corpus of random byte strings, modeled
// directly on original_source/examples/create_find.cc's benchmark loop
// (100,000 strings, lengths in [20,400], alphabet 1..255) and reports the
// same three counters that C++ program prints to stderr (SPEC_FULL.md
// §C.5).
var benchCommand = cli.Command{
	Name:  "bench",
	Usage: "insert a synthetic random corpus and report timing",
	Flags: []cli.Flag{
		cli.IntFlag{Name: "n", Value: 100000, Usage: "number of strings to insert"},
		cli.IntFlag{Name: "min-len", Value: 20, Usage: "minimum string length"},
		cli.IntFlag{Name: "max-len", Value: 400, Usage: "maximum string length (inclusive)"},
		cli.IntFlag{Name: "seed", Value: 0, Usage: "gofuzz seed (0 picks one from the clock)"},
		cli.IntFlag{Name: "verify-sample", Value: 1000, Usage: "number of inserted keys to re-verify with concurrent lookups after build"},
	},
	Action: runBench,
}

func runBench(ctx *cli.Context) error {
	initLogger(ctx)
	n := ctx.Int("n")
	minLen, maxLen := ctx.Int("min-len"), ctx.Int("max-len")
	seed := int64(ctx.Int("seed"))
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	corpus := generateCorpusParallel(n, minLen, maxLen, seed)

	bar := pb.StartNew(n)
	t := datrie.New()
	start := time.Now()
	for i, key := range corpus {
		t.Update(key, int32(i))
		bar.Increment()
	}
	bar.Finish()
	elapsed := time.Since(start)

	fmt.Printf("keys: %d\n", t.NumKeys())
	fmt.Printf("size: %d\n", t.Size())
	fmt.Printf("nonzero_size: %d\n", t.NonzeroSize())
	fmt.Printf("elapsed: %s (%.0f inserts/sec)\n", elapsed, float64(n)/elapsed.Seconds())

	if sample := ctx.Int("verify-sample"); sample > 0 {
		mismatches, err := verifyCorpusConcurrently(t, corpus, sample)
		if err != nil {
			return err
		}
		fmt.Printf("verified: %d samples, %d mismatches\n", sample, mismatches)
	}
	return nil
}

// generateCorpusParallel produces n random keys over the 1..255 alphabet,
// sharding generation across GOMAXPROCS workers via errgroup. Each worker
// owns a disjoint index range and its own gofuzz.Fuzzer (gofuzz's Fuzzer
// is not safe for concurrent use), so results land in out[i] independent
// of completion order.
func generateCorpusParallel(n, minLen, maxLen int, seed int64) [][]byte {
	out := make([][]byte, n)
	if n == 0 {
		return out
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	shard := (n + workers - 1) / workers

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		lo := w * shard
		hi := lo + shard
		if hi > n {
			hi = n
		}
		if lo >= hi {
			continue
		}
		workerSeed := seed + int64(w)*1_000_003
		g.Go(func() error {
			fz := fuzz.NewWithSeed(workerSeed).NilChance(0).NumElements(minLen, maxLen)
			for i := lo; i < hi; i++ {
				var raw []byte
				fz.Fuzz(&raw)
				out[i] = randomizeAlphabet(raw, workerSeed+int64(i))
			}
			return nil
		})
	}
	g.Wait() // worker bodies above never return a non-nil error
	return out
}

// verifyCorpusConcurrently re-looks-up up to sample keys from corpus
// against t using concurrent ExactMatch calls. This is safe because no
// mutation is in flight once the build loop above has returned (§5
// "External readers may safely issue lookup operations concurrently only
// when no mutation is in progress").
func verifyCorpusConcurrently(t *datrie.Trie, corpus [][]byte, sample int) (mismatches int, err error) {
	if sample > len(corpus) {
		sample = len(corpus)
	}
	step := len(corpus) / sample
	if step < 1 {
		step = 1
	}

	var indices []int
	for i := 0; i < len(corpus) && len(indices) < sample; i += step {
		indices = append(indices, i)
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > len(indices) {
		workers = len(indices)
	}
	if workers < 1 {
		return 0, nil
	}
	shard := (len(indices) + workers - 1) / workers

	results := make([]bool, len(indices))
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		lo := w * shard
		hi := lo + shard
		if hi > len(indices) {
			hi = len(indices)
		}
		if lo >= hi {
			continue
		}
		g.Go(func() error {
			for k := lo; k < hi; k++ {
				idx := indices[k]
				got, lookupErr := t.ExactMatch(corpus[idx])
				if lookupErr != nil || got != int32(idx) {
					results[k] = true
				}
			}
			return nil
		})
	}
	if werr := g.Wait(); werr != nil {
		return 0, werr
	}
	for _, mismatch := range results {
		if mismatch {
			mismatches++
		}
	}
	return mismatches, nil
}

// randomizeAlphabet remaps each byte of raw onto 1..255, matching
// create_find.cc's uniform_int_distribution<int>(1, 255) (gofuzz's []byte
// filler spans the full 0..255 range and must never emit 0, the reserved
// terminal label).
func randomizeAlphabet(raw []byte, seed int64) []byte {
	out := make([]byte, len(raw))
	state := uint32(seed)
	for i, b := range raw {
		state = state*1664525 + 1013904223 + uint32(b)
		out[i] = byte(1 + state%255)
	}
	return out
}
