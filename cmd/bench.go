// cmd/bench.go

package main

import (
	"AveCache/pkg/transfer"
	"AveCache/pkg/utils"
	"fmt"
	"math/rand"
	"time"

	"github.com/urfave/cli/v2"
)

func benchFlags() *cli.Command {
	return &cli.Command{
		Name:   "bench",
		Usage:  "insert random ranges and measure merge throughput",
		Action: bench,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "count",
				Value: 100000,
				Usage: "number of ranges to insert",
			},
			&cli.Uint64Flag{
				Name:  "span",
				Value: 1 << 30,
				Usage: "size of the simulated resource in bytes",
			},
			&cli.Uint64Flag{
				Name:  "max-size",
				Value: 256 << 10,
				Usage: "maximum size of one range",
			},
			&cli.Int64Flag{
				Name:  "seed",
				Usage: "seed for the random ranges (0 means time-based)",
			},
		},
	}
}

func bench(ctx *cli.Context) error {
	setLoggerLevel(ctx)
	count := ctx.Int("count")
	if count <= 0 {
		return fmt.Errorf("count must be positive")
	}
	span := ctx.Uint64("span")
	maxSize := ctx.Uint64("max-size")
	if maxSize == 0 || maxSize > span {
		return fmt.Errorf("max-size must be in [1, span]")
	}
	seed := ctx.Int64("seed")
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rnd := rand.New(rand.NewSource(seed))
	logger.Debugf("seed %d", seed)

	sd := transfer.NewSparseData()
	progress, bar := utils.NewDynProgressBar("inserting ranges: ", false)
	bar.SetTotal(int64(count), false)
	ru0 := utils.GetRusage()
	start := utils.Clock()
	for i := 0; i < count; i++ {
		size := 1 + rnd.Uint64()%maxSize
		off := rnd.Uint64() % (span - size + 1)
		d := transfer.NewDenseData(transfer.NewRange(off, off+size))
		fillPattern(d.WritableData(), off)
		sd.AddValidData(d)
		bar.Increment()
	}
	elapsed := utils.Clock() - start
	ru1 := utils.GetRusage()
	bar.SetTotal(int64(count), true)
	progress.Wait()

	fmt.Printf("inserted:    %d ranges in %s (%d ns/op)\n",
		count, elapsed, elapsed.Nanoseconds()/int64(count))
	fmt.Printf("cpu:         user %.2fs sys %.2fs\n",
		ru1.GetUtime()-ru0.GetUtime(), ru1.GetStime()-ru0.GetStime())
	fmt.Printf("entries:     %d\n", sd.Count())
	fmt.Printf("space used:  %d\n", sd.SpaceUsed())
	fmt.Printf("memory held: %d\n", utils.AllocMemory())
	sd.Clear()
	return nil
}
