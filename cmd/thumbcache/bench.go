package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"runtime/pprof"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/felixge/fgprof"
	flag "github.com/spf13/pflag"

	"github.com/meigma/thumbcache"
)

type benchConfig struct {
	ops        int
	books      int
	payload    string
	insertPct  int
	seed       uint64
	cpuProfile string
	fgProfile  string
}

type benchStats struct {
	ops     int
	hits    int
	misses  int
	bytes   int64
	elapsed time.Duration
}

func benchCmd() *command {
	var cfg benchConfig
	fs := flag.NewFlagSet("bench", flag.ContinueOnError)
	fs.IntVar(&cfg.ops, "ops", 10000, "number of operations")
	fs.IntVar(&cfg.books, "books", 1000, "number of distinct book ids")
	fs.StringVar(&cfg.payload, "payload", "16KB", "thumbnail size")
	fs.IntVar(&cfg.insertPct, "insert-pct", 20, "percentage of operations that insert")
	fs.Uint64Var(&cfg.seed, "seed", 1, "random seed")
	fs.StringVar(&cfg.cpuProfile, "cpuprofile", "", "write CPU profile to file")
	fs.StringVar(&cfg.fgProfile, "fgprofile", "", "write fgprof (wall clock) profile to file")
	return &command{
		Flags: fs,
		Usage: "bench [flags]",
		Short: "Run a random insert/lookup workload against the cache",
		Exec: func(c *thumbcache.Cache, stdout io.Writer, args []string) error {
			if len(args) != 0 {
				return errUsage
			}
			return runBench(c, stdout, cfg)
		},
	}
}

//nolint:gocritic // hugeParam acceptable for config struct in CLI tool
func runBench(c *thumbcache.Cache, stdout io.Writer, cfg benchConfig) (err error) {
	if cfg.ops <= 0 || cfg.books <= 0 {
		return errors.New("--ops and --books must be positive")
	}
	var size datasize.ByteSize
	if err := size.UnmarshalText([]byte(cfg.payload)); err != nil {
		return fmt.Errorf("--payload: %w", err)
	}

	if cfg.fgProfile != "" {
		f, ferr := os.Create(cfg.fgProfile)
		if ferr != nil {
			return ferr
		}
		stop := fgprof.Start(f, fgprof.FormatPprof)
		defer func() {
			if serr := stop(); serr != nil && err == nil {
				err = fmt.Errorf("fgprof: %w", serr)
			}
			_ = f.Close()
		}()
	}
	if cfg.cpuProfile != "" {
		f, ferr := os.Create(cfg.cpuProfile)
		if ferr != nil {
			return ferr
		}
		if ferr = pprof.StartCPUProfile(f); ferr != nil {
			_ = f.Close()
			return ferr
		}
		defer func() {
			pprof.StopCPUProfile()
			_ = f.Close()
		}()
	}

	stats, err := benchLoop(c, cfg, int(size.Bytes())) //nolint:gosec // payload sizes fit in int
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "ops=%d hits=%d misses=%d bytes=%d elapsed=%s throughput=%.2f MB/s\n",
		stats.ops,
		stats.hits,
		stats.misses,
		stats.bytes,
		stats.elapsed,
		float64(stats.bytes)/(1024*1024)/stats.elapsed.Seconds(),
	)
	return nil
}

//nolint:gocritic // hugeParam acceptable for config struct in CLI tool
func benchLoop(c *thumbcache.Cache, cfg benchConfig, payloadSize int) (benchStats, error) {
	rng := rand.New(rand.NewPCG(cfg.seed, cfg.seed)) //nolint:gosec // reproducible workload
	payload := bytes.Repeat([]byte{0xab}, payloadSize)

	var stats benchStats
	start := time.Now()
	for i := range cfg.ops {
		id := int64(rng.IntN(cfg.books))
		if rng.IntN(100) < cfg.insertPct {
			if err := c.Insert(id, float64(i), payload); err != nil {
				return stats, err
			}
			stats.bytes += int64(payloadSize)
		} else {
			thumb, ok, err := c.Lookup(id)
			if err != nil {
				return stats, err
			}
			if ok {
				stats.hits++
				stats.bytes += int64(len(thumb.Data))
			} else {
				stats.misses++
			}
		}
		stats.ops++
	}
	stats.elapsed = time.Since(start)
	return stats, nil
}
