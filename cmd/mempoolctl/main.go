// Command mempoolctl drives pools and FIFO buffers through synthetic
// workloads and reports what they did.
package main

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/spf13/cobra"

	"github.com/pavanmanishd/mempool"
	"github.com/pavanmanishd/mempool/fifobuf"
)

var rootCmd = &cobra.Command{
	Use:           "mempoolctl",
	Short:         "Exercise mempool pools and FIFO buffers",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(configCmd(), poolCmd(), fifoCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective MEMPOOL_* configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := mempool.LoadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "policy:         %s\n", cfg.Policy)
			fmt.Fprintf(out, "initial_size:   %d\n", cfg.InitialSize)
			fmt.Fprintf(out, "increment_size: %d\n", cfg.IncrementSize)
			fmt.Fprintf(out, "alignment:      %d\n", cfg.Alignment)
			fmt.Fprintf(out, "budget:         %d\n", cfg.Budget)
			fmt.Fprintf(out, "cache_capacity: %d\n", cfg.CacheCapacity)
			fmt.Fprintf(out, "log_level:      %s\n", cfg.LogLevel)
			return nil
		},
	}
}

func poolCmd() *cobra.Command {
	var pools, allocs, maxSize, rounds int
	cmd := &cobra.Command{
		Use:   "pool",
		Short: "Allocate from several pools and dump the factory status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := mempool.LoadConfig()
			if err != nil {
				return err
			}
			if maxSize <= 0 {
				return fmt.Errorf("--max-size must be positive")
			}
			f, err := mempool.NewFactoryFromConfig(cfg)
			if err != nil {
				return err
			}

			for r := 0; r < rounds; r++ {
				live := make([]*mempool.Pool, 0, pools)
				for i := 0; i < pools; i++ {
					p, err := cfg.NewPool(f, fmt.Sprintf("worker-%d", i))
					if err != nil {
						return err
					}
					live = append(live, p)
					for j := 0; j < allocs; j++ {
						if _, err := p.Alloc(1 + rand.Intn(maxSize)); err != nil {
							return fmt.Errorf("pool %s: %w", p.Name(), err)
						}
					}
				}
				if r == rounds-1 {
					f.Dump(true)
				}
				for _, p := range live {
					p.Release()
				}
			}

			st := f.Stats()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "peak bytes:   %d\n", st.PeakBytes)
			fmt.Fprintf(out, "cached pools: %d (%d bytes)\n", st.CachedPools, st.CachedBytes)
			return f.Close()
		},
	}
	cmd.Flags().IntVar(&pools, "pools", 4, "number of pools per round")
	cmd.Flags().IntVar(&allocs, "allocs", 100, "allocations per pool")
	cmd.Flags().IntVar(&maxSize, "max-size", 256, "largest allocation in bytes")
	cmd.Flags().IntVar(&rounds, "rounds", 1, "create/release rounds")
	return cmd
}

func fifoCmd() *cobra.Command {
	var size, loops, minAlloc, maxAlloc int
	cmd := &cobra.Command{
		Use:   "fifo",
		Short: "Run alternating and batched workloads through a FIFO buffer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if minAlloc <= 0 || maxAlloc < minAlloc || 3*maxAlloc > size {
				return fmt.Errorf("need 0 < --min <= --max <= --size/3")
			}
			fb, err := fifobuf.New(make([]byte, size))
			if err != nil {
				return err
			}
			if err := runFIFO(fb, loops, minAlloc, maxAlloc); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "max size after %d loops: %d of %d\n", loops, fb.MaxSize(), fb.Cap())
			return nil
		},
	}
	cmd.Flags().IntVar(&size, "size", 1024, "region size in bytes")
	cmd.Flags().IntVar(&loops, "loops", 10000, "iterations per phase")
	cmd.Flags().IntVar(&minAlloc, "min", 4, "smallest allocation")
	cmd.Flags().IntVar(&maxAlloc, "max", 64, "largest allocation")
	return cmd
}

// runFIFO alternates alloc/free, then alloc/unalloc, then fills and drains
// the buffer in batches. It leaves the buffer empty.
func runFIFO(fb *fifobuf.Buffer, loops, minAlloc, maxAlloc int) error {
	randSize := func() int { return minAlloc + rand.Intn(maxAlloc-minAlloc+1) }

	var prev []byte
	for i := 0; i < loops; i++ {
		cur, err := fb.Alloc(randSize())
		if err != nil {
			return fmt.Errorf("alternating phase: %w", err)
		}
		if prev != nil {
			if err := fb.Free(prev); err != nil {
				return err
			}
		}
		prev = cur
	}
	if prev != nil {
		if err := fb.Free(prev); err != nil {
			return err
		}
	}

	for i := 0; i < loops; i++ {
		p, err := fb.Alloc(randSize())
		if err != nil {
			return fmt.Errorf("undo phase: %w", err)
		}
		if err := fb.Unalloc(p); err != nil {
			return err
		}
	}

	for i := 0; i < loops/100+1; i++ {
		var batch [][]byte
		for {
			p, err := fb.Alloc(randSize())
			if err != nil {
				break
			}
			batch = append(batch, p)
		}
		for _, p := range batch {
			if err := fb.Free(p); err != nil {
				return err
			}
		}
	}
	return nil
}
