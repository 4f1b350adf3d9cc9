package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/amalgamlab/amalgam/config"
	"github.com/amalgamlab/amalgam/loss"
	"github.com/amalgamlab/amalgam/schedule"
)

// runCmd drives a budgeted enumeration of one root generator.
var runCmd = &cobra.Command{
	Use:   "run <space.yaml>",
	Short: "Enumerate composite instances of a search space",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		logger := newLogger(cmd)

		sp, err := config.Load(args[0])
		if err != nil {
			logger.Error("load failed", "err", err)
			os.Exit(exitConfig)
		}

		seed := sp.Seed
		if cmd.Flags().Changed("seed") {
			seed, _ = cmd.Flags().GetInt64("seed")
		}
		sched, err := schedule.Build(sp.Arena,
			schedule.WithSeed(seed), schedule.WithLogger(logger))
		if err != nil {
			logger.Error("build failed", "err", err)
			os.Exit(exitConfig)
		}

		target, _ := cmd.Flags().GetString("generator")
		if target == "" {
			target = sched.Roots()[0]
		}
		budget, _ := cmd.Flags().GetInt("budget")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		start := time.Now()
		res, runErr := sched.Run(ctx, target, budget)
		if res != nil {
			logger.Info("run finished",
				"generator", target, "emitted", res.Emitted,
				"exhausted", res.Exhausted, "elapsed", time.Since(start))
		}
		if dir, _ := cmd.Flags().GetString("checkpoint"); dir != "" && res != nil {
			if path, werr := writeRecord(dir, sp, sched, res, seed, budget); werr != nil {
				logger.Error("checkpoint write failed", "err", werr)
			} else {
				logger.Info("checkpoint written", "path", path)
			}
		}
		switch {
		case errors.Is(runErr, context.DeadlineExceeded):
			logger.Error("search timed out", "timeout", timeout)
			os.Exit(exitTimeout)
		case runErr != nil:
			logger.Error("run failed", "err", runErr)
			os.Exit(1)
		case res.Emitted == 0:
			logger.Warn("space exhausted before any emission")
			os.Exit(exitExhausted)
		}

		if res.Scored {
			fmt.Printf("best %s score=%g key=%s\n", target, res.BestScore, res.Best.Key())
		} else {
			fmt.Printf("last %s key=%s\n", target, res.Best.Key())
		}
		os.Exit(exitOK)
	},
}

// runRecord is the JSON checkpoint a run leaves behind: enough to audit
// and reseed a follow-up search.
type runRecord struct {
	RunID     string                   `json:"run_id"`
	Space     string                   `json:"space"`
	Generator string                   `json:"generator"`
	Seed      int64                    `json:"seed"`
	Budget    int                      `json:"budget"`
	Emitted   int                      `json:"emitted"`
	Exhausted bool                     `json:"exhausted"`
	BestKey   string                   `json:"best_key,omitempty"`
	BestScore float64                  `json:"best_score,omitempty"`
	Histories map[string][]loss.Sample `json:"histories,omitempty"`
}

func writeRecord(dir string, sp *config.Space, sched *schedule.Scheduler, res *schedule.Result, seed int64, budget int) (string, error) {
	rec := runRecord{
		RunID:     uuid.NewString(),
		Space:     sp.Name,
		Generator: res.Generator,
		Seed:      seed,
		Budget:    budget,
		Emitted:   res.Emitted,
		Exhausted: res.Exhausted,
		Histories: make(map[string][]loss.Sample),
	}
	if res.Best != nil {
		rec.BestKey = res.Best.Key()
		if res.Scored {
			rec.BestScore = res.BestScore
		}
	}
	for _, name := range sp.Arena.Names() {
		if h, ok := sched.History(name); ok && h.Len() > 0 {
			rec.Histories[name] = h.Snapshot()
		}
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, rec.RunID+".json")

	return path, os.WriteFile(path, data, 0o644)
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntP("budget", "b", 100, "Maximum instances to draw from the target generator")
	runCmd.Flags().Int64("seed", 0, "Master seed (overrides the document's seed)")
	runCmd.Flags().Duration("timeout", 0, "Abort the search after this duration")
	runCmd.Flags().StringP("generator", "g", "", "Target generator (defaults to the root)")
	runCmd.Flags().String("checkpoint", "", "Directory to write the run record into")
}
