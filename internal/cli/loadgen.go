package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vvka-141/imdbload/internal/synth"
)

var loadgenCmd = &cobra.Command{
	Use:   "loadgen",
	Short: "Generate synthetic write load against a running façade",
	Long: `Loadgen simulates users posting synthetic people to the serve façade: three
single inserts for every batch insert, with a 1-2s pause between requests.
Each record gets a sequential nconst (nm + 7 digits) starting at a random
offset, a random name, a birth year in 1850..2010 and, for a quarter of the
records, a death year.

Example:
  imdbload loadgen --host http://localhost:8000 --users 20 --duration 5m`,
	Args: cobra.NoArgs,
	RunE: runLoadgen,
}

var loadgenFlags = synth.DefaultConfig()

func init() {
	rootCmd.AddCommand(loadgenCmd)
	f := loadgenCmd.Flags()
	f.StringVar(&loadgenFlags.Host, "host", loadgenFlags.Host, "Base URL of the façade")
	f.IntVar(&loadgenFlags.Users, "users", loadgenFlags.Users, "Concurrent simulated users")
	f.DurationVar(&loadgenFlags.Duration, "duration", loadgenFlags.Duration, "How long to run")
	f.IntVar(&loadgenFlags.BatchSize, "batch-size", loadgenFlags.BatchSize, "Records per batch request")
	f.DurationVar(&loadgenFlags.ThinkMin, "think-min", loadgenFlags.ThinkMin, "Minimum pause between requests")
	f.DurationVar(&loadgenFlags.ThinkMax, "think-max", loadgenFlags.ThinkMax, "Maximum pause between requests")
	f.Uint64Var(&loadgenFlags.Seed, "seed", loadgenFlags.Seed, "Random seed (default: time based)")
}

func runLoadgen(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext(0, "load generation")
	defer cancel()

	stats, err := synth.NewRunner(loadgenFlags, nil, newConsoleLogger(cmd)).Run(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, stats)
	return nil
}
