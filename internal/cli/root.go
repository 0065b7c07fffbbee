package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "imdbload",
	Short: "Bulk loader for the IMDb TSV dumps into PostgreSQL",
	Long: `imdbload streams the IMDb dataset dumps (title.basics, name.basics, title.akas,
title.crew, title.episode, title.principals, title.ratings) into a normalized
PostgreSQL schema.

Rows are staged in temporary tables and copied into their destination only
when every referenced parent already exists; duplicates are ignored, so a
rerun converges on the same contents.

Configuration precedence: flag > environment (.env is read) > imdbload.yaml > default.

Exit Codes:
  0  - Success
  1  - Failure (connection, input data or database error)
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersionInfo(os.Stdout)
		return nil
	}
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for all commands")
	rootCmd.PersistentFlags().String("config", "",
		"Path to imdbload.yaml (default: ./imdbload.yaml when present)")
}

// getVerboseFlag safely retrieves the verbose flag value
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to get verbose flag: %v\n", err)
		return false
	}
	return verbose
}

func getConfigFlag(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	return path
}
