// Package main provides purrctl, the operator CLI for a Purriosity backend.
//
// Usage:
//
//	purrctl --backend sqlite seed
//	purrctl reindex
//	purrctl categories list
//	purrctl categories reorder 3 1 2
//	purrctl synonyms check ./synonyms.yaml
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var globalFlags struct {
	envFile    string
	backend    string
	sqlitePath string
	dataPath   string
	logLevel   string
}

var rootCmd = &cobra.Command{
	Use:           "purrctl",
	Short:         "Operate a Purriosity backend",
	Long:          "purrctl seeds catalog data, rebuilds the blog index and manages categories using the same configuration as the server.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&globalFlags.envFile, "env-file", ".env", "Path to .env file")
	pf.StringVar(&globalFlags.backend, "backend", "", "Backend driver: auto, rest or sqlite")
	pf.StringVar(&globalFlags.sqlitePath, "sqlite-path", "", "SQLite database path for the sqlite driver")
	pf.StringVar(&globalFlags.dataPath, "data-path", "", "Base path for local data")
	pf.StringVar(&globalFlags.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(reindexCmd)
	rootCmd.AddCommand(categoriesCmd)
	rootCmd.AddCommand(synonymsCmd)
}
