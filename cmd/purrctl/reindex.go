package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the blog full-text index from the backend",
	Long:  "Rebuilds the blog search index. Stop the server first; the index is locked while it runs.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(true)
		if err != nil {
			return err
		}
		defer a.close()

		n, err := a.blog.Reindex(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "indexed %d posts into %s\n", n, a.cfg.Search.IndexPath)
		return nil
	},
}
