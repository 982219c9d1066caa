package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/purriosity/purriosity-server/internal/catalog"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Inspect and order catalog categories",
}

var categoriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List categories in display order",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		list := a.categories.List(cmd.Context())
		if list.UsingFallback {
			fmt.Fprintln(cmd.ErrOrStderr(), "warning: backend unreachable, showing built-in categories")
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ORDER\tID\tEMOJI\tNAME")
		for _, c := range list.Categories {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", c.DisplayOrder, c.ID, c.Emoji, c.Name)
		}
		return w.Flush()
	},
}

var categoriesReorderCmd = &cobra.Command{
	Use:   "reorder ID...",
	Short: "Set display order to the given id sequence",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		written, err := a.categories.Reorder(cmd.Context(), args)
		if err != nil {
			return fmt.Errorf("reorder stopped after %d of %d updates: %w", written, len(args), err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "reordered %d categories\n", written)
		return nil
	},
}

var synonymsCmd = &cobra.Command{
	Use:   "synonyms",
	Short: "Work with tag synonym files",
}

var synonymsCheckCmd = &cobra.Command{
	Use:   "check FILE",
	Short: "Validate a tag synonym file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		syn, err := catalog.LoadSynonyms(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ok, %d aliases\n", args[0], syn.Len())
		return nil
	},
}

func init() {
	categoriesCmd.AddCommand(categoriesListCmd)
	categoriesCmd.AddCommand(categoriesReorderCmd)
	synonymsCmd.AddCommand(synonymsCheckCmd)
}
