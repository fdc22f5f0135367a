package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/sportcar/internal/auth"
	"github.com/sells-group/sportcar/internal/catalog"
	"github.com/sells-group/sportcar/internal/quota"
	"github.com/sells-group/sportcar/internal/session"
)

var popularCmd = &cobra.Command{
	Use:   "popular",
	Short: "Curated comparisons",
}

var popularListCmd = &cobra.Command{
	Use:   "list",
	Short: "List curated comparisons",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := initCatalog()
		if err != nil {
			return err
		}
		printPopular(cmd.OutOrStdout(), cat.Popular())
		return nil
	},
}

var popularShowCmd = &cobra.Command{
	Use:   "show <popular-id>",
	Short: "Show the result of a curated comparison",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := initCatalog()
		if err != nil {
			return err
		}
		return showPopular(cmd.Context(), cmd.OutOrStdout(), cat, newEngine(), args[0])
	},
}

// showPopular runs the curated shortcut through an anonymous session, so no
// quota is read or spent.
func showPopular(ctx context.Context, w io.Writer, cat catalog.Catalog, engine session.Comparer, id string) error {
	p, err := cat.PopularByID(id)
	if err != nil {
		return err
	}
	ctl, err := session.New(ctx, cat, engine, quota.NewMemoryStore(), auth.NewAnonymous())
	if err != nil {
		return err
	}
	res, err := ctl.ShowPopular(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s\n%s\n\n", p.Title, p.Description)
	printResult(w, res)
	return nil
}

func printPopular(w io.Writer, list []catalog.Popular) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tPOPULARITY\tVIEWS")
	for _, p := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d%%\t%s\n", p.ID, p.Title, p.Category, p.Popularity, p.Views)
	}
	tw.Flush()
}

func init() {
	popularCmd.AddCommand(popularListCmd, popularShowCmd)
	rootCmd.AddCommand(popularCmd)
}
