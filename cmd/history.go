package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/sportcar/internal/auth"
	"github.com/sells-group/sportcar/internal/store"
)

var (
	historyUser  string
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List the past comparisons of a user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		return printHistory(ctx, cmd.OutOrStdout(), st, historyUser, historyLimit)
	},
}

func printHistory(ctx context.Context, w io.Writer, st store.Store, email string, limit int) error {
	u, err := auth.ForEmail(email)
	if err != nil {
		return err
	}
	records, err := st.ListComparisons(ctx, u.Subject(), limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintf(w, "no comparisons for %s\n", u.Email)
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tWINNER\tSCORE\tVEHICLES")
	for _, rec := range records {
		names := make([]string, len(rec.Result.Vehicles))
		for i, v := range rec.Result.Vehicles {
			names[i] = v.Name
		}
		winner, _ := rec.Result.Winner()
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n",
			rec.CreatedAt.Local().Format("2006-01-02 15:04"), winner.Name, winner.AIScore, strings.Join(names, " / "))
	}
	tw.Flush()
	return nil
}

func init() {
	historyCmd.Flags().StringVar(&historyUser, "user", "", "user email")
	historyCmd.Flags().IntVar(&historyLimit, "limit", store.DefaultHistoryLimit, "maximum number of comparisons")
	_ = historyCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(historyCmd)
}
