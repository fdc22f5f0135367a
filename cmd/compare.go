package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/sportcar/internal/auth"
	"github.com/sells-group/sportcar/internal/catalog"
	"github.com/sells-group/sportcar/internal/export"
	"github.com/sells-group/sportcar/internal/model"
	"github.com/sells-group/sportcar/internal/quota"
	"github.com/sells-group/sportcar/internal/session"
	"github.com/sells-group/sportcar/internal/store"
)

var (
	compareUser string
	compareXLSX string
)

var compareCmd = &cobra.Command{
	Use:   "compare <vehicle-id> <vehicle-id> [vehicle-id]",
	Short: "Score and rank two or three vehicles",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("cli"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		cat, err := initCatalog()
		if err != nil {
			return err
		}

		env := compareEnv{
			catalog: cat,
			store:   st,
			engine:  newEngine(),
			limit:   cfg.Quota.FreeLimit,
			delay:   cfg.Comparison.AnalysisDelay(),
		}
		return env.run(ctx, cmd.OutOrStdout(), args, compareUser, compareXLSX)
	},
}

type compareEnv struct {
	catalog catalog.Catalog
	store   store.Store
	engine  session.Comparer
	limit   int
	delay   time.Duration
}

// run drives one gated comparison through a session bound to email.
func (e compareEnv) run(ctx context.Context, w io.Writer, ids []string, email, xlsxPath string) error {
	var id session.Identity = auth.NewAnonymous()
	if email != "" {
		u, err := auth.ForEmail(email)
		if err != nil {
			return err
		}
		id = u
	}

	ctl, err := session.New(ctx, e.catalog, e.engine, e.store, id,
		session.WithAnalysisDelay(e.delay),
		session.WithQuotaLimit(e.limit),
		session.WithHistory(e.store),
	)
	if err != nil {
		return err
	}

	var failure string
	unsubscribe := ctl.Subscribe(func(ev session.Event) {
		if ev.Kind == session.EventError {
			failure = ev.Error
		}
	})
	defer unsubscribe()

	for _, vid := range ids {
		if _, err := ctl.SelectByID(vid); err != nil {
			return err
		}
	}

	if _, err := ctl.RequestCompare(ctx); err != nil {
		switch {
		case errors.Is(err, session.ErrAuthRequired):
			return eris.Wrap(err, "compare: --user is required")
		case errors.Is(err, quota.ErrQuotaExceeded):
			return eris.Wrapf(err, "compare: %s has used all free comparisons", email)
		}
		return err
	}
	if err := ctl.Wait(ctx); err != nil {
		return err
	}

	view := ctl.View()
	switch view.State {
	case model.StateShowingResults:
	case model.StateUpgradeRequired:
		return eris.Wrapf(quota.ErrQuotaExceeded, "compare: %s has used all free comparisons", email)
	default:
		return eris.Errorf("compare: analysis failed: %s", failure)
	}

	printResult(w, view.Result)
	fmt.Fprintf(w, "\nFree comparisons: %d/%d\n", view.Usage.Count, view.Usage.Limit)

	if xlsxPath != "" {
		if err := export.WriteXLSX(xlsxPath, view.Result); err != nil {
			return err
		}
		zap.L().Info("comparison exported", zap.String("path", xlsxPath))
	}
	return nil
}

func printResult(w io.Writer, res *model.Result) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tVEHICLE\tPRICE\tPOWER\tCATEGORY\tSCORE")
	for i, s := range res.Ranking {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\n", i+1, s.Name, s.PriceLabel(), s.PowerLabel(), s.Category, s.AIScore)
	}
	tw.Flush()

	if winner, ok := res.Winner(); ok {
		fmt.Fprintf(w, "\nWinner: %s (%d/100)\n", winner.Name, winner.AIScore)
	}
}

func init() {
	compareCmd.Flags().StringVar(&compareUser, "user", "", "email of the user the comparison is run for")
	compareCmd.Flags().StringVar(&compareXLSX, "xlsx", "", "write the ranking to an xlsx file")
	rootCmd.AddCommand(compareCmd)
}
