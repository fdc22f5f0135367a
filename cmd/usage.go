package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sells-group/sportcar/internal/auth"
	"github.com/sells-group/sportcar/internal/quota"
)

var usageUser string

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show the free comparison usage of a user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		return printUsage(ctx, cmd.OutOrStdout(), st, usageUser, cfg.Quota.FreeLimit)
	},
}

func printUsage(ctx context.Context, w io.Writer, st quota.Store, email string, limit int) error {
	u, err := auth.ForEmail(email)
	if err != nil {
		return err
	}
	q, err := quota.New(ctx, st, u.Subject(), limit)
	if err != nil {
		return err
	}
	usage := q.Usage()
	fmt.Fprintf(w, "%s: %d/%d used, %d remaining\n", u.Email, usage.Count, usage.Limit, usage.Remaining)
	return nil
}

func init() {
	usageCmd.Flags().StringVar(&usageUser, "user", "", "user email")
	_ = usageCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(usageCmd)
}
