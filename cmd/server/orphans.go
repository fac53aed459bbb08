package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"bookstore/config"
	"bookstore/internal/repository"

	"github.com/spf13/cobra"
)

func orphansCmd() *cobra.Command {
	var (
		since time.Duration
		limit int
	)
	cmd := &cobra.Command{
		Use:   "orphans",
		Short: "List IPN and verify calls that matched no payment record",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			list, err := repository.NewNotificationRepository(db).ListOrphans(cmd.Context(), time.Now().Add(-since), limit)
			if err != nil {
				return fmt.Errorf("list orphans: %w", err)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RECEIVED\tTRIGGER\tTRACKING ID\tMERCHANT REF\tORDER ID\tSTATUS\tERROR")
			for _, n := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					n.CreatedAt.Format(time.RFC3339), n.Trigger, n.OrderTrackingID, n.MerchantReference, n.OrderID, n.MappedStatus, n.Error)
			}
			return w.Flush()
		},
	}
	cmd.Flags().DurationVar(&since, "since", 7*24*time.Hour, "how far back to look")
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum rows")
	return cmd
}
