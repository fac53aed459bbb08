package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bookstore/config"
	"bookstore/internal/service"

	"github.com/spf13/cobra"
)

func registerIPNCmd() *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "register-ipn",
		Short: "Register the IPN callback URL with Pesapal and print the id to pin",
		Long: `Registers a GET notification URL with Pesapal and prints the assigned id.

Set PESAPAL_IPN_ID to the printed value so the server never registers at runtime.
Without --url the callback is APP_BASE_URL followed by ` + service.IPNPath + `.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if url == "" {
				if cfg.Server.BaseURL == "" {
					return fmt.Errorf("--url is required when APP_BASE_URL is not set")
				}
				url = cfg.Server.BaseURL + service.IPNPath
			}
			if !strings.HasPrefix(url, "https://") && !strings.HasPrefix(url, "http://") {
				return fmt.Errorf("invalid url %q", url)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			id, err := newPesapalClient(cfg).RegisterIPN(ctx, url)
			if err != nil {
				return fmt.Errorf("register ipn: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "PESAPAL_IPN_ID=%s\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "public IPN callback URL")
	return cmd
}
