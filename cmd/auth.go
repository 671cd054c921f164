package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sboros/pimsync/internal/config"
	"github.com/sboros/pimsync/internal/exchange"
	"github.com/sboros/pimsync/internal/google"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Obtain or refresh OAuth tokens for a provider",
		Long: `Run the interactive OAuth flow for a provider and store the resulting
refresh token in the provider's config file. The sync and download tools
refresh access tokens transparently afterwards.`,
	}
	cmd.AddCommand(newAuthGoogleCmd())
	cmd.AddCommand(newAuthExchangeCmd())
	return cmd
}

func newAuthGoogleCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "google",
		Short: "Authorize the Google account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !config.Exists(configFile) {
				return fmt.Errorf("no such Google config file: %s", configFile)
			}
			if err := google.Authorize(cmd.Context(), configFile, os.Stdin, os.Stdout); err != nil {
				return err
			}
			fmt.Println("\nCredentials file updated successfully")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configFile, "google", "g", "google_oauth.json", "Google config file")
	return cmd
}

func newAuthExchangeCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "exchange",
		Short: "Authorize the Office 365 account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !config.Exists(configFile) {
				return fmt.Errorf("no such Exchange config file: %s", configFile)
			}
			if err := exchange.Authorize(cmd.Context(), configFile, os.Stdin, os.Stdout); err != nil {
				return err
			}
			fmt.Println("\nCredentials file updated successfully")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configFile, "exchange", "e", "o365_oauth.json", "Exchange (Office 365) config file")
	return cmd
}
