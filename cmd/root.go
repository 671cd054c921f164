package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the pimsync toolset
var rootCmd = &cobra.Command{
	Use:   "pimsync",
	Short: "Personal information manager synchronization utilities",
	Long: `pimsync is a collection of PIM synchronization utilities:

  - One-way calendar sync from Office 365 (Exchange) to Google Calendar
  - OAuth token issuance and refresh helpers for both providers
  - A playlist-triggered media downloader

Each tool is a short-lived run-to-completion process; there is no daemon.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	// Load .env if present; flags and config files take precedence.
	_ = godotenv.Load()

	rootCmd.SetVersionTemplate(`{{printf "pimsync version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newDownloadCmd())
	rootCmd.AddCommand(newVersionCmd())
}
