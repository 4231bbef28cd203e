package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/consultbot/internal/cli"
	"github.com/cloo-solutions/consultbot/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "consultbot",
		Short: "Hospital opening consultation assistant",
		Long: `consultbot asks the consultation assistant questions about opening a clinic.

Environment variables:
  CONSULT_API_KEY   API key, if the server requires one
  CONSULT_API_URL   API base URL (default: http://localhost:8080)`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-key", "", "API key (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.BindEnv(rootCmd.PersistentFlags(), "api-key", "CONSULT_API_KEY")
	cli.BindEnv(rootCmd.PersistentFlags(), "api-url", "CONSULT_API_URL")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.FAQCmd())
	rootCmd.AddCommand(client.SpecialtyCmd())
	rootCmd.AddCommand(client.ResetCmd())

	if handled, err := cli.HelpJSON(rootCmd, os.Args[1:], os.Stdout); handled {
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
