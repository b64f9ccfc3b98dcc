// Package cli implements the bankctl command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dvcrn/bank-api-client/internal/apierr"
	"github.com/dvcrn/bank-api-client/internal/app"
	"github.com/dvcrn/bank-api-client/internal/config"
)

// Exit codes.
const (
	exitOK = iota
	exitError
	exitAuth
	exitNotFound
)

type globalFlags struct {
	configFile string
	baseURL    string
	store      string
}

// NewRootCmd creates the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	var flags globalFlags

	cmd := &cobra.Command{
		Use:           "bankctl",
		Short:         "Command-line client for the bank API",
		Long:          "bankctl keeps one authenticated session with the bank API and reads accounts and customers through it.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" {
				return nil
			}

			cfg, err := config.Load(flags.configFile)
			if err != nil {
				return err
			}
			if flags.baseURL != "" {
				cfg.BaseURL = flags.baseURL
				cfg.Sources["base_url"] = "flag"
			}
			if flags.store != "" {
				cfg.Store = flags.store
				cfg.Sources["store"] = "flag"
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			a, err := app.New(cfg)
			if err != nil {
				return err
			}
			cmd.SetContext(app.WithContext(cmd.Context(), a))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&flags.configFile, "config", "", "Path to a YAML config file (default $BANK_CONFIG_FILE)")
	cmd.PersistentFlags().StringVar(&flags.baseURL, "base-url", "", "Bank API base URL")
	cmd.PersistentFlags().StringVar(&flags.store, "store", "", "Credential store: memory, file, keyring or redis")

	cmd.AddCommand(
		newLoginCmd(),
		newLogoutCmd(),
		newStatusCmd(),
		newRefreshCmd(),
		newAccountsCmd(),
		newCustomersCmd(),
		newServeCmd(),
	)
	return cmd
}

// Execute runs the CLI and exits with a code derived from the failure kind.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()
	os.Exit(report(os.Stderr, err))
}

func report(w io.Writer, err error) int {
	if err == nil {
		return exitOK
	}
	switch apierr.KindOf(err) {
	case apierr.AuthExpired:
		fmt.Fprintln(w, "Error: session expired, run 'bankctl login' again")
		return exitAuth
	case apierr.Unauthorized:
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitAuth
	case apierr.NotFound:
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitNotFound
	default:
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitError
	}
}
