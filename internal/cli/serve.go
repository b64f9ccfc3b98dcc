package cli

import (
	"github.com/spf13/cobra"

	"github.com/dvcrn/bank-api-client/internal/app"
	"github.com/dvcrn/bank-api-client/internal/server"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local gateway",
		Long: `Run an HTTP gateway that holds the session and serves /session, /v1/accounts
and /v1/customers to local tools. Admin endpoints need $ADMIN_API_KEY.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app.FromContext(cmd.Context())
			if addr == "" {
				addr = a.Config.ListenAddr
			}
			return server.NewServer(a).Start(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from $PORT)")
	return cmd
}
