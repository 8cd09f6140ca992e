package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vietdv277/cirrus/internal/api"
	"github.com/vietdv277/cirrus/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API exposing the cluster lifecycle.

Endpoints:
  POST   /create               create a cluster
  GET    /list                 list cluster names
  GET    /settings/:name       read params.json
  PUT    /settings/:name       update params and re-apply
  DELETE /delete/:name         destroy and remove a cluster
  POST   /deploy               run a pod playbook
  GET    /activity/:name       read the activity log
  GET    /status/:name         lifecycle state
  GET    /health, /metrics

Examples:
  crs serve
  crs serve --addr 127.0.0.1:9000`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", ":8000", "listen address")
	_ = v.BindPFlag(config.KeyAddr, serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}

	router := api.NewRouter(api.RouterOptions{
		Service:  a.Orchestrator,
		Logger:   a.Logger,
		Registry: a.Registry,
		Version:  Version,
	})

	a.Logger.WithField("clusters_dir", a.Settings.ClustersDir).Info("Serving cluster lifecycle API")
	return api.Start(ctx, api.DefaultConfig(a.Settings.Addr, a.Settings.ToolTimeout), router, a.Logger)
}
