package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vietdv277/cirrus/internal/app"
	"github.com/vietdv277/cirrus/internal/config"
	"github.com/vietdv277/cirrus/internal/logging"
)

var (
	// Global flags
	cfgFile     string
	contextName string

	// v holds settings from flags, CIRRUS_* environment and the config file
	v = config.New()
)

var rootCmd = &cobra.Command{
	Use:   "crs",
	Short: "Cirrus - cluster lifecycle control plane",
	Long: `Cirrus creates, updates, deploys and deletes clusters from an
infrastructure template. Every cluster lives in its own directory holding
a copy of the template, its parameters and an activity log.

Cluster Commands:
  crs cluster create acme --region us-east1   # Copy the template and apply it
  crs cluster list                            # List clusters and their state
  crs cluster update acme --region eu-west3   # Change parameters and re-apply
  crs cluster deploy acme --pod front         # Run the pod playbook
  crs cluster delete acme                     # Destroy and remove

Server:
  crs serve --addr :8000                      # Expose the HTTP API

Context-Aware Commands:
  crs use aws:prod                            # Switch the active cloud context
  crs status                                  # Show current context and auth status
  crs contexts                                # List all configured contexts`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default $HOME/.cirrus.yaml)")
	flags.StringVar(&contextName, "context", "", "cloud context to use instead of the current one")
	flags.String("base-dir", ".", "directory holding the template, clusters and playbooks")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")

	// Bind flags to viper
	_ = v.BindPFlag(config.KeyBaseDir, flags.Lookup("base-dir"))
	_ = v.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))
	_ = v.BindPFlag(config.KeyLogFormat, flags.Lookup("log-format"))
}

func initConfig() {
	if err := config.ReadConfigFile(v, cfgFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func contextStore() *config.ContextStore {
	return config.NewContextStore(config.DefaultContextsPath())
}

// activeContext returns the --context override or the current context
func activeContext() (*config.Context, string, error) {
	store := contextStore()
	if contextName != "" {
		c, err := store.Get(contextName)
		return c, contextName, err
	}
	return store.Current()
}

// newApp loads the settings and assembles the control plane
func newApp(ctx context.Context) (*app.App, error) {
	logger := logging.NewLogger(os.Stderr, v.GetString(config.KeyLogLevel), logging.Format(v.GetString(config.KeyLogFormat)))
	config.LoadEnv(logger, config.EnvFiles...)

	settings, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(logging.ParseLevel(settings.LogLevel))

	cloud, _, err := activeContext()
	if err != nil {
		return nil, err
	}

	return app.Build(ctx, settings, logger, app.Options{Context: cloud})
}
