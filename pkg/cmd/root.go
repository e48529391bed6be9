package cmd

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vshn/zabbix-maintenance/pkg/config"
	"github.com/vshn/zabbix-maintenance/pkg/maintenance"
	"github.com/vshn/zabbix-maintenance/pkg/zabbix"
)

var (
	appName     = "zabbix-maintenance"
	appLongName = "Zabbix Host Maintenance"
)

var (
	connOverrides = config.Config{}
	verbosity     int

	rootCmd = &cobra.Command{
		Use:           appName + " [flags] minutes",
		Short:         appLongName,
		Long:          "Place the local host into maintenance mode on a Zabbix server for the given number of minutes.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			minutes, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid minutes argument %q: %w", args[0], err)
			}
			if minutes <= 0 {
				return maintenance.ErrInvalidDuration
			}

			logger := newLogger()
			cfg, err := resolveConfig()
			if err != nil {
				return err
			}

			requester := newRequester(cfg, logger)
			window, err := requester.Request(cmd.Context(), cfg, minutes)
			if err != nil {
				return err
			}

			fmt.Printf("Host %s is in maintenance until %s (%d minutes)\n",
				window.HostName, window.End.Format("2006-01-02 15:04:05"), minutes)
			return nil
		},
	}
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newLogger() logr.Logger {
	stdr.SetVerbosity(verbosity)
	return stdr.New(log.New(os.Stderr, "", log.LstdFlags)).
		WithValues("invocation_id", uuid.NewString())
}

func resolveConfig() (config.Config, error) {
	return config.Resolve(connOverrides, config.EnvSource{EnvFile: ".env"}, config.DefaultFileSource())
}

func newRequester(cfg config.Config, logger logr.Logger) *maintenance.Requester {
	client := zabbix.NewClient(zabbix.Config{
		URL:      cfg.URL,
		Timeout:  cfg.Timeout,
		Insecure: cfg.Insecure,
		Logger:   &logger,
	})
	return maintenance.NewRequester(client, maintenance.WithLogger(logger))
}

func init() {
	rootCmd.PersistentFlags().StringVar(&connOverrides.URL, "url", "", "URL of the Zabbix API endpoint (overrides the zabbix-cli config)")
	rootCmd.PersistentFlags().StringVar(&connOverrides.Username, "user", "", "Username for the Zabbix API (overrides the zabbix-cli config)")
	rootCmd.PersistentFlags().StringVar(&connOverrides.Password, "password", "", "Password for the Zabbix API (overrides the zabbix-cli config)")
	rootCmd.PersistentFlags().DurationVar(&connOverrides.Timeout, "timeout", zabbix.DefaultTimeout, "Timeout for a single API round trip")
	rootCmd.PersistentFlags().BoolVar(&connOverrides.Insecure, "insecure", false, "Skip TLS certificate verification")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity")
}
