package main

import (
	"context"
	"fmt"

	"github.com/jrsteele09/vendoriq-client/internal/config"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	metrics    bool
}

func newRootCommand() (*cobra.Command, error) {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "vendoriq",
		Short:         "Command-line client for the VendorIQ vendor backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			displayAppname(cmd.OutOrStdout(), cfg.GetAppName())
			return cmd.Help()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to a config file (yaml, json or toml)")
	flags.String("api-url", "", "backend base endpoint, overrides host-based detection")
	flags.String("store", "", "session store backend: file, sqlite, redis or memory")
	flags.String("store-path", "", "session store file for the file and sqlite backends")
	flags.String("log-level", "", "log level: trace, debug, info, warn, error or disabled")
	flags.Duration("timeout", 0, "request timeout")
	flags.BoolVar(&opts.metrics, "metrics", false, "print request metrics to stderr on exit")

	cmd.AddCommand(
		newLoginCommand(opts),
		newLogoutCommand(opts),
		newRegisterCommand(opts),
		newWhoamiCommand(opts),
	)

	for _, build := range []func(*rootOptions) (*cobra.Command, error){
		newProductsCommand,
		newSalesCommand,
		newDashboardCommand,
	} {
		sub, err := build(opts)
		if err != nil {
			return nil, err
		}
		cmd.AddCommand(sub)
	}
	return cmd, nil
}

func loadConfig(cmd *cobra.Command, opts *rootOptions) (config.Config, error) {
	flags := cmd.Flags()
	return config.Load(opts.configPath,
		config.WithFlag("api_url", flags.Lookup("api-url")),
		config.WithFlag("store.backend", flags.Lookup("store")),
		config.WithFlag("store.path", flags.Lookup("store-path")),
		config.WithFlag("log_level", flags.Lookup("log-level")),
		config.WithFlag("request_timeout", flags.Lookup("timeout")),
	)
}

// withApp builds the application for one command invocation and tears it
// down afterwards.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, a *app) error) error {
	a, err := openApp(cmd, opts)
	if err != nil {
		return err
	}
	return closeApp(cmd, opts, a, fn(cmd.Context(), a))
}

func openApp(cmd *cobra.Command, opts *rootOptions) (*app, error) {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return nil, err
	}
	return newApp(cfg)
}

// closeApp dumps metrics when asked and releases a. It returns runErr, or
// the metrics error when the run itself succeeded.
func closeApp(cmd *cobra.Command, opts *rootOptions, a *app, runErr error) error {
	defer a.close()
	if opts.metrics {
		if err := dumpMetrics(cmd, a); err != nil && runErr == nil {
			return err
		}
	}
	return runErr
}

func dumpMetrics(cmd *cobra.Command, a *app) error {
	families, err := a.registry.Gather()
	if err != nil {
		return fmt.Errorf("[dumpMetrics] gather: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(cmd.ErrOrStderr(), mf); err != nil {
			return fmt.Errorf("[dumpMetrics] encode: %w", err)
		}
	}
	return nil
}
