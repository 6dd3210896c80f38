package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/garyellow/lnmu-portal/internal/app"
	"github.com/garyellow/lnmu-portal/internal/buildinfo"
	"github.com/garyellow/lnmu-portal/internal/config"
	"github.com/garyellow/lnmu-portal/internal/logger"
	"github.com/garyellow/lnmu-portal/internal/metrics"
	"github.com/garyellow/lnmu-portal/internal/portal"
	"github.com/garyellow/lnmu-portal/internal/sentry"
)

// cli carries the streams and the lazily built components shared by the
// subcommands.
type cli struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	jsonOut  bool
	logLevel string

	cfg        *config.Config
	log        *logger.Logger
	components *app.Components
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	c := &cli{in: in, out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "portal",
		Short:         "LNMU student records portal",
		Long:          "Look up LNMU student records by free-text search or by year, college and course, and export report cards as JPEG or PDF.",
		Version:       buildinfo.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return c.close()
		},
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().BoolVar(&c.jsonOut, "json", false, "Print results as JSON")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Override "+config.EnvPrefix+config.EnvLogLevel)

	root.AddCommand(
		c.yearsCmd(),
		c.collegesCmd(),
		c.coursesCmd(),
		c.searchCmd(),
		c.browseCmd(),
		c.profileCmd(),
		c.exportCmd(),
		c.shellCmd(),
		c.serveCmd(),
		healthcheckCmd(),
	)

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w\nRun '%s --help' for usage", err, cmd.CommandPath())
	})
	return root
}

// setup loads configuration and builds the shared components for CLI mode.
func (c *cli) setup() error {
	if c.components != nil {
		return nil
	}
	cfg, err := config.LoadForMode(config.CLIMode)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	c.cfg = cfg

	c.log = logger.NewWithOptions(cfg.LogLevel, c.errOut, logger.Options{
		BetterStackToken: cfg.BetterStackToken,
	}).WithField("service", "lnmu-portal-cli")

	if err := sentry.Initialize(sentry.Config{
		DSN:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		Release:     buildinfo.Release(),
	}); err != nil {
		c.log.WithError(err).Warn("Sentry initialization failed")
	}

	// metrics are collected but not exported in CLI mode
	m := metrics.New(prometheus.NewRegistry())
	components, err := app.NewComponents(cfg, c.log, m)
	if err != nil {
		return err
	}
	c.components = components
	return nil
}

func (c *cli) newSession(onLoading func(bool)) (*portal.Session, error) {
	if err := c.setup(); err != nil {
		return nil, err
	}
	return c.components.NewSession(uuid.NewString(), onLoading)
}

func (c *cli) close() error {
	if c.log == nil {
		return nil
	}
	if sentry.IsEnabled() {
		sentry.Flush(2 * time.Second)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.log.Shutdown(ctx); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "logger shutdown:", err)
	}
	return nil
}
