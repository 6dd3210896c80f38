package main

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/garyellow/lnmu-portal/internal/app"
	"github.com/garyellow/lnmu-portal/internal/config"
	"github.com/garyellow/lnmu-portal/internal/export"
)

func (c *cli) yearsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "years",
		Short: "List enrollment years",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := c.newSession(nil)
			if err != nil {
				return err
			}
			years, err := s.LoadYears(cmd.Context())
			if err = absorb(err); err != nil {
				return err
			}
			return c.printList(years)
		},
	}
}

func (c *cli) collegesCmd() *cobra.Command {
	var year string
	cmd := &cobra.Command{
		Use:   "colleges",
		Short: "List colleges for an enrollment year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := c.newSession(nil)
			if err != nil {
				return err
			}
			colleges, err := s.SetYear(cmd.Context(), year)
			if err = absorb(err); err != nil {
				return err
			}
			return c.printList(colleges)
		},
	}
	cmd.Flags().StringVar(&year, "year", "", "Enrollment year")
	_ = cmd.MarkFlagRequired("year")
	return cmd
}

func (c *cli) coursesCmd() *cobra.Command {
	var year, college string
	cmd := &cobra.Command{
		Use:   "courses",
		Short: "List courses for a year and college",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := c.newSession(nil)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if _, err := s.SetYear(ctx, year); absorb(err) != nil {
				return err
			}
			courses, err := s.SetCollege(ctx, college)
			if err = absorb(err); err != nil {
				return err
			}
			return c.printList(courses)
		},
	}
	cmd.Flags().StringVar(&year, "year", "", "Enrollment year")
	cmd.Flags().StringVar(&college, "college", "", "College name")
	_ = cmd.MarkFlagRequired("year")
	_ = cmd.MarkFlagRequired("college")
	return cmd
}

func (c *cli) searchCmd() *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search students by name, roll or registration number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.newSession(nil)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			results, err := s.Search(ctx, args[0])
			if err = absorb(err); err != nil {
				return err
			}
			if page > 1 {
				if results, err = s.GotoPage(ctx, page); absorb(err) != nil {
					return err
				}
			}
			return c.printPage(results)
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "Result page")
	return cmd
}

func (c *cli) browseCmd() *cobra.Command {
	var year, college, course string
	var page int
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "List students of a year, college and course",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := c.newSession(nil)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if _, err := s.SetYear(ctx, year); absorb(err) != nil {
				return err
			}
			if _, err := s.SetCollege(ctx, college); absorb(err) != nil {
				return err
			}
			results, err := s.SetCourse(ctx, course)
			if err = absorb(err); err != nil {
				return err
			}
			if page > 1 {
				if results, err = s.GotoPage(ctx, page); absorb(err) != nil {
					return err
				}
			}
			return c.printPage(results)
		},
	}
	cmd.Flags().StringVar(&year, "year", "", "Enrollment year")
	cmd.Flags().StringVar(&college, "college", "", "College name")
	cmd.Flags().StringVar(&course, "course", "", "Course name")
	cmd.Flags().IntVar(&page, "page", 1, "Result page")
	for _, name := range []string{"year", "college", "course"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func (c *cli) profileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profile <roll>",
		Short: "Show a student's profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.newSession(nil)
			if err != nil {
				return err
			}
			p, err := s.ViewProfile(cmd.Context(), args[0])
			if err = absorb(err); err != nil {
				return err
			}
			return c.printProfile(p)
		},
	}
}

func (c *cli) exportCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export <roll>",
		Short: "Export a student's report card as JPEG or PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			s, err := c.newSession(nil)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if _, err := s.ViewProfile(ctx, args[0]); err != nil {
				return err
			}
			path, err := s.Export(ctx, args[0], f)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(c.out, path)
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(export.FormatPDF), "Output format (jpg, pdf)")
	return cmd
}

func (c *cli) shellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive session with search, filters, paging and export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sh := &shell{cli: c}
			s, err := c.newSession(sh.loadingChanged)
			if err != nil {
				return err
			}
			sh.session = s
			return sh.run(cmd.Context(), c.in)
		},
	}
}

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve portal sessions over the JSON HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadForMode(config.ServeMode)
			if err != nil {
				return err
			}
			if c.logLevel != "" {
				cfg.LogLevel = c.logLevel
			}
			application, err := app.Initialize(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return application.Run()
		},
	}
}

// healthcheckCmd probes a local server; it is the container health check.
func healthcheckCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Exit non-zero unless the local server answers /healthz",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port == "" {
				port = os.Getenv(config.EnvPrefix + config.EnvPort)
			}
			if port == "" {
				port = "10000"
			}
			if _, err := strconv.Atoi(port); err != nil {
				return fmt.Errorf("invalid port %q", port)
			}

			client := &http.Client{Timeout: 8 * time.Second}
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, "http://localhost:"+port+"/healthz", nil)
			if err != nil {
				return err
			}
			resp, err := client.Do(req)
			if err != nil {
				return err
			}
			defer func() { _ = resp.Body.Close() }()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("health check returned %d", resp.StatusCode)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "Server port (default "+config.EnvPrefix+config.EnvPort+" or 10000)")
	return cmd
}
