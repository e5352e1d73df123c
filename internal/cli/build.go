package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/me/wdl2vidarr/internal/bundle"
	"github.com/me/wdl2vidarr/internal/config"
	"github.com/me/wdl2vidarr/pkg/vidarr"
	"github.com/spf13/cobra"
)

// runVidarrTest runs one Vidarr test file against the bundle.
var runVidarrTest = func(ctx context.Context, stdout, stderr io.Writer, testConfig, bundlePath, testFile string) error {
	c := exec.CommandContext(ctx, "vidarr", "test", "-c", testConfig, "-w", bundlePath, "-t", testFile)
	c.Stdout = stdout
	c.Stderr = stderr
	if err := c.Run(); err != nil {
		return fmt.Errorf("vidarr test %s: %w", testFile, err)
	}
	return nil
}

// NewBuildCmd creates the root command of vidarr-build.
func NewBuildCmd() *cobra.Command {
	opts := config.DefaultBuildOptions()

	root := &cobra.Command{
		Use:   "vidarr-build",
		Short: "Build, test and deploy Vidarr workflow bundles",
		Long: "Build the Vidarr bundle of the workflow named in " + config.DefaultBuildConfig +
			", run its regression tests and register it with Vidarr servers.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return errors.New("please supply a command: build, test, or deploy")
		},
		SilenceUsage: true,
	}
	addLoggingFlags(root)
	root.PersistentFlags().StringVarP(&opts.ConfigPath, "build-config", "c", opts.ConfigPath, "Build configuration file")

	root.AddCommand(
		newBuildSubcommand(&opts),
		newTestCmd(&opts),
		newDeployCmd(&opts),
	)
	return root
}

func newBuildSubcommand(opts *config.BuildOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Produce the Vidarr-compatible workflow bundle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, err := buildBundle(opts)
			return err
		},
	}
}

func newTestCmd(opts *config.BuildOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Build the workflow and run the regression tests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireTestConfig(opts); err != nil {
				return err
			}
			_, cfg, err := buildBundle(opts)
			if err != nil {
				return err
			}
			files, err := cfg.TestFiles(opts.PerformanceTest)
			if err != nil {
				return err
			}
			return runTests(cmd, opts, files)
		},
	}
	addTestFlags(cmd, opts)
	return cmd
}

func newDeployCmd(opts *config.BuildOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Build the workflow, run the regression tests and deploy it to Vidarr servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireTestConfig(opts); err != nil {
				return err
			}
			w, cfg, err := buildBundle(opts)
			if err != nil {
				return err
			}
			files, err := cfg.TestFiles(opts.PerformanceTest)
			if err != nil {
				return err
			}
			return deploy(cmd, opts, cfg, w, files)
		},
	}
	addTestFlags(cmd, opts)
	cmd.Flags().StringArrayVarP(&opts.URLs, "url", "u", nil,
		"A Vidarr server to deploy to (repeatable). If unspecified, the servers from the space-separated VIDARR_URLS are used")
	cmd.Flags().StringVarP(&opts.URLFile, "url-file", "U", "", "A file containing Vidarr servers to deploy to, one per line")
	cmd.Flags().StringVarP(&opts.Version, "version", "v", "", "The version number to push as")
	_ = cmd.MarkFlagRequired("version")
	return cmd
}

func addTestFlags(cmd *cobra.Command, opts *config.BuildOptions) {
	cmd.Flags().StringVarP(&opts.TestConfig, "test-config", "t", opts.TestConfig,
		"Vidarr plugin configuration file for running tests (or "+config.EnvTestConfig+" env)")
	cmd.Flags().BoolVarP(&opts.PerformanceTest, "performance-test", "p", false, "Run performance tests too")
}

func requireTestConfig(opts *config.BuildOptions) error {
	if opts.TestConfig == "" {
		return fmt.Errorf("--test-config is required (or set %s)", config.EnvTestConfig)
	}
	return nil
}

// buildBundle converts the configured root workflow and writes the bundle
// to v.out in the working directory.
func buildBundle(opts *config.BuildOptions) (*vidarr.Workflow, *config.BuildConfig, error) {
	cfg, err := config.LoadBuild(opts.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	path, err := cfg.WorkflowPath()
	if err != nil {
		return nil, nil, err
	}
	logger.Info("building workflow", "path", path, "names", cfg.Names)
	w, err := bundle.New(logger).Convert(path)
	if err != nil {
		return nil, nil, err
	}
	if err := writeBundle(config.BundleFile, w); err != nil {
		return nil, nil, err
	}
	return w, cfg, nil
}

func runTests(cmd *cobra.Command, opts *config.BuildOptions, files []string) error {
	for _, f := range files {
		fmt.Fprintf(cmd.OutOrStdout(), "Running tests from %s...\n", f)
		if err := runVidarrTest(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts.TestConfig, config.BundleFile, f); err != nil {
			return err
		}
	}
	return nil
}

type target struct {
	server string
	name   string
}

func deploy(cmd *cobra.Command, opts *config.BuildOptions, cfg *config.BuildConfig, w *vidarr.Workflow, files []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	servers, err := opts.ServerURLs()
	if err != nil {
		return err
	}
	client := NewClient(logger)

	var targets []target
	for _, server := range servers {
		for _, name := range cfg.Names {
			ok, err := client.WorkflowRegistered(ctx, server, name)
			if err != nil {
				return fmt.Errorf("query %s: %w", server, err)
			}
			if !ok {
				fmt.Fprintf(out, "Workflow %s not registered on %s. Skipping.\n", name, server)
				continue
			}
			targets = append(targets, target{server: server, name: name})
		}
	}
	if len(targets) == 0 {
		return errors.New("could not find a server that wanted this workflow; check that the names in " +
			config.DefaultBuildConfig + " are registered on the servers or update the names")
	}

	if err := runTests(cmd, opts, files); err != nil {
		return err
	}

	failed := 0
	for _, t := range targets {
		registration := workflowURL(t.server, t.name, opts.Version)
		fmt.Fprintf(out, "Pushing to %s server...\n", registration)
		resp, err := client.RegisterVersion(ctx, t.server, t.name, opts.Version, w)
		if err != nil {
			fmt.Fprintf(out, "Failed to register workflow version on %s: %v\n", registration, err)
			failed++
			continue
		}
		switch resp.StatusCode {
		case 201:
			fmt.Fprintf(out, "Registered on %s!\n", registration)
		case 200:
			fmt.Fprintf(out, "Workflow version is already registered on %s\n", registration)
		case 409:
			fmt.Fprintf(out, "This workflow version is different from the workflow version with the same name + version on %s\n", registration)
			failed++
		default:
			fmt.Fprintf(out, "Failed to register workflow version on %s: response status %d\n", registration, resp.StatusCode)
			if len(resp.Body) > 0 {
				fmt.Fprintf(out, "%s\n", resp.Body)
			}
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("deployment failed on %d of %d targets", failed, len(targets))
	}
	fmt.Fprintln(out, "Deployment complete.")
	return nil
}
