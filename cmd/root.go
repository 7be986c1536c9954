package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"showtimes-console/config"
	"showtimes-console/rotation"
	"showtimes-console/service"
	"showtimes-console/tui"
)

const (
	payloadCacheSize = 64
	payloadCacheTTL  = 5 * time.Minute
)

// BuildInfo is stamped into the binary with ldflags.
type BuildInfo struct {
	Name    string
	Version string
	Commit  string
}

type rootOptions struct {
	configPath string
	refresh    int
	cacheFile  string
	timeout    float64
	plain      bool
	logFile    string
	verbose    bool

	clientOpts []service.ClientOption
}

// RootOption configures the command tree, mostly for tests.
type RootOption func(*rootOptions)

// WithClientOptions passes extra options to the showtimes client, e.g. a
// test server's base URL.
func WithClientOptions(opts ...service.ClientOption) RootOption {
	return func(o *rootOptions) {
		o.clientOpts = append(o.clientOpts, opts...)
	}
}

// NewRoot builds the command tree.
func NewRoot(info BuildInfo, rootOpts ...RootOption) *cobra.Command {
	opts := &rootOptions{}
	for _, opt := range rootOpts {
		opt(opts)
	}

	rootCmd := &cobra.Command{
		Use:   info.Name,
		Short: "Rotate through today's movie showtimes",
		Long: `Fetches today's showtimes for the configured theaters, caches them for the day
and shows one movie at a time, theater by theater.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDisplay(cmd, opts)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", config.DefaultConfigFile, "path to the JSON or YAML config file")
	flags.StringVar(&opts.cacheFile, "cache-file", "", "override the cache file path")
	flags.Float64Var(&opts.timeout, "timeout", 0, "HTTP request timeout in seconds")
	flags.StringVar(&opts.logFile, "log-file", "", "write logs to this file")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.Flags().IntVarP(&opts.refresh, "refresh", "r", 0, "seconds each movie stays on screen")
	rootCmd.Flags().BoolVar(&opts.plain, "plain", false, "print frames to stdout instead of the full-screen UI")

	rootCmd.AddCommand(newListCmd(opts), newInitCmd(opts), newVersionCmd(info))
	return rootCmd
}

// Execute runs the command tree with args.
func Execute(ctx context.Context, info BuildInfo, args []string) error {
	rootCmd := NewRoot(info)
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

func runDisplay(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	logger, closeLog, err := newLogger(cmd, opts, opts.plain)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	newEngine := func(r rotation.Renderer, loaderOpts ...service.LoaderOption) *rotation.Engine {
		loader := newLoader(cfg, opts, logger, loaderOpts...)
		return rotation.New(loader, r,
			rotation.WithLocation(cfg.Location()),
			rotation.WithCycleDelay(cfg.CycleDelay(opts.refresh)),
			rotation.WithLogger(logger),
		)
	}

	if opts.plain {
		console := tui.NewConsole(out)
		progress := func(done, total int, th config.Theater) {
			console.Notice(fmt.Sprintf("Fetching %s (%d/%d)...", th.Label(), done+1, total))
		}
		return finish(cmd, newEngine(console, service.WithProgress(progress)).Run(ctx))
	}

	notice, err := tui.Run(ctx, func(ctx context.Context, r rotation.Renderer) error {
		return newEngine(r).Run(ctx)
	})
	if notice != "" && err == nil {
		fmt.Fprintln(out, notice)
	}
	return finish(cmd, err)
}

func newLoader(cfg *config.Config, opts *rootOptions, logger *slog.Logger, extra ...service.LoaderOption) *service.Loader {
	clientOpts := append([]service.ClientOption{service.WithMaxAttempts(cfg.Retries())}, opts.clientOpts...)
	client := service.NewClient(nil, cfg.Timeout(opts.timeout), clientOpts...)
	fetcher := service.Cached(client, payloadCacheSize, payloadCacheTTL)
	loaderOpts := append([]service.LoaderOption{service.WithLogger(logger)}, extra...)
	return service.NewLoader(fetcher, cfg, cfg.CachePath(opts.cacheFile), loaderOpts...)
}

// finish turns a cancelled run into a clean exit.
func finish(cmd *cobra.Command, err error) error {
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(cmd.OutOrStdout(), "\nStopped by user")
		return nil
	}
	return err
}
