package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rohmanhakim/docs-link-crawler/internal/build"
	"github.com/rohmanhakim/docs-link-crawler/internal/config"
	"github.com/rohmanhakim/docs-link-crawler/internal/logging"
	"github.com/rohmanhakim/docs-link-crawler/internal/scheduler"
	"github.com/spf13/cobra"
)

var (
	cfgFile            string
	seedURL            string
	outputPath         string
	scopeMode          string
	allowedHosts       []string
	allowedPathPrefix  []string
	excludedExtensions []string
	maxDepth           int
	maxPages           int
	concurrency        int
	timeout            time.Duration
	baseDelay          time.Duration
	jitter             time.Duration
	randomSeed         int64
	requestsPerSecond  float64
	maxAttempt         int
	userAgent          string
	ignoreRobots       bool
	dbPath             string
	snapshotDir        string
	dryRun             bool
	logLevel           string
	logFormat          string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "docs-link-crawler",
	Short: "Discover every documentation page reachable from a seed URL.",
	Long: `docs-link-crawler walks a documentation site breadth-first from a seed URL,
following only same-origin links, and writes the deduplicated list of pages it
fetched successfully, one URL per line. The list seeds a RAG document index.

Fragment links and PDF files are skipped, robots.txt is honoured, and requests
to each host are spaced out politely.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCrawl(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), build.Banner())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// ExecuteArgs runs the command tree with explicit arguments and streams.
func ExecuteArgs(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config-file", "", "config file path, .json or .yaml (replaces all other crawl flags)")
	flags.StringVar(&seedURL, "seed-url", "", "absolute http(s) URL the crawl starts from")
	flags.StringVar(&outputPath, "output", "", "output file for discovered URLs (default discovered_urls.txt)")
	flags.StringVar(&scopeMode, "scope", "", "origin rule: exact, subdomains or site (default exact)")
	flags.StringArrayVar(&allowedHosts, "allowed-host", []string{}, "extra host[:port] treated as same-origin (can be repeated)")
	flags.StringArrayVar(&allowedPathPrefix, "allowed-path-prefix", []string{}, "restrict crawl to paths like `/docs` (can be repeated)")
	flags.StringArrayVar(&excludedExtensions, "exclude-ext", []string{}, "file extension never fetched (default .pdf, can be repeated)")
	flags.IntVar(&maxDepth, "max-depth", 0, "maximum link distance from the seed (0 for unlimited)")
	flags.IntVar(&maxPages, "max-pages", 0, "maximum number of pages to visit (0 for unlimited)")
	flags.IntVar(&concurrency, "concurrency", 0, "number of concurrent fetch workers (default 1)")
	flags.DurationVar(&timeout, "timeout", 0, "timeout for each HTTP request (default 10s)")
	flags.DurationVar(&baseDelay, "base-delay", 0, "base delay between requests to the same host (default 1s)")
	flags.DurationVar(&jitter, "jitter", 0, "random jitter added to the base delay (default 500ms)")
	flags.Int64Var(&randomSeed, "random-seed", 0, "seed for jitter randomness (0 for current time)")
	flags.Float64Var(&requestsPerSecond, "rps", 0, "per-host request rate cap (0 for no cap)")
	flags.IntVar(&maxAttempt, "max-attempt", 0, "fetch attempts per URL for retryable failures (default 3)")
	flags.StringVar(&userAgent, "user-agent", "", "user agent string for HTTP requests")
	flags.BoolVar(&ignoreRobots, "ignore-robots", false, "do not consult robots.txt")
	flags.StringVar(&dbPath, "db", "", "SQLite ledger recording every visit of the run")
	flags.StringVar(&snapshotDir, "snapshot-dir", "", "write a Markdown snapshot of every discovered page here")
	flags.BoolVar(&dryRun, "dry-run", false, "crawl without writing the URL list")
	flags.StringVar(&logLevel, "log-level", "", "debug, info, warn or error (default info)")
	flags.StringVar(&logFormat, "log-format", "", "text or json (default text)")

	rootCmd.AddCommand(versionCmd)
}

func runCrawl(ctx context.Context, stdout, stderr io.Writer) error {
	cfg, err := InitConfigWithError()
	if err != nil {
		return err
	}

	logger, err := logging.New(stderr, cfg.LogLevel(), cfg.LogFormat())
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := scheduler.NewScheduler(logger)
	seed := cfg.SeedURL()
	logger.Info("crawl started",
		"version", build.FullVersion(),
		"crawl_id", s.CrawlID(),
		"seed", seed.String(),
		"concurrency", cfg.Concurrency(),
	)

	execution, err := s.ExecuteCrawling(ctx, cfg)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if execution.Cancelled {
		logger.Warn("crawl interrupted, partial result kept", "output", execution.OutputPath)
	}

	fmt.Fprintf(stdout, "Discovered %d documentation URLs.\n", len(execution.Discovered))
	return nil
}

// InitConfigWithError builds the crawl configuration from the config file when
// one is given, otherwise from flags layered over defaults.
func InitConfigWithError() (config.Config, error) {
	if cfgFile != "" {
		cfg, err := config.WithConfigFile(cfgFile)
		if err != nil {
			return cfg, fmt.Errorf("error initializing config from file: %w", err)
		}
		return cfg, nil
	}

	if seedURL == "" {
		return config.Config{}, fmt.Errorf("%w: --seed-url is required", config.ErrInvalidConfig)
	}
	seed, err := config.ParseSeedURL(seedURL)
	if err != nil {
		return config.Config{}, err
	}

	configBuilder := config.WithDefault(seed)

	if outputPath != "" {
		configBuilder = configBuilder.WithOutputPath(outputPath)
	}
	if scopeMode != "" {
		configBuilder = configBuilder.WithOriginMode(config.OriginMode(scopeMode))
	}
	if len(allowedHosts) > 0 {
		configBuilder = configBuilder.WithAllowedHosts(allowedHosts)
	}
	if len(allowedPathPrefix) > 0 {
		configBuilder = configBuilder.WithAllowedPathPrefix(allowedPathPrefix)
	}
	if len(excludedExtensions) > 0 {
		configBuilder = configBuilder.WithExcludedExtensions(excludedExtensions)
	}
	if maxDepth > 0 {
		configBuilder = configBuilder.WithMaxDepth(maxDepth)
	}
	if maxPages > 0 {
		configBuilder = configBuilder.WithMaxPages(maxPages)
	}
	if concurrency > 0 {
		configBuilder = configBuilder.WithConcurrency(concurrency)
	}
	if timeout > 0 {
		configBuilder = configBuilder.WithTimeout(timeout)
	}
	if baseDelay > 0 {
		configBuilder = configBuilder.WithBaseDelay(baseDelay)
	}
	if jitter > 0 {
		configBuilder = configBuilder.WithJitter(jitter)
	}
	if randomSeed != 0 {
		configBuilder = configBuilder.WithRandomSeed(randomSeed)
	}
	if requestsPerSecond > 0 {
		configBuilder = configBuilder.WithRequestsPerSecond(requestsPerSecond)
	}
	if maxAttempt > 0 {
		configBuilder = configBuilder.WithMaxAttempt(maxAttempt)
	}
	if userAgent != "" {
		configBuilder = configBuilder.WithUserAgent(userAgent)
	}
	if ignoreRobots {
		configBuilder = configBuilder.WithRespectRobots(false)
	}
	if dbPath != "" {
		configBuilder = configBuilder.WithDBPath(dbPath)
	}
	if snapshotDir != "" {
		configBuilder = configBuilder.WithSnapshotDir(snapshotDir)
	}
	if dryRun {
		configBuilder = configBuilder.WithDryRun(dryRun)
	}
	if logLevel != "" {
		configBuilder = configBuilder.WithLogLevel(logLevel)
	}
	if logFormat != "" {
		configBuilder = configBuilder.WithLogFormat(logFormat)
	}

	return configBuilder.Build()
}

func ResetFlags() {
	cfgFile = ""
	seedURL = ""
	outputPath = ""
	scopeMode = ""
	allowedHosts = []string{}
	allowedPathPrefix = []string{}
	excludedExtensions = []string{}
	maxDepth = 0
	maxPages = 0
	concurrency = 0
	timeout = 0
	baseDelay = 0
	jitter = 0
	randomSeed = 0
	requestsPerSecond = 0
	maxAttempt = 0
	userAgent = ""
	ignoreRobots = false
	dbPath = ""
	snapshotDir = ""
	dryRun = false
	logLevel = ""
	logFormat = ""
}

// Test helpers to set flag values from tests

func SetConfigFileForTest(path string) {
	cfgFile = path
}

func SetSeedURLForTest(raw string) {
	seedURL = raw
}

func SetOutputPathForTest(path string) {
	outputPath = path
}

func SetScopeForTest(mode string) {
	scopeMode = mode
}

func SetMaxDepthForTest(depth int) {
	maxDepth = depth
}

func SetMaxPagesForTest(pages int) {
	maxPages = pages
}

func SetConcurrencyForTest(n int) {
	concurrency = n
}

func SetTimeoutForTest(d time.Duration) {
	timeout = d
}

func SetExcludedExtensionsForTest(exts []string) {
	excludedExtensions = exts
}

func SetIgnoreRobotsForTest(ignore bool) {
	ignoreRobots = ignore
}

func SetDryRunForTest(dry bool) {
	dryRun = dry
}
