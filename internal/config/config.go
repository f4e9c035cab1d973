package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// OriginMode decides which hosts count as the same origin as the seed.
type OriginMode string

const (
	// OriginExact accepts only the seed's host and port.
	OriginExact OriginMode = "exact"
	// OriginSubdomains accepts the seed's host and any subdomain of it.
	OriginSubdomains OriginMode = "subdomains"
	// OriginSite accepts any host under the seed's registrable domain.
	OriginSite OriginMode = "site"
)

type Config struct {
	//===============
	//  Crawl scope
	//===============
	// Page given to the crawler to begin discovering and traversing other pages.
	seedURL url.URL
	// Which hosts count as the seed's origin
	originMode OriginMode
	// Hosts accepted in addition to the origin rule
	allowedHosts map[string]struct{}
	// URL path prefixes permitted to be fetched. Empty means every path.
	allowedPathPrefix []string
	// Path extensions that are never fetched, lowercased with a leading dot
	excludedExtensions []string

	//===============
	// Limits
	//===============
	// Maximum number of hyperlink hops from the seed. 0 means unlimited.
	maxDepth int
	// Maximum number of fetch attempts over the crawl. 0 means unlimited.
	maxPages int

	//===============
	// Politeness
	//===============
	// Number of pages of the same depth fetched in parallel. 1 is strictly sequential.
	concurrency int
	// Minimum, fixed waiting time between two HTTP requests to the same host.
	baseDelay time.Duration
	// Randomized variation added on top of the base delay.
	jitter time.Duration
	// Controls the random number generator
	randomSeed int64
	// Per-host token bucket rate. 0 disables it.
	requestsPerSecond float64
	// Whether robots.txt is fetched and obeyed
	respectRobots bool
	// maximum attempt during retry
	maxAttempt int
	// initial delay for backoff
	backoffInitialDuration time.Duration
	// multiplier during exponential backoff
	backoffMultiplier float64
	// capped maximum delay for backoff to stop exponential multiplication
	backoffMaxDuration time.Duration

	//===============
	// Fetch
	//===============
	// Maximum time of a single fetch attempt
	timeout time.Duration
	// User agent that will be used in the request header. In raw string
	userAgent string
	// Responses larger than this are treated as fetch failures
	maxBodyBytes int64

	//===============
	// Output
	//===============
	// Line-delimited file receiving the discovered URLs
	outputPath string
	// Optional SQLite ledger of the run. Empty disables it.
	dbPath string
	// Optional directory receiving Markdown snapshots. Empty disables it.
	snapshotDir string
	// Crawl without writing any output
	dryRun bool

	//===============
	// Logging
	//===============
	logLevel  string
	logFormat string
}

type backoffDTO struct {
	Initial    *Duration `json:"initial,omitempty" yaml:"initial,omitempty"`
	Multiplier float64   `json:"multiplier,omitempty" yaml:"multiplier,omitempty"`
	Max        *Duration `json:"max,omitempty" yaml:"max,omitempty"`
}

type logDTO struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

type configDTO struct {
	SeedURL            string     `json:"seedUrl" yaml:"seedUrl"`
	Scope              string     `json:"scope,omitempty" yaml:"scope,omitempty"`
	AllowedHosts       []string   `json:"allowedHosts,omitempty" yaml:"allowedHosts,omitempty"`
	AllowedPathPrefix  []string   `json:"allowedPathPrefix,omitempty" yaml:"allowedPathPrefix,omitempty"`
	ExcludedExtensions []string   `json:"excludedExtensions,omitempty" yaml:"excludedExtensions,omitempty"`
	MaxDepth           *int       `json:"maxDepth,omitempty" yaml:"maxDepth,omitempty"`
	MaxPages           *int       `json:"maxPages,omitempty" yaml:"maxPages,omitempty"`
	Concurrency        int        `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`
	BaseDelay          *Duration  `json:"baseDelay,omitempty" yaml:"baseDelay,omitempty"`
	Jitter             *Duration  `json:"jitter,omitempty" yaml:"jitter,omitempty"`
	RandomSeed         int64      `json:"randomSeed,omitempty" yaml:"randomSeed,omitempty"`
	RequestsPerSecond  float64    `json:"requestsPerSecond,omitempty" yaml:"requestsPerSecond,omitempty"`
	RespectRobots      *bool      `json:"respectRobots,omitempty" yaml:"respectRobots,omitempty"`
	MaxAttempt         int        `json:"maxAttempt,omitempty" yaml:"maxAttempt,omitempty"`
	Backoff            backoffDTO `json:"backoff,omitempty" yaml:"backoff,omitempty"`
	Timeout            *Duration  `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	UserAgent          string     `json:"userAgent,omitempty" yaml:"userAgent,omitempty"`
	MaxBodyBytes       int64      `json:"maxBodyBytes,omitempty" yaml:"maxBodyBytes,omitempty"`
	OutputPath         string     `json:"outputPath,omitempty" yaml:"outputPath,omitempty"`
	DBPath             string     `json:"dbPath,omitempty" yaml:"dbPath,omitempty"`
	SnapshotDir        string     `json:"snapshotDir,omitempty" yaml:"snapshotDir,omitempty"`
	DryRun             bool       `json:"dryRun,omitempty" yaml:"dryRun,omitempty"`
	Log                logDTO     `json:"log,omitempty" yaml:"log,omitempty"`
}

func newConfigFromDTO(dto configDTO) (Config, error) {
	seed, err := ParseSeedURL(dto.SeedURL)
	if err != nil {
		return Config{}, err
	}

	cfg := WithDefault(seed)

	if dto.Scope != "" {
		cfg.WithOriginMode(OriginMode(dto.Scope))
	}
	if len(dto.AllowedHosts) > 0 {
		cfg.WithAllowedHosts(dto.AllowedHosts)
	}
	if dto.AllowedPathPrefix != nil {
		cfg.WithAllowedPathPrefix(dto.AllowedPathPrefix)
	}
	if dto.ExcludedExtensions != nil {
		cfg.WithExcludedExtensions(dto.ExcludedExtensions)
	}
	// 0 is meaningful for the limits, so only absent keys keep the default
	if dto.MaxDepth != nil {
		cfg.WithMaxDepth(*dto.MaxDepth)
	}
	if dto.MaxPages != nil {
		cfg.WithMaxPages(*dto.MaxPages)
	}
	if dto.Concurrency != 0 {
		cfg.WithConcurrency(dto.Concurrency)
	}
	if dto.BaseDelay != nil {
		cfg.WithBaseDelay(dto.BaseDelay.Duration)
	}
	if dto.Jitter != nil {
		cfg.WithJitter(dto.Jitter.Duration)
	}
	if dto.RandomSeed != 0 {
		cfg.WithRandomSeed(dto.RandomSeed)
	}
	if dto.RequestsPerSecond != 0 {
		cfg.WithRequestsPerSecond(dto.RequestsPerSecond)
	}
	if dto.RespectRobots != nil {
		cfg.WithRespectRobots(*dto.RespectRobots)
	}
	if dto.MaxAttempt != 0 {
		cfg.WithMaxAttempt(dto.MaxAttempt)
	}
	if dto.Backoff.Initial != nil {
		cfg.WithBackoffInitialDuration(dto.Backoff.Initial.Duration)
	}
	if dto.Backoff.Multiplier != 0 {
		cfg.WithBackoffMultiplier(dto.Backoff.Multiplier)
	}
	if dto.Backoff.Max != nil {
		cfg.WithBackoffMaxDuration(dto.Backoff.Max.Duration)
	}
	if dto.Timeout != nil {
		cfg.WithTimeout(dto.Timeout.Duration)
	}
	if dto.UserAgent != "" {
		cfg.WithUserAgent(dto.UserAgent)
	}
	if dto.MaxBodyBytes != 0 {
		cfg.WithMaxBodyBytes(dto.MaxBodyBytes)
	}
	if dto.OutputPath != "" {
		cfg.WithOutputPath(dto.OutputPath)
	}
	cfg.WithDBPath(dto.DBPath)
	cfg.WithSnapshotDir(dto.SnapshotDir)
	cfg.WithDryRun(dto.DryRun)
	if dto.Log.Level != "" {
		cfg.WithLogLevel(dto.Log.Level)
	}
	if dto.Log.Format != "" {
		cfg.WithLogFormat(dto.Log.Format)
	}

	return cfg.Build()
}

// WithConfigFile loads a JSON (.json) or YAML (.yaml, .yml) config file.
func WithConfigFile(path string) (Config, error) {
	if _, err := os.Stat(path); err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}

	dto := configDTO{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(content, &dto)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(content, &dto)
	default:
		return Config{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}

	return newConfigFromDTO(dto)
}

// ParseSeedURL parses raw and checks it is an absolute http(s) URL with a host.
func ParseSeedURL(raw string) (url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return url.URL{}, fmt.Errorf("%w: seed url cannot be empty", ErrInvalidConfig)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return url.URL{}, fmt.Errorf("%w: seed url %q: %v", ErrInvalidConfig, raw, err)
	}
	if err := validateSeed(*parsed); err != nil {
		return url.URL{}, err
	}
	return *parsed, nil
}

func validateSeed(seed url.URL) error {
	scheme := strings.ToLower(seed.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("%w: seed url %q must use http or https", ErrInvalidConfig, seed.String())
	}
	if seed.Host == "" {
		return fmt.Errorf("%w: seed url %q has no host", ErrInvalidConfig, seed.String())
	}
	return nil
}

// WithDefault creates a new Config for seed with default values for all other fields.
func WithDefault(seed url.URL) *Config {
	defaultConfig := Config{
		seedURL:                seed,
		originMode:             OriginExact,
		allowedHosts:           map[string]struct{}{},
		allowedPathPrefix:      []string{},
		excludedExtensions:     []string{".pdf"},
		maxDepth:               0,
		maxPages:               0,
		concurrency:            1,
		baseDelay:              time.Second,
		jitter:                 time.Millisecond * 500,
		randomSeed:             time.Now().UnixNano(),
		requestsPerSecond:      0,
		respectRobots:          true,
		maxAttempt:             3,
		backoffInitialDuration: 100 * time.Millisecond,
		backoffMultiplier:      2.0,
		backoffMaxDuration:     10 * time.Second,
		timeout:                time.Second * 10,
		userAgent:              "docs-link-crawler/1.0",
		maxBodyBytes:           5 * 1024 * 1024,
		outputPath:             "discovered_urls.txt",
		logLevel:               "info",
		logFormat:              "text",
	}
	return &defaultConfig
}

func (c *Config) WithSeedURL(seed url.URL) *Config {
	c.seedURL = seed
	return c
}

func (c *Config) WithOriginMode(mode OriginMode) *Config {
	c.originMode = mode
	return c
}

func (c *Config) WithAllowedHosts(hosts []string) *Config {
	c.allowedHosts = make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			c.allowedHosts[h] = struct{}{}
		}
	}
	return c
}

func (c *Config) WithAllowedPathPrefix(prefixes []string) *Config {
	c.allowedPathPrefix = prefixes
	return c
}

// WithExcludedExtensions accepts extensions with or without the leading dot.
func (c *Config) WithExcludedExtensions(exts []string) *Config {
	c.excludedExtensions = make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.excludedExtensions = append(c.excludedExtensions, ext)
	}
	return c
}

func (c *Config) WithMaxDepth(depth int) *Config {
	c.maxDepth = depth
	return c
}

func (c *Config) WithMaxPages(pages int) *Config {
	c.maxPages = pages
	return c
}

func (c *Config) WithConcurrency(concurrency int) *Config {
	c.concurrency = concurrency
	return c
}

func (c *Config) WithBaseDelay(delay time.Duration) *Config {
	c.baseDelay = delay
	return c
}

func (c *Config) WithJitter(jitter time.Duration) *Config {
	c.jitter = jitter
	return c
}

func (c *Config) WithRandomSeed(seed int64) *Config {
	c.randomSeed = seed
	return c
}

func (c *Config) WithRequestsPerSecond(rps float64) *Config {
	c.requestsPerSecond = rps
	return c
}

func (c *Config) WithRespectRobots(respect bool) *Config {
	c.respectRobots = respect
	return c
}

func (c *Config) WithMaxAttempt(attempts int) *Config {
	c.maxAttempt = attempts
	return c
}

func (c *Config) WithBackoffInitialDuration(duration time.Duration) *Config {
	c.backoffInitialDuration = duration
	return c
}

func (c *Config) WithBackoffMultiplier(multiplier float64) *Config {
	c.backoffMultiplier = multiplier
	return c
}

func (c *Config) WithBackoffMaxDuration(duration time.Duration) *Config {
	c.backoffMaxDuration = duration
	return c
}

func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.timeout = timeout
	return c
}

func (c *Config) WithUserAgent(agent string) *Config {
	c.userAgent = agent
	return c
}

func (c *Config) WithMaxBodyBytes(n int64) *Config {
	c.maxBodyBytes = n
	return c
}

func (c *Config) WithOutputPath(path string) *Config {
	c.outputPath = path
	return c
}

func (c *Config) WithDBPath(path string) *Config {
	c.dbPath = path
	return c
}

func (c *Config) WithSnapshotDir(dir string) *Config {
	c.snapshotDir = dir
	return c
}

func (c *Config) WithDryRun(dryRun bool) *Config {
	c.dryRun = dryRun
	return c
}

func (c *Config) WithLogLevel(level string) *Config {
	c.logLevel = level
	return c
}

func (c *Config) WithLogFormat(format string) *Config {
	c.logFormat = format
	return c
}

// Build validates the accumulated settings and returns an immutable Config.
func (c *Config) Build() (Config, error) {
	if err := validateSeed(c.seedURL); err != nil {
		return Config{}, err
	}

	switch c.originMode {
	case OriginExact, OriginSubdomains, OriginSite:
	case "":
		c.originMode = OriginExact
	default:
		return Config{}, fmt.Errorf("%w: unknown scope %q (want exact, subdomains or site)", ErrInvalidConfig, c.originMode)
	}

	if c.maxDepth < 0 {
		return Config{}, fmt.Errorf("%w: maxDepth cannot be negative", ErrInvalidConfig)
	}
	if c.maxPages < 0 {
		return Config{}, fmt.Errorf("%w: maxPages cannot be negative", ErrInvalidConfig)
	}
	if c.concurrency < 1 {
		return Config{}, fmt.Errorf("%w: concurrency must be at least 1", ErrInvalidConfig)
	}
	if c.baseDelay < 0 || c.jitter < 0 {
		return Config{}, fmt.Errorf("%w: delays cannot be negative", ErrInvalidConfig)
	}
	if c.requestsPerSecond < 0 {
		return Config{}, fmt.Errorf("%w: requestsPerSecond cannot be negative", ErrInvalidConfig)
	}
	if c.maxAttempt < 1 {
		return Config{}, fmt.Errorf("%w: maxAttempt must be at least 1", ErrInvalidConfig)
	}
	if c.backoffMultiplier < 1 {
		return Config{}, fmt.Errorf("%w: backoff multiplier must be at least 1", ErrInvalidConfig)
	}
	if c.timeout <= 0 {
		return Config{}, fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	if c.maxBodyBytes <= 0 {
		return Config{}, fmt.Errorf("%w: maxBodyBytes must be positive", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.outputPath) == "" && !c.dryRun {
		return Config{}, fmt.Errorf("%w: outputPath cannot be empty", ErrInvalidConfig)
	}

	return *c, nil
}

// Validate runs the Build checks against c. A Config returned by Build
// always passes; the zero Config does not.
func (c Config) Validate() error {
	_, err := c.Build()
	return err
}

func (c Config) SeedURL() url.URL {
	return c.seedURL
}

func (c Config) OriginMode() OriginMode {
	return c.originMode
}

func (c Config) AllowedHosts() map[string]struct{} {
	hosts := make(map[string]struct{}, len(c.allowedHosts))
	for k, v := range c.allowedHosts {
		hosts[k] = v
	}
	return hosts
}

func (c Config) AllowedPathPrefix() []string {
	prefixes := make([]string, len(c.allowedPathPrefix))
	copy(prefixes, c.allowedPathPrefix)
	return prefixes
}

func (c Config) ExcludedExtensions() []string {
	exts := make([]string, len(c.excludedExtensions))
	copy(exts, c.excludedExtensions)
	return exts
}

func (c Config) MaxDepth() int {
	return c.maxDepth
}

func (c Config) MaxPages() int {
	return c.maxPages
}

func (c Config) Concurrency() int {
	return c.concurrency
}

func (c Config) BaseDelay() time.Duration {
	return c.baseDelay
}

func (c Config) Jitter() time.Duration {
	return c.jitter
}

func (c Config) RandomSeed() int64 {
	return c.randomSeed
}

func (c Config) RequestsPerSecond() float64 {
	return c.requestsPerSecond
}

func (c Config) RespectRobots() bool {
	return c.respectRobots
}

func (c Config) MaxAttempt() int {
	return c.maxAttempt
}

func (c Config) BackoffInitialDuration() time.Duration {
	return c.backoffInitialDuration
}

func (c Config) BackoffMultiplier() float64 {
	return c.backoffMultiplier
}

func (c Config) BackoffMaxDuration() time.Duration {
	return c.backoffMaxDuration
}

func (c Config) Timeout() time.Duration {
	return c.timeout
}

func (c Config) UserAgent() string {
	return c.userAgent
}

func (c Config) MaxBodyBytes() int64 {
	return c.maxBodyBytes
}

func (c Config) OutputPath() string {
	return c.outputPath
}

func (c Config) DBPath() string {
	return c.dbPath
}

func (c Config) SnapshotDir() string {
	return c.snapshotDir
}

func (c Config) DryRun() bool {
	return c.dryRun
}

func (c Config) LogLevel() string {
	return c.logLevel
}

func (c Config) LogFormat() string {
	return c.logFormat
}
