// Package config loads depscout configuration from a TOML file and the
// environment. Flags set on the CLI override file values; tokens come from
// the environment only and are never written to disk.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/depscout/depscout/pkg/errors"
)

// DefaultFileName is the config file looked up in the working directory
// when no --config flag is given.
const DefaultFileName = "depscout.toml"

// Config is the full depscout configuration.
type Config struct {
	// Org is the organization whose repositories are scanned.
	Org string `toml:"org"`

	// WorkDir is where repository mirrors are cloned. Defaults to a
	// depscout subdirectory of the user cache dir.
	WorkDir string `toml:"work_dir"`

	// Ecosystems restricts scanning to the named ecosystems. Empty means all.
	Ecosystems []string `toml:"ecosystems"`

	GitHub   GitHub   `toml:"github"`
	Limits   Limits   `toml:"limits"`
	Registry Registry `toml:"registry"`
	Cache    CacheCfg `toml:"cache"`
	Risk     Risk     `toml:"risk"`
}

// GitHub configures the hosting API client.
type GitHub struct {
	// BaseURL overrides the API endpoint, for GitHub Enterprise.
	BaseURL string `toml:"base_url"`

	// IncludePrivate includes private repositories in org listings.
	IncludePrivate bool `toml:"include_private"`
}

// Limits bounds resource usage during a scan.
type Limits struct {
	// MaxCommits caps commit-graph traversal per repository. When the cap
	// is hit the repository is reported with partial history coverage.
	MaxCommits int `toml:"max_commits"`

	// MaxWorkers caps concurrently processed repositories.
	MaxWorkers int `toml:"max_workers"`

	// CloneTimeoutSeconds bounds a single clone or fetch.
	CloneTimeoutSeconds int `toml:"clone_timeout_seconds"`
}

// Registry configures reconciler behavior against package registries.
type Registry struct {
	// RequestsPerSecond is the token-bucket refill rate per registry host.
	RequestsPerSecond float64 `toml:"requests_per_second"`

	// Burst is the token-bucket capacity per registry host.
	Burst int `toml:"burst"`

	// MaxAttempts bounds retries for one lookup, first try included.
	MaxAttempts int `toml:"max_attempts"`

	// TimeoutSeconds bounds one HTTP request to a registry.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// CacheCfg configures the persistent verdict cache.
type CacheCfg struct {
	// Backend selects the cache implementation: "file", "redis", or "none".
	Backend string `toml:"backend"`

	// Dir is the file backend's directory. Empty uses the default.
	Dir string `toml:"dir"`

	// FreshnessHours is how long a cached verdict is trusted before the
	// registry is queried again.
	FreshnessHours int `toml:"freshness_hours"`

	// RedisAddr is the redis backend's host:port.
	RedisAddr string `toml:"redis_addr"`

	// RedisDB is the redis logical database number.
	RedisDB int `toml:"redis_db"`
}

// Risk configures the classifier heuristics.
type Risk struct {
	// InternalPrefixes are name prefixes treated as internal naming
	// conventions for dependency-confusion detection. The org name is
	// always included implicitly.
	InternalPrefixes []string `toml:"internal_prefixes"`

	// EditDistanceThreshold is the maximum edit distance to a popular
	// package name that still counts as a typosquat candidate.
	EditDistanceThreshold int `toml:"edit_distance_threshold"`

	// PopularListPath points at a newline-delimited file of popular
	// package names per ecosystem, overriding the embedded defaults.
	// Format: one "ecosystem name" pair per line.
	PopularListPath string `toml:"popular_list_path"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Limits: Limits{
			MaxCommits:          5000,
			MaxWorkers:          4,
			CloneTimeoutSeconds: 300,
		},
		Registry: Registry{
			RequestsPerSecond: 5,
			Burst:             10,
			MaxAttempts:       4,
			TimeoutSeconds:    10,
		},
		Cache: CacheCfg{
			Backend:        "file",
			FreshnessHours: 24,
		},
		Risk: Risk{
			EditDistanceThreshold: 2,
		},
	}
}

// Load reads the config file at path and merges it over the defaults.
// An empty path tries DefaultFileName in the current directory and falls
// back to pure defaults if it doesn't exist; an explicit path must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFileName
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if explicit {
			return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "config file not found: %s", path)
		}
		return cfg, nil
	}
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config")
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", filepath.Base(path))
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks value ranges that would otherwise fail deep inside a run.
func (c Config) Validate() error {
	if c.Limits.MaxWorkers < 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "limits.max_workers must be at least 1")
	}
	if c.Limits.MaxCommits < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "limits.max_commits must not be negative")
	}
	if c.Registry.MaxAttempts < 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "registry.max_attempts must be at least 1")
	}
	if c.Registry.RequestsPerSecond <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "registry.requests_per_second must be positive")
	}
	switch c.Cache.Backend {
	case "file", "redis", "none":
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "cache.backend must be file, redis, or none")
	}
	if c.Cache.Backend == "redis" && c.Cache.RedisAddr == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "cache.redis_addr required for redis backend")
	}
	if c.Risk.EditDistanceThreshold < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "risk.edit_distance_threshold must not be negative")
	}
	return nil
}

// Token returns the GitHub API token from the environment.
func (c Config) Token() string {
	if tok := os.Getenv("DEPSCOUT_GITHUB_TOKEN"); tok != "" {
		return tok
	}
	return os.Getenv("GITHUB_TOKEN")
}
