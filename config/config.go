package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

// ErrInvalid is returned when a configuration value cannot be used
var ErrInvalid = errors.New("invalid configuration")

// FeedList is the set of configured source URLs. It is stored in the config
// file as a single comma-joined string.
type FeedList []string

// ParseFeedList splits a comma-separated list of URLs. Line breaks are
// stripped and blank entries dropped.
func ParseFeedList(s string) FeedList {
	s = strings.NewReplacer("\r\n", "", "\n", "", "\r", "").Replace(s)
	parts := lo.Map(strings.Split(s, ","), func(part string, _ int) string {
		return strings.TrimSpace(part)
	})
	return lo.Filter(parts, func(part string, _ int) bool {
		return part != ""
	})
}

func (f FeedList) String() string {
	return strings.Join(f, ",")
}

func (f FeedList) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *FeedList) UnmarshalText(text []byte) error {
	*f = ParseFeedList(string(text))
	return nil
}

func (f FeedList) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

// UnmarshalJSON accepts both the comma-joined form and a plain array
func (f *FeedList) UnmarshalJSON(data []byte) error {
	var joined string
	if err := json.Unmarshal(data, &joined); err == nil {
		*f = ParseFeedList(joined)
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("feeds must be a string or an array of strings: %w", err)
	}
	*f = ParseFeedList(strings.Join(list, ","))
	return nil
}

// Config is the site configuration. It is resolved once at startup and not
// modified afterwards.
type Config struct {
	Port              int      `json:"port" toml:"port"`
	Title             string   `json:"title" toml:"title"`
	Description       string   `json:"description" toml:"description"`
	PostsPerPage      int      `json:"posts_per_page" toml:"posts_per_page"`
	Feeds             FeedList `json:"feeds" toml:"feeds"`
	UpdateIntervalMin int      `json:"update_interval_min" toml:"update_interval_min"`
}

func Default() Config {
	return Config{
		Port:              8080,
		Title:             "RSS Feed",
		Description:       "RSS Feed Page",
		PostsPerPage:      32,
		Feeds:             FeedList{},
		UpdateIntervalMin: 15,
	}
}

// UpdateInterval is the time between two refresh cycles
func (c Config) UpdateInterval() time.Duration {
	return time.Duration(c.UpdateIntervalMin) * time.Minute
}

func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalid, c.Port)
	}
	if c.PostsPerPage <= 0 {
		return fmt.Errorf("%w: posts_per_page must be positive, got %d", ErrInvalid, c.PostsPerPage)
	}
	if c.UpdateIntervalMin <= 0 {
		return fmt.Errorf("%w: update_interval_min must be positive, got %d", ErrInvalid, c.UpdateIntervalMin)
	}
	return nil
}

// FromEnv returns the defaults overridden by PORT, TITLE, DESCRIPTION,
// POSTS_PER_PAGE, FEEDS and UPDATE_INTERVAL_MIN.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Default()

	ints := []struct {
		key string
		dst *int
	}{
		{"PORT", &cfg.Port},
		{"POSTS_PER_PAGE", &cfg.PostsPerPage},
		{"UPDATE_INTERVAL_MIN", &cfg.UpdateIntervalMin},
	}
	for _, i := range ints {
		v := getenv(i.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return cfg, fmt.Errorf("%w: %s=%q is not a number", ErrInvalid, i.key, v)
		}
		*i.dst = n
	}

	if v := getenv("TITLE"); v != "" {
		cfg.Title = v
	}
	if v := getenv("DESCRIPTION"); v != "" {
		cfg.Description = v
	}
	if v := getenv("FEEDS"); v != "" {
		cfg.Feeds = ParseFeedList(v)
	}

	return cfg, nil
}

// Resolve builds the configuration from the environment and the config file
// at path. A missing file is created. An existing file overrides the
// environment key by key, except that feeds from FEEDS missing in the file
// are appended. The merged result is written back to path.
func Resolve(path string, getenv func(string) string) (Config, error) {
	cfg, err := FromEnv(getenv)
	if err != nil {
		return cfg, err
	}
	envFeeds := cfg.Feeds

	err = decodeFile(path, &cfg)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.WithFields(log.Fields{
			"path": path,
		}).Info("Config file not found, creating it")
	case err != nil:
		return cfg, err
	default:
		for _, feed := range envFeeds {
			if !lo.Contains(cfg.Feeds, feed) {
				cfg.Feeds = append(cfg.Feeds, feed)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	if err := Write(path, cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Load reads the config file at path on top of the defaults without
// consulting the environment or rewriting the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if err := decodeFile(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if isToml(path) {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("error parsing config file %s: %w", path, err)
		}
		return nil
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("error parsing config file %s: %w", path, err)
	}
	return nil
}

// Write stores cfg at path, as TOML when path ends in .toml and JSON otherwise
func Write(path string, cfg Config) error {
	var blob []byte
	var err error
	if isToml(path) {
		blob, err = toml.Marshal(cfg)
	} else {
		blob, err = json.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory %s: %w", dir, err)
		}
	}

	if err := os.WriteFile(path, blob, 0o644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

func isToml(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}
