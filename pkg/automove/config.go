package automove

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Move source modes.
const (
	ModeEngine    = "engine"
	ModeHeuristic = "heuristic"
)

type Config struct {
	Engine        string   `json:"engine"`
	Args          []string `json:"args"`
	Mode          string   `json:"mode"`
	Variant       string   `json:"variant"`
	SearchDepth   int      `json:"searchDepth"`
	TimeoutMillis int      `json:"timeout_ms"`
	Journal       string   `json:"journal"`
	LogLevel      string   `json:"log_level"`
	Control       string   `json:"control"`
}

// Environment variables that override config.json.
const (
	envEngine   = "AUTOMOVE_ENGINE"
	envMode     = "AUTOMOVE_MODE"
	envVariant  = "AUTOMOVE_VARIANT"
	envDepth    = "AUTOMOVE_DEPTH"
	envTimeout  = "AUTOMOVE_TIMEOUT_MS"
	envJournal  = "AUTOMOVE_JOURNAL"
	envLogLevel = "AUTOMOVE_LOG_LEVEL"
	envControl  = "AUTOMOVE_CONTROL"
)

func FindConfigPath() (string, string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", "", err
	}
	dir := cwd
	for {
		path := filepath.Join(dir, "config.json")
		if _, err := os.Stat(path); err == nil {
			return path, filepath.Dir(path), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", "", fmt.Errorf("config.json not found from %s", cwd)
}

func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg from the environment. Variables in the .env file
// at dotenvPath are used when the process environment does not set them;
// a missing file is not an error.
func (c *Config) ApplyEnv(dotenvPath string) error {
	fileEnv := map[string]string{}
	if dotenvPath != "" {
		env, err := godotenv.Read(dotenvPath)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("read %s: %w", dotenvPath, err)
		}
		if env != nil {
			fileEnv = env
		}
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileEnv[key]
		return v, ok
	}

	if v, ok := lookup(envEngine); ok {
		c.Engine = v
	}
	if v, ok := lookup(envMode); ok {
		c.Mode = v
	}
	if v, ok := lookup(envVariant); ok {
		c.Variant = v
	}
	if v, ok := lookup(envJournal); ok {
		c.Journal = v
	}
	if v, ok := lookup(envLogLevel); ok {
		c.LogLevel = v
	}
	if v, ok := lookup(envControl); ok {
		c.Control = v
	}
	if v, ok := lookup(envDepth); ok {
		depth, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", envDepth, err)
		}
		c.SearchDepth = depth
	}
	if v, ok := lookup(envTimeout); ok {
		ms, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", envTimeout, err)
		}
		c.TimeoutMillis = ms
	}
	return nil
}

// ResolveMode returns the configured mode, defaulting to engine mode when
// an engine path is set and heuristic mode otherwise.
func (c Config) ResolveMode() (string, error) {
	switch strings.ToLower(strings.TrimSpace(c.Mode)) {
	case "":
		if c.Engine != "" {
			return ModeEngine, nil
		}
		return ModeHeuristic, nil
	case ModeEngine:
		if c.Engine == "" {
			return "", errors.New("engine mode requires an engine path")
		}
		return ModeEngine, nil
	case ModeHeuristic:
		return ModeHeuristic, nil
	default:
		return "", fmt.Errorf("unknown mode %q", c.Mode)
	}
}

// Validate checks option ranges.
func (c Config) Validate() error {
	if _, err := c.ResolveMode(); err != nil {
		return err
	}
	if c.SearchDepth < 0 {
		return fmt.Errorf("searchDepth must be > 0, got %d", c.SearchDepth)
	}
	if c.TimeoutMillis < 0 {
		return fmt.Errorf("timeout_ms must be >= 0, got %d", c.TimeoutMillis)
	}
	return nil
}

// Options returns the runtime options described by the config.
func (c Config) Options() Options {
	return Options{Variant: c.Variant, SearchDepth: c.SearchDepth}
}

// Timeout returns the per-search timeout, zero meaning the default.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMillis) * time.Millisecond
}

// ResolveEnginePath makes a relative engine path relative to root.
func ResolveEnginePath(cfgEngine, root string) (string, error) {
	if cfgEngine == "" {
		return "", errors.New("engine path is required")
	}
	if filepath.IsAbs(cfgEngine) {
		return cfgEngine, nil
	}
	return filepath.Join(root, cfgEngine), nil
}
