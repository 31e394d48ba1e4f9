package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v3"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBPath string `long:"db-path" env:"DATABASE_PATH" description:"SQLite database file (default: ~/.youtube-history-dashboard/data/youtube_history.db)"`

	// HTTP configuration
	Host          string `long:"host" env:"HOST" default:"0.0.0.0" description:"HTTP listen address"`
	Port          string `long:"port" env:"PORT" default:"3000" description:"HTTP server port"`
	BaseUrl       string `long:"base-url" env:"BASE_URL" description:"Public base URL reported by /api/server-info (e.g., http://192.168.0.10:3000)"`
	PublicDir     string `long:"public-dir" env:"PUBLIC_PATH" description:"Directory with the built dashboard UI"`
	MaxImportSize int64  `long:"max-import-size" env:"MAX_IMPORT_SIZE" default:"104857600" description:"Maximum accepted import body in bytes"`

	// Import configuration
	OnConflict      string `long:"on-conflict" env:"ON_CONFLICT" default:"reject" choice:"reject" choice:"replace" description:"Import behaviour when history already exists"`
	ImportBatchSize int    `long:"import-batch-size" env:"IMPORT_BATCH_SIZE" default:"1000" description:"Rows per insert batch"`
	SeedFile        string `long:"seed-file" env:"SEED_FILE" description:"Takeout HTML file to import on startup"`

	// Feed configuration
	FeedItems int `long:"feed-items" env:"FEED_ITEMS" default:"50" description:"Number of entries in the history RSS feed"`

	// Application metadata
	LogFormat  string `long:"log-format" env:"LOG_FORMAT" default:"text" choice:"text" choice:"json" choice:"logfmt" description:"Log output format"`
	Debug      bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
	ConfigFile string `long:"config" env:"CONFIG_FILE" description:"Optional YAML file with option values keyed by long option name"`
}

// Load parses args and environment variables, optionally layering a YAML
// config file underneath them. It returns nil, nil when help was requested.
func Load(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if isHelp(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if raw.ConfigFile != "" {
		fileArgs, err := loadFileArgs(parser, raw.ConfigFile)
		if err != nil {
			return nil, err
		}

		// File values go first so that explicit flags win.
		raw = rawCfg{}
		parser = flags.NewParser(&raw, flags.Default)
		if _, err := parser.ParseArgs(append(fileArgs, args...)); err != nil {
			if isHelp(err) {
				return nil, nil
			}
			return nil, fmt.Errorf("failed to parse configuration: %w", err)
		}
	}

	dbPath := raw.DBPath
	if dbPath == "" {
		var err error
		dbPath, err = defaultDBPath()
		if err != nil {
			return nil, err
		}
	}

	cfg := &Cfg{
		DBPath:          dbPath,
		Host:            raw.Host,
		Port:            raw.Port,
		BaseUrl:         raw.BaseUrl,
		PublicDir:       raw.PublicDir,
		MaxImportSize:   raw.MaxImportSize,
		OnConflict:      raw.OnConflict,
		ImportBatchSize: raw.ImportBatchSize,
		SeedFile:        raw.SeedFile,
		FeedItems:       raw.FeedItems,
		LogFormat:       raw.LogFormat,
		Debug:           raw.Debug,
		Version:         GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func isHelp(err error) bool {
	var flagsErr *flags.Error
	return errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp
}

// loadFileArgs turns a YAML config file into command-line style arguments.
// Keys whose environment variable is set are skipped; env beats the file.
func loadFileArgs(parser *flags.Parser, path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	values := map[string]string{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var args []string
	for _, key := range keys {
		if key == "config" {
			continue
		}

		opt := parser.FindOptionByLongName(key)
		if opt == nil {
			return nil, fmt.Errorf("unknown configuration key %q in %s", key, path)
		}

		if _, ok := os.LookupEnv(opt.EnvDefaultKey); ok && opt.EnvDefaultKey != "" {
			continue
		}

		value := values[key]
		if _, isBool := opt.Value().(bool); isBool {
			if value == "true" || value == "yes" || value == "1" {
				args = append(args, "--"+key)
			}
			continue
		}

		args = append(args, fmt.Sprintf("--%s=%s", key, value))
	}

	return args, nil
}

func validate(cfg *Cfg) error {
	positiveFields := map[string]int64{
		"import batch size": int64(cfg.ImportBatchSize),
		"max import size":   cfg.MaxImportSize,
		"feed items":        int64(cfg.FeedItems),
	}

	for fieldName, fieldValue := range positiveFields {
		if fieldValue <= 0 {
			return fmt.Errorf("%s must be positive", fieldName)
		}
	}

	if cfg.Port == "" {
		return fmt.Errorf("port is required")
	}

	return nil
}

func defaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".youtube-history-dashboard", "data", "youtube_history.db"), nil
}
