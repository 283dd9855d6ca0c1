package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"visitcheck/internal/configutil"
	"visitcheck/internal/crawler"
	"visitcheck/internal/scrapers/esccapi"
	"visitcheck/internal/telemetry"
	"visitcheck/internal/visit"
)

const (
	RecordsFile = "visit_records.csv"

	defaultTimeoutSeconds = 15
)

type Config struct {
	BaseURL string `json:"base_url"`
	// Cookie is the Cookie header of a logged in portal session.
	Cookie            string  `json:"cookie"`
	Project           int     `json:"project"`
	Wave              int     `json:"wave"`
	Workers           int     `json:"workers"`
	TimeoutSeconds    int     `json:"timeout_seconds"`
	RequestsPerSecond float64 `json:"requests_per_second"`

	// DumpDir keeps a copy of every portal response for debugging.
	DumpDir      string `json:"dump_dir"`
	OutputDir    string `json:"output_dir"`
	HolidaysPath string `json:"holidays_path"`

	Db        visit.DBConfig   `json:"db"`
	Telemetry telemetry.Config `json:"telemetry"`
	Debug     bool             `json:"debug"`
}

// readConfig reads the config file, a missing file leaves every setting at
// its default. With search set the file is also looked for in the parent
// directories.
func readConfig(path string, search bool) (Config, error) {
	read := configutil.ReadConfig[Config]
	if search {
		read = configutil.ReadRecursively[Config]
	}
	cfg, err := read(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("no config file, using defaults", "path", path)
		err = nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if cfg.OutputDir == "" {
		cfg.OutputDir = "output"
	}
	if cfg.Workers <= 0 {
		cfg.Workers = crawler.DefaultWorkers
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = defaultTimeoutSeconds
	}
	return cfg, nil
}

func (c Config) recordsPath() string {
	return filepath.Join(c.OutputDir, RecordsFile)
}

func (c Config) clientConfig() (esccapi.Config, error) {
	if c.BaseURL == "" {
		return esccapi.Config{}, fmt.Errorf("base_url is not configured")
	}
	if c.Project <= 0 || c.Wave <= 0 {
		return esccapi.Config{}, fmt.Errorf("project and wave must be configured")
	}
	return esccapi.Config{
		BaseURL:           c.BaseURL,
		Cookie:            c.Cookie,
		Project:           c.Project,
		Wave:              c.Wave,
		Timeout:           time.Duration(c.TimeoutSeconds) * time.Second,
		RequestsPerSecond: c.RequestsPerSecond,
		DumpDir:           c.DumpDir,
	}, nil
}
