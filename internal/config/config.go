// Package config loads the datrec YAML configuration file.
//
//	database:
//	  driver: sqlite
//	  dsn: file:datrec.db
//	logger:
//	  level: debug
//	server:
//	  addr: ":8080"
//	archive:
//	  enabled: true
//	  endpoint: localhost:9000
//	  bucket: datrec-archive
//
// Omitted keys keep the defaults of database.DefaultConfig,
// logger.DefaultConfig and filestore.DefaultConfig.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/koustreak/datrec/internal/database"
	"github.com/koustreak/datrec/internal/errs"
	"github.com/koustreak/datrec/internal/filestore"
	"github.com/koustreak/datrec/internal/logger"
)

// Config is the whole configuration file.
type Config struct {
	Database database.Config `yaml:"database"`
	Logger   logger.Config   `yaml:"logger"`
	Server   Server          `yaml:"server"`
	Archive  Archive         `yaml:"archive"`
}

// Server configures the HTTP surface.
type Server struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxPageSize caps the limit query parameter of row listings.
	MaxPageSize int `yaml:"max_page_size"`
}

// Archive configures the audit archive. It is off unless Enabled is set.
type Archive struct {
	Enabled          bool   `yaml:"enabled"`
	Prefix           string `yaml:"prefix"`
	filestore.Config `yaml:",inline"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Database: *database.DefaultConfig("file:datrec.db"),
		Logger:   *logger.DefaultConfig(),
		Server: Server{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxPageSize:     500,
		},
		Archive: Archive{
			Prefix: "inserts",
			Config: *filestore.DefaultConfig("localhost:9000", "", ""),
		},
	}
}

// Load reads and validates the file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errs.Wrap(errs.ErrKindNotFound, fmt.Sprintf("config: open %s", path), err)
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindPermissionDenied, fmt.Sprintf("config: open %s", path), err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes YAML from r over Default and validates the result.
// Unknown keys are rejected.
func Parse(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "config: read", err)
	}

	cfg := Default()
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "config: decode", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values Parse cannot catch by type alone.
func (c *Config) Validate() error {
	if c.Database.Driver == "" {
		c.Database.Driver = database.DriverSQLite
	}
	if _, ok := c.Database.Driver.Dialect(); !ok {
		return invalid("database.driver %q is not one of sqlite, postgres, mysql, duckdb", c.Database.Driver)
	}
	if c.Database.DSN == "" && c.Database.Driver != database.DriverDuckDB {
		return invalid("database.dsn is required for driver %q", c.Database.Driver)
	}
	if c.Database.QueryTimeout < 0 {
		return invalid("database.query_timeout must not be negative")
	}

	switch c.Logger.Format {
	case "json", "console":
	default:
		return invalid("logger.format %q is not one of json, console", c.Logger.Format)
	}

	if c.Server.Addr == "" {
		return invalid("server.addr is required")
	}
	if c.Server.MaxPageSize <= 0 {
		return invalid("server.max_page_size must be positive")
	}

	if c.Archive.Enabled {
		if c.Archive.Provider != filestore.ProviderMinIO {
			return invalid("archive.provider %q is not supported", c.Archive.Provider)
		}
		if c.Archive.Endpoint == "" || c.Archive.Bucket == "" {
			return invalid("archive.endpoint and archive.bucket are required when the archive is enabled")
		}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return errs.New(errs.ErrKindInvalidInput, "config: "+fmt.Sprintf(format, args...))
}
