// Package config reads server settings from flags, falling back to
// environment variables and then to built-in defaults.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongodb"
)

const defaultSQLitePath = "mbaromire.sqlite3"

// DefaultCities are offered for filtering when CITIES is not set.
var DefaultCities = []string{"Tirana", "Durrës", "Shkodër", "Vlorë", "Elbasan"}

// Config holds everything the server needs to start.
type Config struct {
	Addr              string
	Driver            string
	DatabaseURL       string
	DatabaseName      string
	AdminCode         string
	Cities            []string
	OTLPEndpoint      string
	MongoTransactions bool
	AllowDegraded     bool
	LogPath           string
}

const usage = `Usage: mbaromire [flags]

Flags:
  -a, -addr <host:port>     listen address (env PORT, default: :8000)
  -s, -store <driver>       sqlite, postgres or mongodb (env DATABASE_DRIVER, default: sqlite)
  -d, -db <url>             database path or URL (env DATABASE_URL, default: mbaromire.sqlite3)
  -n, -db-name <name>       MongoDB database name (env DATABASE_NAME, default: mbaromire)
  -degraded                 serve with an unavailable store instead of exiting (env ALLOW_DEGRADED)
  -l, -log <path>           log file path (default: no file, stdout/stderr only)
  -h, -help                 show this help and exit

Environment:
  ADMIN_CODE                    admin code for offer management (default: admin123, empty disables)
  CITIES                        comma-separated city list
  OTEL_EXPORTER_OTLP_ENDPOINT   OTLP/HTTP collector host:port; tracing is off when unset
  MONGO_TRANSACTIONS            use MongoDB multi-document transactions (needs a replica set)
`

// Load parses args with defaults taken from lookupEnv. It returns
// flag.ErrHelp if help was requested.
func Load(args []string, lookupEnv func(string) (string, bool)) (*Config, error) {
	env := func(key, def string) string {
		if v, ok := lookupEnv(key); ok {
			return v
		}
		return def
	}

	envAddr := ":8000"
	if port := env("PORT", ""); port != "" {
		envAddr = ":" + port
	}
	envDegraded, err := parseBool("ALLOW_DEGRADED", env("ALLOW_DEGRADED", "false"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		AdminCode:    env("ADMIN_CODE", "admin123"),
		Cities:       parseList(env("CITIES", "")),
		OTLPEndpoint: env("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
	if len(cfg.Cities) == 0 {
		cfg.Cities = DefaultCities
	}
	cfg.MongoTransactions, err = parseBool("MONGO_TRANSACTIONS", env("MONGO_TRANSACTIONS", "false"))
	if err != nil {
		return nil, err
	}

	fs := flag.NewFlagSet("mbaromire", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.Addr, "addr", envAddr, "")
	fs.StringVar(&cfg.Addr, "a", envAddr, "")

	driver := env("DATABASE_DRIVER", DriverSQLite)
	fs.StringVar(&cfg.Driver, "store", driver, "")
	fs.StringVar(&cfg.Driver, "s", driver, "")

	dbURL := env("DATABASE_URL", "")
	fs.StringVar(&cfg.DatabaseURL, "db", dbURL, "")
	fs.StringVar(&cfg.DatabaseURL, "d", dbURL, "")

	dbName := env("DATABASE_NAME", "mbaromire")
	fs.StringVar(&cfg.DatabaseName, "db-name", dbName, "")
	fs.StringVar(&cfg.DatabaseName, "n", dbName, "")

	fs.BoolVar(&cfg.AllowDegraded, "degraded", envDegraded, "")

	fs.StringVar(&cfg.LogPath, "log", "", "")
	fs.StringVar(&cfg.LogPath, "l", "", "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, usage)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	c.Driver = strings.ToLower(strings.TrimSpace(c.Driver))
	switch c.Driver {
	case DriverSQLite:
		if c.DatabaseURL == "" {
			c.DatabaseURL = defaultSQLitePath
		}
	case DriverPostgres, DriverMongo:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%s store needs DATABASE_URL or -db", c.Driver)
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Driver)
	}

	if c.Driver == DriverMongo && c.DatabaseName == "" {
		return errors.New("mongodb store needs a database name")
	}
	if c.Addr == "" {
		return errors.New("listen address must not be empty")
	}
	return nil
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseBool(key, s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
