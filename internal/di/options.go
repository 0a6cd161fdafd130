package di

import (
	"flag"

	"github.com/mikey/mbox-contacts/internal/config"
)

// Options contains the command line flags shared by every subcommand
type Options struct {
	ConfigFile   string
	Verbose      bool
	JSONLog      bool
	DatabaseType string
	SQLitePath   string
	Timezone     string
	OwnerEmail   string
}

// RegisterFlags binds the shared flags to fs
func RegisterFlags(fs *flag.FlagSet) *Options {
	opts := &Options{}
	fs.StringVar(&opts.ConfigFile, "config", "", "Path to config file")
	fs.BoolVar(&opts.Verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&opts.JSONLog, "json-log", false, "Output logs in JSON format")
	fs.StringVar(&opts.DatabaseType, "db-type", "", "Store type (memory, sqlite, mysql, postgres)")
	fs.StringVar(&opts.SQLitePath, "db", "", "Path to the SQLite database")
	fs.StringVar(&opts.Timezone, "timezone", "", "Time zone used to render and read dates")
	return opts
}

// apply overrides configuration values with the flags that were set
func (o *Options) apply(cfg *config.Config) {
	if o.Verbose {
		cfg.Set("logging.level", "debug")
	}
	if o.JSONLog {
		cfg.Set("logging.format", "json")
	}
	if o.DatabaseType != "" {
		cfg.Set("database.type", o.DatabaseType)
	}
	if o.SQLitePath != "" {
		cfg.Set("database.sqlite_path", o.SQLitePath)
	}
	if o.Timezone != "" {
		cfg.Set("export.timezone", o.Timezone)
	}
	if o.OwnerEmail != "" {
		cfg.Set("ingest.owner_email", o.OwnerEmail)
	}
}
