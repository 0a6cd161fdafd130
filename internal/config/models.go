package config

import (
	"fmt"
	"time"
)

// DatabaseConfig represents the configuration of the contact store
type DatabaseConfig struct {
	Type        string
	SQLitePath  string
	MySQLDSN    string
	PostgresDSN string
}

// IngestConfig represents the configuration of message ingestion
type IngestConfig struct {
	HeaderFields []string
	OwnerEmail   string
}

// ClassifyConfig represents the marker and category rules
type ClassifyConfig struct {
	PersonalDomains    []string
	ListservHeaders    []string
	AutomationKeywords []string
}

// ExportConfig represents the configuration of contact exports
type ExportConfig struct {
	ExcludedDomain string
	Location       *time.Location
	FoldListserv   bool
}

// GetDatabase returns the database configuration
func (c *Config) GetDatabase() DatabaseConfig {
	return DatabaseConfig{
		Type:        c.GetString("database.type"),
		SQLitePath:  c.GetString("database.sqlite_path"),
		MySQLDSN:    c.GetString("database.mysql_dsn"),
		PostgresDSN: c.GetString("database.postgres_dsn"),
	}
}

// GetIngest returns the ingest configuration
func (c *Config) GetIngest() IngestConfig {
	return IngestConfig{
		HeaderFields: c.GetStringSlice("ingest.header_fields"),
		OwnerEmail:   c.GetString("ingest.owner_email"),
	}
}

// GetClassify returns the classification configuration
func (c *Config) GetClassify() ClassifyConfig {
	return ClassifyConfig{
		PersonalDomains:    c.GetStringSlice("classify.personal_domains"),
		ListservHeaders:    c.GetStringSlice("classify.listserv_headers"),
		AutomationKeywords: c.GetStringSlice("classify.automation_keywords"),
	}
}

// GetExport returns the export configuration
func (c *Config) GetExport() (ExportConfig, error) {
	loc, err := c.GetLocation("export.timezone")
	if err != nil {
		return ExportConfig{}, fmt.Errorf("invalid export timezone: %w", err)
	}
	return ExportConfig{
		ExcludedDomain: c.GetString("export.excluded_domain"),
		Location:       loc,
		FoldListserv:   c.GetBool("export.fold_listserv"),
	}, nil
}
