package domain

import (
	"strings"
	"time"
)

// Config represents the main application configuration
type Config struct {
	GDC     GDCConfig     `mapstructure:"gdc"`
	Cohort  CohortConfig  `mapstructure:"cohort"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Output  OutputConfig  `mapstructure:"output"`
	Store   StoreConfig   `mapstructure:"store"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// GDCConfig represents the remote metadata catalog configuration
type GDCConfig struct {
	BaseURL        string               `mapstructure:"base_url"`
	Timeout        time.Duration        `mapstructure:"timeout"`
	RateLimit      int                  `mapstructure:"rate_limit"` // requests per second
	PageSize       int                  `mapstructure:"page_size"`
	UserAgent      string               `mapstructure:"user_agent"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
}

// CohortConfig describes which cohort and modalities a build covers
type CohortConfig struct {
	Project       string                    `mapstructure:"project"`
	PatientKey    string                    `mapstructure:"patient_key"` // submitter_id or case_id
	Attributes    []string                  `mapstructure:"attributes"`
	ParallelFetch bool                      `mapstructure:"parallel_fetch"`
	Modalities    map[string]ModalityFilter `mapstructure:"modalities"`
}

// Patient key fields on a GDC case.
const (
	PatientKeySubmitterID = "submitter_id"
	PatientKeyCaseID      = "case_id"
)

// ModalityFilters returns the configured filter per modality in tag order,
// with the cohort project filled in where a filter leaves it empty. Missing
// modalities come back with only Modality and Project set.
func (c CohortConfig) ModalityFilters(project string) []ModalityFilter {
	if project == "" {
		project = c.Project
	}
	filters := make([]ModalityFilter, 0, len(Modalities))
	for _, m := range Modalities {
		f := c.Modalities[string(m)]
		f.Modality = m
		if f.Project == "" {
			f.Project = project
		}
		filters = append(filters, f)
	}
	return filters
}

// CacheConfig represents catalog response cache configuration
type CacheConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MemorySize  int           `mapstructure:"memory_size"`
	MemoryTTL   time.Duration `mapstructure:"memory_ttl"`
	RedisURL    string        `mapstructure:"redis_url"`
	DefaultTTL  time.Duration `mapstructure:"default_ttl"`
	MaxRetries  int           `mapstructure:"max_retries"`
	PoolSize    int           `mapstructure:"pool_size"`
	PoolTimeout time.Duration `mapstructure:"pool_timeout"`
}

// OutputConfig represents manifest file output configuration
type OutputConfig struct {
	Path              string `mapstructure:"path"`
	AbsentPlaceholder string `mapstructure:"absent_placeholder"`
}

// ResolvePath substitutes {project} in the configured path.
func (o OutputConfig) ResolvePath(path, project string) string {
	if path == "" {
		path = o.Path
	}
	return strings.ReplaceAll(path, "{project}", project)
}

// StoreConfig represents run history storage configuration
type StoreConfig struct {
	Driver       string `mapstructure:"driver"` // none, sqlite, postgres
	SQLitePath   string `mapstructure:"sqlite_path"`
	PostgresDSN  string `mapstructure:"postgres_dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// Store drivers.
const (
	StoreDriverNone     = "none"
	StoreDriverSQLite   = "sqlite"
	StoreDriverPostgres = "postgres"
)

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
