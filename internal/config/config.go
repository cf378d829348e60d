package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/gdc-multiomics-manifest/internal/domain"
)

// EnvPrefix prefixes every environment override, e.g. MANIFEST_GDC_BASE_URL.
const EnvPrefix = "MANIFEST"

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v          *viper.Viper
	configFile string
	config     *domain.Config
}

var _ domain.ConfigManager = (*Manager)(nil)

// NewManager creates a new configuration manager. configFile may be empty,
// in which case manifest.yaml is searched in the usual locations.
func NewManager(configFile string) (*Manager, error) {
	m := &Manager{configFile: configFile}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	v := viper.New()

	if m.configFile != "" {
		v.SetConfigFile(m.configFile)
	} else {
		v.SetConfigName("manifest")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/gdc-manifest/")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional; defaults and environment cover everything
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.v = v
	m.config = config
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// GDC defaults
	v.SetDefault("gdc.base_url", "https://api.gdc.cancer.gov")
	v.SetDefault("gdc.timeout", "60s")
	v.SetDefault("gdc.rate_limit", 3)
	v.SetDefault("gdc.page_size", 5000)
	v.SetDefault("gdc.user_agent", "gdc-multiomics-manifest/1.0")
	v.SetDefault("gdc.circuit_breaker.max_requests", 3)
	v.SetDefault("gdc.circuit_breaker.interval", "30s")
	v.SetDefault("gdc.circuit_breaker.timeout", "60s")
	v.SetDefault("gdc.circuit_breaker.failure_threshold", 3)

	// Cohort defaults
	v.SetDefault("cohort.project", "TCGA-BRCA")
	v.SetDefault("cohort.patient_key", domain.PatientKeySubmitterID)
	v.SetDefault("cohort.attributes", domain.DefaultClinicalAttributes)
	v.SetDefault("cohort.parallel_fetch", true)
	modalityDefaults := map[domain.Modality][2]string{
		domain.ModalityWSI:  {"Tissue Slide", ""},
		domain.ModalityRNA:  {"RNA-Seq", ""},
		domain.ModalityMeth: {"", "DNA Methylation"},
		domain.ModalityMut:  {"", "Simple Nucleotide Variation"},
	}
	for _, m := range domain.Modalities {
		prefix := "cohort.modalities." + string(m)
		v.SetDefault(prefix+".experimental_strategy", modalityDefaults[m][0])
		v.SetDefault(prefix+".data_category", modalityDefaults[m][1])
		v.SetDefault(prefix+".project", "")
	}

	// Cache defaults
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.memory_size", 256)
	v.SetDefault("cache.memory_ttl", "15m")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.default_ttl", "24h")
	v.SetDefault("cache.max_retries", 3)
	v.SetDefault("cache.pool_size", 10)
	v.SetDefault("cache.pool_timeout", "4s")

	// Output defaults
	v.SetDefault("output.path", "{project}_Full_MultiOmics_WSI_Manifest.csv")
	v.SetDefault("output.absent_placeholder", "")

	// Store defaults
	v.SetDefault("store.driver", domain.StoreDriverNone)
	v.SetDefault("store.sqlite_path", filepath.Join(DefaultDataDir(), "runs.db"))
	v.SetDefault("store.postgres_dsn", "")
	v.SetDefault("store.max_open_conns", 10)

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "10m")
	v.SetDefault("server.idle_timeout", "120s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stderr")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetGDCConfig returns catalog configuration
func (m *Manager) GetGDCConfig() *domain.GDCConfig {
	return &m.config.GDC
}

// GetCohortConfig returns cohort configuration
func (m *Manager) GetCohortConfig() *domain.CohortConfig {
	return &m.config.Cohort
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// ConfigFileUsed returns the file the configuration was read from, if any.
func (m *Manager) ConfigFileUsed() string {
	return m.v.ConfigFileUsed()
}

// Override sets a value with the highest precedence and re-decodes the
// configuration. Used for command line flags.
func (m *Manager) Override(key string, value interface{}) error {
	m.v.Set(key, value)
	config := &domain.Config{}
	if err := m.v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}
	m.config = config
	return nil
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	return Validate(m.config)
}

// Validate checks a decoded configuration.
func Validate(config *domain.Config) error {
	if config.GDC.BaseURL == "" {
		return domain.NewValidationError("gdc.base_url", "GDC base URL is required", config.GDC.BaseURL)
	}
	if config.GDC.RateLimit <= 0 {
		return domain.NewValidationError("gdc.rate_limit", fmt.Sprintf("invalid GDC rate limit: %d", config.GDC.RateLimit), config.GDC.RateLimit)
	}
	if config.GDC.PageSize <= 0 {
		return domain.NewValidationError("gdc.page_size", fmt.Sprintf("invalid GDC page size: %d", config.GDC.PageSize), config.GDC.PageSize)
	}

	// Validate cohort configuration
	switch config.Cohort.PatientKey {
	case domain.PatientKeySubmitterID, domain.PatientKeyCaseID:
	default:
		return domain.NewValidationError("cohort.patient_key", "invalid patient key: "+config.Cohort.PatientKey, config.Cohort.PatientKey)
	}
	for key := range config.Cohort.Modalities {
		if _, err := domain.ParseModality(key); err != nil {
			return domain.NewValidationError("cohort.modalities", "invalid cohort modality: "+err.Error(), key)
		}
	}
	if len(config.Cohort.Attributes) == 0 {
		return domain.NewValidationError("cohort.attributes", "at least one clinical attribute is required", config.Cohort.Attributes)
	}
	seen := make(map[string]bool, len(config.Cohort.Attributes))
	for _, a := range config.Cohort.Attributes {
		if !domain.IsKnownClinicalAttribute(a) {
			return domain.NewValidationError("cohort.attributes", "unknown clinical attribute: "+a, a)
		}
		if seen[a] {
			return domain.NewValidationError("cohort.attributes", "duplicate clinical attribute: "+a, a)
		}
		seen[a] = true
	}
	if config.Cohort.Project != "" {
		if err := domain.ValidateProjectID(config.Cohort.Project); err != nil {
			return err
		}
		for _, f := range config.Cohort.ModalityFilters("") {
			if err := f.Validate(); err != nil {
				return err
			}
		}
	}

	// Validate cache configuration
	if config.Cache.Enabled && config.Cache.MemorySize <= 0 && config.Cache.RedisURL == "" {
		return domain.NewValidationError("cache", "cache enabled without a memory or Redis tier", nil)
	}

	if config.Output.Path == "" {
		return domain.NewValidationError("output.path", "output path is required", config.Output.Path)
	}

	// Validate store configuration
	switch config.Store.Driver {
	case domain.StoreDriverNone:
	case domain.StoreDriverSQLite:
		if config.Store.SQLitePath == "" {
			return domain.NewValidationError("store.sqlite_path", "sqlite path is required", config.Store.SQLitePath)
		}
	case domain.StoreDriverPostgres:
		if config.Store.PostgresDSN == "" {
			return domain.NewValidationError("store.postgres_dsn", "postgres DSN is required", "")
		}
	default:
		return domain.NewValidationError("store.driver", "invalid store driver: "+config.Store.Driver, config.Store.Driver)
	}

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return domain.NewValidationError("server.port", fmt.Sprintf("invalid server port: %d", config.Server.Port), config.Server.Port)
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return domain.NewValidationError("logging.level", "invalid log level: "+config.Logging.Level, config.Logging.Level)
	}

	return nil
}
