package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535 (got %d)", c.Server.Port)
	}

	if err := c.Storage.validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	if err := c.Remote.validate(); err != nil {
		return fmt.Errorf("remote: %w", err)
	}

	if c.Sync.RetentionDays < 1 {
		return fmt.Errorf("sync.retention_days must be >= 1 (got %d)", c.Sync.RetentionDays)
	}

	if err := c.Connectivity.validate(); err != nil {
		return fmt.Errorf("connectivity: %w", err)
	}

	return nil
}

func (s *StorageConfig) validate() error {
	switch s.Driver {
	case DriverSQLite:
		if strings.TrimSpace(s.Path) == "" {
			return fmt.Errorf("path is required for driver %q", s.Driver)
		}
		if s.BusyTimeout < 0 {
			return fmt.Errorf("busy_timeout must be >= 0 (got %v)", s.BusyTimeout)
		}
	case DriverPostgres:
		if strings.TrimSpace(s.DSN) == "" {
			return fmt.Errorf("dsn is required for driver %q", s.Driver)
		}
		if s.MaxConns <= 0 {
			return fmt.Errorf("max_conns must be > 0 (got %d)", s.MaxConns)
		}
		if s.MinConns < 0 || s.MinConns > s.MaxConns {
			return fmt.Errorf("min_conns must be in 0..max_conns (got %d)", s.MinConns)
		}
	default:
		return fmt.Errorf("unknown driver %q (want %s or %s)", s.Driver, DriverSQLite, DriverPostgres)
	}
	return nil
}

func (r *RemoteConfig) validate() error {
	u, err := url.Parse(r.BaseURL)
	if err != nil {
		return fmt.Errorf("base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base_url must be an absolute http(s) URL (got %q)", r.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("base_url must include a host (got %q)", r.BaseURL)
	}
	if r.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0 (got %v)", r.Timeout)
	}
	if !strings.HasPrefix(r.PatientsEndpoint, "/") {
		return fmt.Errorf("patients_endpoint must start with / (got %q)", r.PatientsEndpoint)
	}
	return nil
}

func (c *ConnectivityConfig) validate() error {
	if c.RestoredNoticeTTL <= 0 {
		return fmt.Errorf("restored_notice_ttl must be > 0 (got %v)", c.RestoredNoticeTTL)
	}
	switch c.Source {
	case SourceClient:
	case SourceProbe:
		if c.ProbeInterval <= 0 {
			return fmt.Errorf("probe_interval must be > 0 (got %v)", c.ProbeInterval)
		}
		if c.ProbeTimeout <= 0 {
			return fmt.Errorf("probe_timeout must be > 0 (got %v)", c.ProbeTimeout)
		}
		if !strings.HasPrefix(c.ProbePath, "/") {
			return fmt.Errorf("probe_path must start with / (got %q)", c.ProbePath)
		}
	default:
		return fmt.Errorf("unknown source %q (want %s or %s)", c.Source, SourceClient, SourceProbe)
	}
	return nil
}
