package config

import (
	"github.com/casks-mutters/state-delta-audit/audit"
	"github.com/casks-mutters/state-delta-audit/types"
	"github.com/rs/zerolog"
)

// GetDefaultProjectConfig obtains a default configuration for a project. The RPC endpoint, contract address and
// blocks have no defaults and must be provided before the configuration validates.
func GetDefaultProjectConfig() *ProjectConfig {
	return &ProjectConfig{
		RPC: RPCConfig{
			URL:            "",
			PoolSize:       1,
			RequestTimeout: 30,
			Attempts:       1,
		},
		Audit: AuditConfig{
			Address:         "",
			Slots:           types.DefaultSlots(),
			FailOnReadError: false,
		},
		Cache: CacheConfig{
			Directory: "",
		},
		Output: OutputConfig{
			Format: audit.OutputFormatJSON,
			File:   "",
		},
		Logging: LoggingConfig{
			Level:        zerolog.InfoLevel,
			LogDirectory: "",
			NoColor:      false,
		},
	}
}
