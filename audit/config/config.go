package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/casks-mutters/state-delta-audit/audit"
	"github.com/casks-mutters/state-delta-audit/types"
	"github.com/casks-mutters/state-delta-audit/utils"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ProjectConfig describes the full configuration of a state-audit run.
type ProjectConfig struct {
	// RPC describes how to connect to the Ethereum JSON-RPC endpoint which serves storage reads.
	RPC RPCConfig `json:"rpc"`

	// Audit describes what is audited: the contract, the two blocks and the slot list.
	Audit AuditConfig `json:"audit"`

	// Cache describes the optional on-disk cache of storage reads.
	Cache CacheConfig `json:"cache"`

	// Output describes how and where the audit report is written.
	Output OutputConfig `json:"output"`

	// Logging describes the configuration used for logging to file and console
	Logging LoggingConfig `json:"logging"`
}

// RPCConfig describes the configuration used to connect to an Ethereum JSON-RPC endpoint.
type RPCConfig struct {
	// URL describes the endpoint to dial. There is no default endpoint: it must be provided through the
	// configuration file, the command line or the environment.
	URL string `json:"url"`

	// PoolSize describes how many clients are dialed. Requests are spread over them in round-robin order.
	PoolSize int `json:"poolSize"`

	// RequestTimeout describes a time in seconds after which a single request is abandoned.
	RequestTimeout int `json:"requestTimeout"`

	// Attempts describes how many times a request is tried before its error is returned. A value of one disables
	// retries.
	Attempts int `json:"attempts"`
}

// AuditConfig describes the subject of an audit.
type AuditConfig struct {
	// Address describes the contract whose storage is audited.
	Address string `json:"address"`

	// BlockA describes the first block to read storage at.
	BlockA types.BlockRef `json:"blockA"`

	// BlockB describes the second block to read storage at.
	BlockB types.BlockRef `json:"blockB"`

	// Slots describes the storage slots to audit, in order. Duplicates are audited once per occurrence.
	Slots []types.Slot `json:"slots"`

	// FailOnReadError describes whether a run in which any storage read failed should exit with an error, after the
	// report has been written.
	FailOnReadError bool `json:"failOnReadError"`

	// ExpectedRoot describes a fingerprint the audit is expected to produce. If empty, no comparison is made.
	ExpectedRoot string `json:"expectedRoot"`
}

// CacheConfig describes the configuration of the on-disk slot cache.
type CacheConfig struct {
	// Directory describes where cache files are kept. If the string is empty, reads are never cached.
	Directory string `json:"directory"`
}

// OutputConfig describes how the audit report is rendered.
type OutputConfig struct {
	// Format describes the report format.
	Format audit.OutputFormat `json:"format"`

	// File describes a path the report is written to. If the string is empty, the report is written to stdout.
	File string `json:"file"`
}

// LoggingConfig describes the configuration options for logging to console and file
type LoggingConfig struct {
	// Level describes whether logs of certain severity levels (eg info, warning, etc.) will be emitted or discarded.
	// Increasing level values represent more severe logs
	Level zerolog.Level `json:"level"`

	// LogDirectory describes the directory where structured log _files_ will be outputted. If the string is empty, then
	// no log files are kept
	LogDirectory string `json:"logDirectory"`

	// NoColor describes whether console output should be free of ANSI color codes.
	NoColor bool `json:"noColor"`
}

// ReadProjectConfigFromFile reads a JSON-serialized ProjectConfig from a provided file path. Fields missing from the
// file keep their default values.
func ReadProjectConfigFromFile(path string) (*ProjectConfig, error) {
	// Read our project configuration file data
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	// Parse the project configuration over the defaults
	projectConfig := GetDefaultProjectConfig()
	err = json.Unmarshal(b, projectConfig)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to parse config file %s", path)
	}

	return projectConfig, nil
}

// WriteToFile writes the ProjectConfig to a provided file path in a JSON-serialized format.
func (p *ProjectConfig) WriteToFile(path string) error {
	// Serialize the configuration
	b, err := json.MarshalIndent(p, "", "\t")
	if err != nil {
		return errors.WithStack(err)
	}

	// Save it to the provided output path and return the result
	err = os.WriteFile(path, b, 0644)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// Validate validates that the ProjectConfig meets certain requirements. Returns an error if one occurs.
func (p *ProjectConfig) Validate() error {
	if err := p.ValidateAudit(); err != nil {
		return err
	}
	return p.ValidateConnection()
}

// ValidateAudit validates what is being audited: the contract, both blocks, the slots and the expected root. None of
// these checks need an endpoint.
func (p *ProjectConfig) ValidateAudit() error {
	// Verify that the contract is a well-formed address
	if _, err := utils.HexStringToAddress(p.Audit.Address); err != nil {
		return errors.Wrap(err, "malformed contract address")
	}

	// Verify both blocks were provided
	if p.Audit.BlockA.IsZero() || p.Audit.BlockB.IsZero() {
		return errors.New("both blocks to compare must be provided")
	}

	// Verify there is something to audit
	if len(p.Audit.Slots) == 0 {
		return errors.New("slot list cannot be empty")
	}

	// Verify the expected root is a well-formed fingerprint
	if p.Audit.ExpectedRoot != "" {
		if _, err := audit.ParseFingerprint(p.Audit.ExpectedRoot); err != nil {
			return errors.Wrap(err, "malformed expected root")
		}
	}

	return nil
}

// ValidateConnection validates the endpoint settings and the report output, which only matter once storage is read.
func (p *ProjectConfig) ValidateConnection() error {
	// Verify an endpoint was provided
	if p.RPC.URL == "" {
		return errors.New("no RPC endpoint provided (set rpc.url, --rpc-url or RPC_URL)")
	}

	// Verify the pool size, timeout and attempts are positive numbers
	if p.RPC.PoolSize <= 0 {
		return errors.New("RPC pool size must be a positive number")
	}
	if p.RPC.RequestTimeout <= 0 {
		return errors.New("RPC request timeout must be a positive number")
	}
	if p.RPC.Attempts <= 0 {
		return errors.New("RPC attempts must be a positive number")
	}

	// Verify the output format is known
	if !audit.IsSupportedOutputFormat(p.Output.Format) {
		return errors.Errorf("unsupported output format %q (supported: %v)", p.Output.Format, audit.SupportedOutputFormats)
	}

	return nil
}

// RequestTimeoutDuration returns the configured per-request timeout as a time.Duration.
func (c RPCConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}
