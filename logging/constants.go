package logging

// These constants are used to identify the various services that may do some logging
const (
	// AUDIT_SERVICE is the constant used to identify the audit engine
	AUDIT_SERVICE = "audit"
	// RPC_SERVICE is the constant used to identify the RPC storage reader
	RPC_SERVICE = "rpc"
	// CLI_SERVICE is the constant used to identify the cmd package
	CLI_SERVICE = "cli"
)
