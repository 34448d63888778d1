package cmd

// DefaultProjectConfigFilename describes the default config filename for a given project folder.
const DefaultProjectConfigFilename = "state-audit.json"

// RPCURLEnvironmentVariable describes the environment variable consulted for the RPC endpoint when neither the
// command line nor the configuration file provides one.
const RPCURLEnvironmentVariable = "RPC_URL"
