package exitcodes

const (
	// ================================
	// Platform-universal exit codes
	// ================================

	// ExitCodeSuccess indicates no errors or failures had occurred.
	ExitCodeSuccess = 0

	// ExitCodeGeneralError indicates some type of general error occurred.
	ExitCodeGeneralError = 1

	// ================================
	// Application-specific exit codes
	// ================================
	// Note: Despite not being standardized, exit codes 2-5 are often used for common use cases, so we avoid them.

	// ExitCodeHandledError indicates that there was an error that was already logged, so the top-level should not
	// print it again.
	ExitCodeHandledError = 6

	// ExitCodeConnectionError indicates the RPC endpoint could not be reached before the audit started.
	ExitCodeConnectionError = 7

	// ExitCodeReadFailures indicates the audit completed, but one or more storage reads failed and had a zero value
	// substituted. This is only used when failing on read errors was requested.
	ExitCodeReadFailures = 8

	// ExitCodeFingerprintMismatch indicates the audit completed, but its fingerprint differs from the expected one.
	ExitCodeFingerprintMismatch = 9
)
