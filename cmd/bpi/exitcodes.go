package main

// Exit codes
const (
	ExitSuccess        = 0 // Success
	ExitError          = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError    = 2 // Configuration error (missing config, unknown journal or user)
	ExitDataError      = 3 // Data error (malformed XML, missing volume or number)
	ExitImportFailed   = 4 // Article rejected and rolled back
	ExitRollbackFailed = 5 // Rolling back a failed article left state behind
)
