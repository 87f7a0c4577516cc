package shared

// Process exit codes returned by kitup.
const (
	ExitOK               = 0
	ExitFailed           = 1
	ExitUsage            = 2
	ExitConfigError      = 3
	ExitToolNotFound     = 4
	ExitCyclicDependency = 5
	ExitInstallFailed    = 6
)
