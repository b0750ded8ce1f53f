// Package exitcode provides standardized exit codes for ion
package exitcode

// Exit codes for the ion CLI
const (
	Success      = 0
	GeneralError = 1
	UsageError   = 2
	Aborted      = 130
)

// String returns a human-readable description of the exit code
func String(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "Operational failure"
	case UsageError:
		return "Invalid user input"
	case Aborted:
		return "Aborted by user"
	default:
		return "Unknown error"
	}
}
