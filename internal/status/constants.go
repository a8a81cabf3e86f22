// internal/status/constants.go
package status

// ---- HEALTH CODES ----

// HealthUnknown represents the boot state: nothing polled yet.
const HealthUnknown uint16 = 0

// HealthOK represents a healthy device: the last poll published a snapshot.
const HealthOK uint16 = 1

// HealthError represents a failing device with no data ever published.
const HealthError uint16 = 2

// HealthStale represents a failing device whose last good snapshot is still served.
const HealthStale uint16 = 3

// ---- LIMITS ----

// MaxSecondsInError saturates the seconds-in-error counter. It never wraps.
const MaxSecondsInError = 65535

// HealthName returns the lower-case name of a health code.
func HealthName(h uint16) string {
	switch h {
	case HealthOK:
		return "ok"
	case HealthError:
		return "error"
	case HealthStale:
		return "stale"
	default:
		return "unknown"
	}
}
