// Package session evaluates session liveness from activity timestamps.
package session

import "time"

// IsValid reports whether a session is still live at now. A session with no
// recorded activity is never valid. The boundary is inclusive: a session
// exactly timeout old is still live.
func IsValid(lastActivity *time.Time, timeout time.Duration, now time.Time) bool {
	if lastActivity == nil {
		return false
	}
	return now.Sub(*lastActivity) <= timeout
}
