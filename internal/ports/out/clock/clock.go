package clock

import "time"

// Clock provides time to the application so settlements can be timestamped deterministically in tests.
type Clock interface {
	Now() time.Time
}
