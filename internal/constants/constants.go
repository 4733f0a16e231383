package constants

import "time"

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 30 * time.Second
)

const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	// ActivityDebounce is the minimum gap between two last-active writes for
	// the same member.
	ActivityDebounce = 10 * time.Minute
	// ActivitySweepInterval is how often stale debounce entries are dropped.
	ActivitySweepInterval = 5 * time.Minute
	// ActivityEntryLifetime is how long a debounce entry lives without updates.
	ActivityEntryLifetime = 10 * time.Minute

	DefaultInactivityDays = 30
)

const (
	// DailyResetHour is the hour in DailyResetZone at which the daily claim
	// window rolls over.
	DailyResetHour = 12
	DailyResetZone = "Europe/London"
)

const (
	// TempleRequestsPerMinute throttles calls against the public TempleOSRS API.
	TempleRequestsPerMinute = 20
)
