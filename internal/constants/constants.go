package constants

import "time"

const (
	// a store has exactly one writer connection
	DBMaxOpenConns    = 1
	DBMaxIdleConns    = 1
	DBConnMaxLifetime = 0
	DBBusyTimeout     = 5 * time.Second
)

const (
	ExternalAPITimeout = 10 * time.Second
	RequestTimeout     = 30 * time.Second
	ShutdownTimeout    = 5 * time.Second
)

const (
	DefaultRecentLimit = 10
	DefaultTopLimit    = 10
	TrendWindow        = 10

	DefaultBestMinFights   = 3
	DefaultBestMinWinRate  = 0.60
	DefaultWorstMinFights  = 3
	DefaultWorstMaxWinRate = 0.40
)

const (
	MigrateConcurrency = 4
	BatchIDLength      = 12
)

const (
	FetchMaxAttempts = 5
	FetchRetryDelay  = 3 * time.Second
)
