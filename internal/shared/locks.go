package shared

// Advisory lock keys used with pg_advisory_lock.
const (
	LockMigrations int64 = 7_300_001
)
