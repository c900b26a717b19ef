package internal

import (
	"time"
)

// Version is the polyglot release version
const Version = "0.3.0"

// TimestampMillis returns t as Unix epoch milliseconds, the unit history records use
func TimestampMillis(t time.Time) int64 {
	return t.UnixMilli()
}
