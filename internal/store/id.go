package store

import (
	"strconv"
	"sync"
	"time"
)

const localIDPrefix = "local-"

var localIDClock struct {
	sync.Mutex
	last int64
}

// GenerateLocalID returns a timestamp token for records created while the
// remote is unreachable. Tokens increase strictly within a process.
func GenerateLocalID() string {
	return generateLocalIDAt(time.Now())
}

func generateLocalIDAt(now time.Time) string {
	ms := now.UnixMilli()
	localIDClock.Lock()
	if ms <= localIDClock.last {
		ms = localIDClock.last + 1
	}
	localIDClock.last = ms
	localIDClock.Unlock()
	return localIDPrefix + strconv.FormatInt(ms, 36)
}

// IsLocalID reports whether id was minted by GenerateLocalID.
func IsLocalID(id string) bool {
	return len(id) > len(localIDPrefix) && id[:len(localIDPrefix)] == localIDPrefix
}
