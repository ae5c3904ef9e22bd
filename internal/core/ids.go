package core

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// NewID returns a client generated identifier: creation time in unix
// milliseconds plus a random suffix.
func NewID(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + uuid.NewString()[:8]
}
