package domain

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

const (
	localIDPrefix = "local-"
	localIDSuffix = 9
	base36        = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// NewLocalID returns an id of the form local-<unix millis>-<9 base36 chars>.
// The prefix keeps local ids disjoint from numeric server ids.
func NewLocalID(now time.Time) string {
	var b strings.Builder
	b.Grow(len(localIDPrefix) + 14 + 1 + localIDSuffix)
	b.WriteString(localIDPrefix)
	b.WriteString(strconv.FormatInt(now.UnixMilli(), 10))
	b.WriteByte('-')
	for range localIDSuffix {
		b.WriteByte(base36[rand.IntN(len(base36))])
	}
	return b.String()
}

// IsLocalID reports whether id was produced by NewLocalID.
func IsLocalID(id string) bool {
	rest, ok := strings.CutPrefix(id, localIDPrefix)
	if !ok {
		return false
	}
	millis, suffix, ok := strings.Cut(rest, "-")
	if !ok || len(suffix) != localIDSuffix {
		return false
	}
	if _, err := strconv.ParseInt(millis, 10, 64); err != nil {
		return false
	}
	for i := range len(suffix) {
		if !strings.ContainsRune(base36, rune(suffix[i])) {
			return false
		}
	}
	return true
}
