package session

import (
	"math"
	"time"
)

// ExpiredRetentionWindow is the grace period after computed expiry during
// which a late human answer still preempts forced expiry by the sweeper.
const ExpiredRetentionWindow = 30 * time.Second

// maxTimeoutMS is the largest millisecond value representable as a
// time.Duration; larger timeouts are clamped instead of overflowing
const maxTimeoutMS = uint64(math.MaxInt64 / int64(time.Millisecond))

// TimeoutDuration converts a session timeout to a duration.
// A zero timeout means the session never expires.
func TimeoutDuration(timeoutMS uint64) (time.Duration, bool) {
	if timeoutMS == 0 {
		return 0, false
	}

	if timeoutMS > maxTimeoutMS {
		timeoutMS = maxTimeoutMS
	}

	return time.Duration(timeoutMS) * time.Millisecond, true
}

// ExpiryTime computes the instant a session expires, if it ever does
func ExpiryTime(requestedAt time.Time, timeoutMS uint64) (time.Time, bool) {
	timeout, ok := TimeoutDuration(timeoutMS)
	if !ok {
		return time.Time{}, false
	}

	return requestedAt.Add(timeout), true
}

// IsExpired reports whether a session has expired as of now
func IsExpired(requestedAt time.Time, timeoutMS uint64, now time.Time) bool {
	expiry, ok := ExpiryTime(requestedAt, timeoutMS)
	if !ok {
		return false
	}

	return !now.Before(expiry)
}

// IsSweepEligible reports whether a session is past expiry plus the
// retention window and may be force-resolved by the sweeper
func IsSweepEligible(requestedAt time.Time, timeoutMS uint64, now time.Time) bool {
	expiry, ok := ExpiryTime(requestedAt, timeoutMS)
	if !ok {
		return false
	}

	return now.Sub(expiry) > ExpiredRetentionWindow
}
