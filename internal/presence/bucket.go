package presence

import "time"

// Bucket is a discrete label summarizing recency of activity, per the
// glossary. OnlineNow overrides every other bucket when online is true.
type Bucket string

const (
	BucketOnlineNow    Bucket = "online_now"
	BucketActive10s    Bucket = "active_10s"
	BucketActive1m     Bucket = "active_1m"
	BucketActive5m     Bucket = "active_5m"
	BucketActive15m    Bucket = "active_15m"
	BucketActive1h     Bucket = "active_1h"
	BucketActiveToday  Bucket = "active_today"
	BucketInactive     Bucket = "inactive"
)

// ComputeBucket buckets activity recency, computed in-process from
// now - last_active_ms. When online is true the result is always
// BucketOnlineNow regardless of last-active age.
func ComputeBucket(online bool, lastActiveMS int64, now time.Time) Bucket {
	if online {
		return BucketOnlineNow
	}
	if lastActiveMS == 0 {
		return BucketInactive
	}
	age := now.Sub(time.UnixMilli(lastActiveMS))
	switch {
	case age < 10*time.Second:
		return BucketActive10s
	case age < time.Minute:
		return BucketActive1m
	case age < 5*time.Minute:
		return BucketActive5m
	case age < 15*time.Minute:
		return BucketActive15m
	case age < time.Hour:
		return BucketActive1h
	case age < 24*time.Hour:
		return BucketActiveToday
	default:
		return BucketInactive
	}
}
