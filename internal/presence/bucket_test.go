package presence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeBucket_OnlineOverridesEverything(t *testing.T) {
	now := time.Now()
	assert.Equal(t, BucketOnlineNow, ComputeBucket(true, 0, now))
	assert.Equal(t, BucketOnlineNow, ComputeBucket(true, now.Add(-48*time.Hour).UnixMilli(), now))
}

func TestComputeBucket_NeverActive(t *testing.T) {
	assert.Equal(t, BucketInactive, ComputeBucket(false, 0, time.Now()))
}

func TestComputeBucket_Thresholds(t *testing.T) {
	now := time.Now()
	cases := []struct {
		age  time.Duration
		want Bucket
	}{
		{5 * time.Second, BucketActive10s},
		{30 * time.Second, BucketActive1m},
		{2 * time.Minute, BucketActive5m},
		{10 * time.Minute, BucketActive15m},
		{30 * time.Minute, BucketActive1h},
		{5 * time.Hour, BucketActiveToday},
		{48 * time.Hour, BucketInactive},
	}
	for _, tc := range cases {
		lastActive := now.Add(-tc.age).UnixMilli()
		assert.Equal(t, tc.want, ComputeBucket(false, lastActive, now), "age=%s", tc.age)
	}
}
