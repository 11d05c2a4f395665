package presence

import (
	"context"
	"strconv"
	"time"

	"presencefabric/pkg/apperrors"
)

// Status is one row of a snapshot() response, matching the focus_ok /
// snapshot reply shape.
type Status struct {
	User         string `json:"user"`
	Online       bool   `json:"online"`
	LastActiveMS int64  `json:"last_active_ms"`
	Bucket       Bucket `json:"bucket"`
}

// BatchQuery performs pipelined snapshot reads for a list of user keys.
type BatchQuery struct {
	registry *Registry
	maxBatch int
}

// NewBatchQuery builds a BatchQuery bounded by maxBatch; oversized
// requests are rejected before any store traffic.
func NewBatchQuery(registry *Registry, maxBatch int) *BatchQuery {
	return &BatchQuery{registry: registry, maxBatch: maxBatch}
}

// Snapshot returns current presence and activity bucket for every user in
// users, using exactly one store pipeline round trip regardless of list
// length.
func (b *BatchQuery) Snapshot(ctx context.Context, users []string) ([]Status, error) {
	if len(users) > b.maxBatch {
		return nil, apperrors.ErrOversizedBatch
	}
	if len(users) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(users)*2)
	for _, u := range users {
		keys = append(keys, PresenceKey(u), lastActiveKey(u))
	}

	results, err := b.registry.store.PipelineGet(ctx, keys)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	statuses := make([]Status, len(users))
	for i, u := range users {
		presenceRes := results[i*2]
		lastActiveRes := results[i*2+1]

		online := presenceRes.Exists
		var lastActiveMS int64
		if lastActiveRes.Exists {
			lastActiveMS = parseMillis(lastActiveRes.Value)
		}

		statuses[i] = Status{
			User:         u,
			Online:       online,
			LastActiveMS: lastActiveMS,
			Bucket:       ComputeBucket(online, lastActiveMS, now),
		}
	}
	return statuses, nil
}

func parseMillis(s string) int64 {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return ms
}
