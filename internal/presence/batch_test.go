package presence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"presencefabric/pkg/apperrors"
)

func TestBatchQuery_RejectsOversizedBatchBeforeStoreTraffic(t *testing.T) {
	bq := NewBatchQuery(&Registry{}, 2)
	statuses, err := bq.Snapshot(context.Background(), []string{"a@x", "b@x", "c@x"})
	assert.ErrorIs(t, err, apperrors.ErrOversizedBatch)
	assert.Nil(t, statuses)
}

func TestBatchQuery_EmptyListIsNoop(t *testing.T) {
	bq := NewBatchQuery(&Registry{}, 500)
	statuses, err := bq.Snapshot(context.Background(), nil)
	assert.NoError(t, err)
	assert.Nil(t, statuses)
}

func TestParseMillis(t *testing.T) {
	assert.Equal(t, int64(1700000000000), parseMillis("1700000000000"))
	assert.Equal(t, int64(0), parseMillis("not-a-number"))
}
