package pipeline

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briefops/comms-intel/internal/model"
)

func makeRecords(n int) []model.Record {
	records := make([]model.Record, n)
	for i := range records {
		records[i] = model.Record{
			ID:      fmt.Sprintf("r%d", i),
			Subject: fmt.Sprintf("subject %d", i),
			Source:  model.SourceEmail,
			Agent:   "mailroom",
		}
	}
	return records
}

func TestSplitBatches_Empty(t *testing.T) {
	assert.Nil(t, SplitBatches(nil, 10))
	assert.Nil(t, SplitBatches([]model.Record{}, 10))
}

func TestSplitBatches_ExactMultiple(t *testing.T) {
	batches := SplitBatches(makeRecords(20), 10)
	require.Len(t, batches, 2)
	assert.Len(t, batches[0], 10)
	assert.Len(t, batches[1], 10)
}

func TestSplitBatches_Remainder(t *testing.T) {
	batches := SplitBatches(makeRecords(12), 10)
	require.Len(t, batches, 2)
	assert.Len(t, batches[0], 10)
	assert.Len(t, batches[1], 2)
}

func TestSplitBatches_SizeBelowOneUsesDefault(t *testing.T) {
	batches := SplitBatches(makeRecords(25), 0)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], DefaultBatchSize)
}

func TestSplitBatches_CoversEveryRecordInOrder(t *testing.T) {
	for _, size := range []int{1, 3, 7, 10, 100} {
		records := makeRecords(23)
		batches := SplitBatches(records, size)

		want := (len(records) + size - 1) / size
		assert.Len(t, batches, want, "size %d", size)

		var flat []model.Record
		for _, b := range batches {
			flat = append(flat, b...)
		}
		assert.Equal(t, records, flat, "size %d", size)
	}
}
