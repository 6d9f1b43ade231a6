package pipeline

import "github.com/briefops/comms-intel/internal/model"

// DefaultBatchSize is the number of records per analysis batch when no
// explicit size is configured.
const DefaultBatchSize = 10

// SplitBatches splits records into ordered, non-overlapping batches of at
// most size records each; the final batch may be shorter. Original order is
// preserved and every record appears exactly once. A size below 1 falls back
// to DefaultBatchSize. Empty input yields zero batches.
func SplitBatches(records []model.Record, size int) [][]model.Record {
	if size < 1 {
		size = DefaultBatchSize
	}
	if len(records) == 0 {
		return nil
	}

	batches := make([][]model.Record, 0, (len(records)+size-1)/size)
	for start := 0; start < len(records); start += size {
		end := start + size
		if end > len(records) {
			end = len(records)
		}
		batches = append(batches, records[start:end])
	}
	return batches
}
