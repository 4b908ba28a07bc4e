package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkerIndexPinsKeyToOneWorker(t *testing.T) {
	keys := [][]byte{
		[]byte("order-1"), []byte("order-2"), []byte("user-abc"), nil, {},
	}
	for _, key := range keys {
		first := workerIndex(key, 8)
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, workerIndex(key, 8), "key %q must always route to the same worker", key)
		}
		assert.GreaterOrEqual(t, first, 0)
		assert.Less(t, first, 8)
	}
}

func TestWorkerIndexSingleWorker(t *testing.T) {
	assert.Equal(t, 0, workerIndex([]byte("order-1"), 1))
	assert.Equal(t, 0, workerIndex(nil, 0))
}

func TestWorkerIndexSpreadsDistinctKeys(t *testing.T) {
	used := map[int]bool{}
	for i := byte(0); i < 64; i++ {
		used[workerIndex([]byte{'k', i}, 4)] = true
	}
	assert.Greater(t, len(used), 1, "distinct keys should land on more than one worker")
}
