// task_journal_test.go

package main

import (
	"bytes"
	"context"
	"encoding/gob"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"strings"
	"testing"
	"time"
)

func setupJournal(t *testing.T) (*miniredis.Miniredis, *redis.Client, context.Context, *TaskJournal) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	ctx := context.Background()

	return mr, rdb, ctx, NewTaskJournal(rdb, ctx)
}

func TestRecordSuccess(t *testing.T) {
	mr, rdb, ctx, journal := setupJournal(t)
	defer mr.Close()

	err := journal.RecordSuccess("checksum:/data/file1.txt", 42*time.Millisecond)
	require.NoError(t, err)

	count, err := journal.CountByStatus(TaskStatusSucceeded)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// 记录应能从Redis解码回来
	keys, err := rdb.Keys(ctx, "taskRecord:*").Result()
	require.NoError(t, err)
	require.Len(t, keys, 1)

	data, err := rdb.Get(ctx, keys[0]).Bytes()
	require.NoError(t, err)

	var record TaskRecord
	err = gob.NewDecoder(bytes.NewReader(data)).Decode(&record)
	require.NoError(t, err)
	assert.Equal(t, "checksum:/data/file1.txt", record.Label)
	assert.Equal(t, TaskStatusSucceeded, record.Status)
	assert.Equal(t, 42*time.Millisecond, record.Elapsed)
	assert.Empty(t, record.Error)
}

func TestRecordFailure(t *testing.T) {
	mr, _, _, journal := setupJournal(t)
	defer mr.Close()

	err := journal.RecordFailure("checksum:/data/bad.txt", "read error")
	require.NoError(t, err)

	count, err := journal.CountByStatus(TaskStatusFailed)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	labels, err := journal.FailedLabels()
	require.NoError(t, err)
	assert.Equal(t, []string{"checksum:/data/bad.txt"}, labels)
}

func TestFailedLabelsSorted(t *testing.T) {
	mr, _, _, journal := setupJournal(t)
	defer mr.Close()

	for _, label := range []string{"task-c", "task-a", "task-b"} {
		require.NoError(t, journal.RecordFailure(label, "boom"))
	}

	labels, err := journal.FailedLabels()
	require.NoError(t, err)
	assert.Equal(t, []string{"task-a", "task-b", "task-c"}, labels)
}

// 同一个 label 执行多次时记录互不覆盖
func TestRepeatedLabelsKeepSeparateRecords(t *testing.T) {
	mr, rdb, ctx, journal := setupJournal(t)
	defer mr.Close()

	require.NoError(t, journal.RecordSuccess("retried-task", time.Millisecond))
	time.Sleep(time.Millisecond)
	require.NoError(t, journal.RecordSuccess("retried-task", time.Millisecond))

	keys, err := rdb.Keys(ctx, "taskRecord:*").Result()
	require.NoError(t, err)
	assert.Len(t, keys, 2)
	for _, key := range keys {
		assert.True(t, strings.HasPrefix(key, "taskRecord:"))
	}

	count, err := journal.CountByStatus(TaskStatusSucceeded)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestCountByStatusEmpty(t *testing.T) {
	mr, _, _, journal := setupJournal(t)
	defer mr.Close()

	count, err := journal.CountByStatus(TaskStatusFailed)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
