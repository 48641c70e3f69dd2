// task_journal.go
package main

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"github.com/go-redis/redis/v8"
	"sort"
	"time"
)

const (
	TaskStatusSucceeded = "succeeded"
	TaskStatusFailed    = "failed"
)

// TaskRecord 记录单个任务的执行结果
type TaskRecord struct {
	Label      string
	Status     string
	Error      string
	Elapsed    time.Duration
	FinishedAt time.Time
}

// TaskJournal 把任务结果写入Redis，供运行结束后诊断使用
type TaskJournal struct {
	Rdb *redis.Client
	Ctx context.Context
}

func NewTaskJournal(rdb *redis.Client, ctx context.Context) *TaskJournal {
	return &TaskJournal{Rdb: rdb, Ctx: ctx}
}

func (tj *TaskJournal) RecordSuccess(label string, elapsed time.Duration) error {
	return tj.saveRecord(TaskRecord{
		Label:      label,
		Status:     TaskStatusSucceeded,
		Elapsed:    elapsed,
		FinishedAt: time.Now(),
	})
}

func (tj *TaskJournal) RecordFailure(label string, taskErr string) error {
	record := TaskRecord{
		Label:      label,
		Status:     TaskStatusFailed,
		Error:      taskErr,
		FinishedAt: time.Now(),
	}
	if err := tj.saveRecord(record); err != nil {
		return err
	}
	if err := tj.Rdb.SAdd(tj.Ctx, "failedTaskLabels", label).Err(); err != nil {
		return fmt.Errorf("error indexing failed task label: %w", err)
	}
	return nil
}

func (tj *TaskJournal) saveRecord(record TaskRecord) error {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(record); err != nil {
		return fmt.Errorf("error encoding task record: %w", err)
	}

	// 同一个 label 可能被多次执行，键里混入完成时间避免互相覆盖
	hashedKey := generateHash(fmt.Sprintf("%s|%d", record.Label, record.FinishedAt.UnixNano()))

	pipe := tj.Rdb.Pipeline()
	pipe.Set(tj.Ctx, "taskRecord:"+hashedKey, buf.Bytes(), 0)
	pipe.Incr(tj.Ctx, "taskStatusCount:"+record.Status)
	if _, err := pipe.Exec(tj.Ctx); err != nil {
		return fmt.Errorf("error saving task record: %w", err)
	}
	return nil
}

// FailedLabels 返回所有失败任务的 label，按字母序排列
func (tj *TaskJournal) FailedLabels() ([]string, error) {
	labels, err := tj.Rdb.SMembers(tj.Ctx, "failedTaskLabels").Result()
	if err != nil {
		return nil, fmt.Errorf("error retrieving failed task labels: %w", err)
	}
	sort.Strings(labels)
	return labels, nil
}

func (tj *TaskJournal) CountByStatus(status string) (int64, error) {
	count, err := tj.Rdb.Get(tj.Ctx, "taskStatusCount:"+status).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("error retrieving task status count: %w", err)
	}
	return count, nil
}
