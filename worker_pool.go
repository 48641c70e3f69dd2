// worker_pool.go
package main

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrInvalidWorkerCount = errors.New("worker count must be positive")
	ErrNilTaskFunc        = errors.New("task function is nil")
	ErrPoolStopped        = errors.New("worker pool is stopped")
)

// Task 定义了工作池中的任务类型，Label 仅用于日志和诊断
type Task struct {
	Label string
	Fn    func() error
}

// PoolStats 是工作池计数器的快照
type PoolStats struct {
	Submitted int64
	Executed  int64
	Failed    int64
	Pending   int64
}

// WorkerPool 拥有固定数量的 worker goroutine，从共享队列中取任务执行
type WorkerPool struct {
	queue       *ConcurrentQueue[Task]
	wg          sync.WaitGroup
	workerCount int
	stopped     int32 // 原子访问
	stopOnce    sync.Once
	journal     *TaskJournal

	submitted int64
	executed  int64
	failed    int64
}

// WithJournal 把任务执行结果接入诊断日志
func WithJournal(journal *TaskJournal) func(*WorkerPool) {
	return func(wp *WorkerPool) {
		wp.journal = journal
	}
}

func NewWorkerPool(workerCount int, options ...func(*WorkerPool)) (*WorkerPool, error) {
	if workerCount <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWorkerCount, workerCount)
	}

	wp := &WorkerPool{
		queue:       NewConcurrentQueue[Task](),
		workerCount: workerCount,
	}

	// 应用选项
	for _, option := range options {
		option(wp)
	}

	for i := 0; i < workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}

	return wp, nil
}

// Submit 把任务放入队列，不会阻塞。池停止后返回 ErrPoolStopped。
func (wp *WorkerPool) Submit(task Task) error {
	if task.Fn == nil {
		return ErrNilTaskFunc
	}
	if atomic.LoadInt32(&wp.stopped) == 1 {
		return ErrPoolStopped
	}
	if err := wp.queue.Push(task); err != nil {
		return ErrPoolStopped
	}
	atomic.AddInt64(&wp.submitted, 1)
	return nil
}

// Shutdown 关闭队列并等待所有 worker 把已入队的任务执行完毕后退出。
// 可以安全地重复调用，后续调用等待同一次停止完成。
func (wp *WorkerPool) Shutdown() {
	wp.stopOnce.Do(func() {
		atomic.StoreInt32(&wp.stopped, 1)
		wp.queue.Close()
	})
	wp.wg.Wait()
}

func (wp *WorkerPool) WorkerCount() int {
	return wp.workerCount
}

func (wp *WorkerPool) Stats() PoolStats {
	return PoolStats{
		Submitted: atomic.LoadInt64(&wp.submitted),
		Executed:  atomic.LoadInt64(&wp.executed),
		Failed:    atomic.LoadInt64(&wp.failed),
		Pending:   int64(wp.queue.Len()),
	}
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()
	for {
		task, err := wp.queue.WaitAndPop()
		if err != nil {
			return // 队列已关闭且取空
		}
		wp.runTask(task)
	}
}

// runTask 执行单个任务，任务失败只影响自身，worker 继续运行
func (wp *WorkerPool) runTask(task Task) {
	start := time.Now()
	log.Printf("Executing task: %s", task.Label)

	err := invokeTask(task)
	atomic.AddInt64(&wp.executed, 1)

	if err != nil {
		atomic.AddInt64(&wp.failed, 1)
		log.Printf("Task failed: %s: %v", task.Label, err)
		if wp.journal != nil {
			if jerr := wp.journal.RecordFailure(task.Label, err.Error()); jerr != nil {
				log.Printf("Warning: Failed to record task failure for %s: %v", task.Label, jerr)
			}
		}
		return
	}

	if wp.journal != nil {
		if jerr := wp.journal.RecordSuccess(task.Label, time.Since(start)); jerr != nil {
			log.Printf("Warning: Failed to record task result for %s: %v", task.Label, jerr)
		}
	}
}

// invokeTask 把任务中的 panic 转换为错误返回
func invokeTask(task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return task.Fn()
}
