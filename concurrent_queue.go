// concurrent_queue.go
package main

import (
	"errors"
	"sync"
)

var ErrQueueClosed = errors.New("queue is closed")

// ConcurrentQueue 是一个线程安全的先进先出队列，支持任意数量的并发生产者和消费者
type ConcurrentQueue[T any] struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	items    []T
	closed   bool
}

func NewConcurrentQueue[T any]() *ConcurrentQueue[T] {
	q := &ConcurrentQueue[T]{}
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

// Push 把元素追加到队尾并唤醒一个等待中的消费者
func (q *ConcurrentQueue[T]) Push(item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	q.items = append(q.items, item)
	q.notEmpty.Signal()
	return nil
}

// TryPop 非阻塞地取出队首元素，队列为空时返回 false
func (q *ConcurrentQueue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		var zero T
		return zero, false
	}
	return q.popFront(), true
}

// WaitAndPop 阻塞等待直到队列非空，队列关闭且取空后返回 ErrQueueClosed
func (q *ConcurrentQueue[T]) WaitAndPop() (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	// 循环重查条件，防止虚假唤醒
	for len(q.items) == 0 && !q.closed {
		q.notEmpty.Wait()
	}

	if len(q.items) == 0 {
		var zero T
		return zero, ErrQueueClosed
	}
	return q.popFront(), nil
}

// Close 标记队列已关闭并唤醒所有等待中的消费者，已入队的元素仍可取出。
// 重复调用是安全的。
func (q *ConcurrentQueue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.notEmpty.Broadcast()
}

func (q *ConcurrentQueue[T]) IsEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0
}

func (q *ConcurrentQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// 调用方必须持有 q.mu
func (q *ConcurrentQueue[T]) popFront() T {
	item := q.items[0]
	var zero T
	q.items[0] = zero // 释放引用，便于GC回收
	q.items = q.items[1:]
	return item
}
