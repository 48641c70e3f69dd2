// concurrent_queue_test.go

package main

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sync"
	"testing"
	"time"
)

func TestConcurrentQueueFIFO(t *testing.T) {
	q := NewConcurrentQueue[int]()

	for _, v := range []int{1, 2, 3} {
		require.NoError(t, q.Push(v))
	}
	assert.Equal(t, 3, q.Len())

	for _, want := range []int{1, 2, 3} {
		got, ok := q.TryPop()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}

	// 第四次取应该立即返回空
	_, ok := q.TryPop()
	assert.False(t, ok)
	assert.True(t, q.IsEmpty())
}

func TestTryPopEmptyDoesNotBlock(t *testing.T) {
	q := NewConcurrentQueue[string]()

	start := time.Now()
	_, ok := q.TryPop()
	assert.False(t, ok)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestWaitAndPopBlocksUntilPush(t *testing.T) {
	q := NewConcurrentQueue[string]()

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = q.Push("hello")
	}()

	item, err := q.WaitAndPop()
	require.NoError(t, err)
	assert.Equal(t, "hello", item)
}

func TestQueueClose(t *testing.T) {
	q := NewConcurrentQueue[int]()

	require.NoError(t, q.Push(1))
	require.NoError(t, q.Push(2))

	q.Close()
	q.Close() // 重复关闭是安全的

	// 关闭后不允许再入队
	err := q.Push(3)
	assert.ErrorIs(t, err, ErrQueueClosed)

	// 已入队的元素仍可取出
	item, err := q.WaitAndPop()
	require.NoError(t, err)
	assert.Equal(t, 1, item)

	item, err = q.WaitAndPop()
	require.NoError(t, err)
	assert.Equal(t, 2, item)

	// 取空后返回关闭错误而不是永久阻塞
	_, err = q.WaitAndPop()
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestCloseWakesBlockedConsumers(t *testing.T) {
	q := NewConcurrentQueue[int]()

	const consumers = 4
	done := make(chan error, consumers)
	for i := 0; i < consumers; i++ {
		go func() {
			_, err := q.WaitAndPop()
			done <- err
		}()
	}

	// 让消费者先进入等待
	time.Sleep(50 * time.Millisecond)
	q.Close()

	for i := 0; i < consumers; i++ {
		select {
		case err := <-done:
			assert.ErrorIs(t, err, ErrQueueClosed)
		case <-time.After(time.Second):
			t.Fatal("blocked consumer was not woken by Close")
		}
	}
}

// 多生产者多消费者下每个元素恰好被取出一次，不丢失也不重复
func TestConcurrentProducersAndConsumers(t *testing.T) {
	q := NewConcurrentQueue[int]()

	const producers = 4
	const itemsPerProducer = 250
	const total = producers * itemsPerProducer

	var producerWg sync.WaitGroup
	for p := 0; p < producers; p++ {
		producerWg.Add(1)
		go func(p int) {
			defer producerWg.Done()
			for i := 0; i < itemsPerProducer; i++ {
				assert.NoError(t, q.Push(p*itemsPerProducer+i))
			}
		}(p)
	}

	var mu sync.Mutex
	seen := make(map[int]int)

	var consumerWg sync.WaitGroup
	for c := 0; c < 4; c++ {
		consumerWg.Add(1)
		go func() {
			defer consumerWg.Done()
			for {
				item, err := q.WaitAndPop()
				if err != nil {
					return
				}
				mu.Lock()
				seen[item]++
				mu.Unlock()
			}
		}()
	}

	producerWg.Wait()
	q.Close()
	consumerWg.Wait()

	assert.Len(t, seen, total)
	for item, count := range seen {
		assert.Equal(t, 1, count, "item %d popped %d times", item, count)
	}
}
