// main.go
// 此文件是Go程序的主要入口点，包含了校验任务调度的核心逻辑和初始化代码。

package main

import (
	"context"
	"fmt"
	"github.com/go-redis/redis/v8"
	"github.com/karrick/godirwalk"
	"github.com/spf13/afero"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"
)

var progressCounter int32 // Progress counter

const defaultRedisAddr = "localhost:6379" // 该地址应从配置中获取

func main() {
	startTime := time.Now().Unix()
	rootDir, minSizeBytes, workerCount, findDuplicates, excludeRegexps, rdb, ctx, err := initializeApp(os.Args)
	if err != nil {
		log.Println(err)
		return
	}

	cp := CreateChecksumProcessor(rdb, ctx, excludeRegexps)

	// 根据参数决定是否进行重复校验查找并输出结果
	if findDuplicates {
		if err := findAndLogDuplicateChecksums(workerCount, cp); err != nil {
			log.Println("Error finding duplicate checksums:", err)
			return
		}
		if err := cp.WriteDuplicateChecksumsToFile(rootDir, "checksums.log.dup"); err != nil {
			log.Println("Error writing duplicates to file:", err)
		}
		return
	}

	journal := NewTaskJournal(rdb, ctx)
	pool, err := NewWorkerPool(workerCount, WithJournal(journal))
	if err != nil {
		log.Println("Error creating worker pool:", err)
		return
	}

	progressCtx, progressCancel := context.WithCancel(ctx)
	defer progressCancel()

	// 启动进度监控 Goroutine
	go monitorProgress(progressCtx, &progressCounter)

	if err := walkFiles(rootDir, minSizeBytes, pool, cp, startTime); err != nil {
		log.Println("Error walking files:", err)
	}

	pool.Shutdown()

	// 此时所有任务已经完成，取消进度监控上下文
	progressCancel()

	stats := pool.Stats()
	log.Printf("Final progress: %d files processed.\n", atomic.LoadInt32(&progressCounter))
	log.Printf("Tasks submitted: %d, executed: %d, failed: %d", stats.Submitted, stats.Executed, stats.Failed)

	if stats.Failed > 0 {
		logFailedTasks(journal)
	}

	// 清理这次运行没有刷新的过期记录
	if err := cleanUpOldRecords(rdb, ctx, startTime); err != nil {
		log.Println("Error cleaning up old records:", err)
	}

	// 文件处理完成后的保存操作
	performSaveOperation(cp, rootDir, "checksums.log", false)
	performSaveOperation(cp, rootDir, "checksums.log.recent", true)
}

// parseArgs 解析命令行参数
func parseArgs(args []string) (string, int64, int, bool, error) {
	if len(args) < 2 {
		return "", 0, 0, false, fmt.Errorf("Usage: %s <rootDir> [--find-duplicates] [--workers N] [--min-size MB]", args[0])
	}

	rootDir := args[1]
	findDuplicates := false
	workerCount := runtime.NumCPU()
	minSize := 1 // Default minimum size is 1MB

	for i := 2; i < len(args); i++ {
		switch args[i] {
		case "--find-duplicates":
			findDuplicates = true
		case "--workers":
			i++
			if i >= len(args) {
				return "", 0, 0, false, fmt.Errorf("--workers requires a value")
			}
			n, err := strconv.Atoi(args[i])
			if err != nil {
				return "", 0, 0, false, fmt.Errorf("invalid worker count %q: %w", args[i], err)
			}
			workerCount = n
		case "--min-size":
			i++
			if i >= len(args) {
				return "", 0, 0, false, fmt.Errorf("--min-size requires a value")
			}
			n, err := strconv.Atoi(args[i])
			if err != nil {
				return "", 0, 0, false, fmt.Errorf("invalid minimum size %q: %w", args[i], err)
			}
			minSize = n
		default:
			return "", 0, 0, false, fmt.Errorf("unknown argument: %s", args[i])
		}
	}

	minSizeBytes := int64(minSize) * 1024 * 1024
	return rootDir, minSizeBytes, workerCount, findDuplicates, nil
}

// initializeApp 初始化应用程序设置
func initializeApp(args []string) (string, int64, int, bool, []*regexp.Regexp, *redis.Client, context.Context, error) {
	rootDir, minSizeBytes, workerCount, findDuplicates, err := parseArgs(args)
	if err != nil {
		return "", 0, 0, false, nil, nil, nil, err
	}

	// 排除模式文件是可选的
	excludeRegexps, err := loadExcludeRegexps(filepath.Join(rootDir, "exclude_patterns.txt"), afero.NewOsFs())
	if err != nil {
		log.Printf("No exclude patterns loaded: %v", err)
		excludeRegexps = nil
	}

	// 创建 Redis 客户端
	ctx := context.Background()
	rdb, err := newRedisClient(ctx, defaultRedisAddr)
	if err != nil {
		return "", 0, 0, false, nil, nil, nil, err
	}

	return rootDir, minSizeBytes, workerCount, findDuplicates, excludeRegexps, rdb, ctx, nil
}

// walkFiles 遍历指定目录下的文件，把满足条件的文件作为校验任务提交到工作池
func walkFiles(rootDir string, minSizeBytes int64, pool *WorkerPool, cp *ChecksumProcessor, runTime int64) error {
	return godirwalk.Walk(rootDir, &godirwalk.Options{
		Callback: func(osPathname string, dirent *godirwalk.Dirent) error {
			// 排除模式匹配
			if cp.ShouldExclude(osPathname) {
				return nil
			}

			if !dirent.IsRegular() {
				return nil
			}

			fileInfo, err := os.Lstat(osPathname)
			if err != nil {
				return err
			}

			// 检查文件大小是否满足最小阈值
			if fileInfo.Size() < minSizeBytes {
				return nil
			}

			relativePath, err := filepath.Rel(rootDir, osPathname)
			if err != nil {
				return err
			}

			// 将任务发送到工作池
			return pool.Submit(Task{
				Label: osPathname,
				Fn: func() error {
					if err := cp.ProcessFile(rootDir, relativePath, runTime); err != nil {
						return err
					}
					atomic.AddInt32(&progressCounter, 1)
					return nil
				},
			})
		},
		Unsorted: true, // 设置为true以提高性能
	})
}

// monitorProgress 在给定的上下文中定期打印处理进度
func monitorProgress(ctx context.Context, progressCounter *int32) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done(): // 检查上下文是否被取消
			return
		case <-ticker.C: // 每秒触发一次
			processed := atomic.LoadInt32(progressCounter)
			log.Printf("Progress: %d files processed.\n", processed)
		}
	}
}

func logFailedTasks(journal *TaskJournal) {
	labels, err := journal.FailedLabels()
	if err != nil {
		log.Println("Error listing failed tasks:", err)
		return
	}
	for _, label := range labels {
		log.Printf("Failed task: %s", label)
	}
}

func performSaveOperation(cp *ChecksumProcessor, rootDir, filename string, sortByModTime bool) {
	if err := cp.SaveChecksumLog(rootDir, filename, sortByModTime); err != nil {
		log.Printf("Error saving %s: %v", filename, err)
	}
}
