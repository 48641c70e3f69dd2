// duplicates.go
package main

import (
	"context"
	"fmt"
	"github.com/go-redis/redis/v8"
	"log"
	"strings"
	"sync"
)

// findAndLogDuplicateChecksums 扫描校验值集合，把候选分组分发给工作池逐组确认
func findAndLogDuplicateChecksums(workerCount int, cp *ChecksumProcessor) error {
	log.Println("Starting findAndLogDuplicateChecksums function")
	candidates, err := scanDuplicateChecksums(cp.Rdb, cp.Ctx)
	if err != nil {
		log.Printf("Error scanning checksums: %v", err)
		return err
	}
	log.Printf("Found %d candidate checksums", len(candidates))

	pool, err := NewWorkerPool(workerCount)
	if err != nil {
		return fmt.Errorf("error creating worker pool: %w", err)
	}

	groupCount := 0
	processedChecksums := &sync.Map{}

	for checksum, paths := range candidates {
		groupCount++
		task := func(checksum string, paths []string) Task {
			return Task{
				Label: "duplicates:" + checksum,
				Fn: func() error {
					confirmed, err := processChecksumGroup(checksum, paths, cp, processedChecksums)
					if err != nil {
						return err
					}
					log.Printf("Checksum %s: %d files confirmed", checksum, confirmed)
					return nil
				},
			}
		}(checksum, paths)

		if err := pool.Submit(task); err != nil {
			log.Printf("Error submitting duplicate task: %v", err)
			break
		}
	}

	pool.Shutdown()
	log.Printf("Total duplicate groups examined: %d\n", groupCount)
	return nil
}

// processChecksumGroup 重新计算组内每个文件的校验值，确认后把分组写入Redis。
// 存储的记录可能已经过期，所以这里不信任旧值。
func processChecksumGroup(checksum string, paths []string, cp *ChecksumProcessor, processedChecksums *sync.Map) (int, error) {
	confirmed := make(map[string][]ChecksumInfo)
	fileCount := 0

	for _, fullPath := range paths {
		info, err := cp.fs.Stat(fullPath)
		if err != nil {
			log.Printf("File does not exist: %s", fullPath)
			continue
		}

		actualChecksum, err := cp.calculateChecksumFunc(fullPath)
		if err != nil {
			log.Printf("Error calculating checksum for %s: %v", fullPath, err)
			continue
		}

		confirmed[actualChecksum] = append(confirmed[actualChecksum], ChecksumInfo{
			Size:     info.Size(),
			ModTime:  info.ModTime(),
			Path:     fullPath,
			Checksum: actualChecksum,
		})
		fileCount++
	}

	var saveErr error
	for actualChecksum, infos := range confirmed {
		if len(infos) <= 1 {
			continue
		}
		// 同一个校验值可能出现在多个候选分组里，只处理一次
		if _, loaded := processedChecksums.LoadOrStore(actualChecksum, true); loaded {
			continue
		}
		for _, info := range infos {
			if err := saveDuplicateChecksumToRedis(cp.Rdb, cp.Ctx, actualChecksum, info); err != nil {
				log.Printf("Error saving duplicate info for %s: %v", info.Path, err)
				saveErr = err
			}
		}
	}

	return fileCount, saveErr
}

// saveDuplicateChecksumToRedis 把重复分组的成员写入有序集合，按大小降序排列，
// 这样输出时第一个成员就是保留项
func saveDuplicateChecksumToRedis(rdb *redis.Client, ctx context.Context, checksum string, info ChecksumInfo) error {
	err := rdb.ZAdd(ctx, "duplicateChecksums:"+checksum, &redis.Z{
		Score:  float64(-info.Size),
		Member: info.Path,
	}).Err()
	if err != nil {
		return fmt.Errorf("error saving duplicate checksum member: %w", err)
	}
	return nil
}

// scanDuplicateChecksums 返回对应多个路径的校验值
func scanDuplicateChecksums(rdb *redis.Client, ctx context.Context) (map[string][]string, error) {
	iter := rdb.Scan(ctx, 0, "checksumToPathSet:*", 0).Iterator()
	checksums := make(map[string][]string)
	for iter.Next(ctx) {
		setKey := iter.Val()
		checksum := strings.TrimPrefix(setKey, "checksumToPathSet:")
		paths, err := rdb.SMembers(ctx, setKey).Result()
		if err != nil {
			return nil, fmt.Errorf("error retrieving paths for key %s: %w", setKey, err)
		}
		// 只保留包含多个文件路径的条目
		if len(paths) > 1 {
			checksums[checksum] = paths
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("error during iteration: %w", err)
	}
	return checksums, nil
}
