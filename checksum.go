// checksum.go
package main

import (
	"context"
	"crypto/sha512"
	"fmt"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/afero"
	"io"
	"log"
	"path/filepath"
	"regexp"
)

// ChecksumProcessor 负责计算单个文件的校验值并写入Redis
type ChecksumProcessor struct {
	Rdb                     *redis.Client
	Ctx                     context.Context
	generateHashFunc        func(string) string
	calculateChecksumFunc   func(path string) (string, error)
	saveChecksumToRedisFunc func(*redis.Client, context.Context, string, ChecksumInfo, int64) error
	fs                      afero.Fs
	excludeRegexps          []*regexp.Regexp
}

func CreateChecksumProcessor(rdb *redis.Client, ctx context.Context, excludeRegexps []*regexp.Regexp, options ...func(*ChecksumProcessor)) *ChecksumProcessor {
	cp := &ChecksumProcessor{
		Rdb:            rdb,
		Ctx:            ctx,
		fs:             afero.NewOsFs(),
		excludeRegexps: excludeRegexps,
	}

	// 设置默认值
	cp.generateHashFunc = generateHash
	cp.calculateChecksumFunc = cp.calculateChecksum
	cp.saveChecksumToRedisFunc = saveChecksumToRedis

	// 应用选项
	for _, option := range options {
		option(cp)
	}

	return cp
}

// ProcessFile 计算一个文件的校验值并把记录保存到Redis
func (cp *ChecksumProcessor) ProcessFile(rootDir, relativePath string, runTime int64) error {
	fullPath := filepath.Join(rootDir, relativePath)

	info, err := cp.fs.Stat(fullPath)
	if err != nil {
		return fmt.Errorf("error getting file info: %w", err)
	}

	checksum, err := cp.calculateChecksumFunc(fullPath)
	if err != nil {
		return fmt.Errorf("error calculating checksum: %w", err)
	}

	checksumInfo := ChecksumInfo{
		Size:     info.Size(),
		ModTime:  info.ModTime(),
		Path:     fullPath, // 存储绝对路径
		Checksum: checksum,
	}

	if err := cp.saveChecksumToRedisFunc(cp.Rdb, cp.Ctx, fullPath, checksumInfo, runTime); err != nil {
		return fmt.Errorf("error saving checksum info to Redis: %w", err)
	}

	return nil
}

// calculateChecksum 计算文件全文的 SHA-512 校验值，优先使用Redis缓存
func (cp *ChecksumProcessor) calculateChecksum(path string) (string, error) {
	hashedKey := cp.generateHashFunc(path)
	cacheKey := "hashedKeyToChecksum:" + hashedKey

	// 尝试从缓存获取
	cachedSum, err := cp.Rdb.Get(cp.Ctx, cacheKey).Result()
	if err == nil {
		return cachedSum, nil
	} else if err != redis.Nil {
		return "", fmt.Errorf("redis error: %w", err)
	}

	// 缓存未命中，计算新的校验值
	f, err := cp.fs.Open(path)
	if err != nil {
		return "", fmt.Errorf("error opening file: %w", err)
	}
	defer f.Close()

	h := sha512.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("error reading file: %w", err)
	}

	checksum := fmt.Sprintf("%x", h.Sum(nil))

	// 将新计算的校验值保存到Redis
	if err := cp.Rdb.Set(cp.Ctx, cacheKey, checksum, 0).Err(); err != nil {
		log.Printf("Warning: Failed to cache checksum for %s: %v", path, err)
	}

	return checksum, nil
}

func (cp *ChecksumProcessor) ShouldExclude(path string) bool {
	return shouldExclude(path, cp.excludeRegexps)
}

func (cp *ChecksumProcessor) getHashedKeyFromPath(path string) (string, error) {
	return cp.Rdb.Get(cp.Ctx, "pathToHashedKey:"+filepath.Clean(path)).Result()
}
