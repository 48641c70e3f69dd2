// redis_store.go
package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"github.com/go-redis/redis/v8"
	"log"
	"strings"
	"time"
)

// ChecksumInfo 保存单个文件的校验信息
type ChecksumInfo struct {
	Size     int64
	ModTime  time.Time
	Path     string
	Checksum string
}

// 初始化Redis客户端
func newRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("error connecting to Redis: %w", err)
	}
	return rdb, nil
}

// Generate a SHA-256 hash for the given string
func generateHash(s string) string {
	hasher := sha256.New()
	hasher.Write([]byte(s))
	return hex.EncodeToString(hasher.Sum(nil))
}

// saveChecksumToRedis 把单个文件的校验记录及其索引键写入Redis
func saveChecksumToRedis(rdb *redis.Client, ctx context.Context, path string, info ChecksumInfo, runTime int64) error {
	hashedKey := generateHash(path)

	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(info); err != nil {
		return fmt.Errorf("error encoding checksum info: %w", err)
	}

	pipe := rdb.Pipeline()
	pipe.Set(ctx, "checksumInfo:"+hashedKey, buf.Bytes(), 0)
	pipe.Set(ctx, "hashedKeyToPath:"+hashedKey, path, 0)
	pipe.Set(ctx, "pathToHashedKey:"+path, hashedKey, 0)
	pipe.Set(ctx, "updateTime:"+hashedKey, runTime, 0)
	if info.Checksum != "" {
		pipe.Set(ctx, "hashedKeyToChecksum:"+hashedKey, info.Checksum, 0)
		pipe.SAdd(ctx, "checksumToPathSet:"+info.Checksum, path)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("error saving checksum info to Redis: %w", err)
	}
	return nil
}

func getChecksumInfoFromRedis(rdb *redis.Client, ctx context.Context, hashedKey string) (ChecksumInfo, error) {
	var info ChecksumInfo
	value, err := rdb.Get(ctx, "checksumInfo:"+hashedKey).Bytes()
	if err != nil {
		return info, err
	}

	buf := bytes.NewBuffer(value)
	dec := gob.NewDecoder(buf)
	if err := dec.Decode(&info); err != nil {
		return info, fmt.Errorf("error decoding checksum info: %w", err)
	}
	return info, nil
}

// cleanUpOldRecords 删除上次运行遗留的过期记录
func cleanUpOldRecords(rdb *redis.Client, ctx context.Context, startTime int64) error {
	iter := rdb.Scan(ctx, 0, "updateTime:*", 0).Iterator()
	for iter.Next(ctx) {
		updateTimeKey := iter.Val()
		updateTime, err := rdb.Get(ctx, updateTimeKey).Int64()
		if err != nil {
			log.Printf("Error retrieving updateTime for key %s: %v", updateTimeKey, err)
			continue
		}

		if updateTime >= startTime {
			continue
		}

		// 解析出原始的hashedKey
		hashedKey := strings.TrimPrefix(updateTimeKey, "updateTime:")

		filePath, err := rdb.Get(ctx, "hashedKeyToPath:"+hashedKey).Result()
		if err != nil {
			log.Printf("Error retrieving path for key %s: %v", hashedKey, err)
			continue
		}

		// 校验值可能不存在，忽略错误
		checksum, _ := rdb.Get(ctx, "hashedKeyToChecksum:"+hashedKey).Result()

		pipe := rdb.Pipeline()
		pipe.Del(ctx, updateTimeKey)
		pipe.Del(ctx, "checksumInfo:"+hashedKey)
		pipe.Del(ctx, "hashedKeyToPath:"+hashedKey)
		pipe.Del(ctx, "pathToHashedKey:"+filePath)
		pipe.Del(ctx, "hashedKeyToChecksum:"+hashedKey)
		if checksum != "" {
			pipe.SRem(ctx, "checksumToPathSet:"+checksum, filePath)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			log.Printf("Error deleting keys for outdated record %s: %v", hashedKey, err)
		} else {
			log.Printf("Deleted outdated record: %s", filePath)
		}
	}
	return iter.Err()
}
