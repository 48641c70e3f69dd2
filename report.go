// report.go
package main

import (
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"strings"
)

// SaveChecksumLog 把Redis中的全部校验记录排序后写入 rootDir 下的日志文件
func (cp *ChecksumProcessor) SaveChecksumLog(rootDir, filename string, sortByModTime bool) error {
	outputPath := filepath.Join(rootDir, filename)
	absOutputPath, err := filepath.Abs(outputPath)
	if err != nil {
		return fmt.Errorf("error getting absolute path: %w", err)
	}

	outputDir := filepath.Dir(outputPath)
	if err := cp.fs.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}

	file, err := cp.fs.Create(outputPath)
	if err != nil {
		return fmt.Errorf("error creating file: %w", err)
	}
	defer file.Close()

	iter := cp.Rdb.Scan(cp.Ctx, 0, "checksumInfo:*", 0).Iterator()
	data := make(map[string]ChecksumInfo)

	for iter.Next(cp.Ctx) {
		hashedKey := strings.TrimPrefix(iter.Val(), "checksumInfo:")

		originalPath, err := cp.Rdb.Get(cp.Ctx, "hashedKeyToPath:"+hashedKey).Result()
		if err != nil {
			log.Printf("Error getting original path for key %s: %v", hashedKey, err)
			continue
		}

		info, err := getChecksumInfoFromRedis(cp.Rdb, cp.Ctx, hashedKey)
		if err != nil {
			log.Printf("Error getting checksum info for key %s: %v", hashedKey, err)
			continue
		}

		data[originalPath] = info
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("error iterating over Redis keys: %w", err)
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}

	sortKeys(keys, data, sortByModTime)

	for _, k := range keys {
		info := data[k]
		cleanedPath := cleanRelativePath(rootDir, k)
		line := formatChecksumLine(info, cleanedPath, sortByModTime)
		if _, err := file.WriteString(line); err != nil {
			return fmt.Errorf("error writing to file: %w", err)
		}
	}

	log.Printf("File updated successfully: %s", absOutputPath)
	return nil
}

// WriteDuplicateChecksumsToFile 把已确认的重复校验分组写入 rootDir 下的日志文件
func (cp *ChecksumProcessor) WriteDuplicateChecksumsToFile(rootDir, outputFile string) error {
	outputPath := filepath.Join(rootDir, outputFile)
	absOutputPath, err := filepath.Abs(outputPath)
	if err != nil {
		return fmt.Errorf("error getting absolute path: %w", err)
	}

	file, err := cp.fs.Create(outputPath)
	if err != nil {
		return fmt.Errorf("error creating output file: %w", err)
	}
	defer file.Close()

	iter := cp.Rdb.Scan(cp.Ctx, 0, "duplicateChecksums:*", 0).Iterator()
	for iter.Next(cp.Ctx) {
		duplicatesKey := iter.Val()
		checksum := strings.TrimPrefix(duplicatesKey, "duplicateChecksums:")
		duplicatePaths, err := cp.Rdb.ZRange(cp.Ctx, duplicatesKey, 0, -1).Result()
		if err != nil {
			log.Printf("Error getting duplicate paths for key %s: %v", duplicatesKey, err)
			continue
		}

		if len(duplicatePaths) <= 1 {
			continue
		}

		header := fmt.Sprintf("Duplicate files for checksum %s:\n", checksum)
		if _, err := file.WriteString(header); err != nil {
			log.Printf("Error writing header: %v", err)
			continue
		}

		for i, duplicatePath := range duplicatePaths {
			hashedKey, err := cp.getHashedKeyFromPath(duplicatePath)
			if err != nil {
				log.Printf("Error getting hashed key for path %s: %v", duplicatePath, err)
				continue
			}

			info, err := getChecksumInfoFromRedis(cp.Rdb, cp.Ctx, hashedKey)
			if err != nil {
				log.Printf("Error getting checksum info for key %s: %v", hashedKey, err)
				continue
			}

			// 第一个是保留项，其余标记为重复项
			prefix := "[-]"
			if i == 0 {
				prefix = "[+]"
			}
			cleanedPath := cleanRelativePath(rootDir, duplicatePath)
			line := fmt.Sprintf("%s %d,\"%s\"\n", prefix, info.Size, cleanedPath)

			if _, err := file.WriteString(line); err != nil {
				log.Printf("Error writing line: %v", err)
			}
		}
		file.WriteString("\n")
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("error during iteration: %w", err)
	}

	log.Printf("Duplicate checksums written successfully: %s", absOutputPath)
	return nil
}

func sortKeys(keys []string, data map[string]ChecksumInfo, sortByModTime bool) {
	if sortByModTime {
		sort.Slice(keys, func(i, j int) bool {
			return data[keys[i]].ModTime.After(data[keys[j]].ModTime)
		})
	} else {
		sort.Slice(keys, func(i, j int) bool {
			if data[keys[i]].Size == data[keys[j]].Size {
				return keys[i] < keys[j] // 如果大小相同，按路径字母顺序排序
			}
			return data[keys[i]].Size > data[keys[j]].Size
		})
	}
}

func cleanRelativePath(rootDir, fullPath string) string {
	rootDir, _ = filepath.Abs(rootDir)
	fullPath, _ = filepath.Abs(fullPath)

	rel, err := filepath.Rel(rootDir, fullPath)
	if err != nil {
		return fullPath
	}

	rel = strings.TrimPrefix(rel, "./")
	for strings.HasPrefix(rel, "../") {
		rel = strings.TrimPrefix(rel, "../")
	}

	if !strings.HasPrefix(rel, "./") {
		rel = "./" + rel
	}

	return filepath.ToSlash(rel)
}

func formatChecksumLine(info ChecksumInfo, relativePath string, sortByModTime bool) string {
	if sortByModTime {
		return fmt.Sprintf("\"%s\"\n", relativePath)
	}
	return fmt.Sprintf("%d,\"%s\"\n", info.Size, relativePath)
}
