// exclude_patterns.go
package main

import (
	"bufio"
	"fmt"
	"github.com/spf13/afero"
	"regexp"
	"strings"
)

// loadExcludePatterns 从文件中按行读取排除模式，跳过空行
func loadExcludePatterns(path string, fs afero.Fs) ([]string, error) {
	file, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening exclude patterns file: %w", err)
	}
	defer file.Close()

	var patterns []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		patterns = append(patterns, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading exclude patterns file: %w", err)
	}
	return patterns, nil
}

// compileExcludePatterns 把排除模式编译成正则表达式
func compileExcludePatterns(patterns []string) ([]*regexp.Regexp, error) {
	regexps := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("error compiling exclude pattern %q: %w", pattern, err)
		}
		regexps = append(regexps, re)
	}
	return regexps, nil
}

// loadExcludeRegexps 读取并编译排除模式文件
func loadExcludeRegexps(path string, fs afero.Fs) ([]*regexp.Regexp, error) {
	patterns, err := loadExcludePatterns(path, fs)
	if err != nil {
		return nil, err
	}
	return compileExcludePatterns(patterns)
}

func shouldExclude(path string, regexps []*regexp.Regexp) bool {
	for _, re := range regexps {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}
