// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package util

import (
	"bufio"
	"os"
	"regexp"
)

// FileExists reports whether path exists and, if so, whether it is a
// directory.
func FileExists(path string) (exists bool, isDir bool, err error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, false, nil
		}
		return false, false, err
	}
	return true, info.IsDir(), nil
}

// FileGetStringsWithPattern scans path line by line and returns the
// first capture group of pattern for every matching line.
func FileGetStringsWithPattern(path, pattern string) ([]string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var matches []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		m := re.FindStringSubmatch(scanner.Text())
		if len(m) > 1 {
			matches = append(matches, m[1])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return matches, nil
}
