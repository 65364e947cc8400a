// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "present")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	exists, isDir, err := FileExists(file)
	if err != nil || !exists || isDir {
		t.Fatalf("FileExists(%s) = %v, %v, %v", file, exists, isDir, err)
	}

	exists, _, err = FileExists(filepath.Join(dir, "missing"))
	if err != nil || exists {
		t.Fatalf("expected missing file to report exists=false, got %v, %v", exists, err)
	}

	exists, isDir, err = FileExists(dir)
	if err != nil || !exists || !isDir {
		t.Fatalf("FileExists(%s) = %v, %v, %v", dir, exists, isDir, err)
	}
}

func TestFileGetStringsWithPattern(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "initiatorname.iscsi")
	content := "## DO NOT EDIT\nInitiatorName=iqn.1986-03.com.sun:01:abc\n"
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	matches, err := FileGetStringsWithPattern(file, "^InitiatorName=(?P<iscsiinit>.*)$")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0] != "iqn.1986-03.com.sun:01:abc" {
		t.Fatalf("unexpected matches: %v", matches)
	}
}
