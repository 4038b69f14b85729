package storage

import (
	"path/filepath"
	"strings"
	"testing"
)

func localFS(string) (string, error) { return "ext4", nil }

func TestCatalogOnLocalFilesystemAccepted(t *testing.T) {
	t.Parallel()

	catalogPath := filepath.Join(t.TempDir(), "data", "catalog.db")
	if err := validateSQLiteFilesystemWithDetector(catalogPath, localFS); err != nil {
		t.Fatalf("local catalog path rejected: %v", err)
	}
}

func TestCatalogOnNetworkShareRejected(t *testing.T) {
	t.Parallel()

	catalogPath := filepath.Join(t.TempDir(), "catalog.db")
	err := validateSQLiteFilesystemWithDetector(catalogPath, func(string) (string, error) {
		return "nfs", nil
	})
	if err == nil {
		t.Fatal("catalog on nfs should be refused")
	}

	msg := err.Error()
	for _, want := range []string{"catalog database", "nfs", "catalog.path", "catalog.driver: config"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("error %q should mention %q", msg, want)
		}
	}
}

func TestCatalogDetectorSeesNearestExistingDir(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	catalogPath := filepath.Join(dataDir, "toolhub", "state", "catalog.db")

	var inspected string
	err := validateSQLiteFilesystemWithDetector(catalogPath, func(path string) (string, error) {
		inspected = path
		return "apfs", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inspected != dataDir {
		t.Fatalf("detector inspected %q, want %q (the catalog dir does not exist yet)", inspected, dataDir)
	}
}

func TestCatalogDetectorFailureSurfaces(t *testing.T) {
	t.Parallel()

	err := validateSQLiteFilesystemWithDetector(filepath.Join(t.TempDir(), "catalog.db"), func(string) (string, error) {
		return "", errDetectUnsupported
	})
	if err == nil || !strings.Contains(err.Error(), "detect filesystem") {
		t.Fatalf("expected detector error, got %v", err)
	}
}

func TestIsNetworkFilesystem(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"nfs":    true,
		"CIFS":   true,
		" smb2 ": true,
		"webdav": true,
		"ext4":   false,
		"0x6969": false,
	}
	for fs, want := range cases {
		if got := isNetworkFilesystem(fs); got != want {
			t.Errorf("isNetworkFilesystem(%q) = %v, want %v", fs, got, want)
		}
	}
}
