// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package testdb opens throwaway migrated SQLite databases for tests.
package testdb

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/autobrr/gapwatch/internal/database"
)

var template struct {
	once sync.Once
	path string
	err  error
}

// Open creates a fresh fully migrated database in a per-test temp directory
// and closes it when the test finishes. Migration cost is paid once per test
// binary: later calls clone a template database file.
func Open(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(Path(t))
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// Path returns a fresh migrated database file path for a test.
func Path(t *testing.T) string {
	t.Helper()

	template.once.Do(func() {
		template.path, template.err = createTemplateDB()
	})
	if template.err != nil {
		t.Fatalf("prepare test database template: %v", template.err)
	}

	dbPath := filepath.Join(t.TempDir(), "gapwatch-test.db")
	if err := cloneDatabaseFiles(template.path, dbPath); err != nil {
		t.Fatalf("clone test database template to %s: %v", dbPath, err)
	}

	return dbPath
}

func createTemplateDB() (string, error) {
	templateDir, err := os.MkdirTemp("", "gapwatch-testdb-template-")
	if err != nil {
		return "", err
	}

	templatePath := filepath.Join(templateDir, "template.db")
	db, err := database.New(templatePath)
	if err != nil {
		return "", err
	}

	if err := db.Close(); err != nil {
		return "", err
	}

	return templatePath, nil
}

func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		_ = dstFile.Close()
		return err
	}

	return dstFile.Close()
}

func cloneDatabaseFiles(srcMain, dstMain string) error {
	if err := copyFile(srcMain, dstMain); err != nil {
		return err
	}

	for _, suffix := range []string{"-wal", "-shm"} {
		if err := copyOptionalFile(srcMain+suffix, dstMain+suffix); err != nil {
			return err
		}
	}

	return nil
}

func copyOptionalFile(src, dst string) error {
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return copyFile(src, dst)
}
