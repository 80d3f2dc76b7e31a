// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/autobrr/gapwatch/internal/dbinterface"
)

const scanLogLimit = 100

// Well-known settings keys.
const (
	SettingLastMovieScanAt = "last_movie_scan_at"
	SettingLastShowScanAt  = "last_show_scan_at"
	SettingMovieScanLogs   = "movie_scan_logs"
	SettingShowScanLogs    = "show_scan_logs"
)

// ScanLogEntry records one library snapshot refresh in the scan history ring.
type ScanLogEntry struct {
	ScannedAt time.Time `json:"scanned_at"`
	Persons   int       `json:"persons,omitempty"`
	Movies    int       `json:"movies,omitempty"`
	Shows     int       `json:"shows,omitempty"`
	Episodes  int       `json:"episodes,omitempty"`
}

// SettingsStore persists small JSON-encoded key/value settings.
type SettingsStore struct {
	db dbinterface.TxBeginner
}

// NewSettingsStore creates a new SettingsStore.
func NewSettingsStore(db dbinterface.TxBeginner) *SettingsStore {
	return &SettingsStore{db: db}
}

// Set stores a JSON-encoded value under key.
func (s *SettingsStore) Set(ctx context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode setting %s: %w", key, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, string(payload), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to store setting %s: %w", key, err)
	}

	return nil
}

// Get decodes the value stored under key into dest. Returns false when the
// key does not exist.
func (s *SettingsStore) Get(ctx context.Context, key string, dest any) (bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read setting %s: %w", key, err)
	}

	if err := json.Unmarshal([]byte(payload), dest); err != nil {
		return false, fmt.Errorf("failed to decode setting %s: %w", key, err)
	}
	return true, nil
}

// Delete removes the given keys.
func (s *SettingsStore) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key); err != nil {
			return fmt.Errorf("failed to delete setting %s: %w", key, err)
		}
	}
	return nil
}

// AppendScanLog prepends entry to the scan history stored under key, keeping
// at most the hundred most recent entries.
func (s *SettingsStore) AppendScanLog(ctx context.Context, key string, entry ScanLogEntry) ([]ScanLogEntry, error) {
	var logs []ScanLogEntry
	if _, err := s.Get(ctx, key, &logs); err != nil {
		return nil, err
	}

	logs = append([]ScanLogEntry{entry}, logs...)
	if len(logs) > scanLogLimit {
		logs = logs[:scanLogLimit]
	}

	if err := s.Set(ctx, key, logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// ScanLogs returns the scan history stored under key, newest first.
func (s *SettingsStore) ScanLogs(ctx context.Context, key string) ([]ScanLogEntry, error) {
	logs := make([]ScanLogEntry, 0)
	if _, err := s.Get(ctx, key, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}
