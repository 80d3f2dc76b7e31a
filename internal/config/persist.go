// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package config

import (
	"fmt"
	"os"
	"strings"
)

// UpdateLogSettings persists changed log settings back into config.toml,
// rewriting the existing (possibly commented) keys in place so the file keeps
// its layout and comments.
func (c *AppConfig) UpdateLogSettings(level, path string, maxSize, maxBackups int) error {
	content, err := os.ReadFile(c.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	updated := updateLogSettingsInTOML(string(content), level, path, maxSize, maxBackups)
	if err := os.WriteFile(c.configPath, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	c.Config.LogLevel = level
	c.Config.LogPath = path
	c.Config.LogMaxSize = maxSize
	c.Config.LogMaxBackups = maxBackups
	return nil
}

// updateLogSettingsInTOML replaces log settings in the raw TOML text,
// uncommenting template keys where needed. Keys missing from the top-level
// block are inserted before the first table header.
func updateLogSettingsInTOML(content, level, path string, maxSize, maxBackups int) string {
	replacements := map[string]string{
		"logLevel":      fmt.Sprintf("logLevel = %q", level),
		"logPath":       fmt.Sprintf("logPath = %q", path),
		"logMaxSize":    fmt.Sprintf("logMaxSize = %d", maxSize),
		"logMaxBackups": fmt.Sprintf("logMaxBackups = %d", maxBackups),
	}

	lines := strings.Split(content, "\n")
	seen := make(map[string]bool, len(replacements))

	firstTable := -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if firstTable == -1 && strings.HasPrefix(trimmed, "[") {
			firstTable = i
		}

		key := tomlKey(trimmed)
		if replacement, ok := replacements[key]; ok && !seen[key] && (firstTable == -1 || i < firstTable) {
			lines[i] = replacement
			seen[key] = true
		}
	}

	var missing []string
	for _, key := range []string{"logLevel", "logPath", "logMaxSize", "logMaxBackups"} {
		if !seen[key] {
			missing = append(missing, replacements[key])
		}
	}
	if len(missing) == 0 {
		return strings.Join(lines, "\n")
	}

	if firstTable == -1 {
		return strings.Join(append(lines, missing...), "\n")
	}
	out := make([]string, 0, len(lines)+len(missing))
	out = append(out, lines[:firstTable]...)
	out = append(out, missing...)
	out = append(out, lines[firstTable:]...)
	return strings.Join(out, "\n")
}

// tomlKey extracts the key of a `key = value` line, tolerating a comment
// marker in front of template defaults.
func tomlKey(line string) string {
	line = strings.TrimSpace(strings.TrimPrefix(line, "#"))
	key, _, found := strings.Cut(line, "=")
	if !found {
		return ""
	}
	return strings.TrimSpace(key)
}
