// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"fmt"
	"strings"
)

// Role identifies the capacity a tracked person appears in. It drives credit
// selection against the catalog and the derived person identifier.
type Role string

const (
	RoleActor    Role = "actor"
	RoleDirector Role = "director"
	RoleWriter   Role = "writer"
)

// AllRoles lists every supported role in display order.
var AllRoles = []Role{RoleActor, RoleDirector, RoleWriter}

// ParseRole validates and normalizes a role string.
func ParseRole(value string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case RoleActor:
		return RoleActor, nil
	case RoleDirector:
		return RoleDirector, nil
	case RoleWriter:
		return RoleWriter, nil
	default:
		return "", fmt.Errorf("invalid role: %s (must be 'actor', 'director' or 'writer')", value)
	}
}

// CreditDepartment returns the catalog credit department matching the role.
func (r Role) CreditDepartment() string {
	switch r {
	case RoleDirector:
		return "Directing"
	case RoleWriter:
		return "Writing"
	default:
		return "Acting"
	}
}
