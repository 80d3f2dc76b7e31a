// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package dbinterface provides database interfaces to avoid import cycles.
// Stores accept a Querier so they can run against *sql.DB, *sql.Tx, or
// *database.DB interchangeably, which is how scan operations commit all
// per-entity writes inside one transaction.
package dbinterface

import (
	"context"
	"database/sql"
)

// Querier is the centralized interface for database operations.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// TxBeginner is implemented by types that can begin transactions.
type TxBeginner interface {
	Querier
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
