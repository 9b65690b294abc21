package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/egpivo/ethereum-account-state/internal/event"
)

// Records returns every cached raw record. The result order is
// deterministic: ORDER BY block, tx_index, id COLLATE BINARY.
//
// This method makes *Store satisfy the engine's source.Source
// interface.
func (s *Store) Records(ctx context.Context) ([]event.RawRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, args, unit, block, tx_index, log_index
		FROM records
		ORDER BY block ASC, tx_index ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []event.RawRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	return records, nil
}

// RecordCount returns the number of cached records.
func (s *Store) RecordCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return count, nil
}

// Sessions returns all fetch sessions, newest token first. UUIDv7
// tokens sort by creation time, so token order is recency order.
func (s *Store) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT token, token_address, from_block, to_block, record_count, created_at
		FROM fetch_sessions
		ORDER BY token COLLATE BINARY DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.Token, &sess.TokenAddress, &sess.FromBlock,
			&sess.ToBlock, &sess.RecordCount, &sess.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

// scanRecord rebuilds a raw record from one row.
func scanRecord(rows *sql.Rows) (event.RawRecord, error) {
	var (
		rec      event.RawRecord
		argsJSON string
		logIndex sql.NullInt64
	)
	if err := rows.Scan(&rec.Kind, &argsJSON, &rec.Unit, &rec.Block, &rec.TxIndex, &logIndex); err != nil {
		return event.RawRecord{}, fmt.Errorf("scan record: %w", err)
	}

	if err := json.Unmarshal([]byte(argsJSON), &rec.Args); err != nil {
		return event.RawRecord{}, fmt.Errorf("unmarshal args: %w", err)
	}
	if logIndex.Valid {
		idx := uint(logIndex.Int64)
		rec.LogIndex = &idx
	}
	return rec, nil
}
