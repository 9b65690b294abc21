package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/egpivo/ethereum-account-state/internal/event"
)

// Session records one fetch run.
type Session struct {
	// Token is the run's UUIDv7 token.
	Token string

	// TokenAddress is the contract the logs were fetched from.
	TokenAddress string

	// FromBlock and ToBlock bound the fetched range (inclusive).
	FromBlock, ToBlock uint64

	// RecordCount is the number of records newly inserted by the run.
	RecordCount int

	// CreatedAt is the session creation time (unix seconds).
	CreatedAt int64
}

// BeginSession inserts a session row for a fetch run. Call before
// writing the run's records so the foreign key holds.
func (s *Store) BeginSession(ctx context.Context, session Session) error {
	createdAt := session.CreatedAt
	if createdAt == 0 {
		createdAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fetch_sessions (token, token_address, from_block, to_block, record_count, created_at)
		VALUES (?, ?, ?, ?, 0, ?)
	`, session.Token, session.TokenAddress, session.FromBlock, session.ToBlock, createdAt)
	if err != nil {
		return fmt.Errorf("begin session: %w", err)
	}
	return nil
}

// FinishSession stores the final insert count for a fetch run.
func (s *Store) FinishSession(ctx context.Context, token string, recordCount int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE fetch_sessions SET record_count = ? WHERE token = ?
	`, recordCount, token)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	return nil
}

// WriteRecord inserts one raw record under the given session token.
// Writes are idempotent via the content-addressed id: re-inserting an
// identical record reports inserted=false and changes nothing.
func (s *Store) WriteRecord(ctx context.Context, rec event.RawRecord, session string) (bool, error) {
	id, argsJSON, err := recordID(rec)
	if err != nil {
		return false, fmt.Errorf("write record: %w", err)
	}

	var logIndex sql.NullInt64
	if rec.LogIndex != nil {
		logIndex = sql.NullInt64{Int64: int64(*rec.LogIndex), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO records (id, kind, args, unit, block, tx_index, log_index, session)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, rec.Kind, argsJSON, rec.Unit, rec.Block, rec.TxIndex, logIndex, session)
	if err != nil {
		return false, fmt.Errorf("write record: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write record: %w", err)
	}
	return affected > 0, nil
}

// WriteBatch inserts a batch of records and returns how many were new.
func (s *Store) WriteBatch(ctx context.Context, records []event.RawRecord, session string) (int, error) {
	inserted := 0
	for _, rec := range records {
		ok, err := s.WriteRecord(ctx, rec, session)
		if err != nil {
			return inserted, err
		}
		if ok {
			inserted++
		}
	}
	return inserted, nil
}

// recordID derives the content-addressed row id: a digest over the
// record's coordinates and payload. Go's json.Marshal sorts map keys,
// so identical payloads always produce identical ids.
func recordID(rec event.RawRecord) (id, argsJSON string, err error) {
	args, err := json.Marshal(rec.Args)
	if err != nil {
		return "", "", fmt.Errorf("marshal args: %w", err)
	}

	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%d|%d|", rec.Kind, rec.Unit, rec.Block, rec.TxIndex)
	if rec.LogIndex != nil {
		fmt.Fprintf(h, "%d|", *rec.LogIndex)
	} else {
		fmt.Fprint(h, "-|")
	}
	h.Write(args)

	return hex.EncodeToString(h.Sum(nil)), string(args), nil
}
