package vectorindex

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/xxxsen/docmind/internal/model"
	"github.com/xxxsen/docmind/internal/pkg/dbutil"
	appErr "github.com/xxxsen/docmind/internal/pkg/errors"
)

// SQLite persists vectors as little-endian float32 BLOBs and ranks the rows
// matching the filter in process.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

func (s *SQLite) Upsert(ctx context.Context, namespace string, records []model.VectorRecord) error {
	if err := validateRecords(records); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	const query = `
		INSERT INTO chunk_vectors (namespace, id, document_id, chunk_index, metadata, embedding, mtime)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (namespace, id) DO UPDATE SET
			document_id = excluded.document_id,
			chunk_index = excluded.chunk_index,
			metadata = excluded.metadata,
			embedding = excluded.embedding,
			mtime = excluded.mtime
	`
	now := time.Now().Unix()
	for _, rec := range records {
		meta, err := json.Marshal(rec.Metadata)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query,
			namespace, rec.ID, rec.Metadata.DocumentID, rec.Metadata.Index, string(meta), dbutil.EncodeVector(rec.Vector), now,
		); err != nil {
			return fmt.Errorf("upsert vector %s: %w", rec.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLite) Query(ctx context.Context, namespace string, vector []float32, filter Filter, k int) ([]Candidate, error) {
	if k <= 0 {
		return nil, nil
	}
	records, err := s.Get(ctx, namespace, filter, 0)
	if err != nil {
		return nil, err
	}
	return rank(records, vector, k), nil
}

func (s *SQLite) DeleteWhere(ctx context.Context, namespace string, filter Filter) (int, error) {
	if filter.IsZero() {
		return 0, fmt.Errorf("delete requires a filter: %w", appErr.ErrInvalid)
	}
	where, args, err := documentClause(namespace, filter)
	if err != nil || where == "" {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM chunk_vectors WHERE `+where, args...)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	return int(affected), err
}

func (s *SQLite) Get(ctx context.Context, namespace string, filter Filter, limit int) ([]model.VectorRecord, error) {
	where, args, err := documentClause(namespace, filter)
	if err != nil || where == "" {
		return nil, err
	}
	query := `SELECT id, metadata, embedding FROM chunk_vectors WHERE ` + where + ` ORDER BY document_id ASC, chunk_index ASC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.VectorRecord
	for rows.Next() {
		var (
			rec  model.VectorRecord
			meta string
			blob []byte
		)
		if err := rows.Scan(&rec.ID, &meta, &blob); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(meta), &rec.Metadata); err != nil {
			return nil, err
		}
		if rec.Vector, err = dbutil.DecodeVector(blob); err != nil {
			return nil, err
		}
		rec.Namespace = namespace
		out = append(out, rec)
	}
	return out, rows.Err()
}
